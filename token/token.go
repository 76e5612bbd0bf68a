// Package token defines the lexical tokens produced by the dialScript lexer.
package token

// Kind enumerates every token kind the lexer can produce.
type Kind int

const (
	EOF Kind = iota
	Error

	// Literals and identifiers.
	Number
	String
	Identifier
	TemplateText
	TemplateExprStart // ${
	TemplateExprEnd   // }
	Backtick          // `

	// Keywords.
	KwVar
	KwAssign
	KwIf
	KwElse
	KwWhile
	KwFor
	KwFunction
	KwClass
	KwConstructor
	KwReturn
	KwTry
	KwCatch
	KwFinally
	KwTrue
	KwFalse
	KwNull
	KwAnd
	KwOr
	KwNot

	// Primitive type keywords.
	KwInt
	KwUint
	KwByte
	KwShort
	KwFloat
	KwBool
	KwString
	KwVoid
	KwAny

	// Operators.
	Plus
	Minus
	Star
	Slash
	Percent
	Eq   // =
	Ne   // !=
	Lt   // <
	Gt   // >
	Le   // <=
	Ge   // >=
	Question
	Colon

	// Delimiters.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Comma
	Dot
)

var names = map[Kind]string{
	EOF:               "EOF",
	Error:             "Error",
	Number:            "Number",
	String:            "String",
	Identifier:        "Identifier",
	TemplateText:      "TemplateText",
	TemplateExprStart: "${",
	TemplateExprEnd:   "}",
	Backtick:          "`",
	KwVar:             "var",
	KwAssign:          "assign",
	KwIf:              "if",
	KwElse:            "else",
	KwWhile:           "while",
	KwFor:             "for",
	KwFunction:        "function",
	KwClass:           "class",
	KwConstructor:     "constructor",
	KwReturn:          "return",
	KwTry:             "try",
	KwCatch:           "catch",
	KwFinally:         "finally",
	KwTrue:            "true",
	KwFalse:           "false",
	KwNull:            "null",
	KwAnd:             "and",
	KwOr:              "or",
	KwNot:             "not",
	KwInt:             "int",
	KwUint:            "uint",
	KwByte:            "byte",
	KwShort:           "short",
	KwFloat:           "float",
	KwBool:            "bool",
	KwString:          "string",
	KwVoid:            "void",
	KwAny:             "any",
	Plus:              "+",
	Minus:             "-",
	Star:              "*",
	Slash:             "/",
	Percent:           "%",
	Eq:                "=",
	Ne:                "!=",
	Lt:                "<",
	Gt:                ">",
	Le:                "<=",
	Ge:                ">=",
	Question:          "?",
	Colon:             ":",
	LParen:            "(",
	RParen:            ")",
	LBrace:            "{",
	RBrace:            "}",
	LBracket:          "[",
	RBracket:          "]",
	Semicolon:         ";",
	Comma:             ",",
	Dot:               ".",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "Unknown"
}

// Keywords maps reserved words to their token kind.
var Keywords = map[string]Kind{
	"var":         KwVar,
	"assign":      KwAssign,
	"if":          KwIf,
	"else":        KwElse,
	"while":       KwWhile,
	"for":         KwFor,
	"function":    KwFunction,
	"class":       KwClass,
	"constructor": KwConstructor,
	"return":      KwReturn,
	"try":         KwTry,
	"catch":       KwCatch,
	"finally":     KwFinally,
	"true":        KwTrue,
	"false":       KwFalse,
	"null":        KwNull,
	"and":         KwAnd,
	"or":          KwOr,
	"not":         KwNot,
	"int":         KwInt,
	"uint":        KwUint,
	"byte":        KwByte,
	"short":       KwShort,
	"float":       KwFloat,
	"bool":        KwBool,
	"string":      KwString,
	"void":        KwVoid,
	"any":         KwAny,
}

// IsPrimitiveType reports whether kind is one of the primitive type keywords.
func IsPrimitiveType(k Kind) bool {
	switch k {
	case KwInt, KwUint, KwByte, KwShort, KwFloat, KwBool, KwString, KwVoid, KwAny:
		return true
	}
	return false
}

// Token is a single lexical unit with its source position.
//
// Position is always captured at the start of the lexeme, uniformly for
// identifiers and operators alike (spec.md Open Question 5 flags the
// original implementation as inconsistent here; this lexer always uses the
// start position).
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int

	IsFloat bool // Number tokens only: true if a '.' was consumed.
	IsHex   bool // Number tokens only: true if prefixed with 0x/0X.
}
