// Package lexer tokenizes dialScript source text, including the
// backtick-delimited template-literal mode switching described in
// spec.md §4.1.
package lexer

import (
	"strings"

	"github.com/dialos/dialscript/token"
)

// Lexer produces one token per Next call; the parser holds the single
// token of look-ahead its grammar needs.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int

	inTemplate  bool          // scanning TemplateText between ` and ${ or the closing `
	afterExprIn bool          // just closed a ${ ... } and should resume template text on next token
	ctxStack    []templateCtx // one entry per currently-open template literal
}

// New returns a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

// Next scans and returns the next token.
func (l *Lexer) Next() token.Token {
	if l.afterExprIn {
		l.afterExprIn = false
		l.inTemplate = true
	}

	if l.inTemplate {
		return l.scanTemplateText()
	}

	l.skipWhitespaceAndComments()

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Line: line, Column: col}
	}

	c := l.peekByte()

	switch {
	case c == '`':
		l.advance()
		if l.inTemplateCtx() {
			// closing backtick of an active template literal
			l.popTemplateCtx()
		} else {
			l.pushTemplateCtx()
			l.inTemplate = true
		}
		return token.Token{Kind: token.Backtick, Lexeme: "`", Line: line, Column: col}
	case isDigit(c):
		return l.scanNumber(line, col)
	case c == '\'' || c == '"':
		return l.scanString(line, col)
	case isIdentStart(c):
		return l.scanIdentifier(line, col)
	default:
		return l.scanOperator(line, col)
	}
}

// ctxStack tracks nested template literals: each entry is the brace depth
// count being tracked for the ${...} that is currently open, or 0 while we
// are scanning template text (not inside a ${...}).
//
// dialScript templates do not nest template literals inside expression
// holes in any of the example programs in spec.md §8, but the lexer still
// tracks a stack so that a `${ \`nested\` }` does not get confused about
// which backtick closes which literal.
type templateCtx struct{ depth int }

func (l *Lexer) inTemplateCtx() bool {
	return len(l.ctxStack) > 0 && !l.inTemplate && l.ctxStack[len(l.ctxStack)-1].depth == 0
}

func (l *Lexer) pushTemplateCtx() {
	l.ctxStack = append(l.ctxStack, templateCtx{depth: 0})
}

func (l *Lexer) popTemplateCtx() {
	if n := len(l.ctxStack); n > 0 {
		l.ctxStack = l.ctxStack[:n-1]
	}
}

func (l *Lexer) scanTemplateText() token.Token {
	line, col := l.line, l.col
	var sb strings.Builder
	for {
		c := l.peekByte()
		if c == 0 {
			return token.Token{Kind: token.Error, Lexeme: "unterminated template literal", Line: line, Column: col}
		}
		if c == '`' {
			break
		}
		if c == '$' && l.peekByteAt(1) == '{' {
			break
		}
		sb.WriteByte(l.advance())
	}

	if sb.Len() == 0 {
		// Either `${` or the closing backtick immediately follows: let the
		// next Next() call emit that token directly instead of an empty
		// TemplateText token, since a part must carry content.
		if l.peekByte() == '$' {
			l.advance()
			l.advance() // {
			l.inTemplate = false
			if n := len(l.ctxStack); n > 0 {
				l.ctxStack[n-1].depth = 1
			}
			return token.Token{Kind: token.TemplateExprStart, Lexeme: "${", Line: line, Column: col}
		}
		l.advance() // closing `
		l.inTemplate = false
		l.popTemplateCtx()
		return token.Token{Kind: token.Backtick, Lexeme: "`", Line: line, Column: col}
	}

	return token.Token{Kind: token.TemplateText, Lexeme: sb.String(), Line: line, Column: col}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		c := l.peekByte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekByteAt(1) == '/':
			for l.peekByte() != 0 && l.peekByte() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekByteAt(1) == '*':
			l.advance()
			l.advance()
			for {
				if l.peekByte() == 0 {
					return
				}
				if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool { return isIdentStart(c) || isDigit(c) }

func (l *Lexer) scanNumber(line, col int) token.Token {
	start := l.pos
	isHex := false
	isFloat := false

	if l.peekByte() == '0' && (l.peekByteAt(1) == 'x' || l.peekByteAt(1) == 'X') {
		isHex = true
		l.advance()
		l.advance()
		for isHexDigit(l.peekByte()) {
			l.advance()
		}
	} else {
		for isDigit(l.peekByte()) {
			l.advance()
		}
		if l.peekByte() == '.' && isDigit(l.peekByteAt(1)) {
			isFloat = true
			l.advance()
			for isDigit(l.peekByte()) {
				l.advance()
			}
		}
	}

	return token.Token{
		Kind: token.Number, Lexeme: l.src[start:l.pos],
		Line: line, Column: col, IsFloat: isFloat, IsHex: isHex,
	}
}

func (l *Lexer) scanString(line, col int) token.Token {
	quote := l.advance()
	var sb strings.Builder
	for {
		c := l.peekByte()
		if c == 0 {
			return token.Token{Kind: token.Error, Lexeme: "unterminated string", Line: line, Column: col}
		}
		if c == quote {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			esc := l.peekByte()
			if esc == 0 {
				return token.Token{Kind: token.Error, Lexeme: "unterminated string", Line: line, Column: col}
			}
			l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '\'':
				sb.WriteByte('\'')
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
	return token.Token{Kind: token.String, Lexeme: sb.String(), Line: line, Column: col}
}

func (l *Lexer) scanIdentifier(line, col int) token.Token {
	start := l.pos
	for isIdentCont(l.peekByte()) {
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	if kind, ok := token.Keywords[lexeme]; ok {
		return token.Token{Kind: kind, Lexeme: lexeme, Line: line, Column: col}
	}
	return token.Token{Kind: token.Identifier, Lexeme: lexeme, Line: line, Column: col}
}

func (l *Lexer) scanOperator(line, col int) token.Token {
	c := l.advance()
	two := func(next byte, kind token.Kind, lexeme string) (token.Token, bool) {
		if l.peekByte() == next {
			l.advance()
			return token.Token{Kind: kind, Lexeme: lexeme, Line: line, Column: col}, true
		}
		return token.Token{}, false
	}

	switch c {
	case '!':
		if t, ok := two('=', token.Ne, "!="); ok {
			return t
		}
		return token.Token{Kind: token.Error, Lexeme: "unexpected character '!'", Line: line, Column: col}
	case '<':
		if t, ok := two('=', token.Le, "<="); ok {
			return t
		}
		return token.Token{Kind: token.Lt, Lexeme: "<", Line: line, Column: col}
	case '>':
		if t, ok := two('=', token.Ge, ">="); ok {
			return t
		}
		return token.Token{Kind: token.Gt, Lexeme: ">", Line: line, Column: col}
	case '$':
		if t, ok := two('{', token.TemplateExprStart, "${"); ok {
			if n := len(l.ctxStack); n > 0 {
				l.ctxStack[n-1].depth = 1
			}
			return t
		}
		return token.Token{Kind: token.Error, Lexeme: "unexpected character '$'", Line: line, Column: col}
	case '}':
		if n := len(l.ctxStack); n > 0 && l.ctxStack[n-1].depth > 0 {
			l.ctxStack[n-1].depth--
			if l.ctxStack[n-1].depth == 0 {
				l.afterExprIn = true
			}
		}
		return token.Token{Kind: token.RBrace, Lexeme: "}", Line: line, Column: col}
	case '{':
		if n := len(l.ctxStack); n > 0 && l.ctxStack[n-1].depth > 0 {
			l.ctxStack[n-1].depth++
		}
		return token.Token{Kind: token.LBrace, Lexeme: "{", Line: line, Column: col}
	case '+':
		return token.Token{Kind: token.Plus, Lexeme: "+", Line: line, Column: col}
	case '-':
		return token.Token{Kind: token.Minus, Lexeme: "-", Line: line, Column: col}
	case '*':
		return token.Token{Kind: token.Star, Lexeme: "*", Line: line, Column: col}
	case '/':
		return token.Token{Kind: token.Slash, Lexeme: "/", Line: line, Column: col}
	case '%':
		return token.Token{Kind: token.Percent, Lexeme: "%", Line: line, Column: col}
	case '=':
		return token.Token{Kind: token.Eq, Lexeme: "=", Line: line, Column: col}
	case '?':
		return token.Token{Kind: token.Question, Lexeme: "?", Line: line, Column: col}
	case ':':
		return token.Token{Kind: token.Colon, Lexeme: ":", Line: line, Column: col}
	case '(':
		return token.Token{Kind: token.LParen, Lexeme: "(", Line: line, Column: col}
	case ')':
		return token.Token{Kind: token.RParen, Lexeme: ")", Line: line, Column: col}
	case '[':
		return token.Token{Kind: token.LBracket, Lexeme: "[", Line: line, Column: col}
	case ']':
		return token.Token{Kind: token.RBracket, Lexeme: "]", Line: line, Column: col}
	case ';':
		return token.Token{Kind: token.Semicolon, Lexeme: ";", Line: line, Column: col}
	case ',':
		return token.Token{Kind: token.Comma, Lexeme: ",", Line: line, Column: col}
	case '.':
		return token.Token{Kind: token.Dot, Lexeme: ".", Line: line, Column: col}
	default:
		return token.Token{Kind: token.Error, Lexeme: "unexpected character '" + string(c) + "'", Line: line, Column: col}
	}
}
