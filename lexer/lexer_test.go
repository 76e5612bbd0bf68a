package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/lexer"
	"github.com/dialos/dialscript/token"
)

func scanAll(src string) []token.Token {
	l := lexer.New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestNumberDecimalVsFloat(t *testing.T) {
	toks := scanAll("42 3.5")
	require.Equal(t, []token.Kind{token.Number, token.Number, token.EOF}, kinds(toks))
	require.False(t, toks[0].IsFloat)
	require.True(t, toks[1].IsFloat)
}

func TestNumberHex(t *testing.T) {
	toks := scanAll("0xFF 0X1a")
	require.Len(t, toks, 3)
	require.True(t, toks[0].IsHex)
	require.False(t, toks[0].IsFloat)
	require.True(t, toks[1].IsHex)
}

func TestStringEscapes(t *testing.T) {
	toks := scanAll(`"a\nb\tc\\d\"e"`)
	require.Equal(t, token.String, toks[0].Kind)
	require.Equal(t, "a\nb\tc\\d\"e", toks[0].Lexeme)
}

func TestUnknownEscapeYieldsLiteralChar(t *testing.T) {
	toks := scanAll(`"\q"`)
	require.Equal(t, "q", toks[0].Lexeme)
}

func TestUnterminatedStringIsErrorToken(t *testing.T) {
	toks := scanAll(`"abc`)
	require.Equal(t, token.Error, toks[0].Kind)
}

func TestKeywordsVersusIdentifiers(t *testing.T) {
	toks := scanAll("var x if notAKeyword")
	require.Equal(t, token.KwVar, toks[0].Kind)
	require.Equal(t, token.Identifier, toks[1].Kind)
	require.Equal(t, token.KwIf, toks[2].Kind)
	require.Equal(t, token.Identifier, toks[3].Kind)
}

func TestTwoCharOperators(t *testing.T) {
	toks := scanAll("!= <= >=")
	require.Equal(t, []token.Kind{token.Ne, token.Le, token.Ge, token.EOF}, kinds(toks))
}

func TestNoEqualsEquals(t *testing.T) {
	// dialScript has no `==`; `=` lexes as a single equality token, twice.
	toks := scanAll("==")
	require.Equal(t, []token.Kind{token.Eq, token.Eq, token.EOF}, kinds(toks))
}

func TestLineAndBlockComments(t *testing.T) {
	toks := scanAll("1 // comment\n2 /* block\ncomment */ 3")
	require.Equal(t, []token.Kind{token.Number, token.Number, token.Number, token.EOF}, kinds(toks))
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, "2", toks[1].Lexeme)
	require.Equal(t, "3", toks[2].Lexeme)
}

func TestTemplateLiteralModeSwitch(t *testing.T) {
	toks := scanAll("`n=${n}!`")
	var kindsSeen []token.Kind
	for _, tk := range toks {
		kindsSeen = append(kindsSeen, tk.Kind)
	}
	require.Equal(t, []token.Kind{
		token.Backtick,
		token.TemplateText,
		token.TemplateExprStart,
		token.Identifier,
		token.RBrace,
		token.TemplateText,
		token.Backtick,
		token.EOF,
	}, kindsSeen)
	require.Equal(t, "n=", toks[1].Lexeme)
	require.Equal(t, "!", toks[5].Lexeme)
}

func TestTemplateLiteralEmptyPartsAreSkipped(t *testing.T) {
	// No text between the opening backtick and `${`, nor between `}` and
	// the closing backtick: no empty TemplateText tokens are emitted.
	toks := scanAll("`${x}`")
	require.Equal(t, []token.Kind{
		token.Backtick,
		token.TemplateExprStart,
		token.Identifier,
		token.RBrace,
		token.Backtick,
		token.EOF,
	}, kinds(toks))
}

func TestPositionsCapturedAtTokenStart(t *testing.T) {
	// Both identifiers and multi-char operators report the column of
	// their first character, not their last (spec.md §9 Open Question 5).
	toks := scanAll("ab <=")
	require.Equal(t, 1, toks[0].Column)
	require.Equal(t, 4, toks[1].Column)
}

func TestBracesOutsideTemplateArePlainBraceKind(t *testing.T) {
	toks := scanAll("{ }")
	require.Equal(t, []token.Kind{token.LBrace, token.RBrace, token.EOF}, kinds(toks))
}
