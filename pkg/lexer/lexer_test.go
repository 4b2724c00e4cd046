package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/lexer"
	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/token"
)

func testLegend(t *testing.T) *legend.Legend {
	t.Helper()
	lg, err := legend.LoadFromFile("../legend/testdata/default_legend.json")
	require.NoError(t, err)
	return lg
}

func kinds(t *testing.T, tokens []token.Token) []token.Kind {
	t.Helper()
	out := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeSimpleSelect(t *testing.T) {
	tokens, err := lexer.Tokenize("*3[users]::name,email>>oQ", testLegend(t), lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, []token.Kind{
		token.FUNCTION_SYMBOL,
		token.CONTAINER_OPEN,
		token.IDENT,
		token.CONTAINER_CLOSE,
		token.NAMESPACE_SEP,
		token.IDENT,
		token.OUTPUT_OP,
		token.DATA_TYPE,
		token.EOF,
	}, kinds(t, tokens))
}

func TestTokenizeAttachesLegendMetadata(t *testing.T) {
	tokens, err := lexer.Tokenize("*3[users]::name>>oQ", testLegend(t), lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, "select", tokens[0].SemanticMeaning)
	require.Equal(t, "SELECT", tokens[0].DialectHint)
}

func TestTokenizeMultiCharOperators(t *testing.T) {
	tokens, err := lexer.Tokenize("a===b!=c<=d>=e++f", nil, lexer.Options{})
	require.NoError(t, err)
	require.Contains(t, kinds(t, tokens), token.STRICT_EQ)
	require.Contains(t, kinds(t, tokens), token.NOT_EQ)
	require.Contains(t, kinds(t, tokens), token.LTE)
	require.Contains(t, kinds(t, tokens), token.GTE)
	require.Contains(t, kinds(t, tokens), token.PLUSPLUS)
}

func TestTokenizeJoinSymbol(t *testing.T) {
	tokens, err := lexer.Tokenize("=J[users+orders]::name>>oQ", testLegend(t), lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, token.JOIN_SYMBOL, tokens[0].Kind)
	require.Equal(t, "=J", tokens[0].Lexeme)
}

func TestTokenizeWildcardVsFunctionSymbol(t *testing.T) {
	tokens, err := lexer.Tokenize("*[users]::*>>oQ", testLegend(t), lexer.Options{})
	require.NoError(t, err)
	// the leading '*' has no alnum after it (immediately '[') so it's a
	// bare WILDCARD, not a FUNCTION_SYMBOL.
	require.Equal(t, token.WILDCARD, tokens[0].Kind)
}

func TestTokenizeStringLiteralWithEscapes(t *testing.T) {
	tokens, err := lexer.Tokenize(`'hello\nworld'`, nil, lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, token.STRING, tokens[0].Kind)
	require.Equal(t, "hello\nworld", tokens[0].Lexeme)
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := lexer.Tokenize(`'unterminated`, nil, lexer.Options{})
	require.Error(t, err)
}

func TestTokenizeNumberLiterals(t *testing.T) {
	tokens, err := lexer.Tokenize("42 3.14", nil, lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, token.NUMBER, tokens[0].Kind)
	require.Equal(t, "42", tokens[0].Lexeme)
	require.Equal(t, token.NUMBER, tokens[1].Kind)
	require.Equal(t, "3.14", tokens[1].Lexeme)
}

func TestTokenizeLegendSymbolRespectsWordBoundary(t *testing.T) {
	// "orders" must lex as a plain identifier, not as the "o" output-format
	// legend symbol followed by "rders".
	tokens, err := lexer.Tokenize("orders", testLegend(t), lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, token.IDENT, tokens[0].Kind)
	require.Equal(t, "orders", tokens[0].Lexeme)
}

func TestTokenizeUnrecognizedCharacterErrors(t *testing.T) {
	_, err := lexer.Tokenize("~", nil, lexer.Options{})
	require.Error(t, err)
}

func TestTokenizeSuppressesWhitespaceAndCommentsByDefault(t *testing.T) {
	tokens, err := lexer.Tokenize("a // a comment\nb", nil, lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.IDENT, token.IDENT, token.EOF}, kinds(t, tokens))
}

func TestTokenizeEmitsWhitespaceAndCommentsWhenRequested(t *testing.T) {
	tokens, err := lexer.Tokenize("a // c\nb", nil, lexer.Options{EmitWhitespace: true, EmitComments: true})
	require.NoError(t, err)
	require.Equal(t, []token.Kind{
		token.IDENT, token.WHITESPACE, token.COMMENT, token.WHITESPACE, token.IDENT, token.EOF,
	}, kinds(t, tokens))
}

func TestTokenizeNilLegendStillLexesStructurally(t *testing.T) {
	tokens, err := lexer.Tokenize("*3[users]::name>>oQ", nil, lexer.Options{})
	require.NoError(t, err)
	require.Equal(t, token.FUNCTION_SYMBOL, tokens[0].Kind)
	require.Empty(t, tokens[0].SemanticMeaning) // no legend to resolve it against
}
