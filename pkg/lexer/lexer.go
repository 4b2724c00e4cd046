// Package lexer tokenizes SAIQL source text into a classified token stream,
// using the Legend to recognize symbolic operation families.
//
// Recognition order per position, stopping at the first match: whitespace,
// comments, multi-character operators, single-character structural tokens,
// legend symbols (longest match), string literals, numeric literals,
// identifiers.
package lexer

import (
	"strings"
	"unicode"

	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/saiqlerr"
	"github.com/saiql-project/saiql-go/pkg/token"
)

// Options control whitespace/comment emission; both default to suppressed.
type Options struct {
	EmitWhitespace bool
	EmitComments   bool
}

// Lexer performs lexical analysis over a single SAIQL source string.
type Lexer struct {
	src    string
	legend *legend.Legend
	opts   Options

	pos    int
	line   int
	column int
}

// New constructs a Lexer over input using lg for symbol recognition. A nil
// lg is treated as an empty legend: legend-driven tokens simply never
// match, and lexing proceeds using the structural grammar alone.
func New(input string, lg *legend.Legend, opts Options) *Lexer {
	if lg == nil {
		lg = legend.Empty()
	}
	return &Lexer{src: input, legend: lg, opts: opts, pos: 0, line: 1, column: 1}
}

var multiCharOps = []struct {
	lexeme string
	kind   token.Kind
}{
	{"::", token.NAMESPACE_SEP},
	{">>", token.OUTPUT_OP},
	{"===", token.STRICT_EQ},
	{"==", token.EQ},
	{"!=", token.NOT_EQ},
	{"<=", token.LTE},
	{">=", token.GTE},
	{"++", token.PLUSPLUS},
	{"=J", token.JOIN_SYMBOL},
	{"=L", token.JOIN_SYMBOL},
	{"=R", token.JOIN_SYMBOL},
	{"=F", token.JOIN_SYMBOL},
	{"=C", token.JOIN_SYMBOL},
	{"=S", token.JOIN_SYMBOL},
	{"=N", token.JOIN_SYMBOL},
	{"=U", token.JOIN_SYMBOL},
}

// structuralOps covers the spec's single-character structural tokens
// (brackets, braces, parens, comma, <, >, =) plus '+'/'-'/'/' , which have
// no multi-character form left to try once lexMultiCharOperator has
// failed. '+' is deliberately context-free here: the parser, not the
// lexer, decides whether a given '+' is the additive operator or the
// target-list separator ('users+orders').
var structuralOps = map[byte]token.Kind{
	'[': token.CONTAINER_OPEN,
	']': token.CONTAINER_CLOSE,
	'{': token.BLOCK_OPEN,
	'}': token.BLOCK_CLOSE,
	'(': token.PARAM_OPEN,
	')': token.PARAM_CLOSE,
	',': token.COMMA,
	'<': token.LT,
	'>': token.GT,
	'=': token.ASSIGN,
	'+': token.PLUS,
	'-': token.MINUS,
	'/': token.SLASH,
}

// Tokenize runs the lexer to completion, returning every token including a
// terminating EOF, or the first LexError encountered (lexing does not
// recover from a failure).
func Tokenize(input string, lg *legend.Legend, opts Options) ([]token.Token, error) {
	l := New(input, lg, opts)
	var out []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

func (l *Lexer) here() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.pos++
	}
}

func (l *Lexer) rest() string { return l.src[l.pos:] }

func (l *Lexer) peekByte(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// Next returns the next token, or a LexError if the next character cannot
// be classified by any recognition rule.
func (l *Lexer) Next() (token.Token, error) {
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Position: l.here()}, nil
	}

	if tok, ok := l.lexWhitespace(); ok {
		if l.opts.EmitWhitespace {
			return tok, nil
		}
		return l.Next()
	}

	if tok, ok := l.lexComment(); ok {
		if l.opts.EmitComments {
			return tok, nil
		}
		return l.Next()
	}

	if tok, ok := l.lexMultiCharOperator(); ok {
		return tok, nil
	}

	if tok, ok := l.lexStructural(); ok {
		return tok, nil
	}

	if tok, ok := l.lexWildcard(); ok {
		return tok, nil
	}

	if tok, ok := l.lexFunctionSymbol(); ok {
		return tok, nil
	}

	if tok, ok, err := l.lexLegendSymbol(); err != nil {
		return token.Token{}, err
	} else if ok {
		return tok, nil
	}

	if tok, ok, err := l.lexString(); err != nil {
		return token.Token{}, err
	} else if ok {
		return tok, nil
	}

	if tok, ok := l.lexNumber(); ok {
		return tok, nil
	}

	if tok, ok := l.lexIdentifier(); ok {
		return tok, nil
	}

	pos := l.here()
	return token.Token{}, saiqlerr.NewSyntaxError(
		"unrecognized character '"+string(l.src[l.pos])+"'", pos,
	).WithPhase("lexical_analysis")
}

func (l *Lexer) lexWhitespace() (token.Token, bool) {
	start := l.pos
	pos := l.here()
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.advance(1)
	}
	if l.pos == start {
		return token.Token{}, false
	}
	return token.Token{Kind: token.WHITESPACE, Lexeme: l.src[start:l.pos], Position: pos, Length: l.pos - start}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func (l *Lexer) lexComment() (token.Token, bool) {
	if !strings.HasPrefix(l.rest(), "//") {
		return token.Token{}, false
	}
	start := l.pos
	pos := l.here()
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance(1)
	}
	return token.Token{Kind: token.COMMENT, Lexeme: l.src[start:l.pos], Position: pos, Length: l.pos - start}, true
}

func (l *Lexer) lexMultiCharOperator() (token.Token, bool) {
	rest := l.rest()
	for _, op := range multiCharOps {
		if strings.HasPrefix(rest, op.lexeme) {
			pos := l.here()
			l.advance(len(op.lexeme))
			return token.Token{Kind: op.kind, Lexeme: op.lexeme, Position: pos, Length: len(op.lexeme)}, true
		}
	}
	return token.Token{}, false
}

func (l *Lexer) lexStructural() (token.Token, bool) {
	b := l.src[l.pos]
	kind, ok := structuralOps[b]
	if !ok {
		return token.Token{}, false
	}
	pos := l.here()
	l.advance(1)
	return token.Token{Kind: kind, Lexeme: string(b), Position: pos, Length: 1}, true
}

// lexWildcard recognizes a standalone '*' not followed by an alphanumeric.
func (l *Lexer) lexWildcard() (token.Token, bool) {
	if l.src[l.pos] != '*' {
		return token.Token{}, false
	}
	if isAlnum(l.peekByte(1)) {
		return token.Token{}, false // handled by lexFunctionSymbol
	}
	pos := l.here()
	l.advance(1)
	return token.Token{Kind: token.WILDCARD, Lexeme: "*", Position: pos, Length: 1}, true
}

// lexFunctionSymbol consumes a '*'-prefixed lexeme by maximal munch of
// identifier-continuation characters, per spec: "*-prefixed lexemes are
// function symbols" whenever '*' is followed by an alphanumeric. Legend
// metadata is attached on a best-effort basis; an unrecognized function
// symbol still lexes successfully (existence is validated later by the
// semantic analyzer, not the lexer).
func (l *Lexer) lexFunctionSymbol() (token.Token, bool) {
	if l.src[l.pos] != '*' || !isAlnum(l.peekByte(1)) {
		return token.Token{}, false
	}
	pos := l.here()
	start := l.pos
	i := l.pos + 1
	for i < len(l.src) && isIdentPart(l.src[i]) {
		i++
	}
	lexeme := l.src[start:i]
	l.advance(i - start)

	tok := token.Token{Kind: token.FUNCTION_SYMBOL, Lexeme: lexeme, Position: pos, Length: i - start}
	if data, family, ok := l.legend.Lookup(lexeme); ok {
		tok.SymbolFamily = family
		tok.SemanticMeaning = data.Semantic
		tok.DialectHint = data.SQLHint
	}
	return tok, true
}

// wordBoundaryAfter rejects a match of an alphanumeric-led legend symbol
// (e.g. "o", "oQ") when it is immediately followed by another identifier
// character, so legend symbols never shadow the leading letters of an
// ordinary table or column identifier (e.g. "orders").
func wordBoundaryAfter(sym string, next byte, hasNext bool) bool {
	if len(sym) == 0 || !isIdentStart(sym[0]) {
		return true
	}
	return !hasNext || !isIdentPart(next)
}

func (l *Lexer) lexLegendSymbol() (token.Token, bool, error) {
	sym, data, family, ok := l.legend.MatchPrefixFunc(l.rest(), wordBoundaryAfter)
	if !ok {
		return token.Token{}, false, nil
	}
	pos := l.here()
	l.advance(len(sym))
	kind := legendFamilyKind(family, sym)
	return token.Token{
		Kind:            kind,
		Lexeme:          sym,
		Position:        pos,
		Length:          len(sym),
		SymbolFamily:    family,
		SemanticMeaning: data.Semantic,
		DialectHint:     data.SQLHint,
	}, true, nil
}

// legendFamilyKind maps a matched legend symbol to its token kind by the
// symbol's leading character ('@', '$', '!', '#', 'o'); the family name is
// not consulted, and any other symbol falls back to FUNCTION_SYMBOL.
// Leading '*' symbols never reach here — lexFunctionSymbol/lexWildcard
// handle them.
func legendFamilyKind(family, sym string) token.Kind {
	switch {
	case strings.HasPrefix(sym, "@"):
		return token.SCHEMA_OP
	case strings.HasPrefix(sym, "$"):
		return token.TRANSACTION_OP
	case strings.HasPrefix(sym, "!"):
		return token.CONSTRAINT_OP
	case strings.HasPrefix(sym, "#"):
		return token.INDEX_OP
	case strings.HasPrefix(sym, "o"):
		return token.DATA_TYPE
	default:
		return token.FUNCTION_SYMBOL
	}
}

func (l *Lexer) lexString() (token.Token, bool, error) {
	quote := l.src[l.pos]
	if quote != '\'' && quote != '"' {
		return token.Token{}, false, nil
	}
	pos := l.here()
	start := l.pos
	l.advance(1)

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, false, saiqlerr.NewSyntaxError(
				"unterminated string literal", pos,
			).WithPhase("lexical_analysis")
		}
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			sb.WriteByte(unescape(l.src[l.pos+1]))
			l.advance(2)
			continue
		}
		if c == quote {
			l.advance(1)
			break
		}
		sb.WriteByte(c)
		l.advance(1)
	}

	return token.Token{
		Kind:     token.STRING,
		Lexeme:   sb.String(),
		Position: pos,
		Length:   l.pos - start,
	}, true, nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

// lexNumber recognizes unsigned numeric literals only: '+'/'-' are always
// taken by lexStructural first, so a signed literal reaches the parser as
// two tokens (PLUS|MINUS, NUMBER) and is folded back together there. This
// keeps '+' context-free at the lexer level (see structuralOps).
func (l *Lexer) lexNumber() (token.Token, bool) {
	start := l.pos
	pos := l.here()
	i := l.pos

	if i >= len(l.src) || !isDigit(l.src[i]) {
		return token.Token{}, false
	}
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}
	if i < len(l.src) && l.src[i] == '.' && i+1 < len(l.src) && isDigit(l.src[i+1]) {
		i++
		for i < len(l.src) && isDigit(l.src[i]) {
			i++
		}
	}

	l.advance(i - start)
	return token.Token{Kind: token.NUMBER, Lexeme: l.src[start:i], Position: pos, Length: i - start}, true
}

func (l *Lexer) lexIdentifier() (token.Token, bool) {
	start := l.pos
	pos := l.here()
	if !isIdentStart(l.src[l.pos]) {
		return token.Token{}, false
	}
	i := l.pos + 1
	for i < len(l.src) && isIdentPart(l.src[i]) {
		i++
	}
	l.advance(i - start)
	return token.Token{Kind: token.IDENT, Lexeme: l.src[start:i], Position: pos, Length: i - start}, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlnum(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || unicode.IsLetter(rune(b))
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b) || b == '.' || b == ','
}
