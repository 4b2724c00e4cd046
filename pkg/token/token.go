// Package token defines the lexical token kinds produced by pkg/lexer.
package token

import "fmt"

// Kind classifies a single token produced by the lexer.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	// Identifiers and literals
	IDENT
	STRING
	NUMBER

	// Structural separators
	NAMESPACE_SEP // ::
	OUTPUT_OP     // >>
	WILDCARD      // bare *
	CONTAINER_OPEN
	CONTAINER_CLOSE
	BLOCK_OPEN
	BLOCK_CLOSE
	PARAM_OPEN
	PARAM_CLOSE
	COMMA

	// Operators. PLUS is deliberately overloaded: the parser resolves
	// whether a given '+' is the additive operator or the '+'-joined
	// target-list separator ('users+orders') from grammar position.
	ASSIGN    // =
	EQ        // ==
	STRICT_EQ // ===
	NOT_EQ    // !=
	LT        // <
	GT        // >
	LTE       // <=
	GTE       // >=
	PLUS      // +
	PLUSPLUS  // ++
	MINUS     // -
	SLASH     // /

	// Legend-driven families
	FUNCTION_SYMBOL // *3, *COUNT, *SUM ...
	JOIN_SYMBOL     // =J, =L, =R, =F, =C, =S, =N, =U
	SCHEMA_OP       // @1, @2 ...
	TRANSACTION_OP  // $1, $2 ...
	CONSTRAINT_OP   // !1, !2 ...
	INDEX_OP        // #, ##
	DATA_TYPE       // o, oQ, oo ...

	COMMENT
	WHITESPACE
)

var names = map[Kind]string{
	ILLEGAL:         "ILLEGAL",
	EOF:             "EOF",
	IDENT:           "IDENT",
	STRING:          "STRING",
	NUMBER:          "NUMBER",
	NAMESPACE_SEP:   "NAMESPACE_SEP",
	OUTPUT_OP:       "OUTPUT_OP",
	WILDCARD:        "WILDCARD",
	CONTAINER_OPEN:  "CONTAINER_OPEN",
	CONTAINER_CLOSE: "CONTAINER_CLOSE",
	BLOCK_OPEN:      "BLOCK_OPEN",
	BLOCK_CLOSE:     "BLOCK_CLOSE",
	PARAM_OPEN:      "PARAM_OPEN",
	PARAM_CLOSE:     "PARAM_CLOSE",
	COMMA:           "COMMA",
	ASSIGN:          "ASSIGN",
	EQ:              "EQ",
	STRICT_EQ:       "STRICT_EQ",
	NOT_EQ:          "NOT_EQ",
	LT:              "LT",
	GT:              "GT",
	LTE:             "LTE",
	GTE:             "GTE",
	PLUS:            "PLUS",
	PLUSPLUS:        "PLUSPLUS",
	MINUS:           "MINUS",
	SLASH:           "SLASH",
	FUNCTION_SYMBOL: "FUNCTION_SYMBOL",
	JOIN_SYMBOL:     "JOIN_SYMBOL",
	SCHEMA_OP:       "SCHEMA_OP",
	TRANSACTION_OP:  "TRANSACTION_OP",
	CONSTRAINT_OP:   "CONSTRAINT_OP",
	INDEX_OP:        "INDEX_OP",
	DATA_TYPE:       "DATA_TYPE",
	COMMENT:         "COMMENT",
	WHITESPACE:      "WHITESPACE",
}

// String returns the canonical name of a token kind.
func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Position locates a token within the source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Token is an immutable classified lexeme.
type Token struct {
	Kind     Kind
	Lexeme   string
	Position Position
	Length   int

	// Populated only for tokens recognized against the Legend.
	SymbolFamily   string
	SemanticMeaning string
	DialectHint    string
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Kind, t.Lexeme, t.Position.Line, t.Position.Column)
}
