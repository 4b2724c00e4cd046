// Package parser builds an AST from a SAIQL token stream using recursive
// descent that inspects only the current token. Grammar, informally:
//
//	query     := operation target? args? columns? output?
//	operation := FUNCTION_SYMBOL | JOIN_SYMBOL | SCHEMA_OP | TRANSACTION_OP
//	target    := '[' table_ref ('+' table_ref)* ']'
//	args      := '(' expr (',' expr)* ')'
//	columns   := '::' ('*' | column_ref*)
//	output    := '>>' symbol
//	expr      := additive (comparison_op additive)*
//	additive  := multiplicative (('+' | '++' | '-') multiplicative)*
//	multiplicative := primary ('/' primary)*
//
// A function symbol's parenthesized args are the grammar's only condition
// syntax: any top-level comparison among them is surfaced onto the query's
// Conditions list in source order (see DESIGN.md).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saiql-project/saiql-go/pkg/ast"
	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/lexer"
	"github.com/saiql-project/saiql-go/pkg/saiqlerr"
	"github.com/saiql-project/saiql-go/pkg/token"
)

// Parser consumes a fixed token slice produced by the lexer.
type Parser struct {
	tokens []token.Token
	pos    int

	// pendingFragments holds comma-fragments left over from an IDENT token
	// already consumed from the real stream (the lexer's comma-fragmentation
	// hazard: isIdentPart treats ',' as an identifier-continuation byte, so
	// "name,email" lexes as a single IDENT that the parser must re-split).
	pendingFragments []string
	pendingPos       token.Position
}

// New constructs a Parser over an already-lexed token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse lexes src with lg and parses the resulting stream into a query AST.
func Parse(src string, lg *legend.Legend) (*ast.QueryNode, error) {
	toks, err := lexer.Tokenize(src, lg, lexer.Options{})
	if err != nil {
		return nil, err
	}
	return New(toks).ParseQuery()
}

func (p *Parser) cur() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur().Kind != k {
		return token.Token{}, syntaxErrorf(p.cur(), "expected %s, got %s %q", k, p.cur().Kind, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func syntaxErrorf(tok token.Token, format string, args ...any) error {
	return saiqlerr.NewSyntaxError(fmt.Sprintf(format, args...), tok.Position).WithPhase("parsing")
}

// ParseQuery parses a complete query from the current position to EOF.
func (p *Parser) ParseQuery() (*ast.QueryNode, error) {
	q := ast.NewQueryNode(p.cur().Position)

	op, err := p.parseOperation(q)
	if err != nil {
		return nil, err
	}
	q.Operation = op

	if p.cur().Kind == token.CONTAINER_OPEN {
		target, err := p.parseTarget()
		if err != nil {
			return nil, err
		}
		q.Target = target

		switch n := q.Operation.(type) {
		case *ast.JoinNode:
			if len(target.Tables) != 2 {
				return nil, syntaxErrorf(p.cur(), "join target must name exactly two tables, got %d", len(target.Tables))
			}
			n.Left, n.Right = target.Tables[0], target.Tables[1]
		case *ast.SchemaNode:
			if len(target.Tables) > 0 {
				n.Target = target.Tables[0]
			}
		}
	}

	// The parenthesized argument list — the grammar's only condition
	// syntax — follows the target, e.g. "*3[users](age>18)::name>>oQ".
	if p.cur().Kind == token.PARAM_OPEN {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		if err := attachArgs(q, args); err != nil {
			return nil, err
		}
	}

	if p.cur().Kind == token.NAMESPACE_SEP {
		p.advance()
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		q.Columns = cols
	}

	if p.cur().Kind == token.OUTPUT_OP {
		p.advance()
		out := p.cur()
		switch out.Kind {
		case token.DATA_TYPE, token.IDENT, token.FUNCTION_SYMBOL:
			p.advance()
			q.Output = out.Lexeme
		default:
			return nil, syntaxErrorf(out, "expected an output symbol after '>>', got %s", out.Kind)
		}
	}

	if !p.atEOF() {
		return nil, syntaxErrorf(p.cur(), "unexpected trailing token %s %q", p.cur().Kind, p.cur().Lexeme)
	}
	return q, nil
}

func (p *Parser) parseOperation(q *ast.QueryNode) (ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.FUNCTION_SYMBOL:
		p.advance()
		fc := &ast.FunctionCallNode{
			Metadata: ast.Metadata{Position: tok.Position},
			Symbol:   tok.Lexeme,
			Name:     strings.ToUpper(tok.SemanticMeaning),
		}
		q.Kind = classifyFunction(fc.Name)
		return fc, nil

	case token.JOIN_SYMBOL:
		p.advance()
		jn := &ast.JoinNode{
			Metadata: ast.Metadata{Position: tok.Position},
			JoinKind: joinKindFromSymbol(tok.Lexeme),
		}
		q.Kind = ast.KindJoin
		return jn, nil

	case token.SCHEMA_OP:
		p.advance()
		sn := &ast.SchemaNode{
			Metadata: ast.Metadata{Position: tok.Position},
			Op:       orElse(tok.SemanticMeaning, tok.Lexeme),
		}
		q.Kind = ast.KindSchema
		return sn, nil

	case token.TRANSACTION_OP:
		p.advance()
		tn := &ast.TransactionNode{
			Metadata: ast.Metadata{Position: tok.Position},
			Op:       orElse(tok.SemanticMeaning, tok.Lexeme),
		}
		q.Kind = ast.KindTransaction
		return tn, nil

	default:
		return nil, syntaxErrorf(tok, "expected an operation symbol, got %s %q", tok.Kind, tok.Lexeme)
	}
}

// attachArgs routes a parsed argument list to the operation node it
// qualifies: a function call's args become its Args plus any top-level
// comparison surfaced onto the query's Conditions, a join's first arg
// becomes its Condition, and a schema op's args become named Details.
func attachArgs(q *ast.QueryNode, args []ast.Node) error {
	switch n := q.Operation.(type) {
	case *ast.FunctionCallNode:
		n.Args = args
		for _, a := range args {
			if bo, ok := a.(*ast.BinaryOpNode); ok && isComparisonOp(bo.Operator) {
				q.Conditions = append(q.Conditions, bo)
			}
		}
	case *ast.JoinNode:
		if len(args) > 0 {
			n.Condition = args[0]
		}
	case *ast.SchemaNode:
		if len(args) > 0 {
			n.Details = map[string]any{}
			for i, a := range args {
				n.Details[fmt.Sprintf("arg%d", i)] = a
			}
		}
	case *ast.TransactionNode:
		return saiqlerr.NewSyntaxError("transaction operations do not accept arguments", n.Pos()).WithPhase("parsing")
	}
	return nil
}

func orElse(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func classifyFunction(name string) ast.QueryKind {
	switch name {
	case "SELECT":
		return ast.KindSelect
	case "COUNT", "SUM", "AVG", "MIN", "MAX":
		return ast.KindAggregate
	case "UPDATE":
		return ast.KindUpdate
	case "DELETE":
		return ast.KindDelete
	case "INSERT":
		return ast.KindInsert
	default:
		return ast.KindUnknown
	}
}

func joinKindFromSymbol(sym string) string {
	if len(sym) < 2 {
		return "INNER"
	}
	switch sym[1] {
	case 'J':
		return "INNER"
	case 'L':
		return "LEFT"
	case 'R':
		return "RIGHT"
	case 'F':
		return "FULL"
	case 'C':
		return "CROSS"
	case 'S':
		return "SELF"
	case 'N':
		return "NATURAL"
	case 'U':
		return "UNION"
	default:
		return "INNER"
	}
}

func (p *Parser) parseTarget() (*ast.ContainerNode, error) {
	open, err := p.expect(token.CONTAINER_OPEN)
	if err != nil {
		return nil, err
	}
	c := &ast.ContainerNode{Metadata: ast.Metadata{Position: open.Position}}
	for {
		ref, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		c.Tables = append(c.Tables, ref)
		if p.cur().Kind == token.PLUS {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.CONTAINER_CLOSE); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseTableRef() (*ast.TableRefNode, error) {
	frag, pos, ok := p.nextIdentFragment()
	if !ok {
		return nil, syntaxErrorf(p.cur(), "expected a table name in target, got %s %q", p.cur().Kind, p.cur().Lexeme)
	}
	schema, name := "", frag
	if idx := strings.IndexByte(frag, '.'); idx >= 0 {
		schema, name = frag[:idx], frag[idx+1:]
	}
	return &ast.TableRefNode{Metadata: ast.Metadata{Position: pos}, Schema: schema, Name: name}, nil
}

func (p *Parser) parseColumnList() (*ast.ColumnListNode, error) {
	pos := p.cur().Position
	if p.cur().Kind == token.WILDCARD {
		p.advance()
		return &ast.ColumnListNode{Metadata: ast.Metadata{Position: pos}, Wildcard: true}, nil
	}

	// An empty projection ('::' immediately followed by '>>' or EOF, as in
	// "=J[users+orders]::>>oQ") is valid and means "no explicit column
	// list"; the code generator renders it as SELECT *, same as Wildcard.
	cl := &ast.ColumnListNode{Metadata: ast.Metadata{Position: pos}}
	for {
		frag, fpos, ok := p.nextIdentFragment()
		if !ok {
			break
		}
		cl.Columns = append(cl.Columns, columnRefFromFragment(frag, fpos))
	}
	return cl, nil
}

func columnRefFromFragment(frag string, pos token.Position) *ast.ColumnRefNode {
	table, col := "", frag
	if idx := strings.IndexByte(frag, '.'); idx >= 0 {
		table, col = frag[:idx], frag[idx+1:]
	}
	return &ast.ColumnRefNode{Metadata: ast.Metadata{Position: pos}, Table: table, Column: col}
}

// nextIdentFragment returns the next IDENT-derived fragment, draining any
// comma-split remainder from a previously consumed token before reading a
// new one from the real stream.
func (p *Parser) nextIdentFragment() (string, token.Position, bool) {
	if len(p.pendingFragments) > 0 {
		frag := p.pendingFragments[0]
		p.pendingFragments = p.pendingFragments[1:]
		return frag, p.pendingPos, true
	}
	if p.cur().Kind != token.IDENT {
		return "", token.Position{}, false
	}
	tok := p.advance()
	frags := splitFragments(tok.Lexeme)
	if len(frags) == 0 {
		return "", tok.Position, false
	}
	if len(frags) > 1 {
		p.pendingFragments = frags[1:]
		p.pendingPos = tok.Position
	}
	return frags[0], tok.Position, true
}

func splitFragments(lexeme string) []string {
	if lexeme == "" {
		return nil
	}
	parts := strings.Split(lexeme, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (p *Parser) parseArgs() ([]ast.Node, error) {
	if _, err := p.expect(token.PARAM_OPEN); err != nil {
		return nil, err
	}
	var args []ast.Node
	if p.cur().Kind != token.PARAM_CLOSE {
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, expr)
			if p.cur().Kind == token.COMMA {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.PARAM_CLOSE); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseExpr() (ast.Node, error) {
	return p.parseComparison()
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "===", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func isComparisonTok(k token.Kind) bool {
	switch k {
	case token.EQ, token.STRICT_EQ, token.NOT_EQ, token.LT, token.GT, token.LTE, token.GTE:
		return true
	}
	return false
}

func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for isComparisonTok(p.cur().Kind) {
		opTok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOpNode{Metadata: ast.Metadata{Position: opTok.Position}, Left: left, Operator: opTok.Lexeme, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.PLUS || p.cur().Kind == token.PLUSPLUS || p.cur().Kind == token.MINUS {
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOpNode{Metadata: ast.Metadata{Position: opTok.Position}, Left: left, Operator: opTok.Lexeme, Right: right}
	}
	return left, nil
}

// parseMultiplicative handles '/' and, inside an expression, a bare '*'
// (WILDCARD token) as multiplication. The two meanings of '*' never
// collide: a WILDCARD only reaches expression parsing here, while a
// projection-list '*' is consumed separately by parseColumnList.
func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == token.SLASH || p.cur().Kind == token.WILDCARD {
		opTok := p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		op := opTok.Lexeme
		if opTok.Kind == token.WILDCARD {
			op = "*"
		}
		left = &ast.BinaryOpNode{Metadata: ast.Metadata{Position: opTok.Position}, Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.MINUS:
		p.advance()
		n, err := p.expect(token.NUMBER)
		if err != nil {
			return nil, err
		}
		val, kind := parseNumberLiteral(n.Lexeme)
		return &ast.LiteralNode{Metadata: ast.Metadata{Position: tok.Position}, Kind: kind, Value: negate(val)}, nil

	case token.PLUS:
		p.advance()
		return p.parsePrimary()

	case token.NUMBER:
		p.advance()
		val, kind := parseNumberLiteral(tok.Lexeme)
		return &ast.LiteralNode{Metadata: ast.Metadata{Position: tok.Position}, Kind: kind, Value: val}, nil

	case token.STRING:
		p.advance()
		return &ast.LiteralNode{Metadata: ast.Metadata{Position: tok.Position}, Kind: ast.LiteralString, Value: tok.Lexeme}, nil

	case token.IDENT:
		frag, fpos, ok := p.nextIdentFragment()
		if !ok {
			return nil, syntaxErrorf(tok, "expected an identifier in expression")
		}
		switch strings.ToLower(frag) {
		case "null":
			return &ast.LiteralNode{Metadata: ast.Metadata{Position: fpos}, Kind: ast.LiteralNull, Null: true}, nil
		case "true":
			return &ast.LiteralNode{Metadata: ast.Metadata{Position: fpos}, Kind: ast.LiteralBool, Value: true}, nil
		case "false":
			return &ast.LiteralNode{Metadata: ast.Metadata{Position: fpos}, Kind: ast.LiteralBool, Value: false}, nil
		default:
			return columnRefFromFragment(frag, fpos), nil
		}

	case token.PARAM_OPEN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PARAM_CLOSE); err != nil {
			return nil, err
		}
		return inner, nil

	case token.DATA_TYPE, token.FUNCTION_SYMBOL:
		p.advance()
		return &ast.LiteralNode{Metadata: ast.Metadata{Position: tok.Position}, Kind: ast.LiteralString, Value: tok.Lexeme}, nil

	default:
		return nil, syntaxErrorf(tok, "unexpected token %s %q in expression", tok.Kind, tok.Lexeme)
	}
}

func parseNumberLiteral(lexeme string) (any, ast.LiteralKind) {
	if strings.Contains(lexeme, ".") {
		f, _ := strconv.ParseFloat(lexeme, 64)
		return f, ast.LiteralFloat
	}
	i, _ := strconv.ParseInt(lexeme, 10, 64)
	return i, ast.LiteralInt
}

func negate(v any) any {
	switch n := v.(type) {
	case int64:
		return -n
	case float64:
		return -n
	default:
		return v
	}
}
