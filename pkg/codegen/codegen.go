// Package codegen renders a semantically-checked, optionally-optimized
// AST into dialect-specific SQL text. It is the final compiler phase: it
// never validates (that is the semantic analyzer's job) and never
// rewrites (that is the optimizer's), it only emits.
package codegen

import (
	"fmt"
	"strings"

	"github.com/saiql-project/saiql-go/pkg/ast"
	"github.com/saiql-project/saiql-go/pkg/dialect"
	"github.com/saiql-project/saiql-go/pkg/saiqlerr"
)

// aggregateFunctions is the closed set of SAIQL aggregate names the
// generator knows how to render; anything else is a compilation error
// rather than a silent passthrough.
var aggregateFunctions = map[string]string{
	"COUNT": "COUNT",
	"SUM":   "SUM",
	"AVG":   "AVG",
	"MIN":   "MIN",
	"MAX":   "MAX",
}

var transactionStatements = map[string]string{
	"begin":    "BEGIN TRANSACTION",
	"commit":   "COMMIT",
	"rollback": "ROLLBACK",
}

var comparisonOps = map[string]string{
	"==":  "=",
	"===": "=",
	"!=":  "<>",
}

// Generator renders one dialect's SQL from an AST. It is stateless across
// calls and safe to reuse.
type Generator struct {
	d dialect.Dialect
}

// New constructs a Generator targeting d.
func New(d dialect.Dialect) *Generator {
	return &Generator{d: d}
}

// Generate renders q as a single terminated SQL statement.
func (g *Generator) Generate(q *ast.QueryNode) (string, error) {
	var sql string
	var err error

	switch q.Kind {
	case ast.KindSelect, ast.KindUpdate, ast.KindDelete, ast.KindInsert:
		sql, err = g.generateSelectLike(q)
	case ast.KindJoin:
		sql, err = g.generateJoin(q)
	case ast.KindAggregate:
		sql, err = g.generateAggregate(q)
	case ast.KindTransaction:
		sql, err = g.generateTransaction(q)
	default:
		return "", saiqlerr.NewCompilationError(
			fmt.Sprintf("code generation has no rule for query kind %q", q.Kind), nil,
		).WithPhase("code_generation")
	}
	if err != nil {
		return "", err
	}
	return g.format(sql), nil
}

// generateSelectLike covers SELECT and, per the current closed surface,
// UPDATE/DELETE/INSERT are classified but not yet distinguished at emission
// time — their target/column/condition shape is identical to SELECT's.
func (g *Generator) generateSelectLike(q *ast.QueryNode) (string, error) {
	var b strings.Builder

	cols, err := g.columnList(q.Columns)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "SELECT %s", cols)

	if q.Target != nil && len(q.Target.Tables) > 0 {
		fmt.Fprintf(&b, "\nFROM %s", g.tableList(q.Target.Tables))
	}

	where, err := g.whereClause(q.Conditions)
	if err != nil {
		return "", err
	}
	if where != "" {
		fmt.Fprintf(&b, "\n%s", where)
	}

	return b.String(), nil
}

func (g *Generator) generateJoin(q *ast.QueryNode) (string, error) {
	jn, ok := q.Operation.(*ast.JoinNode)
	if !ok {
		return "", saiqlerr.NewCompilationError("join query missing JoinNode operation", nil).WithPhase("code_generation")
	}

	cols, err := g.columnList(q.Columns)
	if err != nil {
		return "", err
	}

	on, err := g.compileCondition(jn.Condition)
	if err != nil {
		return "", err
	}
	if on == "" {
		on = "1=1"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s", cols)
	fmt.Fprintf(&b, "\nFROM %s", g.quoteTable(jn.Left))
	fmt.Fprintf(&b, "\n%s JOIN %s ON %s", sqlJoinKeyword(jn.JoinKind), g.quoteTable(jn.Right), on)
	return b.String(), nil
}

func sqlJoinKeyword(kind string) string {
	switch kind {
	case "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL":
		return kind
	default:
		return "INNER"
	}
}

func (g *Generator) generateAggregate(q *ast.QueryNode) (string, error) {
	fc, ok := q.Operation.(*ast.FunctionCallNode)
	if !ok {
		return "", saiqlerr.NewCompilationError("aggregate query missing FunctionCallNode operation", nil).WithPhase("code_generation")
	}

	sqlFunc, ok := aggregateFunctions[fc.Name]
	if !ok {
		names := make([]string, 0, len(aggregateFunctions))
		for n := range aggregateFunctions {
			names = append(names, n)
		}
		return "", saiqlerr.NewCompilationError(
			fmt.Sprintf("unknown aggregate function %q, supported: %s", fc.Name, strings.Join(names, ", ")),
			nil,
		).WithPhase("code_generation")
	}

	table := "unknown_table"
	if q.Target != nil && len(q.Target.Tables) > 0 {
		table = g.tableList(q.Target.Tables)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s(*)", sqlFunc)
	fmt.Fprintf(&b, "\nFROM %s", table)

	where, err := g.whereClause(q.Conditions)
	if err != nil {
		return "", err
	}
	if where != "" {
		fmt.Fprintf(&b, "\n%s", where)
	}
	return b.String(), nil
}

func (g *Generator) generateTransaction(q *ast.QueryNode) (string, error) {
	tn, ok := q.Operation.(*ast.TransactionNode)
	if !ok {
		return "", saiqlerr.NewCompilationError("transaction query missing TransactionNode operation", nil).WithPhase("code_generation")
	}
	stmt, ok := transactionStatements[tn.Op]
	if !ok {
		stmt = transactionStatements["begin"]
	}
	return stmt, nil
}

func (g *Generator) whereClause(conditions []ast.Node) (string, error) {
	if len(conditions) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conditions))
	for _, c := range conditions {
		s, err := g.compileCondition(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "WHERE " + strings.Join(parts, " AND "), nil
}

// columnList renders a '::' projection: wildcard or empty both mean
// SELECT * (see DESIGN.md's resolution of the empty-projection scenario),
// otherwise a comma-joined, quoted column list.
func (g *Generator) columnList(cl *ast.ColumnListNode) (string, error) {
	if cl == nil || cl.Wildcard || len(cl.Columns) == 0 {
		return "*", nil
	}
	parts := make([]string, 0, len(cl.Columns))
	for _, c := range cl.Columns {
		parts = append(parts, g.quoteColumnRef(c))
	}
	return strings.Join(parts, ", "), nil
}

func (g *Generator) tableList(tables []*ast.TableRefNode) string {
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, g.quoteTable(t))
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) quoteTable(t *ast.TableRefNode) string {
	if t.Schema != "" {
		return g.quoteIdentifier(t.Schema) + "." + g.quoteIdentifier(t.Name)
	}
	return g.quoteIdentifier(t.Name)
}

func (g *Generator) quoteColumnRef(c *ast.ColumnRefNode) string {
	if c.Table != "" {
		return g.quoteIdentifier(c.Table) + "." + g.quoteIdentifier(c.Column)
	}
	return g.quoteIdentifier(c.Column)
}

// quoteIdentifier quotes a possibly dotted identifier segment by segment,
// leaving a bare '*' unquoted.
func (g *Generator) quoteIdentifier(ident string) string {
	if ident == "*" {
		return "*"
	}
	if !strings.Contains(ident, ".") {
		return g.d.QuoteIdentifier(ident)
	}
	segments := strings.Split(ident, ".")
	for i, seg := range segments {
		if seg == "*" {
			continue
		}
		segments[i] = g.d.QuoteIdentifier(seg)
	}
	return strings.Join(segments, ".")
}

// compileCondition renders a condition expression to a SQL fragment. A
// folded BinaryOpNode emits its FoldedValue directly rather than
// re-deriving the arithmetic, honoring the optimizer's work.
func (g *Generator) compileCondition(n ast.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	switch e := n.(type) {
	case *ast.BinaryOpNode:
		if e.Folded {
			return g.literalText(literalKindOf(e.FoldedValue), e.FoldedValue), nil
		}
		left, err := g.compileCondition(e.Left)
		if err != nil {
			return "", err
		}
		right, err := g.compileCondition(e.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, sqlOperator(e.Operator), right), nil
	case *ast.LiteralNode:
		if e.Null {
			return "NULL", nil
		}
		return g.literalText(e.Kind, e.Value), nil
	case *ast.ColumnRefNode:
		return g.quoteColumnRef(e), nil
	default:
		return "", saiqlerr.NewCompilationError(fmt.Sprintf("cannot render %s as a SQL condition", n), nil).WithPhase("code_generation")
	}
}

func sqlOperator(op string) string {
	if mapped, ok := comparisonOps[op]; ok {
		return mapped
	}
	return op
}

func literalKindOf(v any) ast.LiteralKind {
	switch v.(type) {
	case float64:
		return ast.LiteralFloat
	case int64:
		return ast.LiteralInt
	case bool:
		return ast.LiteralBool
	case string:
		return ast.LiteralString
	default:
		return ast.LiteralNull
	}
}

// literalText renders a literal's Go value as SQL text, escaping embedded
// single quotes in strings by doubling them (prevents breaking out of the
// quoted literal).
func (g *Generator) literalText(kind ast.LiteralKind, v any) string {
	switch kind {
	case ast.LiteralString:
		s, _ := v.(string)
		escaped := strings.ReplaceAll(s, "'", "''")
		return "'" + escaped + "'"
	case ast.LiteralBool:
		if b, _ := v.(bool); b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// format applies final touches: trims whitespace and ensures a trailing
// statement terminator.
func (g *Generator) format(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if trimmed != "" && !strings.HasSuffix(trimmed, ";") {
		trimmed += ";"
	}
	return trimmed
}
