// Package safety enforces guardrails over a parsed query before it ever
// reaches an adapter: a read-only switch, a WHERE-clause requirement on
// UPDATE/DELETE, and forbidden-table/forbidden-column denylists. The
// resource ceilings, RequireLimitClause and MaxJoins fields are carried on
// a Policy but Validate does not check them. It never rewrites a query,
// only accepts or rejects it.
package safety

import (
	"strings"

	"github.com/saiql-project/saiql-go/pkg/ast"
	"github.com/saiql-project/saiql-go/pkg/saiqlerr"
)

// Policy configures the guardrails applied to every query before execution.
type Policy struct {
	Name string

	// Resource limits.
	MaxRowsScanned     int
	MaxRowsReturned    int
	MaxExecutionTimeMS int
	MaxMemoryMB        int

	// Query constraints.
	RequireWhereClause bool // scoped to UPDATE/DELETE, see Validate
	RequireLimitClause bool
	MaxJoins           int

	// Denylists, matched case-insensitively.
	ForbiddenTables  map[string]struct{}
	ForbiddenColumns map[string]struct{}
	ReadOnly         bool

	AllowIntrospection bool
}

// Default mirrors SafetyPolicy's dataclass defaults: permissive resource
// ceilings, a WHERE-clause requirement, and no denylists.
func Default() Policy {
	return Policy{
		Name:               "custom",
		MaxRowsScanned:     100000,
		MaxRowsReturned:    1000,
		MaxExecutionTimeMS: 5000,
		MaxMemoryMB:        512,
		RequireWhereClause: true,
		MaxJoins:           3,
	}
}

// Strict is the preset for production/untrusted input: small result caps,
// mandatory WHERE and LIMIT, read-only.
func Strict() Policy {
	p := Default()
	p.Name = "strict"
	p.MaxRowsReturned = 100
	p.RequireWhereClause = true
	p.RequireLimitClause = true
	p.ReadOnly = true
	return p
}

// Development relaxes the defaults for local/dev use.
func Development() Policy {
	p := Default()
	p.Name = "development"
	p.MaxRowsScanned = 1000000
	p.MaxRowsReturned = 10000
	p.RequireWhereClause = false
	p.ReadOnly = false
	return p
}

var readOnlyKinds = map[ast.QueryKind]struct{}{
	ast.KindSelect:    {},
	ast.KindJoin:      {},
	ast.KindAggregate: {},
	ast.KindUnknown:   {}, // fail open on an unclassified kind, not fail closed
}

// Validate checks q against p, returning a *saiqlerr.Error tagged
// CodeSafetyViolation on the first violation found.
func (p Policy) Validate(q *ast.QueryNode) error {
	if p.ReadOnly {
		if _, ok := readOnlyKinds[q.Kind]; !ok {
			return saiqlerr.NewSafetyViolation(
				"write operation '" + string(q.Kind) + "' forbidden by read-only policy",
			).WithPhase("security_guard")
		}
	}

	if p.RequireWhereClause && (q.Kind == ast.KindUpdate || q.Kind == ast.KindDelete) {
		if len(q.Conditions) == 0 {
			return saiqlerr.NewSafetyViolation(
				string(q.Kind) + " requires WHERE clause under current safety policy",
			).WithPhase("security_guard")
		}
	}

	if len(p.ForbiddenTables) > 0 {
		for table := range extractTables(q) {
			if _, blocked := p.ForbiddenTables[strings.ToLower(table)]; blocked {
				return saiqlerr.NewSafetyViolation(
					"access to table '" + table + "' is forbidden by policy",
				).WithPhase("security_guard")
			}
		}
	}

	if len(p.ForbiddenColumns) > 0 {
		for column := range extractColumns(q) {
			if _, blocked := p.ForbiddenColumns[strings.ToLower(column)]; blocked {
				return saiqlerr.NewSafetyViolation(
					"access to column '" + column + "' is forbidden by policy",
				).WithPhase("security_guard")
			}
		}
	}

	return nil
}

// extractTables walks q's target and join shape, collecting every table
// name referenced.
func extractTables(q *ast.QueryNode) map[string]struct{} {
	tables := map[string]struct{}{}

	if q.Target != nil {
		for _, t := range q.Target.Tables {
			tables[t.Name] = struct{}{}
		}
	}
	if jn, ok := q.Operation.(*ast.JoinNode); ok {
		if jn.Left != nil {
			tables[jn.Left.Name] = struct{}{}
		}
		if jn.Right != nil {
			tables[jn.Right.Name] = struct{}{}
		}
	}
	if sn, ok := q.Operation.(*ast.SchemaNode); ok && sn.Target != nil {
		tables[sn.Target.Name] = struct{}{}
	}

	return tables
}

// extractColumns walks every column-bearing position in q: the projection
// list, every condition (including nested binary expressions and
// function-call args), and a join's ON clause.
func extractColumns(q *ast.QueryNode) map[string]struct{} {
	columns := map[string]struct{}{}

	if q.Columns != nil {
		for _, c := range q.Columns.Columns {
			columns[c.Column] = struct{}{}
		}
	}
	for _, cond := range q.Conditions {
		walkColumns(cond, columns)
	}
	if fc, ok := q.Operation.(*ast.FunctionCallNode); ok {
		for _, a := range fc.Args {
			walkColumns(a, columns)
		}
	}
	if jn, ok := q.Operation.(*ast.JoinNode); ok {
		walkColumns(jn.Condition, columns)
	}

	return columns
}

func walkColumns(n ast.Node, out map[string]struct{}) {
	switch v := n.(type) {
	case *ast.ColumnRefNode:
		out[v.Column] = struct{}{}
	case *ast.BinaryOpNode:
		walkColumns(v.Left, out)
		walkColumns(v.Right, out)
	}
}
