// Package semantic walks a parsed AST, records the query's target tables
// in a single flat Scope, and validates legend references, identifier
// shape, and binary operand types. There is no stack of nested scopes and
// no general symbol type. It never mutates the AST — that is the
// optimizer's job.
package semantic

import (
	"fmt"
	"strings"

	"github.com/saiql-project/saiql-go/pkg/ast"
	"github.com/saiql-project/saiql-go/pkg/legend"
)

// Diagnostic is a single semantic finding, either an error (blocks
// compilation) or a warning (surfaced but non-fatal).
type Diagnostic struct {
	Type    string // FUNCTION_SYMBOL_UNKNOWN, INVALID_IDENTIFIER, TYPE_MISMATCH, ...
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Type, d.Message)
}

// Scope is a flat symbol table entry: every table named in a query's
// target, keyed by alias-or-name for column resolution.
type Scope struct {
	Tables map[string]*ast.TableRefNode
}

func newScope() *Scope {
	return &Scope{Tables: map[string]*ast.TableRefNode{}}
}

func (s *Scope) register(t *ast.TableRefNode) {
	key := t.Alias
	if key == "" {
		key = t.Name
	}
	s.Tables[key] = t
}

// Analyzer validates a query AST against an optional Legend.
type Analyzer struct {
	legend *legend.Legend
}

// New constructs an Analyzer. A nil legend disables legend-membership
// checks for function symbols (per spec: checked "when a Legend is
// available").
func New(lg *legend.Legend) *Analyzer {
	return &Analyzer{legend: lg}
}

// Result is the (errors, warnings) pair the spec requires.
type Result struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Scope    *Scope
}

// OK reports whether compilation may proceed (no errors, regardless of
// warnings).
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Analyze walks q and returns its diagnostics.
func (a *Analyzer) Analyze(q *ast.QueryNode) Result {
	scope := newScope()
	if q.Target != nil {
		for _, t := range q.Target.Tables {
			scope.register(t)
		}
	}

	res := Result{Scope: scope}
	// Conditions are a filtered view over the operation's own Args (see
	// pkg/parser's attachArgs), so walking Args here already covers every
	// condition; no separate pass over q.Conditions is needed.
	a.checkOperation(q, &res)
	a.checkTarget(q, &res)
	a.checkColumns(q, &res)
	if jn, ok := q.Operation.(*ast.JoinNode); ok && jn.Condition != nil {
		a.checkExpr(jn.Condition, &res)
	}
	return res
}

func (a *Analyzer) checkOperation(q *ast.QueryNode, res *Result) {
	fc, ok := q.Operation.(*ast.FunctionCallNode)
	if !ok {
		return
	}
	if a.legend == nil || a.legend.Len() == 0 {
		return
	}
	if _, _, ok := a.legend.Lookup(fc.Symbol); !ok {
		res.Errors = append(res.Errors, Diagnostic{
			Type:    "FUNCTION_SYMBOL_UNKNOWN",
			Message: fmt.Sprintf("function symbol %q is not present in the loaded legend", fc.Symbol),
		})
	}
	for _, arg := range fc.Args {
		a.checkExpr(arg, res)
	}
}

func (a *Analyzer) checkTarget(q *ast.QueryNode, res *Result) {
	if q.Target == nil {
		return
	}
	for _, t := range q.Target.Tables {
		if t.Schema != "" {
			if err := a.validateIdentifier(t.Schema); err != "" {
				res.Errors = append(res.Errors, Diagnostic{Type: "INVALID_IDENTIFIER", Message: err})
			}
		}
		if err := a.validateIdentifier(t.Name); err != "" {
			res.Errors = append(res.Errors, Diagnostic{Type: "INVALID_IDENTIFIER", Message: err})
		}
	}
}

func (a *Analyzer) checkColumns(q *ast.QueryNode, res *Result) {
	if q.Columns == nil || q.Columns.Wildcard {
		return
	}
	for _, c := range q.Columns.Columns {
		if c.Table != "" {
			if err := a.validateIdentifier(c.Table); err != "" {
				res.Errors = append(res.Errors, Diagnostic{Type: "INVALID_IDENTIFIER", Message: err})
			}
		}
		if err := a.validateIdentifier(c.Column); err != "" {
			res.Errors = append(res.Errors, Diagnostic{Type: "INVALID_IDENTIFIER", Message: err})
		}
	}
}

func (a *Analyzer) checkExpr(n ast.Node, res *Result) {
	switch e := n.(type) {
	case *ast.BinaryOpNode:
		a.checkExpr(e.Left, res)
		a.checkExpr(e.Right, res)
		a.checkOperandTypes(e, res)
	case *ast.ColumnRefNode:
		if e.Table != "" {
			if err := a.validateIdentifier(e.Table); err != "" {
				res.Errors = append(res.Errors, Diagnostic{Type: "INVALID_IDENTIFIER", Message: err})
			}
		}
		if err := a.validateIdentifier(e.Column); err != "" {
			res.Errors = append(res.Errors, Diagnostic{Type: "INVALID_IDENTIFIER", Message: err})
		}
	}
}

// checkOperandTypes enforces: arithmetic requires numeric operands;
// equality warns (not errors) on mismatched concrete literal types.
func (a *Analyzer) checkOperandTypes(b *ast.BinaryOpNode, res *Result) {
	leftLit, leftOK := b.Left.(*ast.LiteralNode)
	rightLit, rightOK := b.Right.(*ast.LiteralNode)
	if !leftOK || !rightOK {
		return // one side is a column reference; type is unknown until execution
	}

	switch b.Operator {
	case "+", "++", "-", "*", "/":
		if !isNumeric(leftLit.Kind) || !isNumeric(rightLit.Kind) {
			res.Errors = append(res.Errors, Diagnostic{
				Type:    "TYPE_MISMATCH",
				Message: fmt.Sprintf("arithmetic operator %q requires numeric operands, got %s and %s", b.Operator, leftLit.Kind, rightLit.Kind),
			})
		}
	case "==", "===", "!=":
		if leftLit.Kind != rightLit.Kind {
			res.Warnings = append(res.Warnings, Diagnostic{
				Type:    "TYPE_MISMATCH",
				Message: fmt.Sprintf("comparing %s to %s with %q", leftLit.Kind, rightLit.Kind, b.Operator),
			})
		}
	}
}

func isNumeric(k ast.LiteralKind) bool {
	return k == ast.LiteralInt || k == ast.LiteralFloat
}

// validateIdentifier checks a (possibly dotted) identifier: every
// segment must be non-empty and match [A-Za-z_][A-Za-z0-9_]*. Returns a
// descriptive message, or "" if valid.
func (a *Analyzer) validateIdentifier(ident string) string {
	segments := strings.Split(ident, ".")
	for _, seg := range segments {
		if seg == "" {
			return fmt.Sprintf("identifier %q has an empty dotted segment", ident)
		}
		if !isIdentShape(seg) {
			return fmt.Sprintf("identifier %q has invalid segment %q", ident, seg)
		}
	}
	return ""
}

func isIdentShape(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if i == 0 {
			if !isLetter {
				return false
			}
			continue
		}
		if !isLetter && !isDigit {
			return false
		}
	}
	return len(s) > 0
}
