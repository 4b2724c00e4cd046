// Package optimizer rewrites a semantically-valid AST in place across three
// escalating levels: Basic folds literal arithmetic and marks the
// dead-code pass as having run, Standard adds join-algorithm hints and a
// selection-pushdown marker, and Aggressive layers additional rewriting on
// top. Each call produces a Report describing what was applied.
package optimizer

import (
	"github.com/saiql-project/saiql-go/pkg/ast"
)

// Level gates which optimization passes run.
type Level int

const (
	LevelNone Level = iota
	LevelBasic
	LevelStandard
	LevelAggressive
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelBasic:
		return "basic"
	case LevelStandard:
		return "standard"
	case LevelAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// TableStats supplies row-count estimates used by the join-algorithm-hint
// pass, keyed by table name (or alias, if a query aliases the table).
// A table absent from the map falls back to defaultRowEstimate, matching
// the original compiler's join.get('left_size', 1000) behavior.
type TableStats map[string]int64

const defaultRowEstimate int64 = 1000

func (s TableStats) sizeOf(name string) int64 {
	if s == nil {
		return defaultRowEstimate
	}
	if n, ok := s[name]; ok {
		return n
	}
	return defaultRowEstimate
}

// Report summarizes what a single Optimize call did.
type Report struct {
	Level              Level
	AppliedTransforms  []string
	OriginalNodeCount  int
	OptimizedNodeCount int
}

// ImprovementRatio mirrors the original compiler's
// original_complexity / max(optimized_complexity, 1): folding and
// dead-code elimination never grow the tree, so a ratio above 1 signals
// nodes were actually removed rather than just annotated.
func (r Report) ImprovementRatio() float64 {
	optimized := r.OptimizedNodeCount
	if optimized < 1 {
		optimized = 1
	}
	return float64(r.OriginalNodeCount) / float64(optimized)
}

// Optimizer applies the level-gated rewrite passes to a query AST.
type Optimizer struct{}

// New constructs an Optimizer. It is stateless; a single instance may be
// reused across queries.
func New() *Optimizer {
	return &Optimizer{}
}

// Optimize rewrites q in place and returns a report of what ran. stats may
// be nil, in which case every join side falls back to defaultRowEstimate.
func (o *Optimizer) Optimize(q *ast.QueryNode, level Level, stats TableStats) *Report {
	report := &Report{Level: level, OriginalNodeCount: countNodes(q)}

	if level >= LevelBasic {
		foldConstants(q, report)
		eliminateDeadCode(q, report)
	}
	if level >= LevelStandard {
		hintJoinAlgorithms(q, stats, report)
		pushDownSelections(q, report)
	}
	if level >= LevelAggressive {
		aggressiveRewrite(q, report)
	}

	report.OptimizedNodeCount = countNodes(q)
	return report
}

// foldConstants recursively folds binary expressions whose operands are
// both literals, storing the result in BinaryOpNode.Folded/FoldedValue
// while leaving Left/Operator/Right intact for passes that still want the
// original shape (see DESIGN.md's resolution of the fold "dual shape").
func foldConstants(q *ast.QueryNode, report *Report) {
	applied := false

	var walk func(n ast.Node) ast.Node
	walk = func(n ast.Node) ast.Node {
		switch v := n.(type) {
		case *ast.BinaryOpNode:
			v.Left = walk(v.Left)
			v.Right = walk(v.Right)
			if tryFold(v) {
				applied = true
			}
			return v
		default:
			return n
		}
	}

	if fc, ok := q.Operation.(*ast.FunctionCallNode); ok {
		for i, a := range fc.Args {
			fc.Args[i] = walk(a)
		}
	}
	if jn, ok := q.Operation.(*ast.JoinNode); ok && jn.Condition != nil {
		jn.Condition = walk(jn.Condition)
	}
	for i, c := range q.Conditions {
		q.Conditions[i] = walk(c)
	}

	if applied {
		report.AppliedTransforms = append(report.AppliedTransforms, "constant_folding")
	}
}

// tryFold folds b if both operands are literal numbers, reporting whether
// it changed anything. Division by zero is left unfolded so the error
// surfaces at execution time instead of compile time.
func tryFold(b *ast.BinaryOpNode) bool {
	left, ok := b.Left.(*ast.LiteralNode)
	if !ok || !isNumeric(left.Kind) {
		return false
	}
	right, ok := b.Right.(*ast.LiteralNode)
	if !ok || !isNumeric(right.Kind) {
		return false
	}

	lv := numericValue(left)
	rv := numericValue(right)

	var result float64
	switch b.Operator {
	case "+", "++":
		result = lv + rv
	case "-":
		result = lv - rv
	case "*":
		result = lv * rv
	case "/":
		if rv == 0 {
			return false
		}
		result = lv / rv
	default:
		return false
	}

	if left.Kind == ast.LiteralInt && right.Kind == ast.LiteralFloat || left.Kind == ast.LiteralFloat || right.Kind == ast.LiteralFloat {
		b.FoldedValue = result
	} else {
		b.FoldedValue = int64(result)
	}
	b.Folded = true
	return true
}

func isNumeric(k ast.LiteralKind) bool {
	return k == ast.LiteralInt || k == ast.LiteralFloat
}

func numericValue(l *ast.LiteralNode) float64 {
	switch v := l.Value.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

// eliminateDeadCode records that the pass ran. The current grammar has no
// provably-unreachable branches to strip (no CASE/IF nodes), so this is a
// marker pass, matching the original compiler's equivalent no-op.
func eliminateDeadCode(q *ast.QueryNode, report *Report) {
	q.Set("dead_code_pass_ran", true)
	report.AppliedTransforms = append(report.AppliedTransforms, "dead_code_elimination")
}

// hintJoinAlgorithms estimates a combined row count for each join found
// and annotates it with a recommended join strategy: nested_loop below
// 100 combined rows, hash above 10000, merge otherwise.
func hintJoinAlgorithms(q *ast.QueryNode, stats TableStats, report *Report) {
	jn, ok := q.Operation.(*ast.JoinNode)
	if !ok {
		return
	}

	left := stats.sizeOf(sideKey(jn.Left))
	right := stats.sizeOf(sideKey(jn.Right))
	combined := left + right

	switch {
	case combined < 100:
		jn.RecommendedAlgorithm = "nested_loop"
	case combined > 10000:
		jn.RecommendedAlgorithm = "hash"
	default:
		jn.RecommendedAlgorithm = "merge"
	}

	report.AppliedTransforms = append(report.AppliedTransforms, "join_algorithm_hint")
}

func sideKey(t *ast.TableRefNode) string {
	if t == nil {
		return ""
	}
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// pushDownSelections is a marker pass: the current codegen emits WHERE
// clauses directly against their originating table, so there are no
// intermediate result sets to push a selection below yet.
func pushDownSelections(q *ast.QueryNode, report *Report) {
	report.AppliedTransforms = append(report.AppliedTransforms, "selection_pushdown")
}

// aggressiveRewrite is a marker pass reserved for rewrites too aggressive
// to enable by default (e.g. subquery flattening); none are implemented.
func aggressiveRewrite(q *ast.QueryNode, report *Report) {
	report.AppliedTransforms = append(report.AppliedTransforms, "aggressive_rewriting")
}

// countNodes walks q and counts every AST node reachable from it, used to
// compute Report.ImprovementRatio.
func countNodes(q *ast.QueryNode) int {
	count := 1 // q itself

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if n == nil {
			return
		}
		count++
		switch v := n.(type) {
		case *ast.BinaryOpNode:
			walk(v.Left)
			walk(v.Right)
		case *ast.FunctionCallNode:
			for _, a := range v.Args {
				walk(a)
			}
		case *ast.JoinNode:
			walk(v.Left)
			walk(v.Right)
			walk(v.Condition)
		case *ast.SchemaNode:
			walk(v.Target)
		}
	}

	if q.Operation != nil {
		walk(q.Operation)
	}
	if q.Target != nil {
		count++
		for _, t := range q.Target.Tables {
			walk(t)
		}
	}
	if q.Columns != nil {
		count++
		for _, c := range q.Columns.Columns {
			walk(c)
		}
	}
	for _, c := range q.Conditions {
		walk(c)
	}
	return count
}
