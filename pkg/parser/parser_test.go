package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/ast"
	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/parser"
)

func testLegend(t *testing.T) *legend.Legend {
	t.Helper()
	lg, err := legend.LoadFromFile("../legend/testdata/default_legend.json")
	require.NoError(t, err)
	return lg
}

func TestParseSelect(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[users]::name,email>>oQ`, lg)
	require.NoError(t, err)

	require.Equal(t, ast.KindSelect, q.Kind)
	require.Equal(t, "oQ", q.Output)

	require.NotNil(t, q.Target)
	require.Len(t, q.Target.Tables, 1)
	require.Equal(t, "users", q.Target.Tables[0].Name)

	require.NotNil(t, q.Columns)
	require.False(t, q.Columns.Wildcard)
	require.Len(t, q.Columns.Columns, 2)
	require.Equal(t, "name", q.Columns.Columns[0].Column)
	require.Equal(t, "email", q.Columns.Columns[1].Column)

	fc, ok := q.Operation.(*ast.FunctionCallNode)
	require.True(t, ok)
	require.Equal(t, "*3", fc.Symbol)
	require.Equal(t, "SELECT", fc.Name)
}

func TestParseJoinWithEmptyProjection(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`=J[users+orders]::>>oQ`, lg)
	require.NoError(t, err)

	require.Equal(t, ast.KindJoin, q.Kind)
	jn, ok := q.Operation.(*ast.JoinNode)
	require.True(t, ok)
	require.Equal(t, "INNER", jn.JoinKind)
	require.Equal(t, "users", jn.Left.Name)
	require.Equal(t, "orders", jn.Right.Name)
	require.Nil(t, jn.Condition)

	require.NotNil(t, q.Columns)
	require.False(t, q.Columns.Wildcard)
	require.Empty(t, q.Columns.Columns)
}

func TestParseAggregateWildcard(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*COUNT[sales]::*>>oQ`, lg)
	require.NoError(t, err)

	require.Equal(t, ast.KindAggregate, q.Kind)
	require.True(t, q.Columns.Wildcard)

	fc := q.Operation.(*ast.FunctionCallNode)
	require.Equal(t, "COUNT", fc.Name)
}

func TestParseTransaction(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`$1`, lg)
	require.NoError(t, err)

	require.Equal(t, ast.KindTransaction, q.Kind)
	tn, ok := q.Operation.(*ast.TransactionNode)
	require.True(t, ok)
	require.Equal(t, "begin", tn.Op)
	require.Nil(t, q.Target)
	require.Empty(t, q.Output)
}

func TestParseWithCondition(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[users](age>18)::name>>oQ`, lg)
	require.NoError(t, err)

	fc := q.Operation.(*ast.FunctionCallNode)
	require.Len(t, fc.Args, 1)

	require.Len(t, q.Conditions, 1)
	cond, ok := q.Conditions[0].(*ast.BinaryOpNode)
	require.True(t, ok)
	require.Equal(t, ">", cond.Operator)

	left, ok := cond.Left.(*ast.ColumnRefNode)
	require.True(t, ok)
	require.Equal(t, "age", left.Column)

	right, ok := cond.Right.(*ast.LiteralNode)
	require.True(t, ok)
	require.Equal(t, ast.LiteralInt, right.Kind)
	require.Equal(t, int64(18), right.Value)
}

func TestParseSchemaQualifiedTable(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[public.users]::id>>oQ`, lg)
	require.NoError(t, err)

	require.Equal(t, "public", q.Target.Tables[0].Schema)
	require.Equal(t, "users", q.Target.Tables[0].Name)
}

func TestParseRejectsUnknownLeadingToken(t *testing.T) {
	lg := testLegend(t)
	_, err := parser.Parse(`[users]`, lg)
	require.Error(t, err)
}

func TestParseRejectsJoinWithWrongTableCount(t *testing.T) {
	lg := testLegend(t)
	_, err := parser.Parse(`=J[users]::>>oQ`, lg)
	require.Error(t, err)
}
