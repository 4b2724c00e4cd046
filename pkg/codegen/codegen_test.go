package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/ast"
	"github.com/saiql-project/saiql-go/pkg/codegen"
	"github.com/saiql-project/saiql-go/pkg/dialect"
	"github.com/saiql-project/saiql-go/pkg/legend"
	"github.com/saiql-project/saiql-go/pkg/optimizer"
	"github.com/saiql-project/saiql-go/pkg/parser"
)

func testLegend(t *testing.T) *legend.Legend {
	t.Helper()
	lg, err := legend.LoadFromFile("../legend/testdata/default_legend.json")
	require.NoError(t, err)
	return lg
}

func TestGenerateSelect(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[users]::name,email>>oQ`, lg)
	require.NoError(t, err)

	sql, err := codegen.New(dialect.GetDialect("sqlite")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "SELECT \"name\", \"email\"\nFROM \"users\";", sql)
}

func TestGenerateSelectWildcardColumns(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[users]::*>>oQ`, lg)
	require.NoError(t, err)

	sql, err := codegen.New(dialect.GetDialect("postgres")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "SELECT *\nFROM \"users\";", sql)
}

func TestGenerateSelectWithCondition(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[users](age>18)::name>>oQ`, lg)
	require.NoError(t, err)

	sql, err := codegen.New(dialect.GetDialect("sqlite")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "SELECT \"name\"\nFROM \"users\"\nWHERE (\"age\" > 18);", sql)
}

func TestGenerateJoinEmptyProjection(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`=J[users+orders]::>>oQ`, lg)
	require.NoError(t, err)

	sql, err := codegen.New(dialect.GetDialect("mysql")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "SELECT *\nFROM `users`\nINNER JOIN `orders` ON 1=1;", sql)
}

func TestGenerateAggregate(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*COUNT[sales]::*>>oQ`, lg)
	require.NoError(t, err)

	sql, err := codegen.New(dialect.GetDialect("sqlite")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "SELECT COUNT(*)\nFROM \"sales\";", sql)
}

func TestGenerateTransaction(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`$1`, lg)
	require.NoError(t, err)

	sql, err := codegen.New(dialect.GetDialect("sqlite")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "BEGIN TRANSACTION;", sql)
}

func TestGenerateUsesFoldedConstant(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*3[users](1+2>2)::name>>oQ`, lg)
	require.NoError(t, err)
	optimizer.New().Optimize(q, optimizer.LevelBasic, nil)

	sql, err := codegen.New(dialect.GetDialect("sqlite")).Generate(q)
	require.NoError(t, err)
	require.Equal(t, "SELECT \"name\"\nFROM \"users\"\nWHERE (3 > 2);", sql)
}

func TestGenerateRejectsUnknownAggregate(t *testing.T) {
	lg := testLegend(t)
	q, err := parser.Parse(`*COUNT[sales]::*>>oQ`, lg)
	require.NoError(t, err)

	fc := q.Operation.(*ast.FunctionCallNode)
	fc.Name = "MEDIAN"

	_, err = codegen.New(dialect.GetDialect("sqlite")).Generate(q)
	require.Error(t, err)
}
