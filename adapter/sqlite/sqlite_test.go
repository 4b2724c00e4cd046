package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/adapter/sqlite"
	"github.com/saiql-project/saiql-go/pkg/adapter"
)

func openTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecuteCreateAndInsertAndSelect(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res, err := db.Execute(ctx, "CREATE TABLE users (id INTEGER, name TEXT);")
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = db.Execute(ctx, "INSERT INTO users (id, name) VALUES (?, ?);", 1, "ada")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, int64(1), res.RowsAffected)

	res, err = db.Execute(ctx, "SELECT id, name FROM users;")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "ada", res.Rows[0]["name"])
}

func TestExecuteReportsErrorWithoutGoError(t *testing.T) {
	db := openTestDB(t)
	res, err := db.Execute(context.Background(), "SELECT * FROM nonexistent_table;")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotEmpty(t, res.Error)
}

func TestExecuteTransactionRollsBackOnFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Execute(ctx, "CREATE TABLE accounts (id INTEGER PRIMARY KEY, balance INTEGER);")
	require.NoError(t, err)

	result, err := db.ExecuteTransaction(ctx, []adapter.Operation{
		{SQL: "INSERT INTO accounts (id, balance) VALUES (1, 100);"},
		{SQL: "INSERT INTO accounts (id, balance) VALUES (1, 200);"}, // duplicate PK, fails
	})
	require.NoError(t, err)
	require.False(t, result.Success)

	res, err := db.Execute(ctx, "SELECT * FROM accounts;")
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestExecuteTransactionCommitsAllOnSuccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Execute(ctx, "CREATE TABLE accounts (id INTEGER PRIMARY KEY, balance INTEGER);")
	require.NoError(t, err)

	result, err := db.ExecuteTransaction(ctx, []adapter.Operation{
		{SQL: "INSERT INTO accounts (id, balance) VALUES (1, 100);"},
		{SQL: "INSERT INTO accounts (id, balance) VALUES (2, 200);"},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(2), result.RowsAffected)
}

func TestStatisticsReportsQueriesServed(t *testing.T) {
	db := openTestDB(t)
	db.Execute(context.Background(), "SELECT 1;")

	stats := db.Statistics()
	require.Equal(t, int64(1), stats["queries_served"])
}
