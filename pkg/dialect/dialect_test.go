package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/dialect"
)

func TestGetDialectKnownNames(t *testing.T) {
	require.Equal(t, dialect.SQLite, dialect.GetDialect("sqlite").Name())
	require.Equal(t, dialect.Postgres, dialect.GetDialect("postgres").Name())
	require.Equal(t, dialect.MySQL, dialect.GetDialect("mysql").Name())
}

func TestGetDialectUnknownFallsBackToSQLite(t *testing.T) {
	require.Equal(t, dialect.SQLite, dialect.GetDialect("oracle").Name())
}

func TestQuoteIdentifierPerDialect(t *testing.T) {
	require.Equal(t, `"users"`, dialect.GetDialect("postgres").QuoteIdentifier("users"))
	require.Equal(t, "`users`", dialect.GetDialect("mysql").QuoteIdentifier("users"))
	require.Equal(t, `"users"`, dialect.GetDialect("sqlite").QuoteIdentifier("users"))
}

func TestQuoteIdentifierEscapesEmbeddedQuote(t *testing.T) {
	require.Equal(t, `"a""b"`, dialect.GetDialect("postgres").QuoteIdentifier(`a"b`))
	require.Equal(t, "`a``b`", dialect.GetDialect("mysql").QuoteIdentifier("a`b"))
}

func TestPlaceholderStyles(t *testing.T) {
	pg := dialect.GetDialect("postgres")
	require.Equal(t, "$1", pg.PlaceholderAt(1))
	require.Equal(t, "$2", pg.PlaceholderAt(2))

	sqlite := dialect.GetDialect("sqlite")
	require.Equal(t, "?", sqlite.PlaceholderAt(1))
	require.Equal(t, "?", sqlite.PlaceholderAt(2))
}

func TestNormalizeIdentifierFoldsUnquoted(t *testing.T) {
	pg := dialect.GetDialect("postgres")
	require.Equal(t, "users", pg.NormalizeIdentifier("Users", false))
	require.Equal(t, "Users", pg.NormalizeIdentifier("Users", true))
}

func TestExceedsIdentifierLimit(t *testing.T) {
	pg := dialect.GetDialect("postgres")
	require.False(t, pg.ExceedsIdentifierLimit("short_name"))

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	require.True(t, pg.ExceedsIdentifierLimit(string(long)))

	sqlite := dialect.GetDialect("sqlite")
	require.False(t, sqlite.ExceedsIdentifierLimit(string(long)))
}
