// Package sqlite is a reference adapter.Adapter backed by database/sql
// and a pure-Go SQLite driver, used by engine integration tests and as a
// worked example of how a concrete backend plugs into the core.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/saiql-project/saiql-go/pkg/adapter"
)

// Database wraps a *sql.DB opened against the modernc.org/sqlite driver.
type Database struct {
	db            *sql.DB
	queriesServed int64
}

// Open opens dsn (a file path, or ":memory:") using the modernc.org/sqlite
// driver and wraps it as an adapter.Adapter.
func Open(dsn string) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// Execute runs sql with params and collects every result row as a
// Row map keyed by column name.
func (d *Database) Execute(ctx context.Context, query string, params ...any) (adapter.Result, error) {
	start := time.Now()
	d.queriesServed++

	trimmed := trimForDispatch(query)
	if isSelectLike(trimmed) {
		return d.executeQuery(ctx, query, params, start)
	}
	return d.executeStatement(ctx, query, params, start)
}

func (d *Database) executeQuery(ctx context.Context, query string, params []any, start time.Time) (adapter.Result, error) {
	rows, err := d.db.QueryContext(ctx, query, params...)
	if err != nil {
		return adapter.Result{Success: false, Error: err.Error(), ExecutionTime: time.Since(start)}, nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return adapter.Result{Success: false, Error: err.Error(), ExecutionTime: time.Since(start)}, nil
	}

	var out []adapter.Row
	for rows.Next() {
		values := make([]any, len(cols))
		pointers := make([]any, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return adapter.Result{Success: false, Error: err.Error(), ExecutionTime: time.Since(start)}, nil
		}
		row := make(adapter.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}

	return adapter.Result{
		Success:       true,
		Rows:          out,
		RowsAffected:  int64(len(out)),
		ExecutionTime: time.Since(start),
	}, nil
}

func (d *Database) executeStatement(ctx context.Context, query string, params []any, start time.Time) (adapter.Result, error) {
	res, err := d.db.ExecContext(ctx, query, params...)
	if err != nil {
		return adapter.Result{Success: false, Error: err.Error(), ExecutionTime: time.Since(start)}, nil
	}
	affected, _ := res.RowsAffected()
	return adapter.Result{
		Success:       true,
		RowsAffected:  affected,
		ExecutionTime: time.Since(start),
	}, nil
}

// ExecuteTransaction runs ops inside one native sqlite transaction,
// rolling back on the first failure.
func (d *Database) ExecuteTransaction(ctx context.Context, ops []adapter.Operation) (adapter.TransactionResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return adapter.TransactionResult{Success: false, Error: err.Error()}, nil
	}

	var total int64
	for _, op := range ops {
		res, err := tx.ExecContext(ctx, op.SQL, op.Params...)
		if err != nil {
			_ = tx.Rollback()
			return adapter.TransactionResult{Success: false, Error: err.Error()}, nil
		}
		affected, _ := res.RowsAffected()
		total += affected
	}

	if err := tx.Commit(); err != nil {
		return adapter.TransactionResult{Success: false, Error: err.Error()}, nil
	}
	return adapter.TransactionResult{Success: true, RowsAffected: total}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Statistics reports connection-pool and query counters.
func (d *Database) Statistics() map[string]any {
	stats := d.db.Stats()
	return map[string]any{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"queries_served":   d.queriesServed,
	}
}

func trimForDispatch(query string) string {
	i := 0
	for i < len(query) && (query[i] == ' ' || query[i] == '\t' || query[i] == '\n' || query[i] == '\r') {
		i++
	}
	return query[i:]
}

func isSelectLike(query string) bool {
	upper := make([]byte, 0, 6)
	for i := 0; i < len(query) && i < 6; i++ {
		c := query[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = append(upper, c)
	}
	s := string(upper)
	return len(s) >= 6 && s[:6] == "SELECT"
}

var _ adapter.Adapter = (*Database)(nil)
