// Package adapter declares the storage contract the engine drives.
// Adapters are opaque to the core: they own their own connection pooling
// and native transaction handling. The engine only ever sees Execute,
// ExecuteTransaction, Close, and Statistics.
package adapter

import (
	"context"
	"time"
)

// Row is one result row, column name to value.
type Row map[string]any

// Result is what a single statement execution returns.
type Result struct {
	Success       bool
	Rows          []Row
	RowsAffected  int64
	ExecutionTime time.Duration
	Error         string
}

// Operation is one statement within an ordered batch passed to
// ExecuteTransaction.
type Operation struct {
	SQL    string
	Params []any
}

// TransactionResult is what an ordered batch of operations returns.
type TransactionResult struct {
	Success      bool
	RowsAffected int64
	Error        string
}

// Adapter is the storage contract every backend (sqlite, postgres, mysql,
// or a test double) must satisfy. Implementations choose their own
// connection pooling and native transaction management; the engine
// treats every detail below the Execute/ExecuteTransaction boundary as
// opaque.
type Adapter interface {
	// Execute runs one statement with optional positional params and
	// returns its rows and effects.
	Execute(ctx context.Context, sql string, params ...any) (Result, error)

	// ExecuteTransaction runs ops in order inside one native transaction,
	// committing only if every operation succeeds.
	ExecuteTransaction(ctx context.Context, ops []Operation) (TransactionResult, error)

	// Close releases any resources (connection pools, file handles) held
	// by the adapter. Close is idempotent.
	Close() error

	// Statistics reports adapter-specific counters (connections open,
	// queries executed, and so on) for diagnostics.
	Statistics() map[string]any
}
