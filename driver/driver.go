// Package driver defines the contract the query engine needs from a
// Postgres connection: executing parameterized statements, running
// multi-statement scripts, and reporting which optional capabilities the
// underlying client supports. Concrete adapters live in driver/pgxdriver
// (pgx/v5, the primary path) and driver/sqldriver (database/sql +
// lib/pq, for callers who standardize on database/sql).
package driver

import "context"

// Row is the minimal single-row scanner the materializer needs.
type Row interface {
	Scan(dest ...any) error
}

// Rows is the minimal multi-row scanner the materializer needs.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() ([]string, error)
}

// Result reports the outcome of an Exec.
type Result interface {
	RowsAffected() (int64, error)
}

// Conn is a single borrowed connection capable of running statements.
// Both the pool-level Driver and an open transaction satisfy it, so the
// SQL-execution layer above does not need to know whether it is inside a
// transaction scope.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) (Result, error)
}

// Tx extends Conn with commit/rollback; returned by Driver.Begin.
type Tx interface {
	Conn
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Driver is a connection pool capable of handing out a Conn for a
// one-shot statement or opening a Tx for a transaction scope.
type Driver interface {
	Conn
	Begin(ctx context.Context) (Tx, error)
	Close() error
	Capabilities() Capabilities
}

// Capabilities reports which optional behaviors a Driver's underlying
// client supports, so the collection strategy engine can pick a
// temp-table 4-statement fallback when a driver can't run multiple
// statements in one round trip.
type Capabilities struct {
	// MultiStatement reports whether Exec can run several
	// semicolon-separated statements in a single round trip.
	MultiStatement bool
	// BinaryProtocol reports whether the driver negotiates Postgres's
	// binary wire format (pgx does; lib/pq does not).
	BinaryProtocol bool
}
