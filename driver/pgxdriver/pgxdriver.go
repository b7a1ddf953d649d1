// Package pgxdriver adapts a jackc/pgx/v5 connection pool to the
// driver.Driver contract: it is the engine's primary, recommended
// transport, chosen for pgx's binary wire protocol and native
// pgxpool.Pool concurrency model.
package pgxdriver

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/driver"
)

// Pool wraps a *pgxpool.Pool as a driver.Driver.
type Pool struct {
	pool *pgxpool.Pool
}

// New wraps an already-constructed pool. Callers own the pool's
// lifecycle; Close here delegates to pool.Close.
func New(pool *pgxpool.Pool) *Pool {
	return &Pool{pool: pool}
}

// Connect opens a pool from a libpq-style connection string.
func Connect(ctx context.Context, connString string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, pgorm.NewDriverError("connect", err)
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate("query", err)
	}
	return rowsAdapter{rows}, nil
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (driver.Result, error) {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, translate("exec", err)
	}
	return tagResult{tag}, nil
}

func (p *Pool) Begin(ctx context.Context) (driver.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, translate("begin", err)
	}
	return &txAdapter{tx: tx}, nil
}

func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}

func (p *Pool) Capabilities() driver.Capabilities {
	return driver.Capabilities{MultiStatement: true, BinaryProtocol: true}
}

type txAdapter struct{ tx pgx.Tx }

func (t *txAdapter) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate("query", err)
	}
	return rowsAdapter{rows}, nil
}

func (t *txAdapter) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *txAdapter) Exec(ctx context.Context, sql string, args ...any) (driver.Result, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return nil, translate("exec", err)
	}
	return tagResult{tag}, nil
}

func (t *txAdapter) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return translate("commit", err)
	}
	return nil
}

func (t *txAdapter) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return translate("rollback", err)
	}
	return nil
}

type rowsAdapter struct{ pgx.Rows }

func (r rowsAdapter) Columns() ([]string, error) {
	descs := r.FieldDescriptions()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = string(d.Name)
	}
	return names, nil
}

func (r rowsAdapter) Close() error {
	r.Rows.Close()
	return nil
}

type tagResult struct{ tag pgx.CommandTag }

func (t tagResult) RowsAffected() (int64, error) { return t.tag.RowsAffected(), nil }

func translate(op string, err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return pgorm.NewCancellationError(op, err)
	}
	return pgorm.NewDriverError(op, err)
}
