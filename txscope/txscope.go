// Package txscope provides a context-bound transaction boundary so
// nested calls that all receive
// the same context automatically observe each other's uncommitted
// writes, without passing a *Tx through every function signature.
// Opening a second scope within one already open is a
// *pgorm.NestedTransactionError — this release does not implement
// savepoints.
package txscope

import (
	"context"
	"errors"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/driver"
)

type txKey struct{}

// From returns the driver.Tx bound to ctx, if a scope is open.
func From(ctx context.Context) (driver.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(driver.Tx)
	return tx, ok
}

// ConnOrTx returns the open transaction bound to ctx if there is one,
// otherwise d itself — the single entry point query execution uses so
// it never needs to know whether it's inside a scope.
func ConnOrTx(ctx context.Context, d driver.Driver) driver.Conn {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return d
}

// Run opens a transaction scope on d, binds it to ctx, and invokes fn.
// fn's error return decides the outcome: nil commits, anything else
// rolls back and is returned to the caller (wrapped if the rollback
// itself also failed). Calling Run with a ctx that already carries an
// open scope returns a *pgorm.NestedTransactionError without touching
// the database.
func Run(ctx context.Context, d driver.Driver, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return &pgorm.NestedTransactionError{}
	}

	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	scoped := context.WithValue(ctx, txKey{}, tx)

	if err := fn(scoped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return pgorm.NewDriverError("rollback", errors.Join(err, rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return pgorm.NewDriverError("commit", err)
	}
	return nil
}
