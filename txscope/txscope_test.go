package txscope

import (
	"context"
	"errors"
	"testing"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/driver"
)

type fakeResult struct{}

func (fakeResult) RowsAffected() (int64, error) { return 0, nil }

type fakeTx struct {
	driver.Conn
	committed, rolledBack bool
	rollbackErr           error
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rolledBack = true
	return tx.rollbackErr
}

type fakeDriver struct {
	tx          *fakeTx
	beginCalled int
}

func (fakeDriver) Query(ctx context.Context, sql string, args ...any) (driver.Rows, error) {
	return nil, errors.New("fakeDriver: Query not implemented")
}

func (fakeDriver) QueryRow(ctx context.Context, sql string, args ...any) driver.Row {
	return nil
}

func (fakeDriver) Exec(ctx context.Context, sql string, args ...any) (driver.Result, error) {
	return fakeResult{}, nil
}

func (d *fakeDriver) Begin(ctx context.Context) (driver.Tx, error) {
	d.beginCalled++
	return d.tx, nil
}

func (fakeDriver) Close() error { return nil }

func (fakeDriver) Capabilities() driver.Capabilities { return driver.Capabilities{} }

func TestRunCommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	d := &fakeDriver{tx: tx}

	err := Run(context.Background(), d, func(ctx context.Context) error {
		bound, ok := From(ctx)
		if !ok {
			t.Fatal("expected a transaction bound to the scoped context")
		}
		if bound != driver.Tx(tx) {
			t.Fatal("bound transaction is not the one Begin returned")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !tx.committed {
		t.Fatal("expected Commit to have been called")
	}
	if tx.rolledBack {
		t.Fatal("did not expect Rollback to have been called")
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	d := &fakeDriver{tx: tx}
	wantErr := errors.New("boom")

	err := Run(context.Background(), d, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if tx.committed {
		t.Fatal("did not expect Commit to have been called")
	}
	if !tx.rolledBack {
		t.Fatal("expected Rollback to have been called")
	}
}

func TestRunWrapsRollbackFailure(t *testing.T) {
	tx := &fakeTx{rollbackErr: errors.New("connection reset")}
	d := &fakeDriver{tx: tx}

	err := Run(context.Background(), d, func(ctx context.Context) error {
		return errors.New("original failure")
	})
	if !pgorm.IsDriverError(err) {
		t.Fatalf("expected a *pgorm.DriverError wrapping the rollback failure, got %v", err)
	}
}

func TestRunRejectsNestedScope(t *testing.T) {
	tx := &fakeTx{}
	d := &fakeDriver{tx: tx}

	outerErr := Run(context.Background(), d, func(ctx context.Context) error {
		innerErr := Run(ctx, d, func(ctx context.Context) error { return nil })
		var nested *pgorm.NestedTransactionError
		if !errors.As(innerErr, &nested) {
			t.Fatalf("expected a *pgorm.NestedTransactionError, got %v", innerErr)
		}
		return nil
	})
	if outerErr != nil {
		t.Fatal(outerErr)
	}
	if d.beginCalled != 1 {
		t.Fatalf("expected Begin to be called exactly once, got %d", d.beginCalled)
	}
}

func TestConnOrTxFallsBackToDriverOutsideScope(t *testing.T) {
	d := &fakeDriver{tx: &fakeTx{}}
	if ConnOrTx(context.Background(), d) != driver.Conn(d) {
		t.Fatal("expected ConnOrTx to return the driver itself outside any scope")
	}
}
