// Package sqldriver adapts a database/sql connection (opened with
// github.com/lib/pq as the registered driver) to the driver.Driver
// contract — an alternative transport for callers who already
// standardize their connection pooling on database/sql instead of
// pgxpool. Session-variable plumbing (WithVar/VarFromContext) sets and
// resets Postgres session variables around a single statement.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/driver"
)

var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

type ctxVarsKey struct{}

type sessionVar struct{ k, v string }

// WithVar returns a new context carrying a Postgres session variable to
// be SET before the next statement executed on that context and RESET
// when the borrowed connection is released.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	vars = append(vars, sessionVar{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, vars)
}

// VarFromContext returns the session variable value attached to ctx by
// WithVar, if any.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	for _, v := range vars {
		if v.k == name {
			return v.v, true
		}
	}
	return "", false
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a *sql.DB opened against the lib/pq driver.
type DB struct {
	db *sql.DB
}

// Open opens a new connection pool via database/sql using lib/pq.
func Open(dataSourceName string) (*DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, pgorm.NewDriverError("open", err)
	}
	return &DB{db: db}, nil
}

// OpenDB wraps an already-constructed *sql.DB.
func OpenDB(db *sql.DB) *DB { return &DB{db: db} }

func (d *DB) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return queryWithVars(ctx, d.db, query, args)
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	return execWithVars(ctx, d.db, query, args)
}

func (d *DB) Begin(ctx context.Context) (driver.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate("begin", err)
	}
	return &txAdapter{tx: tx}, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Capabilities() driver.Capabilities {
	return driver.Capabilities{MultiStatement: false, BinaryProtocol: false}
}

type txAdapter struct{ tx *sql.Tx }

func (t *txAdapter) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	return queryWithVars(ctx, t.tx, query, args)
}

func (t *txAdapter) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *txAdapter) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	return execWithVars(ctx, t.tx, query, args)
}

func (t *txAdapter) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return translate("commit", err)
	}
	return nil
}

func (t *txAdapter) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return translate("rollback", err)
	}
	return nil
}

// maySetVars applies any session variables bound to ctx before running
// a statement, returning a cleanup func that RESETs them when the
// caller is done with the borrowed connection.
func maySetVars(ctx context.Context, db *sql.DB) (execQuerier, func() error, error) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	if len(vars) == 0 {
		return db, nil, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	var reset []string
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if !isValidIdentifier(v.k) {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("sqldriver: invalid session variable name %q", v.k)
		}
		if _, ok := seen[v.k]; !ok {
			reset = append(reset, fmt.Sprintf("RESET %s", v.k))
			seen[v.k] = struct{}{}
		}
		stmt := fmt.Sprintf("SET %s = '%s'", v.k, escapeStringValue(v.v))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			cerr := conn.Close()
			return nil, nil, errors.Join(err, cerr)
		}
	}
	closeFn := func() error {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var errs []error
		for _, q := range reset {
			if _, err := conn.ExecContext(cleanupCtx, q); err != nil {
				errs = append(errs, err)
			}
		}
		errs = append(errs, conn.Close())
		return errors.Join(errs...)
	}
	return conn, closeFn, nil
}

func queryWithVars(ctx context.Context, fallback execQuerier, query string, args []any) (driver.Rows, error) {
	db, isDB := fallback.(*sql.DB)
	if !isDB {
		rows, err := fallback.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, translate("query", err)
		}
		return rowsAdapter{rows, nil}, nil
	}
	ex, cf, err := maySetVars(ctx, db)
	if err != nil {
		return nil, translate("query", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, translate("query", err)
	}
	return rowsAdapter{rows, cf}, nil
}

func execWithVars(ctx context.Context, fallback execQuerier, query string, args []any) (driver.Result, error) {
	db, isDB := fallback.(*sql.DB)
	if !isDB {
		res, err := fallback.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, translate("exec", err)
		}
		return res, nil
	}
	ex, cf, err := maySetVars(ctx, db)
	if err != nil {
		return nil, translate("exec", err)
	}
	if cf != nil {
		defer cf()
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate("exec", err)
	}
	return res, nil
}

// rowsAdapter wraps *sql.Rows, closing an optional borrowed connection
// (from a session-variable scope) alongside the rows themselves.
type rowsAdapter struct {
	*sql.Rows
	closer func() error
}

func (r rowsAdapter) Close() error {
	err := r.Rows.Close()
	if r.closer != nil {
		err = errors.Join(err, r.closer())
	}
	return err
}

func translate(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pgorm.NewCancellationError(op, err)
	}
	return pgorm.NewDriverError(op, err)
}
