package sqlgraph

import (
	"errors"
	"strings"
)

// errorCoder is implemented by any driver error that reports its
// SQLSTATE through a Code() string method. github.com/lib/pq's *pq.Error
// keeps its code in a Code struct field, so it does not satisfy it.
type errorCoder interface {
	Code() string
}

// sqlStateError is implemented by github.com/jackc/pgx/v5/pgconn's
// *pgconn.PgError via its SQLState method.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// IsConstraintError reports whether err resulted from any constraint
// violation: unique, foreign key, or check.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) || IsForeignKeyConstraintError(err) || IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether err resulted from a unique
// constraint violation (SQLSTATE 23505).
func IsUniqueConstraintError(err error) bool {
	return matchesCode(err, uniqueViolation, "violates unique constraint")
}

// IsForeignKeyConstraintError reports whether err resulted from a
// foreign-key constraint violation (SQLSTATE 23503).
func IsForeignKeyConstraintError(err error) bool {
	return matchesCode(err, foreignKeyViolation, "violates foreign key constraint")
}

// IsCheckConstraintError reports whether err resulted from a check
// constraint violation (SQLSTATE 23514).
func IsCheckConstraintError(err error) bool {
	return matchesCode(err, checkViolation, "violates check constraint")
}

func matchesCode(err error, sqlstate, fallback string) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == sqlstate {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == sqlstate {
		return true
	}
	return strings.Contains(err.Error(), fallback)
}

// Classify returns the constraint kind ("unique", "foreign_key",
// "check") matched by err, or "" if err is not a recognized constraint
// violation.
func Classify(err error) string {
	switch {
	case IsUniqueConstraintError(err):
		return "unique"
	case IsForeignKeyConstraintError(err):
		return "foreign_key"
	case IsCheckConstraintError(err):
		return "check"
	default:
		return ""
	}
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}
