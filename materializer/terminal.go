package materializer

import "github.com/syssam/pgorm"

// FirstOrDefault returns the first decoded row, or nil if there were
// none — a zero-or-one-row contract, as distinct from Only which errors
// out on more than one match.
func FirstOrDefault(rows []Row) Row {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// Only returns the single row in rows, or an error if there isn't
// exactly one.
func Only(entity string, rows []Row) (Row, error) {
	switch len(rows) {
	case 0:
		return nil, pgorm.NewNotFoundError(entity)
	case 1:
		return rows[0], nil
	default:
		return nil, pgorm.NewNotSingularError(entity, len(rows))
	}
}

// First returns the first row, or a NotFoundError if there were none —
// the distinction from FirstOrDefault being that First is for a caller
// that treats "no row" as exceptional.
func First(entity string, rows []Row) (Row, error) {
	if len(rows) == 0 {
		return nil, pgorm.NewNotFoundError(entity)
	}
	return rows[0], nil
}

// Exists reports whether rows is non-empty.
func Exists(rows []Row) bool { return len(rows) > 0 }
