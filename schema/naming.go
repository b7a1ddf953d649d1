package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// DefaultTableName derives the conventional physical table name for an
// entity — its snake_case, pluralized form — so most callers never need
// to pass an explicit table name to Register. "User" becomes "users",
// "Company" becomes "companies".
func DefaultTableName(entityName string) string {
	return inflect.Pluralize(toSnakeCase(entityName))
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
