package collection

import "fmt"

// BuildLateral renders a "LATERAL (aggregated-child) AS alias ON TRUE"
// fragment for the FROM clause. childSelectSQL must already be the
// per-parent correlated child query: filtered by the caller to the one
// outer row it runs against (a predicate referencing the outer alias is
// legal inside a LATERAL subquery's own scope, per the alias-scoping
// invariant) and already carrying whatever per-collection
// LIMIT/OFFSET/ORDER BY the request declared. Wrapping it here in
// json_agg(to_jsonb(...)) — the same aggregate the CTE strategy composes
// — collapses its zero-or-more matching rows into the single row a
// LATERAL join requires, so the root query selects alias."items" exactly
// like a CTE's aggregated column.
func BuildLateral(alias, childSelectSQL string, childParams []any) Fragment {
	agg := fmt.Sprintf(
		"SELECT json_agg(to_jsonb(%s.*)) AS %s FROM (%s) AS %s",
		quoteIdent(alias), quoteIdent("items"), childSelectSQL, quoteIdent(alias),
	)
	lateralSQL := fmt.Sprintf("LATERAL (%s) AS %s ON TRUE", agg, quoteIdent(alias))

	return Fragment{
		Strategy:      Lateral,
		CTEName:       alias,
		LateralSQL:    lateralSQL,
		LateralParams: childParams,
	}
}

func quoteIdent(s string) string { return `"` + s + `"` }
