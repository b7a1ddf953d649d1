// Package cte assembles the
// WITH-clause fragments the collection strategy engine produces for
// each to-many navigation into a single statement, keeping parameter
// numbering contiguous across every composed fragment — a concern the
// positional-placeholder style of Postgres parameters makes easy to get
// wrong once more than one subquery contributes bound values.
package cte

import (
	"fmt"
	"strings"

	"github.com/syssam/pgorm/plan"
)

// Composer accumulates named CTE fragments and renders the leading WITH
// clause; its merged parameter list (Params) tells a caller downstream
// (the SQL emitter) how many placeholders are taken, so its own
// WHERE/ORDER BY placeholders start from the right number.
type Composer struct {
	ctes   []plan.CTE
	params []any
}

// New returns an empty Composer.
func New() *Composer { return &Composer{} }

// Add appends a named CTE fragment whose SQL was rendered against its
// own private *expr.Context starting at $1; Add renumbers its
// placeholders to continue from the composer's running parameter count
// so the fragment can be spliced into the outer statement unmodified
// otherwise.
func (c *Composer) Add(name, sql string, params []any) {
	renumbered := renumberPlaceholders(sql, len(c.params))
	c.ctes = append(c.ctes, plan.CTE{Name: name, SQL: renumbered, Params: params})
	c.params = append(c.params, params...)
}

// Names returns the names of every CTE added so far, in order.
func (c *Composer) Names() []string {
	out := make([]string, len(c.ctes))
	for i, cte := range c.ctes {
		out[i] = cte.Name
	}
	return out
}

// Params returns every parameter bound across every added CTE, in the
// order they must appear in the final statement's argument list.
func (c *Composer) Params() []any { return c.params }

// Render returns the "WITH name1 AS (...), name2 AS (...)" clause, or
// "" if no CTEs were added.
func (c *Composer) Render() string {
	if len(c.ctes) == 0 {
		return ""
	}
	parts := make([]string, len(c.ctes))
	for i, cte := range c.ctes {
		parts[i] = fmt.Sprintf("%s AS (%s)", quoteIdent(cte.Name), cte.SQL)
	}
	return "WITH " + strings.Join(parts, ", ")
}

// WithAggregation renders the canonical one-to-many collection fragment
// used by the CTE strategy: group the child rows by the
// parent correlation column(s) and aggregate each group into a single
// jsonb array via json_agg(to_jsonb(...)), so the outer query can join
// back to it one-to-one.
func WithAggregation(childSelectSQL, groupByColumn, alias string) string {
	return fmt.Sprintf(
		"SELECT %s AS %s, json_agg(to_jsonb(%s.*)) AS %s FROM (%s) AS %s GROUP BY %s",
		quoteIdent(groupByColumn), quoteIdent(groupByColumn),
		quoteIdent(alias), quoteIdent("items"),
		childSelectSQL, quoteIdent(alias),
		quoteIdent(groupByColumn),
	)
}

// Renumber rewrites every "$N" placeholder in sql to continue from
// offset already-bound parameters, the same renumbering Add applies to
// a composed CTE fragment — exported so any other caller splicing a
// SQL fragment rendered against its own private *expr.Context (the
// Lateral collection strategy's FROM-clause fragment, notably) can
// reuse it instead of re-deriving the same left-to-right scan.
func Renumber(sql string, offset int) string { return renumberPlaceholders(sql, offset) }

// renumberPlaceholders rewrites every "$N" in sql to "$(N+offset)",
// scanning left to right so multi-digit numbers are handled correctly.
func renumberPlaceholders(sql string, offset int) string {
	if offset == 0 {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql))
	for i := 0; i < len(sql); i++ {
		if sql[i] != '$' || i+1 >= len(sql) || sql[i+1] < '0' || sql[i+1] > '9' {
			b.WriteByte(sql[i])
			continue
		}
		j := i + 1
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			j++
		}
		var n int
		fmt.Sscanf(sql[i+1:j], "%d", &n)
		fmt.Fprintf(&b, "$%d", n+offset)
		i = j - 1
	}
	return b.String()
}

func quoteIdent(s string) string { return `"` + s + `"` }
