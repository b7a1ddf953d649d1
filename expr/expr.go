// Package expr defines a small set of composable nodes — column
// references, constants, raw SQL, aggregates, subqueries — and the
// boolean condition constructors built on top of them. Every node
// renders itself against a [Context] that owns the positional-parameter
// counter, so the same tree can be emitted into a top-level SELECT or a
// nested CTE without parameter numbers colliding.
package expr

import (
	"fmt"
	"strings"
)

// Context accumulates the positional parameters ($1, $2, ...) collected
// while rendering a tree; column references carry their own alias and
// need nothing from it. It is shared by every node in one
// statement so parameter numbering stays contiguous across nested
// subqueries composed into the same CTE.
type Context struct {
	Params []any
}

// Bind appends v to the parameter list and returns its positional
// placeholder, "$N".
func (c *Context) Bind(v any) string {
	c.Params = append(c.Params, v)
	return fmt.Sprintf("$%d", len(c.Params))
}

// Expression is any node that renders to a scalar SQL fragment: a
// column, a constant, a raw fragment, an aggregate call, or a subquery.
type Expression interface {
	Emit(ctx *Context) string
}

// Condition is any node that renders to a boolean SQL fragment, usable
// in a WHERE, ON, or HAVING clause.
type Condition interface {
	Emit(ctx *Context) string
}

// Column references "alias"."column".
type Column struct {
	Alias  string
	Name   string
}

// Col is shorthand for Column{Alias: alias, Name: name}.
func Col(alias, name string) Column { return Column{Alias: alias, Name: name} }

func (c Column) Emit(*Context) string {
	if c.Alias == "" {
		return quoteIdent(c.Name)
	}
	return quoteIdent(c.Alias) + "." + quoteIdent(c.Name)
}

// Const is a bound parameter value.
type Const struct{ Value any }

func (c Const) Emit(ctx *Context) string { return ctx.Bind(c.Value) }

// Raw is an escape hatch emitting a SQL template verbatim, except that
// each "?" marker in SQL is substituted, left to right, with the
// emitted form of the corresponding entry in Args — so a fragment that
// cannot be expressed as a composed Expression can still parameterize
// dynamic values through the same Context every other node binds
// against, instead of string-formatting them in unsafely. A Raw with no
// Args (e.g. a literal key part's discriminator) emits SQL unchanged.
type Raw struct {
	SQL  string
	Args []Expression
}

func (r Raw) Emit(ctx *Context) string {
	if len(r.Args) == 0 {
		return r.SQL
	}
	var b strings.Builder
	b.Grow(len(r.SQL))
	arg := 0
	for i := 0; i < len(r.SQL); i++ {
		if r.SQL[i] == '?' && arg < len(r.Args) {
			b.WriteString(r.Args[arg].Emit(ctx))
			arg++
			continue
		}
		b.WriteByte(r.SQL[i])
	}
	return b.String()
}

// Aggregate renders "FUNC(arg)" or "FUNC(DISTINCT arg)".
type Aggregate struct {
	Func     string // "count", "sum", "min", "max", "avg", "json_agg", ...
	Arg      Expression
	Distinct bool
}

func (a Aggregate) Emit(ctx *Context) string {
	inner := "*"
	if a.Arg != nil {
		inner = a.Arg.Emit(ctx)
	}
	if a.Distinct {
		inner = "DISTINCT " + inner
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(a.Func), inner)
}

// Subquery wraps a pre-rendered SQL string (produced upstream by the
// plan/SQL-emitter pipeline) so it can appear as a scalar expression,
// e.g. "(SELECT count(*) FROM ...) AS total".
type Subquery struct {
	SQL    string
	Params []any
}

func (s Subquery) Emit(ctx *Context) string {
	ctx.Params = append(ctx.Params, s.Params...)
	return "(" + s.SQL + ")"
}

func quoteIdent(s string) string { return `"` + s + `"` }
