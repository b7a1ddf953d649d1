// Package sqlgraph renders a fully resolved [plan.Plan], together with
// the joins the navigation join planner produced, into executable
// Postgres text and its positional parameter slice. It also classifies
// driver errors against Postgres's constraint-violation SQLSTATE codes.
package sqlgraph

import (
	"fmt"
	"strings"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/cte"
	"github.com/syssam/pgorm/expr"
	"github.com/syssam/pgorm/joinplanner"
	"github.com/syssam/pgorm/plan"
	"github.com/syssam/pgorm/schema"
)

// Statement is a fully rendered SQL statement and its parameters.
type Statement struct {
	SQL    string
	Params []any
}

// Emitter renders plans against a schema registry.
type Emitter struct {
	reg *schema.Registry
}

// New returns an Emitter backed by reg.
func New(reg *schema.Registry) *Emitter {
	return &Emitter{reg: reg}
}

// EmitSelect renders a select/grouped/joined plan, resolving its join
// paths fresh against the registry. CTEs attached to p are emitted in a
// leading WITH clause, in the order they were composed.
func (e *Emitter) EmitSelect(p plan.Plan) (Statement, error) {
	if p.Offset != nil && len(p.OrderBy) == 0 {
		return Statement{}, pgorm.NewPlanError("offset", "offset requires an order_by")
	}
	ctx := &expr.Context{}
	jp := joinplanner.New(e.reg, p.RootEntity, p.RootAlias)
	joinOverrides := make(map[string]bool, len(p.Joins)) // path -> explicit LeftJoin
	for _, j := range p.Joins {
		if _, err := jp.Resolve(j.Path); err != nil {
			return Statement{}, err
		}
		joinOverrides[j.Path] = j.LeftJoin
	}

	entity, ok := e.reg.Get(p.RootEntity)
	if !ok {
		return Statement{}, fmt.Errorf("sqlgraph: entity %q not registered", p.RootEntity)
	}

	var b strings.Builder

	if len(p.CTEs) > 0 {
		composer := cte.New()
		for _, c := range p.CTEs {
			composer.Add(c.Name, c.SQL, c.Params)
		}
		b.WriteString(composer.Render())
		b.WriteString(" ")
		ctx.Params = append(ctx.Params, composer.Params()...)
	}

	b.WriteString("SELECT ")
	if p.IsDistinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(projectionSQL(ctx, p, entity))

	fmt.Fprintf(&b, " FROM %s %s", entity.QualifiedTable(), quoteIdent(p.RootAlias))

	for _, j := range jp.Joins() {
		leftJoin := j.LeftJoin
		if override, ok := joinOverrides[j.Path]; ok {
			leftJoin = override
		}
		kw := "INNER JOIN"
		if leftJoin {
			kw = "LEFT JOIN"
		}
		targetEntity, ok := e.reg.Get(j.TargetTable)
		if !ok {
			return Statement{}, fmt.Errorf("sqlgraph: join target %q not registered", j.TargetTable)
		}
		on := expr.And(j.On...)
		fmt.Fprintf(&b, " %s %s %s ON %s", kw, targetEntity.QualifiedTable(), quoteIdent(j.Alias), on.Emit(ctx))
	}

	for _, cj := range p.CTEJoins {
		fmt.Fprintf(&b, " LEFT JOIN %s %s ON %s.%s = %s.%s",
			quoteIdent(cj.Name), quoteIdent(cj.Name),
			quoteIdent(p.RootAlias), quoteIdent(cj.RootColumn),
			quoteIdent(cj.Name), quoteIdent(cj.CTEColumn))
	}

	for _, lj := range p.LateralJoins {
		sql := cte.Renumber(lj.SQL, len(ctx.Params))
		ctx.Params = append(ctx.Params, lj.Params...)
		fmt.Fprintf(&b, " LEFT JOIN %s", sql)
	}

	if len(p.Filters) > 0 {
		fmt.Fprintf(&b, " WHERE %s", expr.And(p.Filters...).Emit(ctx))
	}

	if len(p.GroupBy) > 0 {
		parts := make([]string, len(p.GroupBy))
		for i, g := range p.GroupBy {
			parts[i] = g.Emit(ctx)
		}
		fmt.Fprintf(&b, " GROUP BY %s", strings.Join(parts, ", "))
	}

	if len(p.Having) > 0 {
		fmt.Fprintf(&b, " HAVING %s", expr.And(p.Having...).Emit(ctx))
	}

	if len(p.OrderBy) > 0 {
		parts := make([]string, len(p.OrderBy))
		for i, o := range p.OrderBy {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts[i] = o.Expr.Emit(ctx) + " " + dir
		}
		fmt.Fprintf(&b, " ORDER BY %s", strings.Join(parts, ", "))
	}

	if p.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %s", ctx.Bind(*p.Limit))
	}
	if p.Offset != nil {
		fmt.Fprintf(&b, " OFFSET %s", ctx.Bind(*p.Offset))
	}

	return Statement{SQL: b.String(), Params: ctx.Params}, nil
}

func projectionSQL(ctx *expr.Context, p plan.Plan, entity *schema.EntityDescriptor) string {
	if len(p.Projection) == 0 {
		parts := make([]string, len(entity.Properties))
		for i, prop := range entity.Properties {
			parts[i] = expr.Col(p.RootAlias, prop.ColumnName).Emit(ctx)
		}
		return strings.Join(parts, ", ")
	}
	parts := make([]string, 0, len(p.Projection))
	for _, f := range p.Projection {
		parts = append(parts, projectField(ctx, f, "")...)
	}
	return strings.Join(parts, ", ")
}

// projectField renders one projection node, flattening a to-one
// Children embed into one "AS parent__child" column per scalar leaf —
// prefix is the "__"-joined path of enclosing Object aliases, "" at the
// top of the projection so an un-nested field's SQL alias is unchanged.
func projectField(ctx *expr.Context, f plan.ProjectedField, prefix string) []string {
	alias := f.Alias
	if prefix != "" {
		alias = prefix + "__" + f.Alias
	}
	if f.Scalar != nil {
		return []string{fmt.Sprintf("%s AS %s", f.Scalar.Emit(ctx), quoteIdent(alias))}
	}
	if len(f.Children) > 0 {
		parts := make([]string, 0, len(f.Children))
		for _, child := range f.Children {
			parts = append(parts, projectField(ctx, child, alias)...)
		}
		return parts
	}
	// A Collection field reaching the emitter unresolved is a planning
	// bug — the collection strategy engine must have already replaced it
	// with a Scalar leaf. Emitting the bare alias at least surfaces as a
	// Postgres "column does not exist" error instead of silently
	// producing a row with the wrong shape.
	return []string{quoteIdent(alias)}
}

func quoteIdent(s string) string { return `"` + s + `"` }
