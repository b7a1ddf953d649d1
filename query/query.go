// Package query is the fluent, immutable entry point callers actually
// use. Every method returns a new *Query wrapping a cloned [plan.Plan]
// rather than mutating the receiver, so a partially built query can be
// safely shared and branched — e.g. a base query reused across two
// terminals with different filters.
package query

import (
	"context"
	"strings"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/collection"
	"github.com/syssam/pgorm/driver"
	"github.com/syssam/pgorm/expr"
	"github.com/syssam/pgorm/mapper"
	"github.com/syssam/pgorm/materializer"
	"github.com/syssam/pgorm/plan"
	"github.com/syssam/pgorm/schema"
	"github.com/syssam/pgorm/sqlgraph"
	"github.com/syssam/pgorm/txscope"
)

// Query is the fluent query builder. The zero value is not usable;
// construct one with Entity.
type Query struct {
	reg *schema.Registry
	drv driver.Driver
	p   plan.Plan
}

// Entity starts a new query rooted at entityName, aliased to its first
// letter lowercased by convention. No builder method chooses a
// different root alias.
func Entity(reg *schema.Registry, drv driver.Driver, entityName string) *Query {
	return &Query{
		reg: reg,
		drv: drv,
		p: plan.Plan{
			Kind:       plan.KindSelect,
			RootEntity: entityName,
			RootAlias:  rootAlias(entityName),
		},
	}
}

func rootAlias(entity string) string {
	if entity == "" {
		return "t"
	}
	r := []rune(entity)
	return strings.ToLower(string(r[:1]))
}

func (q *Query) clone() *Query {
	nq := *q
	nq.p = q.p.Clone()
	return &nq
}

// Where ANDs additional filter conditions onto the query.
func (q *Query) Where(conds ...expr.Condition) *Query {
	nq := q.clone()
	nq.p.Filters = append(nq.p.Filters, conds...)
	return nq
}

// OrderBy appends an ORDER BY term.
func (q *Query) OrderBy(e expr.Expression, descending bool) *Query {
	nq := q.clone()
	nq.p.OrderBy = append(nq.p.OrderBy, plan.OrderTerm{Expr: e, Descending: descending})
	return nq
}

// Limit sets the root query's row limit.
func (q *Query) Limit(n int) *Query {
	nq := q.clone()
	nq.p.Limit = &n
	return nq
}

// Offset sets the root query's row offset. A PlanError surfaces at
// emission time, not here, if Offset is used without a declared
// OrderBy, since paging without one is not deterministic.
func (q *Query) Offset(n int) *Query {
	nq := q.clone()
	nq.p.Offset = &n
	return nq
}

// Distinct adds DISTINCT to the projection.
func (q *Query) Distinct() *Query {
	nq := q.clone()
	nq.p.IsDistinct = true
	return nq
}

// Select narrows the projection to the given fields instead of every
// column on the root entity.
func (q *Query) Select(fields ...plan.ProjectedField) *Query {
	nq := q.clone()
	nq.p.Projection = append([]plan.ProjectedField(nil), fields...)
	return nq
}

// GroupBy adds a GROUP BY expression and sets the plan's Kind to
// Grouped. The terminals do not check Kind, so none is rejected against
// a grouped plan.
func (q *Query) GroupBy(exprs ...expr.Expression) *Query {
	nq := q.clone()
	nq.p.GroupBy = append(nq.p.GroupBy, exprs...)
	nq.p.Kind = plan.KindGrouped
	return nq
}

// Having adds a HAVING condition.
func (q *Query) Having(conds ...expr.Condition) *Query {
	nq := q.clone()
	nq.p.Having = append(nq.p.Having, conds...)
	return nq
}

// InnerJoin traverses a navigation path, forcing an INNER JOIN
// regardless of the navigation's own mandatory flag.
func (q *Query) InnerJoin(path string) *Query {
	return q.join(path, false)
}

// LeftJoin traverses a navigation path, forcing a LEFT JOIN regardless
// of the navigation's own mandatory flag.
func (q *Query) LeftJoin(path string) *Query {
	return q.join(path, true)
}

func (q *Query) join(path string, left bool) *Query {
	nq := q.clone()
	nq.p.Kind = plan.KindJoined
	nq.p.Joins = append(nq.p.Joins, plan.Join{Path: path, LeftJoin: left})
	return nq
}

// WithQueryOptions overrides engine-wide defaults for this query alone.
func (q *Query) WithQueryOptions(opts plan.QueryOptions) *Query {
	nq := q.clone()
	nq.p.Options = opts
	return nq
}

// Plan returns the immutable plan this builder has accumulated so far,
// for callers that want to hand it to the collection strategy engine or
// inspect it in a test without going through a terminal.
func (q *Query) Plan() plan.Plan { return q.p }

func (q *Query) emit() (sqlgraph.Statement, error) {
	return sqlgraph.New(q.reg).EmitSelect(q.p)
}

func (q *Query) run(ctx context.Context) ([]materializer.Row, error) {
	conn := txscope.ConnOrTx(ctx, q.drv)

	p, bindings, cleanup, err := q.resolveCollections(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, stmt := range cleanup {
			_, _ = conn.Exec(ctx, stmt)
		}
	}()

	stmt, err := sqlgraph.New(q.reg).EmitSelect(p)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, err
	}
	if bindings == nil {
		bindings, err = q.wholeEntityBindings()
		if err != nil {
			return nil, err
		}
	}
	return materializer.Decode(rows, bindings)
}

// wholeEntityBindings derives ColumnBinding entries for the no-Select
// case, where EmitSelect projects every property of the root entity in
// declaration order.
func (q *Query) wholeEntityBindings() ([]materializer.ColumnBinding, error) {
	entity, ok := q.reg.Get(q.p.RootEntity)
	if !ok {
		return nil, pgorm.NewConfigurationError(q.p.RootEntity, "not registered")
	}
	out := make([]materializer.ColumnBinding, len(entity.Properties))
	for i, p := range entity.Properties {
		out[i] = materializer.ColumnBinding{
			Index:     i,
			AliasPath: q.p.RootAlias,
			FieldName: p.PropertyName,
			Mapper:    p.Mapper,
		}
	}
	return out, nil
}

// pendingCollection is one to-many ProjectedField resolveTree found,
// with its child plan already recursively resolved (any collections
// nested inside it folded into scalar leaves of their own) and ready to
// be emitted once the strategy engine has picked how.
type pendingCollection struct {
	index      int
	field      plan.ProjectedField
	childPlan  plan.Plan
	rootColumn string
	cteColumn  string
	itemAlias  string
	mappers    map[string]mapper.Mapper
}

// resolveCollections folds every to-many [plan.ProjectedField] the root
// plan projects into a scalar leaf the SQL emitter already knows how to
// render, building whichever of the three interchangeable collection
// strategies the strategy engine selects for it — composing a CTE,
// populating a server-side temp table ahead of the root query, or
// splicing a correlated LATERAL join into the FROM clause. It returns
// the plan ready for EmitSelect, the bindings to decode the result with
// (nil when the query has no explicit Select, signaling the caller to
// fall back to wholeEntityBindings), and any cleanup statements (temp
// table drops) the caller must run after the root query has executed.
// Sibling collections resolve and build concurrently via the collection
// strategy engine; a collection's own child plan is resolved the same
// way before it is emitted, so a collection nested inside another
// collection is folded bottom-up before its parent ever sees it.
func (q *Query) resolveCollections(ctx context.Context, conn driver.Conn) (plan.Plan, []materializer.ColumnBinding, []string, error) {
	return q.resolveTree(ctx, conn, q.p)
}

func (q *Query) resolveTree(ctx context.Context, conn driver.Conn, root plan.Plan) (plan.Plan, []materializer.ColumnBinding, []string, error) {
	p := root.Clone()
	if len(p.Projection) == 0 {
		return p, nil, nil, nil
	}

	rootEntity, ok := q.reg.Get(p.RootEntity)
	if !ok {
		return plan.Plan{}, nil, nil, pgorm.NewConfigurationError(p.RootEntity, "not registered")
	}

	var pendings []pendingCollection
	var reqs []collection.Request
	var cleanup []string

	for i, f := range p.Projection {
		if f.Collection == nil {
			continue
		}
		nav, ok := rootEntity.NavigationProperty(f.Path)
		if !ok {
			return plan.Plan{}, nil, nil, pgorm.NewPlanError("collection", "%q is not a navigation of %s", f.Path, p.RootEntity)
		}
		if len(nav.Keys) != 1 || nav.Keys[0].IsLiteral() {
			return plan.Plan{}, nil, nil, pgorm.NewPlanError("collection", "navigation %q needs exactly one column correlation key to be collected", f.Path)
		}

		// Resolve the child plan's own nested collections before this
		// collection is ever emitted, so a Collection field inside it
		// never reaches the SQL emitter unresolved.
		childPlan, _, childCleanup, err := q.resolveTree(ctx, conn, *f.Collection)
		if err != nil {
			return plan.Plan{}, nil, nil, err
		}
		cleanup = append(cleanup, childCleanup...)

		mappers, err := q.childItemMappers(childPlan)
		if err != nil {
			return plan.Plan{}, nil, nil, err
		}

		// nav.IsInverse means the child side owns the FK pointing back
		// at the root, the direction every to-many navigation declares.
		k := nav.Keys[0]
		pendings = append(pendings, pendingCollection{
			index:      i,
			field:      f,
			childPlan:  childPlan,
			rootColumn: k.PrincipalColumn,
			cteColumn:  k.ForeignColumn,
			itemAlias:  childPlan.RootAlias,
			mappers:    mappers,
		})
		reqs = append(reqs, collection.Request{
			Alias:           f.Alias,
			Terminal:        f.Terminal,
			PerParentLimit:  f.Collection.Limit,
			PerParentOffset: f.Collection.Offset,
			HasOrderBy:      len(f.Collection.OrderBy) > 0,
			Preferred:       p.Options.PreferredStrategy,
		})
	}

	bindings := projectionBindings(p)
	if len(pendings) == 0 {
		return p, bindings, cleanup, nil
	}

	frags, err := collection.BuildAll(ctx, reqs, func(_ context.Context, req collection.Request, strategy collection.Strategy) (collection.Fragment, error) {
		for _, pc := range pendings {
			if pc.field.Alias != req.Alias {
				continue
			}
			return q.buildFragment(pc, p, strategy)
		}
		return collection.Fragment{}, pgorm.NewPlanError("collection", "internal: unmatched collection request %s", req.Alias)
	})
	if err != nil {
		return plan.Plan{}, nil, nil, err
	}

	for i, frag := range frags {
		pc := pendings[i]
		switch frag.Strategy {
		case collection.CTE:
			p.CTEs = append(p.CTEs, plan.CTE{Name: frag.CTEName, SQL: frag.CTESQL, Params: frag.CTEParams})
			p.CTEJoins = append(p.CTEJoins, plan.CTEJoin{Name: frag.CTEName, RootColumn: pc.rootColumn, CTEColumn: pc.cteColumn})
		case collection.Lateral:
			p.LateralJoins = append(p.LateralJoins, plan.LateralJoin{SQL: frag.LateralSQL, Params: frag.LateralParams})
		case collection.TempTable:
			if err := q.execTempTable(ctx, conn, frag); err != nil {
				return plan.Plan{}, nil, nil, err
			}
			p.CTEJoins = append(p.CTEJoins, plan.CTEJoin{Name: frag.CTEName, RootColumn: pc.rootColumn, CTEColumn: pc.cteColumn})
			cleanup = append(cleanup, frag.TempTableStatements[len(frag.TempTableStatements)-1])
		}
		p.Projection[pc.index] = plan.ProjectedField{Alias: pc.field.Alias, Scalar: expr.Col(frag.CTEName, "items")}
		bindings[pc.index] = materializer.ColumnBinding{
			Index:       pc.index,
			AliasPath:   p.RootAlias,
			FieldName:   pc.field.Alias,
			IsJSONAgg:   true,
			ItemMappers: pc.mappers,
		}
	}
	return p, bindings, cleanup, nil
}

// buildFragment emits pc's child plan and hands it to the strategy the
// collection engine picked, correlating a Lateral child to its one
// parent row with a filter added just for this build — CTE and
// TempTable correlate afterward via a plain equality join instead,
// since they aggregate every parent's children in one pass.
func (q *Query) buildFragment(pc pendingCollection, parent plan.Plan, strategy collection.Strategy) (collection.Fragment, error) {
	switch strategy {
	case collection.CTE:
		childStmt, err := sqlgraph.New(q.reg).EmitSelect(pc.childPlan)
		if err != nil {
			return collection.Fragment{}, err
		}
		return collection.BuildCTE(pc.field.Alias+"_cte", childStmt.SQL, pc.cteColumn, pc.itemAlias, childStmt.Params), nil

	case collection.Lateral:
		correlated := pc.childPlan.Clone()
		correlated.Filters = append(correlated.Filters, expr.Eq(
			expr.Col(correlated.RootAlias, pc.cteColumn),
			expr.Col(parent.RootAlias, pc.rootColumn),
		))
		if pc.field.Terminal == plan.FirstOrDefault && correlated.Limit == nil && len(correlated.OrderBy) == 0 {
			one := 1
			correlated.Limit = &one
		}
		childStmt, err := sqlgraph.New(q.reg).EmitSelect(correlated)
		if err != nil {
			return collection.Fragment{}, err
		}
		return collection.BuildLateral(pc.itemAlias, childStmt.SQL, childStmt.Params), nil

	case collection.TempTable:
		childStmt, err := sqlgraph.New(q.reg).EmitSelect(pc.childPlan)
		if err != nil {
			return collection.Fragment{}, err
		}
		return collection.BuildTempTable(pc.field.Alias+"_tmp", childStmt.SQL, pc.cteColumn, pc.itemAlias, childStmt.Params), nil
	}
	return collection.Fragment{}, pgorm.NewPlanError("collection", "unknown collection strategy %s", strategy)
}

// execTempTable runs the TempTable strategy's CREATE TABLE/CREATE INDEX
// statements ahead of the root query. The table is ON COMMIT DROP, so
// this must run against the same connection the root query itself will
// use — a caller running outside an explicit transaction scope risks
// the pool handing the root query a different physical connection than
// the one that created the table, which is why txscope's connection,
// not a fresh one, is threaded through here.
func (q *Query) execTempTable(ctx context.Context, conn driver.Conn, frag collection.Fragment) error {
	create, index := frag.TempTableStatements[0], frag.TempTableStatements[1]
	if q.drv.Capabilities().MultiStatement {
		if _, err := conn.Exec(ctx, create+"; "+index, frag.CTEParams...); err != nil {
			return pgorm.NewDriverError("temptable create", err)
		}
		return nil
	}
	if _, err := conn.Exec(ctx, create, frag.CTEParams...); err != nil {
		return pgorm.NewDriverError("temptable create", err)
	}
	if _, err := conn.Exec(ctx, index); err != nil {
		return pgorm.NewDriverError("temptable index", err)
	}
	return nil
}

// childItemMappers resolves, for a collection's child plan, which of
// its projected fields carry a value mapper — keyed by the SQL column
// alias the child statement gives that field, the same key
// json_agg(to_jsonb(...)) uses, so decodeJSONAgg can apply from_driver
// to the right item field without re-discovering it from the JSON.
func (q *Query) childItemMappers(childPlan plan.Plan) (map[string]mapper.Mapper, error) {
	entity, ok := q.reg.Get(childPlan.RootEntity)
	if !ok {
		return nil, pgorm.NewConfigurationError(childPlan.RootEntity, "not registered")
	}
	if len(childPlan.Projection) == 0 {
		out := make(map[string]mapper.Mapper, len(entity.Properties))
		for _, prop := range entity.Properties {
			if prop.Mapper != nil {
				out[prop.ColumnName] = prop.Mapper
			}
		}
		return out, nil
	}
	byColumn := make(map[string]mapper.Mapper, len(entity.Properties))
	for _, prop := range entity.Properties {
		byColumn[prop.ColumnName] = prop.Mapper
	}
	out := make(map[string]mapper.Mapper)
	for _, f := range childPlan.Projection {
		col, ok := f.Scalar.(expr.Column)
		if !ok {
			continue
		}
		if m := byColumn[col.Name]; m != nil {
			out[f.Alias] = m
		}
	}
	return out, nil
}

// projectionBindings walks p's projection tree and returns one
// ColumnBinding per scalar leaf, in emission order — a leaf nested
// under a to-one Children embed groups under
// "rootAlias__parentAlias__...", matching the "__"-joined alias path
// [sqlgraph.projectField] gives its flattened column.
func projectionBindings(p plan.Plan) []materializer.ColumnBinding {
	var out []materializer.ColumnBinding
	idx := 0
	var walk func(f plan.ProjectedField, aliasPath string)
	walk = func(f plan.ProjectedField, aliasPath string) {
		if len(f.Children) > 0 {
			childPath := aliasPath + "__" + f.Alias
			for _, c := range f.Children {
				walk(c, childPath)
			}
			return
		}
		out = append(out, materializer.ColumnBinding{Index: idx, AliasPath: aliasPath, FieldName: f.Alias})
		idx++
	}
	for _, f := range p.Projection {
		walk(f, p.RootAlias)
	}
	return out
}

// ToList runs the query and returns every matching row.
func (q *Query) ToList(ctx context.Context) ([]materializer.Row, error) {
	return q.run(ctx)
}

// First returns the first matching row, or a NotFoundError if none
// matched.
func (q *Query) First(ctx context.Context) (materializer.Row, error) {
	rows, err := q.Limit(1).run(ctx)
	if err != nil {
		return nil, err
	}
	return materializer.First(q.p.RootEntity, rows)
}

// FirstOrDefault returns the first matching row, or nil if none
// matched.
func (q *Query) FirstOrDefault(ctx context.Context) (materializer.Row, error) {
	rows, err := q.Limit(1).run(ctx)
	if err != nil {
		return nil, err
	}
	return materializer.FirstOrDefault(rows), nil
}

// Only returns the single matching row, erroring if there is not
// exactly one.
func (q *Query) Only(ctx context.Context) (materializer.Row, error) {
	rows, err := q.Limit(2).run(ctx)
	if err != nil {
		return nil, err
	}
	return materializer.Only(q.p.RootEntity, rows)
}

// Count returns the number of matching rows without materializing them.
func (q *Query) Count(ctx context.Context) (int64, error) {
	nq := q.clone()
	nq.p.Projection = []plan.ProjectedField{{Alias: "count", Scalar: expr.Aggregate{Func: "count"}}}
	nq.p.OrderBy = nil
	nq.p.Limit = nil
	nq.p.Offset = nil
	stmt, err := nq.emit()
	if err != nil {
		return 0, err
	}
	conn := txscope.ConnOrTx(ctx, q.drv)
	var n int64
	if err := conn.QueryRow(ctx, stmt.SQL, stmt.Params...).Scan(&n); err != nil {
		return 0, pgorm.NewDriverError("count", err)
	}
	return n, nil
}

// Exists reports whether any row matches.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	rows, err := q.Limit(1).run(ctx)
	if err != nil {
		return false, err
	}
	return materializer.Exists(rows), nil
}
