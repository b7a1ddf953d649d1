// Package plan holds the immutable value representation the query
// builder graph accumulates: a Plan is the frozen description of one
// query the builders in package query accumulate, which the join
// planner, collection strategy engine, and SQL emitter then consume
// read-only. Every mutator on a Plan returns a new Plan; nothing is
// shared-mutated.
package plan

import "github.com/syssam/pgorm/expr"

// CollectionTerminal names how a to-many navigation's result set is
// ultimately consumed. Only FirstOrDefault changes the SQL (a Lateral
// build adds LIMIT 1 when no limit or order is set); strategy selection
// does not look at it, and the row materializer decodes every terminal
// as a list.
type CollectionTerminal int

const (
	ToList CollectionTerminal = iota
	ToPrimitiveList
	FirstOrDefault
	Count
	Sum
	Min
	Max
	Exists
	SelectMany
)

// OrderTerm is one ORDER BY term.
type OrderTerm struct {
	Expr       expr.Expression
	Descending bool
}

// QueryOptions are per-query overrides of engine-wide defaults; the only
// one is which collection strategy to prefer.
type QueryOptions struct {
	PreferredStrategy string // "cte", "temptable", "lateral"; "" = engine default
}

// ProjectedField is one node of the projection tree a Select() call
// builds up: a scalar column/expression, an embedded to-one object whose
// fields hang off Children, or a to-many collection with its own nested
// Plan. Exactly one of Scalar, Children, or Collection is set.
type ProjectedField struct {
	Alias string

	Scalar expr.Expression // set when this is a leaf scalar

	// Children is set when this is a to-one embedded object; each entry
	// is itself a full ProjectedField (scalar, nested object, or even a
	// collection), decoded into a nested value keyed by Alias. The SQL
	// emitter flattens these into "parent__child" column aliases (see
	// the shape-stable decoding invariant) since a single SELECT list
	// has no native nesting; the materializer reassembles the tree from
	// that alias path.
	Children []ProjectedField

	Collection *Plan              // set when this is a to-many navigation
	Path       string             // the navigation property name on RootEntity this collection traverses; set when Collection != nil
	Terminal   CollectionTerminal // meaningful only when Collection != nil
}

// Object returns a ProjectedField embedding a to-one navigation's fields
// inline under alias, decoded as a nested object rather than a flat
// scalar.
func Object(alias string, children ...ProjectedField) ProjectedField {
	return ProjectedField{Alias: alias, Children: children}
}

// Plan is the frozen, immutable description of one query. Select,
// Grouped, Joined, and Mutation plans share this struct; Kind
// distinguishes which terminal operations are legal against it.
type Plan struct {
	Kind Kind

	RootEntity string
	RootAlias  string

	Filters    []expr.Condition
	OrderBy    []OrderTerm
	Limit      *int
	Offset     *int
	IsDistinct bool

	Joins []Join

	Projection []ProjectedField // empty => select the whole entity

	GroupBy []expr.Expression
	Having  []expr.Condition

	CTEs     []CTE
	CTEJoins []CTEJoin

	// LateralJoins holds the Lateral collection strategy's FROM-clause
	// fragments, rendered after CTEJoins and before WHERE.
	LateralJoins []LateralJoin

	Options QueryOptions

	// Mutation-only fields.
	Mutation *MutationSpec
}

// Kind distinguishes the terminal vocabulary legal against a Plan.
type Kind int

const (
	KindSelect Kind = iota
	KindGrouped
	KindJoined
	KindMutation
)

// Join is one navigation traversal baked into the plan by the join
// planner; Plan itself only records that a join over Path was requested
// with the given alias — the planner resolves Path against the schema
// registry and fills in columns at SQL-emission time.
type Join struct {
	Path      string // dotted navigation path from RootEntity, e.g. "author.department"
	Alias     string
	LeftJoin  bool // false => INNER JOIN
	Condition []expr.Condition // extra ON-clause predicates beyond the FK correlation
}

// CTE is one named common table expression composed into the plan,
// produced by the collection strategy engine or an explicit With() call.
type CTE struct {
	Name   string
	SQL    string
	Params []any
}

// CTEJoin correlates a composed CTE back to the root query by equality
// on one column pair: RootColumn on the root alias against CTEColumn on
// the named CTE. Used by the CTE collection strategy to LEFT JOIN an
// aggregated json_agg column back onto its parent row.
type CTEJoin struct {
	Name       string
	RootColumn string
	CTEColumn  string
}

// LateralJoin is one Lateral collection strategy fragment: a fully
// rendered "LATERAL (subquery) AS alias ON TRUE" fragment, with its own
// parameters bound against a private *expr.Context starting at $1 — the
// SQL emitter renumbers them to continue from whatever the outer
// statement has already bound before splicing SQL into the FROM clause
// unmodified otherwise.
type LateralJoin struct {
	SQL    string
	Params []any
}

// MutationSpec carries the payload for Insert/Update/Delete/Upsert
// terminals; Plan.Kind == KindMutation whenever this is non-nil.
type MutationSpec struct {
	Op         MutationOp
	Columns    []string
	Values     [][]any // row-major; len(Values[i]) == len(Columns)
	Returning  []string
	ConflictOn []string // Upsert only
	UpdateSet  []string // Upsert only: columns to overwrite on conflict
}

// MutationOp names the kind of data-changing statement a MutationSpec
// describes.
type MutationOp int

const (
	Insert MutationOp = iota
	Update
	Delete
	Upsert
)

// Clone returns a shallow copy of p with its slice fields copied so a
// builder method can append without aliasing the receiver's backing
// arrays — the immutability contract every fluent method relies on.
func (p Plan) Clone() Plan {
	np := p
	np.Filters = append([]expr.Condition(nil), p.Filters...)
	np.OrderBy = append([]OrderTerm(nil), p.OrderBy...)
	np.Joins = append([]Join(nil), p.Joins...)
	np.Projection = append([]ProjectedField(nil), p.Projection...)
	np.GroupBy = append([]expr.Expression(nil), p.GroupBy...)
	np.Having = append([]expr.Condition(nil), p.Having...)
	np.CTEs = append([]CTE(nil), p.CTEs...)
	np.CTEJoins = append([]CTEJoin(nil), p.CTEJoins...)
	np.LateralJoins = append([]LateralJoin(nil), p.LateralJoins...)
	if p.Limit != nil {
		l := *p.Limit
		np.Limit = &l
	}
	if p.Offset != nil {
		o := *p.Offset
		np.Offset = &o
	}
	return np
}
