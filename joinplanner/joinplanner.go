// Package joinplanner walks the dotted navigation paths recorded on a
// [plan.Plan], resolves
// each hop against the schema registry, assigns every joined table a
// canonical alias, and decides INNER vs LEFT JOIN from each navigation's
// mandatory flag. Two plans that traverse the same paths always produce
// the same aliases, so generated SQL is stable across runs and diffable
// in logs.
package joinplanner

import (
	"fmt"
	"strings"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/expr"
	"github.com/syssam/pgorm/schema"
)

// ResolvedJoin is one join the planner emitted for a traversed path.
type ResolvedJoin struct {
	Path        string
	Alias       string
	TargetTable string
	LeftJoin    bool
	On          []expr.Condition
}

// Planner resolves navigation paths against a registry, deriving
// canonical aliases rooted at a single query's root alias.
type Planner struct {
	reg       *schema.Registry
	rootEntity string
	rootAlias  string
	resolved   map[string]ResolvedJoin // path -> join, memoized within one plan
	order      []string                // insertion order, for deterministic emission
}

// New returns a Planner for queries rooted at rootEntity, aliased
// rootAlias.
func New(reg *schema.Registry, rootEntity, rootAlias string) *Planner {
	return &Planner{
		reg:        reg,
		rootEntity: rootEntity,
		rootAlias:  rootAlias,
		resolved:   make(map[string]ResolvedJoin),
	}
}

// CanonicalAlias derives the alias for a dotted path the way the
// planner always will, without performing or memoizing a resolution:
// "parent__child__leaf", rooted at the query's root alias segment being
// implicit. Two calls with the same path always return the same string,
// within and across Planner instances, which is what lets two plans
// that traverse the same paths line up in generated SQL.
func CanonicalAlias(rootAlias, path string) string {
	segments := strings.Split(path, ".")
	return rootAlias + "__" + strings.Join(segments, "__")
}

// Resolve walks path (e.g. "author.department") from the planner's root
// entity, registering a join for every hop not already resolved, and
// returns the full chain of joins needed to reach the final segment's
// table. Calling Resolve twice with the same path is idempotent: the
// second call returns the memoized joins without adding duplicates.
func (p *Planner) Resolve(path string) ([]ResolvedJoin, error) {
	segments := strings.Split(path, ".")
	cur := p.rootEntity
	curAlias := p.rootAlias
	var prefix []string
	var out []ResolvedJoin

	for _, seg := range segments {
		prefix = append(prefix, seg)
		subPath := strings.Join(prefix, ".")

		if existing, ok := p.resolved[subPath]; ok {
			out = append(out, existing)
			cur = navTarget(p.reg, cur, seg)
			curAlias = existing.Alias
			continue
		}

		entityDesc, ok := p.reg.Get(cur)
		if !ok {
			return nil, pgorm.NewConfigurationError(cur, "not registered")
		}
		navDesc, ok := entityDesc.NavigationProperty(seg)
		if !ok {
			return nil, pgorm.NewPlanError("join", fmt.Sprintf("%q is not a navigation of %s", seg, cur))
		}

		alias := CanonicalAlias(p.rootAlias, subPath)
		on, err := correlationConditions(navDesc, curAlias, alias)
		if err != nil {
			return nil, err
		}

		rj := ResolvedJoin{
			Path:        subPath,
			Alias:       alias,
			TargetTable: navDesc.TargetEntity,
			LeftJoin:    !navDesc.IsMandatory,
			On:          on,
		}
		p.resolved[subPath] = rj
		p.order = append(p.order, subPath)
		out = append(out, rj)

		cur = navDesc.TargetEntity
		curAlias = alias
	}
	return out, nil
}

// Joins returns every join resolved so far, in first-resolved order —
// the order the SQL emitter renders JOIN clauses in.
func (p *Planner) Joins() []ResolvedJoin {
	out := make([]ResolvedJoin, 0, len(p.order))
	for _, path := range p.order {
		out = append(out, p.resolved[path])
	}
	return out
}

func navTarget(reg *schema.Registry, entity, property string) string {
	e, ok := reg.Get(entity)
	if !ok {
		return ""
	}
	n, ok := e.NavigationProperty(property)
	if !ok {
		return ""
	}
	return n.TargetEntity
}

// correlationConditions turns a navigation's key parts into ON-clause
// equality conditions between the parent alias and the newly joined
// alias, honoring literal key parts verbatim — e.g. a polymorphic
// association's type discriminator.
func correlationConditions(nav *schema.NavigationDescriptor, parentAlias, joinAlias string) ([]expr.Condition, error) {
	if len(nav.Keys) == 0 {
		return nil, pgorm.NewPlanError("join", fmt.Sprintf("navigation %q declares no correlation keys", nav.PropertyName))
	}
	conds := make([]expr.Condition, 0, len(nav.Keys))
	for _, k := range nav.Keys {
		if k.IsLiteral() {
			lhs := expr.Col(joinAlias, literalColumnHint(nav))
			conds = append(conds, expr.Eq(lhs, literalExpr(k.Literal)))
			continue
		}
		// The foreign-key column lives on whichever side owns the FK:
		// the non-inverse side. IsInverse means the *target* alias owns
		// the FK pointing back at the parent.
		var lhs, rhs expr.Expression
		if nav.IsInverse {
			lhs = expr.Col(joinAlias, k.ForeignColumn)
			rhs = expr.Col(parentAlias, k.PrincipalColumn)
		} else {
			lhs = expr.Col(parentAlias, k.ForeignColumn)
			rhs = expr.Col(joinAlias, k.PrincipalColumn)
		}
		conds = append(conds, expr.Eq(lhs, rhs))
	}
	return conds, nil
}

// literalColumnHint is a placeholder for the discriminator column name
// when a navigation mixes literal and column key parts; real usage
// supplies the column via nav.Keys ordering and this is only reached for
// a key part that is purely literal with no paired column, which the
// join planner's caller is expected to have named explicitly upstream.
func literalColumnHint(nav *schema.NavigationDescriptor) string {
	for _, k := range nav.Keys {
		if !k.IsLiteral() {
			return k.ForeignColumn
		}
	}
	return nav.PropertyName
}

func literalExpr(v any) expr.Expression {
	if raw, ok := v.(schema.RawSQL); ok {
		return expr.Raw{SQL: string(raw)}
	}
	return expr.Const{Value: v}
}
