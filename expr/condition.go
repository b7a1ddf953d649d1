package expr

import (
	"fmt"
	"strings"

	"github.com/syssam/pgorm"
)

// binaryOp renders "lhs OP rhs".
type binaryOp struct {
	op       string
	lhs, rhs Expression
}

func (b binaryOp) Emit(ctx *Context) string {
	return fmt.Sprintf("%s %s %s", b.lhs.Emit(ctx), b.op, b.rhs.Emit(ctx))
}

// Eq renders "lhs = rhs", except when rhs is a nil Const, which renders
// "lhs IS NULL" instead of a three-valued false comparison.
func Eq(lhs, rhs Expression) Condition {
	if isNilConst(rhs) {
		return IsNull(lhs)
	}
	if isNilConst(lhs) {
		return IsNull(rhs)
	}
	return binaryOp{"=", lhs, rhs}
}

// Ne renders "lhs <> rhs"; like Eq, a nil operand maps to IS NOT NULL.
func Ne(lhs, rhs Expression) Condition {
	if isNilConst(rhs) {
		return IsNotNull(lhs)
	}
	if isNilConst(lhs) {
		return IsNotNull(rhs)
	}
	return binaryOp{"<>", lhs, rhs}
}

// Gt, Gte, Lt, Lte compare two expressions. A nil operand is an
// *pgorm.InvalidConditionError surfaced eagerly — these operators have
// no sensible null semantics, unlike Eq/Ne.
func Gt(lhs, rhs Expression) (Condition, error)  { return comparison(">", lhs, rhs) }
func Gte(lhs, rhs Expression) (Condition, error) { return comparison(">=", lhs, rhs) }
func Lt(lhs, rhs Expression) (Condition, error)  { return comparison("<", lhs, rhs) }
func Lte(lhs, rhs Expression) (Condition, error) { return comparison("<=", lhs, rhs) }

func comparison(op string, lhs, rhs Expression) (Condition, error) {
	if isNilConst(lhs) || isNilConst(rhs) {
		return nil, pgorm.NewInvalidConditionError(op, "operand is null; use eq/ne or is_null/is_not_null instead")
	}
	return binaryOp{op, lhs, rhs}, nil
}

// Like renders "lhs LIKE rhs".
func Like(lhs, rhs Expression) (Condition, error) {
	if isNilConst(rhs) {
		return nil, pgorm.NewInvalidConditionError("like", "pattern operand is null")
	}
	return binaryOp{"LIKE", lhs, rhs}, nil
}

// inArray renders a composed "lhs IN ($1, $2, ...)" condition, or the
// always-false literal "1=0" when values is empty — an empty IN list is
// valid input, not an error.
type inArray struct {
	lhs    Expression
	values []any
}

func (i inArray) Emit(ctx *Context) string {
	if len(i.values) == 0 {
		return "1=0"
	}
	placeholders := make([]string, len(i.values))
	for idx, v := range i.values {
		placeholders[idx] = ctx.Bind(v)
	}
	return fmt.Sprintf("%s IN (%s)", i.lhs.Emit(ctx), strings.Join(placeholders, ", "))
}

// InArray renders lhs IN (values...), or 1=0 when values is empty.
func InArray(lhs Expression, values []any) Condition {
	return inArray{lhs: lhs, values: values}
}

type isNull struct {
	e      Expression
	negate bool
}

func (n isNull) Emit(ctx *Context) string {
	if n.negate {
		return n.e.Emit(ctx) + " IS NOT NULL"
	}
	return n.e.Emit(ctx) + " IS NULL"
}

// IsNull renders "e IS NULL".
func IsNull(e Expression) Condition { return isNull{e: e} }

// IsNotNull renders "e IS NOT NULL".
func IsNotNull(e Expression) Condition { return isNull{e: e, negate: true} }

// Between renders "e BETWEEN lo AND hi"; either bound being nil is an
// *pgorm.InvalidConditionError.
func Between(e, lo, hi Expression) (Condition, error) {
	if isNilConst(lo) || isNilConst(hi) {
		return nil, pgorm.NewInvalidConditionError("between", "bound operand is null")
	}
	return betweenCond{e, lo, hi}, nil
}

type betweenCond struct{ e, lo, hi Expression }

func (b betweenCond) Emit(ctx *Context) string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", b.e.Emit(ctx), b.lo.Emit(ctx), b.hi.Emit(ctx))
}

type variadic struct {
	op    string // "AND" or "OR"
	parts []Condition
}

func (v variadic) Emit(ctx *Context) string {
	if len(v.parts) == 0 {
		if v.op == "AND" {
			return "TRUE"
		}
		return "FALSE"
	}
	rendered := make([]string, len(v.parts))
	for i, p := range v.parts {
		rendered[i] = "(" + p.Emit(ctx) + ")"
	}
	return strings.Join(rendered, " "+v.op+" ")
}

// And combines conditions with AND; an empty argument list renders TRUE.
func And(parts ...Condition) Condition { return variadic{op: "AND", parts: parts} }

// Or combines conditions with OR; an empty argument list renders FALSE.
func Or(parts ...Condition) Condition { return variadic{op: "OR", parts: parts} }

type not struct{ c Condition }

func (n not) Emit(ctx *Context) string { return "NOT (" + n.c.Emit(ctx) + ")" }

// Not negates a condition.
func Not(c Condition) Condition { return not{c} }

type existsCond struct {
	sub    Subquery
	negate bool
}

func (e existsCond) Emit(ctx *Context) string {
	kw := "EXISTS"
	if e.negate {
		kw = "NOT EXISTS"
	}
	return kw + " " + e.sub.Emit(ctx)
}

// Exists renders "EXISTS (subquery)".
func Exists(sub Subquery) Condition { return existsCond{sub: sub} }

// NotExists renders "NOT EXISTS (subquery)".
func NotExists(sub Subquery) Condition { return existsCond{sub: sub, negate: true} }

type inSubquery struct {
	lhs Expression
	sub Subquery
}

func (i inSubquery) Emit(ctx *Context) string {
	return fmt.Sprintf("%s IN %s", i.lhs.Emit(ctx), i.sub.Emit(ctx))
}

// InSubquery renders "lhs IN (subquery)".
func InSubquery(lhs Expression, sub Subquery) Condition { return inSubquery{lhs: lhs, sub: sub} }

func isNilConst(e Expression) bool {
	c, ok := e.(Const)
	return ok && c.Value == nil
}
