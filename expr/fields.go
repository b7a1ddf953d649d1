package expr

import "golang.org/x/text/cases"

var foldCaser = cases.Fold()

// StringField is a type-safe string column reference with the engine's
// standard comparison vocabulary attached, so call sites read as
// `user.Email.EQ("a@b.com")` instead of manually building a Column and
// an Eq node.
type StringField struct{ Column }

// Str wraps a column reference as a StringField.
func Str(alias, name string) StringField { return StringField{Column{Alias: alias, Name: name}} }

func (f StringField) EQ(v string) Condition  { return Eq(f.Column, Const{v}) }
func (f StringField) NEQ(v string) Condition { return Ne(f.Column, Const{v}) }
func (f StringField) In(vs ...string) Condition {
	anys := make([]any, len(vs))
	for i, v := range vs {
		anys[i] = v
	}
	return InArray(f.Column, anys)
}
func (f StringField) NotIn(vs ...string) Condition { return Not(f.In(vs...)) }
func (f StringField) IsNull() Condition            { return IsNull(f.Column) }
func (f StringField) NotNull() Condition           { return IsNotNull(f.Column) }

// EqualFold renders a case-insensitive equality comparison using
// Postgres's lower(), after folding v through golang.org/x/text/cases so
// Unicode case folding (not just ASCII) matches what lower() does for
// common locales.
func (f StringField) EqualFold(v string) Condition {
	return Eq(lowerExpr{f.Column}, Const{foldCaser.String(v)})
}

// Contains renders "lhs LIKE '%v%'".
func (f StringField) Contains(v string) Condition {
	c, _ := Like(f.Column, Const{"%" + escapeLike(v) + "%"})
	return c
}

type lowerExpr struct{ inner Expression }

func (l lowerExpr) Emit(ctx *Context) string { return "lower(" + l.inner.Emit(ctx) + ")" }

func escapeLike(v string) string {
	r := make([]rune, 0, len(v))
	for _, c := range v {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}

// IntField is a type-safe integer column reference.
type IntField struct{ Column }

// Int is shorthand for IntField{Column{...}}.
func Int(alias, name string) IntField { return IntField{Column{Alias: alias, Name: name}} }

func (f IntField) EQ(v int64) Condition  { return Eq(f.Column, Const{v}) }
func (f IntField) NEQ(v int64) Condition { return Ne(f.Column, Const{v}) }
func (f IntField) GT(v int64) (Condition, error)  { return Gt(f.Column, Const{v}) }
func (f IntField) GTE(v int64) (Condition, error) { return Gte(f.Column, Const{v}) }
func (f IntField) LT(v int64) (Condition, error)  { return Lt(f.Column, Const{v}) }
func (f IntField) LTE(v int64) (Condition, error) { return Lte(f.Column, Const{v}) }
