package sqlgraph_test

import (
	"strings"
	"testing"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/expr"
	"github.com/syssam/pgorm/field"
	"github.com/syssam/pgorm/nav"
	"github.com/syssam/pgorm/plan"
	"github.com/syssam/pgorm/schema"
	"github.com/syssam/pgorm/sqlgraph"
)

type userSchema struct{ pgorm.BaseSchema }

func (userSchema) Fields() []pgorm.Field {
	return []pgorm.Field{
		field.Int64("id").PrimaryKey().AutoIncrement(),
		field.String("email").Required(),
	}
}

func (userSchema) Navigations() []pgorm.Navigation {
	return []pgorm.Navigation{
		nav.To("posts", "Post").Column("author_id", "id"),
	}
}

type postSchema struct{ pgorm.BaseSchema }

func (postSchema) Fields() []pgorm.Field {
	return []pgorm.Field{
		field.Int64("id").PrimaryKey().AutoIncrement(),
		field.String("title").Required(),
	}
}

func (postSchema) Navigations() []pgorm.Navigation {
	return []pgorm.Navigation{
		nav.From("author", "User").Ref("posts").Required().Column("author_id", "id"),
	}
}

func newRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	if _, err := reg.Register("User", "", userSchema{}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("Post", "", postSchema{}); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestEmitSelectPlainEntity(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	p := plan.Plan{RootEntity: "User", RootAlias: "u"}
	stmt, err := e.EmitSelect(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stmt.SQL, `SELECT "u"."id", "u"."email" FROM "users" "u"`) {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
}

func TestEmitSelectWithFilterBindsParameter(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	p := plan.Plan{
		RootEntity: "User",
		RootAlias:  "u",
		Filters:    []expr.Condition{expr.Eq(expr.Col("u", "email"), expr.Const{"a@b.com"})},
	}
	stmt, err := e.EmitSelect(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt.SQL, `WHERE "u"."email" = $1`) {
		t.Fatalf("unexpected SQL: %s", stmt.SQL)
	}
	if len(stmt.Params) != 1 || stmt.Params[0] != "a@b.com" {
		t.Fatalf("unexpected params: %v", stmt.Params)
	}
}

func TestEmitSelectJoinUsesLeftJoinForOptionalNavigation(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	p := plan.Plan{
		RootEntity: "User",
		RootAlias:  "u",
		Joins:      []plan.Join{{Path: "posts", LeftJoin: true}},
	}
	stmt, err := e.EmitSelect(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt.SQL, `LEFT JOIN "posts" "u__posts"`) {
		t.Fatalf("expected LEFT JOIN for a left join over an optional navigation, got: %s", stmt.SQL)
	}
}

func TestEmitSelectJoinUsesInnerJoinForMandatoryNavigation(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	p := plan.Plan{
		RootEntity: "Post",
		RootAlias:  "p",
		Joins:      []plan.Join{{Path: "author"}},
	}
	stmt, err := e.EmitSelect(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt.SQL, `INNER JOIN "users" "p__author"`) {
		t.Fatalf("expected INNER JOIN for a mandatory navigation, got: %s", stmt.SQL)
	}
}

func TestEmitSelectFlattensObjectChildrenIntoPrefixedAliases(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	p := plan.Plan{
		RootEntity: "User",
		RootAlias:  "u",
		Projection: []plan.ProjectedField{
			{Alias: "id", Scalar: expr.Col("u", "id")},
			plan.Object("profile",
				plan.ProjectedField{Alias: "email", Scalar: expr.Col("u", "email")},
				plan.Object("nested", plan.ProjectedField{Alias: "x", Scalar: expr.Col("u", "id")}),
			),
		},
	}
	stmt, err := e.EmitSelect(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt.SQL, `"u"."id" AS "id"`) {
		t.Fatalf("expected un-nested alias unchanged: %s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, `"u"."email" AS "profile__email"`) {
		t.Fatalf("expected profile__email alias: %s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, `"u"."id" AS "profile__nested__x"`) {
		t.Fatalf("expected doubly-nested profile__nested__x alias: %s", stmt.SQL)
	}
}

func TestEmitSelectSplicesLateralJoinWithRenumberedParams(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	p := plan.Plan{
		RootEntity: "User",
		RootAlias:  "u",
		Filters:    []expr.Condition{expr.Eq(expr.Col("u", "email"), expr.Const{Value: "a@b.com"})},
		LateralJoins: []plan.LateralJoin{
			{SQL: `LATERAL (SELECT json_agg(to_jsonb(p.*)) AS "items" FROM (SELECT * FROM "posts" LIMIT $1) AS p) AS "posts" ON TRUE`, Params: []any{5}},
		},
	}
	stmt, err := e.EmitSelect(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt.SQL, `LEFT JOIN LATERAL (SELECT json_agg`) {
		t.Fatalf("expected a spliced LEFT JOIN LATERAL fragment: %s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, "LIMIT $1") {
		t.Fatalf("expected the lateral fragment's own $1 to pass through unchanged (nothing bound before it), got: %s", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, `WHERE "u"."email" = $2`) {
		t.Fatalf("expected the filter's placeholder renumbered to $2 after the lateral fragment's own param, got: %s", stmt.SQL)
	}
	if len(stmt.Params) != 2 || stmt.Params[0] != 5 || stmt.Params[1] != "a@b.com" {
		t.Fatalf("unexpected params: %v", stmt.Params)
	}
}

func TestEmitInsertChunksLargeBatches(t *testing.T) {
	reg := newRegistry(t)
	e := sqlgraph.New(reg)
	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = []any{int64(i), "user@example.com"}
	}
	stmts, err := e.EmitInsert("User", plan.MutationSpec{
		Columns: []string{"id", "email"},
		Values:  rows,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) == 0 {
		t.Fatal("expected at least one insert statement")
	}
	for _, s := range stmts {
		if !strings.HasPrefix(s.SQL, `INSERT INTO "users"`) {
			t.Fatalf("unexpected SQL: %s", s.SQL)
		}
	}
}
