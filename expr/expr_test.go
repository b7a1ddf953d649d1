package expr

import "testing"

func TestColumnEmitQualifiesWithAlias(t *testing.T) {
	got := Col("u", "email").Emit(&Context{})
	if got != `"u"."email"` {
		t.Fatalf("got %q, want %q", got, `"u"."email"`)
	}
}

func TestColumnEmitWithoutAliasIsBare(t *testing.T) {
	got := Column{Name: "email"}.Emit(&Context{})
	if got != `"email"` {
		t.Fatalf("got %q, want %q", got, `"email"`)
	}
}

func TestAggregateEmitDefaultsToStar(t *testing.T) {
	got := Aggregate{Func: "count"}.Emit(&Context{})
	if got != "COUNT(*)" {
		t.Fatalf("got %q, want %q", got, "COUNT(*)")
	}
}

func TestAggregateEmitWithArgAndDistinct(t *testing.T) {
	got := Aggregate{Func: "count", Arg: Col("u", "email"), Distinct: true}.Emit(&Context{})
	if got != `COUNT(DISTINCT "u"."email")` {
		t.Fatalf("got %q, want %q", got, `COUNT(DISTINCT "u"."email")`)
	}
}

func TestSubqueryEmitWrapsSQLAndAppendsParams(t *testing.T) {
	ctx := &Context{Params: []any{"already-bound"}}
	got := Subquery{SQL: `SELECT 1 WHERE x = $1`, Params: []any{42}}.Emit(ctx)
	if got != "(SELECT 1 WHERE x = $1)" {
		t.Fatalf("got %q", got)
	}
	if len(ctx.Params) != 2 || ctx.Params[1] != 42 {
		t.Fatalf("expected the subquery's own params to be appended, got %v", ctx.Params)
	}
}

func TestConstEmitBindsValue(t *testing.T) {
	ctx := &Context{}
	got := Const{Value: "ada"}.Emit(ctx)
	if got != "$1" {
		t.Fatalf("got %q, want $1", got)
	}
	if len(ctx.Params) != 1 || ctx.Params[0] != "ada" {
		t.Fatalf("unexpected params: %v", ctx.Params)
	}
}

func TestRawEmitsVerbatimWithNoParams(t *testing.T) {
	ctx := &Context{}
	got := Raw{SQL: "now()"}.Emit(ctx)
	if got != "now()" {
		t.Fatalf("got %q, want now()", got)
	}
	if len(ctx.Params) != 0 {
		t.Fatalf("expected Raw to bind no params, got %v", ctx.Params)
	}
}

func TestRawSubstitutesArgsLeftToRightPreservingParamOrder(t *testing.T) {
	ctx := &Context{}
	got := Raw{SQL: "greatest(?, ?)", Args: []Expression{Const{Value: 1}, Const{Value: 2}}}.Emit(ctx)
	if got != "greatest($1, $2)" {
		t.Fatalf("got %q, want greatest($1, $2)", got)
	}
	if len(ctx.Params) != 2 || ctx.Params[0] != 1 || ctx.Params[1] != 2 {
		t.Fatalf("unexpected params: %v", ctx.Params)
	}
}

func TestRawWithFewerArgsThanMarkersLeavesExtraMarkersLiteral(t *testing.T) {
	ctx := &Context{}
	got := Raw{SQL: "a ? b ?", Args: []Expression{Const{Value: "x"}}}.Emit(ctx)
	if got != "a $1 b ?" {
		t.Fatalf("got %q", got)
	}
}
