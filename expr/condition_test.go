package expr

import "testing"

func TestEqWithNilConstRendersIsNull(t *testing.T) {
	ctx := &Context{}
	got := Eq(Col("u", "deleted_at"), Const{nil}).Emit(ctx)
	want := `"u"."deleted_at" IS NULL`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if len(ctx.Params) != 0 {
		t.Fatalf("expected no bound params for IS NULL, got %v", ctx.Params)
	}
}

func TestGtWithNilOperandIsInvalidCondition(t *testing.T) {
	_, err := Gt(Col("u", "age"), Const{nil})
	if err == nil {
		t.Fatal("expected an error for gt(field, null)")
	}
}

func TestInArrayEmptyRendersAlwaysFalse(t *testing.T) {
	ctx := &Context{}
	got := InArray(Col("u", "id"), nil).Emit(ctx)
	if got != "1=0" {
		t.Fatalf("got %q, want 1=0", got)
	}
}

func TestInArrayBindsEachValue(t *testing.T) {
	ctx := &Context{}
	got := InArray(Col("u", "id"), []any{1, 2, 3}).Emit(ctx)
	want := `"u"."id" IN ($1, $2, $3)`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if len(ctx.Params) != 3 {
		t.Fatalf("expected 3 bound params, got %d", len(ctx.Params))
	}
}

func TestAndOfNoConditionsRendersTrue(t *testing.T) {
	if And().Emit(&Context{}) != "TRUE" {
		t.Fatal("expected empty And() to render TRUE")
	}
}

func TestOrOfNoConditionsRendersFalse(t *testing.T) {
	if Or().Emit(&Context{}) != "FALSE" {
		t.Fatal("expected empty Or() to render FALSE")
	}
}

func TestBetweenWithNilBoundIsInvalidCondition(t *testing.T) {
	_, err := Between(Col("u", "age"), Const{18}, Const{nil})
	if err == nil {
		t.Fatal("expected an error for between with a nil bound")
	}
}

func TestParameterNumberingIsContiguousAcrossNodes(t *testing.T) {
	ctx := &Context{}
	cond := And(
		Eq(Col("u", "status"), Const{"active"}),
		InArray(Col("u", "id"), []any{1, 2}),
	)
	sql := cond.Emit(ctx)
	want := `("u"."status" = $1) AND ("u"."id" IN ($2, $3))`
	if sql != want {
		t.Fatalf("got %q, want %q", sql, want)
	}
}
