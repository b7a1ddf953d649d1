package joinplanner_test

import (
	"testing"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/field"
	"github.com/syssam/pgorm/joinplanner"
	"github.com/syssam/pgorm/nav"
	"github.com/syssam/pgorm/schema"
)

type userSchema struct{ pgorm.BaseSchema }

func (userSchema) Fields() []pgorm.Field {
	return []pgorm.Field{field.Int64("id").PrimaryKey().AutoIncrement()}
}

func (userSchema) Navigations() []pgorm.Navigation {
	return []pgorm.Navigation{nav.From("department", "Department").Ref("users").Column("department_id", "id")}
}

type departmentSchema struct{ pgorm.BaseSchema }

func (departmentSchema) Fields() []pgorm.Field {
	return []pgorm.Field{field.Int64("id").PrimaryKey().AutoIncrement()}
}

func (departmentSchema) Navigations() []pgorm.Navigation {
	return []pgorm.Navigation{nav.To("users", "User").Column("department_id", "id")}
}

func TestCanonicalAliasIsStableAcrossPlanners(t *testing.T) {
	a1 := joinplanner.CanonicalAlias("u", "department.manager")
	a2 := joinplanner.CanonicalAlias("u", "department.manager")
	if a1 != a2 || a1 != "u__department__manager" {
		t.Fatalf("got %q and %q", a1, a2)
	}
}

func TestResolveIsIdempotentForSamePath(t *testing.T) {
	reg := schema.NewRegistry()
	if _, err := reg.Register("User", "", userSchema{}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("Department", "", departmentSchema{}); err != nil {
		t.Fatal(err)
	}

	p := joinplanner.New(reg, "User", "u")
	first, err := p.Resolve("department")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Resolve("department")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected a single hop, got %d and %d", len(first), len(second))
	}
	if len(p.Joins()) != 1 {
		t.Fatalf("expected Resolve to memoize, got %d joins total", len(p.Joins()))
	}
}

func TestResolveUnknownNavigationIsPlanError(t *testing.T) {
	reg := schema.NewRegistry()
	if _, err := reg.Register("User", "", userSchema{}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("Department", "", departmentSchema{}); err != nil {
		t.Fatal(err)
	}

	p := joinplanner.New(reg, "User", "u")
	_, err := p.Resolve("nonexistent")
	if !pgorm.IsPlanError(err) {
		t.Fatalf("expected a PlanError, got %v", err)
	}
}
