// Package nav provides fluent builders for describing navigations
// (associations) between entities to the schema registry. A navigation
// is either the owning side of a foreign key (From) or its back-reference
// (To); the join planner later turns whichever side is actually
// traversed in a query into INNER or LEFT JOIN depending on whether the
// navigation is mandatory.
package nav

import "github.com/syssam/pgorm/schema"

// Builder is the fluent navigation builder returned by every constructor
// in this package. It satisfies pgorm.Navigation via Descriptor.
type Builder struct {
	d        schema.NavigationDescriptor
	fk, pk   []string // parallel column pairs accumulated by Column/LiteralKey
	literals []any
}

// Descriptor returns the accumulated navigation descriptor, resolving
// the Column/LiteralKey calls into the final Keys slice.
func (b *Builder) Descriptor() any {
	d := b.d
	for i := range b.fk {
		d.Keys = append(d.Keys, schema.KeyPart{ForeignColumn: b.fk[i], PrincipalColumn: b.pk[i]})
	}
	for _, lit := range b.literals {
		d.Keys = append(d.Keys, schema.KeyPart{Literal: lit})
	}
	return d
}

// To declares a to-many collection navigation owned by the *other* side
// (this entity does not carry the foreign key).
func To(name, targetEntity string) *Builder {
	return &Builder{d: schema.NavigationDescriptor{
		PropertyName: name,
		TargetEntity: targetEntity,
		Kind:         schema.Many,
		IsInverse:    true,
	}}
}

// From declares a navigation owned by *this* entity: the foreign-key
// columns live on this entity's table. Defaults to a to-one reference;
// pair with Ref on the matching To() to complete the bidirectional edge.
func From(name, targetEntity string) *Builder {
	return &Builder{d: schema.NavigationDescriptor{
		PropertyName: name,
		TargetEntity: targetEntity,
		Kind:         schema.One,
	}}
}

// Ref names the property on the target entity that is this navigation's
// inverse, so the registry's cross-entity validation can confirm both
// sides agree.
func (b *Builder) Ref(property string) *Builder {
	b.d.InversePath = property
	return b
}

// Unique turns a default to-many To() navigation into a one-to-one
// collection (still owned by the other side).
func (b *Builder) Unique() *Builder {
	b.d.Kind = schema.One
	return b
}

// Column adds a foreign-key/principal-key column pair to this
// navigation's correlation key. Call repeatedly for a composite key, in
// matching order on both sides.
func (b *Builder) Column(foreignColumn, principalColumn string) *Builder {
	b.fk = append(b.fk, foreignColumn)
	b.pk = append(b.pk, principalColumn)
	return b
}

// LiteralKey adds a constant key part to the correlation key, e.g. a
// shared "kind = 'invoice'" discriminator in a polymorphic association.
// value may be an int64, bool, string, or [schema.RawSQL] for an
// unquoted expression.
func (b *Builder) LiteralKey(value any) *Builder {
	b.literals = append(b.literals, value)
	return b
}

// Required marks this navigation mandatory: the join planner emits an
// INNER JOIN instead of a LEFT JOIN when the navigation is traversed.
func (b *Builder) Required() *Builder {
	b.d.IsMandatory = true
	return b
}

// OnDelete records the foreign key's ON DELETE action for documentation;
// this engine does not generate DDL.
func (b *Builder) OnDelete(action string) *Builder {
	b.d.OnDelete = action
	return b
}

// OnUpdate records the foreign key's ON UPDATE action.
func (b *Builder) OnUpdate(action string) *Builder {
	b.d.OnUpdate = action
	return b
}

// ConstraintName records the foreign-key constraint's name. The SQL
// emitter's constraint-violation classification does not read it; it
// goes by SQLSTATE code alone.
func (b *Builder) ConstraintName(name string) *Builder {
	b.d.ConstraintName = name
	return b
}
