package pgorm

// Field is implemented by every fluent builder in package field. A
// descriptor is a plain value pulled out of the builder at registration
// time; the builder itself is never retained.
type Field interface {
	// Descriptor returns the immutable property descriptor this builder
	// accumulated. Implementations must return the same value on repeated
	// calls.
	Descriptor() any
}

// Navigation is implemented by every fluent builder in package nav.
type Navigation interface {
	Descriptor() any
}

// Index is implemented by every fluent builder in package index.
type Index interface {
	Descriptor() any
}

// Schema is implemented by the caller's domain types to describe an
// entity to the registry. Embedding [BaseSchema] gives every method a nil
// default, so a concrete schema only needs to override what it actually
// uses.
type Schema interface {
	Fields() []Field
	Navigations() []Navigation
	Indexes() []Index
	Mixins() []Mixin
}

// Mixin is a reusable bundle of fields, navigations, and indexes that can
// be embedded into multiple schemas (e.g. created_at/updated_at timestamp
// fields, a soft-delete flag).
type Mixin interface {
	Fields() []Field
	Navigations() []Navigation
	Indexes() []Index
}

// BaseSchema is the default implementation of [Schema]; embed it so a
// concrete schema only needs to override the methods it uses.
//
//	type User struct{ pgorm.BaseSchema }
//
//	func (User) Fields() []pgorm.Field { return []pgorm.Field{ field.String("name") } }
type BaseSchema struct{}

func (BaseSchema) Fields() []Field           { return nil }
func (BaseSchema) Navigations() []Navigation { return nil }
func (BaseSchema) Indexes() []Index          { return nil }
func (BaseSchema) Mixins() []Mixin           { return nil }

// BaseMixin is the default implementation of [Mixin].
type BaseMixin struct{}

func (BaseMixin) Fields() []Field           { return nil }
func (BaseMixin) Navigations() []Navigation { return nil }
func (BaseMixin) Indexes() []Index          { return nil }
