// Package index provides a fluent builder for recording entity indexes.
// The query engine never generates DDL; an index descriptor is
// informational only. It is stored on the entity descriptor, and no
// part of query planning or SQL emission reads it.
package index

import "github.com/syssam/pgorm/schema"

// Builder is the fluent index builder returned by [Fields]. It
// satisfies pgorm.Index via Descriptor.
type Builder struct {
	d schema.IndexDescriptor
}

// Descriptor returns the accumulated index descriptor.
func (b *Builder) Descriptor() any { return b.d }

// Fields declares an index over the given property names, in order.
func Fields(names ...string) *Builder {
	return &Builder{d: schema.IndexDescriptor{Fields: names}}
}

// Unique marks the index as enforcing uniqueness.
func (b *Builder) Unique() *Builder {
	b.d.Unique = true
	return b
}
