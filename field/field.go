// Package field provides fluent builders for describing entity
// properties to the schema registry. Go struct-side naming is whatever
// the caller's property name is; the builder only ever records the
// physical column name plus the storage rules the query engine needs to
// know about — type width, nullability, default, primary key, and an
// optional [mapper.Mapper] for custom representations.
package field

import (
	"fmt"

	"github.com/syssam/pgorm/mapper"
	"github.com/syssam/pgorm/schema"
)

// Builder is the fluent property builder returned by every constructor
// in this package. It satisfies pgorm.Field via Descriptor.
type Builder struct {
	d schema.PropertyDescriptor
}

// Descriptor returns the accumulated property descriptor.
func (b *Builder) Descriptor() any { return b.d }

func newBuilder(name, sqlType string) *Builder {
	return &Builder{d: schema.PropertyDescriptor{
		PropertyName: name,
		ColumnName:   name,
		SQLType:      sqlType,
	}}
}

// Column overrides the physical column name; by default it matches the
// property name.
func (b *Builder) Column(name string) *Builder {
	b.d.ColumnName = name
	return b
}

// PrimaryKey marks this property as (part of) the entity's primary key.
func (b *Builder) PrimaryKey() *Builder {
	b.d.PrimaryKey = true
	b.d.Required = true
	return b
}

// AutoIncrement marks an integer primary key as server-generated; the
// column is omitted from INSERT unless a caller supplies an explicit
// value.
func (b *Builder) AutoIncrement() *Builder {
	b.d.AutoIncrement = true
	return b
}

// Required marks the property NOT NULL with no input default.
func (b *Builder) Required() *Builder {
	b.d.Required = true
	return b
}

// Optional is the inverse of Required: not mandatory on insert, may
// still be NOT NULL at the database level if paired with Default.
func (b *Builder) Optional() *Builder {
	b.d.Required = false
	return b
}

// Unique marks the property as backed by a unique constraint.
func (b *Builder) Unique() *Builder {
	b.d.Unique = true
	return b
}

// Nillable makes the Go-side representation a pointer, matching a
// nullable database column.
func (b *Builder) Nillable() *Builder {
	b.d.Nillable = true
	return b
}

// Default sets a literal SQL default expression (e.g. "0", "'active'",
// "now()").
func (b *Builder) Default(expr string) *Builder {
	b.d.DefaultExpr = expr
	b.d.HasDefaultExpr = true
	return b
}

// Mapper attaches a custom bidirectional [mapper.Mapper] to this
// property; Custom always wraps it in [mapper.NullSafe].
func (b *Builder) Mapper(m mapper.Mapper) *Builder {
	b.d.Mapper = m
	return b
}

// Int declares a 32-bit integer property.
func Int(name string) *Builder { return newBuilder(name, "integer") }

// Int64 declares a 64-bit integer property.
func Int64(name string) *Builder { return newBuilder(name, "bigint") }

// Float64 declares a double-precision property.
func Float64(name string) *Builder { return newBuilder(name, "double precision") }

// String declares a bounded varchar property.
func String(name string) *Builder { return newBuilder(name, "varchar") }

// Text declares an unbounded text property.
func Text(name string) *Builder { return newBuilder(name, "text") }

// Bool declares a boolean property.
func Bool(name string) *Builder { return newBuilder(name, "boolean") }

// Time declares a timestamptz property.
func Time(name string) *Builder { return newBuilder(name, "timestamptz") }

// Bytes declares a bytea property.
func Bytes(name string) *Builder { return newBuilder(name, "bytea") }

// JSON declares a jsonb property.
func JSON(name string) *Builder { return newBuilder(name, "jsonb") }

// UUID declares a uuid property, mapped to/from google/uuid.UUID by
// default.
func UUID(name string) *Builder {
	b := newBuilder(name, "uuid")
	b.d.Mapper = mapper.UUID
	return b
}

// Enum declares a text property with a CHECK(value IN (...)) constraint
// text recorded in the descriptor's DefaultExpr for documentation
// (HasDefaultExpr stays false); enforcement happens at the database, not
// by this engine.
func Enum(name string, values ...string) *Builder {
	b := newBuilder(name, "text")
	b.d.DefaultExpr = enumCheck(name, values)
	return b
}

func enumCheck(column string, values []string) string {
	s := fmt.Sprintf("%s CHECK (%s IN (", column, column)
	for i, v := range values {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("'%s'", v)
	}
	return s + "))"
}

// Custom declares a property of SQL type sqlType whose Go representation
// is whatever mapper m produces. The mapper is wrapped in [mapper.NullSafe] so a
// nil database value always surfaces as a nil Go value regardless of
// what m itself does.
func Custom(name, sqlType string, m mapper.Mapper) *Builder {
	b := newBuilder(name, sqlType)
	b.d.Mapper = mapper.NullSafe(m)
	return b
}
