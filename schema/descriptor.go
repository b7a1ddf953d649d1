// Package schema is the process-wide entity metadata registry: it owns the
// map from entity name to [EntityDescriptor], resolves property and
// navigation paths, and hands out value mappers by property path.
// Descriptors are built once, at model-configuration time, by the fluent
// builders in package field, nav, and index; the registry never mutates a
// descriptor after registration.
package schema

import "github.com/syssam/pgorm/mapper"

// NavigationKind distinguishes a to-one reference from a to-many collection.
type NavigationKind int

const (
	// One is a to-one reference navigation.
	One NavigationKind = iota
	// Many is a to-many collection navigation.
	Many
)

func (k NavigationKind) String() string {
	if k == Many {
		return "many"
	}
	return "one"
}

// KeyPart is one element of a navigation's correlation key tuple. Exactly
// one of Column or Literal is set: a column part is emitted as
// "alias"."col", a literal part is emitted inline as a SQL literal.
type KeyPart struct {
	// ForeignColumn is the physical column on the navigation's owning side.
	// Empty when Literal is set.
	ForeignColumn string
	// PrincipalColumn is the physical column on the referenced side. Empty
	// when Literal is set.
	PrincipalColumn string
	// Literal, when non-nil, is emitted as a constant in the ON clause
	// instead of a column reference (int64, bool, string, or a RawSQL).
	Literal any
}

// IsLiteral reports whether this key part is a literal constant rather
// than a column pair.
func (p KeyPart) IsLiteral() bool { return p.Literal != nil }

// RawSQL marks a string that must be emitted as-is rather than quoted as a
// string literal, for literal key parts like `type = 1` vs `status = 'x'`.
type RawSQL string

// PropertyDescriptor describes one entity property.
type PropertyDescriptor struct {
	PropertyName   string
	ColumnName     string
	SQLType        string
	PrimaryKey     bool
	AutoIncrement  bool
	Required       bool
	Unique         bool
	Nillable       bool
	DefaultExpr    string
	HasDefaultExpr bool
	Mapper         mapper.Mapper // optional
}

// NavigationDescriptor describes one entity navigation.
type NavigationDescriptor struct {
	PropertyName   string
	TargetEntity   string
	Kind           NavigationKind
	Keys           []KeyPart
	IsMandatory    bool // drives INNER vs LEFT join
	OnDelete       string
	OnUpdate       string
	ConstraintName string
	IsInverse      bool // the FK constraint lives on the other side
	InversePath    string
}

// IndexDescriptor describes one entity index (informational only; DDL
// generation is out of scope for this engine).
type IndexDescriptor struct {
	Fields []string
	Unique bool
}

// EntityDescriptor is the process-wide metadata record for one entity
// type.
type EntityDescriptor struct {
	EntityName   string
	TableName    string
	SchemaName   string // optional, "" means search_path default
	Properties   []PropertyDescriptor // ordered
	Navigations  []NavigationDescriptor // ordered
	Indexes      []IndexDescriptor

	byProperty  map[string]*PropertyDescriptor
	byColumn    map[string]*PropertyDescriptor
	byNav       map[string]*NavigationDescriptor
}

func (e *EntityDescriptor) index() {
	e.byProperty = make(map[string]*PropertyDescriptor, len(e.Properties))
	e.byColumn = make(map[string]*PropertyDescriptor, len(e.Properties))
	for i := range e.Properties {
		p := &e.Properties[i]
		e.byProperty[p.PropertyName] = p
		e.byColumn[p.ColumnName] = p
	}
	e.byNav = make(map[string]*NavigationDescriptor, len(e.Navigations))
	for i := range e.Navigations {
		n := &e.Navigations[i]
		e.byNav[n.PropertyName] = n
	}
}

// Property looks up a property descriptor by its caller-facing name.
func (e *EntityDescriptor) Property(name string) (*PropertyDescriptor, bool) {
	p, ok := e.byProperty[name]
	return p, ok
}

// ColumnFor looks up a property descriptor by its physical column name.
func (e *EntityDescriptor) ColumnFor(column string) (*PropertyDescriptor, bool) {
	p, ok := e.byColumn[column]
	return p, ok
}

// NavigationProperty looks up a navigation descriptor by property name.
func (e *EntityDescriptor) NavigationProperty(name string) (*NavigationDescriptor, bool) {
	n, ok := e.byNav[name]
	return n, ok
}

// QualifiedTable returns "schema"."table", or just "table" when no schema
// is set.
func (e *EntityDescriptor) QualifiedTable() string {
	if e.SchemaName == "" {
		return quoteIdent(e.TableName)
	}
	return quoteIdent(e.SchemaName) + "." + quoteIdent(e.TableName)
}

func quoteIdent(s string) string {
	return `"` + s + `"`
}
