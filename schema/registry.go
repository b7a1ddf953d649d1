package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/syssam/pgorm"
)

// Registry is the process-wide entity metadata store. A
// *Registry is safe for concurrent reads once configuration has settled;
// Register itself takes a lock so model setup can happen from an init
// function or a package-level var without a race.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntityDescriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*EntityDescriptor)}
}

// Register builds an [EntityDescriptor] from s and stores it under
// entityName. Re-registering the same entity name with an identical
// descriptor is a no-op; re-registering with a descriptor that diverges
// from the one already stored is a *pgorm.ConfigurationError, since the
// registry has no notion of versioning or schema migration.
func (r *Registry) Register(entityName, tableName string, s pgorm.Schema) (*EntityDescriptor, error) {
	if tableName == "" {
		tableName = DefaultTableName(entityName)
	}
	desc, err := build(entityName, tableName, s)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entities[entityName]; ok {
		if !equivalent(existing, desc) {
			return nil, pgorm.NewConfigurationError(entityName,
				"re-registered with a descriptor that differs from the one already registered")
		}
		return existing, nil
	}
	desc.index()
	r.entities[entityName] = desc
	return desc, nil
}

// Get returns the descriptor registered under entityName.
func (r *Registry) Get(entityName string) (*EntityDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[entityName]
	return d, ok
}

// MustGet is like Get but panics if entityName was never registered; it
// is meant for use at query-construction time, after model configuration
// has completed, where an unregistered entity is a programmer error.
func (r *Registry) MustGet(entityName string) *EntityDescriptor {
	d, ok := r.Get(entityName)
	if !ok {
		panic(fmt.Sprintf("pgorm: entity %q is not registered", entityName))
	}
	return d
}

// ResolvePath walks a dotted navigation path (e.g. "author.department")
// rooted at entityName and returns the chain of navigations traversed
// plus the terminal property descriptor named by the last segment, if
// any. A path of just a property name ("title") returns a nil chain.
func (r *Registry) ResolvePath(entityName, path string) (*PropertyDescriptor, []NavigationDescriptor, error) {
	segments := strings.Split(path, ".")
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur, ok := r.entities[entityName]
	if !ok {
		return nil, nil, pgorm.NewConfigurationError(entityName, "not registered")
	}

	var chain []NavigationDescriptor
	for i, seg := range segments {
		last := i == len(segments)-1
		if last {
			if p, ok := cur.Property(seg); ok {
				return p, chain, nil
			}
			return nil, nil, pgorm.NewConfigurationError(entityName,
				fmt.Sprintf("path %q: %q is not a property of %s", path, seg, cur.EntityName))
		}
		nav, ok := cur.NavigationProperty(seg)
		if !ok {
			return nil, nil, pgorm.NewConfigurationError(entityName,
				fmt.Sprintf("path %q: %q is not a navigation of %s", path, seg, cur.EntityName))
		}
		chain = append(chain, *nav)
		next, ok := r.entities[nav.TargetEntity]
		if !ok {
			return nil, nil, pgorm.NewConfigurationError(nav.TargetEntity,
				fmt.Sprintf("navigation %q of %s targets unregistered entity", seg, cur.EntityName))
		}
		cur = next
	}
	return nil, chain, nil
}

// Validate checks the cross-entity invariants that can only be verified
// once every entity involved in a navigation graph is registered: every
// navigation must resolve to a registered target, and every navigation
// marked inverse whose keys are not literal must be mirrored by a
// navigation on the target side — the one its InversePath names, or,
// without an InversePath, one whose own InversePath names it back — a
// graph where neither side claims ownership of the foreign-key columns
// cannot be planned into a join. The key columns of the two sides are
// not compared.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, e := range r.entities {
		for _, n := range e.Navigations {
			target, ok := r.entities[n.TargetEntity]
			if !ok {
				return pgorm.NewConfigurationError(name,
					fmt.Sprintf("navigation %q targets unregistered entity %q", n.PropertyName, n.TargetEntity))
			}
			if allLiteral(n.Keys) {
				continue
			}
			if n.IsInverse {
				if n.InversePath == "" {
					mirrored := false
					for _, tn := range target.Navigations {
						if tn.TargetEntity == name && tn.InversePath == n.PropertyName {
							mirrored = true
						}
					}
					if !mirrored {
						return pgorm.NewConfigurationError(name,
							fmt.Sprintf("navigation %q is marked inverse but has no InversePath and no navigation on %s refers back to it", n.PropertyName, n.TargetEntity))
					}
					continue
				}
				if _, ok := target.NavigationProperty(n.InversePath); !ok {
					return pgorm.NewConfigurationError(name,
						fmt.Sprintf("navigation %q: inverse path %q not found on %s", n.PropertyName, n.InversePath, n.TargetEntity))
				}
				continue
			}
			// This side owns the FK; no further check needed unless an
			// InversePath was declared and doesn't resolve.
			if n.InversePath != "" {
				if _, ok := target.NavigationProperty(n.InversePath); !ok {
					return pgorm.NewConfigurationError(name,
						fmt.Sprintf("navigation %q: inverse path %q not found on %s", n.PropertyName, n.InversePath, n.TargetEntity))
				}
			}
		}
	}
	return nil
}

func allLiteral(keys []KeyPart) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !k.IsLiteral() {
			return false
		}
	}
	return true
}

func build(entityName, tableName string, s pgorm.Schema) (*EntityDescriptor, error) {
	desc := &EntityDescriptor{EntityName: entityName, TableName: tableName}

	var collectFields func(pgorm.Schema)
	var collectMixin func(pgorm.Mixin)

	collectMixin = func(m pgorm.Mixin) {
		for _, f := range m.Fields() {
			pd, ok := f.Descriptor().(PropertyDescriptor)
			if !ok {
				continue
			}
			desc.Properties = append(desc.Properties, pd)
		}
		for _, n := range m.Navigations() {
			nd, ok := n.Descriptor().(NavigationDescriptor)
			if !ok {
				continue
			}
			desc.Navigations = append(desc.Navigations, nd)
		}
		for _, ix := range m.Indexes() {
			id, ok := ix.Descriptor().(IndexDescriptor)
			if !ok {
				continue
			}
			desc.Indexes = append(desc.Indexes, id)
		}
	}

	collectFields = func(s pgorm.Schema) {
		for _, mx := range s.Mixins() {
			collectMixin(mx)
		}
		for _, f := range s.Fields() {
			pd, ok := f.Descriptor().(PropertyDescriptor)
			if !ok {
				return
			}
			desc.Properties = append(desc.Properties, pd)
		}
		for _, n := range s.Navigations() {
			nd, ok := n.Descriptor().(NavigationDescriptor)
			if !ok {
				continue
			}
			desc.Navigations = append(desc.Navigations, nd)
		}
		for _, ix := range s.Indexes() {
			id, ok := ix.Descriptor().(IndexDescriptor)
			if !ok {
				continue
			}
			desc.Indexes = append(desc.Indexes, id)
		}
	}
	collectFields(s)

	if err := validateOwnDescriptor(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func validateOwnDescriptor(desc *EntityDescriptor) error {
	seen := make(map[string]bool, len(desc.Properties))
	hasPK := false
	for _, p := range desc.Properties {
		if seen[p.PropertyName] {
			return pgorm.NewConfigurationError(desc.EntityName,
				fmt.Sprintf("duplicate property %q", p.PropertyName))
		}
		seen[p.PropertyName] = true
		if p.PrimaryKey {
			hasPK = true
		}
	}
	if !hasPK {
		return pgorm.NewConfigurationError(desc.EntityName, "no primary key property declared")
	}
	for _, n := range desc.Navigations {
		if n.TargetEntity == "" {
			return pgorm.NewConfigurationError(desc.EntityName,
				fmt.Sprintf("navigation %q has no target entity", n.PropertyName))
		}
		if !allLiteral(n.Keys) && len(n.Keys) == 0 {
			return pgorm.NewConfigurationError(desc.EntityName,
				fmt.Sprintf("navigation %q declares no key parts", n.PropertyName))
		}
	}
	return nil
}

// equivalent reports whether two descriptors are structurally identical,
// for idempotent re-registration.
func equivalent(a, b *EntityDescriptor) bool {
	return reflect.DeepEqual(a.Properties, b.Properties) &&
		reflect.DeepEqual(a.Navigations, b.Navigations) &&
		reflect.DeepEqual(a.Indexes, b.Indexes) &&
		a.TableName == b.TableName &&
		a.SchemaName == b.SchemaName
}
