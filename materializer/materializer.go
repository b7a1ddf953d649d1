// Package materializer decodes the flat rows a driver.Rows yields back
// into the nested
// result shape a [plan.ProjectedField] tree describes, applying each
// property's [mapper.Mapper] (however deep the navigation that produced
// the column sits) and parsing the json_agg payload a CTE-strategy
// collection column carries.
package materializer

import (
	"encoding/json"
	"fmt"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/driver"
	"github.com/syssam/pgorm/mapper"
)

// ColumnBinding describes how to decode one column of a result row: its
// position, the alias path it belongs to, and the mapper to apply.
type ColumnBinding struct {
	Index     int
	AliasPath string // e.g. "u" or "u__author"
	FieldName string
	Mapper    mapper.Mapper // nil => passthrough
	IsJSONAgg bool          // true for a to-many collection column, any strategy

	// ItemMappers maps a json_agg item's field name to the mapper its
	// originating property declares, resolved from the collection's
	// child projection tree rather than re-discovered from the decoded
	// JSON; meaningful only when IsJSONAgg is true. A field absent here
	// decodes as its raw driver-side JSON representation.
	ItemMappers map[string]mapper.Mapper
}

// Row is one decoded row, a tree of alias path -> field name -> value.
type Row map[string]map[string]any

// Decode reads every row from rows, applying bindings, and returns one
// Row per database row. An alias path whose every bound column is nil
// is left out of the Row rather than decoded to a map of all-nil fields,
// so a LEFT
// JOIN miss on an optional to-one navigation surfaces as "field absent"
// instead of a phantom zero-value object.
func Decode(rows driver.Rows, bindings []ColumnBinding) ([]Row, error) {
	defer rows.Close()

	var out []Row
	for rows.Next() {
		raw := make([]any, len(bindings))
		scanTargets := make([]any, len(bindings))
		for i := range raw {
			scanTargets[i] = &raw[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, pgorm.NewDriverError("scan", err)
		}

		row := make(Row)
		nonNilSeen := make(map[string]bool)
		for i, b := range bindings {
			v := raw[i]
			decoded, err := decodeValue(v, b)
			if err != nil {
				return nil, err
			}
			if _, ok := row[b.AliasPath]; !ok {
				row[b.AliasPath] = make(map[string]any)
			}
			row[b.AliasPath][b.FieldName] = decoded
			if v != nil {
				nonNilSeen[b.AliasPath] = true
			}
		}
		for path := range row {
			if !nonNilSeen[path] {
				delete(row, path)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, pgorm.NewDriverError("rows", err)
	}
	return out, nil
}

func decodeValue(v any, b ColumnBinding) (any, error) {
	if b.IsJSONAgg {
		return decodeJSONAgg(v, b.ItemMappers)
	}
	if v == nil {
		return nil, nil
	}
	if b.Mapper == nil {
		return v, nil
	}
	decoded, err := b.Mapper.FromDriver(v)
	if err != nil {
		return nil, pgorm.NewDriverError(fmt.Sprintf("mapper:%s.%s", b.AliasPath, b.FieldName), err)
	}
	return decoded, nil
}

// decodeJSONAgg parses the jsonb array a json_agg(to_jsonb(...))
// aggregate produced and applies mappers to pass each item's inner
// scalars through from_driver, the same as any other column — a mapped
// property reached through a to-many collection must decode to the same
// application value it would as a direct projection. Postgres's
// json_agg over zero input rows (a parent with no matching children)
// returns SQL NULL, not "[]" — every strategy's aggregation guarantees
// every parent key present in the result has at least one child row, so
// a NULL here means "this parent had none" and decodes to an empty
// slice, not a nil one, so to_list callers never have to nil-check.
func decodeJSONAgg(v any, mappers map[string]mapper.Mapper) (any, error) {
	if v == nil {
		return []map[string]any{}, nil
	}
	var raw []byte
	switch t := v.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return nil, fmt.Errorf("materializer: expected jsonb bytes/string for json_agg column, got %T", v)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, pgorm.NewDriverError("json_agg decode", err)
	}
	for field, m := range mappers {
		for _, item := range items {
			fv, ok := item[field]
			if !ok || fv == nil {
				continue
			}
			decoded, err := m.FromDriver(fv)
			if err != nil {
				return nil, pgorm.NewDriverError(fmt.Sprintf("mapper:items.%s", field), err)
			}
			item[field] = decoded
		}
	}
	return items, nil
}
