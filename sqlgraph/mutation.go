package sqlgraph

import (
	"fmt"
	"strings"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/expr"
	"github.com/syssam/pgorm/plan"
	"github.com/syssam/pgorm/schema"
)

// MaxBulkParameters is Postgres's hard parameter-count ceiling per
// statement (65535); chunkSize stays well clear of it using the formula
// floor(ceiling / columns * 0.6), leaving headroom for a driver or
// pooler that reserves parameter slots of its own.
const MaxBulkParameters = 65535

// chunkSize returns how many rows of width columns may be batched into
// one INSERT statement.
func chunkSize(columns int) int {
	if columns == 0 {
		return 1
	}
	n := int(float64(MaxBulkParameters) / float64(columns) * 0.6)
	if n < 1 {
		return 1
	}
	return n
}

// EmitInsert renders one or more INSERT statements for m against
// entity, chunking rows so no single statement exceeds the parameter
// ceiling. The column list is m.Columns exactly as given: an
// auto-increment column in it is emitted, even with nil values, and one
// is left out only when m.Columns leaves it out.
func (e *Emitter) EmitInsert(entityName string, m plan.MutationSpec) ([]Statement, error) {
	entity, ok := e.reg.Get(entityName)
	if !ok {
		return nil, pgorm.NewConfigurationError(entityName, "not registered")
	}

	columns := m.Columns
	size := chunkSize(len(columns))

	var stmts []Statement
	for start := 0; start < len(m.Values); start += size {
		end := start + size
		if end > len(m.Values) {
			end = len(m.Values)
		}
		stmt, err := insertChunk(entity, columns, m.Values[start:end], m.Returning)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func insertChunk(entity *schema.EntityDescriptor, columns []string, rows [][]any, returning []string) (Statement, error) {
	ctx := &expr.Context{}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", entity.QualifiedTable())
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(") VALUES ")

	for ri, row := range rows {
		if len(row) != len(columns) {
			return Statement{}, pgorm.NewPlanError("insert", "row width does not match column list")
		}
		if ri > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for ci, v := range row {
			if ci > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ctx.Bind(v))
		}
		b.WriteString(")")
	}

	if len(returning) > 0 {
		b.WriteString(" RETURNING ")
		for i, c := range returning {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(c))
		}
	}

	return Statement{SQL: b.String(), Params: ctx.Params}, nil
}

// EmitUpsert renders an INSERT ... ON CONFLICT (...) DO UPDATE SET ...
// statement.
func (e *Emitter) EmitUpsert(entityName string, m plan.MutationSpec) (Statement, error) {
	entity, ok := e.reg.Get(entityName)
	if !ok {
		return Statement{}, pgorm.NewConfigurationError(entityName, "not registered")
	}
	if len(m.Values) == 0 {
		return Statement{}, pgorm.NewPlanError("upsert", "no rows supplied")
	}

	ctx := &expr.Context{}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", entity.QualifiedTable())
	for i, c := range m.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(") VALUES ")
	for ri, row := range m.Values {
		if ri > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for ci, v := range row {
			if ci > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ctx.Bind(v))
		}
		b.WriteString(")")
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", strings.Join(quoteAll(m.ConflictOn), ", "))
	for i, c := range m.UpdateSet {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", quoteIdent(c), quoteIdent(c))
	}

	if len(m.Returning) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(strings.Join(quoteAll(m.Returning), ", "))
	}

	return Statement{SQL: b.String(), Params: ctx.Params}, nil
}

// EmitUpdate renders an UPDATE ... SET ... WHERE statement over p's
// filters.
func (e *Emitter) EmitUpdate(p plan.Plan, columns []string, values []any) (Statement, error) {
	entity, ok := e.reg.Get(p.RootEntity)
	if !ok {
		return Statement{}, pgorm.NewConfigurationError(p.RootEntity, "not registered")
	}
	if len(columns) != len(values) {
		return Statement{}, pgorm.NewPlanError("update", "column/value count mismatch")
	}

	ctx := &expr.Context{}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET ", entity.QualifiedTable())
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s", quoteIdent(c), ctx.Bind(values[i]))
	}
	if len(p.Filters) > 0 {
		fmt.Fprintf(&b, " WHERE %s", expr.And(p.Filters...).Emit(ctx))
	}
	return Statement{SQL: b.String(), Params: ctx.Params}, nil
}

// EmitDelete renders a DELETE statement over p's filters.
func (e *Emitter) EmitDelete(p plan.Plan) (Statement, error) {
	entity, ok := e.reg.Get(p.RootEntity)
	if !ok {
		return Statement{}, pgorm.NewConfigurationError(p.RootEntity, "not registered")
	}
	ctx := &expr.Context{}
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", entity.QualifiedTable())
	if len(p.Filters) > 0 {
		fmt.Fprintf(&b, " WHERE %s", expr.And(p.Filters...).Emit(ctx))
	}
	return Statement{SQL: b.String(), Params: ctx.Params}, nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}
