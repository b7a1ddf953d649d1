package query

import (
	"context"

	"github.com/syssam/pgorm"
	"github.com/syssam/pgorm/materializer"
	"github.com/syssam/pgorm/plan"
	"github.com/syssam/pgorm/schema"
	"github.com/syssam/pgorm/sqlgraph"
	"github.com/syssam/pgorm/txscope"
)

// Insert inserts rows (each a column-name-to-value map) into the root
// entity's table and returns the RETURNING columns named in returning,
// one Row per inserted record. Large batches are chunked by the SQL
// emitter so no single statement exceeds Postgres's parameter ceiling;
// a constraint violation surfaces as a *pgorm.ConstraintViolationError
// with Kind set to whichever constraint the database reports.
func (q *Query) Insert(ctx context.Context, rows []map[string]any, returning ...string) ([]materializer.Row, error) {
	entity, ok := q.reg.Get(q.p.RootEntity)
	if !ok {
		return nil, pgorm.NewConfigurationError(q.p.RootEntity, "not registered")
	}
	columns := insertColumns(rows)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(columns))
		for ci, c := range columns {
			values[i][ci] = row[c]
		}
	}

	emitter := sqlgraph.New(q.reg)
	stmts, err := emitter.EmitInsert(q.p.RootEntity, plan.MutationSpec{
		Op: plan.Insert, Columns: columns, Values: values, Returning: returning,
	})
	if err != nil {
		return nil, err
	}

	conn := txscope.ConnOrTx(ctx, q.drv)
	var out []materializer.Row
	for _, stmt := range stmts {
		driverRows, err := conn.Query(ctx, stmt.SQL, stmt.Params...)
		if err != nil {
			return nil, classify(err)
		}
		bindings := returningBindings(entity, returning)
		decoded, err := materializer.Decode(driverRows, bindings)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// Upsert inserts rows, updating updateSet columns on a conflict over
// conflictOn.
func (q *Query) Upsert(ctx context.Context, rows []map[string]any, conflictOn, updateSet []string, returning ...string) ([]materializer.Row, error) {
	entity, ok := q.reg.Get(q.p.RootEntity)
	if !ok {
		return nil, pgorm.NewConfigurationError(q.p.RootEntity, "not registered")
	}
	columns := insertColumns(rows)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(columns))
		for ci, c := range columns {
			values[i][ci] = row[c]
		}
	}

	emitter := sqlgraph.New(q.reg)
	stmt, err := emitter.EmitUpsert(q.p.RootEntity, plan.MutationSpec{
		Op: plan.Upsert, Columns: columns, Values: values,
		ConflictOn: conflictOn, UpdateSet: updateSet, Returning: returning,
	})
	if err != nil {
		return nil, err
	}

	conn := txscope.ConnOrTx(ctx, q.drv)
	driverRows, err := conn.Query(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, classify(err)
	}
	return materializer.Decode(driverRows, returningBindings(entity, returning))
}

// Update applies set to every row matching the query's accumulated
// filters.
func (q *Query) Update(ctx context.Context, set map[string]any) (int64, error) {
	columns := make([]string, 0, len(set))
	values := make([]any, 0, len(set))
	for c, v := range set {
		columns = append(columns, c)
		values = append(values, v)
	}
	stmt, err := sqlgraph.New(q.reg).EmitUpdate(q.p, columns, values)
	if err != nil {
		return 0, err
	}
	conn := txscope.ConnOrTx(ctx, q.drv)
	res, err := conn.Exec(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// Delete removes every row matching the query's accumulated filters.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	stmt, err := sqlgraph.New(q.reg).EmitDelete(q.p)
	if err != nil {
		return 0, err
	}
	conn := txscope.ConnOrTx(ctx, q.drv)
	res, err := conn.Exec(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

func insertColumns(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	return cols
}

func returningBindings(entity *schema.EntityDescriptor, returning []string) []materializer.ColumnBinding {
	if len(returning) == 0 {
		return nil
	}
	out := make([]materializer.ColumnBinding, len(returning))
	for i, name := range returning {
		binding := materializer.ColumnBinding{Index: i, AliasPath: "", FieldName: name}
		if prop, ok := entity.ColumnFor(name); ok && prop.Mapper != nil {
			binding.Mapper = prop.Mapper
		}
		out[i] = binding
	}
	return out
}

// classify turns a raw driver error carrying a Postgres constraint
// SQLSTATE into a *pgorm.ConstraintViolationError, leaving every other
// error untouched.
func classify(err error) error {
	if kind := sqlgraph.Classify(err); kind != "" {
		return pgorm.NewConstraintViolationError(kind, err)
	}
	return err
}
