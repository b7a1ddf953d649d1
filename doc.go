// Package pgorm is an object-relational query engine for PostgreSQL.
//
// Given a declarative entity model (registered through [schema.Registry])
// and a fluent query description composed through [query.Entity], pgorm
// compiles the description into parameterized SQL, executes it through a
// [driver.Driver], and reshapes the resulting rows — including nested
// one-to-many collections — back into the requested projection shape.
//
// # Quick start
//
// Describe an entity by embedding [BaseSchema] and implementing [Schema]:
//
//	type userSchema struct{ pgorm.BaseSchema }
//
//	func (userSchema) Fields() []pgorm.Field {
//	    return []pgorm.Field{
//	        field.Int64("id").PrimaryKey().AutoIncrement(),
//	        field.String("name").Column("name"),
//	        field.Int("age").Nillable(),
//	    }
//	}
//
//	func (userSchema) Navigations() []pgorm.Navigation {
//	    return []pgorm.Navigation{
//	        nav.To("posts", "Post").Column("user_id", "id"),
//	    }
//	}
//
// Register it once, process-wide:
//
//	reg := schema.NewRegistry()
//	if _, err := reg.Register("User", "", userSchema{}); err != nil {
//	    log.Fatal(err)
//	}
//
// Compose and run a query:
//
//	rows, err := query.Entity(reg, drv, "User").
//	    Where(expr.Eq(expr.Col("u", "name"), expr.Const{Value: "ada"})).
//	    ToList(ctx)
//
// # Scope
//
// This module implements the query compilation and materialization engine
// only: the expression tree, schema registry, query builder graph,
// navigation join planner, collection strategy engine, CTE composer, SQL
// emitter, row materializer and transaction scope. DDL generation, schema
// migration, and the language-specific fluent-builder surface are treated
// as external concerns handled outside this module.
package pgorm
