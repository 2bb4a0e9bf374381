// Package dialect names the storage backends of describer models.
//
// A backend implements describer.Model, describer.Instance and
// describer.QuerySet:
//
//   - dialect/memory: an in-memory catalog, used in tests and examples
//   - dialect/sql: a database/sql catalog for SQLite, PostgreSQL and MySQL
//
// # Dialect Constants
//
// SQL backends are identified by the dialect constants:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Driver names registered by database/sql drivers are mapped to a dialect
// with Of:
//
//	dialect.Of("sqlite3") // "sqlite"
//	dialect.Of("pgx")     // "postgres"
//
// # Usage
//
//	drv, err := sql.Open("sqlite", "file:library.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	cat := sql.NewCatalog(drv)
//	if err := cat.Introspect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Models defined on a catalog instead are created with Migrate, which only
// adds missing tables and columns:
//
//	cat.Define("Book", "books", fields...)
//	if err := cat.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package dialect
