// Package sql provides a database/sql model backend.
//
// A Catalog maps models onto tables, either declared explicitly or
// introspected from the database:
//
//	drv, err := sql.Open("sqlite", "file:library.db?_pragma=foreign_keys(1)",
//	    sql.WithLogger(logger),
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	)
//	if err != nil {
//	    return err
//	}
//	cat := sql.NewCatalog(drv)
//	authors := cat.Define("Author", "authors",
//	    describer.Field{Name: "name", Kind: describer.KindString},
//	)
//	books := cat.Define("Book", "books",
//	    describer.Field{Name: "title", Kind: describer.KindString},
//	    describer.Field{Name: "author", Kind: describer.KindForeignKey, Related: "Author"},
//	)
//
// Catalog.Introspect adds the tables of an existing database instead, and
// Catalog.Migrate creates the missing tables and columns of declared
// models.
//
// Foreign keys are stored in <name>_id columns and are readable and
// writable under both names. The referenced model gains a reverse
// one-to-many field named after the pluralized model ("books").
//
// # Lookups
//
// Lookups translate to SQL conditions of the driver's dialect:
//
//	title__contains: "Go"  // SQLite:   "title" GLOB ?      ("*Go*")
//	                       // Postgres: "title" LIKE $1 ESCAPE '\'
//	title__icontains: "go" // Postgres: "title" ILIKE $1 ESCAPE '\'
//	id__in: [1, 2]         // "id" IN (?, ?)
//	pages__isnull: true    // "pages" IS NULL
//
// SQLite gets a REGEXP function backed by the regexp package.
//
// # Errors
//
// Constraint violations raised while saving are reported as
// describer.InputError. Other storage failures are wrapped in
// describer.QueryError or describer.MutationError.
//
// # Statistics
//
// The Driver counts statements and logs the ones slower than the
// configured threshold:
//
//	fmt.Println(drv.Stats()) // queries=12 execs=3 duration=4ms avg=266µs slow=0 errors=0
package sql
