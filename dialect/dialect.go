package dialect

import "strings"

// Supported SQL dialects.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Of returns the dialect of a database/sql driver name. Unknown names are
// returned unchanged.
func Of(driverName string) string {
	switch name := strings.ToLower(driverName); {
	case name == "pgx" || strings.HasPrefix(name, Postgres):
		return Postgres
	case strings.HasPrefix(name, SQLite):
		return SQLite
	case strings.HasPrefix(name, MySQL):
		return MySQL
	default:
		return driverName
	}
}
