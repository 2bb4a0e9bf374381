package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Constraint is the kind of a violated database constraint.
type Constraint uint8

// Constraint kinds.
const (
	ConstraintNone Constraint = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintCheck
)

var constraintNames = [...]string{
	ConstraintNone:       "none",
	ConstraintUnique:     "unique",
	ConstraintForeignKey: "foreign key",
	ConstraintNotNull:    "not null",
	ConstraintCheck:      "check",
}

// String returns the constraint name.
func (c Constraint) String() string {
	if int(c) < len(constraintNames) {
		return constraintNames[c]
	}
	return "unknown"
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
var pgCodes = map[pq.ErrorCode]Constraint{
	"23505": ConstraintUnique,
	"23503": ConstraintForeignKey,
	"23502": ConstraintNotNull,
	"23514": ConstraintCheck,
}

// MySQL error numbers for constraint violations.
var mysqlNumbers = map[uint16]Constraint{
	1062: ConstraintUnique,
	1451: ConstraintForeignKey, // Cannot delete or update a parent row
	1452: ConstraintForeignKey, // Cannot add or update a child row
	1048: ConstraintNotNull,
	3819: ConstraintCheck,
}

// SQLite extended result codes for constraint violations.
var sqliteCodes = map[int]Constraint{
	2067: ConstraintUnique,     // SQLITE_CONSTRAINT_UNIQUE
	1555: ConstraintUnique,     // SQLITE_CONSTRAINT_PRIMARYKEY
	787:  ConstraintForeignKey, // SQLITE_CONSTRAINT_FOREIGNKEY
	1299: ConstraintNotNull,    // SQLITE_CONSTRAINT_NOTNULL
	275:  ConstraintCheck,      // SQLITE_CONSTRAINT_CHECK
}

// Fallbacks for drivers whose errors are not matched by type.
var constraintMessages = []struct {
	substr string
	kind   Constraint
}{
	{"UNIQUE constraint failed", ConstraintUnique},
	{"violates unique constraint", ConstraintUnique},
	{"Error 1062", ConstraintUnique},
	{"FOREIGN KEY constraint failed", ConstraintForeignKey},
	{"violates foreign key constraint", ConstraintForeignKey},
	{"NOT NULL constraint failed", ConstraintNotNull},
	{"violates not-null constraint", ConstraintNotNull},
	{"CHECK constraint failed", ConstraintCheck},
	{"violates check constraint", ConstraintCheck},
}

// ConstraintOf returns the kind of constraint err violates, or
// ConstraintNone.
func ConstraintOf(err error) Constraint {
	if err == nil {
		return ConstraintNone
	}
	var (
		pqErr     *pq.Error
		mysqlErr  *mysql.MySQLError
		sqliteErr *sqlite.Error
	)
	switch {
	case errors.As(err, &pqErr):
		if c, ok := pgCodes[pqErr.Code]; ok {
			return c
		}
	case errors.As(err, &mysqlErr):
		if c, ok := mysqlNumbers[mysqlErr.Number]; ok {
			return c
		}
	case errors.As(err, &sqliteErr):
		if c, ok := sqliteCodes[sqliteErr.Code()]; ok {
			return c
		}
	}
	msg := err.Error()
	for _, m := range constraintMessages {
		if strings.Contains(msg, m.substr) {
			return m.kind
		}
	}
	return ConstraintNone
}

// IsConstraintError reports whether err resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return ConstraintOf(err) != ConstraintNone
}

// IsUniqueConstraintError reports whether err resulted from a uniqueness
// constraint violation.
func IsUniqueConstraintError(err error) bool {
	return ConstraintOf(err) == ConstraintUnique
}

// IsForeignKeyConstraintError reports whether err resulted from a foreign
// key constraint violation, e.g. a missing parent row.
func IsForeignKeyConstraintError(err error) bool {
	return ConstraintOf(err) == ConstraintForeignKey
}
