package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/karlosss/describer/dialect"
)

// ExecQuerier wraps the standard Exec and Query methods. It is implemented
// by *sql.DB, *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver executes the statements of a catalog and records their
// statistics.
type Driver struct {
	db      *sql.DB
	dialect string
	log     *zap.Logger
	stats   *counters
	slow    time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. Statements are logged at debug level and
// slow statements at warn level.
func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// WithSlowThreshold sets the duration above which a statement counts as
// slow. Default is 100ms.
func WithSlowThreshold(threshold time.Duration) Option {
	return func(d *Driver) {
		d.slow = threshold
	}
}

// Open wraps the database/sql.Open method and returns a Driver.
func Open(driverName, source string, opts ...Option) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db, opts...), nil
}

// OpenDB wraps the given database/sql.DB with a Driver. name is a dialect
// or a database/sql driver name.
func OpenDB(name string, db *sql.DB, opts ...Option) *Driver {
	d := &Driver{
		db:      db,
		dialect: dialect.Of(name),
		log:     zap.NewNop(),
		stats:   &counters{},
		slow:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the dialect of the driver.
func (d *Driver) Dialect() string { return d.dialect }

// Stats returns a snapshot of the statement statistics.
func (d *Driver) Stats() Stats { return d.stats.snapshot() }

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.db.Close() }

func (d *Driver) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, query, args...)
	d.record(query, args, start, err, false)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

func (d *Driver) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.record(query, args, start, err, true)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return rows, nil
}

func (d *Driver) builder() *Builder {
	return &Builder{dialect: d.dialect}
}

// Builder writes a statement with dialect specific quoting and
// placeholders.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
}

// Dialect returns a Builder for the given dialect.
func Dialect(name string) *Builder {
	return &Builder{dialect: dialect.Of(name)}
}

// WriteString appends s verbatim.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(s string) *Builder {
	q := `"`
	if b.dialect == dialect.MySQL {
		q = "`"
	}
	b.sb.WriteString(q)
	b.sb.WriteString(strings.ReplaceAll(s, q, q+q))
	b.sb.WriteString(q)
	return b
}

// Arg appends a placeholder bound to v.
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		fmt.Fprintf(&b.sb, "$%d", len(b.args))
	} else {
		b.sb.WriteByte('?')
	}
	return b
}

// Args appends a comma separated placeholder list bound to vs.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// Query returns the statement and its arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}
