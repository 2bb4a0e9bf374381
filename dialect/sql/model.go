package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/dialect"
)

// Table maps a model onto a database table.
type Table struct {
	// Model is the model name, e.g. "Book".
	Model string
	// Name is the table name, e.g. "books".
	Name   string
	Fields []describer.Field
	// Columns maps field names to column names. Foreign keys default to
	// <name>_id and other fields to their name.
	Columns map[string]string
}

// Catalog is a set of table backed models that may reference each other.
type Catalog struct {
	drv *Driver

	mu     sync.RWMutex
	models map[string]*Model
	order  []string
}

// NewCatalog returns an empty catalog executing on drv.
func NewCatalog(drv *Driver) *Catalog {
	return &Catalog{drv: drv, models: make(map[string]*Model)}
}

// Driver returns the catalog's driver.
func (c *Catalog) Driver() *Driver { return c.drv }

// Add adds a table backed model. An identifier field is prepended unless
// the fields already declare one.
func (c *Catalog) Add(t Table) (*Model, error) {
	if t.Model == "" {
		t.Model = ModelName(t.Name)
	}
	fields := t.Fields
	if !slices.ContainsFunc(fields, func(f describer.Field) bool { return f.Name == describer.IDField }) {
		fields = append([]describer.Field{{Name: describer.IDField, Kind: describer.KindID, Optional: true}}, fields...)
	}
	m := &Model{catalog: c, name: t.Model, table: t.Name, fields: fields, columns: make(map[string]string, len(fields))}
	for _, f := range fields {
		switch f.Kind {
		case describer.KindManyToMany, describer.KindOneToMany:
			return nil, describer.NewConfigError(t.Model, f.Name, fmt.Sprintf("%s fields are not stored in a column", f.Kind), nil)
		case describer.KindUnknown:
			return nil, describer.NewConfigError(t.Model, f.Name, "field has no kind", nil)
		}
		col := t.Columns[f.Name]
		switch {
		case col != "":
		case f.Kind == describer.KindForeignKey:
			col = f.Name + "_id"
		default:
			col = f.Name
		}
		m.columns[f.Name] = col
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.models[m.name]; ok {
		return nil, describer.NewConfigError(m.name, "", "model already defined", describer.ErrDuplicateName)
	}
	c.models[m.name] = m
	c.order = append(c.order, m.name)
	return m, nil
}

// Define adds a model stored in table. It panics if the model cannot be
// added.
func (c *Catalog) Define(name, table string, fields ...describer.Field) *Model {
	m, err := c.Add(Table{Model: name, Name: table, Fields: fields})
	if err != nil {
		panic(err)
	}
	return m
}

// Model returns the named model.
func (c *Catalog) Model(name string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[name]
	return m, ok
}

// Models returns the models in definition order.
func (c *Catalog) Models() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Model, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.models[name])
	}
	return out
}

// ModelName returns the model name of a table, e.g. "BookAuthor" for
// "book_authors".
func ModelName(table string) string {
	return inflect.Camelize(inflect.Singularize(table))
}

// ReverseName returns the reverse relation name a model gets on the
// models it references, e.g. "books" for Book.
func ReverseName(model string) string {
	return inflect.Pluralize(inflect.Underscore(model))
}

// Model is a table backed model.
type Model struct {
	catalog *Catalog
	name    string
	table   string
	fields  []describer.Field
	columns map[string]string
}

var _ describer.Model = (*Model)(nil)

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Table returns the table name.
func (m *Model) Table() string { return m.table }

// Fields returns the local fields.
func (m *Model) Fields() []describer.Field { return slices.Clone(m.fields) }

// Column returns the column storing the named field.
func (m *Model) Column(name string) (string, bool) {
	_, col, ok := m.resolve(name)
	return col, ok
}

// ReverseFields returns the foreign keys of other catalog models pointing
// to m as one-to-many fields.
func (m *Model) ReverseFields() []describer.Field {
	var out []describer.Field
	for _, other := range m.catalog.Models() {
		for _, f := range other.fields {
			if f.Kind == describer.KindForeignKey && f.Related == m.name {
				out = append(out, describer.Field{Name: ReverseName(other.name), Kind: describer.KindOneToMany, Related: other.name})
			}
		}
	}
	return out
}

// New returns an unsaved instance built from data.
func (m *Model) New(data describer.Data) (describer.Instance, error) {
	r := &Record{model: m, values: make(map[string]any, len(m.fields))}
	for _, k := range slices.Sorted(maps.Keys(data)) {
		if err := r.Set(k, data[k]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Get fetches an instance by identifier.
func (m *Model) Get(ctx context.Context, id any) (describer.Instance, error) {
	key, err := toID(id)
	if err != nil {
		return nil, describer.NewNotFoundError(m.name, id)
	}
	items, err := m.Query(ctx).
		Filter(describer.Lookup{Field: describer.IDField, Op: describer.OpExact, Value: key}).
		Slice(0, 1).
		All(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, describer.NewNotFoundError(m.name, id)
	}
	return items[0], nil
}

// Save inserts new instances and updates stored ones.
func (m *Model) Save(ctx context.Context, i describer.Instance) error {
	r, err := m.record(i)
	if err != nil {
		return err
	}
	for _, f := range m.fields {
		if f.Name == describer.IDField || f.Optional {
			continue
		}
		if r.values[f.Name] == nil {
			return describer.NewInputError(f.Name, "field is required")
		}
	}
	if r.stored {
		return m.update(ctx, r)
	}
	return m.insert(ctx, r)
}

func (m *Model) insert(ctx context.Context, r *Record) error {
	drv := m.catalog.drv
	var (
		cols []string
		args []any
	)
	for _, f := range m.fields {
		v, ok := r.values[f.Name]
		if !ok || (f.Name == describer.IDField && v == nil) {
			continue
		}
		cols = append(cols, m.columns[f.Name])
		args = append(args, v)
	}
	b := drv.builder().WriteString("INSERT INTO ").Ident(m.table)
	switch {
	case len(cols) > 0:
		b.WriteString(" (")
		for i, col := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(col)
		}
		b.WriteString(") VALUES (").Args(args...).WriteString(")")
	case drv.Dialect() == dialect.MySQL:
		b.WriteString(" () VALUES ()")
	default:
		b.WriteString(" DEFAULT VALUES")
	}
	if drv.Dialect() == dialect.Postgres {
		b.WriteString(" RETURNING ").Ident(m.columns[describer.IDField])
		query, args := b.Query()
		rows, err := drv.query(ctx, query, args)
		if err != nil {
			return m.saveError("create", err)
		}
		defer rows.Close()
		var id int64
		if !rows.Next() {
			return m.saveError("create", errors.Join(sql.ErrNoRows, rows.Err()))
		}
		if err := rows.Scan(&id); err != nil {
			return m.saveError("create", err)
		}
		r.values[describer.IDField] = id
		r.stored = true
		return rows.Err()
	}
	query, args := b.Query()
	res, err := drv.exec(ctx, query, args)
	if err != nil {
		return m.saveError("create", err)
	}
	if r.values[describer.IDField] == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return m.saveError("create", err)
		}
		r.values[describer.IDField] = id
	}
	r.stored = true
	return nil
}

// update writes the fields set on r. Unset fields keep their stored value.
func (m *Model) update(ctx context.Context, r *Record) error {
	drv := m.catalog.drv
	b := drv.builder().WriteString("UPDATE ").Ident(m.table).WriteString(" SET ")
	n := 0
	for _, f := range m.fields {
		if _, ok := r.values[f.Name]; !ok || f.Name == describer.IDField {
			continue
		}
		if n > 0 {
			b.WriteString(", ")
		}
		b.Ident(m.columns[f.Name]).WriteString(" = ").Arg(r.values[f.Name])
		n++
	}
	if n == 0 {
		return nil
	}
	b.WriteString(" WHERE ").Ident(m.columns[describer.IDField]).WriteString(" = ").Arg(r.ID())
	query, args := b.Query()
	res, err := drv.exec(ctx, query, args)
	if err != nil {
		return m.saveError("update", err)
	}
	return m.affected(res, r)
}

// Delete removes the instance.
func (m *Model) Delete(ctx context.Context, i describer.Instance) error {
	r, err := m.record(i)
	if err != nil {
		return err
	}
	if r.ID() == nil {
		return describer.NewNotFoundError(m.name, nil)
	}
	drv := m.catalog.drv
	query, args := drv.builder().
		WriteString("DELETE FROM ").Ident(m.table).
		WriteString(" WHERE ").Ident(m.columns[describer.IDField]).WriteString(" = ").Arg(r.ID()).
		Query()
	res, err := drv.exec(ctx, query, args)
	if err != nil {
		return m.saveError("delete", err)
	}
	if err := m.affected(res, r); err != nil {
		return err
	}
	r.stored = false
	return nil
}

// Query returns a query set over every instance.
func (m *Model) Query(context.Context) describer.QuerySet {
	return &QuerySet{model: m, limit: -1}
}

func (m *Model) affected(res sql.Result, r *Record) error {
	n, err := res.RowsAffected()
	if err != nil {
		return describer.NewMutationError(m.name, "update", err)
	}
	if n == 0 {
		return describer.NewNotFoundError(m.name, r.ID())
	}
	return nil
}

// saveError reports constraint violations as invalid input.
func (m *Model) saveError(op string, err error) error {
	if c := ConstraintOf(err); c != ConstraintNone {
		return describer.NewInputError("data", "%s constraint violated: %v", c, err)
	}
	return describer.NewMutationError(m.name, op, err)
}

func (m *Model) record(i describer.Instance) (*Record, error) {
	r, ok := i.(*Record)
	if !ok || r.model != m {
		return nil, fmt.Errorf("dialect/sql: %T is not a %s instance", i, m.name)
	}
	return r, nil
}

// resolve maps a field name or foreign key alias to a local field and its
// column.
func (m *Model) resolve(name string) (describer.Field, string, bool) {
	for _, f := range m.fields {
		if f.Name == name {
			return f, m.columns[f.Name], true
		}
	}
	if base, ok := strings.CutSuffix(name, "_id"); ok {
		for _, f := range m.fields {
			if f.Name == base && f.Kind == describer.KindForeignKey {
				return f, m.columns[f.Name], true
			}
		}
	}
	return describer.Field{}, "", false
}

// Record is an instance of a table backed model.
type Record struct {
	model  *Model
	values map[string]any
	stored bool
}

var _ describer.Instance = (*Record)(nil)

// ID returns the identifier, or nil if unsaved.
func (r *Record) ID() any {
	return r.values[describer.IDField]
}

// Get returns a field value. Reverse relations return a describer.QuerySet.
func (r *Record) Get(name string) (any, bool) {
	if f, _, ok := r.model.resolve(name); ok {
		return r.values[f.Name], true
	}
	for _, f := range r.model.ReverseFields() {
		if f.Name != name {
			continue
		}
		other, ok := r.model.catalog.Model(f.Related)
		if !ok {
			return nil, false
		}
		for _, of := range other.fields {
			if of.Kind == describer.KindForeignKey && of.Related == r.model.name {
				return other.Query(context.Background()).Filter(describer.Lookup{Field: of.Name, Op: describer.OpExact, Value: r.ID()}), true
			}
		}
	}
	return nil, false
}

// Set assigns a local field.
func (r *Record) Set(name string, v any) error {
	f, _, ok := r.model.resolve(name)
	if !ok {
		return describer.NewInputError(name, "unknown field of %s", r.model.name)
	}
	nv, err := normalize(f, v)
	if err != nil {
		return describer.NewInputError(name, "%v", err)
	}
	r.values[f.Name] = nv
	return nil
}
