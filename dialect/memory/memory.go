// Package memory provides an in-memory model backend.
//
// Models are defined on a Catalog, which resolves relations between them:
//
//	cat := memory.NewCatalog()
//	authors := cat.Define("Author",
//	    describer.Field{Name: "name", Kind: describer.KindString},
//	)
//	books := cat.Define("Book",
//	    describer.Field{Name: "title", Kind: describer.KindString},
//	    describer.Field{Name: "author", Kind: describer.KindForeignKey, Related: "Author"},
//	)
//
// Every model gets an auto-incremented "id" field. A foreign key named
// "author" is also readable and writable as "author_id", and the related
// model gains a reverse one-to-many field named after the pluralized model
// ("books").
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/karlosss/describer"
)

// Catalog is a set of models that may reference each other.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]*Model
	order  []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{models: make(map[string]*Model)}
}

// Define adds a model to the catalog. An identifier field is prepended
// unless fields already declare one. Defining a name twice panics.
func (c *Catalog) Define(name string, fields ...describer.Field) *Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.models[name]; ok {
		panic(fmt.Sprintf("memory: model %s already defined", name))
	}
	if !slices.ContainsFunc(fields, func(f describer.Field) bool { return f.Name == describer.IDField }) {
		fields = append([]describer.Field{{Name: describer.IDField, Kind: describer.KindID, Optional: true}}, fields...)
	}
	m := &Model{catalog: c, name: name, fields: fields, rows: make(map[int64]map[string]any)}
	c.models[name] = m
	c.order = append(c.order, name)
	return m
}

// Model returns the named model.
func (c *Catalog) Model(name string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[name]
	return m, ok
}

func (c *Catalog) all() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Model, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.models[name])
	}
	return out
}

// ReverseName returns the reverse relation name a model gets on the
// models it references, e.g. "books" for Book.
func ReverseName(model string) string {
	return inflect.Pluralize(inflect.Underscore(model))
}

// Model is an in-memory table.
type Model struct {
	catalog *Catalog
	name    string
	fields  []describer.Field

	mu     sync.RWMutex
	rows   map[int64]map[string]any
	nextID int64
}

var _ describer.Model = (*Model)(nil)

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Fields returns the local fields.
func (m *Model) Fields() []describer.Field { return slices.Clone(m.fields) }

// ReverseFields returns the relations of other catalog models pointing to m.
func (m *Model) ReverseFields() []describer.Field {
	var out []describer.Field
	for _, other := range m.catalog.all() {
		for _, f := range other.fields {
			if f.Related != m.name {
				continue
			}
			switch f.Kind {
			case describer.KindForeignKey:
				out = append(out, describer.Field{Name: ReverseName(other.name), Kind: describer.KindOneToMany, Related: other.name})
			case describer.KindManyToMany:
				out = append(out, describer.Field{
					Name:      ReverseName(other.name),
					Kind:      describer.KindManyToMany,
					Related:   other.name,
					Symmetric: other == m && f.Symmetric,
				})
			}
		}
	}
	return out
}

// New returns an unsaved instance built from data.
func (m *Model) New(data describer.Data) (describer.Instance, error) {
	r := &Record{model: m, values: make(map[string]any, len(m.fields))}
	keys := slices.Sorted(maps.Keys(data))
	for _, k := range keys {
		if err := r.Set(k, data[k]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Get fetches an instance by identifier.
func (m *Model) Get(_ context.Context, id any) (describer.Instance, error) {
	key, err := toID(id)
	if err != nil {
		return nil, describer.NewNotFoundError(m.name, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[key]
	if !ok {
		return nil, describer.NewNotFoundError(m.name, id)
	}
	return &Record{model: m, values: maps.Clone(row)}, nil
}

// Save stores the instance, assigning an identifier to new instances.
func (m *Model) Save(_ context.Context, i describer.Instance) error {
	r, err := m.record(i)
	if err != nil {
		return err
	}
	for _, f := range m.fields {
		if f.Name == describer.IDField || f.Optional || f.Kind == describer.KindManyToMany {
			continue
		}
		if r.values[f.Name] == nil {
			return describer.NewInputError(f.Name, "field is required")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := r.values[describer.IDField].(int64)
	if !ok {
		m.nextID++
		id = m.nextID
		r.values[describer.IDField] = id
	} else if id > m.nextID {
		m.nextID = id
	}
	m.rows[id] = maps.Clone(r.values)
	return nil
}

// Delete removes the instance.
func (m *Model) Delete(_ context.Context, i describer.Instance) error {
	r, err := m.record(i)
	if err != nil {
		return err
	}
	id, ok := r.values[describer.IDField].(int64)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, found := m.rows[id]; !ok || !found {
		return describer.NewNotFoundError(m.name, r.values[describer.IDField])
	}
	delete(m.rows, id)
	return nil
}

// Query returns a query set over every instance.
func (m *Model) Query(context.Context) describer.QuerySet {
	return &QuerySet{model: m, limit: -1}
}

// Len returns the number of stored instances.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *Model) record(i describer.Instance) (*Record, error) {
	r, ok := i.(*Record)
	if !ok || r.model != m {
		return nil, fmt.Errorf("memory: %T is not a %s instance", i, m.name)
	}
	return r, nil
}

func (m *Model) field(name string) (describer.Field, bool) {
	for _, f := range m.fields {
		if f.Name == name {
			return f, true
		}
	}
	return describer.Field{}, false
}

// resolve maps a field name or foreign key alias to a local field.
func (m *Model) resolve(name string) (describer.Field, bool) {
	if f, ok := m.field(name); ok {
		return f, true
	}
	if base, ok := strings.CutSuffix(name, "_id"); ok {
		if f, ok := m.field(base); ok && f.Kind == describer.KindForeignKey {
			return f, true
		}
	}
	return describer.Field{}, false
}

func (m *Model) snapshot() []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]map[string]any, 0, len(m.rows))
	for _, row := range m.rows {
		rows = append(rows, maps.Clone(row))
	}
	return rows
}

// Record is an instance of an in-memory model.
type Record struct {
	model  *Model
	values map[string]any
}

var _ describer.Instance = (*Record)(nil)

// ID returns the identifier, or nil if unsaved.
func (r *Record) ID() any {
	return r.values[describer.IDField]
}

// Get returns a field value. Reverse and many-to-many relations return a
// describer.QuerySet.
func (r *Record) Get(name string) (any, bool) {
	if f, ok := r.model.resolve(name); ok {
		if f.Kind == describer.KindManyToMany {
			return r.manyToMany(f), true
		}
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
			if of.Related == r.model.name && (of.Kind == describer.KindForeignKey || of.Kind == describer.KindManyToMany) {
				op := describer.OpExact
				if of.Kind == describer.KindManyToMany {
					op = opContainsID
				}
				return other.Query(context.Background()).Filter(describer.Lookup{Field: of.Name, Op: op, Value: r.ID()}), true
			}
		}
	}
	return nil, false
}

func (r *Record) manyToMany(f describer.Field) describer.QuerySet {
	other, ok := r.model.catalog.Model(f.Related)
	if !ok {
		return nil
	}
	ids, _ := r.values[f.Name].([]any)
	return other.Query(context.Background()).Filter(describer.Lookup{Field: describer.IDField, Op: describer.OpIn, Value: ids})
}

// Set assigns a local field. Integer-like kinds are normalized to int64.
func (r *Record) Set(name string, v any) error {
	f, ok := r.model.resolve(name)
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

func normalize(f describer.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case describer.KindID, describer.KindInt, describer.KindForeignKey:
		return toID(v)
	case describer.KindFloat:
		return toFloat(v)
	case describer.KindManyToMany:
		switch ids := v.(type) {
		case []any:
			out := make([]any, 0, len(ids))
			for _, id := range ids {
				n, err := toID(id)
				if err != nil {
					return nil, err
				}
				out = append(out, n)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected a list of identifiers, got %T", v)
		}
	default:
		return v, nil
	}
}

func toID(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}
