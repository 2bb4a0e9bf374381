package describer

import (
	"context"
	"fmt"
	"strings"
)

// IDField is the name of the identifier field every model exposes.
const IDField = "id"

// LookupSep separates a field name from its filter operator, as in title__contains.
const LookupSep = "__"

// Kind describes the storage kind of a model field.
type Kind uint8

// Field kinds.
const (
	KindUnknown Kind = iota
	KindID
	KindString
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
	KindForeignKey
	KindOneToMany
	KindManyToMany
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindID:         "id",
	KindString:     "string",
	KindText:       "text",
	KindInt:        "int",
	KindFloat:      "float",
	KindBool:       "bool",
	KindTime:       "time",
	KindForeignKey: "foreign_key",
	KindOneToMany:  "one_to_many",
	KindManyToMany: "many_to_many",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsRelation reports whether the kind references another model.
func (k Kind) IsRelation() bool {
	return k == KindForeignKey || k == KindOneToMany || k == KindManyToMany
}

// Field describes one field of a model.
type Field struct {
	Name string
	Kind Kind
	// Related is the name of the referenced model for relation kinds.
	Related string
	// Optional is set for nullable fields and fields with a default.
	// Optional fields are not required when creating an instance.
	Optional bool
	// Symmetric marks a many-to-many relation of a model to itself that
	// has no distinct reverse side.
	Symmetric bool
}

// Model is the introspection and persistence contract of a data model.
//
// A foreign key field holds the related identifier. Backends accept the
// alias <name>_id for foreign key fields in New and Instance.Set.
type Model interface {
	// Name returns the model name, e.g. "Book". Names are unique per registry.
	Name() string
	// Fields returns the local fields in catalog order.
	Fields() []Field
	// ReverseFields returns the reverse relation fields.
	ReverseFields() []Field
	// New returns an unsaved instance built from data.
	New(data Data) (Instance, error)
	// Get fetches an instance by identifier. Missing records fail with
	// a *NotFoundError.
	Get(ctx context.Context, id any) (Instance, error)
	// Save persists the instance, assigning its identifier if new.
	Save(ctx context.Context, i Instance) error
	// Delete removes the instance from storage.
	Delete(ctx context.Context, i Instance) error
	// Query returns a query set over all instances.
	Query(ctx context.Context) QuerySet
}

// Instance is a single record of a model.
type Instance interface {
	// ID returns the identifier, or nil for an unsaved instance.
	ID() any
	// Get returns a field value. Reverse relation fields return a QuerySet.
	Get(name string) (any, bool)
	// Set assigns a local field value.
	Set(name string, v any) error
}

// QuerySet is a lazy, immutable collection of instances.
// Every builder method returns a new QuerySet.
type QuerySet interface {
	// Model returns the model the set ranges over.
	Model() Model
	// Filter narrows the set. Lookups are joined with AND.
	Filter(lookups ...Lookup) QuerySet
	// OrderBy sorts the set. A "-" prefix sorts descending.
	OrderBy(fields ...string) QuerySet
	// Slice restricts the set to limit items starting at offset.
	// A negative limit means no upper bound.
	Slice(offset, limit int) QuerySet
	// Count returns the number of instances in the set, ignoring Slice.
	Count(ctx context.Context) (int, error)
	// All materializes the set.
	All(ctx context.Context) ([]Instance, error)
}

// Filter operators understood by the model backends.
const (
	OpExact       = "exact"
	OpIExact      = "iexact"
	OpContains    = "contains"
	OpIContains   = "icontains"
	OpIn          = "in"
	OpGT          = "gt"
	OpGTE         = "gte"
	OpLT          = "lt"
	OpLTE         = "lte"
	OpStartsWith  = "startswith"
	OpIStartsWith = "istartswith"
	OpEndsWith    = "endswith"
	OpIEndsWith   = "iendswith"
	OpRegex       = "regex"
	OpIRegex      = "iregex"
	OpIsNull      = "isnull"
)

// Lookup is a single field comparison, e.g. {title, contains, "Go"}.
type Lookup struct {
	Field string
	Op    string
	Value any
}

// ParseLookup splits a lookup key such as "title__contains" into a Lookup.
// A key without an operator compares with OpExact.
func ParseLookup(key string, v any) Lookup {
	name, op, ok := strings.Cut(key, LookupSep)
	if !ok || op == "" {
		op = OpExact
	}
	return Lookup{Field: name, Op: op, Value: v}
}

// String returns the lookup key.
func (l Lookup) String() string {
	return l.Field + LookupSep + l.Op
}

// Data is the input mapping of a mutation. Missing keys read as nil.
type Data map[string]any

// Get returns the value for key, or nil.
func (d Data) Get(key string) any {
	return d[key]
}

// Has reports whether key is present.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns the value for key formatted as a string, or "".
func (d Data) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Without returns a copy of d without the given keys.
func (d Data) Without(keys ...string) Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// FieldByName returns the local or reverse field with the given name.
func FieldByName(m Model, name string) (Field, bool) {
	for _, f := range m.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range m.ReverseFields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
