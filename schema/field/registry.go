package field

import (
	"fmt"
	"sync"

	"github.com/karlosss/describer"
)

// Registry maps each registered model to its canonical model-reference
// descriptor. It is filled while describers are registered and sealed
// before a schema is generated; lookups are valid in both phases.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*ModelType
	order  []string
	sealed bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*ModelType)}
}

// Register creates and stores the descriptor for m. Each model registers
// exactly once.
func (r *Registry) Register(m describer.Model) (*ModelType, error) {
	t := Model(m)
	if err := r.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Add stores a descriptor created with Model.
func (r *Registry) Add(t *ModelType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Model().Name()
	if r.sealed {
		return describer.NewConfigError(name, "", "cannot register model type", describer.ErrSealed)
	}
	if _, ok := r.types[name]; ok {
		return describer.NewConfigError(name, "", "model type already registered", describer.ErrDuplicateDescriber)
	}
	r.types[name] = t
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the descriptor registered for the named model.
func (r *Registry) Lookup(name string) (*ModelType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Models returns the registered model names in registration order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Instantiate normalizes a declared type. v is either a Type or a
// describer.Model, which resolves to the model's registered descriptor.
func (r *Registry) Instantiate(v any) (Type, error) {
	switch v := v.(type) {
	case Type:
		return v, nil
	case describer.Model:
		t, ok := r.Lookup(v.Name())
		if !ok {
			return nil, describer.Configf(v.Name(), "model %s has not been registered yet", v.Name())
		}
		return t, nil
	default:
		return nil, describer.Configf("", "%T is neither a type nor a model", v)
	}
}

// ForField returns the descriptor of a model field. Relations resolve
// through the registry; a relation to an unregistered model, or a field
// of unknown kind, yields the null type.
func (r *Registry) ForField(f describer.Field) Type {
	var t Type
	switch f.Kind {
	case describer.KindID, describer.KindInt:
		t = Int()
	case describer.KindString, describer.KindText, describer.KindTime:
		t = String()
	case describer.KindFloat:
		t = Float()
	case describer.KindBool:
		t = Boolean()
	case describer.KindForeignKey:
		mt, ok := r.Lookup(f.Related)
		if !ok {
			return &NullType{base: base{optional: true}, source: f.Kind}
		}
		t = mt
	case describer.KindOneToMany, describer.KindManyToMany:
		mt, ok := r.Lookup(f.Related)
		if !ok {
			return &NullType{base: base{optional: true}, source: f.Kind}
		}
		t = QuerySet(mt.Model())
	default:
		return &NullType{base: base{optional: true}, source: f.Kind}
	}
	if f.Optional {
		return optional(t)
	}
	return t
}

// FilterType returns the descriptor whose operators filter a model field.
// Foreign keys filter on the related identifier.
func FilterType(f describer.Field) Type {
	switch f.Kind {
	case describer.KindID, describer.KindInt, describer.KindForeignKey:
		return Int()
	case describer.KindString, describer.KindText, describer.KindTime:
		return String()
	case describer.KindFloat:
		return Float()
	case describer.KindBool:
		return Boolean()
	default:
		return Null()
	}
}

func optional(t Type) Type {
	switch t := t.(type) {
	case *StringType:
		return t.Optional()
	case *IntType:
		return t.Optional()
	case *FloatType:
		return t.Optional()
	case *IDType:
		return t.Optional()
	case *BooleanType:
		return t.Optional()
	case *ModelType:
		return t.Optional()
	case *QuerySetType:
		return t.Optional()
	case *CompositeType:
		return t.Optional()
	default:
		panic(fmt.Sprintf("describer/field: unexpected type %T", t))
	}
}
