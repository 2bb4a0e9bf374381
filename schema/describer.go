package schema

import (
	"context"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema/field"
)

// ExtraField is a derived, non-stored output field of a describer.
type ExtraField struct {
	Name string
	// Type is a field.Type or a describer.Model. Models resolve to their
	// registered descriptor when the schema is generated.
	Type any
	// Resolve computes the value. A nil Resolve reads the instance field
	// with the same name.
	Resolve func(ctx context.Context, obj describer.Instance) (any, error)
}

// ExtraFilter is an additional listing argument.
type ExtraFilter struct {
	Name string
	Type field.Type
	// Lookups converts the argument into lookups applied to the listing.
	// A nil Lookups parses Name as a lookup key, e.g. "title__icontains".
	Lookups func(v any) []describer.Lookup
}

// Describer is the declarative configuration binding a model to its exposed
// fields, actions and permissions. A nil standard action slot disables the
// action; use New to start from a configuration with every slot enabled.
type Describer struct {
	Model describer.Model

	// Only and Exclude select the exposed fields. At most one may be set.
	Only, Exclude []string

	// FieldPermissions gate individual output fields. Fields without an
	// entry use DefaultFieldPermissions.
	FieldPermissions        map[string]permission.Set
	DefaultFieldPermissions permission.Set

	// DefaultActionPermissions gate every action without its own permissions.
	DefaultActionPermissions permission.Set

	ExtraFields  []ExtraField
	ExtraFilters []ExtraFilter

	// DefaultPageSize and MaxPageSize bound listings. Zero uses the
	// adapter's configuration.
	DefaultPageSize, MaxPageSize int

	List   *action.List
	Detail *action.Detail
	Create *action.Create
	Update *action.Update
	Delete *action.Delete

	// ExtraActions are custom actions keyed by name. They are bound in
	// sorted name order.
	ExtraActions map[string]action.Action
}

// New returns a describer of m with every standard action enabled and
// no permissions.
func New(m describer.Model) Describer {
	return Describer{
		Model:  m,
		List:   &action.List{},
		Detail: &action.Detail{},
		Create: &action.Create{},
		Update: &action.Update{},
		Delete: &action.Delete{},
	}
}

// Handle is a registered describer with its resolved caches. It never
// changes after registration.
type Handle struct {
	config      Describer
	registry    *Registry
	modelType   *field.ModelType
	fields      []string
	localFields []string
	fieldPerms  map[string]permission.Set
	actions     []*action.Bound
}

var _ action.Owner = (*Handle)(nil)

// Model returns the described model.
func (h *Handle) Model() describer.Model { return h.config.Model }

// Name returns the model name.
func (h *Handle) Name() string { return h.config.Model.Name() }

// ModelType returns the model's registered descriptor.
func (h *Handle) ModelType() *field.ModelType { return h.modelType }

// Fields returns the exposed fields, local and reverse.
func (h *Handle) Fields() []string { return h.fields }

// LocalFields returns the exposed local fields.
func (h *Handle) LocalFields() []string { return h.localFields }

// DefaultActionPermissions returns the default action permissions.
func (h *Handle) DefaultActionPermissions() permission.Set {
	return h.config.DefaultActionPermissions
}

// FieldPermissions returns the permissions gating the named output field.
// An entry in the describer's FieldPermissions, even an empty one,
// overrides DefaultFieldPermissions.
func (h *Handle) FieldPermissions(name string) permission.Set {
	if ps, ok := h.fieldPerms[name]; ok {
		return ps
	}
	return h.config.DefaultFieldPermissions
}

// ExtraFields returns the declared extra fields.
func (h *Handle) ExtraFields() []ExtraField { return h.config.ExtraFields }

// ExtraFilters returns the declared extra listing filters.
func (h *Handle) ExtraFilters() []ExtraFilter { return h.config.ExtraFilters }

// PageSizes returns the describer's default and maximum page sizes.
// Zero values defer to the adapter.
func (h *Handle) PageSizes() (def, max int) {
	return h.config.DefaultPageSize, h.config.MaxPageSize
}

// Actions returns the bound actions: standard actions first, then extra
// actions by name.
func (h *Handle) Actions() []*action.Bound { return h.actions }

// Action returns the action bound under name.
func (h *Handle) Action(name string) (*action.Bound, bool) {
	for _, a := range h.actions {
		if a.ShortName() == name {
			return a, true
		}
	}
	return nil, false
}

// Field returns the model field with the given name.
func (h *Handle) Field(name string) (describer.Field, bool) {
	return describer.FieldByName(h.config.Model, name)
}

// Type resolves a declared type through the registry.
func (h *Handle) Type(v any) (field.Type, error) {
	return h.registry.types.Instantiate(v)
}
