package schema

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema/field"
)

// Registry holds the registered describers and non-model actions. It is
// filled at process start and sealed when a schema is generated.
type Registry struct {
	mu      sync.RWMutex
	types   *field.Registry
	handles []*Handle
	byModel map[string]*Handle
	actions []*action.Bound
	log     *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		types:   field.NewRegistry(),
		byModel: make(map[string]*Handle),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates d, resolves its caches and binds its actions.
// Nothing is recorded when registration fails.
func (r *Registry) Register(d Describer) (*Handle, error) {
	if d.Model == nil {
		return nil, describer.Configf("", "describer has no model")
	}
	name := d.Model.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types.Sealed() {
		return nil, describer.NewConfigError(name, "", "cannot register describer", describer.ErrSealed)
	}
	if _, ok := r.byModel[name]; ok {
		return nil, describer.NewConfigError(name, "", "", describer.ErrDuplicateDescriber)
	}
	h := &Handle{config: d, registry: r, modelType: field.Model(d.Model)}
	h.config.FieldPermissions = maps.Clone(d.FieldPermissions)
	h.config.ExtraActions = maps.Clone(d.ExtraActions)

	var err error
	if h.fields, err = describer.DetermineFields(d.Model, d.Only, d.Exclude, true); err != nil {
		return nil, err
	}
	for _, f := range h.fields {
		if describer.IsLocalField(d.Model, f) {
			h.localFields = append(h.localFields, f)
		}
	}
	if err := h.checkExtraFields(); err != nil {
		return nil, err
	}
	if err := h.resolvePermissions(); err != nil {
		return nil, err
	}
	if err := h.bindActions(); err != nil {
		return nil, err
	}
	if err := r.types.Add(h.modelType); err != nil {
		return nil, err
	}
	r.handles = append(r.handles, h)
	r.byModel[name] = h
	r.log.Debug("describer registered",
		zap.String("model", name),
		zap.Strings("fields", h.fields),
		zap.Int("actions", len(h.actions)),
	)
	return h, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(d Describer) *Handle {
	h, err := r.Register(d)
	if err != nil {
		panic(err)
	}
	return h
}

// RegisterAction registers a custom action that belongs to no describer.
func (r *Registry) RegisterAction(name string, a action.Action) (*action.Bound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types.Sealed() {
		return nil, describer.NewConfigError("", name, "cannot register action", describer.ErrSealed)
	}
	for _, b := range r.actions {
		if b.Name() == name {
			return nil, describer.NewConfigError("", name, "action already registered", describer.ErrDuplicateName)
		}
	}
	b, err := action.Bind(nil, name, a)
	if err != nil {
		return nil, err
	}
	r.actions = append(r.actions, b)
	r.log.Debug("action registered", zap.String("action", name))
	return b, nil
}

// Get returns the handle registered for m.
func (r *Registry) Get(m describer.Model) (*Handle, bool) {
	return r.Lookup(m.Name())
}

// Lookup returns the handle registered for the named model.
func (r *Registry) Lookup(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byModel[name]
	return h, ok
}

// Handles returns the registered describers in registration order.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handles)
}

// Actions returns the non-model actions in registration order.
func (r *Registry) Actions() []*action.Bound {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.actions)
}

// Types returns the model type registry.
func (r *Registry) Types() *field.Registry { return r.types }

// Seal makes the registry read-only. Later registrations fail with
// describer.ErrSealed.
func (r *Registry) Seal() { r.types.Seal() }

// Sealed reports whether the registry is read-only.
func (r *Registry) Sealed() bool { return r.types.Sealed() }

func (h *Handle) checkExtraFields() error {
	seen := make(map[string]bool, len(h.fields))
	for _, f := range h.fields {
		seen[f] = true
	}
	for _, e := range h.config.ExtraFields {
		if e.Name == "" || e.Type == nil {
			return describer.NewConfigError(h.Name(), e.Name, "extra field needs a name and a type", nil)
		}
		if seen[e.Name] {
			return describer.NewConfigError(h.Name(), e.Name, "this field already exists", describer.ErrDuplicateName)
		}
		seen[e.Name] = true
	}
	for _, f := range h.config.ExtraFilters {
		if f.Name == "" || f.Type == nil {
			return describer.NewConfigError(h.Name(), f.Name, "extra filter needs a name and a type", nil)
		}
	}
	return nil
}

func (h *Handle) resolvePermissions() error {
	h.fieldPerms = make(map[string]permission.Set, len(h.config.FieldPermissions))
	for _, name := range slices.Sorted(maps.Keys(h.config.FieldPermissions)) {
		exposed := slices.Contains(h.fields, name) || slices.ContainsFunc(h.config.ExtraFields, func(e ExtraField) bool {
			return e.Name == name
		})
		if !exposed {
			return describer.NewConfigError(h.Name(), name, "field permissions for a field that is not exposed", describer.ErrUnknownField)
		}
		h.fieldPerms[name] = slices.Clone(h.config.FieldPermissions[name])
	}
	return nil
}

func (h *Handle) bindActions() error {
	standard := []struct {
		name string
		cfg  action.Action
		set  bool
	}{
		{action.NameList, h.config.List, h.config.List != nil},
		{action.NameDetail, h.config.Detail, h.config.Detail != nil},
		{action.NameCreate, h.config.Create, h.config.Create != nil},
		{action.NameUpdate, h.config.Update, h.config.Update != nil},
		{action.NameDelete, h.config.Delete, h.config.Delete != nil},
	}
	for _, s := range standard {
		if !s.set {
			continue
		}
		b, err := action.Bind(h, s.name, s.cfg)
		if err != nil {
			return err
		}
		h.actions = append(h.actions, b)
	}
	for _, name := range slices.Sorted(maps.Keys(h.config.ExtraActions)) {
		if action.IsReserved(name) {
			return describer.NewConfigError(h.Name(), name, fmt.Sprintf("action name %q is reserved", name), describer.ErrReservedName)
		}
		b, err := action.Bind(h, name, h.config.ExtraActions[name])
		if err != nil {
			return err
		}
		h.actions = append(h.actions, b)
	}
	return nil
}
