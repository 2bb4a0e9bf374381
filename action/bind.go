package action

import (
	"slices"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema/field"
)

// Bound is an action bound to its describer and name. It is created once
// by Bind and never changes afterwards.
type Bound struct {
	owner  Owner
	name   string
	config Action

	fields      []string
	extra       []field.Named
	required    map[string]bool
	returns     []field.Named
	permissions permission.Set
	exec        ExecFunc
	fetch       FetchFunc
	list        ListFunc
	idArg       bool
}

// Kind returns the kind of the bound configuration.
func (b *Bound) Kind() Kind { return b.config.Kind() }

func (*Bound) action() {}

// Bind binds a to owner under name. A nil owner binds a non-model action,
// which must be a Custom action. Field sets, defaults and permissions are
// resolved here, so configuration errors surface at registration.
func Bind(owner Owner, name string, a Action) (*Bound, error) {
	label := ""
	if owner != nil {
		label = owner.Model().Name()
	}
	switch a := a.(type) {
	case nil:
		return nil, describer.Configf(label, "action %q has no configuration", name)
	case *Bound:
		return nil, describer.NewConfigError(label, name, "action `"+a.Name()+"` is already bound", nil)
	}
	if name == "" {
		return nil, describer.Configf(label, "action name is empty")
	}
	if owner == nil && a.Kind() != KindCustom {
		return nil, describer.NewConfigError("", name, a.Kind().String()+" action requires a describer", nil)
	}
	b := &Bound{owner: owner, name: name, config: a}
	if err := b.resolve(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bound) resolve() error {
	switch a := b.config.(type) {
	case *List:
		b.fields = b.owner.Fields()
		b.permissions = a.Permissions
		b.list = a.Fetch
		if b.list == nil {
			b.list = defaultList(b.owner.Model())
		}
	case *Detail:
		b.fields = b.owner.Fields()
		b.permissions = a.Permissions
		b.fetch = orDefaultFetch(a.Fetch, b.owner.Model())
		b.idArg = !a.NoID
	case *Create:
		fields, err := b.modifyFields(a.Only, a.Exclude)
		if err != nil {
			return err
		}
		b.fields = slices.DeleteFunc(fields, func(f string) bool { return f == describer.IDField })
		b.permissions, b.extra, b.required = a.Permissions, a.ExtraFields, a.Required
		b.exec = a.Exec
		if b.exec == nil {
			b.exec = defaultCreate(b.owner.Model())
		}
		b.returns = a.Returns
	case *Update:
		fields, err := b.modifyFields(a.Only, a.Exclude)
		if err != nil {
			return err
		}
		if !slices.Contains(fields, describer.IDField) {
			fields = append(fields, describer.IDField)
		}
		b.fields = fields
		b.permissions, b.extra, b.required = a.Permissions, a.ExtraFields, a.Required
		b.exec = a.Exec
		if b.exec == nil {
			b.exec = defaultUpdate(b.owner.Model())
		}
		b.fetch = orDefaultFetch(a.Fetch, b.owner.Model())
		b.returns = a.Returns
	case *Delete:
		b.fields = []string{describer.IDField}
		b.permissions, b.extra = a.Permissions, a.ExtraFields
		b.exec = a.Exec
		if b.exec == nil {
			b.exec = defaultDelete(b.owner.Model())
		}
		b.fetch = orDefaultFetch(a.Fetch, b.owner.Model())
		b.returns = a.Returns
	case *Custom:
		if a.Exec == nil {
			return b.missing("exec function")
		}
		if len(a.Returns) == 0 {
			return b.missing("return fields")
		}
		b.permissions, b.exec, b.returns = a.Permissions, a.Exec, a.Returns
	case *CustomObject:
		if a.Exec == nil {
			return b.missing("exec function")
		}
		if len(a.Returns) == 0 {
			return b.missing("return fields")
		}
		b.fields = []string{describer.IDField}
		b.permissions, b.extra, b.exec, b.returns = a.Permissions, a.ExtraFields, a.Exec, a.Returns
		b.fetch = orDefaultFetch(a.Fetch, b.owner.Model())
	}
	if len(b.permissions) == 0 && b.owner != nil {
		b.permissions = b.owner.DefaultActionPermissions()
	}
	if b.returns == nil && b.owner != nil && !b.Kind().ReadOnly() {
		b.returns = []field.Named{{Name: ObjectField, Type: b.owner.ModelType()}}
	}
	return b.checkExtra()
}

func (b *Bound) modifyFields(only, exclude []string) ([]string, error) {
	if only == nil && exclude == nil {
		return slices.Clone(b.owner.LocalFields()), nil
	}
	return describer.DetermineFields(b.owner.Model(), only, exclude, false)
}

func (b *Bound) missing(what string) error {
	return describer.NewConfigError(b.ownerName(), b.name, "no default "+what+" for "+b.Kind().String()+" action; one must be provided", nil)
}

func (b *Bound) checkExtra() error {
	seen := make(map[string]bool, len(b.fields)+len(b.extra))
	for _, f := range b.fields {
		seen[f] = true
	}
	for _, e := range b.extra {
		if seen[e.Name] {
			return describer.NewConfigError(b.ownerName(), e.Name, "duplicate field in action "+b.name, describer.ErrDuplicateName)
		}
		seen[e.Name] = true
	}
	return nil
}

func (b *Bound) ownerName() string {
	if b.owner == nil {
		return ""
	}
	return b.owner.Model().Name()
}

// Name returns the qualified name, <Model>_<name> for model actions.
func (b *Bound) Name() string {
	if b.owner == nil {
		return b.name
	}
	return b.owner.Model().Name() + "_" + b.name
}

// ShortName returns the name the action was bound under.
func (b *Bound) ShortName() string { return b.name }

// Owner returns the describer, or nil for non-model actions.
func (b *Bound) Owner() Owner { return b.owner }

// Config returns the bound configuration.
func (b *Bound) Config() Action { return b.config }

// ReadOnly reports whether the action is a query.
func (b *Bound) ReadOnly() bool { return b.Kind().ReadOnly() }

// HasModel reports whether the action operates on a model.
func (b *Bound) HasModel() bool { return b.owner != nil && b.Kind() != KindCustom }

// Permissions returns the action's permissions, falling back to the
// describer's default action permissions. An empty set allows all.
func (b *Bound) Permissions() permission.Set { return b.permissions }

// Fields returns the exposed field names. Custom actions have none.
func (b *Bound) Fields() []string { return b.fields }

// ExtraFields returns the additional input fields.
func (b *Bound) ExtraFields() []field.Named { return b.extra }

// Required reports an override of whether the named input field is required.
func (b *Bound) Required(name string) (required, ok bool) {
	required, ok = b.required[name]
	return required, ok
}

// Returns returns the return fields of a mutation.
func (b *Bound) Returns() []field.Named { return b.returns }

// Input returns the input type of a Custom action.
func (b *Bound) Input() *field.CompositeType {
	if c, ok := b.config.(*Custom); ok {
		return c.Input
	}
	return nil
}

// Exec returns the execution function of a mutation.
func (b *Bound) Exec() ExecFunc { return b.exec }

// Fetch returns the fetch-by-identifier function.
func (b *Bound) Fetch() FetchFunc { return b.fetch }

// IDArg reports whether a detail takes the identifier as an argument.
func (b *Bound) IDArg() bool { return b.idArg }

// List returns the collection function of a listing.
func (b *Bound) List() ListFunc { return b.list }

// Convert lowers the action through c.
func (b *Bound) Convert(c Converter) (any, error) {
	switch b.Kind() {
	case KindList:
		return c.ConvertList(b)
	case KindDetail:
		return c.ConvertDetail(b)
	case KindCreate:
		return c.ConvertCreate(b)
	case KindUpdate:
		return c.ConvertUpdate(b)
	case KindDelete:
		return c.ConvertDelete(b)
	case KindCustom:
		return c.ConvertCustom(b)
	default:
		return c.ConvertCustomObject(b)
	}
}
