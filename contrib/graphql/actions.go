package graphql

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/schema"
	"github.com/karlosss/describer/schema/field"
)

// Root field arguments.
const (
	idArg   = "id"
	dataArg = "data"
)

// ConvertList adds a <model>List query returning a page of instances.
func (a *Adapter) ConvertList(b *action.Bound) (any, error) {
	g, h, err := a.modelAction(b)
	if err != nil {
		return nil, err
	}
	args, err := g.listingArgs(a, h)
	if err != nil {
		return nil, err
	}
	def, max, err := g.pageSizes(h)
	if err != nil {
		return nil, err
	}
	fd := &ast.FieldDefinition{
		Name:        operationName(b),
		Description: describe(g.cfg.Descriptions, "Lists %s instances.", h.Name()),
		Arguments:   args,
		Type:        ast.NamedType(listName(h.Name()), nil),
	}
	l := &listing{handle: h, perms: b.Permissions(), def: def, max: max}
	if err := g.operation(b, fd, listResolver(b, l)); err != nil {
		return nil, err
	}
	return fd, nil
}

// ConvertDetail adds a <model>Detail query returning one instance, by id
// unless the detail drops the argument.
func (a *Adapter) ConvertDetail(b *action.Bound) (any, error) {
	g, h, err := a.modelAction(b)
	if err != nil {
		return nil, err
	}
	fd := &ast.FieldDefinition{
		Name:        operationName(b),
		Description: describe(g.cfg.Descriptions, "Returns the %s with the given id.", h.Name()),
		Type:        ast.NamedType(objectName(h.Name()), nil),
	}
	if b.IDArg() {
		fd.Arguments = ast.ArgumentDefinitionList{
			{Name: idArg, Type: ast.NonNullNamedType(scalarID, nil)},
		}
	} else {
		fd.Description = describe(g.cfg.Descriptions, "Returns the %s.", h.Name())
	}
	if err := g.operation(b, fd, detailResolver(b)); err != nil {
		return nil, err
	}
	return fd, nil
}

// ConvertCreate adds a <model>Create mutation.
func (a *Adapter) ConvertCreate(b *action.Bound) (any, error) { return a.convertMutation(b) }

// ConvertUpdate adds a <model>Update mutation.
func (a *Adapter) ConvertUpdate(b *action.Bound) (any, error) { return a.convertMutation(b) }

// ConvertDelete adds a <model>Delete mutation.
func (a *Adapter) ConvertDelete(b *action.Bound) (any, error) { return a.convertMutation(b) }

// ConvertCustomObject adds a mutation acting on one instance by id.
func (a *Adapter) ConvertCustomObject(b *action.Bound) (any, error) { return a.convertMutation(b) }

// ConvertCustom adds a mutation whose input is the action's composite
// input type.
func (a *Adapter) ConvertCustom(b *action.Bound) (any, error) {
	g, err := a.generator()
	if err != nil {
		return nil, err
	}
	var input string
	if in := b.Input(); in != nil && len(in.Fields()) > 0 {
		input, err = g.compositeInput(a, inputName(b), b, in.Fields())
		if err != nil {
			return nil, err
		}
	}
	return g.mutationField(a, b, input)
}

func (a *Adapter) convertMutation(b *action.Bound) (any, error) {
	g, h, err := a.modelAction(b)
	if err != nil {
		return nil, err
	}
	input, err := g.modelInput(a, b, h)
	if err != nil {
		return nil, err
	}
	return g.mutationField(a, b, input)
}

// modelAction returns the generator and the describer of a model action.
func (a *Adapter) modelAction(b *action.Bound) (*generator, *schema.Handle, error) {
	g, err := a.generator()
	if err != nil {
		return nil, nil, err
	}
	if b.Owner() == nil {
		return nil, nil, describer.NewConfigError("", b.Name(), b.Kind().String()+" action requires a describer", nil)
	}
	h, ok := g.reg.Lookup(b.Owner().Model().Name())
	if !ok {
		return nil, nil, describer.NewConfigError(b.Owner().Model().Name(), b.Name(), "action owner is not registered", nil)
	}
	return g, h, nil
}

// modelInput defines the input object of a model mutation and returns its
// name, or "" when the action takes no input. The identifier is ID!,
// foreign keys are renamed <name>_id, and every field of an update is
// optional unless overridden.
func (g *generator) modelInput(a *Adapter, b *action.Bound, h *schema.Handle) (string, error) {
	def := &ast.Definition{Kind: ast.InputObject, Name: inputName(b)}
	for _, fname := range b.Fields() {
		name, typ := fname, ast.NonNullNamedType(scalarID, nil)
		if fname != describer.IDField {
			f, _ := h.Field(fname)
			typ, err := g.inputField(a, f)
			if err != nil {
				return "", describer.NewConfigError(h.Name(), fname, "cannot convert input field of "+b.Name(), err)
			}
			if f.Kind == describer.KindForeignKey {
				name = foreignKeyName(fname)
			}
			if b.Kind() == action.KindUpdate {
				typ.NonNull = false
			}
			if req, ok := required(b, fname, name); ok {
				typ.NonNull = req
			}
		}
		if err := g.addField(def, &ast.FieldDefinition{Name: name, Type: typ}, nil); err != nil {
			return "", err
		}
	}
	for _, e := range b.ExtraFields() {
		typ, err := convertType(a, e.Type, field.Options{Mode: field.InputField, Name: e.Name})
		if err != nil {
			return "", describer.NewConfigError(h.Name(), e.Name, "cannot convert extra field of "+b.Name(), err)
		}
		if err := g.addField(def, &ast.FieldDefinition{Name: e.Name, Type: typ}, nil); err != nil {
			return "", err
		}
	}
	if len(def.Fields) == 0 {
		return "", nil
	}
	if err := g.define(def); err != nil {
		return "", err
	}
	return def.Name, nil
}

// inputField returns the input type of a model field. Relations to
// described models are taken as identifiers.
func (g *generator) inputField(a *Adapter, f describer.Field) (*ast.Type, error) {
	switch t := g.reg.Types().ForField(f).(type) {
	case *field.ModelType:
		return &ast.Type{NamedType: scalarID, NonNull: t.Required()}, nil
	case *field.QuerySetType:
		return &ast.Type{Elem: ast.NonNullNamedType(scalarID, nil), NonNull: t.Required()}, nil
	default:
		return convertType(a, t, field.Options{Mode: field.Input, Name: f.Name})
	}
}

func required(b *action.Bound, names ...string) (bool, bool) {
	for _, name := range names {
		if req, ok := b.Required(name); ok {
			return req, true
		}
	}
	return false, false
}

// mutationField adds the payload type and the root mutation field of b.
func (g *generator) mutationField(a *Adapter, b *action.Bound, input string) (*ast.FieldDefinition, error) {
	if len(b.Returns()) == 0 {
		return nil, describer.NewConfigError("", b.Name(), "action has no return fields", nil)
	}
	payload := &ast.Definition{
		Kind:        ast.Object,
		Name:        payloadName(b),
		Description: describe(g.cfg.Descriptions, "The result of %s.", operationName(b)),
	}
	if err := g.define(payload); err != nil {
		return nil, err
	}
	for _, ret := range b.Returns() {
		typ, err := convertType(a, ret.Type, field.Options{Mode: field.Output, Name: ret.Name})
		if err != nil {
			return nil, describer.NewConfigError("", b.Name()+"."+ret.Name, "cannot convert return field", err)
		}
		if err := g.addField(payload, &ast.FieldDefinition{Name: ret.Name, Type: typ}, valueResolver(ret.Name)); err != nil {
			return nil, err
		}
	}
	fd := &ast.FieldDefinition{
		Name: operationName(b),
		Type: ast.NamedType(payload.Name, nil),
	}
	if input != "" {
		fd.Arguments = ast.ArgumentDefinitionList{
			{Name: dataArg, Type: ast.NonNullNamedType(input, nil)},
		}
	}
	if err := g.operation(b, fd, mutationResolver(b)); err != nil {
		return nil, err
	}
	return fd, nil
}
