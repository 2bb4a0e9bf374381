package graphql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/schema/field"
)

// Scalar type names.
const (
	scalarString  = "String"
	scalarInt     = "Int"
	scalarFloat   = "Float"
	scalarID      = "ID"
	scalarBoolean = "Boolean"
)

// ConvertString converts a string descriptor.
func (a *Adapter) ConvertString(t *field.StringType, o field.Options) (any, error) {
	return scalar(scalarString, t, o), nil
}

// ConvertInt converts an integer descriptor.
func (a *Adapter) ConvertInt(t *field.IntType, o field.Options) (any, error) {
	return scalar(scalarInt, t, o), nil
}

// ConvertFloat converts a float descriptor.
func (a *Adapter) ConvertFloat(t *field.FloatType, o field.Options) (any, error) {
	return scalar(scalarFloat, t, o), nil
}

// ConvertID converts an identifier descriptor.
func (a *Adapter) ConvertID(t *field.IDType, o field.Options) (any, error) {
	return scalar(scalarID, t, o), nil
}

// ConvertBoolean converts a boolean descriptor.
func (a *Adapter) ConvertBoolean(t *field.BooleanType, o field.Options) (any, error) {
	return scalar(scalarBoolean, t, o), nil
}

// scalar returns the *ast.Type of a scalar, or in Listing mode the
// ast.ArgumentDefinitionList with one argument per filter operator.
// Output fields are nullable; input fields are non-null when required.
func scalar(name string, t field.Type, o field.Options) any {
	switch o.Mode {
	case field.Output:
		return ast.NamedType(name, nil)
	case field.Input, field.InputField:
		return &ast.Type{NamedType: name, NonNull: t.Required()}
	default:
		return filterArgs(name, t, o.Name)
	}
}

func filterArgs(name string, t field.Type, prefix string) ast.ArgumentDefinitionList {
	var args ast.ArgumentDefinitionList
	for _, op := range t.Filters() {
		typ := ast.NamedType(name, nil)
		switch op {
		case describer.OpIsNull:
			typ = ast.NamedType(scalarBoolean, nil)
		case describer.OpIn:
			typ = ast.ListType(ast.NonNullNamedType(name, nil), nil)
		}
		args = append(args, &ast.ArgumentDefinition{Name: prefix + describer.LookupSep + op, Type: typ})
	}
	return args
}

// ConvertModel converts a model reference to the model's object type.
// References are not input parameters; mutations take foreign keys as
// identifiers under the <field>_id name instead.
func (a *Adapter) ConvertModel(t *field.ModelType, o field.Options) (any, error) {
	switch o.Mode {
	case field.Output:
		g, err := a.generator()
		if err != nil {
			return nil, err
		}
		name := t.Model().Name()
		if _, ok := g.reg.Lookup(name); !ok {
			return nil, field.NewConversionError(t, o, fmt.Sprintf("model %s has no describer", name))
		}
		return ast.NamedType(objectName(name), nil), nil
	case field.Input, field.InputField:
		return nil, field.NewConversionError(t, o, "cannot convert a model reference as input parameter")
	default:
		return nil, field.NewConversionError(t, o, "filter on the identifier instead")
	}
}

// ConvertQuerySet converts a collection to the model's page type.
// Collections are not input parameters.
func (a *Adapter) ConvertQuerySet(t *field.QuerySetType, o field.Options) (any, error) {
	switch o.Mode {
	case field.Output:
		g, err := a.generator()
		if err != nil {
			return nil, err
		}
		name := t.Model().Name()
		if _, ok := g.reg.Lookup(name); !ok {
			return nil, field.NewConversionError(t, o, fmt.Sprintf("model %s has no describer", name))
		}
		return ast.NamedType(listName(name), nil), nil
	case field.Input, field.InputField:
		return nil, field.NewConversionError(t, o, "cannot convert a collection as input parameter")
	default:
		return nil, field.NewConversionError(t, o, "collections cannot be filtered")
	}
}

// ConvertComposite defines an object type named after the composite on
// output, or an input object with the "Input" suffix on input. A
// composite is defined once and reused wherever it appears.
func (a *Adapter) ConvertComposite(t *field.CompositeType, o field.Options) (any, error) {
	g, err := a.generator()
	if err != nil {
		return nil, err
	}
	switch o.Mode {
	case field.Output:
		name, err := g.compositeObject(a, t)
		if err != nil {
			return nil, err
		}
		return ast.NamedType(name, nil), nil
	case field.Input, field.InputField:
		name, err := g.compositeInput(a, t.Name()+"Input", t, t.Fields())
		if err != nil {
			return nil, err
		}
		return &ast.Type{NamedType: name, NonNull: t.Required()}, nil
	default:
		return nil, field.NewConversionError(t, o, "composites cannot be filtered")
	}
}

func (g *generator) compositeObject(a *Adapter, t *field.CompositeType) (string, error) {
	name := t.Name()
	if prev, ok := g.composite[name]; ok {
		if prev == any(t) {
			return name, nil
		}
		return "", describer.NewConfigError("", name, "composite type is already defined", describer.ErrDuplicateName)
	}
	if len(t.Fields()) == 0 {
		return "", describer.NewConfigError("", name, "composite type has no fields", nil)
	}
	def := &ast.Definition{Kind: ast.Object, Name: name}
	if err := g.define(def); err != nil {
		return "", err
	}
	g.composite[name] = t
	for _, f := range t.Fields() {
		typ, err := convertType(a, f.Type, field.Options{Mode: field.Output, Name: f.Name})
		if err != nil {
			return "", describer.NewConfigError("", name+"."+f.Name, "cannot convert field", err)
		}
		if err := g.addField(def, &ast.FieldDefinition{Name: f.Name, Type: typ}, valueResolver(f.Name)); err != nil {
			return "", err
		}
	}
	return name, nil
}

// compositeInput defines an input object holding fields. owner identifies
// the definition so that converting it again reuses the type.
func (g *generator) compositeInput(a *Adapter, name string, owner any, fields []field.Named) (string, error) {
	if prev, ok := g.composite[name]; ok {
		if prev == owner {
			return name, nil
		}
		return "", describer.NewConfigError("", name, "input type is already defined", describer.ErrDuplicateName)
	}
	if len(fields) == 0 {
		return "", describer.NewConfigError("", name, "input type has no fields", nil)
	}
	def := &ast.Definition{Kind: ast.InputObject, Name: name}
	if err := g.define(def); err != nil {
		return "", err
	}
	g.composite[name] = owner
	for _, f := range fields {
		typ, err := convertType(a, f.Type, field.Options{Mode: field.InputField, Name: f.Name})
		if err != nil {
			return "", describer.NewConfigError("", name+"."+f.Name, "cannot convert field", err)
		}
		if err := g.addField(def, &ast.FieldDefinition{Name: f.Name, Type: typ}, nil); err != nil {
			return "", err
		}
	}
	return name, nil
}

// convertType converts t in a non-listing mode.
func convertType(a *Adapter, t field.Type, o field.Options) (*ast.Type, error) {
	if t == nil {
		return nil, describer.Configf("", "field %q has no type", o.Name)
	}
	v, err := t.Convert(a, o)
	if err != nil {
		return nil, err
	}
	typ, ok := v.(*ast.Type)
	if !ok {
		return nil, fmt.Errorf("graphql: %s converted to %T", t.Kind(), v)
	}
	return typ, nil
}
