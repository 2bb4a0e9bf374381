package graphql

import (
	"context"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema"
	"github.com/karlosss/describer/schema/field"
)

// Listing window arguments.
const (
	argLimit    = "limit"
	argOffset   = "offset"
	argOrdering = "ordering"
)

// modelTypes defines <Model>Type and <Model>ListType for h.
func (g *generator) modelTypes(a *Adapter, h *schema.Handle) error {
	name := h.Name()
	obj := &ast.Definition{
		Kind:        ast.Object,
		Name:        objectName(name),
		Description: describe(g.cfg.Descriptions, "A %s.", name),
	}
	if err := g.define(obj); err != nil {
		return err
	}
	page := &ast.Definition{
		Kind:        ast.Object,
		Name:        listName(name),
		Description: describe(g.cfg.Descriptions, "A page of %s results.", name),
	}
	if err := g.define(page); err != nil {
		return err
	}
	if err := g.addField(page, &ast.FieldDefinition{Name: "totalCount", Type: ast.NonNullNamedType(scalarInt, nil)}, totalCountResolver); err != nil {
		return err
	}
	results := ast.NonNullListType(ast.NonNullNamedType(obj.Name, nil), nil)
	if err := g.addField(page, &ast.FieldDefinition{Name: "results", Type: results}, resultsResolver); err != nil {
		return err
	}

	for _, fname := range h.Fields() {
		f, _ := h.Field(fname)
		typ, err := convertType(a, g.reg.Types().ForField(f), field.Options{Mode: field.Output, Name: fname})
		if err != nil {
			return describer.NewConfigError(name, fname, "cannot convert field", err)
		}
		fd := &ast.FieldDefinition{Name: fname, Type: typ}
		var r resolver
		switch f.Kind {
		case describer.KindForeignKey:
			rel, _ := g.reg.Lookup(f.Related)
			r = relatedResolver(fname, rel.Model())
		case describer.KindOneToMany, describer.KindManyToMany:
			rel, _ := g.reg.Lookup(f.Related)
			args, err := g.listingArgs(a, rel)
			if err != nil {
				return err
			}
			fd.Arguments = args
			r = g.nestedListResolver(fname, rel)
		default:
			r = valueResolver(fname)
		}
		if err := g.addField(obj, fd, gate(h.FieldPermissions(fname), r)); err != nil {
			return describer.NewConfigError(name, fname, "", err)
		}
	}

	for _, e := range h.ExtraFields() {
		t, err := h.Type(e.Type)
		if err != nil {
			return describer.NewConfigError(name, e.Name, "invalid extra field type", err)
		}
		typ, err := convertType(a, t, field.Options{Mode: field.Output, Name: e.Name})
		if err != nil {
			return describer.NewConfigError(name, e.Name, "cannot convert extra field", err)
		}
		r := valueResolver(e.Name)
		if e.Resolve != nil {
			r = instanceResolver(e.Resolve)
		}
		if err := g.addField(obj, &ast.FieldDefinition{Name: e.Name, Type: typ}, gate(h.FieldPermissions(e.Name), r)); err != nil {
			return describer.NewConfigError(name, e.Name, "", err)
		}
	}
	if len(obj.Fields) == 0 {
		return describer.Configf(name, "describer exposes no fields")
	}
	return nil
}

// pageSizes returns the listing window of h.
func (g *generator) pageSizes(h *schema.Handle) (def, max int, err error) {
	def, max = h.PageSizes()
	if def == 0 {
		def = g.cfg.DefaultPageSize
	}
	if max == 0 {
		max = g.cfg.MaxPageSize
	}
	if def <= 0 || max < def {
		return 0, 0, describer.Configf(h.Name(), "invalid page sizes: default %d, max %d", def, max)
	}
	return def, max, nil
}

// listingArgs returns the filter and window arguments of listings of h.
// Every local field contributes one argument per filter operator, foreign
// keys under <name>_id. Many-to-many fields are not filterable.
func (g *generator) listingArgs(a *Adapter, h *schema.Handle) (ast.ArgumentDefinitionList, error) {
	if args, ok := g.listArgs[h.Name()]; ok {
		return args, nil
	}
	var args ast.ArgumentDefinitionList
	for _, fname := range h.LocalFields() {
		f, _ := h.Field(fname)
		if f.Kind == describer.KindManyToMany {
			continue
		}
		t := field.FilterType(f)
		if t.Kind() == field.KindNull {
			continue
		}
		prefix := fname
		if f.Kind == describer.KindForeignKey {
			prefix = foreignKeyName(fname)
		}
		v, err := t.Convert(a, field.Options{Mode: field.Listing, Name: prefix})
		if err != nil {
			return nil, describer.NewConfigError(h.Name(), fname, "cannot convert filter", err)
		}
		list, _ := v.(ast.ArgumentDefinitionList)
		args = append(args, list...)
	}
	for _, ef := range h.ExtraFilters() {
		typ, err := convertType(a, ef.Type, field.Options{Mode: field.InputField, Name: ef.Name})
		if err != nil {
			return nil, describer.NewConfigError(h.Name(), ef.Name, "cannot convert extra filter", err)
		}
		typ.NonNull = false
		args = append(args, &ast.ArgumentDefinition{Name: ef.Name, Type: typ})
	}
	def, _, err := g.pageSizes(h)
	if err != nil {
		return nil, err
	}
	args = append(args,
		&ast.ArgumentDefinition{
			Name:         argLimit,
			Type:         ast.NamedType(scalarInt, nil),
			DefaultValue: &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(def)},
		},
		&ast.ArgumentDefinition{
			Name:         argOffset,
			Type:         ast.NamedType(scalarInt, nil),
			DefaultValue: &ast.Value{Kind: ast.IntValue, Raw: "0"},
		},
		&ast.ArgumentDefinition{Name: argOrdering, Type: ast.NamedType(scalarString, nil)},
	)
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		if seen[arg.Name] {
			return nil, describer.NewConfigError(h.Name(), arg.Name, "listing argument is already defined", describer.ErrDuplicateName)
		}
		seen[arg.Name] = true
	}
	g.listArgs[h.Name()] = args
	return args, nil
}

// nestedListResolver resolves a reverse or many-to-many field of an
// instance as a listing of rel, gated by the list action of rel.
func (g *generator) nestedListResolver(name string, rel *schema.Handle) resolver {
	var perms permission.Set
	if b, ok := rel.Action(action.NameList); ok {
		perms = b.Permissions()
	}
	def, max, _ := g.pageSizes(rel)
	l := &listing{handle: rel, perms: perms, def: def, max: max}
	return func(ctx context.Context, src any, args map[string]any) (any, error) {
		qs, ok := lookup(src, name).(describer.QuerySet)
		if !ok || qs == nil {
			return nil, nil
		}
		return l.run(ctx, qs, args)
	}
}
