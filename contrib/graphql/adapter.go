package graphql

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/go-openapi/inflect"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"go.uber.org/zap"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/schema"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger of the adapter and of the schemas it generates.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithConfig replaces the adapter configuration.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithPageSize sets the default and maximum listing page sizes.
func WithPageSize(def, max int) Option {
	return func(a *Adapter) {
		a.cfg.DefaultPageSize = def
		a.cfg.MaxPageSize = max
	}
}

// Adapter generates an executable GraphQL schema from a registry.
//
// Each model becomes a <Model>Type object and a <Model>ListType page.
// Read-only actions become Query fields and mutating actions become
// Mutation fields named after the action, e.g. bookList or bookCreate.
type Adapter struct {
	cfg Config
	log *zap.Logger

	mu  sync.Mutex
	gen *generator
}

var _ schema.Adapter[*Schema] = (*Adapter)(nil)

// NewAdapter returns an adapter with the default configuration.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{cfg: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the adapter configuration.
func (a *Adapter) Config() Config { return a.cfg }

// Generate builds the schema of r in two passes. The first defines the
// object types of every model, so that the second can convert actions
// referencing any model. Model actions are converted before the actions
// registered without a model. r is sealed first, so no describer can be
// registered against a generated schema.
func (a *Adapter) Generate(r *schema.Registry) (*Schema, error) {
	r.Seal()
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	g := newGenerator(a.cfg, r)
	a.gen = g
	defer func() { a.gen = nil }()

	handles := r.Handles()
	for _, h := range handles {
		if err := g.modelTypes(a, h); err != nil {
			return nil, err
		}
	}
	for _, h := range handles {
		for _, b := range h.Actions() {
			if _, err := b.Convert(a); err != nil {
				return nil, err
			}
		}
	}
	for _, b := range r.Actions() {
		if _, err := b.Convert(a); err != nil {
			return nil, err
		}
	}
	s, err := g.build()
	if err != nil {
		return nil, err
	}
	s.log = a.log
	a.log.Info("graphql schema generated",
		zap.Int("types", len(g.order)),
		zap.Int("operations", len(s.ops)),
	)
	return s, nil
}

var errNoGenerator = errors.New("graphql: conversion outside of Generate")

func (a *Adapter) generator() (*generator, error) {
	if a.gen == nil {
		return nil, errNoGenerator
	}
	return a.gen, nil
}

// objectName returns the object type name of a model.
func objectName(model string) string { return model + "Type" }

// listName returns the page type name of a model.
func listName(model string) string { return model + "ListType" }

// operationName returns the root field name of an action, e.g.
// "Book_create" becomes "bookCreate".
func operationName(b *action.Bound) string { return inflect.CamelizeDownFirst(b.Name()) }

func inputName(b *action.Bound) string { return inflect.Camelize(b.Name()) + "Input" }

func payloadName(b *action.Bound) string { return inflect.Camelize(b.Name()) + "Payload" }

// foreignKeyName returns the input and filter name of a foreign key field.
func foreignKeyName(name string) string { return name + "_id" }

// generator holds the state of a single Generate call.
type generator struct {
	cfg       Config
	reg       *schema.Registry
	defs      map[string]*ast.Definition
	order     []*ast.Definition
	query     *ast.Definition
	mutation  *ast.Definition
	resolvers map[string]map[string]resolver
	listArgs  map[string]ast.ArgumentDefinitionList
	composite map[string]any
	ops       []Operation
}

func newGenerator(cfg Config, r *schema.Registry) *generator {
	return &generator{
		cfg:       cfg,
		reg:       r,
		defs:      make(map[string]*ast.Definition),
		query:     &ast.Definition{Kind: ast.Object, Name: "Query"},
		mutation:  &ast.Definition{Kind: ast.Object, Name: "Mutation"},
		resolvers: make(map[string]map[string]resolver),
		listArgs:  make(map[string]ast.ArgumentDefinitionList),
		composite: make(map[string]any),
	}
}

// define adds a type definition. Type names are unique.
func (g *generator) define(def *ast.Definition) error {
	if _, ok := g.defs[def.Name]; ok || def.Name == g.query.Name || def.Name == g.mutation.Name {
		return describer.NewConfigError("", def.Name, "type is already defined", describer.ErrDuplicateName)
	}
	g.defs[def.Name] = def
	g.order = append(g.order, def)
	return nil
}

// addField adds a field to def. Field names are unique per type. Input
// objects take a nil resolver.
func (g *generator) addField(def *ast.Definition, fd *ast.FieldDefinition, r resolver) error {
	if def.Fields.ForName(fd.Name) != nil {
		return describer.NewConfigError("", def.Name+"."+fd.Name, "field is already defined", describer.ErrDuplicateName)
	}
	def.Fields = append(def.Fields, fd)
	if r != nil {
		if g.resolvers[def.Name] == nil {
			g.resolvers[def.Name] = make(map[string]resolver)
		}
		g.resolvers[def.Name][fd.Name] = r
	}
	return nil
}

// operation adds a root field for b.
func (g *generator) operation(b *action.Bound, fd *ast.FieldDefinition, r resolver) error {
	root := g.query
	if !b.ReadOnly() {
		root = g.mutation
	}
	if err := g.addField(root, fd, r); err != nil {
		return err
	}
	g.ops = append(g.ops, Operation{
		Name:     fd.Name,
		Action:   b.Name(),
		Kind:     b.Kind(),
		Mutation: !b.ReadOnly(),
	})
	return nil
}

// build assembles and validates the schema document, then lowers it to
// the executable schema.
func (g *generator) build() (*Schema, error) {
	if len(g.query.Fields) == 0 {
		return nil, describer.Configf("", "schema has no queries: no describer exposes a list or detail action")
	}
	doc := &ast.SchemaDocument{}
	doc.Definitions = append(doc.Definitions, g.order...)
	doc.Definitions = append(doc.Definitions, g.query)
	if len(g.mutation.Fields) > 0 {
		doc.Definitions = append(doc.Definitions, g.mutation)
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	sdl := buf.String()
	parsed, err := gqlparser.LoadSchema(&ast.Source{Name: "describer.graphql", Input: sdl})
	if err != nil {
		return nil, describer.NewConfigError("", "", "generated schema is invalid", err)
	}
	engine, err := lower(parsed, g.resolvers)
	if err != nil {
		return nil, describer.NewConfigError("", "", "cannot build executable schema", err)
	}
	return &Schema{
		schema: parsed,
		engine: engine,
		sdl:    sdl,
		ops:    g.ops,
	}, nil
}

func describe(enabled bool, format string, a ...any) string {
	if !enabled {
		return ""
	}
	return fmt.Sprintf(format, a...)
}
