package graphql_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/contrib/graphql"
	"github.com/karlosss/describer/dialect/memory"
	"github.com/karlosss/describer/schema"
	"github.com/karlosss/describer/schema/field"
)

// countingModel counts the query sets it creates.
type countingModel struct {
	*memory.Model
	queries atomic.Int32
}

func (m *countingModel) Query(ctx context.Context) describer.QuerySet {
	m.queries.Add(1)
	return m.Model.Query(ctx)
}

type library struct {
	authors *countingModel
	books   *memory.Model
}

func newLibrary(t *testing.T) *library {
	t.Helper()
	cat := memory.NewCatalog()
	authors := cat.Define("Author",
		describer.Field{Name: "name", Kind: describer.KindString},
	)
	books := cat.Define("Book",
		describer.Field{Name: "title", Kind: describer.KindString},
		describer.Field{Name: "pages", Kind: describer.KindInt, Optional: true},
		describer.Field{Name: "author", Kind: describer.KindForeignKey, Related: "Author"},
	)
	ctx := context.Background()
	for _, data := range []describer.Data{{"name": "Ann"}, {"name": "Bob"}} {
		a, err := authors.New(data)
		require.NoError(t, err)
		require.NoError(t, authors.Save(ctx, a))
	}
	for _, data := range []describer.Data{
		{"title": "Go in Practice", "pages": 300, "author_id": 1},
		{"title": "Learning Go", "pages": 120, "author_id": 2},
		{"title": "Rust", "author_id": 1},
	} {
		b, err := books.New(data)
		require.NoError(t, err)
		require.NoError(t, books.Save(ctx, b))
	}
	return &library{authors: &countingModel{Model: authors}, books: books}
}

// authorsOnly describes the authors without their books, for registries
// that do not describe books.
func (l *library) authorsOnly() schema.Describer {
	d := schema.New(l.authors)
	d.Exclude = []string{"books"}
	return d
}

// generate registers the library with the given book describer.
func (l *library) generate(t *testing.T, book schema.Describer, opts ...graphql.Option) *graphql.Schema {
	t.Helper()
	reg := schema.NewRegistry()
	reg.MustRegister(schema.New(l.authors))
	reg.MustRegister(book)
	s, err := schema.Generate(graphql.NewAdapter(opts...), reg)
	require.NoError(t, err)
	return s
}

func run(t *testing.T, ctx context.Context, s *graphql.Schema, query string, vars map[string]any) (string, gqlerror.List) {
	t.Helper()
	resp := s.Exec(ctx, graphql.Request{Query: query, Variables: vars})
	require.NotNil(t, resp)
	return string(resp.Data), resp.Errors
}

func code(err *gqlerror.Error) any {
	return err.Extensions["code"]
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))
	doc := s.AST()

	query := doc.Query
	require.NotNil(t, query)
	for _, name := range []string{"authorList", "authorDetail", "bookList", "bookDetail"} {
		assert.NotNil(t, query.Fields.ForName(name), name)
	}
	require.NotNil(t, doc.Mutation)
	for _, name := range []string{"bookCreate", "bookUpdate", "bookDelete"} {
		assert.NotNil(t, doc.Mutation.Fields.ForName(name), name)
	}

	book := doc.Types["BookType"]
	require.NotNil(t, book)
	assert.Equal(t, "Int", book.Fields.ForName("id").Type.String())
	assert.Equal(t, "String", book.Fields.ForName("title").Type.String())
	assert.Equal(t, "AuthorType", book.Fields.ForName("author").Type.String())

	page := doc.Types["BookListType"]
	require.NotNil(t, page)
	assert.Equal(t, "Int!", page.Fields.ForName("totalCount").Type.String())
	assert.Equal(t, "[BookType!]!", page.Fields.ForName("results").Type.String())

	author := doc.Types["AuthorType"]
	require.NotNil(t, author)
	books := author.Fields.ForName("books")
	require.NotNil(t, books)
	assert.Equal(t, "BookListType", books.Type.String())
	assert.NotNil(t, books.Arguments.ForName("title__contains"))

	list := query.Fields.ForName("bookList")
	args := map[string]string{}
	for _, arg := range list.Arguments {
		args[arg.Name] = arg.Type.String()
	}
	assert.Equal(t, "String", args["title__contains"])
	assert.Equal(t, "Int", args["id__exact"])
	assert.Equal(t, "[Int!]", args["id__in"])
	assert.Equal(t, "Int", args["author_id__exact"])
	assert.Equal(t, "Boolean", args["pages__isnull"])
	assert.Equal(t, "String", args["ordering"])
	assert.NotContains(t, args, "author__exact")
	assert.Equal(t, "20", list.Arguments.ForName("limit").DefaultValue.Raw)
	assert.Equal(t, "0", list.Arguments.ForName("offset").DefaultValue.Raw)

	inputs := func(name string) map[string]string {
		t.Helper()
		def := doc.Types[name]
		require.NotNil(t, def, name)
		out := map[string]string{}
		for _, f := range def.Fields {
			out[f.Name] = f.Type.String()
		}
		return out
	}
	assert.Equal(t, map[string]string{"title": "String!", "pages": "Int", "author_id": "ID!"}, inputs("BookCreateInput"))
	assert.Equal(t, map[string]string{"id": "ID!", "title": "String", "pages": "Int", "author_id": "ID"}, inputs("BookUpdateInput"))
	assert.Equal(t, map[string]string{"id": "ID!"}, inputs("BookDeleteInput"))
	assert.Equal(t, map[string]string{"object": "BookType"}, inputs("BookCreatePayload"))

	assert.Contains(t, s.SDL(), "bookDetail(id: ID!): BookType")
	assert.Contains(t, s.SDL(), "bookCreate(data: BookCreateInput!): BookCreatePayload")

	op, ok := s.Operation("bookCreate")
	require.True(t, ok)
	assert.Equal(t, graphql.Operation{Name: "bookCreate", Action: "Book_create", Kind: action.KindCreate, Mutation: true}, op)
	names := make([]string, 0, len(s.Operations()))
	for _, op := range s.Operations() {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{
		"authorList", "authorDetail", "authorCreate", "authorUpdate", "authorDelete",
		"bookList", "bookDetail", "bookCreate", "bookUpdate", "bookDelete",
	}, names)
}

func TestGenerateIdempotent(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	reg := schema.NewRegistry()
	reg.MustRegister(schema.New(lib.authors))
	reg.MustRegister(schema.New(lib.books))
	a := graphql.NewAdapter()

	first, err := schema.Generate(a, reg)
	require.NoError(t, err)
	second, err := schema.Generate(a, reg)
	require.NoError(t, err)
	assert.Equal(t, first.SDL(), second.SDL())
	assert.Equal(t, first.Operations(), second.Operations())
}

func TestAdapterGenerateSeals(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	reg := schema.NewRegistry()
	reg.MustRegister(lib.authorsOnly())

	s, err := graphql.NewAdapter().Generate(reg)
	require.NoError(t, err)
	assert.NotNil(t, s.AST().Query.Fields.ForName("authorList"))
	assert.True(t, reg.Sealed())
	_, err = reg.Register(schema.New(lib.books))
	require.ErrorIs(t, err, describer.ErrSealed)
}

func TestGenerateOptions(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	d := schema.New(lib.books)
	d.Create, d.Update, d.Delete = nil, nil, nil
	d.DefaultPageSize = 5
	d.Exclude = []string{"pages"}
	s := lib.generate(t, d, graphql.WithConfig(graphql.Config{DefaultPageSize: 10, MaxPageSize: 50, Descriptions: true}))

	list := s.AST().Query.Fields.ForName("bookList")
	assert.Equal(t, "5", list.Arguments.ForName("limit").DefaultValue.Raw)
	assert.Nil(t, list.Arguments.ForName("pages__exact"))
	assert.Nil(t, s.AST().Types["BookType"].Fields.ForName("pages"))
	assert.Nil(t, s.AST().Mutation.Fields.ForName("bookCreate"))
	assert.Equal(t, "Lists Book instances.", list.Description)

	authors := s.AST().Query.Fields.ForName("authorList")
	assert.Equal(t, "10", authors.Arguments.ForName("limit").DefaultValue.Raw)
}

func TestGenerateCustomActions(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	reg := schema.NewRegistry()
	reg.MustRegister(schema.New(lib.authors))
	d := schema.New(lib.books)
	d.ExtraActions = map[string]action.Action{
		"publish": &action.CustomObject{
			ExtraFields: []field.Named{{Name: "note", Type: field.String().Optional()}},
			Exec: func(_ context.Context, obj describer.Instance, data describer.Data) (action.Result, error) {
				return action.Result{"ok": obj != nil, "note": data.String("note")}, nil
			},
			Returns: []field.Named{
				{Name: "ok", Type: field.Boolean()},
				{Name: "note", Type: field.String()},
			},
		},
	}
	reg.MustRegister(d)
	_, err := reg.RegisterAction("ping", &action.Custom{
		Input: field.Composite("PingArgs", field.Named{Name: "message", Type: field.String()}),
		Exec: func(_ context.Context, _ describer.Instance, data describer.Data) (action.Result, error) {
			return action.Result{"reply": map[string]any{"message": data.Get("message"), "length": len(data.String("message"))}}, nil
		},
		Returns: []field.Named{{
			Name: "reply",
			Type: field.Composite("Reply",
				field.Named{Name: "message", Type: field.String()},
				field.Named{Name: "length", Type: field.Int()},
			),
		}},
	})
	require.NoError(t, err)

	s, err := schema.Generate(graphql.NewAdapter(), reg)
	require.NoError(t, err)
	doc := s.AST()
	assert.NotNil(t, doc.Types["PingInput"])
	assert.NotNil(t, doc.Types["Reply"])
	assert.Equal(t, "BookPublishInput!", doc.Mutation.Fields.ForName("bookPublish").Arguments.ForName("data").Type.String())

	data, errs := run(t, context.Background(), s, `mutation {
		bookPublish(data: {id: 1, note: "soon"}) { ok note }
		ping(data: {message: "hello"}) { reply { message length } }
	}`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{
		"bookPublish": {"ok": true, "note": "soon"},
		"ping": {"reply": {"message": "hello", "length": 5}}
	}`, data)

	names := s.Operations()
	assert.Equal(t, "ping", names[len(names)-1].Name)
	assert.Equal(t, action.KindCustom, names[len(names)-1].Kind)
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()
	exec := func(context.Context, describer.Instance, describer.Data) (action.Result, error) { return nil, nil }
	returns := []field.Named{{Name: "ok", Type: field.Boolean()}}

	tests := []struct {
		name    string
		setup   func(l *library, reg *schema.Registry)
		opts    []graphql.Option
		target  error
		message string
	}{
		{
			name: "unregistered relation",
			setup: func(l *library, reg *schema.Registry) {
				reg.MustRegister(schema.New(l.books))
			},
			target:  field.ErrConversion,
			message: "model field kind foreign_key has no mapping",
		},
		{
			name: "duplicate operation",
			setup: func(l *library, reg *schema.Registry) {
				reg.MustRegister(l.authorsOnly())
				_, err := reg.RegisterAction("authorCreate", &action.Custom{Exec: exec, Returns: returns})
				if err != nil {
					panic(err)
				}
			},
			target: describer.ErrDuplicateName,
		},
		{
			name: "no queries",
			setup: func(_ *library, reg *schema.Registry) {
				_, err := reg.RegisterAction("ping", &action.Custom{Exec: exec, Returns: returns})
				if err != nil {
					panic(err)
				}
			},
			target:  describer.ErrInvalidConfig,
			message: "schema has no queries",
		},
		{
			name: "invalid page size",
			setup: func(l *library, reg *schema.Registry) {
				reg.MustRegister(schema.New(l.authors))
			},
			opts:    []graphql.Option{graphql.WithPageSize(0, 10)},
			target:  describer.ErrInvalidConfig,
			message: "default_page_size must be positive",
		},
		{
			name: "describer page size above max",
			setup: func(l *library, reg *schema.Registry) {
				d := l.authorsOnly()
				d.DefaultPageSize = 500
				reg.MustRegister(d)
			},
			target:  describer.ErrInvalidConfig,
			message: "invalid page sizes",
		},
		{
			name: "model reference in custom input",
			setup: func(l *library, reg *schema.Registry) {
				reg.MustRegister(schema.New(l.authors))
				reg.MustRegister(schema.New(l.books))
				in := field.Composite("Assign", field.Named{Name: "who", Type: field.Model(l.authors)})
				_, err := reg.RegisterAction("assign", &action.Custom{Input: in, Exec: exec, Returns: returns})
				if err != nil {
					panic(err)
				}
			},
			target:  field.ErrConversion,
			message: "cannot convert a model reference as input parameter",
		},
		{
			name: "collection in custom input",
			setup: func(l *library, reg *schema.Registry) {
				reg.MustRegister(schema.New(l.authors))
				reg.MustRegister(schema.New(l.books))
				in := field.Composite("Shelve", field.Named{Name: "many", Type: field.QuerySet(l.books)})
				_, err := reg.RegisterAction("shelve", &action.Custom{Input: in, Exec: exec, Returns: returns})
				if err != nil {
					panic(err)
				}
			},
			target:  field.ErrConversion,
			message: "cannot convert a collection as input parameter",
		},
		{
			name: "empty returns",
			setup: func(l *library, reg *schema.Registry) {
				d := l.authorsOnly()
				d.Create = &action.Create{Returns: []field.Named{}}
				reg.MustRegister(d)
			},
			target:  describer.ErrInvalidConfig,
			message: "action has no return fields",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := schema.NewRegistry()
			tt.setup(newLibrary(t), reg)
			_, err := schema.Generate(graphql.NewAdapter(tt.opts...), reg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestConvertOutsideGenerate(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	a := graphql.NewAdapter()
	_, err := a.ConvertModel(field.Model(lib.books), field.Options{Mode: field.Output})
	require.Error(t, err)

	v, err := a.ConvertString(field.String(), field.Options{Mode: field.Input})
	require.NoError(t, err)
	assert.Equal(t, "String!", typeString(v))
	_, err = a.ConvertQuerySet(field.QuerySet(lib.books).Optional(), field.Options{Mode: field.InputField})
	require.ErrorIs(t, err, field.ErrConversion)
	_, err = a.ConvertModel(field.Model(lib.books), field.Options{Mode: field.Input})
	require.ErrorIs(t, err, field.ErrConversion)

	_, err = a.ConvertModel(field.Model(lib.books), field.Options{Mode: field.Listing})
	require.ErrorIs(t, err, field.ErrConversion)
	_, err = field.Null().Convert(a, field.Options{Mode: field.Output, Name: "x"})
	require.ErrorIs(t, err, field.ErrConversion)
}

func typeString(v any) string {
	s, ok := v.(interface{ String() string })
	if !ok {
		return ""
	}
	return s.String()
}
