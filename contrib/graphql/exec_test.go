package graphql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/contrib/graphql"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema"
	"github.com/karlosss/describer/schema/field"
)

func TestExecDetail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, ctx, s, `{ bookDetail(id: 1) { id title pages author { id name } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookDetail": {"id": 1, "title": "Go in Practice", "pages": 300, "author": {"id": 1, "name": "Ann"}}}`, data)

	data, errs = run(t, ctx, s, `query($id: ID!) { bookDetail(id: $id) { title pages } }`, map[string]any{"id": "3"})
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookDetail": {"title": "Rust", "pages": null}}`, data)

	data, errs = run(t, ctx, s, `{ bookDetail(id: 42) { title } }`, nil)
	assert.JSONEq(t, `{"bookDetail": null}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeNotFound, code(errs[0]))
	assert.Equal(t, ast.Path{ast.PathName("bookDetail")}, errs[0].Path)
	assert.Contains(t, errs[0].Message, "Book with id=42 does not exist")
	require.Len(t, errs[0].Locations, 1)
	assert.Equal(t, 1, errs[0].Locations[0].Line)
}

func TestExecDetailWithoutID(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	d := schema.New(lib.books)
	d.Detail = &action.Detail{
		NoID: true,
		Fetch: func(ctx context.Context, id any) (describer.Instance, error) {
			if id != nil {
				return nil, describer.NewInputError("id", "unexpected identifier")
			}
			viewer := permission.ViewerFromContext(ctx)
			if viewer == nil {
				return nil, describer.NewNotFoundError("Book", nil)
			}
			return lib.books.Get(ctx, viewer.GetID())
		},
	}
	s := lib.generate(t, d)
	assert.Contains(t, s.SDL(), "bookDetail: BookType")
	assert.Nil(t, s.AST().Query.Fields.ForName("bookDetail").Arguments.ForName("id"))

	bob := permission.WithViewer(context.Background(), &permission.SimpleViewer{UserID: "2"})
	data, errs := run(t, bob, s, `{ bookDetail { title } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookDetail": {"title": "Learning Go"}}`, data)

	_, errs = run(t, bob, s, `{ bookDetail(id: 1) { title } }`, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `Unknown argument "id"`)

	data, errs = run(t, context.Background(), s, `{ bookDetail { title } }`, nil)
	assert.JSONEq(t, `{"bookDetail": null}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeNotFound, code(errs[0]))
}

func TestExecList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books), graphql.WithPageSize(2, 2))

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "default page",
			query: `{ bookList { totalCount results { title } } }`,
			want:  `{"bookList": {"totalCount": 3, "results": [{"title": "Go in Practice"}, {"title": "Learning Go"}]}}`,
		},
		{
			name:  "contains",
			query: `{ bookList(title__contains: "Go") { totalCount results { title } } }`,
			want:  `{"bookList": {"totalCount": 2, "results": [{"title": "Go in Practice"}, {"title": "Learning Go"}]}}`,
		},
		{
			name:  "exact id",
			query: `{ bookList(id__exact: 3) { totalCount results { title } } }`,
			want:  `{"bookList": {"totalCount": 1, "results": [{"title": "Rust"}]}}`,
		},
		{
			name:  "foreign key and ordering",
			query: `{ bookList(author_id__exact: 1, ordering: "-id") { results { title } } }`,
			want:  `{"bookList": {"results": [{"title": "Rust"}, {"title": "Go in Practice"}]}}`,
		},
		{
			name:  "in and isnull",
			query: `{ bookList(id__in: [1, 3], pages__isnull: false) { totalCount results { title } } }`,
			want:  `{"bookList": {"totalCount": 1, "results": [{"title": "Go in Practice"}]}}`,
		},
		{
			name:  "offset",
			query: `{ bookList(offset: 2) { totalCount results { title } } }`,
			want:  `{"bookList": {"totalCount": 3, "results": [{"title": "Rust"}]}}`,
		},
		{
			name:  "limit capped",
			query: `{ bookList(limit: 50, ordering: "pages, title") { results { title } } }`,
			want:  `{"bookList": {"results": [{"title": "Rust"}, {"title": "Learning Go"}]}}`,
		},
		{
			name:  "aliases",
			query: `{ short: bookList(limit: 1) { totalCount } rest: bookList(offset: 1) { n: totalCount } }`,
			want:  `{"short": {"totalCount": 3}, "rest": {"n": 3}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, errs := run(t, ctx, s, tt.query, nil)
			require.Empty(t, errs)
			assert.JSONEq(t, tt.want, data)
		})
	}
}

func TestExecListErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, ctx, s, `{ bookList(limit: 0) { totalCount } }`, nil)
	assert.JSONEq(t, `{"bookList": null}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeBadInput, code(errs[0]))
	assert.Contains(t, errs[0].Message, `"limit"`)

	_, errs = run(t, ctx, s, `{ bookList(offset: -1) { totalCount } }`, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeBadInput, code(errs[0]))

	_, errs = run(t, ctx, s, `{ bookList(ordering: "-publisher") { totalCount } }`, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeBadInput, code(errs[0]))

	data, errs = run(t, ctx, s, `{ bookList(publisher__exact: "x") { totalCount } }`, nil)
	require.NotEmpty(t, errs)
	assert.Empty(t, data)
}

func TestExecNested(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, ctx, s, `{
		authorDetail(id: 1) {
			name
			books(ordering: "-id", limit: 1) { totalCount results { title author { name } } }
		}
	}`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"authorDetail": {
		"name": "Ann",
		"books": {"totalCount": 2, "results": [{"title": "Rust", "author": {"name": "Ann"}}]}
	}}`, data)
}

func TestExecBatchesRelations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	lib.authors.queries.Store(0)
	data, errs := run(t, ctx, s, `{ bookList { results { author { name } } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookList": {"results": [
		{"author": {"name": "Ann"}}, {"author": {"name": "Bob"}}, {"author": {"name": "Ann"}}
	]}}`, data)
	assert.Equal(t, int32(1), lib.authors.queries.Load())
}

func TestExecFragmentCycle(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, context.Background(), s, `
		{ bookDetail(id: 1) { ...bookFields } }
		fragment bookFields on BookType { title ...bookFields }
	`, nil)
	require.NotEmpty(t, errs)
	assert.Empty(t, data)
}

func TestExecSelections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, ctx, s, `
		query Books($skip: Boolean!) {
			first: bookDetail(id: 1) { ...bookFields }
			second: bookDetail(id: 2) {
				__typename
				title @skip(if: $skip)
				pages @include(if: $skip)
				... on BookType { id }
			}
		}
		fragment bookFields on BookType { title }
	`, map[string]any{"skip": true})
	require.Empty(t, errs)
	assert.JSONEq(t, `{
		"first": {"title": "Go in Practice"},
		"second": {"__typename": "BookType", "pages": 120, "id": 2}
	}`, data)
}

func TestExecMutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, ctx, s, `mutation($data: BookCreateInput!) {
		bookCreate(data: $data) { object { id title author { name } } }
	}`, map[string]any{"data": map[string]any{"title": "Zig", "author_id": 2}})
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookCreate": {"object": {"id": 4, "title": "Zig", "author": {"name": "Bob"}}}}`, data)
	assert.Equal(t, 4, lib.books.Len())

	data, errs = run(t, ctx, s, `mutation { bookUpdate(data: {id: 4, title: "Zig in Action", pages: 90}) { object { title pages } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookUpdate": {"object": {"title": "Zig in Action", "pages": 90}}}`, data)

	data, errs = run(t, ctx, s, `mutation { bookDelete(data: {id: 4}) { object { title } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookDelete": {"object": {"title": "Zig in Action"}}}`, data)
	assert.Equal(t, 3, lib.books.Len())

	data, errs = run(t, ctx, s, `mutation { bookDelete(data: {id: 4}) { object { title } } }`, nil)
	assert.JSONEq(t, `{"bookDelete": null}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeNotFound, code(errs[0]))

	tests := []struct {
		name  string
		query string
	}{
		{name: "update without id", query: `mutation { bookUpdate(data: {title: "x"}) { object { id } } }`},
		{name: "create without title", query: `mutation { bookCreate(data: {author_id: 1}) { object { id } } }`},
		{name: "create with id", query: `mutation { bookCreate(data: {id: 9, title: "x", author_id: 1}) { object { id } } }`},
		{name: "delete with title", query: `mutation { bookDelete(data: {id: 1, title: "x"}) { object { id } } }`},
		{name: "mutation as query", query: `{ bookCreate(data: {title: "x", author_id: 1}) { object { id } } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, errs := run(t, ctx, s, tt.query, nil)
			require.NotEmpty(t, errs)
			assert.Empty(t, data)
		})
	}
	assert.Equal(t, 3, lib.books.Len())
}

func TestExecMutationStorageError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	core, logs := observer.New(zap.ErrorLevel)
	s := lib.generate(t, schema.New(lib.books), graphql.WithLogger(zap.New(core)))

	data, errs := run(t, ctx, s, `mutation { bookCreate(data: {title: "x", author_id: 1, pages: 10}) { object { id } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookCreate": {"object": {"id": 4}}}`, data)

	d := schema.New(lib.books)
	d.Create = &action.Create{
		Exec: func(context.Context, describer.Instance, describer.Data) (action.Result, error) {
			return nil, describer.NewMutationError("Book", "create", assert.AnError)
		},
	}
	s = lib.generate(t, d, graphql.WithLogger(zap.New(core)))
	data, errs = run(t, ctx, s, `mutation { bookCreate(data: {title: "x", author_id: 1}) { object { id } } }`, nil)
	assert.JSONEq(t, `{"bookCreate": null}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeInternal, code(errs[0]))
	assert.Equal(t, 1, logs.FilterMessage("graphql field failed").Len())
}

func TestExecPermissions(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	d := schema.New(lib.books)
	d.Detail = &action.Detail{Permissions: permission.Set{permission.IsAuthenticated()}}
	d.List = &action.List{Permissions: permission.Set{
		permission.IsAuthenticated(),
		permission.Narrow(func(c *permission.Check) []describer.Lookup {
			return []describer.Lookup{{Field: "author_id", Op: describer.OpExact, Value: c.Viewer().GetID()}}
		}),
	}}
	d.Update = &action.Update{Permissions: permission.Set{permission.Or(permission.HasRole("admin"), permission.IsOwner("author"))}}
	d.FieldPermissions = map[string]permission.Set{
		"pages": {permission.HasRole("editor")},
	}
	s := lib.generate(t, d)

	anonymous := context.Background()
	ann := permission.WithViewer(anonymous, &permission.SimpleViewer{UserID: "1"})
	bob := permission.WithViewer(anonymous, &permission.SimpleViewer{UserID: "2", Roles: []string{"editor"}})

	data, errs := run(t, anonymous, s, `{ bookDetail(id: 1) { title } }`, nil)
	assert.JSONEq(t, `{"bookDetail": null}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeForbidden, code(errs[0]))
	assert.Equal(t, "Log in to access this.", errs[0].Message)

	data, errs = run(t, ann, s, `{ bookDetail(id: 1) { title pages } }`, nil)
	assert.JSONEq(t, `{"bookDetail": {"title": "Go in Practice", "pages": null}}`, data)
	require.Len(t, errs, 1)
	assert.Equal(t, ast.Path{ast.PathName("bookDetail"), ast.PathName("pages")}, errs[0].Path)
	assert.Equal(t, `Role "editor" is required.`, errs[0].Message)

	data, errs = run(t, bob, s, `{ bookDetail(id: 2) { pages } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookDetail": {"pages": 120}}`, data)

	data, errs = run(t, ann, s, `{ bookList { totalCount results { title } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookList": {"totalCount": 2, "results": [{"title": "Go in Practice"}, {"title": "Rust"}]}}`, data)

	_, errs = run(t, anonymous, s, `{ bookList { totalCount } }`, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, graphql.CodeForbidden, code(errs[0]))

	_, errs = run(t, bob, s, `mutation { bookUpdate(data: {id: 1, title: "Mine"}) { object { title } } }`, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, `Role "admin" is required. OR Only the owner can do this.`, errs[0].Message)

	data, errs = run(t, ann, s, `mutation { bookUpdate(data: {id: 1, title: "Mine"}) { object { title } } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookUpdate": {"object": {"title": "Mine"}}}`, data)

	data, errs = run(t, permission.BypassContext(anonymous), s, `{ bookDetail(id: 3) { title } }`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{"bookDetail": {"title": "Rust"}}`, data)
}

func TestExecExtraFieldsAndFilters(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	d := schema.New(lib.books)
	d.Exclude = []string{"pages"}
	d.ExtraFields = []schema.ExtraField{
		{
			Name: "long",
			Type: field.Boolean(),
			Resolve: func(_ context.Context, obj describer.Instance) (any, error) {
				pages, _ := obj.Get("pages")
				n, _ := pages.(int64)
				return n > 200, nil
			},
		},
		{Name: "writer", Type: lib.authors, Resolve: func(ctx context.Context, obj describer.Instance) (any, error) {
			id, _ := obj.Get("author")
			return lib.authors.Get(ctx, id)
		}},
	}
	d.ExtraFilters = []schema.ExtraFilter{
		{Name: "pages__gte", Type: field.Int()},
		{
			Name: "short",
			Type: field.Boolean(),
			Lookups: func(v any) []describer.Lookup {
				if v == true {
					return []describer.Lookup{{Field: "pages", Op: describer.OpLT, Value: 200}}
				}
				return nil
			},
		},
	}
	s := lib.generate(t, d)

	data, errs := run(t, context.Background(), s, `{
		a: bookList(pages__gte: 200) { results { title long writer { name } } }
		b: bookList(short: true) { results { title } }
	}`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{
		"a": {"results": [{"title": "Go in Practice", "long": true, "writer": {"name": "Ann"}}]},
		"b": {"results": [{"title": "Learning Go"}]}
	}`, data)
}

func TestExecRequestErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	tests := []struct {
		name    string
		req     graphql.Request
		message string
	}{
		{name: "syntax", req: graphql.Request{Query: `{ bookList `}, message: "Expected Name"},
		{name: "unknown field", req: graphql.Request{Query: `{ bookList { isbn } }`}, message: "isbn"},
		{name: "unknown operation", req: graphql.Request{Query: `query A { bookList { totalCount } }`, OperationName: "B"}, message: `Unknown operation named "B"`},
		{name: "missing variable", req: graphql.Request{Query: `query($id: ID!) { bookDetail(id: $id) { title } }`}, message: "id"},
		{name: "subscription", req: graphql.Request{Query: `subscription { bookList { totalCount } }`}, message: "subscription"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := s.Exec(ctx, tt.req)
			require.NotEmpty(t, resp.Errors)
			assert.Empty(t, resp.Data)
			assert.Contains(t, resp.Errors.Error(), tt.message)
		})
	}
}

func TestExecIntrospection(t *testing.T) {
	t.Parallel()
	lib := newLibrary(t)
	s := lib.generate(t, schema.New(lib.books))

	data, errs := run(t, context.Background(), s, `{
		__schema { queryType { name } mutationType { name } }
		__type(name: "BookType") { name kind }
	}`, nil)
	require.Empty(t, errs)
	assert.JSONEq(t, `{
		"__schema": {"queryType": {"name": "Query"}, "mutationType": {"name": "Mutation"}},
		"__type": {"name": "BookType", "kind": "OBJECT"}
	}`, data)
}
