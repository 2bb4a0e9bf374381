package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karlosss/describer"
	"github.com/karlosss/describer/action"
	"github.com/karlosss/describer/dialect/memory"
	"github.com/karlosss/describer/permission"
	"github.com/karlosss/describer/schema"
	"github.com/karlosss/describer/schema/field"
)

func catalog() (*memory.Model, *memory.Model) {
	cat := memory.NewCatalog()
	authors := cat.Define("Author",
		describer.Field{Name: "name", Kind: describer.KindString},
	)
	books := cat.Define("Book",
		describer.Field{Name: "title", Kind: describer.KindString},
		describer.Field{Name: "isbn", Kind: describer.KindString, Optional: true},
		describer.Field{Name: "author", Kind: describer.KindForeignKey, Related: "Author"},
	)
	return authors, books
}

func TestRegister(t *testing.T) {
	t.Parallel()
	authors, books := catalog()
	reg := schema.NewRegistry()

	h, err := reg.Register(schema.New(books))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "isbn", "author"}, h.Fields())
	assert.Equal(t, []string{"id", "title", "isbn", "author"}, h.LocalFields())

	a, err := reg.Register(schema.New(authors))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "books"}, a.Fields())
	assert.Equal(t, []string{"id", "name"}, a.LocalFields())

	got, ok := reg.Get(books)
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, []*schema.Handle{h, a}, reg.Handles())
	assert.Equal(t, []string{"Book", "Author"}, reg.Types().Models())

	var names []string
	for _, b := range h.Actions() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"Book_list", "Book_detail", "Book_create", "Book_update", "Book_delete"}, names)
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()
	custom := &action.Custom{
		Exec: func(context.Context, describer.Instance, describer.Data) (action.Result, error) {
			return action.Result{}, nil
		},
		Returns: []field.Named{{Name: "ok", Type: field.Boolean()}},
	}
	tests := []struct {
		name   string
		modify func(d *schema.Describer)
		target error
	}{
		{
			name: "only and exclude",
			modify: func(d *schema.Describer) {
				d.Only = []string{"title"}
				d.Exclude = []string{"isbn"}
			},
			target: describer.ErrInvalidConfig,
		},
		{
			name:   "unknown field",
			modify: func(d *schema.Describer) { d.Only = []string{"pages"} },
			target: describer.ErrUnknownField,
		},
		{
			name: "reserved action name",
			modify: func(d *schema.Describer) {
				d.ExtraActions = map[string]action.Action{"create": custom}
			},
			target: describer.ErrReservedName,
		},
		{
			name: "extra field collision",
			modify: func(d *schema.Describer) {
				d.ExtraFields = []schema.ExtraField{{Name: "title", Type: field.String()}}
			},
			target: describer.ErrDuplicateName,
		},
		{
			name: "permissions on hidden field",
			modify: func(d *schema.Describer) {
				d.Exclude = []string{"isbn"}
				d.FieldPermissions = map[string]permission.Set{"isbn": {permission.AllowNone}}
			},
			target: describer.ErrUnknownField,
		},
		{
			name: "custom object without exec",
			modify: func(d *schema.Describer) {
				d.ExtraActions = map[string]action.Action{"publish": &action.CustomObject{}}
			},
			target: describer.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, books := catalog()
			reg := schema.NewRegistry()
			d := schema.New(books)
			tt.modify(&d)
			_, err := reg.Register(d)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Empty(t, reg.Handles())
			assert.Empty(t, reg.Types().Models())
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()
	authors, books := catalog()
	reg := schema.NewRegistry()
	reg.MustRegister(schema.New(books))
	_, err := reg.Register(schema.New(books))
	require.ErrorIs(t, err, describer.ErrDuplicateDescriber)
	_, err = reg.Register(schema.New(authors))
	require.NoError(t, err)
	assert.Len(t, reg.Handles(), 2)
	assert.Panics(t, func() { reg.MustRegister(schema.New(books)) })
}

func TestRegisterNilModel(t *testing.T) {
	t.Parallel()
	_, err := schema.NewRegistry().Register(schema.Describer{})
	require.ErrorIs(t, err, describer.ErrInvalidConfig)
}

func TestActionFieldSets(t *testing.T) {
	t.Parallel()
	cat := memory.NewCatalog()
	posts := cat.Define("Post",
		describer.Field{Name: "name", Kind: describer.KindString},
		describer.Field{Name: "created_by", Kind: describer.KindString, Optional: true},
	)
	d := schema.New(posts)
	d.Update = &action.Update{Exclude: []string{"id"}}
	h, err := schema.NewRegistry().Register(d)
	require.NoError(t, err)

	fields := func(name string) []string {
		b, ok := h.Action(name)
		require.True(t, ok, name)
		return b.Fields()
	}
	assert.Equal(t, []string{"name", "created_by"}, fields("create"))
	assert.Equal(t, []string{"name", "created_by", "id"}, fields("update"))
	assert.Equal(t, []string{"id"}, fields("delete"))
	assert.Equal(t, []string{"id", "name", "created_by"}, fields("list"))
}

func TestDisabledActions(t *testing.T) {
	t.Parallel()
	_, books := catalog()
	d := schema.New(books)
	d.Delete = nil
	d.Update = nil
	h, err := schema.NewRegistry().Register(d)
	require.NoError(t, err)
	_, ok := h.Action("delete")
	assert.False(t, ok)
	assert.Len(t, h.Actions(), 3)
}

func TestExtraActionsSorted(t *testing.T) {
	t.Parallel()
	_, books := catalog()
	exec := func(context.Context, describer.Instance, describer.Data) (action.Result, error) {
		return action.Result{"ok": true}, nil
	}
	returns := []field.Named{{Name: "ok", Type: field.Boolean()}}
	d := schema.Describer{
		Model: books,
		ExtraActions: map[string]action.Action{
			"publish": &action.CustomObject{Exec: exec, Returns: returns},
			"archive": &action.CustomObject{Exec: exec, Returns: returns},
		},
	}
	h, err := schema.NewRegistry().Register(d)
	require.NoError(t, err)
	require.Len(t, h.Actions(), 2)
	assert.Equal(t, "Book_archive", h.Actions()[0].Name())
	assert.Equal(t, "Book_publish", h.Actions()[1].Name())
}

func TestPermissionsFallback(t *testing.T) {
	t.Parallel()
	_, books := catalog()
	d := schema.New(books)
	d.DefaultActionPermissions = permission.Set{permission.IsAuthenticated()}
	d.DefaultFieldPermissions = permission.Set{permission.AllowAll}
	d.FieldPermissions = map[string]permission.Set{"isbn": {permission.AllowNone}}
	d.Delete = &action.Delete{Permissions: permission.Set{permission.AllowNone}}
	h, err := schema.NewRegistry().Register(d)
	require.NoError(t, err)

	assert.Equal(t, permission.Set{permission.AllowNone}, h.FieldPermissions("isbn"))
	assert.Equal(t, permission.Set{permission.AllowAll}, h.FieldPermissions("title"))

	open := schema.New(books)
	open.DefaultFieldPermissions = permission.Set{permission.AllowNone}
	open.FieldPermissions = map[string]permission.Set{"title": {}}
	h, err = schema.NewRegistry().Register(open)
	require.NoError(t, err)
	assert.Empty(t, h.FieldPermissions("title"))
	assert.NoError(t, h.FieldPermissions("title").Evaluate(permission.NewCheck(context.Background(), nil, nil, nil)))
	assert.Equal(t, permission.Set{permission.AllowNone}, h.FieldPermissions("isbn"))

	list, _ := h.Action("list")
	assert.Len(t, list.Permissions(), 1)
	del, _ := h.Action("delete")
	assert.Equal(t, permission.Set{permission.AllowNone}, del.Permissions())
}

func TestSeal(t *testing.T) {
	t.Parallel()
	authors, books := catalog()
	reg := schema.NewRegistry()
	reg.MustRegister(schema.New(books))
	reg.Seal()
	assert.True(t, reg.Sealed())
	_, err := reg.Register(schema.New(authors))
	require.ErrorIs(t, err, describer.ErrSealed)
	_, err = reg.RegisterAction("ping", &action.Custom{})
	require.ErrorIs(t, err, describer.ErrSealed)
}

func TestRegisterAction(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry()
	ping := &action.Custom{
		Exec: func(context.Context, describer.Instance, describer.Data) (action.Result, error) {
			return action.Result{"pong": "pong"}, nil
		},
		Returns: []field.Named{{Name: "pong", Type: field.String()}},
	}
	b, err := reg.RegisterAction("ping", ping)
	require.NoError(t, err)
	assert.Equal(t, "ping", b.Name())
	assert.False(t, b.HasModel())

	_, err = reg.RegisterAction("ping", ping)
	require.ErrorIs(t, err, describer.ErrDuplicateName)

	_, err = reg.RegisterAction("list", &action.List{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, describer.ErrInvalidConfig))
	assert.Len(t, reg.Actions(), 1)
}

type (
	typeConverter   = field.Converter
	actionConverter = action.Converter
)

// recordingAdapter records the registry state seen by Generate.
type recordingAdapter struct {
	typeConverter
	actionConverter
	sealed bool
}

func (a *recordingAdapter) Generate(r *schema.Registry) (int, error) {
	a.sealed = r.Sealed()
	return len(r.Handles()), nil
}

func TestGenerateSeals(t *testing.T) {
	t.Parallel()
	_, books := catalog()
	reg := schema.NewRegistry()
	reg.MustRegister(schema.New(books))
	a := &recordingAdapter{}
	n, err := schema.Generate[int](a, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, a.sealed)
}
