// Package schema registers describers and drives schema generation.
//
// A Describer declares which fields of a model are exposed, which actions
// exist on it and which permissions gate them. Registering it on a
// Registry resolves the field sets, binds the actions and records the
// model's type descriptor:
//
//	reg := schema.NewRegistry()
//	d := schema.New(books)
//	d.Exclude = []string{"secret"}
//	d.FieldPermissions = map[string]permission.Set{
//	    "isbn": {permission.IsAuthenticated()},
//	}
//	if _, err := reg.Register(d); err != nil {
//	    return err
//	}
//
// Generate seals the registry and hands it to an Adapter, which converts
// every type and action into its target representation.
package schema
