// Package describer compiles declarative model descriptions into a GraphQL API.
//
// The root package holds the contracts shared by every layer:
//
//   - [Model], [Instance] and [QuerySet]: the model introspection and
//     persistence contract implemented by storage backends such as
//     dialect/memory and dialect/sql.
//   - [DetermineFields]: resolves an only/exclude specification against a
//     model's fields.
//   - The error taxonomy: configuration errors ([ConfigError]), not-found
//     errors ([NotFoundError]) and request input errors ([InputError]).
//
// Describers are declared and registered with the schema package, type
// descriptors live in schema/field, operations in action and permission
// checks in permission. The contrib/graphql package turns a registry into an
// executable GraphQL schema:
//
//	reg := schema.NewRegistry()
//	if _, err := reg.Register(schema.New(books)); err != nil {
//	    log.Fatal(err)
//	}
//	s, err := schema.Generate(graphql.NewAdapter(), reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(s.SDL())
package describer
