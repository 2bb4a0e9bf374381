// Package permission provides the permission checks woven into generated
// fields, listings and mutations.
//
// # Core Concepts
//
//   - Permission: answers "is this allowed?" for a Check and supplies a
//     user-visible denial message.
//   - Check: the per-invocation input: request context, optional target
//     instance, input data (never nil) and optional listing result.
//   - Set: a conjunction of permissions. Every element must allow; the
//     empty set allows everything.
//   - Viewer: the authenticated caller, carried in the request context.
//
// # Declaring Permissions
//
// Permissions are attached to describers and actions as sets:
//
//	schema.Describer{
//	    Model:                    books,
//	    DefaultActionPermissions: permission.Set{permission.IsAuthenticated()},
//	    FieldPermissions: map[string]permission.Set{
//	        "isbn": {permission.HasRole("librarian")},
//	    },
//	}
//
// Disjunction is explicit:
//
//	permission.Set{permission.Or(permission.HasRole("admin"), permission.IsOwner("owner_id"))}
//
// The denial message of an Or joins the inner messages with " OR ".
//
// # Listings
//
// A listing's check carries the filtered but not yet materialized result in
// Check.Result. A permission may narrow it before the set decides:
//
//	permission.Narrow(func(c *permission.Check) []describer.Lookup {
//	    return []describer.Lookup{{Field: "published", Op: describer.OpExact, Value: true}}
//	})
//
// A denial still aborts the whole listing; narrowing never replaces it.
//
// # Built-in Permissions
//
//   - AllowAll, AllowNone
//   - IsAuthenticated: requires a viewer in the context
//   - HasRole, HasAnyRole: role membership of the viewer
//   - IsOwner, SameTenant: compare a target field with the viewer
//   - New, Func: adapters for ordinary functions
package permission
