// Package action provides the operations a describer exposes.
//
// Standard actions are list, detail, create, update and delete; Custom and
// CustomObject are escape hatches with user-supplied execution functions
// and return shapes. Configurations are plain immutable values:
//
//	&action.Create{
//	    Exclude:     []string{"created_at"},
//	    Permissions: permission.Set{permission.IsAuthenticated()},
//	}
//
// Binding an action to a describer and a name yields a *Bound, which
// resolves the field set, the permissions (falling back to the describer's
// defaults) and the default execution, fetch and return fields:
//
//   - create: construct from the input data, save, return {object}
//   - update: fetch by id, set every input field, save, return {object}
//   - delete: fetch by id, delete, return {object}
//
// Field sets per kind: list and detail expose the describer's fields;
// create drops the identifier; update always includes it; delete and
// custom-object take only the identifier; custom actions use their own
// input type.
package action
