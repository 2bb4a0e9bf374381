package permission

import (
	"context"
	"fmt"
	"slices"
)

// Viewer represents the authenticated caller of a request.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier for multi-tenancy.
	// Returns empty string if not applicable.
	GetTenantID() string
}

// viewerCtxKey is the context key for storing the viewer.
type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
// Use this for testing or simple use cases.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// IsAuthenticated allows requests that carry a viewer.
func IsAuthenticated() Permission {
	return New("Log in to access this.", func(c *Check) bool {
		return c.Viewer() != nil
	})
}

// HasRole allows requests whose viewer has the given role.
//
// Example:
//
//	permission.Set{permission.IsAuthenticated(), permission.HasRole("editor")}
func HasRole(role string) Permission {
	return New(fmt.Sprintf("Role %q is required.", role), func(c *Check) bool {
		v := c.Viewer()
		return v != nil && slices.Contains(v.GetRoles(), role)
	})
}

// HasAnyRole allows requests whose viewer has one of the given roles.
func HasAnyRole(roles ...string) Permission {
	return New(fmt.Sprintf("One of the roles %q is required.", roles), func(c *Check) bool {
		v := c.Viewer()
		if v == nil {
			return false
		}
		viewerRoles := v.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return true
			}
		}
		return false
	})
}

// IsOwner allows requests whose viewer owns the target. The owner is read
// from the target instance's field, or from the input data when the
// request has no target, as for creation.
//
// Example:
//
//	Update: &action.Update{Permissions: permission.Set{permission.IsOwner("owner_id")}}
func IsOwner(field string) Permission {
	return New("Only the owner can do this.", func(c *Check) bool {
		v := c.Viewer()
		if v == nil {
			return false
		}
		value, ok := fieldValue(c, field)
		return ok && stringify(value) == v.GetID()
	})
}

// SameTenant allows requests whose viewer belongs to the target's tenant.
// Viewers without a tenant are denied.
func SameTenant(field string) Permission {
	return New("Tenant mismatch.", func(c *Check) bool {
		v := c.Viewer()
		if v == nil || v.GetTenantID() == "" {
			return false
		}
		value, ok := fieldValue(c, field)
		return ok && stringify(value) == v.GetTenantID()
	})
}

func fieldValue(c *Check, field string) (any, bool) {
	if c.Obj != nil {
		return c.Obj.Get(field)
	}
	if c.Data.Has(field) {
		return c.Data.Get(field), true
	}
	return nil, false
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
