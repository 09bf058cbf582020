package rbac

import "context"

type contextKey struct{}

// WithPermissions attaches the caller's resolved permissions to ctx.
func WithPermissions(ctx context.Context, perms []Permission) context.Context {
	return context.WithValue(ctx, contextKey{}, perms)
}

// PermissionsFromContext returns the permissions attached to ctx, or nil
// when the request was never authorized.
func PermissionsFromContext(ctx context.Context) []Permission {
	perms, _ := ctx.Value(contextKey{}).([]Permission)
	return perms
}
