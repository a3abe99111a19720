// Package tenant supplies the authenticated tenant identity to the
// bookkeeping core. Handlers must take the tenant id from the request
// context, never from a caller-supplied payload.
package tenant

import "context"

type tenantContextKey struct{}

// ContextWithID attaches the authenticated tenant id to the context.
func ContextWithID(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// IDFromContext extracts the authenticated tenant id from the context.
func IDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
