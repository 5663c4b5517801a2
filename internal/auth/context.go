package auth

import "context"

type contextKey string

const adminContextKey contextKey = "admin_context"

// Admin identifies the key that authenticated an admin request.
type Admin struct {
	KeyPrefix string
	Env       string
}

// ContextWithAdmin stores the authenticated admin in ctx.
func ContextWithAdmin(ctx context.Context, admin *Admin) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

// AdminFromContext returns the authenticated admin, or nil.
func AdminFromContext(ctx context.Context) *Admin {
	admin, ok := ctx.Value(adminContextKey).(*Admin)
	if !ok {
		return nil
	}
	return admin
}

// KeyPrefixFromContext returns the admin key prefix, or "" when unauthenticated.
func KeyPrefixFromContext(ctx context.Context) string {
	if admin := AdminFromContext(ctx); admin != nil {
		return admin.KeyPrefix
	}
	return ""
}
