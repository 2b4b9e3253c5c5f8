package identity

import (
	"context"

	"github.com/buildmart/buildmart/internal/access"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. Absent means
// anonymous.
func PrincipalFromContext(ctx context.Context) access.Principal {
	p, ok := ctx.Value(principalContextKey{}).(access.Principal)
	if !ok {
		return access.Anonymous()
	}
	return p
}
