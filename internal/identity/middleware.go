package identity

import (
	"log/slog"
	"net/http"

	"github.com/buildmart/buildmart/internal/access"
	"github.com/buildmart/buildmart/internal/platform/httpx"
)

// Middleware attaches the request principal and gates routes by role.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Attach resolves the principal once per request and stores it in context.
// Identity backend failures degrade to anonymous.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := access.Anonymous()
		if m.Resolver != nil {
			p, err := m.Resolver.Resolve(r.Context(), r)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("identity resolve", slog.Any("error", err))
				}
			} else {
				principal = p
			}
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole ensures the current principal holds one of roles.
func (m Middleware) RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	allowed := make(map[access.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if !principal.Authenticated() {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("role denied", slog.String("profile_id", principal.ProfileID), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
