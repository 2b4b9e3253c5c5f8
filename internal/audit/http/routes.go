package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/buildmart/buildmart/internal/identity"
	"github.com/buildmart/buildmart/internal/platform/httpx"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the review endpoints. Callers gate the router to
// administrators.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)
	r.Get("/resources/{type}/{id}", h.handleByResource)
	r.Get("/actors/{profileID}", h.handleByActor)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/resources/{type}/{id}/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if p := identity.PrincipalFromContext(r.Context()); p.Authenticated() {
		return "profile:" + p.ProfileID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
