// Package accesshttp serves projected marketplace records.
package accesshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/buildmart/buildmart/internal/access"
	"github.com/buildmart/buildmart/internal/identity"
	"github.com/buildmart/buildmart/internal/platform/httpx"
)

const maxBatchIDs = 50

// Service is the disclosure pipeline used by the handler.
type Service interface {
	DecideAndProject(ctx context.Context, principal access.Principal, rt access.ResourceType, id string) (access.SafeRecord, error)
	DecideAndProjectMany(ctx context.Context, principal access.Principal, rt access.ResourceType, ids []string) ([]access.SafeRecord, error)
}

// Handler serves resource reads.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler builds the resource handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the resource endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{type}/{id}", h.handleGet)
	r.Get("/{type}", h.handleList)
}

type listResponse struct {
	Items []access.SafeRecord `json:"items"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rt, ok := access.ParseResourceType(chi.URLParam(r, "type"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	principal := identity.PrincipalFromContext(r.Context())
	safe, err := h.service.DecideAndProject(r.Context(), principal, rt, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, "decide and project", err)
		return
	}
	lang := access.PlaceholderLanguage(r.Header.Get("Accept-Language"))
	w.Header().Set("Vary", "Accept-Language, Cookie, Authorization")
	httpx.JSON(w, http.StatusOK, safe.Localize(lang))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	rt, ok := access.ParseResourceType(chi.URLParam(r, "type"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	ids := parseIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 || len(ids) > maxBatchIDs {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ids must list between 1 and 50 identifiers")
		return
	}
	principal := identity.PrincipalFromContext(r.Context())
	records, err := h.service.DecideAndProjectMany(r.Context(), principal, rt, ids)
	if err != nil {
		h.respondServiceError(w, "decide and project many", err)
		return
	}
	lang := access.PlaceholderLanguage(r.Header.Get("Accept-Language"))
	items := make([]access.SafeRecord, len(records))
	for i, rec := range records {
		items[i] = rec.Localize(lang)
	}
	w.Header().Set("Vary", "Accept-Language, Cookie, Authorization")
	httpx.JSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, access.ErrResourceNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var cfgErr *access.ConfigurationError
	if errors.As(err, &cfgErr) {
		h.logger.Error("classification incomplete", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseIDs(raw string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
