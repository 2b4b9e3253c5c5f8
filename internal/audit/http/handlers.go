package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/buildmart/buildmart/internal/access"
	"github.com/buildmart/buildmart/internal/audit"
	"github.com/buildmart/buildmart/internal/platform/httpx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxExportRows   = 5000
)

// ReviewService defines the compliance review contract.
type ReviewService interface {
	Review(ctx context.Context, filters audit.Filters) (audit.Result, error)
}

// Handler serves compliance review of audit events.
type Handler struct {
	logger  *slog.Logger
	service ReviewService
}

// NewHandler builds the audit review handler.
func NewHandler(logger *slog.Logger, service ReviewService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleByResource(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rt, ok := access.ParseResourceType(chi.URLParam(r, "type"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	filters.ResourceType = string(rt)
	filters.ResourceID = chi.URLParam(r, "id")
	h.respondReview(w, r, filters)
}

func (h *Handler) handleByActor(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters.ActorProfileID = chi.URLParam(r, "profileID")
	h.respondReview(w, r, filters)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	rt, ok := access.ParseResourceType(chi.URLParam(r, "type"))
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	filters := audit.Filters{ResourceType: string(rt), ResourceID: chi.URLParam(r, "id"), PageSize: maxPageSize}
	var events []audit.Event
	for page := 1; len(events) < maxExportRows; page++ {
		filters.Page = page
		result, err := h.service.Review(r.Context(), filters)
		if err != nil {
			h.handleServerError(w, "export audit events", err)
			return
		}
		events = append(events, result.Events...)
		if !result.Paging.HasNext {
			break
		}
	}
	csvBytes, err := audit.WriteCSV(events)
	if err != nil {
		h.handleServerError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-events.csv\"")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) respondReview(w http.ResponseWriter, r *http.Request, filters audit.Filters) {
	result, err := h.service.Review(r.Context(), filters)
	if err != nil {
		if errors.Is(err, audit.ErrFilterRequired) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.handleServerError(w, "review audit events", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	page := 1
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, validationError{field: "page_size"}
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		pageSize = parsed
	}
	return audit.Filters{Page: page, PageSize: pageSize}, nil
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if h.logger != nil {
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return "invalid " + v.field
}

func (validationError) Unwrap() error {
	return httpx.ErrValidation
}
