package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildmart/buildmart/internal/access"
	accesshttp "github.com/buildmart/buildmart/internal/access/http"
	"github.com/buildmart/buildmart/internal/audit"
	audithttp "github.com/buildmart/buildmart/internal/audit/http"
	"github.com/buildmart/buildmart/internal/identity"
	"github.com/buildmart/buildmart/internal/observability"
	_ "github.com/buildmart/buildmart/testing"
)

type recordService struct{}

func (recordService) DecideAndProject(_ context.Context, _ access.Principal, rt access.ResourceType, id string) (access.SafeRecord, error) {
	return access.SafeRecord{ResourceType: rt, ResourceID: id, Reason: access.ReasonAnonymous}, nil
}

func (recordService) DecideAndProjectMany(_ context.Context, _ access.Principal, _ access.ResourceType, _ []string) ([]access.SafeRecord, error) {
	return nil, nil
}

type reviewService struct{}

func (reviewService) Review(context.Context, audit.Filters) (audit.Result, error) {
	return audit.Result{Events: []audit.Event{}}, nil
}

func newTestRouter() http.Handler {
	return NewRouter(RouterParams{
		Config:          &Config{AppEnv: "test", AppRateLimit: 1000},
		Identity:        identity.Middleware{},
		ResourceHandler: accesshttp.NewHandler(nil, recordService{}),
		AuditHandler:    audithttp.NewHandler(nil, reviewService{}),
		Metrics:         observability.NewMetrics(),
	})
}

func TestRouterHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Frame-Options"))
}

func TestRouterServesResourcesToAnonymous(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/resources/supplier/sup-1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"sup-1"`)
}

func TestRouterAuditRequiresAdmin(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/audit/actors/prof-1", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "buildmart_http_requests_total")
}
