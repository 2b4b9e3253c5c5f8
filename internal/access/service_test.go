package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildmart/buildmart/internal/audit"
)

type serviceHarness struct {
	svc     *Service
	links   *stubLinks
	audit   *stubAudit
	metrics *stubMetrics
}

func newHarness(t *testing.T, store Store) *serviceHarness {
	t.Helper()
	c := mustClassifier(t)
	h := &serviceHarness{links: &stubLinks{}, audit: &stubAudit{}, metrics: &stubMetrics{}}
	h.svc = NewService(ServiceDeps{
		Store:            store,
		Resolver:         NewResolver(h.links, c, 50*time.Millisecond),
		Engine:           NewEngine(c),
		Projector:        NewProjector(c),
		Audit:            h.audit,
		Metrics:          h.metrics,
		BatchConcurrency: 2,
	})
	return h
}

func TestAnonymousSupplierIsPublicAndUnlogged(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier()))

	safe, err := h.svc.DecideAndProject(context.Background(), Anonymous(), ResourceSupplier, "sup-1")
	require.NoError(t, err)
	assert.Equal(t, "sup-1", safe.ResourceID)
	assert.Equal(t, "Acme", safe.Fields["company_name"])
	assert.Equal(t, 4.5, safe.Fields["rating"])
	assert.Nil(t, safe.Fields["phone"])
	assert.False(t, safe.Capabilities["can_view_contact"])
	assert.Empty(t, h.audit.events)
	assert.Equal(t, 1, h.metrics.decisions["supplier|"+ReasonAnonymous])
}

func TestEngagedBuilderSeesPhoneAndIsAudited(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier()))
	h.links.links = []Link{{Kind: ResourceDeliveryRequest, Status: "accepted"}}

	safe, err := h.svc.DecideAndProject(context.Background(), builder(), ResourceSupplier, "sup-1")
	require.NoError(t, err)
	assert.Equal(t, "+254700000000", safe.Fields["phone"])
	assert.True(t, safe.Capabilities["can_view_contact"])

	require.Len(t, h.audit.events, 1)
	e := h.audit.events[0]
	assert.Equal(t, audit.ActionView, e.Action)
	assert.Equal(t, []string{"phone"}, e.FieldsAccessed)
	assert.Equal(t, "prof-builder", e.ActorProfileID)
	assert.Equal(t, "sup-1", e.ResourceID)
	assert.Equal(t, "supplier", e.ResourceType)
	assert.Equal(t, ReasonActiveRelationship, e.Justification)
}

func TestPendingBuilderIsProtected(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier()))
	h.links.links = []Link{{Kind: ResourceDeliveryRequest, Status: "pending"}}

	safe, err := h.svc.DecideAndProject(context.Background(), builder(), ResourceSupplier, "sup-1")
	require.NoError(t, err)
	assert.Nil(t, safe.Fields["phone"])
	assert.Equal(t, "pending engagement — contact protected", safe.Reason)
	assert.Empty(t, h.audit.events)
}

func TestAdminSeesEverythingAndIsAlwaysAudited(t *testing.T) {
	h := newHarness(t, storeOf(fullSupplier(), sampleDelivery("pending")))

	safe, err := h.svc.DecideAndProject(context.Background(), admin(), ResourceDelivery, "del-1")
	require.NoError(t, err)
	assert.Equal(t, "MPESA-XYZ", safe.Fields["payment_reference"])
	assert.Equal(t, map[string]any{"lat": -1.2921, "lng": 36.8219}, safe.Fields["current_location"])

	supplier, err := h.svc.DecideAndProject(context.Background(), admin(), ResourceSupplier, "sup-2")
	require.NoError(t, err)
	assert.Equal(t, "KCB 0011223344", supplier.Fields["payment_details"])

	require.Len(t, h.audit.events, 2)
	for _, e := range h.audit.events {
		assert.Equal(t, ReasonAdministrator, e.Justification)
		assert.Equal(t, "prof-admin", e.ActorProfileID)
	}
}

func TestAuditFailureWithholdsDisclosure(t *testing.T) {
	h := newHarness(t, storeOf(sampleDelivery("in_transit")))
	h.audit.err = audit.ErrWriteFailed

	safe, err := h.svc.DecideAndProject(context.Background(), provider(), ResourceDelivery, "del-1")
	require.NoError(t, err)
	assert.Equal(t, ReasonAuditUnavailable, safe.Reason)
	assert.Nil(t, safe.Fields["driver_live_phone"])
	assert.Nil(t, safe.Fields["delivery_address"])
	assert.Equal(t, "TRK-001", safe.Fields["tracking_number"])
	assert.Empty(t, safe.Disclosed)
	assert.Equal(t, 1, h.metrics.auditFailures)
}

func TestRelationshipFailureIsPublicOnlyDenial(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier()))
	h.links.err = errors.New("statement timeout")

	safe, err := h.svc.DecideAndProject(context.Background(), builder(), ResourceSupplier, "sup-1")
	require.NoError(t, err)
	assert.Equal(t, ReasonRelationshipUnavailable, safe.Reason)
	assert.Nil(t, safe.Fields["phone"])
	assert.Equal(t, "Acme", safe.Fields["company_name"])
	assert.Equal(t, 1, h.metrics.relFailures)

	require.Len(t, h.audit.events, 1)
	assert.Equal(t, audit.ActionDeny, h.audit.events[0].Action)
	assert.Empty(t, h.audit.events[0].FieldsAccessed)
}

func TestCallerCancellationDuringLookupIsNotAudited(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier()))
	h.svc.resolver.timeout = 5 * time.Second
	h.links.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.svc.DecideAndProject(ctx, builder(), ResourceSupplier, "sup-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, h.audit.events)
	assert.Zero(t, h.metrics.relFailures)
}

func TestBatchSiblingFailureDoesNotAuditInFlightItems(t *testing.T) {
	store := storeOf(acmeSupplier())
	store.failIDs = map[string]error{"bad": errors.New("conn reset")}
	h := newHarness(t, store)
	h.svc.resolver.timeout = 5 * time.Second
	h.links.delay = time.Second

	_, err := h.svc.DecideAndProjectMany(context.Background(), builder(), ResourceSupplier, []string{"sup-1", "bad"})
	require.Error(t, err)
	assert.Empty(t, h.audit.events)
	assert.Zero(t, h.metrics.relFailures)
}

func TestStrangerOnPrivateResourceLogsDenial(t *testing.T) {
	h := newHarness(t, storeOf(sampleDelivery("in_transit")))

	safe, err := h.svc.DecideAndProject(context.Background(), stranger(), ResourceDelivery, "del-1")
	require.NoError(t, err)
	assert.Nil(t, safe.Fields["delivery_address"])
	require.Len(t, h.audit.events, 1)
	assert.Equal(t, audit.ActionDeny, h.audit.events[0].Action)
}

func TestAuditCompleteness(t *testing.T) {
	store := storeOf(acmeSupplier(), fullSupplier(), sampleDelivery("confirmed"))
	cases := []struct {
		p  Principal
		rt ResourceType
		id string
	}{
		{Anonymous(), ResourceSupplier, "sup-1"},
		{admin(), ResourceSupplier, "sup-1"},
		{builder(), ResourceDelivery, "del-1"},
		{provider(), ResourceDelivery, "del-1"},
		{stranger(), ResourceDelivery, "del-1"},
		{supplierPrincipal(), ResourceSupplier, "sup-2"},
	}
	for _, tc := range cases {
		h := newHarness(t, store)
		res, err := store.Load(context.Background(), tc.rt, tc.id)
		require.NoError(t, err)
		facts, err := h.svc.resolver.Resolve(context.Background(), tc.p, res)
		require.NoError(t, err)
		decision := h.svc.engine.Decide(tc.p, tc.rt, res, facts)

		_, err = h.svc.DecideAndProject(context.Background(), tc.p, tc.rt, tc.id)
		require.NoError(t, err)
		if decision.ShouldLog() {
			require.Len(t, h.audit.events, 1, "%s on %s", tc.p.ProfileID, tc.rt)
			assert.Equal(t, tc.id, h.audit.events[0].ResourceID)
			assert.Equal(t, tc.p.ProfileID, h.audit.events[0].ActorProfileID)
		} else {
			assert.Empty(t, h.audit.events, "%s on %s", tc.p.ProfileID, tc.rt)
		}
	}
}

func TestNotFoundIsGeneric(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier()))

	_, err := h.svc.DecideAndProject(context.Background(), admin(), ResourceSupplier, "missing")
	require.ErrorIs(t, err, ErrResourceNotFound)

	_, err = h.svc.DecideAndProject(context.Background(), admin(), ResourceType("invoice"), "sup-1")
	require.ErrorIs(t, err, ErrResourceNotFound)

	_, err = h.svc.DecideAndProject(context.Background(), admin(), ResourceCamera, "sup-1")
	require.ErrorIs(t, err, ErrResourceNotFound)
	assert.Empty(t, h.audit.events)
}

func TestStoreErrorPropagates(t *testing.T) {
	h := newHarness(t, &stubStore{err: errors.New("conn reset")})
	_, err := h.svc.DecideAndProject(context.Background(), admin(), ResourceSupplier, "sup-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResourceNotFound)
}

func TestDecideAndProjectManyKeepsOrderAndSkipsMissing(t *testing.T) {
	h := newHarness(t, storeOf(acmeSupplier(), fullSupplier()))

	out, err := h.svc.DecideAndProjectMany(context.Background(), Anonymous(), ResourceSupplier, []string{"sup-2", "nope", "sup-1"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "sup-2", out[0].ResourceID)
	assert.Equal(t, "sup-1", out[1].ResourceID)
	for _, safe := range out {
		assert.Nil(t, safe.Fields["phone"])
	}
}

func TestDecideAndProjectManyFailsOnStoreError(t *testing.T) {
	h := newHarness(t, &stubStore{err: errors.New("conn reset")})
	_, err := h.svc.DecideAndProjectMany(context.Background(), Anonymous(), ResourceSupplier, []string{"a", "b"})
	require.Error(t, err)
}
