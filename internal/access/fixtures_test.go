package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/buildmart/buildmart/internal/audit"
)

func ptr[T any](v T) *T { return &v }

func mustClassifier(t testing.TB) *Classifier {
	t.Helper()
	c, err := DefaultClassifier()
	require.NoError(t, err)
	return c
}

func acmeSupplier() *Supplier {
	return &Supplier{
		ID:          "sup-1",
		ProfileID:   "prof-supplier",
		CompanyName: "Acme",
		Rating:      4.5,
		Phone:       ptr("+254700000000"),
	}
}

func fullSupplier() *Supplier {
	return &Supplier{
		ID:                 "sup-2",
		ProfileID:          "prof-supplier",
		CompanyName:        "Mawe Ltd",
		BusinessLocation:   "Nairobi",
		MaterialCategories: []string{"cement", "steel"},
		Rating:             4.1,
		IsVerified:         true,
		ContactPerson:      ptr("Wanjiku"),
		Phone:              ptr("+254711111111"),
		Email:              ptr("sales@mawe.example"),
		Address:            ptr("Industrial Area, Rd 4"),
		PaymentDetails:     ptr("KCB 0011223344"),
	}
}

func sampleDelivery(status string) *Delivery {
	return &Delivery{
		ID:                  "del-1",
		BuilderID:           "prof-builder",
		SupplierID:          ptr("prof-supplier"),
		ProviderID:          ptr("prof-provider"),
		TrackingNumber:      "TRK-001",
		Status:              status,
		MaterialType:        "cement",
		Quantity:            40,
		Unit:                "bags",
		ScheduledDate:       time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		VehicleType:         "lorry",
		PickupAddress:       ptr("Yard 7"),
		DeliveryAddress:     ptr("Plot 12, Kilimani"),
		DriverName:          ptr("Otieno"),
		VehicleRegistration: ptr("KDA 123X"),
		CurrentLocation:     &GeoPoint{Lat: -1.2921, Lng: 36.8219},
		DriverLivePhone:     ptr("+254722222222"),
		PaymentReference:    ptr("MPESA-XYZ"),
	}
}

func builder() Principal {
	return Principal{UserID: "user-builder", ProfileID: "prof-builder", Role: RoleBuilder}
}

func supplierPrincipal() Principal {
	return Principal{UserID: "user-supplier", ProfileID: "prof-supplier", Role: RoleSupplier}
}

func provider() Principal {
	return Principal{UserID: "user-provider", ProfileID: "prof-provider", Role: RoleDeliveryProvider}
}

func stranger() Principal {
	return Principal{UserID: "user-x", ProfileID: "prof-x", Role: RoleBuilder}
}

func admin() Principal {
	return Principal{UserID: "user-admin", ProfileID: "prof-admin", Role: RoleAdmin}
}

type stubLinks struct {
	links []Link
	err   error
	delay time.Duration
	calls int
	mu    sync.Mutex
}

func (s *stubLinks) Links(ctx context.Context, profileID string, rt ResourceType, resourceID string) ([]Link, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.links, s.err
}

type stubStore struct {
	resources map[string]Resource
	err       error
	failIDs   map[string]error
}

func (s *stubStore) Load(ctx context.Context, rt ResourceType, id string) (Resource, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err, ok := s.failIDs[id]; ok {
		return nil, err
	}
	res, ok := s.resources[string(rt)+"/"+id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	return res, nil
}

func storeOf(resources ...Resource) *stubStore {
	s := &stubStore{resources: map[string]Resource{}}
	for _, r := range resources {
		s.resources[string(r.Type())+"/"+r.ResourceID()] = r
	}
	return s
}

type stubAudit struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *stubAudit) Record(ctx context.Context, e audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

type stubMetrics struct {
	mu            sync.Mutex
	decisions     map[string]int
	auditFailures int
	relFailures   int
}

func (s *stubMetrics) Decision(resource, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decisions == nil {
		s.decisions = map[string]int{}
	}
	s.decisions[resource+"|"+reason]++
}

func (s *stubMetrics) AuditFailure(resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditFailures++
}

func (s *stubMetrics) RelationshipFailure(resource string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relFailures++
}
