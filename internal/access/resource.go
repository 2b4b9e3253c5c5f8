package access

import (
	"strings"
	"time"
)

// ResourceType enumerates the resources gated by the policy engine.
type ResourceType string

const (
	ResourceSupplier         ResourceType = "supplier"
	ResourceDeliveryProvider ResourceType = "delivery_provider"
	ResourceDelivery         ResourceType = "delivery"
	ResourceDeliveryRequest  ResourceType = "delivery_request"
	ResourceAcknowledgement  ResourceType = "acknowledgement"
	ResourceCamera           ResourceType = "camera"
)

// ResourceTypes lists every resource type in a stable order.
func ResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceSupplier,
		ResourceDeliveryProvider,
		ResourceDelivery,
		ResourceDeliveryRequest,
		ResourceAcknowledgement,
		ResourceCamera,
	}
}

// IsValid checks if the resource type is known.
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceSupplier, ResourceDeliveryProvider, ResourceDelivery,
		ResourceDeliveryRequest, ResourceAcknowledgement, ResourceCamera:
		return true
	default:
		return false
	}
}

// ParseResourceType accepts singular, plural and dashed forms used in URLs.
func ParseResourceType(value string) (ResourceType, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, "-", "_")
	switch v {
	case "suppliers":
		v = "supplier"
	case "delivery_providers":
		v = "delivery_provider"
	case "deliveries":
		v = "delivery"
	case "delivery_requests":
		v = "delivery_request"
	case "acknowledgements":
		v = "acknowledgement"
	case "cameras":
		v = "camera"
	}
	t := ResourceType(v)
	return t, t.IsValid()
}

// Record is the field map of a resource as it leaves the store.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Resource is implemented by the six marketplace resource kinds only.
type Resource interface {
	Type() ResourceType
	ResourceID() string
	// OwnerRef is the profile that created or controls the resource.
	OwnerRef() string
	// CounterpartyRefs lists the non-empty counterparty profiles.
	CounterpartyRefs() []string
	LifecycleStatus() string
	Record() Record
	isResource()
}

// GeoPoint is a precise coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (g *GeoPoint) value() any {
	if g == nil {
		return nil
	}
	return map[string]any{"lat": g.Lat, "lng": g.Lng}
}

func strValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func refs(values ...*string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != nil && *v != "" {
			out = append(out, *v)
		}
	}
	return out
}

// Supplier is a public directory listing of a materials supplier.
type Supplier struct {
	ID                 string   `json:"id" db:"id"`
	ProfileID          string   `json:"profile_id" db:"profile_id"`
	CompanyName        string   `json:"company_name" db:"company_name"`
	BusinessLocation   string   `json:"business_location" db:"business_location"`
	MaterialCategories []string `json:"material_categories" db:"material_categories"`
	Rating             float64  `json:"rating" db:"rating"`
	IsVerified         bool     `json:"is_verified" db:"is_verified"`
	ContactPerson      *string  `json:"contact_person,omitempty" db:"contact_person"`
	Phone              *string  `json:"phone,omitempty" db:"phone"`
	Email              *string  `json:"email,omitempty" db:"email"`
	Address            *string  `json:"address,omitempty" db:"address"`
	PaymentDetails     *string  `json:"payment_details,omitempty" db:"payment_details"`
}

func (s *Supplier) Type() ResourceType         { return ResourceSupplier }
func (s *Supplier) ResourceID() string         { return s.ID }
func (s *Supplier) OwnerRef() string           { return s.ProfileID }
func (s *Supplier) CounterpartyRefs() []string { return nil }
func (s *Supplier) LifecycleStatus() string    { return "" }
func (s *Supplier) isResource()                {}

func (s *Supplier) Record() Record {
	return Record{
		"company_name":        s.CompanyName,
		"business_location":   s.BusinessLocation,
		"material_categories": s.MaterialCategories,
		"rating":              s.Rating,
		"is_verified":         s.IsVerified,
		"contact_person":      strValue(s.ContactPerson),
		"phone":               strValue(s.Phone),
		"email":               strValue(s.Email),
		"address":             strValue(s.Address),
		"payment_details":     strValue(s.PaymentDetails),
	}
}

// DeliveryProvider is a public directory listing of a transport provider.
type DeliveryProvider struct {
	ID            string   `json:"id" db:"id"`
	ProfileID     string   `json:"profile_id" db:"profile_id"`
	CompanyName   string   `json:"company_name" db:"company_name"`
	ServiceArea   string   `json:"service_area" db:"service_area"`
	VehicleTypes  []string `json:"vehicle_types" db:"vehicle_types"`
	Rating        float64  `json:"rating" db:"rating"`
	IsVerified    bool     `json:"is_verified" db:"is_verified"`
	ContactPerson *string  `json:"contact_person,omitempty" db:"contact_person"`
	Phone         *string  `json:"phone,omitempty" db:"phone"`
	Email         *string  `json:"email,omitempty" db:"email"`
	Address       *string  `json:"address,omitempty" db:"address"`
	PayoutAccount *string  `json:"payout_account,omitempty" db:"payout_account"`
}

func (p *DeliveryProvider) Type() ResourceType         { return ResourceDeliveryProvider }
func (p *DeliveryProvider) ResourceID() string         { return p.ID }
func (p *DeliveryProvider) OwnerRef() string           { return p.ProfileID }
func (p *DeliveryProvider) CounterpartyRefs() []string { return nil }
func (p *DeliveryProvider) LifecycleStatus() string    { return "" }
func (p *DeliveryProvider) isResource()                {}

func (p *DeliveryProvider) Record() Record {
	return Record{
		"company_name":   p.CompanyName,
		"service_area":   p.ServiceArea,
		"vehicle_types":  p.VehicleTypes,
		"rating":         p.Rating,
		"is_verified":    p.IsVerified,
		"contact_person": strValue(p.ContactPerson),
		"phone":          strValue(p.Phone),
		"email":          strValue(p.Email),
		"address":        strValue(p.Address),
		"payout_account": strValue(p.PayoutAccount),
	}
}

// Delivery is a shipment of materials from a supplier to a builder's site.
type Delivery struct {
	ID                  string    `json:"id" db:"id"`
	BuilderID           string    `json:"builder_id" db:"builder_id"`
	SupplierID          *string   `json:"supplier_id,omitempty" db:"supplier_id"`
	ProviderID          *string   `json:"provider_id,omitempty" db:"provider_id"`
	TrackingNumber      string    `json:"tracking_number" db:"tracking_number"`
	Status              string    `json:"status" db:"status"`
	MaterialType        string    `json:"material_type" db:"material_type"`
	Quantity            float64   `json:"quantity" db:"quantity"`
	Unit                string    `json:"unit" db:"unit"`
	ScheduledDate       time.Time `json:"scheduled_date" db:"scheduled_date"`
	VehicleType         string    `json:"vehicle_type" db:"vehicle_type"`
	PickupAddress       *string   `json:"pickup_address,omitempty" db:"pickup_address"`
	DeliveryAddress     *string   `json:"delivery_address,omitempty" db:"delivery_address"`
	DriverName          *string   `json:"driver_name,omitempty" db:"driver_name"`
	VehicleRegistration *string   `json:"vehicle_registration,omitempty" db:"vehicle_registration"`
	CurrentLocation     *GeoPoint `json:"current_location,omitempty" db:"-"`
	DriverLivePhone     *string   `json:"driver_live_phone,omitempty" db:"driver_live_phone"`
	PaymentReference    *string   `json:"payment_reference,omitempty" db:"payment_reference"`
}

func (d *Delivery) Type() ResourceType { return ResourceDelivery }
func (d *Delivery) ResourceID() string { return d.ID }
func (d *Delivery) OwnerRef() string   { return d.BuilderID }
func (d *Delivery) CounterpartyRefs() []string {
	return refs(d.SupplierID, d.ProviderID)
}
func (d *Delivery) LifecycleStatus() string { return d.Status }
func (d *Delivery) isResource()             {}

func (d *Delivery) Record() Record {
	scheduled := d.ScheduledDate
	return Record{
		"tracking_number":      d.TrackingNumber,
		"status":               d.Status,
		"material_type":        d.MaterialType,
		"quantity":             d.Quantity,
		"unit":                 d.Unit,
		"scheduled_date":       timeValue(&scheduled),
		"vehicle_type":         d.VehicleType,
		"pickup_address":       strValue(d.PickupAddress),
		"delivery_address":     strValue(d.DeliveryAddress),
		"driver_name":          strValue(d.DriverName),
		"vehicle_registration": strValue(d.VehicleRegistration),
		"current_location":     d.CurrentLocation.value(),
		"driver_live_phone":    strValue(d.DriverLivePhone),
		"payment_reference":    strValue(d.PaymentReference),
	}
}

// DeliveryRequest is a builder's request for transport, accepted by a provider.
type DeliveryRequest struct {
	ID                 string     `json:"id" db:"id"`
	BuilderID          string     `json:"builder_id" db:"builder_id"`
	ProviderID         *string    `json:"provider_id,omitempty" db:"provider_id"`
	SupplierID         *string    `json:"supplier_id,omitempty" db:"supplier_id"`
	RequestNumber      string     `json:"request_number" db:"request_number"`
	Status             string     `json:"status" db:"status"`
	MaterialType       string     `json:"material_type" db:"material_type"`
	Quantity           float64    `json:"quantity" db:"quantity"`
	Unit               string     `json:"unit" db:"unit"`
	PickupDate         *time.Time `json:"pickup_date,omitempty" db:"pickup_date"`
	VehicleType        string     `json:"vehicle_type" db:"vehicle_type"`
	PickupAddress      *string    `json:"pickup_address,omitempty" db:"pickup_address"`
	DeliveryAddress    *string    `json:"delivery_address,omitempty" db:"delivery_address"`
	ContactPhone       *string    `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail       *string    `json:"contact_email,omitempty" db:"contact_email"`
	DropoffCoordinates *GeoPoint  `json:"dropoff_coordinates,omitempty" db:"-"`
	QuotedPrice        *float64   `json:"quoted_price,omitempty" db:"quoted_price"`
}

func (r *DeliveryRequest) Type() ResourceType { return ResourceDeliveryRequest }
func (r *DeliveryRequest) ResourceID() string { return r.ID }
func (r *DeliveryRequest) OwnerRef() string   { return r.BuilderID }
func (r *DeliveryRequest) CounterpartyRefs() []string {
	return refs(r.ProviderID, r.SupplierID)
}
func (r *DeliveryRequest) LifecycleStatus() string { return r.Status }
func (r *DeliveryRequest) isResource()             {}

func (r *DeliveryRequest) Record() Record {
	var price any
	if r.QuotedPrice != nil {
		price = *r.QuotedPrice
	}
	return Record{
		"request_number":      r.RequestNumber,
		"status":              r.Status,
		"material_type":       r.MaterialType,
		"quantity":            r.Quantity,
		"unit":                r.Unit,
		"pickup_date":         timeValue(r.PickupDate),
		"vehicle_type":        r.VehicleType,
		"pickup_address":      strValue(r.PickupAddress),
		"delivery_address":    strValue(r.DeliveryAddress),
		"contact_phone":       strValue(r.ContactPhone),
		"contact_email":       strValue(r.ContactEmail),
		"dropoff_coordinates": r.DropoffCoordinates.value(),
		"quoted_price":        price,
	}
}

// Acknowledgement is a supplier's acknowledgement of a purchase order or payment.
type Acknowledgement struct {
	ID                    string     `json:"id" db:"id"`
	BuilderID             string     `json:"builder_id" db:"builder_id"`
	SupplierID            *string    `json:"supplier_id,omitempty" db:"supplier_id"`
	AcknowledgementNumber string     `json:"acknowledgement_number" db:"acknowledgement_number"`
	PurchaseOrderNumber   string     `json:"purchase_order_number" db:"purchase_order_number"`
	Status                string     `json:"status" db:"status"`
	ItemsCount            int        `json:"items_count" db:"items_count"`
	AcknowledgedAt        *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	DeliveryAddress       *string    `json:"delivery_address,omitempty" db:"delivery_address"`
	SupplierContact       *string    `json:"supplier_contact,omitempty" db:"supplier_contact"`
	PaymentMethod         *string    `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference      *string    `json:"payment_reference,omitempty" db:"payment_reference"`
	TotalAmount           *float64   `json:"total_amount,omitempty" db:"total_amount"`
}

func (a *Acknowledgement) Type() ResourceType { return ResourceAcknowledgement }
func (a *Acknowledgement) ResourceID() string { return a.ID }
func (a *Acknowledgement) OwnerRef() string   { return a.BuilderID }
func (a *Acknowledgement) CounterpartyRefs() []string {
	return refs(a.SupplierID)
}
func (a *Acknowledgement) LifecycleStatus() string { return a.Status }
func (a *Acknowledgement) isResource()             {}

func (a *Acknowledgement) Record() Record {
	var total any
	if a.TotalAmount != nil {
		total = *a.TotalAmount
	}
	return Record{
		"acknowledgement_number": a.AcknowledgementNumber,
		"purchase_order_number":  a.PurchaseOrderNumber,
		"status":                 a.Status,
		"items_count":            a.ItemsCount,
		"acknowledged_at":        timeValue(a.AcknowledgedAt),
		"delivery_address":       strValue(a.DeliveryAddress),
		"supplier_contact":       strValue(a.SupplierContact),
		"payment_method":         strValue(a.PaymentMethod),
		"payment_reference":      strValue(a.PaymentReference),
		"total_amount":           total,
	}
}

// Camera is a site camera stream registered by a builder.
type Camera struct {
	ID          string    `json:"id" db:"id"`
	BuilderID   string    `json:"builder_id" db:"builder_id"`
	AssigneeID  *string   `json:"assignee_id,omitempty" db:"assignee_id"`
	CameraName  string    `json:"camera_name" db:"camera_name"`
	SiteName    string    `json:"site_name" db:"site_name"`
	IsOnline    bool      `json:"is_online" db:"is_online"`
	Status      string    `json:"status" db:"status"`
	SiteAddress *string   `json:"site_address,omitempty" db:"site_address"`
	StreamURL   *string   `json:"stream_url,omitempty" db:"stream_url"`
	Coordinates *GeoPoint `json:"coordinates,omitempty" db:"-"`
}

func (c *Camera) Type() ResourceType { return ResourceCamera }
func (c *Camera) ResourceID() string { return c.ID }
func (c *Camera) OwnerRef() string   { return c.BuilderID }
func (c *Camera) CounterpartyRefs() []string {
	return refs(c.AssigneeID)
}
func (c *Camera) LifecycleStatus() string { return c.Status }
func (c *Camera) isResource()             {}

func (c *Camera) Record() Record {
	return Record{
		"camera_name":  c.CameraName,
		"site_name":    c.SiteName,
		"is_online":    c.IsOnline,
		"status":       c.Status,
		"site_address": strValue(c.SiteAddress),
		"stream_url":   strValue(c.StreamURL),
		"coordinates":  c.Coordinates.value(),
	}
}

// blankResource returns a zero value of the given type, used to enumerate
// the projectable fields during startup validation.
func blankResource(t ResourceType) Resource {
	switch t {
	case ResourceSupplier:
		return &Supplier{}
	case ResourceDeliveryProvider:
		return &DeliveryProvider{}
	case ResourceDelivery:
		return &Delivery{}
	case ResourceDeliveryRequest:
		return &DeliveryRequest{}
	case ResourceAcknowledgement:
		return &Acknowledgement{}
	case ResourceCamera:
		return &Camera{}
	default:
		return nil
	}
}
