// Package marketplace reads marketplace resources, profiles and engagement
// links from PostgreSQL.
package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buildmart/buildmart/internal/access"
	"github.com/buildmart/buildmart/internal/identity"
)

// Repository provides PostgreSQL backed reads for the disclosure pipeline.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load returns one resource of type rt. Unknown ids map to
// access.ErrResourceNotFound.
func (r *Repository) Load(ctx context.Context, rt access.ResourceType, id string) (access.Resource, error) {
	var (
		res access.Resource
		err error
	)
	switch rt {
	case access.ResourceSupplier:
		res, err = r.supplier(ctx, id)
	case access.ResourceDeliveryProvider:
		res, err = r.deliveryProvider(ctx, id)
	case access.ResourceDelivery:
		res, err = r.delivery(ctx, id)
	case access.ResourceDeliveryRequest:
		res, err = r.deliveryRequest(ctx, id)
	case access.ResourceAcknowledgement:
		res, err = r.acknowledgement(ctx, id)
	case access.ResourceCamera:
		res, err = r.camera(ctx, id)
	default:
		return nil, access.ErrResourceNotFound
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, access.ErrResourceNotFound
		}
		return nil, fmt.Errorf("marketplace: load %s: %w", rt, err)
	}
	return res, nil
}

func (r *Repository) supplier(ctx context.Context, id string) (*access.Supplier, error) {
	query := `
		SELECT id, profile_id, company_name, business_location, material_categories,
		       rating, is_verified, contact_person, phone, email, address, payment_details
		FROM suppliers
		WHERE id = $1
	`
	var s access.Supplier
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.ProfileID, &s.CompanyName, &s.BusinessLocation, &s.MaterialCategories,
		&s.Rating, &s.IsVerified, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.PaymentDetails,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) deliveryProvider(ctx context.Context, id string) (*access.DeliveryProvider, error) {
	query := `
		SELECT id, profile_id, company_name, service_area, vehicle_types,
		       rating, is_verified, contact_person, phone, email, address, payout_account
		FROM delivery_providers
		WHERE id = $1
	`
	var p access.DeliveryProvider
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProfileID, &p.CompanyName, &p.ServiceArea, &p.VehicleTypes,
		&p.Rating, &p.IsVerified, &p.ContactPerson, &p.Phone, &p.Email, &p.Address, &p.PayoutAccount,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) delivery(ctx context.Context, id string) (*access.Delivery, error) {
	query := `
		SELECT id, builder_id, supplier_id, provider_id, tracking_number, status,
		       material_type, quantity, unit, scheduled_date, vehicle_type,
		       pickup_address, delivery_address, driver_name, vehicle_registration,
		       current_lat, current_lng, driver_live_phone, payment_reference
		FROM deliveries
		WHERE id = $1
	`
	var (
		d        access.Delivery
		lat, lng *float64
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.BuilderID, &d.SupplierID, &d.ProviderID, &d.TrackingNumber, &d.Status,
		&d.MaterialType, &d.Quantity, &d.Unit, &d.ScheduledDate, &d.VehicleType,
		&d.PickupAddress, &d.DeliveryAddress, &d.DriverName, &d.VehicleRegistration,
		&lat, &lng, &d.DriverLivePhone, &d.PaymentReference,
	)
	if err != nil {
		return nil, err
	}
	d.CurrentLocation = geoPoint(lat, lng)
	return &d, nil
}

func (r *Repository) deliveryRequest(ctx context.Context, id string) (*access.DeliveryRequest, error) {
	query := `
		SELECT id, builder_id, provider_id, supplier_id, request_number, status,
		       material_type, quantity, unit, pickup_date, vehicle_type,
		       pickup_address, delivery_address, contact_phone, contact_email,
		       dropoff_lat, dropoff_lng, quoted_price
		FROM delivery_requests
		WHERE id = $1
	`
	var (
		dr       access.DeliveryRequest
		lat, lng *float64
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&dr.ID, &dr.BuilderID, &dr.ProviderID, &dr.SupplierID, &dr.RequestNumber, &dr.Status,
		&dr.MaterialType, &dr.Quantity, &dr.Unit, &dr.PickupDate, &dr.VehicleType,
		&dr.PickupAddress, &dr.DeliveryAddress, &dr.ContactPhone, &dr.ContactEmail,
		&lat, &lng, &dr.QuotedPrice,
	)
	if err != nil {
		return nil, err
	}
	dr.DropoffCoordinates = geoPoint(lat, lng)
	return &dr, nil
}

func (r *Repository) acknowledgement(ctx context.Context, id string) (*access.Acknowledgement, error) {
	query := `
		SELECT id, builder_id, supplier_id, acknowledgement_number, purchase_order_number,
		       status, items_count, acknowledged_at, delivery_address, supplier_contact,
		       payment_method, payment_reference, total_amount
		FROM acknowledgements
		WHERE id = $1
	`
	var a access.Acknowledgement
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.BuilderID, &a.SupplierID, &a.AcknowledgementNumber, &a.PurchaseOrderNumber,
		&a.Status, &a.ItemsCount, &a.AcknowledgedAt, &a.DeliveryAddress, &a.SupplierContact,
		&a.PaymentMethod, &a.PaymentReference, &a.TotalAmount,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) camera(ctx context.Context, id string) (*access.Camera, error) {
	query := `
		SELECT id, builder_id, assignee_id, camera_name, site_name, is_online, status,
		       site_address, stream_url, site_lat, site_lng
		FROM cameras
		WHERE id = $1
	`
	var (
		c        access.Camera
		lat, lng *float64
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.BuilderID, &c.AssigneeID, &c.CameraName, &c.SiteName, &c.IsOnline, &c.Status,
		&c.SiteAddress, &c.StreamURL, &lat, &lng,
	)
	if err != nil {
		return nil, err
	}
	c.Coordinates = geoPoint(lat, lng)
	return &c, nil
}

// ProfileByUserID returns the marketplace profile of a user.
func (r *Repository) ProfileByUserID(ctx context.Context, userID string) (identity.Profile, error) {
	query := `
		SELECT id, user_id, role, is_professional, is_company
		FROM profiles
		WHERE user_id = $1
	`
	var p identity.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.Role, &p.IsProfessional, &p.IsCompany)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Profile{}, identity.ErrProfileNotFound
		}
		return identity.Profile{}, fmt.Errorf("marketplace: load profile: %w", err)
	}
	return p, nil
}

// Links returns the engagement records joining profileID to a directory
// listing. Non-directory resources carry their own counterparties and yield
// no links.
func (r *Repository) Links(ctx context.Context, profileID string, rt access.ResourceType, resourceID string) ([]access.Link, error) {
	query, ok := linkQueries[rt]
	if !ok {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, query, profileID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("marketplace: links: %w", err)
	}
	defer rows.Close()

	var links []access.Link
	for rows.Next() {
		var kind, status string
		if err := rows.Scan(&kind, &status); err != nil {
			return nil, fmt.Errorf("marketplace: scan link: %w", err)
		}
		links = append(links, access.Link{Kind: access.ResourceType(kind), Status: status})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("marketplace: links: %w", err)
	}
	return links, nil
}

// linkSQL selects every engagement record in which the viewer ($1) takes part
// on one side and the listing owner on the other.
const linkSQL = `
	WITH listing AS (SELECT profile_id FROM %s WHERE id = $2)
	SELECT 'delivery_request', dr.status
	FROM delivery_requests dr, listing l
	WHERE l.profile_id IN (dr.supplier_id, dr.provider_id)
	  AND $1 IN (dr.builder_id, dr.provider_id, dr.supplier_id)
	  AND $1 <> l.profile_id
	UNION ALL
	SELECT 'delivery', d.status
	FROM deliveries d, listing l
	WHERE l.profile_id IN (d.supplier_id, d.provider_id)
	  AND $1 IN (d.builder_id, d.provider_id, d.supplier_id)
	  AND $1 <> l.profile_id
	UNION ALL
	SELECT 'acknowledgement', a.status
	FROM acknowledgements a, listing l
	WHERE a.supplier_id = l.profile_id
	  AND a.builder_id = $1
`

var linkQueries = map[access.ResourceType]string{
	access.ResourceSupplier:         fmt.Sprintf(linkSQL, "suppliers"),
	access.ResourceDeliveryProvider: fmt.Sprintf(linkSQL, "delivery_providers"),
}

func geoPoint(lat, lng *float64) *access.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &access.GeoPoint{Lat: *lat, Lng: *lng}
}
