// Package sqlite provides read-only adapters over the booking platform's
// primary relational database. The index subsystem never writes here; it
// only reads the entities needed to build denormalized documents.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/openstay/stayindex/internal/domain"
)

// Repo reads properties and units from the primary store.
type Repo struct {
	db *sql.DB
}

// NewRepo opens the primary database read-only.
func NewRepo(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open primary database: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close closes the database handle.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping verifies the primary database is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping primary database: %w", err)
	}
	return nil
}

// GetProperty loads one property with its images, services and review
// count. Amenities and the type name are left for the dedicated lookups.
func (r *Repo) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	var featured, approved int
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `SELECT id, name, COALESCE(description, ''), city, COALESCE(address, ''),
			type_id, owner_id, base_price_per_night, currency, star_rating, average_rating,
			view_count, booking_count, latitude, longitude, is_featured, is_approved, created_at
		FROM properties WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.City, &p.Address,
			&p.TypeID, &p.OwnerID, &p.BasePricePerNight, &p.Currency, &p.StarRating, &p.AverageRating,
			&p.ViewCount, &p.BookingCount, &p.Latitude, &p.Longitude, &featured, &approved, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("get property %s: %w", id, err)
	}
	p.IsFeatured = featured != 0
	p.IsApproved = approved != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()

	if p.Images, err = r.propertyImages(ctx, id); err != nil {
		return nil, err
	}
	if p.ServiceIDs, err = r.propertyServices(ctx, id); err != nil {
		return nil, err
	}
	if p.ReviewsCount, err = r.reviewCount(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPropertyType loads a property type by id.
func (r *Repo) GetPropertyType(ctx context.Context, id string) (*domain.PropertyType, error) {
	var t domain.PropertyType
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM property_types WHERE id = ?", id).Scan(&t.ID, &t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get property type %s: %w", id, err)
	}
	return &t, nil
}

// GetPropertyAmenities loads the amenity assignments of a property.
func (r *Repo) GetPropertyAmenities(ctx context.Context, propertyID string) ([]domain.PropertyAmenity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT amenity_id, is_available FROM property_amenities WHERE property_id = ?", propertyID)
	if err != nil {
		return nil, fmt.Errorf("get amenities for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	var amenities []domain.PropertyAmenity
	for rows.Next() {
		var a domain.PropertyAmenity
		var available int
		if err := rows.Scan(&a.AmenityID, &available); err != nil {
			return nil, fmt.Errorf("scan amenity: %w", err)
		}
		a.IsAvailable = available != 0
		amenities = append(amenities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate amenities: %w", err)
	}
	return amenities, nil
}

// ListActivePropertyIDs returns the ids of every active property, for the
// full index rebuild.
func (r *Repo) ListActivePropertyIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM properties WHERE is_active = 1 ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list active properties: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property ids: %w", err)
	}
	return ids, nil
}

// GetUnit loads one unit by id.
func (r *Repo) GetUnit(ctx context.Context, id string) (*domain.Unit, error) {
	var u domain.Unit
	err := r.db.QueryRowContext(ctx,
		"SELECT id, property_id, name, base_price, currency, max_capacity FROM units WHERE id = ?", id).
		Scan(&u.ID, &u.PropertyID, &u.Name, &u.BasePrice, &u.Currency, &u.MaxCapacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, fmt.Errorf("get unit %s: %w", id, err)
	}
	return &u, nil
}

// GetUnitsByProperty loads every unit of a property.
func (r *Repo) GetUnitsByProperty(ctx context.Context, propertyID string) ([]domain.Unit, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, property_id, name, base_price, currency, max_capacity FROM units WHERE property_id = ?",
		propertyID)
	if err != nil {
		return nil, fmt.Errorf("get units for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	var units []domain.Unit
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.PropertyID, &u.Name, &u.BasePrice, &u.Currency, &u.MaxCapacity); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

func (r *Repo) propertyImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT url, is_main FROM property_images WHERE property_id = ? ORDER BY is_main DESC, sort_order",
		propertyID)
	if err != nil {
		return nil, fmt.Errorf("get images for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	var images []domain.PropertyImage
	for rows.Next() {
		var img domain.PropertyImage
		var main int
		if err := rows.Scan(&img.URL, &main); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		img.IsMain = main != 0
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

func (r *Repo) propertyServices(ctx context.Context, propertyID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT service_id FROM property_services WHERE property_id = ?", propertyID)
	if err != nil {
		return nil, fmt.Errorf("get services for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan service id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return ids, nil
}

func (r *Repo) reviewCount(ctx context.Context, propertyID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE property_id = ?", propertyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reviews for property %s: %w", propertyID, err)
	}
	return n, nil
}
