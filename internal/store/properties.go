package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openstay/stayindex/internal/domain"
)

const propertyColumns = `id, name, name_lower, description, description_lower,
	city, address, address_lower, property_type, property_type_id, owner_id,
	min_price, max_price, currency,
	star_rating, average_rating, reviews_count, view_count, booking_count,
	latitude, longitude, max_capacity, units_count,
	is_active, is_featured, is_approved,
	unit_ids, amenity_ids, service_ids, image_urls, dynamic_fields,
	created_at, updated_at`

// UpsertProperty inserts or replaces a property document.
func (s *Store) UpsertProperty(ctx context.Context, doc *domain.PropertyDocument) error {
	unitIDs, err := marshalList(doc.UnitIDs)
	if err != nil {
		return err
	}
	amenityIDs, err := marshalList(doc.AmenityIDs)
	if err != nil {
		return err
	}
	serviceIDs, err := marshalList(doc.ServiceIDs)
	if err != nil {
		return err
	}
	imageURLs, err := marshalList(doc.ImageURLs)
	if err != nil {
		return err
	}
	fields := doc.DynamicFields
	if fields == nil {
		fields = map[string]string{}
	}
	dynamicFields, err := marshalAny(fields)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO properties (`+propertyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.NameLower, doc.Description, doc.DescriptionLower,
		doc.City, doc.Address, doc.AddressLower, doc.PropertyType, doc.PropertyTypeID, doc.OwnerID,
		doc.MinPrice, doc.MaxPrice, doc.Currency,
		doc.StarRating, doc.AverageRating, doc.ReviewsCount, doc.ViewCount, doc.BookingCount,
		doc.Latitude, doc.Longitude, doc.MaxCapacity, doc.UnitsCount,
		boolToInt(doc.IsActive), boolToInt(doc.IsFeatured), boolToInt(doc.IsApproved),
		unitIDs, amenityIDs, serviceIDs, imageURLs, dynamicFields,
		doc.CreatedAt.Unix(), doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert property %s: %w", doc.ID, err)
	}
	return nil
}

// GetProperty returns one property document or domain.ErrNotFound.
func (s *Store) GetProperty(ctx context.Context, id string) (*domain.PropertyDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	doc, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get property %s: %w", id, err)
	}
	return doc, nil
}

// DeleteProperty removes a property document. Deleting a missing document
// is not an error.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete property %s: %w", id, err)
	}
	return nil
}

// PropertyFilter is the cheap conjunctive predicate pushed into SQL before
// the expensive in-memory filters run. Active and approved are always
// required.
type PropertyFilter struct {
	Text         string
	City         string
	PropertyType string
	MinPrice     *float64
	MaxPrice     *float64
	MinRating    *float64
	MinCapacity  *int
}

// FilterProperties returns the property documents matching the filter.
func (s *Store) FilterProperties(ctx context.Context, f PropertyFilter) ([]*domain.PropertyDocument, error) {
	var where []string
	var args []any

	where = append(where, "is_active = 1", "is_approved = 1")
	if f.Text != "" {
		needle := "%" + strings.ToLower(f.Text) + "%"
		where = append(where, "(name_lower LIKE ? OR description_lower LIKE ? OR address_lower LIKE ?)")
		args = append(args, needle, needle, needle)
	}
	if f.City != "" {
		where = append(where, "city = ?")
		args = append(args, f.City)
	}
	if f.PropertyType != "" {
		where = append(where, "property_type = ?")
		args = append(args, f.PropertyType)
	}
	if f.MinPrice != nil {
		where = append(where, "min_price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "min_price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.MinRating != nil {
		where = append(where, "average_rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.MinCapacity != nil {
		where = append(where, "max_capacity >= ?")
		args = append(args, *f.MinCapacity)
	}

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE ` + strings.Join(where, " AND ")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter properties: %w", err)
	}
	defer rows.Close()

	var docs []*domain.PropertyDocument
	for rows.Next() {
		doc, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return docs, nil
}

// CountProperties returns the total number of property documents.
func (s *Store) CountProperties(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties").Scan(&n); err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(r rowScanner) (*domain.PropertyDocument, error) {
	var doc domain.PropertyDocument
	var active, featured, approved int
	var unitIDs, amenityIDs, serviceIDs, imageURLs, dynamicFields string
	var createdAt, updatedAt int64

	err := r.Scan(
		&doc.ID, &doc.Name, &doc.NameLower, &doc.Description, &doc.DescriptionLower,
		&doc.City, &doc.Address, &doc.AddressLower, &doc.PropertyType, &doc.PropertyTypeID, &doc.OwnerID,
		&doc.MinPrice, &doc.MaxPrice, &doc.Currency,
		&doc.StarRating, &doc.AverageRating, &doc.ReviewsCount, &doc.ViewCount, &doc.BookingCount,
		&doc.Latitude, &doc.Longitude, &doc.MaxCapacity, &doc.UnitsCount,
		&active, &featured, &approved,
		&unitIDs, &amenityIDs, &serviceIDs, &imageURLs, &dynamicFields,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.IsActive = active != 0
	doc.IsFeatured = featured != 0
	doc.IsApproved = approved != 0
	if doc.UnitIDs, err = unmarshalList(unitIDs); err != nil {
		return nil, err
	}
	if doc.AmenityIDs, err = unmarshalList(amenityIDs); err != nil {
		return nil, err
	}
	if doc.ServiceIDs, err = unmarshalList(serviceIDs); err != nil {
		return nil, err
	}
	if doc.ImageURLs, err = unmarshalList(imageURLs); err != nil {
		return nil, err
	}
	if err = unmarshalAny(dynamicFields, &doc.DynamicFields); err != nil {
		return nil, err
	}
	doc.CreatedAt = unixToTime(createdAt)
	doc.UpdatedAt = unixToTime(updatedAt)
	return &doc, nil
}
