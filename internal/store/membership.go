package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openstay/stayindex/internal/domain"
)

// GetCity returns a city membership document or domain.ErrNotFound.
func (s *Store) GetCity(ctx context.Context, city string) (*domain.CityDocument, error) {
	var doc domain.CityDocument
	var ids string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT city, property_count, property_ids, updated_at FROM cities WHERE city = ?`, city).
		Scan(&doc.City, &doc.PropertyCount, &ids, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get city %s: %w", city, err)
	}
	if doc.PropertyIDs, err = unmarshalList(ids); err != nil {
		return nil, err
	}
	doc.UpdatedAt = unixToTime(updatedAt)
	return &doc, nil
}

// PutCity inserts or replaces a city membership document.
func (s *Store) PutCity(ctx context.Context, doc *domain.CityDocument) error {
	ids, err := marshalList(doc.PropertyIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO cities
		(city, property_count, property_ids, updated_at) VALUES (?, ?, ?, ?)`,
		doc.City, doc.PropertyCount, ids, doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("put city %s: %w", doc.City, err)
	}
	return nil
}

// DeleteCity removes a city membership document.
func (s *Store) DeleteCity(ctx context.Context, city string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cities WHERE city = ?", city); err != nil {
		return fmt.Errorf("delete city %s: %w", city, err)
	}
	return nil
}

// GetAmenity returns an amenity membership document or domain.ErrNotFound.
func (s *Store) GetAmenity(ctx context.Context, amenityID string) (*domain.AmenityDocument, error) {
	var doc domain.AmenityDocument
	var ids string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT amenity_id, property_count, property_ids, updated_at FROM amenities WHERE amenity_id = ?`,
		amenityID).
		Scan(&doc.AmenityID, &doc.PropertyCount, &ids, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get amenity %s: %w", amenityID, err)
	}
	if doc.PropertyIDs, err = unmarshalList(ids); err != nil {
		return nil, err
	}
	doc.UpdatedAt = unixToTime(updatedAt)
	return &doc, nil
}

// PutAmenity inserts or replaces an amenity membership document.
func (s *Store) PutAmenity(ctx context.Context, doc *domain.AmenityDocument) error {
	ids, err := marshalList(doc.PropertyIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO amenities
		(amenity_id, property_count, property_ids, updated_at) VALUES (?, ?, ?, ?)`,
		doc.AmenityID, doc.PropertyCount, ids, doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("put amenity %s: %w", doc.AmenityID, err)
	}
	return nil
}

// DeleteAmenity removes an amenity membership document.
func (s *Store) DeleteAmenity(ctx context.Context, amenityID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM amenities WHERE amenity_id = ?", amenityID); err != nil {
		return fmt.Errorf("delete amenity %s: %w", amenityID, err)
	}
	return nil
}

// GetDynamicField returns a dynamic-field membership document or
// domain.ErrNotFound.
func (s *Store) GetDynamicField(ctx context.Context, id string) (*domain.DynamicFieldDocument, error) {
	var doc domain.DynamicFieldDocument
	var ids string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, field_name, field_value, property_ids, updated_at FROM dynamic_fields WHERE id = ?`, id).
		Scan(&doc.ID, &doc.FieldName, &doc.FieldValue, &ids, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get dynamic field %s: %w", id, err)
	}
	if doc.PropertyIDs, err = unmarshalList(ids); err != nil {
		return nil, err
	}
	doc.UpdatedAt = unixToTime(updatedAt)
	return &doc, nil
}

// PutDynamicField inserts or replaces a dynamic-field membership document.
func (s *Store) PutDynamicField(ctx context.Context, doc *domain.DynamicFieldDocument) error {
	ids, err := marshalList(doc.PropertyIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO dynamic_fields
		(id, field_name, field_value, property_ids, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.FieldName, doc.FieldValue, ids, doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("put dynamic field %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteDynamicField removes a dynamic-field membership document.
func (s *Store) DeleteDynamicField(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM dynamic_fields WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete dynamic field %s: %w", id, err)
	}
	return nil
}
