package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openstay/stayindex/internal/domain"
)

// UpsertAvailability inserts or replaces an availability document.
func (s *Store) UpsertAvailability(ctx context.Context, doc *domain.AvailabilityDocument) error {
	ranges, err := marshalAny(doc.Ranges)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO availability
		(id, property_id, unit_id, ranges, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.PropertyID, doc.UnitID, ranges, doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert availability %s: %w", doc.ID, err)
	}
	return nil
}

// GetAvailabilityByUnit returns the availability document of one unit or
// domain.ErrNotFound.
func (s *Store) GetAvailabilityByUnit(ctx context.Context, unitID string) (*domain.AvailabilityDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, property_id, unit_id, ranges, updated_at
		FROM availability WHERE unit_id = ?`, unitID)
	doc, err := scanAvailability(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get availability for unit %s: %w", unitID, err)
	}
	return doc, nil
}

// ListAvailability returns every availability document. The range lists are
// small and the collection is bounded by the unit count, so the availability
// window filter loads them all and checks coverage in memory.
func (s *Store) ListAvailability(ctx context.Context) ([]*domain.AvailabilityDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, property_id, unit_id, ranges, updated_at FROM availability`)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	var docs []*domain.AvailabilityDocument
	for rows.Next() {
		doc, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}
	return docs, nil
}

// DeleteAvailabilityByUnit removes the availability documents of one unit.
func (s *Store) DeleteAvailabilityByUnit(ctx context.Context, unitID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM availability WHERE unit_id = ?", unitID); err != nil {
		return fmt.Errorf("delete availability for unit %s: %w", unitID, err)
	}
	return nil
}

// DeleteAvailabilityByProperty removes every availability document under a
// property.
func (s *Store) DeleteAvailabilityByProperty(ctx context.Context, propertyID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM availability WHERE property_id = ?", propertyID); err != nil {
		return fmt.Errorf("delete availability for property %s: %w", propertyID, err)
	}
	return nil
}

func scanAvailability(r rowScanner) (*domain.AvailabilityDocument, error) {
	var doc domain.AvailabilityDocument
	var ranges string
	var updatedAt int64
	if err := r.Scan(&doc.ID, &doc.PropertyID, &doc.UnitID, &ranges, &updatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalAny(ranges, &doc.Ranges); err != nil {
		return nil, err
	}
	doc.UpdatedAt = unixToTime(updatedAt)
	return &doc, nil
}
