package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openstay/stayindex/internal/domain"
)

// UpsertPricing inserts or replaces a pricing document.
func (s *Store) UpsertPricing(ctx context.Context, doc *domain.PricingDocument) error {
	rules, err := marshalAny(doc.Rules)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO pricing
		(id, property_id, unit_id, base_price, currency, rules, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.PropertyID, doc.UnitID, doc.BasePrice, doc.Currency, rules, doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert pricing %s: %w", doc.ID, err)
	}
	return nil
}

// GetPricing returns the pricing document of one unit or domain.ErrNotFound.
func (s *Store) GetPricing(ctx context.Context, unitID string) (*domain.PricingDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, property_id, unit_id, base_price, currency, rules, updated_at
		FROM pricing WHERE id = ?`, unitID)
	doc, err := scanPricing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get pricing %s: %w", unitID, err)
	}
	return doc, nil
}

// ListPricingByProperty returns every pricing document under a property.
func (s *Store) ListPricingByProperty(ctx context.Context, propertyID string) ([]*domain.PricingDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, property_id, unit_id, base_price, currency, rules, updated_at
		FROM pricing WHERE property_id = ?`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list pricing for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	var docs []*domain.PricingDocument
	for rows.Next() {
		doc, err := scanPricing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing: %w", err)
	}
	return docs, nil
}

// DeletePricing removes the pricing document of one unit.
func (s *Store) DeletePricing(ctx context.Context, unitID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pricing WHERE id = ?", unitID); err != nil {
		return fmt.Errorf("delete pricing %s: %w", unitID, err)
	}
	return nil
}

// DeletePricingByProperty removes every pricing document under a property.
func (s *Store) DeletePricingByProperty(ctx context.Context, propertyID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pricing WHERE property_id = ?", propertyID); err != nil {
		return fmt.Errorf("delete pricing for property %s: %w", propertyID, err)
	}
	return nil
}

func scanPricing(r rowScanner) (*domain.PricingDocument, error) {
	var doc domain.PricingDocument
	var rules string
	var updatedAt int64
	if err := r.Scan(&doc.ID, &doc.PropertyID, &doc.UnitID, &doc.BasePrice, &doc.Currency, &rules, &updatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalAny(rules, &doc.Rules); err != nil {
		return nil, err
	}
	doc.UpdatedAt = unixToTime(updatedAt)
	return &doc, nil
}
