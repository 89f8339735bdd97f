// Package store implements the embedded index store: six document
// collections held in a single SQLite file. The file permits only one
// concurrent writer, so every mutation must arrive through the write queue;
// the store itself performs no cross-handle locking.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is one handle to the index database. Handles are cheap: the write
// queue and the search engine open a fresh one per operation and close it
// when done.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the index database file, creating it if absent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_lower TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		description_lower TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		address_lower TEXT NOT NULL DEFAULT '',
		property_type TEXT NOT NULL DEFAULT '',
		property_type_id TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL DEFAULT '',
		min_price REAL NOT NULL DEFAULT 0,
		max_price REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		star_rating INTEGER NOT NULL DEFAULT 0,
		average_rating REAL NOT NULL DEFAULT 0,
		reviews_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		booking_count INTEGER NOT NULL DEFAULT 0,
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		max_capacity INTEGER NOT NULL DEFAULT 0,
		units_count INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_featured INTEGER NOT NULL DEFAULT 0,
		is_approved INTEGER NOT NULL DEFAULT 0,
		unit_ids TEXT NOT NULL DEFAULT '[]',
		amenity_ids TEXT NOT NULL DEFAULT '[]',
		service_ids TEXT NOT NULL DEFAULT '[]',
		image_urls TEXT NOT NULL DEFAULT '[]',
		dynamic_fields TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_type ON properties(property_type)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_min_price ON properties(min_price)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_rating ON properties(average_rating)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_name_lower ON properties(name_lower)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_active ON properties(is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_created ON properties(created_at)`,

	`CREATE TABLE IF NOT EXISTS availability (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		ranges TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_availability_property ON availability(property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_availability_unit ON availability(unit_id)`,

	`CREATE TABLE IF NOT EXISTS pricing (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		unit_id TEXT NOT NULL,
		base_price REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT '',
		rules TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pricing_property ON pricing(property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pricing_unit ON pricing(unit_id)`,

	`CREATE TABLE IF NOT EXISTS cities (
		city TEXT PRIMARY KEY,
		property_count INTEGER NOT NULL DEFAULT 0,
		property_ids TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS amenities (
		amenity_id TEXT PRIMARY KEY,
		property_count INTEGER NOT NULL DEFAULT 0,
		property_ids TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS dynamic_fields (
		id TEXT PRIMARY KEY,
		field_name TEXT NOT NULL,
		field_value TEXT NOT NULL,
		property_ids TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dynamic_fields_name ON dynamic_fields(field_name)`,
	`CREATE INDEX IF NOT EXISTS idx_dynamic_fields_value ON dynamic_fields(field_value)`,
}

// EnsureSchema creates the six collections and their secondary indexes.
// Idempotent; a failure here means the store must not be used.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Compact rebuilds the database file to reclaim space from deleted
// documents.
func (s *Store) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// PurgeStaleAvailability deletes availability documents not updated since
// the cutoff and returns how many were removed.
func (s *Store) PurgeStaleAvailability(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM availability WHERE updated_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge stale availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
