package database

import (
	"context"
	"fmt"
)

// Store persists disambiguator diagnostics: lock/demotion transitions and
// bounded discovery-failure reports. It never feeds back into tracking
// decisions; every caller in this module treats a nil *Store as an
// always-succeeding no-op, so wiring a Store in is purely additive.
type Store struct {
	db *DB
}

// NewStore wraps an already-connected, migrated DB as a diagnostics Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// RecordTransition appends a lock/demotion event for objectID.
func (s *Store) RecordTransition(ctx context.Context, objectID, event string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lock_transitions (object_id, event) VALUES ($1, $2)`,
		objectID, event)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// RecordDiscoveryFailure appends a throttled discovery-failure report for
// objectID.
func (s *Store) RecordDiscoveryFailure(ctx context.Context, objectID string, failures int) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO discovery_failures (object_id, failures) VALUES ($1, $2)`,
		objectID, failures)
	if err != nil {
		return fmt.Errorf("record discovery failure: %w", err)
	}
	return nil
}
