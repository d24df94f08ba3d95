// Package memory provides an in-process session store for tests and
// single-instance deployments. All records are deep-copied on the way in
// and out, so callers never share mutable state with the store.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkit/core/session"
)

// Store is a mutex-guarded in-memory implementation of session.Store.
// Intended for tests and single-process development setups; records do
// not survive restarts. All returned records are deep copies so callers
// cannot mutate shared state.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]session.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[uuid.UUID]session.Record),
	}
}

// GetSession returns the record for a handle, or session.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[handle]
	if !ok {
		return nil, session.ErrNotFound
	}

	cp := rec.Clone()
	return &cp, nil
}

// GetSessions returns all records for a user ordered by creation time.
func (s *Store) GetSessions(ctx context.Context, userID uuid.UUID) ([]session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []session.Record
	for _, rec := range s.records {
		if rec.UserID == userID {
			recs = append(recs, rec.Clone())
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})

	return recs, nil
}

// CreateSession persists a new record, or returns session.ErrConflict if
// the handle already exists.
func (s *Store) CreateSession(ctx context.Context, record *session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.Handle]; exists {
		return session.ErrConflict
	}

	s.records[record.Handle] = record.Clone()
	return nil
}

// UpdateSession applies a partial update atomically and returns the result.
func (s *Store) UpdateSession(ctx context.Context, handle uuid.UUID, update session.Update) (*session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return nil, session.ErrNotFound
	}

	if update.UserID != nil {
		rec.UserID = *update.UserID
	}
	if update.TokenHash != nil {
		rec.TokenHash = *update.TokenHash
	}
	if update.CSRFToken != nil {
		rec.CSRFToken = *update.CSRFToken
	}
	if update.ExpiresAt != nil {
		rec.ExpiresAt = *update.ExpiresAt
	}
	if update.Public != nil {
		rec.Public = update.Public.Clone()
	}
	if update.Private != nil {
		rec.Private = maps.Clone(update.Private)
	}
	rec.UpdatedAt = time.Now()

	s.records[handle] = rec.Clone()

	cp := rec.Clone()
	return &cp, nil
}

// DeleteSession removes and returns the record, or session.ErrNotFound.
func (s *Store) DeleteSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return nil, session.ErrNotFound
	}

	delete(s.records, handle)

	cp := rec.Clone()
	return &cp, nil
}

// Len returns the number of stored records. Useful in tests asserting
// lazy materialization behavior.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
