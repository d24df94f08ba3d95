package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/core/session"
)

const (
	recordKeyPrefix = "session:"
	userKeyPrefix   = "user_sessions:"

	// updateRetries bounds the optimistic WATCH loop in UpdateSession.
	updateRetries = 3
)

// Store persists session records as JSON blobs in Redis with native TTL
// expiry. Records expire out of Redis when their ExpiresAt passes, so the
// store never serves records the core would reject as expired.
// It implements session.Store.
type Store struct {
	client *redis.Client
}

// New creates a Store backed by the given Redis client. The client remains
// owned by the caller; Store never closes it.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func recordKey(handle uuid.UUID) string {
	return recordKeyPrefix + handle.String()
}

func userKey(userID uuid.UUID) string {
	return userKeyPrefix + userID.String()
}

func (s *Store) GetSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	raw, err := s.client.Get(ctx, recordKey(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	var rec session.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("redis: corrupt session record %s: %w", handle, err)
	}
	return &rec, nil
}

func (s *Store) GetSessions(ctx context.Context, userID uuid.UUID) ([]session.Record, error) {
	handles, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, nil
	}

	keys := make([]string, len(handles))
	for i, h := range handles {
		keys[i] = recordKeyPrefix + h
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var records []session.Record
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// The record key expired out from under the index.
			stale = append(stale, handles[i])
			continue
		}
		var rec session.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("redis: corrupt session record %s: %w", handles[i], err)
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		_ = s.client.SRem(ctx, userKey(userID), stale...).Err()
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *Store) CreateSession(ctx context.Context, record *session.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis: encode session record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, recordKey(record.Handle), raw, time.Until(record.ExpiresAt)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return session.ErrConflict
	}

	// Anonymous records are never listed per user; indexing them under
	// uuid.Nil would grow a set nothing reads or prunes.
	if record.UserID == uuid.Nil {
		return nil
	}
	return s.client.SAdd(ctx, userKey(record.UserID), record.Handle.String()).Err()
}

func (s *Store) UpdateSession(ctx context.Context, handle uuid.UUID, update session.Update) (*session.Record, error) {
	key := recordKey(handle)

	var updated *session.Record
	apply := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return session.ErrNotFound
			}
			return err
		}

		var rec session.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("redis: corrupt session record %s: %w", handle, err)
		}

		prevUser := rec.UserID
		applyUpdate(&rec, update)
		rec.UpdatedAt = time.Now()

		encoded, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("redis: encode session record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, time.Until(rec.ExpiresAt))
			if rec.UserID != prevUser {
				if prevUser != uuid.Nil {
					pipe.SRem(ctx, userKey(prevUser), handle.String())
				}
				if rec.UserID != uuid.Nil {
					pipe.SAdd(ctx, userKey(rec.UserID), handle.String())
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = &rec
		return nil
	}

	var lastErr error
	for range updateRetries {
		lastErr = s.client.Watch(ctx, apply, key)
		if lastErr == nil {
			return updated, nil
		}
		if !errors.Is(lastErr, redis.TxFailedErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func applyUpdate(rec *session.Record, update session.Update) {
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
		rec.Private = update.Private
	}
}

func (s *Store) DeleteSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	rec, err := s.GetSession(ctx, handle)
	if err != nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(handle))
		if rec.UserID != uuid.Nil {
			pipe.SRem(ctx, userKey(rec.UserID), handle.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
