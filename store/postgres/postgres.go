package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessionkit/core/session"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Store persists session records in a PostgreSQL sessions table.
// It implements session.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by the given connection pool. The pool remains
// owned by the caller; Store never closes it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `handle, user_id, token_hash, csrf_token, expires_at, public_data, private_data, created_at, updated_at`

func scanRecord(row pgx.Row) (*session.Record, error) {
	var rec session.Record
	err := row.Scan(
		&rec.Handle,
		&rec.UserID,
		&rec.TokenHash,
		&rec.CSRFToken,
		&rec.ExpiresAt,
		&rec.Public,
		&rec.Private,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) GetSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM sessions WHERE handle = $1`, handle)
	return scanRecord(row)
}

func (s *Store) GetSessions(ctx context.Context, userID uuid.UUID) ([]session.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, record *session.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (`+selectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.Handle,
		record.UserID,
		record.TokenHash,
		record.CSRFToken,
		record.ExpiresAt,
		record.Public,
		record.Private,
		record.CreatedAt,
		record.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return session.ErrConflict
	}
	return err
}

func (s *Store) UpdateSession(ctx context.Context, handle uuid.UUID, update session.Update) (*session.Record, error) {
	// NULL arguments leave the corresponding column untouched; the single
	// statement keeps partial updates atomic without a transaction.
	var privateJSON any
	if update.Private != nil {
		privateJSON = update.Private
	}
	var publicJSON any
	if update.Public != nil {
		publicJSON = update.Public
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE sessions SET
			user_id = COALESCE($2, user_id),
			token_hash = COALESCE($3, token_hash),
			csrf_token = COALESCE($4, csrf_token),
			expires_at = COALESCE($5, expires_at),
			public_data = COALESCE($6, public_data),
			private_data = COALESCE($7, private_data),
			updated_at = now()
		 WHERE handle = $1
		 RETURNING `+selectColumns,
		handle,
		update.UserID,
		update.TokenHash,
		update.CSRFToken,
		update.ExpiresAt,
		publicJSON,
		privateJSON,
	)
	return scanRecord(row)
}

func (s *Store) DeleteSession(ctx context.Context, handle uuid.UUID) (*session.Record, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM sessions WHERE handle = $1 RETURNING `+selectColumns, handle)
	return scanRecord(row)
}
