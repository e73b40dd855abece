// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/store"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// The snapshot is stored as JSONB.
type SessionRepository struct {
	pool store.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool store.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session. The plaintext key is never written.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	data, err := json.Marshal(session.Data)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "encode session data").Wrap(err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO sessions (id, key_hash, user_id, data, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, session.ID.String(), session.KeyHash, session.UserID.String(), data, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByKeyHash retrieves a session by its key hash regardless of expiry.
func (r *SessionRepository) GetByKeyHash(ctx context.Context, keyHash string) (*auth.Session, error) {
	var (
		session auth.Session
		idStr   string
		userStr string
		data    []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, key_hash, user_id, data, expires_at, created_at
		FROM sessions WHERE key_hash = $1
	`, keyHash).Scan(&idStr, &session.KeyHash, &userStr, &data, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "get session").Wrap(err)
	}

	if session.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "parse session id").With("id", idStr).Wrap(err)
	}
	if session.UserID, err = ulid.Parse(userStr); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "parse user id").With("user_id", userStr).Wrap(err)
	}
	if err := json.Unmarshal(data, &session.Data); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "decode session data").Wrap(err)
	}
	return &session, nil
}

// UpdateData replaces the snapshot of one session.
func (r *SessionRepository) UpdateData(ctx context.Context, keyHash string, data auth.Snapshot) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "encode session data").Wrap(err)
	}
	result, err := r.pool.Exec(ctx, `UPDATE sessions SET data = $2 WHERE key_hash = $1`, keyHash, encoded)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "update session data").Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateDataByUser replaces the snapshot of every session of a user.
func (r *SessionRepository) UpdateDataByUser(ctx context.Context, userID ulid.ULID, data auth.Snapshot) (int64, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return 0, oops.Code("SESSION_UPDATE_FAILED").With("operation", "encode session data").Wrap(err)
	}
	result, err := r.pool.Exec(ctx, `UPDATE sessions SET data = $2 WHERE user_id = $1`, userID.String(), encoded)
	if err != nil {
		return 0, oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update user sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteByKeyHash removes a session. Deleting an absent session is not an error.
func (r *SessionRepository) DeleteByKeyHash(ctx context.Context, keyHash string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE key_hash = $1`, keyHash); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "delete session").Wrap(err)
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete user sessions").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes sessions that expired before the given time.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
