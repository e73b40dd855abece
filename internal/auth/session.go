// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is how long a session lives after login.
const DefaultSessionTTL = 30 * time.Minute

// Snapshot is the identity and profile data cached in a session so guarded
// requests need no user lookup. It is stored as JSON.
type Snapshot struct {
	Username           string   `json:"username"`
	Email              string   `json:"email"`
	Role               Role     `json:"role"`
	ProfilePicturePath string   `json:"profile_picture_path,omitempty"`
	FluentLanguages    []string `json:"fluent_languages"`
	LearningLanguages  []string `json:"learning_languages"`
	Contacts           []string `json:"contacts"`
	BlockedUsers       []string `json:"blocked_users"`
}

// Session is a login session.
//
// ID identifies the stored record and is never handed to clients. Key is the
// opaque token the client presents; only its hash is persisted, so Key is set
// only on sessions returned by Create or looked up by key.
type Session struct {
	ID        ulid.ULID
	Key       string
	KeyHash   string
	UserID    ulid.ULID
	Data      Snapshot
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID ulid.ULID, keyHash string, data Snapshot, createdAt, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if keyHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("key hash cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("created_at", createdAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}
	return &Session{
		ID:        ulid.Make(),
		KeyHash:   keyHash,
		UserID:    userID,
		Data:      data,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// IsExpiredAt returns true if the session is dead at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByKeyHash retrieves a session by its key hash regardless of expiry.
	GetByKeyHash(ctx context.Context, keyHash string) (*Session, error)

	// UpdateData replaces the snapshot of one session. Returns ErrNotFound
	// when no session has the hash.
	UpdateData(ctx context.Context, keyHash string, data Snapshot) error

	// UpdateDataByUser replaces the snapshot of every session of a user.
	UpdateDataByUser(ctx context.Context, userID ulid.ULID, data Snapshot) (int64, error)

	// DeleteByKeyHash removes a session. Deleting an absent session is not an error.
	DeleteByKeyHash(ctx context.Context, keyHash string) error

	// DeleteByUser removes every session of a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes sessions that expired before the given time and
	// returns the count of deleted records.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
