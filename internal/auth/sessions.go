// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionStore issues and tracks login sessions keyed by opaque tokens.
type SessionStore struct {
	repo     SessionRepository
	now      func() time.Time
	ttl      time.Duration
	recorder Recorder
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(repo SessionRepository, opts ...Option) (*SessionStore, error) {
	if repo == nil {
		return nil, oops.Errorf("session repository is required")
	}
	s := newSettings(opts)
	return &SessionStore{repo: repo, now: s.now, ttl: s.sessionTTL, recorder: s.recorder}, nil
}

// Create issues a session for the user. The returned session carries the raw Key.
func (s *SessionStore) Create(ctx context.Context, userID ulid.ULID, data Snapshot) (*Session, error) {
	key, keyHash, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session, err := NewSession(userID, keyHash, data, now, now.Add(s.ttl))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, storageErr("create session", err)
	}
	session.Key = key
	s.recorder.SessionCreated()
	return session, nil
}

// Get returns the session for key without checking expiry. An unknown or
// empty key yields an error wrapping ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, key string) (*Session, error) {
	if key == "" {
		return nil, oops.With("operation", "get session").Wrap(ErrNotFound)
	}
	session, err := s.repo.GetByKeyHash(ctx, HashToken(key))
	if err != nil {
		return nil, lookupErr("get session", err)
	}
	session.Key = key
	return session, nil
}

// Refresh replaces the session's snapshot, keeping key and expiry.
// Concurrent refreshes are last-write-wins.
func (s *SessionStore) Refresh(ctx context.Context, key string, data Snapshot) error {
	if key == "" {
		return oops.With("operation", "refresh session").Wrap(ErrNotFound)
	}
	if err := s.repo.UpdateData(ctx, HashToken(key), data); err != nil {
		return lookupErr("refresh session", err)
	}
	return nil
}

// RefreshUser replaces the snapshot of all of the user's sessions.
// Concurrent refreshes are last-write-wins.
func (s *SessionStore) RefreshUser(ctx context.Context, userID ulid.ULID, data Snapshot) error {
	if _, err := s.repo.UpdateDataByUser(ctx, userID, data); err != nil {
		return storageErr("refresh user sessions", err)
	}
	return nil
}

// Terminate deletes the session for key. Unknown keys are ignored.
func (s *SessionStore) Terminate(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.repo.DeleteByKeyHash(ctx, HashToken(key)); err != nil {
		return storageErr("terminate session", err)
	}
	return nil
}

// TerminateUser deletes every session of the user and returns how many went.
func (s *SessionStore) TerminateUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, storageErr("terminate user sessions", err)
	}
	return n, nil
}

// SweepExpired deletes sessions that are already dead. Expiry is enforced on
// read regardless, so this only reclaims storage.
func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storageErr("sweep expired sessions", err)
	}
	return n, nil
}
