// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
)

// SessionRepository is an auth.SessionRepository keyed by key hash.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*auth.Session
}

// NewSessionRepository creates an empty repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*auth.Session)}
}

// Create stores a copy of session. The raw key is never retained.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.KeyHash]; exists {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("session key hash already stored")
	}
	stored := cloneSession(session)
	stored.Key = ""
	r.sessions[session.KeyHash] = stored
	return nil
}

// GetByKeyHash retrieves a session regardless of expiry.
func (r *SessionRepository) GetByKeyHash(_ context.Context, keyHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[keyHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return cloneSession(s), nil
}

// UpdateData replaces one session's snapshot.
func (r *SessionRepository) UpdateData(_ context.Context, keyHash string, data auth.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[keyHash]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	s.Data = cloneSnapshot(data)
	return nil
}

// UpdateDataByUser replaces the snapshot of every session of a user.
func (r *SessionRepository) UpdateDataByUser(_ context.Context, userID ulid.ULID, data auth.Snapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID {
			s.Data = cloneSnapshot(data)
			n++
		}
	}
	return n, nil
}

// DeleteByKeyHash removes a session if present.
func (r *SessionRepository) DeleteByKeyHash(_ context.Context, keyHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, keyHash)
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepository) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	return r.deleteWhere(func(s *auth.Session) bool { return s.UserID == userID }), nil
}

// DeleteExpired removes sessions that expired before the given time.
func (r *SessionRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return r.deleteWhere(func(s *auth.Session) bool { return s.ExpiresAt.Before(before) }), nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRepository) deleteWhere(match func(*auth.Session) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, s := range r.sessions {
		if match(s) {
			delete(r.sessions, hash)
			n++
		}
	}
	return n
}

func cloneSession(s *auth.Session) *auth.Session {
	c := *s
	c.Data = cloneSnapshot(s.Data)
	return &c
}

func cloneSnapshot(s auth.Snapshot) auth.Snapshot {
	s.FluentLanguages = cloneList(s.FluentLanguages)
	s.LearningLanguages = cloneList(s.LearningLanguages)
	s.Contacts = cloneList(s.Contacts)
	s.BlockedUsers = cloneList(s.BlockedUsers)
	return s
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
