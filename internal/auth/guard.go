// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Guard resolves a presented session key into a live session.
type Guard struct {
	sessions *SessionStore
}

// NewGuard creates a Guard. Expiry is judged by the store's clock.
func NewGuard(sessions *SessionStore) (*Guard, error) {
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	return &Guard{sessions: sessions}, nil
}

// Authenticate returns the session for key. A missing key, an unknown key and
// an expired session all fail with CodeUnauthenticated.
func (g *Guard) Authenticate(ctx context.Context, key string) (*Session, error) {
	if key == "" {
		return nil, unauthenticated("missing session key")
	}
	session, err := g.sessions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, unauthenticated("unknown session")
		}
		return nil, err
	}
	if session.IsExpiredAt(g.sessions.now()) {
		return nil, unauthenticated("session expired")
	}
	return session, nil
}
