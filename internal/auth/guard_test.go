// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/auth/mocks"
	"github.com/lingopal/lingopal/pkg/errutil"
)

func TestNewGuard_NilStore(t *testing.T) {
	g, err := auth.NewGuard(nil)
	require.Error(t, err)
	assert.Nil(t, g)
}

func TestGuard_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "alice", "alice@example.com", "pw")
	session, err := f.svc.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)

	t.Run("live session", func(t *testing.T) {
		got, err := f.guard.Authenticate(ctx, session.Key)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, "alice", got.Data.Username)
		assert.Equal(t, session.Key, got.Key)
	})

	t.Run("missing and unknown keys", func(t *testing.T) {
		for _, key := range []string{"", "not-a-session"} {
			_, err := f.guard.Authenticate(ctx, key)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeUnauthenticated)
		}
	})

	t.Run("still alive at the expiry instant", func(t *testing.T) {
		f.clock.Advance(auth.DefaultSessionTTL)
		_, err := f.guard.Authenticate(ctx, session.Key)
		require.NoError(t, err)
	})

	t.Run("expired session is rejected although stored", func(t *testing.T) {
		f.clock.Advance(time.Second)
		_, err := f.guard.Authenticate(ctx, session.Key)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthenticated)
		errutil.AssertErrorContext(t, err, "reason", "session expired")

		stored, getErr := f.sessions.Get(ctx, session.Key)
		require.NoError(t, getErr, "record is still physically present")
		assert.True(t, stored.IsExpiredAt(f.clock.Now()))
	})
}

func TestGuard_StorageFailure(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockSessionRepository(t)
	repo.On("GetByKeyHash", ctx, mock.AnythingOfType("string")).Return(nil, errors.New("timeout"))
	sessions, err := auth.NewSessionStore(repo)
	require.NoError(t, err)
	guard, err := auth.NewGuard(sessions)
	require.NoError(t, err)

	_, err = guard.Authenticate(ctx, "key")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
}
