// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/auth/memory"
	"github.com/lingopal/lingopal/internal/auth/mocks"
	"github.com/lingopal/lingopal/pkg/errutil"
)

func TestNewSessionStore_NilRepository(t *testing.T) {
	s, err := auth.NewSessionStore(nil)
	require.Error(t, err)
	assert.Nil(t, s)
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := memory.NewSessionRepository()
	store, err := auth.NewSessionStore(repo, auth.WithClock(clock.Now), auth.WithSessionTTL(10*time.Minute))
	require.NoError(t, err)
	userID := ulid.Make()
	snap := auth.Snapshot{Username: "alice", Email: "alice@example.com", Role: auth.RoleLearner}

	created, err := store.Create(ctx, userID, snap)
	require.NoError(t, err)

	t.Run("create stamps expiry from the clock", func(t *testing.T) {
		assert.Equal(t, clock.Now().Add(10*time.Minute), created.ExpiresAt)
		assert.NotEmpty(t, created.Key)
	})

	t.Run("get returns the session by key", func(t *testing.T) {
		got, err := store.Get(ctx, created.Key)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.Key, got.Key)
	})

	t.Run("get does not judge expiry", func(t *testing.T) {
		clock.Advance(time.Hour)
		_, err := store.Get(ctx, created.Key)
		require.NoError(t, err)
	})

	t.Run("get unknown key", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = store.Get(ctx, "")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("refresh keeps key and expiry", func(t *testing.T) {
		fresh := snap
		fresh.Contacts = []string{"bob"}
		require.NoError(t, store.Refresh(ctx, created.Key, fresh))

		got, err := store.Get(ctx, created.Key)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, got.Data.Contacts)
		assert.Equal(t, created.ExpiresAt, got.ExpiresAt)
		assert.ErrorIs(t, store.Refresh(ctx, "nope", fresh), auth.ErrNotFound)
	})

	t.Run("refresh user reaches every session", func(t *testing.T) {
		second, err := store.Create(ctx, userID, snap)
		require.NoError(t, err)
		fresh := snap
		fresh.Role = auth.RoleTutor
		require.NoError(t, store.RefreshUser(ctx, userID, fresh))

		for _, key := range []string{created.Key, second.Key} {
			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, auth.RoleTutor, got.Data.Role)
		}
	})

	t.Run("sweep removes dead sessions", func(t *testing.T) {
		live, err := store.Create(ctx, userID, snap)
		require.NoError(t, err)
		n, err := store.SweepExpired(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, "only the first session is past its expiry")
		_, err = store.Get(ctx, live.Key)
		require.NoError(t, err)
	})

	t.Run("terminate", func(t *testing.T) {
		require.NoError(t, store.Terminate(ctx, created.Key))
		require.NoError(t, store.Terminate(ctx, "unknown"))
		require.NoError(t, store.Terminate(ctx, ""))
	})

	t.Run("terminate user", func(t *testing.T) {
		_, err := store.Create(ctx, userID, snap)
		require.NoError(t, err)
		n, err := store.TerminateUser(ctx, userID)
		require.NoError(t, err)
		assert.Positive(t, n)
		assert.Equal(t, 0, repo.Len())
	})
}

func TestSessionStore_RecordsCreation(t *testing.T) {
	recorder := mocks.NewMockRecorder(t)
	recorder.On("SessionCreated").Return().Once()
	store, err := auth.NewSessionStore(memory.NewSessionRepository(), auth.WithRecorder(recorder))
	require.NoError(t, err)

	_, err = store.Create(context.Background(), ulid.Make(), auth.Snapshot{Username: "alice"})
	require.NoError(t, err)
}

func TestSessionStore_StorageErrors(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockSessionRepository(t)
	store, err := auth.NewSessionStore(repo)
	require.NoError(t, err)
	boom := errors.New("disk full")

	repo.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(boom).Once()
	_, err = store.Create(ctx, ulid.Make(), auth.Snapshot{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
	errutil.AssertErrorContext(t, err, "operation", "create session")

	repo.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), boom).Once()
	_, err = store.SweepExpired(ctx)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
}
