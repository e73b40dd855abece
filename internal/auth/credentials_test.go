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
	"github.com/lingopal/lingopal/internal/auth/mocks"
	"github.com/lingopal/lingopal/pkg/errutil"
)

func TestNewCredentialStore_NilDependencies(t *testing.T) {
	_, err := auth.NewCredentialStore(nil, mocks.NewMockPasswordHasher(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user repository is required")

	_, err = auth.NewCredentialStore(mocks.NewMockUserRepository(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password hasher is required")
}

func TestCredentialStore_CreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("maps repository duplicates to codes", func(t *testing.T) {
		tests := []struct {
			name    string
			repoErr error
			code    string
		}{
			{"email", auth.ErrDuplicateEmail, auth.CodeDuplicateEmail},
			{"username", auth.ErrDuplicateUsername, auth.CodeDuplicateUsername},
			{"other", errors.New("connection reset"), auth.CodeStorageUnavailable},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users := mocks.NewMockUserRepository(t)
				hasher := mocks.NewMockPasswordHasher(t)
				hasher.On("Hash", "pw").Return("$argon2id$hash", nil)
				users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(tt.repoErr)
				store, err := auth.NewCredentialStore(users, hasher)
				require.NoError(t, err)

				_, _, err = store.CreateUser(ctx, "alice", "alice@example.com", "pw", auth.RoleLearner)
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.code)
			})
		}
	})

	t.Run("invalid input never reaches the hasher", func(t *testing.T) {
		store, err := auth.NewCredentialStore(mocks.NewMockUserRepository(t), mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		_, _, err = store.CreateUser(ctx, "a", "alice@example.com", "pw", "")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidUsername)
		_, _, err = store.CreateUser(ctx, "alice", "nope", "pw", "")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidEmail)
		_, _, err = store.CreateUser(ctx, "alice", "alice@example.com", "pw", "overlord")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidRole)
	})

	t.Run("persists the canonical role", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", "pw").Return("$argon2id$hash", nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Role == auth.RoleTutor
		})).Return(nil)
		store, err := auth.NewCredentialStore(users, hasher)
		require.NoError(t, err)

		user, _, err := store.CreateUser(ctx, "alice", "alice@example.com", "pw", "Tutor")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleTutor, user.Role)
	})
}

func TestCredentialStore_RedeemResetToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	userID := ulid.Make()

	t.Run("one conditional update with hashed token and clock time", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", "new").Return("$argon2id$new", nil)
		users.On("RedeemResetToken", ctx, auth.HashToken("tok"), "$argon2id$new", now).Return(userID, nil).Once()
		store, err := auth.NewCredentialStore(users, hasher, auth.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		got, err := store.RedeemResetToken(ctx, "tok", "new")
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("no match is token invalid", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", "new").Return("$argon2id$new", nil)
		users.On("RedeemResetToken", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil, auth.ErrNotFound)
		store, err := auth.NewCredentialStore(users, hasher)
		require.NoError(t, err)

		_, err = store.RedeemResetToken(ctx, "tok", "new")
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("empty token skips storage", func(t *testing.T) {
		store, err := auth.NewCredentialStore(mocks.NewMockUserRepository(t), mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)
		_, err = store.RedeemResetToken(ctx, "", "new")
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})
}

func TestCredentialStore_IssueResetToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	userID := ulid.Make()
	users := mocks.NewMockUserRepository(t)
	store, err := auth.NewCredentialStore(users, mocks.NewMockPasswordHasher(t),
		auth.WithClock(func() time.Time { return now }),
		auth.WithResetTTL(2*time.Hour))
	require.NoError(t, err)

	var storedHash string
	users.On("SetResetToken", ctx, userID, mock.AnythingOfType("string"), now.Add(2*time.Hour)).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).
		Return(nil)

	token, err := store.IssueResetToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, auth.HashToken(token), storedHash, "only the hash is persisted")
}

func TestCredentialStore_FindByToken(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserRepository(t)
	store, err := auth.NewCredentialStore(users, mocks.NewMockPasswordHasher(t))
	require.NoError(t, err)

	users.On("GetByVerificationTokenHash", ctx, auth.HashToken("v")).Return(nil, auth.ErrNotFound)
	_, err = store.FindByVerificationToken(ctx, "v")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	users.On("GetByResetTokenHash", ctx, auth.HashToken("r")).Return(&auth.User{Username: "alice"}, nil)
	u, err := store.FindByResetToken(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = store.FindByResetToken(ctx, "")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCredentialStore_VerifyPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("nil user checks the dummy hash", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Verify", "pw", mock.AnythingOfType("string")).Return(false, nil).Once()
		store, err := auth.NewCredentialStore(mocks.NewMockUserRepository(t), hasher)
		require.NoError(t, err)

		ok, err := store.VerifyPassword(ctx, nil, "pw")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("failed upgrade is logged and login still passes", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		user := &auth.User{ID: ulid.Make(), PasswordHash: "old"}
		hasher.On("Verify", "pw", "old").Return(true, nil)
		hasher.On("NeedsUpgrade", "old").Return(true)
		hasher.On("Hash", "pw").Return("new", nil)
		users.On("UpdatePasswordHash", ctx, user.ID, "new").Return(errors.New("read only"))
		logger, buf := newBufferLogger()
		store, err := auth.NewCredentialStore(users, hasher, auth.WithLogger(logger))
		require.NoError(t, err)

		ok, err := store.VerifyPassword(ctx, user, "pw")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "old", user.PasswordHash)

		records := logRecords(t, buf)
		require.Len(t, records, 1)
		assert.Equal(t, "WARN", records[0]["level"])
		assert.Equal(t, user.ID.String(), records[0]["user_id"])
	})

	t.Run("mismatch does not upgrade", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Verify", "bad", "old").Return(false, nil)
		store, err := auth.NewCredentialStore(mocks.NewMockUserRepository(t), hasher)
		require.NoError(t, err)

		ok, err := store.VerifyPassword(ctx, &auth.User{PasswordHash: "old"}, "bad")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", auth.Code(nil))
	assert.Equal(t, auth.CodeStorageUnavailable, auth.Code(errors.New("plain")))
	_, err := auth.ParseRole("x")
	assert.Equal(t, auth.CodeInvalidRole, auth.Code(err))
}
