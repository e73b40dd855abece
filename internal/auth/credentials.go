// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is verified when no user matches so a miss costs as much
// as a hit. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialStore owns user records, password hashes and the verification
// and reset tokens stored on them.
type CredentialStore struct {
	users           UserRepository
	hasher          PasswordHasher
	now             func() time.Time
	logger          *slog.Logger
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(users UserRepository, hasher PasswordHasher, opts ...Option) (*CredentialStore, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	s := newSettings(opts)
	return &CredentialStore{
		users:           users,
		hasher:          hasher,
		now:             s.now,
		logger:          s.logger,
		verificationTTL: s.verificationTTL,
		resetTTL:        s.resetTTL,
	}, nil
}

// CreateUser validates and stores a new unverified user, returning the raw
// verification token to put in the confirmation link.
func (c *CredentialStore) CreateUser(ctx context.Context, username, email, password string, role Role) (*User, string, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, "", err
	}
	if _, err := NormalizeEmail(email); err != nil {
		return nil, "", err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, "", err
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrEmptyPassword) {
			return nil, "", oops.Code(CodeInvalidPassword).Errorf("password cannot be empty")
		}
		return nil, "", oops.Code("AUTH_HASH_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(username, email, hash, role)
	if err != nil {
		return nil, "", err
	}

	token, tokenHash, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}
	now := c.now()
	expiresAt := now.Add(c.verificationTTL)
	user.VerificationTokenHash = &tokenHash
	user.VerificationExpiresAt = &expiresAt
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := c.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return nil, "", oops.Code(CodeDuplicateEmail).
				With("email", user.Email).
				Errorf("an account with this email already exists")
		case errors.Is(err, ErrDuplicateUsername):
			return nil, "", oops.Code(CodeDuplicateUsername).
				With("username", user.Username).
				Errorf("this username is already taken")
		default:
			return nil, "", storageErr("create user", err)
		}
	}
	return user, token, nil
}

// FindByEmail returns the user with the email, or an error wrapping ErrNotFound.
func (c *CredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := c.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, lookupErr("get user by email", err)
	}
	return user, nil
}

// FindByUsername returns the user with the username, or an error wrapping ErrNotFound.
func (c *CredentialStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := c.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, lookupErr("get user by username", err)
	}
	return user, nil
}

// FindByVerificationToken returns the user holding token. Expiry is the
// caller's concern.
func (c *CredentialStore) FindByVerificationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.With("operation", "get user by verification token").Wrap(ErrNotFound)
	}
	user, err := c.users.GetByVerificationTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, lookupErr("get user by verification token", err)
	}
	return user, nil
}

// FindByResetToken returns the user holding token. Expiry is the caller's concern.
func (c *CredentialStore) FindByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, oops.With("operation", "get user by reset token").Wrap(ErrNotFound)
	}
	user, err := c.users.GetByResetTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, lookupErr("get user by reset token", err)
	}
	return user, nil
}

// MarkVerified flags the user verified and clears the verification token.
// Marking an already verified user is a no-op.
func (c *CredentialStore) MarkVerified(ctx context.Context, userID ulid.ULID) error {
	if err := c.users.MarkVerified(ctx, userID, c.now()); err != nil {
		return lookupErr("mark verified", err)
	}
	return nil
}

// IssueResetToken stores a fresh reset token for the user, replacing any
// outstanding one, and returns the raw token.
func (c *CredentialStore) IssueResetToken(ctx context.Context, userID ulid.ULID) (string, error) {
	token, tokenHash, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if err := c.users.SetResetToken(ctx, userID, tokenHash, c.now().Add(c.resetTTL)); err != nil {
		return "", lookupErr("set reset token", err)
	}
	return token, nil
}

// RedeemResetToken sets a new password if token is current and clears it in
// the same step, so a token redeems at most once. Returns the user's ID.
func (c *CredentialStore) RedeemResetToken(ctx context.Context, token, newPassword string) (ulid.ULID, error) {
	if newPassword == "" {
		return ulid.ULID{}, oops.Code(CodeInvalidPassword).Errorf("password cannot be empty")
	}
	if token == "" {
		return ulid.ULID{}, tokenInvalid()
	}

	hash, err := c.hasher.Hash(newPassword)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_HASH_FAILED").With("operation", "hash password").Wrap(err)
	}

	userID, err := c.users.RedeemResetToken(ctx, HashToken(token), hash, c.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, tokenInvalid()
		}
		return ulid.ULID{}, storageErr("redeem reset token", err)
	}
	return userID, nil
}

// UpdateProfile applies update to the named user and returns the stored result.
// Credential and token fields are never touched.
func (c *CredentialStore) UpdateProfile(ctx context.Context, username string, update ProfileUpdate) (*User, error) {
	if update.FluentLanguages != nil {
		langs, err := NormalizeLanguages(*update.FluentLanguages)
		if err != nil {
			return nil, err
		}
		update.FluentLanguages = &langs
	}
	if update.LearningLanguages != nil {
		langs, err := NormalizeLanguages(*update.LearningLanguages)
		if err != nil {
			return nil, err
		}
		update.LearningLanguages = &langs
	}

	user, err := c.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	update.UpdatedAt = c.now()
	if err := c.users.UpdateProfile(ctx, user.ID, update); err != nil {
		return nil, lookupErr("update profile", err)
	}
	updated, err := c.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, lookupErr("reload user", err)
	}
	return updated, nil
}

// VerifyPassword compares password against the user's hash. A nil user is
// compared against a dummy hash and never matches. On a match with outdated
// hash parameters the hash is upgraded, best effort.
func (c *CredentialStore) VerifyPassword(ctx context.Context, user *User, password string) (bool, error) {
	if user == nil {
		_, _ = c.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing only
		return false, nil
	}

	ok, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return false, err
	}

	if c.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := c.hasher.Hash(password); hashErr == nil {
			if updateErr := c.users.UpdatePasswordHash(ctx, user.ID, newHash); updateErr != nil {
				c.logger.WarnContext(ctx, "password hash upgrade failed",
					"user_id", user.ID.String(),
					"operation", "upgrade password hash",
					"error", updateErr)
			} else {
				user.PasswordHash = newHash
			}
		}
	}
	return true, nil
}

func tokenInvalid() error {
	return oops.Code(CodeTokenInvalid).Errorf("token is invalid or has expired")
}

// lookupErr keeps ErrNotFound matchable and classifies everything else as a storage failure.
func lookupErr(operation string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return oops.With("operation", operation).Wrap(err)
	}
	return storageErr(operation, err)
}
