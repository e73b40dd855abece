// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
)

// UserRepository is an auth.UserRepository guarded by a single mutex.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]*auth.User
}

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// Create stores a copy of user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return oops.Code("USER_DUPLICATE_EMAIL").With("email", user.Email).Wrap(auth.ErrDuplicateEmail)
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return oops.Code("USER_DUPLICATE_USERNAME").With("username", user.Username).Wrap(auth.ErrDuplicateUsername)
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, notFound("id", id.String())
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find("email", email, func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find("username", username, func(u *auth.User) bool { return strings.EqualFold(u.Username, username) })
}

// GetByVerificationTokenHash retrieves the user holding the verification token hash.
func (r *UserRepository) GetByVerificationTokenHash(_ context.Context, tokenHash string) (*auth.User, error) {
	return r.find("verification_token", "", func(u *auth.User) bool {
		return u.VerificationTokenHash != nil && *u.VerificationTokenHash == tokenHash
	})
}

// GetByResetTokenHash retrieves the user holding the reset token hash.
func (r *UserRepository) GetByResetTokenHash(_ context.Context, tokenHash string) (*auth.User, error) {
	return r.find("reset_token", "", func(u *auth.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash
	})
}

// List returns every user ordered by username.
func (r *UserRepository) List(_ context.Context) ([]*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*auth.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	slices.SortFunc(out, func(a, b *auth.User) int {
		return cmp.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	})
	return out, nil
}

// MarkVerified sets the verified flag and clears the verification token.
func (r *UserRepository) MarkVerified(_ context.Context, id ulid.ULID, at time.Time) error {
	return r.mutate(id, func(u *auth.User) {
		u.Verified = true
		u.VerificationTokenHash = nil
		u.VerificationExpiresAt = nil
		u.UpdatedAt = at
	})
}

// SetResetToken stores a reset token hash, replacing any previous one.
func (r *UserRepository) SetResetToken(_ context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	return r.mutate(id, func(u *auth.User) {
		u.ResetTokenHash = &tokenHash
		u.ResetExpiresAt = &expiresAt
	})
}

// RedeemResetToken checks and clears the reset token under the write lock.
func (r *UserRepository) RedeemResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash {
			continue
		}
		if u.ResetExpiresAt == nil || u.ResetExpiresAt.Before(now) {
			break
		}
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
		u.UpdatedAt = now
		return u.ID, nil
	}
	return ulid.ULID{}, notFound("reset_token", "")
}

// UpdatePasswordHash replaces only the password hash.
func (r *UserRepository) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	return r.mutate(id, func(u *auth.User) {
		u.PasswordHash = passwordHash
	})
}

// UpdateProfile applies the non-nil fields of update.
func (r *UserRepository) UpdateProfile(_ context.Context, id ulid.ULID, update auth.ProfileUpdate) error {
	return r.mutate(id, func(u *auth.User) {
		if update.ProfilePicturePath != nil {
			path := *update.ProfilePicturePath
			u.ProfilePicturePath = &path
		}
		if update.FluentLanguages != nil {
			u.FluentLanguages = slices.Clone(*update.FluentLanguages)
		}
		if update.LearningLanguages != nil {
			u.LearningLanguages = slices.Clone(*update.LearningLanguages)
		}
		u.UpdatedAt = update.UpdatedAt
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = time.Now()
		}
	})
}

// AddContact appends target to the user's contacts if absent.
func (r *UserRepository) AddContact(_ context.Context, id ulid.ULID, target string) error {
	return r.mutate(id, func(u *auth.User) {
		if !u.HasContact(target) {
			u.Contacts = append(u.Contacts, target)
		}
	})
}

// RemoveContact drops target from the user's contacts.
func (r *UserRepository) RemoveContact(_ context.Context, id ulid.ULID, target string) error {
	return r.mutate(id, func(u *auth.User) {
		u.Contacts = removeFold(u.Contacts, target)
	})
}

// Block adds target to the blocked set and drops it from contacts.
func (r *UserRepository) Block(_ context.Context, id ulid.ULID, target string) error {
	return r.mutate(id, func(u *auth.User) {
		if !u.HasBlocked(target) {
			u.BlockedUsers = append(u.BlockedUsers, target)
		}
		u.Contacts = removeFold(u.Contacts, target)
	})
}

// Unblock drops target from the blocked set.
func (r *UserRepository) Unblock(_ context.Context, id ulid.ULID, target string) error {
	return r.mutate(id, func(u *auth.User) {
		u.BlockedUsers = removeFold(u.BlockedUsers, target)
	})
}

func (r *UserRepository) find(field, value string, match func(*auth.User) bool) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, notFound(field, value)
}

func (r *UserRepository) mutate(id ulid.ULID, fn func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return notFound("id", id.String())
	}
	fn(u)
	return nil
}

func notFound(field, value string) error {
	b := oops.Code("USER_NOT_FOUND").With("field", field)
	if value != "" {
		b = b.With("value", value)
	}
	return b.Wrap(auth.ErrNotFound)
}

func removeFold(list []string, s string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(v string) bool { return strings.EqualFold(v, s) })
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	c.VerificationTokenHash = clonePtr(u.VerificationTokenHash)
	c.VerificationExpiresAt = clonePtr(u.VerificationExpiresAt)
	c.ResetTokenHash = clonePtr(u.ResetTokenHash)
	c.ResetExpiresAt = clonePtr(u.ResetExpiresAt)
	c.ProfilePicturePath = clonePtr(u.ProfilePicturePath)
	c.FluentLanguages = cloneList(u.FluentLanguages)
	c.LearningLanguages = cloneList(u.LearningLanguages)
	c.Contacts = cloneList(u.Contacts)
	c.BlockedUsers = cloneList(u.BlockedUsers)
	return &c
}

func cloneList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ auth.UserRepository = (*UserRepository)(nil)
