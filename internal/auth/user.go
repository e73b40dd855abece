// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// MaxLanguageLength bounds a single entry of a language list.
const MaxLanguageLength = 40

// usernameRegex matches usernames that start with a letter and contain only
// letters, numbers, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Role is the coarse account type shown on profiles.
type Role string

// Known roles.
const (
	RoleLearner Role = "learner"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// ParseRole maps s onto a Role. The empty string yields RoleLearner.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleLearner, nil
	case RoleLearner, RoleTutor, RoleAdmin:
		return r, nil
	default:
		return "", oops.Code(CodeInvalidRole).With("role", s).Errorf("unknown role %q", s)
	}
}

// User is a registered account together with its credential and profile state.
type User struct {
	ID                    ulid.ULID
	Username              string
	Email                 string
	PasswordHash          string
	Role                  Role
	Verified              bool
	VerificationTokenHash *string
	VerificationExpiresAt *time.Time
	ResetTokenHash        *string
	ResetExpiresAt        *time.Time
	ProfilePicturePath    *string
	FluentLanguages       []string
	LearningLanguages     []string
	Contacts              []string
	BlockedUsers          []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewUser creates a validated, unverified User. The email is normalized to lower case.
func NewUser(username, email, passwordHash string, role Role) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code(CodeInvalidPassword).Errorf("password hash cannot be empty")
	}
	role, err = ParseRole(string(role))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &User{
		ID:                ulid.Make(),
		Username:          username,
		Email:             normalized,
		PasswordHash:      passwordHash,
		Role:              role,
		FluentLanguages:   []string{},
		LearningLanguages: []string{},
		Contacts:          []string{},
		BlockedUsers:      []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Snapshot copies the identity and profile fields cached in a session.
func (u *User) Snapshot() Snapshot {
	snap := Snapshot{
		Username:          u.Username,
		Email:             u.Email,
		Role:              u.Role,
		FluentLanguages:   slices.Clone(u.FluentLanguages),
		LearningLanguages: slices.Clone(u.LearningLanguages),
		Contacts:          slices.Clone(u.Contacts),
		BlockedUsers:      slices.Clone(u.BlockedUsers),
	}
	if u.ProfilePicturePath != nil {
		snap.ProfilePicturePath = *u.ProfilePicturePath
	}
	return snap
}

// HasContact reports whether username is in the user's contact list.
func (u *User) HasContact(username string) bool {
	return containsFold(u.Contacts, username)
}

// HasBlocked reports whether the user blocked username.
func (u *User) HasBlocked(username string) bool {
	return containsFold(u.BlockedUsers, username)
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(v string) bool { return strings.EqualFold(v, s) })
}

// ValidateUsername validates a username against the length and charset rules.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidUsername).
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email after checking it is well formed.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(normalized, "required,email"); err != nil {
		return "", oops.Code(CodeInvalidEmail).With("email", email).Errorf("email address is not valid")
	}
	return normalized, nil
}

// NormalizeLanguages trims entries and drops case-insensitive duplicates,
// keeping first-seen order.
func NormalizeLanguages(langs []string) ([]string, error) {
	out := make([]string, 0, len(langs))
	for _, lang := range langs {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			return nil, oops.Code(CodeInvalidLanguage).Errorf("language cannot be empty")
		}
		if len(lang) > MaxLanguageLength {
			return nil, oops.Code(CodeInvalidLanguage).
				With("max", MaxLanguageLength).
				Errorf("language must be at most %d characters", MaxLanguageLength)
		}
		if !containsFold(out, lang) {
			out = append(out, lang)
		}
	}
	return out, nil
}

// ProfileUpdate carries the profile fields to change. Nil fields are left alone.
// UpdatedAt is stamped by the CredentialStore clock.
type ProfileUpdate struct {
	ProfilePicturePath *string
	FluentLanguages    *[]string
	LearningLanguages  *[]string
	UpdatedAt          time.Time
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail or ErrDuplicateUsername
	// when either unique key is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByVerificationTokenHash retrieves the user holding the verification token hash.
	GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// GetByResetTokenHash retrieves the user holding the reset token hash.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// List returns every user ordered by username.
	List(ctx context.Context) ([]*User, error)

	// MarkVerified sets the verified flag and clears the verification token.
	MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error

	// SetResetToken stores a reset token hash, replacing any previous one.
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error

	// RedeemResetToken replaces the password hash and clears the reset token in
	// one step, only if tokenHash matches and has not expired at now. Returns
	// the user's ID, or ErrNotFound when nothing matched.
	RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error)

	// UpdatePasswordHash replaces only the password hash.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error

	// UpdateProfile applies the non-nil fields of update.
	UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) error
}
