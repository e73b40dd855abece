// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package contacts manages contact lists, blocking, and public profiles.
package contacts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
)

// Error codes returned by Service.
const (
	CodeBlocked        = "CONTACT_BLOCKED"
	CodeUnknownUser    = "CONTACT_UNKNOWN_USER"
	CodeSelf           = "CONTACT_SELF"
	CodeAlreadyContact = "CONTACT_ALREADY_ADDED"
	CodeInvalidTarget  = "CONTACT_INVALID_TARGET"
)

// Repository is the slice of user storage the contact operations need.
// Both auth repositories implement it.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
	List(ctx context.Context) ([]*auth.User, error)
	AddContact(ctx context.Context, id ulid.ULID, target string) error
	RemoveContact(ctx context.Context, id ulid.ULID, target string) error
	Block(ctx context.Context, id ulid.ULID, target string) error
	Unblock(ctx context.Context, id ulid.ULID, target string) error
}

// SessionRefresher pushes a fresh snapshot into every session of a user.
type SessionRefresher interface {
	RefreshUser(ctx context.Context, userID ulid.ULID, data auth.Snapshot) error
}

// Profile is the public view of a user.
type Profile struct {
	Username           string    `json:"username"`
	Role               auth.Role `json:"role"`
	ProfilePicturePath string    `json:"profile_picture_path,omitempty"`
	FluentLanguages    []string  `json:"fluent_languages"`
	LearningLanguages  []string  `json:"learning_languages"`
}

// ProfileOf builds the public profile of u.
func ProfileOf(u *auth.User) Profile {
	snap := u.Snapshot()
	return Profile{
		Username:           snap.Username,
		Role:               snap.Role,
		ProfilePicturePath: snap.ProfilePicturePath,
		FluentLanguages:    snap.FluentLanguages,
		LearningLanguages:  snap.LearningLanguages,
	}
}

// Service implements the contact operations.
type Service struct {
	users    Repository
	sessions SessionRefresher
	logger   *slog.Logger
}

// NewService creates a contacts service.
func NewService(users Repository, sessions SessionRefresher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session refresher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, sessions: sessions, logger: logger}, nil
}

// List returns the profiles of the owner's contacts in list order. Contacts
// whose accounts no longer resolve are skipped.
func (s *Service) List(ctx context.Context, owner string) ([]Profile, error) {
	user, err := s.lookup(ctx, owner)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(user.Contacts))
	for _, name := range user.Contacts {
		contact, err := s.users.GetByUsername(ctx, name)
		if errors.Is(err, auth.ErrNotFound) {
			s.logger.DebugContext(ctx, "skipping unresolved contact", "owner", owner, "contact", name)
			continue
		}
		if err != nil {
			return nil, storageErr("get contact", err)
		}
		profiles = append(profiles, ProfileOf(contact))
	}
	return profiles, nil
}

// Profile returns the public profile of username.
func (s *Service) Profile(ctx context.Context, username string) (Profile, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return Profile{}, err
	}
	return ProfileOf(user), nil
}

// Directory returns the public profile of every user ordered by username.
func (s *Service) Directory(ctx context.Context) ([]Profile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, ProfileOf(u))
	}
	return profiles, nil
}

// Add puts target on the owner's contact list. Blocking in either direction
// rejects the request.
func (s *Service) Add(ctx context.Context, owner, target string) (auth.Snapshot, error) {
	self, other, err := s.pair(ctx, owner, target)
	if err != nil {
		return auth.Snapshot{}, err
	}
	if self.HasBlocked(other.Username) || other.HasBlocked(self.Username) {
		return auth.Snapshot{}, oops.Code(CodeBlocked).
			With("owner", self.Username).
			With("target", other.Username).
			Errorf("cannot add a blocked user")
	}
	if self.HasContact(other.Username) {
		return auth.Snapshot{}, oops.Code(CodeAlreadyContact).
			With("target", other.Username).
			Errorf("%s is already a contact", other.Username)
	}
	if err := s.users.AddContact(ctx, self.ID, other.Username); err != nil {
		return auth.Snapshot{}, storageErr("add contact", err)
	}
	return s.refresh(ctx, self.Username)
}

// Remove drops target from the owner's contacts. Absent targets are a no-op.
func (s *Service) Remove(ctx context.Context, owner, target string) (auth.Snapshot, error) {
	self, err := s.lookup(ctx, owner)
	if err != nil {
		return auth.Snapshot{}, err
	}
	if !self.HasContact(target) {
		return self.Snapshot(), nil
	}
	if err := s.users.RemoveContact(ctx, self.ID, target); err != nil {
		return auth.Snapshot{}, storageErr("remove contact", err)
	}
	return s.refresh(ctx, self.Username)
}

// Block adds target to the owner's blocked set and removes it from contacts.
func (s *Service) Block(ctx context.Context, owner, target string) (auth.Snapshot, error) {
	self, other, err := s.pair(ctx, owner, target)
	if err != nil {
		return auth.Snapshot{}, err
	}
	if err := s.users.Block(ctx, self.ID, other.Username); err != nil {
		return auth.Snapshot{}, storageErr("block user", err)
	}
	return s.refresh(ctx, self.Username)
}

// Unblock removes target from the owner's blocked set.
func (s *Service) Unblock(ctx context.Context, owner, target string) (auth.Snapshot, error) {
	self, err := s.lookup(ctx, owner)
	if err != nil {
		return auth.Snapshot{}, err
	}
	if !self.HasBlocked(target) {
		return self.Snapshot(), nil
	}
	if err := s.users.Unblock(ctx, self.ID, target); err != nil {
		return auth.Snapshot{}, storageErr("unblock user", err)
	}
	return s.refresh(ctx, self.Username)
}

// pair resolves owner and target and rejects self-targeting.
func (s *Service) pair(ctx context.Context, owner, target string) (self, other *auth.User, err error) {
	if strings.TrimSpace(target) == "" {
		return nil, nil, oops.Code(CodeInvalidTarget).Errorf("username is required")
	}
	if strings.EqualFold(owner, target) {
		return nil, nil, oops.Code(CodeSelf).With("username", owner).Errorf("cannot target yourself")
	}
	if self, err = s.lookup(ctx, owner); err != nil {
		return nil, nil, err
	}
	if other, err = s.lookup(ctx, target); err != nil {
		return nil, nil, err
	}
	return self, other, nil
}

func (s *Service) lookup(ctx context.Context, username string) (*auth.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, oops.Code(CodeUnknownUser).With("username", username).Errorf("no user named %q", username)
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return user, nil
}

// refresh reloads the owner and pushes the new snapshot to all of their sessions.
func (s *Service) refresh(ctx context.Context, username string) (auth.Snapshot, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return auth.Snapshot{}, storageErr("reload user", err)
	}
	snap := user.Snapshot()
	if err := s.sessions.RefreshUser(ctx, user.ID, snap); err != nil {
		return auth.Snapshot{}, err
	}
	return snap, nil
}

func storageErr(operation string, err error) error {
	return oops.Code(auth.CodeStorageUnavailable).With("operation", operation).Wrap(err)
}
