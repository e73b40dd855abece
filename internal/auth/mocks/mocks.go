// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package mocks provides testify/mock doubles of the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/lingopal/lingopal/internal/auth"
)

// T is the subset of testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository mocks auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock whose expectations are asserted on cleanup.
func NewMockUserRepository(t T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userResult(args mock.Arguments) (*auth.User, error) {
	var user *auth.User
	if v := args.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return userResult(m.Called(ctx, id))
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return userResult(m.Called(ctx, email))
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return userResult(m.Called(ctx, username))
}

func (m *MockUserRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*auth.User, error) {
	return userResult(m.Called(ctx, tokenHash))
}

func (m *MockUserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.User, error) {
	return userResult(m.Called(ctx, tokenHash))
}

func (m *MockUserRepository) List(ctx context.Context) ([]*auth.User, error) {
	args := m.Called(ctx)
	var users []*auth.User
	if v := args.Get(0); v != nil {
		users = v.([]*auth.User)
	}
	return users, args.Error(1)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, id, tokenHash, expiresAt).Error(0)
}

func (m *MockUserRepository) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error) {
	args := m.Called(ctx, tokenHash, passwordHash, now)
	var id ulid.ULID
	if v := args.Get(0); v != nil {
		id = v.(ulid.ULID)
	}
	return id, args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

// AddContact, RemoveContact, Block and Unblock let the mock stand in for the
// contact list repository as well.

func (m *MockUserRepository) AddContact(ctx context.Context, id ulid.ULID, target string) error {
	return m.Called(ctx, id, target).Error(0)
}

func (m *MockUserRepository) RemoveContact(ctx context.Context, id ulid.ULID, target string) error {
	return m.Called(ctx, id, target).Error(0)
}

func (m *MockUserRepository) Block(ctx context.Context, id ulid.ULID, target string) error {
	return m.Called(ctx, id, target).Error(0)
}

func (m *MockUserRepository) Unblock(ctx context.Context, id ulid.ULID, target string) error {
	return m.Called(ctx, id, target).Error(0)
}

// MockSessionRepository mocks auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock whose expectations are asserted on cleanup.
func NewMockSessionRepository(t T) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByKeyHash(ctx context.Context, keyHash string) (*auth.Session, error) {
	args := m.Called(ctx, keyHash)
	var session *auth.Session
	if v := args.Get(0); v != nil {
		session = v.(*auth.Session)
	}
	return session, args.Error(1)
}

func (m *MockSessionRepository) UpdateData(ctx context.Context, keyHash string, data auth.Snapshot) error {
	return m.Called(ctx, keyHash, data).Error(0)
}

func (m *MockSessionRepository) UpdateDataByUser(ctx context.Context, userID ulid.ULID, data auth.Snapshot) (int64, error) {
	args := m.Called(ctx, userID, data)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteByKeyHash(ctx context.Context, keyHash string) error {
	return m.Called(ctx, keyHash).Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock whose expectations are asserted on cleanup.
func NewMockPasswordHasher(t T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockMailer mocks auth.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a mock whose expectations are asserted on cleanup.
func NewMockMailer(t T) *MockMailer {
	m := &MockMailer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

func (m *MockMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	return m.Called(ctx, email, token).Error(0)
}

// MockRecorder mocks auth.Recorder.
type MockRecorder struct {
	mock.Mock
}

// NewMockRecorder creates a mock whose expectations are asserted on cleanup.
func NewMockRecorder(t T) *MockRecorder {
	m := &MockRecorder{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRecorder) AuthEvent(operation, result string) {
	m.Called(operation, result)
}

func (m *MockRecorder) SessionCreated() {
	m.Called()
}

var (
	_ auth.UserRepository    = (*MockUserRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
	_ auth.Mailer            = (*MockMailer)(nil)
	_ auth.Recorder          = (*MockRecorder)(nil)
)
