// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/auth/memory"
)

// fastParams keeps argon2 cheap so the suite stays quick.
func fastParams() auth.Argon2Params {
	return auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}
}

func newTestHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasher(fastParams())
	require.NoError(t, err)
	return h
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// logRecords decodes JSON log lines written into buf.
func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// recordingMailer captures the tokens the service dispatches.
type recordingMailer struct {
	mu           sync.Mutex
	err          error
	verification map[string]string
	reset        map[string]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verification: map[string]string{}, reset: map[string]string{}}
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[email] = token
	return m.err
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = token
	return m.err
}

func (m *recordingMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *recordingMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

// fixture wires the real stores over the memory repositories.
type fixture struct {
	clock       *fakeClock
	users       *memory.UserRepository
	sessionRepo *memory.SessionRepository
	credentials *auth.CredentialStore
	sessions    *auth.SessionStore
	mailer      *recordingMailer
	svc         *auth.Service
	guard       *auth.Guard
	logs        *bytes.Buffer
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:       newFakeClock(),
		users:       memory.NewUserRepository(),
		sessionRepo: memory.NewSessionRepository(),
		mailer:      newRecordingMailer(),
	}
	logger, buf := newBufferLogger()
	f.logs = buf
	opts = append([]auth.Option{auth.WithClock(f.clock.Now)}, opts...)

	var err error
	f.credentials, err = auth.NewCredentialStore(f.users, newTestHasher(t), append(opts, auth.WithLogger(logger))...)
	require.NoError(t, err)
	f.sessions, err = auth.NewSessionStore(f.sessionRepo, opts...)
	require.NoError(t, err)
	f.svc, err = auth.NewServiceWithLogger(f.credentials, f.sessions, f.mailer, logger, opts...)
	require.NoError(t, err)
	f.guard, err = auth.NewGuard(f.sessions)
	require.NoError(t, err)
	return f
}

func (f *fixture) register(t *testing.T, username, email, password string) *auth.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) registerVerified(t *testing.T, username, email, password string) *auth.User {
	t.Helper()
	user := f.register(t, username, email, password)
	require.NoError(t, f.svc.Verify(context.Background(), f.mailer.verificationToken(user.Email)))
	return user
}
