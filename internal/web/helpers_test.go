// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/auth/memory"
	"github.com/lingopal/lingopal/internal/contacts"
	"github.com/lingopal/lingopal/internal/upload"
	"github.com/lingopal/lingopal/internal/web"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

type captureMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[email] = token
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = token
	return nil
}

func (m *captureMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *captureMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

type requestLog struct {
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (l *requestLog) HTTPRequest(route string, status int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routes = append(l.routes, route)
	l.codes = append(l.codes, status)
}

type app struct {
	handler   http.Handler
	clock     *fakeClock
	mailer    *captureMailer
	requests  *requestLog
	uploadDir string
}

type appOption func(*web.Deps)

func withMaxUpload(n int64) appOption {
	return func(d *web.Deps) { d.MaxUploadBytes = n }
}

func withCookieSecure() appOption {
	return func(d *web.Deps) { d.CookieSecure = true }
}

func newApp(t *testing.T, opts ...appOption) *app {
	t.Helper()
	a := &app{
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		mailer:   &captureMailer{verification: map[string]string{}, reset: map[string]string{}},
		requests: &requestLog{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := auth.WithClock(a.clock.Now)

	hasher, err := auth.NewArgon2idHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
	require.NoError(t, err)
	users := memory.NewUserRepository()
	credentials, err := auth.NewCredentialStore(users, hasher, clock)
	require.NoError(t, err)
	sessions, err := auth.NewSessionStore(memory.NewSessionRepository(), clock)
	require.NoError(t, err)
	svc, err := auth.NewServiceWithLogger(credentials, sessions, a.mailer, logger, clock)
	require.NoError(t, err)
	guard, err := auth.NewGuard(sessions)
	require.NoError(t, err)
	contactSvc, err := contacts.NewService(users, sessions, logger)
	require.NoError(t, err)

	a.uploadDir = t.TempDir()
	store, err := upload.NewDiskStore(a.uploadDir)
	require.NoError(t, err)

	deps := web.Deps{
		Auth:      svc,
		Guard:     guard,
		Contacts:  contactSvc,
		Uploads:   store,
		UploadDir: a.uploadDir,
		Metrics:   a.requests,
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	a.handler, err = web.NewRouter(deps)
	require.NoError(t, err)
	return a
}

func (a *app) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *app) upload(t *testing.T, cookie *http.Cookie, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(web.ProfilePictureField, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile-picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *app) register(t *testing.T, username, email, password string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/register", map[string]string{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": password,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (a *app) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, nil)
}

// signup registers, verifies and logs in, returning the session cookie.
func (a *app) signup(t *testing.T, username, email string) *http.Cookie {
	t.Helper()
	a.register(t, username, email, "s3cret-pass")
	rec := a.do(t, http.MethodGet, "/verify?token="+a.mailer.verificationToken(email), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.login(t, email, "s3cret-pass")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	return cookie
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == web.SessionCookieName {
			return c
		}
	}
	return nil
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
