// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"log/slog"
	"time"
)

// Default token lifetimes.
const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = 24 * time.Hour
)

// Recorder receives lifecycle events, typically to feed metrics.
type Recorder interface {
	// AuthEvent records the outcome of an operation. result is "success" or an error code.
	AuthEvent(operation, result string)
	// SessionCreated records a newly issued session.
	SessionCreated()
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}
func (nopRecorder) SessionCreated()          {}

type settings struct {
	now                   func() time.Time
	logger                *slog.Logger
	recorder              Recorder
	sessionTTL            time.Duration
	verificationTTL       time.Duration
	resetTTL              time.Duration
	revealUnknownAccounts bool
}

func newSettings(opts []Option) settings {
	s := settings{
		now:             time.Now,
		logger:          slog.Default(),
		recorder:        nopRecorder{},
		sessionTTL:      DefaultSessionTTL,
		verificationTTL: DefaultVerificationTTL,
		resetTTL:        DefaultResetTTL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures the stores, the Service and the Guard.
type Option func(*settings)

// WithClock replaces time.Now. Expiry decisions use this clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSessionTTL sets how long new sessions live. Non-positive values are ignored.
func WithSessionTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithVerificationTTL sets the email verification window. Non-positive values are ignored.
func WithVerificationTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.verificationTTL = d
		}
	}
}

// WithResetTTL sets the password reset window. Non-positive values are ignored.
func WithResetTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

// WithRevealUnknownAccounts makes RequestPasswordReset fail with
// CodeNoSuchAccount for unknown emails instead of succeeding silently.
func WithRevealUnknownAccounts(reveal bool) Option {
	return func(s *settings) {
		s.revealUnknownAccounts = reveal
	}
}
