// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lingopal/lingopal/pkg/errutil"
)

const tracerName = "lingopal/auth"

// Mailer delivers the links carrying verification and reset tokens.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            Role
}

// Service orchestrates login, registration, verification and password reset.
type Service struct {
	credentials           *CredentialStore
	sessions              *SessionStore
	mailer                Mailer
	logger                *slog.Logger
	recorder              Recorder
	tracer                trace.Tracer
	now                   func() time.Time
	revealUnknownAccounts bool
}

// NewService creates a Service that logs through slog.Default.
func NewService(credentials *CredentialStore, sessions *SessionStore, mailer Mailer, opts ...Option) (*Service, error) {
	if credentials == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	s := newSettings(opts)
	return &Service{
		credentials:           credentials,
		sessions:              sessions,
		mailer:                mailer,
		logger:                s.logger,
		recorder:              s.recorder,
		tracer:                otel.Tracer(tracerName),
		now:                   s.now,
		revealUnknownAccounts: s.revealUnknownAccounts,
	}, nil
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(credentials *CredentialStore, sessions *SessionStore, mailer Mailer, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return NewService(credentials, sessions, mailer, append(opts, WithLogger(logger))...)
}

// Login authenticates by email and password and opens a session.
//
// Unknown emails and wrong passwords fail with the same CodeInvalidCredentials
// message, and a hash is verified either way. An unverified account fails with
// CodeNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (session *Session, err error) {
	ctx, span := s.start(ctx, "Login")
	defer func() { s.finish(span, "login", err) }()

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	valid, verifyErr := s.credentials.VerifyPassword(ctx, user, password)
	if user == nil {
		return nil, invalidCredentials()
	}
	if !user.Verified {
		return nil, oops.Code(CodeNotVerified).
			With("user_id", user.ID.String()).
			Errorf("please verify your email before logging in")
	}
	if verifyErr != nil {
		return nil, storageErr("verify password", verifyErr)
	}
	if !valid {
		return nil, invalidCredentials()
	}

	session, err = s.sessions.Create(ctx, user.ID, user.Snapshot())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", user.ID.String()))
	return session, nil
}

// Register creates an unverified account and emails its verification link.
// A failed dispatch is logged; the account stays.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user *User, err error) {
	ctx, span := s.start(ctx, "Register")
	defer func() { s.finish(span, "register", err) }()

	if in.Password != in.ConfirmPassword {
		return nil, oops.Code(CodePasswordMismatch).Errorf("passwords do not match")
	}
	role, err := ParseRole(string(in.Role))
	if err != nil {
		return nil, err
	}

	user, token, err := s.credentials.CreateUser(ctx, in.Username, in.Email, in.Password, role)
	if err != nil {
		return nil, err
	}

	if sendErr := s.mailer.SendVerificationEmail(ctx, user.Email, token); sendErr != nil {
		s.logger.WarnContext(ctx, "verification email dispatch failed",
			"user_id", user.ID.String(),
			"operation", "send verification email",
			"error", sendErr)
	}
	return user, nil
}

// Verify redeems an email verification token.
func (s *Service) Verify(ctx context.Context, token string) (err error) {
	ctx, span := s.start(ctx, "Verify")
	defer func() { s.finish(span, "verify", err) }()

	user, err := s.credentials.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return tokenInvalid()
		}
		return err
	}
	if user.VerificationExpiresAt == nil || s.now().After(*user.VerificationExpiresAt) {
		return tokenInvalid()
	}
	return s.credentials.MarkVerified(ctx, user.ID)
}

// RequestPasswordReset issues a reset token and emails its link.
//
// An unknown email succeeds without doing anything, unless the service was
// built WithRevealUnknownAccounts, in which case it fails with CodeNoSuchAccount.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, span := s.start(ctx, "RequestPasswordReset")
	defer func() { s.finish(span, "request_password_reset", err) }()

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if s.revealUnknownAccounts {
			return oops.Code(CodeNoSuchAccount).Errorf("no account with that email exists")
		}
		s.logger.DebugContext(ctx, "password reset requested for unknown email")
		return nil
	}

	token, err := s.credentials.IssueResetToken(ctx, user.ID)
	if err != nil {
		return err
	}

	if sendErr := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); sendErr != nil {
		s.logger.WarnContext(ctx, "password reset email dispatch failed",
			"user_id", user.ID.String(),
			"operation", "send password reset email",
			"error", sendErr)
	}
	return nil
}

// ResetPassword redeems a reset token and ends every session of the account.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, span := s.start(ctx, "ResetPassword")
	defer func() { s.finish(span, "reset_password", err) }()

	if newPassword == "" {
		return oops.Code(CodeInvalidPassword).Errorf("password cannot be empty")
	}
	userID, err := s.credentials.RedeemResetToken(ctx, token, newPassword)
	if err != nil {
		return err
	}

	// The password already changed; a failure here only leaves old sessions to expire.
	if _, termErr := s.sessions.TerminateUser(ctx, userID); termErr != nil {
		errutil.LogError(s.logger, "terminate sessions after password reset", termErr)
	}
	return nil
}

// Logout terminates the session for key.
func (s *Service) Logout(ctx context.Context, key string) (err error) {
	ctx, span := s.start(ctx, "Logout")
	defer func() { s.finish(span, "logout", err) }()

	return s.sessions.Terminate(ctx, key)
}

// UpdateProfilePicture stores the picture path and refreshes the session.
func (s *Service) UpdateProfilePicture(ctx context.Context, session *Session, path string) (updated *Session, err error) {
	ctx, span := s.start(ctx, "UpdateProfilePicture")
	defer func() { s.finish(span, "update_profile_picture", err) }()

	return s.updateProfile(ctx, session, ProfileUpdate{ProfilePicturePath: &path})
}

// UpdateLanguages replaces both language lists and refreshes the session.
func (s *Service) UpdateLanguages(ctx context.Context, session *Session, fluent, learning []string) (updated *Session, err error) {
	ctx, span := s.start(ctx, "UpdateLanguages")
	defer func() { s.finish(span, "update_languages", err) }()

	return s.updateProfile(ctx, session, ProfileUpdate{FluentLanguages: &fluent, LearningLanguages: &learning})
}

func (s *Service) updateProfile(ctx context.Context, session *Session, update ProfileUpdate) (*Session, error) {
	if session == nil {
		return nil, unauthenticated("no session")
	}
	user, err := s.credentials.UpdateProfile(ctx, session.Data.Username, update)
	if err != nil {
		return nil, err
	}
	snap := user.Snapshot()
	if err := s.sessions.Refresh(ctx, session.Key, snap); err != nil {
		return nil, err
	}
	refreshed := *session
	refreshed.Data = snap
	return &refreshed, nil
}

func (s *Service) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "auth."+name)
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	result := "success"
	if err != nil {
		result = Code(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	s.recorder.AuthEvent(operation, result)
	span.End()
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func unauthenticated(reason string) error {
	return oops.Code(CodeUnauthenticated).With("reason", reason).Errorf("authentication required")
}
