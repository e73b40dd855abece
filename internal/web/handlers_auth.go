// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package web

import (
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
)

type registerRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Role            string `json:"role"`
}

type registerResponse struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
	Verified bool      `json:"verified"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      auth.Snapshot `json:"user"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	user, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            auth.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Verified: user.Verified,
	})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	setSessionCookie(w, session, s.cookieSecure)
	writeJSON(w, http.StatusOK, loginResponse{User: session.Data, ExpiresAt: session.ExpiresAt})
}

// handleLogout ends the presented session if any. It always clears the cookie.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if key := sessionKeyFrom(r); key != "" {
		if err := s.auth.Logout(r.Context(), key); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
	}
	clearSessionCookie(w, s.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, s.logger, oops.Code(CodeInvalidRequest).Errorf("token is required"))
		return
	}
	if err := s.auth.Verify(r.Context(), token); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "verified"})
}

func (s *server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "if the account exists, a reset link was sent"})
}

func (s *server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "password updated"})
}
