// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package web exposes the account, session and contact operations over HTTP.
//
// Sessions travel in an HttpOnly cookie. Request and response bodies are JSON
// except the multipart profile picture upload.
package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/contacts"
	"github.com/lingopal/lingopal/internal/upload"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Auth     *auth.Service
	Guard    *auth.Guard
	Contacts *contacts.Service
	Uploads  upload.Store

	// UploadDir, when set, is served read-only under upload.PublicPrefix.
	UploadDir      string
	MaxUploadBytes int64
	CookieSecure   bool

	Metrics RequestRecorder
	Logger  *slog.Logger
}

type server struct {
	auth         *auth.Service
	guard        *auth.Guard
	contacts     *contacts.Service
	uploads      upload.Store
	maxUpload    int64
	cookieSecure bool
	metrics      RequestRecorder
	logger       *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) (http.Handler, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Errorf("auth service is required")
	case deps.Guard == nil:
		return nil, oops.Errorf("guard is required")
	case deps.Contacts == nil:
		return nil, oops.Errorf("contacts service is required")
	case deps.Uploads == nil:
		return nil, oops.Errorf("upload store is required")
	}

	s := &server{
		auth:         deps.Auth,
		guard:        deps.Guard,
		contacts:     deps.Contacts,
		uploads:      deps.Uploads,
		maxUpload:    deps.MaxUploadBytes,
		cookieSecure: deps.CookieSecure,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = upload.DefaultMaxBytes
	}
	if s.metrics == nil {
		s.metrics = nopRequestRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/verify", s.handleVerify)
	r.Post("/forgot-password", s.handleForgotPassword)
	r.Post("/reset-password", s.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/account", s.handleAccount)
		r.Post("/profile-picture", s.handleProfilePicture)
		r.Post("/languages", s.handleLanguages)

		r.Get("/contacts", s.handleListContacts)
		r.Post("/contacts", s.handleAddContact)
		r.Delete("/contacts/{username}", s.handleRemoveContact)
		r.Post("/blocks", s.handleBlock)
		r.Delete("/blocks/{username}", s.handleUnblock)

		r.Get("/profiles/{username}", s.handleProfile)
		r.Get("/users", s.handleDirectory)
	})

	if deps.UploadDir != "" {
		files := http.StripPrefix(upload.PublicPrefix, http.FileServer(http.Dir(deps.UploadDir)))
		r.Get(upload.PublicPrefix+"*", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				http.NotFound(w, r)
				return
			}
			files.ServeHTTP(w, r)
		})
	}

	return r, nil
}
