// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lingopal/lingopal/internal/auth"
)

type targetRequest struct {
	Username string `json:"username" validate:"required"`
}

type contactMutation func(ctx context.Context, owner, target string) (auth.Snapshot, error)

func (s *server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.contacts.List(r.Context(), current(r).Data.Username)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	s.mutateFromBody(w, r, s.contacts.Add)
}

func (s *server) handleBlock(w http.ResponseWriter, r *http.Request) {
	s.mutateFromBody(w, r, s.contacts.Block)
}

func (s *server) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.contacts.Remove, chi.URLParam(r, "username"))
}

func (s *server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.contacts.Unblock, chi.URLParam(r, "username"))
}

func (s *server) mutateFromBody(w http.ResponseWriter, r *http.Request, op contactMutation) {
	var req targetRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.mutate(w, r, op, req.Username)
}

// mutate applies op and answers with the refreshed snapshot. The contacts
// service already refreshed every session of the owner.
func (s *server) mutate(w http.ResponseWriter, r *http.Request, op contactMutation, target string) {
	snap, err := op(r.Context(), current(r).Data.Username, target)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.contacts.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.contacts.Directory(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
