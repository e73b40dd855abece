// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/upload"
)

// ProfilePictureField is the multipart field carrying the picture.
const ProfilePictureField = "profilePicture"

// multipartOverhead leaves room for boundaries and headers above the file cap.
const multipartOverhead = 64 << 10

type languagesRequest struct {
	FluentLanguages   []string `json:"fluent_languages" validate:"required"`
	LearningLanguages []string `json:"learning_languages" validate:"required"`
}

// current is only called behind requireSession.
func current(r *http.Request) *auth.Session {
	session, _ := SessionFromContext(r.Context())
	return session
}

func (s *server) handleAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, current(r).Data)
}

func (s *server) handleProfilePicture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	file, header, err := r.FormFile(ProfilePictureField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = oops.Code(upload.CodeTooLarge).With("max_bytes", s.maxUpload).Errorf("file exceeds %d bytes", s.maxUpload)
		} else {
			err = oops.Code(CodeInvalidRequest).Errorf("multipart field %q is required", ProfilePictureField)
		}
		writeError(w, r, s.logger, err)
		return
	}
	defer file.Close()

	if err := upload.Validate(header.Filename, header.Size, s.maxUpload); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	path, err := s.uploads.Put(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	updated, err := s.auth.UpdateProfilePicture(r.Context(), current(r), path)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Data)
}

func (s *server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	var req languagesRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	updated, err := s.auth.UpdateLanguages(r.Context(), current(r), req.FluentLanguages, req.LearningLanguages)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Data)
}
