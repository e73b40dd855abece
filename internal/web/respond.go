// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/contacts"
	"github.com/lingopal/lingopal/internal/upload"
	"github.com/lingopal/lingopal/pkg/errutil"
)

// CodeInvalidRequest marks a malformed or incomplete request body.
const CodeInvalidRequest = "REQUEST_INVALID"

// CodeInternal is reported to clients for every unexpected failure.
const CodeInternal = "INTERNAL"

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

var statusByCode = map[string]int{
	CodeInvalidRequest:          http.StatusBadRequest,
	auth.CodePasswordMismatch:   http.StatusBadRequest,
	auth.CodeInvalidPassword:    http.StatusBadRequest,
	auth.CodeInvalidUsername:    http.StatusBadRequest,
	auth.CodeInvalidEmail:       http.StatusBadRequest,
	auth.CodeInvalidRole:        http.StatusBadRequest,
	auth.CodeInvalidLanguage:    http.StatusBadRequest,
	auth.CodeTokenInvalid:       http.StatusBadRequest,
	auth.CodeInvalidCredentials: http.StatusUnauthorized,
	auth.CodeUnauthenticated:    http.StatusUnauthorized,
	auth.CodeNotVerified:        http.StatusForbidden,
	auth.CodeNoSuchAccount:      http.StatusNotFound,
	auth.CodeDuplicateEmail:     http.StatusConflict,
	auth.CodeDuplicateUsername:  http.StatusConflict,
	contacts.CodeInvalidTarget:  http.StatusBadRequest,
	contacts.CodeSelf:           http.StatusBadRequest,
	contacts.CodeBlocked:        http.StatusForbidden,
	contacts.CodeUnknownUser:    http.StatusNotFound,
	contacts.CodeAlreadyContact: http.StatusConflict,
	upload.CodeInvalidType:      http.StatusBadRequest,
	upload.CodeEmpty:            http.StatusBadRequest,
	upload.CodeTooLarge:         http.StatusRequestEntityTooLarge,
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// statusFor maps err to an HTTP status and the code shown to the client.
func statusFor(err error) (int, string) {
	code := errutil.Code(err)
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeError renders err. Unexpected failures get a generic body and are
// logged with their full context.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	message := http.StatusText(status)
	if status == http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), logger, slog.LevelError, "request failed", err)
	} else if oopsErr, ok := oops.AsOops(err); ok {
		message = oopsErr.Error()
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads a JSON body into dst and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return oops.Code(CodeInvalidRequest).Errorf("malformed JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				fields = append(fields, fe.Field())
			}
			return oops.Code(CodeInvalidRequest).
				With("fields", fields).
				Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return oops.Code(CodeInvalidRequest).Wrap(err)
	}
	return nil
}
