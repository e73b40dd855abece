// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Repository sentinels. Implementations wrap these so callers can match with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateUsername is returned when a user with the same username already exists.
	ErrDuplicateUsername = errors.New("username already taken")
)

// Error codes returned by the credential and session lifecycle.
const (
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeDuplicateUsername  = "AUTH_DUPLICATE_USERNAME"
	CodePasswordMismatch   = "AUTH_PASSWORD_MISMATCH"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeNotVerified        = "AUTH_NOT_VERIFIED"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID_OR_EXPIRED"
	CodeNoSuchAccount      = "AUTH_NO_SUCH_ACCOUNT"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeStorageUnavailable = "AUTH_STORAGE_UNAVAILABLE"
	CodeInvalidPassword    = "AUTH_INVALID_PASSWORD"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeInvalidEmail       = "AUTH_INVALID_EMAIL"
	CodeInvalidRole        = "AUTH_INVALID_ROLE"
	CodeInvalidLanguage    = "AUTH_INVALID_LANGUAGE"
)

// userFacing lists the codes that describe a caller mistake rather than an
// infrastructure failure.
var userFacing = map[string]struct{}{
	CodeDuplicateEmail:     {},
	CodeDuplicateUsername:  {},
	CodePasswordMismatch:   {},
	CodeInvalidCredentials: {},
	CodeNotVerified:        {},
	CodeTokenInvalid:       {},
	CodeNoSuchAccount:      {},
	CodeUnauthenticated:    {},
	CodeInvalidPassword:    {},
	CodeInvalidUsername:    {},
	CodeInvalidEmail:       {},
	CodeInvalidRole:        {},
	CodeInvalidLanguage:    {},
}

// Code classifies err into one of the codes above. Nil yields "". Any error
// that does not carry a user-facing code is reported as CodeStorageUnavailable.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			if _, known := userFacing[code]; known {
				return code
			}
		}
	}
	return CodeStorageUnavailable
}

// storageErr wraps an infrastructure failure with the storage code.
func storageErr(operation string, err error) error {
	return oops.Code(CodeStorageUnavailable).With("operation", operation).Wrap(err)
}
