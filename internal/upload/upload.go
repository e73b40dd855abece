// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package upload validates and stores profile pictures.
package upload

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DefaultMaxBytes caps uploads at 5 MiB.
const DefaultMaxBytes int64 = 5 << 20

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "/uploads/"

// Error codes returned by Validate.
const (
	CodeInvalidType = "UPLOAD_INVALID_TYPE"
	CodeEmpty       = "UPLOAD_EMPTY"
	CodeTooLarge    = "UPLOAD_TOO_LARGE"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
}

// Store persists an uploaded file and returns the public path it is served at.
type Store interface {
	Put(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Validate checks the extension allow-list and the payload size. A
// non-positive maxBytes uses DefaultMaxBytes.
func Validate(filename string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return oops.Code(CodeInvalidType).
			With("filename", filename).
			Errorf("only .jpg, .jpeg, .png and .gif files are allowed")
	}
	if size <= 0 {
		return oops.Code(CodeEmpty).With("filename", filename).Errorf("file is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size > maxBytes {
		return oops.Code(CodeTooLarge).
			With("size", size).
			With("max_bytes", maxBytes).
			Errorf("file exceeds %d bytes", maxBytes)
	}
	return nil
}

// SanitizeName strips directories from filename and replaces every byte
// outside [A-Za-z0-9._-] with an underscore.
func SanitizeName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "upload"
	}
	return name
}

// objectName prefixes the sanitized name with the upload time in unix milliseconds.
func objectName(now time.Time, filename string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeName(filename)
}
