// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package errutil bridges samber/oops errors to slog and to tests.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at ERROR with its oops code and context when present.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorContext logs err at level. For oops errors the code and context
// map are attached as separate attributes; other errors log their string.
func LogErrorContext(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Log(ctx, level, msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if values := oopsErr.Context(); len(values) > 0 {
		attrs = append(attrs, "context", values)
	}
	logger.Log(ctx, level, msg, attrs...)
}

// Code returns the oops code of err as a string, or "" when err carries none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
