// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package mail

import (
	"context"
	"log/slog"
)

// LogDispatcher writes account links to the log instead of sending them.
// Intended for local development.
type LogDispatcher struct {
	links  Links
	logger *slog.Logger
}

// NewLogDispatcher creates a LogDispatcher. A nil logger uses slog.Default.
func NewLogDispatcher(links Links, logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{links: links, logger: logger}
}

// SendVerificationEmail logs the verification link.
func (d *LogDispatcher) SendVerificationEmail(ctx context.Context, email, token string) error {
	d.logger.InfoContext(ctx, "verification email", "to", email, "link", d.links.Verify(token))
	return nil
}

// SendPasswordResetEmail logs the reset link.
func (d *LogDispatcher) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	d.logger.InfoContext(ctx, "password reset email", "to", email, "link", d.links.Reset(token))
	return nil
}

var _ Dispatcher = (*LogDispatcher)(nil)
