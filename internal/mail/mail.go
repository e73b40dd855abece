// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package mail delivers verification and password reset emails.
//
// A Dispatcher turns a token into a link and hands it to a transport: the
// log (development), SMTP directly, or a Kafka topic drained by Worker.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/oops"
)

// Dispatcher sends the two account emails. It satisfies auth.Mailer.
type Dispatcher interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// Kind identifies the email template.
type Kind string

// Email kinds.
const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Links builds the URLs embedded in account emails.
type Links struct {
	base string
}

// NewLinks validates baseURL and returns a link builder rooted at it.
func NewLinks(baseURL string) (Links, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Links{}, oops.Code("MAIL_INVALID_BASE_URL").
			With("base_url", baseURL).
			Errorf("base URL must be absolute")
	}
	return Links{base: strings.TrimRight(baseURL, "/")}, nil
}

// Verify returns <base>/verify?token=<token>.
func (l Links) Verify(token string) string {
	return l.base + "/verify?token=" + url.QueryEscape(token)
}

// Reset returns <base>/reset-password?token=<token>.
func (l Links) Reset(token string) string {
	return l.base + "/reset-password?token=" + url.QueryEscape(token)
}

// For returns the link for kind.
func (l Links) For(kind Kind, token string) (string, error) {
	switch kind {
	case KindVerification:
		return l.Verify(token), nil
	case KindPasswordReset:
		return l.Reset(token), nil
	default:
		return "", unknownKind(kind)
	}
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Compose renders the email of kind carrying link.
func Compose(kind Kind, to, link string) (Message, error) {
	switch kind {
	case KindVerification:
		return Message{
			To:      to,
			Subject: "Verify your LingoPal account",
			Body: fmt.Sprintf("Welcome to LingoPal!\n\nConfirm your email address by opening this link:\n\n%s\n\n"+
				"If you did not create an account you can ignore this message.\n", link),
		}, nil
	case KindPasswordReset:
		return Message{
			To:      to,
			Subject: "Reset your LingoPal password",
			Body: fmt.Sprintf("Someone asked to reset the password of your LingoPal account.\n\n"+
				"Choose a new password here:\n\n%s\n\nIf it wasn't you, no action is needed.\n", link),
		}, nil
	default:
		return Message{}, unknownKind(kind)
	}
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func unknownKind(kind Kind) error {
	return oops.Code("MAIL_UNKNOWN_KIND").With("kind", string(kind)).Errorf("unknown email kind %q", kind)
}
