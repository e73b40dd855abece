// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package mail

import (
	"context"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Validate checks that the settings can reach a server.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return oops.Code("MAIL_SMTP_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return oops.Code("MAIL_SMTP_CONFIG_INVALID").With("port", c.Port).Errorf("smtp port out of range")
	}
	if c.From == "" {
		return oops.Code("MAIL_SMTP_CONFIG_INVALID").Errorf("smtp from address is required")
	}
	return nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers messages with gomail.
type SMTPSender struct {
	from   string
	dialer dialer
}

// NewSMTPSender creates an SMTPSender from cfg.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send delivers msg. gomail has no context support, so ctx is only checked
// before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", msg.To).Wrap(err)
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("to", msg.To).Wrap(err)
	}
	return nil
}

// SMTPDispatcher renders account emails and sends them synchronously.
type SMTPDispatcher struct {
	links  Links
	sender Sender
}

// NewSMTPDispatcher creates a dispatcher that delivers through sender.
func NewSMTPDispatcher(links Links, sender Sender) *SMTPDispatcher {
	return &SMTPDispatcher{links: links, sender: sender}
}

// SendVerificationEmail sends the verification link to email.
func (d *SMTPDispatcher) SendVerificationEmail(ctx context.Context, email, token string) error {
	return d.send(ctx, KindVerification, email, d.links.Verify(token))
}

// SendPasswordResetEmail sends the reset link to email.
func (d *SMTPDispatcher) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	return d.send(ctx, KindPasswordReset, email, d.links.Reset(token))
}

func (d *SMTPDispatcher) send(ctx context.Context, kind Kind, email, link string) error {
	msg, err := Compose(kind, email, link)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, msg)
}

var (
	_ Sender     = (*SMTPSender)(nil)
	_ Dispatcher = (*SMTPDispatcher)(nil)
)
