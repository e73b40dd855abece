// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package config

import (
	"log/slog"
	"slices"

	"github.com/samber/oops"

	"github.com/lingopal/lingopal/internal/mail"
)

// Validate reports the first invalid setting as a CONFIG_INVALID error
// carrying the offending key.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "listen address is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "must be json or text")
	}
	if _, err := c.LogLevel(); err != nil {
		return invalid("log.level", "must be debug, info, warn or error")
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return invalid("storage.database_url", "required for the postgres driver")
		}
	case DriverMemory:
	default:
		return invalid("storage.driver", "must be postgres or memory")
	}

	if c.Auth.SessionTTL <= 0 {
		return invalid("auth.session_ttl", "must be positive")
	}
	if c.Auth.VerificationTTL <= 0 {
		return invalid("auth.verification_ttl", "must be positive")
	}
	if c.Auth.ResetTTL <= 0 {
		return invalid("auth.reset_ttl", "must be positive")
	}
	if err := c.Auth.Argon2.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "auth.argon2").Wrap(err)
	}
	if _, err := mail.NewLinks(c.Auth.BaseURL); err != nil {
		return invalid("auth.base_url", "must be an absolute URL")
	}

	switch c.Mail.Driver {
	case DriverLog:
	case DriverSMTP:
		if err := c.Mail.SMTP.Validate(); err != nil {
			return oops.Code("CONFIG_INVALID").With("key", "mail.smtp").Wrap(err)
		}
	case DriverKafka:
		if err := c.Mail.Kafka.Validate(); err != nil {
			return oops.Code("CONFIG_INVALID").With("key", "mail.kafka").Wrap(err)
		}
	default:
		return invalid("mail.driver", "must be log, smtp or kafka")
	}

	switch c.Upload.Driver {
	case DriverDisk:
		if c.Upload.Dir == "" {
			return invalid("upload.dir", "required for the disk driver")
		}
	case DriverS3:
		if c.Upload.S3.Bucket == "" {
			return invalid("upload.s3.bucket", "required for the s3 driver")
		}
	default:
		return invalid("upload.driver", "must be disk or s3")
	}
	if c.Upload.MaxBytes <= 0 {
		return invalid("upload.max_bytes", "must be positive")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}
	return level, nil
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s: %s", key, msg)
}
