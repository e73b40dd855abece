// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package config loads LingoPal configuration.
//
// Sources are applied in order, later ones winning: built-in defaults, a
// YAML file, LINGOPAL_* environment variables, and command-line flags. In
// environment variable names a double underscore separates sections, so
// LINGOPAL_AUTH__SESSION_TTL sets auth.session_ttl.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/mail"
	"github.com/lingopal/lingopal/internal/upload"
	"github.com/lingopal/lingopal/internal/xdg"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "LINGOPAL_"

// Config is the complete service configuration.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Storage StorageConfig `koanf:"storage"`
	Auth    AuthConfig    `koanf:"auth"`
	Mail    MailConfig    `koanf:"mail"`
	Upload  UploadConfig  `koanf:"upload"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the metrics and health listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver      string `koanf:"driver"`
	DatabaseURL string `koanf:"database_url"`
}

// AuthConfig configures the credential and session lifecycle.
type AuthConfig struct {
	SessionTTL            time.Duration     `koanf:"session_ttl"`
	VerificationTTL       time.Duration     `koanf:"verification_ttl"`
	ResetTTL              time.Duration     `koanf:"reset_ttl"`
	Argon2                auth.Argon2Params `koanf:"argon2"`
	RevealUnknownAccounts bool              `koanf:"reveal_unknown_accounts"`
	CookieSecure          bool              `koanf:"cookie_secure"`
	BaseURL               string            `koanf:"base_url"`
}

// MailConfig selects and configures email delivery.
type MailConfig struct {
	Driver string           `koanf:"driver"`
	SMTP   mail.SMTPConfig  `koanf:"smtp"`
	Kafka  mail.KafkaConfig `koanf:"kafka"`
}

// UploadConfig selects and configures profile picture storage.
type UploadConfig struct {
	Driver   string          `koanf:"driver"`
	Dir      string          `koanf:"dir"`
	MaxBytes int64           `koanf:"max_bytes"`
	S3       upload.S3Config `koanf:"s3"`
}

// Storage, mail and upload drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverLog      = "log"
	DriverSMTP     = "smtp"
	DriverKafka    = "kafka"
	DriverDisk     = "disk"
	DriverS3       = "s3"
)

// Defaults returns the built-in configuration as a flat koanf map.
func Defaults() map[string]any {
	argon := auth.DefaultArgon2Params()
	uploads, err := xdg.UploadsDir()
	if err != nil {
		uploads = "uploads"
	}
	return map[string]any{
		"http.addr":                    ":8080",
		"http.read_timeout":            "15s",
		"http.write_timeout":           "30s",
		"http.shutdown_timeout":        "10s",
		"metrics.addr":                 ":9100",
		"log.format":                   "json",
		"log.level":                    "info",
		"storage.driver":               DriverMemory,
		"storage.database_url":         "",
		"auth.session_ttl":             auth.DefaultSessionTTL.String(),
		"auth.verification_ttl":        auth.DefaultVerificationTTL.String(),
		"auth.reset_ttl":               auth.DefaultResetTTL.String(),
		"auth.argon2.time":             argon.Time,
		"auth.argon2.memory":           argon.Memory,
		"auth.argon2.threads":          argon.Threads,
		"auth.argon2.salt_len":         argon.SaltLen,
		"auth.argon2.key_len":          argon.KeyLen,
		"auth.reveal_unknown_accounts": false,
		"auth.cookie_secure":           false,
		"auth.base_url":                "http://localhost:8080",
		"mail.driver":                  DriverLog,
		"mail.smtp.port":               587,
		"mail.kafka.topic":             "lingopal.mail",
		"mail.kafka.group_id":          "lingopal-mailer",
		"upload.driver":                DriverDisk,
		"upload.dir":                   uploads,
		"upload.max_bytes":             upload.DefaultMaxBytes,
	}
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is an explicit config path. It must exist when set. When empty
	// the XDG default is read if present.
	File string
	// Flags are applied last. Only flags listed in FlagKeys are used.
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"storage":      "storage.driver",
	"database-url": "storage.database_url",
	"mail":         "mail.driver",
	"base-url":     "auth.base_url",
}

// Load assembles the configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	_, cfg, err := load(opts)
	return cfg, err
}

// secretKeys are masked by Effective.
var secretKeys = []string{
	"storage.database_url",
	"mail.smtp.password",
	"upload.s3.access_key",
	"upload.s3.secret_key",
}

// Masked replaces secret values in Effective output.
const Masked = "********"

// Effective returns the merged, validated configuration as a nested map
// with secrets masked.
func Effective(opts LoadOptions) (map[string]any, error) {
	k, _, err := load(opts)
	if err != nil {
		return nil, err
	}
	for _, key := range secretKeys {
		if k.String(key) == "" {
			continue
		}
		if err := k.Set(key, Masked); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}
	return k.Raw(), nil
}

func load(opts LoadOptions) (*koanf.Koanf, *Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if err := loadFile(k, opts.File); err != nil {
		return nil, nil, err
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return k, &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = xdg.ConfigFile(); err != nil {
			return nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
	}
	return nil
}
