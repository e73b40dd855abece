// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters encoded into every hash.
type Argon2Params struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"` // KiB
	Threads uint8  `koanf:"threads"`
	SaltLen uint32 `koanf:"salt_len"`
	KeyLen  uint32 `koanf:"key_len"`
}

// DefaultArgon2Params returns the OWASP recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Validate reports parameters argon2 cannot work with.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 time must be positive")
	case p.Memory < 8*uint32(p.Threads) || p.Memory == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("memory", p.Memory).
			With("threads", p.Threads).
			Errorf("argon2 memory must be at least 8 KiB per thread")
	case p.Threads == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 threads must be positive")
	case p.SaltLen < 8:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 salt must be at least 8 bytes")
	case p.KeyLen < 16:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 key must be at least 16 bytes")
	}
	return nil
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeInvalidPassword).Errorf("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a PHC-encoded hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade reports whether hash was produced with other parameters
	// than the hasher's current ones.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates a hasher with the given parameters.
func NewArgon2idHasher(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the parameters new hashes are produced with.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password.
// Format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	decoded, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), decoded.salt,
		decoded.params.Time, decoded.params.Memory, decoded.params.Threads, decoded.params.KeyLen)

	return subtle.ConstantTimeCompare(computed, decoded.key) == 1, nil
}

// NeedsUpgrade returns true for non-argon2id hashes and for argon2id hashes
// whose cost parameters differ from the configured ones.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	decoded, err := decodeArgon2id(encodedHash)
	if err != nil {
		return true
	}
	return decoded.version != argon2.Version ||
		decoded.params.Time != h.params.Time ||
		decoded.params.Memory != h.params.Memory ||
		decoded.params.Threads != h.params.Threads ||
		decoded.params.KeyLen != h.params.KeyLen
}

type argon2idHash struct {
	version int
	params  Argon2Params
	salt    []byte
	key     []byte
}

func decodeArgon2id(encoded string) (*argon2idHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	out := &argon2idHash{}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &out.version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.params.Memory, &out.params.Time, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}
	out.params.Threads = uint8(threads)

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(out.key) == 0 || len(out.key) > 1<<30 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(out.key))
	}
	out.params.SaltLen = uint32(len(out.salt))
	out.params.KeyLen = uint32(len(out.key))
	return out, nil
}
