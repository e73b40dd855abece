// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of every issued token (session keys, verification
// and reset tokens). Hex encoding doubles it to 64 URL-safe characters.
const TokenBytes = 32

// GenerateToken returns a fresh random token and the hash to persist for it.
// Only the hash is stored; the token leaves the process in a link or cookie.
func GenerateToken() (token, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken computes the hex-encoded SHA-256 of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
