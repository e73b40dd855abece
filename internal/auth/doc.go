// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package auth implements the LingoPal session and credential lifecycle.
//
// # Domain Types
//
// User and Session should be created with their constructors:
//   - NewUser - validates username, email, password hash and role
//   - NewSession - validates user, key hash and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Components
//
//   - CredentialStore - users, password hashes, verification and reset tokens
//   - SessionStore - opaque-key sessions carrying a profile Snapshot
//   - Service - register, verify, login, logout, password reset, profile updates
//   - Guard - turns a presented key into a live session or CodeUnauthenticated
//
// Tokens and session keys are 32 random bytes, hex encoded. Only their SHA-256
// hashes are persisted. Failures carry samber/oops codes; Code classifies an
// error for transports.
package auth
