// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

// Package memory implements the auth repositories in process memory. It backs
// tests and the storage.driver=memory mode; data dies with the process.
package memory
