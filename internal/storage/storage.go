// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persisted key-value store for treeline.
package storage

import "errors"

// =============================================================================
// ERRORS
// =============================================================================

// ErrKeyNotFound is returned when a key has no stored value.
// Use errors.Is(err, ErrKeyNotFound) to check for this error.
var ErrKeyNotFound = errors.New("key not found")

// =============================================================================
// KV INTERFACE
// =============================================================================

// KV is the persisted store consumed by the session manager.
//
// There is exactly one writer (the active process); concurrent external
// modification of the same store may silently lose writes and is out of
// scope.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Close releases underlying resources.
	Close() error
}
