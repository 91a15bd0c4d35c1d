// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persisted key-value store for treeline.
//
// The session manager reads and writes a handful of logical keys (the
// session index, the active-session marker, and the legacy single-tree
// blob). Two backends implement the same KV interface:
//
//   - SQLiteStore: a kv table in a SQLite database (the default)
//   - FileStore: one JSON file per key, written atomically
//
// Reads of absent keys return ErrKeyNotFound; writes are synchronous and
// best-effort from the caller's point of view (the session manager logs
// failures instead of propagating them).
package storage
