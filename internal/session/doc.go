// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages named, persisted conversation trees.
//
// A Manager wraps zero or more sessions, exactly one of which is active.
// The active session's tree is the working tree the UI mutates; every
// mutation autosaves back into the session entry and persists the whole
// session index to the key-value store.
//
// # Key Types
//
//   - Manager: owns the session set, the active ID, and the working tree
//   - Session: named, timestamped serialized tree snapshot
//   - ExportDoc: versioned self-contained export of one session
//
// # Persistence
//
// Three logical keys are used: the session index, the active-session
// marker, and a legacy single-tree blob that is migrated into a session
// once on first load and then discarded. Store failures are logged, never
// propagated: the in-memory state stays authoritative and the next
// mutation retries the save.
package session
