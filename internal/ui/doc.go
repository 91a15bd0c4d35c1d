// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the terminal interface for treeline.
//
// The app is a single Bubble Tea model with two panes: a tree outline of
// the active session and a detail view of the selected node's answer,
// rendered as markdown. It consumes the tree store, session manager,
// layout engine, and Ollama client; it owns no conversation state itself.
package ui
