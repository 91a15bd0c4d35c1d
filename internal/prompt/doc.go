// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt renders ancestor chains into language-model prompts.
//
// BuildContext derives the context block fed to the model from a node's
// root-to-node chain, applying the section-selection rules; BuildPrompt
// combines a context block with the user's new question. Both are pure
// functions over a tree snapshot and never mutate nodes.
package prompt
