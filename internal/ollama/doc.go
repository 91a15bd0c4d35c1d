// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API.
//
// Treeline only needs the non-streaming surface: a health check, the model
// list, and single-shot prompt completion. Requests are rate limited so a
// burst of branch creations cannot flood the local server.
package ollama
