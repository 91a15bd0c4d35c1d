// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment splits raw answer text into labeled, index-stable sections.
//
// Segmentation is a pure function over text: the same input always yields
// the same ordered sections. The tree engine calls it lazily for nodes that
// lack cached sections and never for nodes that already have them.
package segment
