// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layout computes deterministic display positions for tree nodes.
//
// The engine places nodes on a grid derived from depth and creation order:
// all nodes at the same depth share a horizontal row in insertion order
// (regardless of which parent they belong to) and deeper rows drift right
// in a diagonal cascade so unrelated branches sharing a depth don't
// overlap.
//
// Layout is a pure function over a tree snapshot. The engine never reads or
// writes node positions itself; callers apply the returned mapping.
package layout
