// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tree implements the conversation tree store.
//
// A Store owns one branching tree of question/answer nodes and exposes the
// mutation surface the rest of the application builds on: insertion,
// non-structural updates, cascading deletion, ancestor chains, and
// deterministic advisory naming.
//
// # Key Types
//
//   - Store: One conversation tree (node map + ordered root set)
//   - Update: Non-structural field merge for UpdateNode
//
// # Invariants
//
// After every mutation:
//
//  1. Every node's ParentID is empty or names an existing node whose
//     ChildrenIDs contains the node.
//  2. The root set equals exactly the nodes with empty ParentID.
//  3. Following ParentID links always terminates at a root.
//  4. ChildrenIDs contains no duplicates and no dangling IDs.
//
// CheckInvariants verifies all four and is used by the package tests.
package tree
