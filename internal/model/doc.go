// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation tree nodes.
//
// This package defines the core domain types used throughout the application
// for representing a branching question/answer tree.
//
// # Key Types
//
//   - Node: Single question/answer exchange with parent/child links
//   - Position: 2-D display coordinate for a node
//   - Section: One labeled sub-span of an answer's text
//
// # Usage
//
// Create a new root node:
//
//	n := model.NewNode("Question 1", "What is a monad?", answer)
//
// Create a branch from an existing node:
//
//	child := model.NewNode("Follow-up 1", "And in Go?", answer)
//	child.ParentID = n.ID
package model
