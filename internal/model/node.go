// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation tree nodes.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// POSITION AND SECTION TYPES
// =============================================================================

// Position is a 2-D display coordinate. Positions are assigned either by
// manual placement in the display layer or by the auto-layout engine.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Section is one labeled sub-span of an answer's text. The Index is stable
// for the lifetime of the cached section list on a node.
type Section struct {
	Index int    `json:"index"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

// =============================================================================
// NODE TYPE
// =============================================================================

// Node is one question/answer exchange in a conversation tree.
//
// ParentID is the single source of truth for tree shape; ChildrenIDs is
// bookkeeping maintained by the tree store and must always equal the set of
// nodes whose ParentID is this node's ID, in insertion order.
type Node struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Exchange content
	Question string `json:"question"`
	Answer   string `json:"answer"`

	// AnswerSections caches the segmented answer. Older persisted nodes may
	// lack it; it is regenerated on demand from Answer.
	AnswerSections []Section `json:"answer_sections,omitempty"`

	// Tree shape
	ParentID    string   `json:"parent_id,omitempty"`
	ChildrenIDs []string `json:"children_ids"`

	// SelectedSectionIndexFromParent is the index into the parent's
	// AnswerSections used as this node's context source. Nil means the full
	// parent answer was used.
	SelectedSectionIndexFromParent *int `json:"selected_section_index_from_parent,omitempty"`

	// Display state
	Position    Position `json:"position"`
	IsCollapsed bool     `json:"is_collapsed"`

	// Timestamp is wall-clock creation time. Used for display ordering only,
	// never for tree ordering.
	Timestamp time.Time `json:"timestamp"`
}

// NewNode creates a node with a generated ID and the current timestamp.
// The caller sets ParentID before inserting into a tree store.
func NewNode(name, question, answer string) *Node {
	return &Node{
		ID:          GenerateNodeID(),
		Name:        name,
		Question:    question,
		Answer:      answer,
		ChildrenIDs: make([]string, 0),
		Timestamp:   time.Now(),
	}
}

// IsRoot returns true if the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// HasSection returns true if idx is a valid index into the cached sections.
func (n *Node) HasSection(idx int) bool {
	return idx >= 0 && idx < len(n.AnswerSections)
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n

	clone.ChildrenIDs = make([]string, len(n.ChildrenIDs))
	copy(clone.ChildrenIDs, n.ChildrenIDs)

	if n.AnswerSections != nil {
		clone.AnswerSections = make([]Section, len(n.AnswerSections))
		copy(clone.AnswerSections, n.AnswerSections)
	}

	if n.SelectedSectionIndexFromParent != nil {
		idx := *n.SelectedSectionIndexFromParent
		clone.SelectedSectionIndexFromParent = &idx
	}

	return &clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GenerateNodeID creates a unique node ID.
func GenerateNodeID() string {
	return "node_" + uuid.NewString()
}
