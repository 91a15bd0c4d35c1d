// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages named, persisted conversation trees.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/tree"
)

// =============================================================================
// SERIALIZED TREE FORM
// =============================================================================

// NodeEntry is one [id, node] pair in the serialized tree. The in-memory
// node container is a map, but the persisted representation commits to an
// ordered list of pairs so the export format stays stable and diffable.
type NodeEntry struct {
	ID   string
	Node *model.Node
}

// MarshalJSON encodes the entry as a two-element array.
func (e NodeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Node})
}

// UnmarshalJSON decodes a two-element [id, node] array.
func (e *NodeEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("node entry: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.ID); err != nil {
		return fmt.Errorf("node entry id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Node); err != nil {
		return fmt.Errorf("node entry node: %w", err)
	}
	return nil
}

// TreeDoc is the serialized form of one conversation tree.
type TreeDoc struct {
	Nodes   []NodeEntry `json:"nodes"`
	RootIDs []string    `json:"root_ids"`
}

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is a named, timestamped wrapper around one serialized tree.
// Sessions are mutually independent; nodes are never shared between them.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tree      *TreeDoc  `json:"tree"`
}

// Meta is lightweight session metadata for listing.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	NodeCount int       `json:"node_count"`
}

// =============================================================================
// TREE (DE)SERIALIZATION
// =============================================================================

// snapshotTree flattens a store into its serialized form. Nodes are emitted
// in insertion order, which keeps the document stable for an unchanged tree
// and carries the order the layout engine depends on through a save/load
// cycle.
func snapshotTree(s *tree.Store) *TreeDoc {
	doc := &TreeDoc{
		Nodes:   make([]NodeEntry, 0, s.Len()),
		RootIDs: s.RootIDs(),
	}

	nodes := s.Nodes()
	for _, id := range s.NodeOrder() {
		n, ok := nodes[id]
		if !ok {
			continue
		}
		doc.Nodes = append(doc.Nodes, NodeEntry{ID: id, Node: n.Clone()})
	}

	return doc
}

// restoreTree rebuilds a store from a serialized tree, normalizing the
// shape and back-filling advisory names that older formats did not persist.
// This is the single migration point: every component downstream of it sees
// a fully populated, invariant-satisfying tree.
func restoreTree(doc *TreeDoc) *tree.Store {
	if doc == nil {
		return tree.NewStore()
	}

	nodes := make([]*model.Node, 0, len(doc.Nodes))
	for _, entry := range doc.Nodes {
		if entry.Node == nil {
			continue
		}
		n := entry.Node.Clone()
		if n.ID == "" {
			n.ID = entry.ID
		}
		nodes = append(nodes, n)
	}

	s := tree.Restore(nodes, doc.RootIDs)
	backfillNames(s)
	return s
}

// backfillNames assigns position-derived advisory names to nodes persisted
// by versions that predate the name field.
func backfillNames(s *tree.Store) {
	nodes := s.Nodes()

	for i, id := range s.RootIDs() {
		if n, ok := nodes[id]; ok && n.Name == "" {
			n.Name = fmt.Sprintf("Question %d", i+1)
		}
	}
	for _, parent := range nodes {
		for i, childID := range parent.ChildrenIDs {
			if child, ok := nodes[childID]; ok && child.Name == "" {
				child.Name = fmt.Sprintf("Follow-up %d", i+1)
			}
		}
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GenerateSessionID creates a unique session ID.
func GenerateSessionID() string {
	return "sess_" + uuid.NewString()
}
