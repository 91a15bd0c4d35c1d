// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tree

import "github.com/jeranaias/treeline/internal/model"

// Restore rebuilds a store from persisted nodes and a persisted root
// sequence, normalizing whatever it finds into an invariant-satisfying tree.
//
// Persisted data from older versions (or hand-edited exports) may carry
// dangling parents, stale children lists, or an incomplete root sequence.
// Restore is the one place that repairs all of that, so every other
// component only ever sees a well-formed tree:
//
//   - a ParentID naming a missing node is cleared (the node becomes a root)
//   - ChildrenIDs are rebuilt from the actual ParentID links, keeping the
//     stored order for entries that are still correct
//   - the root sequence keeps its stored order, with unlisted roots
//     appended in node order
//   - the insertion sequence follows the stored node order, so a restored
//     tree lays out exactly like the one that was saved
func Restore(nodes []*model.Node, rootIDs []string) *Store {
	s := NewStore()

	for _, n := range nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if _, ok := s.nodes[n.ID]; !ok {
			s.order = append(s.order, n.ID)
		}
		s.nodes[n.ID] = n
	}

	// Clear dangling parents before shape is derived from ParentID.
	for _, n := range s.nodes {
		if n.ParentID != "" {
			if _, ok := s.nodes[n.ParentID]; !ok {
				n.ParentID = ""
			}
		}
	}

	// Rebuild each children list: stored order first (dropping entries that
	// are stale), then any unlisted children in input order.
	listed := make(map[string]bool, len(nodes))
	for _, n := range s.nodes {
		kept := make([]string, 0, len(n.ChildrenIDs))
		seen := make(map[string]bool, len(n.ChildrenIDs))
		for _, childID := range n.ChildrenIDs {
			child, ok := s.nodes[childID]
			if !ok || child.ParentID != n.ID || seen[childID] {
				continue
			}
			seen[childID] = true
			listed[childID] = true
			kept = append(kept, childID)
		}
		n.ChildrenIDs = kept
	}
	for _, n := range nodes {
		if n == nil || n.ParentID == "" || listed[n.ID] {
			continue
		}
		if parent, ok := s.nodes[n.ParentID]; ok {
			parent.ChildrenIDs = append(parent.ChildrenIDs, n.ID)
		}
	}

	// Root sequence: stored order for real roots, then unlisted roots.
	seenRoot := make(map[string]bool, len(rootIDs))
	for _, id := range rootIDs {
		n, ok := s.nodes[id]
		if !ok || n.ParentID != "" || seenRoot[id] {
			continue
		}
		seenRoot[id] = true
		s.rootIDs = append(s.rootIDs, id)
	}
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if current, ok := s.nodes[n.ID]; ok && current.ParentID == "" && !seenRoot[n.ID] {
			seenRoot[n.ID] = true
			s.rootIDs = append(s.rootIDs, n.ID)
		}
	}

	return s
}
