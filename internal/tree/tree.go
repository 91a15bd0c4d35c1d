// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tree implements the conversation tree store.
package tree

import (
	"errors"
	"fmt"

	"github.com/jeranaias/treeline/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNodeNotFound is returned when a node doesn't exist in the store.
// Use errors.Is(err, ErrNodeNotFound) to check for this error.
var ErrNodeNotFound = errors.New("node not found")

// =============================================================================
// TREE STORE
// =============================================================================

// Store owns one conversation tree: a map from node ID to node plus the
// ordered root ID sequence. A node belongs to exactly one Store.
//
// Store is not safe for concurrent use. The application mutates it from a
// single thread (the UI event loop); there is no background mutation.
type Store struct {
	nodes   map[string]*model.Node
	rootIDs []string

	// order lists node IDs in insertion order, across all branches. The
	// layout engine and the serializer depend on it: sibling placement
	// within a depth row follows creation time, not parent grouping.
	order []string

	// onChange is fired after every mutation that must be persisted.
	onChange func()
}

// NewStore creates an empty tree store.
func NewStore() *Store {
	return &Store{
		nodes:   make(map[string]*model.Node),
		rootIDs: make([]string, 0),
	}
}

// OnChange registers a callback fired after every persisted mutation.
// The session manager uses it to autosave the active session.
func (s *Store) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddNode inserts a node into the tree.
//
// A node without a ParentID is appended to the root sequence. A node whose
// ParentID names an existing node is appended to that parent's ChildrenIDs.
// If the parent does not exist the link is silently skipped and the node is
// inserted as an orphan root.
func (s *Store) AddNode(n *model.Node) {
	if n == nil || n.ID == "" {
		return
	}
	if n.ChildrenIDs == nil {
		n.ChildrenIDs = make([]string, 0)
	}

	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)

	if n.ParentID == "" {
		s.rootIDs = append(s.rootIDs, n.ID)
		s.notify()
		return
	}

	parent, ok := s.nodes[n.ParentID]
	if !ok {
		// Unknown parent: keep the node but treat it as a root so the root
		// set stays equal to the set of unreachable-from-parent nodes.
		n.ParentID = ""
		s.rootIDs = append(s.rootIDs, n.ID)
		s.notify()
		return
	}

	parent.ChildrenIDs = append(parent.ChildrenIDs, n.ID)
	s.notify()
}

// Update carries the non-structural fields UpdateNode may merge into a node.
// Nil fields are left unchanged. Structural fields (ID, ParentID,
// ChildrenIDs) are deliberately absent: tree shape changes only through
// AddNode and DeleteNode.
type Update struct {
	Name                           *string
	Question                       *string
	Answer                         *string
	AnswerSections                 []model.Section
	SelectedSectionIndexFromParent *int
	Position                       *model.Position
	IsCollapsed                    *bool
}

// UpdateNode merges the given fields into an existing node.
// No-op if the ID is unknown.
func (s *Store) UpdateNode(id string, u Update) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}

	if u.Name != nil {
		n.Name = *u.Name
	}
	if u.Question != nil {
		n.Question = *u.Question
	}
	if u.Answer != nil {
		n.Answer = *u.Answer
		// Cached sections no longer describe the answer.
		n.AnswerSections = nil
	}
	if u.AnswerSections != nil {
		n.AnswerSections = u.AnswerSections
	}
	if u.SelectedSectionIndexFromParent != nil {
		idx := *u.SelectedSectionIndexFromParent
		n.SelectedSectionIndexFromParent = &idx
	}
	if u.Position != nil {
		n.Position = *u.Position
	}
	if u.IsCollapsed != nil {
		n.IsCollapsed = *u.IsCollapsed
	}

	s.notify()
}

// DeleteNode removes a node and every transitive descendant.
// No-op if the ID is unknown.
//
// The cascade uses an explicit worklist rather than recursion so deep or
// malformed trees cannot exhaust the stack. Revisiting an already-removed
// node during the cascade is a benign no-op.
func (s *Store) DeleteNode(id string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}

	// Unlink from the parent first so invariant 1 holds throughout.
	if n.ParentID != "" {
		if parent, ok := s.nodes[n.ParentID]; ok {
			parent.ChildrenIDs = removeID(parent.ChildrenIDs, id)
		}
	}

	worklist := []string{id}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		node, ok := s.nodes[cur]
		if !ok {
			continue
		}

		worklist = append(worklist, node.ChildrenIDs...)
		delete(s.nodes, cur)
		s.rootIDs = removeID(s.rootIDs, cur)
		s.order = removeID(s.order, cur)
	}

	s.notify()
}

// ToggleCollapse flips a node's collapsed flag. Display-only state, but
// still persisted. No-op if the ID is unknown.
func (s *Store) ToggleCollapse(id string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	n.IsCollapsed = !n.IsCollapsed
	s.notify()
}

// EnsureSections returns a node's cached answer sections, computing and
// caching them with segment if absent. The segment function is never called
// for a node that already has cached sections.
func (s *Store) EnsureSections(id string, segment func(string) []model.Section) ([]model.Section, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("ensure sections %q: %w", id, ErrNodeNotFound)
	}
	if n.AnswerSections != nil {
		return n.AnswerSections, nil
	}
	n.AnswerSections = segment(n.Answer)
	s.notify()
	return n.AnswerSections, nil
}

// ClearAll resets the store to an empty tree.
func (s *Store) ClearAll() {
	s.nodes = make(map[string]*model.Node)
	s.rootIDs = make([]string, 0)
	s.order = nil
	s.notify()
}

// =============================================================================
// QUERIES
// =============================================================================

// GetNode returns the node with the given ID.
func (s *Store) GetNode(id string) (*model.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("get node %q: %w", id, ErrNodeNotFound)
	}
	return n, nil
}

// GetNodeChain returns the ancestor chain from the root down to and
// including the node with the given ID (root first). Returns an empty slice
// if the ID is unknown.
func (s *Store) GetNodeChain(id string) []*model.Node {
	var chain []*model.Node

	cur, ok := s.nodes[id]
	if !ok {
		return []*model.Node{}
	}

	// Bounded by node count so a malformed parent cycle cannot spin forever.
	for steps := 0; steps <= len(s.nodes); steps++ {
		chain = append(chain, cur)
		if cur.ParentID == "" {
			break
		}
		parent, ok := s.nodes[cur.ParentID]
		if !ok {
			break
		}
		cur = parent
	}

	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Len returns the number of nodes in the tree.
func (s *Store) Len() int {
	return len(s.nodes)
}

// RootIDs returns the ordered root ID sequence.
func (s *Store) RootIDs() []string {
	out := make([]string, len(s.rootIDs))
	copy(out, s.rootIDs)
	return out
}

// NodeIDs returns the IDs of all nodes in the tree, in no particular order.
func (s *Store) NodeIDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	return ids
}

// NodeOrder returns all node IDs in insertion order, across branches.
func (s *Store) NodeOrder() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Nodes returns the underlying node map. Callers must treat it as
// read-only; mutations go through the Store methods.
func (s *Store) Nodes() map[string]*model.Node {
	return s.nodes
}

// IsEmpty returns true if the tree has no nodes.
func (s *Store) IsEmpty() bool {
	return len(s.nodes) == 0
}

// GenerateNodeName returns an advisory label for a new node.
//
// Roots are numbered "Question N" by root count; children are numbered
// "Follow-up N" within the named parent. Names are not identifiers and
// duplicates are permitted.
func (s *Store) GenerateNodeName(parentID string) string {
	if parentID == "" {
		return fmt.Sprintf("Question %d", len(s.rootIDs)+1)
	}
	parent, ok := s.nodes[parentID]
	if !ok {
		return fmt.Sprintf("Question %d", len(s.nodes)+1)
	}
	return fmt.Sprintf("Follow-up %d", len(parent.ChildrenIDs)+1)
}

// =============================================================================
// COPYING AND SNAPSHOT RESTORE
// =============================================================================

// DeepClone returns an independent copy of the tree. Used when a session is
// loaded so edits never alias the stored snapshot.
func (s *Store) DeepClone() *Store {
	clone := NewStore()
	for id, n := range s.nodes {
		clone.nodes[id] = n.Clone()
	}
	clone.rootIDs = append([]string(nil), s.rootIDs...)
	clone.order = append([]string(nil), s.order...)
	return clone
}

// Replace swaps the store's contents for another tree's contents in place,
// preserving the registered OnChange callback. Does not notify.
func (s *Store) Replace(other *Store) {
	s.nodes = other.nodes
	s.rootIDs = other.rootIDs
	s.order = other.order
}

// =============================================================================
// INVARIANT CHECKING
// =============================================================================

// CheckInvariants verifies the structural invariants of the tree.
// Returns nil if they all hold.
func (s *Store) CheckInvariants() error {
	// 1. Parent links are bidirectional.
	for id, n := range s.nodes {
		if n.ParentID == "" {
			continue
		}
		parent, ok := s.nodes[n.ParentID]
		if !ok {
			return fmt.Errorf("node %s has dangling parent %s", id, n.ParentID)
		}
		if !containsID(parent.ChildrenIDs, id) {
			return fmt.Errorf("node %s missing from parent %s children", id, n.ParentID)
		}
	}

	// 2. Root set equals nodes with no parent.
	roots := make(map[string]bool, len(s.rootIDs))
	for _, id := range s.rootIDs {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("root sequence contains unknown node %s", id)
		}
		if roots[id] {
			return fmt.Errorf("root sequence contains %s twice", id)
		}
		roots[id] = true
	}
	for id, n := range s.nodes {
		if (n.ParentID == "") != roots[id] {
			return fmt.Errorf("root set mismatch for node %s", id)
		}
	}

	// 3. No parent cycles.
	for id := range s.nodes {
		cur := s.nodes[id]
		for steps := 0; cur.ParentID != ""; steps++ {
			if steps > len(s.nodes) {
				return fmt.Errorf("parent cycle reachable from node %s", id)
			}
			next, ok := s.nodes[cur.ParentID]
			if !ok {
				break
			}
			cur = next
		}
	}

	// 4. ChildrenIDs are unique and resolve to real children.
	for id, n := range s.nodes {
		seen := make(map[string]bool, len(n.ChildrenIDs))
		for _, childID := range n.ChildrenIDs {
			if seen[childID] {
				return fmt.Errorf("node %s lists child %s twice", id, childID)
			}
			seen[childID] = true
			child, ok := s.nodes[childID]
			if !ok {
				return fmt.Errorf("node %s lists dangling child %s", id, childID)
			}
			if child.ParentID != id {
				return fmt.Errorf("node %s lists %s whose parent is %q", id, childID, child.ParentID)
			}
		}
	}

	// 5. The insertion sequence lists every node exactly once.
	if len(s.order) != len(s.nodes) {
		return fmt.Errorf("insertion sequence has %d entries for %d nodes", len(s.order), len(s.nodes))
	}
	seenOrder := make(map[string]bool, len(s.order))
	for _, id := range s.order {
		if seenOrder[id] {
			return fmt.Errorf("insertion sequence lists %s twice", id)
		}
		seenOrder[id] = true
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("insertion sequence contains unknown node %s", id)
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
