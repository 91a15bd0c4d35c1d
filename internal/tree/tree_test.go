// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jeranaias/treeline/internal/model"
)

// newTestNode builds a node with a fixed ID so tests can reference it.
func newTestNode(id, parentID string) *model.Node {
	n := model.NewNode("node "+id, "question "+id, "answer "+id)
	n.ID = id
	n.ParentID = parentID
	return n
}

// buildChain inserts a root and a linear chain of descendants, returning the
// store. IDs are "n0" (root) through "n<depth>".
func buildChain(t *testing.T, depth int) *Store {
	t.Helper()
	s := NewStore()
	s.AddNode(newTestNode("n0", ""))
	for i := 1; i <= depth; i++ {
		s.AddNode(newTestNode(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i-1)))
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("chain setup broke invariants: %v", err)
	}
	return s
}

func TestAddNodeRoot(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	roots := s.RootIDs()
	if len(roots) != 1 || roots[0] != "a" {
		t.Errorf("RootIDs() = %v, want [a]", roots)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

func TestAddNodeChild(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))
	s.AddNode(newTestNode("b", "a"))

	parent, err := s.GetNode("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(parent.ChildrenIDs) != 1 || parent.ChildrenIDs[0] != "b" {
		t.Errorf("parent.ChildrenIDs = %v, want [b]", parent.ChildrenIDs)
	}
	if len(s.RootIDs()) != 1 {
		t.Errorf("child must not join the root sequence")
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

func TestAddNodeUnknownParentBecomesRoot(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("orphan", "missing"))

	n, err := s.GetNode("orphan")
	if err != nil {
		t.Fatal(err)
	}
	if n.ParentID != "" {
		t.Errorf("ParentID = %q, want cleared", n.ParentID)
	}
	roots := s.RootIDs()
	if len(roots) != 1 || roots[0] != "orphan" {
		t.Errorf("RootIDs() = %v, want [orphan]", roots)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

func TestAddNodeChildOrder(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))
	s.AddNode(newTestNode("b", "a"))
	s.AddNode(newTestNode("c", "a"))
	s.AddNode(newTestNode("d", "a"))

	parent, _ := s.GetNode("a")
	want := []string{"b", "c", "d"}
	for i, id := range want {
		if parent.ChildrenIDs[i] != id {
			t.Fatalf("ChildrenIDs = %v, want %v", parent.ChildrenIDs, want)
		}
	}
}

func TestUpdateNodeMergesFields(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))

	name := "renamed"
	collapsed := true
	pos := model.Position{X: 10, Y: 20}
	s.UpdateNode("a", Update{Name: &name, IsCollapsed: &collapsed, Position: &pos})

	n, _ := s.GetNode("a")
	if n.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", n.Name)
	}
	if !n.IsCollapsed {
		t.Error("IsCollapsed not applied")
	}
	if n.Position != pos {
		t.Errorf("Position = %v, want %v", n.Position, pos)
	}
	if n.Question != "question a" {
		t.Errorf("untouched field changed: Question = %q", n.Question)
	}
}

func TestUpdateNodeAnswerInvalidatesSections(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))
	s.UpdateNode("a", Update{AnswerSections: []model.Section{{Index: 0, Label: "x", Text: "x"}}})

	answer := "fresh answer"
	s.UpdateNode("a", Update{Answer: &answer})

	n, _ := s.GetNode("a")
	if n.AnswerSections != nil {
		t.Errorf("AnswerSections = %v, want nil after answer change", n.AnswerSections)
	}
}

func TestUpdateNodeUnknownID(t *testing.T) {
	s := NewStore()
	name := "x"
	s.UpdateNode("missing", Update{Name: &name}) // must not panic
	if s.Len() != 0 {
		t.Error("update of unknown ID must not insert")
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("root", ""))
	s.AddNode(newTestNode("a", "root"))
	s.AddNode(newTestNode("a1", "a"))
	s.AddNode(newTestNode("a2", "a"))
	s.AddNode(newTestNode("a1x", "a1"))
	s.AddNode(newTestNode("b", "root"))

	s.DeleteNode("a")

	for _, id := range []string{"a", "a1", "a2", "a1x"} {
		if _, err := s.GetNode(id); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("node %s survived the cascade", id)
		}
	}
	for _, id := range []string{"root", "b"} {
		if _, err := s.GetNode(id); err != nil {
			t.Errorf("node %s wrongly deleted: %v", id, err)
		}
	}
	root, _ := s.GetNode("root")
	if len(root.ChildrenIDs) != 1 || root.ChildrenIDs[0] != "b" {
		t.Errorf("root.ChildrenIDs = %v, want [b]", root.ChildrenIDs)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

func TestDeleteRootNode(t *testing.T) {
	s := buildChain(t, 3)
	s.DeleteNode("n0")

	if !s.IsEmpty() {
		t.Errorf("Len() = %d after deleting the only root, want 0", s.Len())
	}
	if len(s.RootIDs()) != 0 {
		t.Errorf("RootIDs() = %v, want empty", s.RootIDs())
	}
}

func TestDeleteNodeUnknownID(t *testing.T) {
	s := buildChain(t, 2)
	s.DeleteNode("missing")
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestDeleteDeepChainDoesNotRecurse(t *testing.T) {
	// Worklist-based cascade must handle depths that would overflow a
	// recursive implementation.
	s := buildChain(t, 20000)
	s.DeleteNode("n0")
	if !s.IsEmpty() {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestToggleCollapse(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))

	s.ToggleCollapse("a")
	n, _ := s.GetNode("a")
	if !n.IsCollapsed {
		t.Error("first toggle should collapse")
	}
	s.ToggleCollapse("a")
	if n.IsCollapsed {
		t.Error("second toggle should expand")
	}
}

func TestEnsureSectionsCaches(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("a", ""))

	calls := 0
	seg := func(raw string) []model.Section {
		calls++
		return []model.Section{{Index: 0, Label: raw, Text: raw}}
	}

	first, err := s.EnsureSections("a", seg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.EnsureSections("a", seg)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("segment called %d times, want 1", calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("sections = %v / %v", first, second)
	}
}

func TestEnsureSectionsUnknownID(t *testing.T) {
	s := NewStore()
	_, err := s.EnsureSections("missing", func(string) []model.Section { return nil })
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestGetNodeChain(t *testing.T) {
	s := buildChain(t, 2)

	chain := s.GetNodeChain("n2")
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	for i, want := range []string{"n0", "n1", "n2"} {
		if chain[i].ID != want {
			t.Errorf("chain[%d] = %s, want %s (root first)", i, chain[i].ID, want)
		}
	}
}

func TestGetNodeChainRoot(t *testing.T) {
	s := buildChain(t, 2)
	chain := s.GetNodeChain("n0")
	if len(chain) != 1 || chain[0].ID != "n0" {
		t.Errorf("chain = %v, want just the root", chain)
	}
}

func TestGetNodeChainUnknownID(t *testing.T) {
	s := NewStore()
	chain := s.GetNodeChain("missing")
	if chain == nil || len(chain) != 0 {
		t.Errorf("chain = %v, want empty non-nil slice", chain)
	}
}

func TestGenerateNodeName(t *testing.T) {
	s := NewStore()
	if got := s.GenerateNodeName(""); got != "Question 1" {
		t.Errorf("first root name = %q, want Question 1", got)
	}
	s.AddNode(newTestNode("a", ""))
	if got := s.GenerateNodeName(""); got != "Question 2" {
		t.Errorf("second root name = %q, want Question 2", got)
	}
	if got := s.GenerateNodeName("a"); got != "Follow-up 1" {
		t.Errorf("first child name = %q, want Follow-up 1", got)
	}
	s.AddNode(newTestNode("b", "a"))
	if got := s.GenerateNodeName("a"); got != "Follow-up 2" {
		t.Errorf("second child name = %q, want Follow-up 2", got)
	}
}

func TestOnChangeFiresOnMutation(t *testing.T) {
	s := NewStore()
	fired := 0
	s.OnChange(func() { fired++ })

	s.AddNode(newTestNode("a", ""))
	s.ToggleCollapse("a")
	s.DeleteNode("a")

	if fired != 3 {
		t.Errorf("OnChange fired %d times, want 3", fired)
	}
}

func TestDeepCloneIsIndependent(t *testing.T) {
	s := buildChain(t, 2)
	clone := s.DeepClone()

	name := "mutated"
	s.UpdateNode("n1", Update{Name: &name})
	s.DeleteNode("n2")

	if clone.Len() != 3 {
		t.Errorf("clone.Len() = %d, want 3", clone.Len())
	}
	n, err := clone.GetNode("n1")
	if err != nil {
		t.Fatal(err)
	}
	if n.Name == "mutated" {
		t.Error("clone aliased the original nodes")
	}
}

func TestReplaceKeepsCallbackAndDoesNotNotify(t *testing.T) {
	s := NewStore()
	fired := 0
	s.OnChange(func() { fired++ })

	other := buildChain(t, 1)
	s.Replace(other)
	if fired != 0 {
		t.Errorf("Replace fired OnChange %d times, want 0", fired)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d after Replace, want 2", s.Len())
	}

	s.AddNode(newTestNode("extra", ""))
	if fired != 1 {
		t.Error("OnChange lost across Replace")
	}
}

func TestNodeOrderTracksInsertions(t *testing.T) {
	s := NewStore()
	s.AddNode(newTestNode("r1", ""))
	s.AddNode(newTestNode("r2", ""))
	s.AddNode(newTestNode("a", "r1"))
	s.AddNode(newTestNode("c", "r2"))
	s.AddNode(newTestNode("b", "r1"))

	assertOrder := func(want []string) {
		t.Helper()
		got := s.NodeOrder()
		if len(got) != len(want) {
			t.Fatalf("NodeOrder() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("NodeOrder() = %v, want %v", got, want)
			}
		}
	}

	assertOrder([]string{"r1", "r2", "a", "c", "b"})

	// Deleting prunes the sequence, cascade included, without reordering
	// the survivors.
	s.DeleteNode("r2")
	assertOrder([]string{"r1", "a", "b"})
	if err := s.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}

	// Clones carry the sequence independently.
	clone := s.DeepClone()
	s.DeleteNode("a")
	if got := clone.NodeOrder(); len(got) != 3 {
		t.Errorf("clone.NodeOrder() = %v, want 3 entries", got)
	}
}

func TestClearAll(t *testing.T) {
	s := buildChain(t, 3)
	s.ClearAll()
	if !s.IsEmpty() || len(s.RootIDs()) != 0 {
		t.Errorf("store not empty after ClearAll: %d nodes, %d roots",
			s.Len(), len(s.RootIDs()))
	}
}

func TestInvariantsAcrossOperationSequence(t *testing.T) {
	s := NewStore()

	check := func(step string) {
		t.Helper()
		if err := s.CheckInvariants(); err != nil {
			t.Fatalf("after %s: %v", step, err)
		}
	}

	s.AddNode(newTestNode("r1", ""))
	check("add root")
	s.AddNode(newTestNode("c1", "r1"))
	s.AddNode(newTestNode("c2", "r1"))
	s.AddNode(newTestNode("g1", "c1"))
	check("add children")
	s.AddNode(newTestNode("stray", "nowhere"))
	check("add orphan")
	s.DeleteNode("c1")
	check("delete subtree")
	s.ToggleCollapse("r1")
	answer := "new"
	s.UpdateNode("c2", Update{Answer: &answer})
	check("update")
	s.DeleteNode("r1")
	check("delete root")
}
