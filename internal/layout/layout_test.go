// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"testing"

	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/tree"
)

func addNode(s *tree.Store, id, parentID string) {
	n := model.NewNode("node "+id, "q", "a")
	n.ID = id
	n.ParentID = parentID
	s.AddNode(n)
}

// twoBranchTree builds:
//
//	r1          r2
//	├─ a        └─ c
//	└─ b
func twoBranchTree() *tree.Store {
	s := tree.NewStore()
	addNode(s, "r1", "")
	addNode(s, "r2", "")
	addNode(s, "a", "r1")
	addNode(s, "b", "r1")
	addNode(s, "c", "r2")
	return s
}

func TestCalculateEmptyTree(t *testing.T) {
	e := NewEngine(DefaultConfig())
	positions := e.Calculate(tree.NewStore())
	if len(positions) != 0 {
		t.Errorf("positions = %v, want none", positions)
	}
}

func TestCalculateCoversEveryNode(t *testing.T) {
	s := twoBranchTree()
	positions := NewEngine(DefaultConfig()).Calculate(s)

	if len(positions) != s.Len() {
		t.Fatalf("got %d positions for %d nodes", len(positions), s.Len())
	}
	for _, id := range s.NodeIDs() {
		if _, ok := positions[id]; !ok {
			t.Errorf("no position for node %s", id)
		}
	}
}

func TestCalculateRowGeometry(t *testing.T) {
	cfg := Config{
		BaseX:             100,
		BaseY:             100,
		NodeWidth:         250,
		VerticalSpacing:   200,
		HorizontalSpacing: 50,
		DiagonalStep:      30,
	}
	s := twoBranchTree()
	positions := NewEngine(cfg).Calculate(s)

	// Depth 0 row: r1, r2 in root-sequence order.
	if got := positions["r1"]; got.X != 100 || got.Y != 100 {
		t.Errorf("r1 at %v, want (100, 100)", got)
	}
	if got := positions["r2"]; got.X != 400 || got.Y != 100 {
		t.Errorf("r2 at %v, want (400, 100)", got)
	}

	// Depth 1 row shares one y and cascades right by one diagonal step.
	wantY := 300.0
	for _, id := range []string{"a", "b", "c"} {
		if positions[id].Y != wantY {
			t.Errorf("%s.Y = %v, want %v", id, positions[id].Y, wantY)
		}
	}
	// x = BaseX + i*(250+50) + 1*(250+30)
	if got := positions["a"].X; got != 380 {
		t.Errorf("a.X = %v, want 380", got)
	}
	if got := positions["b"].X; got != 680 {
		t.Errorf("b.X = %v, want 680", got)
	}
	// c shares the depth-1 row even though its parent differs.
	if got := positions["c"].X; got != 980 {
		t.Errorf("c.X = %v, want 980", got)
	}
}

func TestCalculateInterleavesBranchesByCreationOrder(t *testing.T) {
	// Children of different parents share a depth row in creation order,
	// not grouped by parent: a(r1), c(r2), b(r1) lays out as a, c, b.
	s := tree.NewStore()
	addNode(s, "r1", "")
	addNode(s, "r2", "")
	addNode(s, "a", "r1")
	addNode(s, "c", "r2")
	addNode(s, "b", "r1")

	cfg := Config{
		BaseX:             100,
		BaseY:             100,
		NodeWidth:         250,
		VerticalSpacing:   200,
		HorizontalSpacing: 50,
		DiagonalStep:      30,
	}
	positions := NewEngine(cfg).Calculate(s)

	// x = BaseX + i*(250+50) + 1*(250+30), i by creation order.
	want := map[string]float64{"a": 380, "c": 680, "b": 980}
	for id, x := range want {
		if got := positions[id].X; got != x {
			t.Errorf("%s.X = %v, want %v", id, got, x)
		}
	}
}

func TestCalculateDeterministic(t *testing.T) {
	s := twoBranchTree()
	e := NewEngine(DefaultConfig())

	first := e.Calculate(s)
	for i := 0; i < 10; i++ {
		again := e.Calculate(s)
		if len(again) != len(first) {
			t.Fatalf("pass %d returned %d positions, want %d", i, len(again), len(first))
		}
		for id, pos := range first {
			if again[id] != pos {
				t.Fatalf("pass %d moved %s: %v -> %v", i, id, pos, again[id])
			}
		}
	}
}

func TestCalculateAppendOnlyStability(t *testing.T) {
	// Appending a new deepest child must not move existing nodes.
	s := twoBranchTree()
	e := NewEngine(DefaultConfig())
	before := e.Calculate(s)

	addNode(s, "d", "b")
	after := e.Calculate(s)

	for id, pos := range before {
		if after[id] != pos {
			t.Errorf("existing node %s moved: %v -> %v", id, pos, after[id])
		}
	}
	if _, ok := after["d"]; !ok {
		t.Error("new node has no position")
	}
}

func TestApplyWritesPositions(t *testing.T) {
	s := twoBranchTree()
	e := NewEngine(DefaultConfig())
	positions := e.Apply(s)

	for id, want := range positions {
		n, err := s.GetNode(id)
		if err != nil {
			t.Fatal(err)
		}
		if n.Position != want {
			t.Errorf("node %s position %v, want %v", id, n.Position, want)
		}
	}
}

func TestOnCompleteFires(t *testing.T) {
	s := twoBranchTree()
	e := NewEngine(DefaultConfig())

	var got map[string]model.Position
	e.OnComplete(func(p map[string]model.Position) { got = p })

	e.Calculate(s)
	if got == nil || len(got) != s.Len() {
		t.Errorf("OnComplete received %v", got)
	}
}

func TestSetConfigTakesEffect(t *testing.T) {
	s := tree.NewStore()
	addNode(s, "r", "")

	e := NewEngine(DefaultConfig())
	e.SetConfig(Config{BaseX: 5, BaseY: 7})

	positions := e.Calculate(s)
	if got := positions["r"]; got.X != 5 || got.Y != 7 {
		t.Errorf("r at %v, want (5, 7)", got)
	}
}

func TestDepth(t *testing.T) {
	s := twoBranchTree()
	addNode(s, "d", "b")

	memo := make(map[string]int)
	cases := map[string]int{"r1": 0, "r2": 0, "a": 1, "c": 1, "d": 2}
	for id, want := range cases {
		if got := Depth(s, id, memo); got != want {
			t.Errorf("Depth(%s) = %d, want %d", id, got, want)
		}
	}

	// Memo must hold every walked ancestor.
	if memo["b"] != 1 {
		t.Errorf("memo[b] = %d, want 1", memo["b"])
	}
}
