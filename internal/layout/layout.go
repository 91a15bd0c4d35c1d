// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layout computes deterministic display positions for tree nodes.
package layout

import (
	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/tree"
)

// =============================================================================
// SPACING CONFIGURATION
// =============================================================================

// Config holds the spacing constants for the layout grid.
type Config struct {
	// BaseX, BaseY anchor the top-left of the layout.
	BaseX float64
	BaseY float64

	// NodeWidth is the rendered width of a node card.
	NodeWidth float64

	// VerticalSpacing separates depth rows.
	VerticalSpacing float64

	// HorizontalSpacing separates siblings within a row.
	HorizontalSpacing float64

	// DiagonalStep shifts each deeper row right so unrelated branches that
	// happen to share a depth don't stack on top of each other.
	DiagonalStep float64
}

// DefaultConfig returns the default spacing constants.
func DefaultConfig() Config {
	return Config{
		BaseX:             100,
		BaseY:             100,
		NodeWidth:         250,
		VerticalSpacing:   200,
		HorizontalSpacing: 50,
		DiagonalStep:      30,
	}
}

// =============================================================================
// LAYOUT ENGINE
// =============================================================================

// Engine computes auto-layout positions for a tree store.
type Engine struct {
	cfg Config

	// onComplete fires after every layout pass so a display layer can refit
	// its viewport to the new extents.
	onComplete func(map[string]model.Position)
}

// NewEngine creates a layout engine with the given spacing.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// OnComplete registers a callback fired after each layout pass.
func (e *Engine) OnComplete(fn func(map[string]model.Position)) {
	e.onComplete = fn
}

// SetConfig replaces the spacing constants (used by config hot reload).
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg
}

// Calculate returns a position for every node currently in the tree.
//
// Nodes are grouped into rows by depth; within a row they keep the store's
// insertion order, regardless of which parent they belong to, so siblings
// from unrelated branches interleave by creation time. The result is
// deterministic for a fixed tree shape and insertion order.
func (e *Engine) Calculate(s *tree.Store) map[string]model.Position {
	positions := make(map[string]model.Position, s.Len())

	depths := make(map[string]int, s.Len())
	rows := depthRows(s, depths)

	for d, row := range rows {
		for i, id := range row {
			positions[id] = model.Position{
				X: e.cfg.BaseX +
					float64(i)*(e.cfg.NodeWidth+e.cfg.HorizontalSpacing) +
					float64(d)*(e.cfg.NodeWidth+e.cfg.DiagonalStep),
				Y: e.cfg.BaseY + float64(d)*e.cfg.VerticalSpacing,
			}
		}
	}

	if e.onComplete != nil {
		e.onComplete(positions)
	}
	return positions
}

// Apply computes a layout and writes the positions back through the store.
func (e *Engine) Apply(s *tree.Store) map[string]model.Position {
	positions := e.Calculate(s)
	for id, pos := range positions {
		p := pos
		s.UpdateNode(id, tree.Update{Position: &p})
	}
	return positions
}

// =============================================================================
// DEPTH GROUPING
// =============================================================================

// depthRows groups node IDs by depth, keeping the store's insertion order
// within each row. Depths are memoized into the supplied map so shared
// ancestors are never re-walked.
func depthRows(s *tree.Store, depths map[string]int) [][]string {
	var rows [][]string
	for _, id := range s.NodeOrder() {
		d := Depth(s, id, depths)
		for len(rows) <= d {
			rows = append(rows, nil)
		}
		rows[d] = append(rows[d], id)
	}
	return rows
}

// Depth returns the depth of one node (hops to its root), memoizing
// intermediate ancestors into the supplied map. The walk is bounded by the
// node count so a malformed parent cycle cannot spin forever.
func Depth(s *tree.Store, id string, memo map[string]int) int {
	if d, ok := memo[id]; ok {
		return d
	}

	// Walk up until a memoized ancestor or a root, then unwind.
	var path []string
	cur := id
	base := 0
	for steps := 0; steps <= s.Len(); steps++ {
		if d, ok := memo[cur]; ok {
			base = d
			break
		}
		path = append(path, cur)
		n, err := s.GetNode(cur)
		if err != nil || n.ParentID == "" {
			base = -1 // the last path entry is a root at depth 0
			break
		}
		cur = n.ParentID
	}

	for i := len(path) - 1; i >= 0; i-- {
		base++
		memo[path[i]] = base
	}
	return memo[id]
}
