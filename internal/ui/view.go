// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/jeranaias/treeline/internal/segment"
	"github.com/jeranaias/treeline/internal/util"
)

// treeRows is the height of the outline pane above the detail viewport.
const treeRows = 10

// detailHeight returns the viewport height left over after the fixed chrome.
func (a *App) detailHeight() int {
	// header + outline + separator + status + input area
	h := a.height - treeRows - 5
	if h < 3 {
		h = 3
	}
	return h
}

// refreshDetail re-renders the selected node into the detail viewport.
func (a *App) refreshDetail() {
	if !a.ready {
		return
	}

	id, ok := a.selectedID()
	if !ok {
		a.viewport.SetContent(dimStyle.Render("No questions yet. Press n to ask one."))
		return
	}

	n, err := a.mgr.Tree().GetNode(id)
	if err != nil {
		a.viewport.SetContent(errorStyle.Render(err.Error()))
		return
	}

	var b strings.Builder
	b.WriteString(promptStyle.Render("Q: "+n.Question) + "\n\n")

	rendered, err := a.renderer.Render(n.Answer)
	if err != nil {
		rendered = n.Answer
	}
	b.WriteString(rendered)

	// Section index for branch selection.
	sections, err := a.mgr.Tree().EnsureSections(id, segment.Segment)
	if err == nil && len(sections) > 1 {
		b.WriteString("\n" + dimStyle.Render("Sections (press 1-9 to branch from one, 0 for all):") + "\n")
		for _, s := range sections {
			marker := "  "
			if a.branchSection != nil && *a.branchSection == s.Index {
				marker = sectionStyle.Render("> ")
			}
			b.WriteString(fmt.Sprintf("%s%d. %s\n", marker, s.Index+1, s.Label))
		}
	}

	a.viewport.SetContent(b.String())
	if a.refit {
		a.viewport.GotoTop()
		a.refit = false
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "loading..."
	}

	var b strings.Builder

	title := "treeline"
	if name := a.mgr.ActiveName(); name != "" {
		title += " — " + name
	}
	b.WriteString(headerStyle.Render(util.TruncateWidth(title, a.width)) + "\n")

	if a.mode == modeSessions {
		b.WriteString(a.viewSessions())
		return b.String()
	}

	b.WriteString(a.viewOutline())
	b.WriteString(dimStyle.Render(strings.Repeat("─", max(a.width, 1))) + "\n")
	b.WriteString(a.viewport.View() + "\n")

	switch a.mode {
	case modeAsk:
		label := "New question"
		if a.askParentID != "" {
			if parent, err := a.mgr.Tree().GetNode(a.askParentID); err == nil {
				label = "Follow-up to " + parent.Name
				if a.branchSection != nil {
					label += fmt.Sprintf(" (section %d)", *a.branchSection+1)
				}
			}
		}
		b.WriteString(promptStyle.Render(label) + "\n")
		b.WriteString(a.input.View() + "\n")
	case modeBusy:
		b.WriteString(a.spinner.View() + " " + statusStyle.Render(a.status) + "\n")
	default:
		if a.errMsg != "" {
			b.WriteString(errorStyle.Render(util.TruncateWidth(a.errMsg, a.width)) + "\n")
		} else {
			b.WriteString(statusStyle.Render(util.TruncateWidth(a.status, a.width)) + "\n")
		}
	}

	return b.String()
}

// viewOutline renders a scrolling window of the tree outline around the
// selected row.
func (a *App) viewOutline() string {
	var b strings.Builder

	if len(a.order) == 0 {
		b.WriteString(dimStyle.Render("  (empty tree)") + "\n")
		for i := 1; i < treeRows; i++ {
			b.WriteString("\n")
		}
		return b.String()
	}

	start := 0
	if a.selected >= treeRows {
		start = a.selected - treeRows + 1
	}
	end := start + treeRows
	if end > len(a.order) {
		end = len(a.order)
	}

	nodes := a.mgr.Tree().Nodes()
	for i := start; i < end; i++ {
		e := a.order[i]
		n := nodes[e.id]
		if n == nil {
			continue
		}

		indent := strings.Repeat("  ", e.depth)
		marker := "•"
		if len(n.ChildrenIDs) > 0 {
			if n.IsCollapsed {
				marker = "+"
			} else {
				marker = "-"
			}
		}

		line := fmt.Sprintf("%s%s %s: %s", indent, marker, n.Name, util.FirstLine(n.Question))
		line = util.TruncateWidth(line, a.width-2)

		if i == a.selected {
			b.WriteString(selectedStyle.Render(line) + "\n")
		} else if n.Answer != "" {
			b.WriteString(answeredStyle.Render(line) + "\n")
		} else {
			b.WriteString(nodeStyle.Render(line) + "\n")
		}
	}

	// Pad the pane so the detail viewport stays anchored.
	for i := end - start; i < treeRows; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

// viewSessions renders the session picker.
func (a *App) viewSessions() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render("Sessions") + "\n\n")

	if len(a.sessions) == 0 {
		b.WriteString(dimStyle.Render("  no saved sessions") + "\n")
	}

	for i, meta := range a.sessions {
		line := fmt.Sprintf("%s  (%d nodes, updated %s)",
			meta.Name, meta.NodeCount, meta.UpdatedAt.Format("2006-01-02 15:04"))
		line = util.TruncateWidth(line, a.width-4)
		if i == a.sessionIdx {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(nodeStyle.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + statusStyle.Render("enter: load  n: new  d: delete  esc: back") + "\n")
	return b.String()
}
