// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt renders ancestor chains into language-model prompts.
package prompt

import (
	"strings"

	"github.com/jeranaias/treeline/internal/model"
)

// SegmentFunc segments raw answer text. Supplied by the caller so this
// package stays decoupled from the segmentation heuristics.
type SegmentFunc func(string) []model.Section

// Prompt labels. Kept stable: persisted conversations were generated with
// these exact markers.
const (
	contextHeader  = "Context from previous conversation:"
	questionHeader = "Current question:"
)

// =============================================================================
// CONTEXT DERIVATION
// =============================================================================

// BuildContext renders the context block for a new question branching from
// the last node of chain.
//
// Rules, in priority order:
//
//  1. Empty chain: empty context (a brand-new root question).
//  2. No section selected and the branch point is itself a non-root node:
//     only that node's question/answer pair. Branching section-less from a
//     follow-up means "keep talking about this exchange", not "replay the
//     whole ancestry".
//  3. Otherwise the full chain renders root-to-leaf as alternating Q/A
//     lines. When a section is selected, the final node's answer is
//     replaced by that single section's text; an out-of-range index falls
//     back to the full answer.
//
// Nodes are read, never written: when the final node lacks cached sections
// they are recomputed with seg but not stored back.
func BuildContext(chain []*model.Node, selectedSection *int, seg SegmentFunc) string {
	if len(chain) == 0 {
		return ""
	}

	last := chain[len(chain)-1]

	if selectedSection == nil && last.ParentID != "" {
		return renderExchange(last, last.Answer)
	}

	var b strings.Builder
	for i, n := range chain {
		answer := n.Answer
		if i == len(chain)-1 && selectedSection != nil {
			answer = sectionText(n, *selectedSection, seg)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderExchange(n, answer))
	}
	return b.String()
}

// BuildPrompt combines a context block and the new question into the final
// prompt text. An empty context yields the question verbatim.
func BuildPrompt(context, question string) string {
	if context == "" {
		return question
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteString("\n")
	b.WriteString(context)
	b.WriteString("\n\n")
	b.WriteString(questionHeader)
	b.WriteString(" ")
	b.WriteString(question)
	return b.String()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sectionText resolves a section index against a node's answer, using the
// cached sections when present and recomputing them otherwise. Out-of-range
// indices fall back to the full answer.
func sectionText(n *model.Node, idx int, seg SegmentFunc) string {
	sections := n.AnswerSections
	if sections == nil && seg != nil {
		sections = seg(n.Answer)
	}
	if idx >= 0 && idx < len(sections) {
		return sections[idx].Text
	}
	return n.Answer
}

// renderExchange formats one question/answer pair.
func renderExchange(n *model.Node, answer string) string {
	var b strings.Builder
	b.WriteString("Q: ")
	b.WriteString(n.Question)
	b.WriteString("\n")
	b.WriteString("A: ")
	b.WriteString(answer)
	b.WriteString("\n")
	return b.String()
}
