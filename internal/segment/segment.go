// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment splits raw answer text into labeled, index-stable sections.
package segment

import (
	"strings"

	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/util"
)

// maxLabelRunes bounds the display label derived from a section's first line.
const maxLabelRunes = 60

// Segment splits raw answer text into an ordered sequence of sections.
//
// Markdown headers start a new section labeled by the header text. When the
// text has no headers, numbered list items ("1." / "1)") start sections.
// Failing both, blank-line separated paragraphs become sections. Empty input
// yields no sections.
func Segment(raw string) []model.Section {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if text == "" {
		return []model.Section{}
	}

	blocks := splitByHeaders(text)
	if len(blocks) < 2 {
		blocks = splitByListItems(text)
	}
	if len(blocks) < 2 {
		blocks = splitByParagraphs(text)
	}
	if len(blocks) == 0 {
		blocks = []string{text}
	}

	sections := make([]model.Section, 0, len(blocks))
	for i, block := range blocks {
		sections = append(sections, model.Section{
			Index: i,
			Label: labelFor(block),
			Text:  block,
		})
	}
	return sections
}

// =============================================================================
// SPLIT STRATEGIES
// =============================================================================

// splitByHeaders breaks text at markdown headers. Text before the first
// header becomes its own section.
func splitByHeaders(text string) []string {
	lines := strings.Split(text, "\n")

	var blocks []string
	var cur []string
	sawHeader := false

	flush := func() {
		block := strings.TrimSpace(strings.Join(cur, "\n"))
		if block != "" {
			blocks = append(blocks, block)
		}
		cur = cur[:0]
	}

	for _, line := range lines {
		if isHeaderLine(line) {
			sawHeader = true
			flush()
		}
		cur = append(cur, line)
	}
	flush()

	if !sawHeader {
		return nil
	}
	return blocks
}

// splitByListItems breaks text at top-level numbered list items.
func splitByListItems(text string) []string {
	lines := strings.Split(text, "\n")

	var blocks []string
	var cur []string
	items := 0

	flush := func() {
		block := strings.TrimSpace(strings.Join(cur, "\n"))
		if block != "" {
			blocks = append(blocks, block)
		}
		cur = cur[:0]
	}

	for _, line := range lines {
		if isNumberedItem(line) {
			items++
			flush()
		}
		cur = append(cur, line)
	}
	flush()

	// A single item is not a list worth splitting on.
	if items < 2 {
		return nil
	}
	return blocks
}

// splitByParagraphs breaks text on blank lines.
func splitByParagraphs(text string) []string {
	var blocks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			blocks = append(blocks, para)
		}
	}
	return blocks
}

// =============================================================================
// LINE CLASSIFICATION
// =============================================================================

func isHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	rest := strings.TrimLeft(trimmed, "#")
	// "#version" style tokens are not headers; "# Title" is.
	return strings.HasPrefix(rest, " ") && strings.TrimSpace(rest) != ""
}

func isNumberedItem(line string) bool {
	trimmed := strings.TrimSpace(line)
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(trimmed) {
		return false
	}
	if trimmed[i] != '.' && trimmed[i] != ')' {
		return false
	}
	return i+1 < len(trimmed) && trimmed[i+1] == ' '
}

// labelFor derives a short display label from a block's first line.
func labelFor(block string) string {
	first := block
	if idx := strings.IndexByte(block, '\n'); idx >= 0 {
		first = block[:idx]
	}
	first = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(first), "#"))
	return util.TruncateRunes(first, maxLabelRunes)
}
