// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLORS
// =============================================================================

// Colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
var (
	// Purple - selections, session headers
	purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Cyan - brand color, prompts, key hints
	cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Emerald - success, answered nodes
	emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Amber - warnings, pending state
	amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Rose - errors
	rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Text colors
	textPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
	textSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(purple).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)

	nodeStyle = lipgloss.NewStyle().
			Foreground(textPrimary)

	dimStyle = lipgloss.NewStyle().
			Foreground(textSecondary)

	sectionStyle = lipgloss.NewStyle().
			Foreground(amber)

	answeredStyle = lipgloss.NewStyle().
			Foreground(emerald)

	errorStyle = lipgloss.NewStyle().
			Foreground(rose).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(textSecondary)

	promptStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// newRenderer builds the glamour renderer used for answer bodies. "auto"
// picks a style from the terminal background via termenv.
func newRenderer(theme string, wordWrap int) (*glamour.TermRenderer, error) {
	var styleOpt glamour.TermRendererOption
	switch theme {
	case "dark":
		styleOpt = glamour.WithStandardStyle("dark")
	case "light":
		styleOpt = glamour.WithStandardStyle("light")
	default:
		if termenv.HasDarkBackground() {
			styleOpt = glamour.WithStandardStyle("dark")
		} else {
			styleOpt = glamour.WithStandardStyle("light")
		}
	}

	return glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(wordWrap),
	)
}
