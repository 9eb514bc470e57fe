// Package theme styles the case transcript printed by the CLI.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette, calm clinical tones.
var (
	Primary   = lipgloss.Color("#2563EB") // Blue
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary).
		MarginTop(1)
)

// Transcript
var (
	Tutor = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(2)

	LearnerPrompt = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Phase = lipgloss.NewStyle().
		Foreground(BgCard).
		Background(Secondary).
		Bold(true).
		Padding(0, 1)

	Teaching = lipgloss.NewStyle().
			Foreground(Accent).
			Italic(true).
			PaddingLeft(2)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
)

// States
var (
	Good = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Bad = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// PhaseBanner renders a phase change marker.
func PhaseBanner(label string) string {
	return Phase.Render(strings.ToUpper(label))
}

// ScoreBar renders a 0-10 score as a ten-cell bar with the number.
func ScoreBar(score int) string {
	score = min(max(score, 0), 10)
	return ProgressFilled.Render(strings.Repeat("█", score)) +
		ProgressEmpty.Render(strings.Repeat("░", 10-score)) +
		fmt.Sprintf(" %2d/10", score)
}

// Bullets renders items as an indented list under title. Empty lists
// render nothing.
func Bullets(title string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(Heading.Render(title))
	b.WriteByte('\n')
	for _, it := range items {
		b.WriteString(Body.Render("  • " + it))
		b.WriteByte('\n')
	}
	return b.String()
}
