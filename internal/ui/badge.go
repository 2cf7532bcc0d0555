// Package ui renders terminal output for the rounds CLI: the sync status
// badge and roster tables.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/palliative-rounds/rounds/internal/daemon"
	"github.com/palliative-rounds/rounds/internal/schema"
)

// Semantic colors shared across the CLI.
var (
	colorIdle      = lipgloss.Color("#6b7280") // gray
	colorScheduled = lipgloss.Color("#FFC107") // yellow
	colorSyncing   = lipgloss.Color("#2196F3") // blue
	colorError     = lipgloss.Color("#e53935") // red
	colorDone      = lipgloss.Color("#8BC34A") // green
)

var badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// plainOutput reports whether the terminal cannot take color, in which case
// everything renders unstyled.
func plainOutput() bool {
	return termenv.DefaultOutput().Profile == termenv.Ascii
}

// StatusBadge renders the sync engine state as a short colored badge.
func StatusBadge(state daemon.State) string {
	label := strings.ToUpper(state.String())
	if plainOutput() {
		return "[" + label + "]"
	}
	var color lipgloss.Color
	switch state {
	case daemon.StateScheduled:
		color = colorScheduled
	case daemon.StateSyncing:
		color = colorSyncing
	case daemon.StateError:
		color = colorError
	default:
		color = colorIdle
	}
	return badgeStyle.Foreground(color).Render(label)
}

// PatientLine renders one roster row for list output.
func PatientLine(p schema.Patient) string {
	name := p.Name()
	if name == "" {
		name = "(unnamed)"
	}
	mark := " "
	if bool(p.Done) {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %-24s room %-6s %s", mark, name, p.Bio["Room"], p.ID)
	if plainOutput() || !bool(p.Done) {
		return line
	}
	return lipgloss.NewStyle().Foreground(colorDone).Render(line)
}

// ProgressLine renders the seen/total counter for a section.
func ProgressLine(section string, done, total int) string {
	return fmt.Sprintf("Section %s: %d/%d seen", section, done, total)
}
