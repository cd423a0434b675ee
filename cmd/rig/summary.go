package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/greenfuze/rig/internal/rig"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(14)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// renderSummary formats the extraction result for humans. Diagnostics and
// machine-readable errors go to stderr; this is the only stdout output.
func renderSummary(g *rig.Graph) string {
	linked := 0
	for _, t := range g.Tests {
		if t.LinkedComponent != 0 {
			linked++
		}
	}

	rows := []struct {
		label string
		value string
	}{
		{"repository", g.Repository.Name},
		{"build system", strings.TrimSpace(g.BuildSystem.Name + " " + g.BuildSystem.Version)},
		{"components", fmt.Sprintf("%d", len(g.Components))},
		{"aggregators", fmt.Sprintf("%d", len(g.Aggregators))},
		{"runners", fmt.Sprintf("%d", len(g.Runners))},
		{"utilities", fmt.Sprintf("%d", len(g.Utilities))},
		{"tests", fmt.Sprintf("%d (%d linked)", len(g.Tests), linked)},
		{"externals", fmt.Sprintf("%d", len(g.Externals))},
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("extraction complete"))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(labelStyle.Render(row.label))
		sb.WriteString(row.value)
		sb.WriteString("\n")
	}

	body := strings.TrimRight(sb.String(), "\n")
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return boxStyle.MaxWidth(width).Render(body) + "\n"
	}
	return body + "\n"
}
