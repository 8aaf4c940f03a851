package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dnoble/vaultsync/internal/syncengine"
)

var (
	summaryBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1)

	summaryTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	summaryErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// renderSyncSummary formats one vault's SyncResult as a bordered box for
// terminal output. Non-terminal output (piped logs) still gets the plain
// slog line printed alongside it in runSync.
func renderSyncSummary(result syncengine.SyncResult) string {
	var b strings.Builder
	fmt.Fprintln(&b, summaryTitle.Render(result.VaultID))
	fmt.Fprintf(&b, "%s docs created, %s rems created\n",
		summaryLabel.Render(fmt.Sprintf("%d", result.DocsCreated)),
		summaryLabel.Render(fmt.Sprintf("%d", result.RemsCreated)))
	fmt.Fprintf(&b, "%s docs updated, %s rems updated\n",
		summaryLabel.Render(fmt.Sprintf("%d", result.DocsUpdated)),
		summaryLabel.Render(fmt.Sprintf("%d", result.RemsUpdated)))
	fmt.Fprintf(&b, "%s conflicts resolved, %s rerouted\n",
		summaryLabel.Render(fmt.Sprintf("%d", result.ConflictsResolved)),
		summaryLabel.Render(fmt.Sprintf("%d", result.RemsRerouted)))
	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "%s\n", summaryErr.Render(fmt.Sprintf("%d error(s)", len(result.Errors))))
	}
	return summaryBorder.Render(strings.TrimRight(b.String(), "\n"))
}
