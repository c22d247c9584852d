package main

import (
	"fmt"
	"strings"
	"time"

	"execdoc/internal/data/journal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

func newJournalCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent executions recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !o.cfg.DB.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("journal is disabled; set [db] enabled = true"))
				return nil
			}
			store, err := journal.Open(o.cfg.DB.Path, o.cfg.DB.BusyTimeout)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("journal: "+store.Path()))
			fmt.Fprint(cmd.OutOrStdout(), renderJournal(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func renderJournal(entries []journal.Entry) string {
	if len(entries) == 0 {
		return dimStyle.Render("no executions recorded") + "\n"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-20s  %-14s  %-8s  %10s  %7s  %s", "STARTED", "NODE", "LANG", "DURATION", "OUTPUTS", "STATUS")))
	b.WriteString("\n")
	for _, e := range entries {
		status := okStyle.Render(e.Status)
		if e.Status == journal.StatusFailed {
			status = failStyle.Render(e.Status)
			if len(e.ErrorTypes) > 0 {
				status += dimStyle.Render(" " + strings.Join(e.ErrorTypes, ","))
			}
		}
		fmt.Fprintf(&b, "%-20s  %-14s  %-8s  %10s  %7d  %s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.NodeType,
			e.Language,
			e.Duration.Round(time.Microsecond),
			e.Outputs,
			status)
	}
	return b.String()
}
