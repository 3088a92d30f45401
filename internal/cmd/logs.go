package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/kometa-resolve/internal/audit"
)

var flagLogsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recent audit sessions",
	Long: `Display recent apply sessions from the audit log, newest first.

Each session records the file writes, backups, restores, and skips one
run performed, so a bad apply can be traced back to its backups.`,
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	sessions, err := audit.ReadSessions(flagLogsLimit)
	if err != nil {
		return fmt.Errorf("read audit logs: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit sessions found.")
		return nil
	}

	for _, s := range sessions {
		meta := s.Metadata
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d op(s), %d failed\n",
			meta.SessionID,
			strings.Join(meta.CommandArgs, " "),
			meta.TotalOps, meta.FailedOps)
		for _, op := range s.Operations {
			status := "ok"
			if !op.Success {
				status = "failed: " + op.Error
			}
			detail := ""
			if op.Detail != "" {
				detail = " " + op.Detail
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %-7s %s%s (%s)\n", op.Type, op.File, detail, status)
		}
	}
	return nil
}

func init() {
	logsCmd.Flags().IntVarP(&flagLogsLimit, "limit", "n", 10, "Maximum number of sessions to show")
	rootCmd.AddCommand(logsCmd)
}
