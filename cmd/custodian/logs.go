package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/retention/audit"
)

var logsFlags struct {
	limit  int
	format string
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Export the processing log",
	Long: `Export the newest processing log entries, newest first.

Formats:
  csv   - one row per entry with a header (default)
  json  - a JSON array`,
	Example: `  custodian logs --limit 500 > processing.csv
  custodian logs --format json | jq '.[] | select(.status == "failed")'`,
	Args: cobra.NoArgs,
	RunE: runAppCommand("logs", exportLogs),
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsFlags.limit, "limit", "n", 0, "number of entries (0 = default limit)")
	logsCmd.Flags().StringVarP(&logsFlags.format, "format", "f", "csv", "output format (csv, json)")
}

func exportLogs(cmd *cobra.Command, a *app, args []string) error {
	exporter, err := audit.NewExporter(logsFlags.format)
	if err != nil {
		return err
	}
	entries, err := a.files.ProcessingLogs(cmd.Context(), logsFlags.limit)
	if err != nil {
		return err
	}
	return exporter.Export(cmd.Context(), entries, cmd.OutOrStdout())
}
