package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/retention/scanner"
)

// ErrScanFailures is returned when a scan finished with failed records.
var ErrScanFailures = errors.New("scan finished with failures")

var scanFlags struct {
	dryRun   bool
	format   string
	progress bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Process expired retentions once",
	Long: `Run one expiry scan and print its summary.

Every active retention whose expiry date has passed is claimed, its action
executed against the file tree, and the outcome written to the processing
log. With --dry-run nothing is claimed, executed or logged; the summary
describes what would happen.

The command exits non-zero when any record failed.`,
	Example: `  custodian scan --dry-run
  custodian scan --format json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send upcoming-expiry notices once",
	Args:  cobra.NoArgs,
	RunE:  runNotify,
}

func init() {
	rootCmd.AddCommand(scanCmd, notifyCmd)

	scanCmd.Flags().BoolVar(&scanFlags.dryRun, "dry-run", false, "describe actions without executing them")
	scanCmd.Flags().StringVarP(&scanFlags.format, "format", "f", "text", "output format (text, json, csv)")
	scanCmd.Flags().BoolVar(&scanFlags.progress, "progress", false, "show a progress bar on stderr")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	var opts []scanner.Option
	if scanFlags.progress {
		opts = append(opts, scanner.WithProgress(cli.NewScanProgress(os.Stderr)))
	}
	a, err := openApp(opts...)
	if err != nil {
		return cli.NewCommandError("scan", err)
	}
	defer a.Close()

	summary := a.scanner.ProcessRetentionActions(ctx, scanFlags.dryRun)

	if scanFlags.format == "json" {
		err = printResult(cmd, scanFlags.format, summary)
	} else {
		err = printResult(cmd, scanFlags.format, summaryTable{summary})
	}
	if err != nil {
		return cli.NewCommandError("scan", err)
	}
	if scanFlags.format == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nrun %s: %d processed, %d failed, %d skipped\n",
			summary.RunID, summary.ProcessedCount, summary.FailedCount, summary.SkippedCount)
	}

	if summary.FailedCount > 0 || len(summary.Errors) > 0 {
		return cli.NewCommandError("scan", ErrScanFailures)
	}
	return nil
}

func runNotify(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return cli.NewCommandError("notify", err)
	}
	defer a.Close()

	result, err := a.scanner.NotifyUpcoming(cmd.Context())
	if err != nil {
		return cli.NewCommandError("notify", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d notices sent, %d failed\n", result.Sent, result.Failed)
	return nil
}
