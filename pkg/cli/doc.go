/*
Package cli provides command-line helpers for the custodian binary.

Output Formatting:

Commands print results as aligned text, JSON or CSV. Results that render as
rows implement Table:

	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, policyTable(list))

Progress Reporting:

ScanProgress satisfies the scanner's progress hook:

	s := scanner.New(store, exec, auditor, scanner.WithProgress(cli.NewScanProgress(os.Stderr)))

Errors and Exit Codes:

ExitCode maps ConfigError and the retention error kinds to distinct exit
statuses so scripts can tell a rejected request from a storage failure.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
