/*
Package cli provides command-line interface utilities for spanfan.

The cli package includes output formatters, progress reporters, and common CLI
helpers used by the spanfan command.

Output Formatting:

Results can be printed as text, JSON, or CSV. Results that implement
Tabular are aligned in columns for text output and are the only values
accepted by the CSV formatter:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, summary); err != nil {
		return err
	}

Progress Reporting:

For long-running operations such as replaying a trace:

	progress := cli.NewProgressReporter(os.Stderr, "records")
	progress.Start(int64(len(records)))
	for i, rec := range records {
		// replay rec
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
