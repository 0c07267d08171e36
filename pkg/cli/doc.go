/*
Package cli provides the terminal helpers used by the aiguard command.

Output Formatting:

Command results are printed as aligned tables, JSON or CSV:

	printer := cli.NewPrinter(os.Stdout, os.Stderr, cli.FormatText)
	printer.Table([]string{"#", "MODEL"}, rows)
	printer.Success("configuration is valid")

Status lines are colored when the output is a terminal.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ExitCode maps a command error to the process exit status: 2 for
configuration problems, 1 for everything else.
*/
package cli
