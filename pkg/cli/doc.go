/*
Package cli holds helpers shared by the texrelay commands.

Errors returned from commands are mapped to exit codes with ExitCode:
ConfigError exits 2, anything else exits 1.

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Commands that print results accept --output text|json and render through a
Formatter. Batch compiles report per-document progress on stderr with
SimpleProgress.

SetupSignalHandler cancels a context on SIGINT or SIGTERM so the server can
drain in-flight compiles. A second signal exits at once.
*/
package cli
