package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/projview/internal/logging"
)

type rootOptions struct {
	verbose   bool
	logFormat string
	sources   sourceOptions
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "projview",
		Short: "Explore and export project collections from JSON files",
		Long: `projview reads project records from JSON files ({"projects": [...]} or a
bare [...] list, optionally gzip-compressed) and URLs, and exports the
flattened table, a project's fields or its similar-project lists.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			// Data goes to stdout; logs must not mix with it.
			slog.SetDefault(logging.New(os.Stderr, level, opts.logFormat))
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringArrayVar(&opts.sources.urls, "url", nil, "Fetch a source from `URL` (repeatable)")
	pf.DurationVar(&opts.sources.timeout, "timeout", 0, "Timeout for each URL fetch (default 2m)")
	pf.IntVar(&opts.sources.retries, "retries", 2, "Retries for transient fetch failures")
	pf.BoolVar(&opts.sources.allowPrivate, "allow-private", false, "Allow URLs on loopback, private and link-local addresses")
	pf.StringSliceVar(&opts.sources.allowedHosts, "allow-host", nil, "Only fetch from these `HOSTS` (comma-separated, repeatable)")

	cmd.AddCommand(newExportCmd(opts), newColumnsCmd(opts))
	return cmd
}
