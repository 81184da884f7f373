package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/projview/internal/core"
)

// tableFlat selects the filtered flat table; the other table names are the
// tables of one project view.
const tableFlat = "flat"

type exportOptions struct {
	table   string
	id      string
	filters string
	limit   int
	format  string
	out     string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export [files or globs...]",
		Short: "Export a table from the loaded projects as CSV or XLSX",
		Example: `  projview export 'data/**/*.json.gz' --filters filters.yaml --out active.xlsx
  projview export projects.json --table similar_by_title --id P-17
  cat projects.json | projview export - --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.table, "table", "t", tableFlat, "Table: flat, main, similar_by_title or similar_by_objective")
	f.StringVar(&opts.id, "id", "", "Project id for the project view tables")
	f.StringVarP(&opts.filters, "filters", "f", "", "YAML filter preset applied to the flat table")
	f.IntVarP(&opts.limit, "limit", "n", 0, "Maximum rows to export from the flat table (0 for all)")
	f.StringVar(&opts.format, "format", "", "Output format: csv or xlsx (default from --out, else csv)")
	f.StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func runExport(cmd *cobra.Command, root *rootOptions, opts *exportOptions, args []string) error {
	format, err := exportFormat(opts.format, opts.out)
	if err != nil {
		return err
	}
	if opts.table != tableFlat && opts.id == "" {
		return fmt.Errorf("--id is required for table %q", opts.table)
	}
	if opts.table == tableFlat && opts.id != "" {
		return errors.New("--id only applies to the project view tables")
	}

	var preset core.FilterPreset
	if opts.filters != "" {
		if preset, err = readPreset(opts.filters); err != nil {
			return err
		}
	}

	sess, err := loadSession(cmd.Context(), args, root.sources, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var table core.Table
	if opts.table == tableFlat {
		spec, err := preset.Spec()
		if err != nil {
			return err
		}
		if table, err = sess.Filter(spec); err != nil {
			return err
		}
		limit := preset.Limit
		if cmd.Flags().Changed("limit") {
			limit = opts.limit
		}
		if limit > 0 {
			table = table.Head(limit)
		}
	} else {
		view, err := sess.Project(opts.id)
		if err != nil {
			return err
		}
		var ok bool
		if table, ok = view.Table(core.NestedKind(opts.table)); !ok {
			return fmt.Errorf("unknown table %q", opts.table)
		}
	}

	if err := writeTable(cmd.OutOrStdout(), opts.out, table, format); err != nil {
		return err
	}
	slog.Info("export written",
		"table", opts.table,
		"rows", table.Len(),
		"columns", len(table.Columns),
		"format", format,
		"out", outName(opts.out),
	)
	return nil
}

// exportFormat resolves --format, falling back to the extension of --out.
func exportFormat(flag, out string) (core.ExportFormat, error) {
	if flag == "" && strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return core.FormatXLSX, nil
	}
	return core.ParseExportFormat(strings.ToLower(flag))
}

func readPreset(path string) (core.FilterPreset, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return core.FilterPreset{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return core.FilterPreset{}, fmt.Errorf("open filter preset: %w", err)
	}
	defer f.Close()
	return core.ReadFilterPreset(f)
}

func writeTable(stdout io.Writer, out string, t core.Table, format core.ExportFormat) error {
	if out == "" || out == "-" {
		return core.Export(stdout, t, format)
	}
	p, err := homedir.Expand(out)
	if err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := core.Export(f, t, format); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	return f.Close()
}

func outName(out string) string {
	if out == "" {
		return "stdout"
	}
	return out
}
