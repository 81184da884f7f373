package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/projview/internal/core"
)

// maxShownCandidates bounds the values listed per column in text output.
const maxShownCandidates = 5

type columnsOptions struct {
	json bool
}

func newColumnsCmd(root *rootOptions) *cobra.Command {
	opts := &columnsOptions{}

	cmd := &cobra.Command{
		Use:   "columns [files or globs...]",
		Short: "List the flat table's columns and how each can be filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(cmd.Context(), args, root.sources, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if opts.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sess.Columns.Columns)
			}
			return printColumns(cmd, sess.Columns)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the classification as JSON")
	return cmd
}

func printColumns(cmd *cobra.Command, cls core.Classification) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tKIND\tDISTINCT\tVALUES")
	for _, info := range cls.Columns {
		kind := string(info.Kind)
		if info.Excluded {
			kind = "excluded"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", info.Name, kind, info.Distinct, sampleValues(info))
	}
	return tw.Flush()
}

func sampleValues(info core.ColumnInfo) string {
	if info.Excluded {
		if info.Err != nil {
			return info.Err.Error()
		}
		return ""
	}
	vals := info.Candidates
	if len(vals) > 0 && vals[0] == core.AllOption {
		vals = vals[1:]
	}
	if len(vals) > maxShownCandidates {
		return strings.Join(vals[:maxShownCandidates], ", ") + ", ..."
	}
	return strings.Join(vals, ", ")
}
