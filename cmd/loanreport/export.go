package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"loandash/internal/config"
	"loandash/internal/exporter"
	"loandash/internal/files"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered view to a CSV or Excel file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
				if format == "" {
					format = string(exporter.FormatCSV)
				}
			}
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			filters, err := parseFilters(root.filters)
			if err != nil {
				return err
			}

			logger := root.logger(cmd.ErrOrStderr())
			svc, err := root.load(cmd.Context(), logger)
			if err != nil {
				return err
			}

			if out == "" {
				out = svc.ExportFilename(f)
			}
			target, err := filepath.Abs(out)
			if err != nil {
				return err
			}

			paths, err := config.GetPaths(config.PathsConfig{})
			if err != nil {
				return err
			}
			written, err := files.NewManager(paths, logger).WriteAtomic(target, func(w io.Writer) error {
				return svc.Export(cmd.Context(), w, f, filters)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  Exported %s view to %s\n", f, written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default name in the working directory)")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (default from the --out extension)")
	return cmd
}
