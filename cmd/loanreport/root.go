package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"loandash/internal/config"
	"loandash/internal/dataprocessing"
	"loandash/internal/files"
	"loandash/internal/infrastructure"
	"loandash/internal/services"
	v1 "loandash/pkg/contracts/api/v1"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	source   string
	sheet    string
	filters  []string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "loanreport",
		Short:        "Car loan applications report",
		Long:         "Load a loan applications spreadsheet, clean it and report on a filtered view.",
		SilenceUsage: true,
	}

	defaults := config.Default()
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.source, "source", "s", defaults.Dataset.Path, "Dataset file (.xlsx or .csv) or directory holding one")
	flags.StringVar(&opts.sheet, "sheet", "", "Worksheet name (first sheet when empty)")
	flags.StringArrayVarP(&opts.filters, "filter", "f", nil, "Filter as field=v1,v2 (repeatable)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(
		newSummaryCmd(opts),
		newOptionsCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	return infrastructure.NewLogger(config.LoggingConfig{Level: o.logLevel, Format: "text"}, w)
}

// load resolves the source and loads it once through the dataset service.
func (o *rootOptions) load(ctx context.Context, logger *slog.Logger) (*services.DatasetService, error) {
	path, err := files.NewDiscovery("").ResolveDataset(o.source)
	if err != nil {
		return nil, err
	}
	src, err := dataprocessing.NewFileSource(path, o.sheet)
	if err != nil {
		return nil, err
	}

	defaults := config.Default()
	svc := services.NewDatasetService(src, nil, services.DatasetServiceOptions{
		Export:      defaults.Export,
		LoadTimeout: defaults.Dataset.LoadTimeout,
		Logger:      logger,
	})
	if _, err := svc.Reload(ctx, events.TriggerCLI); err != nil {
		return nil, err
	}
	return svc, nil
}

// parseFilters turns repeated field=v1,v2 flags into domain filters. Repeating
// a field adds to its selection; "field=" selects nothing.
func parseFilters(args []string) (domain.Filters, error) {
	selection := v1.FilterSelection{}
	for _, arg := range args {
		name, values, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: want field=value[,value...]", arg)
		}
		name = strings.TrimSpace(name)
		current := selection[name]
		if current == nil {
			current = []string{}
		}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				current = append(current, v)
			}
		}
		selection[name] = current
	}
	return selection.ToFilters()
}
