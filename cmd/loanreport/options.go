package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"loandash/pkg/contracts/domain"
)

func newOptionsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the selectable values of every filter field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := root.load(cmd.Context(), root.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			options, err := svc.Options()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(domain.FilterFields))
			for _, field := range domain.FilterFields {
				values := options[field]
				rows = append(rows, []string{string(field), formatCount(len(values)), strings.Join(values, ", ")})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprint(out, renderTable(table{
				Title:   "Filter options",
				Headers: []string{"Field", "Values", "Choices"},
				Rows:    rows,
			}))
			return nil
		},
	}
}
