package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/post-exporter/internal/catalog"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported platform formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(catalog.Keys()))
			for _, f := range catalog.All() {
				rows = append(rows, []string{f.Key, f.Label, f.Aspect, f.Resolution(), f.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Label", "Aspect", "Size", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
