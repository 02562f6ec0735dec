package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handiism/post-exporter/internal/recorder"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <record-id>",
		Short: "Show an export record kept by the local recorder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(settings.RecorderDBPath)
			if path == "" {
				return errNoLocalRecorder
			}

			db, err := recorder.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Record", "Platform", "Label", "Width", "Height"},
				[][]string{{rec.ID, rec.Platform, rec.Label, strconv.Itoa(rec.Width), strconv.Itoa(rec.Height)}},
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}
