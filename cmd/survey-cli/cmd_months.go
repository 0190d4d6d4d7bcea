package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eldercare-survey/internal/domain"
)

func newMonthsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "months <label>...",
		Short: "Sort month labels and print the default month",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sorted := domain.SortMonthLabels(args)
			for _, l := range sorted {
				fmt.Fprintln(out, l)
			}
			def, ok := domain.DefaultMonth(args)
			if !ok {
				return fmt.Errorf("no valid month label among %d arguments", len(args))
			}
			fmt.Fprintf(out, "default: %s\n", def)
			return nil
		},
	}
}
