package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eldercare-survey/internal/ingest"
	"eldercare-survey/internal/validation"
)

var errViolations = errors.New("submissions with violations found")

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every submission row of a spreadsheet",
		Long: `Reads the first sheet of a submissions workbook and prints the
violations of each institution. Exits non-zero when any row is invalid.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			subs, err := ingest.ReadSubmissionsSheet(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, s := range subs {
				res := validation.Validate(s)
				if res.Valid() {
					continue
				}
				invalid++
				fmt.Fprintf(out, "%s %s\n", s.InstitutionCode, s.InstitutionName)
				for _, field := range res.Fields() {
					fmt.Fprintf(out, "  %s: %s\n", field, res[field])
				}
			}
			fmt.Fprintf(out, "%d submissions, %d with violations\n", len(subs), invalid)
			if invalid > 0 {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "submissions workbook (.xlsx)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
