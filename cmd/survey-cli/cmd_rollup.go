package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"eldercare-survey/internal/aggregator"
	"eldercare-survey/internal/careburden"
	"eldercare-survey/internal/domain"
	"eldercare-survey/internal/ingest"
)

type rollupOptions struct {
	file       string
	directory  string
	population string
	month      string
	out        string
}

func newRollupCmd() *cobra.Command {
	var opts rollupOptions
	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Aggregate a submissions workbook by region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRollup(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "submissions workbook (.xlsx)")
	cmd.Flags().StringVarP(&opts.directory, "directory", "d", "", "institution roster workbook (.xlsx)")
	cmd.Flags().StringVarP(&opts.population, "population", "p", "", "solitary-elder estimates (YAML)")
	cmd.Flags().StringVarP(&opts.month, "month", "m", "", "reporting month label, e.g. 2025_3월")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the rollup workbook here")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("directory")
	return cmd
}

func runRollup(cmd *cobra.Command, opts rollupOptions) error {
	if opts.month != "" {
		if _, err := domain.ParseMonthLabel(opts.month); err != nil {
			return err
		}
	}

	subs, err := readSubmissions(opts.file)
	if err != nil {
		return err
	}
	dir, err := readDirectory(cmd, opts.directory)
	if err != nil {
		return err
	}
	population := map[string]int{}
	if opts.population != "" {
		population, err = careburden.NewFileSource(opts.population).Estimates(context.Background())
		if err != nil {
			return err
		}
	}

	result := aggregator.Aggregate(opts.month, subs, dir)
	statuses := careburden.EstimateAll(result, population, nil)
	printRollup(cmd, result, statuses)

	if opts.out == "" {
		return nil
	}
	data, err := ingest.WriteRollupSheet(result, statuses)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.out)
	return nil
}

func readSubmissions(path string) ([]domain.Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadSubmissionsSheet(f)
}

func readDirectory(cmd *cobra.Command, path string) (*domain.Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	imp, err := ingest.ReadDirectorySheet(f)
	if err != nil {
		return nil, err
	}
	for _, u := range imp.Unresolved {
		fmt.Fprintf(cmd.ErrOrStderr(), "roster row %d (%s %s): unresolved region %q\n", u.Row, u.Code, u.Name, u.Text)
	}
	return domain.NewDirectory(imp.Institutions), nil
}

func printRollup(cmd *cobra.Command, result domain.AggregateResult, statuses []domain.CareBurdenStatus) {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "region\tsubmitted\texpected\tstaff\tusers\tratio\toverloaded")
	for i, r := range result.Regions {
		st := statuses[i]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.1f\t%t\n",
			r.Region, r.SubmittedCount, r.ExpectedCount, st.TotalStaff, st.ServedUsers, st.Ratio, st.Overloaded)
	}
	p := result.Province
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\t\n",
		p.Region, p.SubmittedCount, p.ExpectedCount, p.SocialWorkers()+p.CareProviders(), p.ServedUsers())
	_ = tw.Flush()

	fmt.Fprintf(out, "submission rate %d%%\n", result.SubmissionRate)
	for _, u := range result.Unmatched {
		fmt.Fprintf(out, "unmatched: %s %s (%s)\n", u.InstitutionCode, u.InstitutionName, u.Reason)
	}
}
