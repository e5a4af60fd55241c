package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/app"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
)

var (
	jobsKind   string
	jobsStatus string
	jobsSince  string
	jobsLimit  int
	jobsOut    string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the extraction job log",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent extraction jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the job log to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runJobsExport,
}

func init() {
	for _, c := range []*cobra.Command{jobsListCmd, jobsExportCmd} {
		c.Flags().StringVar(&jobsKind, "kind", "", "REGATTA or INVOICE")
		c.Flags().StringVar(&jobsStatus, "status", "", "RUNNING, OK, DEGRADED or FAILED")
		c.Flags().StringVar(&jobsSince, "since", "", "only jobs started on or after YYYY-MM-DD")
		c.Flags().IntVar(&jobsLimit, "limit", 50, "maximum number of jobs")
	}
	jobsExportCmd.Flags().StringVarP(&jobsOut, "out", "o", "extract-jobs.xlsx", "output file")
	jobsCmd.AddCommand(jobsListCmd, jobsExportCmd)
	rootCmd.AddCommand(jobsCmd)
}

func jobFilter() (entity.JobFilter, error) {
	f := entity.JobFilter{
		Kind:   constants.JobKind(strings.ToUpper(jobsKind)),
		Status: constants.JobStatus(strings.ToUpper(jobsStatus)),
		Limit:  jobsLimit,
	}
	if jobsSince != "" {
		t, err := time.Parse("2006-01-02", jobsSince)
		if err != nil {
			return f, fmt.Errorf("--since must be YYYY-MM-DD: %w", err)
		}
		f.Since = &t
	}
	return f, nil
}

func openJobLog(ctx context.Context) (*app.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.OCR.Enabled = false
	return app.Build(ctx, cfg, logger, app.WithoutCache())
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	filter, err := jobFilter()
	if err != nil {
		return err
	}
	a, err := openJobLog(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, err := a.Jobs.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		faint.Fprintln(cmd.OutOrStdout(), "no jobs")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tKIND\tSTATUS\tSAIL\tRANK\tAMOUNT\tCONFIDENCE\tID")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.StartedAt.Local().Format("2006-01-02 15:04"),
			j.Kind,
			statusColor(j.Status).Sprint(j.Status),
			deref(j.SailNumber),
			intOrDash(j.Rank),
			amountOrDash(j.Amount),
			deref(j.Confidence),
			j.ID,
		)
	}
	return tw.Flush()
}

func runJobsExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	filter, err := jobFilter()
	if err != nil {
		return err
	}
	a, err := openJobLog(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.Export.ExportJobsXLSX(ctx, filter)
	if err != nil {
		return err
	}
	if err := os.WriteFile(jobsOut, b, 0o644); err != nil {
		return err
	}
	good.Fprintf(cmd.OutOrStdout(), "wrote %s\n", jobsOut)
	return nil
}

func statusColor(s constants.JobStatus) *color.Color {
	switch s {
	case constants.JobStatusOK:
		return good
	case constants.JobStatusDegraded, constants.JobStatusRunning:
		return warn
	default:
		return bad
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}

func amountOrDash(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *f)
}
