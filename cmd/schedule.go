package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ethpandaops/tally/pkg/engine"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrJobSelectionRequired is returned when schedule run gets neither --job nor --all
var ErrJobSelectionRequired = errors.New("either --job or --all is required")

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	scheduleRunJob string
	scheduleRunAll bool
)

// scheduleCmd represents the schedule command group
//
//nolint:gochecknoglobals // Cobra commands are typically global
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect and run scheduled exports",
	Long:  `Commands for listing the configured export jobs and running them on demand.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Keep the output readable unless explicitly set via --log-level
		if !cmd.Flags().Changed("log-level") {
			logger.SetLevel(logrus.WarnLevel)
		}
		return nil
	},
}

// scheduleListCmd lists the configured jobs
//
//nolint:gochecknoglobals // Cobra commands are typically global
var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled export jobs",
	Long:  `List the configured export jobs with their schedule, last run and next run.`,
	RunE:  runScheduleList,
}

// scheduleRunCmd runs jobs immediately
//
//nolint:gochecknoglobals // Cobra commands are typically global
var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scheduled export jobs now",
	Long: `Run one or every configured export job immediately. The run is recorded
as the job's last run, like a scheduled one.

Examples:
  tally schedule run --job weekly-tasks
  tally schedule run --all`,
	RunE: runScheduleRun,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)

	scheduleRunCmd.Flags().StringVar(&scheduleRunJob, "job", "", "name of the job to run")
	scheduleRunCmd.Flags().BoolVar(&scheduleRunAll, "all", false, "run every job")
}

// withScheduler loads the configuration and calls fn with the scheduler. Jobs
// are registered even when the service configuration disables scheduling.
func withScheduler(fn func(ctx context.Context, sched scheduler.Service) error) error {
	cfg, err := loadConfig(cfgFile, false)
	if err != nil {
		return err
	}

	cfg.Scheduler.Enabled = true

	app, err := engine.NewService(logger, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if stopErr := app.Stop(); stopErr != nil {
			logger.WithError(stopErr).Error("Failed to stop")
		}
	}()

	return fn(context.Background(), app.Scheduler())
}

func runScheduleList(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	return withScheduler(func(ctx context.Context, sched scheduler.Service) error {
		statuses, err := sched.Status(ctx)
		if err != nil {
			return err
		}

		return printJobStatuses(cmd.OutOrStdout(), statuses)
	})
}

func runScheduleRun(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if scheduleRunJob == "" && !scheduleRunAll {
		return ErrJobSelectionRequired
	}

	return withScheduler(func(ctx context.Context, sched scheduler.Service) error {
		var results []*scheduler.RunResult

		if scheduleRunAll {
			all, err := sched.RunAll(ctx)
			if err != nil {
				return err
			}
			results = all
		} else {
			result, err := sched.RunJob(ctx, scheduleRunJob)
			if err != nil {
				return err
			}
			results = []*scheduler.RunResult{result}
		}

		return printRunResults(cmd.OutOrStdout(), results)
	})
}

func printJobStatuses(out io.Writer, statuses []scheduler.JobStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB\tKIND\tSCHEDULE\tLAST RUN\tNEXT RUN")

	for _, s := range statuses {
		lastRun := "never"
		if s.LastRun != nil {
			lastRun = s.LastRun.Local().Format(time.DateTime)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.Kind, s.Schedule, lastRun, s.NextRun.Local().Format(time.DateTime))
	}

	return w.Flush()
}

func printRunResults(out io.Writer, results []*scheduler.RunResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB\tROWS\tFILE")

	for _, r := range results {
		if r == nil {
			continue
		}

		rows := "-"
		if r.Result.Table != nil {
			rows = fmt.Sprintf("%d/%d", r.Result.Table.FilteredCount(), r.Result.Table.TotalCount())
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Job, rows, r.Path)
	}

	return w.Flush()
}
