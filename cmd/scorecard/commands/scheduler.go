package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ecfr-scorecard/internal/s0_ingest/staging"
	"github.com/wonny/ecfr-scorecard/internal/scheduler"
	"github.com/wonny/ecfr-scorecard/internal/scheduler/jobs"
)

var schedulerRunTimeout time.Duration

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the pipeline scheduler",
	Long: `Start the scheduler daemon or run its jobs by hand.

Subcommands:
  start   - start the scheduler
  list    - list registered jobs
  run     - run one job now and wait for it

Example:
  go run ./cmd/scorecard scheduler start
  go run ./cmd/scorecard scheduler list
  go run ./cmd/scorecard scheduler run scorecard_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler and register every job.

Registered jobs:
- scorecard_pipeline: PIPELINE_SCHEDULE (default daily 06:00)
- snapshot_retention: hourly at :30`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.PersistentFlags().DurationVar(&schedulerRunTimeout, "run-timeout", 30*time.Minute, "maximum duration of one pipeline run")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	PrintHeader("Scheduler")
	for _, jobName := range sched.GetAllJobs() {
		line := fmt.Sprintf("  - %s", jobName)
		if next, ok := sched.NextRun(jobName); ok {
			line += fmt.Sprintf("  next %s", next.Format("2006-01-02 15:04:05"))
		}
		fmt.Println(line)
	}
	PrintSeparator()
	PrintSuccess("Scheduler started, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	printJobStats(sched.GetJobStats())
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	stats := sched.GetJobStats()
	PrintTableHeader([]string{"JOB", "SCHEDULE"}, []int{22, 20})
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("%-22s  %-20s\n", jobName, stats[jobName].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()
	defer sched.Stop()

	PrintInfo(fmt.Sprintf("Running job: %s", jobName))
	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	switch {
	case result.Skipped:
		PrintWarning(fmt.Sprintf("%s skipped: %s", jobName, result.Error))
	case result.Success:
		PrintSuccess(fmt.Sprintf("%s completed in %.2fs (%d attempt(s))", jobName, result.Duration.Seconds(), result.Attempts))
	default:
		PrintError(fmt.Sprintf("%s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	return nil
}

func printJobStats(stats map[string]scheduler.JobStats) {
	for _, stat := range stats {
		fmt.Printf("📊 %s\n", stat.JobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)
		fmt.Printf("   Skipped: %d\n", stat.SkippedCount)
		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}
		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

// initScheduler wires the pipeline and retention jobs.
// The returned cleanup closes the staging store and every connection.
func initScheduler() (*scheduler.Scheduler, func(), error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}

	var st *staging.Store
	cleanup := func() {
		if st != nil {
			_ = st.Close()
		}
		a.Close()
	}

	st, err = a.openStaging(context.Background())
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	orch, err := a.orchestrator(st, false)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	sched := scheduler.New(a.log)
	for _, job := range []scheduler.Job{
		jobs.NewPipelineJob(orch, a.cfg.Pipeline.Schedule, schedulerRunTimeout, a.log),
		jobs.NewSnapshotRetentionJob(a.store, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	return sched, cleanup, nil
}
