package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/internal/s0_data/collector"
	"github.com/wonny/sectorrotation/internal/scheduler"
	"github.com/wonny/sectorrotation/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `데이터 갱신과 정기 백테스트를 cron 스케줄로 실행합니다.

등록되는 작업:
- data_refresh: REFRESH_SCHEDULE (기본 평일 18:30 IST, CSV 캐시 갱신)
- backtest:     BACKTEST_SCHEDULE (기본 평일 19:00 IST, 실행 결과 저장)

Subcommands:
  start  - 스케줄러 시작
  list   - 등록된 작업 목록
  run    - 특정 작업 즉시 실행

Example:
  go run ./cmd/rotation scheduler start
  go run ./cmd/rotation scheduler run data_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

const (
	jobMaxRetries = 2
	jobRetryDelay = time.Minute
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler registers the refresh and backtest jobs
func initScheduler(cmd *cobra.Command, a *app) (*scheduler.Scheduler, error) {
	ctx := cmd.Context()

	upstream, err := a.fetchSource(ctx)
	if err != nil {
		return nil, err
	}
	runs, err := a.runStore(ctx)
	if err != nil {
		return nil, err
	}

	csv := a.csvStore()
	col := collector.NewCollector(upstream, csv, nil, a.log)
	runner := backtest.NewRunner(a.strategy, s0_data.NewProvider(csv, nil, a.log), a.log)

	sched := scheduler.New(a.log).WithRetry(jobMaxRetries, jobRetryDelay)
	if err := sched.AddJob(jobs.NewDataRefreshJob(col, a.strategy, a.cfg.Scheduler.RefreshSchedule, a.cfg.Scheduler.Workers, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewBacktestJob(runner, runs, a.cfg.Scheduler.BacktestSchedule, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(cmd, a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Scheduler started. Registered jobs:")
	stats := sched.Stats()
	for _, name := range sched.Jobs() {
		next := "-"
		if st := stats[name]; st.NextRun != nil {
			next = st.NextRun.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "  - %-14s %-40s next %s\n", name, stats[name].Schedule, next)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Stopping scheduler")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(cmd, a)
	if err != nil {
		return err
	}

	stats := sched.Stats()
	for _, name := range sched.Jobs() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", name, stats[name].Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(cmd, a)
	if err != nil {
		return err
	}

	result, err := sched.RunJob(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("job %s failed after %s: %s", result.JobName, result.Duration.Round(time.Millisecond), result.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Job %s completed in %s\n", result.JobName, result.Duration.Round(time.Millisecond))
	return nil
}
