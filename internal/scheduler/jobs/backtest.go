package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/store"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// BacktestJob runs the strategy as of today over the cached data and stores the run
type BacktestJob struct {
	runner   *backtest.Runner
	store    store.Store
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewBacktestJob creates a new daily backtest job
func NewBacktestJob(runner *backtest.Runner, s store.Store, schedule string, log *logger.Logger) *BacktestJob {
	return &BacktestJob{
		runner:   runner,
		store:    s,
		schedule: schedule,
		logger:   log.WithField("job", "backtest"),
		now:      time.Now,
	}
}

// Name returns the job name
func (j *BacktestJob) Name() string {
	return "backtest"
}

// Schedule returns the cron schedule
func (j *BacktestJob) Schedule() string {
	return j.schedule
}

// Run executes one backtest and persists it
func (j *BacktestJob) Run(ctx context.Context) error {
	asOf := contracts.DateOnly(j.now())

	result, err := j.runner.Run(ctx, asOf)
	if err != nil {
		return fmt.Errorf("backtest as of %s: %w", asOf.Format(contracts.DateLayout), err)
	}
	if err := j.store.Save(ctx, result); err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"warnings": len(result.Warnings),
	}).Info("Scheduled backtest stored")
	return nil
}
