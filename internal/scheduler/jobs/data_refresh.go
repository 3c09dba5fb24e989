package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data/collector"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// DataRefreshJob re-fetches every configured series into the CSV cache
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataRefreshJob struct {
	collector *collector.Collector
	strategy  *strategyconfig.Config
	schedule  string
	workers   int
	logger    *logger.Logger
	now       func() time.Time
}

// NewDataRefreshJob creates a new data refresh job
func NewDataRefreshJob(col *collector.Collector, strategy *strategyconfig.Config, schedule string, workers int, log *logger.Logger) *DataRefreshJob {
	return &DataRefreshJob{
		collector: col,
		strategy:  strategy,
		schedule:  schedule,
		workers:   workers,
		logger:    log.WithField("job", "data_refresh"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *DataRefreshJob) Name() string {
	return "data_refresh"
}

// Schedule returns the cron schedule
func (j *DataRefreshJob) Schedule() string {
	return j.schedule
}

// Run fetches the range a backtest as of today needs. Any failed ticker
// fails the job so the scheduler retries it.
func (j *DataRefreshJob) Run(ctx context.Context) error {
	asOf := contracts.DateOnly(j.now())
	req := backtest.DataRequest(j.strategy, asOf)

	results, err := j.collector.Collect(ctx, req, collector.Config{Workers: j.workers, ForceRefresh: true})
	if err != nil {
		return fmt.Errorf("collect series: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			j.logger.WithError(r.Error).WithField("ticker", r.Ticker).Warn("Ticker refresh failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tickers failed", failed, len(results))
	}

	j.logger.WithFields(map[string]interface{}{
		"as_of":   asOf.Format(contracts.DateLayout),
		"tickers": len(results),
	}).Info("Scheduled data refresh completed")
	return nil
}
