package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32 // failing attempts before the first success, -1 = always fail
	calls    atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.failures < 0 || n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 0 16 * * *"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "CRON_TZ=Asia/Kolkata 0 30 18 * * 1-5"}))
	assert.Equal(t, []string{"a", "b"}, s.Jobs())

	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "not a cron"}), "bad expression")
}

func TestScheduler_RunJobRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		wantOK    bool
		wantCalls int32
	}{
		{"first attempt", 0, true, 1},
		{"after retries", 2, true, 3},
		{"exhausted", -1, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := &fakeJob{name: "refresh", schedule: "@daily", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunJob(context.Background(), "refresh")
			require.NoError(t, err)

			assert.Equal(t, tt.wantOK, result.Success)
			assert.Equal(t, tt.wantCalls, job.calls.Load())
			assert.Equal(t, int(tt.wantCalls), result.Attempts)
			if !tt.wantOK {
				assert.Equal(t, "transient", result.Error)
			}

			history, err := s.History("refresh")
			require.NoError(t, err)
			assert.Len(t, history.Results, 1)
		})
	}
}

func TestScheduler_RunJobCancelledDuringRetry(t *testing.T) {
	s := New(logger.Nop()).WithRetry(5, time.Hour)
	job := &fakeJob{name: "refresh", schedule: "@daily", failures: -1}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.RunJob(ctx, "refresh")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Equal(t, context.DeadlineExceeded.Error(), result.Error)
}

func TestScheduler_HistoryIsSnapshot(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "refresh", schedule: "@daily"}))

	_, err := s.RunJob(context.Background(), "refresh")
	require.NoError(t, err)

	first, err := s.History("refresh")
	require.NoError(t, err)
	require.Len(t, first.Results, 1)

	first.Add(JobResult{JobName: "refresh"})
	first.Results[0].Success = false

	_, err = s.RunJob(context.Background(), "refresh")
	require.NoError(t, err)

	second, err := s.History("refresh")
	require.NoError(t, err)
	require.Len(t, second.Results, 2)
	assert.True(t, second.Results[0].Success, "caller mutation does not leak back")
	assert.Len(t, first.Results, 2, "earlier snapshot only changes via its own Add")
}

func TestScheduler_UnknownJob(t *testing.T) {
	s := newTestScheduler()

	_, err := s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
	_, err = s.History("missing")
	assert.Error(t, err)
	assert.Error(t, s.RemoveJob("missing"))
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "refresh", schedule: "@daily"}))
	require.NoError(t, s.RemoveJob("refresh"))

	assert.Empty(t, s.Jobs())
	assert.Empty(t, s.cron.Entries())
	require.NoError(t, s.AddJob(&fakeJob{name: "refresh", schedule: "@hourly"}))
}

func TestScheduler_Stats(t *testing.T) {
	s := newTestScheduler().WithRetry(0, time.Millisecond)
	ok := &fakeJob{name: "ok", schedule: "@daily"}
	bad := &fakeJob{name: "bad", schedule: "@hourly", failures: -1}
	require.NoError(t, s.AddJob(ok))
	require.NoError(t, s.AddJob(bad))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.RunJob(ctx, "ok")
		require.NoError(t, err)
	}
	_, err := s.RunJob(ctx, "bad")
	require.NoError(t, err)

	stats := s.Stats()
	require.Len(t, stats, 2)

	assert.Equal(t, 3, stats["ok"].TotalRuns)
	assert.Equal(t, 3, stats["ok"].SuccessCount)
	assert.InDelta(t, 1.0, stats["ok"].SuccessRate, 1e-12)
	assert.NotNil(t, stats["ok"].LastSuccess)
	assert.Nil(t, stats["ok"].LastFailure)

	assert.Nil(t, stats["ok"].NextRun, "not started")
	assert.False(t, stats["ok"].Running)

	assert.Equal(t, "@hourly", stats["bad"].Schedule)
	assert.Equal(t, 1, stats["bad"].FailureCount)
	assert.NotNil(t, stats["bad"].LastFailure)
}

func TestJobHistory(t *testing.T) {
	var h JobHistory
	for i := 0; i < 105; i++ {
		h.Add(JobResult{JobName: "x", Attempts: i, Success: i%5 != 0})
	}

	assert.Len(t, h.Results, 100)
	assert.Equal(t, 5, h.Results[0].Attempts, "oldest dropped first")
	assert.Len(t, h.Latest(10), 10)
	assert.Len(t, h.Latest(500), 100)
	assert.Len(t, h.Failures(), 20)
	assert.InDelta(t, 0.8, h.SuccessRate(), 1e-12)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 104, last.Attempts)

	var empty JobHistory
	assert.Empty(t, empty.Latest(3))
	assert.Zero(t, empty.SuccessRate())
	_, ok = empty.Last()
	assert.False(t, ok)
}

type blockingJob struct {
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Name() string     { return "backtest" }
func (j *blockingJob) Schedule() string { return "@daily" }

func (j *blockingJob) Run(ctx context.Context) error {
	close(j.started)
	<-j.release
	return nil
}

func TestScheduler_RunJobWhileRunning(t *testing.T) {
	s := newTestScheduler()
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	done := make(chan JobResult, 1)
	go func() {
		result, _ := s.RunJob(context.Background(), "backtest")
		done <- result
	}()
	<-job.started

	_, err := s.RunJob(context.Background(), "backtest")
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.True(t, s.Stats()["backtest"].Running)

	close(job.release)
	result := <-done
	assert.True(t, result.Success)
	assert.False(t, s.Stats()["backtest"].Running)
}
