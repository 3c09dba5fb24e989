package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/sectorrotation/pkg/logger"
)

// ErrJobRunning is returned when a job is triggered while its previous run
// is still in progress
var ErrJobRunning = errors.New("job already running")

// Scheduler triggers the data refresh and backtest jobs on their cron
// schedules and keeps a bounded run history per job
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	running map[string]bool
	mu      sync.RWMutex

	maxRetries int
	retryDelay time.Duration
}

// New creates a scheduler. Expressions carry a seconds field.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		history:    make(map[string]*JobHistory),
		running:    make(map[string]bool),
		maxRetries: 3,
		retryDelay: time.Minute,
	}
}

// WithRetry overrides the retry policy: up to maxRetries extra attempts,
// delay apart
func (s *Scheduler) WithRetry(maxRetries int, delay time.Duration) *Scheduler {
	s.maxRetries = maxRetries
	s.retryDelay = delay
	return s
}

// AddJob registers a job under its name
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		if _, err := s.trigger(context.Background(), job); errors.Is(err, ErrJobRunning) {
			s.logger.WithField("job", name).Warn("Previous run still in progress, skipping")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.jobs[name] = job
	s.entries[name] = id
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")
	return nil
}

// RemoveJob unschedules a job and drops its history
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.entries, name)
	delete(s.history, name)
	s.logger.WithField("job", name).Info("Job removed from scheduler")
	return nil
}

// Start begins triggering jobs in the background
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts triggering and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a job now, outside its schedule, and waits for the result
func (s *Scheduler) RunJob(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}
	return s.trigger(ctx, job)
}

// trigger runs job unless a previous run is still going
func (s *Scheduler) trigger(ctx context.Context, job Job) (JobResult, error) {
	name := job.Name()

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		return JobResult{}, fmt.Errorf("%s: %w", name, ErrJobRunning)
	}
	s.running[name] = true
	s.mu.Unlock()

	result := s.execute(ctx, job)

	s.mu.Lock()
	delete(s.running, name)
	if history, exists := s.history[name]; exists {
		history.Add(result)
	}
	s.mu.Unlock()

	return result, nil
}

// execute runs job with retries, stopping early if ctx ends
func (s *Scheduler) execute(ctx context.Context, job Job) JobResult {
	result := JobResult{JobName: job.Name(), StartTime: time.Now()}
	log := s.logger.WithField("job", result.JobName)
	log.Info("Job started")

	var lastErr error
attempts:
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		result.Attempts++
		if lastErr = job.Run(ctx); lastErr == nil {
			result.Success = true
			break
		}

		log.WithFields(map[string]interface{}{
			"attempt": result.Attempts,
			"error":   lastErr.Error(),
		}).Warn("Job attempt failed")

		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break attempts
		case <-time.After(s.retryDelay):
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if result.Success {
		log.WithFields(map[string]interface{}{
			"duration": result.Duration,
			"attempts": result.Attempts,
		}).Info("Job completed")
		return result
	}

	result.Error = lastErr.Error()
	log.WithFields(map[string]interface{}{
		"duration": result.Duration,
		"attempts": result.Attempts,
		"error":    result.Error,
	}).Error("Job failed")
	return result
}

// History returns a snapshot of a job's run history. Later runs do not
// change the returned value.
func (s *Scheduler) History(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return &JobHistory{Results: history.Latest(historyLimit)}, nil
}

// Jobs returns the registered job names, sorted
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobStats summarizes a job's schedule and history
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	Running      bool       `json:"running"`
	NextRun      *time.Time `json:"next_run,omitempty"` // set once the scheduler is started
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

// Stats returns per-job statistics keyed by job name
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, job := range s.jobs {
		history := s.history[name]
		failures := len(history.Failures())

		st := JobStats{
			JobName:      name,
			Schedule:     job.Schedule(),
			Running:      s.running[name],
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - failures,
			FailureCount: failures,
			SuccessRate:  history.SuccessRate(),
		}

		if next := s.cron.Entry(s.entries[name]).Next; !next.IsZero() {
			st.NextRun = &next
		}
		for i := range history.Results {
			r := history.Results[i]
			st.LastRun = &r.StartTime
			if r.Success {
				st.LastSuccess = &r.StartTime
			} else {
				st.LastFailure = &r.StartTime
			}
		}

		stats[name] = st
	}
	return stats
}
