package scheduler

import (
	"context"
	"time"
)

// historyLimit bounds the results kept per job
const historyLimit = 100

// Job is a unit of work the scheduler triggers
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes one attempt. A returned error triggers a retry.
	Run(ctx context.Context) error

	// Schedule is a cron expression with a seconds field, optionally
	// prefixed by CRON_TZ=<zone>, e.g. "CRON_TZ=Asia/Kolkata 0 30 18 * * 1-5"
	Schedule() string
}

// JobResult is one triggered execution, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the most recent results of a job, oldest first
type JobHistory struct {
	Results []JobResult
}

// Add records a result, dropping the oldest beyond historyLimit
func (h *JobHistory) Add(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Last returns the most recent result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// Latest returns up to n most recent results
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	out := make([]JobResult, n)
	copy(out, h.Results[len(h.Results)-n:])
	return out
}

// Failures returns the failed results
func (h *JobHistory) Failures() []JobResult {
	failed := make([]JobResult, 0)
	for _, r := range h.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate is the share of successful results (0 with no history)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-len(h.Failures())) / float64(len(h.Results))
}
