package store

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/sectorrotation/internal/backtest"
)

// ErrNotFound is returned when no run matches the requested id
var ErrNotFound = errors.New("run not found")

// DefaultListLimit bounds List when the caller passes limit <= 0
const DefaultListLimit = 50

// Store persists backtest runs
// ⭐ SSOT: 백테스트 결과 저장은 이 인터페이스로만
type Store interface {
	Save(ctx context.Context, result *backtest.Result) error
	Get(ctx context.Context, runID string) (*backtest.Result, error)
	List(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// RunSummary is the indexed header of a stored run
type RunSummary struct {
	RunID       string    `json:"run_id"`
	AsOf        time.Time `json:"as_of"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	ConfigHash  string    `json:"config_hash"`
	TotalReturn float64   `json:"total_return"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	MaxDrawdown float64   `json:"max_drawdown"`
	Warnings    int       `json:"warnings"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summarize extracts the indexed header of a run
func Summarize(result *backtest.Result) RunSummary {
	return RunSummary{
		RunID:       result.RunID,
		AsOf:        result.AsOf,
		Start:       result.Start,
		End:         result.End,
		ConfigHash:  result.ConfigHash,
		TotalReturn: result.Summary.TotalReturn,
		SharpeRatio: result.Summary.SharpeRatio,
		MaxDrawdown: result.Summary.MaxDrawdown,
		Warnings:    len(result.Warnings),
		CreatedAt:   result.CreatedAt,
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
