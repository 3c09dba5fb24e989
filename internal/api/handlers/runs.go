package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"gonum.org/v1/plot/vg"

	"github.com/wonny/sectorrotation/internal/audit"
	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/store"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// RunHandler serves stored backtest runs
// ⭐ SSOT: 백테스트 결과 API 핸들러는 이 구조체에서만
type RunHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(s store.Store, log *logger.Logger) *RunHandler {
	return &RunHandler{
		store:  s,
		logger: log,
	}
}

// List returns stored run headers, newest first
// GET /api/runs?limit=N
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", store.DefaultListLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
		return
	}

	runs, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get returns the full report of one run
// GET /api/runs/{id}
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, audit.NewReport(result))
}

// GetSchedule returns the rotation schedule of one run
// GET /api/runs/{id}/schedule
func (h *RunHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	result, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, result.Schedule)
}

// GetEquity returns the strategy and benchmark equity curves of one run
// GET /api/runs/{id}/equity
func (h *RunHandler) GetEquity(w http.ResponseWriter, r *http.Request) {
	result, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"equity":    result.Equity,
		"benchmark": result.Benchmark,
	})
}

// GetPlot renders the equity curves as PNG
// GET /api/runs/{id}/plot.png
func (h *RunHandler) GetPlot(w http.ResponseWriter, r *http.Request) {
	result, ok := h.load(w, r)
	if !ok {
		return
	}

	p, err := audit.EquityPlot(audit.NewReport(result))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		h.logger.WithError(err).Error("Failed to render plot")
		respondError(w, http.StatusInternalServerError, "Failed to render plot")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := wt.WriteTo(w); err != nil {
		h.logger.WithError(err).Warn("Failed to write plot")
	}
}

func (h *RunHandler) load(w http.ResponseWriter, r *http.Request) (*backtest.Result, bool) {
	id := mux.Vars(r)["id"]

	result, err := h.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to load run")
		respondError(w, http.StatusInternalServerError, "Failed to load run")
		return nil, false
	}
	return result, true
}
