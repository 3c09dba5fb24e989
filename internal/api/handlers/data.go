package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/internal/s0_data/collector"
	"github.com/wonny/sectorrotation/internal/s0_data/quality"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	cfg       *strategyconfig.Config
	source    s0_data.SeriesSource
	gate      *quality.Gate
	collector *collector.Collector
	logger    *logger.Logger
	now       func() time.Time
}

// NewDataHandler creates a new data handler. col may be nil, which
// disables POST /api/data/collect.
func NewDataHandler(
	cfg *strategyconfig.Config,
	source s0_data.SeriesSource,
	gate *quality.Gate,
	col *collector.Collector,
	log *logger.Logger,
) *DataHandler {
	if gate == nil {
		gate = quality.NewGate(quality.DefaultConfig())
	}
	return &DataHandler{
		cfg:       cfg,
		source:    source,
		gate:      gate,
		collector: col,
		logger:    log,
		now:       time.Now,
	}
}

// QualityResponse is the per-ticker quality of the cached data
type QualityResponse struct {
	AsOf    time.Time        `json:"as_of"`
	From    time.Time        `json:"from"`
	To      time.Time        `json:"to"`
	OK      bool             `json:"ok"`
	Missing []string         `json:"missing,omitempty"`
	Reports []quality.Report `json:"reports"`
}

// GetQuality checks every configured ticker over the range a backtest at
// as_of would need
// GET /api/data/quality?as_of=YYYY-MM-DD
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryDate(r, "as_of", h.today())
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid 'as_of' date format (expected YYYY-MM-DD)")
		return
	}

	req := backtest.DataRequest(h.cfg, asOf)
	resp := QualityResponse{AsOf: asOf, From: req.From, To: req.To, OK: true}

	var series []*contracts.Series
	for _, ticker := range req.Tickers() {
		s, err := h.source.FetchSeries(r.Context(), ticker, req.From, req.To)
		if errors.Is(err, s0_data.ErrTickerNotFound) {
			resp.Missing = append(resp.Missing, ticker)
			resp.OK = false
			continue
		}
		if err != nil {
			h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to read series")
			respondError(w, http.StatusInternalServerError, "Failed to read market data")
			return
		}
		series = append(series, s)
	}

	resp.Reports = h.gate.CheckAll(series, req.From, req.To)
	for _, report := range resp.Reports {
		if !report.OK() {
			resp.OK = false
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	AsOf         string `json:"as_of"` // Optional: YYYY-MM-DD, default today
	ForceRefresh bool   `json:"force_refresh"`
	Workers      int    `json:"workers"`
}

// CollectResult is one fetched (or skipped) ticker
type CollectResult struct {
	File    string `json:"file"`
	Ticker  string `json:"ticker"`
	Count   int    `json:"count"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// CollectResponse represents a data collection response
type CollectResponse struct {
	Status  string          `json:"status"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Failed  int             `json:"failed"`
	Results []CollectResult `json:"results"`
}

// Collect fetches the configured series into the CSV cache
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	if h.collector == nil {
		respondError(w, http.StatusServiceUnavailable, "Data collection is not configured")
		return
	}

	var body CollectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	asOf := h.today()
	if body.AsOf != "" {
		parsed, err := time.Parse(contracts.DateLayout, body.AsOf)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'as_of' date format (expected YYYY-MM-DD)")
			return
		}
		asOf = parsed
	}
	if body.Workers <= 0 {
		body.Workers = 4
	}

	req := backtest.DataRequest(h.cfg, asOf)
	results, err := h.collector.Collect(r.Context(), req, collector.Config{
		Workers:      body.Workers,
		ForceRefresh: body.ForceRefresh,
	})
	if err != nil {
		h.logger.WithError(err).Error("Data collection failed")
		respondError(w, http.StatusInternalServerError, "Data collection failed")
		return
	}

	resp := CollectResponse{Status: "ok", From: req.From, To: req.To, Results: make([]CollectResult, len(results))}
	for i, res := range results {
		resp.Results[i] = CollectResult{File: res.File, Ticker: res.Ticker, Count: res.Count, Skipped: res.Skipped}
		if res.Error != nil {
			resp.Results[i].Error = res.Error.Error()
			resp.Failed++
		}
	}
	if resp.Failed > 0 {
		resp.Status = "partial"
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *DataHandler) today() time.Time {
	return contracts.DateOnly(h.now())
}
