package s0_data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data/quality"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// ErrTickerNotFound is returned by a SeriesSource that has no data for a ticker
var ErrTickerNotFound = errors.New("ticker not found")

// SeriesSource delivers the close history of one instrument in [from, to]
type SeriesSource interface {
	FetchSeries(ctx context.Context, ticker string, from, to time.Time) (*contracts.Series, error)
}

// Provider assembles MarketData from a SeriesSource.
// Sector series are required; macro and benchmark series are optional and
// their absence surfaces downstream as warnings.
// ⭐ SSOT: MarketData 조립은 여기서만
type Provider struct {
	source SeriesSource
	gate   *quality.Gate
	logger *logger.Logger
}

// NewProvider creates a provider over source
func NewProvider(source SeriesSource, gate *quality.Gate, log *logger.Logger) *Provider {
	if gate == nil {
		gate = quality.NewGate(quality.DefaultConfig())
	}
	return &Provider{
		source: source,
		gate:   gate,
		logger: log.WithField("module", "s0_data"),
	}
}

// Load implements contracts.MarketDataProvider
func (p *Provider) Load(ctx context.Context, req contracts.DataRequest) (*contracts.MarketData, error) {
	data := &contracts.MarketData{
		Sectors: make(map[string]*contracts.PriceSeries, len(req.Sectors)),
		Macro:   make(map[string]*contracts.MacroSeries, len(req.Macro)),
	}

	for _, id := range sortedKeys(req.Sectors) {
		series, err := p.source.FetchSeries(ctx, req.Sectors[id], req.From, req.To)
		if err != nil {
			return nil, fmt.Errorf("load sector %s (%s): %w", id, req.Sectors[id], err)
		}
		p.inspect(series, req)
		data.Sectors[id] = series
	}

	for _, id := range sortedKeys(req.Macro) {
		series, err := p.source.FetchSeries(ctx, req.Macro[id], req.From, req.To)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.logger.WithError(err).WithField("indicator", id).Warn("Macro series unavailable")
			continue
		}
		p.inspect(series, req)
		data.Macro[id] = series
	}

	if req.Benchmark != "" {
		series, err := p.source.FetchSeries(ctx, req.Benchmark, req.From, req.To)
		switch {
		case err == nil:
			data.Benchmark = series
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			p.logger.WithError(err).WithField("ticker", req.Benchmark).Warn("Benchmark series unavailable")
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"sectors":   len(data.Sectors),
		"macro":     len(data.Macro),
		"benchmark": data.Benchmark != nil,
		"from":      req.From.Format(contracts.DateLayout),
		"to":        req.To.Format(contracts.DateLayout),
	}).Info("Market data loaded")

	return data, nil
}

// inspect logs quality issues; it never rejects a series
func (p *Provider) inspect(series *contracts.Series, req contracts.DataRequest) {
	report := p.gate.Check(series, req.From, req.To)
	if report.OK() {
		return
	}
	p.logger.WithFields(map[string]interface{}{
		"ticker": report.Ticker,
		"issues": report.Issues,
	}).Warn("Series quality issues")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
