package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// SeriesSaver mirrors fetched series into a secondary store (Postgres)
type SeriesSaver interface {
	SaveSeries(ctx context.Context, series *contracts.Series) error
}

// Invalidator is implemented by caching sources that can drop a ticker
// before a forced refresh
type Invalidator interface {
	Invalidate(ctx context.Context, ticker string) error
}

// Collector fetches every instrument of a DataRequest from a remote source
// and caches it in the CSV store
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source s0_data.SeriesSource
	store  *s0_data.CSVStore
	mirror SeriesSaver
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers      int  // Number of concurrent workers
	ForceRefresh bool // Re-fetch files already cached
}

// NewCollector creates a new Collector instance. mirror may be nil.
func NewCollector(source s0_data.SeriesSource, store *s0_data.CSVStore, mirror SeriesSaver, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		store:  store,
		mirror: mirror,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of one ticker fetch
type FetchResult struct {
	File    string
	Ticker  string
	Count   int
	Skipped bool
	Error   error
}

type job struct {
	file    string
	ticker  string
	refresh bool
}

// Collect fetches the request's sectors, macro indicators and benchmark into
// sectors.csv, macro.csv and benchmark.csv. Files already present are kept
// unless cfg.ForceRefresh. A new file is written with whatever tickers succeeded;
// an existing file is only replaced when every ticker of its group succeeded.
func (c *Collector) Collect(ctx context.Context, req contracts.DataRequest, cfg Config) ([]FetchResult, error) {
	groups := map[string][]string{
		s0_data.SectorsFile: values(req.Sectors),
		s0_data.MacroFile:   values(req.Macro),
	}
	if req.Benchmark != "" {
		groups[s0_data.BenchmarkFile] = []string{req.Benchmark}
	}

	var results []FetchResult
	var jobs []job
	for _, file := range sortedFiles(groups) {
		if c.store.Exists(file) && !cfg.ForceRefresh {
			for _, t := range groups[file] {
				results = append(results, FetchResult{File: file, Ticker: t, Skipped: true})
			}
			c.logger.WithField("file", file).Info("Using cached file")
			continue
		}
		for _, t := range groups[file] {
			jobs = append(jobs, job{file: file, ticker: t, refresh: cfg.ForceRefresh})
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"tickers": len(jobs),
		"from":    req.From.Format(contracts.DateLayout),
		"to":      req.To.Format(contracts.DateLayout),
		"workers": cfg.Workers,
	}).Info("Starting series collection")

	fetched, fetchResults := c.fetchAll(ctx, req, jobs, cfg.Workers)
	results = append(results, fetchResults...)
	if err := ctx.Err(); err != nil {
		return results, err
	}

	incomplete := make(map[string]bool)
	for _, r := range fetchResults {
		if r.Error != nil {
			incomplete[r.File] = true
		}
	}

	for file, series := range fetched {
		if len(series) == 0 {
			continue
		}
		// 기존 캐시를 일부 티커만으로 덮어쓰지 않음
		if incomplete[file] && c.store.Exists(file) {
			c.logger.WithField("file", file).Warn("Keeping cached file, refresh incomplete")
			continue
		}
		if err := c.store.Write(file, series); err != nil {
			return results, err
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].File != results[j].File {
			return results[i].File < results[j].File
		}
		return results[i].Ticker < results[j].Ticker
	})

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	c.logger.WithFields(map[string]interface{}{
		"fetched": len(jobs) - failed,
		"failed":  failed,
		"total":   len(results),
	}).Info("Series collection completed")

	return results, nil
}

// fetchAll runs jobs on a worker pool and groups the fetched series by file
func (c *Collector) fetchAll(ctx context.Context, req contracts.DataRequest, jobs []job, workers int) (map[string][]*contracts.Series, []FetchResult) {
	if workers < 1 {
		workers = 1
	}

	type outcome struct {
		job    job
		series *contracts.Series
		err    error
	}

	jobCh := make(chan job, len(jobs))
	outCh := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				if err := ctx.Err(); err != nil {
					outCh <- outcome{job: j, err: err}
					continue
				}
				series, err := c.fetchOne(ctx, req, j)
				if err != nil {
					c.logger.WithError(err).WithFields(map[string]interface{}{
						"worker": workerID,
						"ticker": j.ticker,
					}).Error("Failed to fetch series")
				}
				outCh <- outcome{job: j, series: series, err: err}
			}
		}(i)
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(outCh)
	}()

	fetched := make(map[string][]*contracts.Series)
	results := make([]FetchResult, 0, len(jobs))
	for o := range outCh {
		r := FetchResult{File: o.job.file, Ticker: o.job.ticker, Error: o.err}
		if o.err == nil {
			r.Count = o.series.Len()
			fetched[o.job.file] = append(fetched[o.job.file], o.series)
		}
		results = append(results, r)
	}
	return fetched, results
}

func (c *Collector) fetchOne(ctx context.Context, req contracts.DataRequest, j job) (*contracts.Series, error) {
	if inv, ok := c.source.(Invalidator); ok && j.refresh {
		if err := inv.Invalidate(ctx, j.ticker); err != nil {
			c.logger.WithError(err).WithField("ticker", j.ticker).Warn("Cache invalidation failed")
		}
	}

	series, err := c.source.FetchSeries(ctx, j.ticker, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", j.ticker, err)
	}
	if c.mirror != nil {
		if err := c.mirror.SaveSeries(ctx, series); err != nil {
			return nil, fmt.Errorf("save %s: %w", j.ticker, err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": j.ticker,
		"count":  series.Len(),
	}).Debug("Fetched series")
	return series, nil
}

func values(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedFiles(groups map[string][]string) []string {
	files := make([]string, 0, len(groups))
	for f := range groups {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
