package s0_data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// Cache files in the data directory, long format: date,ticker,close
const (
	SectorsFile   = "sectors.csv"
	BenchmarkFile = "benchmark.csv"
	MacroFile     = "macro.csv"
)

var csvHeader = []string{"date", "ticker", "close"}

// CSVStore persists close series as CSV files in a directory and serves them
// back as a SeriesSource
// ⭐ SSOT: 로컬 CSV 캐시는 여기서만
type CSVStore struct {
	dir string

	mu     sync.Mutex
	loaded map[string]*contracts.Series // ticker -> full series, nil until first read
}

// NewCSVStore creates a store rooted at dir
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// Dir returns the data directory
func (s *CSVStore) Dir() string {
	return s.dir
}

// Exists reports whether a cache file is present
func (s *CSVStore) Exists(file string) bool {
	_, err := os.Stat(filepath.Join(s.dir, file))
	return err == nil
}

// Write replaces file with the given series
func (s *CSVStore) Write(file string, series []*contracts.Series) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(s.dir, file)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", file, err)
	}

	if err := writeSeries(f, series); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", file, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", file, err)
	}

	s.mu.Lock()
	s.loaded = nil
	s.mu.Unlock()
	return nil
}

// Read parses file into series keyed by ticker
func (s *CSVStore) Read(file string) (map[string]*contracts.Series, error) {
	f, err := os.Open(filepath.Join(s.dir, file))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := readSeries(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return series, nil
}

// FetchSeries implements SeriesSource over every cache file present
func (s *CSVStore) FetchSeries(ctx context.Context, ticker string, from, to time.Time) (*contracts.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := s.index()
	if err != nil {
		return nil, err
	}
	series, ok := all[ticker]
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", ticker, s.dir, ErrTickerNotFound)
	}
	return series.Between(from, to), nil
}

// index loads all cache files once
func (s *CSVStore) index() (map[string]*contracts.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded != nil {
		return s.loaded, nil
	}

	all := make(map[string]*contracts.Series)
	for _, file := range []string{SectorsFile, BenchmarkFile, MacroFile} {
		series, err := s.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for ticker, ser := range series {
			all[ticker] = ser
		}
	}
	s.loaded = all
	return all, nil
}

func writeSeries(w io.Writer, series []*contracts.Series) error {
	sorted := make([]*contracts.Series, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ticker() < sorted[j].Ticker() })

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, ser := range sorted {
		for _, o := range ser.Observations() {
			rec := []string{
				o.Date.Format(contracts.DateLayout),
				ser.Ticker(),
				strconv.FormatFloat(o.Value, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func readSeries(r io.Reader) (map[string]*contracts.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return map[string]*contracts.Series{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected header %v, want %v", header, csvHeader)
		}
	}

	grouped := make(map[string][]contracts.Observation)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		date, err := time.Parse(contracts.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, rec[0])
		}
		// 거래 없는 날은 빈 값으로 저장된 경우가 있음
		if rec[2] == "" {
			continue
		}
		value, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad close %q", line, rec[2])
		}
		grouped[rec[1]] = append(grouped[rec[1]], contracts.Observation{Date: date, Value: value})
	}

	out := make(map[string]*contracts.Series, len(grouped))
	for ticker, obs := range grouped {
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
		series, err := contracts.NewSeries(ticker, obs)
		if err != nil {
			return nil, err
		}
		out[ticker] = series
	}
	return out, nil
}
