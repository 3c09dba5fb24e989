package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/external/yahoo"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/internal/store"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
	"github.com/wonny/sectorrotation/pkg/config"
	"github.com/wonny/sectorrotation/pkg/database"
	"github.com/wonny/sectorrotation/pkg/httputil"
	"github.com/wonny/sectorrotation/pkg/logger"
	"github.com/wonny/sectorrotation/pkg/redis"
)

// Data sources a backtest can read from
const (
	sourceCSV      = "csv"
	sourcePostgres = "postgres"
)

// app bundles the configuration every command needs
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config

	db      *database.DB
	redis   *redis.Client
	closers []func()
}

// setup loads env config, the logger and the strategy YAML
func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := cfg.Strategy
	if strategyFile != "" {
		path = strategyFile
	}
	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	log.WithFields(map[string]interface{}{
		"strategy": path,
		"data_dir": cfg.DataDir,
	}).Debug("Configuration loaded")

	return &app{cfg: cfg, log: log, strategy: strategy}, nil
}

// Close releases every connection opened through the app
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// database connects to Postgres once; nil when DATABASE_URL is unset
func (a *app) database(ctx context.Context) (*database.DB, error) {
	if a.db != nil || !a.cfg.Database.Enabled() {
		return a.db, nil
	}

	db, err := database.New(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx, append(s0_data.PriceSchema, store.PostgresSchema...)...); err != nil {
		db.Close()
		return nil, err
	}

	a.db = db
	a.closers = append(a.closers, db.Close)
	a.log.Info("Connected to database")
	return db, nil
}

// csvStore returns the market data cache in DATA_DIR
func (a *app) csvStore() *s0_data.CSVStore {
	return s0_data.NewCSVStore(a.cfg.DataDir)
}

// fetchSource returns the upstream chart API client, behind the Redis
// cache when REDIS_ENABLED
func (a *app) fetchSource(ctx context.Context) (s0_data.SeriesSource, error) {
	httpClient := httputil.New(a.log, a.cfg.Yahoo.Timeout).
		WithRateLimit(a.cfg.Yahoo.RPS, 1)
	client := yahoo.NewClient(httpClient, a.cfg.Yahoo.BaseURL, a.log)

	if !a.cfg.Redis.Enabled {
		return client, nil
	}

	if a.redis == nil {
		rc, err := redis.New(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rc
		a.closers = append(a.closers, func() { rc.Close() })
	}
	return s0_data.NewCachedSource(client, redis.NewCache(a.redis, "rotation"), a.cfg.Redis.TTL, a.log), nil
}

// marketSource returns the series source backtests read from
func (a *app) marketSource(ctx context.Context, kind string) (s0_data.SeriesSource, error) {
	switch kind {
	case sourceCSV, "":
		return a.csvStore(), nil
	case sourcePostgres:
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		if db == nil {
			return nil, fmt.Errorf("--source postgres requires DATABASE_URL")
		}
		return s0_data.NewPriceRepository(db.Pool), nil
	default:
		return nil, fmt.Errorf("unknown source %q (expected csv|postgres)", kind)
	}
}

// runStore opens Postgres when configured, the SQLite file otherwise
func (a *app) runStore(ctx context.Context) (store.Store, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	if db != nil {
		return store.NewPostgresStore(db.Pool), nil
	}

	s, err := store.NewSQLiteStore(a.cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { s.Close() })
	return s, nil
}

// parseAsOf parses --as-of, defaulting to today
func parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return contracts.DateOnly(time.Now()), nil
	}
	t, err := time.Parse(contracts.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q (expected YYYY-MM-DD)", raw)
	}
	return t, nil
}
