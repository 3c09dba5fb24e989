package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const defaultTrendLookback = 50

// Default returns the validated default strategy
func Default() (*Config, error) {
	return Parse(nil)
}

// Parse decodes a YAML document on top of the defaults and validates it.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode strategy yaml: %w", err)
		}
	}

	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads a YAML file and returns the Config with the raw bytes
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// normalize fills per-element defaults of user-supplied lists
func normalize(cfg *Config) {
	for i := range cfg.Macro.Indicators {
		if cfg.Macro.Indicators[i].TrendLookback == 0 {
			cfg.Macro.Indicators[i].TrendLookback = defaultTrendLookback
		}
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// RebalancePeriod is the nominal length of one rebalance period
func (c *Config) RebalancePeriod() time.Duration {
	day := 24 * time.Hour
	switch c.Selection.RebalanceFrequency {
	case Weekly:
		return 7 * day
	case Quarterly:
		return 92 * day
	default:
		return 31 * day
	}
}

// StartTolerance is how far the first equity date may trail the requested start
func (c *Config) StartTolerance() time.Duration {
	if c.Backtest.StartToleranceDays > 0 {
		return time.Duration(c.Backtest.StartToleranceDays) * 24 * time.Hour
	}
	return c.RebalancePeriod()
}
