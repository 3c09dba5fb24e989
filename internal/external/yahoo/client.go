package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/pkg/httputil"
	"github.com/wonny/sectorrotation/pkg/logger"
)

// DefaultBaseURL is the public Yahoo Finance query host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData means the chart API returned no bars for the symbol
var ErrNoData = errors.New("yahoo: no data")

// Client handles communication with the Yahoo Finance chart API
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "yahoo"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// chartURL builds the daily chart request for [from, to]
func (c *Client) chartURL(symbol string, from, to time.Time) string {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", contracts.DateOnly(from).Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprintf("%d", contracts.DateOnly(to).AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")
	params.Set("includeAdjustedClose", "true")

	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
}

// FetchSeries fetches daily adjusted closes for symbol in [from, to].
// Implements the s0_data series source contract.
func (c *Client) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (*contracts.Series, error) {
	var resp chartResponse
	err := c.httpClient.GetJSON(ctx, c.chartURL(symbol, from, to), &resp)

	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s: %w", symbol, err)
	}

	obs, err := resp.observations()
	if err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", symbol, err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	series, err := contracts.NewSeries(symbol, obs)
	if err != nil {
		return nil, err
	}
	series = series.Between(from, to)

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  series.Len(),
	}).Debug("Fetched chart")
	return series, nil
}
