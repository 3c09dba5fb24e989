package yahoo

import (
	"fmt"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// chartResponse is the subset of /v8/finance/chart used here
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int64  `json:"gmtoffset"` // seconds east of UTC
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// observations converts the chart into date-ordered closes in the exchange's
// local calendar. Adjusted closes win over raw closes; null bars are skipped
// and a repeated date keeps its last bar.
func (r *chartResponse) observations() ([]contracts.Observation, error) {
	if r.Chart.Error != nil {
		return nil, fmt.Errorf("%s: %s", r.Chart.Error.Code, r.Chart.Error.Description)
	}
	if len(r.Chart.Result) == 0 {
		return nil, nil
	}

	res := r.Chart.Result[0]
	closes := res.closes()
	if len(closes) != len(res.Timestamp) {
		return nil, fmt.Errorf("%d timestamps but %d closes", len(res.Timestamp), len(closes))
	}

	obs := make([]contracts.Observation, 0, len(closes))
	for i, ts := range res.Timestamp {
		if closes[i] == nil {
			continue
		}
		d := contracts.DateOnly(time.Unix(ts+res.Meta.GMTOffset, 0).UTC())

		// 장중 현재가 바가 마지막 일봉과 같은 날짜로 중복되는 경우
		if n := len(obs); n > 0 && obs[n-1].Date.Equal(d) {
			obs[n-1].Value = *closes[i]
			continue
		}
		obs = append(obs, contracts.Observation{Date: d, Value: *closes[i]})
	}
	return obs, nil
}

func (r chartResult) closes() []*float64 {
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) > 0 {
		return r.Indicators.AdjClose[0].AdjClose
	}
	if len(r.Indicators.Quote) > 0 {
		return r.Indicators.Quote[0].Close
	}
	return nil
}
