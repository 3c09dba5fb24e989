package rotation

import (
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/sectorrotation/internal/strategyconfig"
)

// Period anchors: the first instant of each new period.
// The evaluation date of a period is the last trading date before its anchor.
var periodAnchors = map[strategyconfig.Frequency]string{
	strategyconfig.Weekly:    "0 0 * * 1",        // Monday 00:00
	strategyconfig.Monthly:   "0 0 1 * *",        // 1st of month
	strategyconfig.Quarterly: "0 0 1 1,4,7,10 *", // 1st of quarter
}

// AnchorSchedule parses the cron anchor for a rebalance frequency
func AnchorSchedule(freq strategyconfig.Frequency) (cron.Schedule, error) {
	spec, ok := periodAnchors[freq]
	if !ok {
		return nil, fmt.Errorf("unknown rebalance frequency %q", freq)
	}
	return cron.ParseStandard(spec)
}

// Calendar returns the evaluation dates within [start, end]: the first
// trading date on or after start, then the last trading date of every
// period that closes within the range. Dates are strictly increasing and
// always drawn from the trading calendar.
func Calendar(trading []time.Time, start, end time.Time, freq strategyconfig.Frequency) ([]time.Time, error) {
	sched, err := AnchorSchedule(freq)
	if err != nil {
		return nil, err
	}

	lo := sort.Search(len(trading), func(i int) bool { return !trading[i].Before(start) })
	hi := sort.Search(len(trading), func(i int) bool { return trading[i].After(end) })
	if lo >= hi {
		return nil, nil
	}
	days := trading[lo:hi]

	dates := []time.Time{days[0]}
	i := 0
	for anchor := sched.Next(days[0]); !anchor.After(end); anchor = sched.Next(anchor) {
		// advance to the last trading date before the anchor
		for i+1 < len(days) && days[i+1].Before(anchor) {
			i++
		}
		d := days[i]
		if d.After(dates[len(dates)-1]) {
			dates = append(dates, d)
		}
	}
	return dates, nil
}
