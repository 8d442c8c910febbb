package review

import (
	"fmt"
	"math"
	"time"
)

// DefaultPeriodWeeks is the width of one trend bucket in ISO weeks.
const DefaultPeriodWeeks = 2

// PeriodKey buckets a time into a fixed-width window of ISO weeks and returns
// its key, e.g. "2025-P07". Keys are year-major and zero-padded, so
// lexicographic order equals chronological order within and across years.
func PeriodKey(t time.Time, periodWeeks int) string {
	if periodWeeks <= 0 {
		periodWeeks = DefaultPeriodWeeks
	}
	isoYear, isoWeek := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-P%02d", isoYear, (isoWeek-1)/periodWeeks)
}

// periodKeyFromUnix converts export timestamps (unix seconds, possibly
// fractional) to a period key. Non-positive timestamps are the caller's
// problem; the extractor filters them before getting here.
func periodKeyFromUnix(sec float64, periodWeeks int) string {
	ns := int64(math.Round(sec * 1e9))
	return PeriodKey(time.Unix(0, ns), periodWeeks)
}
