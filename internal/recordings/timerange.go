package recordings

import (
	"fmt"
	"time"
)

// timeLayout is the timestamp format accepted by the recording report API.
const timeLayout = "2006-01-02T15:04:05"

// Range is a [From, To] window in the API's timestamp format.
type Range struct {
	From string
	To   string
}

// TimeRanges slices the trailing totalDays into span-day windows, newest
// first. The final window is clamped when totalDays is not a multiple of
// span.
func TimeRanges(totalDays, span int) ([]Range, error) {
	return timeRangesAt(time.Now(), totalDays, span)
}

func timeRangesAt(now time.Time, totalDays, span int) ([]Range, error) {
	if totalDays <= 0 || span <= 0 {
		return nil, fmt.Errorf("total days (%d) and span (%d) must be positive", totalDays, span)
	}
	if totalDays < span {
		span = totalDays
	}

	var ranges []Range
	for i := 0; i < totalDays; i += span {
		s := span
		if i+s > totalDays {
			s = totalDays - i
		}
		// Window start: span days further back, pinned to end of day so
		// adjacent windows do not overlap.
		start := now.AddDate(0, 0, -(i + s)).Add(-time.Second)
		start = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, start.Location())
		end := now.AddDate(0, 0, -i)
		ranges = append(ranges, Range{From: start.Format(timeLayout), To: end.Format(timeLayout)})
	}
	return ranges, nil
}
