package service

import "github.com/ecology747-sudo/gluvib/internal/model"

type DayContext string

const (
	DayContextToday     DayContext = "today"
	DayContextYesterday DayContext = "yesterday"
	DayContextDayBefore DayContext = "day_before"
)

// PagerOffsets are the day offsets the three-page day pager exposes.
var PagerOffsets = []int{0, -1, -2}

// ResolveDate maps a day offset to a calendar day. The sign is ignored:
// both 2 and -2 mean two days before today.
func ResolveDate(offset int, today model.Day) model.Day {
	if offset < 0 {
		offset = -offset
	}
	return today.AddDays(-offset)
}

func DayContextFor(offset int) DayContext {
	switch {
	case offset == 0:
		return DayContextToday
	case offset == -1 || offset == 1:
		return DayContextYesterday
	default:
		return DayContextDayBefore
	}
}

// ClampOffset keeps a pager offset in the past or present.
func ClampOffset(offset int) int {
	if offset > 0 {
		return -offset
	}
	return offset
}
