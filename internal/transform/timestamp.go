package transform

import (
	"fmt"
	"time"
)

// FormatTimestamp renders ts relative to now: the clock time for today (or
// anything in the future), "Yesterday", "N days ago" within a week, otherwise
// a short month/day date. Days are calendar days in now's location.
func FormatTimestamp(ts, now time.Time) string {
	local := ts.In(now.Location())
	days := dayNumber(now) - dayNumber(local)

	switch {
	case days <= 0:
		return local.Format("3:04 PM")
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return local.Format("Jan 2")
	}
}

// dayNumber counts whole days since the epoch for t's wall-clock date, so
// DST shifts never change the result.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
