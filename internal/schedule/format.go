package schedule

import (
	"fmt"
	"time"
)

// FormatClock renders seconds past local midnight as a wall clock, either
// "15:04:05" or "3:04:05 PM". 86400 renders as "24:00:00" / "12:00:00 AM".
func FormatClock(seconds int, h24 bool) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h24 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	suffix := "AM"
	if h%24 >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d:%02d %s", h12, m, s, suffix)
}

// FormatInstant renders t in its own location with the configured clock.
func FormatInstant(t time.Time, h24 bool) string {
	if h24 {
		return t.Format("2006-01-02 15:04:05 MST")
	}
	return t.Format("2006-01-02 3:04:05 PM MST")
}
