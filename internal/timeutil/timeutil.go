package timeutil

import (
	"fmt"
	"strconv"
	"time"
)

// WeekNumber returns the ISO-8601 week number for t. Weeks start on
// Monday; week 1 is the week containing the year's first Thursday.
func WeekNumber(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// DataKey returns the composite year-week bucket key for t, e.g.
// "2024_01". The year component is the ISO week-numbering year, so dates
// at a year boundary land in the week they actually belong to.
func DataKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d_%02d", year, week)
}

// DateKey returns the local calendar date key for t, e.g. "2024-01-01".
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatSeconds renders an accumulated second count as a compact
// human-readable duration like "1h 2m 3s". Zero renders as "0s".
func FormatSeconds(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	rest := seconds % 60

	out := ""
	if hours > 0 {
		out += fmt.Sprintf("%dh ", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dm ", minutes)
	}
	if rest > 0 {
		out += fmt.Sprintf("%ds", rest)
	}
	if out == "" {
		out = "0s"
	}
	return trimTrailingSpace(out)
}

func trimTrailingSpace(s string) string {
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

// ParseSpan parses a human-friendly span string like "30d", "24h", "2w".
func ParseSpan(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid span %q", s)
	}

	suffix := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid span %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("unknown span suffix %q in %q (use d, h, w, or m)", string(suffix), s)
	}
}
