package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of a timeline.
const MinutesPerDay = 24 * 60

// ParseClock parses "HH:MM" (00:00–23:59) into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format %q, expected HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return hour*60 + minute, nil
}

// Minutes converts "HH:MM" to minutes since midnight. Malformed input yields 0.
func Minutes(s string) int {
	m, err := ParseClock(s)
	if err != nil {
		return 0
	}
	return m
}

// MinuteOfDay returns the wall-clock minute of t, 0–1439.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatMinutes renders minutes since midnight as "HH:MM"; 1440 renders as "24:00".
func FormatMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	if m > MinutesPerDay {
		m = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// inWindow tests minute against [open, close). A window whose close is not
// after its open is never open; there is no wrap past midnight.
func inWindow(minute int, open, close string) bool {
	return minute >= Minutes(open) && minute < Minutes(close)
}
