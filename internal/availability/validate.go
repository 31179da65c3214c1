package availability

import (
	"fmt"
	"time"
)

// ValidateRule checks a weekly rule as authored by staff.
func ValidateRule(r WeekdayRule) error {
	if !r.Day.Valid() {
		return fmt.Errorf("invalid weekday %d", int(r.Day))
	}
	if r.Closed {
		return nil
	}
	return validateWindow(r.OpenTime, r.CloseTime)
}

// ValidateSchedule checks every rule and rejects duplicate weekdays.
func ValidateSchedule(rules []WeekdayRule) error {
	var seen [DaysPerWeek]bool
	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("schedule[%d]: %w", i, err)
		}
		if seen[r.Day] {
			return fmt.Errorf("schedule[%d]: duplicate rule for %s", i, r.Day)
		}
		seen[r.Day] = true
	}
	return nil
}

// ValidateException checks a single-date exception.
func ValidateException(e Exception) error {
	if e.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if e.Closed {
		return nil
	}
	return validateWindow(e.OpenTime, e.CloseTime)
}

// ValidateOverride checks that o can be stored as of now.
func ValidateOverride(o ManualOverride, now time.Time) error {
	if _, err := ParseOverrideMode(string(o.Mode)); err != nil {
		return err
	}
	if o.Mode.forcing() && o.Until != nil && !o.Until.After(now) {
		return fmt.Errorf("until %s is not in the future", o.Until.Format(time.RFC3339))
	}
	return nil
}

// validateWindow rejects windows the engine would never treat as open,
// including ones meant to run past midnight.
func validateWindow(open, close string) error {
	o, err := ParseClock(open)
	if err != nil {
		return fmt.Errorf("open_time: %w", err)
	}
	c, err := ParseClock(close)
	if err != nil {
		return fmt.Errorf("close_time: %w", err)
	}
	if c <= o {
		return fmt.Errorf("close_time %s must be after open_time %s", close, open)
	}
	return nil
}
