package availability

import "time"

// RuleFor returns the schedule entry for day. A day with no entry is closed.
func RuleFor(schedule []WeekdayRule, day Weekday) WeekdayRule {
	for _, rule := range schedule {
		if rule.Day == day {
			return rule
		}
	}
	return WeekdayRule{Day: day, Closed: true}
}

// ExceptionFor returns the first exception dated date.
func ExceptionFor(exceptions []Exception, date Date) (Exception, bool) {
	for _, exc := range exceptions {
		if exc.Date == date {
			return exc, true
		}
	}
	return Exception{}, false
}

// OverrideGate is the outcome of checking a manual override against now.
// Open is only meaningful when Active is set.
type OverrideGate struct {
	Active bool
	Open   bool
}

// Gate reports whether o is in force at now. An override whose Until equals
// now has already expired.
func Gate(o ManualOverride, now time.Time) OverrideGate {
	if !o.Mode.forcing() {
		return OverrideGate{}
	}
	return OverrideGate{
		Active: o.Until == nil || o.Until.After(now),
		Open:   o.Mode == OverrideOpen,
	}
}
