package availability

import "time"

// Resolve returns the effective state of a station at now.
//
// The first applicable rule wins: an active manual override, then an exception
// dated today, then today's weekly rule.
func Resolve(cfg AvailabilityConfig, now time.Time) ResolvedState {
	if gate := Gate(cfg.Override, now); gate.Active {
		return ResolvedState{Open: gate.Open, Source: SourceManualOverride}
	}

	minute := MinuteOfDay(now)

	if exc, ok := ExceptionFor(cfg.Exceptions, DateOf(now)); ok {
		if exc.Closed {
			return ResolvedState{Open: false, Source: SourceException}
		}
		return ResolvedState{
			Open:   inWindow(minute, exc.OpenTime, exc.CloseTime),
			Source: SourceExceptionHours,
		}
	}

	rule := RuleFor(cfg.Schedule, WeekdayOf(now))
	if rule.Closed {
		return ResolvedState{Open: false, Source: SourceWeeklySchedule}
	}
	return ResolvedState{
		Open:   inWindow(minute, rule.OpenTime, rule.CloseTime),
		Source: SourceWeeklySchedule,
	}
}
