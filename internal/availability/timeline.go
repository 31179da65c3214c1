package availability

import "time"

// dayMinutes holds one state per minute of a day, index 0 = 00:00.
type dayMinutes [MinutesPerDay]bool

// fill sets minutes [from, to) to open, clamped to the day.
func (d *dayMinutes) fill(from, to int, open bool) {
	if from < 0 {
		from = 0
	}
	if to > MinutesPerDay {
		to = MinutesPerDay
	}
	for m := from; m < to; m++ {
		d[m] = open
	}
}

// segments run-length encodes the day into maximal runs.
func (d *dayMinutes) segments() []Segment {
	segments := make([]Segment, 0, 4)
	start := 0
	for m := 1; m <= MinutesPerDay; m++ {
		if m < MinutesPerDay && d[m] == d[start] {
			continue
		}
		segments = append(segments, Segment{StartMinute: start, EndMinute: m, Open: d[start]})
		start = m
	}
	return segments
}

// planned applies the weekly and exception layers for date.
func planned(cfg AvailabilityConfig, date Date) *dayMinutes {
	var day dayMinutes

	rule := RuleFor(cfg.Schedule, date.Weekday())
	if !rule.Closed {
		day.fill(Minutes(rule.OpenTime), Minutes(rule.CloseTime), true)
	}

	// An exception replaces the weekly window for the whole day.
	if exc, ok := ExceptionFor(cfg.Exceptions, date); ok {
		day.fill(0, MinutesPerDay, false)
		if !exc.Closed {
			day.fill(Minutes(exc.OpenTime), Minutes(exc.CloseTime), true)
		}
	}

	return &day
}

// Timeline returns today's open/closed runs as seen at now.
//
// The manual override, when active, only covers the minutes from now onward:
// to the end of the day, or to the minute containing Until when it expires today.
func Timeline(cfg AvailabilityConfig, now time.Time) []Segment {
	day := planned(cfg, DateOf(now))
	if gate := Gate(cfg.Override, now); gate.Active {
		day.fill(MinuteOfDay(now), overrideEnd(cfg.Override, now), gate.Open)
	}
	return day.segments()
}

// PlannedTimeline returns the runs for date from the weekly schedule and
// exceptions alone. Manual overrides are ignored.
func PlannedTimeline(cfg AvailabilityConfig, date Date) []Segment {
	return planned(cfg, date).segments()
}

// overrideEnd is the exclusive end minute of an active override on now's day.
func overrideEnd(o ManualOverride, now time.Time) int {
	if o.Until == nil {
		return MinutesPerDay
	}
	until := o.Until.In(now.Location())
	if DateOf(until) != DateOf(now) {
		return MinutesPerDay
	}
	end := MinuteOfDay(until)
	if until.Second() != 0 || until.Nanosecond() != 0 {
		end++
	}
	return end
}
