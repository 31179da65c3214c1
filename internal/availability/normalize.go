package availability

// Normalize returns exactly one rule per weekday in Monday…Sunday order.
// When a day appears more than once the first entry wins; missing days are closed.
// The input is not modified.
func Normalize(rules []WeekdayRule) []WeekdayRule {
	out := make([]WeekdayRule, 0, DaysPerWeek)
	for day := Monday; day <= Sunday; day++ {
		out = append(out, RuleFor(rules, day))
	}
	return out
}

// MissingDays lists the weekdays that have no rule.
func MissingDays(rules []WeekdayRule) []Weekday {
	var seen [DaysPerWeek]bool
	for _, r := range rules {
		if r.Day.Valid() {
			seen[r.Day] = true
		}
	}

	var missing []Weekday
	for day := Monday; day <= Sunday; day++ {
		if !seen[day] {
			missing = append(missing, day)
		}
	}
	return missing
}

// NormalizeConfig returns cfg with a normalized schedule.
func NormalizeConfig(cfg AvailabilityConfig) AvailabilityConfig {
	cfg.Schedule = Normalize(cfg.Schedule)
	return cfg
}
