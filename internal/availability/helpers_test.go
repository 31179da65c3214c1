package availability

import "time"

// 2026-01-12 is a Monday.
func datetime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func monday(hour, min int) time.Time {
	return datetime(2026, time.January, 12, hour, min)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func weekOpen(open, close string) []WeekdayRule {
	rules := make([]WeekdayRule, 0, DaysPerWeek)
	for day := Monday; day <= Sunday; day++ {
		rules = append(rules, WeekdayRule{Day: day, OpenTime: open, CloseTime: close})
	}
	return rules
}

func withDay(rules []WeekdayRule, rule WeekdayRule) []WeekdayRule {
	out := append([]WeekdayRule(nil), rules...)
	for i := range out {
		if out[i].Day == rule.Day {
			out[i] = rule
		}
	}
	return out
}
