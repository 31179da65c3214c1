// Package availability resolves whether a station is open at a given moment.
//
// A station's availability is described by a recurring weekly schedule, a set of
// single-date exceptions and an optional manual override. Resolution always applies
// them in the same order: manual override, then exception, then weekly schedule.
// Every function in this package is pure; the caller supplies the current time.
package availability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the textual form of a calendar date.
const DateLayout = "2006-01-02"

// Weekday identifies a day of the week, Monday = 0 … Sunday = 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the number of rules in a normalized schedule.
const DaysPerWeek = 7

var weekdayNames = [DaysPerWeek]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// WeekdayOf returns the weekday of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	// Go counts from Sunday = 0.
	return Weekday((int(t.Weekday()) + 6) % DaysPerWeek)
}

// Valid reports whether d is one of the seven known weekdays.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// ParseWeekday accepts a weekday name ("monday", "Mon") or its index ("0".."6").
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, fmt.Errorf("weekday index %d out of range 0-6", n)
		}
		return d, nil
	}
	for i, name := range weekdayNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Date is a calendar date with no time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Midnight returns the start of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

func (d Date) Weekday() Weekday {
	return WeekdayOf(d.Midnight(time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekdayRule is the recurring open window for one weekday.
// OpenTime and CloseTime are "HH:MM" and ignored when Closed is set.
type WeekdayRule struct {
	Day       Weekday `json:"day"`
	Closed    bool    `json:"closed"`
	OpenTime  string  `json:"open_time,omitempty"`
	CloseTime string  `json:"close_time,omitempty"`
}

// UnmarshalJSON requires "day"; Monday is the zero value, so a rule without it
// would otherwise land on Monday.
func (r *WeekdayRule) UnmarshalJSON(b []byte) error {
	type plain WeekdayRule
	var raw struct {
		Day *Weekday `json:"day"`
		plain
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw.Day == nil {
		return errors.New("weekday rule: day is required")
	}
	*r = WeekdayRule(raw.plain)
	r.Day = *raw.Day
	return nil
}

// Exception replaces the weekly rule for a single calendar date.
type Exception struct {
	Date      Date   `json:"date"`
	Closed    bool   `json:"closed"`
	OpenTime  string `json:"open_time,omitempty"`
	CloseTime string `json:"close_time,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// OverrideMode is the forced state of a manual override.
type OverrideMode string

const (
	OverrideNone   OverrideMode = "none"
	OverrideOpen   OverrideMode = "open"
	OverrideClosed OverrideMode = "closed"
)

// ParseOverrideMode accepts "none", "open", "closed" and the empty string (none).
func ParseOverrideMode(s string) (OverrideMode, error) {
	switch m := OverrideMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", OverrideNone:
		return OverrideNone, nil
	case OverrideOpen, OverrideClosed:
		return m, nil
	default:
		return OverrideNone, fmt.Errorf("unknown override mode %q", s)
	}
}

// forcing reports whether the mode forces a state. Anything other than
// open or closed, including the empty string, means no override.
func (m OverrideMode) forcing() bool {
	return m == OverrideOpen || m == OverrideClosed
}

// ManualOverride forces a station open or closed. A nil Until never expires.
type ManualOverride struct {
	Mode  OverrideMode `json:"mode"`
	Until *time.Time   `json:"until,omitempty"`
}

// AvailabilityConfig is everything the engine needs to know about one station.
type AvailabilityConfig struct {
	Schedule   []WeekdayRule  `json:"schedule"`
	Exceptions []Exception    `json:"exceptions"`
	Override   ManualOverride `json:"override"`
}

// Source names the rule that decided a resolved state.
type Source string

const (
	SourceManualOverride Source = "Manual override"
	SourceException      Source = "Exception"
	SourceExceptionHours Source = "Exception hours"
	SourceWeeklySchedule Source = "Weekly schedule"
)

// ResolvedState is the effective open/closed state and the rule that produced it.
type ResolvedState struct {
	Open   bool   `json:"open"`
	Source Source `json:"source"`
}

// Segment is a contiguous run of minutes [StartMinute, EndMinute) sharing one state.
type Segment struct {
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	Open        bool `json:"open"`
}

// Duration returns the segment length in minutes.
func (s Segment) Duration() int {
	return s.EndMinute - s.StartMinute
}

// Contains reports whether minute falls inside the segment.
func (s Segment) Contains(minute int) bool {
	return minute >= s.StartMinute && minute < s.EndMinute
}
