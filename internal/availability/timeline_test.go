package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCoverage(t *testing.T, segments []Segment) {
	t.Helper()
	require.NotEmpty(t, segments)
	assert.Equal(t, 0, segments[0].StartMinute)
	assert.Equal(t, MinutesPerDay, segments[len(segments)-1].EndMinute)
	for i, seg := range segments {
		assert.Greater(t, seg.EndMinute, seg.StartMinute, "segment %d is empty", i)
		if i == 0 {
			continue
		}
		assert.Equal(t, segments[i-1].EndMinute, seg.StartMinute, "gap before segment %d", i)
		assert.NotEqual(t, segments[i-1].Open, seg.Open, "segments %d and %d not merged", i-1, i)
	}
}

func TestTimeline(t *testing.T) {
	today := DateOf(monday(0, 0))
	week := weekOpen("07:00", "21:00")

	tests := []struct {
		name     string
		cfg      AvailabilityConfig
		now      time.Time
		expected []Segment
	}{
		{
			name: "weekly window",
			cfg:  AvailabilityConfig{Schedule: week},
			now:  monday(12, 0),
			expected: []Segment{
				{0, 420, false},
				{420, 1260, true},
				{1260, 1440, false},
			},
		},
		{
			name:     "closed day",
			cfg:      AvailabilityConfig{Schedule: withDay(week, WeekdayRule{Day: Monday, Closed: true})},
			now:      monday(12, 0),
			expected: []Segment{{0, 1440, false}},
		},
		{
			name:     "open around the clock",
			cfg:      AvailabilityConfig{Schedule: weekOpen("00:00", "23:59")},
			now:      monday(12, 0),
			expected: []Segment{{0, 1439, true}, {1439, 1440, false}},
		},
		{
			name: "exception replaces weekly window",
			cfg: AvailabilityConfig{
				Schedule:   week,
				Exceptions: []Exception{{Date: today, OpenTime: "10:00", CloseTime: "12:00"}},
			},
			now: monday(8, 0),
			expected: []Segment{
				{0, 600, false},
				{600, 720, true},
				{720, 1440, false},
			},
		},
		{
			name: "closed exception",
			cfg: AvailabilityConfig{
				Schedule:   week,
				Exceptions: []Exception{{Date: today, Closed: true, OpenTime: "10:00", CloseTime: "12:00"}},
			},
			now:      monday(8, 0),
			expected: []Segment{{0, 1440, false}},
		},
		{
			name: "manual close from now to end of day",
			cfg: AvailabilityConfig{
				Schedule: week,
				Override: ManualOverride{Mode: OverrideClosed},
			},
			now: monday(12, 0),
			expected: []Segment{
				{0, 420, false},
				{420, 720, true},
				{720, 1440, false},
			},
		},
		{
			name: "manual close until later today",
			cfg: AvailabilityConfig{
				Schedule: week,
				Override: ManualOverride{Mode: OverrideClosed, Until: ptr(monday(14, 0))},
			},
			now: monday(12, 0),
			expected: []Segment{
				{0, 420, false},
				{420, 720, true},
				{720, 840, false},
				{840, 1260, true},
				{1260, 1440, false},
			},
		},
		{
			name: "manual open until tomorrow",
			cfg: AvailabilityConfig{
				Schedule: week,
				Override: ManualOverride{Mode: OverrideOpen, Until: ptr(monday(12, 0).Add(24 * time.Hour))},
			},
			now: monday(20, 0),
			expected: []Segment{
				{0, 420, false},
				{420, 1440, true},
			},
		},
		{
			name: "expired override ignored",
			cfg: AvailabilityConfig{
				Schedule: week,
				Override: ManualOverride{Mode: OverrideClosed, Until: ptr(monday(11, 0))},
			},
			now: monday(12, 0),
			expected: []Segment{
				{0, 420, false},
				{420, 1260, true},
				{1260, 1440, false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := Timeline(tt.cfg, tt.now)
			assert.Equal(t, tt.expected, segments)
			assertCoverage(t, segments)
		})
	}
}

func TestTimeline_OverrideExpiringWithinCurrentMinute(t *testing.T) {
	now := monday(12, 0).Add(10 * time.Second)
	cfg := AvailabilityConfig{
		Schedule: weekOpen("07:00", "21:00"),
		Override: ManualOverride{Mode: OverrideClosed, Until: ptr(now.Add(20 * time.Second))},
	}

	segments := Timeline(cfg, now)
	seg, ok := SegmentAt(segments, MinuteOfDay(now))
	require.True(t, ok)
	assert.False(t, seg.Open)
	assert.Equal(t, Segment{720, 721, false}, seg)
	assert.Equal(t, Resolve(cfg, now).Open, seg.Open)
}

func TestTimeline_AgreesWithResolve(t *testing.T) {
	today := DateOf(monday(0, 0))
	week := weekOpen("07:00", "21:00")

	configs := map[string]AvailabilityConfig{
		"weekly":          {Schedule: week},
		"empty":           {},
		"closed monday":   {Schedule: withDay(week, WeekdayRule{Day: Monday, Closed: true})},
		"exception hours": {Schedule: week, Exceptions: []Exception{{Date: today, OpenTime: "09:15", CloseTime: "17:45"}}},
		"exception closed": {
			Schedule:   week,
			Exceptions: []Exception{{Date: today, Closed: true}},
		},
		"override open":    {Schedule: week, Override: ManualOverride{Mode: OverrideOpen}},
		"override closed":  {Schedule: week, Override: ManualOverride{Mode: OverrideClosed, Until: ptr(monday(16, 20))}},
		"override expired": {Schedule: week, Override: ManualOverride{Mode: OverrideOpen, Until: ptr(monday(0, 0))}},
		"malformed":        {Schedule: weekOpen("xx", "10:00")},
		"cross midnight":   {Schedule: weekOpen("22:00", "02:00")},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			for minute := 0; minute < MinutesPerDay; minute++ {
				now := monday(0, 0).Add(time.Duration(minute)*time.Minute + 30*time.Second)
				segments := Timeline(cfg, now)
				assertCoverage(t, segments)

				seg, ok := SegmentAt(segments, minute)
				require.True(t, ok, "minute %d not covered", minute)
				if !assert.Equal(t, Resolve(cfg, now).Open, seg.Open, "minute %d", minute) {
					return
				}
			}
		})
	}
}

func TestPlannedTimeline(t *testing.T) {
	today := DateOf(monday(0, 0))
	cfg := AvailabilityConfig{
		Schedule:   weekOpen("07:00", "21:00"),
		Exceptions: []Exception{{Date: today.AddDays(1), Closed: true}},
		Override:   ManualOverride{Mode: OverrideClosed},
	}

	assert.Equal(t, []Segment{{0, 420, false}, {420, 1260, true}, {1260, 1440, false}}, PlannedTimeline(cfg, today))
	assert.Equal(t, []Segment{{0, 1440, false}}, PlannedTimeline(cfg, today.AddDays(1)))
}
