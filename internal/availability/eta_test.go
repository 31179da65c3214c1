package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosingETA(t *testing.T) {
	cfg := AvailabilityConfig{Schedule: weekOpen("07:00", "21:00")}

	t.Run("fourteen hours at opening", func(t *testing.T) {
		now := monday(7, 0)
		assert.True(t, Resolve(cfg, now).Open)

		eta, ok := ClosingETA(Timeline(cfg, now), now)
		require.True(t, ok)
		assert.Equal(t, 840, eta)
	})

	t.Run("last open minute", func(t *testing.T) {
		now := monday(20, 59)
		eta, ok := ClosingETA(Timeline(cfg, now), now)
		require.True(t, ok)
		assert.Equal(t, 1, eta)
	})

	t.Run("closed", func(t *testing.T) {
		now := monday(21, 0)
		_, ok := ClosingETA(Timeline(cfg, now), now)
		assert.False(t, ok)
	})

	t.Run("closed day", func(t *testing.T) {
		closed := AvailabilityConfig{Schedule: withDay(cfg.Schedule, WeekdayRule{Day: Monday, Closed: true})}
		now := monday(12, 0)

		assert.Equal(t, ResolvedState{Open: false, Source: SourceWeeklySchedule}, Resolve(closed, now))
		assert.Equal(t, []Segment{{0, 1440, false}}, Timeline(closed, now))
		_, ok := ClosingETA(Timeline(closed, now), now)
		assert.False(t, ok)
	})

	t.Run("manual open until later today", func(t *testing.T) {
		open := cfg
		open.Override = ManualOverride{Mode: OverrideOpen, Until: ptr(monday(23, 0))}
		now := monday(22, 0)

		eta, ok := ClosingETA(Timeline(open, now), now)
		require.True(t, ok)
		assert.Equal(t, 60, eta)
	})

	t.Run("empty timeline", func(t *testing.T) {
		_, ok := ClosingETA(nil, monday(12, 0))
		assert.False(t, ok)
	})
}

func TestOpeningETA(t *testing.T) {
	cfg := AvailabilityConfig{Schedule: weekOpen("07:00", "21:00")}

	eta, ok := OpeningETA(Timeline(cfg, monday(6, 0)), monday(6, 0))
	require.True(t, ok)
	assert.Equal(t, 60, eta)

	_, ok = OpeningETA(Timeline(cfg, monday(12, 0)), monday(12, 0))
	assert.False(t, ok, "already open")

	_, ok = OpeningETA(Timeline(cfg, monday(22, 0)), monday(22, 0))
	assert.False(t, ok, "nothing opens before midnight")

	cfg.Override = ManualOverride{Mode: OverrideClosed, Until: ptr(monday(13, 0))}
	eta, ok = OpeningETA(Timeline(cfg, monday(12, 0)), monday(12, 0))
	require.True(t, ok)
	assert.Equal(t, 60, eta)
}

func TestEvaluate(t *testing.T) {
	cfg := AvailabilityConfig{Schedule: weekOpen("07:00", "21:00")}
	now := monday(7, 0)

	status := Evaluate(cfg, now)
	assert.True(t, status.Open)
	assert.Equal(t, SourceWeeklySchedule, status.Source)
	require.NotNil(t, status.ClosesIn)
	assert.Equal(t, 840, *status.ClosesIn)
	assert.Nil(t, status.OpensIn)
	assert.Len(t, status.Timeline, 3)
	assert.True(t, now.Equal(status.EvaluatedAt))

	closed := Evaluate(AvailabilityConfig{Schedule: cfg.Schedule, Override: ManualOverride{Mode: OverrideClosed}}, now.Add(2*time.Hour))
	assert.Equal(t, ResolvedState{Open: false, Source: SourceManualOverride}, closed.ResolvedState)
	assert.Nil(t, closed.ClosesIn)
	assert.Nil(t, closed.OpensIn)
}
