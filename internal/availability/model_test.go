package availability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected Weekday
	}{
		{datetime(2026, 1, 12, 10, 0), Monday},
		{datetime(2026, 1, 15, 0, 0), Thursday},
		{datetime(2026, 1, 17, 23, 59), Saturday},
		{datetime(2026, 1, 18, 12, 0), Sunday},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, WeekdayOf(tt.date))
			assert.Equal(t, tt.expected, DateOf(tt.date).Weekday())
		})
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		input    string
		expected Weekday
		wantErr  bool
	}{
		{"monday", Monday, false},
		{"Sunday", Sunday, false},
		{"wed", Wednesday, false},
		{"4", Friday, false},
		{"7", 0, true},
		{"someday", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWeekday(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2026-03-08")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 8}, d)
	assert.Equal(t, "2026-03-08", d.String())
	assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 1}, Date{Year: 2026, Month: time.February, Day: 28}.AddDays(1))
	assert.True(t, Date{}.IsZero())

	_, err = ParseDate("08.03.2026")
	assert.Error(t, err)
}

func TestConfigJSON(t *testing.T) {
	until := datetime(2026, 1, 12, 18, 0)
	cfg := AvailabilityConfig{
		Schedule:   []WeekdayRule{{Day: Friday, OpenTime: "07:00", CloseTime: "21:00"}},
		Exceptions: []Exception{{Date: Date{Year: 2026, Month: time.January, Day: 1}, Closed: true, Reason: "New Year"}},
		Override:   ManualOverride{Mode: OverrideClosed, Until: &until},
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"day":"friday"`)
	assert.Contains(t, string(data), `"date":"2026-01-01"`)

	var decoded AvailabilityConfig
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cfg.Schedule, decoded.Schedule)
	assert.Equal(t, cfg.Exceptions, decoded.Exceptions)
	assert.Equal(t, OverrideClosed, decoded.Override.Mode)
	require.NotNil(t, decoded.Override.Until)
	assert.True(t, until.Equal(*decoded.Override.Until))
}

func TestWeekdayRule_UnmarshalJSON(t *testing.T) {
	var r WeekdayRule
	require.NoError(t, json.Unmarshal([]byte(`{"day":"sunday","open_time":"10:00","close_time":"14:00"}`), &r))
	assert.Equal(t, WeekdayRule{Day: Sunday, OpenTime: "10:00", CloseTime: "14:00"}, r)

	require.NoError(t, json.Unmarshal([]byte(`{"day":"monday","closed":true}`), &r))
	assert.Equal(t, WeekdayRule{Day: Monday, Closed: true}, r)

	tests := map[string]string{
		"missing day":   `{"open_time":"10:00","close_time":"14:00"}`,
		"null day":      `{"day":null,"closed":true}`,
		"unknown day":   `{"day":"funday","closed":true}`,
		"unknown field": `{"day":"monday","closed":true,"opens":"10:00"}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			var r WeekdayRule
			assert.Error(t, json.Unmarshal([]byte(input), &r))
		})
	}
}

func TestParseOverrideMode(t *testing.T) {
	m, err := ParseOverrideMode("")
	require.NoError(t, err)
	assert.Equal(t, OverrideNone, m)

	m, err = ParseOverrideMode("Closed")
	require.NoError(t, err)
	assert.Equal(t, OverrideClosed, m)

	_, err = ParseOverrideMode("maintenance")
	assert.Error(t, err)
}
