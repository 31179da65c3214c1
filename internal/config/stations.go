package config

import (
	"fmt"
	"os"

	"stationhours/internal/availability"

	"gopkg.in/yaml.v3"
)

// StationConfig represents a single station configuration.
type StationConfig struct {
	ID          int                 `yaml:"id"`
	Name        string              `yaml:"name"`
	Address     string              `yaml:"address"`
	Description string              `yaml:"description"`
	IsActive    bool                `yaml:"is_active"`
	Schedule    []DayScheduleConfig `yaml:"schedule,omitempty"`
}

// DayScheduleConfig is one weekday entry of a station schedule.
type DayScheduleConfig struct {
	Day       string `yaml:"day"` // "monday" … "sunday"
	Closed    bool   `yaml:"closed"`
	OpenTime  string `yaml:"open_time"`  // "07:00"
	CloseTime string `yaml:"close_time"` // "21:00"
}

// HoursConfig is a default open window applied to every working day.
type HoursConfig struct {
	OpenTime  string `yaml:"open_time"`
	CloseTime string `yaml:"close_time"`
}

// HolidayConfig represents a holiday configuration.
type HolidayConfig struct {
	Date string `yaml:"date"` // "2026-01-01"
	Name string `yaml:"name"`
}

// DefaultsConfig represents global default settings.
type DefaultsConfig struct {
	Hours   *HoursConfig `yaml:"hours"`
	DaysOff []int        `yaml:"days_off"` // 1=Mon, 7=Sun
}

// StationsConfig is the root configuration for stations.yaml.
type StationsConfig struct {
	Stations []StationConfig `yaml:"stations"`
	Defaults DefaultsConfig  `yaml:"defaults"`
	Holidays []HolidayConfig `yaml:"holidays"`
}

// LoadStationsConfig loads and validates stations configuration from YAML file.
func LoadStationsConfig(path string) (*StationsConfig, error) {
	if path == "" {
		path = "configs/stations.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations config: %w", err)
	}

	return ParseStationsConfig(data)
}

// ParseStationsConfig parses and validates stations.yaml contents.
func ParseStationsConfig(data []byte) (*StationsConfig, error) {
	var cfg StationsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse stations config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate stations config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *StationsConfig) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("no stations defined")
	}

	ids := make(map[int]bool)
	names := make(map[string]bool)

	for i, st := range c.Stations {
		if st.ID <= 0 {
			return fmt.Errorf("station[%d]: id must be positive, got %d", i, st.ID)
		}
		if ids[st.ID] {
			return fmt.Errorf("station[%d]: duplicate id %d", i, st.ID)
		}
		ids[st.ID] = true

		if st.Name == "" {
			return fmt.Errorf("station[%d]: name is required", i)
		}
		if names[st.Name] {
			return fmt.Errorf("station[%d]: duplicate name '%s'", i, st.Name)
		}
		names[st.Name] = true

		rules := make([]availability.WeekdayRule, 0, len(st.Schedule))
		for _, d := range st.Schedule {
			rule, err := d.rule()
			if err != nil {
				return fmt.Errorf("station[%d].schedule[%s]: %w", i, d.Day, err)
			}
			rules = append(rules, rule)
		}
		if err := availability.ValidateSchedule(rules); err != nil {
			return fmt.Errorf("station[%d]: %w", i, err)
		}
	}

	if h := c.Defaults.Hours; h != nil {
		rule := availability.WeekdayRule{OpenTime: h.OpenTime, CloseTime: h.CloseTime}
		if err := availability.ValidateRule(rule); err != nil {
			return fmt.Errorf("defaults.hours: %w", err)
		}
	}

	for i, h := range c.Holidays {
		if h.Date == "" {
			return fmt.Errorf("holiday[%d]: date is required", i)
		}
		if _, err := availability.ParseDate(h.Date); err != nil {
			return fmt.Errorf("holiday[%d]: invalid date format '%s', expected YYYY-MM-DD", i, h.Date)
		}
	}

	for i, d := range c.Defaults.DaysOff {
		if d < 1 || d > 7 {
			return fmt.Errorf("defaults.days_off[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", i, d)
		}
	}

	return nil
}

func (d DayScheduleConfig) rule() (availability.WeekdayRule, error) {
	day, err := availability.ParseWeekday(d.Day)
	if err != nil {
		return availability.WeekdayRule{}, err
	}
	rule := availability.WeekdayRule{Day: day, Closed: d.Closed, OpenTime: d.OpenTime, CloseTime: d.CloseTime}
	if err := availability.ValidateRule(rule); err != nil {
		return availability.WeekdayRule{}, err
	}
	return rule, nil
}

// Rules returns the full weekly schedule for a station: explicit entries first,
// then default hours for working days, then closed for everything else.
// It returns nil when the station has no schedule and there are no default hours.
func (c *StationsConfig) Rules(st *StationConfig) []availability.WeekdayRule {
	if len(st.Schedule) == 0 && c.Defaults.Hours == nil {
		return nil
	}

	rules := make([]availability.WeekdayRule, 0, availability.DaysPerWeek)
	for _, d := range st.Schedule {
		if rule, err := d.rule(); err == nil {
			rules = append(rules, rule)
		}
	}

	if c.Defaults.Hours != nil {
		for day := availability.Monday; day <= availability.Sunday; day++ {
			if c.IsDayOff(day) {
				continue
			}
			rules = append(rules, availability.WeekdayRule{
				Day:       day,
				OpenTime:  c.Defaults.Hours.OpenTime,
				CloseTime: c.Defaults.Hours.CloseTime,
			})
		}
	}

	return availability.Normalize(rules)
}

// HolidayExceptions returns every holiday as a closed exception.
func (c *StationsConfig) HolidayExceptions() []availability.Exception {
	out := make([]availability.Exception, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		date, err := availability.ParseDate(h.Date)
		if err != nil {
			continue
		}
		out = append(out, availability.Exception{Date: date, Closed: true, Reason: h.Name})
	}
	return out
}

// IsDayOff checks if a weekday is a configured day off.
func (c *StationsConfig) IsDayOff(day availability.Weekday) bool {
	// Days off are 1=Mon … 7=Sun.
	for _, d := range c.Defaults.DaysOff {
		if d == int(day)+1 {
			return true
		}
	}
	return false
}

// GetStationByID returns station config by ID.
func (c *StationsConfig) GetStationByID(id int) *StationConfig {
	for i := range c.Stations {
		if c.Stations[i].ID == id {
			return &c.Stations[i]
		}
	}
	return nil
}

// GetActiveStations returns only active stations.
func (c *StationsConfig) GetActiveStations() []StationConfig {
	result := make([]StationConfig, 0)
	for _, st := range c.Stations {
		if st.IsActive {
			result = append(result, st)
		}
	}
	return result
}

// String returns a summary of the configuration.
func (c *StationsConfig) String() string {
	return fmt.Sprintf("StationsConfig: %d stations (%d active), %d holidays",
		len(c.Stations), len(c.GetActiveStations()), len(c.Holidays))
}
