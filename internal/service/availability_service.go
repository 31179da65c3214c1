package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stationhours/internal/availability"
	"stationhours/internal/database"
	"stationhours/internal/events"
	"stationhours/internal/metrics"
	"stationhours/internal/model"

	"github.com/rs/zerolog"
)

var (
	ErrStationNotFound   = database.ErrStationNotFound
	ErrExceptionNotFound = errors.New("exception not found")
)

// ValidationError marks input the service refused to store.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error { return &ValidationError{Err: err} }

// Store is the persistence the availability service needs.
type Store interface {
	GetStation(ctx context.Context, id int64) (*model.Station, error)
	ListStations(ctx context.Context, activeOnly bool) ([]model.Station, error)
	LoadAvailability(ctx context.Context, stationID int64) (availability.AvailabilityConfig, error)
	ReplaceSchedule(ctx context.Context, stationID int64, rules []availability.WeekdayRule) error
	UpsertException(ctx context.Context, stationID int64, e availability.Exception) error
	DeleteException(ctx context.Context, stationID int64, date availability.Date) (bool, error)
	SetOverride(ctx context.Context, stationID int64, o availability.ManualOverride) error
	ClearOverride(ctx context.Context, stationID int64) error
	ClearExpiredOverrides(ctx context.Context, now time.Time) ([]int64, error)
}

// ConfigCache caches assembled availability configs.
type ConfigCache interface {
	Get(ctx context.Context, stationID int64) (availability.AvailabilityConfig, bool)
	Set(ctx context.Context, stationID int64, cfg availability.AvailabilityConfig)
	Invalidate(ctx context.Context, stationIDs ...int64)
}

// Publisher receives domain events.
type Publisher interface {
	Publish(event events.Event)
}

// StationStatus is a station together with its evaluated availability.
type StationStatus struct {
	Station *model.Station `json:"station"`
	availability.Status
}

// DayPlan is the timeline of one calendar day.
type DayPlan struct {
	Date     availability.Date      `json:"date"`
	Weekday  availability.Weekday   `json:"weekday"`
	Live     bool                   `json:"live"`
	Segments []availability.Segment `json:"segments"`
}

// AvailabilityService answers availability questions for stations and applies staff edits.
type AvailabilityService struct {
	store   Store
	cache   ConfigCache
	bus     Publisher
	metrics *metrics.Metrics
	loc     *time.Location
	clock   func() time.Time
	logger  *zerolog.Logger
}

// NewAvailabilityService wires the service. cache, bus and m may be nil.
func NewAvailabilityService(store Store, cache ConfigCache, bus Publisher, m *metrics.Metrics, loc *time.Location, logger *zerolog.Logger) *AvailabilityService {
	if loc == nil {
		loc = time.Local
	}
	l := logger.With().Str("component", "availability").Logger()
	return &AvailabilityService{
		store:   store,
		cache:   cache,
		bus:     bus,
		metrics: m,
		loc:     loc,
		clock:   time.Now,
		logger:  &l,
	}
}

// SetClock replaces the time source.
func (s *AvailabilityService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Now returns the current time in the station time zone.
func (s *AvailabilityService) Now() time.Time {
	return s.clock().In(s.loc)
}

// Location returns the station time zone.
func (s *AvailabilityService) Location() *time.Location {
	return s.loc
}

// ListStations returns stations ordered by id.
func (s *AvailabilityService) ListStations(ctx context.Context, activeOnly bool) ([]model.Station, error) {
	return s.store.ListStations(ctx, activeOnly)
}

// Station returns a station by id.
func (s *AvailabilityService) Station(ctx context.Context, stationID int64) (*model.Station, error) {
	return s.store.GetStation(ctx, stationID)
}

// Config returns the availability config of a station, from cache when possible.
func (s *AvailabilityService) Config(ctx context.Context, stationID int64) (availability.AvailabilityConfig, error) {
	if s.cache != nil {
		if cfg, ok := s.cache.Get(ctx, stationID); ok {
			return cfg, nil
		}
	}
	cfg, err := s.store.LoadAvailability(ctx, stationID)
	if err != nil {
		return cfg, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, stationID, cfg)
	}
	return cfg, nil
}

// Status evaluates a station at the current time.
func (s *AvailabilityService) Status(ctx context.Context, stationID int64) (*StationStatus, error) {
	return s.StatusAt(ctx, stationID, s.Now())
}

// StatusAt evaluates a station at now.
func (s *AvailabilityService) StatusAt(ctx context.Context, stationID int64, now time.Time) (*StationStatus, error) {
	st, err := s.store.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Config(ctx, stationID)
	if err != nil {
		return nil, err
	}

	status := availability.Evaluate(cfg, now.In(s.loc))
	s.metrics.ObserveResolution(string(status.Source), status.Open)
	return &StationStatus{Station: st, Status: status}, nil
}

// Timeline returns the segments of date. Today is rendered live, including
// any active override; other dates use the planned schedule only.
func (s *AvailabilityService) Timeline(ctx context.Context, stationID int64, date availability.Date) (*DayPlan, error) {
	cfg, err := s.Config(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return s.plan(cfg, date, s.Now()), nil
}

// Week returns day plans for days consecutive dates starting today.
func (s *AvailabilityService) Week(ctx context.Context, stationID int64, days int) ([]DayPlan, error) {
	if days <= 0 {
		days = availability.DaysPerWeek
	}
	cfg, err := s.Config(ctx, stationID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	today := availability.DateOf(now)

	plans := make([]DayPlan, 0, days)
	for i := 0; i < days; i++ {
		plans = append(plans, *s.plan(cfg, today.AddDays(i), now))
	}
	return plans, nil
}

func (s *AvailabilityService) plan(cfg availability.AvailabilityConfig, date availability.Date, now time.Time) *DayPlan {
	p := &DayPlan{Date: date, Weekday: date.Weekday()}
	if date == availability.DateOf(now) {
		p.Live = true
		p.Segments = availability.Timeline(cfg, now)
	} else {
		p.Segments = availability.PlannedTimeline(cfg, date)
	}
	return p
}

// Schedule returns the normalized weekly schedule of a station.
func (s *AvailabilityService) Schedule(ctx context.Context, stationID int64) ([]availability.WeekdayRule, error) {
	cfg, err := s.Config(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return cfg.Schedule, nil
}

// UpdateSchedule validates and stores a weekly schedule. Omitted weekdays become closed.
func (s *AvailabilityService) UpdateSchedule(ctx context.Context, stationID int64, rules []availability.WeekdayRule) ([]availability.WeekdayRule, error) {
	if err := availability.ValidateSchedule(rules); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.ReplaceSchedule(ctx, stationID, rules); err != nil {
		return nil, err
	}
	s.invalidate(ctx, stationID)

	normalized := availability.Normalize(rules)
	s.publish(events.ScheduleUpdated, stationID, normalized)
	s.logger.Info().Int64("station_id", stationID).Msg("weekly schedule updated")
	return normalized, nil
}

// SaveException adds or replaces the exception for its date.
func (s *AvailabilityService) SaveException(ctx context.Context, stationID int64, e availability.Exception) error {
	if err := availability.ValidateException(e); err != nil {
		return invalid(err)
	}
	if err := s.store.UpsertException(ctx, stationID, e); err != nil {
		return err
	}
	s.invalidate(ctx, stationID)

	s.publish(events.ExceptionSaved, stationID, e)
	s.logger.Info().Int64("station_id", stationID).Str("date", e.Date.String()).Bool("closed", e.Closed).Msg("exception saved")
	return nil
}

// RemoveException deletes the exception for date.
func (s *AvailabilityService) RemoveException(ctx context.Context, stationID int64, date availability.Date) error {
	if _, err := s.store.GetStation(ctx, stationID); err != nil {
		return err
	}
	deleted, err := s.store.DeleteException(ctx, stationID, date)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrExceptionNotFound
	}
	s.invalidate(ctx, stationID)

	s.publish(events.ExceptionDeleted, stationID, map[string]string{"date": date.String()})
	s.logger.Info().Int64("station_id", stationID).Str("date", date.String()).Msg("exception removed")
	return nil
}

// SetOverride stores a manual override. Mode none clears it.
func (s *AvailabilityService) SetOverride(ctx context.Context, stationID int64, o availability.ManualOverride) error {
	mode, err := availability.ParseOverrideMode(string(o.Mode))
	if err != nil {
		return invalid(err)
	}
	o.Mode = mode
	if mode == availability.OverrideNone {
		return s.ClearOverride(ctx, stationID)
	}
	if err := availability.ValidateOverride(o, s.Now()); err != nil {
		return invalid(err)
	}

	if err := s.store.SetOverride(ctx, stationID, o); err != nil {
		return err
	}
	s.invalidate(ctx, stationID)

	s.metrics.IncOverrideChange("set")
	s.publish(events.OverrideSet, stationID, o)
	ev := s.logger.Info().Int64("station_id", stationID).Str("mode", string(o.Mode))
	if o.Until != nil {
		ev = ev.Time("until", *o.Until)
	}
	ev.Msg("manual override set")
	return nil
}

// ClearOverride removes the manual override of a station.
func (s *AvailabilityService) ClearOverride(ctx context.Context, stationID int64) error {
	if _, err := s.store.GetStation(ctx, stationID); err != nil {
		return err
	}
	if err := s.store.ClearOverride(ctx, stationID); err != nil {
		return err
	}
	s.invalidate(ctx, stationID)

	s.metrics.IncOverrideChange("cleared")
	s.publish(events.OverrideCleared, stationID, nil)
	s.logger.Info().Int64("station_id", stationID).Msg("manual override cleared")
	return nil
}

// ExpireOverrides deletes overrides whose until has passed and returns the affected stations.
func (s *AvailabilityService) ExpireOverrides(ctx context.Context) ([]int64, error) {
	ids, err := s.store.ClearExpiredOverrides(ctx, s.Now())
	if err != nil {
		return nil, fmt.Errorf("clear expired overrides: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	s.invalidate(ctx, ids...)
	for _, id := range ids {
		s.metrics.IncOverrideChange("expired")
		s.publish(events.OverrideExpired, id, nil)
	}
	s.logger.Info().Ints64("station_ids", ids).Msg("expired manual overrides removed")
	return ids, nil
}

// Invalidate drops cached configs, e.g. after stations.yaml was re-applied.
func (s *AvailabilityService) Invalidate(ctx context.Context, stationIDs ...int64) {
	s.invalidate(ctx, stationIDs...)
}

func (s *AvailabilityService) invalidate(ctx context.Context, stationIDs ...int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, stationIDs...)
	}
}

func (s *AvailabilityService) publish(eventType string, stationID int64, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.New(eventType, stationID, payload))
}
