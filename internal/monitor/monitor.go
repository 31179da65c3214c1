// Package monitor periodically evaluates every active station and reports
// open/closed transitions.
package monitor

import (
	"context"
	"sync"
	"time"

	"stationhours/internal/events"
	"stationhours/internal/metrics"
	"stationhours/internal/model"
	"stationhours/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config holds configuration for the monitor loop.
type Config struct {
	// Interval is how often all stations are evaluated.
	Interval time.Duration
	// EvaluationsPerSecond caps station evaluations; zero means unlimited.
	EvaluationsPerSecond float64
}

// Evaluator is the part of the availability service the monitor drives.
type Evaluator interface {
	Now() time.Time
	ListStations(ctx context.Context, activeOnly bool) ([]model.Station, error)
	StatusAt(ctx context.Context, stationID int64, now time.Time) (*service.StationStatus, error)
	ExpireOverrides(ctx context.Context) ([]int64, error)
}

// Publisher receives transition events.
type Publisher interface {
	Publish(event events.Event)
}

// TickStats summarizes one pass over the stations.
type TickStats struct {
	Evaluated   int
	Open        int
	Transitions int
	Failed      int
	Expired     int
}

// Monitor tracks the last known state of every active station.
type Monitor struct {
	config  Config
	svc     Evaluator
	bus     Publisher
	metrics *metrics.Metrics
	limiter *rate.Limiter
	logger  *zerolog.Logger

	mu      sync.Mutex
	last    map[int64]bool
	running bool
	stopCh  chan struct{}
}

// New creates a monitor. bus and m may be nil.
func New(cfg Config, svc Evaluator, bus Publisher, m *metrics.Metrics, logger *zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.EvaluationsPerSecond > 0 {
		burst := int(cfg.EvaluationsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.EvaluationsPerSecond), burst)
	}
	l := logger.With().Str("component", "monitor").Logger()
	return &Monitor{
		config:  cfg,
		svc:     svc,
		bus:     bus,
		metrics: m,
		limiter: limiter,
		logger:  &l,
		last:    make(map[int64]bool),
		stopCh:  make(chan struct{}),
	}
}

// Start runs a pass immediately and then on every interval until ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.logger.Info().Dur("interval", m.config.Interval).Msg("station monitor started")

	m.Tick(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("station monitor stopped by context")
			return
		case <-m.stopCh:
			m.logger.Info().Msg("station monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Stop stops the monitor loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.running {
		m.running = false
		close(m.stopCh)
	}
	m.mu.Unlock()
}

// Tick clears elapsed overrides, then evaluates every active station once,
// each at the time its evaluation starts. The first observation of a station
// only records its state.
func (m *Monitor) Tick(ctx context.Context) TickStats {
	start := time.Now()
	var stats TickStats

	expired, err := m.svc.ExpireOverrides(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to clear expired overrides")
	}
	stats.Expired = len(expired)

	stations, err := m.svc.ListStations(ctx, true)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to list active stations")
		return stats
	}

	seen := make(map[int64]struct{}, len(stations))

	for i := range stations {
		if err := m.limiter.Wait(ctx); err != nil {
			m.logger.Info().Int("evaluated", stats.Evaluated).Int("remaining", len(stations)-i).Msg("station evaluation interrupted")
			return stats
		}

		st := &stations[i]
		seen[st.ID] = struct{}{}

		// Paced passes can be long; each station is judged when its turn comes.
		status, err := m.svc.StatusAt(ctx, st.ID, m.svc.Now())
		if err != nil {
			stats.Failed++
			m.logger.Error().Err(err).Int64("station_id", st.ID).Msg("failed to evaluate station")
			continue
		}
		stats.Evaluated++
		if status.Open {
			stats.Open++
		}

		if m.record(st.ID, status.Open) {
			stats.Transitions++
			m.announce(st, status)
		}
	}

	m.forget(seen)
	m.metrics.SetOpenStations(stats.Open)
	m.metrics.ObserveTick(time.Since(start))

	m.logger.Debug().
		Int("evaluated", stats.Evaluated).
		Int("open", stats.Open).
		Int("transitions", stats.Transitions).
		Int("failed", stats.Failed).
		Int("expired", stats.Expired).
		Dur("duration", time.Since(start)).
		Msg("station monitor pass finished")
	return stats
}

// State returns the last recorded state of a station.
func (m *Monitor) State(stationID int64) (open, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	open, known = m.last[stationID]
	return open, known
}

// record stores the state and reports whether it changed from a known previous state.
func (m *Monitor) record(stationID int64, open bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, known := m.last[stationID]
	m.last[stationID] = open
	return known && prev != open
}

func (m *Monitor) forget(seen map[int64]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.last {
		if _, ok := seen[id]; !ok {
			delete(m.last, id)
		}
	}
}

func (m *Monitor) announce(st *model.Station, status *service.StationStatus) {
	m.metrics.IncTransition(status.Open)

	eventType := events.StationClosed
	if status.Open {
		eventType = events.StationOpened
	}
	payload := map[string]any{
		"name":   st.Name,
		"source": status.Source,
	}
	if status.ClosesIn != nil {
		payload["closes_in_minutes"] = *status.ClosesIn
	}
	if status.OpensIn != nil {
		payload["opens_in_minutes"] = *status.OpensIn
	}
	if m.bus != nil {
		m.bus.Publish(events.New(eventType, st.ID, payload))
	}

	m.logger.Info().
		Int64("station_id", st.ID).
		Str("station", st.Name).
		Bool("open", status.Open).
		Str("source", string(status.Source)).
		Msg("station state changed")
}
