package monitor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"stationhours/internal/availability"
	"stationhours/internal/events"
	"stationhours/internal/metrics"
	"stationhours/internal/model"
	"stationhours/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluator struct {
	mu       sync.Mutex
	stations []model.Station
	open     map[int64]bool
	failing  map[int64]bool
	expired  []int64
	ticks    int
	clock    func() time.Time
	judgedAt map[int64]time.Time
}

func (f *fakeEvaluator) Now() time.Time {
	if f.clock != nil {
		return f.clock()
	}
	return time.Date(2026, time.January, 12, 12, 0, 0, 0, time.UTC)
}

func (f *fakeEvaluator) ListStations(_ context.Context, _ bool) ([]model.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return append([]model.Station(nil), f.stations...), nil
}

func (f *fakeEvaluator) StatusAt(_ context.Context, id int64, now time.Time) (*service.StationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[id] {
		return nil, errors.New("boom")
	}
	if f.judgedAt != nil {
		f.judgedAt[id] = now
	}
	st := &service.StationStatus{Station: &model.Station{ID: id}}
	st.Open = f.open[id]
	st.Source = availability.SourceWeeklySchedule
	st.EvaluatedAt = now
	return st, nil
}

func (f *fakeEvaluator) ExpireOverrides(context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.expired
	f.expired = nil
	return out, nil
}

func (f *fakeEvaluator) set(id int64, open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[id] = open
}

func newMonitor(t *testing.T, eval *fakeEvaluator) (*Monitor, *[]events.Event, *metrics.Metrics) {
	t.Helper()
	var published []events.Event
	bus := events.NewEventBus(nil)
	bus.Subscribe(events.All, func(e events.Event) error {
		published = append(published, e)
		return nil
	})
	m := metrics.New("test", prometheus.NewRegistry())
	logger := zerolog.New(io.Discard)
	return New(Config{Interval: time.Hour}, eval, bus, m, &logger), &published, m
}

func TestMonitor_Tick(t *testing.T) {
	eval := &fakeEvaluator{
		stations: []model.Station{{ID: 1, Name: "North"}, {ID: 2, Name: "South"}, {ID: 3, Name: "East"}},
		open:     map[int64]bool{1: true, 2: false},
		failing:  map[int64]bool{3: true},
		expired:  []int64{2},
	}
	mon, published, m := newMonitor(t, eval)
	ctx := context.Background()

	stats := mon.Tick(ctx)
	assert.Equal(t, TickStats{Evaluated: 2, Open: 1, Failed: 1, Expired: 1}, stats)
	assert.Empty(t, *published, "first pass only records state")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenStations))

	open, known := mon.State(1)
	assert.True(t, known)
	assert.True(t, open)

	eval.set(1, false)
	eval.set(2, true)
	stats = mon.Tick(ctx)
	assert.Equal(t, 2, stats.Transitions)
	require.Len(t, *published, 2)
	assert.Equal(t, events.StationClosed, (*published)[0].Type)
	assert.Equal(t, int64(1), (*published)[0].StationID)
	assert.Equal(t, events.StationOpened, (*published)[1].Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("open")))

	stats = mon.Tick(ctx)
	assert.Zero(t, stats.Transitions, "steady state publishes nothing")
}

func TestMonitor_ForgetsRemovedStations(t *testing.T) {
	eval := &fakeEvaluator{
		stations: []model.Station{{ID: 1}, {ID: 2}},
		open:     map[int64]bool{1: true, 2: true},
	}
	mon, _, _ := newMonitor(t, eval)
	ctx := context.Background()

	mon.Tick(ctx)
	eval.mu.Lock()
	eval.stations = eval.stations[:1]
	eval.mu.Unlock()
	mon.Tick(ctx)

	_, known := mon.State(2)
	assert.False(t, known)
}

func TestMonitor_StartStop(t *testing.T) {
	eval := &fakeEvaluator{stations: []model.Station{{ID: 1}}, open: map[int64]bool{}}
	mon, _, _ := newMonitor(t, eval)

	done := make(chan struct{})
	go func() {
		mon.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		eval.mu.Lock()
		defer eval.mu.Unlock()
		return eval.ticks > 0
	}, time.Second, 10*time.Millisecond, "first pass runs immediately")

	mon.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitor_CancelledContext(t *testing.T) {
	eval := &fakeEvaluator{stations: []model.Station{{ID: 1}, {ID: 2}}, open: map[int64]bool{}}
	logger := zerolog.New(io.Discard)
	mon := New(Config{Interval: time.Hour, EvaluationsPerSecond: 1}, eval, nil, nil, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := mon.Tick(ctx)
	assert.Zero(t, stats.Evaluated)
}

func TestMonitor_Tick_EvaluatesEachStationAtItsTurn(t *testing.T) {
	base := time.Date(2026, time.January, 12, 12, 0, 0, 0, time.UTC)
	var calls int
	eval := &fakeEvaluator{
		stations: []model.Station{{ID: 1}, {ID: 2}, {ID: 3}},
		open:     map[int64]bool{},
		judgedAt: map[int64]time.Time{},
		clock: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * time.Minute)
		},
	}
	mon, _, _ := newMonitor(t, eval)

	stats := mon.Tick(context.Background())
	assert.Equal(t, 3, stats.Evaluated)

	require.Len(t, eval.judgedAt, 3)
	assert.True(t, eval.judgedAt[2].After(eval.judgedAt[1]))
	assert.True(t, eval.judgedAt[3].After(eval.judgedAt[2]))
}
