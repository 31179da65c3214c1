package events

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	bus := NewEventBus(nil)

	var opened, all []Event
	bus.Subscribe(StationOpened, func(e Event) error {
		opened = append(opened, e)
		return nil
	})
	bus.Subscribe(All, func(e Event) error {
		all = append(all, e)
		return nil
	})

	bus.Publish(New(StationOpened, 1, map[string]string{"source": "Weekly schedule"}))
	bus.Publish(Event{Type: StationClosed, StationID: 2})

	require.Len(t, opened, 1)
	assert.Equal(t, int64(1), opened[0].StationID)
	assert.JSONEq(t, `{"source":"Weekly schedule"}`, string(opened[0].Payload))
	_, err := uuid.Parse(opened[0].ID)
	assert.NoError(t, err)

	require.Len(t, all, 2)
	assert.Equal(t, StationClosed, all[1].Type)
	assert.NotEmpty(t, all[1].ID, "missing id is filled in")
	assert.False(t, all[1].CreatedAt.IsZero())
}

func TestEventBus_HandlerErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	called := 0
	bus.Subscribe(OverrideSet, func(Event) error { return errors.New("boom") })
	bus.Subscribe(OverrideSet, func(Event) error {
		called++
		return nil
	})

	bus.Publish(New(OverrideSet, 3, nil))
	assert.Equal(t, 1, called, "later handlers still run")
	assert.Contains(t, buf.String(), "boom")
}

func TestEventBus_Nil(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() { bus.Publish(New(ScheduleUpdated, 1, nil)) })
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	require.NoError(t, LogHandler(&logger)(New(ExceptionSaved, 7, map[string]string{"date": "2026-03-08"})))
	assert.Contains(t, buf.String(), `"type":"exception.saved"`)
	assert.Contains(t, buf.String(), `"station_id":7`)
	assert.Contains(t, buf.String(), `"date":"2026-03-08"`)
}
