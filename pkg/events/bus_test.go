package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juagargi/scion-box/internal/shared/logger"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(logger.NewDevelopment("test"))
	defer bus.Close()

	var received []Event
	err := bus.Subscribe(TypeStepCompleted, func(e Event) {
		received = append(received, e)
	})
	require.NoError(t, err)

	e := NewEvent(TypeStepCompleted, "run-1", "server-config")
	e.Changed = true
	require.NoError(t, bus.Publish(context.Background(), e))

	require.Len(t, received, 1)
	assert.Equal(t, "server-config", received[0].Step)
	assert.Equal(t, "run-1", received[0].RunID)
	assert.True(t, received[0].Changed)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(logger.NewDevelopment("test"))
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(Event) { count++ }))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEvent(TypeRunStarted, "run-1", "")))
	require.NoError(t, bus.Publish(ctx, NewEvent(TypeStepStarted, "run-1", "certificates")))
	require.NoError(t, bus.Publish(ctx, NewEvent(TypeRunCompleted, "run-1", "")))

	assert.Equal(t, 3, count)
}

func TestBusClosed(t *testing.T) {
	bus := NewBus(logger.NewDevelopment("test"))
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), NewEvent(TypeRunStarted, "run-1", ""))
	assert.Error(t, err)

	err = bus.Subscribe(TypeRunStarted, func(Event) {})
	assert.Error(t, err)

	// closing twice is fine
	assert.NoError(t, bus.Close())
}
