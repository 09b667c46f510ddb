package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gookitEvent "github.com/gookit/event"

	"github.com/juagargi/scion-box/internal/shared/logger"
)

// Bus publishes provisioning progress events using gookit/event as the
// underlying implementation
type Bus struct {
	manager *gookitEvent.Manager
	logger  *logger.Logger
	mu      sync.RWMutex
	closed  bool
}

// NewBus creates a new event bus
func NewBus(log *logger.Logger) *Bus {
	if log == nil {
		log = logger.NewDevelopment("events")
	}

	return &Bus{
		manager: gookitEvent.NewManager("scion-ap"),
		logger:  log,
	}
}

// Publish publishes an event to the bus
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.RUnlock()

	b.logger.DebugContext(ctx, "publishing event",
		slog.String("type", e.Type),
		slog.String("step", e.Step),
		slog.String("run_id", e.RunID))

	err, _ := b.manager.Fire(e.Type, gookitEvent.M{"payload": e})
	if err != nil {
		b.logger.ErrorCtx(ctx, "failed to publish event", err,
			slog.String("type", e.Type))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe registers a handler for events of a specific type
func (b *Bus) Subscribe(eventType string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	b.manager.On(eventType, gookitEvent.ListenerFunc(func(ge gookitEvent.Event) error {
		payload, ok := ge.Get("payload").(Event)
		if !ok {
			return fmt.Errorf("unexpected payload type for event %s", ge.Name())
		}
		handler(payload)
		return nil
	}), gookitEvent.Normal)

	return nil
}

// SubscribeAll registers a handler for every run and step event type
func (b *Bus) SubscribeAll(handler Handler) error {
	for _, eventType := range []string{
		TypeRunStarted, TypeRunCompleted, TypeRunFailed,
		TypeStepStarted, TypeStepCompleted, TypeStepSkipped, TypeStepFailed,
	} {
		if err := b.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the bus and removes all listeners
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.manager.Clear()
	return nil
}
