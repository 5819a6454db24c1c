package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Bus fans events out to handlers synchronously, in registration order.
// Handler failures and panics are logged and never reach the publisher.
type Bus struct {
	mu     sync.RWMutex
	byType map[string][]Handler
	logger *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{byType: make(map[string][]Handler), logger: log.Named("events")}
}

// Register subscribes handler to every type it Handles.
func (b *Bus) Register(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range handler.Handles() {
		b.byType[t] = append(b.byType[t], handler)
	}
}

// Publish delivers event to its subscribers.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	subs := b.byType[event.EventType()]
	b.mu.RUnlock()

	log := b.logger.With(
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	)
	if len(subs) == 0 {
		log.Debug("event has no subscribers")
		return
	}
	for _, h := range subs {
		if err := deliver(ctx, h, event); err != nil {
			log.Error("event handler failed", zap.String("aggregate_id", event.AggregateID()), zap.Error(err))
		}
	}
}

func deliver(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
