package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testEvent struct {
	BaseEvent
}

func TestBus_Publish(t *testing.T) {
	t.Run("dispatches to handlers in order", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		var calls []string

		bus.Register(NewHandlerFunc([]string{"a"}, func(context.Context, Event) error {
			calls = append(calls, "first")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{"a", "b"}, func(_ context.Context, e Event) error {
			calls = append(calls, "second:"+e.EventType())
			return nil
		}))

		bus.Publish(context.Background(), testEvent{NewBaseEvent("a", "cid:1")})
		bus.Publish(context.Background(), testEvent{NewBaseEvent("b", "cid:1")})

		assert.Equal(t, []string{"first", "second:a", "second:b"}, calls)
	})

	t.Run("isolates handler errors", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		reached := false

		bus.Register(NewHandlerFunc([]string{"a"}, func(context.Context, Event) error {
			return errors.New("boom")
		}))
		bus.Register(NewHandlerFunc([]string{"a"}, func(context.Context, Event) error {
			reached = true
			return nil
		}))

		bus.Publish(context.Background(), testEvent{NewBaseEvent("a", "cid:1")})
		assert.True(t, reached)
	})

	t.Run("contains handler panics", func(t *testing.T) {
		bus := NewBus(nil)
		reached := false

		bus.Register(NewHandlerFunc([]string{"a"}, func(context.Context, Event) error {
			panic("broker gone")
		}))
		bus.Register(NewHandlerFunc([]string{"a"}, func(context.Context, Event) error {
			reached = true
			return nil
		}))

		assert.NotPanics(t, func() {
			bus.Publish(context.Background(), testEvent{NewBaseEvent("a", "cid:1")})
		})
		assert.True(t, reached)
	})

	t.Run("no handlers is a no-op", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		assert.NotPanics(t, func() {
			bus.Publish(context.Background(), testEvent{NewBaseEvent("none", "")})
		})
	})
}

func TestNewBaseEvent(t *testing.T) {
	e := NewBaseEvent("x", "cid:abc")
	assert.Equal(t, "x", e.EventType())
	assert.Equal(t, "cid:abc", e.AggregateID())
	assert.NotEqual(t, e.EventID().String(), NewBaseEvent("x", "").EventID().String())
	assert.False(t, e.OccurredAt().IsZero())
}
