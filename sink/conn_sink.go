// Package sink provides EventSink implementations: the per-connection
// buffered sink feeding a socket write pump, and process-wide sinks
// observing broadcasts.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain/event"
)

// ConnSink buffers events for one connection's write pump. Consume blocks
// the broadcaster at most deliveryTimeout when the buffer is full, then
// drops: a slow reader degrades its own stream, never the room's.
type ConnSink struct {
	log             *slog.Logger
	events          chan event.Event
	deliveryTimeout time.Duration
}

func NewConnSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *ConnSink {
	return &ConnSink{
		log:             log,
		events:          make(chan event.Event, bufferSize),
		deliveryTimeout: deliveryTimeout,
	}
}

// Events is drained by the connection's write pump.
func (s *ConnSink) Events() <-chan event.Event {
	return s.events
}

func (s *ConnSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.events <- e:
		return nil
	default:
	}

	// Buffer full: give the pump one timeout's worth of grace.
	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("delivery timeout, dropping %s event", e.EventName())
	}
}
