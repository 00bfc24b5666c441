// Package projection keeps in-memory read models fed by broadcast events.
package projection

import (
	"context"
	"sync"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Timeline holds the most recent messages per channel, newest last. It is
// a permanent sink on the coordinator's broadcast path, so it only ever
// sees messages that were durably persisted.
type Timeline struct {
	mu       sync.RWMutex
	capacity int
	channels map[domain.ChannelID][]domain.Message
}

func NewTimeline(capacity int) *Timeline {
	return &Timeline{
		capacity: capacity,
		channels: make(map[domain.ChannelID][]domain.Message),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	broadcast, ok := e.(event.MessageBroadcast)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	recent := append(t.channels[broadcast.ChannelID], broadcast.Message)
	if len(recent) > t.capacity {
		recent = recent[len(recent)-t.capacity:]
	}
	t.channels[broadcast.ChannelID] = recent
	return nil
}

// Recent returns a copy of the channel's cached tail, oldest first.
func (t *Timeline) Recent(channelID domain.ChannelID) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cached := t.channels[channelID]
	out := make([]domain.Message, len(cached))
	copy(out, cached)
	return out
}
