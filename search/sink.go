package search

import (
	"context"
	"log/slog"

	"chat-relay/domain/event"
)

// Sink feeds the index from the coordinator's broadcast path. Indexing
// errors are logged and swallowed: search lags, chat keeps going.
type Sink struct {
	index *Index
	log   *slog.Logger
}

func NewSink(index *Index, log *slog.Logger) *Sink {
	return &Sink{index: index, log: log}
}

func (s *Sink) Consume(_ context.Context, e event.Event) error {
	broadcast, ok := e.(event.MessageBroadcast)
	if !ok {
		return nil
	}
	if err := s.index.IndexMessage(broadcast.Message); err != nil {
		s.log.Warn("message indexing failed", "message_id", broadcast.ID, "err", err)
	}
	return nil
}
