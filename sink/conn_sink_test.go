package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain/event"

	"github.com/stretchr/testify/require"
)

func TestConnSink_DeliversInOrder(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 4, 50*time.Millisecond)
	ctx := context.Background()

	first := event.TypingNotice{ChannelID: "general", UserID: "alice", IsTyping: true}
	second := event.TypingNotice{ChannelID: "general", UserID: "alice", IsTyping: false}

	req.NoError(s.Consume(ctx, first))
	req.NoError(s.Consume(ctx, second))

	req.Equal(first, <-s.Events())
	req.Equal(second, <-s.Events())
}

func TestConnSink_DropsWhenFullAndSlow(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 1, 20*time.Millisecond)
	ctx := context.Background()

	req.NoError(s.Consume(ctx, event.TypingNotice{ChannelID: "general"}))

	// Buffer full and nobody draining: the second delivery times out
	err := s.Consume(ctx, event.TypingNotice{ChannelID: "random"})
	req.Error(err)
}

func TestConnSink_GracePeriodLetsPumpCatchUp(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 1, 200*time.Millisecond)
	ctx := context.Background()

	req.NoError(s.Consume(ctx, event.TypingNotice{ChannelID: "general"}))

	// A pump draining within the grace window unblocks the delivery
	go func() {
		time.Sleep(20 * time.Millisecond)
		<-s.Events()
	}()

	req.NoError(s.Consume(ctx, event.TypingNotice{ChannelID: "random"}))
}

func TestConnSink_ContextCancellation(t *testing.T) {
	req := require.New(t)
	s := NewConnSink(slog.Default(), 1, time.Minute)

	req.NoError(s.Consume(context.Background(), event.TypingNotice{ChannelID: "general"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Consume(ctx, event.TypingNotice{ChannelID: "random"})
	req.ErrorIs(err, context.Canceled)
}
