package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
)

// MaxContentRunes bounds message content after whitespace trimming.
const MaxContentRunes = 4000

// Coordinator orchestrates the realtime session lifecycle: connect,
// join/leave, send, typing and disconnect. It validates authentication via
// the Registry and membership via the membership store, mutates the
// presence tracker, and fans resulting events out to every sink subscribed
// to the channel's room.
//
// Locking discipline: the Registry and PresenceTracker each own their lock
// and are never acquired at the same time; store calls and sink delivery
// happen with no lock held.
type Coordinator struct {
	log         *slog.Logger
	registry    *Registry
	presence    *PresenceTracker
	memberships contract.IMembershipStore
	messages    contract.IMessageStore
	moderator   *moderation.Moderator // nil disables censoring
	stats       *observability.Stats

	// permanentSinks observe every broadcast (timeline, search index).
	// Fixed at construction; never mutated afterwards.
	permanentSinks []contract.EventSink
}

func NewCoordinator(
	log *slog.Logger,
	registry *Registry,
	presence *PresenceTracker,
	memberships contract.IMembershipStore,
	messages contract.IMessageStore,
	moderator *moderation.Moderator,
	stats *observability.Stats,
	permanentSinks ...contract.EventSink,
) *Coordinator {
	return &Coordinator{
		log:            log,
		registry:       registry,
		presence:       presence,
		memberships:    memberships,
		messages:       messages,
		moderator:      moderator,
		stats:          stats,
		permanentSinks: permanentSinks,
	}
}

// Connect authenticates the credential and binds the connection. On
// failure the caller must close the transport connection; nothing is
// retained.
func (c *Coordinator) Connect(ctx context.Context, connID domain.ConnID, token string, sink contract.EventSink) (domain.Identity, error) {
	identity, err := c.registry.Bind(ctx, connID, token, sink)
	if err != nil {
		c.stats.AuthFailure()
		c.log.Warn("socket auth refused", "conn_id", connID, "err", err)
		return domain.Identity{}, err
	}
	c.stats.ConnectionBound()
	return identity, nil
}

// JoinChannel subscribes the connection to the channel's room. The joining
// connection receives the full presence snapshot through its sink; the
// room receives a joined transition only for the user's first connection.
func (c *Coordinator) JoinChannel(ctx context.Context, connID domain.ConnID, channelID domain.ChannelID) error {
	identity, ok := c.registry.IdentityOf(connID)
	if !ok {
		return errors.ErrNotAuthenticated
	}

	member, err := c.memberships.IsMember(ctx, channelID, identity.UserID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if !member {
		return errors.ErrNotMember
	}

	firstJoin := c.presence.Join(channelID, connID, identity)

	// A disconnect may have unbound the connection between the membership
	// check and the presence mutation. The registry removal is the
	// barrier: observe it and roll back rather than leave a ghost entry.
	if _, still := c.registry.IdentityOf(connID); !still {
		c.presence.Leave(channelID, connID)
		return errors.ErrNotAuthenticated
	}

	if sink, ok := c.registry.SinkOf(connID); ok {
		c.deliver(ctx, sink, event.OnlineUsers{
			ChannelID: channelID,
			Users:     c.presence.Snapshot(channelID),
		})
	}

	if firstJoin {
		c.broadcast(ctx, channelID, event.PresenceUpdate{
			ChannelID:   channelID,
			UserID:      identity.UserID,
			DisplayName: identity.DisplayName,
			Action:      event.ActionJoined,
		}, "")
	}

	c.log.Info("joined channel", "user_id", identity.UserID, "channel_id", channelID, "first_join", firstJoin)
	return nil
}

// LeaveChannel unsubscribes the connection from the room. The left
// transition is broadcast only when the user's last connection leaves;
// other devices of the same user keep the presence entry alive.
func (c *Coordinator) LeaveChannel(ctx context.Context, connID domain.ConnID, channelID domain.ChannelID) error {
	if _, ok := c.registry.IdentityOf(connID); !ok {
		return errors.ErrNotAuthenticated
	}

	lastLeave, user, ok := c.presence.Leave(channelID, connID)
	if !ok {
		// Was never joined; nothing to broadcast, nothing to undo.
		return nil
	}

	if lastLeave {
		c.broadcast(ctx, channelID, event.PresenceUpdate{
			ChannelID:   channelID,
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			Action:      event.ActionLeft,
		}, "")
	}
	return nil
}

// SendMessage validates, censors, persists and then broadcasts a message.
// The store commit always precedes the broadcast: a message no reader can
// page back later must never reach the room.
func (c *Coordinator) SendMessage(ctx context.Context, connID domain.ConnID, channelID domain.ChannelID, content, tempID string) (domain.Message, error) {
	identity, ok := c.registry.IdentityOf(connID)
	if !ok {
		return domain.Message{}, errors.ErrNotAuthenticated
	}

	content = strings.TrimSpace(content)
	if length := utf8.RuneCountInString(content); length == 0 || length > MaxContentRunes {
		return domain.Message{}, errors.ErrInvalidContent
	}

	member, err := c.memberships.IsMember(ctx, channelID, identity.UserID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("membership lookup: %w", err)
	}
	if !member {
		return domain.Message{}, errors.ErrNotMember
	}

	if c.moderator != nil {
		content = c.moderator.Censor(content)
	}

	msg, err := c.messages.Append(ctx, channelID, identity.UserID, content, moderation.DetectLanguage(content))
	if err != nil {
		// No broadcast, no silent loss: the sender gets a server error and
		// may retry the whole operation.
		return domain.Message{}, fmt.Errorf("message append: %w", err)
	}
	c.stats.MessagePersisted()

	c.broadcast(ctx, channelID, event.MessageBroadcast{
		Message: msg,
		User:    domain.PresenceInfo{ID: identity.UserID, DisplayName: identity.DisplayName},
		TempID:  tempID,
	}, "")

	return msg, nil
}

// Typing relays a typing indicator to everyone in the room except the
// typist. Best effort: failures only drop the notice.
func (c *Coordinator) Typing(ctx context.Context, connID domain.ConnID, channelID domain.ChannelID, isTyping bool) error {
	identity, ok := c.registry.IdentityOf(connID)
	if !ok {
		return errors.ErrNotAuthenticated
	}

	member, err := c.memberships.IsMember(ctx, channelID, identity.UserID)
	if err != nil || !member {
		return errors.ErrNotMember
	}

	c.broadcast(ctx, channelID, event.TypingNotice{
		ChannelID: channelID,
		UserID:    identity.UserID,
		IsTyping:  isTyping,
	}, connID)
	return nil
}

// Disconnect runs the connection's cleanup exactly once, no matter how
// many times the transport signals it. Local state removal always
// succeeds; downstream delivery failures cannot prevent it.
func (c *Coordinator) Disconnect(ctx context.Context, connID domain.ConnID) {
	identity, removed := c.registry.Unbind(connID)
	if !removed {
		return
	}
	c.stats.ConnectionClosed()

	for _, departure := range c.presence.Purge(connID) {
		c.broadcast(ctx, departure.ChannelID, event.PresenceUpdate{
			ChannelID:   departure.ChannelID,
			UserID:      departure.User.ID,
			DisplayName: departure.User.DisplayName,
			Action:      event.ActionLeft,
		}, "")
	}

	c.log.Info("connection closed", "conn_id", connID, "user_id", identity.UserID)
}

// StatsSnapshot exposes the counters plus live presence gauges.
func (c *Coordinator) StatsSnapshot() observability.Snapshot {
	channels, users := c.presence.Counts()
	return c.stats.Snapshot(channels, users)
}

// broadcast delivers a room event to every subscribed connection (minus
// `except`) and to the permanent sinks. The roster is snapshotted first so
// joins and leaves cannot disrupt the iteration. Sink failures are logged
// and counted, never propagated: the triggering operation already
// succeeded durably.
func (c *Coordinator) broadcast(ctx context.Context, channelID domain.ChannelID, evt event.ChannelEvent, except domain.ConnID) {
	roster := c.presence.Roster(channelID)
	sinks := c.registry.SinksFor(roster, except)
	for _, sink := range append(sinks, c.permanentSinks...) {
		c.deliver(ctx, sink, evt)
	}
}

func (c *Coordinator) deliver(ctx context.Context, sink contract.EventSink, evt event.Event) {
	if err := sink.Consume(ctx, evt); err != nil {
		c.stats.EventDropped()
		c.log.Warn("event delivery failed", "event", evt.EventName(), "err", err)
		return
	}
	c.stats.EventDelivered()
}
