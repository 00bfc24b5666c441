// Package event defines the realtime events delivered to connection sinks.
// Every server-to-client frame is one of these types; room-addressed events
// also carry the channel they fan out to.
package event

import (
	"chat-relay/domain"
)

// Event is anything a connection sink can deliver. The name becomes the
// `event` field of the socket frame.
type Event interface {
	EventName() string
}

// ChannelEvent is an event addressed to a channel's room.
type ChannelEvent interface {
	Event
	Channel() domain.ChannelID
}

// Presence transition actions.
const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)

// Connected is the reply to a successful connect handshake.
type Connected struct {
	UserID      domain.UserID `json:"user_id"`
	DisplayName string        `json:"display_name"`
}

func (Connected) EventName() string { return "connected" }

// Result acknowledges a request frame: {ok:true} or {error:code}.
type Result struct {
	For    string `json:"for"`
	OK     bool   `json:"ok"`
	ID     string `json:"id,omitempty"`
	TempID string `json:"temp_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (Result) EventName() string { return "result" }

// OnlineUsers is the presence snapshot pushed to a freshly joined
// connection.
type OnlineUsers struct {
	ChannelID domain.ChannelID                      `json:"channel_id"`
	Users     map[domain.UserID]domain.PresenceInfo `json:"users"`
}

func (OnlineUsers) EventName() string { return "online_users_list" }

func (e OnlineUsers) Channel() domain.ChannelID { return e.ChannelID }

// PresenceUpdate announces a per-user join/left transition to a room.
type PresenceUpdate struct {
	ChannelID   domain.ChannelID `json:"channel_id"`
	UserID      domain.UserID    `json:"user_id"`
	DisplayName string           `json:"display_name"`
	Action      string           `json:"action"`
}

func (PresenceUpdate) EventName() string { return "presence_update" }

func (e PresenceUpdate) Channel() domain.ChannelID { return e.ChannelID }

// MessageBroadcast carries a persisted message to a room. The embedded
// Message flattens into the payload, matching the history endpoint shape,
// with the sender identity and the client's temp_id echoed on top.
type MessageBroadcast struct {
	domain.Message
	User   domain.PresenceInfo `json:"user"`
	TempID string              `json:"temp_id,omitempty"`
}

func (MessageBroadcast) EventName() string { return "message" }

func (e MessageBroadcast) Channel() domain.ChannelID { return e.ChannelID }

// TypingNotice is the best-effort typing indicator, sent to everyone in the
// room except the typist.
type TypingNotice struct {
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id"`
	IsTyping  bool             `json:"is_typing"`
}

func (TypingNotice) EventName() string { return "typing" }

func (e TypingNotice) Channel() domain.ChannelID { return e.ChannelID }
