// Package ws exposes the realtime socket endpoint: JSON frames over a
// persistent websocket connection, dispatched to the session coordinator.
package ws

import (
	"encoding/json"
	"fmt"

	"chat-relay/domain/event"
)

// Frame is the wire envelope in both directions:
// {"event":"send_message","data":{...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client-to-server payloads.

type connectPayload struct {
	Token string `json:"token"`
}

type channelPayload struct {
	ChannelID string `json:"channel_id"`
}

type sendMessagePayload struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	TempID    string `json:"temp_id,omitempty"`
}

type typingPayload struct {
	ChannelID string `json:"channel_id"`
	IsTyping  bool   `json:"is_typing"`
}

// encodeEvent wraps a server event into its wire frame.
func encodeEvent(e event.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.EventName(), err)
	}
	return json.Marshal(Frame{Event: e.EventName(), Data: data})
}
