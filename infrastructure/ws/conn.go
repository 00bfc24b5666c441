package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	relayerrors "chat-relay/errors"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"chat-relay/sink"

	"github.com/gorilla/websocket"
)

// connection owns one websocket session: the authenticated handshake, the
// sequential read loop dispatching operations to the coordinator, and the
// write pump draining the connection's sink. Disconnect cleanup runs
// exactly once regardless of how the session ends.
type connection struct {
	id          domain.ConnID
	ws          *websocket.Conn
	sink        *sink.ConnSink
	coordinator *runtime.Coordinator
	config      Config
	log         *slog.Logger
	closeOnce   sync.Once
}

func (c *connection) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.shutdown(ctx)

	c.ws.SetReadLimit(c.config.MaxMessageSize)

	// Handshake happens before the write pump starts, so these replies can
	// be written directly without racing another writer.
	if !c.handshake(ctx) {
		return
	}

	var pumpDone sync.WaitGroup
	pumpDone.Add(1)
	go func() {
		defer pumpDone.Done()
		c.writePump(ctx)
	}()

	c.readLoop(ctx)

	// Cleanup must precede pump teardown so the final presence updates of
	// other rooms are not delivered to this closing socket.
	c.shutdown(ctx)
	cancel()
	pumpDone.Wait()
}

// handshake enforces the connect-first protocol: the first frame must
// carry a valid credential before any other event is accepted.
func (c *connection) handshake(ctx context.Context) bool {
	if err := c.ws.SetReadDeadline(time.Now().Add(c.config.AuthDeadline)); err != nil {
		return false
	}

	var frame Frame
	if err := c.ws.ReadJSON(&frame); err != nil {
		c.log.Warn("handshake read failed", "err", err)
		return false
	}
	if frame.Event != "connect" {
		c.writeDirect(event.Result{For: "connect", Error: relayerrors.CodeNotAuthenticated})
		return false
	}

	var payload connectPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.Token == "" {
		c.writeDirect(event.Result{For: "connect", Error: relayerrors.CodeNotAuthenticated})
		return false
	}

	identity, err := c.coordinator.Connect(ctx, c.id, payload.Token, c.sink)
	if err != nil {
		// Reject and close: no connection state is retained.
		c.writeDirect(event.Result{For: "connect", Error: relayerrors.Code(err)})
		return false
	}

	c.log = c.log.With("user_id", identity.UserID)
	c.writeDirect(event.Connected{UserID: identity.UserID, DisplayName: identity.DisplayName})
	return true
}

// readLoop processes frames sequentially until the peer goes away. The
// sequential dispatch is what gives same-connection operations their
// broadcast ordering.
func (c *connection) readLoop(ctx context.Context) {
	if err := c.ws.SetReadDeadline(time.Now().Add(c.config.PongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		var frame Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) && !errors.Is(err, io.EOF) {
				c.log.Warn("websocket read error", "err", err)
			}
			return
		}
		c.dispatch(ctx, frame)
	}
}

func (c *connection) dispatch(ctx context.Context, frame Frame) {
	switch frame.Event {
	case "join_channel":
		var payload channelPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
			c.reply(ctx, event.Result{For: frame.Event, Error: relayerrors.CodeServerError})
			return
		}
		err := c.coordinator.JoinChannel(ctx, c.id, domain.ChannelID(payload.ChannelID))
		c.replyResult(ctx, frame.Event, err)

	case "leave_channel":
		var payload channelPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
			c.reply(ctx, event.Result{For: frame.Event, Error: relayerrors.CodeServerError})
			return
		}
		err := c.coordinator.LeaveChannel(ctx, c.id, domain.ChannelID(payload.ChannelID))
		c.replyResult(ctx, frame.Event, err)

	case "send_message":
		var payload sendMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
			c.reply(ctx, event.Result{For: frame.Event, Error: relayerrors.CodeServerError})
			return
		}
		msg, err := c.coordinator.SendMessage(ctx, c.id, domain.ChannelID(payload.ChannelID), payload.Content, payload.TempID)
		if err != nil {
			c.reply(ctx, event.Result{For: frame.Event, TempID: payload.TempID, Error: relayerrors.Code(err)})
			return
		}
		c.reply(ctx, event.Result{For: frame.Event, OK: true, ID: msg.ID.String(), TempID: payload.TempID})

	case "typing":
		var payload typingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.ChannelID == "" {
			return
		}
		// Best effort, no ack and no error surface.
		_ = c.coordinator.Typing(ctx, c.id, domain.ChannelID(payload.ChannelID), payload.IsTyping)

	case "disconnect":
		c.shutdown(ctx)

	default:
		c.log.Debug("unknown event ignored", "event", frame.Event)
	}
}

func (c *connection) replyResult(ctx context.Context, operation string, err error) {
	if err != nil {
		c.reply(ctx, event.Result{For: operation, Error: relayerrors.Code(err)})
		return
	}
	c.reply(ctx, event.Result{For: operation, OK: true})
}

// reply queues a server frame through the sink so it is ordered with the
// broadcasts the same operation produced.
func (c *connection) reply(ctx context.Context, e event.Event) {
	if err := c.sink.Consume(ctx, e); err != nil {
		c.log.Warn("reply dropped", "event", e.EventName(), "err", err)
	}
}

// writeDirect writes a frame synchronously. Only valid before the write
// pump starts (handshake phase).
func (c *connection) writeDirect(e event.Event) {
	payload, err := encodeEvent(e)
	if err != nil {
		return
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
	_ = c.ws.WriteMessage(websocket.TextMessage, payload)
}

// writePump is the sole writer after the handshake: it drains the sink and
// keeps the connection alive with pings.
func (c *connection) writePump(ctx context.Context) {
	pingPeriod := c.config.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-c.sink.Events():
			payload, err := encodeEvent(e)
			if err != nil {
				c.log.Warn("event encoding failed", "event", e.EventName(), "err", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// shutdown runs the coordinator cleanup exactly once and closes the
// socket. Safe to call from the read loop, a disconnect frame, and the
// deferred path at the same time.
func (c *connection) shutdown(ctx context.Context) {
	c.closeOnce.Do(func() {
		c.coordinator.Disconnect(ctx, c.id)
		_ = c.ws.Close()
	})
}
