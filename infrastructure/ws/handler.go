package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/domain"
	"chat-relay/runtime"
	"chat-relay/sink"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config tunes the socket endpoint. Zero values are replaced by defaults.
type Config struct {
	MaxMessageSize  int64
	AuthDeadline    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	SendBufferSize  int
	DeliveryTimeout time.Duration
	AllowedOrigins  []string
}

func (c Config) withDefaults() Config {
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 16 * 1024
	}
	if c.AuthDeadline == 0 {
		c.AuthDeadline = 10 * time.Second
	}
	if c.PongWait == 0 {
		c.PongWait = 60 * time.Second
	}
	if c.WriteWait == 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.SendBufferSize == 0 {
		c.SendBufferSize = 256
	}
	if c.DeliveryTimeout == 0 {
		c.DeliveryTimeout = time.Second
	}
	return c
}

// Handler upgrades HTTP requests to websocket sessions and hands each
// connection to the coordinator.
type Handler struct {
	log         *slog.Logger
	coordinator *runtime.Coordinator
	config      Config
	upgrader    websocket.Upgrader
}

func NewHandler(log *slog.Logger, coordinator *runtime.Coordinator, config Config) *Handler {
	config = config.withDefaults()
	return &Handler{
		log:         log,
		coordinator: coordinator,
		config:      config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	session := &connection{
		id:          domain.ConnID(uuid.NewString()),
		ws:          conn,
		sink:        sink.NewConnSink(h.log, h.config.SendBufferSize, h.config.DeliveryTimeout),
		coordinator: h.coordinator,
		config:      h.config,
		log:         h.log.With("remote", r.RemoteAddr),
	}
	// The socket outlives the HTTP request context once upgraded; the
	// session manages its own lifetime.
	session.run(context.Background())
}

// originChecker allows every origin when none is configured (same policy
// as credential-bearing native clients), otherwise enforces the list.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
