// Package httpapi exposes the REST surface of the relay: account
// management, channel administration, and message history. Realtime
// traffic goes through the ws package instead.
package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/gorilla/mux"
)

// Server wires the REST handlers onto a gorilla router.
type Server struct {
	log         *slog.Logger
	tokens      *auth.TokenManager
	authSvc     services.IAuthService
	channels    services.IChannelService
	chat        services.IChatService
	coordinator *runtime.Coordinator
}

func NewServer(
	log *slog.Logger,
	tokens *auth.TokenManager,
	authSvc services.IAuthService,
	channels services.IChannelService,
	chat services.IChatService,
	coordinator *runtime.Coordinator,
) *Server {
	return &Server{
		log:         log,
		tokens:      tokens,
		authSvc:     authSvc,
		channels:    channels,
		chat:        chat,
		coordinator: coordinator,
	}
}

// Register mounts all REST routes on the router. The websocket endpoint is
// mounted separately by the caller.
func (s *Server) Register(r *mux.Router) {
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	api.HandleFunc("/channels", s.requireAuth(s.handleListChannels)).Methods(http.MethodGet)
	api.HandleFunc("/channels", s.requireAuth(s.handleCreateChannel)).Methods(http.MethodPost)
	api.HandleFunc("/channels/{id}/join", s.requireAuth(s.handleJoinChannel)).Methods(http.MethodPost)
	api.HandleFunc("/channels/{id}/leave", s.requireAuth(s.handleLeaveChannel)).Methods(http.MethodPost)
	api.HandleFunc("/channels/{id}/members", s.requireAuth(s.handleMembers)).Methods(http.MethodGet)
	api.HandleFunc("/channels/{id}/messages", s.requireAuth(s.handleHistory)).Methods(http.MethodGet)
	api.HandleFunc("/channels/{id}/recent", s.requireAuth(s.handleRecent)).Methods(http.MethodGet)
	api.HandleFunc("/channels/{id}/search", s.requireAuth(s.handleSearch)).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses without leaking
// internals for unexpected failures.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, errors.ErrNotAuthenticated),
		stderrors.Is(err, errors.ErrTokenExpired),
		stderrors.Is(err, errors.ErrTokenMalformed),
		stderrors.Is(err, errors.ErrTokenInvalid),
		stderrors.Is(err, errors.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case stderrors.Is(err, errors.ErrNotMember):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case stderrors.Is(err, errors.ErrChannelNotFound), stderrors.Is(err, errors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case stderrors.Is(err, errors.ErrInvalidPassword), stderrors.Is(err, errors.ErrInvalidContent):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}
