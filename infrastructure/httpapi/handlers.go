package httpapi

import (
	"net/http"
	"strconv"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/services"

	"github.com/gorilla/mux"
)

type authResponse struct {
	User  domain.User    `json:"user"`
	Token services.Token `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := s.authSvc.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := s.authSvc.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	views, err := s.channels.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": views})
}

type createChannelRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var req createChannelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
		return
	}

	channel, err := s.channels.Create(r.Context(), req.Name, req.IsPrivate, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (s *Server) handleJoinChannel(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	channelID := domain.ChannelID(mux.Vars(r)["id"])

	if err := s.channels.Join(r.Context(), channelID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"joined": true})
}

func (s *Server) handleLeaveChannel(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	channelID := domain.ChannelID(mux.Vars(r)["id"])

	if err := s.channels.Leave(r.Context(), channelID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"left": true})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	channelID := domain.ChannelID(mux.Vars(r)["id"])

	members, err := s.channels.Members(r.Context(), channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pageLimit(r *http.Request) int {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}
	return limit
}

type historyResponse struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	channelID := domain.ChannelID(mux.Vars(r)["id"])

	var before *string
	if raw := r.URL.Query().Get("before"); raw != "" {
		before = &raw
	}

	messages, next, hasMore, err := s.chat.History(r.Context(), channelID, before, pageLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: messages, NextCursor: next, HasMore: hasMore})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	channelID := domain.ChannelID(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.chat.Recent(channelID)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	channelID := domain.ChannelID(mux.Vars(r)["id"])

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "q is required"})
		return
	}

	hits, err := s.chat.Search(r.Context(), channelID, query, pageLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.StatsSnapshot())
}
