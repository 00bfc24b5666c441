package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/projection"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/search"
	"chat-relay/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server   *httptest.Server
	messages *repositories.MessageRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.Open("", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	users := repositories.NewUserRepository(db)
	channels := repositories.NewChannelRepository(db)
	memberships := repositories.NewMembershipRepository(db)
	messages := repositories.NewMessageRepository(db, log, 50)

	tokens := auth.NewTokenManager([]byte("test-secret"), "chat-relay", time.Hour)
	verifier := auth.NewIdentityVerifier(tokens, users, log)
	coordinator := runtime.NewCoordinator(
		log,
		runtime.NewRegistry(verifier, log),
		runtime.NewPresenceTracker(),
		memberships, messages,
		nil,
		observability.NewStats(),
	)

	router := mux.NewRouter()
	api := NewServer(
		log, tokens,
		services.NewAuthService(users, tokens),
		services.NewChannelService(channels, memberships),
		services.NewChatService(messages, projection.NewTimeline(10), index),
		coordinator,
	)
	api.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &apiFixture{server: server, messages: messages}
}

func (f *apiFixture) post(t *testing.T, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	return response, decodeBodyMap(t, response)
}

func (f *apiFixture) get(t *testing.T, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	return response, decodeBodyMap(t, response)
}

func decodeBodyMap(t *testing.T, response *http.Response) map[string]any {
	t.Helper()
	defer response.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	return body
}

// register creates an account through the API and returns its token.
func (f *apiFixture) register(t *testing.T, email, name string) string {
	t.Helper()
	response, body := f.post(t, "/api/auth/register", "", map[string]string{
		"email":        email,
		"password":     "Sup3r-Secret-Pass!",
		"display_name": name,
	})
	require.Equal(t, http.StatusCreated, response.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	f.register(t, "alice@example.com", "Alice")

	// Duplicate registration conflicts
	response, _ := f.post(t, "/api/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"password":     "Sup3r-Secret-Pass!",
		"display_name": "Alice",
	})
	req.Equal(http.StatusConflict, response.StatusCode)

	// Login with the right password succeeds
	response, body := f.post(t, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "Sup3r-Secret-Pass!",
	})
	req.Equal(http.StatusOK, response.StatusCode)
	req.NotEmpty(body["token"])

	// Wrong password is unauthorized
	response, _ = f.post(t, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	req.Equal(http.StatusUnauthorized, response.StatusCode)
}

func TestAPI_ChannelsRequireAuth(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	response, _ := f.get(t, "/api/channels", "")
	req.Equal(http.StatusUnauthorized, response.StatusCode)

	response, _ = f.get(t, "/api/channels", "garbage-token")
	req.Equal(http.StatusUnauthorized, response.StatusCode)
}

func TestAPI_ChannelLifecycle(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	aliceToken := f.register(t, "alice@example.com", "Alice")
	bobToken := f.register(t, "bob@example.com", "Bob")

	// Alice creates a channel and becomes its owner member
	response, created := f.post(t, "/api/channels", aliceToken, map[string]any{"name": "general"})
	req.Equal(http.StatusCreated, response.StatusCode)
	channelID, _ := created["id"].(string)
	req.NotEmpty(channelID)

	// Bob joins it
	response, _ = f.post(t, fmt.Sprintf("/api/channels/%s/join", channelID), bobToken, nil)
	req.Equal(http.StatusOK, response.StatusCode)

	// Both appear in the member list
	response, body := f.get(t, fmt.Sprintf("/api/channels/%s/members", channelID), aliceToken)
	req.Equal(http.StatusOK, response.StatusCode)
	members, _ := body["members"].([]any)
	req.Len(members, 2)

	// The listing carries the member count
	response, body = f.get(t, "/api/channels", bobToken)
	req.Equal(http.StatusOK, response.StatusCode)
	channelList, _ := body["channels"].([]any)
	req.Len(channelList, 1)
	first, _ := channelList[0].(map[string]any)
	req.EqualValues(2, first["member_count"])

	// Bob leaves again
	response, _ = f.post(t, fmt.Sprintf("/api/channels/%s/leave", channelID), bobToken, nil)
	req.Equal(http.StatusOK, response.StatusCode)

	response, body = f.get(t, fmt.Sprintf("/api/channels/%s/members", channelID), aliceToken)
	req.Equal(http.StatusOK, response.StatusCode)
	members, _ = body["members"].([]any)
	req.Len(members, 1)
}

func TestAPI_History(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	token := f.register(t, "alice@example.com", "Alice")

	response, created := f.post(t, "/api/channels", token, map[string]any{"name": "general"})
	req.Equal(http.StatusCreated, response.StatusCode)
	channelID, _ := created["id"].(string)

	for i := 0; i < 3; i++ {
		_, err := f.messages.Append(context.Background(), domain.ChannelID(channelID), "alice", fmt.Sprintf("message %d", i), "en")
		req.NoError(err)
	}

	response, body := f.get(t, fmt.Sprintf("/api/channels/%s/messages?limit=2", channelID), token)
	req.Equal(http.StatusOK, response.StatusCode)
	messages, _ := body["messages"].([]any)
	req.Len(messages, 2)
	req.Equal(true, body["has_more"])
	req.NotEmpty(body["next_cursor"])
}

func TestAPI_Health(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	response, body := f.get(t, "/healthz", "")
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("ok", body["status"])
}
