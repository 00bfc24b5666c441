package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	server      *httptest.Server
	tokens      *auth.TokenManager
	users       *repositories.UserRepository
	memberships *repositories.MembershipRepository
	messages    *repositories.MessageRepository
	channel     domain.Channel
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

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

	channel, err := channels.Create(context.Background(), "general", false, "system")
	require.NoError(t, err)

	server := httptest.NewServer(NewHandler(log, coordinator, Config{
		AuthDeadline: 2 * time.Second,
		PongWait:     5 * time.Second,
	}))
	t.Cleanup(server.Close)

	return &wsFixture{
		server:      server,
		tokens:      tokens,
		users:       users,
		memberships: memberships,
		messages:    messages,
		channel:     channel,
	}
}

// signup creates an account with a valid token, optionally as a channel
// member.
func (f *wsFixture) signup(t *testing.T, email, name string, member bool) string {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), email, "hash", name)
	require.NoError(t, err)
	if member {
		require.NoError(t, f.memberships.Add(context.Background(), f.channel.ID, user.ID, domain.RoleMember))
	}
	token, err := f.tokens.Generate(user.ID, name)
	require.NoError(t, err)
	return token
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, eventName string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: eventName, Data: payload}))
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHandler_RejectsBadToken(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	conn := f.dial(t)
	sendFrame(t, conn, "connect", map[string]string{"token": "garbage"})

	frame := readFrame(t, conn)
	req.Equal("result", frame.Event)
	req.Contains(string(frame.Data), "not_authenticated")

	// The server closes the socket after the refusal
	_, _, err := conn.ReadMessage()
	req.Error(err)
}

func TestHandler_FullSessionFlow(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	token := f.signup(t, "alice@example.com", "Alice", true)

	conn := f.dial(t)

	// Handshake
	sendFrame(t, conn, "connect", map[string]string{"token": token})
	frame := readFrame(t, conn)
	req.Equal("connected", frame.Event)
	req.Contains(string(frame.Data), "Alice")

	// Join: snapshot, own joined transition, then the ack
	sendFrame(t, conn, "join_channel", map[string]string{"channel_id": string(f.channel.ID)})
	req.Equal("online_users_list", readFrame(t, conn).Event)
	req.Equal("presence_update", readFrame(t, conn).Event)

	ack := readFrame(t, conn)
	req.Equal("result", ack.Event)
	req.Contains(string(ack.Data), `"ok":true`)

	// Send: the room broadcast precedes the ack carrying the persisted id
	sendFrame(t, conn, "send_message", map[string]string{
		"channel_id": string(f.channel.ID),
		"content":    "hello room",
		"temp_id":    "tmp-1",
	})

	broadcast := readFrame(t, conn)
	req.Equal("message", broadcast.Event)
	req.Contains(string(broadcast.Data), "hello room")
	req.Contains(string(broadcast.Data), "tmp-1")

	ack = readFrame(t, conn)
	req.Equal("result", ack.Event)
	req.Contains(string(ack.Data), `"ok":true`)
	req.Contains(string(ack.Data), "tmp-1")

	// The message is durably pageable after the ack
	page, _, _, err := f.messages.Page(context.Background(), f.channel.ID, nil, 10)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("hello room", page[0].Content)
}

func TestHandler_TwoClientsSeeEachOther(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	aliceToken := f.signup(t, "alice@example.com", "Alice", true)
	bobToken := f.signup(t, "bob@example.com", "Bob", true)

	aliceConn := f.dial(t)
	sendFrame(t, aliceConn, "connect", map[string]string{"token": aliceToken})
	req.Equal("connected", readFrame(t, aliceConn).Event)
	sendFrame(t, aliceConn, "join_channel", map[string]string{"channel_id": string(f.channel.ID)})
	req.Equal("online_users_list", readFrame(t, aliceConn).Event)
	req.Equal("presence_update", readFrame(t, aliceConn).Event)
	req.Equal("result", readFrame(t, aliceConn).Event)

	bobConn := f.dial(t)
	sendFrame(t, bobConn, "connect", map[string]string{"token": bobToken})
	req.Equal("connected", readFrame(t, bobConn).Event)
	sendFrame(t, bobConn, "join_channel", map[string]string{"channel_id": string(f.channel.ID)})

	// Bob's snapshot contains Alice
	snapshot := readFrame(t, bobConn)
	req.Equal("online_users_list", snapshot.Event)
	req.Contains(string(snapshot.Data), "Alice")

	// Alice sees Bob's joined transition
	update := readFrame(t, aliceConn)
	req.Equal("presence_update", update.Event)
	req.Contains(string(update.Data), "Bob")
	req.Contains(string(update.Data), "joined")

	// When Bob's connection drops, Alice sees exactly one left transition
	req.NoError(bobConn.Close())

	update = readFrame(t, aliceConn)
	req.Equal("presence_update", update.Event)
	req.Contains(string(update.Data), "Bob")
	req.Contains(string(update.Data), "left")
}

func TestHandler_SendWithoutMembership(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)
	token := f.signup(t, "mallory@example.com", "Mallory", false)

	conn := f.dial(t)
	sendFrame(t, conn, "connect", map[string]string{"token": token})
	req.Equal("connected", readFrame(t, conn).Event)

	sendFrame(t, conn, "send_message", map[string]string{
		"channel_id": string(f.channel.ID),
		"content":    "sneaky",
	})

	frame := readFrame(t, conn)
	req.Equal("result", frame.Event)
	req.Contains(string(frame.Data), "not_member")
}
