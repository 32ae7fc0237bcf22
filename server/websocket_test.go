package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/relay"
	"chat-relay/repositories"
)

const testSecret = "integration_test_secret_value"

type testStack struct {
	ts       *httptest.Server
	users    *repositories.UserRepository
	messages *repositories.MessageRepository
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	registry := relay.NewRegistry()
	router := relay.NewRouter(log, registry, users, messages,
		relay.NewDispatcher(log, registry))
	validator := auth.NewTokenValidator(testSecret)

	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSHandler(log, validator, router, 16))
	mux.Handle("/users", auth.Middleware(validator, NewUsersHandler(log, users)))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return &testStack{ts: ts, users: users, messages: messages}
}

func (s *testStack) wsURL(token string) string {
	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, "", time.Hour)
	require.NoError(t, err)
	return token
}

func dial(t *testing.T, s *testStack, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(mintToken(t, userID)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func sendEvent(t *testing.T, conn *websocket.Conn, name string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"` + name + `"`),
		"data":  payload,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var e wireEvent
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestHandshake_RejectsUnauthenticated(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	// No token at all.
	_, resp, err := websocket.DefaultDialer.Dial(stack.wsURL(""), nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Garbage token.
	_, resp, err = websocket.DefaultDialer.Dial(stack.wsURL("garbage"), nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Signed token whose id carries the room-key separator. Accepting it
	// would let the pair {b#c, a} share room key a#b#c with the pair
	// {a#b, c}, leaking broadcasts and history across pairs.
	_, resp, err = websocket.DefaultDialer.Dial(stack.wsURL(mintToken(t, "b#c")), nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// No roster or subscription state was created for the rejected callers.
	partners, err := stack.users.Partners("alice")
	req.NoError(err)
	req.Empty(partners)
	partners, err = stack.users.Partners("b#c")
	req.NoError(err)
	req.Empty(partners)
}

func TestJoin_EmitsPartnersAndEmptyHistory(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	sendEvent(t, alice, "join", map[string]string{"receiverId": "bob"})

	partners := readEvent(t, alice)
	req.Equal("chatPartners", partners.Event)
	req.JSONEq(`["bob"]`, string(partners.Data))

	history := readEvent(t, alice)
	req.Equal("loadMessages", history.Event)
	req.JSONEq(`[]`, string(history.Data))

	bob := dial(t, stack, "bob")
	sendEvent(t, bob, "join", map[string]string{"receiverId": "alice"})

	partners = readEvent(t, bob)
	req.Equal("chatPartners", partners.Event)
	req.JSONEq(`["alice"]`, string(partners.Data))

	history = readEvent(t, bob)
	req.Equal("loadMessages", history.Event)
	req.JSONEq(`[]`, string(history.Data))
}

func TestSend_BroadcastsToBothAndPersists(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	sendEvent(t, alice, "join", map[string]string{"receiverId": "bob"})
	readEvent(t, alice) // chatPartners
	readEvent(t, alice) // loadMessages

	bob := dial(t, stack, "bob")
	sendEvent(t, bob, "join", map[string]string{"receiverId": "alice"})
	readEvent(t, bob)
	readEvent(t, bob)

	sendEvent(t, alice, "sendMessage", map[string]string{"receiverId": "bob", "message": "hi"})

	type delivered struct {
		Sender   string `json:"sender"`
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
	}

	for _, conn := range []*websocket.Conn{alice, bob} {
		e := readEvent(t, conn)
		req.Equal("receiveMessage", e.Event)
		var msg delivered
		req.NoError(json.Unmarshal(e.Data, &msg))
		req.Equal(delivered{Sender: "alice", Receiver: "bob", Message: "hi"}, msg)
	}

	// The broadcast record is already durable.
	history, err := stack.messages.History("alice", "bob")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hi", history[0].Body)
}

func TestSend_BeforeJoinIsRejected(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	sendEvent(t, alice, "sendMessage", map[string]string{"receiverId": "bob", "message": "hi"})

	e := readEvent(t, alice)
	req.Equal("error", e.Event)

	// Nothing was persisted.
	history, err := stack.messages.History("alice", "bob")
	req.NoError(err)
	req.Empty(history)
}

func TestSend_SelfChatIsRejected(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	sendEvent(t, alice, "join", map[string]string{"receiverId": "alice"})

	e := readEvent(t, alice)
	req.Equal("error", e.Event)

	// The connection stays usable after a validation error.
	sendEvent(t, alice, "join", map[string]string{"receiverId": "bob"})
	req.Equal("chatPartners", readEvent(t, alice).Event)
}

func TestOfflinePeer_CatchesUpViaHistory(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	sendEvent(t, alice, "join", map[string]string{"receiverId": "bob"})
	readEvent(t, alice)
	readEvent(t, alice)

	bob := dial(t, stack, "bob")
	sendEvent(t, bob, "join", map[string]string{"receiverId": "alice"})
	readEvent(t, bob)
	readEvent(t, bob)

	sendEvent(t, alice, "sendMessage", map[string]string{"receiverId": "bob", "message": "hi"})
	readEvent(t, alice) // own echo
	readEvent(t, bob)

	// Bob drops; the next message is persisted but undeliverable to him.
	req.NoError(bob.Close())
	sendEvent(t, alice, "sendMessage", map[string]string{"receiverId": "bob", "message": "are you there?"})
	e := readEvent(t, alice)
	req.Equal("receiveMessage", e.Event)

	// Bob reconnects: the replay carries both messages in order.
	bob2 := dial(t, stack, "bob")
	sendEvent(t, bob2, "join", map[string]string{"receiverId": "alice"})
	readEvent(t, bob2) // chatPartners

	history := readEvent(t, bob2)
	req.Equal("loadMessages", history.Event)
	var bodies []struct {
		Message string `json:"message"`
	}
	req.NoError(json.Unmarshal(history.Data, &bodies))
	req.Len(bodies, 2)
	req.Equal("hi", bodies[0].Message)
	req.Equal("are you there?", bodies[1].Message)
}
