package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/agents"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
	"github.com/mr-gyb/1.9-Updated-Backend/tests/helpers"
)

type frame struct {
	Type           string        `json:"type"`
	RequestID      string        `json:"request_id"`
	OK             bool          `json:"ok"`
	ConversationID string        `json:"conversation_id"`
	Error          string        `json:"error"`
	Code           string        `json:"code"`
	View           *session.View `json:"view"`
}

type testEnv struct {
	svc *service.Service
	hub *Hub
	url string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	catalog := agents.NewCatalog()
	sessions := session.NewManager(gateway.New(store), session.Options{
		ReplyDelay: 10 * time.Millisecond,
		Agents:     catalog,
	})
	t.Cleanup(sessions.Close)
	svc := service.New(store, catalog, sessions, &config.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub()
	go h.Run(ctx)

	e := echo.New()
	e.GET("/v1/sessions/:owner_id/ws", NewServer(svc, h, DefaultOptions()).HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testEnv{svc: svc, hub: h, url: srv.URL}
}

func (e *testEnv) dial(t *testing.T, owner string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.url, "http") + "/v1/sessions/" + owner + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		if match(f) {
			return f
		}
	}
}

func isAck(id string) func(frame) bool {
	return func(f frame) bool { return f.Type == TypeAck && f.RequestID == id }
}

func TestUnknownSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.url + "/v1/sessions/nobody/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCommandsAndViews(t *testing.T) {
	env := newTestEnv(t)
	env.svc.StartSession(context.Background(), "u1")
	conn := env.dial(t, "u1")

	first := readUntil(t, conn, func(f frame) bool { return f.Type == TypeView })
	require.NotNil(t, first.View)
	assert.Equal(t, "u1", first.View.OwnerID)
	assert.True(t, env.hub.HasConnections("u1"))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeCreate, RequestID: "r1"}))
	ack := readUntil(t, conn, isAck("r1"))
	require.True(t, ack.OK)
	id := ack.ConversationID
	require.NotEmpty(t, id)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type: TypeSend, RequestID: "r2", ConversationID: id, Content: "hello",
	}))

	withReply := readUntil(t, conn, func(f frame) bool {
		if f.Type != TypeView || f.View == nil {
			return false
		}
		conv, ok := f.View.Conversation(id)
		return ok && len(conv.Messages) == 2
	})
	conv, _ := withReply.View.Conversation(id)
	assert.Equal(t, "hello", conv.Messages[0].Content)
	assert.Equal(t, agents.DefaultLabel, conv.Messages[1].AgentLabel())
}

func TestFailedCommandCarriesError(t *testing.T) {
	env := newTestEnv(t)
	env.svc.StartSession(context.Background(), "u1")
	conn := env.dial(t, "u1")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeRename, RequestID: "r1", Title: "Plans"}))
	ack := readUntil(t, conn, isAck("r1"))
	assert.False(t, ack.OK)
	assert.Contains(t, ack.Error, "no active conversation")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "bogus", RequestID: "r2"}))
	errFrame := readUntil(t, conn, func(f frame) bool { return f.Type == TypeError })
	assert.Equal(t, ErrorCodeInvalidMessage, errFrame.Code)
	assert.Equal(t, "r2", errFrame.RequestID)
}

func TestIgnoredCommandAckHasNoStaleError(t *testing.T) {
	env := newTestEnv(t)
	env.svc.StartSession(context.Background(), "u1")
	conn := env.dial(t, "u1")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeRename, RequestID: "r1", Title: "Plans"}))
	failed := readUntil(t, conn, isAck("r1"))
	require.False(t, failed.OK)
	require.NotEmpty(t, failed.Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeCreate, RequestID: "r2"}))
	created := readUntil(t, conn, isAck("r2"))
	require.True(t, created.OK)
	// a failure recorded by another client of the same session
	ctrl, err := env.svc.Session("u1")
	require.NoError(t, err)
	require.False(t, ctrl.RenameConversation(context.Background(), "missing", "Plans"))
	require.NotEmpty(t, ctrl.LastError())

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type: TypeSend, RequestID: "r3", ConversationID: created.ConversationID, Content: "   ",
	}))
	blank := readUntil(t, conn, isAck("r3"))
	assert.False(t, blank.OK)
	assert.Empty(t, blank.Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeRename, RequestID: "r4", Title: " "}))
	untitled := readUntil(t, conn, isAck("r4"))
	assert.False(t, untitled.OK)
	assert.Empty(t, untitled.Error)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeSetActive, RequestID: "r5", ConversationID: "missing"}))
	unknown := readUntil(t, conn, isAck("r5"))
	assert.False(t, unknown.OK)
	assert.Empty(t, unknown.Error)
}

func TestSessionEndClosesConnection(t *testing.T) {
	env := newTestEnv(t)
	env.svc.StartSession(context.Background(), "u1")
	conn := env.dial(t, "u1")
	readUntil(t, conn, func(f frame) bool { return f.Type == TypeView })

	require.NoError(t, env.svc.EndSession("u1"))
	readUntil(t, conn, func(f frame) bool { return f.Type == TypeSessionEnded })

	assert.Eventually(t, func() bool {
		return !env.hub.HasConnections("u1")
	}, 2*time.Second, 10*time.Millisecond)
}
