package rpc

import (
	"context"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/agents"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
	"github.com/mr-gyb/1.9-Updated-Backend/tests/helpers"
)

func newTestClient(t *testing.T) *rpc.Client {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	catalog := agents.NewCatalog()
	sessions := session.NewManager(gateway.New(store), session.Options{
		ReplyDelay: 10 * time.Millisecond,
		Agents:     catalog,
	})
	t.Cleanup(sessions.Close)

	srv, err := NewServer(service.New(store, catalog, sessions, &config.Config{}))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	client, err := jsonrpc.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConversationFlow(t *testing.T) {
	client := newTestClient(t)

	var view session.View
	require.NoError(t, client.Call("Conversations.Start", &OwnerArgs{OwnerID: "u1"}, &view))
	assert.Equal(t, "u1", view.OwnerID)
	assert.Empty(t, view.Conversations)

	var created CreateResponse
	require.NoError(t, client.Call("Conversations.Create", &OwnerArgs{OwnerID: "u1"}, &created))
	require.NotEmpty(t, created.ConversationID)

	var ack AckResponse
	require.NoError(t, client.Call("Conversations.Send", &SendArgs{
		OwnerID: "u1", ConversationID: created.ConversationID, Content: "hello",
	}, &ack))
	assert.True(t, ack.OK)

	assert.Eventually(t, func() bool {
		var v session.View
		if err := client.Call("Conversations.View", &OwnerArgs{OwnerID: "u1"}, &v); err != nil {
			return false
		}
		conv, ok := v.Conversation(created.ConversationID)
		return ok && len(conv.Messages) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Call("Conversations.Rename", &RenameArgs{OwnerID: "u1", Title: "Plans"}, &ack))
	require.NoError(t, client.Call("Conversations.View", &OwnerArgs{OwnerID: "u1"}, &view))
	conv, ok := view.Conversation(created.ConversationID)
	require.True(t, ok)
	assert.Equal(t, "Plans", conv.Title)

	require.NoError(t, client.Call("Conversations.Delete", &ConversationArgs{
		OwnerID: "u1", ConversationID: created.ConversationID,
	}, &ack))
	require.NoError(t, client.Call("Conversations.View", &OwnerArgs{OwnerID: "u1"}, &view))
	assert.Empty(t, view.Conversations)

	require.NoError(t, client.Call("Conversations.End", &OwnerArgs{OwnerID: "u1"}, &ack))
}

func TestErrorsCrossTheWire(t *testing.T) {
	client := newTestClient(t)

	var view session.View
	err := client.Call("Conversations.View", &OwnerArgs{OwnerID: "nobody"}, &view)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")

	require.NoError(t, client.Call("Conversations.Start", &OwnerArgs{OwnerID: "u1"}, &view))

	var ack AckResponse
	err = client.Call("Conversations.Send", &SendArgs{OwnerID: "u1", ConversationID: "missing", Content: "hi"}, &ack)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversation not found")

	err = client.Call("Conversations.Send", &SendArgs{OwnerID: "u1", ConversationID: "missing", Content: "  "}, &ack)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content is required")

	err = client.Call("Conversations.Start", &OwnerArgs{}, &view)
	require.Error(t, err)
}
