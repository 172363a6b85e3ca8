package gateway

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/tests/helpers"
)

func newTestGateway(t *testing.T) (*Gateway, *helpers.RecordingStore) {
	t.Helper()
	store := helpers.NewRecordingStore(helpers.NewTestSQLiteStore(t))
	return New(store), store
}

func TestCreateConversationDefaultsTitle(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway(t)

	conv, err := gw.CreateConversation(ctx, "u1", "  ")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, domain.DefaultConversationTitle, conv.Title)
	assert.Equal(t, "u1", conv.OwnerID)
	assert.Empty(t, conv.Messages)
	assert.False(t, conv.CreatedAt.IsZero())
}

func TestCreateConversationWriteError(t *testing.T) {
	gw, store := newTestGateway(t)
	store.FailOn("InsertChat", errors.New("rejected"))

	conv, err := gw.CreateConversation(context.Background(), "u1", "")
	assert.Nil(t, conv)
	assert.True(t, IsWrite(err))
	assert.False(t, IsRead(err))
}

func TestFetchConversationNotFound(t *testing.T) {
	gw, store := newTestGateway(t)

	conv, err := gw.FetchConversation(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, conv)
	assert.Equal(t, 0, store.Calls("SelectMessages"))
}

func TestFetchConversationReadErrors(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway(t)

	conv, err := gw.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	store.FailOn("SelectMessages", errors.New("timeout"))
	_, err = gw.FetchConversation(ctx, conv.ID)
	assert.True(t, IsRead(err))

	store.FailOn("SelectMessages", nil)
	store.FailOn("SelectChat", errors.New("timeout"))
	_, err = gw.FetchConversation(ctx, conv.ID)
	assert.True(t, IsRead(err))
}

func TestAppendMessageAndFetchOrdered(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway(t)

	conv, err := gw.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	user, err := gw.AppendMessage(ctx, conv.ID, "What is GYB?", domain.UserAuthor{SenderID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role())
	assert.Equal(t, "u1", user.SenderID())
	assert.Empty(t, user.AgentLabel())

	reply, err := gw.AppendMessage(ctx, conv.ID, "Growth.", domain.AgentAuthor{Label: "CEO AI"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, reply.Role())
	assert.Equal(t, "CEO AI", reply.AgentLabel())
	assert.Empty(t, reply.SenderID())

	got, err := gw.FetchConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, user.ID, got.Messages[0].ID)
	assert.Equal(t, reply.ID, got.Messages[1].ID)
	assert.True(t, sort.SliceIsSorted(got.Messages, func(i, j int) bool {
		return got.Messages[i].CreatedAt.Before(got.Messages[j].CreatedAt)
	}))
	assert.False(t, got.UpdatedAt.Before(conv.UpdatedAt))
}

func TestAppendMessagePartialFailureKeepsMessage(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway(t)

	conv, err := gw.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	store.FailOn("TouchChat", errors.New("update rejected"))
	msg, err := gw.AppendMessage(ctx, conv.ID, "hello", domain.UserAuthor{SenderID: "u1"})
	require.NotNil(t, msg)
	assert.True(t, IsWrite(err))
	assert.True(t, IsPartial(err))

	store.FailOn("TouchChat", nil)
	got, err := gw.FetchConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, msg.ID, got.Messages[0].ID)
}

func TestAppendMessageInsertFailure(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway(t)

	conv, err := gw.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)

	store.FailOn("InsertMessage", errors.New("rejected"))
	msg, err := gw.AppendMessage(ctx, conv.ID, "hello", domain.UserAuthor{SenderID: "u1"})
	assert.Nil(t, msg)
	assert.True(t, IsWrite(err))
	assert.False(t, IsPartial(err))
	assert.Equal(t, 0, store.Calls("TouchChat"))
}

func TestListConversationsBatchesMessageQuery(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway(t)

	for i := 0; i < 3; i++ {
		conv, err := gw.CreateConversation(ctx, "u1", "")
		require.NoError(t, err)
		_, err = gw.AppendMessage(ctx, conv.ID, "hi", domain.UserAuthor{SenderID: "u1"})
		require.NoError(t, err)
	}
	store.Reset()

	convs, err := gw.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 3)
	for _, c := range convs {
		assert.Len(t, c.Messages, 1)
		assert.Equal(t, c.ID, c.Messages[0].ConversationID)
	}
	assert.Equal(t, 1, store.Calls("SelectChatsByUser"))
	assert.Equal(t, 1, store.Calls("SelectMessagesIn"))
	assert.Equal(t, 0, store.Calls("SelectMessages"))
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway(t)

	first, err := gw.CreateConversation(ctx, "u1", "first")
	require.NoError(t, err)
	second, err := gw.CreateConversation(ctx, "u1", "second")
	require.NoError(t, err)

	convs, err := gw.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID)

	_, err = gw.AppendMessage(ctx, first.ID, "bump", domain.UserAuthor{SenderID: "u1"})
	require.NoError(t, err)

	convs, err = gw.ListConversations(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, convs[0].ID)
}

func TestListConversationsEmptyOwner(t *testing.T) {
	gw, store := newTestGateway(t)

	convs, err := gw.ListConversations(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, convs)
	assert.Equal(t, 0, store.Calls("SelectMessagesIn"))
}

func TestListConversationsReadError(t *testing.T) {
	gw, store := newTestGateway(t)
	store.FailOn("SelectChatsByUser", errors.New("down"))

	_, err := gw.ListConversations(context.Background(), "u1")
	assert.True(t, IsRead(err))
}

func TestRenameConversationBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	gw, _ := newTestGateway(t)

	older, err := gw.CreateConversation(ctx, "u1", "Older")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	newer, err := gw.CreateConversation(ctx, "u1", "Newer")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	ok, err := gw.RenameConversation(ctx, older.ID, "Growth Plan")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := gw.FetchConversation(ctx, older.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Growth Plan", got.Title)
	assert.True(t, got.UpdatedAt.After(older.UpdatedAt))

	list, err := gw.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
}

func TestRenameAndDeleteConversation(t *testing.T) {
	ctx := context.Background()
	gw, store := newTestGateway(t)

	conv, err := gw.CreateConversation(ctx, "u1", "")
	require.NoError(t, err)
	_, err = gw.AppendMessage(ctx, conv.ID, "hello", domain.UserAuthor{SenderID: "u1"})
	require.NoError(t, err)

	ok, err := gw.RenameConversation(ctx, conv.ID, "Growth Plan")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gw.DeleteConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := gw.FetchConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	store.FailOn("DeleteChat", errors.New("rejected"))
	ok, err = gw.DeleteConversation(ctx, conv.ID)
	assert.False(t, ok)
	assert.True(t, IsWrite(err))
}
