package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

type stubLister struct {
	convs []domain.Conversation
	err   error
	calls int
}

func (s *stubLister) ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error) {
	s.calls++
	return s.convs, s.err
}

func conv(id string, msgs ...domain.Message) domain.Conversation {
	now := time.Now().UTC()
	return domain.Conversation{
		ID:        id,
		Title:     domain.DefaultConversationTitle,
		OwnerID:   "u1",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  msgs,
	}
}

func userMsg(id, convID, text string, at time.Time) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: convID,
		Author:         domain.UserAuthor{SenderID: "u1"},
		Content:        text,
		CreatedAt:      at,
	}
}

func ids(convs []domain.Conversation) []string {
	out := make([]string, len(convs))
	for i, c := range convs {
		out[i] = c.ID
	}
	return out
}

func TestLoadAllReplacesSnapshot(t *testing.T) {
	lister := &stubLister{convs: []domain.Conversation{conv("b"), conv("a")}}
	c := New(lister)
	c.ApplyCreate(conv("stale"))

	require.NoError(t, c.LoadAll(context.Background(), "u1"))
	assert.Equal(t, []string{"b", "a"}, ids(c.Snapshot()))
	assert.False(t, c.Has("stale"))
}

func TestLoadAllFailureKeepsSnapshot(t *testing.T) {
	lister := &stubLister{err: errors.New("down")}
	c := New(lister)
	c.ApplyCreate(conv("a"))

	assert.Error(t, c.LoadAll(context.Background(), "u1"))
	assert.True(t, c.Has("a"))
}

func TestApplyCreatePrependsAndReplacesDuplicate(t *testing.T) {
	c := New(&stubLister{})
	c.ApplyCreate(conv("a"))
	c.ApplyCreate(conv("b"))
	assert.Equal(t, []string{"b", "a"}, ids(c.Snapshot()))

	renamed := conv("a")
	renamed.Title = "Growth Plan"
	c.ApplyCreate(renamed)

	snap := c.Snapshot()
	assert.Equal(t, []string{"a", "b"}, ids(snap))
	assert.Equal(t, "Growth Plan", snap[0].Title)
	assert.Equal(t, 2, c.Len())
}

func TestApplyAppendKeepsOrder(t *testing.T) {
	c := New(&stubLister{})
	c.ApplyCreate(conv("a"))
	before, _ := c.Get("a")

	now := time.Now().UTC()
	require.True(t, c.ApplyAppend("a", userMsg("m1", "a", "one", now)))
	require.True(t, c.ApplyAppend("a", userMsg("m2", "a", "two", now)))
	require.True(t, c.ApplyAppend("a", userMsg("m2", "a", "two", now)))

	got, ok := c.Get("a")
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m1", got.Messages[0].ID)
	assert.Equal(t, "m2", got.Messages[1].ID)
	assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))
}

func TestApplyAppendMissingConversation(t *testing.T) {
	c := New(&stubLister{})
	assert.False(t, c.ApplyAppend("ghost", userMsg("m1", "ghost", "hi", time.Now())))
	assert.Equal(t, 0, c.Len())
}

func TestApplyRenameAndDelete(t *testing.T) {
	c := New(&stubLister{})
	c.ApplyCreate(conv("a"))
	c.ApplyCreate(conv("b"))

	assert.True(t, c.ApplyRename("a", "Renamed"))
	assert.False(t, c.ApplyRename("ghost", "x"))
	got, _ := c.Get("a")
	assert.Equal(t, "Renamed", got.Title)

	assert.True(t, c.ApplyDelete("b"))
	assert.False(t, c.ApplyDelete("b"))
	assert.Equal(t, []string{"a"}, ids(c.Snapshot()))
}

func TestMergeIsIdempotentByMessageID(t *testing.T) {
	base := time.Now().UTC()
	c := New(&stubLister{})
	c.ApplyCreate(conv("a", userMsg("m1", "a", "one", base)))

	fetched := conv("a",
		userMsg("m1", "a", "one", base),
		userMsg("m2", "a", "two", base.Add(time.Second)),
	)
	require.True(t, c.Merge(fetched))
	require.True(t, c.Merge(fetched))

	got, _ := c.Get("a")
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m1", got.Messages[0].ID)
	assert.Equal(t, "m2", got.Messages[1].ID)
}

func TestMergeNeverDropsCachedMessages(t *testing.T) {
	base := time.Now().UTC()
	c := New(&stubLister{})
	c.ApplyCreate(conv("a",
		userMsg("m1", "a", "one", base),
		userMsg("m2", "a", "two", base.Add(time.Second)),
	))

	// A stale read that has not seen m2 yet.
	require.True(t, c.Merge(conv("a", userMsg("m1", "a", "one", base))))

	got, _ := c.Get("a")
	assert.Len(t, got.Messages, 2)
}

func TestMergeUnknownConversation(t *testing.T) {
	c := New(&stubLister{})
	assert.False(t, c.Merge(conv("ghost")))
	assert.False(t, c.Has("ghost"))
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	c := New(&stubLister{})
	c.ApplyCreate(conv("a", userMsg("m1", "a", "one", time.Now())))

	snap := c.Snapshot()
	snap[0].Title = "mutated"
	snap[0].Messages[0].Content = "mutated"

	got, _ := c.Get("a")
	assert.Equal(t, domain.DefaultConversationTitle, got.Title)
	assert.Equal(t, "one", got.Messages[0].Content)
}

func TestReset(t *testing.T) {
	c := New(&stubLister{})
	c.ApplyCreate(conv("a"))
	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Snapshot())
}
