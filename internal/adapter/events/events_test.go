package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "gyb.chats.c1", Subject("gyb.chats", "c1"))
	assert.Equal(t, "c1", Subject("", "c1"))
}

func TestNewPublisherDisabledWithoutURL(t *testing.T) {
	p, err := NewPublisher(&config.Config{NATSSubjectPrefix: "gyb.chats"})
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeMessageAppended, ConversationID: "c1"}))
	assert.NoError(t, p.Close())
}

func TestNewPublisherUnreachableServer(t *testing.T) {
	_, err := NewPublisher(&config.Config{NATSURL: "nats://127.0.0.1:1", NATSSubjectPrefix: "gyb.chats"})
	assert.Error(t, err)
}
