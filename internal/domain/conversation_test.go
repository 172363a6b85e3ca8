package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastAgentLabel(t *testing.T) {
	c := Conversation{}
	assert.Empty(t, c.LastAgentLabel())

	c.Messages = []Message{
		{ID: "1", Author: AgentAuthor{Label: "CEO AI"}},
		{ID: "2", Author: UserAuthor{SenderID: "u1"}},
		{ID: "3", Author: AgentAuthor{Label: "CTO AI"}},
		{ID: "4", Author: UserAuthor{SenderID: "u1"}},
	}
	assert.Equal(t, "CTO AI", c.LastAgentLabel())
	assert.True(t, c.HasMessage("3"))
	assert.False(t, c.HasMessage("5"))
}

func TestMessageJSONCarriesOneAuthorField(t *testing.T) {
	data, err := json.Marshal(Message{ID: "1", Author: AgentAuthor{Label: "CEO AI"}, Content: "hi"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"assistant"`)
	assert.Contains(t, string(data), `"agent_label":"CEO AI"`)
	assert.NotContains(t, string(data), "sender_id")

	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, AgentAuthor{Label: "CEO AI"}, m.Author)
}

func TestUnknownRoleIsRejected(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"id":"1","role":"system","content":"x"}`), &m)
	assert.Error(t, err)

	_, err = NewAuthor("system", "", "")
	assert.Error(t, err)
}
