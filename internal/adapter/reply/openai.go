package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"

	go_openai "github.com/sashabaranov/go-openai"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

// maxHistory bounds how many prior messages are sent as context.
const maxHistory = 20

// OpenAIResponder asks an OpenAI-compatible chat completion endpoint for the
// reply, using the agent's persona as the system prompt.
type OpenAIResponder struct {
	client *go_openai.Client
	model  string
}

// NewOpenAIResponder creates a responder. An empty baseURL keeps the client
// default.
func NewOpenAIResponder(apiKey, baseURL, model string) *OpenAIResponder {
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIResponder{
		client: go_openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Respond requests one chat completion and returns its first choice.
func (r *OpenAIResponder) Respond(ctx context.Context, req Request) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: buildMessages(req),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat completion returned empty content")
	}
	return content, nil
}

func buildMessages(req Request) []go_openai.ChatCompletionMessage {
	msgs := []go_openai.ChatCompletionMessage{{
		Role:    go_openai.ChatMessageRoleSystem,
		Content: systemPrompt(req.Agent),
	}}

	history := req.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, m := range history {
		role := go_openai.ChatMessageRoleUser
		if m.Role() == domain.RoleAssistant {
			role = go_openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	last := msgs[len(msgs)-1]
	if last.Role != go_openai.ChatMessageRoleUser || last.Content != req.Text {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleUser,
			Content: req.Text,
		})
	}
	return msgs
}

func systemPrompt(agent domain.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", agent.Name)
	if agent.Industry != "" {
		fmt.Fprintf(&b, ", an assistant specialised in %s", agent.Industry)
	}
	b.WriteString(".")
	if agent.Bio != "" {
		b.WriteString(" ")
		b.WriteString(agent.Bio)
	}
	return b.String()
}
