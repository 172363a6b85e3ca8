// Package reply produces assistant replies to user messages.
package reply

import (
	"context"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

// Request describes the user message an assistant reply is produced for.
type Request struct {
	// Agent is the persona the reply is attributed to.
	Agent domain.Agent
	// Text is the user message being answered.
	Text string
	// History is the conversation so far, oldest first. It may already end
	// with Text.
	History []domain.Message
}

// Responder generates the content of one assistant message.
type Responder interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// Ensure implementations satisfy Responder.
var (
	_ Responder = (*EchoResponder)(nil)
	_ Responder = (*OpenAIResponder)(nil)
)
