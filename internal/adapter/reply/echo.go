package reply

import (
	"context"
	"fmt"
)

// EchoResponder answers deterministically by naming the agent and quoting the
// user's message. It stands in for a real inference backend.
type EchoResponder struct{}

// NewEchoResponder creates an echo responder.
func NewEchoResponder() *EchoResponder {
	return &EchoResponder{}
}

// Respond returns the echo reply for req.
func (r *EchoResponder) Respond(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return EchoText(req.Agent.Name, req.Text), nil
}

// EchoText formats the simulated reply of agent to text.
func EchoText(agent, text string) string {
	return fmt.Sprintf(`This is a response from %s to your message: "%s"`, agent, text)
}
