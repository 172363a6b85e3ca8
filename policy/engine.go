package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the send policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// MaxMessageLength is the longest user message the default policy accepts.
const MaxMessageLength = 4000

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// SendInput is the document a send decision is evaluated against.
type SendInput struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id"`
	Agent          string `json:"agent"`
	Content        string `json:"content"`
	ContentLength  int    `json:"content_length"`
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.send_policy.decision and may define
// data.send_policy.reason.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.send_policy"),
		rego.Module("send_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy module at path, or the default policy
// when path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks the send policy.
// Returns: decision (allow, block), reason (optional), error
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return DecisionAllow, "unexpected return type", nil
	}

	decision, _ := doc["decision"].(string)
	reason, _ := doc["reason"].(string)
	if decision == "" {
		decision = DecisionAllow
	}
	return decision, reason, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package send_policy

default decision = "allow"

default reason = ""

# Oversized messages are rejected before they reach the store.
decision = "block" {
	input.content_length > 4000
}

reason = "message exceeds 4000 characters" {
	input.content_length > 4000
}
`
