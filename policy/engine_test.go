package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyAllowsOrdinaryMessage(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, _, err := e.Evaluate(ctx, SendInput{
		OwnerID:       "u1",
		Content:       "What is GYB?",
		ContentLength: len("What is GYB?"),
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestDefaultPolicyBlocksOversizedMessage(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	content := strings.Repeat("a", MaxMessageLength+1)
	decision, reason, err := e.Evaluate(ctx, SendInput{Content: content, ContentLength: len(content)})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Contains(t, reason, "4000")
}

func TestCustomPolicyFromFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "send.rego")
	module := `
package send_policy

default decision = "allow"

decision = "block" {
	input.agent == "CTO AI"
}
`
	require.NoError(t, os.WriteFile(path, []byte(module), 0o600))

	e, err := NewEngineFromFile(ctx, path)
	require.NoError(t, err)

	decision, reason, err := e.Evaluate(ctx, map[string]interface{}{"agent": "CTO AI"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Empty(t, reason)

	decision, _, err = e.Evaluate(ctx, map[string]interface{}{"agent": "CEO AI"})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestNewEngineRejectsInvalidModule(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n decision = ")
	assert.Error(t, err)
}
