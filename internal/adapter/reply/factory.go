package reply

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
)

// Reply modes.
const (
	ModeEcho   = "echo"
	ModeOpenAI = "openai"
)

// NewResponder creates a responder based on cfg.ReplyMode.
func NewResponder(cfg *config.Config) (Responder, error) {
	switch cfg.ReplyMode {
	case "", ModeEcho:
		return NewEchoResponder(), nil
	case ModeOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("reply mode %q requires an OpenAI API key", ModeOpenAI)
		}
		log.Info().Str("model", cfg.OpenAIModel).Msg("using OpenAI responder")
		return NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown reply mode %q", cfg.ReplyMode)
	}
}
