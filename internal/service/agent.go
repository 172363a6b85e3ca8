package service

import (
	"context"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
)

func (s *Service) ListAgents(ctx context.Context) []domain.Agent {
	return s.agents.List()
}

// GetAgent returns nil when no agent has the given id or name.
func (s *Service) GetAgent(ctx context.Context, agentID string) *domain.Agent {
	agent, ok := s.agents.Lookup(agentID)
	if !ok {
		return nil
	}
	return &agent
}
