package service

import (
	"github.com/mr-gyb/1.9-Updated-Backend/internal/agents"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/repository"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
)

type Service struct {
	store    repository.Store
	agents   *agents.Catalog
	sessions *session.Manager
	config   *config.Config
}

func New(store repository.Store, catalog *agents.Catalog, sessions *session.Manager, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		agents:   catalog,
		sessions: sessions,
		config:   cfg,
	}
}
