package service

import (
	"context"
	"errors"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
)

// ErrSessionNotFound is returned when an owner has no live session.
var ErrSessionNotFound = errors.New("session not found")

// StartSession logs ownerID in and returns the session view. A load failure
// is reported through the view's LastError, not as an error.
func (s *Service) StartSession(ctx context.Context, ownerID string) session.View {
	ctrl, _ := s.sessions.Start(ctx, ownerID)
	return ctrl.View()
}

// EndSession logs ownerID out.
func (s *Service) EndSession(ownerID string) error {
	if !s.sessions.End(ownerID) {
		return ErrSessionNotFound
	}
	return nil
}

// Session returns the live session of ownerID.
func (s *Service) Session(ownerID string) (*session.Controller, error) {
	ctrl, ok := s.sessions.Get(ownerID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}
