package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/repository"
)

// ErrInvalidProfile is returned for profile updates that fail validation.
var ErrInvalidProfile = errors.New("invalid profile")

// GetProfile returns the profile of userID, creating the default profile on
// first access.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row, err := s.store.SelectProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if row != nil {
		return profileFromRow(row), nil
	}

	row, err = s.store.UpsertProfile(ctx, profileToRow(domain.NewDefaultProfile(userID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profileFromRow(row), nil
}

// UpdateProfile applies the non-nil fields of update to the profile of userID.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if update.Experience != nil && !update.Experience.Valid() {
		return nil, fmt.Errorf("%w: unknown experience %q", ErrInvalidProfile, *update.Experience)
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	update.Apply(profile)

	row, err := s.store.UpsertProfile(ctx, profileToRow(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profileFromRow(row), nil
}

func profileFromRow(r *repository.ProfileRow) *domain.Profile {
	return &domain.Profile{
		ID:              r.ID,
		Name:            r.Name,
		Username:        r.Username,
		Email:           r.Email,
		Bio:             r.Bio,
		Location:        r.Location,
		Website:         r.Website,
		Industry:        r.Industry,
		Experience:      domain.Experience(r.Experience),
		Rating:          r.Rating,
		Following:       r.Following,
		Followers:       r.Followers,
		ProfileImageURL: r.ProfileImageURL,
		CoverImageURL:   r.CoverImageURL,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func profileToRow(p *domain.Profile) *repository.ProfileRow {
	return &repository.ProfileRow{
		ID:              p.ID,
		Name:            p.Name,
		Username:        p.Username,
		Email:           p.Email,
		Bio:             p.Bio,
		Location:        p.Location,
		Website:         p.Website,
		Industry:        p.Industry,
		Experience:      string(p.Experience),
		Rating:          p.Rating,
		Following:       p.Following,
		Followers:       p.Followers,
		ProfileImageURL: p.ProfileImageURL,
		CoverImageURL:   p.CoverImageURL,
	}
}
