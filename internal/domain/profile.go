package domain

import "time"

// Profile represents a user's public profile.
type Profile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Bio             string     `json:"bio"`
	Location        string     `json:"location"`
	Website         string     `json:"website"`
	Industry        string     `json:"industry"`
	Experience      Experience `json:"experience"`
	Rating          float64    `json:"rating"`
	Following       int        `json:"following"`
	Followers       int        `json:"followers"`
	ProfileImageURL string     `json:"profile_image_url"`
	CoverImageURL   string     `json:"cover_image_url"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ProfileUpdate carries the profile fields a user may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Name            *string     `json:"name,omitempty"`
	Username        *string     `json:"username,omitempty"`
	Email           *string     `json:"email,omitempty"`
	Bio             *string     `json:"bio,omitempty"`
	Location        *string     `json:"location,omitempty"`
	Website         *string     `json:"website,omitempty"`
	Industry        *string     `json:"industry,omitempty"`
	Experience      *Experience `json:"experience,omitempty"`
	ProfileImageURL *string     `json:"profile_image_url,omitempty"`
	CoverImageURL   *string     `json:"cover_image_url,omitempty"`
}

// Apply copies the non-nil fields of u onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, u.Name)
	set(&p.Username, u.Username)
	set(&p.Email, u.Email)
	set(&p.Bio, u.Bio)
	set(&p.Location, u.Location)
	set(&p.Website, u.Website)
	set(&p.Industry, u.Industry)
	set(&p.ProfileImageURL, u.ProfileImageURL)
	set(&p.CoverImageURL, u.CoverImageURL)
	if u.Experience != nil {
		p.Experience = *u.Experience
	}
}

// Default profile images for newly created profiles.
const (
	DefaultProfileImageURL = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?ixlib=rb-1.2.1&auto=format&fit=crop&w=200&h=200&q=80"
	DefaultCoverImageURL   = "https://images.unsplash.com/photo-1579546929518-9e396f3cc809?ixlib=rb-1.2.1&auto=format&fit=crop&w=1000&q=80"
)

// NewDefaultProfile returns the profile created for a user on first access.
func NewDefaultProfile(userID string) *Profile {
	return &Profile{
		ID:              userID,
		Experience:      ExperienceBeginner,
		ProfileImageURL: DefaultProfileImageURL,
		CoverImageURL:   DefaultCoverImageURL,
	}
}
