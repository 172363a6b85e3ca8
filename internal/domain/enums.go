// Package domain defines the core domain models for the conversation backend.
package domain

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// SessionState represents the lifecycle state of a user session.
type SessionState string

const (
	SessionStateUninitialized SessionState = "UNINITIALIZED"
	SessionStateLoading       SessionState = "LOADING"
	SessionStateReady         SessionState = "READY"
)

// Experience is a self-reported profile experience level.
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceProficient   Experience = "proficient"
	ExperienceAdvanced     Experience = "advanced"
	ExperienceExpert       Experience = "expert"
)

// Valid reports whether e is a known experience level.
func (e Experience) Valid() bool {
	switch e {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceProficient, ExperienceAdvanced, ExperienceExpert:
		return true
	}
	return false
}

// DefaultConversationTitle is the title given to conversations created without one.
const DefaultConversationTitle = "New Chat"
