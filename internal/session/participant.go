package session

import (
	"strings"
	"time"

	"github.com/Iron-Ham/cvcollab/internal/errors"
)

// Colors assigned by the local UI when starting or joining a session.
const (
	OwnerColor  = "#3B82F6"
	JoinerColor = "#10B981"
)

// Palette is the set of colors handed out to additional participants.
var Palette = []string{"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#EC4899"}

// placeholderOwnerAge is how long ago the seeded owner appears to have joined.
const placeholderOwnerAge = 10 * time.Minute

// Participant is a person in a collaboration session. Participants are
// unique by ID within a roster.
type Participant struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Email    string    `json:"email,omitempty" yaml:"email,omitempty"`
	Color    string    `json:"color" yaml:"color"`
	IsOwner  bool      `json:"is_owner" yaml:"is_owner"`
	JoinedAt time.Time `json:"joined_at" yaml:"joined_at"`
}

// DisplayName returns the name shown in the activity feed.
func (p Participant) DisplayName() string { return p.Name }

// DisplayColor returns the participant's highlight color.
func (p Participant) DisplayColor() string { return p.Color }

// Validate checks that the participant can be placed on a roster.
func (p Participant) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.NewValidationError("participant ID is required").WithField("id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.NewValidationError("participant name is required").
			WithField("name").WithValue(p.ID)
	}
	return nil
}

// PlaceholderOwner returns the owner seeded into the roster when joining a
// session by code. No remote lookup happens; the owner is a stand-in until a
// real transport provides the actual roster.
func PlaceholderOwner(now time.Time) Participant {
	return Participant{
		ID:       "owner_1",
		Name:     "CV Owner",
		Email:    "owner@example.com",
		Color:    OwnerColor,
		IsOwner:  true,
		JoinedAt: now.Add(-placeholderOwnerAge),
	}
}
