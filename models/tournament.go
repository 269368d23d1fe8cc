package models

import (
	"time"

	"github.com/google/uuid"
)

// Tournament is a single Blood Bowl event open for coach registration.
// OrganizerEmail and ParticipantCount are denormalized; the participant count
// is maintained transactionally together with registration writes and tracks
// non-cancelled registrations only.
type Tournament struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Description          *string    `json:"description,omitempty" db:"description"`
	OrganizerID          uuid.UUID  `json:"organizer" db:"organizer_id"`
	OrganizerEmail       string     `json:"organizer_email" db:"organizer_email"`
	MaxParticipants      *int       `json:"max_participants,omitempty" db:"max_participants"`
	RegistrationOpen     bool       `json:"registration_open" db:"registration_open"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty" db:"registration_deadline"`
	StartDate            *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate              *time.Time `json:"end_date,omitempty" db:"end_date"`
	IsPublic             bool       `json:"is_public" db:"is_public"`
	ParticipantCount     int        `json:"participant_count" db:"participant_count"`
	LogoKey              *string    `json:"-" db:"logo_key"`
	LogoURL              *string    `json:"logo_url,omitempty" db:"-"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOrganizedBy reports whether the given caller owns the tournament.
func (t *Tournament) IsOrganizedBy(caller *Identity) bool {
	return caller != nil && caller.UserID == t.OrganizerID
}

// AcceptsRegistrations reports whether a new registration may be created at
// the given instant, ignoring capacity.
func (t *Tournament) AcceptsRegistrations(now time.Time) bool {
	if !t.RegistrationOpen {
		return false
	}
	if t.RegistrationDeadline != nil && now.After(*t.RegistrationDeadline) {
		return false
	}
	return true
}

// IsFull reports whether the participant limit has been reached. Tournaments
// without MaxParticipants are unlimited.
func (t *Tournament) IsFull() bool {
	return t.MaxParticipants != nil && t.ParticipantCount >= *t.MaxParticipants
}
