package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamRace enumerates the playable Blood Bowl rosters.
type TeamRace string

const (
	RaceHuman       TeamRace = "human"
	RaceOrc         TeamRace = "orc"
	RaceDwarf       TeamRace = "dwarf"
	RaceSkaven      TeamRace = "skaven"
	RaceWoodElf     TeamRace = "wood_elf"
	RaceDarkElf     TeamRace = "dark_elf"
	RaceHighElf     TeamRace = "high_elf"
	RaceChaos       TeamRace = "chaos"
	RaceUndead      TeamRace = "undead"
	RaceHalfling    TeamRace = "halfling"
	RaceGoblin      TeamRace = "goblin"
	RaceAmazon      TeamRace = "amazon"
	RaceLizardman   TeamRace = "lizardman"
	RaceNorse       TeamRace = "norse"
	RaceNecromantic TeamRace = "necromantic"
	RaceNurgle      TeamRace = "nurgle"
	RaceVampire     TeamRace = "vampire"
	RaceChaosDwarf  TeamRace = "chaos_dwarf"
	RaceUnderworld  TeamRace = "underworld"
	RaceOgre        TeamRace = "ogre"
)

var teamRaces = map[TeamRace]struct{}{
	RaceHuman: {}, RaceOrc: {}, RaceDwarf: {}, RaceSkaven: {},
	RaceWoodElf: {}, RaceDarkElf: {}, RaceHighElf: {}, RaceChaos: {},
	RaceUndead: {}, RaceHalfling: {}, RaceGoblin: {}, RaceAmazon: {},
	RaceLizardman: {}, RaceNorse: {}, RaceNecromantic: {}, RaceNurgle: {},
	RaceVampire: {}, RaceChaosDwarf: {}, RaceUnderworld: {}, RaceOgre: {},
}

func (r TeamRace) Valid() bool {
	_, ok := teamRaces[r]
	return ok
}

// RegistrationStatus is the organizer-controlled state of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationWaitlist  RegistrationStatus = "waitlist"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled, RegistrationWaitlist:
		return true
	}
	return false
}

// CountsTowardCapacity reports whether a registration in this status consumes
// a tournament slot. Cancelled registrations keep their row but free the slot.
func (s RegistrationStatus) CountsTowardCapacity() bool {
	return s != RegistrationCancelled
}

// Registration is a coach's entry in a tournament. UserID is nil for
// anonymous registrations; IsAnonymous is derived from that at creation and
// never changes afterwards.
type Registration struct {
	ID           uuid.UUID          `json:"id" db:"id"`
	TournamentID uuid.UUID          `json:"tournament_id" db:"tournament_id"`
	Alias        string             `json:"alias" db:"alias"`
	Email        string             `json:"email" db:"email"`
	TeamRace     TeamRace           `json:"team_race" db:"team_race"`
	FullName     *string            `json:"full_name,omitempty" db:"full_name"`
	NAFNumber    *string            `json:"naf_number,omitempty" db:"naf_number"`
	TeamName     *string            `json:"team_name,omitempty" db:"team_name"`
	UserID       *uuid.UUID         `json:"user_id,omitempty" db:"user_id"`
	IsAnonymous  bool               `json:"is_anonymous" db:"is_anonymous"`
	Status       RegistrationStatus `json:"status" db:"status"`
	RegisteredAt time.Time          `json:"registered_at" db:"registered_at"`
}

// IsOwnedBy reports whether the registration belongs to the given caller.
// Anonymous registrations have no owner.
func (r *Registration) IsOwnedBy(caller *Identity) bool {
	return caller != nil && r.UserID != nil && *r.UserID == caller.UserID
}
