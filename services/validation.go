package services

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nufflezone/tournament-registry/models"
)

// Length limits are in characters, not bytes.
const (
	tournamentNameMinLen = 3
	tournamentNameMaxLen = 200
	descriptionMaxLen    = 1000
	maxParticipantsCap   = 1000

	aliasMinLen    = 2
	aliasMaxLen    = 50
	fullNameMax    = 100
	teamNameMax    = 100
	nafNumberMax   = 10
	passwordMin    = 8
	displayNameMax = 100
)

var (
	aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	nafPattern   = regexp.MustCompile(`^\d+$`)
)

// normalizeEmail lower-cases and trims an email address. Email uniqueness
// within a tournament is enforced on the normalized form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(fields map[string]string, key, email string) {
	if email == "" {
		fields[key] = "email is required"
	} else if !emailPattern.MatchString(email) {
		fields[key] = "must be a valid email address"
	}
}

func validateTournamentName(fields map[string]string, name string) {
	switch n := utf8.RuneCountInString(name); {
	case n < tournamentNameMinLen:
		fields["name"] = "must be at least 3 characters"
	case n > tournamentNameMaxLen:
		fields["name"] = "must be 200 characters or less"
	}
}

// validateTournamentDates enforces deadline <= start <= end for whichever
// dates are present.
func validateTournamentDates(fields map[string]string, deadline, start, end *time.Time) {
	if deadline != nil && start != nil && start.Before(*deadline) {
		fields["start_date"] = "must not be before the registration deadline"
	}
	if start != nil && end != nil && end.Before(*start) {
		fields["end_date"] = "must not be before the start date"
	}
}

func validateTournamentCommon(fields map[string]string, description *string, maxParticipants *int) {
	if description != nil && utf8.RuneCountInString(*description) > descriptionMaxLen {
		fields["description"] = "must be 1000 characters or less"
	}
	if maxParticipants != nil {
		if *maxParticipants < 1 {
			fields["max_participants"] = "must be at least 1"
		} else if *maxParticipants > maxParticipantsCap {
			fields["max_participants"] = "cannot exceed 1000"
		}
	}
}

func validateAlias(fields map[string]string, alias string) {
	switch {
	case len(alias) < aliasMinLen:
		fields["alias"] = "must be at least 2 characters"
	case len(alias) > aliasMaxLen:
		fields["alias"] = "must be 50 characters or less"
	case !aliasPattern.MatchString(alias):
		fields["alias"] = "can only contain letters, numbers, underscores, and hyphens"
	}
}

func validateTeamRace(fields map[string]string, race models.TeamRace) {
	if !race.Valid() {
		fields["team_race"] = "must be a valid team race"
	}
}

func validateRegistrationOptionals(fields map[string]string, fullName, nafNumber, teamName *string) {
	if fullName != nil && utf8.RuneCountInString(*fullName) > fullNameMax {
		fields["full_name"] = "must be 100 characters or less"
	}
	if nafNumber != nil && *nafNumber != "" {
		if len(*nafNumber) > nafNumberMax {
			fields["naf_number"] = "must be 10 digits or less"
		} else if !nafPattern.MatchString(*nafNumber) {
			fields["naf_number"] = "must contain only digits"
		}
	}
	if teamName != nil && utf8.RuneCountInString(*teamName) > teamNameMax {
		fields["team_name"] = "must be 100 characters or less"
	}
}
