package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/models"
	"github.com/nufflezone/tournament-registry/repositories"
)

// RegistrationNotifier receives post-commit registration events for live
// subscribers. Delivery is best effort and must not block.
type RegistrationNotifier interface {
	NotifyRegistration(tournamentID uuid.UUID, event string, reg *models.Registration)
}

// ConfirmationMailer sends the registration confirmation mail. Failures are
// logged, never surfaced: the registration is already committed.
type ConfirmationMailer interface {
	SendRegistrationConfirmation(to, alias, tournamentName string) error
}

const (
	EventRegistrationCreated = "registration.created"
	EventRegistrationUpdated = "registration.updated"
	EventRegistrationDeleted = "registration.deleted"
)

type CreateRegistrationInput struct {
	Alias     string          `json:"alias"`
	Email     string          `json:"email"`
	TeamRace  models.TeamRace `json:"team_race"`
	FullName  *string         `json:"full_name"`
	NAFNumber *string         `json:"naf_number"`
	TeamName  *string         `json:"team_name"`
}

// UpdateRegistrationInput is a partial patch. Status may only be set by the
// tournament organizer.
type UpdateRegistrationInput struct {
	Alias     *string                    `json:"alias"`
	TeamRace  *models.TeamRace           `json:"team_race"`
	FullName  *string                    `json:"full_name"`
	NAFNumber *string                    `json:"naf_number"`
	TeamName  *string                    `json:"team_name"`
	Status    *models.RegistrationStatus `json:"status"`
}

type ListRegistrationsFilter struct {
	Status *models.RegistrationStatus
}

type RegistrationPage struct {
	Items      []models.Registration `json:"registrations"`
	NextCursor string                `json:"next_cursor,omitempty"`
	HasMore    bool                  `json:"has_more"`
}

type RegistrationService interface {
	Create(ctx context.Context, caller *models.Identity, tournamentID uuid.UUID, input CreateRegistrationInput) (*models.Registration, error)
	Get(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID) (*models.Registration, error)
	List(ctx context.Context, caller *models.Identity, tournamentID uuid.UUID, filter ListRegistrationsFilter, page Page) (*RegistrationPage, error)
	Update(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID, patch UpdateRegistrationInput) (*models.Registration, error)
	Delete(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID) error
	// Lookup lets an anonymous registrant retrieve their own registration by
	// the alias/email pair they registered with.
	Lookup(ctx context.Context, tournamentID uuid.UUID, alias, email string) (*models.Registration, error)
}

type registrationService struct {
	tx          repositories.TxRunner
	tournaments repositories.TournamentRepository
	regs        repositories.RegistrationRepository
	notifier    RegistrationNotifier
	mailer      ConfirmationMailer
	logger      *slog.Logger
	opTimeout   time.Duration
}

func NewRegistrationService(
	tx repositories.TxRunner,
	tournaments repositories.TournamentRepository,
	regs repositories.RegistrationRepository,
	notifier RegistrationNotifier,
	mailer ConfirmationMailer,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:          tx,
		tournaments: tournaments,
		regs:        regs,
		notifier:    notifier,
		mailer:      mailer,
		logger:      logger,
		opTimeout:   defaultOperationTimeout,
	}
}

// Create registers a coach for a tournament. The tournament read, the
// capacity check, the insert and the participant_count update run in one
// transaction holding the tournament row lock, so two concurrent creates
// cannot both pass the capacity check on the same stale count. Duplicate
// alias/email is backstopped by the unique indexes even if both requests pass
// the pre-check.
func (s *registrationService) Create(ctx context.Context, caller *models.Identity, tournamentID uuid.UUID, input CreateRegistrationInput) (*models.Registration, error) {
	fields := make(map[string]string)
	validateAlias(fields, input.Alias)
	input.Email = normalizeEmail(input.Email)
	validateEmail(fields, "email", input.Email)
	validateTeamRace(fields, input.TeamRace)
	validateRegistrationOptionals(fields, input.FullName, input.NAFNumber, input.TeamName)
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	reg := &models.Registration{
		TournamentID: tournamentID,
		Alias:        input.Alias,
		Email:        input.Email,
		TeamRace:     input.TeamRace,
		FullName:     input.FullName,
		NAFNumber:    input.NAFNumber,
		TeamName:     input.TeamName,
		IsAnonymous:  caller == nil,
		Status:       models.RegistrationPending,
	}
	if caller != nil {
		id := caller.UserID
		reg.UserID = &id
	}

	var tournamentName string
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournaments.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		tournamentName = tournament.Name
		if !tournament.AcceptsRegistrations(time.Now()) {
			return ErrRegistrationClosed
		}
		if tournament.IsFull() {
			return ErrTournamentFull
		}
		if err := s.checkDuplicates(ctx, exec, tournamentID, reg.Alias, reg.Email, uuid.Nil); err != nil {
			return err
		}
		if err := s.regs.Create(ctx, exec, reg); err != nil {
			return err
		}
		return s.tournaments.SetParticipantCount(ctx, exec, tournamentID, tournament.ParticipantCount+1)
	})
	if err != nil {
		return nil, s.mapRepoErr(err)
	}

	s.notify(tournamentID, EventRegistrationCreated, reg)
	s.sendConfirmation(reg, tournamentName)
	return reg, nil
}

func (s *registrationService) Get(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID) (*models.Registration, error) {
	tournament, err := s.tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	reg, err := s.regs.GetByID(ctx, nil, tournamentID, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	if !tournament.IsOrganizedBy(caller) && !reg.IsOwnedBy(caller) {
		return nil, ErrAccessDenied
	}
	return reg, nil
}

// List is organizer-only; registrants cannot enumerate each other.
func (s *registrationService) List(ctx context.Context, caller *models.Identity, tournamentID uuid.UUID, filter ListRegistrationsFilter, page Page) (*RegistrationPage, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}
	tournament, err := s.tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	if !tournament.IsOrganizedBy(caller) {
		return nil, ErrAccessDenied
	}

	after, err := page.cursor()
	if err != nil {
		return nil, newValidationError(map[string]string{"cursor": "invalid pagination cursor"})
	}
	limit := page.clampedLimit()

	repoFilter := repositories.ListRegistrationsFilter{Status: filter.Status}
	items, err := s.regs.List(ctx, nil, tournamentID, repoFilter, limit+1, after)
	if err != nil {
		return nil, translateCtxErr(err)
	}

	result := &RegistrationPage{HasMore: len(items) > limit}
	if result.HasMore {
		items = items[:limit]
	}
	result.Items = items
	if result.HasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.NextCursor = repositories.Cursor{Time: last.RegisteredAt, ID: last.ID}.Encode()
	}
	return result, nil
}

func (s *registrationService) Update(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID, patch UpdateRegistrationInput) (*models.Registration, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var updated *models.Registration
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournaments.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		reg, err := s.regs.GetByID(ctx, exec, tournamentID, id)
		if err != nil {
			return err
		}

		isOrganizer := tournament.IsOrganizedBy(caller)
		if !isOrganizer && !reg.IsOwnedBy(caller) {
			return ErrAccessDenied
		}
		if patch.Status != nil && !isOrganizer {
			return ErrAccessDenied
		}

		fields := make(map[string]string)
		if patch.Alias != nil {
			validateAlias(fields, *patch.Alias)
		}
		if patch.TeamRace != nil {
			validateTeamRace(fields, *patch.TeamRace)
		}
		if patch.Status != nil && !patch.Status.Valid() {
			fields["status"] = "must be a valid registration status"
		}
		validateRegistrationOptionals(fields, patch.FullName, patch.NAFNumber, patch.TeamName)
		if err := newValidationError(fields); err != nil {
			return err
		}

		if patch.Alias != nil && *patch.Alias != reg.Alias {
			if err := s.checkDuplicates(ctx, exec, tournamentID, *patch.Alias, "", reg.ID); err != nil {
				return err
			}
			reg.Alias = *patch.Alias
		}
		if patch.TeamRace != nil {
			reg.TeamRace = *patch.TeamRace
		}
		if patch.FullName != nil {
			reg.FullName = patch.FullName
		}
		if patch.NAFNumber != nil {
			reg.NAFNumber = patch.NAFNumber
		}
		if patch.TeamName != nil {
			reg.TeamName = patch.TeamName
		}

		if patch.Status != nil && *patch.Status != reg.Status {
			oldCounts := reg.Status.CountsTowardCapacity()
			newCounts := patch.Status.CountsTowardCapacity()
			reg.Status = *patch.Status

			// Cancelled registrations free their slot; leaving cancelled
			// consumes one again, so the capacity check re-applies.
			switch {
			case oldCounts && !newCounts:
				if err := s.tournaments.SetParticipantCount(ctx, exec, tournamentID, tournament.ParticipantCount-1); err != nil {
					return err
				}
			case !oldCounts && newCounts:
				if tournament.IsFull() {
					return ErrTournamentFull
				}
				if err := s.tournaments.SetParticipantCount(ctx, exec, tournamentID, tournament.ParticipantCount+1); err != nil {
					return err
				}
			}
		}

		if err := s.regs.Update(ctx, exec, reg); err != nil {
			return err
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, s.mapRepoErr(err)
	}

	s.notify(tournamentID, EventRegistrationUpdated, updated)
	return updated, nil
}

func (s *registrationService) Delete(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var deleted *models.Registration
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournaments.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		reg, err := s.regs.GetByID(ctx, exec, tournamentID, id)
		if err != nil {
			return err
		}
		if !tournament.IsOrganizedBy(caller) && !reg.IsOwnedBy(caller) {
			return ErrAccessDenied
		}
		if err := s.regs.Delete(ctx, exec, tournamentID, id); err != nil {
			return err
		}
		deleted = reg
		if reg.Status.CountsTowardCapacity() {
			return s.tournaments.SetParticipantCount(ctx, exec, tournamentID, tournament.ParticipantCount-1)
		}
		return nil
	})
	if err != nil {
		return s.mapRepoErr(err)
	}

	s.notify(tournamentID, EventRegistrationDeleted, deleted)
	return nil
}

func (s *registrationService) Lookup(ctx context.Context, tournamentID uuid.UUID, alias, email string) (*models.Registration, error) {
	fields := make(map[string]string)
	if alias == "" {
		fields["alias"] = "alias is required"
	}
	email = normalizeEmail(email)
	validateEmail(fields, "email", email)
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	if _, err := s.tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, s.mapRepoErr(err)
	}
	reg, err := s.regs.FindByAliasAndEmail(ctx, nil, tournamentID, alias, email)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	return reg, nil
}

// checkDuplicates is the friendly-error pre-check; the unique indexes remain
// the authority under concurrency. Empty alias/email skips that check;
// excludeID skips the registration being updated.
func (s *registrationService) checkDuplicates(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID, alias, email string, excludeID uuid.UUID) error {
	if alias != "" {
		existing, err := s.regs.FindByAlias(ctx, exec, tournamentID, alias)
		if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return err
		}
		if existing != nil && existing.ID != excludeID {
			return ErrDuplicateAlias
		}
	}
	if email != "" {
		existing, err := s.regs.FindByEmail(ctx, exec, tournamentID, email)
		if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return err
		}
		if existing != nil && existing.ID != excludeID {
			return ErrDuplicateEmail
		}
	}
	return nil
}

func (s *registrationService) notify(tournamentID uuid.UUID, event string, reg *models.Registration) {
	if s.notifier == nil || reg == nil {
		return
	}
	s.notifier.NotifyRegistration(tournamentID, event, reg)
}

func (s *registrationService) sendConfirmation(reg *models.Registration, tournamentName string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendRegistrationConfirmation(reg.Email, reg.Alias, tournamentName); err != nil {
		s.logger.Warn("failed to send registration confirmation email",
			slog.String("registration_id", reg.ID.String()), slog.Any("error", err))
	}
}

func (s *registrationService) mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationAliasTaken):
		return ErrDuplicateAlias
	case errors.Is(err, repositories.ErrRegistrationEmailTaken):
		return ErrDuplicateEmail
	default:
		return translateCtxErr(err)
	}
}
