package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/models"
	"github.com/nufflezone/tournament-registry/repositories"
	"github.com/nufflezone/tournament-registry/storage"
)

// Page is a caller-supplied pagination request. Limit is clamped to
// [1, MaxPageSize]; zero means DefaultPageSize. Cursor is the opaque token
// returned by the previous page, or empty for the first page.
type Page struct {
	Limit  int
	Cursor string
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 50
)

func (p Page) clampedLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	default:
		return p.Limit
	}
}

func (p Page) cursor() (*repositories.Cursor, error) {
	if p.Cursor == "" {
		return nil, nil
	}
	return repositories.DecodeCursor(p.Cursor)
}

type CreateTournamentInput struct {
	Name                 string     `json:"name"`
	Description          *string    `json:"description"`
	MaxParticipants      *int       `json:"max_participants"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	IsPublic             bool       `json:"is_public"`
}

// UpdateTournamentInput is a partial patch: nil fields are left untouched.
type UpdateTournamentInput struct {
	Name                 *string    `json:"name"`
	Description          *string    `json:"description"`
	MaxParticipants      *int       `json:"max_participants"`
	RegistrationOpen     *bool      `json:"registration_open"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	IsPublic             *bool      `json:"is_public"`
}

type TournamentPage struct {
	Items      []models.Tournament `json:"tournaments"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

type ListTournamentsFilter struct {
	IsPublic         *bool
	OrganizerID      *uuid.UUID
	RegistrationOpen *bool
}

type TournamentService interface {
	Create(ctx context.Context, caller *models.Identity, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, caller *models.Identity, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, caller *models.Identity, filter ListTournamentsFilter, page Page) (*TournamentPage, error)
	Update(ctx context.Context, caller *models.Identity, id uuid.UUID, patch UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, caller *models.Identity, id uuid.UUID) error
	UploadLogo(ctx context.Context, caller *models.Identity, id uuid.UUID, contentType string, content io.Reader) (*models.Tournament, error)
	DeleteLogo(ctx context.Context, caller *models.Identity, id uuid.UUID) error
	CloseExpiredRegistrations(ctx context.Context) (int64, error)
}

type tournamentService struct {
	repo      repositories.TournamentRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
	opTimeout time.Duration
}

func NewTournamentService(
	repo repositories.TournamentRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		repo:      repo,
		uploader:  uploader,
		logger:    logger,
		opTimeout: defaultOperationTimeout,
	}
}

func (s *tournamentService) Create(ctx context.Context, caller *models.Identity, input CreateTournamentInput) (*models.Tournament, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}

	fields := make(map[string]string)
	validateTournamentName(fields, input.Name)
	validateTournamentCommon(fields, input.Description, input.MaxParticipants)
	validateTournamentDates(fields, input.RegistrationDeadline, input.StartDate, input.EndDate)
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	tournament := &models.Tournament{
		Name:                 input.Name,
		Description:          input.Description,
		OrganizerID:          caller.UserID,
		OrganizerEmail:       caller.Email,
		MaxParticipants:      input.MaxParticipants,
		RegistrationOpen:     true,
		RegistrationDeadline: input.RegistrationDeadline,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		IsPublic:             input.IsPublic,
		ParticipantCount:     0,
	}
	if err := s.repo.Create(ctx, nil, tournament); err != nil {
		return nil, translateCtxErr(err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) Get(ctx context.Context, caller *models.Identity, id uuid.UUID) (*models.Tournament, error) {
	tournament, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	if !tournament.IsPublic && !tournament.IsOrganizedBy(caller) {
		return nil, ErrAccessDenied
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

// List applies the requested filters combined with AND. Callers only ever see
// private tournaments they organize themselves: unless the caller filters by
// their own organizer id, the listing is forced to public tournaments.
func (s *tournamentService) List(ctx context.Context, caller *models.Identity, filter ListTournamentsFilter, page Page) (*TournamentPage, error) {
	ownListing := caller != nil && filter.OrganizerID != nil && *filter.OrganizerID == caller.UserID
	if !ownListing {
		public := true
		filter.IsPublic = &public
	}

	after, err := page.cursor()
	if err != nil {
		return nil, newValidationError(map[string]string{"cursor": "invalid pagination cursor"})
	}
	limit := page.clampedLimit()

	repoFilter := repositories.ListTournamentsFilter{
		IsPublic:         filter.IsPublic,
		OrganizerID:      filter.OrganizerID,
		RegistrationOpen: filter.RegistrationOpen,
	}
	// One extra row decides has_more without a count query.
	items, err := s.repo.List(ctx, nil, repoFilter, limit+1, after)
	if err != nil {
		return nil, translateCtxErr(err)
	}

	result := &TournamentPage{HasMore: len(items) > limit}
	if result.HasMore {
		items = items[:limit]
	}
	for i := range items {
		s.populateLogoURL(&items[i])
	}
	result.Items = items
	if result.HasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.NextCursor = repositories.Cursor{Time: last.CreatedAt, ID: last.ID}.Encode()
	}
	return result, nil
}

func (s *tournamentService) Update(ctx context.Context, caller *models.Identity, id uuid.UUID, patch UpdateTournamentInput) (*models.Tournament, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	tournament, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	if !tournament.IsOrganizedBy(caller) {
		return nil, ErrAccessDenied
	}

	if patch.Name != nil {
		tournament.Name = *patch.Name
	}
	if patch.Description != nil {
		tournament.Description = patch.Description
	}
	if patch.MaxParticipants != nil {
		tournament.MaxParticipants = patch.MaxParticipants
	}
	if patch.RegistrationOpen != nil {
		tournament.RegistrationOpen = *patch.RegistrationOpen
	}
	if patch.RegistrationDeadline != nil {
		tournament.RegistrationDeadline = patch.RegistrationDeadline
	}
	if patch.StartDate != nil {
		tournament.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		tournament.EndDate = patch.EndDate
	}
	if patch.IsPublic != nil {
		tournament.IsPublic = *patch.IsPublic
	}

	fields := make(map[string]string)
	validateTournamentName(fields, tournament.Name)
	validateTournamentCommon(fields, tournament.Description, tournament.MaxParticipants)
	validateTournamentDates(fields, tournament.RegistrationDeadline, tournament.StartDate, tournament.EndDate)
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, nil, tournament); err != nil {
		return nil, s.mapRepoErr(err)
	}
	// Re-read so updated_at reflects what was persisted.
	updated, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	s.populateLogoURL(updated)
	return updated, nil
}

// Delete removes the tournament and, through the storage-level cascade, every
// registration under it.
func (s *tournamentService) Delete(ctx context.Context, caller *models.Identity, id uuid.UUID) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	tournament, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return s.mapRepoErr(err)
	}
	if !tournament.IsOrganizedBy(caller) {
		return ErrAccessDenied
	}

	if err := s.repo.Delete(ctx, nil, id); err != nil {
		return s.mapRepoErr(err)
	}

	if s.uploader != nil && tournament.LogoKey != nil {
		// Best effort: an orphaned object is not worth failing the delete.
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.Warn("failed to delete tournament logo from storage",
				slog.String("tournament_id", id.String()), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, caller *models.Identity, id uuid.UUID, contentType string, content io.Reader) (*models.Tournament, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	ext, err := extensionForContentType(contentType)
	if err != nil {
		return nil, newValidationError(map[string]string{"logo": err.Error()})
	}

	tournament, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	if !tournament.IsOrganizedBy(caller) {
		return nil, ErrAccessDenied
	}

	key := fmt.Sprintf("tournaments/%s/logo%s", id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, content); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.repo.UpdateLogoKey(ctx, nil, id, &key); err != nil {
		return nil, s.mapRepoErr(err)
	}

	oldKey := tournament.LogoKey
	if oldKey != nil && *oldKey != key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}
	tournament.LogoKey = &key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) DeleteLogo(ctx context.Context, caller *models.Identity, id uuid.UUID) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}
	tournament, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return s.mapRepoErr(err)
	}
	if !tournament.IsOrganizedBy(caller) {
		return ErrAccessDenied
	}
	if tournament.LogoKey == nil {
		return nil
	}
	if err := s.repo.UpdateLogoKey(ctx, nil, id, nil); err != nil {
		return s.mapRepoErr(err)
	}
	if s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.Warn("failed to delete logo from storage",
				slog.String("key", *tournament.LogoKey), slog.Any("error", err))
		}
	}
	return nil
}

// CloseExpiredRegistrations is run periodically by the scheduler.
func (s *tournamentService) CloseExpiredRegistrations(ctx context.Context) (int64, error) {
	closed, err := s.repo.CloseExpiredRegistrations(ctx, nil, time.Now())
	if err != nil {
		return 0, translateCtxErr(err)
	}
	if closed > 0 {
		s.logger.Info("closed registration for tournaments past deadline", slog.Int64("count", closed))
	}
	return closed, nil
}

func (s *tournamentService) mapRepoErr(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return translateCtxErr(err)
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if s.uploader == nil || t.LogoKey == nil || *t.LogoKey == "" {
		return
	}
	if url := s.uploader.GetPublicURL(*t.LogoKey); url != "" {
		t.LogoURL = &url
	}
}

func extensionForContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported image content type %q", contentType)
	}
}

const defaultOperationTimeout = 5 * time.Second
