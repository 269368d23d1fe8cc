package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nufflezone/tournament-registry/models"
)

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentInvalidOrg = errors.New("invalid organizer reference")
)

// ListTournamentsFilter narrows a tournament listing. Nil fields are ignored;
// set fields are combined with AND.
type ListTournamentsFilter struct {
	IsPublic         *bool
	OrganizerID      *uuid.UUID
	RegistrationOpen *bool
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the remainder of the
	// surrounding transaction. Registration writes take this lock so that the
	// capacity check and the participant_count update cannot interleave.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter, limit int, after *Cursor) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	SetParticipantCount(ctx context.Context, exec SQLExecutor, id uuid.UUID, count int) error
	UpdateLogoKey(ctx context.Context, exec SQLExecutor, id uuid.UUID, logoKey *string) error
	// CloseExpiredRegistrations flips registration_open off for every
	// tournament whose deadline has passed and returns how many were closed.
	CloseExpiredRegistrations(ctx context.Context, exec SQLExecutor, now time.Time) (int64, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, organizer_id, organizer_email, max_participants,
	registration_open, registration_deadline, start_date, end_date, is_public,
	participant_count, logo_key, created_at, updated_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			id, name, description, organizer_id, organizer_email, max_participants,
			registration_open, registration_deadline, start_date, end_date, is_public,
			participant_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := executor.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Description, t.OrganizerID, t.OrganizerEmail, t.MaxParticipants,
		t.RegistrationOpen, t.RegistrationDeadline, t.StartDate, t.EndDate, t.IsPublic,
		t.ParticipantCount,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" && pqErr.Constraint == "tournaments_organizer_id_fkey" {
			return ErrTournamentInvalidOrg
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.findOne(ctx, r.getExecutor(exec), query, id)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, r.getExecutor(exec), query, id)
}

func (r *postgresTournamentRepository) findOne(ctx context.Context, executor SQLExecutor, query string, id uuid.UUID) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := r.scanTournament(executor.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) scanTournament(rowScanner interface {
	Scan(dest ...interface{}) error
}, t *models.Tournament) error {
	return rowScanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.OrganizerID, &t.OrganizerEmail, &t.MaxParticipants,
		&t.RegistrationOpen, &t.RegistrationDeadline, &t.StartDate, &t.EndDate, &t.IsPublic,
		&t.ParticipantCount, &t.LogoKey, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter, limit int, after *Cursor) ([]models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.IsPublic != nil {
		query += fmt.Sprintf(" AND is_public = $%d", argID)
		args = append(args, *filter.IsPublic)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.RegistrationOpen != nil {
		query += fmt.Sprintf(" AND registration_open = $%d", argID)
		args = append(args, *filter.RegistrationOpen)
		argID++
	}
	if after != nil {
		// Keyset continuation for created_at DESC ordering.
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argID, argID+1)
		args = append(args, after.Time, after.ID)
		argID += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := r.scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			max_participants = $3,
			registration_open = $4,
			registration_deadline = $5,
			start_date = $6,
			end_date = $7,
			is_public = $8,
			updated_at = now()
		WHERE id = $9`

	result, err := executor.ExecContext(ctx, query,
		t.Name, t.Description, t.MaxParticipants, t.RegistrationOpen,
		t.RegistrationDeadline, t.StartDate, t.EndDate, t.IsPublic,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Delete removes the tournament; child registrations go with it via the
// ON DELETE CASCADE constraint on registrations.tournament_id.
func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetParticipantCount(ctx context.Context, exec SQLExecutor, id uuid.UUID, count int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET participant_count = GREATEST($1, 0), updated_at = now() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, count, id)
	if err != nil {
		return fmt.Errorf("failed to update participant count: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, exec SQLExecutor, id uuid.UUID, logoKey *string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET logo_key = $1, updated_at = now() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) CloseExpiredRegistrations(ctx context.Context, exec SQLExecutor, now time.Time) (int64, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET registration_open = FALSE, updated_at = now()
		WHERE registration_open = TRUE
		  AND registration_deadline IS NOT NULL
		  AND registration_deadline <= $1`

	result, err := executor.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired registrations: %w", err)
	}
	closed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return closed, nil
}
