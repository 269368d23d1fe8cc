package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nufflezone/tournament-registry/models"
)

var (
	ErrRegistrationNotFound   = errors.New("registration not found")
	ErrRegistrationAliasTaken = errors.New("alias already taken for this tournament")
	ErrRegistrationEmailTaken = errors.New("email already registered for this tournament")
)

// ListRegistrationsFilter narrows a registration listing.
type ListRegistrationsFilter struct {
	Status *models.RegistrationStatus
}

type RegistrationRepository interface {
	// Create inserts the registration. Uniqueness of (tournament_id, alias)
	// and (tournament_id, email) is enforced by compound unique indexes, so a
	// concurrent duplicate surfaces here as ErrRegistrationAliasTaken or
	// ErrRegistrationEmailTaken regardless of any earlier pre-check.
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, tournamentID, id uuid.UUID) (*models.Registration, error)
	List(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, filter ListRegistrationsFilter, limit int, after *Cursor) ([]models.Registration, error)
	Update(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, id uuid.UUID) error
	FindByAlias(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, alias string) (*models.Registration, error)
	FindByEmail(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, email string) (*models.Registration, error)
	FindByAliasAndEmail(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, alias, email string) (*models.Registration, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `
	id, tournament_id, alias, email, team_race, full_name, naf_number,
	team_name, user_id, is_anonymous, status, registered_at`

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO registrations (
			id, tournament_id, alias, email, team_race, full_name, naf_number,
			team_name, user_id, is_anonymous, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING registered_at`

	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	err := executor.QueryRowContext(ctx, query,
		reg.ID, reg.TournamentID, reg.Alias, reg.Email, reg.TeamRace,
		reg.FullName, reg.NAFNumber, reg.TeamName, reg.UserID, reg.IsAnonymous,
		reg.Status,
	).Scan(&reg.RegisteredAt)
	if err != nil {
		return r.handleRegistrationError(err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, tournamentID, id uuid.UUID) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE tournament_id = $1 AND id = $2`
	return r.findOne(ctx, r.getExecutor(exec), query, tournamentID, id)
}

func (r *postgresRegistrationRepository) FindByAlias(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, alias string) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE tournament_id = $1 AND alias = $2`
	return r.findOne(ctx, r.getExecutor(exec), query, tournamentID, alias)
}

func (r *postgresRegistrationRepository) FindByEmail(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, email string) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE tournament_id = $1 AND email = $2`
	return r.findOne(ctx, r.getExecutor(exec), query, tournamentID, email)
}

func (r *postgresRegistrationRepository) FindByAliasAndEmail(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, alias, email string) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE tournament_id = $1 AND alias = $2 AND email = $3`
	return r.findOne(ctx, r.getExecutor(exec), query, tournamentID, alias, email)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	err := r.scanRegistration(executor.QueryRowContext(ctx, query, args...), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) scanRegistration(rowScanner interface {
	Scan(dest ...interface{}) error
}, reg *models.Registration) error {
	return rowScanner.Scan(
		&reg.ID, &reg.TournamentID, &reg.Alias, &reg.Email, &reg.TeamRace,
		&reg.FullName, &reg.NAFNumber, &reg.TeamName, &reg.UserID,
		&reg.IsAnonymous, &reg.Status, &reg.RegisteredAt,
	)
}

func (r *postgresRegistrationRepository) List(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, filter ListRegistrationsFilter, limit int, after *Cursor) ([]models.Registration, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + registrationColumns + ` FROM registrations WHERE tournament_id = $1`

	args := []interface{}{tournamentID}
	argID := 2

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if after != nil {
		query += fmt.Sprintf(" AND (registered_at, id) < ($%d, $%d)", argID, argID+1)
		args = append(args, after.Time, after.ID)
		argID += 2
	}

	query += " ORDER BY registered_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	registrations := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := r.scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) Update(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE registrations SET
			alias = $1,
			email = $2,
			team_race = $3,
			full_name = $4,
			naf_number = $5,
			team_name = $6,
			status = $7
		WHERE tournament_id = $8 AND id = $9`

	result, err := executor.ExecContext(ctx, query,
		reg.Alias, reg.Email, reg.TeamRace, reg.FullName, reg.NAFNumber,
		reg.TeamName, reg.Status,
		reg.TournamentID, reg.ID,
	)
	if err != nil {
		return r.handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM registrations WHERE tournament_id = $1 AND id = $2`, tournamentID, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) handleRegistrationError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case "registrations_tournament_id_alias_key":
				return ErrRegistrationAliasTaken
			case "registrations_tournament_id_email_key":
				return ErrRegistrationEmailTaken
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "registrations_tournament_id_fkey" {
				return ErrTournamentNotFound
			}
		}
	}
	return fmt.Errorf("failed to write registration: %w", err)
}
