package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/models"
	"github.com/nufflezone/tournament-registry/repositories"
)

// fakeStore is an in-memory stand-in for Postgres. WithinTx serializes whole
// transactions the way the tournament row lock does, so the concurrency
// behavior under test matches the real storage.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	tournaments   map[uuid.UUID]models.Tournament
	registrations map[uuid.UUID]models.Registration

	clock int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments:   make(map[uuid.UUID]models.Tournament),
		registrations: make(map[uuid.UUID]models.Registration),
	}
}

// nextTime hands out strictly increasing timestamps so keyset pagination has a
// total order to walk.
func (s *fakeStore) nextTime() time.Time {
	s.clock++
	return time.Unix(0, s.clock*int64(time.Millisecond)).UTC()
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(nil)
}

type fakeTournamentRepo struct {
	store *fakeStore

	// failWith, when set, makes every read fail with it. Simulates storage
	// transport failures.
	failWith error
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := r.store.nextTime()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.store.tournaments[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, exec repositories.SQLExecutor, filter repositories.ListTournamentsFilter, limit int, after *repositories.Cursor) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]models.Tournament, 0)
	for _, t := range r.store.tournaments {
		if filter.IsPublic != nil && t.IsPublic != *filter.IsPublic {
			continue
		}
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.RegistrationOpen != nil && t.RegistrationOpen != *filter.RegistrationOpen {
			continue
		}
		if after != nil && !beforeCursor(t.CreatedAt, t.ID, after) {
			continue
		}
		items = append(items, t)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	updated := *t
	updated.CreatedAt = existing.CreatedAt
	updated.ParticipantCount = existing.ParticipantCount
	updated.LogoKey = existing.LogoKey
	updated.UpdatedAt = r.store.nextTime()
	r.store.tournaments[t.ID] = updated
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.store.tournaments, id)
	// Storage-level cascade.
	for regID, reg := range r.store.registrations {
		if reg.TournamentID == id {
			delete(r.store.registrations, regID)
		}
	}
	return nil
}

func (r *fakeTournamentRepo) SetParticipantCount(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, count int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if count < 0 {
		count = 0
	}
	t.ParticipantCount = count
	t.UpdatedAt = r.store.nextTime()
	r.store.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, exec repositories.SQLExecutor, id uuid.UUID, logoKey *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	t.UpdatedAt = r.store.nextTime()
	r.store.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) CloseExpiredRegistrations(ctx context.Context, exec repositories.SQLExecutor, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var closed int64
	for id, t := range r.store.tournaments {
		if t.RegistrationOpen && t.RegistrationDeadline != nil && !t.RegistrationDeadline.After(now) {
			t.RegistrationOpen = false
			r.store.tournaments[id] = t
			closed++
		}
	}
	return closed, nil
}

type fakeRegistrationRepo struct {
	store *fakeStore
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.registrations {
		if existing.TournamentID != reg.TournamentID {
			continue
		}
		if existing.Alias == reg.Alias {
			return repositories.ErrRegistrationAliasTaken
		}
		if existing.Email == reg.Email {
			return repositories.ErrRegistrationEmailTaken
		}
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	reg.RegisteredAt = r.store.nextTime()
	r.store.registrations[reg.ID] = *reg
	return nil
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, tournamentID, id uuid.UUID) (*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.registrations[id]
	if !ok || reg.TournamentID != tournamentID {
		return nil, repositories.ErrRegistrationNotFound
	}
	return &reg, nil
}

func (r *fakeRegistrationRepo) List(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID, filter repositories.ListRegistrationsFilter, limit int, after *repositories.Cursor) ([]models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]models.Registration, 0)
	for _, reg := range r.store.registrations {
		if reg.TournamentID != tournamentID {
			continue
		}
		if filter.Status != nil && reg.Status != *filter.Status {
			continue
		}
		if after != nil && !beforeCursor(reg.RegisteredAt, reg.ID, after) {
			continue
		}
		items = append(items, reg)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].RegisteredAt.Equal(items[j].RegisteredAt) {
			return items[i].RegisteredAt.After(items[j].RegisteredAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeRegistrationRepo) Update(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.registrations[reg.ID]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	for _, other := range r.store.registrations {
		if other.ID == reg.ID || other.TournamentID != reg.TournamentID {
			continue
		}
		if other.Alias == reg.Alias {
			return repositories.ErrRegistrationAliasTaken
		}
	}
	updated := *reg
	updated.RegisteredAt = existing.RegisteredAt
	r.store.registrations[reg.ID] = updated
	return nil
}

func (r *fakeRegistrationRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, tournamentID, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.registrations[id]
	if !ok || reg.TournamentID != tournamentID {
		return repositories.ErrRegistrationNotFound
	}
	delete(r.store.registrations, id)
	return nil
}

func (r *fakeRegistrationRepo) FindByAlias(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID, alias string) (*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.registrations {
		if reg.TournamentID == tournamentID && reg.Alias == alias {
			match := reg
			return &match, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) FindByEmail(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID, email string) (*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.registrations {
		if reg.TournamentID == tournamentID && reg.Email == email {
			match := reg
			return &match, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) FindByAliasAndEmail(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID, alias, email string) (*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.registrations {
		if reg.TournamentID == tournamentID && reg.Alias == alias && reg.Email == email {
			match := reg
			return &match, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func beforeCursor(t time.Time, id uuid.UUID, after *repositories.Cursor) bool {
	if t.Before(after.Time) {
		return true
	}
	return t.Equal(after.Time) && id.String() < after.ID.String()
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			match := user
			return &match, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// captureNotifier records events delivered after commit.
type captureNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *captureNotifier) NotifyRegistration(tournamentID uuid.UUID, event string, reg *models.Registration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) SendRegistrationConfirmation(to, alias, tournamentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
