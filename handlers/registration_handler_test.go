package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/models"
	"github.com/nufflezone/tournament-registry/services"
)

// stubRegistrationService returns canned results and records the arguments it
// was called with.
type stubRegistrationService struct {
	createCaller *models.Identity
	createInput  services.CreateRegistrationInput
	createResult *models.Registration
	createErr    error

	lookupAlias string
	lookupEmail string
	lookupErr   error
}

func (s *stubRegistrationService) Create(ctx context.Context, caller *models.Identity, tournamentID uuid.UUID, input services.CreateRegistrationInput) (*models.Registration, error) {
	s.createCaller = caller
	s.createInput = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResult, nil
}

func (s *stubRegistrationService) Get(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID) (*models.Registration, error) {
	return nil, services.ErrRegistrationNotFound
}

func (s *stubRegistrationService) List(ctx context.Context, caller *models.Identity, tournamentID uuid.UUID, filter services.ListRegistrationsFilter, page services.Page) (*services.RegistrationPage, error) {
	return &services.RegistrationPage{Items: []models.Registration{}}, nil
}

func (s *stubRegistrationService) Update(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID, patch services.UpdateRegistrationInput) (*models.Registration, error) {
	return nil, services.ErrRegistrationNotFound
}

func (s *stubRegistrationService) Delete(ctx context.Context, caller *models.Identity, tournamentID, id uuid.UUID) error {
	return services.ErrRegistrationNotFound
}

func (s *stubRegistrationService) Lookup(ctx context.Context, tournamentID uuid.UUID, alias, email string) (*models.Registration, error) {
	s.lookupAlias = alias
	s.lookupEmail = email
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return &models.Registration{ID: uuid.New(), TournamentID: tournamentID, Alias: alias}, nil
}

func newRegistrationTestRouter(stub *stubRegistrationService) *chi.Mux {
	h := NewRegistrationHandler(stub)
	router := chi.NewRouter()
	router.Post("/tournaments/{tournamentID}/registrations", h.Create)
	router.Get("/tournaments/{tournamentID}/registrations/lookup", h.Lookup)
	return router
}

func TestRegistrationHandler_Create(t *testing.T) {
	tournamentID := uuid.New()
	stub := &stubRegistrationService{
		createResult: &models.Registration{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Alias:        "grimgor",
			Status:       models.RegistrationPending,
		},
	}
	router := newRegistrationTestRouter(stub)

	body := `{"alias": "grimgor", "email": "grimgor@example.com", "team_race": "orc"}`
	req := httptest.NewRequest(http.MethodPost, "/tournaments/"+tournamentID.String()+"/registrations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if stub.createCaller != nil {
		t.Error("caller should be nil for an unauthenticated request")
	}
	if stub.createInput.Alias != "grimgor" {
		t.Errorf("alias passed to service = %q", stub.createInput.Alias)
	}

	var resp struct {
		Registration models.Registration `json:"registration"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Registration.Alias != "grimgor" {
		t.Errorf("response alias = %q", resp.Registration.Alias)
	}
}

func TestRegistrationHandler_CreateErrors(t *testing.T) {
	tournamentID := uuid.New()

	tests := []struct {
		name   string
		body   string
		svcErr error
		status int
	}{
		{"bad tournament id in path handled by router", `{}`, nil, http.StatusBadRequest},
		{"malformed body", `{"alias":`, nil, http.StatusBadRequest},
		{"tournament full", `{"alias": "grimgor", "email": "a@b.com", "team_race": "orc"}`, services.ErrTournamentFull, http.StatusConflict},
		{"closed", `{"alias": "grimgor", "email": "a@b.com", "team_race": "orc"}`, services.ErrRegistrationClosed, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubRegistrationService{createErr: tc.svcErr, createResult: &models.Registration{}}
			router := newRegistrationTestRouter(stub)

			path := "/tournaments/" + tournamentID.String() + "/registrations"
			if tc.name == "bad tournament id in path handled by router" {
				path = "/tournaments/not-a-uuid/registrations"
			}
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestRegistrationHandler_Lookup(t *testing.T) {
	tournamentID := uuid.New()
	stub := &stubRegistrationService{}
	router := newRegistrationTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet,
		"/tournaments/"+tournamentID.String()+"/registrations/lookup?alias=grimgor&email=grimgor%40example.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if stub.lookupAlias != "grimgor" || stub.lookupEmail != "grimgor@example.com" {
		t.Errorf("lookup args = %q / %q", stub.lookupAlias, stub.lookupEmail)
	}
}

func TestRegistrationHandler_LookupNotFound(t *testing.T) {
	tournamentID := uuid.New()
	stub := &stubRegistrationService{lookupErr: services.ErrRegistrationNotFound}
	router := newRegistrationTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet,
		"/tournaments/"+tournamentID.String()+"/registrations/lookup?alias=nobody&email=nobody%40example.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
