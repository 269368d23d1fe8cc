package handlers

import (
	"errors"
	"net/http"

	"github.com/nufflezone/tournament-registry/middleware"
	"github.com/nufflezone/tournament-registry/models"
	"github.com/nufflezone/tournament-registry/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(registrationService services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// Create godoc
// @Summary Register a coach for a tournament
// @Tags registrations
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param input body services.CreateRegistrationInput true "Registration details"
// @Success 201 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/registrations [post]
func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.Create(r.Context(), middleware.GetIdentity(r.Context()), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Fetch a single registration
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Param registrationID path string true "Registration ID"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/registrations/{registrationID} [get]
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	id, err := uuidParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.Get(r.Context(), middleware.GetIdentity(r.Context()), tournamentID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary List registrations for a tournament
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size"
// @Param cursor query string false "Pagination cursor"
// @Success 200 {object} services.RegistrationPage
// @Router /tournaments/{tournamentID}/registrations [get]
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var filter services.ListRegistrationsFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.RegistrationStatus(raw)
		if !status.Valid() {
			badRequestResponse(w, r, errors.New("invalid status parameter"))
			return
		}
		filter.Status = &status
	}

	page, err := parsePageQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.registrationService.List(r.Context(), middleware.GetIdentity(r.Context()), tournamentID, filter, page)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary Update a registration
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Param registrationID path string true "Registration ID"
// @Param input body services.UpdateRegistrationInput true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/registrations/{registrationID} [patch]
func (h *RegistrationHandler) Update(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	id, err := uuidParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var patch services.UpdateRegistrationInput
	if err := readJSON(w, r, &patch); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.Update(r.Context(), middleware.GetIdentity(r.Context()), tournamentID, id, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Withdraw a registration
// @Tags registrations
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Param registrationID path string true "Registration ID"
// @Success 204
// @Router /tournaments/{tournamentID}/registrations/{registrationID} [delete]
func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	id, err := uuidParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.Delete(r.Context(), middleware.GetIdentity(r.Context()), tournamentID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Lookup godoc
// @Summary Retrieve a registration by alias and email
// @Description Lets an anonymous registrant find their own registration.
// @Tags registrations
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param alias query string true "Registered alias"
// @Param email query string true "Registered email"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/registrations/lookup [get]
func (h *RegistrationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	query := r.URL.Query()
	reg, err := h.registrationService.Lookup(r.Context(), tournamentID, query.Get("alias"), query.Get("email"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
