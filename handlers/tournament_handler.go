package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/middleware"
	"github.com/nufflezone/tournament-registry/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

// Create godoc
// @Summary Create a tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body services.CreateTournamentInput true "Tournament details"
// @Success 201 {object} map[string]interface{}
// @Router /tournaments [post]
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), middleware.GetIdentity(r.Context()), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Fetch a tournament
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), middleware.GetIdentity(r.Context()), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary List tournaments
// @Tags tournaments
// @Produce json
// @Param organizer_id query string false "Filter by organizer"
// @Param registration_open query boolean false "Filter by open registration"
// @Param limit query int false "Page size"
// @Param cursor query string false "Pagination cursor"
// @Success 200 {object} services.TournamentPage
// @Router /tournaments [get]
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseTournamentListQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.tournamentService.List(r.Context(), middleware.GetIdentity(r.Context()), filter, page)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary Update a tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Param input body services.UpdateTournamentInput true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID} [patch]
func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var patch services.UpdateTournamentInput
	if err := readJSON(w, r, &patch); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), middleware.GetIdentity(r.Context()), id, patch)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Delete a tournament and all its registrations
// @Tags tournaments
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Success 204
// @Router /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo godoc
// @Summary Upload a tournament logo
// @Tags tournaments
// @Accept octet-stream
// @Produce json
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments/{tournamentID}/logo [put]
func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("Content-Type header is required"))
		return
	}

	const maxLogoBytes = 5 << 20 // 5MB
	body := http.MaxBytesReader(w, r.Body, maxLogoBytes)

	tournament, err := h.tournamentService.UploadLogo(r.Context(), middleware.GetIdentity(r.Context()), id, contentType, body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteLogo godoc
// @Summary Remove a tournament logo
// @Tags tournaments
// @Security BearerAuth
// @Param tournamentID path string true "Tournament ID"
// @Success 204
// @Router /tournaments/{tournamentID}/logo [delete]
func (h *TournamentHandler) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteLogo(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseTournamentListQuery(r *http.Request) (services.ListTournamentsFilter, services.Page, error) {
	var filter services.ListTournamentsFilter
	query := r.URL.Query()

	if raw := query.Get("organizer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, services.Page{}, errors.New("invalid organizer_id parameter")
		}
		filter.OrganizerID = &id
	}
	if raw := query.Get("registration_open"); raw != "" {
		open, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, services.Page{}, errors.New("invalid registration_open parameter")
		}
		filter.RegistrationOpen = &open
	}

	page, err := parsePageQuery(r)
	return filter, page, err
}

func parsePageQuery(r *http.Request) (services.Page, error) {
	var page services.Page
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return page, errors.New("invalid limit parameter")
		}
		page.Limit = limit
	}
	page.Cursor = query.Get("cursor")
	return page, nil
}
