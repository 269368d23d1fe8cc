package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nufflezone/tournament-registry/live"
	"github.com/nufflezone/tournament-registry/middleware"
	"github.com/nufflezone/tournament-registry/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the router; the browser's Origin check
		// adds nothing for a public read-only stream.
		return true
	},
}

type WebSocketHandler struct {
	hub               *live.Hub
	tournamentService services.TournamentService
}

func NewWebSocketHandler(hub *live.Hub, tournamentService services.TournamentService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tournamentService: tournamentService}
}

// ServeWs upgrades the connection and subscribes it to the tournament's
// registration event stream.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuidParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Visibility rules apply to the stream as well.
	if _, err := h.tournamentService.Get(r.Context(), middleware.GetIdentity(r.Context()), tournamentID); err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			forbiddenResponse(w, r, err.Error())
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket connection",
			slog.String("tournament_id", tournamentID.String()), slog.Any("error", err))
		return
	}

	h.hub.Subscribe(tournamentID, conn)
}
