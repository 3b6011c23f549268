// Package handlers is the HTTP surface: health and stats endpoints, room
// lookups, the admin dump routes, session issuance and the WebSocket
// upgrade.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/auth"
	"github.com/Xurify/flags.games-server/internal/config"
	"github.com/Xurify/flags.games-server/internal/ratelimit"
	"github.com/Xurify/flags.games-server/internal/store"
	"github.com/Xurify/flags.games-server/internal/ws"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	cfg      *config.Config
	rooms    *store.RoomStore
	users    *store.UserStore
	hub      *ws.Hub
	wsRouter *ws.Router
	sessions *auth.Manager
	ipGuard  *ratelimit.IPGuard
	logger   *zap.Logger
}

// New creates a handler.
func New(cfg *config.Config, rooms *store.RoomStore, users *store.UserStore,
	hub *ws.Hub, wsRouter *ws.Router, sessions *auth.Manager,
	ipGuard *ratelimit.IPGuard, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		rooms:    rooms,
		users:    users,
		hub:      hub,
		wsRouter: wsRouter,
		sessions: sessions,
		ipGuard:  ipGuard,
		logger:   logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError renders the error envelope with the status matching the code.
func writeError(w http.ResponseWriter, err error) {
	ae := apperrors.From(err)
	writeJSON(w, ae.HTTPStatus(), map[string]any{
		"error": map[string]any{
			"code":      ae.Code,
			"message":   ae.Message,
			"timestamp": time.Now().UnixMilli(),
			"details":   ae.Details,
		},
	})
}
