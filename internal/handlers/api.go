package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/auth"
	"github.com/Xurify/flags.games-server/internal/game"
	"github.com/Xurify/flags.games-server/internal/validation"
)

// Status answers the bare liveness probe.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Healthz answers the JSON health probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

// Stats reports the live counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	activeGames := 0
	for _, room := range h.rooms.All() {
		if room.Snapshot().IsActive {
			activeGames++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":       h.rooms.Count(),
		"users":       h.users.Count(),
		"activeGames": activeGames,
		"timestamp":   time.Now().UnixMilli(),
	})
}

// RoomByInviteCode is the public pre-join room preview.
func (h *Handler) RoomByInviteCode(w http.ResponseWriter, r *http.Request) {
	code, err := validation.InviteCode(chi.URLParam(r, "inviteCode"))
	if err != nil {
		writeError(w, err)
		return
	}
	room, ok := h.rooms.GetByInviteCode(code)
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeRoomNotFound, "no room with that invite code"))
		return
	}

	snap := room.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"id":          snap.ID,
			"name":        snap.Name,
			"memberCount": len(snap.Members),
			"maxRoomSize": snap.Settings.MaxRoomSize,
			"isActive":    snap.IsActive,
			"gameMode":    snap.Settings.GameMode,
		},
	})
}

// AdminRooms dumps every room. Admin key required.
func (h *Handler) AdminRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.All()
	out := make([]game.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

// AdminUsers dumps every user. Admin key required.
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users := h.users.All()
	out := make([]game.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, u.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

type sessionRequest struct {
	Username string `json:"username"`
}

// CreateSession validates the requested username and mints the signed
// session cookie the upgrade endpoint requires. New identities only; a
// returning client keeps reusing its cookie until expiry.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "malformed request body"))
		return
	}

	username, err := validation.Username(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	user := h.users.Create(username)
	token, err := h.sessions.Mint(user.ID, username)
	if err != nil {
		h.logger.Error("minting session token", zap.Error(err))
		writeError(w, apperrors.New(apperrors.CodeInternal, "could not create session"))
		return
	}

	auth.SetCookie(w, token, r.TLS != nil)
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"userId":   user.ID,
			"username": username,
		},
	})
}
