package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/middleware"
)

// WebSocket upgrades the connection after the pre-upgrade gate: a valid
// session cookie, an allowed origin, and an IP that is neither suspicious
// nor over its connection budget.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.FromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ip := middleware.ClientIP(r)
	if ok, denial := h.ipGuard.Admit(ip); !ok {
		h.logger.Warn("upgrade denied",
			zap.String("ip", ip), zap.String("reason", string(denial)))
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.originAllowed,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.ipGuard.Release(ip)
		return
	}

	// Blocks until the session ends; chi runs each request on its own
	// goroutine.
	h.wsRouter.ServeConnection(conn, session, ip)
}

// originAllowed admits same-origin requests (no Origin header) and the
// configured allow list.
func (h *Handler) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
