package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/config"
	"github.com/Xurify/flags.games-server/internal/game"
	"github.com/Xurify/flags.games-server/internal/protocol"
	"github.com/Xurify/flags.games-server/internal/store"
)

// Hub ties the connection registry to the stores and the engine. It is the
// broadcaster the engine emits through, and it owns the disconnect flow.
type Hub struct {
	registry *Registry
	rooms    *store.RoomStore
	users    *store.UserStore
	engine   *game.Engine
	logger   *zap.Logger

	maxBuffered int64
	heartbeat   config.HeartbeatSettings

	// releaseIP returns a connection slot to the per-IP guard.
	releaseIP func(ip string)
}

// NewHub creates a hub. The engine is attached afterwards via SetEngine
// because it broadcasts through the hub.
func NewHub(rooms *store.RoomStore, users *store.UserStore, logger *zap.Logger,
	maxBuffered int64, heartbeat config.HeartbeatSettings, releaseIP func(ip string)) *Hub {
	if releaseIP == nil {
		releaseIP = func(string) {}
	}
	return &Hub{
		registry:    NewRegistry(),
		rooms:       rooms,
		users:       users,
		logger:      logger,
		maxBuffered: maxBuffered,
		heartbeat:   heartbeat,
		releaseIP:   releaseIP,
	}
}

// SetEngine attaches the game engine.
func (h *Hub) SetEngine(e *game.Engine) { h.engine = e }

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int { return h.registry.Count() }

// SendToUser serializes and delivers one frame to one user.
func (h *Hub) SendToUser(userID string, msgType string, data any) {
	frame, err := protocol.Outbound(msgType, data)
	if err != nil {
		h.logger.Error("dropping unserializable frame",
			zap.String("type", msgType), zap.Error(err))
		return
	}
	h.safeSend(userID, frame)
}

// SendToUsers serializes once and delivers to each listed user.
func (h *Hub) SendToUsers(userIDs []string, msgType string, data any) {
	frame, err := protocol.Outbound(msgType, data)
	if err != nil {
		h.logger.Error("dropping unserializable frame",
			zap.String("type", msgType), zap.Error(err))
		return
	}
	for _, id := range userIDs {
		h.safeSend(id, frame)
	}
}

// SendToRoom delivers to every member of a room except those listed.
func (h *Hub) SendToRoom(roomID string, msgType string, data any, exclude ...string) {
	room, ok := h.rooms.Get(roomID)
	if !ok {
		return
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var recipients []string
	for _, id := range room.MemberIDs() {
		if !skip[id] {
			recipients = append(recipients, id)
		}
	}
	h.SendToUsers(recipients, msgType, data)
}

// SendToAll delivers to every live connection.
func (h *Hub) SendToAll(msgType string, data any) {
	frame, err := protocol.Outbound(msgType, data)
	if err != nil {
		return
	}
	for _, c := range h.registry.All() {
		h.safeSendConn(c, frame)
	}
}

// safeSend resolves the user's connection and enqueues. A missing
// connection is not an error; the member may be between sessions.
func (h *Hub) safeSend(userID string, frame []byte) {
	conn, ok := h.registry.Get(userID)
	if !ok {
		return
	}
	h.safeSendConn(conn, frame)
}

// safeSendConn enqueues on a connection, evicting it on backpressure. A
// queue above the buffered-bytes ceiling or a full channel both mean the
// client is not draining.
func (h *Hub) safeSendConn(conn *Connection, frame []byte) {
	if conn.Buffered() > h.maxBuffered || !conn.Enqueue(frame) {
		h.logger.Warn("closing connection on backpressure",
			zap.String("userId", conn.UserID),
			zap.Int64("buffered", conn.Buffered()))
		conn.Close(protocol.CloseBackpressure, "backpressure")
		go h.HandleDisconnect(conn)
	}
}

// HandleDisconnect runs the teardown for a lost connection. Runs at most
// once per connection; the backpressure path and the read loop can both
// get here. A superseded connection only drops its stale registration;
// the user lives on under the new session.
func (h *Hub) HandleDisconnect(conn *Connection) {
	if !conn.tornDown.CompareAndSwap(false, true) {
		return
	}
	conn.Close(websocket.CloseNormalClosure, "")
	h.registry.Remove(conn)
	h.releaseIP(conn.IP)

	if conn.Superseded() {
		return
	}
	h.removeFromWorld(conn.UserID)
}

// DisconnectUser closes and tears down the user's live session, if any.
// The user is removed from their room either way.
func (h *Hub) DisconnectUser(userID string) {
	if conn, ok := h.registry.Get(userID); ok {
		// Superseded marking keeps HandleDisconnect from repeating the
		// room removal done below.
		conn.MarkSuperseded()
		h.HandleDisconnect(conn)
	}
	h.removeFromWorld(userID)
}

// removeFromWorld removes the user from their room, running host
// succession and room teardown, then deletes the user record.
func (h *Hub) removeFromWorld(userID string) {
	if user, ok := h.users.Get(userID); ok {
		if roomID := user.Room(); roomID != "" {
			h.LeaveRoom(userID, roomID)
		}
	}
	h.users.Delete(userID)
}

// LeaveRoom detaches a user from a room: membership removal, host
// succession, USER_LEFT, and teardown when the room empties.
func (h *Hub) LeaveRoom(userID, roomID string) {
	room, ok := h.rooms.Get(roomID)
	if !ok {
		h.users.SetRoom(userID, "")
		return
	}

	newHost, hostChanged := room.RemoveMember(userID)
	h.users.SetRoom(userID, "")

	if room.MemberCount() == 0 {
		h.TeardownRoom(roomID)
		return
	}

	if hostChanged {
		if u, ok := h.users.Get(newHost); ok {
			u.SetAdmin(true)
		}
		h.SendToRoom(roomID, protocol.TypeHostChanged, map[string]any{
			"newHost": newHost,
		})
	}
	h.SendToRoom(roomID, protocol.TypeUserLeft, map[string]any{
		"userId": userID,
		"room":   room.Snapshot(),
	})

	if h.engine != nil {
		h.engine.HandleMemberLeft(roomID)
	}
}

// TeardownRoom stops any running game and deletes the room.
func (h *Hub) TeardownRoom(roomID string) {
	if h.engine != nil {
		h.engine.StopForTeardown(roomID)
		h.engine.Timers().Cancel(roomID)
	}
	h.rooms.Delete(roomID)
	h.logger.Info("room deleted", zap.String("roomId", roomID))
}

// Shutdown closes every live connection with a going-away frame.
func (h *Hub) Shutdown() {
	for _, c := range h.registry.All() {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
}

// Register installs a connection, starts its pumps and its heartbeat.
func (h *Hub) Register(conn *Connection) {
	h.registry.Add(conn)
	go conn.writePump()
	go h.runHeartbeat(conn)
}

// runHeartbeat probes the connection with HEARTBEAT frames. A reply inside
// the timeout resets the miss counter; reaching the miss ceiling is
// liveness loss.
func (h *Hub) runHeartbeat(conn *Connection) {
	ticker := time.NewTicker(h.heartbeat.Interval)
	defer ticker.Stop()

	timeout := time.NewTimer(h.heartbeat.Timeout)
	if !timeout.Stop() {
		<-timeout.C
	}
	defer timeout.Stop()

	missed := 0
	for {
		select {
		case <-conn.Done():
			return
		case <-ticker.C:
		}

		frame, err := protocol.Outbound(protocol.TypeHeartbeat, map[string]any{
			"timestamp": time.Now().UnixMilli(),
		})
		if err != nil {
			continue
		}
		if !conn.Enqueue(frame) {
			h.HandleDisconnect(conn)
			return
		}

		// A reply that arrived after the previous probe timed out is
		// stale and must not satisfy this one.
		conn.clearStaleHeartbeat()

		timeout.Reset(h.heartbeat.Timeout)
		select {
		case <-conn.pong:
			if !timeout.Stop() {
				<-timeout.C
			}
			missed = 0
			h.users.Touch(conn.UserID)
		case <-timeout.C:
			missed++
			if missed >= h.heartbeat.MaxMissed {
				h.logger.Info("heartbeat liveness lost",
					zap.String("userId", conn.UserID), zap.Int("missed", missed))
				conn.Close(websocket.CloseNormalClosure, "heartbeat timeout")
				h.HandleDisconnect(conn)
				return
			}
		case <-conn.Done():
			return
		}
	}
}
