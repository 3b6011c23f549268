package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/auth"
	"github.com/Xurify/flags.games-server/internal/game"
	"github.com/Xurify/flags.games-server/internal/protocol"
	"github.com/Xurify/flags.games-server/internal/questions"
	"github.com/Xurify/flags.games-server/internal/ratelimit"
	"github.com/Xurify/flags.games-server/internal/store"
	"github.com/Xurify/flags.games-server/internal/validation"
)

// Router consumes inbound frames for one connection at a time: size and
// shape checks, per-action rate limits, then dispatch by message type.
type Router struct {
	hub     *Hub
	rooms   *store.RoomStore
	users   *store.UserStore
	engine  *game.Engine
	limiter *ratelimit.Limiter
	logger  *zap.Logger

	maxMessageSize  int64
	defaultSettings game.RoomSettings
}

// NewRouter creates a router.
func NewRouter(hub *Hub, rooms *store.RoomStore, users *store.UserStore,
	engine *game.Engine, limiter *ratelimit.Limiter, logger *zap.Logger,
	maxMessageSize int64, defaultSettings game.RoomSettings) *Router {
	return &Router{
		hub:             hub,
		rooms:           rooms,
		users:           users,
		engine:          engine,
		limiter:         limiter,
		logger:          logger,
		maxMessageSize:  maxMessageSize,
		defaultSettings: defaultSettings,
	}
}

// ServeConnection runs the full lifecycle of an upgraded socket: session
// install, room hydration, AUTH_SUCCESS, then the read loop until close.
// Blocks until the connection is gone.
func (rt *Router) ServeConnection(wsConn *websocket.Conn, session auth.Session, ip string) {
	conn := newConnection(wsConn, session.UserID, ip)
	rt.onOpen(conn, session)
	rt.readLoop(conn)
	rt.hub.HandleDisconnect(conn)
}

func (rt *Router) onOpen(conn *Connection, session auth.Session) {
	user, ok := rt.users.Get(session.UserID)
	if !ok {
		user = game.NewUser(session.UserID, session.Username)
		rt.users.Add(user)
	}
	user.Touch()
	user.SetSocket(conn.IP)

	room := rt.hydrateRoom(user)
	rt.hub.Register(conn)

	var roomInfo *game.RoomInfo
	if room != nil {
		info := room.Snapshot()
		roomInfo = &info
	}
	snap := user.Snapshot()
	rt.hub.SendToUser(user.ID, protocol.TypeAuthSuccess, map[string]any{
		"userId":  user.ID,
		"isAdmin": snap.IsAdmin,
		"user":    snap,
		"room":    roomInfo,
	})

	rt.logger.Info("session opened",
		zap.String("userId", user.ID),
		zap.String("ip", conn.IP),
		zap.Bool("rejoined", room != nil))
}

// hydrateRoom reattaches a returning user to their room. A stale roomId
// that no longer names a live room falls back to a host search, so a host
// who reconnected mid-teardown finds their room again.
func (rt *Router) hydrateRoom(user *game.User) *game.Room {
	if roomID := user.Room(); roomID != "" {
		if room, ok := rt.rooms.Get(roomID); ok && room.HasMember(user.ID) {
			return room
		}
		user.SetRoom("")
	}
	for _, room := range rt.rooms.All() {
		if room.IsHost(user.ID) {
			if !room.HasMember(user.ID) {
				if err := room.AddMember(user.ID, user.Username()); err != nil {
					continue
				}
			}
			rt.users.SetRoom(user.ID, room.ID)
			return room
		}
	}
	return nil
}

func (rt *Router) readLoop(conn *Connection) {
	conn.ws.SetReadLimit(rt.maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				conn.Close(protocol.CloseMessageTooBig, "message too large")
			}
			return
		}
		rt.onMessage(conn, payload)
	}
}

func (rt *Router) onMessage(conn *Connection, payload []byte) {
	if len(payload) == 0 {
		rt.sendError(conn, apperrors.New(apperrors.CodeMessageError, "empty message"))
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Type == "" {
		rt.sendError(conn, apperrors.New(apperrors.CodeMessageError, "malformed message"))
		return
	}

	if res := rt.limiter.Allow(msg.Type, conn.UserID); !res.Allowed {
		rt.sendError(conn, apperrors.RateLimited(res.RetryAfter))
		return
	}

	// A frame for a deleted user means the session was revoked out of
	// band (kick grace expired, inactivity sweep).
	if !rt.users.Touch(conn.UserID) {
		conn.Close(protocol.CloseUnauthorized, "session no longer valid")
		return
	}

	var err error
	switch msg.Type {
	case protocol.TypeCreateRoom:
		err = rt.handleCreateRoom(conn, msg.Data)
	case protocol.TypeJoinRoom:
		err = rt.handleJoinRoom(conn, msg.Data)
	case protocol.TypeLeaveRoom:
		err = rt.handleLeaveRoom(conn)
	case protocol.TypeSubmitAnswer:
		err = rt.handleSubmitAnswer(conn, msg.Data)
	case protocol.TypeUpdateRoomSettings:
		err = rt.handleUpdateSettings(conn, msg.Data)
	case protocol.TypeKickUser:
		err = rt.handleKickUser(conn, msg.Data)
	case protocol.TypeStartGame:
		err = rt.withRoom(conn, rt.engine.StartGame)
	case protocol.TypeStopGame:
		err = rt.withRoom(conn, rt.engine.StopGame)
	case protocol.TypeRestartGame:
		err = rt.withRoom(conn, rt.engine.RestartGame)
	case protocol.TypeHeartbeatResponse:
		conn.NotifyHeartbeat()
	default:
		// Unknown types are ignored.
	}
	if err != nil {
		rt.sendError(conn, err)
	}
}

// withRoom resolves the caller's current room and applies op to it.
func (rt *Router) withRoom(conn *Connection, op func(roomID, userID string) error) error {
	user, ok := rt.users.Get(conn.UserID)
	if !ok {
		return apperrors.New(apperrors.CodeRoomNotFound, "you are not in a room")
	}
	roomID := user.Room()
	if roomID == "" {
		return apperrors.New(apperrors.CodeRoomNotFound, "you are not in a room")
	}
	return op(roomID, conn.UserID)
}

type createRoomData struct {
	Name     string                     `json:"name"`
	Username string                     `json:"username"`
	Settings *validation.SettingsUpdate `json:"settings"`
}

func (rt *Router) handleCreateRoom(conn *Connection, raw json.RawMessage) error {
	user, ok := rt.users.Get(conn.UserID)
	if !ok {
		return apperrors.New(apperrors.CodeUserNotFound, "unknown user")
	}
	if user.Room() != "" {
		return apperrors.New(apperrors.CodeUserAlreadyInRoom, "leave your current room first")
	}

	var data createRoomData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return apperrors.New(apperrors.CodeMessageError, "malformed CREATE_ROOM payload")
		}
	}

	username := user.Username()
	if data.Username != "" {
		cleaned, err := validation.Username(data.Username)
		if err != nil {
			return err
		}
		username = cleaned
		user.SetUsername(cleaned)
	}

	settings := rt.defaultSettings
	if data.Settings != nil {
		if err := validation.Settings(*data.Settings); err != nil {
			return err
		}
		applySettings(&settings, *data.Settings)
	}

	name := data.Name
	if name == "" {
		name = username + "'s room"
	}

	room, err := rt.rooms.CreateRoom(name, user.ID, settings)
	if err != nil {
		return err
	}
	if err := room.AddMember(user.ID, username); err != nil {
		rt.rooms.Delete(room.ID)
		return err
	}
	rt.users.SetRoom(user.ID, room.ID)
	user.SetAdmin(true)

	rt.logger.Info("room created",
		zap.String("roomId", room.ID),
		zap.String("inviteCode", room.InviteCode),
		zap.String("hostId", user.ID))

	rt.hub.SendToUser(user.ID, protocol.TypeCreateRoomSuccess, map[string]any{
		"room": room.Snapshot(),
		"user": user.Snapshot(),
	})
	return nil
}

type joinRoomData struct {
	InviteCode string `json:"inviteCode"`
	Username   string `json:"username"`
}

func (rt *Router) handleJoinRoom(conn *Connection, raw json.RawMessage) error {
	user, ok := rt.users.Get(conn.UserID)
	if !ok {
		return apperrors.New(apperrors.CodeUserNotFound, "unknown user")
	}
	if user.Room() != "" {
		return apperrors.New(apperrors.CodeUserAlreadyInRoom, "leave your current room first")
	}

	var data joinRoomData
	if err := json.Unmarshal(raw, &data); err != nil {
		return apperrors.New(apperrors.CodeMessageError, "malformed JOIN_ROOM payload")
	}

	code, err := validation.InviteCode(data.InviteCode)
	if err != nil {
		return err
	}
	username := user.Username()
	if data.Username != "" {
		cleaned, err := validation.Username(data.Username)
		if err != nil {
			return err
		}
		username = cleaned
		user.SetUsername(cleaned)
	}

	room, ok := rt.rooms.GetByInviteCode(code)
	if !ok {
		return apperrors.New(apperrors.CodeRoomNotFound, "no room with that invite code")
	}
	if err := room.AddMember(user.ID, username); err != nil {
		return err
	}
	rt.users.SetRoom(user.ID, room.ID)

	snapshot := room.Snapshot()
	rt.hub.SendToUser(user.ID, protocol.TypeJoinRoomSuccess, map[string]any{
		"room": snapshot,
		"user": user.Snapshot(),
	})
	rt.hub.SendToRoom(room.ID, protocol.TypeUserJoined, map[string]any{
		"user": map[string]any{"userId": user.ID, "username": username},
		"room": snapshot,
	}, user.ID)
	return nil
}

func (rt *Router) handleLeaveRoom(conn *Connection) error {
	user, ok := rt.users.Get(conn.UserID)
	if !ok {
		return apperrors.New(apperrors.CodeRoomNotFound, "you are not in a room")
	}
	roomID := user.Room()
	if roomID == "" {
		return apperrors.New(apperrors.CodeRoomNotFound, "you are not in a room")
	}
	rt.hub.LeaveRoom(user.ID, roomID)
	return nil
}

type submitAnswerData struct {
	Answer string `json:"answer"`
}

func (rt *Router) handleSubmitAnswer(conn *Connection, raw json.RawMessage) error {
	var data submitAnswerData
	if err := json.Unmarshal(raw, &data); err != nil {
		return apperrors.New(apperrors.CodeMessageError, "malformed SUBMIT_ANSWER payload")
	}
	answer, err := validation.Answer(data.Answer)
	if err != nil {
		return err
	}
	return rt.withRoom(conn, func(roomID, userID string) error {
		return rt.engine.SubmitAnswer(roomID, userID, answer)
	})
}

func (rt *Router) handleUpdateSettings(conn *Connection, raw json.RawMessage) error {
	var update validation.SettingsUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return apperrors.New(apperrors.CodeMessageError, "malformed UPDATE_ROOM_SETTINGS payload")
	}
	if err := validation.Settings(update); err != nil {
		return err
	}
	return rt.withRoom(conn, func(roomID, userID string) error {
		room, ok := rt.rooms.Get(roomID)
		if !ok {
			return apperrors.New(apperrors.CodeRoomNotFound, "room not found")
		}
		if !room.IsHost(userID) {
			return apperrors.New(apperrors.CodePermissionDenied, "only the host can change settings")
		}
		if err := room.UpdateSettings(update.Difficulty, update.MaxRoomSize,
			update.TimePerQuestion, update.GameMode); err != nil {
			return err
		}
		rt.hub.SendToRoom(roomID, protocol.TypeSettingsUpdated, map[string]any{
			"settings": room.Snapshot().Settings,
		})
		return nil
	})
}

type kickUserData struct {
	UserID string `json:"userId"`
}

func (rt *Router) handleKickUser(conn *Connection, raw json.RawMessage) error {
	var data kickUserData
	if err := json.Unmarshal(raw, &data); err != nil || data.UserID == "" {
		return apperrors.New(apperrors.CodeMessageError, "malformed KICK_USER payload")
	}
	return rt.withRoom(conn, func(roomID, userID string) error {
		room, ok := rt.rooms.Get(roomID)
		if !ok {
			return apperrors.New(apperrors.CodeRoomNotFound, "room not found")
		}
		if !room.IsHost(userID) {
			return apperrors.New(apperrors.CodePermissionDenied, "only the host can kick")
		}
		if data.UserID == userID {
			return apperrors.New(apperrors.CodeInvalidInput, "cannot kick yourself")
		}
		if !room.HasMember(data.UserID) {
			return apperrors.New(apperrors.CodeUserNotFound, "no such member")
		}

		room.Kick(data.UserID)
		rt.users.SetRoom(data.UserID, "")

		rt.hub.SendToRoom(roomID, protocol.TypeUserKicked, map[string]any{
			"userId": data.UserID,
			"room":   room.Snapshot(),
		})
		rt.hub.SendToUser(data.UserID, protocol.TypeKicked, map[string]any{
			"reason": "removed by the host",
		})

		// Grace period so the KICKED frame drains before the socket drops.
		kickedID := data.UserID
		time.AfterFunc(500*time.Millisecond, func() {
			rt.hub.DisconnectUser(kickedID)
		})

		if rt.engine != nil {
			rt.engine.HandleMemberLeft(roomID)
		}
		return nil
	})
}

func (rt *Router) sendError(conn *Connection, err error) {
	ae := apperrors.From(err)
	rt.hub.SendToUser(conn.UserID, protocol.TypeError, protocol.ErrorData{
		Code:    string(ae.Code),
		Message: ae.Message,
		Details: ae.Details,
	})
}

func applySettings(s *game.RoomSettings, u validation.SettingsUpdate) {
	if u.Difficulty != nil {
		s.Difficulty = *u.Difficulty
		s.QuestionCount = questions.QuestionCount(*u.Difficulty)
	}
	if u.MaxRoomSize != nil {
		s.MaxRoomSize = *u.MaxRoomSize
	}
	if u.TimePerQuestion != nil {
		s.TimePerQuestion = *u.TimePerQuestion
	}
	if u.GameMode != nil {
		s.GameMode = *u.GameMode
	}
}
