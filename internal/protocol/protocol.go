// Package protocol defines the WebSocket wire format shared by the session
// router, the game engine and the broadcaster.
package protocol

import (
	"encoding/json"
	"time"
)

// Client → server message types.
const (
	TypeCreateRoom         = "CREATE_ROOM"
	TypeJoinRoom           = "JOIN_ROOM"
	TypeLeaveRoom          = "LEAVE_ROOM"
	TypeSubmitAnswer       = "SUBMIT_ANSWER"
	TypeUpdateRoomSettings = "UPDATE_ROOM_SETTINGS"
	TypeKickUser           = "KICK_USER"
	TypeStartGame          = "START_GAME"
	TypeStopGame           = "STOP_GAME"
	TypeRestartGame        = "RESTART_GAME"
	TypeHeartbeatResponse  = "HEARTBEAT_RESPONSE"
)

// Server → client message types.
const (
	TypeAuthSuccess       = "AUTH_SUCCESS"
	TypeCreateRoomSuccess = "CREATE_ROOM_SUCCESS"
	TypeJoinRoomSuccess   = "JOIN_ROOM_SUCCESS"
	TypeUserJoined        = "USER_JOINED"
	TypeUserLeft          = "USER_LEFT"
	TypeUserKicked        = "USER_KICKED"
	TypeHostChanged       = "HOST_CHANGED"
	TypeKicked            = "KICKED"
	TypeGameStarting      = "GAME_STARTING"
	TypeGameRestarted     = "GAME_RESTARTED"
	TypeNewQuestion       = "NEW_QUESTION"
	TypeAnswerSubmitted   = "ANSWER_SUBMITTED"
	TypeQuestionResults   = "QUESTION_RESULTS"
	TypeGameEnded         = "GAME_ENDED"
	TypeGameStopped       = "GAME_STOPPED"
	TypeSettingsUpdated   = "SETTINGS_UPDATED"
	TypeRoomTTLWarning    = "ROOM_TTL_WARNING"
	TypeRoomExpired       = "ROOM_EXPIRED"
	TypeHeartbeat         = "HEARTBEAT"
	TypeError             = "ERROR"
)

// Close codes beyond the RFC 6455 set.
const (
	CloseSupersededSession = 4000
	CloseUnauthorized      = 4001
	CloseMessageTooBig     = 1009
	CloseBackpressure      = 1013
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Outbound builds a server frame, stamping the current server time in
// milliseconds. Marshal failures are reported so callers can drop the frame
// rather than send garbage.
func Outbound(msgType string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Message{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ErrorData is the payload of an ERROR frame.
type ErrorData struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
