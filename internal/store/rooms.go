// Package store holds all session state in memory. The process is the
// single source of truth; nothing is persisted.
package store

import (
	"crypto/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/game"
)

const codeRetries = 10

// RoomStore is the in-memory room registry, indexed by room id and by
// invite code.
type RoomStore struct {
	mu         sync.RWMutex
	rooms      map[string]*game.Room
	byInvite   map[string]string // invite code -> room id
	codeLength int
}

// NewRoomStore creates an empty store generating invite codes of the
// given length.
func NewRoomStore(codeLength int) *RoomStore {
	return &RoomStore{
		rooms:      make(map[string]*game.Room),
		byInvite:   make(map[string]string),
		codeLength: codeLength,
	}
}

// CreateRoom registers a new room with a fresh id and a unique invite
// code. Code generation retries on collision and gives up after a bounded
// number of attempts.
func (s *RoomStore) CreateRoom(name, hostID string, settings game.RoomSettings) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for i := 0; ; i++ {
		if i >= codeRetries {
			return nil, apperrors.New(apperrors.CodeInternal, "could not allocate an invite code")
		}
		code = generateInviteCode(s.codeLength)
		if _, taken := s.byInvite[code]; !taken {
			break
		}
	}

	room := game.NewRoom(uuid.NewString(), name, hostID, code, settings)
	s.rooms[room.ID] = room
	s.byInvite[code] = room.ID
	return room, nil
}

// Get returns the room with the given id.
func (s *RoomStore) Get(roomID string) (*game.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

// GetByInviteCode returns the room with the given invite code.
func (s *RoomStore) GetByInviteCode(code string) (*game.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byInvite[code]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[id]
	return room, ok
}

// Delete removes the room and frees its invite code. Removing an unknown
// id is a no-op.
func (s *RoomStore) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	delete(s.byInvite, room.InviteCode)
	delete(s.rooms, roomID)
}

// All returns the current rooms in unspecified order.
func (s *RoomStore) All() []*game.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*game.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Count returns the number of rooms.
func (s *RoomStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// generateInviteCode draws n characters from the unambiguous
// uppercase-alphanumeric alphabet.
func generateInviteCode(n int) string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	rand.Read(b)

	for i := range b {
		b[i] = chars[b[i]%byte(len(chars))]
	}
	return string(b)
}
