package game

import (
	"sync"
	"time"
)

// User is a connected (or recently connected) player account. Users are
// created at first authenticated connection and live in the user store.
// ID and Created never change; everything else is guarded by mu because
// the cleanup sweep and the admin API read users concurrently with the
// session goroutine.
type User struct {
	ID      string
	Created time.Time

	mu         sync.RWMutex
	username   string
	roomID     string
	isAdmin    bool
	lastActive time.Time
	socketID   string
}

// UserInfo is the serializable snapshot of a user.
type UserInfo struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	RoomID         string    `json:"roomId,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	Created        time.Time `json:"created"`
	LastActiveTime time.Time `json:"lastActiveTime"`
}

// NewUser creates a user record.
func NewUser(id, username string) *User {
	now := time.Now()
	return &User{
		ID:         id,
		Created:    now,
		username:   username,
		lastActive: now,
	}
}

// Username returns the current display name.
func (u *User) Username() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.username
}

// SetUsername updates the display name.
func (u *User) SetUsername(name string) {
	u.mu.Lock()
	u.username = name
	u.mu.Unlock()
}

// Room returns the id of the room the user occupies, or "".
func (u *User) Room() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.roomID
}

// SetRoom records the room the user occupies. Empty means none.
func (u *User) SetRoom(roomID string) {
	u.mu.Lock()
	u.roomID = roomID
	u.mu.Unlock()
}

// IsAdmin reports whether the user hosts a room.
func (u *User) IsAdmin() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.isAdmin
}

// SetAdmin updates the host flag.
func (u *User) SetAdmin(admin bool) {
	u.mu.Lock()
	u.isAdmin = admin
	u.mu.Unlock()
}

// Touch refreshes the last-active timestamp.
func (u *User) Touch() {
	u.MarkActiveAt(time.Now())
}

// MarkActiveAt records activity at a specific instant.
func (u *User) MarkActiveAt(t time.Time) {
	u.mu.Lock()
	u.lastActive = t
	u.mu.Unlock()
}

// LastActive returns the last-active timestamp.
func (u *User) LastActive() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastActive
}

// SetSocket records which socket currently carries the session.
func (u *User) SetSocket(id string) {
	u.mu.Lock()
	u.socketID = id
	u.mu.Unlock()
}

// Snapshot returns a consistent copy safe to serialize.
func (u *User) Snapshot() UserInfo {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return UserInfo{
		ID:             u.ID,
		Username:       u.username,
		RoomID:         u.roomID,
		IsAdmin:        u.isAdmin,
		Created:        u.Created,
		LastActiveTime: u.lastActive,
	}
}
