package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Xurify/flags.games-server/internal/game"
)

// UserStore is the in-memory user registry, keyed by user id.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*game.User
}

// NewUserStore creates an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*game.User)}
}

// Create registers a new user with a fresh id.
func (s *UserStore) Create(username string) *game.User {
	user := game.NewUser(uuid.NewString(), username)

	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
	return user
}

// Add registers an existing user record, replacing any previous one with
// the same id. Used when rehydrating a session.
func (s *UserStore) Add(user *game.User) {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// Get returns the user with the given id.
func (s *UserStore) Get(userID string) (*game.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// Delete removes the user. Removing an unknown id is a no-op.
func (s *UserStore) Delete(userID string) {
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
}

// Touch refreshes the user's last-active timestamp. It reports whether
// the user still exists.
func (s *UserStore) Touch(userID string) bool {
	u, ok := s.Get(userID)
	if ok {
		u.Touch()
	}
	return ok
}

// SetRoom records the room a user currently occupies. Empty means none.
func (s *UserStore) SetRoom(userID, roomID string) {
	if u, ok := s.Get(userID); ok {
		u.SetRoom(roomID)
	}
}

// InactiveSince returns users whose last activity is before the cutoff.
func (s *UserStore) InactiveSince(cutoff time.Time) []*game.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*game.User
	for _, u := range s.users {
		if u.LastActive().Before(cutoff) {
			out = append(out, u)
		}
	}
	return out
}

// All returns the current users in unspecified order.
func (s *UserStore) All() []*game.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*game.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

// Count returns the number of users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
