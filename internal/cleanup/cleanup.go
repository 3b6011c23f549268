// Package cleanup runs the periodic sweeps that reclaim abandoned users
// and rooms.
package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/config"
	"github.com/Xurify/flags.games-server/internal/protocol"
	"github.com/Xurify/flags.games-server/internal/store"
	"github.com/Xurify/flags.games-server/internal/ws"
)

// Service sweeps on a fixed interval: inactive users, lingering empty
// rooms, and rooms past their lifetime. Sub-sweeps are isolated so one
// failing pass never stops the others.
type Service struct {
	rooms    *store.RoomStore
	users    *store.UserStore
	hub      *ws.Hub
	logger   *zap.Logger
	settings config.CleanupSettings
	lifetime time.Duration

	mu         sync.Mutex
	warned     map[string]bool      // rooms already sent a TTL warning
	emptySince map[string]time.Time // when a room was first seen memberless

	now func() time.Time
}

// NewService creates a cleanup service.
func NewService(rooms *store.RoomStore, users *store.UserStore, hub *ws.Hub,
	logger *zap.Logger, settings config.CleanupSettings, lifetime time.Duration) *Service {
	return &Service{
		rooms:    rooms,
		users:    users,
		hub:      hub,
		logger:   logger,
		settings:   settings,
		lifetime:   lifetime,
		warned:     make(map[string]bool),
		emptySince: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one full cleanup cycle.
func (s *Service) Sweep() {
	users := s.sweepInactiveUsers()
	empty := s.sweepEmptyRooms()
	expired := s.sweepExpiredRooms()

	s.logger.Info("cleanup sweep finished",
		zap.Int("inactiveUsers", users),
		zap.Int("emptyRooms", empty),
		zap.Int("expiredRooms", expired))
}

// sweepInactiveUsers drops users idle past the timeout. Disconnection
// removes them from their rooms with the usual host succession.
func (s *Service) sweepInactiveUsers() int {
	defer s.recoverSweep("inactive users")

	cutoff := s.now().Add(-s.settings.InactiveUserTimeout)
	stale := s.users.InactiveSince(cutoff)
	for _, u := range stale {
		s.hub.DisconnectUser(u.ID)
	}
	return len(stale)
}

// sweepEmptyRooms deletes rooms that have sat memberless past the timeout.
// Departures normally tear empty rooms down eagerly; this catches rooms
// that were created but never joined.
func (s *Service) sweepEmptyRooms() int {
	defer s.recoverSweep("empty rooms")

	now := s.now()
	removed := 0
	live := make(map[string]bool)
	for _, room := range s.rooms.All() {
		live[room.ID] = true
		if room.MemberCount() > 0 {
			s.clearEmptySince(room.ID)
			continue
		}

		since, tracked := s.emptySinceFor(room.ID)
		if !tracked {
			s.markEmptySince(room.ID, now)
			continue
		}
		if now.Sub(since) >= s.settings.EmptyRoomTimeout {
			s.hub.TeardownRoom(room.ID)
			s.forget(room.ID)
			removed++
		}
	}

	// Rooms torn down elsewhere leave stale tracking entries behind.
	s.mu.Lock()
	for id := range s.emptySince {
		if !live[id] {
			delete(s.emptySince, id)
		}
	}
	s.mu.Unlock()
	return removed
}

// sweepExpiredRooms warns rooms nearing their lifetime and purges rooms
// past it.
func (s *Service) sweepExpiredRooms() int {
	defer s.recoverSweep("expired rooms")

	now := s.now()
	removed := 0
	for _, room := range s.rooms.All() {
		expiresAt := room.CreatedAt.Add(s.lifetime)
		remaining := expiresAt.Sub(now)

		switch {
		case remaining <= 0:
			s.hub.SendToRoom(room.ID, protocol.TypeRoomExpired, map[string]any{
				"roomId": room.ID,
			})
			for _, memberID := range room.MemberIDs() {
				s.users.SetRoom(memberID, "")
			}
			s.hub.TeardownRoom(room.ID)
			s.forget(room.ID)
			removed++

		case remaining <= s.settings.TTLWarningWindow && !s.hasWarned(room.ID):
			s.hub.SendToRoom(room.ID, protocol.TypeRoomTTLWarning, map[string]any{
				"roomId":      room.ID,
				"expiresAt":   expiresAt.UnixMilli(),
				"remainingMs": remaining.Milliseconds(),
			})
			s.markWarned(room.ID)
		}
	}
	return removed
}

func (s *Service) hasWarned(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warned[roomID]
}

func (s *Service) markWarned(roomID string) {
	s.mu.Lock()
	s.warned[roomID] = true
	s.mu.Unlock()
}

func (s *Service) forget(roomID string) {
	s.mu.Lock()
	delete(s.warned, roomID)
	delete(s.emptySince, roomID)
	s.mu.Unlock()
}

func (s *Service) emptySinceFor(roomID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.emptySince[roomID]
	return t, ok
}

func (s *Service) markEmptySince(roomID string, t time.Time) {
	s.mu.Lock()
	s.emptySince[roomID] = t
	s.mu.Unlock()
}

func (s *Service) clearEmptySince(roomID string) {
	s.mu.Lock()
	delete(s.emptySince, roomID)
	s.mu.Unlock()
}

func (s *Service) recoverSweep(name string) {
	if r := recover(); r != nil {
		s.logger.Error("cleanup sweep panicked",
			zap.String("sweep", name), zap.Any("panic", r))
	}
}
