package store

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xurify/flags.games-server/internal/game"
)

func TestRoomStore(t *testing.T) {
	t.Run("create assigns id and invite code", func(t *testing.T) {
		s := NewRoomStore(6)
		room, err := s.CreateRoom("My Room", "host-1", game.DefaultSettings())
		require.NoError(t, err)

		assert.NotEmpty(t, room.ID)
		assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.InviteCode)
		assert.Equal(t, "host-1", room.Host)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("lookup by id and invite code", func(t *testing.T) {
		s := NewRoomStore(6)
		room, err := s.CreateRoom("My Room", "host-1", game.DefaultSettings())
		require.NoError(t, err)

		byID, ok := s.Get(room.ID)
		require.True(t, ok)
		assert.Same(t, room, byID)

		byCode, ok := s.GetByInviteCode(room.InviteCode)
		require.True(t, ok)
		assert.Same(t, room, byCode)

		_, ok = s.Get("missing")
		assert.False(t, ok)
		_, ok = s.GetByInviteCode("ZZZZZZ")
		assert.False(t, ok)
	})

	t.Run("invite codes are unique", func(t *testing.T) {
		s := NewRoomStore(6)
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			room, err := s.CreateRoom("Room", "host", game.DefaultSettings())
			require.NoError(t, err)
			assert.False(t, seen[room.InviteCode])
			seen[room.InviteCode] = true
		}
	})

	t.Run("delete frees the invite code", func(t *testing.T) {
		s := NewRoomStore(6)
		room, err := s.CreateRoom("Room", "host", game.DefaultSettings())
		require.NoError(t, err)

		s.Delete(room.ID)
		assert.Equal(t, 0, s.Count())
		_, ok := s.GetByInviteCode(room.InviteCode)
		assert.False(t, ok)

		s.Delete(room.ID) // no-op
	})
}

func TestUserStore(t *testing.T) {
	t.Run("create and lookup", func(t *testing.T) {
		s := NewUserStore()
		u := s.Create("alice")

		assert.NotEmpty(t, u.ID)
		got, ok := s.Get(u.ID)
		require.True(t, ok)
		assert.Same(t, u, got)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("set room and delete", func(t *testing.T) {
		s := NewUserStore()
		u := s.Create("alice")

		s.SetRoom(u.ID, "room-1")
		got, _ := s.Get(u.ID)
		assert.Equal(t, "room-1", got.Room())

		s.Delete(u.ID)
		_, ok := s.Get(u.ID)
		assert.False(t, ok)
	})

	t.Run("inactive since", func(t *testing.T) {
		s := NewUserStore()
		stale := s.Create("stale")
		fresh := s.Create("fresh")

		stale.MarkActiveAt(time.Now().Add(-10 * time.Minute))

		inactive := s.InactiveSince(time.Now().Add(-5 * time.Minute))
		require.Len(t, inactive, 1)
		assert.Equal(t, stale.ID, inactive[0].ID)

		assert.True(t, s.Touch(stale.ID))
		assert.Empty(t, s.InactiveSince(time.Now().Add(-5*time.Minute)))
		assert.False(t, s.Touch("no-such-user"))
		_ = fresh
	})
}
