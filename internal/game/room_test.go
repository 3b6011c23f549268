package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xurify/flags.games-server/internal/apperrors"
)

func TestAddMember(t *testing.T) {
	t.Run("capacity enforced", func(t *testing.T) {
		settings := DefaultSettings()
		settings.MaxRoomSize = 2
		room := NewRoom("r1", "Room", "u1", "ABC123", settings)

		require.NoError(t, room.AddMember("u1", "alice"))
		require.NoError(t, room.AddMember("u2", "bob"))
		err := room.AddMember("u3", "carol")
		assert.True(t, apperrors.Is(err, apperrors.CodeRoomFull))
	})

	t.Run("duplicate user", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))
		err := room.AddMember("u1", "alice2")
		assert.True(t, apperrors.Is(err, apperrors.CodeUserAlreadyInRoom))
	})

	t.Run("duplicate username", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))
		err := room.AddMember("u2", "alice")
		assert.True(t, apperrors.Is(err, apperrors.CodeUsernameTaken))
	})

	t.Run("kicked user cannot rejoin", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))
		require.NoError(t, room.AddMember("u2", "bob"))
		room.Kick("u2")

		assert.False(t, room.HasMember("u2"))
		err := room.AddMember("u2", "bob")
		assert.True(t, apperrors.Is(err, apperrors.CodeKickedFromRoom))
	})
}

func TestRemoveMember(t *testing.T) {
	t.Run("host leaving promotes earliest joiner", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))
		require.NoError(t, room.AddMember("u2", "bob"))
		require.NoError(t, room.AddMember("u3", "carol"))

		newHost, changed := room.RemoveMember("u1")
		assert.True(t, changed)
		assert.Equal(t, "u2", newHost)
		assert.True(t, room.IsHost("u2"))
	})

	t.Run("non-host leaving keeps host", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))
		require.NoError(t, room.AddMember("u2", "bob"))

		_, changed := room.RemoveMember("u2")
		assert.False(t, changed)
		assert.True(t, room.IsHost("u1"))
		assert.Equal(t, 1, room.MemberCount())
	})

	t.Run("last member leaves", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))

		_, changed := room.RemoveMember("u1")
		assert.False(t, changed)
		assert.Equal(t, 0, room.MemberCount())
	})
}

func TestUpdateSettings(t *testing.T) {
	strPtr := func(s string) *string { return &s }
	intPtr := func(n int) *int { return &n }

	t.Run("difficulty change adjusts question count", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.UpdateSettings(strPtr("expert"), nil, nil, nil))
		assert.Equal(t, "expert", room.Settings.Difficulty)
		assert.Equal(t, 30, room.Settings.QuestionCount)
	})

	t.Run("rejected while game runs", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		room.Game.Phase = PhaseQuestion
		err := room.UpdateSettings(strPtr("hard"), nil, nil, nil)
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidGameState))
	})

	t.Run("allowed after game finished", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		room.Game.Phase = PhaseFinished
		assert.NoError(t, room.UpdateSettings(nil, nil, intPtr(20), nil))
		assert.Equal(t, 20, room.Settings.TimePerQuestion)
	})

	t.Run("cannot shrink below member count", func(t *testing.T) {
		room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
		require.NoError(t, room.AddMember("u1", "alice"))
		require.NoError(t, room.AddMember("u2", "bob"))
		require.NoError(t, room.AddMember("u3", "carol"))

		err := room.UpdateSettings(nil, intPtr(2), nil, nil)
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
	})
}

func TestSnapshot(t *testing.T) {
	room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
	require.NoError(t, room.AddMember("u1", "alice"))
	require.NoError(t, room.AddMember("u2", "bob"))

	snap := room.Snapshot()
	assert.Equal(t, "r1", snap.ID)
	assert.Equal(t, "ABC123", snap.InviteCode)
	assert.Equal(t, PhaseWaiting, snap.Phase)
	require.Len(t, snap.Members, 2)

	// Mutating the snapshot must not touch the room.
	snap.Members[0].Score = 99
	room.mu.Lock()
	assert.Equal(t, 0, room.Members[0].Score)
	room.mu.Unlock()
}

func TestComputeLeaderboard(t *testing.T) {
	room := NewRoom("r1", "Room", "u1", "ABC123", DefaultSettings())
	require.NoError(t, room.AddMember("u1", "alice"))
	require.NoError(t, room.AddMember("u2", "bob"))
	require.NoError(t, room.AddMember("u3", "carol"))

	room.mu.Lock()
	room.Game.AnswerHistory = []GameAnswer{
		{UserID: "u2", IsCorrect: true, PointsAwarded: 1, TimeToAnswer: 2000},
		{UserID: "u1", IsCorrect: false, TimeToAnswer: 4000},
		{UserID: "u2", IsCorrect: true, PointsAwarded: 1, TimeToAnswer: 3000},
		{UserID: "u1", IsCorrect: true, PointsAwarded: 1, TimeToAnswer: 1000},
	}
	board := room.computeLeaderboardLocked()
	room.mu.Unlock()

	require.Len(t, board, 3)
	assert.Equal(t, "u2", board[0].UserID)
	assert.Equal(t, 2, board[0].Score)
	assert.Equal(t, 2, board[0].CorrectAnswers)
	assert.InDelta(t, 2500, board[0].AverageTime, 1e-9)

	assert.Equal(t, "u1", board[1].UserID)
	assert.Equal(t, 1, board[1].Score)
	assert.InDelta(t, 2500, board[1].AverageTime, 1e-9)

	// u3 never answered and still appears with zeros.
	assert.Equal(t, "u3", board[2].UserID)
	assert.Equal(t, 0, board[2].Score)
	assert.Zero(t, board[2].AverageTime)
}
