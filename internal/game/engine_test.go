package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/protocol"
	"github.com/Xurify/flags.games-server/internal/questions"
)

type fakeRooms struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func newFakeRooms(rooms ...*Room) *fakeRooms {
	fr := &fakeRooms{rooms: make(map[string]*Room)}
	for _, r := range rooms {
		fr.rooms[r.ID] = r
	}
	return fr
}

func (f *fakeRooms) Get(roomID string) (*Room, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[roomID]
	return r, ok
}

func (f *fakeRooms) remove(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, roomID)
}

type sentFrame struct {
	recipients []string
	msgType    string
	data       any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	frames []sentFrame
}

func (b *fakeBroadcaster) SendToUsers(userIDs []string, msgType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, sentFrame{recipients: userIDs, msgType: msgType, data: data})
}

func (b *fakeBroadcaster) SendToUser(userID string, msgType string, data any) {
	b.SendToUsers([]string{userID}, msgType, data)
}

func (b *fakeBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.frames))
	for i, f := range b.frames {
		out[i] = f.msgType
	}
	return out
}

func (b *fakeBroadcaster) last(msgType string) (sentFrame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.frames) - 1; i >= 0; i-- {
		if b.frames[i].msgType == msgType {
			return b.frames[i], true
		}
	}
	return sentFrame{}, false
}

func testRoom(t *testing.T, memberIDs ...string) *Room {
	t.Helper()
	settings := DefaultSettings()
	settings.TimePerQuestion = 10
	room := NewRoom("room-1", "Test Room", memberIDs[0], "ABC123", settings)
	for i, id := range memberIDs {
		require.NoError(t, room.AddMember(id, "player-"+string(rune('a'+i))))
	}
	return room
}

func newTestEngine(rooms RoomLookup, b Broadcaster) *Engine {
	// Long delays so no real timer fires before a test calls transitions
	// directly.
	return NewEngine(rooms, questions.NewSeededProvider(1), b, NewTimerRegistry(),
		zap.NewNop(), time.Hour, time.Hour)
}

func TestStartGame(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		room := testRoom(t, "u1", "u2", "u3")
		b := &fakeBroadcaster{}
		e := newTestEngine(newFakeRooms(room), b)

		require.NoError(t, e.StartGame("room-1", "u1"))

		frame, ok := b.last(protocol.TypeGameStarting)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, frame.recipients)
		assert.True(t, e.Timers().Has("room-1"))

		room.mu.Lock()
		assert.Equal(t, PhaseStarting, room.Game.Phase)
		assert.True(t, room.Game.IsActive)
		assert.Equal(t, questions.QuestionCount("easy"), room.Game.TotalQuestions)
		room.mu.Unlock()
	})

	t.Run("non-host rejected", func(t *testing.T) {
		room := testRoom(t, "u1", "u2")
		e := newTestEngine(newFakeRooms(room), &fakeBroadcaster{})

		err := e.StartGame("room-1", "u2")
		assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))
	})

	t.Run("needs two players", func(t *testing.T) {
		room := testRoom(t, "u1")
		e := newTestEngine(newFakeRooms(room), &fakeBroadcaster{})

		err := e.StartGame("room-1", "u1")
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidGameState))
	})

	t.Run("already running", func(t *testing.T) {
		room := testRoom(t, "u1", "u2")
		e := newTestEngine(newFakeRooms(room), &fakeBroadcaster{})

		require.NoError(t, e.StartGame("room-1", "u1"))
		err := e.StartGame("room-1", "u1")
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidGameState))
	})

	t.Run("missing room", func(t *testing.T) {
		e := newTestEngine(newFakeRooms(), &fakeBroadcaster{})
		err := e.StartGame("nope", "u1")
		assert.True(t, apperrors.Is(err, apperrors.CodeRoomNotFound))
	})
}

func TestQuestionRound(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)
	require.NoError(t, e.StartGame("room-1", "u1"))

	e.nextQuestion("room-1")

	frame, ok := b.last(protocol.TypeNewQuestion)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"u1", "u2"}, frame.recipients)

	room.mu.Lock()
	require.NotNil(t, room.Game.CurrentQuestion)
	assert.Equal(t, PhaseQuestion, room.Game.Phase)
	assert.Equal(t, 1, room.Game.CurrentQuestionIndex)
	correct := room.Game.CurrentQuestion.CorrectAnswer
	assert.True(t, room.Game.UsedCountries[correct])
	room.mu.Unlock()
}

func TestSubmitAnswer(t *testing.T) {
	setup := func(t *testing.T) (*Room, *fakeBroadcaster, *Engine, string) {
		room := testRoom(t, "u1", "u2", "u3")
		b := &fakeBroadcaster{}
		e := newTestEngine(newFakeRooms(room), b)
		require.NoError(t, e.StartGame("room-1", "u1"))
		e.nextQuestion("room-1")
		room.mu.Lock()
		correct := room.Game.CurrentQuestion.CorrectAnswer
		room.mu.Unlock()
		return room, b, e, correct
	}

	t.Run("correct answer scores one point", func(t *testing.T) {
		room, b, e, correct := setup(t)

		require.NoError(t, e.SubmitAnswer("room-1", "u2", correct))

		frame, ok := b.last(protocol.TypeAnswerSubmitted)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, frame.recipients)

		room.mu.Lock()
		assert.Equal(t, 1, room.memberLocked("u2").Score)
		assert.True(t, room.memberLocked("u2").HasAnswered)
		require.Len(t, room.Game.Answers, 1)
		assert.True(t, room.Game.Answers[0].IsCorrect)
		assert.Equal(t, PointsPerCorrect, room.Game.Answers[0].PointsAwarded)
		room.mu.Unlock()
	})

	t.Run("wrong answer scores nothing", func(t *testing.T) {
		room, _, e, correct := setup(t)

		wrong := "XX"
		if wrong == correct {
			wrong = "YY"
		}
		require.NoError(t, e.SubmitAnswer("room-1", "u2", wrong))

		room.mu.Lock()
		assert.Equal(t, 0, room.memberLocked("u2").Score)
		assert.False(t, room.Game.Answers[0].IsCorrect)
		room.mu.Unlock()
	})

	t.Run("second submission is a no-op", func(t *testing.T) {
		room, _, e, correct := setup(t)

		require.NoError(t, e.SubmitAnswer("room-1", "u2", correct))
		require.NoError(t, e.SubmitAnswer("room-1", "u2", correct))

		room.mu.Lock()
		assert.Len(t, room.Game.Answers, 1)
		assert.Equal(t, 1, room.memberLocked("u2").Score)
		room.mu.Unlock()
	})

	t.Run("non-member rejected", func(t *testing.T) {
		_, _, e, correct := setup(t)
		err := e.SubmitAnswer("room-1", "stranger", correct)
		assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))
	})

	t.Run("rejected outside question phase", func(t *testing.T) {
		room := testRoom(t, "u1", "u2")
		e := newTestEngine(newFakeRooms(room), &fakeBroadcaster{})
		err := e.SubmitAnswer("room-1", "u1", "FR")
		assert.True(t, apperrors.Is(err, apperrors.CodeGameNotActive))
	})

	t.Run("all answered ends question early", func(t *testing.T) {
		room, b, e, correct := setup(t)

		require.NoError(t, e.SubmitAnswer("room-1", "u1", correct))
		require.NoError(t, e.SubmitAnswer("room-1", "u2", correct))
		require.NoError(t, e.SubmitAnswer("room-1", "u3", "ZZ"))

		_, ok := b.last(protocol.TypeQuestionResults)
		assert.True(t, ok)
		room.mu.Lock()
		assert.Equal(t, PhaseResults, room.Game.Phase)
		room.mu.Unlock()
	})
}

func TestEndQuestion(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)
	require.NoError(t, e.StartGame("room-1", "u1"))
	e.nextQuestion("room-1")

	room.mu.Lock()
	correct := room.Game.CurrentQuestion.CorrectAnswer
	room.mu.Unlock()
	require.NoError(t, e.SubmitAnswer("room-1", "u1", correct))

	e.endQuestion("room-1")

	frame, ok := b.last(protocol.TypeQuestionResults)
	require.True(t, ok)
	payload := frame.data.(struct {
		CorrectAnswer  string             `json:"correctAnswer"`
		CorrectCountry questions.Country  `json:"correctCountry"`
		PlayerAnswers  []GameAnswer       `json:"playerAnswers"`
		Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	})
	assert.Equal(t, correct, payload.CorrectAnswer)
	assert.Len(t, payload.PlayerAnswers, 1)
	require.Len(t, payload.Leaderboard, 2)
	assert.Equal(t, "u1", payload.Leaderboard[0].UserID)
	assert.Equal(t, 1, payload.Leaderboard[0].Score)

	// Repeat call outside the question phase is inert.
	before := len(b.types())
	e.endQuestion("room-1")
	assert.Len(t, b.types(), before)
}

func TestEndQuestionRaceKeepsResultsTimer(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)
	require.NoError(t, e.StartGame("room-1", "u1"))
	e.nextQuestion("room-1")

	room.mu.Lock()
	correct := room.Game.CurrentQuestion.CorrectAnswer
	room.mu.Unlock()
	require.NoError(t, e.SubmitAnswer("room-1", "u1", correct))
	require.NoError(t, e.SubmitAnswer("room-1", "u2", correct))

	// Everyone answered, so results are out and the next-question timer
	// is armed.
	room.mu.Lock()
	require.Equal(t, PhaseResults, room.Game.Phase)
	room.mu.Unlock()
	require.True(t, e.Timers().Has("room-1"))

	// The question timer expiring at the same moment must leave that
	// timer alone; cancelling it would strand the room in results.
	e.endQuestion("room-1")
	assert.True(t, e.Timers().Has("room-1"))

	results := 0
	for _, typ := range b.types() {
		if typ == protocol.TypeQuestionResults {
			results++
		}
	}
	assert.Equal(t, 1, results)
}

func TestFullGameFlow(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	room.Settings.QuestionCount = 3
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)

	require.NoError(t, e.StartGame("room-1", "u1"))

	for i := 0; i < 3; i++ {
		e.nextQuestion("room-1")
		room.mu.Lock()
		correct := room.Game.CurrentQuestion.CorrectAnswer
		room.mu.Unlock()
		require.NoError(t, e.SubmitAnswer("room-1", "u1", correct))
		require.NoError(t, e.SubmitAnswer("room-1", "u2", "ZZ"))
	}
	e.nextQuestion("room-1")

	frame, ok := b.last(protocol.TypeGameEnded)
	require.True(t, ok)
	payload := frame.data.(struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
		GameStats   GameStats          `json:"gameStats"`
	})
	require.Len(t, payload.Leaderboard, 2)
	assert.Equal(t, "u1", payload.Leaderboard[0].UserID)
	assert.Equal(t, 3, payload.Leaderboard[0].Score)
	assert.Equal(t, 0, payload.Leaderboard[1].Score)
	assert.Equal(t, 3, payload.GameStats.TotalQuestions)
	assert.Equal(t, 6, payload.GameStats.TotalAnswers)
	assert.Equal(t, 3, payload.GameStats.CorrectAnswers)
	assert.InDelta(t, 0.5, payload.GameStats.Accuracy, 1e-9)

	room.mu.Lock()
	assert.Equal(t, PhaseFinished, room.Game.Phase)
	assert.False(t, room.Game.IsActive)
	assert.Nil(t, room.Game.CurrentQuestion)
	room.mu.Unlock()
}

func TestStopGame(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)
	require.NoError(t, e.StartGame("room-1", "u1"))
	e.nextQuestion("room-1")

	t.Run("non-host rejected", func(t *testing.T) {
		err := e.StopGame("room-1", "u2")
		assert.True(t, apperrors.Is(err, apperrors.CodePermissionDenied))
	})

	t.Run("host stops", func(t *testing.T) {
		require.NoError(t, e.StopGame("room-1", "u1"))

		_, ok := b.last(protocol.TypeGameStopped)
		assert.True(t, ok)
		assert.False(t, e.Timers().Has("room-1"))
		room.mu.Lock()
		assert.Equal(t, PhaseWaiting, room.Game.Phase)
		assert.False(t, room.Game.IsActive)
		room.mu.Unlock()
	})
}

func TestRestartGame(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	room.Settings.QuestionCount = 1
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)

	t.Run("rejected before any game", func(t *testing.T) {
		err := e.RestartGame("room-1", "u1")
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidGameState))
	})

	require.NoError(t, e.StartGame("room-1", "u1"))
	e.nextQuestion("room-1")
	room.mu.Lock()
	correct := room.Game.CurrentQuestion.CorrectAnswer
	room.mu.Unlock()
	require.NoError(t, e.SubmitAnswer("room-1", "u1", correct))
	e.endQuestion("room-1")
	e.nextQuestion("room-1")

	room.mu.Lock()
	require.Equal(t, PhaseFinished, room.Game.Phase)
	room.mu.Unlock()

	t.Run("restart resets scores and history", func(t *testing.T) {
		require.NoError(t, e.RestartGame("room-1", "u1"))

		_, ok := b.last(protocol.TypeGameRestarted)
		assert.True(t, ok)
		room.mu.Lock()
		assert.Equal(t, PhaseStarting, room.Game.Phase)
		assert.True(t, room.Game.IsActive)
		assert.Empty(t, room.Game.AnswerHistory)
		assert.Equal(t, 0, room.memberLocked("u1").Score)
		room.mu.Unlock()
	})
}

func TestHandleMemberLeft(t *testing.T) {
	room := testRoom(t, "u1", "u2", "u3")
	b := &fakeBroadcaster{}
	e := newTestEngine(newFakeRooms(room), b)
	require.NoError(t, e.StartGame("room-1", "u1"))
	e.nextQuestion("room-1")

	room.mu.Lock()
	correct := room.Game.CurrentQuestion.CorrectAnswer
	room.mu.Unlock()
	require.NoError(t, e.SubmitAnswer("room-1", "u1", correct))
	require.NoError(t, e.SubmitAnswer("room-1", "u2", correct))

	// u3 has not answered, so the round stays open.
	e.HandleMemberLeft("room-1")
	_, ok := b.last(protocol.TypeQuestionResults)
	assert.False(t, ok)

	room.RemoveMember("u3")
	e.HandleMemberLeft("room-1")
	_, ok = b.last(protocol.TypeQuestionResults)
	assert.True(t, ok)
}

func TestTimerCallbacksAbortOnMissingRoom(t *testing.T) {
	room := testRoom(t, "u1", "u2")
	rooms := newFakeRooms(room)
	b := &fakeBroadcaster{}
	e := newTestEngine(rooms, b)
	require.NoError(t, e.StartGame("room-1", "u1"))

	rooms.remove("room-1")
	before := len(b.types())
	e.nextQuestion("room-1")
	e.endQuestion("room-1")
	e.HandleMemberLeft("room-1")
	assert.Len(t, b.types(), before)
}
