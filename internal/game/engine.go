package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/protocol"
	"github.com/Xurify/flags.games-server/internal/questions"
)

// PointsPerCorrect is the flat score for a correct answer.
const PointsPerCorrect = 1

// RoomLookup resolves live rooms. The engine never caches *Room across
// calls; a missing room means it was deleted concurrently and the
// transition aborts silently.
type RoomLookup interface {
	Get(roomID string) (*Room, bool)
}

// Broadcaster fans frames out to connections. Sends must be enqueue-only
// (no blocking I/O) because the engine calls them while holding room locks.
type Broadcaster interface {
	SendToUsers(userIDs []string, msgType string, data any)
	SendToUser(userID string, msgType string, data any)
}

// Engine drives one independent round state machine per active room.
type Engine struct {
	rooms       RoomLookup
	provider    questions.Provider
	broadcaster Broadcaster
	timers      *TimerRegistry
	logger      *zap.Logger

	startCountdown time.Duration
	resultsDelay   time.Duration
	now            func() time.Time
}

// NewEngine creates an engine. startCountdown is the GAME_STARTING delay,
// resultsDelay the gap between QUESTION_RESULTS and the next question.
func NewEngine(rooms RoomLookup, provider questions.Provider, broadcaster Broadcaster,
	timers *TimerRegistry, logger *zap.Logger, startCountdown, resultsDelay time.Duration) *Engine {
	return &Engine{
		rooms:          rooms,
		provider:       provider,
		broadcaster:    broadcaster,
		timers:         timers,
		logger:         logger,
		startCountdown: startCountdown,
		resultsDelay:   resultsDelay,
		now:            time.Now,
	}
}

// Timers exposes the registry so room teardown can cancel timers.
func (e *Engine) Timers() *TimerRegistry { return e.timers }

type countdownPayload struct {
	Countdown int `json:"countdown"`
}

type optionPayload struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type questionPayload struct {
	Index           int             `json:"index"`
	Flag            string          `json:"flag"`
	Options         []optionPayload `json:"options"`
	StartTime       int64           `json:"startTime"`
	EndTime         int64           `json:"endTime"`
	TimePerQuestion int             `json:"timePerQuestion"`
}

// StartGame begins a game. Host-only; requires at least two members and no
// game already running.
func (e *Engine) StartGame(roomID, userID string) error {
	return e.beginGame(roomID, userID, protocol.TypeGameStarting, false)
}

// RestartGame begins a fresh game from the finished phase.
func (e *Engine) RestartGame(roomID, userID string) error {
	return e.beginGame(roomID, userID, protocol.TypeGameRestarted, true)
}

func (e *Engine) beginGame(roomID, userID, announce string, restart bool) error {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return apperrors.New(apperrors.CodeRoomNotFound, "room not found")
	}

	room.mu.Lock()
	if room.Host != userID {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodePermissionDenied, "only the host can start the game")
	}
	if len(room.Members) < 2 {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodeInvalidGameState, "need at least 2 players to start")
	}
	if room.Game.IsActive {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodeInvalidGameState, "a game is already running")
	}
	if restart && room.Game.Phase != PhaseFinished {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodeInvalidGameState, "can only restart a finished game")
	}

	for _, m := range room.Members {
		m.Score = 0
		m.HasAnswered = false
	}
	room.Game = GameState{
		IsActive:       true,
		Phase:          PhaseStarting,
		Difficulty:     room.Settings.Difficulty,
		TotalQuestions: room.Settings.QuestionCount,
		GameStartTime:  e.now(),
		UsedCountries:  make(map[string]bool),
	}
	recipients := room.memberIDsLocked()
	countdown := int(e.startCountdown / time.Second)
	difficulty := room.Game.Difficulty
	e.timers.Schedule(roomID, e.startCountdown, func() { e.nextQuestion(roomID) })
	room.mu.Unlock()

	e.logger.Info("game starting",
		zap.String("roomId", roomID),
		zap.String("difficulty", difficulty),
		zap.Int("players", len(recipients)))

	e.broadcaster.SendToUsers(recipients, announce, countdownPayload{Countdown: countdown})
	return nil
}

// nextQuestion advances to the next round, or ends the game when the
// question budget or the country pool is exhausted. Timer callback.
func (e *Engine) nextQuestion(roomID string) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	if !room.Game.IsActive {
		room.mu.Unlock()
		return
	}
	if room.Game.CurrentQuestionIndex >= room.Game.TotalQuestions {
		e.endGameLocked(room)
		return
	}

	q := e.provider.NextQuestion(room.Game.Difficulty, room.Game.UsedCountries)
	if q == nil {
		e.logger.Warn("question pool exhausted", zap.String("roomId", roomID),
			zap.String("difficulty", room.Game.Difficulty))
		e.endGameLocked(room)
		return
	}
	room.Game.UsedCountries[q.Country.Code] = true

	now := e.now()
	duration := time.Duration(room.Settings.TimePerQuestion) * time.Second
	round := &RoundQuestion{
		Index:         room.Game.CurrentQuestionIndex + 1,
		Country:       q.Country,
		Options:       q.Options,
		CorrectAnswer: q.Country.Code,
		StartTime:     now,
		EndTime:       now.Add(duration),
	}
	room.Game.CurrentQuestion = round
	room.Game.CurrentQuestionIndex++
	room.Game.Phase = PhaseQuestion
	room.Game.Answers = nil
	for _, m := range room.Members {
		m.HasAnswered = false
	}

	options := make([]optionPayload, len(round.Options))
	for i, opt := range round.Options {
		options[i] = optionPayload{Name: opt.Name, Code: opt.Code}
	}
	payload := struct {
		Question       questionPayload `json:"question"`
		TotalQuestions int             `json:"totalQuestions"`
	}{
		Question: questionPayload{
			Index:           round.Index,
			Flag:            round.Country.Flag,
			Options:         options,
			StartTime:       round.StartTime.UnixMilli(),
			EndTime:         round.EndTime.UnixMilli(),
			TimePerQuestion: room.Settings.TimePerQuestion,
		},
		TotalQuestions: room.Game.TotalQuestions,
	}
	recipients := room.memberIDsLocked()
	e.timers.Schedule(roomID, duration, func() { e.endQuestion(roomID) })
	room.mu.Unlock()

	e.broadcaster.SendToUsers(recipients, protocol.TypeNewQuestion, payload)
}

// SubmitAnswer records an answer during the question phase. A second
// submission for the same question is a silent no-op.
func (e *Engine) SubmitAnswer(roomID, userID, answer string) error {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return apperrors.New(apperrors.CodeRoomNotFound, "room not found")
	}

	room.mu.Lock()
	if room.Game.Phase != PhaseQuestion || room.Game.CurrentQuestion == nil {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodeGameNotActive, "no question is open")
	}
	member := room.memberLocked(userID)
	if member == nil {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodePermissionDenied, "not a member of this room")
	}
	for _, a := range room.Game.Answers {
		if a.UserID == userID {
			room.mu.Unlock()
			return nil
		}
	}

	round := room.Game.CurrentQuestion
	now := e.now()
	record := GameAnswer{
		UserID:        userID,
		Username:      member.Username,
		QuestionIndex: round.Index,
		Answer:        answer,
		TimeToAnswer:  now.Sub(round.StartTime).Milliseconds(),
		IsCorrect:     answer == round.CorrectAnswer,
		Timestamp:     now,
	}
	if record.IsCorrect {
		record.PointsAwarded = PointsPerCorrect
	}

	room.Game.Answers = append(room.Game.Answers, record)
	room.Game.AnswerHistory = append(room.Game.AnswerHistory, record)
	member.Score += record.PointsAwarded
	member.HasAnswered = true
	room.Game.Leaderboard = room.computeLeaderboardLocked()

	payload := struct {
		UserID        string `json:"userId"`
		Username      string `json:"username"`
		HasAnswered   bool   `json:"hasAnswered"`
		TotalAnswers  int    `json:"totalAnswers"`
		TotalPlayers  int    `json:"totalPlayers"`
		PointsAwarded int    `json:"pointsAwarded"`
		Score         int    `json:"score"`
	}{
		UserID:        userID,
		Username:      member.Username,
		HasAnswered:   true,
		TotalAnswers:  len(room.Game.Answers),
		TotalPlayers:  len(room.Members),
		PointsAwarded: record.PointsAwarded,
		Score:         member.Score,
	}
	recipients := room.memberIDsLocked()
	allAnswered := len(room.Game.Answers) >= len(room.Members)
	room.mu.Unlock()

	e.broadcaster.SendToUsers(recipients, protocol.TypeAnswerSubmitted, payload)

	if allAnswered {
		e.endQuestion(roomID)
	}
	return nil
}

// endQuestion closes the round and shows results. Runs on timer expiry or
// when every member has answered; both can race, so the phase check under
// the room lock decides the winner and the loser must not touch the
// timer the winner armed.
func (e *Engine) endQuestion(roomID string) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	if !room.Game.IsActive || room.Game.Phase != PhaseQuestion {
		room.mu.Unlock()
		return
	}
	e.timers.Cancel(roomID)
	round := room.Game.CurrentQuestion
	room.Game.Phase = PhaseResults
	room.Game.Leaderboard = room.computeLeaderboardLocked()

	answers := make([]GameAnswer, len(room.Game.Answers))
	copy(answers, room.Game.Answers)
	payload := struct {
		CorrectAnswer  string             `json:"correctAnswer"`
		CorrectCountry questions.Country  `json:"correctCountry"`
		PlayerAnswers  []GameAnswer       `json:"playerAnswers"`
		Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	}{
		CorrectAnswer:  round.CorrectAnswer,
		CorrectCountry: round.Country,
		PlayerAnswers:  answers,
		Leaderboard:    room.Game.Leaderboard,
	}
	recipients := room.memberIDsLocked()
	e.timers.Schedule(roomID, e.resultsDelay, func() { e.nextQuestion(roomID) })
	room.mu.Unlock()

	e.broadcaster.SendToUsers(recipients, protocol.TypeQuestionResults, payload)
}

// GameStats summarizes a finished game.
type GameStats struct {
	TotalQuestions int     `json:"totalQuestions"`
	TotalAnswers   int     `json:"totalAnswers"`
	CorrectAnswers int     `json:"correctAnswers"`
	Accuracy       float64 `json:"accuracy"`
	AverageTime    float64 `json:"averageTime"`
	Difficulty     string  `json:"difficulty"`
	Duration       int64   `json:"duration"` // ms
}

// endGameLocked finishes the game. Caller holds room.mu; it is released
// before broadcasting.
func (e *Engine) endGameLocked(room *Room) {
	e.timers.Cancel(room.ID)

	room.Game.Phase = PhaseFinished
	room.Game.IsActive = false
	room.Game.GameEndTime = e.now()
	room.Game.CurrentQuestion = nil
	room.Game.Leaderboard = room.computeLeaderboardLocked()

	stats := GameStats{
		TotalQuestions: room.Game.TotalQuestions,
		TotalAnswers:   len(room.Game.AnswerHistory),
		Difficulty:     room.Game.Difficulty,
		Duration:       room.Game.GameEndTime.Sub(room.Game.GameStartTime).Milliseconds(),
	}
	var totalMs int64
	for _, a := range room.Game.AnswerHistory {
		if a.IsCorrect {
			stats.CorrectAnswers++
		}
		totalMs += a.TimeToAnswer
	}
	if stats.TotalAnswers > 0 {
		stats.Accuracy = float64(stats.CorrectAnswers) / float64(stats.TotalAnswers)
		stats.AverageTime = float64(totalMs) / float64(stats.TotalAnswers)
	}

	payload := struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
		GameStats   GameStats          `json:"gameStats"`
	}{
		Leaderboard: room.Game.Leaderboard,
		GameStats:   stats,
	}
	recipients := room.memberIDsLocked()
	roomID := room.ID
	room.mu.Unlock()

	e.logger.Info("game ended",
		zap.String("roomId", roomID),
		zap.Int("answers", stats.TotalAnswers),
		zap.Float64("accuracy", stats.Accuracy))

	e.broadcaster.SendToUsers(recipients, protocol.TypeGameEnded, payload)
}

// StopGame force-returns a room to the waiting phase. Host-only.
func (e *Engine) StopGame(roomID, userID string) error {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return apperrors.New(apperrors.CodeRoomNotFound, "room not found")
	}

	room.mu.Lock()
	if room.Host != userID {
		room.mu.Unlock()
		return apperrors.New(apperrors.CodePermissionDenied, "only the host can stop the game")
	}
	recipients := e.stopLocked(room)
	room.mu.Unlock()

	e.broadcaster.SendToUsers(recipients, protocol.TypeGameStopped, nil)
	return nil
}

// StopForTeardown halts any running game without host checks or broadcast.
// Used by room deletion and cleanup.
func (e *Engine) StopForTeardown(roomID string) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		e.timers.Cancel(roomID)
		return
	}
	room.mu.Lock()
	e.stopLocked(room)
	room.mu.Unlock()
}

func (e *Engine) stopLocked(room *Room) []string {
	e.timers.Cancel(room.ID)
	room.Game.Phase = PhaseWaiting
	room.Game.IsActive = false
	room.Game.CurrentQuestion = nil
	return room.memberIDsLocked()
}

// HandleMemberLeft re-evaluates an open round after a member departs: if
// everyone still present has answered, results are produced immediately.
func (e *Engine) HandleMemberLeft(roomID string) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	proceed := room.Game.Phase == PhaseQuestion && len(room.Members) > 0
	if proceed {
		answered := 0
		for _, m := range room.Members {
			if m.HasAnswered {
				answered++
			}
		}
		proceed = answered >= len(room.Members)
	}
	room.mu.Unlock()

	if proceed {
		e.endQuestion(roomID)
	}
}
