package game

import (
	"sort"
	"sync"
	"time"

	"github.com/Xurify/flags.games-server/internal/apperrors"
	"github.com/Xurify/flags.games-server/internal/questions"
)

// Phase is a discrete state of a room's game machine.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseStarting Phase = "starting"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
	PhaseFinished Phase = "finished"
)

// RoomSettings are the host-tunable knobs of a room.
type RoomSettings struct {
	Difficulty      string `json:"difficulty"`
	MaxRoomSize     int    `json:"maxRoomSize"`
	TimePerQuestion int    `json:"timePerQuestion"` // seconds
	GameMode        string `json:"gameMode"`
	QuestionCount   int    `json:"questionCount"`
}

// DefaultSettings returns the settings a fresh room starts with.
func DefaultSettings() RoomSettings {
	return RoomSettings{
		Difficulty:      "easy",
		MaxRoomSize:     5,
		TimePerQuestion: 15,
		GameMode:        "classic",
		QuestionCount:   questions.QuestionCount("easy"),
	}
}

// Member is a room's view of a player: identity plus per-game counters.
type Member struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	HasAnswered bool   `json:"hasAnswered"`
}

// RoundQuestion is the question currently on screen.
type RoundQuestion struct {
	Index         int                 `json:"index"`
	Country       questions.Country   `json:"country"`
	Options       []questions.Country `json:"options"`
	CorrectAnswer string              `json:"correctAnswer"` // country code
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
}

// GameAnswer records one player's submission for one round.
type GameAnswer struct {
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	QuestionIndex int       `json:"questionIndex"`
	Answer        string    `json:"answer"`
	TimeToAnswer  int64     `json:"timeToAnswer"` // ms from question start
	IsCorrect     bool      `json:"isCorrect"`
	PointsAwarded int       `json:"pointsAwarded"`
	Timestamp     time.Time `json:"timestamp"`
}

// LeaderboardEntry is one row of the derived ranking.
type LeaderboardEntry struct {
	UserID         string  `json:"userId"`
	Username       string  `json:"username"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	AverageTime    float64 `json:"averageTime"` // ms
}

// GameState is the per-room round machine state. All fields are guarded by
// the owning room's mutex.
type GameState struct {
	IsActive             bool             `json:"isActive"`
	Phase                Phase            `json:"phase"`
	CurrentQuestion      *RoundQuestion   `json:"currentQuestion,omitempty"`
	Answers              []GameAnswer     `json:"answers"`
	AnswerHistory        []GameAnswer     `json:"answerHistory"`
	CurrentQuestionIndex int              `json:"currentQuestionIndex"`
	TotalQuestions       int              `json:"totalQuestions"`
	Difficulty           string           `json:"difficulty"`
	GameStartTime        time.Time        `json:"gameStartTime,omitempty"`
	GameEndTime          time.Time        `json:"gameEndTime,omitempty"`
	UsedCountries        map[string]bool  `json:"-"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard"`
}

// Room is an in-memory session grouping of up to five users for one game.
// Reads and writes of members, kicked set and game state happen under mu.
type Room struct {
	mu sync.Mutex

	ID          string
	Name        string
	Host        string // userId
	InviteCode  string
	Settings    RoomSettings
	Members     []*Member
	KickedUsers map[string]bool
	CreatedAt   time.Time
	Game        GameState
}

// NewRoom creates a room in the waiting phase with the caller as host.
func NewRoom(id, name, hostID, inviteCode string, settings RoomSettings) *Room {
	return &Room{
		ID:          id,
		Name:        name,
		Host:        hostID,
		InviteCode:  inviteCode,
		Settings:    settings,
		KickedUsers: make(map[string]bool),
		CreatedAt:   time.Now(),
		Game: GameState{
			Phase:         PhaseWaiting,
			UsedCountries: make(map[string]bool),
		},
	}
}

// AddMember appends a member, enforcing capacity, the kicked set and
// username uniqueness.
func (r *Room) AddMember(userID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.KickedUsers[userID] {
		return apperrors.New(apperrors.CodeKickedFromRoom, "you were removed from this room")
	}
	if len(r.Members) >= r.Settings.MaxRoomSize {
		return apperrors.New(apperrors.CodeRoomFull, "room is full")
	}
	for _, m := range r.Members {
		if m.UserID == userID {
			return apperrors.New(apperrors.CodeUserAlreadyInRoom, "already a member of this room")
		}
		if m.Username == username {
			return apperrors.New(apperrors.CodeUsernameTaken, "that username is taken in this room")
		}
	}
	r.Members = append(r.Members, &Member{UserID: userID, Username: username})
	return nil
}

// RemoveMember deletes a member preserving order. If the host left and
// members remain, the first remaining member is promoted; the new host's
// userId and true are returned in that case.
func (r *Room) RemoveMember(userID string) (newHost string, hostChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.Members {
		if m.UserID == userID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			break
		}
	}
	if r.Host == userID && len(r.Members) > 0 {
		r.Host = r.Members[0].UserID
		return r.Host, true
	}
	return "", false
}

// Kick bars userID from rejoining and removes them from the member list.
func (r *Room) Kick(userID string) {
	r.mu.Lock()
	r.KickedUsers[userID] = true
	r.mu.Unlock()
	r.RemoveMember(userID)
}

// HasMember reports membership.
func (r *Room) HasMember(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberLocked(userID) != nil
}

// IsHost reports whether userID is the room host.
func (r *Room) IsHost(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Host == userID
}

// MemberCount returns the current member count.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Members)
}

// MemberIDs returns the member userIds in insertion order.
func (r *Room) MemberIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberIDsLocked()
}

func (r *Room) memberIDsLocked() []string {
	ids := make([]string, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.UserID
	}
	return ids
}

func (r *Room) memberLocked(userID string) *Member {
	for _, m := range r.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

// UpdateSettings applies a partial settings update. It fails while a game
// is running and never shrinks capacity below the current member count.
func (r *Room) UpdateSettings(difficulty *string, maxRoomSize, timePerQuestion *int, gameMode *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Game.Phase != PhaseWaiting && r.Game.Phase != PhaseFinished {
		return apperrors.New(apperrors.CodeInvalidGameState, "settings can only change between games")
	}
	if maxRoomSize != nil && *maxRoomSize < len(r.Members) {
		return apperrors.Newf(apperrors.CodeInvalidInput,
			"maxRoomSize %d is below the current member count", *maxRoomSize)
	}

	if difficulty != nil {
		r.Settings.Difficulty = *difficulty
		r.Settings.QuestionCount = questions.QuestionCount(*difficulty)
	}
	if maxRoomSize != nil {
		r.Settings.MaxRoomSize = *maxRoomSize
	}
	if timePerQuestion != nil {
		r.Settings.TimePerQuestion = *timePerQuestion
	}
	if gameMode != nil {
		r.Settings.GameMode = *gameMode
	}
	return nil
}

// RoomInfo is the lock-free JSON snapshot of a room.
type RoomInfo struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Host        string       `json:"host"`
	InviteCode  string       `json:"inviteCode"`
	Settings    RoomSettings `json:"settings"`
	Members     []Member     `json:"members"`
	CreatedAt   time.Time    `json:"createdAt"`
	Phase       Phase        `json:"phase"`
	IsActive    bool         `json:"isActive"`
}

// Snapshot copies the room's public state under the lock.
func (r *Room) Snapshot() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]Member, len(r.Members))
	for i, m := range r.Members {
		members[i] = *m
	}
	return RoomInfo{
		ID:         r.ID,
		Name:       r.Name,
		Host:       r.Host,
		InviteCode: r.InviteCode,
		Settings:   r.Settings,
		Members:    members,
		CreatedAt:  r.CreatedAt,
		Phase:      r.Game.Phase,
		IsActive:   r.Game.IsActive,
	}
}

// computeLeaderboardLocked aggregates the answer history into a ranking.
// Members with no answers appear with zeros. Sort is by score descending,
// stable, so earlier joiners win ties.
func (r *Room) computeLeaderboardLocked() []LeaderboardEntry {
	type agg struct {
		score   int
		correct int
		count   int
		totalMs int64
	}
	byUser := make(map[string]*agg)
	for _, a := range r.Game.AnswerHistory {
		entry, ok := byUser[a.UserID]
		if !ok {
			entry = &agg{}
			byUser[a.UserID] = entry
		}
		entry.score += a.PointsAwarded
		if a.IsCorrect {
			entry.correct++
		}
		entry.count++
		entry.totalMs += a.TimeToAnswer
	}

	board := make([]LeaderboardEntry, 0, len(r.Members))
	for _, m := range r.Members {
		row := LeaderboardEntry{UserID: m.UserID, Username: m.Username}
		if a, ok := byUser[m.UserID]; ok {
			row.Score = a.score
			row.CorrectAnswers = a.correct
			if a.count > 0 {
				row.AverageTime = float64(a.totalMs) / float64(a.count)
			}
		}
		board = append(board, row)
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board
}
