package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is one live run-through of a quiz with joined players. The
// Snapshot is frozen at creation time; later edits to the quiz must not
// affect a running session.
type Session struct {
	SessionID    string
	QuizID       string
	OwnerID      string
	Snapshot     QuizSnapshot
	State        State
	AtQuestion   int // 1-based question index, 0 when not mid-question
	AutoStartNum int
	Players      []Player
	Messages     []Message
	Attempts     []Attempt
	CreateTime   time.Time
}

type QuizSnapshot struct {
	Name      string
	Questions []Question
}

type Question struct {
	Text         string
	DurationSecs int
	Points       int
	Answers      []AnswerOption
}

type AnswerOption struct {
	AnswerID int64
	Text     string
	Correct  bool
}

// Player is a guest admitted into a session. Name is unique within the
// session, case-sensitive.
type Player struct {
	ID    int64
	Name  string
	Score float64
}

// Attempt is one player's recorded answer submission for one question.
// Points is the question's configured value; awarded points are computed
// downstream by the score service.
type Attempt struct {
	PlayerID         int64
	QuestionPosition int
	AnswerIDs        []int64
	Points           int
	TimeTaken        time.Duration
	SubmitTime       time.Time
}

type Message struct {
	PlayerID   int64
	PlayerName string
	Body       string
	SentTime   time.Time
}

// Score represents a player's running total within a session.
type Score struct {
	SessionID  string
	PlayerID   int64
	PlayerName string
	TotalScore decimal.Decimal
	UpdateTime time.Time
}

// Leaderboard represents players and their scores within a session,
// sorted by score in descending order.
type Leaderboard struct {
	SessionID string
	Entries   []LeaderboardEntry
}

type LeaderboardEntry struct {
	PlayerName string
	Score      float64
}
