package domain

import "time"

const (
	EventNameSessionStateChanged = "session.state_changed"
	EventNameSessionEnded        = "session.ended"
	EventNameAttemptRecorded     = "attempt.recorded"
	EventNameScoreUpdated        = "score.updated"
	EventNameLeaderboardUpdated  = "leaderboard.updated"
)

type EventSessionStateChanged struct {
	SessionID  string
	State      State
	AtQuestion int
}

func (EventSessionStateChanged) Name() string { return EventNameSessionStateChanged }

type EventSessionEnded struct {
	SessionID string
}

func (EventSessionEnded) Name() string { return EventNameSessionEnded }

// EventAttemptRecorded carries everything the score service needs to
// award points without reaching back into the session snapshot.
type EventAttemptRecorded struct {
	SessionID        string
	PlayerID         int64
	PlayerName       string
	QuestionPosition int
	AnswerIDs        []int64
	CorrectAnswerIDs []int64
	Points           int
	TimeTaken        time.Duration
	SubmitTime       time.Time
}

func (EventAttemptRecorded) Name() string { return EventNameAttemptRecorded }

type EventScoreUpdated struct {
	Score Score
}

func (EventScoreUpdated) Name() string { return EventNameScoreUpdated }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
