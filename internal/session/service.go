package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/quiz"
	"github.com/victornm/livequiz/internal/telemetry"
)

const (
	maxAutoStartNum      = 50
	maxSessionsPerQuiz   = 10
	maxChatMessageLength = 100
)

type Config struct {
	Quiz         quiz.Provider
	EventBus     *event.Bus
	NewTimerFunc NewTimerFunc
}

// Service is the live session engine: it owns all mutable session state
// and is the only writer of it.
type Service struct {
	quiz     quiz.Provider
	eb       *event.Bus
	store    *store
	newTimer NewTimerFunc
}

func NewService(c Config) *Service {
	nt := c.NewTimerFunc
	if nt == nil {
		nt = newStdTimer
	}

	return &Service{
		quiz:     c.Quiz,
		eb:       c.EventBus,
		store:    newStore(),
		newTimer: nt,
	}
}

// CreateSessionRequest represents a request to start a new live session
// for a quiz.
type CreateSessionRequest struct {
	UserID string
	QuizID string
	// AutoStartNum is the player count that triggers automatic start; 0
	// disables auto-start.
	AutoStartNum int
}

// CreateSession freezes a snapshot of the quiz's questions and registers
// a new session in LOBBY.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	exists, err := s.quiz.ExistsAndNotTrashed(ctx, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("check quiz: %w", err)
	}
	if !exists {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: quiz=%s", req.QuizID))
	}

	owned, err := s.quiz.OwnedBy(ctx, req.UserID, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("check quiz owner: %w", err)
	}
	if !owned {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("quiz is not owned by user: quiz=%s", req.QuizID))
	}

	if req.AutoStartNum < 0 || req.AutoStartNum > maxAutoStartNum {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("autoStartNum must be between 0 and %d, got %d", maxAutoStartNum, req.AutoStartNum))
	}

	snap, err := s.quiz.GetSnapshot(ctx, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("snapshot quiz: %w", err)
	}
	if len(snap.Questions) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("quiz has no questions: quiz=%s", req.QuizID))
	}

	if n := s.countNotEnded(req.QuizID); n >= maxSessionsPerQuiz {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("quiz already has %d sessions that are not in END state", n))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	ls := &liveSession{
		s: domain.Session{
			SessionID:    id.String(),
			QuizID:       req.QuizID,
			OwnerID:      req.UserID,
			Snapshot:     *snap,
			State:        domain.StateLobby,
			AutoStartNum: req.AutoStartNum,
			CreateTime:   time.Now(),
		},
	}
	s.store.add(ls)

	telemetry.SessionsCreated.Inc()

	ss := ls.s
	return &ss, nil
}

func (s *Service) countNotEnded(quizID string) int {
	var n int
	for _, ls := range s.store.forQuiz(quizID) {
		ls.mu.Lock()
		if ls.s.State != domain.StateEnd {
			n++
		}
		ls.mu.Unlock()
	}
	return n
}

type ApplyTriggerRequest struct {
	UserID    string
	QuizID    string
	SessionID string
	Trigger   domain.Trigger
}

// ApplyTrigger applies a manual trigger to the session. An illegal
// (state, trigger) pair is rejected and leaves state unchanged.
func (s *Service) ApplyTrigger(ctx context.Context, req ApplyTriggerRequest) error {
	ls, err := s.ownedSession(req.UserID, req.QuizID, req.SessionID)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	return s.applyLocked(ctx, ls, req.Trigger)
}

func (s *Service) ownedSession(userID, quizID, sessionID string) (*liveSession, error) {
	ls, ok := s.store.get(sessionID)
	if !ok || ls.s.QuizID != quizID {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: quiz=%s session=%s", quizID, sessionID))
	}

	if ls.s.OwnerID != userID {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("session is not owned by user: session=%s", sessionID))
	}

	return ls, nil
}

// Shutdown cancels every pending session timer. Sessions themselves are
// process-local and not persisted.
func (s *Service) Shutdown() {
	for _, ls := range s.store.all() {
		ls.mu.Lock()
		s.cancelTimerLocked(ls)
		ls.mu.Unlock()
	}
}
