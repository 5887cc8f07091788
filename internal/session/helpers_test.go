package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/session"
)

// fakeQuiz is an in-memory quiz.Provider.
type fakeQuiz struct {
	snapshots map[string]domain.QuizSnapshot
	owners    map[string]string
	trashed   map[string]bool
}

func newFakeQuiz() *fakeQuiz {
	return &fakeQuiz{
		snapshots: make(map[string]domain.QuizSnapshot),
		owners:    make(map[string]string),
		trashed:   make(map[string]bool),
	}
}

func (f *fakeQuiz) addQuiz(quizID, ownerID string, questions ...domain.Question) {
	f.snapshots[quizID] = domain.QuizSnapshot{
		Name:      "quiz " + quizID,
		Questions: questions,
	}
	f.owners[quizID] = ownerID
}

func (f *fakeQuiz) GetSnapshot(_ context.Context, quizID string) (*domain.QuizSnapshot, error) {
	snap, ok := f.snapshots[quizID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: quiz=%s", quizID))
	}
	return &snap, nil
}

func (f *fakeQuiz) ExistsAndNotTrashed(_ context.Context, quizID string) (bool, error) {
	_, ok := f.snapshots[quizID]
	return ok && !f.trashed[quizID], nil
}

func (f *fakeQuiz) OwnedBy(_ context.Context, userID, quizID string) (bool, error) {
	return f.owners[quizID] == userID, nil
}

// fakeTimer is fired by hand so engine timing is deterministic.
type fakeTimer struct {
	d time.Duration
	f func()

	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()

	t.f()
}

// fireRacy runs the callback even when the timer was stopped, the way a
// real callback goroutine that started before Stop would. The engine's
// generation check must make this a no-op.
func (t *fakeTimer) fireRacy() {
	t.f()
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) NewTimer(d time.Duration, f func()) session.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// fireLast fires the most recently armed timer.
func (s *fakeScheduler) fireLast(t *testing.T) {
	t.Helper()

	last := s.last()
	require.NotNil(t, last, "no timer was armed")
	last.fire()
}

// pending counts timers that are armed but neither fired nor stopped.
func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

func makeService(t *testing.T, opts ...options) *session.Service {
	c := session.Config{
		Quiz:     defaultQuiz(),
		EventBus: event.NewBus(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return session.NewService(c)
}

type options func(c *session.Config)

func withQuiz(q *fakeQuiz) options {
	return func(c *session.Config) {
		c.Quiz = q
	}
}

func withEventBus(eb *event.Bus) options {
	return func(c *session.Config) {
		c.EventBus = eb
	}
}

func withScheduler(fs *fakeScheduler) options {
	return func(c *session.Config) {
		c.NewTimerFunc = fs.NewTimer
	}
}

// defaultQuiz has quiz "q1" owned by "u1" with three questions.
func defaultQuiz() *fakeQuiz {
	q := newFakeQuiz()
	q.addQuiz("q1", "u1", questions(3)...)
	return q
}

func questions(n int) []domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, domain.Question{
			Text:         fmt.Sprintf("question %d", i),
			DurationSecs: i,
			Points:       i * 5,
			Answers: []domain.AnswerOption{
				{AnswerID: int64(i*10 + 1), Text: "right", Correct: true},
				{AnswerID: int64(i*10 + 2), Text: "wrong"},
				{AnswerID: int64(i*10 + 3), Text: "also wrong"},
			},
		})
	}
	return qs
}

func createSession(t *testing.T, svc *session.Service, autoStart int) string {
	t.Helper()

	ss, err := svc.CreateSession(context.Background(), session.CreateSessionRequest{
		UserID:       "u1",
		QuizID:       "q1",
		AutoStartNum: autoStart,
	})
	require.NoError(t, err)
	return ss.SessionID
}

func trigger(t *testing.T, svc *session.Service, sessionID string, tr domain.Trigger) {
	t.Helper()

	err := svc.ApplyTrigger(context.Background(), session.ApplyTriggerRequest{
		UserID:    "u1",
		QuizID:    "q1",
		SessionID: sessionID,
		Trigger:   tr,
	})
	require.NoError(t, err)
}

func sessionState(t *testing.T, svc *session.Service, sessionID string) domain.State {
	t.Helper()

	view, err := svc.GetSessionStatus(context.Background(), session.GetSessionStatusRequest{
		UserID:    "u1",
		QuizID:    "q1",
		SessionID: sessionID,
	})
	require.NoError(t, err)
	return view.State
}

func atQuestion(t *testing.T, svc *session.Service, sessionID string) int {
	t.Helper()

	view, err := svc.GetSessionStatus(context.Background(), session.GetSessionStatusRequest{
		UserID:    "u1",
		QuizID:    "q1",
		SessionID: sessionID,
	})
	require.NoError(t, err)
	return view.AtQuestion
}

// driveTo moves a fresh LOBBY session into the wanted state using only
// legal transitions and manual timer firing.
func driveTo(t *testing.T, svc *session.Service, fs *fakeScheduler, sessionID string, want domain.State) {
	t.Helper()

	switch want {
	case domain.StateLobby:

	case domain.StateQuestionCountdown:
		trigger(t, svc, sessionID, domain.TriggerNextQuestion)

	case domain.StateQuestionOpen:
		trigger(t, svc, sessionID, domain.TriggerNextQuestion)
		trigger(t, svc, sessionID, domain.TriggerSkipCountdown)

	case domain.StateQuestionClose:
		trigger(t, svc, sessionID, domain.TriggerNextQuestion)
		trigger(t, svc, sessionID, domain.TriggerSkipCountdown)
		fs.fireLast(t)

	case domain.StateAnswerShow:
		trigger(t, svc, sessionID, domain.TriggerNextQuestion)
		trigger(t, svc, sessionID, domain.TriggerSkipCountdown)
		trigger(t, svc, sessionID, domain.TriggerGoToAnswer)

	case domain.StateFinalResults:
		trigger(t, svc, sessionID, domain.TriggerNextQuestion)
		trigger(t, svc, sessionID, domain.TriggerSkipCountdown)
		trigger(t, svc, sessionID, domain.TriggerGoToAnswer)
		trigger(t, svc, sessionID, domain.TriggerGoToFinalResults)

	case domain.StateEnd:
		trigger(t, svc, sessionID, domain.TriggerEnd)
	}

	require.Equal(t, want, sessionState(t, svc, sessionID))
}
