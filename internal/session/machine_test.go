package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/session"
)

// allowedTransitions is the full manual-trigger table. Every pair not
// listed must be rejected without a state change.
var allowedTransitions = map[domain.State]map[domain.Trigger]domain.State{
	domain.StateLobby: {
		domain.TriggerNextQuestion: domain.StateQuestionCountdown,
		domain.TriggerEnd:          domain.StateEnd,
	},
	domain.StateQuestionCountdown: {
		domain.TriggerSkipCountdown: domain.StateQuestionOpen,
		domain.TriggerEnd:           domain.StateEnd,
	},
	domain.StateQuestionOpen: {
		domain.TriggerGoToAnswer: domain.StateAnswerShow,
		domain.TriggerEnd:        domain.StateEnd,
	},
	domain.StateQuestionClose: {
		domain.TriggerGoToAnswer:       domain.StateAnswerShow,
		domain.TriggerGoToFinalResults: domain.StateFinalResults,
		domain.TriggerNextQuestion:     domain.StateQuestionCountdown,
		domain.TriggerEnd:              domain.StateEnd,
	},
	domain.StateAnswerShow: {
		domain.TriggerNextQuestion:     domain.StateQuestionCountdown,
		domain.TriggerGoToFinalResults: domain.StateFinalResults,
		domain.TriggerEnd:              domain.StateEnd,
	},
	domain.StateFinalResults: {
		domain.TriggerEnd: domain.StateEnd,
	},
	domain.StateEnd: {},
}

var manualTriggers = []domain.Trigger{
	domain.TriggerNextQuestion,
	domain.TriggerSkipCountdown,
	domain.TriggerGoToAnswer,
	domain.TriggerGoToFinalResults,
	domain.TriggerEnd,
}

func TestApplyTrigger_TransitionTable(t *testing.T) {
	for state, accepted := range allowedTransitions {
		for _, tr := range manualTriggers {
			want, ok := accepted[tr]

			name := fmt.Sprintf("%s + %s", state, tr)
			if ok {
				name += " -> " + want.String()
			} else {
				name += " rejected"
			}

			t.Run(name, func(t *testing.T) {
				fs := newFakeScheduler()
				svc := makeService(t, withScheduler(fs))
				id := createSession(t, svc, 0)
				driveTo(t, svc, fs, id, state)

				err := svc.ApplyTrigger(context.Background(), session.ApplyTriggerRequest{
					UserID:    "u1",
					QuizID:    "q1",
					SessionID: id,
					Trigger:   tr,
				})

				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, sessionState(t, svc, id))
					return
				}

				require.Error(t, err)
				assert.Equal(t, errors.CodeFailedPrecondition, errors.Convert(err).Code)
				assert.Equal(t, state, sessionState(t, svc, id), "rejected trigger must not change state")
			})
		}
	}
}

func TestApplyTrigger_QuestionLifecycleTimers(t *testing.T) {
	fs := newFakeScheduler()
	svc := makeService(t, withScheduler(fs))
	id := createSession(t, svc, 0)

	trigger(t, svc, id, domain.TriggerNextQuestion)
	require.Equal(t, domain.StateQuestionCountdown, sessionState(t, svc, id))
	require.Equal(t, 1, atQuestion(t, svc, id))
	require.Equal(t, 3*time.Second, fs.last().d, "countdown is fixed at 3 seconds")

	fs.fireLast(t)
	require.Equal(t, domain.StateQuestionOpen, sessionState(t, svc, id))
	require.Equal(t, 1*time.Second, fs.last().d, "open phase lasts the question's duration")

	fs.fireLast(t)
	require.Equal(t, domain.StateQuestionClose, sessionState(t, svc, id))
	require.Equal(t, 0, fs.pending(), "no timer is armed in QUESTION_CLOSE")

	// Second question has its own duration.
	trigger(t, svc, id, domain.TriggerNextQuestion)
	require.Equal(t, 2, atQuestion(t, svc, id))
	trigger(t, svc, id, domain.TriggerSkipCountdown)
	require.Equal(t, 2*time.Second, fs.last().d)
}

func TestApplyTrigger_AtMostOnePendingTimer(t *testing.T) {
	fs := newFakeScheduler()
	svc := makeService(t, withScheduler(fs))
	id := createSession(t, svc, 0)

	steps := []func(){
		func() { trigger(t, svc, id, domain.TriggerNextQuestion) },
		func() { trigger(t, svc, id, domain.TriggerSkipCountdown) },
		func() { fs.fireLast(t) },
		func() { trigger(t, svc, id, domain.TriggerNextQuestion) },
		func() { fs.fireLast(t) },
		func() { trigger(t, svc, id, domain.TriggerGoToAnswer) },
		func() { trigger(t, svc, id, domain.TriggerNextQuestion) },
		func() { trigger(t, svc, id, domain.TriggerEnd) },
	}

	for i, step := range steps {
		step()
		assert.LessOrEqual(t, fs.pending(), 1, "after step %d", i)
	}

	assert.Equal(t, 0, fs.pending(), "END must cancel the pending timer")
}

func TestApplyTrigger_CancelledTimerCannotFire(t *testing.T) {
	fs := newFakeScheduler()
	svc := makeService(t, withScheduler(fs))
	id := createSession(t, svc, 0)

	trigger(t, svc, id, domain.TriggerNextQuestion)
	countdown := fs.last()

	trigger(t, svc, id, domain.TriggerEnd)
	require.Equal(t, domain.StateEnd, sessionState(t, svc, id))

	// Simulate the callback goroutine racing the cancellation.
	countdown.fireRacy()

	assert.Equal(t, domain.StateEnd, sessionState(t, svc, id), "a cancelled callback must never mutate state")
	assert.Equal(t, 0, fs.pending())
}

func TestApplyTrigger_SupersededTimerCannotFire(t *testing.T) {
	fs := newFakeScheduler()
	svc := makeService(t, withScheduler(fs))
	id := createSession(t, svc, 0)

	trigger(t, svc, id, domain.TriggerNextQuestion)
	countdown := fs.last()

	// SKIP_COUNTDOWN replaces the countdown timer with the question
	// duration timer.
	trigger(t, svc, id, domain.TriggerSkipCountdown)
	require.Equal(t, domain.StateQuestionOpen, sessionState(t, svc, id))

	countdown.fireRacy()

	assert.Equal(t, domain.StateQuestionOpen, sessionState(t, svc, id))
	assert.Equal(t, 1, fs.pending(), "only the question duration timer remains")
}

func TestApplyTrigger_NextQuestionGuard(t *testing.T) {
	fq := newFakeQuiz()
	fq.addQuiz("q1", "u1", questions(1)...)

	for _, state := range []domain.State{domain.StateQuestionClose, domain.StateAnswerShow} {
		t.Run("last question in "+state.String(), func(t *testing.T) {
			fs := newFakeScheduler()
			svc := makeService(t, withQuiz(fq), withScheduler(fs))
			id := createSession(t, svc, 0)
			driveTo(t, svc, fs, id, state)

			err := svc.ApplyTrigger(context.Background(), session.ApplyTriggerRequest{
				UserID:    "u1",
				QuizID:    "q1",
				SessionID: id,
				Trigger:   domain.TriggerNextQuestion,
			})

			require.Error(t, err)
			assert.Equal(t, errors.CodeFailedPrecondition, errors.Convert(err).Code)
			assert.Equal(t, state, sessionState(t, svc, id))
		})
	}

	t.Run("questions remain", func(t *testing.T) {
		fs := newFakeScheduler()
		svc := makeService(t, withScheduler(fs))
		id := createSession(t, svc, 0)
		driveTo(t, svc, fs, id, domain.StateAnswerShow)

		trigger(t, svc, id, domain.TriggerNextQuestion)
		assert.Equal(t, domain.StateQuestionCountdown, sessionState(t, svc, id))
		assert.Equal(t, 2, atQuestion(t, svc, id))
	})
}

func TestApplyTrigger_ResetsAtQuestion(t *testing.T) {
	t.Run("FINAL_RESULTS", func(t *testing.T) {
		fs := newFakeScheduler()
		svc := makeService(t, withScheduler(fs))
		id := createSession(t, svc, 0)
		driveTo(t, svc, fs, id, domain.StateAnswerShow)
		require.Equal(t, 1, atQuestion(t, svc, id))

		trigger(t, svc, id, domain.TriggerGoToFinalResults)
		assert.Equal(t, 0, atQuestion(t, svc, id))
	})

	t.Run("END", func(t *testing.T) {
		fs := newFakeScheduler()
		svc := makeService(t, withScheduler(fs))
		id := createSession(t, svc, 0)
		driveTo(t, svc, fs, id, domain.StateQuestionOpen)
		require.Equal(t, 1, atQuestion(t, svc, id))
		require.Equal(t, 1, fs.pending())

		trigger(t, svc, id, domain.TriggerEnd)
		assert.Equal(t, 0, atQuestion(t, svc, id))
		assert.Equal(t, 0, fs.pending(), "END must cancel the pending timer")
	})
}

func TestApplyTrigger_Errors(t *testing.T) {
	fs := newFakeScheduler()
	svc := makeService(t, withScheduler(fs))
	id := createSession(t, svc, 0)

	t.Run("unknown session", func(t *testing.T) {
		err := svc.ApplyTrigger(context.Background(), session.ApplyTriggerRequest{
			UserID:    "u1",
			QuizID:    "q1",
			SessionID: "nope",
			Trigger:   domain.TriggerEnd,
		})
		assert.Equal(t, errors.CodeNotFound, errors.Convert(err).Code)
	})

	t.Run("session of another quiz", func(t *testing.T) {
		err := svc.ApplyTrigger(context.Background(), session.ApplyTriggerRequest{
			UserID:    "u1",
			QuizID:    "q2",
			SessionID: id,
			Trigger:   domain.TriggerEnd,
		})
		assert.Equal(t, errors.CodeNotFound, errors.Convert(err).Code)
	})

	t.Run("not the owner", func(t *testing.T) {
		err := svc.ApplyTrigger(context.Background(), session.ApplyTriggerRequest{
			UserID:    "u2",
			QuizID:    "q1",
			SessionID: id,
			Trigger:   domain.TriggerEnd,
		})
		assert.Equal(t, errors.CodePermissionDenied, errors.Convert(err).Code)
	})
}
