package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/telemetry"
)

// countdownDuration is the fixed delay between announcing a question
// and opening it for answers.
const countdownDuration = 3 * time.Second

type transitionKey struct {
	state   domain.State
	trigger domain.Trigger
}

// transitions is the closed table of legal (state, trigger) pairs.
// Pairs not listed here are rejected without touching session state.
// StateEnd has no outbound edges. The guard on TriggerNextQuestion from
// QUESTION_CLOSE and ANSWER_SHOW (a next question must exist) lives in
// applyLocked, attached to the transition rather than bolted on after.
var transitions = map[transitionKey]domain.State{
	{domain.StateLobby, domain.TriggerNextQuestion}: domain.StateQuestionCountdown,
	{domain.StateLobby, domain.TriggerEnd}:          domain.StateEnd,

	{domain.StateQuestionCountdown, domain.TriggerSkipCountdown}:    domain.StateQuestionOpen,
	{domain.StateQuestionCountdown, domain.TriggerCountdownElapsed}: domain.StateQuestionOpen,
	{domain.StateQuestionCountdown, domain.TriggerEnd}:              domain.StateEnd,

	{domain.StateQuestionOpen, domain.TriggerGoToAnswer}:          domain.StateAnswerShow,
	{domain.StateQuestionOpen, domain.TriggerQuestionTimeElapsed}: domain.StateQuestionClose,
	{domain.StateQuestionOpen, domain.TriggerEnd}:                 domain.StateEnd,

	{domain.StateQuestionClose, domain.TriggerGoToAnswer}:       domain.StateAnswerShow,
	{domain.StateQuestionClose, domain.TriggerGoToFinalResults}: domain.StateFinalResults,
	{domain.StateQuestionClose, domain.TriggerNextQuestion}:     domain.StateQuestionCountdown,
	{domain.StateQuestionClose, domain.TriggerEnd}:              domain.StateEnd,

	{domain.StateAnswerShow, domain.TriggerNextQuestion}:     domain.StateQuestionCountdown,
	{domain.StateAnswerShow, domain.TriggerGoToFinalResults}: domain.StateFinalResults,
	{domain.StateAnswerShow, domain.TriggerEnd}:              domain.StateEnd,

	{domain.StateFinalResults, domain.TriggerEnd}: domain.StateEnd,
}

func errInvalidTransition(state domain.State, trigger domain.Trigger) error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("trigger %s is not allowed in state %s", trigger, state),
		errors.WithDetail("state", state.String()),
		errors.WithDetail("trigger", trigger.String()),
	)
}

// applyLocked validates tr against the table, moves the session and runs
// the entry side effects. Callers must hold ls.mu.
func (s *Service) applyLocked(ctx context.Context, ls *liveSession, tr domain.Trigger) error {
	next, ok := transitions[transitionKey{ls.s.State, tr}]
	if !ok {
		telemetry.TransitionsRejected.Inc()
		return errInvalidTransition(ls.s.State, tr)
	}

	if tr == domain.TriggerNextQuestion && ls.s.AtQuestion >= len(ls.s.Snapshot.Questions) {
		telemetry.TransitionsRejected.Inc()
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no questions remain after question %d", ls.s.AtQuestion),
			errors.WithDetail("state", ls.s.State.String()),
			errors.WithDetail("trigger", tr.String()),
		)
	}

	// The old slot is dead the moment the state moves on.
	s.cancelTimerLocked(ls)

	from := ls.s.State
	ls.s.State = next

	switch next {
	case domain.StateQuestionCountdown:
		ls.s.AtQuestion++
		s.armTimerLocked(ls, countdownDuration, domain.TriggerCountdownElapsed)

	case domain.StateQuestionOpen:
		ls.questionOpenAt = time.Now()
		q := ls.s.Snapshot.Questions[ls.s.AtQuestion-1]
		s.armTimerLocked(ls, time.Duration(q.DurationSecs)*time.Second, domain.TriggerQuestionTimeElapsed)

	case domain.StateFinalResults:
		ls.s.AtQuestion = 0

	case domain.StateEnd:
		ls.s.AtQuestion = 0
	}

	telemetry.TransitionsApplied.WithLabelValues(from.String(), tr.String()).Inc()
	slog.DebugContext(ctx, "session: transition applied",
		"session", ls.s.SessionID,
		"from", from,
		"to", next,
		"trigger", tr,
	)

	s.eb.Publish(ctx, domain.EventSessionStateChanged{
		SessionID:  ls.s.SessionID,
		State:      next,
		AtQuestion: ls.s.AtQuestion,
	})
	if next == domain.StateEnd {
		s.eb.Publish(ctx, domain.EventSessionEnded{SessionID: ls.s.SessionID})
	}

	return nil
}

// armTimerLocked replaces the session's timer slot with a fresh one, so
// at most one callback is ever pending per session. Callers must hold
// ls.mu.
func (s *Service) armTimerLocked(ls *liveSession, d time.Duration, tr domain.Trigger) {
	s.cancelTimerLocked(ls)

	gen := ls.timerGen
	sessionID := ls.s.SessionID
	ls.timer = s.newTimer(d, func() {
		s.fire(sessionID, gen, tr)
	})
}

// cancelTimerLocked stops any pending callback and bumps the generation
// so a callback that already fired and is waiting on ls.mu cannot apply.
// Callers must hold ls.mu.
func (s *Service) cancelTimerLocked(ls *liveSession) {
	if ls.timer != nil {
		ls.timer.Stop()
		ls.timer = nil
	}
	ls.timerGen++
}

// fire applies a timer-sourced trigger. It re-checks the generation
// under the session lock: if the slot was cancelled or superseded after
// this callback was armed, it is a no-op.
func (s *Service) fire(sessionID string, gen uint64, tr domain.Trigger) {
	ls, ok := s.store.get(sessionID)
	if !ok {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if gen != ls.timerGen {
		return
	}
	ls.timer = nil

	ctx := context.Background()
	if err := s.applyLocked(ctx, ls, tr); err != nil {
		slog.ErrorContext(ctx, "session: timer trigger rejected",
			"session", sessionID,
			"trigger", tr,
			"error", err,
		)
	}
}
