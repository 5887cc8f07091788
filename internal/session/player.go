package session

import (
	"context"
	"time"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/telemetry"
)

type JoinSessionRequest struct {
	SessionID string
	Name      string
}

// JoinSession admits a guest player into a LOBBY session. Names are
// case-sensitive and unique within the session. Reaching AutoStartNum
// players kicks off the same sequence as a manual NEXT_QUESTION; the
// check is gated on the state still being LOBBY at that moment, so
// auto-start can fire at most once.
func (s *Service) JoinSession(ctx context.Context, req JoinSessionRequest) (int64, error) {
	ls, ok := s.store.get(req.SessionID)
	if !ok {
		return 0, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session not found: session=%s", req.SessionID))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.s.State != domain.StateLobby {
		return 0, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session is not accepting players: state=%s", ls.s.State))
	}

	for _, p := range ls.s.Players {
		if p.Name == req.Name {
			return 0, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("name is already taken: session=%s name=%s", req.SessionID, req.Name))
		}
	}

	id := s.store.admitPlayer(ls)
	ls.s.Players = append(ls.s.Players, domain.Player{
		ID:   id,
		Name: req.Name,
	})

	if ls.s.AutoStartNum > 0 && len(ls.s.Players) == ls.s.AutoStartNum && ls.s.State == domain.StateLobby {
		// Cannot fail: NEXT_QUESTION is always legal in LOBBY and at
		// least one question exists.
		_ = s.applyLocked(ctx, ls, domain.TriggerNextQuestion)
	}

	return id, nil
}

type SubmitAnswerRequest struct {
	PlayerID         int64
	QuestionPosition int
	AnswerIDs        []int64
}

// SubmitAnswer records a player's attempt against the currently open
// question. Correctness and awarded points are computed downstream from
// the attempt.recorded event; the engine only validates and records.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) error {
	ls, ok := s.store.byPlayer(req.PlayerID)
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("player not found: player=%d", req.PlayerID))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if req.QuestionPosition < 1 || req.QuestionPosition > len(ls.s.Snapshot.Questions) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question position %d is out of range [1, %d]", req.QuestionPosition, len(ls.s.Snapshot.Questions)))
	}

	if ls.s.State != domain.StateQuestionOpen {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("question is not open for answers: state=%s", ls.s.State))
	}

	if req.QuestionPosition != ls.s.AtQuestion {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question %d is not the live question %d", req.QuestionPosition, ls.s.AtQuestion))
	}

	q := ls.s.Snapshot.Questions[req.QuestionPosition-1]
	if err := validateAnswerIDs(req.AnswerIDs, q); err != nil {
		return err
	}

	for _, a := range ls.s.Attempts {
		if a.PlayerID == req.PlayerID && a.QuestionPosition == req.QuestionPosition {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("answer is already submitted: player=%d question=%d", req.PlayerID, req.QuestionPosition))
		}
	}

	now := time.Now()
	attempt := domain.Attempt{
		PlayerID:         req.PlayerID,
		QuestionPosition: req.QuestionPosition,
		AnswerIDs:        append([]int64(nil), req.AnswerIDs...),
		Points:           q.Points,
		TimeTaken:        now.Sub(ls.questionOpenAt),
		SubmitTime:       now,
	}
	ls.s.Attempts = append(ls.s.Attempts, attempt)

	telemetry.AttemptsRecorded.Inc()

	s.eb.Publish(ctx, domain.EventAttemptRecorded{
		SessionID:        ls.s.SessionID,
		PlayerID:         req.PlayerID,
		PlayerName:       playerName(ls.s.Players, req.PlayerID),
		QuestionPosition: req.QuestionPosition,
		AnswerIDs:        attempt.AnswerIDs,
		CorrectAnswerIDs: correctAnswerIDs(q),
		Points:           q.Points,
		TimeTaken:        attempt.TimeTaken,
		SubmitTime:       now,
	})

	return nil
}

func validateAnswerIDs(ids []int64, q domain.Question) error {
	if len(ids) == 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("no answer ids submitted"))
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("duplicate answer id %d", id))
		}
		seen[id] = true

		var found bool
		for _, a := range q.Answers {
			if a.AnswerID == id {
				found = true
				break
			}
		}
		if !found {
			return errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("answer id %d does not belong to the question", id))
		}
	}

	return nil
}

func correctAnswerIDs(q domain.Question) []int64 {
	var ids []int64
	for _, a := range q.Answers {
		if a.Correct {
			ids = append(ids, a.AnswerID)
		}
	}
	return ids
}

func playerName(players []domain.Player, id int64) string {
	var name string
	for _, p := range players {
		if p.ID == id {
			name = p.Name
			break
		}
	}
	return name
}

// CreditPoints adds awarded points to a player's running total. It is
// called by the score service once correctness has been settled.
func (s *Service) CreditPoints(playerID int64, points float64) error {
	ls, ok := s.store.byPlayer(playerID)
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("player not found: player=%d", playerID))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	for i := range ls.s.Players {
		if ls.s.Players[i].ID == playerID {
			ls.s.Players[i].Score += points
			return nil
		}
	}

	return errors.New(errors.CodeNotFound,
		errors.WithMessagef("player not found: player=%d", playerID))
}

type SendChatMessageRequest struct {
	PlayerID int64
	Body     string
}

// SendChatMessage appends a chat message from a joined player.
func (s *Service) SendChatMessage(ctx context.Context, req SendChatMessageRequest) error {
	ls, ok := s.store.byPlayer(req.PlayerID)
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("player not found: player=%d", req.PlayerID))
	}

	if len(req.Body) < 1 || len(req.Body) > maxChatMessageLength {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("message body must be between 1 and %d characters", maxChatMessageLength))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.s.Messages = append(ls.s.Messages, domain.Message{
		PlayerID:   req.PlayerID,
		PlayerName: playerName(ls.s.Players, req.PlayerID),
		Body:       req.Body,
		SentTime:   time.Now(),
	})

	return nil
}

// ListChatMessages returns the session's chat in send order, visible to
// any joined player.
func (s *Service) ListChatMessages(ctx context.Context, playerID int64) ([]domain.Message, error) {
	ls, ok := s.store.byPlayer(playerID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("player not found: player=%d", playerID))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	return append([]domain.Message(nil), ls.s.Messages...), nil
}
