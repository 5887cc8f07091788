package session

import (
	"context"
	"sort"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

// SessionView is the owner-facing projection of a session. Answer
// correctness stays redacted (nil) until the session reaches
// ANSWER_SHOW or later.
type SessionView struct {
	SessionID  string
	State      domain.State
	AtQuestion int
	Players    []string
	QuizName   string
	Questions  []QuestionView
}

type QuestionView struct {
	Text         string
	DurationSecs int
	Points       int
	Answers      []AnswerView
}

type AnswerView struct {
	AnswerID int64
	Text     string
	Correct  *bool
}

type GetSessionStatusRequest struct {
	UserID    string
	QuizID    string
	SessionID string
}

func (s *Service) GetSessionStatus(ctx context.Context, req GetSessionStatusRequest) (*SessionView, error) {
	ls, err := s.ownedSession(req.UserID, req.QuizID, req.SessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	view := &SessionView{
		SessionID:  ls.s.SessionID,
		State:      ls.s.State,
		AtQuestion: ls.s.AtQuestion,
		QuizName:   ls.s.Snapshot.Name,
		Players:    make([]string, 0, len(ls.s.Players)),
		Questions:  make([]QuestionView, 0, len(ls.s.Snapshot.Questions)),
	}

	for _, p := range ls.s.Players {
		view.Players = append(view.Players, p.Name)
	}

	reveal := ls.s.State.AnswersVisible()
	for _, q := range ls.s.Snapshot.Questions {
		qv := QuestionView{
			Text:         q.Text,
			DurationSecs: q.DurationSecs,
			Points:       q.Points,
			Answers:      make([]AnswerView, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			av := AnswerView{
				AnswerID: a.AnswerID,
				Text:     a.Text,
			}
			if reveal {
				correct := a.Correct
				av.Correct = &correct
			}
			qv.Answers = append(qv.Answers, av)
		}
		view.Questions = append(view.Questions, qv)
	}

	return view, nil
}

type ListSessionsRequest struct {
	UserID string
	QuizID string
}

type ListSessionsResponse struct {
	ActiveSessionIDs   []string
	InactiveSessionIDs []string
}

// ListSessions partitions the quiz's sessions into active (state not
// END) and inactive id lists.
func (s *Service) ListSessions(ctx context.Context, req ListSessionsRequest) (*ListSessionsResponse, error) {
	owned, err := s.quiz.OwnedBy(ctx, req.UserID, req.QuizID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("quiz is not owned by user: quiz=%s", req.QuizID))
	}

	resp := &ListSessionsResponse{
		ActiveSessionIDs:   []string{},
		InactiveSessionIDs: []string{},
	}

	for _, ls := range s.store.forQuiz(req.QuizID) {
		ls.mu.Lock()
		if ls.s.State == domain.StateEnd {
			resp.InactiveSessionIDs = append(resp.InactiveSessionIDs, ls.s.SessionID)
		} else {
			resp.ActiveSessionIDs = append(resp.ActiveSessionIDs, ls.s.SessionID)
		}
		ls.mu.Unlock()
	}

	sort.Strings(resp.ActiveSessionIDs)
	sort.Strings(resp.InactiveSessionIDs)
	return resp, nil
}

// PlayerStatus is the guest-facing projection: enough to render where
// the session is without leaking the snapshot.
type PlayerStatus struct {
	State        domain.State
	NumQuestions int
	AtQuestion   int
	Score        float64
}

func (s *Service) GetPlayerStatus(ctx context.Context, playerID int64) (*PlayerStatus, error) {
	ls, ok := s.store.byPlayer(playerID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("player not found: player=%d", playerID))
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	ps := &PlayerStatus{
		State:        ls.s.State,
		NumQuestions: len(ls.s.Snapshot.Questions),
		AtQuestion:   ls.s.AtQuestion,
	}
	for _, p := range ls.s.Players {
		if p.ID == playerID {
			ps.Score = p.Score
			break
		}
	}

	return ps, nil
}
