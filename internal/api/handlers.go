package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/leaderboard"
	"github.com/victornm/livequiz/internal/session"
)

func (a *API) createSession(c *gin.Context) {
	var req struct {
		AutoStartNum int `json:"autoStartNum"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	ss, err := a.engine.CreateSession(c.Request.Context(), session.CreateSessionRequest{
		UserID:       userID(c),
		QuizID:       c.Param("quizid"),
		AutoStartNum: req.AutoStartNum,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": ss.SessionID})
}

func (a *API) applyTrigger(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	trigger, ok := domain.ParseTrigger(req.Action)
	if !ok {
		renderError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unknown action: %s", req.Action)))
		return
	}

	err := a.engine.ApplyTrigger(c.Request.Context(), session.ApplyTriggerRequest{
		UserID:    userID(c),
		QuizID:    c.Param("quizid"),
		SessionID: c.Param("sessionid"),
		Trigger:   trigger,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (a *API) getSessionStatus(c *gin.Context) {
	view, err := a.engine.GetSessionStatus(c.Request.Context(), session.GetSessionStatusRequest{
		UserID:    userID(c),
		QuizID:    c.Param("quizid"),
		SessionID: c.Param("sessionid"),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionView(view))
}

func (a *API) listSessions(c *gin.Context) {
	resp, err := a.engine.ListSessions(c.Request.Context(), session.ListSessionsRequest{
		UserID: userID(c),
		QuizID: c.Param("quizid"),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activeSessions":   resp.ActiveSessionIDs,
		"inactiveSessions": resp.InactiveSessionIDs,
	})
}

func (a *API) joinSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		Name      string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	playerID, err := a.engine.JoinSession(c.Request.Context(), session.JoinSessionRequest{
		SessionID: req.SessionID,
		Name:      req.Name,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerId": playerID})
}

func (a *API) submitAnswer(c *gin.Context) {
	playerID, err := playerIDParam(c)
	if err != nil {
		renderError(c, err)
		return
	}

	var req struct {
		QuestionPosition int     `json:"questionPosition"`
		AnswerIDs        []int64 `json:"answerIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	err = a.engine.SubmitAnswer(c.Request.Context(), session.SubmitAnswerRequest{
		PlayerID:         playerID,
		QuestionPosition: req.QuestionPosition,
		AnswerIDs:        req.AnswerIDs,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (a *API) getPlayerStatus(c *gin.Context) {
	playerID, err := playerIDParam(c)
	if err != nil {
		renderError(c, err)
		return
	}

	ps, err := a.engine.GetPlayerStatus(c.Request.Context(), playerID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":        ps.State.String(),
		"numQuestions": ps.NumQuestions,
		"atQuestion":   ps.AtQuestion,
		"score":        ps.Score,
	})
}

func (a *API) sendChatMessage(c *gin.Context) {
	playerID, err := playerIDParam(c)
	if err != nil {
		renderError(c, err)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	err = a.engine.SendChatMessage(c.Request.Context(), session.SendChatMessageRequest{
		PlayerID: playerID,
		Body:     req.Message,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (a *API) listChatMessages(c *gin.Context) {
	playerID, err := playerIDParam(c)
	if err != nil {
		renderError(c, err)
		return
	}

	messages, err := a.engine.ListChatMessages(c.Request.Context(), playerID)
	if err != nil {
		renderError(c, err)
		return
	}

	out := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		out = append(out, gin.H{
			"playerId":   m.PlayerID,
			"playerName": m.PlayerName,
			"message":    m.Body,
			"sentTime":   m.SentTime,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (a *API) getLeaderboard(c *gin.Context) {
	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		SessionID: c.Param("sessionid"),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	entries := make([]gin.H, 0, len(l.Entries))
	for _, e := range l.Entries {
		entries = append(entries, gin.H{
			"playerName": e.PlayerName,
			"score":      e.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": l.SessionID,
		"entries":   entries,
	})
}

func playerIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("playerid"), 10, 64)
	if err != nil {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid player id: %s", c.Param("playerid")))
	}
	return id, nil
}

func sessionView(v *session.SessionView) gin.H {
	questions := make([]gin.H, 0, len(v.Questions))
	for _, q := range v.Questions {
		answers := make([]gin.H, 0, len(q.Answers))
		for _, a := range q.Answers {
			av := gin.H{
				"answerId": a.AnswerID,
				"answer":   a.Text,
			}
			if a.Correct != nil {
				av["correct"] = *a.Correct
			}
			answers = append(answers, av)
		}
		questions = append(questions, gin.H{
			"question":     q.Text,
			"durationSecs": q.DurationSecs,
			"points":       q.Points,
			"answers":      answers,
		})
	}

	return gin.H{
		"sessionId":  v.SessionID,
		"state":      v.State.String(),
		"atQuestion": v.AtQuestion,
		"players":    v.Players,
		"metadata": gin.H{
			"name":      v.QuizName,
			"questions": questions,
		},
	}
}
