package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/livequiz/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	SessionState struct {
		SessionID  string `json:"session_id"`
		State      string `json:"state"`
		AtQuestion int    `json:"at_question"`
	}

	Leaderboard struct {
		SessionID string             `json:"session_id"`
		Entries   []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		PlayerName string `json:"player_name"`
		Score      string `json:"score"`
	}
)

// PublishSessionStateChanged notifies the session's channel so the
// delivery layer can fan the new state out to connected clients.
func (a *API) PublishSessionStateChanged(ctx context.Context, e domain.EventSessionStateChanged) error {
	data := SessionState{
		SessionID:  e.SessionID,
		State:      e.State.String(),
		AtQuestion: e.AtQuestion,
	}

	return a.publishNotification(ctx, a.sessionChannel(e.SessionID), e.Name(), data)
}

func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	l := e.Leaderboard

	data := Leaderboard{
		SessionID: l.SessionID,
		Entries:   make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for _, entry := range l.Entries {
		data.Entries = append(data.Entries, LeaderboardEntry{
			PlayerName: entry.PlayerName,
			Score:      strconv.FormatFloat(entry.Score, 'f', -1, 64),
		})
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	eg.Go(func() error {
		return a.publishNotification(ctx, a.sessionChannel(l.SessionID), e.Name(), data)
	})

	for _, entry := range data.Entries {
		entry := entry
		eg.Go(func() error {
			return a.publishNotification(ctx, a.playerChannel(l.SessionID, entry.PlayerName), e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) sessionChannel(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", a.prefix, sessionID)
}

func (a *API) playerChannel(sessionID, playerName string) string {
	return fmt.Sprintf("%s:session:%s:player:%s", a.prefix, sessionID, playerName)
}
