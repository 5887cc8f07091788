package score

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
)

// PointsSink receives settled awards back into the live session state.
type PointsSink interface {
	CreditPoints(playerID int64, points float64) error
}

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
	Engine   PointsSink
}

// Service settles attempts into awarded points. It consumes the
// attempt.recorded events the engine publishes; the engine itself never
// computes correctness.
type Service struct {
	eb     *event.Bus
	db     *pgxpool.Pool
	engine PointsSink
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		db:     c.DB,
		engine: c.Engine,
	}

	s.eb.Subscribe(domain.EventNameAttemptRecorded, func(ctx context.Context, e event.Event) error {
		return s.SettleAttempt(ctx, e.(domain.EventAttemptRecorded))
	})

	return s
}

// SettleAttempt awards points for one recorded attempt, persists it and
// publishes the player's new total.
func (s *Service) SettleAttempt(ctx context.Context, e domain.EventAttemptRecorded) error {
	award := AwardedPoints(e.AnswerIDs, e.CorrectAnswerIDs, e.Points)

	total, err := s.insertAttempt(ctx, e, award)
	if err != nil {
		return fmt.Errorf("settle attempt: %w", err)
	}

	if err := s.engine.CreditPoints(e.PlayerID, award.InexactFloat64()); err != nil {
		return fmt.Errorf("credit points: %w", err)
	}

	s.eb.Publish(ctx, domain.EventScoreUpdated{
		Score: domain.Score{
			SessionID:  e.SessionID,
			PlayerID:   e.PlayerID,
			PlayerName: e.PlayerName,
			TotalScore: total,
			UpdateTime: e.SubmitTime,
		},
	})

	return nil
}

func (s *Service) insertAttempt(ctx context.Context, e domain.EventAttemptRecorded, award decimal.Decimal) (decimal.Decimal, error) {
	const stmt = `
WITH inserted AS (
	INSERT INTO attempts (session_id, player_id, question_position, points, time_taken_ms, create_time)
	VALUES ($1, $2, $3, $4, $5, $6)
)
SELECT COALESCE(SUM(points), 0) AS points FROM attempts WHERE session_id = $1 AND player_id = $2;`

	var total decimal.Decimal
	err := s.db.QueryRow(ctx, stmt,
		e.SessionID, e.PlayerID, e.QuestionPosition, award, e.TimeTaken.Milliseconds(), e.SubmitTime,
	).Scan(&total)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return decimal.Zero, errors.New(errors.CodeAlreadyExists,
			errors.WithCause(err))
	}

	if err != nil {
		return decimal.Zero, err
	}

	return total.Add(award), nil
}
