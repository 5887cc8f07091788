package quiz

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// PostgresProvider reads quiz definitions from the authoring database.
type PostgresProvider struct {
	db *pgxpool.Pool
}

func NewPostgresProvider(c Config) *PostgresProvider {
	return &PostgresProvider{db: c.DB}
}

func (p *PostgresProvider) GetSnapshot(ctx context.Context, quizID string) (*domain.QuizSnapshot, error) {
	const quizStmt = `SELECT name FROM quizzes WHERE quiz_id = $1 AND NOT in_trash;`

	var snap domain.QuizSnapshot
	err := p.db.QueryRow(ctx, quizStmt, quizID).Scan(&snap.Name)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: quiz=%s", quizID))
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}

	questions, err := p.selectQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	snap.Questions = questions

	return &snap, nil
}

func (p *PostgresProvider) selectQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	const questionStmt = `
SELECT question, duration_secs, points
FROM questions
WHERE quiz_id = $1
ORDER BY position;`

	rows, err := p.db.Query(ctx, questionStmt, quizID)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var q domain.Question
		if err := r.Scan(&q.Text, &q.DurationSecs, &q.Points); err != nil {
			return domain.Question{}, err
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	const answerStmt = `
SELECT question_position, answer_id, answer, correct
FROM answers
WHERE quiz_id = $1
ORDER BY question_position, answer_id;`

	rows, err = p.db.Query(ctx, answerStmt, quizID)
	if err != nil {
		return nil, fmt.Errorf("select answers: %w", err)
	}

	type answerRow struct {
		position int
		option   domain.AnswerOption
	}

	answers, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (answerRow, error) {
		var a answerRow
		if err := r.Scan(&a.position, &a.option.AnswerID, &a.option.Text, &a.option.Correct); err != nil {
			return answerRow{}, err
		}
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect answers: %w", err)
	}

	for _, a := range answers {
		if a.position < 1 || a.position > len(questions) {
			return nil, fmt.Errorf("answer references question %d of %d", a.position, len(questions))
		}
		q := &questions[a.position-1]
		q.Answers = append(q.Answers, a.option)
	}

	return questions, nil
}

func (p *PostgresProvider) ExistsAndNotTrashed(ctx context.Context, quizID string) (bool, error) {
	const stmt = `SELECT EXISTS (SELECT 1 FROM quizzes WHERE quiz_id = $1 AND NOT in_trash);`

	var exists bool
	if err := p.db.QueryRow(ctx, stmt, quizID).Scan(&exists); err != nil {
		return false, fmt.Errorf("select quiz exists: %w", err)
	}

	return exists, nil
}

func (p *PostgresProvider) OwnedBy(ctx context.Context, userID, quizID string) (bool, error) {
	const stmt = `SELECT owner_id FROM quizzes WHERE quiz_id = $1;`

	var owner string
	err := p.db.QueryRow(ctx, stmt, quizID).Scan(&owner)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select quiz owner: %w", err)
	}

	return owner == userID, nil
}
