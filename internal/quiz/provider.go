package quiz

import (
	"context"

	"github.com/victornm/livequiz/internal/domain"
)

// Provider is the read side of the quiz-authoring service. The session
// engine consumes it through this interface only; authoring CRUD lives
// elsewhere.
type Provider interface {
	// GetSnapshot returns an immutable copy of the quiz's questions.
	GetSnapshot(ctx context.Context, quizID string) (*domain.QuizSnapshot, error)
	// ExistsAndNotTrashed reports whether the quiz exists and is not in
	// the trash.
	ExistsAndNotTrashed(ctx context.Context, quizID string) (bool, error)
	// OwnedBy reports whether the quiz belongs to the given user.
	OwnedBy(ctx context.Context, userID, quizID string) (bool, error)
}
