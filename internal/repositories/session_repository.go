package repositories

import (
	"context"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// SessionRepository reads questionnaire sessions and their answers. Sessions
// are written by the questionnaire surface; this service only reads them.
type SessionRepository interface {
	// GetByID returns the session identified by its public token, scoped to
	// the owning user. ErrNotFound covers both a missing session and one
	// owned by someone else.
	GetByID(ctx context.Context, sessionID string, userID uint) (*models.Session, error)

	// GetAnswers returns the session's answers joined with their questions,
	// in question order.
	GetAnswers(ctx context.Context, sessionID string) ([]models.SessionAnswer, error)
}

// UserRepository reads user records for profile mapping.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}
