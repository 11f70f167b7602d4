package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, sessionID string, userID uint) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetAnswers(ctx context.Context, sessionID string) ([]models.SessionAnswer, error) {
	var answers []models.Answer
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, nil
	}

	questionIDs := make([]uint, 0, len(answers))
	for _, a := range answers {
		questionIDs = append(questionIDs, a.QuestionID)
	}

	var questions []models.Question
	err = s.db.WithContext(ctx).
		Where("id IN ?", questionIDs).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	byID := make(map[uint]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	joined := make([]models.SessionAnswer, 0, len(answers))
	for _, a := range answers {
		question, ok := byID[a.QuestionID]
		if !ok {
			// Orphaned answer; skip rather than fail the whole session.
			continue
		}
		joined = append(joined, models.SessionAnswer{Answer: a, Question: question})
	}
	return joined, nil
}
