package repositories

import (
	"context"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// ReportRepository persists analysis job records. It is the single source of
// truth for job state; background workers and request handlers communicate
// only through it.
type ReportRepository interface {
	// Create inserts a new report. Returns ErrDuplicateReport when a
	// non-failed report already exists for the same session and type.
	Create(ctx context.Context, report *models.Report) error

	GetByID(ctx context.Context, id string) (*models.Report, error)

	// GetBySessionAndType returns the most recent report for the pair, or
	// ErrNotFound.
	GetBySessionAndType(ctx context.Context, sessionID string, analysisType models.AnalysisType) (*models.Report, error)

	// Update persists the report's current state (status, content, error
	// detail, timing).
	Update(ctx context.Context, report *models.Report) error

	// ListBySessionIDs returns all reports belonging to the given sessions.
	ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]*models.Report, error)

	// ListByUser returns a user's reports with filters and the total count.
	ListByUser(ctx context.Context, userID uint, filters ReportFilters) ([]*models.Report, int64, error)
}
