package repositories

import (
	"errors"

	"github.com/verisona-ai/analysis-service/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateReport is returned when a non-failed report already exists
	// for the same (session, analysis type) pair.
	ErrDuplicateReport = errors.New("a report for this session and analysis type already exists")
)

// ===== SHARED FILTER STRUCTS =====

type ReportFilters struct {
	Status    *models.ReportStatus `json:"status"`
	Type      *models.AnalysisType `json:"type"`
	SessionID *string              `json:"session_id"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "completed_at"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}
