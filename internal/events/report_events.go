package events

import (
	"time"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// EventType represents different types of report lifecycle events
type EventType string

const (
	EventReportGenerated EventType = "report.generated"
	EventReportFailed    EventType = "report.failed"
)

const (
	eventSource  = "analysis-service"
	eventVersion = "1.0"
)

// ReportEvent is the base event structure for all report lifecycle events
type ReportEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Report lifecycle event payloads

type ReportGeneratedEvent struct {
	ReportID     string              `json:"report_id"`
	SessionID    string              `json:"session_id"`
	UserID       uint                `json:"user_id"`
	AnalysisType models.AnalysisType `json:"analysis_type"`
	Title        string              `json:"title"`
	ProcessingMS int64               `json:"processing_ms"`
	CompletedAt  time.Time           `json:"completed_at"`
}

type ReportFailedEvent struct {
	ReportID     string              `json:"report_id"`
	SessionID    string              `json:"session_id"`
	UserID       uint                `json:"user_id"`
	AnalysisType models.AnalysisType `json:"analysis_type"`
	ErrorKind    string              `json:"error_kind"`
	ErrorMessage string              `json:"error_message"`
	FailedAt     time.Time           `json:"failed_at"`
}

// NewReportGenerated wraps a completed report into the event envelope.
func NewReportGenerated(eventID string, report *models.Report) *ReportEvent {
	completedAt := time.Now()
	if report.CompletedAt != nil {
		completedAt = *report.CompletedAt
	}

	return &ReportEvent{
		ID:        eventID,
		Type:      EventReportGenerated,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data: ReportGeneratedEvent{
			ReportID:     report.ID,
			SessionID:    report.SessionID,
			UserID:       report.UserID,
			AnalysisType: report.Type,
			Title:        report.Title,
			ProcessingMS: report.ProcessingMS,
			CompletedAt:  completedAt,
		},
	}
}

// NewReportFailed wraps a failed report into the event envelope.
func NewReportFailed(eventID string, report *models.Report, detail models.ErrorDetail) *ReportEvent {
	return &ReportEvent{
		ID:        eventID,
		Type:      EventReportFailed,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data: ReportFailedEvent{
			ReportID:     report.ID,
			SessionID:    report.SessionID,
			UserID:       report.UserID,
			AnalysisType: report.Type,
			ErrorKind:    detail.Kind,
			ErrorMessage: detail.Message,
			FailedAt:     time.Now(),
		},
	}
}
