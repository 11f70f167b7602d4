package services

import (
	"context"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// MaxBatchSize caps one batch request; larger sets must be split by the
// caller.
const MaxBatchSize = 10

// BatchItem is one session to analyze within a batch.
type BatchItem struct {
	SessionID    string                 `json:"session_id"`
	AnalysisType models.AnalysisType    `json:"analysis_type"`
	Options      models.AnalysisOptions `json:"options"`
}

// BatchItemResult is the per-session outcome. Status is "completed",
// "cached", or "failed".
type BatchItemResult struct {
	SessionID    string              `json:"session_id"`
	AnalysisType models.AnalysisType `json:"analysis_type"`
	Status       string              `json:"status"`
	ReportID     string              `json:"report_id,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total     int               `json:"total"`
	Completed int               `json:"completed"`
	Cached    int               `json:"cached"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// RunBatch analyzes up to MaxBatchSize sessions sequentially, isolating
// failures: one session's failure never aborts the rest. Jobs run to
// completion within the call; completed reports from earlier runs count as
// cached.
func (s *AnalysisService) RunBatch(ctx context.Context, userID uint, items []BatchItem) (*BatchSummary, error) {
	if len(items) == 0 {
		return nil, ErrBatchEmpty
	}
	if len(items) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	summary := &BatchSummary{
		Total:   len(items),
		Results: make([]BatchItemResult, 0, len(items)),
	}

	for _, item := range items {
		result := s.runBatchItem(ctx, userID, item)
		switch result.Status {
		case "completed":
			summary.Completed++
		case "cached":
			summary.Cached++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	s.logger.InfoContext(ctx, "batch analysis finished",
		"total", summary.Total,
		"completed", summary.Completed,
		"cached", summary.Cached,
		"failed", summary.Failed)
	return summary, nil
}

func (s *AnalysisService) runBatchItem(ctx context.Context, userID uint, item BatchItem) BatchItemResult {
	result := BatchItemResult{
		SessionID:    item.SessionID,
		AnalysisType: item.AnalysisType,
	}

	handle, owned, err := s.prepareJob(ctx, userID, item.SessionID, item.AnalysisType, item.Options)
	if err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}

	result.ReportID = handle.Report.ID

	if handle.Cached {
		result.Status = "cached"
		return result
	}
	if !owned {
		// Another request is already running this job; report it as failed
		// for this batch so the caller can poll the job instead.
		result.Status = "failed"
		result.Error = "analysis already in progress for this session"
		return result
	}

	// Once the job is owned it runs to its real outcome; a caller disconnect
	// mid-batch must not leave a context-canceled failure on the record.
	if err := s.Execute(context.WithoutCancel(ctx), handle.Report, nil); err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}

	result.Status = "completed"
	return result
}
