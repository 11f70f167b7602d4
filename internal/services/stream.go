package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/repositories"
)

// Streaming stage progress anchors. The Analyzer's intermediate events fill
// the range between processing and finalizing.
const (
	progressInitializing = 10
	progressProcessing   = 30
	progressIntermediate = 89
	progressFinalizing   = 90
	progressCompleted    = 100
)

const (
	StageInitializing = "initializing"
	StageProcessing   = "processing"
	StageFinalizing   = "finalizing"
	StageCompleted    = "completed"
	StageError        = "error"
)

// watchPollInterval paces store polling when a stream attaches to a job
// already running elsewhere.
const watchPollInterval = 2 * time.Second

// ProgressEvent is one streamed update for a running analysis. Completed
// events carry the final report; error events are terminal with progress 0.
type ProgressEvent struct {
	ReportID  string         `json:"report_id"`
	Stage     string         `json:"stage"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Report    *models.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// StreamAnalysis runs an analysis while emitting progress events. It returns
// the event channel once the job record exists; the channel closes after
// exactly one terminal event (completed or error). Intermediate events may
// be dropped under a slow consumer, terminal events are never dropped. State
// transitions are persisted before the matching event is emitted.
//
// When the job is already running in the background pool, the stream follows
// it through the report store instead of starting a second run.
func (s *AnalysisService) StreamAnalysis(
	ctx context.Context,
	userID uint,
	sessionID string,
	analysisType models.AnalysisType,
	options models.AnalysisOptions,
) (<-chan ProgressEvent, error) {
	handle, owned, err := s.prepareJob(ctx, userID, sessionID, analysisType, options)
	if err != nil {
		return nil, err
	}

	ch := make(chan ProgressEvent, 16)
	report := handle.Report

	switch {
	case report.Status == models.ReportCompleted:
		// Already completed: replay the terminal event and finish.
		go func() {
			defer close(ch)
			ch <- terminalEvent(report, "Analysis already completed")
		}()
	case owned:
		go s.streamJob(ctx, ch, report)
	default:
		go s.watchJob(ctx, ch, report.ID)
	}
	return ch, nil
}

// streamJob executes the job inline, translating execution progress into
// stream events.
func (s *AnalysisService) streamJob(ctx context.Context, ch chan ProgressEvent, report *models.Report) {
	defer close(ch)

	emit := func(ev ProgressEvent) {
		select {
		case ch <- ev:
		default:
			// Slow consumer; drop the intermediate update.
		}
	}

	emit(progressEvent(report.ID, StageInitializing, progressInitializing, "Starting analysis"))

	// The request context governs event delivery only. A client disconnect
	// must not abort the job: execution and persistence run to the real
	// outcome on a detached context.
	execCtx := context.WithoutCancel(ctx)

	lastProgress := progressProcessing
	err := s.Execute(execCtx, report, func(stage string, progress int, message string) {
		if progress < lastProgress {
			progress = lastProgress
		}
		if progress > progressIntermediate {
			progress = progressIntermediate
		}
		lastProgress = progress
		emit(progressEvent(report.ID, StageProcessing, progress, message))
	})

	if err != nil {
		detail, _ := report.ErrorDetailValue()
		s.emitTerminal(ctx, ch, errorEvent(report.ID, detail.Message))
		return
	}

	// Execute has already persisted the completed report; finalizing marks
	// the post-persistence boundary.
	emit(progressEvent(report.ID, StageFinalizing, progressFinalizing, "Saving analysis results"))
	s.emitTerminal(ctx, ch, terminalEvent(report, "Analysis completed"))
}

// watchJob follows a job owned by another request, polling the store until
// the report reaches a terminal status.
func (s *AnalysisService) watchJob(ctx context.Context, ch chan ProgressEvent, reportID string) {
	defer close(ch)

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		report, err := s.reports.GetByID(ctx, reportID)
		if err != nil {
			s.emitTerminal(ctx, ch, errorEvent(reportID, "analysis job disappeared"))
			return
		}

		switch report.Status {
		case models.ReportCompleted:
			s.emitTerminal(ctx, ch, terminalEvent(report, "Analysis completed"))
			return
		case models.ReportFailed:
			detail, _ := report.ErrorDetailValue()
			s.emitTerminal(ctx, ch, errorEvent(reportID, detail.Message))
			return
		default:
			select {
			case ch <- progressEvent(reportID, StageProcessing, progressProcessing, "Analysis in progress"):
			default:
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (s *AnalysisService) emitTerminal(ctx context.Context, ch chan ProgressEvent, ev ProgressEvent) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

func progressEvent(reportID, stage string, progress int, message string) ProgressEvent {
	return ProgressEvent{
		ReportID:  reportID,
		Stage:     stage,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func terminalEvent(report *models.Report, message string) ProgressEvent {
	return ProgressEvent{
		ReportID:  report.ID,
		Stage:     StageCompleted,
		Progress:  progressCompleted,
		Message:   message,
		Timestamp: time.Now(),
		Report:    report,
	}
}

func errorEvent(reportID, message string) ProgressEvent {
	return ProgressEvent{
		ReportID:  reportID,
		Stage:     StageError,
		Progress:  0,
		Message:   "Analysis failed",
		Timestamp: time.Now(),
		Error:     message,
	}
}

// ListSessionReports returns every report across the user's listed
// sessions, skipping sessions the user does not own.
func (s *AnalysisService) ListSessionReports(ctx context.Context, userID uint, sessionIDs []string) ([]*models.Report, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	owned := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		if _, err := s.sessions.GetByID(ctx, sessionID, userID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to verify session %s: %w", sessionID, err)
		}
		owned = append(owned, sessionID)
	}

	return s.reports.ListBySessionIDs(ctx, owned)
}
