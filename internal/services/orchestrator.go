package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verisona-ai/analysis-service/internal/analyzer"
	"github.com/verisona-ai/analysis-service/internal/cache"
	"github.com/verisona-ai/analysis-service/internal/events"
	"github.com/verisona-ai/analysis-service/internal/mapper"
	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/repositories"
	"github.com/verisona-ai/analysis-service/internal/utils"
)

const (
	reportCacheTTL = 24 * time.Hour
	summaryLength  = 200
)

// Error detail kinds stored on failed reports alongside the Analyzer's own
// kinds (timeout, bad_request, gateway_error, not_configured).
const (
	errKindMapping     = "mapping_error"
	errKindPersistence = "persistence_error"
	errKindQueueFull   = "queue_full"
	errKindInternal    = "internal"
)

// Analyzer runs the external analysis workflow. Satisfied by
// *analyzer.Client.
type Analyzer interface {
	Analyze(ctx context.Context, req *mapper.AnalysisRequest) (*analyzer.Result, error)
	AnalyzeWithProgress(ctx context.Context, req *mapper.AnalysisRequest, onProgress analyzer.ProgressFunc) (*analyzer.Result, error)
}

// TaskRunner submits background work. Satisfied by *workers.Pool.
type TaskRunner interface {
	Submit(task func(ctx context.Context)) error
}

// AnalysisHandle is the outcome of an analysis request: the job record and
// whether it was served from an earlier completed run.
type AnalysisHandle struct {
	Report *models.Report `json:"report"`
	Cached bool           `json:"cached"`
}

// AnalysisService orchestrates analysis jobs: it owns the report state
// machine (queued, processing, completed, failed) and every execution mode
// runs through it. The report store is the only channel between request
// handlers and background workers.
type AnalysisService struct {
	reports  repositories.ReportRepository
	sessions repositories.SessionRepository
	users    repositories.UserRepository

	mapper    *mapper.Mapper
	analyzer  Analyzer
	cache     cache.CacheService
	publisher events.EventPublisher
	runner    TaskRunner
	logger    utils.Logger
}

func NewAnalysisService(
	reports repositories.ReportRepository,
	sessions repositories.SessionRepository,
	users repositories.UserRepository,
	m *mapper.Mapper,
	a Analyzer,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	runner TaskRunner,
	logger utils.Logger,
) *AnalysisService {
	return &AnalysisService{
		reports:   reports,
		sessions:  sessions,
		users:     users,
		mapper:    m,
		analyzer:  a,
		cache:     cacheService,
		publisher: publisher,
		runner:    runner,
		logger:    logger.With("component", "analysis_service"),
	}
}

// RequestAnalysis starts (or reuses) an analysis job for the session. A
// completed report is returned immediately as cached; a queued or processing
// one is returned as-is; a failed one is re-queued. Otherwise a new job is
// created and handed to the background pool.
func (s *AnalysisService) RequestAnalysis(
	ctx context.Context,
	userID uint,
	sessionID string,
	analysisType models.AnalysisType,
	options models.AnalysisOptions,
) (*AnalysisHandle, error) {
	handle, owned, err := s.prepareJob(ctx, userID, sessionID, analysisType, options)
	if err != nil {
		return nil, err
	}
	if !owned {
		return handle, nil
	}

	if err := s.submit(ctx, handle.Report); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "analysis queued",
		"report_id", handle.Report.ID,
		"session_id", sessionID,
		"analysis_type", analysisType)
	return handle, nil
}

// prepareJob resolves the job record for a request without starting
// execution. The owned flag tells the caller it holds a freshly queued
// record and is responsible for running it; a false flag means the record
// is either completed or already owned by another request.
func (s *AnalysisService) prepareJob(
	ctx context.Context,
	userID uint,
	sessionID string,
	analysisType models.AnalysisType,
	options models.AnalysisOptions,
) (*AnalysisHandle, bool, error) {
	session, err := s.getOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Status != models.SessionCompleted {
		return nil, false, ErrSessionNotCompleted
	}

	existing, err := s.reports.GetBySessionAndType(ctx, sessionID, analysisType)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up existing report: %w", err)
	}
	if existing != nil {
		switch existing.Status {
		case models.ReportCompleted:
			return &AnalysisHandle{Report: existing, Cached: true}, false, nil
		case models.ReportQueued, models.ReportProcessing:
			return &AnalysisHandle{Report: existing, Cached: false}, false, nil
		case models.ReportFailed:
			if err := s.requeueRecord(ctx, existing); err != nil {
				return nil, false, err
			}
			return &AnalysisHandle{Report: existing, Cached: false}, true, nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load user: %w", err)
	}

	report := &models.Report{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Type:      analysisType,
		Status:    models.ReportQueued,
		Title:     models.ReportTitle(analysisType, user),
	}
	if err := report.SetOptions(options); err != nil {
		return nil, false, err
	}

	if err := s.reports.Create(ctx, report); err != nil {
		if errors.Is(err, repositories.ErrDuplicateReport) {
			// Lost a race with a concurrent request; serve its job.
			racing, lookupErr := s.reports.GetBySessionAndType(ctx, sessionID, analysisType)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("failed to resolve concurrent report: %w", lookupErr)
			}
			return &AnalysisHandle{Report: racing, Cached: racing.Status == models.ReportCompleted}, false, nil
		}
		return nil, false, fmt.Errorf("failed to create report: %w", err)
	}

	return &AnalysisHandle{Report: report, Cached: false}, true, nil
}

// requeueRecord resets a failed report to queued. The caller decides how the
// re-run happens.
func (s *AnalysisService) requeueRecord(ctx context.Context, report *models.Report) error {
	report.Status = models.ReportQueued
	report.ErrorDetail = nil
	report.Content = nil
	report.Summary = nil
	report.ProcessingMS = 0
	report.CompletedAt = nil

	if err := s.reports.Update(ctx, report); err != nil {
		return fmt.Errorf("failed to requeue report: %w", err)
	}
	s.logger.InfoContext(ctx, "failed report requeued", "report_id", report.ID)
	return nil
}

// submit hands the job to the background pool. Queue saturation fails the
// report so the state machine never strands a queued job nobody will run.
func (s *AnalysisService) submit(ctx context.Context, report *models.Report) error {
	reportID := report.ID
	err := s.runner.Submit(func(taskCtx context.Context) {
		s.runJob(taskCtx, reportID)
	})
	if err == nil {
		return nil
	}

	detail := models.ErrorDetail{Kind: errKindQueueFull, Message: "analysis queue is saturated"}
	s.failReport(ctx, report, detail)
	return ErrQueueSaturated
}

// runJob is the background entry point: it reloads the report and executes
// it, so the worker never trusts request-scoped state.
func (s *AnalysisService) runJob(ctx context.Context, reportID string) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		s.logger.LogError(err, "background job lost its report", "report_id", reportID)
		return
	}
	if report.Status.IsTerminal() {
		return
	}
	s.Execute(ctx, report, nil)
}

// Execute runs one analysis job to completion, transitioning the report
// through processing into completed or failed. onProgress (optional)
// receives the Analyzer's intermediate progress.
func (s *AnalysisService) Execute(ctx context.Context, report *models.Report, onProgress analyzer.ProgressFunc) error {
	start := time.Now()

	report.Status = models.ReportProcessing
	if err := s.reports.Update(ctx, report); err != nil {
		s.logger.LogError(err, "failed to mark report processing", "report_id", report.ID)
		return fmt.Errorf("failed to mark report processing: %w", err)
	}

	request, err := s.buildRequest(ctx, report)
	if err != nil {
		s.failReport(ctx, report, classifyFailure(err))
		return err
	}

	result, err := s.analyzer.AnalyzeWithProgress(ctx, request, onProgress)
	if err != nil {
		s.failReport(ctx, report, classifyFailure(err))
		return err
	}

	content := models.ReportContent{
		Text:        result.Analysis,
		Format:      "markdown",
		GeneratedAt: time.Now(),
	}
	if err := report.SetContent(content); err != nil {
		s.failReport(ctx, report, models.ErrorDetail{Kind: errKindInternal, Message: err.Error()})
		return err
	}

	summary := analyzer.Summarize(result.Analysis, summaryLength)
	now := time.Now()
	report.Summary = &summary
	report.Status = models.ReportCompleted
	report.ProcessingMS = time.Since(start).Milliseconds()
	report.CompletedAt = &now
	report.ErrorDetail = nil

	if err := s.reports.Update(ctx, report); err != nil {
		s.logger.LogError(err, "failed to persist completed report", "report_id", report.ID)
		return fmt.Errorf("failed to persist completed report: %w", err)
	}

	s.cacheReport(ctx, report)
	s.publish(ctx, events.NewReportGenerated(uuid.NewString(), report))

	s.logger.InfoContext(ctx, "analysis completed",
		"report_id", report.ID,
		"session_id", report.SessionID,
		"processing_ms", report.ProcessingMS)
	return nil
}

// buildRequest loads everything the Analyzer needs and maps it.
func (s *AnalysisService) buildRequest(ctx context.Context, report *models.Report) (*mapper.AnalysisRequest, error) {
	user, err := s.users.GetByID(ctx, report.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	answers, err := s.sessions.GetAnswers(ctx, report.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, ErrSessionNoAnswers
	}

	options, ok := report.OptionsValue()
	if !ok {
		options = DefaultedOptions(report.Type)
	}
	return s.mapper.MapSession(user, report.SessionID, answers, report.Type, options)
}

// DefaultedOptions returns the analysis options used when the request did
// not carry any. Essay guidance is only defaulted on for comprehensive runs.
func DefaultedOptions(analysisType models.AnalysisType) models.AnalysisOptions {
	options := models.DefaultAnalysisOptions()
	options.IncludeEssayGuidance = analysisType == models.AnalysisComprehensive
	return options
}

// failReport transitions the report to failed with a structured error
// detail. State is persisted before the failure event goes out.
func (s *AnalysisService) failReport(ctx context.Context, report *models.Report, detail models.ErrorDetail) {
	report.Status = models.ReportFailed
	report.Content = nil
	report.Summary = nil
	if err := report.SetErrorDetail(detail); err != nil {
		s.logger.LogError(err, "failed to encode error detail", "report_id", report.ID)
	}

	if err := s.reports.Update(ctx, report); err != nil {
		s.logger.LogError(err, "failed to persist failed report", "report_id", report.ID)
		return
	}

	s.publish(ctx, events.NewReportFailed(uuid.NewString(), report, detail))
	s.logger.WarnContext(ctx, "analysis failed",
		"report_id", report.ID,
		"session_id", report.SessionID,
		"error_kind", detail.Kind,
		"error_message", detail.Message)
}

// classifyFailure maps an execution error onto the error detail taxonomy.
func classifyFailure(err error) models.ErrorDetail {
	if kind := analyzer.KindOf(err); kind != "" {
		return models.ErrorDetail{Kind: string(kind), Message: err.Error()}
	}
	if errors.Is(err, ErrSessionNoAnswers) ||
		errors.Is(err, mapper.ErrNoAnswers) ||
		errors.Is(err, mapper.ErrNoSession) {
		return models.ErrorDetail{Kind: errKindMapping, Message: err.Error()}
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return models.ErrorDetail{Kind: errKindPersistence, Message: err.Error()}
	}
	return models.ErrorDetail{Kind: errKindInternal, Message: err.Error()}
}

// GetStatus returns the current report for the session and type, reading
// completed reports through the cache.
func (s *AnalysisService) GetStatus(ctx context.Context, userID uint, sessionID string, analysisType models.AnalysisType) (*models.Report, error) {
	if _, err := s.getOwnedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	if cached := s.cachedReport(ctx, sessionID, analysisType); cached != nil {
		return cached, nil
	}

	report, err := s.reports.GetBySessionAndType(ctx, sessionID, analysisType)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	if report.Status == models.ReportCompleted {
		s.cacheReport(ctx, report)
	}
	return report, nil
}

// GetReport returns a report by ID, enforcing ownership.
func (s *AnalysisService) GetReport(ctx context.Context, userID uint, reportID string) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	if report.UserID != userID {
		return nil, ErrReportAccessDenied
	}
	return report, nil
}

// Retry re-queues a failed report. Any other status is a conflict.
func (s *AnalysisService) Retry(ctx context.Context, userID uint, reportID string) (*models.Report, error) {
	report, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportFailed {
		return nil, ErrReportNotRetryable
	}

	if err := s.requeueRecord(ctx, report); err != nil {
		return nil, err
	}
	if err := s.submit(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns the user's reports with the total count.
func (s *AnalysisService) ListReports(ctx context.Context, userID uint, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	return s.reports.ListByUser(ctx, userID, filters)
}

func (s *AnalysisService) getOwnedSession(ctx context.Context, userID uint, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func reportCacheKey(sessionID string, analysisType models.AnalysisType) string {
	return fmt.Sprintf("report:%s:%s", sessionID, analysisType)
}

// cacheReport stores a completed report. Cache failures are logged only.
func (s *AnalysisService) cacheReport(ctx context.Context, report *models.Report) {
	if s.cache == nil || report.Status != models.ReportCompleted {
		return
	}
	if err := s.cache.Set(ctx, reportCacheKey(report.SessionID, report.Type), report, reportCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "failed to cache report", "report_id", report.ID, "error", err)
	}
}

func (s *AnalysisService) cachedReport(ctx context.Context, sessionID string, analysisType models.AnalysisType) *models.Report {
	if s.cache == nil {
		return nil
	}
	var report models.Report
	if err := s.cache.Get(ctx, reportCacheKey(sessionID, analysisType), &report); err != nil {
		return nil
	}
	return &report
}

// publish sends a lifecycle event; failures never affect the job outcome.
func (s *AnalysisService) publish(ctx context.Context, event *events.ReportEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReportEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish report event", "event_type", event.Type, "error", err)
	}
}
