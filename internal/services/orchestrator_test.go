package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verisona-ai/analysis-service/internal/analyzer"
	"github.com/verisona-ai/analysis-service/internal/events"
	"github.com/verisona-ai/analysis-service/internal/models"
)

func TestRequestAnalysisRunsJobToCompletion(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)
	f.analyzer.result = &analyzer.Result{Analysis: "## Persona\n\nThoughtful and driven."}

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)
	assert.False(t, handle.Cached)

	report, err := f.reports.GetByID(context.Background(), handle.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, report.Status)
	assert.NotNil(t, report.CompletedAt)
	require.NotNil(t, report.Summary)
	assert.Contains(t, *report.Summary, "Thoughtful")

	content, ok := report.ContentValue()
	require.True(t, ok)
	assert.Equal(t, "markdown", content.Format)
	assert.Contains(t, content.Text, "Persona")

	// Title uses the owner's name.
	assert.Equal(t, "Jamie's Complete Persona Analysis", report.Title)

	// Completed report is cached and announced.
	assert.True(t, f.cache.has(reportCacheKey(testSessionID, models.AnalysisComprehensive)))
	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventReportGenerated, published[0].Type)
}

func TestRequestAnalysisIsIdempotentForCompletedReports(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	first, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisPersonality, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	second, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisPersonality, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Report.ID, second.Report.ID)
	assert.Equal(t, 1, f.analyzer.callCount())
	assert.Equal(t, 1, f.reports.count())
}

func TestRequestAnalysisRejectsUnknownOrForeignSession(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	_, err := f.service.RequestAnalysis(context.Background(), testUserID, "sess-missing",
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Same session, different user: ownership hides its existence.
	_, err = f.service.RequestAnalysis(context.Background(), testUserID+1, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRequestAnalysisRejectsIncompleteSession(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionInProgress)

	_, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	assert.ErrorIs(t, err, ErrSessionNotCompleted)
}

func TestRequestAnalysisRequeuesFailedReport(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)
	f.analyzer.err = &analyzer.Error{Kind: analyzer.KindTimeout, Message: "deadline"}

	_, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	failed, err := f.reports.GetBySessionAndType(context.Background(), testSessionID, models.AnalysisComprehensive)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, failed.Status)
	detail, ok := failed.ErrorDetailValue()
	require.True(t, ok)
	assert.Equal(t, string(analyzer.KindTimeout), detail.Kind)

	// A later request re-queues the same record instead of creating a second one.
	f.analyzer.err = nil
	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)
	assert.Equal(t, failed.ID, handle.Report.ID)
	assert.Equal(t, 1, f.reports.count())

	recovered, err := f.reports.GetByID(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, recovered.Status)
	_, hasDetail := recovered.ErrorDetailValue()
	assert.False(t, hasDetail)
}

func TestRequestAnalysisQueueSaturationFailsReport(t *testing.T) {
	f := newServiceFixture(saturatedRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	_, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	assert.ErrorIs(t, err, ErrQueueSaturated)

	report, repoErr := f.reports.GetBySessionAndType(context.Background(), testSessionID, models.AnalysisComprehensive)
	require.NoError(t, repoErr)
	assert.Equal(t, models.ReportFailed, report.Status)
	detail, ok := report.ErrorDetailValue()
	require.True(t, ok)
	assert.Equal(t, errKindQueueFull, detail.Kind)

	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventReportFailed, published[0].Type)
}

func TestConcurrentRequestsProduceOneReport(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
				models.AnalysisComprehensive, models.DefaultAnalysisOptions())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.reports.count())
}

func TestGetStatusReadsThroughCache(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisAcademic, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	report, err := f.service.GetStatus(context.Background(), testUserID, testSessionID, models.AnalysisAcademic)
	require.NoError(t, err)
	assert.Equal(t, handle.Report.ID, report.ID)
	assert.Equal(t, models.ReportCompleted, report.Status)
	assert.True(t, f.cache.has(reportCacheKey(testSessionID, models.AnalysisAcademic)))
}

func TestGetStatusWithoutReport(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	_, err := f.service.GetStatus(context.Background(), testUserID, testSessionID, models.AnalysisComprehensive)
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestRetryOnlyAllowedFromFailed(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	_, err = f.service.Retry(context.Background(), testUserID, handle.Report.ID)
	assert.ErrorIs(t, err, ErrReportNotRetryable)
}

func TestRetryRerunsFailedReport(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)
	f.analyzer.err = &analyzer.Error{Kind: analyzer.KindGatewayError, Message: "upstream down"}

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	f.analyzer.err = nil
	report, err := f.service.Retry(context.Background(), testUserID, handle.Report.ID)
	require.NoError(t, err)

	final, err := f.reports.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, final.Status)
}

func TestGetReportEnforcesOwnership(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	_, err = f.service.GetReport(context.Background(), testUserID+1, handle.Report.ID)
	assert.ErrorIs(t, err, ErrReportAccessDenied)

	_, err = f.service.GetReport(context.Background(), testUserID, "report-missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestExecuteFailsWhenSessionHasNoAnswers(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)
	f.sessions.answers[testSessionID] = nil

	_, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	report, err := f.reports.GetBySessionAndType(context.Background(), testSessionID, models.AnalysisComprehensive)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFailed, report.Status)
	detail, ok := report.ErrorDetailValue()
	require.True(t, ok)
	assert.Equal(t, errKindMapping, detail.Kind)
}
