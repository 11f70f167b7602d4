package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verisona-ai/analysis-service/internal/models"
)

func TestRunBatchCallerDisconnectKeepsItemOutcomes(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession("sess-a", models.SessionCompleted)
	f.withAnalyzer(&cancelAwareAnalyzer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.service.RunBatch(ctx, testUserID, []BatchItem{
		{SessionID: "sess-a", AnalysisType: models.AnalysisComprehensive, Options: models.DefaultAnalysisOptions()},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, "completed", summary.Results[0].Status)

	report, err := f.reports.GetBySessionAndType(context.Background(), "sess-a", models.AnalysisComprehensive)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, report.Status)
}

func TestRunBatchSizeLimits(t *testing.T) {
	f := newServiceFixture(syncRunner{})

	_, err := f.service.RunBatch(context.Background(), testUserID, nil)
	assert.ErrorIs(t, err, ErrBatchEmpty)

	oversized := make([]BatchItem, MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = BatchItem{SessionID: fmt.Sprintf("sess-%02d", i), AnalysisType: models.AnalysisComprehensive}
	}
	_, err = f.service.RunBatch(context.Background(), testUserID, oversized)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession("sess-a", models.SessionCompleted)
	f.seedSession("sess-b", models.SessionCompleted)

	// sess-b has nothing to analyze; sess-missing does not exist.
	f.sessions.answers["sess-b"] = nil

	summary, err := f.service.RunBatch(context.Background(), testUserID, []BatchItem{
		{SessionID: "sess-a", AnalysisType: models.AnalysisComprehensive, Options: models.DefaultAnalysisOptions()},
		{SessionID: "sess-b", AnalysisType: models.AnalysisComprehensive, Options: models.DefaultAnalysisOptions()},
		{SessionID: "sess-missing", AnalysisType: models.AnalysisComprehensive, Options: models.DefaultAnalysisOptions()},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 0, summary.Cached)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 3)

	assert.Equal(t, "completed", summary.Results[0].Status)
	assert.NotEmpty(t, summary.Results[0].ReportID)
	assert.Equal(t, "failed", summary.Results[1].Status)
	assert.Equal(t, "failed", summary.Results[2].Status)
	assert.NotEmpty(t, summary.Results[2].Error)
}

func TestRunBatchCountsCachedReports(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession("sess-a", models.SessionCompleted)
	f.seedSession("sess-b", models.SessionCompleted)

	_, err := f.service.RequestAnalysis(context.Background(), testUserID, "sess-a",
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)
	require.Equal(t, 1, f.analyzer.callCount())

	summary, err := f.service.RunBatch(context.Background(), testUserID, []BatchItem{
		{SessionID: "sess-a", AnalysisType: models.AnalysisComprehensive, Options: models.DefaultAnalysisOptions()},
		{SessionID: "sess-b", AnalysisType: models.AnalysisComprehensive, Options: models.DefaultAnalysisOptions()},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Cached)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 0, summary.Failed)

	// Only the uncached session triggered a workflow run.
	assert.Equal(t, 2, f.analyzer.callCount())
}
