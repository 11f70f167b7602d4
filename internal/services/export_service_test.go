package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/verisona-ai/analysis-service/internal/analyzer"
	"github.com/verisona-ai/analysis-service/internal/models"
)

func completedReportFixture(t *testing.T) (*serviceFixture, string) {
	t.Helper()
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)
	f.analyzer.result = &analyzer.Result{Analysis: "## Persona\n\nCurious and determined."}

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)
	return f, handle.Report.ID
}

func TestExportReportJSON(t *testing.T) {
	f, reportID := completedReportFixture(t)

	file, err := f.service.ExportReport(context.Background(), testUserID, reportID, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", file.ContentType)
	assert.Contains(t, file.Filename, reportID)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(file.Data, &view))
	assert.Equal(t, reportID, view["report_id"])
	assert.Contains(t, view["content"], "Curious and determined")
}

func TestExportReportCSV(t *testing.T) {
	f, reportID := completedReportFixture(t)

	file, err := f.service.ExportReport(context.Background(), testUserID, reportID, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"field", "value"}, rows[0])

	fields := make(map[string]string, len(rows))
	for _, row := range rows[1:] {
		fields[row[0]] = row[1]
	}
	assert.Equal(t, reportID, fields["report_id"])
	assert.Equal(t, "completed", fields["status"])
}

func TestExportReportXLSX(t *testing.T) {
	f, reportID := completedReportFixture(t)

	file, err := f.service.ExportReport(context.Background(), testUserID, reportID, ExportXLSX)
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Report")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Field", rows[0][0])

	found := false
	for _, row := range rows {
		if len(row) > 1 && row[0] == "Report ID" && row[1] == reportID {
			found = true
		}
	}
	assert.True(t, found, "workbook should contain the report ID")
}

func TestExportReportGuards(t *testing.T) {
	f, reportID := completedReportFixture(t)

	_, err := f.service.ExportReport(context.Background(), testUserID, reportID, ExportFormat("pdf"))
	assert.ErrorIs(t, err, ErrExportFormatUnsupported)

	_, err = f.service.ExportReport(context.Background(), testUserID+1, reportID, ExportJSON)
	assert.ErrorIs(t, err, ErrReportAccessDenied)
}

func TestExportReportRequiresCompletion(t *testing.T) {
	f := newServiceFixture(syncRunner{})
	f.seedSession(testSessionID, models.SessionCompleted)
	f.analyzer.err = &analyzer.Error{Kind: analyzer.KindGatewayError, Message: "down"}

	handle, err := f.service.RequestAnalysis(context.Background(), testUserID, testSessionID,
		models.AnalysisComprehensive, models.DefaultAnalysisOptions())
	require.NoError(t, err)

	_, err = f.service.ExportReport(context.Background(), testUserID, handle.Report.ID, ExportJSON)
	assert.ErrorIs(t, err, ErrExportNotReady)
}

func TestParseExportFormat(t *testing.T) {
	format, ok := ParseExportFormat("")
	assert.True(t, ok)
	assert.Equal(t, ExportJSON, format)

	format, ok = ParseExportFormat("XLSX")
	assert.True(t, ok)
	assert.Equal(t, ExportXLSX, format)

	_, ok = ParseExportFormat("docx")
	assert.False(t, ok)
}
