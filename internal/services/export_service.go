package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/verisona-ai/analysis-service/internal/models"
)

// ExportFormat names a supported report export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportFile is a rendered report export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// exportView is the flat report representation shared by all formats.
type exportView struct {
	ReportID     string `json:"report_id"`
	SessionID    string `json:"session_id"`
	AnalysisType string `json:"analysis_type"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Summary      string `json:"summary"`
	Content      string `json:"content"`
	CompletedAt  string `json:"completed_at"`
	ProcessingMS int64  `json:"processing_ms"`
}

// ExportReport renders a completed report in the requested format. Only
// completed reports can be exported.
func (s *AnalysisService) ExportReport(ctx context.Context, userID uint, reportID string, format ExportFormat) (*ExportFile, error) {
	report, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportCompleted {
		return nil, ErrExportNotReady
	}

	view := buildExportView(report)
	basename := fmt.Sprintf("analysis-report-%s", report.ID)

	switch format {
	case ExportJSON:
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		return &ExportFile{
			Filename:    basename + ".json",
			ContentType: "application/json",
			Data:        data,
		}, nil

	case ExportCSV:
		data, err := renderCSV(view)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    basename + ".csv",
			ContentType: "text/csv",
			Data:        data,
		}, nil

	case ExportXLSX:
		data, err := renderXLSX(view)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    basename + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil

	default:
		return nil, ErrExportFormatUnsupported
	}
}

// ParseExportFormat validates a wire value; empty defaults to JSON.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(s)) {
	case ExportJSON, ExportCSV, ExportXLSX:
		return ExportFormat(strings.ToLower(s)), true
	case "":
		return ExportJSON, true
	default:
		return "", false
	}
}

func buildExportView(report *models.Report) exportView {
	view := exportView{
		ReportID:     report.ID,
		SessionID:    report.SessionID,
		AnalysisType: string(report.Type),
		Title:        report.Title,
		Status:       string(report.Status),
		ProcessingMS: report.ProcessingMS,
	}
	if report.Summary != nil {
		view.Summary = *report.Summary
	}
	if content, ok := report.ContentValue(); ok {
		view.Content = content.Text
	}
	if report.CompletedAt != nil {
		view.CompletedAt = report.CompletedAt.Format(time.RFC3339)
	}
	return view
}

func renderCSV(view exportView) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"field", "value"},
		{"report_id", view.ReportID},
		{"session_id", view.SessionID},
		{"analysis_type", view.AnalysisType},
		{"title", view.Title},
		{"status", view.Status},
		{"summary", view.Summary},
		{"content", view.Content},
		{"completed_at", view.CompletedAt},
		{"processing_ms", fmt.Sprintf("%d", view.ProcessingMS)},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(view exportView) ([]byte, error) {
	f := excelize.NewFile()
	sheetName := "Report"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	rows := [][]interface{}{
		{"Field", "Value"},
		{"Report ID", view.ReportID},
		{"Session ID", view.SessionID},
		{"Analysis Type", view.AnalysisType},
		{"Title", view.Title},
		{"Status", view.Status},
		{"Summary", view.Summary},
		{"Content", view.Content},
		{"Completed At", view.CompletedAt},
		{"Processing (ms)", view.ProcessingMS},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write Excel row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
