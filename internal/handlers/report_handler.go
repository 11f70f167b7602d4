package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/repositories"
	"github.com/verisona-ai/analysis-service/internal/services"
	"github.com/verisona-ai/analysis-service/internal/utils"
)

type ReportHandler struct {
	BaseHandler
	analysisService *services.AnalysisService
}

func NewReportHandler(analysisService *services.AnalysisService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:     NewBaseHandler(logger),
		analysisService: analysisService,
	}
}

// ListReports returns the caller's reports with optional filters
// @Router /reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filters, ok := h.parseFilters(c)
	if !ok {
		return
	}

	reports, total, err := h.analysisService.ListReports(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   total,
	})
}

// ListSessionReports returns reports across the caller's sessions
// @Router /reports/sessions [get]
func (h *ReportHandler) ListSessionReports(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	raw := c.Query("session_ids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "session_ids query parameter is required"})
		return
	}

	var sessionIDs []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			sessionIDs = append(sessionIDs, trimmed)
		}
	}

	reports, err := h.analysisService.ListSessionReports(c.Request.Context(), userID, sessionIDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport returns a single report by ID
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	report, err := h.analysisService.GetReport(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RetryReport re-queues a failed report
// @Router /reports/{id}/retry [post]
func (h *ReportHandler) RetryReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	report, err := h.analysisService.Retry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "Analysis retry queued", Data: report})
}

// ExportReport downloads a completed report
// @Router /reports/{id}/export [get]
func (h *ReportHandler) ExportReport(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	format, valid := services.ParseExportFormat(c.Query("format"))
	if !valid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unsupported export format"})
		return
	}

	file, err := h.analysisService.ExportReport(c.Request.Context(), userID, c.Param("id"), format)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *ReportHandler) parseFilters(c *gin.Context) (repositories.ReportFilters, bool) {
	filters := repositories.ReportFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if raw := c.Query("status"); raw != "" {
		status := models.ReportStatus(raw)
		switch status {
		case models.ReportQueued, models.ReportProcessing, models.ReportCompleted, models.ReportFailed:
			filters.Status = &status
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status filter"})
			return filters, false
		}
	}

	if raw := c.Query("type"); raw != "" {
		analysisType, valid := models.ParseAnalysisType(raw)
		if !valid {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid analysis type filter"})
			return filters, false
		}
		filters.Type = &analysisType
	}

	if raw := c.Query("session_id"); raw != "" {
		filters.SessionID = &raw
	}

	filters.Limit = parseIntQuery(c, "limit", 20)
	filters.Offset = parseIntQuery(c, "offset", 0)
	return filters, true
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
