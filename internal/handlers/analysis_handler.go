package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/verisona-ai/analysis-service/internal/errors"
	"github.com/verisona-ai/analysis-service/internal/models"
	"github.com/verisona-ai/analysis-service/internal/services"
	"github.com/verisona-ai/analysis-service/internal/utils"
	"github.com/verisona-ai/analysis-service/internal/validator"
)

type AnalysisHandler struct {
	BaseHandler
	analysisService *services.AnalysisService
	validator       *validator.Validator
}

func NewAnalysisHandler(
	analysisService *services.AnalysisService,
	v *validator.Validator,
	logger utils.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		BaseHandler:     NewBaseHandler(logger),
		analysisService: analysisService,
		validator:       v,
	}
}

// AnalysisRequestBody is the optional payload for starting an analysis.
type AnalysisRequestBody struct {
	AnalysisType string                  `json:"analysis_type" validate:"omitempty,analysis_type"`
	Options      *models.AnalysisOptions `json:"options" validate:"omitempty"`
}

// BatchRequestBody asks for several sessions to be analyzed in one call.
type BatchRequestBody struct {
	Sessions []BatchSessionRequest `json:"sessions" validate:"required,min=1,dive"`
}

type BatchSessionRequest struct {
	SessionID    string                  `json:"session_id" validate:"required,session_token"`
	AnalysisType string                  `json:"analysis_type" validate:"omitempty,analysis_type"`
	Options      *models.AnalysisOptions `json:"options" validate:"omitempty"`
}

// StartAnalysis queues (or reuses) an analysis job for a session
// @Router /analysis/{session_id} [post]
func (h *AnalysisHandler) StartAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("session_id")

	body, ok := h.bindAnalysisBody(c)
	if !ok {
		return
	}

	analysisType, _ := models.ParseAnalysisType(body.AnalysisType)
	options := resolveOptions(body.Options, analysisType)

	handle, err := h.analysisService.RequestAnalysis(c.Request.Context(), userID, sessionID, analysisType, options)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusAccepted
	message := "Analysis queued"
	if handle.Cached {
		status = http.StatusOK
		message = "Analysis already completed"
	}
	c.JSON(status, SuccessResponse{Message: message, Data: handle})
}

// GetAnalysisStatus returns the current job state for a session
// @Router /analysis/{session_id} [get]
func (h *AnalysisHandler) GetAnalysisStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("session_id")

	analysisType, valid := models.ParseAnalysisType(c.Query("type"))
	if !valid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid analysis type"})
		return
	}

	report, err := h.analysisService.GetStatus(c.Request.Context(), userID, sessionID, analysisType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// StreamAnalysis runs an analysis while streaming progress as NDJSON
// @Router /analysis/{session_id}/stream [post]
func (h *AnalysisHandler) StreamAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("session_id")

	body, ok := h.bindAnalysisBody(c)
	if !ok {
		return
	}

	analysisType, _ := models.ParseAnalysisType(body.AnalysisType)
	options := resolveOptions(body.Options, analysisType)

	eventCh, err := h.analysisService.StreamAnalysis(c.Request.Context(), userID, sessionID, analysisType, options)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	encoder := json.NewEncoder(c.Writer)

	for event := range eventCh {
		if err := encoder.Encode(event); err != nil {
			// Client went away; the job keeps running and lands in the store.
			h.logger.Debug("analysis stream client disconnected", "session_id", sessionID)
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// BatchAnalysis analyzes several sessions in one request
// @Router /analysis/batch [post]
func (h *AnalysisHandler) BatchAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body BatchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: apperrors.ToValidationErrors(err),
		})
		return
	}

	items := make([]services.BatchItem, 0, len(body.Sessions))
	for _, session := range body.Sessions {
		analysisType, _ := models.ParseAnalysisType(session.AnalysisType)
		items = append(items, services.BatchItem{
			SessionID:    session.SessionID,
			AnalysisType: analysisType,
			Options:      resolveOptions(session.Options, analysisType),
		})
	}

	summary, err := h.analysisService.RunBatch(c.Request.Context(), userID, items)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Batch analysis finished", Data: summary})
}

// bindAnalysisBody decodes the optional request body. An empty body means
// default type and options.
func (h *AnalysisHandler) bindAnalysisBody(c *gin.Context) (AnalysisRequestBody, bool) {
	var body AnalysisRequestBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return body, false
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: apperrors.ToValidationErrors(err),
		})
		return body, false
	}
	return body, true
}

func resolveOptions(options *models.AnalysisOptions, analysisType models.AnalysisType) models.AnalysisOptions {
	if options != nil {
		return *options
	}
	return services.DefaultedOptions(analysisType)
}
