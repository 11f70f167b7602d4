package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verisona-ai/analysis-service/internal/mapper"
	"github.com/verisona-ai/analysis-service/internal/utils"
)

// Progress bounds for intermediate workflow events. Stages outside the
// Analyzer (queueing, persistence) own the ranges below 30 and above 89.
const (
	progressStart = 30
	progressStep  = 5
	progressCap   = 85
)

// Config carries the workflow engine connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	WorkflowID string
	Timeout    time.Duration
}

// ProgressFunc receives intermediate progress while a workflow runs. The
// reported progress is monotonically non-decreasing.
type ProgressFunc func(stage string, progress int, message string)

// Result is the outcome of a completed workflow run.
type Result struct {
	Analysis      string
	WorkflowRunID string
	ElapsedTime   float64
	TotalTokens   int
}

// Client calls the external analysis workflow engine over HTTP with
// server-sent event streaming.
type Client struct {
	cfg    Config
	http   *http.Client
	logger utils.Logger
}

func NewClient(cfg Config, logger utils.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 600 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

// Analyze runs the workflow to completion without progress reporting.
func (c *Client) Analyze(ctx context.Context, req *mapper.AnalysisRequest) (*Result, error) {
	return c.AnalyzeWithProgress(ctx, req, nil)
}

// AnalyzeWithProgress runs the workflow and forwards intermediate events to
// onProgress (which may be nil). The whole run, connection included, is
// bounded by the configured timeout.
func (c *Client) AnalyzeWithProgress(ctx context.Context, req *mapper.AnalysisRequest, onProgress ProgressFunc) (*Result, error) {
	if c.cfg.APIKey == "" || c.cfg.WorkflowID == "" {
		return nil, newError(KindNotConfigured, 0, "analysis workflow credentials are not set")
	}

	body, err := c.buildRequestBody(req)
	if err != nil {
		return nil, newError(KindBadRequest, 0, "failed to encode workflow request: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/workflows/run", bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindBadRequest, 0, "failed to build workflow request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	c.logger.InfoContext(ctx, "starting analysis workflow",
		"session_id", req.SessionID,
		"analysis_type", req.AnalysisType,
		"responses", len(req.Responses))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.classifyStatusError(resp)
	}

	result, err := c.consumeStream(ctx, resp.Body, onProgress)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "analysis workflow finished",
		"session_id", req.SessionID,
		"duration", time.Since(start).String(),
		"total_tokens", result.TotalTokens)
	return result, nil
}

type workflowRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user"`
	WorkflowID   string            `json:"workflow_id"`
}

func (c *Client) buildRequestBody(req *mapper.AnalysisRequest) ([]byte, error) {
	profile, err := json.Marshal(req.Profile)
	if err != nil {
		return nil, err
	}
	responses, err := json.Marshal(req.Responses)
	if err != nil {
		return nil, err
	}
	options, err := json.Marshal(req.Options)
	if err != nil {
		return nil, err
	}

	return json.Marshal(workflowRequest{
		Inputs: map[string]string{
			"user_profile":  TruncateInput(string(profile)),
			"responses":     TruncateInput(string(responses)),
			"analysis_type": string(req.AnalysisType),
			"focus_areas":   strings.Join(req.FocusAreas, ", "),
			"urgency":       req.Urgency,
			"options":       TruncateInput(string(options)),
		},
		ResponseMode: "streaming",
		User:         fmt.Sprintf("user-%d", req.UserID),
		WorkflowID:   c.cfg.WorkflowID,
	})
}

func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(KindTimeout, 0, "workflow did not finish within %s", c.cfg.Timeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return newError(KindGatewayError, 0, "workflow request failed: %v", err)
}

func (c *Client) classifyStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(raw))
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(KindNotConfigured, resp.StatusCode, "workflow credentials rejected: %s", detail)
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return newError(KindBadRequest, resp.StatusCode, "workflow rejected request: %s", detail)
	default:
		return newError(KindGatewayError, resp.StatusCode, "workflow engine error: %s", detail)
	}
}

type streamEvent struct {
	Event         string `json:"event"`
	WorkflowRunID string `json:"workflow_run_id"`
	Data          struct {
		Title       string         `json:"title"`
		Status      string         `json:"status"`
		Error       string         `json:"error"`
		ElapsedTime float64        `json:"elapsed_time"`
		TotalTokens int            `json:"total_tokens"`
		Outputs     map[string]any `json:"outputs"`
	} `json:"data"`
}

func (c *Client) consumeStream(ctx context.Context, body io.Reader, onProgress ProgressFunc) (*Result, error) {
	emit := func(stage string, progress int, message string) {
		if onProgress != nil {
			onProgress(stage, progress, message)
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	progress := progressStart
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			c.logger.WarnContext(ctx, "skipping malformed stream event", "error", err)
			continue
		}

		switch ev.Event {
		case "workflow_started":
			if progress < progressStart+progressStep {
				progress = progressStart + progressStep
			}
			emit("processing", progress, "Analysis workflow started")

		case "node_finished":
			if progress+progressStep <= progressCap {
				progress += progressStep
			}
			message := ev.Data.Title
			if message == "" {
				message = "Processing"
			}
			emit("processing", progress, message)

		case "workflow_finished":
			if ev.Data.Status != "" && ev.Data.Status != "succeeded" {
				return nil, newError(KindGatewayError, 0, "workflow finished with status %s: %s", ev.Data.Status, ev.Data.Error)
			}
			return &Result{
				Analysis:      ProcessOutput(extractOutput(ev.Data.Outputs)),
				WorkflowRunID: ev.WorkflowRunID,
				ElapsedTime:   ev.Data.ElapsedTime,
				TotalTokens:   ev.Data.TotalTokens,
			}, nil

		case "workflow_failed", "error":
			message := ev.Data.Error
			if message == "" {
				message = "workflow execution failed"
			}
			return nil, newError(KindGatewayError, 0, "%s", message)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(KindTimeout, 0, "workflow did not finish within %s", c.cfg.Timeout)
		}
		return nil, newError(KindGatewayError, 0, "workflow stream read failed: %v", err)
	}
	return nil, newError(KindGatewayError, 0, "workflow stream ended without a result")
}

// extractOutput pulls the analysis text from workflow outputs, trying the
// conventional keys before falling back to the whole object.
func extractOutput(outputs map[string]any) string {
	for _, key := range []string{"text", "output", "result", "answer"} {
		if s, ok := outputs[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if len(outputs) == 0 {
		return ""
	}
	raw, err := json.Marshal(outputs)
	if err != nil {
		return ""
	}
	return string(raw)
}
