package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/tracing"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicModel   = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
)

// AnthropicCaller issues questions to the Anthropic messages API.
type AnthropicCaller struct {
	BaseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewAnthropicCaller(httpClient *http.Client, logger *zap.Logger) *AnthropicCaller {
	return &AnthropicCaller{
		BaseURL:    anthropicBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *AnthropicCaller) Platform() models.Platform { return models.PlatformClaude }

func (c *AnthropicCaller) Call(ctx context.Context, question, apiKey string) (Result, error) {
	if isDemoKey(apiKey) {
		c.logger.Debug("Demo mode", zap.String("platform", "claude"))
		return callDemo(ctx, models.PlatformClaude, question)
	}
	return withRetry(ctx, c.logger, func() (Result, error) {
		return c.callOnce(ctx, question, apiKey)
	})
}

func (c *AnthropicCaller) callOnce(ctx context.Context, question, apiKey string) (Result, error) {
	payload := map[string]interface{}{
		"model":      anthropicModel,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": question},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal anthropic request: %w", err)
	}

	url := c.BaseURL + "/v1/messages"
	ctx, span := tracing.StartHTTPSpan(ctx, http.MethodPost, url)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &Error{Platform: models.PlatformClaude, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, &Error{
			Platform:   models.PlatformClaude,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(errText), maxErrorBodyLen),
		}
	}

	var data struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{}, &Error{Platform: models.PlatformClaude, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	parts := make([]string, 0, len(data.Content))
	for _, block := range data.Content {
		parts = append(parts, block.Text)
	}

	return Result{
		Answer:         strings.Join(parts, "\n"),
		ResponseTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}
