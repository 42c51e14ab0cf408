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
	geminiBaseURL = "https://generativelanguage.googleapis.com"
	geminiModel   = "gemini-2.0-flash"
)

// GeminiCaller issues questions to the Google generative language API.
type GeminiCaller struct {
	BaseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGeminiCaller(httpClient *http.Client, logger *zap.Logger) *GeminiCaller {
	return &GeminiCaller{
		BaseURL:    geminiBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *GeminiCaller) Platform() models.Platform { return models.PlatformGemini }

func (c *GeminiCaller) Call(ctx context.Context, question, apiKey string) (Result, error) {
	if isDemoKey(apiKey) {
		c.logger.Debug("Demo mode", zap.String("platform", "gemini"))
		return callDemo(ctx, models.PlatformGemini, question)
	}
	return withRetry(ctx, c.logger, func() (Result, error) {
		return c.callOnce(ctx, question, apiKey)
	})
}

func (c *GeminiCaller) callOnce(ctx context.Context, question, apiKey string) (Result, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": question}}},
		},
		"generationConfig": map[string]interface{}{"maxOutputTokens": 1024},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, geminiModel, apiKey)
	// Span attribute omits the key query parameter.
	ctx, span := tracing.StartHTTPSpan(ctx, http.MethodPost, fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, geminiModel))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &Error{Platform: models.PlatformGemini, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, &Error{
			Platform:   models.PlatformGemini,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(errText), maxErrorBodyLen),
		}
	}

	var data struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{}, &Error{Platform: models.PlatformGemini, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	answer := ""
	if len(data.Candidates) > 0 {
		parts := make([]string, 0, len(data.Candidates[0].Content.Parts))
		for _, p := range data.Candidates[0].Content.Parts {
			parts = append(parts, p.Text)
		}
		answer = strings.Join(parts, "\n")
	}

	return Result{
		Answer:         answer,
		ResponseTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}
