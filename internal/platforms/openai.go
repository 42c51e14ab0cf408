package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/tracing"
)

const (
	openaiBaseURL = "https://api.openai.com"
	openaiModel   = "gpt-4o-mini"
)

// OpenAICaller issues questions to the OpenAI chat completions API.
type OpenAICaller struct {
	BaseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAICaller(httpClient *http.Client, logger *zap.Logger) *OpenAICaller {
	return &OpenAICaller{
		BaseURL:    openaiBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *OpenAICaller) Platform() models.Platform { return models.PlatformChatGPT }

func (c *OpenAICaller) Call(ctx context.Context, question, apiKey string) (Result, error) {
	if isDemoKey(apiKey) {
		c.logger.Debug("Demo mode", zap.String("platform", "chatgpt"))
		return callDemo(ctx, models.PlatformChatGPT, question)
	}
	return withRetry(ctx, c.logger, func() (Result, error) {
		return c.callOnce(ctx, question, apiKey)
	})
}

func (c *OpenAICaller) callOnce(ctx context.Context, question, apiKey string) (Result, error) {
	payload := map[string]interface{}{
		"model": openaiModel,
		"messages": []map[string]string{
			{"role": "user", "content": question},
		},
		"max_tokens": 1024,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal openai request: %w", err)
	}

	url := c.BaseURL + "/v1/chat/completions"
	ctx, span := tracing.StartHTTPSpan(ctx, http.MethodPost, url)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &Error{Platform: models.PlatformChatGPT, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, &Error{
			Platform:   models.PlatformChatGPT,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(errText), maxErrorBodyLen),
		}
	}

	var data struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{}, &Error{Platform: models.PlatformChatGPT, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	answer := ""
	if len(data.Choices) > 0 {
		answer = data.Choices[0].Message.Content
	}

	return Result{
		Answer:         answer,
		ResponseTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}
