// Package platforms wraps the external answer-providing APIs behind a
// uniform caller contract: one question in, one answer plus latency out,
// with bounded retry and demo-mode short-circuiting. The platform set is
// closed; each variant supplies its own request/response translation and
// raises a normalized *Error on any non-success outcome.
package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

// Result is the successful outcome of one platform call.
type Result struct {
	Answer         string
	ResponseTimeMs int
}

// Caller issues one question to one platform.
type Caller interface {
	Platform() models.Platform
	Call(ctx context.Context, question, apiKey string) (Result, error)
}

// Error is the normalized failure of a platform call, carrying a truncated
// upstream diagnostic.
type Error struct {
	Platform   models.Platform
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %d: %s", e.Platform.Label(), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Platform.Label(), e.Message)
}

const (
	defaultCallTimeout = 60 * time.Second

	// Upstream error bodies are truncated to keep stored diagnostics short.
	maxErrorBodyLen = 300
)

// Registry maps every supported platform id to its caller.
type Registry map[models.Platform]Caller

// NewRegistry builds callers for the full platform set sharing one HTTP
// client.
func NewRegistry(logger *zap.Logger) Registry {
	httpClient := &http.Client{Timeout: defaultCallTimeout}
	return Registry{
		models.PlatformClaude:  NewAnthropicCaller(httpClient, logger),
		models.PlatformChatGPT: NewOpenAICaller(httpClient, logger),
		models.PlatformGemini:  NewGeminiCaller(httpClient, logger),
	}
}

// truncate shortens upstream error text to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// isDemoKey reports whether the credential selects the local synthetic
// answer generator instead of a real API call.
func isDemoKey(apiKey string) bool {
	switch strings.ToLower(strings.TrimSpace(apiKey)) {
	case "demo", "test", "free":
		return true
	}
	return false
}
