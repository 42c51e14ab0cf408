package platforms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

func TestNewRegistry_CoversAllPlatforms(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))

	require.Len(t, reg, len(models.AllPlatforms()))
	for _, p := range models.AllPlatforms() {
		caller, ok := reg[p]
		require.True(t, ok, "missing caller for %s", p)
		assert.Equal(t, p, caller.Platform())
	}
}

func TestIsDemoKey(t *testing.T) {
	for _, key := range []string{"demo", "TEST", " free ", "Demo"} {
		assert.True(t, isDemoKey(key), "key %q", key)
	}
	for _, key := range []string{"sk-real-key", "", "freemium"} {
		assert.False(t, isDemoKey(key), "key %q", key)
	}
}

func TestError_Formatting(t *testing.T) {
	withCode := &Error{Platform: models.PlatformChatGPT, StatusCode: 429, Message: "rate limited"}
	assert.Equal(t, "ChatGPT 429: rate limited", withCode.Error())

	noCode := &Error{Platform: models.PlatformClaude, Message: "connection refused"}
	assert.Equal(t, "Claude: connection refused", noCode.Error())
}

func TestAnthropicCaller_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"text":"Sirion is"},{"text":"a leader."}]}`))
	}))
	defer srv.Close()

	caller := NewAnthropicCaller(srv.Client(), zaptest.NewLogger(t))
	caller.BaseURL = srv.URL

	res, err := caller.Call(context.Background(), "Best CLM?", "sk-test")

	require.NoError(t, err)
	assert.Equal(t, "Sirion is\na leader.", res.Answer)
	assert.GreaterOrEqual(t, res.ResponseTimeMs, 0)
}

func TestOpenAICaller_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"ChatGPT answer."}}]}`))
	}))
	defer srv.Close()

	caller := NewOpenAICaller(srv.Client(), zaptest.NewLogger(t))
	caller.BaseURL = srv.URL

	res, err := caller.Call(context.Background(), "Best CLM?", "sk-test")

	require.NoError(t, err)
	assert.Equal(t, "ChatGPT answer.", res.Answer)
}

func TestGeminiCaller_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, geminiModel)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Gemini answer."}]}}]}`))
	}))
	defer srv.Close()

	caller := NewGeminiCaller(srv.Client(), zaptest.NewLogger(t))
	caller.BaseURL = srv.URL

	res, err := caller.Call(context.Background(), "Best CLM?", "sk-test")

	require.NoError(t, err)
	assert.Equal(t, "Gemini answer.", res.Answer)
}

func TestCallOnce_UpstreamErrorTruncated(t *testing.T) {
	long := strings.Repeat("x", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, long, http.StatusBadGateway)
	}))
	defer srv.Close()

	caller := NewAnthropicCaller(srv.Client(), zaptest.NewLogger(t))
	caller.BaseURL = srv.URL

	_, err := caller.callOnce(context.Background(), "Q", "sk-test")

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, http.StatusBadGateway, pErr.StatusCode)
	assert.Equal(t, models.PlatformClaude, pErr.Platform)
	assert.LessOrEqual(t, len(pErr.Message), maxErrorBodyLen)
}

func TestWithRetry_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	res, err := withRetry(context.Background(), zaptest.NewLogger(t), func() (Result, error) {
		calls++
		return Result{Answer: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Answer)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAndReturnsLastError(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff sleeps for several seconds")
	}
	calls := 0
	want := &Error{Platform: models.PlatformGemini, StatusCode: 500, Message: "boom"}
	_, err := withRetry(context.Background(), zaptest.NewLogger(t), func() (Result, error) {
		calls++
		return Result{}, want
	})

	assert.Equal(t, maxRetries+1, calls)
	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Same(t, want, pErr, "last attempt's error must come back unmodified")
}

func TestWithRetry_ContextCancelCutsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := withRetry(ctx, zaptest.NewLogger(t), func() (Result, error) {
			calls++
			return Result{}, errors.New("always fails")
		})
		done <- err
	}()
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallDemo_ContentShape(t *testing.T) {
	if testing.Short() {
		t.Skip("demo call simulates latency")
	}
	res, err := callDemo(context.Background(), models.PlatformChatGPT, "Top CLM platforms?")

	require.NoError(t, err)
	assert.Contains(t, res.Answer, "1. **")
	assert.GreaterOrEqual(t, res.ResponseTimeMs, 800)

	lines := 0
	for _, line := range strings.Split(res.Answer, "\n") {
		if len(line) > 0 && line[0] >= '1' && line[0] <= '9' {
			lines++
		}
	}
	assert.GreaterOrEqual(t, lines, 5)
	assert.LessOrEqual(t, lines, 7)
}

func TestCallDemo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := callDemo(ctx, models.PlatformClaude, "Q")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemoKeySelectsDemoMode(t *testing.T) {
	if testing.Short() {
		t.Skip("demo call simulates latency")
	}
	// No server behind the caller: a real API attempt would fail fast.
	caller := NewOpenAICaller(&http.Client{}, zaptest.NewLogger(t))
	caller.BaseURL = "http://127.0.0.1:1"

	res, err := caller.Call(context.Background(), "Q", "demo")

	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
