package ratecontrol

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePacingConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pacing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PACING_CONFIG_PATH", path)
	Reset()
	t.Cleanup(Reset)
}

func TestIntervalFor_Default(t *testing.T) {
	t.Setenv("PACING_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	Reset()
	t.Cleanup(Reset)

	assert.Equal(t, DefaultInterval, IntervalFor("claude"))
}

func TestIntervalFor_ConfiguredDefault(t *testing.T) {
	writePacingConfig(t, `
pacing:
  default_interval_ms: 250
`)

	assert.Equal(t, 250*time.Millisecond, IntervalFor("claude"))
	assert.Equal(t, 250*time.Millisecond, IntervalFor("gemini"))
}

func TestIntervalFor_PlatformOverride(t *testing.T) {
	writePacingConfig(t, `
pacing:
  default_interval_ms: 600
  platform_overrides:
    gemini:
      interval_ms: 1200
`)

	assert.Equal(t, 1200*time.Millisecond, IntervalFor("gemini"))
	assert.Equal(t, 600*time.Millisecond, IntervalFor("claude"))
	assert.Equal(t, 1200*time.Millisecond, IntervalFor(" GEMINI "), "platform lookup is normalized")
}

func TestIntervalFor_MalformedConfigFallsBack(t *testing.T) {
	writePacingConfig(t, "pacing: [not a mapping")

	assert.Equal(t, DefaultInterval, IntervalFor("claude"))
}

func TestLimiterFor_PacesSecondCall(t *testing.T) {
	writePacingConfig(t, `
pacing:
  default_interval_ms: 50
`)

	limiter := LimiterFor("chatgpt")
	assert.True(t, limiter.Allow(), "first call passes immediately")
	assert.False(t, limiter.Allow(), "second call within the interval is held")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow())
}
