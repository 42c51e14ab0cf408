package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	for _, p := range AllPlatforms() {
		got, err := ParsePlatform(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePlatform(" Claude ")
	require.NoError(t, err)
	assert.Equal(t, PlatformClaude, got)

	_, err = ParsePlatform("copilot")
	assert.Error(t, err)
}

func TestAllPlatforms_FixedOrder(t *testing.T) {
	assert.Equal(t, []Platform{PlatformClaude, PlatformChatGPT, PlatformGemini}, AllPlatforms())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
}

func TestAuditErrors_ValueScanRoundTrip(t *testing.T) {
	in := AuditErrors{{
		Platform:      PlatformGemini,
		QuestionIndex: 2,
		Message:       "upstream 500",
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	value, err := in.Value()
	require.NoError(t, err)

	var out AuditErrors
	require.NoError(t, out.Scan(value))
	assert.Equal(t, in, out)
}

func TestAuditErrors_ScanNil(t *testing.T) {
	var out AuditErrors
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
}

func TestSession_ProgressFor(t *testing.T) {
	s := &Session{ProgressClaude: 1, ProgressChatGPT: 2, ProgressGemini: 3}

	assert.Equal(t, 1, s.ProgressFor(PlatformClaude))
	assert.Equal(t, 2, s.ProgressFor(PlatformChatGPT))
	assert.Equal(t, 3, s.ProgressFor(PlatformGemini))
	assert.Equal(t, map[Platform]int{PlatformClaude: 1, PlatformChatGPT: 2, PlatformGemini: 3}, s.Progress())
}
