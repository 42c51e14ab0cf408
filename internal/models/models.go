package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Platform identifies one of the supported answer providers. The set is
// closed: adding a platform requires a new caller in the platforms package.
type Platform string

const (
	PlatformClaude  Platform = "claude"
	PlatformChatGPT Platform = "chatgpt"
	PlatformGemini  Platform = "gemini"
)

// AllPlatforms returns the platforms in their fixed execution order.
func AllPlatforms() []Platform {
	return []Platform{PlatformClaude, PlatformChatGPT, PlatformGemini}
}

// ParsePlatform validates a platform id from external input. Case and
// surrounding whitespace are forgiven; unknown ids are not.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformClaude, PlatformChatGPT, PlatformGemini:
		return p, nil
	}
	return "", fmt.Errorf("invalid platform %q", s)
}

// Label returns the display name used in logs and demo responses.
func (p Platform) Label() string {
	switch p {
	case PlatformClaude:
		return "Claude"
	case PlatformChatGPT:
		return "ChatGPT"
	case PlatformGemini:
		return "Gemini"
	default:
		return string(p)
	}
}

// Status is the session lifecycle state. Transitions are monotone: once a
// terminal status is reached the session never changes again.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// IsTerminal reports whether no further progress can occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// AuditError records one failed platform call within a session.
type AuditError struct {
	Platform      Platform  `json:"platform"`
	QuestionIndex int       `json:"questionIndex"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// AuditErrors is stored as a jsonb column.
type AuditErrors []AuditError

// Value implements the driver.Valuer interface
func (a AuditErrors) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(AuditErrors{})
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *AuditErrors) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into AuditErrors", value)
	}
	return json.Unmarshal(bytes, a)
}

// Session is one audit run over a fixed question set.
type Session struct {
	ID            uuid.UUID      `db:"id"`
	Questions     pq.StringArray `db:"questions"`
	QuestionCount int            `db:"question_count"`
	Status        Status         `db:"status"`

	ProgressClaude  int            `db:"progress_claude"`
	ProgressChatGPT int            `db:"progress_chatgpt"`
	ProgressGemini  int            `db:"progress_gemini"`
	ActivePlatform  *Platform      `db:"active_platform"`
	DonePlatforms   pq.StringArray `db:"done_platforms"`

	AuditErrors AuditErrors `db:"audit_errors"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

// ProgressFor returns the per-platform question counter.
func (s *Session) ProgressFor(p Platform) int {
	switch p {
	case PlatformClaude:
		return s.ProgressClaude
	case PlatformChatGPT:
		return s.ProgressChatGPT
	case PlatformGemini:
		return s.ProgressGemini
	default:
		return 0
	}
}

// Progress returns the counters keyed by platform id, for API payloads.
func (s *Session) Progress() map[Platform]int {
	out := make(map[Platform]int, 3)
	for _, p := range AllPlatforms() {
		out[p] = s.ProgressFor(p)
	}
	return out
}

// Response is one persisted answer for one (session, platform, question)
// triple. Immutable once written; the analyzer only ever reads these.
type Response struct {
	ID             uuid.UUID `db:"id" json:"id"`
	SessionID      uuid.UUID `db:"session_id" json:"sessionId"`
	Platform       Platform  `db:"platform" json:"platform"`
	QuestionIndex  int       `db:"question_index" json:"questionIndex"`
	Question       string    `db:"question" json:"question"`
	Answer         string    `db:"answer" json:"answer"`
	IsError        bool      `db:"is_error" json:"isError"`
	ResponseTimeMs int       `db:"response_time_ms" json:"responseTime"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
