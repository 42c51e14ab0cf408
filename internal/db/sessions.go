package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/circuitbreaker"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

const sessionColumns = `id, questions, question_count, status,
	progress_claude, progress_chatgpt, progress_gemini,
	active_platform, done_platforms, audit_errors, created_at, updated_at`

// SessionStore persists audit sessions. Progress mutations are field-level
// UPDATEs so one runner's writes never clobber another's.
type SessionStore struct {
	db     *circuitbreaker.DatabaseWrapper
	logger *zap.Logger
}

// NewSessionStore creates a session store over the protected handle.
func NewSessionStore(db *circuitbreaker.DatabaseWrapper, logger *zap.Logger) *SessionStore {
	return &SessionStore{db: db, logger: logger}
}

// progressColumn maps a platform to its counter column. The platform enum is
// closed, so this never builds SQL from caller input.
func progressColumn(p models.Platform) string {
	switch p {
	case models.PlatformClaude:
		return "progress_claude"
	case models.PlatformChatGPT:
		return "progress_chatgpt"
	default:
		return "progress_gemini"
	}
}

// Create inserts a new running session for the given questions.
func (s *SessionStore) Create(ctx context.Context, questions []string) (*models.Session, error) {
	session := &models.Session{
		ID:            uuid.New(),
		Questions:     pq.StringArray(questions),
		QuestionCount: len(questions),
		Status:        models.StatusRunning,
		DonePlatforms: pq.StringArray{},
		AuditErrors:   models.AuditErrors{},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, questions, question_count, status, done_platforms, audit_errors, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.Questions, session.QuestionCount, session.Status,
		session.DonePlatforms, session.AuditErrors, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("Created audit session",
		zap.String("session_id", session.ID.String()),
		zap.Int("question_count", session.QuestionCount),
	)
	return session, nil
}

// Get loads a session by id.
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// GetStatus reads just the lifecycle status. The runner polls this at the
// top of every question iteration to observe cancellation.
func (s *SessionStore) GetStatus(ctx context.Context, id uuid.UUID) (models.Status, error) {
	var status models.Status
	err := s.db.GetContext(ctx, &status, `SELECT status FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session status: %w", err)
	}
	return status, nil
}

// SetStatus moves a running session to the given status, clearing the active
// platform marker. Terminal statuses are never overwritten: a cancel that
// landed while the runner was finishing its last call wins.
func (s *SessionStore) SetStatus(ctx context.Context, id uuid.UUID, status models.Status) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $2, active_platform = NULL, updated_at = now()
		WHERE id = $1 AND status = $3`, id, status, models.StatusRunning)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	return nil
}

// SetActivePlatform marks the platform currently being driven and resets its
// progress counter.
func (s *SessionStore) SetActivePlatform(ctx context.Context, id uuid.UUID, p models.Platform) error {
	query := fmt.Sprintf(`
		UPDATE sessions SET active_platform = $2, %s = 0, updated_at = now()
		WHERE id = $1`, progressColumn(p))
	if _, err := s.db.ExecContext(ctx, query, id, p); err != nil {
		return fmt.Errorf("set active platform: %w", err)
	}
	return nil
}

// SetProgress stores a platform's answered-question count.
func (s *SessionStore) SetProgress(ctx context.Context, id uuid.UUID, p models.Platform, count int) error {
	query := fmt.Sprintf(`
		UPDATE sessions SET %s = $2, updated_at = now()
		WHERE id = $1`, progressColumn(p))
	if _, err := s.db.ExecContext(ctx, query, id, count); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// MarkPlatformDone appends the platform to the done list and clears the
// active marker.
func (s *SessionStore) MarkPlatformDone(ctx context.Context, id uuid.UUID, p models.Platform) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET active_platform = NULL,
		    done_platforms = array_append(done_platforms, $2),
		    updated_at = now()
		WHERE id = $1`, id, string(p))
	if err != nil {
		return fmt.Errorf("mark platform done: %w", err)
	}
	return nil
}

// MarkPlatformSkipped records a platform that was opted out (no credential):
// full progress and done, without any calls.
func (s *SessionStore) MarkPlatformSkipped(ctx context.Context, id uuid.UUID, p models.Platform, questionCount int) error {
	query := fmt.Sprintf(`
		UPDATE sessions
		SET %s = $2,
		    done_platforms = array_append(done_platforms, $3),
		    updated_at = now()
		WHERE id = $1`, progressColumn(p))
	if _, err := s.db.ExecContext(ctx, query, id, questionCount, string(p)); err != nil {
		return fmt.Errorf("mark platform skipped: %w", err)
	}
	return nil
}

// AppendAuditError appends one failed-call record to the session's error
// list.
func (s *SessionStore) AppendAuditError(ctx context.Context, id uuid.UUID, auditErr models.AuditError) error {
	payload, err := json.Marshal([]models.AuditError{auditErr})
	if err != nil {
		return fmt.Errorf("marshal audit error: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET audit_errors = audit_errors || $2::jsonb, updated_at = now()
		WHERE id = $1`, id, payload)
	if err != nil {
		return fmt.Errorf("append audit error: %w", err)
	}
	return nil
}

// Cancel flips a non-terminal session to cancelled and returns the resulting
// session. Cancelling an already-terminal session is a no-op.
func (s *SessionStore) Cancel(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $2, active_platform = NULL, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, models.StatusCancelled, models.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("cancel session: %w", err)
	}
	return s.Get(ctx, id)
}

// SweepStaleRunning marks sessions left in running (process crash, restart)
// as errored. Called once at startup; resuming an interrupted run is not
// supported.
func (s *SessionStore) SweepStaleRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = $1, active_platform = NULL, updated_at = now()
		WHERE status = $2`, models.StatusError, models.StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("sweep stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep stale sessions: rows affected: %w", err)
	}
	return n, nil
}
