package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/circuitbreaker"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

const responseColumns = `id, session_id, platform, question_index, question,
	answer, is_error, response_time_ms, created_at`

// ResponseStore persists platform answers. Responses are write-once: the
// runner creates each record immediately after a call returns and nothing
// ever mutates them.
type ResponseStore struct {
	db     *circuitbreaker.DatabaseWrapper
	logger *zap.Logger
}

// NewResponseStore creates a response store over the protected handle.
func NewResponseStore(db *circuitbreaker.DatabaseWrapper, logger *zap.Logger) *ResponseStore {
	return &ResponseStore{db: db, logger: logger}
}

// Create inserts one response record, assigning its id and timestamp.
func (s *ResponseStore) Create(ctx context.Context, r *models.Response) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (id, session_id, platform, question_index, question, answer, is_error, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.SessionID, r.Platform, r.QuestionIndex, r.Question,
		r.Answer, r.IsError, r.ResponseTimeMs, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}

// ListBySession returns all responses for a session sorted by
// (platform, questionIndex).
func (s *ResponseStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Response, error) {
	var out []models.Response
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+responseColumns+` FROM responses
		WHERE session_id = $1
		ORDER BY platform, question_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return out, nil
}

// ListBySessionPlatform returns one platform's responses sorted by question
// index.
func (s *ResponseStore) ListBySessionPlatform(ctx context.Context, sessionID uuid.UUID, platform models.Platform) ([]models.Response, error) {
	var out []models.Response
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+responseColumns+` FROM responses
		WHERE session_id = $1 AND platform = $2
		ORDER BY question_index`, sessionID, platform)
	if err != nil {
		return nil, fmt.Errorf("list platform responses: %w", err)
	}
	return out, nil
}
