// Package runner drives an audit session: every question against every
// platform that has a credential, strictly in order, persisting each answer
// and the session's progress as it goes. One runner invocation owns one
// session; sessions run concurrently but share nothing beyond the stores.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/metrics"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/platforms"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/ratecontrol"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/tracing"
)

// ErrNoActivePlatforms is returned when no usable credential was supplied.
var ErrNoActivePlatforms = errors.New("no valid API keys provided for any platform")

// auditErrors entries keep only the head of long upstream messages.
const maxAuditErrorLen = 500

// SessionStore is the session persistence the runner depends on.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetStatus(ctx context.Context, id uuid.UUID) (models.Status, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.Status) error
	SetActivePlatform(ctx context.Context, id uuid.UUID, p models.Platform) error
	SetProgress(ctx context.Context, id uuid.UUID, p models.Platform, count int) error
	MarkPlatformDone(ctx context.Context, id uuid.UUID, p models.Platform) error
	MarkPlatformSkipped(ctx context.Context, id uuid.UUID, p models.Platform, questionCount int) error
	AppendAuditError(ctx context.Context, id uuid.UUID, auditErr models.AuditError) error
}

// ResponseStore is the response persistence the runner depends on.
type ResponseStore interface {
	Create(ctx context.Context, r *models.Response) error
}

// Runner executes audit sessions.
type Runner struct {
	sessions  SessionStore
	responses ResponseStore
	callers   platforms.Registry
	logger    *zap.Logger

	// newLimiter is swappable so tests run without pacing delays.
	newLimiter func(p models.Platform) *rate.Limiter
}

// New creates a runner over the given stores and platform callers.
func New(sessions SessionStore, responses ResponseStore, callers platforms.Registry, logger *zap.Logger) *Runner {
	return &Runner{
		sessions:  sessions,
		responses: responses,
		callers:   callers,
		logger:    logger,
		newLimiter: func(p models.Platform) *rate.Limiter {
			return ratecontrol.LimiterFor(string(p))
		},
	}
}

// Run executes the audit for one session. Per-question platform failures are
// recorded and skipped over; only a store failure aborts the run and flips
// the session to error. Observing a cancelled status stops the run silently:
// the session is already in its terminal state.
func (r *Runner) Run(ctx context.Context, sessionID uuid.UUID, apiKeys map[models.Platform]string) error {
	session, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	questions := session.Questions

	var active, skipped []models.Platform
	for _, p := range models.AllPlatforms() {
		if hasKey(apiKeys, p) {
			active = append(active, p)
		} else {
			skipped = append(skipped, p)
		}
	}

	if len(active) == 0 {
		if err := r.sessions.SetStatus(ctx, sessionID, models.StatusError); err != nil {
			r.logger.Error("Failed to mark session errored", zap.Error(err))
		}
		metrics.AuditsCompleted.WithLabelValues(string(models.StatusError)).Inc()
		return ErrNoActivePlatforms
	}

	r.logger.Info("Running audit",
		zap.String("session_id", sessionID.String()),
		zap.Int("questions", len(questions)),
		zap.Int("platforms", len(active)),
	)

	metrics.AuditsStarted.Inc()
	metrics.AuditsActive.Inc()
	start := time.Now()
	defer func() {
		metrics.AuditsActive.Dec()
		metrics.AuditDuration.Observe(time.Since(start).Seconds())
	}()

	// Platforms the caller opted out of count as done immediately.
	for _, p := range skipped {
		r.logger.Info("Skipping platform without credential",
			zap.String("session_id", sessionID.String()),
			zap.String("platform", string(p)),
		)
		if err := r.sessions.MarkPlatformSkipped(ctx, sessionID, p, len(questions)); err != nil {
			return r.fail(ctx, sessionID, err)
		}
	}

	for _, platform := range active {
		cancelled, err := r.runPlatform(ctx, sessionID, platform, questions, apiKeys[platform])
		if err != nil {
			return r.fail(ctx, sessionID, err)
		}
		if cancelled {
			r.logger.Info("Audit cancelled",
				zap.String("session_id", sessionID.String()),
				zap.String("platform", string(platform)),
			)
			metrics.AuditsCompleted.WithLabelValues(string(models.StatusCancelled)).Inc()
			return nil
		}
	}

	if err := r.sessions.SetStatus(ctx, sessionID, models.StatusCompleted); err != nil {
		return r.fail(ctx, sessionID, err)
	}

	r.logger.Info("Audit completed",
		zap.String("session_id", sessionID.String()),
		zap.Duration("duration", time.Since(start)),
	)
	metrics.AuditsCompleted.WithLabelValues(string(models.StatusCompleted)).Inc()
	return nil
}

// runPlatform walks every question for one platform. Returns cancelled=true
// when the session's status flipped to cancelled underneath us.
func (r *Runner) runPlatform(ctx context.Context, sessionID uuid.UUID, platform models.Platform, questions []string, apiKey string) (bool, error) {
	caller, ok := r.callers[platform]
	if !ok {
		return false, fmt.Errorf("no caller registered for platform %q", platform)
	}

	if err := r.sessions.SetActivePlatform(ctx, sessionID, platform); err != nil {
		return false, err
	}

	limiter := r.newLimiter(platform)

	for i, question := range questions {
		// Cooperative cancellation: checked between questions, never
		// mid-call. An in-flight call finishes before this takes effect.
		status, err := r.sessions.GetStatus(ctx, sessionID)
		if err != nil {
			return false, err
		}
		if status == models.StatusCancelled {
			return true, nil
		}

		// Pacing between consecutive calls to the same platform. The
		// first question passes immediately.
		if err := limiter.Wait(ctx); err != nil {
			if ctxCancelled(err) {
				return true, nil
			}
			return false, err
		}

		cancelled, err := r.runQuestion(ctx, sessionID, platform, caller, i, question, apiKey, len(questions))
		if err != nil {
			return false, err
		}
		if cancelled {
			return true, nil
		}
	}

	if err := r.sessions.MarkPlatformDone(ctx, sessionID, platform); err != nil {
		return false, err
	}
	r.logger.Info("Platform complete",
		zap.String("session_id", sessionID.String()),
		zap.String("platform", string(platform)),
	)
	return false, nil
}

// runQuestion performs one platform call and persists its outcome. Platform
// failures are converted into error responses; only store errors propagate.
// Returns cancelled=true when the run's context was cancelled mid-call, so
// the platform is never marked done with unanswered questions.
func (r *Runner) runQuestion(ctx context.Context, sessionID uuid.UUID, platform models.Platform, caller platforms.Caller, index int, question, apiKey string, total int) (bool, error) {
	callCtx, span := tracing.StartAuditSpan(ctx, string(platform), index)
	result, callErr := caller.Call(callCtx, question, apiKey)
	span.End()

	response := &models.Response{
		SessionID:     sessionID,
		Platform:      platform,
		QuestionIndex: index,
		Question:      question,
	}

	if callErr != nil {
		// When the run itself was cancelled mid-call, the call error is
		// just the context unwinding, not a phantom platform failure.
		if ctxCancelled(callErr) {
			return true, nil
		}

		response.Answer = "[ERROR] " + callErr.Error()
		response.IsError = true
		metrics.PlatformCalls.WithLabelValues(string(platform), "error").Inc()

		r.logger.Warn("Platform call failed",
			zap.String("session_id", sessionID.String()),
			zap.String("platform", string(platform)),
			zap.Int("question", index+1),
			zap.Int("total", total),
			zap.Error(callErr),
		)

		msg := callErr.Error()
		if len(msg) > maxAuditErrorLen {
			msg = msg[:maxAuditErrorLen]
		}
		if err := r.sessions.AppendAuditError(ctx, sessionID, models.AuditError{
			Platform:      platform,
			QuestionIndex: index,
			Message:       msg,
			Timestamp:     time.Now(),
		}); err != nil {
			return false, err
		}
	} else {
		response.Answer = result.Answer
		response.ResponseTimeMs = result.ResponseTimeMs
		metrics.PlatformCalls.WithLabelValues(string(platform), "success").Inc()
		metrics.PlatformCallDuration.WithLabelValues(string(platform)).Observe(float64(result.ResponseTimeMs))

		r.logger.Debug("Platform call succeeded",
			zap.String("platform", string(platform)),
			zap.Int("question", index+1),
			zap.Int("total", total),
			zap.Int("response_time_ms", result.ResponseTimeMs),
		)
	}

	if err := r.responses.Create(ctx, response); err != nil {
		return false, err
	}
	return false, r.sessions.SetProgress(ctx, sessionID, platform, index+1)
}

// fail flips the session to error and propagates the cause.
func (r *Runner) fail(ctx context.Context, sessionID uuid.UUID, cause error) error {
	if err := r.sessions.SetStatus(ctx, sessionID, models.StatusError); err != nil {
		r.logger.Error("Failed to mark session errored",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}
	metrics.AuditsCompleted.WithLabelValues(string(models.StatusError)).Inc()
	return fmt.Errorf("audit run %s failed: %w", sessionID, cause)
}

func hasKey(apiKeys map[models.Platform]string, p models.Platform) bool {
	return strings.TrimSpace(apiKeys[p]) != ""
}

func ctxCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
