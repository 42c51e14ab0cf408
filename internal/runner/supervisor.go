package runner

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

// Supervisor tracks in-flight audit runs for the process. Each run gets its
// own goroutine and cancellable context; cancellation through the supervisor
// is advisory and the runner's own status polling remains authoritative.
type Supervisor struct {
	runner *Runner
	logger *zap.Logger

	mu   sync.Mutex
	runs map[uuid.UUID]*runHandle
}

type runHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates a supervisor over the given runner.
func NewSupervisor(r *Runner, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		runner: r,
		logger: logger,
		runs:   make(map[uuid.UUID]*runHandle),
	}
}

// Start launches the audit in the background and returns immediately. The
// session is assumed to already exist in storage with status running.
func (s *Supervisor) Start(sessionID uuid.UUID, apiKeys map[models.Platform]string) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &runHandle{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.runs[sessionID] = h
	s.mu.Unlock()

	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			s.mu.Lock()
			delete(s.runs, sessionID)
			s.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Audit run panicked",
					zap.String("session_id", sessionID.String()),
					zap.Any("panic", r),
				)
			}
		}()

		if err := s.runner.Run(ctx, sessionID, apiKeys); err != nil {
			s.logger.Error("Audit run failed",
				zap.String("session_id", sessionID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Cancel signals the run's context. Returns false when no run is in flight
// for the session, which is fine: the status update in storage still wins.
func (s *Supervisor) Cancel(sessionID uuid.UUID) bool {
	s.mu.Lock()
	h, ok := s.runs[sessionID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// Wait blocks until the session's run finishes. No-op when nothing is
// running. Used by tests and shutdown.
func (s *Supervisor) Wait(sessionID uuid.UUID) {
	s.mu.Lock()
	h, ok := s.runs[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	<-h.done
}

// ActiveCount reports how many audit runs are currently in flight.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Shutdown cancels every in-flight run and waits for them to unwind or for
// the context to expire, whichever comes first.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	handles := make([]*runHandle, 0, len(s.runs))
	for _, h := range s.runs {
		h.cancel()
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		select {
		case <-h.done:
		case <-ctx.Done():
			return
		}
	}
}
