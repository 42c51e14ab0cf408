package circuitbreaker

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DatabaseWrapper wraps sqlx database operations with a circuit breaker.
type DatabaseWrapper struct {
	db     *sqlx.DB
	cb     *CircuitBreaker
	logger *zap.Logger
}

// NewDatabaseWrapper creates a database wrapper with circuit breaker
func NewDatabaseWrapper(db *sqlx.DB, logger *zap.Logger) *DatabaseWrapper {
	cb := NewCircuitBreaker("postgresql", DatabaseConfig(), logger)
	registerBreakerMetrics("postgresql", cb)
	return &DatabaseWrapper{
		db:     db,
		cb:     cb,
		logger: logger,
	}
}

// PingContext wraps database ping with circuit breaker
func (dw *DatabaseWrapper) PingContext(ctx context.Context) error {
	return dw.execute(ctx, func() error {
		return dw.db.PingContext(ctx)
	})
}

// ExecContext wraps database exec with circuit breaker
func (dw *DatabaseWrapper) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := dw.execute(ctx, func() error {
		var execErr error
		result, execErr = dw.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetContext wraps a single-row struct scan with circuit breaker
func (dw *DatabaseWrapper) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return dw.execute(ctx, func() error {
		return dw.db.GetContext(ctx, dest, query, args...)
	})
}

// SelectContext wraps a multi-row struct scan with circuit breaker
func (dw *DatabaseWrapper) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return dw.execute(ctx, func() error {
		return dw.db.SelectContext(ctx, dest, query, args...)
	})
}

// QueryRowContext wraps database query row with circuit breaker. The row is
// nil when the breaker rejected the call; scan errors surface on Scan as
// usual.
func (dw *DatabaseWrapper) QueryRowContext(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	var row *sql.Row
	err := dw.execute(ctx, func() error {
		row = dw.db.QueryRowContext(ctx, query, args...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (dw *DatabaseWrapper) execute(ctx context.Context, fn func() error) error {
	var opErr error
	cbErr := dw.cb.Execute(ctx, func() error {
		opErr = fn()
		// A missing row is an answer, not an infrastructure failure; it
		// must not trip the breaker.
		if errors.Is(opErr, sql.ErrNoRows) {
			return nil
		}
		return opErr
	})
	recordBreakerRequest("postgresql", dw.cb.State(), cbErr == nil)
	if cbErr != nil {
		return cbErr
	}
	return opErr
}

// IsOpen returns true if the circuit breaker is rejecting calls.
func (dw *DatabaseWrapper) IsOpen() bool {
	return dw.cb.State() == StateOpen
}

// Stats returns database pool stats
func (dw *DatabaseWrapper) Stats() sql.DBStats {
	return dw.db.Stats()
}

// DB returns the underlying sqlx handle for operations not covered here.
func (dw *DatabaseWrapper) DB() *sqlx.DB {
	return dw.db
}

// Close closes the database connection
func (dw *DatabaseWrapper) Close() error {
	return dw.db.Close()
}
