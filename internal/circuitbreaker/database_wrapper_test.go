package circuitbreaker

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"
)

func newMockWrapper(t *testing.T) (*DatabaseWrapper, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	return NewDatabaseWrapper(sqlx.NewDb(raw, "sqlmock"), zaptest.NewLogger(t)), mock
}

func TestDatabaseWrapper_NormalOperations(t *testing.T) {
	wrapper, mock := newMockWrapper(t)
	ctx := context.Background()

	mock.ExpectPing()
	if err := wrapper.PingContext(ctx); err != nil {
		t.Errorf("PingContext failed: %v", err)
	}

	mock.ExpectExec("INSERT INTO test").
		WithArgs("v").
		WillReturnResult(sqlmock.NewResult(1, 1))
	result, err := wrapper.ExecContext(ctx, "INSERT INTO test (name) VALUES ($1)", "v")
	if err != nil {
		t.Fatalf("ExecContext failed: %v", err)
	}
	if affected, _ := result.RowsAffected(); affected != 1 {
		t.Errorf("Expected 1 affected row, got %d", affected)
	}

	mock.ExpectQuery("SELECT name FROM test").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("v"))
	var name string
	if err := wrapper.GetContext(ctx, &name, "SELECT name FROM test"); err != nil {
		t.Errorf("GetContext failed: %v", err)
	}
	if name != "v" {
		t.Errorf("Expected v, got %q", name)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestDatabaseWrapper_NoRowsDoesNotTripBreaker(t *testing.T) {
	wrapper, mock := newMockWrapper(t)
	ctx := context.Background()

	// Far more misses than the failure threshold.
	for i := 0; i < 10; i++ {
		mock.ExpectQuery("SELECT name FROM test").
			WillReturnRows(sqlmock.NewRows([]string{"name"}))
		var name string
		err := wrapper.GetContext(ctx, &name, "SELECT name FROM test")
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("Expected sql.ErrNoRows, got %v", err)
		}
	}

	if wrapper.IsOpen() {
		t.Error("Missing rows must not open the breaker")
	}
}

func TestDatabaseWrapper_OpensOnRepeatedFailures(t *testing.T) {
	wrapper, mock := newMockWrapper(t)
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	for i := 0; i < 10 && !wrapper.IsOpen(); i++ {
		mock.ExpectExec("INSERT INTO test").WillReturnError(dbErr)
		_, _ = wrapper.ExecContext(ctx, "INSERT INTO test (name) VALUES ($1)", "v")
	}

	if !wrapper.IsOpen() {
		t.Fatal("Expected breaker to open on repeated failures")
	}

	// Once open, calls fail fast without reaching the database.
	_, err := wrapper.ExecContext(ctx, "INSERT INTO test (name) VALUES ($1)", "v")
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Expected ErrCircuitBreakerOpen, got %v", err)
	}
}
