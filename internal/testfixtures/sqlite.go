package testfixtures

import (
	"context"
	"testing"

	"github.com/example/fitness-scheduler/internal/persistence"
	"github.com/example/fitness-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by an in-memory SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Events       persistence.EventRepository
	Recurrences  persistence.RecurrenceRepository
	Availability persistence.AvailabilityRepository
	Preferences  persistence.PreferenceRepository
	Readiness    persistence.ReadinessRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a fresh in-memory database
// with the schema applied. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(":memory:"))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.InitializeSchema(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to initialize schema: %v", err)
	}

	harness := &SQLiteHarness{
		Events:       sqlite.NewEventRepository(pool),
		Recurrences:  sqlite.NewRecurrenceRepository(pool),
		Availability: sqlite.NewAvailabilityRepository(pool),
		Preferences:  sqlite.NewPreferenceRepository(pool),
		Readiness:    sqlite.NewReadinessRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
