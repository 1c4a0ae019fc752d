package sqlite

import (
	"context"
	"fmt"
)

// Schema bootstrap. Statements are idempotent so startup can run them on
// every boot without a migration ledger.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		location TEXT,
		intensity TEXT,
		recurring INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_start_time ON events (start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_creator ON events (creator_id)`,

	`CREATE TABLE IF NOT EXISTS event_participants (
		event_id TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		PRIMARY KEY (event_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_participants_user ON event_participants (user_id)`,

	`CREATE TABLE IF NOT EXISTS recurrence_patterns (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE REFERENCES events (id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		interval INTEGER NOT NULL DEFAULT 1,
		weekdays TEXT NOT NULL DEFAULT '',
		day_of_month INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL,
		end_date TEXT,
		max_occurrences INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS recurrence_exceptions (
		pattern_id TEXT NOT NULL REFERENCES recurrence_patterns (id) ON DELETE CASCADE,
		exception_date TEXT NOT NULL,
		PRIMARY KEY (pattern_id, exception_date)
	)`,

	`CREATE TABLE IF NOT EXISTS availability_windows (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		weekday INTEGER NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_minute > start_minute)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_availability_user ON availability_windows (user_id)`,

	`CREATE TABLE IF NOT EXISTS schedule_preferences (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		preferred_days TEXT NOT NULL DEFAULT '',
		preferred_time_ranges TEXT NOT NULL DEFAULT '',
		preferred_time_of_day TEXT,
		min_session_minutes INTEGER NOT NULL DEFAULT 0,
		max_session_minutes INTEGER NOT NULL DEFAULT 0,
		events_per_week INTEGER NOT NULL DEFAULT 0,
		min_rest_hours INTEGER NOT NULL DEFAULT 0,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		blackout_dates TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS readiness_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		readiness REAL NOT NULL,
		sleep_quality REAL,
		recorded_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_readiness_user_recorded ON readiness_snapshots (user_id, recorded_at)`,
}

// InitializeSchema creates all tables and indexes the repositories depend on.
func InitializeSchema(ctx context.Context, pool *ConnectionPool) error {
	for _, statement := range schemaStatements {
		if _, err := pool.DB().ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
