package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

// ReadinessRepository implements persistence.ReadinessRepository using SQLite.
type ReadinessRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReadinessRepository creates a new SQLite readiness repository.
func NewReadinessRepository(pool *ConnectionPool) *ReadinessRepository {
	return &ReadinessRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// RecordSnapshot stores one readiness sample.
func (r *ReadinessRepository) RecordSnapshot(ctx context.Context, snapshot persistence.ReadinessSnapshot) error {
	if snapshot.ID == "" || snapshot.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	var sleepQuality any
	if snapshot.SleepQuality != nil {
		sleepQuality = *snapshot.SleepQuality
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO readiness_snapshots (id, user_id, readiness, sleep_quality, recorded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		snapshot.ID,
		snapshot.UserID,
		snapshot.Readiness,
		sleepQuality,
		snapshot.RecordedAt.UTC().Format(time.RFC3339),
		snapshot.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// LatestSnapshot returns the most recently recorded sample for a user.
func (r *ReadinessRepository) LatestSnapshot(ctx context.Context, userID string) (persistence.ReadinessSnapshot, error) {
	if userID == "" {
		return persistence.ReadinessSnapshot{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, user_id, readiness, sleep_quality, recorded_at, created_at
		FROM readiness_snapshots
		WHERE user_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var snapshot persistence.ReadinessSnapshot
	var recordedAtStr, createdAtStr string
	var sleepQuality sql.NullFloat64

	err := r.helper.QueryRow(ctx, query, userID).Scan(
		&snapshot.ID,
		&snapshot.UserID,
		&snapshot.Readiness,
		&sleepQuality,
		&recordedAtStr,
		&createdAtStr,
	)
	if err != nil {
		return persistence.ReadinessSnapshot{}, r.mapper.MapError(err)
	}

	if sleepQuality.Valid {
		snapshot.SleepQuality = &sleepQuality.Float64
	}
	if snapshot.RecordedAt, err = parseStoredTime(recordedAtStr, "recorded_at"); err != nil {
		return persistence.ReadinessSnapshot{}, err
	}
	if snapshot.CreatedAt, err = parseStoredTime(createdAtStr, "created_at"); err != nil {
		return persistence.ReadinessSnapshot{}, err
	}

	return snapshot, nil
}

// DeleteSnapshotsBefore removes samples recorded before the cutoff, returning
// the number of rows removed.
func (r *ReadinessRepository) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.helper.Exec(ctx,
		"DELETE FROM readiness_snapshots WHERE recorded_at < ?",
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}
