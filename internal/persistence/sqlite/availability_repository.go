package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite.
type AvailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// ReplaceWindows swaps a user's full weekly availability in one transaction.
func (r *AvailabilityRepository) ReplaceWindows(ctx context.Context, userID string, windows []persistence.AvailabilityWindow) error {
	if userID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM availability_windows WHERE user_id = ?", userID); err != nil {
			return r.mapper.MapError(err)
		}

		for _, window := range windows {
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO availability_windows (id, user_id, weekday, start_minute, end_minute, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`,
				window.ID,
				userID,
				int(window.Weekday),
				window.StartMinute,
				window.EndMinute,
				now.Format(time.RFC3339),
				now.Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// ListWindows returns a user's availability windows ordered by weekday and start.
func (r *AvailabilityRepository) ListWindows(ctx context.Context, userID string) ([]persistence.AvailabilityWindow, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, user_id, weekday, start_minute, end_minute, created_at, updated_at
		FROM availability_windows
		WHERE user_id = ?
		ORDER BY weekday ASC, start_minute ASC
	`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var windows []persistence.AvailabilityWindow
	for rows.Next() {
		var window persistence.AvailabilityWindow
		var weekday int
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&window.ID,
			&window.UserID,
			&weekday,
			&window.StartMinute,
			&window.EndMinute,
			&createdAtStr,
			&updatedAtStr,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		window.Weekday = time.Weekday(weekday)
		if window.CreatedAt, err = parseStoredTime(createdAtStr, "created_at"); err != nil {
			return nil, err
		}
		if window.UpdatedAt, err = parseStoredTime(updatedAtStr, "updated_at"); err != nil {
			return nil, err
		}

		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return windows, nil
}
