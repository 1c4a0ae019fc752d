package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository using SQLite.
type PreferenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPreferenceRepository creates a new SQLite preference repository.
func NewPreferenceRepository(pool *ConnectionPool) *PreferenceRepository {
	return &PreferenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertPreference inserts or replaces a user's scheduling preferences.
func (r *PreferenceRepository) UpsertPreference(ctx context.Context, preference persistence.SchedulePreference) error {
	if preference.ID == "" || preference.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	preference.UpdatedAt = now
	if preference.CreatedAt.IsZero() {
		preference.CreatedAt = now
	}

	query := `
		INSERT INTO schedule_preferences (id, user_id, preferred_days, preferred_time_ranges, preferred_time_of_day, min_session_minutes, max_session_minutes, events_per_week, min_rest_hours, timezone, blackout_dates, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_days = excluded.preferred_days,
			preferred_time_ranges = excluded.preferred_time_ranges,
			preferred_time_of_day = excluded.preferred_time_of_day,
			min_session_minutes = excluded.min_session_minutes,
			max_session_minutes = excluded.max_session_minutes,
			events_per_week = excluded.events_per_week,
			min_rest_hours = excluded.min_rest_hours,
			timezone = excluded.timezone,
			blackout_dates = excluded.blackout_dates,
			updated_at = excluded.updated_at
	`

	_, err := r.helper.Exec(ctx, query,
		preference.ID,
		preference.UserID,
		encodeWeekdays(preference.PreferredDays),
		encodeStrings(preference.PreferredTimeRanges),
		nullableString(preference.PreferredTimeOfDay),
		preference.MinSessionMinutes,
		preference.MaxSessionMinutes,
		preference.EventsPerWeek,
		preference.MinRestHours,
		preference.Timezone,
		encodeDates(preference.BlackoutDates),
		preference.CreatedAt.Format(time.RFC3339),
		preference.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetPreference retrieves a user's scheduling preferences.
func (r *PreferenceRepository) GetPreference(ctx context.Context, userID string) (persistence.SchedulePreference, error) {
	if userID == "" {
		return persistence.SchedulePreference{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, user_id, preferred_days, preferred_time_ranges, preferred_time_of_day, min_session_minutes, max_session_minutes, events_per_week, min_rest_hours, timezone, blackout_dates, created_at, updated_at
		FROM schedule_preferences
		WHERE user_id = ?
	`

	var preference persistence.SchedulePreference
	var daysStr, rangesStr, blackoutStr, createdAtStr, updatedAtStr string
	var timeOfDay sql.NullString

	err := r.helper.QueryRow(ctx, query, userID).Scan(
		&preference.ID,
		&preference.UserID,
		&daysStr,
		&rangesStr,
		&timeOfDay,
		&preference.MinSessionMinutes,
		&preference.MaxSessionMinutes,
		&preference.EventsPerWeek,
		&preference.MinRestHours,
		&preference.Timezone,
		&blackoutStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.SchedulePreference{}, r.mapper.MapError(err)
	}

	if preference.PreferredDays, err = decodeWeekdays(daysStr); err != nil {
		return persistence.SchedulePreference{}, err
	}
	preference.PreferredTimeRanges = decodeStrings(rangesStr)
	if timeOfDay.Valid {
		preference.PreferredTimeOfDay = &timeOfDay.String
	}
	if preference.BlackoutDates, err = decodeDates(blackoutStr); err != nil {
		return persistence.SchedulePreference{}, err
	}
	if preference.CreatedAt, err = parseStoredTime(createdAtStr, "created_at"); err != nil {
		return persistence.SchedulePreference{}, err
	}
	if preference.UpdatedAt, err = parseStoredTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.SchedulePreference{}, err
	}

	return preference, nil
}
