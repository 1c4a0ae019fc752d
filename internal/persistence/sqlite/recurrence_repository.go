package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

// RecurrenceRepository implements persistence.RecurrenceRepository using SQLite.
type RecurrenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRecurrenceRepository creates a new SQLite recurrence repository.
func NewRecurrenceRepository(pool *ConnectionPool) *RecurrenceRepository {
	return &RecurrenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const patternColumns = "id, event_id, type, interval, weekdays, day_of_month, start_date, end_date, max_occurrences, created_at, updated_at"

// GetPatternForEvent retrieves the recurrence pattern attached to a base event.
func (r *RecurrenceRepository) GetPatternForEvent(ctx context.Context, eventID string) (persistence.RecurrencePattern, error) {
	if eventID == "" {
		return persistence.RecurrencePattern{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx,
		"SELECT "+patternColumns+" FROM recurrence_patterns WHERE event_id = ?", eventID)
	pattern, err := scanPattern(row)
	if err != nil {
		return persistence.RecurrencePattern{}, r.mapper.MapError(err)
	}

	exceptions, err := r.loadExceptions(ctx, pattern.ID)
	if err != nil {
		return persistence.RecurrencePattern{}, err
	}
	pattern.Exceptions = exceptions

	return pattern, nil
}

// ListPatternsForEvents retrieves the patterns for the given base events,
// keyed by event id. Events without a pattern are absent from the result.
func (r *RecurrenceRepository) ListPatternsForEvents(ctx context.Context, eventIDs []string) (map[string]persistence.RecurrencePattern, error) {
	if len(eventIDs) == 0 {
		return map[string]persistence.RecurrencePattern{}, nil
	}

	placeholders := make([]string, len(eventIDs))
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := "SELECT " + patternColumns + " FROM recurrence_patterns WHERE event_id IN (" +
		strings.Join(placeholders, ",") + ")"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	patterns := make(map[string]persistence.RecurrencePattern)
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		patterns[pattern.EventID] = pattern
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for eventID, pattern := range patterns {
		exceptions, err := r.loadExceptions(ctx, pattern.ID)
		if err != nil {
			return nil, err
		}
		pattern.Exceptions = exceptions
		patterns[eventID] = pattern
	}

	return patterns, nil
}

// AddException records a skipped occurrence date for the event's pattern.
// Recording the same date twice is a no-op.
func (r *RecurrenceRepository) AddException(ctx context.Context, eventID string, date time.Time) error {
	if eventID == "" {
		return persistence.ErrNotFound
	}

	var patternID string
	err := r.helper.QueryRow(ctx,
		"SELECT id FROM recurrence_patterns WHERE event_id = ?", eventID).Scan(&patternID)
	if err != nil {
		return r.mapper.MapError(err)
	}

	_, err = r.helper.Exec(ctx,
		"INSERT OR IGNORE INTO recurrence_exceptions (pattern_id, exception_date) VALUES (?, ?)",
		patternID, date.UTC().Format(dateOnly))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *RecurrenceRepository) loadExceptions(ctx context.Context, patternID string) ([]time.Time, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT exception_date FROM recurrence_exceptions WHERE pattern_id = ? ORDER BY exception_date ASC",
		patternID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var exceptions []time.Time
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		date, err := time.Parse(dateOnly, dateStr)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, date)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return exceptions, nil
}

func scanPattern(row rowScanner) (persistence.RecurrencePattern, error) {
	var pattern persistence.RecurrencePattern
	var startStr, createdAtStr, updatedAtStr, weekdaysStr string
	var endStr sql.NullString

	err := row.Scan(
		&pattern.ID,
		&pattern.EventID,
		&pattern.Type,
		&pattern.Interval,
		&weekdaysStr,
		&pattern.DayOfMonth,
		&startStr,
		&endStr,
		&pattern.MaxOccurrences,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.RecurrencePattern{}, err
	}

	if pattern.Weekdays, err = decodeWeekdays(weekdaysStr); err != nil {
		return persistence.RecurrencePattern{}, err
	}
	if pattern.StartDate, err = parseStoredTime(startStr, "start_date"); err != nil {
		return persistence.RecurrencePattern{}, err
	}
	if endStr.Valid {
		endDate, err := parseStoredTime(endStr.String, "end_date")
		if err != nil {
			return persistence.RecurrencePattern{}, err
		}
		pattern.EndDate = &endDate
	}
	if pattern.CreatedAt, err = parseStoredTime(createdAtStr, "created_at"); err != nil {
		return persistence.RecurrencePattern{}, err
	}
	if pattern.UpdatedAt, err = parseStoredTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.RecurrencePattern{}, err
	}

	return pattern, nil
}
