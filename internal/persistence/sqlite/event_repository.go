package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const eventColumns = "id, title, description, type, start_time, end_time, creator_id, location, intensity, recurring, cancelled, metadata, created_at, updated_at"

// CreateEvent inserts a standalone event with its participants.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.insertEvent(tx, event)
	})
}

// CreateSeries inserts a base event and its recurrence pattern atomically.
func (r *EventRepository) CreateSeries(ctx context.Context, event persistence.Event, pattern persistence.RecurrencePattern) error {
	if event.ID == "" || pattern.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Recurring = true
	pattern.EventID = event.ID
	pattern.CreatedAt = now
	pattern.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.insertEvent(tx, event); err != nil {
			return err
		}
		return r.insertPattern(tx, pattern)
	})
}

func (r *EventRepository) insertEvent(tx *sql.Tx, event persistence.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	metadata, err := encodeMetadata(event.Metadata)
	if err != nil {
		return err
	}

	_, err = r.helper.ExecTx(tx, query,
		event.ID,
		event.Title,
		nullableString(event.Description),
		event.Type,
		event.Start.UTC().Format(time.RFC3339),
		event.End.UTC().Format(time.RFC3339),
		event.CreatorID,
		nullableString(event.Location),
		nullableString(event.Intensity),
		event.Recurring,
		event.Cancelled,
		metadata,
		event.CreatedAt.Format(time.RFC3339),
		event.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return r.insertParticipants(tx, event.ID, event.ParticipantIDs)
}

func (r *EventRepository) insertPattern(tx *sql.Tx, pattern persistence.RecurrencePattern) error {
	query := `
		INSERT INTO recurrence_patterns (id, event_id, type, interval, weekdays, day_of_month, start_date, end_date, max_occurrences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endDate any
	if pattern.EndDate != nil {
		endDate = pattern.EndDate.UTC().Format(time.RFC3339)
	}

	_, err := r.helper.ExecTx(tx, query,
		pattern.ID,
		pattern.EventID,
		pattern.Type,
		pattern.Interval,
		encodeWeekdays(pattern.Weekdays),
		pattern.DayOfMonth,
		pattern.StartDate.UTC().Format(time.RFC3339),
		endDate,
		pattern.MaxOccurrences,
		pattern.CreatedAt.Format(time.RFC3339),
		pattern.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	for _, date := range pattern.Exceptions {
		_, err := r.helper.ExecTx(tx,
			"INSERT INTO recurrence_exceptions (pattern_id, exception_date) VALUES (?, ?)",
			pattern.ID, date.UTC().Format(dateOnly))
		if err != nil {
			return r.mapper.MapError(err)
		}
	}

	return nil
}

// UpdateEvent updates an existing event and replaces its participants. The
// creator is immutable.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}

	event.UpdatedAt = time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var currentCreatorID string
		err := r.helper.QueryRowTx(tx, "SELECT creator_id FROM events WHERE id = ?", event.ID).Scan(&currentCreatorID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		query := `
			UPDATE events
			SET title = ?, description = ?, type = ?, start_time = ?, end_time = ?, location = ?, intensity = ?, cancelled = ?, metadata = ?, updated_at = ?
			WHERE id = ?
		`

		metadata, err := encodeMetadata(event.Metadata)
		if err != nil {
			return err
		}

		result, err := r.helper.ExecTx(tx, query,
			event.Title,
			nullableString(event.Description),
			event.Type,
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			nullableString(event.Location),
			nullableString(event.Intensity),
			event.Cancelled,
			metadata,
			event.UpdatedAt.Format(time.RFC3339),
			event.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx, "DELETE FROM event_participants WHERE event_id = ?", event.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertParticipants(tx, event.ID, event.ParticipantIDs)
	})
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}

	participants, err := r.loadParticipants(ctx, id)
	if err != nil {
		return persistence.Event{}, err
	}
	event.ParticipantIDs = participants

	return event, nil
}

// ListEvents lists events matching the filter, ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := buildEventListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range events {
		participants, err := r.loadParticipants(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].ParticipantIDs = participants
	}

	return events, nil
}

// CancelEvent marks an event cancelled without removing it.
func (r *EventRepository) CancelEvent(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx,
		"UPDATE events SET cancelled = 1, updated_at = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteSeries removes a base event together with its pattern, exceptions,
// and participants in one transaction.
func (r *EventRepository) DeleteSeries(ctx context.Context, eventID string) error {
	if eventID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Cascades remove participants, the pattern, and its exceptions.
		result, err := r.helper.ExecTx(tx, "DELETE FROM events WHERE id = ?", eventID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// PurgeCancelledBefore removes cancelled events whose end time precedes the
// cutoff, returning the number of rows removed.
func (r *EventRepository) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.helper.Exec(ctx,
		"DELETE FROM events WHERE cancelled = 1 AND end_time < ?",
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return result.RowsAffected()
}

func (r *EventRepository) insertParticipants(tx *sql.Tx, eventID string, participants []string) error {
	if len(participants) == 0 {
		return nil
	}

	unique := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		participant = strings.TrimSpace(participant)
		if participant != "" {
			unique[participant] = struct{}{}
		}
	}

	for participant := range unique {
		_, err := r.helper.ExecTx(tx,
			"INSERT INTO event_participants (event_id, user_id) VALUES (?, ?)",
			eventID, participant)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}

	return nil
}

func (r *EventRepository) loadParticipants(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT user_id FROM event_participants WHERE event_id = ? ORDER BY user_id ASC",
		eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return participants, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var startStr, endStr, metadataStr, createdAtStr, updatedAtStr string
	var description, location, intensity sql.NullString

	err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&event.Type,
		&startStr,
		&endStr,
		&event.CreatorID,
		&location,
		&intensity,
		&event.Recurring,
		&event.Cancelled,
		&metadataStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	if event.Metadata, err = decodeMetadata(metadataStr); err != nil {
		return persistence.Event{}, err
	}

	if description.Valid {
		event.Description = &description.String
	}
	if location.Valid {
		event.Location = &location.String
	}
	if intensity.Valid {
		event.Intensity = &intensity.String
	}

	if event.Start, err = parseStoredTime(startStr, "start_time"); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseStoredTime(endStr, "end_time"); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseStoredTime(createdAtStr, "created_at"); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseStoredTime(updatedAtStr, "updated_at"); err != nil {
		return persistence.Event{}, err
	}

	return event, nil
}

func buildEventListQuery(filter persistence.EventFilter) (string, []any) {
	baseQuery := "SELECT DISTINCT " + prefixColumns("e", eventColumns) + " FROM events e"

	var conditions []string
	var args []any

	if len(filter.ParticipantIDs) > 0 {
		baseQuery += " LEFT JOIN event_participants ep ON e.id = ep.event_id"

		placeholders := make([]string, len(filter.ParticipantIDs))
		for i, participantID := range filter.ParticipantIDs {
			placeholders[i] = "?"
			args = append(args, participantID)
		}
		in := strings.Join(placeholders, ",")
		conditions = append(conditions, fmt.Sprintf("(ep.user_id IN (%s) OR e.creator_id IN (%s))", in, in))
		for _, participantID := range filter.ParticipantIDs {
			args = append(args, participantID)
		}
	}

	if filter.From != nil {
		conditions = append(conditions, "e.end_time > ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		conditions = append(conditions, "e.start_time < ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, eventType := range filter.Types {
			placeholders[i] = "?"
			args = append(args, eventType)
		}
		conditions = append(conditions, fmt.Sprintf("e.type IN (%s)", strings.Join(placeholders, ",")))
	}

	if !filter.IncludeCancelled {
		conditions = append(conditions, "e.cancelled = 0")
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY e.start_time ASC, e.id ASC"

	return baseQuery, args
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}
