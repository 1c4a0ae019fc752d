package persistence

import (
	"context"
	"time"
)

// EventFilter narrows event queries. From/To bound the event's own time range
// with overlap semantics: events ending after From and starting before To.
type EventFilter struct {
	ParticipantIDs   []string
	From             *time.Time
	To               *time.Time
	Types            []string
	IncludeCancelled bool
}

// EventRepository stores events, their participants, and series bases.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	CreateSeries(ctx context.Context, event Event, pattern RecurrencePattern) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	CancelEvent(ctx context.Context, id string, at time.Time) error
	DeleteSeries(ctx context.Context, eventID string) error
	PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RecurrenceRepository stores recurrence patterns attached to base events.
type RecurrenceRepository interface {
	GetPatternForEvent(ctx context.Context, eventID string) (RecurrencePattern, error)
	ListPatternsForEvents(ctx context.Context, eventIDs []string) (map[string]RecurrencePattern, error)
	AddException(ctx context.Context, eventID string, date time.Time) error
}

// AvailabilityRepository stores weekly availability windows per user.
type AvailabilityRepository interface {
	ReplaceWindows(ctx context.Context, userID string, windows []AvailabilityWindow) error
	ListWindows(ctx context.Context, userID string) ([]AvailabilityWindow, error)
}

// PreferenceRepository stores scheduling preferences per user.
type PreferenceRepository interface {
	UpsertPreference(ctx context.Context, preference SchedulePreference) error
	GetPreference(ctx context.Context, userID string) (SchedulePreference, error)
}

// ReadinessRepository stores physiological readiness samples per user.
type ReadinessRepository interface {
	RecordSnapshot(ctx context.Context, snapshot ReadinessSnapshot) error
	LatestSnapshot(ctx context.Context, userID string) (ReadinessSnapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
