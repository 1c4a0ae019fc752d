package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// RecurrenceInput captures caller provided recurrence fields for an event
// series. A nil Interval means the caller left it out; it defaults to 1.
type RecurrenceInput struct {
	Type           string
	Interval       *int
	Weekdays       []time.Weekday
	DayOfMonth     int
	EndDate        *time.Time
	MaxOccurrences int
}

// EventInput captures caller provided event fields.
type EventInput struct {
	CreatorID      string
	Title          string
	Description    *string
	Type           string
	Start          time.Time
	End            time.Time
	Location       *string
	Intensity      *string
	ParticipantIDs []string
	Metadata       map[string]string
	Recurrence     *RecurrenceInput
}

// Event represents a booked activity event exposed by the application services.
type Event struct {
	ID             string
	CreatorID      string
	Title          string
	Description    *string
	Type           string
	Start          time.Time
	End            time.Time
	Location       *string
	Intensity      *string
	ParticipantIDs []string
	Recurring      bool
	Cancelled      bool
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Occurrences    []EventOccurrence
}

// EventOccurrence represents one expanded occurrence of a recurring event.
type EventOccurrence struct {
	EventID string
	Start   time.Time
	End     time.Time
}

// ConflictWarning describes a scheduling collision that should be surfaced to callers.
type ConflictWarning struct {
	EventID string
	Title   string
	Type    string
	Start   time.Time
	End     time.Time
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListEventsParams wraps the data required to list events.
type ListEventsParams struct {
	Principal       Principal
	ParticipantIDs  []string
	From            *time.Time
	To              *time.Time
	Types           []string
	ExpandRecurring bool
}

// CancelEventParams wraps the data required to cancel an event or one
// occurrence of a series.
type CancelEventParams struct {
	Principal      Principal
	EventID        string
	OccurrenceDate *time.Time
}

// DeleteEventParams wraps the data required to delete an event. When Series
// is set the whole series is removed atomically.
type DeleteEventParams struct {
	Principal Principal
	EventID   string
	Series    bool
}

// CheckConflictsParams wraps the data for an ad-hoc conflict probe.
type CheckConflictsParams struct {
	Principal      Principal
	Start          time.Time
	End            time.Time
	ParticipantIDs []string
	ExcludeEventID string
}

// ConflictReport is the outcome of a conflict probe.
type ConflictReport struct {
	HasConflicts bool
	Conflicts    []ConflictWarning
}

// PreferenceInput captures caller provided scheduling preference fields.
// Time ranges use the "HH:MM-HH:MM" layout.
type PreferenceInput struct {
	PreferredDays       []time.Weekday
	PreferredTimeRanges []string
	PreferredTimeOfDay  *string
	MinSessionMinutes   int
	MaxSessionMinutes   int
	EventsPerWeek       int
	MinRestHours        int
	Timezone            string
	BlackoutDates       []time.Time
}

// Preference represents a user's stored scheduling preferences.
type Preference struct {
	UserID              string
	PreferredDays       []time.Weekday
	PreferredTimeRanges []string
	PreferredTimeOfDay  *string
	MinSessionMinutes   int
	MaxSessionMinutes   int
	EventsPerWeek       int
	MinRestHours        int
	Timezone            string
	BlackoutDates       []time.Time
	UpdatedAt           time.Time
}

// UpsertPreferenceParams wraps the data required to store preferences.
type UpsertPreferenceParams struct {
	Principal Principal
	Input     PreferenceInput
}

// AvailabilityWindowInput captures one caller provided weekly availability window.
type AvailabilityWindowInput struct {
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// AvailabilityWindow represents one stored weekly availability window.
type AvailabilityWindow struct {
	ID          string
	UserID      string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// SetAvailabilityParams wraps the data required to replace a user's availability.
type SetAvailabilityParams struct {
	Principal Principal
	Windows   []AvailabilityWindowInput
}

// ReadinessInput captures one caller provided readiness sample.
type ReadinessInput struct {
	Readiness    float64
	SleepQuality *float64
	RecordedAt   time.Time
}

// ReadinessSnapshot represents a stored readiness sample.
type ReadinessSnapshot struct {
	ID           string
	UserID       string
	Readiness    float64
	SleepQuality *float64
	RecordedAt   time.Time
}

// RecordReadinessParams wraps the data required to record a readiness sample.
type RecordReadinessParams struct {
	Principal Principal
	Input     ReadinessInput
}

// Constraints narrow a smart-schedule request beyond the stored preferences.
type Constraints struct {
	MinDurationMinutes int
	MaxDurationMinutes int
	PreferredTimeOfDay *string
	IntensityLevel     *string
	EventsPerWeek      int
}

// SmartScheduleParams wraps the data required to compose a schedule proposal.
type SmartScheduleParams struct {
	Principal   Principal
	From        time.Time
	To          time.Time
	Constraints Constraints
}

// ProposedEvent is one suggested session in a composed schedule.
type ProposedEvent struct {
	Title       string
	Description string
	Type        string
	Start       time.Time
	End         time.Time
	UserID      string
	Intensity   string
	Score       float64
}

// SmartScheduleResult is the outcome of schedule composition.
type SmartScheduleResult struct {
	Proposals    []ProposedEvent
	QualityScore float64
	Intensity    string
}
