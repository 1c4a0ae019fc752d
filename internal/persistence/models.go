package persistence

import "time"

// Event represents a booked activity entry stored in persistence. A recurring
// series is stored as one base event row plus a recurrence pattern; occurrences
// are expanded at read time.
type Event struct {
	ID             string
	Title          string
	Description    *string
	Type           string
	Start          time.Time
	End            time.Time
	CreatorID      string
	ParticipantIDs []string
	Location       *string
	Intensity      *string
	Recurring      bool
	Cancelled      bool
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecurrencePattern represents the recurrence configuration attached to a
// base event.
type RecurrencePattern struct {
	ID             string
	EventID        string
	Type           string
	Interval       int
	Weekdays       []time.Weekday
	DayOfMonth     int
	StartDate      time.Time
	EndDate        *time.Time
	MaxOccurrences int
	Exceptions     []time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AvailabilityWindow represents one weekly availability window declared by a
// user. Minutes are counted from midnight in the user's timezone.
type AvailabilityWindow struct {
	ID          string
	UserID      string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SchedulePreference represents a user's stated scheduling preferences.
// PreferredTimeRanges holds "HH:MM-HH:MM" entries; BlackoutDates holds
// calendar days with no time component.
type SchedulePreference struct {
	ID                  string
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
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ReadinessSnapshot represents one recorded physiological readiness sample
// for a user.
type ReadinessSnapshot struct {
	ID           string
	UserID       string
	Readiness    float64
	SleepQuality *float64
	RecordedAt   time.Time
	CreatedAt    time.Time
}
