// Package testfixtures provides deterministic builders for tests that need
// events, preferences, availability, and readiness records.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

var (
	eventCounter      uint64
	preferenceCounter uint64
	windowCounter     uint64
	snapshotCounter   uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// EventFixture represents a deterministic event record that can be
// materialised for application or persistence tests.
type EventFixture struct {
	ID             string
	Title          string
	Type           string
	Start          time.Time
	End            time.Time
	CreatorID      string
	ParticipantIDs []string
	Recurring      bool
	Cancelled      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
// Events are staggered one day apart starting from the reference time.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.AddDate(0, 0, int(idx))
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		Title:     fmt.Sprintf("Workout %03d", idx),
		Type:      "workout",
		Start:     start,
		End:       start.Add(time.Hour),
		CreatorID: fmt.Sprintf("user-%03d", idx),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

// WithEventCreator overrides the generated creator.
func WithEventCreator(userID string) EventOption {
	return func(f *EventFixture) { f.CreatorID = userID }
}

// WithEventWindow overrides the event time range.
func WithEventWindow(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventParticipants overrides the participant set.
func WithEventParticipants(ids ...string) EventOption {
	return func(f *EventFixture) { f.ParticipantIDs = append([]string(nil), ids...) }
}

// WithEventType overrides the event type.
func WithEventType(eventType string) EventOption {
	return func(f *EventFixture) { f.Type = eventType }
}

// WithEventCancelled marks the fixture as cancelled.
func WithEventCancelled() EventOption {
	return func(f *EventFixture) { f.Cancelled = true }
}

// ToModel converts the fixture into a persistence record.
func (f EventFixture) ToModel() persistence.Event {
	return persistence.Event{
		ID:             f.ID,
		Title:          f.Title,
		Type:           f.Type,
		Start:          f.Start,
		End:            f.End,
		CreatorID:      f.CreatorID,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
		Recurring:      f.Recurring,
		Cancelled:      f.Cancelled,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// PreferenceFixture represents a deterministic schedule preference record.
type PreferenceFixture struct {
	ID                string
	UserID            string
	PreferredDays     []time.Weekday
	MinSessionMinutes int
	MaxSessionMinutes int
	EventsPerWeek     int
	MinRestHours      int
	Timezone          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PreferenceOption configures the generated preference fixture.
type PreferenceOption func(*PreferenceFixture)

// NewPreferenceFixture returns a deterministic preference fixture.
func NewPreferenceFixture(opts ...PreferenceOption) PreferenceFixture {
	idx := atomic.AddUint64(&preferenceCounter, 1)
	fixture := PreferenceFixture{
		ID:                fmt.Sprintf("pref-%03d", idx),
		UserID:            fmt.Sprintf("user-%03d", idx),
		PreferredDays:     []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		MinSessionMinutes: 30,
		MaxSessionMinutes: 90,
		EventsPerWeek:     3,
		MinRestHours:      24,
		Timezone:          "UTC",
		CreatedAt:         referenceTime,
		UpdatedAt:         referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPreferenceUser overrides the owning user.
func WithPreferenceUser(userID string) PreferenceOption {
	return func(f *PreferenceFixture) { f.UserID = userID }
}

// WithPreferenceTimezone overrides the stored timezone.
func WithPreferenceTimezone(timezone string) PreferenceOption {
	return func(f *PreferenceFixture) { f.Timezone = timezone }
}

// ToModel converts the fixture into a persistence record.
func (f PreferenceFixture) ToModel() persistence.SchedulePreference {
	return persistence.SchedulePreference{
		ID:                f.ID,
		UserID:            f.UserID,
		PreferredDays:     append([]time.Weekday(nil), f.PreferredDays...),
		MinSessionMinutes: f.MinSessionMinutes,
		MaxSessionMinutes: f.MaxSessionMinutes,
		EventsPerWeek:     f.EventsPerWeek,
		MinRestHours:      f.MinRestHours,
		Timezone:          f.Timezone,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// WindowFixture represents a deterministic availability window record.
type WindowFixture struct {
	ID          string
	UserID      string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// NewWindowFixture returns a deterministic availability window for the user.
func NewWindowFixture(userID string, weekday time.Weekday, startMinute, endMinute int) WindowFixture {
	idx := atomic.AddUint64(&windowCounter, 1)
	return WindowFixture{
		ID:          fmt.Sprintf("window-%03d", idx),
		UserID:      userID,
		Weekday:     weekday,
		StartMinute: startMinute,
		EndMinute:   endMinute,
	}
}

// ToModel converts the fixture into a persistence record.
func (f WindowFixture) ToModel() persistence.AvailabilityWindow {
	return persistence.AvailabilityWindow{
		ID:          f.ID,
		UserID:      f.UserID,
		Weekday:     f.Weekday,
		StartMinute: f.StartMinute,
		EndMinute:   f.EndMinute,
	}
}

// SnapshotFixture represents a deterministic readiness sample.
type SnapshotFixture struct {
	ID         string
	UserID     string
	Readiness  float64
	RecordedAt time.Time
}

// NewSnapshotFixture returns a deterministic readiness sample for the user.
// Samples are staggered one hour apart starting from the reference time.
func NewSnapshotFixture(userID string, readiness float64) SnapshotFixture {
	idx := atomic.AddUint64(&snapshotCounter, 1)
	return SnapshotFixture{
		ID:         fmt.Sprintf("snapshot-%03d", idx),
		UserID:     userID,
		Readiness:  readiness,
		RecordedAt: referenceTime.Add(time.Duration(idx) * time.Hour),
	}
}

// ToModel converts the fixture into a persistence record.
func (f SnapshotFixture) ToModel() persistence.ReadinessSnapshot {
	return persistence.ReadinessSnapshot{
		ID:         f.ID,
		UserID:     f.UserID,
		Readiness:  f.Readiness,
		RecordedAt: f.RecordedAt,
	}
}
