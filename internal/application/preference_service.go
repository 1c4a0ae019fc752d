package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
	"github.com/example/fitness-scheduler/internal/scheduling"
)

// PreferenceStore captures the persistence interactions needed by the
// preference service.
type PreferenceStore interface {
	UpsertPreference(ctx context.Context, preference persistence.SchedulePreference) error
	GetPreference(ctx context.Context, userID string) (persistence.SchedulePreference, error)
}

// AvailabilityStore captures the availability window interactions.
type AvailabilityStore interface {
	ReplaceWindows(ctx context.Context, userID string, windows []persistence.AvailabilityWindow) error
	ListWindows(ctx context.Context, userID string) ([]persistence.AvailabilityWindow, error)
}

// ReadinessStore captures the readiness sample interactions.
type ReadinessStore interface {
	RecordSnapshot(ctx context.Context, snapshot persistence.ReadinessSnapshot) error
	LatestSnapshot(ctx context.Context, userID string) (persistence.ReadinessSnapshot, error)
}

// PreferenceService manages scheduling preferences, availability windows, and
// readiness samples.
type PreferenceService struct {
	preferences  PreferenceStore
	availability AvailabilityStore
	readiness    ReadinessStore
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewPreferenceService wires dependencies for preference operations.
func NewPreferenceService(preferences PreferenceStore, availability AvailabilityStore, readiness ReadinessStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PreferenceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PreferenceService{
		preferences:  preferences,
		availability: availability,
		readiness:    readiness,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Upsert validates and stores the principal's scheduling preferences.
func (s *PreferenceService) Upsert(ctx context.Context, params UpsertPreferenceParams) (Preference, error) {
	if s == nil {
		return Preference{}, fmt.Errorf("PreferenceService is nil")
	}

	input := params.Input
	vErr := &ValidationError{}

	for _, day := range input.PreferredDays {
		if day < time.Sunday || day > time.Saturday {
			vErr.add("preferred_days", "invalid weekday")
			break
		}
	}
	for _, rangeSpec := range input.PreferredTimeRanges {
		if _, err := parseClockRange(rangeSpec); err != nil {
			vErr.add("preferred_time_ranges", fmt.Sprintf("invalid range %q", rangeSpec))
			break
		}
	}
	if input.PreferredTimeOfDay != nil && !knownTimeOfDay(*input.PreferredTimeOfDay) {
		vErr.add("preferred_time_of_day", "must be morning, afternoon, or evening")
	}
	if input.MinSessionMinutes < 0 || input.MaxSessionMinutes < 0 {
		vErr.add("session_minutes", "session durations must not be negative")
	}
	if input.MinSessionMinutes > 0 && input.MaxSessionMinutes > 0 && input.MinSessionMinutes > input.MaxSessionMinutes {
		vErr.add("session_minutes", "minimum duration exceeds maximum")
	}
	if input.EventsPerWeek < 0 || input.EventsPerWeek > 14 {
		vErr.add("events_per_week", "events per week must be between 0 and 14")
	}
	if input.MinRestHours < 0 || input.MinRestHours > 168 {
		vErr.add("min_rest_hours", "rest hours must be between 0 and 168")
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			vErr.add("timezone", "unknown timezone")
		}
	}
	if vErr.HasErrors() {
		return Preference{}, vErr
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	record := persistence.SchedulePreference{
		ID:                  s.idGenerator(),
		UserID:              params.Principal.UserID,
		PreferredDays:       input.PreferredDays,
		PreferredTimeRanges: input.PreferredTimeRanges,
		PreferredTimeOfDay:  input.PreferredTimeOfDay,
		MinSessionMinutes:   input.MinSessionMinutes,
		MaxSessionMinutes:   input.MaxSessionMinutes,
		EventsPerWeek:       input.EventsPerWeek,
		MinRestHours:        input.MinRestHours,
		Timezone:            timezone,
		BlackoutDates:       input.BlackoutDates,
	}

	if err := s.preferences.UpsertPreference(ctx, record); err != nil {
		return Preference{}, mapEventRepoError(err)
	}

	serviceLogger(ctx, s.logger, "preference", "upsert", "user_id", params.Principal.UserID).
		InfoContext(ctx, "preferences stored")

	return s.Get(ctx, params.Principal, params.Principal.UserID)
}

// Get retrieves the stored preferences for a user.
func (s *PreferenceService) Get(ctx context.Context, principal Principal, userID string) (Preference, error) {
	if s == nil {
		return Preference{}, fmt.Errorf("PreferenceService is nil")
	}
	if userID == "" {
		userID = principal.UserID
	}
	if userID != principal.UserID && !principal.IsAdmin {
		return Preference{}, ErrUnauthorized
	}

	record, err := s.preferences.GetPreference(ctx, userID)
	if err != nil {
		return Preference{}, mapEventRepoError(err)
	}

	return toApplicationPreference(record), nil
}

// SetAvailability replaces the principal's weekly availability windows.
func (s *PreferenceService) SetAvailability(ctx context.Context, params SetAvailabilityParams) ([]AvailabilityWindow, error) {
	if s == nil {
		return nil, fmt.Errorf("PreferenceService is nil")
	}

	vErr := &ValidationError{}
	for i, window := range params.Windows {
		if window.Weekday < time.Sunday || window.Weekday > time.Saturday {
			vErr.add(fmt.Sprintf("windows[%d].weekday", i), "invalid weekday")
		}
		if window.StartMinute < 0 || window.EndMinute > 24*60 {
			vErr.add(fmt.Sprintf("windows[%d]", i), "minutes must fall inside one day")
		}
		if window.StartMinute >= window.EndMinute {
			vErr.add(fmt.Sprintf("windows[%d]", i), "start must precede end")
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	records := make([]persistence.AvailabilityWindow, 0, len(params.Windows))
	for _, window := range params.Windows {
		records = append(records, persistence.AvailabilityWindow{
			ID:          s.idGenerator(),
			UserID:      params.Principal.UserID,
			Weekday:     window.Weekday,
			StartMinute: window.StartMinute,
			EndMinute:   window.EndMinute,
		})
	}

	if err := s.availability.ReplaceWindows(ctx, params.Principal.UserID, records); err != nil {
		return nil, mapEventRepoError(err)
	}

	return s.ListAvailability(ctx, params.Principal, params.Principal.UserID)
}

// ListAvailability returns a user's stored availability windows.
func (s *PreferenceService) ListAvailability(ctx context.Context, principal Principal, userID string) ([]AvailabilityWindow, error) {
	if s == nil {
		return nil, fmt.Errorf("PreferenceService is nil")
	}
	if userID == "" {
		userID = principal.UserID
	}
	if userID != principal.UserID && !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	records, err := s.availability.ListWindows(ctx, userID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	windows := make([]AvailabilityWindow, 0, len(records))
	for _, record := range records {
		windows = append(windows, AvailabilityWindow{
			ID:          record.ID,
			UserID:      record.UserID,
			Weekday:     record.Weekday,
			StartMinute: record.StartMinute,
			EndMinute:   record.EndMinute,
		})
	}
	return windows, nil
}

// RecordReadiness stores one readiness sample for the principal.
func (s *PreferenceService) RecordReadiness(ctx context.Context, params RecordReadinessParams) (ReadinessSnapshot, error) {
	if s == nil {
		return ReadinessSnapshot{}, fmt.Errorf("PreferenceService is nil")
	}

	input := params.Input
	vErr := &ValidationError{}
	if input.Readiness < 0 || input.Readiness > 100 {
		vErr.add("readiness", "readiness must be between 0 and 100")
	}
	if input.SleepQuality != nil && *input.SleepQuality < 0 {
		vErr.add("sleep_quality", "sleep quality must not be negative")
	}
	if vErr.HasErrors() {
		return ReadinessSnapshot{}, vErr
	}

	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}

	record := persistence.ReadinessSnapshot{
		ID:           s.idGenerator(),
		UserID:       params.Principal.UserID,
		Readiness:    input.Readiness,
		SleepQuality: input.SleepQuality,
		RecordedAt:   recordedAt,
	}

	if err := s.readiness.RecordSnapshot(ctx, record); err != nil {
		return ReadinessSnapshot{}, mapEventRepoError(err)
	}

	return ReadinessSnapshot{
		ID:           record.ID,
		UserID:       record.UserID,
		Readiness:    record.Readiness,
		SleepQuality: record.SleepQuality,
		RecordedAt:   record.RecordedAt,
	}, nil
}

func toApplicationPreference(record persistence.SchedulePreference) Preference {
	return Preference{
		UserID:              record.UserID,
		PreferredDays:       record.PreferredDays,
		PreferredTimeRanges: record.PreferredTimeRanges,
		PreferredTimeOfDay:  record.PreferredTimeOfDay,
		MinSessionMinutes:   record.MinSessionMinutes,
		MaxSessionMinutes:   record.MaxSessionMinutes,
		EventsPerWeek:       record.EventsPerWeek,
		MinRestHours:        record.MinRestHours,
		Timezone:            record.Timezone,
		BlackoutDates:       record.BlackoutDates,
		UpdatedAt:           record.UpdatedAt,
	}
}

func knownTimeOfDay(value string) bool {
	switch scheduling.TimeOfDay(value) {
	case scheduling.TimeOfDayMorning, scheduling.TimeOfDayAfternoon, scheduling.TimeOfDayEvening:
		return true
	}
	return false
}

// parseClockRange parses "HH:MM-HH:MM" into a minute-of-day range.
func parseClockRange(spec string) (scheduling.ClockRange, error) {
	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return scheduling.ClockRange{}, fmt.Errorf("invalid time range %q", spec)
	}

	start, err := parseClockMinute(parts[0])
	if err != nil {
		return scheduling.ClockRange{}, err
	}
	end, err := parseClockMinute(parts[1])
	if err != nil {
		return scheduling.ClockRange{}, err
	}
	if start >= end {
		return scheduling.ClockRange{}, fmt.Errorf("time range %q is empty", spec)
	}

	return scheduling.ClockRange{StartMinute: start, EndMinute: end}, nil
}

func parseClockMinute(spec string) (int, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", spec)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", spec)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", spec)
	}
	return hour*60 + minute, nil
}
