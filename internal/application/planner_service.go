package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
	"github.com/example/fitness-scheduler/internal/scheduling"
)

// Planning defaults applied when the stored preference leaves a field unset
// and the request carries no constraint override.
const (
	defaultMinSessionMinutes = 30
	defaultMaxSessionMinutes = 90
	defaultEventsPerWeek     = 3
	defaultRestGap           = 24 * time.Hour
)

// Readiness thresholds for the suggested training intensity.
const (
	highIntensityThreshold   = 80.0
	mediumIntensityThreshold = 60.0
)

// PlannerService composes conflict-free schedule proposals from stored
// preferences, availability, readiness, and existing bookings.
type PlannerService struct {
	events       EventStore
	recurrences  RecurrenceStore
	preferences  PreferenceStore
	availability AvailabilityStore
	readiness    ReadinessStore
	now          func() time.Time
	logger       *slog.Logger
}

// NewPlannerService wires dependencies for schedule composition.
func NewPlannerService(events EventStore, recurrences RecurrenceStore, preferences PreferenceStore, availability AvailabilityStore, readiness ReadinessStore, now func() time.Time, logger *slog.Logger) *PlannerService {
	if now == nil {
		now = time.Now
	}
	return &PlannerService{
		events:       events,
		recurrences:  recurrences,
		preferences:  preferences,
		availability: availability,
		readiness:    readiness,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// plannerState carries the composition inputs across phases.
type plannerState struct {
	params     SmartScheduleParams
	location   *time.Location
	preference Preference
	duration   time.Duration
	perWeek    int
	restGap    time.Duration
	timeOfDay  scheduling.TimeOfDay
	intensity  string
	readiness  *scheduling.ReadinessSnapshot
	windows    []AvailabilityWindow
	existing   []scheduling.Event
	ranges     []scheduling.ClockRange
}

// ComposeSchedule produces a proposal for the requested range. The request is
// processed in phases: resolve preferences, resolve readiness, load
// availability and existing bookings, select slots week by week, and score
// the resulting schedule.
func (s *PlannerService) ComposeSchedule(ctx context.Context, params SmartScheduleParams) (SmartScheduleResult, error) {
	if s == nil {
		return SmartScheduleResult{}, fmt.Errorf("PlannerService is nil")
	}

	vErr := &ValidationError{}
	if params.From.IsZero() {
		vErr.add("from", "from is required")
	}
	if params.To.IsZero() {
		vErr.add("to", "to is required")
	}
	if !params.From.IsZero() && !params.To.IsZero() && !params.From.Before(params.To) {
		vErr.add("range", "from must precede to")
	}
	if vErr.HasErrors() {
		return SmartScheduleResult{}, vErr
	}

	logger := serviceLogger(ctx, s.logger, "planner", "compose_schedule", "user_id", params.Principal.UserID)

	state := &plannerState{params: params}

	phases := []func(context.Context, *plannerState) error{
		s.resolvePreferences,
		s.resolveReadiness,
		s.loadAvailability,
		s.loadExistingEvents,
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return SmartScheduleResult{}, err
		}
		if err := phase(ctx, state); err != nil {
			return SmartScheduleResult{}, err
		}
	}

	proposals := s.selectSlots(state)

	quality := s.scoreSchedule(state, proposals)
	logger.InfoContext(ctx, "schedule composed",
		"proposal_count", len(proposals), "intensity", state.intensity, "quality_score", quality)

	return SmartScheduleResult{
		Proposals:    proposals,
		QualityScore: quality,
		Intensity:    state.intensity,
	}, nil
}

// resolvePreferences loads the user's stored preferences. A user without a
// preference record cannot be planned for; that is a configuration error, not
// an empty result.
func (s *PlannerService) resolvePreferences(ctx context.Context, state *plannerState) error {
	if s.preferences == nil {
		return fmt.Errorf("%w: no preference store configured", ErrConfiguration)
	}

	record, err := s.preferences.GetPreference(ctx, state.params.Principal.UserID)
	switch {
	case err == nil:
	case isNotFoundError(err):
		return fmt.Errorf("%w: no schedule preferences stored for user", ErrConfiguration)
	default:
		return err
	}

	preference := toApplicationPreference(record)
	if preference.MinSessionMinutes == 0 {
		preference.MinSessionMinutes = defaultMinSessionMinutes
	}
	if preference.MaxSessionMinutes == 0 {
		preference.MaxSessionMinutes = defaultMaxSessionMinutes
	}
	if preference.EventsPerWeek == 0 {
		preference.EventsPerWeek = defaultEventsPerWeek
	}
	if preference.Timezone == "" {
		preference.Timezone = "UTC"
	}

	constraints := state.params.Constraints
	if constraints.MinDurationMinutes > 0 {
		preference.MinSessionMinutes = constraints.MinDurationMinutes
	}
	if constraints.MaxDurationMinutes > 0 {
		preference.MaxSessionMinutes = constraints.MaxDurationMinutes
	}
	if constraints.EventsPerWeek > 0 {
		preference.EventsPerWeek = constraints.EventsPerWeek
	}
	if preference.MinSessionMinutes > preference.MaxSessionMinutes {
		return fmt.Errorf("%w: minimum session duration exceeds maximum", ErrConfiguration)
	}

	location, err := time.LoadLocation(preference.Timezone)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrConfiguration, preference.Timezone)
	}

	ranges := make([]scheduling.ClockRange, 0, len(preference.PreferredTimeRanges))
	for _, spec := range preference.PreferredTimeRanges {
		clockRange, err := parseClockRange(spec)
		if err != nil {
			return fmt.Errorf("%w: stored time range %q is invalid", ErrConfiguration, spec)
		}
		ranges = append(ranges, clockRange)
	}

	timeOfDay := scheduling.TimeOfDay("")
	if preference.PreferredTimeOfDay != nil {
		timeOfDay = scheduling.TimeOfDay(*preference.PreferredTimeOfDay)
	}
	if constraints.PreferredTimeOfDay != nil {
		if !knownTimeOfDay(*constraints.PreferredTimeOfDay) {
			vErr := &ValidationError{}
			vErr.add("preferred_time_of_day", "must be morning, afternoon, or evening")
			return vErr
		}
		timeOfDay = scheduling.TimeOfDay(*constraints.PreferredTimeOfDay)
	}

	state.preference = preference
	state.location = location
	state.ranges = ranges
	state.timeOfDay = timeOfDay
	state.duration = time.Duration(preference.MinSessionMinutes+preference.MaxSessionMinutes) / 2 * time.Minute
	state.perWeek = preference.EventsPerWeek
	state.restGap = defaultRestGap
	if preference.MinRestHours > 0 {
		state.restGap = time.Duration(preference.MinRestHours) * time.Hour
	}
	return nil
}

func (s *PlannerService) resolveReadiness(ctx context.Context, state *plannerState) error {
	state.intensity = IntensityMedium

	if s.readiness != nil {
		record, err := s.readiness.LatestSnapshot(ctx, state.params.Principal.UserID)
		switch {
		case err == nil:
			state.readiness = &scheduling.ReadinessSnapshot{
				Readiness:    record.Readiness,
				SleepQuality: record.SleepQuality,
				RecordedAt:   record.RecordedAt,
			}
			switch {
			case record.Readiness >= highIntensityThreshold:
				state.intensity = IntensityHigh
			case record.Readiness >= mediumIntensityThreshold:
				state.intensity = IntensityMedium
			default:
				state.intensity = IntensityLow
			}
		case isNotFoundError(err):
		default:
			return err
		}
	}

	if override := state.params.Constraints.IntensityLevel; override != nil {
		if !knownIntensity(*override) {
			vErr := &ValidationError{}
			vErr.add("intensity_level", "intensity must be low, medium, or high")
			return vErr
		}
		state.intensity = *override
	}

	return nil
}

func (s *PlannerService) loadAvailability(ctx context.Context, state *plannerState) error {
	if s.availability == nil {
		return nil
	}

	records, err := s.availability.ListWindows(ctx, state.params.Principal.UserID)
	if err != nil && !isNotFoundError(err) {
		return err
	}

	windows := make([]AvailabilityWindow, 0, len(records))
	for _, record := range records {
		windows = append(windows, AvailabilityWindow{
			Weekday:     record.Weekday,
			StartMinute: record.StartMinute,
			EndMinute:   record.EndMinute,
		})
	}
	state.windows = windows
	return nil
}

func (s *PlannerService) loadExistingEvents(ctx context.Context, state *plannerState) error {
	if s.events == nil {
		return nil
	}

	records, err := s.events.ListEvents(ctx, persistence.EventFilter{
		ParticipantIDs: []string{state.params.Principal.UserID},
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return err
	}

	var recurringIDs []string
	for _, record := range records {
		if record.Recurring {
			recurringIDs = append(recurringIDs, record.ID)
		}
	}

	patterns := map[string]persistence.RecurrencePattern{}
	if len(recurringIDs) > 0 && s.recurrences != nil {
		patterns, err = s.recurrences.ListPatternsForEvents(ctx, recurringIDs)
		if err != nil {
			return err
		}
	}

	existing := make([]scheduling.Event, 0, len(records))
	for _, record := range records {
		pattern, hasPattern := patterns[record.ID]
		if !record.Recurring || !hasPattern {
			existing = append(existing, toSchedulingEvent(record))
			continue
		}

		duration := record.End.Sub(record.Start)
		occurrences, err := scheduling.Expand(toTemplate(record), toSchedulingPattern(pattern),
			state.params.From.Add(-duration), state.params.To)
		if err != nil {
			return fmt.Errorf("failed to expand series %s: %w", record.ID, err)
		}
		for _, occurrence := range occurrences {
			candidate := toSchedulingEvent(record)
			candidate.Start = occurrence.Start
			candidate.End = occurrence.End
			existing = append(existing, candidate)
		}
	}

	state.existing = existing
	return nil
}

// selectSlots picks the best candidates week by week. Within a week,
// candidates are ranked by score with earlier starts breaking ties, and a
// candidate is skipped when it lands within the rest gap of an already
// selected session.
func (s *PlannerService) selectSlots(state *plannerState) []ProposedEvent {
	from := state.params.From.In(state.location)
	to := state.params.To.In(state.location)
	cfg := scheduling.DefaultSlotConfig()
	userID := state.params.Principal.UserID

	days := int(to.Sub(from).Hours() / 24)
	weeks := (days + 6) / 7
	if weeks < 1 {
		weeks = 1
	}

	var proposals []ProposedEvent
	var selected []time.Time

	for week := 0; week < weeks; week++ {
		weekFrom := from.AddDate(0, 0, week*7)
		weekTo := weekFrom.AddDate(0, 0, 7)
		if weekTo.After(to) {
			weekTo = to
		}
		if !weekFrom.Before(weekTo) {
			break
		}

		slots, err := scheduling.GenerateSlots(weekFrom, weekTo, state.duration, cfg, state.existing, userID)
		if err != nil {
			continue
		}

		type scoredSlot struct {
			start time.Time
			score float64
		}
		candidates := make([]scoredSlot, 0, len(slots))
		for _, slot := range slots {
			if s.isBlackedOut(state, slot) {
				continue
			}
			if !s.withinAvailability(state, slot) {
				continue
			}
			score := scheduling.ScoreSlot(slot, state.timeOfDay, state.readiness, state.existing, cfg)
			candidates = append(candidates, scoredSlot{start: slot, score: score})
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].score == candidates[j].score {
				return candidates[i].start.Before(candidates[j].start)
			}
			return candidates[i].score > candidates[j].score
		})

		picked := 0
		for _, candidate := range candidates {
			if picked >= state.perWeek {
				break
			}
			if tooCloseToSelected(candidate.start, selected, state.restGap) {
				continue
			}
			selected = append(selected, candidate.start)
			proposals = append(proposals, ProposedEvent{
				Title:       proposalTitle(state.intensity),
				Description: proposalDescription,
				Type:        string(scheduling.EventTypeWorkout),
				Start:       candidate.start,
				End:         candidate.start.Add(state.duration),
				UserID:      userID,
				Intensity:   state.intensity,
				Score:       candidate.score,
			})
			picked++
		}
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Start.Before(proposals[j].Start)
	})

	return proposals
}

func (s *PlannerService) scoreSchedule(state *plannerState, proposals []ProposedEvent) float64 {
	if len(proposals) == 0 {
		return 0
	}

	events := make([]scheduling.Event, 0, len(proposals))
	for _, proposal := range proposals {
		events = append(events, scheduling.Event{
			Start: proposal.Start,
			End:   proposal.End,
		})
	}

	prefs := scheduling.QualityPreferences{
		Weekdays:        state.preference.PreferredDays,
		PreferredRanges: state.ranges,
	}
	minDuration := time.Duration(state.preference.MinSessionMinutes) * time.Minute

	return scheduling.QualityScore(events, prefs, minDuration)
}

func (s *PlannerService) isBlackedOut(state *plannerState, slot time.Time) bool {
	if len(state.preference.BlackoutDates) == 0 {
		return false
	}
	slotDay := slot.In(state.location)
	for _, date := range state.preference.BlackoutDates {
		if slotDay.Year() == date.Year() && slotDay.YearDay() == date.YearDay() {
			return true
		}
	}
	return false
}

// withinAvailability reports whether the slot fits entirely inside one of the
// user's declared windows. A user with no declared windows is always available.
func (s *PlannerService) withinAvailability(state *plannerState, slot time.Time) bool {
	if len(state.windows) == 0 {
		return true
	}

	local := slot.In(state.location)
	startMinute := local.Hour()*60 + local.Minute()
	endMinute := startMinute + int(state.duration.Minutes())

	for _, window := range state.windows {
		if window.Weekday != local.Weekday() {
			continue
		}
		if startMinute >= window.StartMinute && endMinute <= window.EndMinute {
			return true
		}
	}
	return false
}

func tooCloseToSelected(candidate time.Time, selected []time.Time, restGap time.Duration) bool {
	for _, existing := range selected {
		gap := candidate.Sub(existing)
		if gap < 0 {
			gap = -gap
		}
		if gap < restGap {
			return true
		}
	}
	return false
}

// proposalDescription marks composed sessions so clients can distinguish them
// from manually booked events.
const proposalDescription = "Suggested workout session based on your preferences and readiness."

func proposalTitle(intensity string) string {
	switch intensity {
	case IntensityHigh:
		return "High Intensity Workout"
	case IntensityLow:
		return "Low Intensity Workout"
	default:
		return "Moderate Intensity Workout"
	}
}
