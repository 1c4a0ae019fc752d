package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
	"github.com/example/fitness-scheduler/internal/scheduling"
)

// EventStore captures the persistence interactions needed by the event service.
type EventStore interface {
	CreateEvent(ctx context.Context, event persistence.Event) error
	CreateSeries(ctx context.Context, event persistence.Event, pattern persistence.RecurrencePattern) error
	UpdateEvent(ctx context.Context, event persistence.Event) error
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error)
	CancelEvent(ctx context.Context, id string, at time.Time) error
	DeleteSeries(ctx context.Context, eventID string) error
}

// RecurrenceStore captures the pattern interactions needed by the event service.
type RecurrenceStore interface {
	GetPatternForEvent(ctx context.Context, eventID string) (persistence.RecurrencePattern, error)
	ListPatternsForEvents(ctx context.Context, eventIDs []string) (map[string]persistence.RecurrencePattern, error)
	AddException(ctx context.Context, eventID string, date time.Time) error
}

// defaultExpansionWindow bounds recurrence expansion when the caller supplies
// no explicit range.
const defaultExpansionWindow = 30 * 24 * time.Hour

// maxMetadataEntries bounds the free-form extension map carried by an event.
const maxMetadataEntries = 16

// EventService orchestrates validation, conflict detection, and persistence
// for event operations.
type EventService struct {
	events      EventStore
	recurrences RecurrenceStore
	conflicts   *conflictCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventStore, recurrences RecurrenceStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		recurrences: recurrences,
		conflicts:   newConflictCache(30*time.Second, 128, now),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Create validates the request, reports conflicts as warnings, and persists
// the event. A request with a recurrence block creates the whole series.
func (s *EventService) Create(ctx context.Context, params CreateEventParams) (Event, []ConflictWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}
	input := params.Input
	principal := params.Principal

	if input.CreatorID == "" {
		input.CreatorID = principal.UserID
	}
	if input.CreatorID != principal.UserID && !principal.IsAdmin {
		return Event{}, nil, ErrUnauthorized
	}
	if input.Type == "" {
		input.Type = string(scheduling.EventTypeWorkout)
	}

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	validateRecurrence(input, vErr)
	if vErr.HasErrors() {
		return Event{}, nil, vErr
	}

	logger := serviceLogger(ctx, s.logger, "event", "create", "creator_id", input.CreatorID)

	participants := sortStrings(uniqueStrings(append(input.ParticipantIDs, input.CreatorID)))
	warnings, err := s.detectConflicts(ctx,
		scheduling.Interval{Start: input.Start, End: input.End}, participants, "")
	if err != nil {
		return Event{}, nil, err
	}

	createdAt := s.now()
	record := persistence.Event{
		ID:             s.idGenerator(),
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Type:           input.Type,
		Start:          input.Start,
		End:            input.End,
		CreatorID:      input.CreatorID,
		Location:       input.Location,
		Intensity:      input.Intensity,
		ParticipantIDs: participants,
		Metadata:       copyMetadata(input.Metadata),
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	if input.Recurrence != nil {
		record.Recurring = true
		pattern := persistence.RecurrencePattern{
			ID:             s.idGenerator(),
			EventID:        record.ID,
			Type:           input.Recurrence.Type,
			Interval:       1,
			Weekdays:       input.Recurrence.Weekdays,
			DayOfMonth:     input.Recurrence.DayOfMonth,
			StartDate:      input.Start,
			EndDate:        input.Recurrence.EndDate,
			MaxOccurrences: input.Recurrence.MaxOccurrences,
		}
		if input.Recurrence.Interval != nil {
			pattern.Interval = *input.Recurrence.Interval
		}
		if err := s.events.CreateSeries(ctx, record, pattern); err != nil {
			return Event{}, nil, mapEventRepoError(err)
		}
	} else {
		if err := s.events.CreateEvent(ctx, record); err != nil {
			return Event{}, nil, mapEventRepoError(err)
		}
	}

	s.conflicts.Invalidate()
	logger.InfoContext(ctx, "event created",
		"event_id", record.ID, "recurring", record.Recurring, "conflict_count", len(warnings))

	return toApplicationEvent(record), warnings, nil
}

// Get retrieves one event by id.
func (s *EventService) Get(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}

	record, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return toApplicationEvent(record), nil
}

// Update applies validation and authorization before updating persistence
// state. The recurrence configuration of a series is immutable; callers
// recreate the series to change it.
func (s *EventService) Update(ctx context.Context, params UpdateEventParams) (Event, []ConflictWarning, error) {
	if s == nil {
		return Event{}, nil, fmt.Errorf("EventService is nil")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	principal := params.Principal
	input := params.Input

	if existing.CreatorID != principal.UserID && !principal.IsAdmin {
		return Event{}, nil, ErrUnauthorized
	}
	if input.Type == "" {
		input.Type = existing.Type
	}

	vErr := &ValidationError{}
	if input.CreatorID != "" && input.CreatorID != existing.CreatorID {
		vErr.add("creator_id", "creator cannot be changed")
	}
	if input.Recurrence != nil {
		vErr.add("recurrence", "recurrence cannot be changed on an existing event")
	}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, nil, vErr
	}

	participants := sortStrings(uniqueStrings(append(input.ParticipantIDs, existing.CreatorID)))
	warnings, err := s.detectConflicts(ctx,
		scheduling.Interval{Start: input.Start, End: input.End}, participants, existing.ID)
	if err != nil {
		return Event{}, nil, err
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = input.Description
	updated.Type = input.Type
	updated.Start = input.Start
	updated.End = input.End
	updated.Location = input.Location
	updated.Intensity = input.Intensity
	updated.ParticipantIDs = participants
	updated.Metadata = copyMetadata(input.Metadata)
	updated.UpdatedAt = s.now()

	if err := s.events.UpdateEvent(ctx, updated); err != nil {
		return Event{}, nil, mapEventRepoError(err)
	}

	s.conflicts.Invalidate()

	return toApplicationEvent(updated), warnings, nil
}

// List enumerates events visible to the requesting principal, optionally
// expanding recurring series into concrete occurrences.
func (s *EventService) List(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}

	filter := persistence.EventFilter{
		ParticipantIDs: s.buildParticipantScope(params.Principal, params.ParticipantIDs),
		From:           params.From,
		To:             params.To,
		Types:          params.Types,
	}

	records, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	events := make([]Event, 0, len(records))
	for _, record := range records {
		events = append(events, toApplicationEvent(record))
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})

	if params.ExpandRecurring {
		if err := s.expandRecurringEvents(ctx, events, params.From, params.To); err != nil {
			return nil, err
		}
	}

	return events, nil
}

// CancelOccurrence cancels one occurrence of a series, or the whole event
// when no occurrence date is given.
func (s *EventService) CancelOccurrence(ctx context.Context, params CancelEventParams) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return mapEventRepoError(err)
	}
	if existing.CreatorID != params.Principal.UserID && !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	if params.OccurrenceDate != nil {
		if !existing.Recurring {
			vErr := &ValidationError{}
			vErr.add("occurrence_date", "event is not recurring")
			return vErr
		}
		if err := s.recurrences.AddException(ctx, existing.ID, *params.OccurrenceDate); err != nil {
			return mapEventRepoError(err)
		}
	} else {
		if err := s.events.CancelEvent(ctx, existing.ID, s.now()); err != nil {
			return mapEventRepoError(err)
		}
	}

	s.conflicts.Invalidate()
	return nil
}

// Delete removes an event. With Series set, the base event and its pattern
// are removed atomically; otherwise the event is cancelled in place.
func (s *EventService) Delete(ctx context.Context, params DeleteEventParams) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return mapEventRepoError(err)
	}
	if existing.CreatorID != params.Principal.UserID && !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	if params.Series {
		if !existing.Recurring {
			vErr := &ValidationError{}
			vErr.add("series", "event is not recurring")
			return vErr
		}
		if err := s.events.DeleteSeries(ctx, existing.ID); err != nil {
			return mapEventRepoError(err)
		}
	} else {
		if err := s.events.CancelEvent(ctx, existing.ID, s.now()); err != nil {
			return mapEventRepoError(err)
		}
	}

	s.conflicts.Invalidate()
	return nil
}

// CheckConflicts probes the given range for collisions without creating
// anything. Results are cached briefly; any mutation invalidates the cache.
func (s *EventService) CheckConflicts(ctx context.Context, params CheckConflictsParams) (ConflictReport, error) {
	if s == nil {
		return ConflictReport{}, fmt.Errorf("EventService is nil")
	}

	vErr := &ValidationError{}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !params.Start.IsZero() && !params.End.IsZero() && !params.Start.Before(params.End) {
		vErr.add("time", "start must be before end")
	}
	if vErr.HasErrors() {
		return ConflictReport{}, vErr
	}

	participants := params.ParticipantIDs
	if len(participants) == 0 {
		participants = []string{params.Principal.UserID}
	}
	participants = sortStrings(uniqueStrings(participants))

	key := buildConflictCacheKey(CheckConflictsParams{
		Start:          params.Start,
		End:            params.End,
		ParticipantIDs: participants,
		ExcludeEventID: params.ExcludeEventID,
	})
	if warnings, ok := s.conflicts.Get(key); ok {
		return ConflictReport{HasConflicts: len(warnings) > 0, Conflicts: warnings}, nil
	}

	warnings, err := s.detectConflicts(ctx,
		scheduling.Interval{Start: params.Start, End: params.End}, participants, params.ExcludeEventID)
	if err != nil {
		return ConflictReport{}, err
	}

	s.conflicts.Store(key, warnings)

	return ConflictReport{HasConflicts: len(warnings) > 0, Conflicts: warnings}, nil
}

// detectConflicts expands recurring series inside the probed range so that
// future occurrences collide like concrete events.
func (s *EventService) detectConflicts(ctx context.Context, proposed scheduling.Interval, participants []string, excludeEventID string) ([]ConflictWarning, error) {
	if s.events == nil {
		return nil, nil
	}

	records, err := s.events.ListEvents(ctx, persistence.EventFilter{ParticipantIDs: participants})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
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
			return nil, err
		}
	}

	candidates := make([]scheduling.Event, 0, len(records))
	for _, record := range records {
		pattern, hasPattern := patterns[record.ID]
		if !record.Recurring || !hasPattern {
			candidates = append(candidates, toSchedulingEvent(record))
			continue
		}

		duration := record.End.Sub(record.Start)
		from := proposed.Start.Add(-duration)
		occurrences, err := scheduling.Expand(toTemplate(record), toSchedulingPattern(pattern), from, proposed.End)
		if err != nil {
			return nil, fmt.Errorf("failed to expand series %s: %w", record.ID, err)
		}
		for _, occurrence := range occurrences {
			candidate := toSchedulingEvent(record)
			candidate.Start = occurrence.Start
			candidate.End = occurrence.End
			candidates = append(candidates, candidate)
		}
	}

	conflicts := scheduling.FindConflicts(candidates, proposed, participants, excludeEventID)
	return toConflictWarnings(conflicts), nil
}

func (s *EventService) expandRecurringEvents(ctx context.Context, events []Event, from, to *time.Time) error {
	if s.recurrences == nil {
		return nil
	}

	var recurringIDs []string
	for _, event := range events {
		if event.Recurring {
			recurringIDs = append(recurringIDs, event.ID)
		}
	}
	if len(recurringIDs) == 0 {
		return nil
	}

	patterns, err := s.recurrences.ListPatternsForEvents(ctx, recurringIDs)
	if err != nil {
		return err
	}

	windowStart := s.now()
	if from != nil {
		windowStart = *from
	}
	windowEnd := windowStart.Add(defaultExpansionWindow)
	if to != nil {
		windowEnd = *to
	}

	for i := range events {
		pattern, ok := patterns[events[i].ID]
		if !ok {
			continue
		}

		template := scheduling.Template{
			Title:    events[i].Title,
			Type:     scheduling.EventType(events[i].Type),
			Duration: events[i].End.Sub(events[i].Start),
			Metadata: copyMetadata(events[i].Metadata),
		}
		if events[i].Location != nil {
			template.Location = *events[i].Location
		}

		occurrences, err := scheduling.Expand(template, toSchedulingPattern(pattern), windowStart, windowEnd)
		if err != nil {
			return fmt.Errorf("failed to expand series %s: %w", events[i].ID, err)
		}

		expanded := make([]EventOccurrence, 0, len(occurrences))
		for _, occurrence := range occurrences {
			expanded = append(expanded, EventOccurrence{
				EventID: events[i].ID,
				Start:   occurrence.Start,
				End:     occurrence.End,
			})
		}
		events[i].Occurrences = expanded
	}

	return nil
}

func (s *EventService) buildParticipantScope(principal Principal, requested []string) []string {
	participants := make([]string, 0, len(requested)+1)
	participants = append(participants, requested...)
	if principal.UserID != "" && len(requested) == 0 {
		participants = append(participants, principal.UserID)
	}
	participants = sortStrings(uniqueStrings(participants))
	if len(participants) == 0 {
		return nil
	}
	return participants
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if !knownEventType(input.Type) {
		vErr.add("type", "unknown event type")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	if input.Intensity != nil && !knownIntensity(*input.Intensity) {
		vErr.add("intensity", "intensity must be low, medium, or high")
	}

	if len(input.Metadata) > maxMetadataEntries {
		vErr.add("metadata", fmt.Sprintf("at most %d metadata entries are allowed", maxMetadataEntries))
	}
	for key := range input.Metadata {
		if strings.TrimSpace(key) == "" {
			vErr.add("metadata", "metadata keys must not be blank")
			break
		}
	}
}

func validateRecurrence(input EventInput, vErr *ValidationError) {
	recurrence := input.Recurrence
	if recurrence == nil {
		return
	}

	switch scheduling.RecurrenceType(recurrence.Type) {
	case scheduling.RecurrenceDaily, scheduling.RecurrenceWeekly, scheduling.RecurrenceMonthly:
	case scheduling.RecurrenceCustom:
		vErr.add("recurrence.type", "custom recurrence is not supported")
	default:
		vErr.add("recurrence.type", "unknown recurrence type")
	}

	if recurrence.Interval != nil && *recurrence.Interval < 1 {
		vErr.add("recurrence.interval", "interval must be at least 1")
	}
	for _, day := range recurrence.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			vErr.add("recurrence.weekdays", "invalid weekday")
			break
		}
	}
	if recurrence.DayOfMonth < 0 || recurrence.DayOfMonth > 31 {
		vErr.add("recurrence.day_of_month", "day of month must be between 1 and 31")
	}
	if recurrence.EndDate != nil && !input.Start.IsZero() && recurrence.EndDate.Before(input.Start) {
		vErr.add("recurrence.end_date", "end date precedes the first occurrence")
	}
	if recurrence.MaxOccurrences < 0 {
		vErr.add("recurrence.max_occurrences", "max occurrences must not be negative")
	}
}

func knownEventType(value string) bool {
	switch scheduling.EventType(value) {
	case scheduling.EventTypeWorkout, scheduling.EventTypeClass, scheduling.EventTypeAssessment,
		scheduling.EventTypeRecovery, scheduling.EventTypeConsultation, scheduling.EventTypeCustom:
		return true
	}
	return false
}

func knownIntensity(value string) bool {
	switch value {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

// Intensity levels attached to events and schedule proposals.
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

func toApplicationEvent(record persistence.Event) Event {
	participants := make([]string, len(record.ParticipantIDs))
	copy(participants, record.ParticipantIDs)

	return Event{
		ID:             record.ID,
		CreatorID:      record.CreatorID,
		Title:          record.Title,
		Description:    record.Description,
		Type:           record.Type,
		Start:          record.Start,
		End:            record.End,
		Location:       record.Location,
		Intensity:      record.Intensity,
		ParticipantIDs: participants,
		Recurring:      record.Recurring,
		Cancelled:      record.Cancelled,
		Metadata:       copyMetadata(record.Metadata),
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	return out
}

func toSchedulingEvent(record persistence.Event) scheduling.Event {
	participants := make([]string, len(record.ParticipantIDs))
	copy(participants, record.ParticipantIDs)

	return scheduling.Event{
		ID:             record.ID,
		Title:          record.Title,
		Type:           scheduling.EventType(record.Type),
		Start:          record.Start,
		End:            record.End,
		CreatorID:      record.CreatorID,
		ParticipantIDs: participants,
		Cancelled:      record.Cancelled,
	}
}

func toTemplate(record persistence.Event) scheduling.Template {
	template := scheduling.Template{
		Title:    record.Title,
		Type:     scheduling.EventType(record.Type),
		Duration: record.End.Sub(record.Start),
		Metadata: copyMetadata(record.Metadata),
	}
	if record.Location != nil {
		template.Location = *record.Location
	}
	return template
}

func toSchedulingPattern(pattern persistence.RecurrencePattern) scheduling.Pattern {
	weekdays := make([]time.Weekday, len(pattern.Weekdays))
	copy(weekdays, pattern.Weekdays)
	exceptions := make([]time.Time, len(pattern.Exceptions))
	copy(exceptions, pattern.Exceptions)

	return scheduling.Pattern{
		Type:           scheduling.RecurrenceType(pattern.Type),
		Interval:       pattern.Interval,
		Weekdays:       weekdays,
		DayOfMonth:     pattern.DayOfMonth,
		StartDate:      pattern.StartDate,
		EndDate:        pattern.EndDate,
		MaxOccurrences: pattern.MaxOccurrences,
		Exceptions:     exceptions,
	}
}

func toConflictWarnings(conflicts []scheduling.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}

	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ConflictWarning{
			EventID: conflict.EventID,
			Title:   conflict.Title,
			Type:    string(conflict.Type),
			Start:   conflict.Start,
			End:     conflict.End,
		})
	}
	return warnings
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("id", "an event with this id already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("event_id", "related records are missing")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
