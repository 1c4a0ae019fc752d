package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/fitness-scheduler/internal/application"
)

type eventServiceStub struct {
	created    *application.CreateEventParams
	updated    *application.UpdateEventParams
	cancelled  *application.CancelEventParams
	deleted    *application.DeleteEventParams
	listParams *application.ListEventsParams
	event      application.Event
	events     []application.Event
	warnings   []application.ConflictWarning
	err        error
}

func (s *eventServiceStub) Create(ctx context.Context, params application.CreateEventParams) (application.Event, []application.ConflictWarning, error) {
	s.created = &params
	return s.event, s.warnings, s.err
}

func (s *eventServiceStub) Get(ctx context.Context, principal application.Principal, eventID string) (application.Event, error) {
	return s.event, s.err
}

func (s *eventServiceStub) Update(ctx context.Context, params application.UpdateEventParams) (application.Event, []application.ConflictWarning, error) {
	s.updated = &params
	return s.event, s.warnings, s.err
}

func (s *eventServiceStub) List(ctx context.Context, params application.ListEventsParams) ([]application.Event, error) {
	s.listParams = &params
	return s.events, s.err
}

func (s *eventServiceStub) CancelOccurrence(ctx context.Context, params application.CancelEventParams) error {
	s.cancelled = &params
	return s.err
}

func (s *eventServiceStub) Delete(ctx context.Context, params application.DeleteEventParams) error {
	s.deleted = &params
	return s.err
}

type schedulingServiceStub struct {
	report application.ConflictReport
	result application.SmartScheduleResult
	params *application.SmartScheduleParams
	err    error
}

func (s *schedulingServiceStub) CheckConflicts(ctx context.Context, params application.CheckConflictsParams) (application.ConflictReport, error) {
	return s.report, s.err
}

func (s *schedulingServiceStub) ComposeSchedule(ctx context.Context, params application.SmartScheduleParams) (application.SmartScheduleResult, error) {
	s.params = &params
	return s.result, s.err
}

type preferenceServiceStub struct {
	preference application.Preference
	windows    []application.AvailabilityWindow
	snapshot   application.ReadinessSnapshot
	err        error
}

func (s *preferenceServiceStub) Upsert(ctx context.Context, params application.UpsertPreferenceParams) (application.Preference, error) {
	return s.preference, s.err
}

func (s *preferenceServiceStub) Get(ctx context.Context, principal application.Principal, userID string) (application.Preference, error) {
	return s.preference, s.err
}

func (s *preferenceServiceStub) SetAvailability(ctx context.Context, params application.SetAvailabilityParams) ([]application.AvailabilityWindow, error) {
	return s.windows, s.err
}

func (s *preferenceServiceStub) ListAvailability(ctx context.Context, principal application.Principal, userID string) ([]application.AvailabilityWindow, error) {
	return s.windows, s.err
}

func (s *preferenceServiceStub) RecordReadiness(ctx context.Context, params application.RecordReadinessParams) (application.ReadinessSnapshot, error) {
	return s.snapshot, s.err
}

func sampleEvent() application.Event {
	start := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	return application.Event{
		ID:             "evt-1",
		CreatorID:      "coach-1",
		Title:          "Strength Session",
		Type:           "workout",
		Start:          start,
		End:            start.Add(time.Hour),
		ParticipantIDs: []string{"member-7"},
		CreatedAt:      start.Add(-24 * time.Hour),
		UpdatedAt:      start.Add(-24 * time.Hour),
	}
}

func routerWith(events *eventServiceStub, scheduling *schedulingServiceStub, preferences *preferenceServiceStub) http.Handler {
	cfg := RouterConfig{}
	if events != nil {
		cfg.Events = NewEventHandler(events, nil)
	}
	if scheduling != nil {
		cfg.Scheduling = NewSchedulingHandler(scheduling, scheduling, nil)
	}
	if preferences != nil {
		cfg.Preferences = NewPreferenceHandler(preferences, nil)
	}
	return NewRouter(cfg)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "member-7"}))
	return req
}

func TestEventHandler_CreateReturnsWarnings(t *testing.T) {
	t.Parallel()

	stub := &eventServiceStub{
		event: sampleEvent(),
		warnings: []application.ConflictWarning{{
			EventID: "evt-2",
			Title:   "Spin Class",
			Type:    "class",
			Start:   time.Date(2024, time.April, 1, 9, 30, 0, 0, time.UTC),
			End:     time.Date(2024, time.April, 1, 10, 30, 0, 0, time.UTC),
		}},
	}
	router := routerWith(stub, nil, nil)

	body := `{"title":"Strength Session","type":"workout","start":"2024-04-01T09:00:00Z","end":"2024-04-01T10:00:00Z","participant_ids":["member-7"]}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/events", body))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var payload struct {
		Event    eventDTO             `json:"event"`
		Warnings []conflictWarningDTO `json:"warnings"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Event.ID != "evt-1" || len(payload.Warnings) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if stub.created == nil || stub.created.Principal.UserID != "member-7" {
		t.Fatalf("principal not forwarded: %+v", stub.created)
	}
}

func TestEventHandler_CreateRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	router := routerWith(&eventServiceStub{}, nil, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/events", "{not json"))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestEventHandler_ServiceErrorsMapToStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unauthorized", err: application.ErrUnauthorized, status: http.StatusForbidden},
		{name: "not found", err: application.ErrNotFound, status: http.StatusNotFound},
		{name: "validation", err: &application.ValidationError{FieldErrors: map[string]string{"title": "title is required"}}, status: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := routerWith(&eventServiceStub{err: tc.err}, nil, nil)

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/events/evt-1", ""))

			if recorder.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestEventHandler_CancelForwardsOccurrenceDate(t *testing.T) {
	t.Parallel()

	stub := &eventServiceStub{}
	router := routerWith(stub, nil, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/events/evt-1/cancel", `{"occurrence_date":"2024-04-03"}`))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if stub.cancelled == nil || stub.cancelled.EventID != "evt-1" {
		t.Fatalf("cancel not forwarded: %+v", stub.cancelled)
	}
	if stub.cancelled.OccurrenceDate == nil {
		t.Fatal("occurrence date was dropped")
	}
	want := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)
	if !stub.cancelled.OccurrenceDate.Equal(want) {
		t.Fatalf("unexpected occurrence date %s", stub.cancelled.OccurrenceDate)
	}
}

func TestEventHandler_DeleteSeriesQueryParameter(t *testing.T) {
	t.Parallel()

	stub := &eventServiceStub{}
	router := routerWith(stub, nil, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodDelete, "/events/evt-1?series=true", ""))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if stub.deleted == nil || !stub.deleted.Series {
		t.Fatalf("series flag not forwarded: %+v", stub.deleted)
	}
}

func TestEventHandler_ListParsesQueryParameters(t *testing.T) {
	t.Parallel()

	stub := &eventServiceStub{events: []application.Event{sampleEvent()}}
	router := routerWith(stub, nil, nil)

	target := "/events?participants=member-7,member-9&types=workout&from=2024-04-01T00:00:00Z&to=2024-04-08T00:00:00Z&expand_recurring=true"
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodGet, target, ""))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	params := stub.listParams
	if params == nil {
		t.Fatal("list params not forwarded")
	}
	if len(params.ParticipantIDs) != 2 || params.ParticipantIDs[1] != "member-9" {
		t.Fatalf("participants not parsed: %v", params.ParticipantIDs)
	}
	if params.From == nil || params.To == nil || !params.ExpandRecurring {
		t.Fatalf("window or expansion flag not parsed: %+v", params)
	}
	if len(params.Types) != 1 || params.Types[0] != "workout" {
		t.Fatalf("types not parsed: %v", params.Types)
	}
}

func TestEventHandler_ListSchedulingAlias(t *testing.T) {
	t.Parallel()

	stub := &eventServiceStub{events: []application.Event{sampleEvent()}}
	router := routerWith(stub, nil, nil)

	target := "/scheduling/events?user_id=member-9&event_type=workout&start_date=2024-04-01&end_date=2024-04-08&expand_recurring=true"
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodGet, target, ""))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	params := stub.listParams
	if params == nil {
		t.Fatal("list params not forwarded")
	}
	if len(params.ParticipantIDs) != 1 || params.ParticipantIDs[0] != "member-9" {
		t.Fatalf("user_id not parsed: %v", params.ParticipantIDs)
	}
	if len(params.Types) != 1 || params.Types[0] != "workout" {
		t.Fatalf("event_type not parsed: %v", params.Types)
	}
	if params.From == nil || !params.From.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start_date not parsed: %v", params.From)
	}
	if params.To == nil || !params.ExpandRecurring {
		t.Fatalf("end_date or expansion flag not parsed: %+v", params)
	}
}

func TestEventHandler_ExportCalendarRendersICS(t *testing.T) {
	t.Parallel()

	event := sampleEvent()
	event.Recurring = true
	event.Occurrences = []application.EventOccurrence{
		{EventID: event.ID, Start: event.Start, End: event.End},
		{EventID: event.ID, Start: event.Start.AddDate(0, 0, 7), End: event.End.AddDate(0, 0, 7)},
	}
	stub := &eventServiceStub{events: []application.Event{event}}
	router := routerWith(stub, nil, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/events/calendar.ics", ""))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/calendar") {
		t.Fatalf("unexpected content type %q", got)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || strings.Count(body, "BEGIN:VEVENT") != 2 {
		t.Fatalf("unexpected calendar payload:\n%s", body)
	}
	if stub.listParams == nil || !stub.listParams.ExpandRecurring {
		t.Fatal("calendar export must expand recurring events")
	}
}

func TestSchedulingHandler_CheckConflicts(t *testing.T) {
	t.Parallel()

	stub := &schedulingServiceStub{report: application.ConflictReport{
		HasConflicts: true,
		Conflicts: []application.ConflictWarning{{
			EventID: "evt-2",
			Title:   "Spin Class",
			Type:    "class",
			Start:   time.Date(2024, time.April, 1, 9, 30, 0, 0, time.UTC),
			End:     time.Date(2024, time.April, 1, 10, 30, 0, 0, time.UTC),
		}},
	}}
	router := routerWith(nil, stub, nil)

	body := `{"start_time":"2024-04-01T09:00:00Z","end_time":"2024-04-01T10:00:00Z","participants":["member-7"]}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/scheduling/check-conflicts", body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload conflictReportDTO
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !payload.HasConflicts || len(payload.Conflicts) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSchedulingHandler_SmartScheduleForwardsConstraints(t *testing.T) {
	t.Parallel()

	stub := &schedulingServiceStub{result: application.SmartScheduleResult{
		Proposals: []application.ProposedEvent{{
			Title:       "Moderate Intensity Workout",
			Description: "Suggested workout session based on your preferences and readiness.",
			Type:        "workout",
			Start:       time.Date(2024, time.April, 1, 5, 0, 0, 0, time.UTC),
			End:         time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC),
			UserID:      "member-7",
			Intensity:   "medium",
		}},
		QualityScore: 0.5,
		Intensity:    "medium",
	}}
	router := routerWith(nil, stub, nil)

	body := `{"start_date":"2024-04-01","end_date":"2024-04-08","constraints":{"events_per_week":2,"intensity_level":"low"}}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/scheduling/smart-schedule", body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if stub.params == nil || stub.params.Constraints.EventsPerWeek != 2 {
		t.Fatalf("constraints not forwarded: %+v", stub.params)
	}
	if stub.params.Constraints.IntensityLevel == nil || *stub.params.Constraints.IntensityLevel != "low" {
		t.Fatalf("intensity override not forwarded: %+v", stub.params.Constraints)
	}

	var payload smartScheduleDTO
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Proposals) != 1 || payload.QualityScore != 0.5 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Proposals[0].UserID != "member-7" || payload.Proposals[0].Description == "" {
		t.Fatalf("proposal missing user or description: %+v", payload.Proposals[0])
	}
	if payload.Proposals[0].DurationMinutes != 60 {
		t.Fatalf("expected 60 minute duration, got %d", payload.Proposals[0].DurationMinutes)
	}
}

func TestSchedulingHandler_ConfigurationErrorMapsTo422(t *testing.T) {
	t.Parallel()

	stub := &schedulingServiceStub{err: application.ErrConfiguration}
	router := routerWith(nil, stub, nil)

	body := `{"start_date":"2024-04-01","end_date":"2024-04-08"}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/scheduling/smart-schedule", body))

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestPreferenceHandler_PutAndGet(t *testing.T) {
	t.Parallel()

	timeOfDay := "morning"
	stub := &preferenceServiceStub{preference: application.Preference{
		UserID:             "member-7",
		PreferredDays:      []time.Weekday{time.Monday},
		PreferredTimeOfDay: &timeOfDay,
		MinSessionMinutes:  30,
		MaxSessionMinutes:  60,
		EventsPerWeek:      3,
		Timezone:           "UTC",
	}}
	router := routerWith(nil, nil, stub)

	body := `{"preferred_days":[1],"preferred_time_of_day":"morning","min_session_minutes":30,"max_session_minutes":60,"events_per_week":3}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPut, "/preferences", body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var payload preferenceDTO
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.UserID != "member-7" || payload.EventsPerWeek != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestPreferenceHandler_RecordReadiness(t *testing.T) {
	t.Parallel()

	stub := &preferenceServiceStub{snapshot: application.ReadinessSnapshot{
		ID:         "snap-1",
		UserID:     "member-7",
		Readiness:  72,
		RecordedAt: time.Date(2024, time.April, 1, 6, 0, 0, 0, time.UTC),
	}}
	router := routerWith(nil, nil, stub)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/preferences/readiness", `{"readiness":72}`))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := routerWith(&eventServiceStub{}, nil, nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authedRequest(http.MethodPatch, "/events", ""))

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("Allow header missing POST: %q", allow)
	}
}
