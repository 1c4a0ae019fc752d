package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/example/fitness-scheduler/internal/application"
)

type eventService interface {
	Create(ctx context.Context, params application.CreateEventParams) (application.Event, []application.ConflictWarning, error)
	Get(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	Update(ctx context.Context, params application.UpdateEventParams) (application.Event, []application.ConflictWarning, error)
	List(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	CancelOccurrence(ctx context.Context, params application.CancelEventParams) error
	Delete(ctx context.Context, params application.DeleteEventParams) error
}

type EventHandler struct {
	service   eventService
	responder responder
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, warnings, err := h.service.Create(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusCreated)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.Get(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, nil, http.StatusOK)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, warnings, err := h.service.Update(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusOK)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)

	events, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req cancelEventRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.CancelEventParams{Principal: principal, EventID: eventID}
	if trimmed := strings.TrimSpace(req.OccurrenceDate); trimmed != "" {
		date, err := parseDateOrTime(trimmed)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		params.OccurrenceDate = &date
	}

	if err := h.service.CancelOccurrence(r.Context(), params); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	err := h.service.Delete(r.Context(), application.DeleteEventParams{
		Principal: principal,
		EventID:   eventID,
		Series:    r.URL.Query().Get("series") == "true",
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ExportCalendar renders the caller's events for the requested window as an
// iCalendar feed. Recurring events contribute one entry per occurrence.
func (h *EventHandler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)
	params.ExpandRecurring = true

	events, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	calendar := ics.NewCalendar()
	calendar.SetMethod(ics.MethodPublish)
	calendar.SetProductId("-//fitness-scheduler//calendar//EN")

	for _, event := range events {
		if !event.Recurring {
			addCalendarEntry(calendar, event, event.ID, event.Start, event.End)
			continue
		}
		for i, occurrence := range event.Occurrences {
			uid := fmt.Sprintf("%s-%d", event.ID, i)
			addCalendarEntry(calendar, event, uid, occurrence.Start, occurrence.End)
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := calendar.SerializeTo(w); err != nil {
		handlerLogger(r.Context(), h.responder.logger, "event", "export_calendar").
			ErrorContext(r.Context(), "failed to serialize calendar", "error", err)
	}
}

func addCalendarEntry(calendar *ics.Calendar, event application.Event, uid string, start, end time.Time) {
	entry := calendar.AddEvent(uid)
	entry.SetSummary(event.Title)
	entry.SetStartAt(start.UTC())
	entry.SetEndAt(end.UTC())
	entry.SetDtStampTime(event.CreatedAt.UTC())
	if event.Description != nil {
		entry.SetDescription(*event.Description)
	}
	if event.Location != nil {
		entry.SetLocation(*event.Location)
	}
}

func (h *EventHandler) renderEvent(ctx context.Context, w http.ResponseWriter, event application.Event, warnings []application.ConflictWarning, status int) {
	payload := eventResponse{
		Event:    toEventDTO(event),
		Warnings: toWarningDTOs(warnings),
	}
	h.responder.writeJSON(ctx, w, status, payload)
}

type recurrenceRequest struct {
	Type           string `json:"type"`
	Interval       *int   `json:"interval"`
	Weekdays       []int  `json:"weekdays"`
	DayOfMonth     int    `json:"day_of_month"`
	EndDate        string `json:"end_date"`
	MaxOccurrences int    `json:"max_occurrences"`
}

type eventRequest struct {
	CreatorID      string             `json:"creator_id"`
	Title          string             `json:"title"`
	Description    *string            `json:"description"`
	Type           string             `json:"type"`
	Start          string             `json:"start"`
	End            string             `json:"end"`
	Location       *string            `json:"location"`
	Intensity      *string            `json:"intensity"`
	ParticipantIDs []string           `json:"participant_ids"`
	Metadata       map[string]string  `json:"metadata"`
	Recurrence     *recurrenceRequest `json:"recurrence"`
}

type cancelEventRequest struct {
	OccurrenceDate string `json:"occurrence_date"`
}

func (r eventRequest) toInput() application.EventInput {
	input := application.EventInput{
		CreatorID:      strings.TrimSpace(r.CreatorID),
		Title:          strings.TrimSpace(r.Title),
		Description:    r.Description,
		Type:           strings.TrimSpace(r.Type),
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		Location:       r.Location,
		Intensity:      r.Intensity,
		ParticipantIDs: append([]string(nil), r.ParticipantIDs...),
		Metadata:       r.Metadata,
	}

	if r.Recurrence != nil {
		recurrence := &application.RecurrenceInput{
			Type:           strings.TrimSpace(r.Recurrence.Type),
			Interval:       r.Recurrence.Interval,
			DayOfMonth:     r.Recurrence.DayOfMonth,
			MaxOccurrences: r.Recurrence.MaxOccurrences,
		}
		for _, day := range r.Recurrence.Weekdays {
			recurrence.Weekdays = append(recurrence.Weekdays, time.Weekday(day))
		}
		if trimmed := strings.TrimSpace(r.Recurrence.EndDate); trimmed != "" {
			if endDate, err := parseDateOrTime(trimmed); err == nil {
				recurrence.EndDate = &endDate
			}
		}
		input.Recurrence = recurrence
	}

	return input
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func parseDateOrTime(value string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC 3339", value)
}

type eventResponse struct {
	Event    eventDTO             `json:"event"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID             string            `json:"id"`
	CreatorID      string            `json:"creator_id"`
	Title          string            `json:"title"`
	Description    *string           `json:"description,omitempty"`
	Type           string            `json:"type"`
	Start          string            `json:"start"`
	End            string            `json:"end"`
	Location       *string           `json:"location,omitempty"`
	Intensity      *string           `json:"intensity,omitempty"`
	ParticipantIDs []string          `json:"participant_ids"`
	Recurring      bool              `json:"recurring"`
	Cancelled      bool              `json:"cancelled"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
	Occurrences    []occurrenceDTO   `json:"occurrences,omitempty"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:             event.ID,
		CreatorID:      event.CreatorID,
		Title:          event.Title,
		Description:    event.Description,
		Type:           event.Type,
		Start:          event.Start.UTC().Format(time.RFC3339Nano),
		End:            event.End.UTC().Format(time.RFC3339Nano),
		Location:       event.Location,
		Intensity:      event.Intensity,
		ParticipantIDs: append([]string(nil), event.ParticipantIDs...),
		Recurring:      event.Recurring,
		Cancelled:      event.Cancelled,
		Metadata:       event.Metadata,
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      event.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Occurrences:    toOccurrenceDTOs(event.Occurrences),
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type occurrenceDTO struct {
	EventID string `json:"event_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func toOccurrenceDTOs(occurrences []application.EventOccurrence) []occurrenceDTO {
	if len(occurrences) == 0 {
		return nil
	}

	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		out = append(out, occurrenceDTO{
			EventID: occurrence.EventID,
			Start:   occurrence.Start.UTC().Format(time.RFC3339Nano),
			End:     occurrence.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

type conflictWarningDTO struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Type    string `json:"event_type"`
	Start   string `json:"start_time"`
	End     string `json:"end_time"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, conflictWarningDTO{
			EventID: warning.EventID,
			Title:   warning.Title,
			Type:    warning.Type,
			Start:   warning.Start.UTC().Format(time.RFC3339Nano),
			End:     warning.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListEventsParams {
	params := application.ListEventsParams{Principal: principal}

	if participants := strings.TrimSpace(values.Get("participants")); participants != "" {
		params.ParticipantIDs = parseCSV(participants)
	} else if userID := strings.TrimSpace(values.Get("user_id")); userID != "" {
		params.ParticipantIDs = []string{userID}
	}
	if types := strings.TrimSpace(values.Get("types")); types != "" {
		params.Types = parseCSV(types)
	} else if eventType := strings.TrimSpace(values.Get("event_type")); eventType != "" {
		params.Types = []string{eventType}
	}
	if from := strings.TrimSpace(firstValue(values, "from", "start_date")); from != "" {
		if ts, err := parseDateOrTime(from); err == nil {
			params.From = &ts
		}
	}
	if to := strings.TrimSpace(firstValue(values, "to", "end_date")); to != "" {
		if ts, err := parseDateOrTime(to); err == nil {
			params.To = &ts
		}
	}
	params.ExpandRecurring = values.Get("expand_recurring") == "true"

	return params
}

func firstValue(values url.Values, names ...string) string {
	for _, name := range names {
		if v := values.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
