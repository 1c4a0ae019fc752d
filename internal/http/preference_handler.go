package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/fitness-scheduler/internal/application"
)

type preferenceService interface {
	Upsert(ctx context.Context, params application.UpsertPreferenceParams) (application.Preference, error)
	Get(ctx context.Context, principal application.Principal, userID string) (application.Preference, error)
	SetAvailability(ctx context.Context, params application.SetAvailabilityParams) ([]application.AvailabilityWindow, error)
	ListAvailability(ctx context.Context, principal application.Principal, userID string) ([]application.AvailabilityWindow, error)
	RecordReadiness(ctx context.Context, params application.RecordReadinessParams) (application.ReadinessSnapshot, error)
}

type PreferenceHandler struct {
	service   preferenceService
	responder responder
}

func NewPreferenceHandler(service preferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{service: service, responder: newResponder(logger)}
}

func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

	preference, err := h.service.Get(r.Context(), principal, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(preference))
}

func (h *PreferenceHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	preference, err := h.service.Upsert(r.Context(), application.UpsertPreferenceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPreferenceDTO(preference))
}

func (h *PreferenceHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

	windows, err := h.service.ListAvailability(r.Context(), principal, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Windows: toWindowDTOs(windows)})
}

func (h *PreferenceHandler) PutAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.SetAvailabilityParams{Principal: principal}
	for _, window := range req.Windows {
		params.Windows = append(params.Windows, application.AvailabilityWindowInput{
			Weekday:     time.Weekday(window.Weekday),
			StartMinute: window.StartMinute,
			EndMinute:   window.EndMinute,
		})
	}

	windows, err := h.service.SetAvailability(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Windows: toWindowDTOs(windows)})
}

func (h *PreferenceHandler) RecordReadiness(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req readinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	snapshot, err := h.service.RecordReadiness(r.Context(), application.RecordReadinessParams{
		Principal: principal,
		Input: application.ReadinessInput{
			Readiness:    req.Readiness,
			SleepQuality: req.SleepQuality,
			RecordedAt:   parseTime(req.RecordedAt),
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReadinessDTO(snapshot))
}

type preferenceRequest struct {
	PreferredDays       []int    `json:"preferred_days"`
	PreferredTimeRanges []string `json:"preferred_time_ranges"`
	PreferredTimeOfDay  *string  `json:"preferred_time_of_day"`
	MinSessionMinutes   int      `json:"min_session_minutes"`
	MaxSessionMinutes   int      `json:"max_session_minutes"`
	EventsPerWeek       int      `json:"events_per_week"`
	MinRestHours        int      `json:"min_rest_hours"`
	Timezone            string   `json:"timezone"`
	BlackoutDates       []string `json:"blackout_dates"`
}

func (r preferenceRequest) toInput() application.PreferenceInput {
	input := application.PreferenceInput{
		PreferredTimeRanges: append([]string(nil), r.PreferredTimeRanges...),
		PreferredTimeOfDay:  r.PreferredTimeOfDay,
		MinSessionMinutes:   r.MinSessionMinutes,
		MaxSessionMinutes:   r.MaxSessionMinutes,
		EventsPerWeek:       r.EventsPerWeek,
		MinRestHours:        r.MinRestHours,
		Timezone:            strings.TrimSpace(r.Timezone),
	}
	for _, day := range r.PreferredDays {
		input.PreferredDays = append(input.PreferredDays, time.Weekday(day))
	}
	for _, value := range r.BlackoutDates {
		if date, err := parseDateOrTime(strings.TrimSpace(value)); err == nil {
			input.BlackoutDates = append(input.BlackoutDates, date)
		}
	}
	return input
}

type preferenceDTO struct {
	UserID              string   `json:"user_id"`
	PreferredDays       []int    `json:"preferred_days"`
	PreferredTimeRanges []string `json:"preferred_time_ranges,omitempty"`
	PreferredTimeOfDay  *string  `json:"preferred_time_of_day,omitempty"`
	MinSessionMinutes   int      `json:"min_session_minutes"`
	MaxSessionMinutes   int      `json:"max_session_minutes"`
	EventsPerWeek       int      `json:"events_per_week"`
	MinRestHours        int      `json:"min_rest_hours"`
	Timezone            string   `json:"timezone"`
	BlackoutDates       []string `json:"blackout_dates,omitempty"`
	UpdatedAt           string   `json:"updated_at"`
}

func toPreferenceDTO(preference application.Preference) preferenceDTO {
	dto := preferenceDTO{
		UserID:              preference.UserID,
		PreferredDays:       make([]int, 0, len(preference.PreferredDays)),
		PreferredTimeRanges: append([]string(nil), preference.PreferredTimeRanges...),
		PreferredTimeOfDay:  preference.PreferredTimeOfDay,
		MinSessionMinutes:   preference.MinSessionMinutes,
		MaxSessionMinutes:   preference.MaxSessionMinutes,
		EventsPerWeek:       preference.EventsPerWeek,
		MinRestHours:        preference.MinRestHours,
		Timezone:            preference.Timezone,
		UpdatedAt:           preference.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, day := range preference.PreferredDays {
		dto.PreferredDays = append(dto.PreferredDays, int(day))
	}
	for _, date := range preference.BlackoutDates {
		dto.BlackoutDates = append(dto.BlackoutDates, date.Format("2006-01-02"))
	}
	return dto
}

type availabilityWindowRequest struct {
	Weekday     int `json:"weekday"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type availabilityRequest struct {
	Windows []availabilityWindowRequest `json:"windows"`
}

type availabilityWindowDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

type availabilityResponse struct {
	Windows []availabilityWindowDTO `json:"windows"`
}

func toWindowDTOs(windows []application.AvailabilityWindow) []availabilityWindowDTO {
	if len(windows) == 0 {
		return nil
	}
	out := make([]availabilityWindowDTO, 0, len(windows))
	for _, window := range windows {
		out = append(out, availabilityWindowDTO{
			ID:          window.ID,
			UserID:      window.UserID,
			Weekday:     int(window.Weekday),
			StartMinute: window.StartMinute,
			EndMinute:   window.EndMinute,
		})
	}
	return out
}

type readinessRequest struct {
	Readiness    float64  `json:"readiness"`
	SleepQuality *float64 `json:"sleep_quality"`
	RecordedAt   string   `json:"recorded_at"`
}

type readinessDTO struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Readiness    float64  `json:"readiness"`
	SleepQuality *float64 `json:"sleep_quality,omitempty"`
	RecordedAt   string   `json:"recorded_at"`
}

func toReadinessDTO(snapshot application.ReadinessSnapshot) readinessDTO {
	return readinessDTO{
		ID:           snapshot.ID,
		UserID:       snapshot.UserID,
		Readiness:    snapshot.Readiness,
		SleepQuality: snapshot.SleepQuality,
		RecordedAt:   snapshot.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
}
