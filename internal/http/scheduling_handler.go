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

type conflictChecker interface {
	CheckConflicts(ctx context.Context, params application.CheckConflictsParams) (application.ConflictReport, error)
}

type schedulePlanner interface {
	ComposeSchedule(ctx context.Context, params application.SmartScheduleParams) (application.SmartScheduleResult, error)
}

// SchedulingHandler exposes the conflict probe and smart schedule endpoints.
type SchedulingHandler struct {
	conflicts conflictChecker
	planner   schedulePlanner
	responder responder
}

func NewSchedulingHandler(conflicts conflictChecker, planner schedulePlanner, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{conflicts: conflicts, planner: planner, responder: newResponder(logger)}
}

func (h *SchedulingHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.conflicts == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkConflictsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	report, err := h.conflicts.CheckConflicts(r.Context(), application.CheckConflictsParams{
		Principal:      principal,
		Start:          parseTime(req.Start),
		End:            parseTime(req.End),
		ParticipantIDs: append([]string(nil), req.ParticipantIDs...),
		ExcludeEventID: strings.TrimSpace(req.ExcludeEventID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictReportDTO{
		HasConflicts: report.HasConflicts,
		Conflicts:    toWarningDTOs(report.Conflicts),
	})
}

func (h *SchedulingHandler) SmartSchedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.planner == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req smartScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	from, _ := parseDateOrTime(req.From)
	to, _ := parseDateOrTime(req.To)
	params := application.SmartScheduleParams{
		Principal: principal,
		From:      from,
		To:        to,
	}
	if req.Constraints != nil {
		params.Constraints = application.Constraints{
			MinDurationMinutes: req.Constraints.MinDurationMinutes,
			MaxDurationMinutes: req.Constraints.MaxDurationMinutes,
			PreferredTimeOfDay: req.Constraints.PreferredTimeOfDay,
			IntensityLevel:     req.Constraints.IntensityLevel,
			EventsPerWeek:      req.Constraints.EventsPerWeek,
		}
	}

	result, err := h.planner.ComposeSchedule(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSmartScheduleDTO(result))
}

type checkConflictsRequest struct {
	Start          string   `json:"start_time"`
	End            string   `json:"end_time"`
	ParticipantIDs []string `json:"participants"`
	ExcludeEventID string   `json:"exclude_event_id"`
}

type conflictReportDTO struct {
	HasConflicts bool                 `json:"has_conflicts"`
	Conflicts    []conflictWarningDTO `json:"conflicts,omitempty"`
}

type constraintsRequest struct {
	MinDurationMinutes int     `json:"min_duration"`
	MaxDurationMinutes int     `json:"max_duration"`
	PreferredTimeOfDay *string `json:"preferred_time_of_day"`
	IntensityLevel     *string `json:"intensity_level"`
	EventsPerWeek      int     `json:"events_per_week"`
}

type smartScheduleRequest struct {
	From        string              `json:"start_date"`
	To          string              `json:"end_date"`
	Constraints *constraintsRequest `json:"constraints"`
}

type proposedEventDTO struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Type            string  `json:"event_type"`
	Start           string  `json:"start_time"`
	End             string  `json:"end_time"`
	DurationMinutes int     `json:"duration"`
	UserID          string  `json:"user_id"`
	Intensity       string  `json:"intensity"`
	Score           float64 `json:"score"`
}

type smartScheduleDTO struct {
	Proposals    []proposedEventDTO `json:"proposals"`
	QualityScore float64            `json:"quality_score"`
	Intensity    string             `json:"intensity"`
}

func toSmartScheduleDTO(result application.SmartScheduleResult) smartScheduleDTO {
	proposals := make([]proposedEventDTO, 0, len(result.Proposals))
	for _, proposal := range result.Proposals {
		proposals = append(proposals, proposedEventDTO{
			Title:           proposal.Title,
			Description:     proposal.Description,
			Type:            proposal.Type,
			Start:           proposal.Start.UTC().Format(time.RFC3339Nano),
			End:             proposal.End.UTC().Format(time.RFC3339Nano),
			DurationMinutes: int(proposal.End.Sub(proposal.Start) / time.Minute),
			UserID:          proposal.UserID,
			Intensity:       proposal.Intensity,
			Score:           proposal.Score,
		})
	}
	return smartScheduleDTO{
		Proposals:    proposals,
		QualityScore: result.QualityScore,
		Intensity:    result.Intensity,
	}
}
