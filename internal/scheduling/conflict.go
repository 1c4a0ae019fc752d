package scheduling

import (
	"sort"
	"time"
)

// EventType classifies an activity event on the platform.
type EventType string

const (
	EventTypeWorkout      EventType = "workout"
	EventTypeClass        EventType = "class"
	EventTypeAssessment   EventType = "assessment"
	EventTypeRecovery     EventType = "recovery"
	EventTypeConsultation EventType = "consultation"
	EventTypeCustom       EventType = "custom"
)

// Event is the snapshot of a booked event that conflict detection inspects.
type Event struct {
	ID             string
	Title          string
	Type           EventType
	Start          time.Time
	End            time.Time
	CreatorID      string
	ParticipantIDs []string
	Cancelled      bool
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// merely touch at a boundary do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Conflict details one existing event that collides with a proposed range.
type Conflict struct {
	EventID string
	Title   string
	Start   time.Time
	End     time.Time
	Type    EventType
}

// FindConflicts returns the existing events that overlap the proposed range
// for any of the given participants, one entry per distinct event id even
// when several participants are affected, ordered chronologically.
//
// Cancelled events never conflict. The excluded event id, if non-empty, is
// never reported; callers use it when editing an event in place.
func FindConflicts(existing []Event, proposed Interval, participantIDs []string, excludeEventID string) []Conflict {
	if len(existing) == 0 || len(participantIDs) == 0 {
		return nil
	}

	participants := make(map[string]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if id != "" {
			participants[id] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	conflicts := make([]Conflict, 0)
	for _, event := range existing {
		if event.Cancelled {
			continue
		}
		if excludeEventID != "" && event.ID == excludeEventID {
			continue
		}
		if _, dup := seen[event.ID]; dup {
			continue
		}
		if !Overlaps(proposed, Interval{Start: event.Start, End: event.End}) {
			continue
		}
		if !involvesAny(event, participants) {
			continue
		}
		seen[event.ID] = struct{}{}
		conflicts = append(conflicts, Conflict{
			EventID: event.ID,
			Title:   event.Title,
			Start:   event.Start,
			End:     event.End,
			Type:    event.Type,
		})
	}

	if len(conflicts) == 0 {
		return nil
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].EventID < conflicts[j].EventID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})

	return conflicts
}

func involvesAny(event Event, participants map[string]struct{}) bool {
	if _, ok := participants[event.CreatorID]; ok && event.CreatorID != "" {
		return true
	}
	for _, id := range event.ParticipantIDs {
		if _, ok := participants[id]; ok {
			return true
		}
	}
	return false
}
