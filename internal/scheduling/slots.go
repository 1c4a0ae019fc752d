package scheduling

import "time"

// TimeOfDay names a preferred daily band for scheduling.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
)

// Hour bands for the time-of-day preferences and the allowed scheduling band.
const (
	morningStartHour   = 5
	afternoonStartHour = 12
	eveningStartHour   = 17
	dayEndHour         = 22
)

// SlotConfig controls candidate enumeration.
type SlotConfig struct {
	// Quantum is the fixed step between candidate start times.
	Quantum time.Duration
	// DayStartHour and DayEndHour bound the daily band candidates may start in.
	DayStartHour int
	DayEndHour   int
}

// DefaultSlotConfig returns the platform defaults: 30 minute steps inside the
// 05:00-22:00 band.
func DefaultSlotConfig() SlotConfig {
	return SlotConfig{
		Quantum:      30 * time.Minute,
		DayStartHour: morningStartHour,
		DayEndHour:   dayEndHour,
	}
}

func (c SlotConfig) normalized() SlotConfig {
	if c.Quantum <= 0 {
		c.Quantum = 30 * time.Minute
	}
	if c.DayStartHour <= 0 && c.DayEndHour <= 0 {
		c.DayStartHour = morningStartHour
		c.DayEndHour = dayEndHour
	}
	return c
}

// inBand reports whether the candidate's start hour falls inside the allowed band.
func (c SlotConfig) inBand(t time.Time) bool {
	hour := t.Hour()
	return hour >= c.DayStartHour && hour < c.DayEndHour
}

// GenerateSlots enumerates candidate start times inside [from, to), quantized
// to the configured step, confined to the daily hour band, for which the slot
// [start, start+duration) has no conflict for the requesting user. The result
// is chronologically ordered and deterministic for identical inputs.
func GenerateSlots(from, to time.Time, duration time.Duration, cfg SlotConfig, existing []Event, userID string) ([]time.Time, error) {
	if !to.After(from) {
		return nil, ErrInvalidWindow
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	cfg = cfg.normalized()

	participants := []string{userID}
	slots := make([]time.Time, 0)
	for current := from.Truncate(cfg.Quantum); current.Before(to); current = current.Add(cfg.Quantum) {
		if current.Before(from) {
			continue
		}
		if !cfg.inBand(current) {
			continue
		}
		proposed := Interval{Start: current, End: current.Add(duration)}
		if len(FindConflicts(existing, proposed, participants, "")) > 0 {
			continue
		}
		slots = append(slots, current)
	}
	return slots, nil
}

// ReadinessSnapshot is the latest physiological recovery signal for a user.
// Readiness is 0-100; SleepQuality is an optional secondary signal.
type ReadinessSnapshot struct {
	Readiness    float64
	SleepQuality *float64
	RecordedAt   time.Time
}

// Slot scoring weights. The score is additive with no normalization; ties are
// broken by the ranking step, which prefers the earliest candidate.
const (
	preferredBandBonus = 30.0
	readinessBonusCap  = 30.0
	sleepBonusCap      = 20.0
	nearSpacingPenalty = 20.0
	farSpacingPenalty  = 10.0
	outOfBandPenalty   = 50.0
	nearSpacingWindow  = 4 * time.Hour
	farSpacingWindow   = 8 * time.Hour
)

// ScoreSlot assigns a heuristic desirability score to a candidate start time.
// It is a pure function: identical inputs always produce an identical score.
func ScoreSlot(start time.Time, preferred TimeOfDay, readiness *ReadinessSnapshot, existing []Event, cfg SlotConfig) float64 {
	cfg = cfg.normalized()
	score := 0.0

	if matchesTimeOfDay(start, preferred) {
		score += preferredBandBonus
	}

	if readiness != nil {
		score += min(readiness.Readiness/2, readinessBonusCap)
		if readiness.SleepQuality != nil {
			score += min(*readiness.SleepQuality*10, sleepBonusCap)
		}
	}

	for _, event := range existing {
		if event.Cancelled {
			continue
		}
		gap := start.Sub(event.Start)
		if gap < 0 {
			gap = -gap
		}
		switch {
		case gap < nearSpacingWindow:
			score -= nearSpacingPenalty
		case gap < farSpacingWindow:
			score -= farSpacingPenalty
		}
	}

	// Defensive: generation should already have excluded out-of-band starts.
	if !cfg.inBand(start) {
		score -= outOfBandPenalty
	}

	return score
}

func matchesTimeOfDay(t time.Time, preferred TimeOfDay) bool {
	hour := t.Hour()
	switch preferred {
	case TimeOfDayMorning:
		return hour >= morningStartHour && hour < afternoonStartHour
	case TimeOfDayAfternoon:
		return hour >= afternoonStartHour && hour < eveningStartHour
	case TimeOfDayEvening:
		return hour >= eveningStartHour && hour < dayEndHour
	default:
		return false
	}
}
