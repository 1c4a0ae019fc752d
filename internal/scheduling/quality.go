package scheduling

import "time"

// ClockRange is a time-of-day range expressed in minutes from midnight.
// Both ends are inclusive when matching event start times.
type ClockRange struct {
	StartMinute int
	EndMinute   int
}

// Contains reports whether t's minute-of-day falls inside the range.
func (r ClockRange) Contains(t time.Time) bool {
	minute := t.Hour()*60 + t.Minute()
	return minute >= r.StartMinute && minute <= r.EndMinute
}

// QualityPreferences are the stated preferences a produced schedule is
// evaluated against.
type QualityPreferences struct {
	Weekdays        []time.Weekday
	PreferredRanges []ClockRange
}

// QualityScore rates how well a produced schedule matches the stated
// preferences, in [0, 1]. Each event contributes three binary factors:
// preferred-weekday match, preferred time-range match, and minimum-duration
// satisfaction (scored only when minDuration is set). An empty schedule
// scores zero.
func QualityScore(events []Event, prefs QualityPreferences, minDuration time.Duration) float64 {
	if len(events) == 0 {
		return 0
	}

	weekdays := make(map[time.Weekday]struct{}, len(prefs.Weekdays))
	for _, day := range prefs.Weekdays {
		weekdays[day] = struct{}{}
	}

	score := 0.0
	factors := 0

	for _, event := range events {
		if _, ok := weekdays[event.Start.Weekday()]; ok {
			score++
		}
		factors++

		for _, r := range prefs.PreferredRanges {
			if r.Contains(event.Start) {
				score++
				break
			}
		}
		factors++

		if minDuration > 0 && event.End.Sub(event.Start) >= minDuration {
			score++
		}
		factors++
	}

	return score / float64(factors)
}
