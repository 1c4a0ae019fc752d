package scheduling

import (
	"errors"
	"time"
)

// RecurrenceType identifies the stepping unit of a recurrence pattern.
type RecurrenceType string

const (
	// RecurrenceDaily generates occurrences every Interval days.
	RecurrenceDaily RecurrenceType = "daily"
	// RecurrenceWeekly generates occurrences on the selected weekdays of
	// every Interval-th week.
	RecurrenceWeekly RecurrenceType = "weekly"
	// RecurrenceMonthly generates occurrences on a fixed day of every
	// Interval-th month.
	RecurrenceMonthly RecurrenceType = "monthly"
	// RecurrenceCustom is reserved for caller-defined rules. Expansion
	// rejects it until such rules have a definition.
	RecurrenceCustom RecurrenceType = "custom"
)

// Pattern describes a recurrence configuration for an event series.
type Pattern struct {
	Type           RecurrenceType
	Interval       int
	Weekdays       []time.Weekday
	DayOfMonth     int
	StartDate      time.Time
	EndDate        *time.Time
	MaxOccurrences int
	Exceptions     []time.Time
}

// Template carries the per-occurrence fields copied onto every expansion.
type Template struct {
	Title    string
	Type     EventType
	Location string
	Duration time.Duration
	Metadata map[string]string
}

// Occurrence is one concrete materialized instance of a recurring event.
type Occurrence struct {
	Start    time.Time
	End      time.Time
	Title    string
	Type     EventType
	Location string
}

var (
	// ErrInvalidRecurrenceType indicates the pattern type is unknown or unsupported.
	ErrInvalidRecurrenceType = errors.New("scheduling: invalid recurrence type")
	// ErrInvalidInterval indicates the pattern interval is below one.
	ErrInvalidInterval = errors.New("scheduling: recurrence interval must be at least 1")
	// ErrInvalidWindow indicates the query window is empty or inverted.
	ErrInvalidWindow = errors.New("scheduling: window end must be after window start")
	// ErrInvalidDuration indicates the occurrence template duration is not positive.
	ErrInvalidDuration = errors.New("scheduling: occurrence duration must be positive")
)

// expansionCap bounds a single expansion so an unbounded pattern queried over
// a huge window cannot run away.
const expansionCap = 10000

// Expand materializes the pattern into concrete occurrences whose start falls
// inside the half-open window [from, to).
//
// Semantics:
//   - Candidates are generated from the pattern's own StartDate, so the
//     occurrence budget (MaxOccurrences) is consumed by candidates that
//     precede the window even though they are not emitted.
//   - Exception dates are matched by calendar day in the pattern's zone and
//     removed after budget accounting.
//   - A monthly DayOfMonth that does not exist in some month clamps to that
//     month's last day.
//   - The pattern's EndDate is an inclusive upper bound on occurrence starts.
func Expand(template Template, pattern Pattern, from, to time.Time) ([]Occurrence, error) {
	if !to.After(from) {
		return nil, ErrInvalidWindow
	}
	if template.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if pattern.Interval < 1 {
		return nil, ErrInvalidInterval
	}

	switch pattern.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
	default:
		return nil, ErrInvalidRecurrenceType
	}

	loc := pattern.StartDate.Location()
	exceptions := make(map[string]struct{}, len(pattern.Exceptions))
	for _, day := range pattern.Exceptions {
		exceptions[day.In(loc).Format("2006-01-02")] = struct{}{}
	}

	occurrences := make([]Occurrence, 0)
	budget := pattern.MaxOccurrences
	emit := func(start time.Time) bool {
		if pattern.EndDate != nil && start.After(*pattern.EndDate) {
			return false
		}
		if budget > 0 {
			budget--
		} else if pattern.MaxOccurrences > 0 {
			return false
		}
		if _, skipped := exceptions[start.In(loc).Format("2006-01-02")]; skipped {
			return true
		}
		if !start.Before(from) && start.Before(to) {
			occurrences = append(occurrences, Occurrence{
				Start:    start,
				End:      start.Add(template.Duration),
				Title:    template.Title,
				Type:     template.Type,
				Location: template.Location,
			})
		}
		return true
	}

	switch pattern.Type {
	case RecurrenceDaily:
		expandDaily(pattern, to, emit)
	case RecurrenceWeekly:
		expandWeekly(pattern, to, loc, emit)
	case RecurrenceMonthly:
		expandMonthly(pattern, to, loc, emit)
	}

	return occurrences, nil
}

func expandDaily(pattern Pattern, to time.Time, emit func(time.Time) bool) {
	current := pattern.StartDate
	for steps := 0; steps < expansionCap; steps++ {
		if !current.Before(to) {
			return
		}
		if !emit(current) {
			return
		}
		current = current.AddDate(0, 0, pattern.Interval)
	}
}

func expandWeekly(pattern Pattern, to time.Time, loc *time.Location, emit func(time.Time) bool) {
	weekdays := make(map[time.Weekday]struct{}, len(pattern.Weekdays))
	for _, day := range pattern.Weekdays {
		weekdays[day] = struct{}{}
	}
	// A weekly pattern with no weekday selection recurs on the start date's weekday.
	if len(weekdays) == 0 {
		weekdays[pattern.StartDate.Weekday()] = struct{}{}
	}

	// Weeks are Monday-start and counted from the week containing StartDate,
	// so an interval of N selects every N-th calendar week. Counting days by
	// iteration keeps the arithmetic immune to DST-shortened days.
	dayIndex := (int(pattern.StartDate.In(loc).Weekday()) + 6) % 7
	current := pattern.StartDate
	for steps := 0; steps < expansionCap; steps++ {
		if !current.Before(to) {
			return
		}
		if _, ok := weekdays[current.Weekday()]; ok && (dayIndex/7)%pattern.Interval == 0 {
			if !emit(current) {
				return
			}
		}
		current = current.AddDate(0, 0, 1)
		dayIndex++
	}
}

func expandMonthly(pattern Pattern, to time.Time, loc *time.Location, emit func(time.Time) bool) {
	day := pattern.DayOfMonth
	if day == 0 {
		day = pattern.StartDate.Day()
	}

	start := pattern.StartDate
	year, month := start.Year(), start.Month()
	for steps := 0; steps < expansionCap; steps++ {
		candidate := monthlyCandidate(year, month, day, start, loc)
		if !candidate.Before(to) {
			return
		}
		// The first cycle can fall before the pattern start when DayOfMonth
		// precedes the start date's day; such a candidate is never an occurrence.
		if !candidate.Before(start) {
			if !emit(candidate) {
				return
			}
		}
		month += time.Month(pattern.Interval)
		for month > 12 {
			month -= 12
			year++
		}
	}
}

// monthlyCandidate builds the occurrence start for one month cycle, clamping
// the requested day to the month's last day when it does not exist.
func monthlyCandidate(year int, month time.Month, day int, template time.Time, loc *time.Location) time.Time {
	last := daysInMonth(year, month)
	if day > last {
		day = last
	}
	return time.Date(year, month, day,
		template.Hour(), template.Minute(), template.Second(), template.Nanosecond(), loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
