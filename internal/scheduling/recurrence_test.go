package scheduling

import (
	"errors"
	"testing"
	"time"
)

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func workoutTemplate() Template {
	return Template{
		Title:    "Strength Session",
		Type:     EventTypeWorkout,
		Location: "Main Gym",
		Duration: time.Hour,
	}
}

func TestExpand_WeeklyMonWedFriJanuary(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:      RecurrenceWeekly,
		Interval:  1,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		StartDate: utc(2024, time.January, 1, 7, 0),
	}

	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.January, 1, 0, 0), utc(2024, time.January, 31, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	if len(occurrences) != 13 {
		t.Fatalf("expected 13 occurrences, got %d", len(occurrences))
	}

	for i, occ := range occurrences {
		switch occ.Start.Weekday() {
		case time.Monday, time.Wednesday, time.Friday:
		default:
			t.Fatalf("occurrence %d falls on %s", i, occ.Start.Weekday())
		}
		if occ.End.Sub(occ.Start) != time.Hour {
			t.Fatalf("occurrence %d has duration %s", i, occ.End.Sub(occ.Start))
		}
		if i > 0 && !occurrences[i-1].Start.Before(occ.Start) {
			t.Fatalf("occurrences out of order at index %d", i)
		}
	}
}

func TestExpand_WeeklyIntervalSkipsWeeks(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:      RecurrenceWeekly,
		Interval:  2,
		Weekdays:  []time.Weekday{time.Monday},
		StartDate: utc(2024, time.January, 1, 18, 0),
	}

	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.January, 1, 0, 0), utc(2024, time.February, 1, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	want := []time.Time{
		utc(2024, time.January, 1, 18, 0),
		utc(2024, time.January, 15, 18, 0),
		utc(2024, time.January, 29, 18, 0),
	}
	if len(occurrences) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occurrences))
	}
	for i, ts := range want {
		if !occurrences[i].Start.Equal(ts) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, ts, occurrences[i].Start)
		}
	}
}

func TestExpand_MaxOccurrencesBoundsUnboundedWindow(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:           RecurrenceDaily,
		Interval:       1,
		StartDate:      utc(2024, time.March, 1, 6, 0),
		MaxOccurrences: 5,
	}

	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.January, 1, 0, 0), utc(2030, time.January, 1, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	if len(occurrences) != 5 {
		t.Fatalf("expected exactly 5 occurrences, got %d", len(occurrences))
	}
}

func TestExpand_BudgetConsumedBeforeWindow(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:           RecurrenceDaily,
		Interval:       1,
		StartDate:      utc(2024, time.March, 1, 6, 0),
		MaxOccurrences: 5,
	}

	// The first three candidates precede the window; only the remaining
	// budget of two is emitted.
	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.March, 4, 0, 0), utc(2024, time.April, 1, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occurrences))
	}
	if !occurrences[0].Start.Equal(utc(2024, time.March, 4, 6, 0)) {
		t.Fatalf("unexpected first occurrence %s", occurrences[0].Start)
	}
}

func TestExpand_ExceptionsAreSkipped(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:       RecurrenceDaily,
		Interval:   1,
		StartDate:  utc(2024, time.May, 1, 9, 0),
		Exceptions: []time.Time{utc(2024, time.May, 3, 0, 0)},
	}

	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.May, 1, 0, 0), utc(2024, time.May, 6, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}
	for _, occ := range occurrences {
		if occ.Start.Day() == 3 {
			t.Fatalf("exception date was emitted: %s", occ.Start)
		}
	}
}

func TestExpand_ConsistentUnderWindowNarrowing(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:      RecurrenceWeekly,
		Interval:  1,
		Weekdays:  []time.Weekday{time.Tuesday, time.Thursday},
		StartDate: utc(2024, time.January, 2, 12, 30),
	}

	wide, err := Expand(workoutTemplate(), pattern, utc(2024, time.January, 1, 0, 0), utc(2024, time.March, 1, 0, 0))
	if err != nil {
		t.Fatalf("wide expand failed: %v", err)
	}

	subFrom := utc(2024, time.January, 15, 0, 0)
	subTo := utc(2024, time.February, 1, 0, 0)
	narrow, err := Expand(workoutTemplate(), pattern, subFrom, subTo)
	if err != nil {
		t.Fatalf("narrow expand failed: %v", err)
	}

	filtered := make([]Occurrence, 0)
	for _, occ := range wide {
		if !occ.Start.Before(subFrom) && occ.Start.Before(subTo) {
			filtered = append(filtered, occ)
		}
	}

	if len(filtered) != len(narrow) {
		t.Fatalf("narrowing mismatch: filtered %d, direct %d", len(filtered), len(narrow))
	}
	for i := range narrow {
		if !narrow[i].Start.Equal(filtered[i].Start) {
			t.Fatalf("occurrence %d mismatch: %s vs %s", i, narrow[i].Start, filtered[i].Start)
		}
	}
}

func TestExpand_MonthlyClampsToLastDay(t *testing.T) {
	t.Parallel()

	pattern := Pattern{
		Type:       RecurrenceMonthly,
		Interval:   1,
		DayOfMonth: 31,
		StartDate:  utc(2024, time.January, 31, 8, 0),
	}

	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.January, 1, 0, 0), utc(2024, time.May, 1, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	want := []time.Time{
		utc(2024, time.January, 31, 8, 0),
		utc(2024, time.February, 29, 8, 0),
		utc(2024, time.March, 31, 8, 0),
		utc(2024, time.April, 30, 8, 0),
	}
	if len(occurrences) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occurrences))
	}
	for i, ts := range want {
		if !occurrences[i].Start.Equal(ts) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, ts, occurrences[i].Start)
		}
	}
}

func TestExpand_EndDateIsInclusiveBound(t *testing.T) {
	t.Parallel()

	end := utc(2024, time.June, 3, 7, 0)
	pattern := Pattern{
		Type:      RecurrenceDaily,
		Interval:  1,
		StartDate: utc(2024, time.June, 1, 7, 0),
		EndDate:   &end,
	}

	occurrences, err := Expand(workoutTemplate(), pattern, utc(2024, time.June, 1, 0, 0), utc(2024, time.July, 1, 0, 0))
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}
	if !occurrences[2].Start.Equal(end) {
		t.Fatalf("last occurrence should land on the end date, got %s", occurrences[2].Start)
	}
}

func TestExpand_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	valid := Pattern{Type: RecurrenceDaily, Interval: 1, StartDate: utc(2024, time.January, 1, 7, 0)}
	from := utc(2024, time.January, 1, 0, 0)
	to := utc(2024, time.February, 1, 0, 0)

	if _, err := Expand(workoutTemplate(), Pattern{Type: RecurrenceCustom, Interval: 1, StartDate: valid.StartDate}, from, to); !errors.Is(err, ErrInvalidRecurrenceType) {
		t.Fatalf("custom pattern: expected ErrInvalidRecurrenceType, got %v", err)
	}

	if _, err := Expand(workoutTemplate(), Pattern{Type: RecurrenceDaily, Interval: 0, StartDate: valid.StartDate}, from, to); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("zero interval: expected ErrInvalidInterval, got %v", err)
	}

	if _, err := Expand(workoutTemplate(), valid, to, from); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("inverted window: expected ErrInvalidWindow, got %v", err)
	}

	template := workoutTemplate()
	template.Duration = 0
	if _, err := Expand(template, valid, from, to); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero duration: expected ErrInvalidDuration, got %v", err)
	}
}
