package scheduling

import (
	"testing"
	"time"
)

func TestQualityScore_EmptyScheduleScoresZero(t *testing.T) {
	t.Parallel()

	prefs := QualityPreferences{Weekdays: []time.Weekday{time.Monday}}
	if got := QualityScore(nil, prefs, time.Hour); got != 0 {
		t.Fatalf("expected 0 for an empty schedule, got %v", got)
	}
}

func TestQualityScore_FullMatch(t *testing.T) {
	t.Parallel()

	prefs := QualityPreferences{
		Weekdays:        []time.Weekday{time.Monday, time.Wednesday},
		PreferredRanges: []ClockRange{{StartMinute: 6 * 60, EndMinute: 9 * 60}},
	}
	events := []Event{
		bookedEvent("evt-1", "member-7", utc(2024, time.April, 1, 7, 0), time.Hour), // Monday
		bookedEvent("evt-2", "member-7", utc(2024, time.April, 3, 8, 0), time.Hour), // Wednesday
	}

	if got := QualityScore(events, prefs, 45*time.Minute); got != 1 {
		t.Fatalf("expected a perfect score, got %v", got)
	}
}

func TestQualityScore_PartialMatch(t *testing.T) {
	t.Parallel()

	prefs := QualityPreferences{
		Weekdays:        []time.Weekday{time.Monday},
		PreferredRanges: []ClockRange{{StartMinute: 6 * 60, EndMinute: 9 * 60}},
	}
	// Monday in range with sufficient duration, then Tuesday out of range and
	// too short: 3 of 6 factors satisfied.
	events := []Event{
		bookedEvent("evt-1", "member-7", utc(2024, time.April, 1, 7, 0), time.Hour),
		bookedEvent("evt-2", "member-7", utc(2024, time.April, 2, 12, 0), 20*time.Minute),
	}

	if got := QualityScore(events, prefs, 45*time.Minute); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestQualityScore_DurationFactorAlwaysCounted(t *testing.T) {
	t.Parallel()

	prefs := QualityPreferences{
		Weekdays:        []time.Weekday{time.Monday},
		PreferredRanges: []ClockRange{{StartMinute: 6 * 60, EndMinute: 9 * 60}},
	}
	events := []Event{
		bookedEvent("evt-1", "member-7", utc(2024, time.April, 1, 7, 0), time.Hour),
	}

	// Without a minimum duration the third factor still divides the score.
	want := 2.0 / 3.0
	if got := QualityScore(events, prefs, 0); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClockRange_ContainsInclusiveEnds(t *testing.T) {
	t.Parallel()

	r := ClockRange{StartMinute: 6 * 60, EndMinute: 9 * 60}

	if !r.Contains(utc(2024, time.April, 1, 6, 0)) {
		t.Fatal("range start must be inclusive")
	}
	if !r.Contains(utc(2024, time.April, 1, 9, 0)) {
		t.Fatal("range end must be inclusive")
	}
	if r.Contains(utc(2024, time.April, 1, 9, 1)) {
		t.Fatal("minute past the end must be excluded")
	}
}
