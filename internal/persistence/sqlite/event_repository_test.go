package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/fitness-scheduler/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool(DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := InitializeSchema(context.Background(), pool); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return pool
}

func testEvent(id string) persistence.Event {
	return persistence.Event{
		ID:             id,
		Title:          "Strength Session",
		Type:           "workout",
		Start:          time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC),
		End:            time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC),
		CreatorID:      "coach-1",
		ParticipantIDs: []string{"member-7", "member-8"},
	}
}

func TestEventRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository(newTestPool(t))

	event := testEvent("evt-1")
	event.Metadata = map[string]string{"coach_notes": "focus on form", "equipment": "barbell"}
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	fetched, err := repo.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}

	if fetched.Title != event.Title || fetched.Type != event.Type {
		t.Fatalf("unexpected event: %+v", fetched)
	}
	if !fetched.Start.Equal(event.Start) || !fetched.End.Equal(event.End) {
		t.Fatalf("times not preserved: %+v", fetched)
	}
	if len(fetched.ParticipantIDs) != 2 {
		t.Fatalf("expected 2 participants, got %v", fetched.ParticipantIDs)
	}
	if len(fetched.Metadata) != 2 || fetched.Metadata["equipment"] != "barbell" {
		t.Fatalf("metadata not preserved: %v", fetched.Metadata)
	}
}

func TestEventRepository_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	repo := NewEventRepository(newTestPool(t))

	if _, err := repo.GetEvent(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_DuplicateIDIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository(newTestPool(t))

	if err := repo.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("first CreateEvent failed: %v", err)
	}
	if err := repo.CreateEvent(ctx, testEvent("evt-1")); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestEventRepository_UpdateReplacesParticipants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository(newTestPool(t))

	event := testEvent("evt-1")
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	event.Title = "Mobility Session"
	event.ParticipantIDs = []string{"member-9"}
	if err := repo.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	fetched, err := repo.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if fetched.Title != "Mobility Session" {
		t.Fatalf("title not updated: %q", fetched.Title)
	}
	if len(fetched.ParticipantIDs) != 1 || fetched.ParticipantIDs[0] != "member-9" {
		t.Fatalf("participants not replaced: %v", fetched.ParticipantIDs)
	}
}

func TestEventRepository_ListFiltersByParticipantAndWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository(newTestPool(t))

	first := testEvent("evt-1")
	second := testEvent("evt-2")
	second.Start = second.Start.Add(48 * time.Hour)
	second.End = second.End.Add(48 * time.Hour)
	second.ParticipantIDs = []string{"member-9"}
	second.CreatorID = "coach-2"

	for _, event := range []persistence.Event{first, second} {
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)
	events, err := repo.ListEvents(ctx, persistence.EventFilter{
		ParticipantIDs: []string{"member-7"},
		From:           &from,
		To:             &to,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("unexpected result: %+v", events)
	}
}

func TestEventRepository_CancelExcludedFromDefaultList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository(newTestPool(t))

	if err := repo.CreateEvent(ctx, testEvent("evt-1")); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if err := repo.CancelEvent(ctx, "evt-1", time.Now()); err != nil {
		t.Fatalf("CancelEvent failed: %v", err)
	}

	events, err := repo.ListEvents(ctx, persistence.EventFilter{ParticipantIDs: []string{"member-7"}})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("cancelled event listed: %+v", events)
	}

	all, err := repo.ListEvents(ctx, persistence.EventFilter{
		ParticipantIDs:   []string{"member-7"},
		IncludeCancelled: true,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 1 || !all[0].Cancelled {
		t.Fatalf("expected the cancelled event, got %+v", all)
	}
}

func TestEventRepository_SeriesLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := newTestPool(t)
	events := NewEventRepository(pool)
	patterns := NewRecurrenceRepository(pool)

	base := testEvent("evt-1")
	pattern := persistence.RecurrencePattern{
		ID:        "pat-1",
		Type:      "weekly",
		Interval:  1,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		StartDate: base.Start,
	}

	if err := events.CreateSeries(ctx, base, pattern); err != nil {
		t.Fatalf("CreateSeries failed: %v", err)
	}

	fetched, err := patterns.GetPatternForEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetPatternForEvent failed: %v", err)
	}
	if fetched.Type != "weekly" || len(fetched.Weekdays) != 2 {
		t.Fatalf("unexpected pattern: %+v", fetched)
	}

	exception := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)
	if err := patterns.AddException(ctx, "evt-1", exception); err != nil {
		t.Fatalf("AddException failed: %v", err)
	}
	if err := patterns.AddException(ctx, "evt-1", exception); err != nil {
		t.Fatalf("repeated AddException failed: %v", err)
	}

	fetched, err = patterns.GetPatternForEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetPatternForEvent failed: %v", err)
	}
	if len(fetched.Exceptions) != 1 || !fetched.Exceptions[0].Equal(exception) {
		t.Fatalf("unexpected exceptions: %v", fetched.Exceptions)
	}

	if err := events.DeleteSeries(ctx, "evt-1"); err != nil {
		t.Fatalf("DeleteSeries failed: %v", err)
	}
	if _, err := events.GetEvent(ctx, "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("event should be gone, got %v", err)
	}
	if _, err := patterns.GetPatternForEvent(ctx, "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("pattern should cascade away, got %v", err)
	}
}

func TestEventRepository_PurgeCancelledBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewEventRepository(newTestPool(t))

	old := testEvent("evt-old")
	recent := testEvent("evt-recent")
	recent.Start = recent.Start.AddDate(0, 2, 0)
	recent.End = recent.End.AddDate(0, 2, 0)

	for _, event := range []persistence.Event{old, recent} {
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if err := repo.CancelEvent(ctx, event.ID, time.Now()); err != nil {
			t.Fatalf("CancelEvent failed: %v", err)
		}
	}

	cutoff := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	removed, err := repo.PurgeCancelledBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("PurgeCancelledBefore failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed row, got %d", removed)
	}

	if _, err := repo.GetEvent(ctx, "evt-old"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("old event should be purged, got %v", err)
	}
	if _, err := repo.GetEvent(ctx, "evt-recent"); err != nil {
		t.Fatalf("recent event should remain: %v", err)
	}
}
