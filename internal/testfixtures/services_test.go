package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/fitness-scheduler/internal/application"
)

func TestServiceFactoryNewEventService(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("event")))
	harness := NewSQLiteHarness(t)

	svc := factory.NewEventService(EventServiceDeps{
		Events:      harness.Events,
		Recurrences: harness.Recurrences,
	})

	start := ReferenceTime().Add(24 * time.Hour)
	created, warnings, err := svc.Create(context.Background(), application.CreateEventParams{
		Principal: application.Principal{UserID: "user-001"},
		Input: application.EventInput{
			Title:          "Strength Session",
			Type:           "workout",
			Start:          start,
			End:            start.Add(time.Hour),
			ParticipantIDs: []string{"user-002"},
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	if created.ID != "event-1" {
		t.Fatalf("expected generated ID event-1, got %q", created.ID)
	}
	if !created.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), created.CreatedAt)
	}

	stored, err := harness.Events.GetEvent(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetEvent returned error: %v", err)
	}
	if stored.Title != "Strength Session" {
		t.Fatalf("unexpected stored title %q", stored.Title)
	}
}

func TestServiceFactoryNewPlannerService(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewSQLiteHarness(t)

	preference := NewPreferenceFixture(WithPreferenceUser("user-010"))
	if err := harness.Preferences.UpsertPreference(context.Background(), preference.ToModel()); err != nil {
		t.Fatalf("UpsertPreference returned error: %v", err)
	}
	snapshot := NewSnapshotFixture("user-010", 85)
	if err := harness.Readiness.RecordSnapshot(context.Background(), snapshot.ToModel()); err != nil {
		t.Fatalf("RecordSnapshot returned error: %v", err)
	}

	svc := factory.NewPlannerService(PlannerServiceDeps{
		Events:       harness.Events,
		Recurrences:  harness.Recurrences,
		Preferences:  harness.Preferences,
		Availability: harness.Availability,
		Readiness:    harness.Readiness,
	})

	from := ReferenceTime().AddDate(0, 0, 7)
	result, err := svc.ComposeSchedule(context.Background(), application.SmartScheduleParams{
		Principal: application.Principal{UserID: "user-010"},
		From:      from,
		To:        from.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("ComposeSchedule returned error: %v", err)
	}

	if result.Intensity != "high" {
		t.Fatalf("expected high intensity from readiness 85, got %q", result.Intensity)
	}
	if len(result.Proposals) != preference.EventsPerWeek {
		t.Fatalf("expected %d proposals, got %d", preference.EventsPerWeek, len(result.Proposals))
	}
}
