package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type eventPurgerStub struct {
	cutoff time.Time
	purged int64
	err    error
	calls  int
}

func (s *eventPurgerStub) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.purged, s.err
}

type snapshotPurgerStub struct {
	cutoff  time.Time
	deleted int64
	err     error
	calls   int
}

func (s *snapshotPurgerStub) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return s.deleted, s.err
}

func TestMaintenance_RunOnceAppliesRetentionCutoffs(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.April, 1, 3, 0, 0, 0, time.UTC)
	events := &eventPurgerStub{purged: 4}
	snapshots := &snapshotPurgerStub{deleted: 2}

	m := NewMaintenance(events, snapshots, MaintenanceConfig{
		EventRetention:     90 * 24 * time.Hour,
		ReadinessRetention: 30 * 24 * time.Hour,
	}, func() time.Time { return now }, nil)

	m.RunOnce(context.Background())

	if events.calls != 1 || !events.cutoff.Equal(now.Add(-90*24*time.Hour)) {
		t.Fatalf("unexpected event purge cutoff: %s (%d calls)", events.cutoff, events.calls)
	}
	if snapshots.calls != 1 || !snapshots.cutoff.Equal(now.Add(-30*24*time.Hour)) {
		t.Fatalf("unexpected snapshot cutoff: %s (%d calls)", snapshots.cutoff, snapshots.calls)
	}
}

func TestMaintenance_RunOnceSkipsDisabledRetention(t *testing.T) {
	t.Parallel()

	events := &eventPurgerStub{}
	snapshots := &snapshotPurgerStub{}

	m := NewMaintenance(events, snapshots, MaintenanceConfig{}, nil, nil)
	m.RunOnce(context.Background())

	if events.calls != 0 || snapshots.calls != 0 {
		t.Fatalf("disabled retention should not purge, got %d/%d calls", events.calls, snapshots.calls)
	}
}

func TestMaintenance_RunOnceContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	events := &eventPurgerStub{err: errors.New("locked")}
	snapshots := &snapshotPurgerStub{deleted: 1}

	m := NewMaintenance(events, snapshots, MaintenanceConfig{
		EventRetention:     time.Hour,
		ReadinessRetention: time.Hour,
	}, nil, nil)
	m.RunOnce(context.Background())

	if snapshots.calls != 1 {
		t.Fatal("snapshot cleanup should run even when event purge fails")
	}
}

func TestMaintenance_StartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	m := NewMaintenance(&eventPurgerStub{}, &snapshotPurgerStub{}, MaintenanceConfig{}, nil, nil)

	if err := m.Start("not a schedule"); err == nil {
		t.Fatal("expected error for malformed cron expression")
	}
}

func TestMaintenance_StartAndStop(t *testing.T) {
	t.Parallel()

	m := NewMaintenance(&eventPurgerStub{}, &snapshotPurgerStub{}, MaintenanceConfig{}, nil, nil)

	if err := m.Start("0 3 * * *"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Stop()
}
