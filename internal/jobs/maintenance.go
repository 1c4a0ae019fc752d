// Package jobs runs periodic maintenance against the scheduling store.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// EventPurger removes cancelled events that ended before a cutoff.
type EventPurger interface {
	PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotPurger removes readiness samples recorded before a cutoff.
type SnapshotPurger interface {
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceConfig bounds what the maintenance run is allowed to delete.
type MaintenanceConfig struct {
	// EventRetention is how long cancelled events are kept after they end.
	EventRetention time.Duration
	// ReadinessRetention is how long readiness samples are kept.
	ReadinessRetention time.Duration
	// RunTimeout bounds one maintenance run. Zero means one minute.
	RunTimeout time.Duration
}

// Maintenance owns the scheduled cleanup of cancelled events and stale
// readiness samples.
type Maintenance struct {
	events    EventPurger
	snapshots SnapshotPurger
	cfg       MaintenanceConfig
	now       func() time.Time
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewMaintenance wires the maintenance job. A nil now falls back to time.Now.
func NewMaintenance(events EventPurger, snapshots SnapshotPurger, cfg MaintenanceConfig, now func() time.Time, logger *slog.Logger) *Maintenance {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = time.Minute
	}
	return &Maintenance{
		events:    events,
		snapshots: snapshots,
		cfg:       cfg,
		now:       now,
		logger:    logger,
	}
}

// Start registers the job under the given cron expression and starts the
// scheduler. Stop must be called on shutdown.
func (m *Maintenance) Start(spec string) error {
	if m == nil {
		return fmt.Errorf("Maintenance is nil")
	}

	runner := cron.New()
	if _, err := runner.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RunTimeout)
		defer cancel()
		m.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}

	runner.Start()
	m.cron = runner
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (m *Maintenance) Stop() {
	if m == nil || m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// RunOnce performs one maintenance pass. Failures are logged, not returned,
// so one failing cleanup does not block the other.
func (m *Maintenance) RunOnce(ctx context.Context) {
	if m == nil {
		return
	}
	now := m.now()

	if m.events != nil && m.cfg.EventRetention > 0 {
		cutoff := now.Add(-m.cfg.EventRetention)
		purged, err := m.events.PurgeCancelledBefore(ctx, cutoff)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to purge cancelled events", "error", err)
		} else if purged > 0 {
			m.logger.InfoContext(ctx, "purged cancelled events", "count", purged, "cutoff", cutoff)
		}
	}

	if m.snapshots != nil && m.cfg.ReadinessRetention > 0 {
		cutoff := now.Add(-m.cfg.ReadinessRetention)
		deleted, err := m.snapshots.DeleteSnapshotsBefore(ctx, cutoff)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to delete stale readiness samples", "error", err)
		} else if deleted > 0 {
			m.logger.InfoContext(ctx, "deleted stale readiness samples", "count", deleted, "cutoff", cutoff)
		}
	}
}
