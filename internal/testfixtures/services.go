package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/fitness-scheduler/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events      application.EventStore
	Recurrences application.RecurrenceStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService builds an event service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewEventService(deps.Events, deps.Recurrences, idGen, now, deps.Logger)
}

// PreferenceServiceDeps captures dependencies for constructing a preference service.
type PreferenceServiceDeps struct {
	Preferences  application.PreferenceStore
	Availability application.AvailabilityStore
	Readiness    application.ReadinessStore
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewPreferenceService builds a preference service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewPreferenceService(deps PreferenceServiceDeps) *application.PreferenceService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewPreferenceService(deps.Preferences, deps.Availability, deps.Readiness, idGen, now, deps.Logger)
}

// PlannerServiceDeps captures dependencies for constructing a planner service.
type PlannerServiceDeps struct {
	Events       application.EventStore
	Recurrences  application.RecurrenceStore
	Preferences  application.PreferenceStore
	Availability application.AvailabilityStore
	Readiness    application.ReadinessStore
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewPlannerService builds a planner service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewPlannerService(deps PlannerServiceDeps) *application.PlannerService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewPlannerService(deps.Events, deps.Recurrences, deps.Preferences, deps.Availability, deps.Readiness, now, deps.Logger)
}
