package core

import (
	"context"
	"time"

	"courtcore/internal/blob"
	"courtcore/internal/events"
	"courtcore/pkg/domain"
)

// Service is the only mutation entry point of the booking core. Every
// operation runs under the per-slot locks of the Store, is traced, measured
// and audited, persists a snapshot on success and publishes a domain event.
type Service struct {
	store   *Store
	engine  *domain.RulesEngine
	hours   domain.OperatingHours
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	events  events.Publisher
	archive blob.Store
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps and durations.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger installs a structured logger. *slog.Logger satisfies Logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder installs an audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder installs a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithPublisher installs the domain event publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

// WithArchive stores integrity reports in store.
func WithArchive(store blob.Store) Option {
	return func(s *Service) {
		s.archive = store
	}
}

// WithOperatingHours sets the hours slots are generated from.
func WithOperatingHours(hours domain.OperatingHours) Option {
	return func(s *Service) {
		if len(hours) > 0 {
			s.hours = hours
		}
	}
}

// WithRulesEngine replaces the integrity rules used by AuditIntegrity.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store *Store, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		engine:  NewIntegrityRulesEngine(),
		hours:   domain.DefaultOperatingHours(),
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		events:  events.Noop{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh store without a
// persistence backend. A nil engine selects the default integrity rules.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(NewStore(nil), append([]Option{WithRulesEngine(engine)}, opts...)...)
}

// Store returns the underlying store for read access.
func (s *Service) Store() *Store {
	return s.store
}

// Outcome is the uniform result of a service operation. Errors carries the
// user-facing messages of Err.
type Outcome[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Err     error    `json:"-"`
}

// Unwrap returns the data and the original error.
func (o Outcome[T]) Unwrap() (T, error) {
	return o.Data, o.Err
}

type operation struct {
	name    string
	entity  domain.EntityType
	action  domain.Action
	event   events.Type
	mutates bool
}

// run executes fn as the operation op. fn returns the result and the id of
// the primary entity it touched.
func run[T any](ctx context.Context, s *Service, op operation, fn func(context.Context) (T, string, error)) Outcome[T] {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op.name)
	data, id, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op.name, err == nil, duration)

	entry := AuditEntry{
		Operation: op.name,
		Entity:    op.entity,
		Action:    op.action,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: start,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.audit.Record(ctx, entry)
		s.logger.Warn("operation failed", "operation", op.name, "entity_id", id, "error", err)
		return Outcome[T]{Data: data, Errors: domain.ErrorMessages(err), Err: err}
	}
	s.audit.Record(ctx, entry)
	s.logger.Debug("operation completed", "operation", op.name, "entity_id", id, "duration", duration)

	if op.mutates {
		s.persist(ctx, op.name)
	}
	if op.event != "" {
		s.publish(ctx, op.event, id, data)
	}
	return Outcome[T]{Success: true, Data: data}
}

// persistOperation is the metrics operation name of snapshot writes.
const persistOperation = "persist"

// persist snapshots the store. Failures are logged and counted; the
// in-memory state stays authoritative.
func (s *Service) persist(ctx context.Context, opName string) {
	start := s.clock.Now()
	err := s.store.Persist(ctx)
	s.metrics.Observe(ctx, persistOperation, err == nil, s.clock.Now().Sub(start))
	if err != nil {
		s.logger.Error("snapshot persistence failed", "operation", opName, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, typ events.Type, id string, payload any) {
	event := events.Event{Type: typ, EntityID: id, OccurredAt: s.clock.Now(), Payload: payload}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "event", string(typ), "entity_id", id, "error", err)
	}
}

func clinicKey(id string) string { return "clinic/" + id }

func socialKey(id string) string { return "social/" + id }

// coachKey serializes checks on a coach's calendar across courts.
func coachKey(id string) string { return "coach/" + id }

// windowSlotIDs lists the hourly slot ids covering [start, end) on courtID and date.
func windowSlotIDs(courtID, date, start, end string) ([]string, error) {
	window, err := domain.NewInterval(start, end)
	if err != nil {
		return nil, err
	}
	hours := window.HourStarts()
	ids := make([]string, 0, len(hours))
	for _, hour := range hours {
		ids = append(ids, domain.SlotID(courtID, date, hour))
	}
	return ids, nil
}

func requireExists(exists bool, entity domain.EntityType, id string) error {
	if !exists {
		return domain.NewNotFound(entity, id)
	}
	return nil
}
