package core

import (
	"context"
	"testing"
	"time"

	"courtcore/pkg/domain"
)

// testDay is a Monday.
var testDay = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

const testDate = "2025-09-01"

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) saw(call string) bool {
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

// fixture is a service with two courts, a coach and a member, and slots
// from 09:00 to 13:00 on testDate.
type fixture struct {
	svc    *Service
	court  domain.Court
	court2 domain.Court
	coach  domain.Coach
	user   domain.User
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	hours, err := domain.ParseOperatingHours("mon-sun=09:00-13:00")
	if err != nil {
		t.Fatalf("hours: %v", err)
	}
	svc := NewInMemoryService(nil, append([]Option{WithOperatingHours(hours)}, opts...)...)
	f := &fixture{svc: svc}
	f.court = mustOK(t, svc.CreateCourt(ctx, domain.Court{Name: "Center"}))
	f.court2 = mustOK(t, svc.CreateCourt(ctx, domain.Court{Name: "North"}))
	f.coach = mustOK(t, svc.CreateCoach(ctx, domain.Coach{Name: "Coach Kim", Email: "kim@club.test"}))
	f.user = mustOK(t, svc.CreateUser(ctx, domain.User{Name: "Sam Lee", Email: "sam@club.test"}))
	gen := mustOK(t, svc.GenerateSlots(ctx, testDay, 1))
	if len(gen.Created) != 8 {
		t.Fatalf("expected 8 generated slots, got %d", len(gen.Created))
	}
	return f
}

func (f *fixture) slot(start string) string {
	return domain.SlotID(f.court.ID, testDate, start)
}

func (f *fixture) book(t *testing.T, start, name string) domain.Reservation {
	t.Helper()
	return mustOK(t, f.svc.CreateReservation(context.Background(), player(f.slot(start), name)))
}

func (f *fixture) clinic(t *testing.T, start, end string, capacity int) domain.Clinic {
	t.Helper()
	return mustOK(t, f.svc.CreateClinic(context.Background(), domain.Clinic{
		Name:      "Drills",
		CoachID:   f.coach.ID,
		CourtID:   f.court.ID,
		Date:      testDate,
		StartTime: start,
		EndTime:   end,
		Capacity:  capacity,
	}))
}

func player(slotID, name string) domain.Reservation {
	return domain.Reservation{TimeSlotID: slotID, PlayerName: name, PlayerEmail: "player@club.test"}
}

func mustOK[T any](t *testing.T, out Outcome[T]) T {
	t.Helper()
	if !out.Success || out.Err != nil {
		t.Fatalf("unexpected failure: %v %v", out.Err, out.Errors)
	}
	return out.Data
}

func mustFail[T any](t *testing.T, out Outcome[T], check func(error) bool) {
	t.Helper()
	if out.Success || out.Err == nil {
		t.Fatalf("expected failure, got success with %+v", out.Data)
	}
	if len(out.Errors) == 0 {
		t.Fatalf("expected user facing messages for %v", out.Err)
	}
	if check != nil && !check(out.Err) {
		t.Fatalf("unexpected error kind: %v", out.Err)
	}
}

func mustSlot(t *testing.T, s *Store, id string) domain.TimeSlot {
	t.Helper()
	slot, err := s.TimeSlots.Get(id)
	if err != nil {
		t.Fatalf("get slot %s: %v", id, err)
	}
	return slot
}

func mustStatus(t *testing.T, s *Store, id string, want domain.SlotStatus) {
	t.Helper()
	got, err := s.Status(id)
	if err != nil {
		t.Fatalf("status %s: %v", id, err)
	}
	if got != want {
		t.Fatalf("slot %s status = %s, want %s", id, got, want)
	}
}
