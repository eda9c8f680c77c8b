package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"expvar"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"courtcore/internal/events"
	"courtcore/pkg/domain"
)

var _ Logger = (*slog.Logger)(nil)

// bookTwice books 10:00 once successfully and once as a double booking.
func bookTwice(t *testing.T, f *fixture) domain.Reservation {
	t.Helper()
	r := f.book(t, "10:00", "Alex")
	mustFail(t, f.svc.CreateReservation(context.Background(), player(f.slot("10:00"), "Blair")), domain.IsConflict)
	return r
}

func TestServiceEmitsAuditMetricsTracesAndLogs(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	logger := &captureLogger{}
	f := newFixture(t, WithAuditRecorder(audit), WithMetricsRecorder(metrics), WithTracer(tracer), WithLogger(logger))
	r := bookTwice(t, f)

	if !audit.has("create_reservation", AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == r.ID && e.Entity == domain.EntityReservation && e.Action == domain.ActionCreate
	}) {
		t.Fatalf("missing success audit entry: %+v", audit.entries)
	}
	if !audit.has("create_reservation", AuditStatusError, func(e AuditEntry) bool { return e.Error != "" }) {
		t.Fatalf("missing error audit entry: %+v", audit.entries)
	}
	if !metrics.has("create_reservation", true) || !metrics.has("create_reservation", false) {
		t.Fatalf("missing reservation metrics: %+v", metrics.calls)
	}
	if !metrics.has("persist", true) {
		t.Fatalf("mutations must record a persist observation")
	}
	if !tracer.has("create_reservation", true) || !tracer.has("create_reservation", false) {
		t.Fatalf("missing spans: %+v", tracer.ended)
	}
	if len(tracer.started) != len(tracer.ended) {
		t.Fatalf("every span must end: %d started, %d ended", len(tracer.started), len(tracer.ended))
	}
	if !logger.saw("d:operation completed") || !logger.saw("w:operation failed") {
		t.Fatalf("unexpected log calls %v", logger.calls)
	}
}

func TestServiceUsesInjectedClock(t *testing.T) {
	at := time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)
	audit := &captureAuditRecorder{}
	rec := events.NewRecorder()
	f := newFixture(t, WithClock(ClockFunc(func() time.Time { return at })), WithAuditRecorder(audit), WithPublisher(rec))
	f.book(t, "09:00", "Alex")

	for _, e := range audit.entries {
		if !e.Timestamp.Equal(at) || e.Duration != 0 {
			t.Fatalf("audit entry ignores clock: %+v", e)
		}
	}
	published := rec.Events()
	last := published[len(published)-1]
	if last.Type != events.ReservationCreated || !last.OccurredAt.Equal(at) {
		t.Fatalf("unexpected last event %+v", last)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	f := newFixture(t, WithMetricsRecorder(rec))
	bookTwice(t, f)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("create_reservation", "success")); got != 1 {
		t.Fatalf("success counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("create_reservation", "error")); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(rec.durations, "courtcore_operation_duration_seconds"); n == 0 {
		t.Fatalf("expected latency series")
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	if !names["courtcore_operations_total"] || !names["courtcore_operation_duration_seconds"] {
		t.Fatalf("unexpected families %v", names)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newFixture(t, WithTracer(NewOTelTracer(tp)))
	bookTwice(t, f)

	var ok, failed int
	for _, span := range sr.Ended() {
		if span.Name() != "create_reservation" {
			continue
		}
		if span.InstrumentationScope().Name != TracerName {
			t.Fatalf("unexpected scope %q", span.InstrumentationScope().Name)
		}
		found := false
		for _, kv := range span.Attributes() {
			if string(kv.Key) == "courtcore.operation" && kv.Value.AsString() == "create_reservation" {
				found = true
			}
		}
		if !found {
			t.Fatalf("span lacks operation attribute: %v", span.Attributes())
		}
		switch span.Status().Code {
		case codes.Ok:
			ok++
		case codes.Error:
			failed++
			if len(span.Events()) == 0 {
				t.Fatalf("failed span must record the error")
			}
		}
	}
	if ok != 1 || failed != 1 {
		t.Fatalf("expected one ok and one failed span, got %d/%d", ok, failed)
	}
}

func TestSlogAuditRecorderWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	f := newFixture(t, WithAuditRecorder(NewSlogAuditRecorder(logger)))
	buf.Reset()
	r := bookTwice(t, f)

	var levels []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("decode %q: %v", scanner.Text(), err)
		}
		if line["msg"] != "audit" || line["operation"] != "create_reservation" {
			continue
		}
		levels = append(levels, line["level"].(string))
		if line["level"] == "INFO" && line["entity_id"] != r.ID {
			t.Fatalf("success record lacks entity id: %v", line)
		}
		if line["level"] == "WARN" && line["error"] == nil {
			t.Fatalf("failure record lacks error: %v", line)
		}
	}
	if strings.Join(levels, ",") != "INFO,WARN" {
		t.Fatalf("unexpected audit levels %v", levels)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	f := newFixture(t, WithMetricsRecorder(rec))
	bookTwice(t, f)

	snap := rec.Snapshot()
	if snap.Results["create_reservation"]["success"] != 1 || snap.Results["create_reservation"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if _, ok := snap.LatencyMS["create_reservation"]; !ok {
		t.Fatalf("missing latency total")
	}
	if snap.SnapshotsFailed != 0 {
		t.Fatalf("unexpected snapshot failures %d", snap.SnapshotsFailed)
	}
	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("recorder not published as %s", rec.Name())
	}
	var payload map[string]map[string]float64
	if err := json.Unmarshal([]byte(v.String()), &payload); err != nil {
		t.Fatalf("decode expvar payload: %v", err)
	}
	if payload["operations"]["create_reservation.success"] != 1 {
		t.Fatalf("unexpected expvar payload %s", v.String())
	}
	if other := NewExpvarMetricsRecorder(""); other.Name() == rec.Name() {
		t.Fatalf("generated names must be unique")
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	f := newFixture(t, WithTracer(tracer))
	bookTwice(t, f)

	entries := tracer.Entries()
	if lines := strings.Count(buf.String(), "\n"); lines != len(entries) {
		t.Fatalf("wrote %d lines for %d spans", lines, len(entries))
	}
	last := entries[len(entries)-1]
	if last.Operation != "create_reservation" || last.Status != "error" || last.Error == "" {
		t.Fatalf("unexpected last span %+v", last)
	}
	if last.EndedAt.Before(last.StartedAt) {
		t.Fatalf("span ends before it starts")
	}
}
