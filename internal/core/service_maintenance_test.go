package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"courtcore/internal/blob"
	"courtcore/internal/events"
	"courtcore/internal/infra/persistence/memory"
	"courtcore/pkg/domain"
)

func TestAuditIntegrityArchivesReport(t *testing.T) {
	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	archive := blob.NewMemory()
	logger := &captureLogger{}
	f := newFixture(t, WithArchive(archive), WithClock(ClockFunc(func() time.Time { return at })), WithLogger(logger))
	ctx := context.Background()

	res := mustOK(t, f.svc.AuditIntegrity(ctx))
	if !res.Report.Healthy() || res.Report.Slots != 8 {
		t.Fatalf("unexpected report %+v", res.Report)
	}
	if res.ArchiveKey != "audits/2025-09-01T08:00:00Z.json" {
		t.Fatalf("unexpected archive key %q", res.ArchiveKey)
	}
	listed, err := f.svc.ArchivedReports(ctx)
	if err != nil || len(listed) != 1 {
		t.Fatalf("archived reports: %v %v", listed, err)
	}
	if listed[0].Metadata["errors"] != "0" || listed[0].ContentType != "application/json" {
		t.Fatalf("unexpected archive info %+v", listed[0])
	}
	_, body, err := archive.Get(ctx, res.ArchiveKey)
	if err != nil {
		t.Fatalf("get archived report: %v", err)
	}
	defer body.Close()
	payload, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read archived report: %v", err)
	}
	var stored IntegrityReport
	if err := json.Unmarshal(payload, &stored); err != nil {
		t.Fatalf("decode archived report: %v", err)
	}
	if stored.Slots != 8 || !stored.CheckedAt.Equal(at) {
		t.Fatalf("unexpected archived report %+v", stored)
	}

	// Same clock, same key: the archive refuses the overwrite.
	again := mustOK(t, f.svc.AuditIntegrity(ctx))
	if again.ArchiveKey != "" {
		t.Fatalf("failed archive must leave the key empty, got %q", again.ArchiveKey)
	}
	if !logger.saw("e:archive integrity report failed") {
		t.Fatalf("archive failure not logged: %v", logger.calls)
	}
}

func TestAuditIntegrityReportsDrift(t *testing.T) {
	logger := &captureLogger{}
	f := newFixture(t, WithLogger(logger))
	driftSlot(t, f.svc.Store(), f.slot("09:00"), func(slot *domain.TimeSlot) {
		slot.Blocked = true
		slot.Available = true
	})
	res := mustOK(t, f.svc.AuditIntegrity(context.Background()))
	if res.Report.Healthy() || res.ArchiveKey != "" {
		t.Fatalf("unexpected audit %+v", res)
	}
	if !logger.saw("w:integrity audit found problems") {
		t.Fatalf("drift not logged: %v", logger.calls)
	}
}

func TestArchiveWithoutStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.ArchiveReport(ctx, IntegrityReport{}); err == nil {
		t.Fatalf("expected error without archive")
	}
	listed, err := f.svc.ArchivedReports(ctx)
	if err != nil || listed != nil {
		t.Fatalf("expected empty listing, got %v %v", listed, err)
	}
}

func TestStatsCountsCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "09:00", "Alex")
	f.clinic(t, "10:00", "11:00", 4)
	mustOK(t, f.svc.BlockSlot(ctx, domain.SlotID(f.court2.ID, testDate, "12:00"), "lights"))

	want := Stats{Courts: 2, TimeSlots: 8, BlockedSlots: 1, Reservations: 1, Clinics: 1, Coaches: 1, Users: 1}
	if got := f.svc.Stats(); got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestServicePublishesEvents(t *testing.T) {
	rec := events.NewRecorder()
	f := newFixture(t, WithPublisher(rec))
	ctx := context.Background()
	before := len(rec.Events())
	r := f.book(t, "09:00", "Alex")
	mustOK(t, f.svc.CancelReservation(ctx, r.ID))
	mustOK(t, f.svc.BlockSlot(ctx, f.slot("11:00"), "lights"))
	mustFail(t, f.svc.BlockSlot(ctx, "missing", "x"), domain.IsNotFound)

	got := rec.Types()[before:]
	want := []events.Type{events.ReservationCreated, events.ReservationCancelled, events.SlotBlocked}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if e := rec.Events()[before]; e.EntityID != r.ID {
		t.Fatalf("event carries entity %q, want %q", e.EntityID, r.ID)
	}
}

func TestServicePersistsMutations(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	svc := NewService(NewStore(backend))
	court := mustOK(t, svc.CreateCourt(ctx, domain.Court{Name: "Center"}))
	if backend.Saves() != 1 {
		t.Fatalf("expected one save, got %d", backend.Saves())
	}
	mustFail(t, svc.CreateCourt(ctx, domain.Court{}), domain.IsValidation)
	if backend.Saves() != 1 {
		t.Fatalf("failed operations must not persist")
	}
	_, _ = svc.SlotStatus("missing")
	if backend.Saves() != 1 {
		t.Fatalf("reads must not persist")
	}

	restored := NewStore(backend)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, err := restored.Courts.Get(court.ID); err != nil || got.Name != "Center" {
		t.Fatalf("restored court: %+v %v", got, err)
	}
}

type failingBackend struct{}

func (failingBackend) Load(context.Context) (domain.Snapshot, error) { return domain.Snapshot{}, nil }

func (failingBackend) Save(context.Context, domain.Snapshot) error {
	return errors.New("disk full")
}

func (failingBackend) Close() error { return nil }

func TestPersistFailureIsLoggedNotFatal(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	svc := NewService(NewStore(failingBackend{}), WithLogger(logger), WithMetricsRecorder(metrics))
	mustOK(t, svc.CreateCourt(context.Background(), domain.Court{Name: "Center"}))
	if !logger.saw("e:snapshot persistence failed") {
		t.Fatalf("persistence failure not logged: %v", logger.calls)
	}
	if !metrics.has("persist", false) {
		t.Fatalf("persistence failure not measured")
	}
	if svc.Store().Courts.Count() != 1 {
		t.Fatalf("in-memory state must survive a failed save")
	}
}

func TestRepairPersistsOnlyWhenChanged(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	metrics := NewExpvarMetricsRecorder("")
	svc := NewService(NewStore(backend), WithMetricsRecorder(metrics))
	court := mustOK(t, svc.CreateCourt(ctx, domain.Court{Name: "Center"}))
	mustOK(t, svc.GenerateSlots(ctx, testDay, 1))
	if backend.Saves() != 2 {
		t.Fatalf("expected two saves before repair, got %d", backend.Saves())
	}

	driftSlot(t, svc.Store(), domain.SlotID(court.ID, testDate, "09:00"), func(s *domain.TimeSlot) {
		s.Available = false
	})
	first := mustOK(t, svc.RepairConsistency(ctx, ConsistencyOptions{}))
	if first.Repaired != 1 || backend.Saves() != 3 {
		t.Fatalf("repair should fix one slot and save once: repaired=%d saves=%d", first.Repaired, backend.Saves())
	}
	second := mustOK(t, svc.RepairConsistency(ctx, ConsistencyOptions{}))
	if second.Changed() || backend.Saves() != 3 {
		t.Fatalf("a clean pass must not save: changed=%v saves=%d", second.Changed(), backend.Saves())
	}

	snap := metrics.Snapshot()
	if snap.RepairPasses != 2 || snap.SlotsFixed != 1 || snap.OrphansCancelled != 0 {
		t.Fatalf("unexpected repair counters %+v", snap)
	}
	if snap.SnapshotsSaved != 3 || snap.SnapshotsFailed != 0 {
		t.Fatalf("unexpected snapshot counters %+v", snap)
	}
}
