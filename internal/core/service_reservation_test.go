package core

import (
	"context"
	"sync"
	"testing"

	"courtcore/internal/repository"
	"courtcore/pkg/domain"
)

func TestCreateReservationTakesSlot(t *testing.T) {
	f := newFixture(t)
	r := f.book(t, "10:00", "Alex")
	if r.Type != domain.ReservationTypeCourt || r.Status != domain.ReservationStatusActive || r.PlayerCount != 1 {
		t.Fatalf("unexpected reservation %+v", r)
	}
	if r.CourtID != f.court.ID || r.Date != testDate || r.StartTime != "10:00" || r.EndTime != "11:00" {
		t.Fatalf("slot fields not copied: %+v", r)
	}
	slot := mustSlot(t, f.svc.Store(), f.slot("10:00"))
	if slot.Available || slot.Type != domain.SlotTypeReservation {
		t.Fatalf("slot not taken: %+v", slot)
	}
	mustStatus(t, f.svc.Store(), slot.ID, domain.SlotStatusReserved)

	byTime := mustOK(t, f.svc.CreateReservation(context.Background(), domain.Reservation{
		CourtID:     f.court.ID,
		Date:        testDate,
		StartTime:   "11:00",
		PlayerName:  "Jo",
		PlayerEmail: "jo@club.test",
		PlayerCount: 4,
	}))
	if byTime.TimeSlotID != f.slot("11:00") {
		t.Fatalf("expected slot resolved from court and time, got %s", byTime.TimeSlotID)
	}
}

func TestCreateReservationRejectsDoubleBooking(t *testing.T) {
	f := newFixture(t)
	f.book(t, "10:00", "Alex")
	mustFail(t, f.svc.CreateReservation(context.Background(), player(f.slot("10:00"), "Blair")), domain.IsConflict)
	if n := len(f.svc.Store().Reservations.FindActiveBySlot(f.slot("10:00"))); n != 1 {
		t.Fatalf("expected one active reservation, got %d", n)
	}
}

func TestCreateReservationConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := f.svc.CreateReservation(context.Background(), player(f.slot("12:00"), "Racer"))
			if out.Success {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if held := f.svc.Store().Locks().Held(); held != 0 {
		t.Fatalf("expected all locks released, %d still held", held)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustFail(t, f.svc.CreateReservation(ctx, domain.Reservation{PlayerName: "x", PlayerEmail: "x@club.test"}), domain.IsValidation)
	mustFail(t, f.svc.CreateReservation(ctx, domain.Reservation{TimeSlotID: f.slot("10:00"), PlayerName: "x", PlayerEmail: "not-an-email"}), domain.IsValidation)
	tooMany := player(f.slot("10:00"), "Crowd")
	tooMany.PlayerCount = 9
	mustFail(t, f.svc.CreateReservation(ctx, tooMany), domain.IsValidation)
	mustFail(t, f.svc.CreateReservation(ctx, player("missing-slot", "x")), domain.IsNotFound)

	clinicOnly := player(f.slot("10:00"), "x")
	clinicOnly.Type = domain.ReservationTypeClinic
	mustFail(t, f.svc.CreateReservation(ctx, clinicOnly), domain.IsConflict)

	mustStatus(t, f.svc.Store(), f.slot("10:00"), domain.SlotStatusAvailable)
	if f.svc.Store().Reservations.Count() != 0 {
		t.Fatalf("failed bookings must not leave reservations behind")
	}
}

func TestCreateReservationRejectsBlockedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustOK(t, f.svc.BlockSlot(ctx, f.slot("09:00"), "resurfacing"))
	mustFail(t, f.svc.CreateReservation(ctx, player(f.slot("09:00"), "Alex")), domain.IsConflict)
	mustStatus(t, f.svc.Store(), f.slot("09:00"), domain.SlotStatusBlocked)
}

func TestCancelReservationReleasesSlotOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "10:00", "Alex")

	cancelled := mustOK(t, f.svc.CancelReservation(ctx, r.ID))
	if cancelled.Status != domain.ReservationStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	slot := mustSlot(t, f.svc.Store(), f.slot("10:00"))
	if !slot.Available || slot.Type != domain.SlotTypeNone {
		t.Fatalf("slot not released: %+v", slot)
	}

	again := mustOK(t, f.svc.CancelReservation(ctx, r.ID))
	if again.Status != domain.ReservationStatusCancelled || !again.UpdatedAt.Equal(cancelled.UpdatedAt) {
		t.Fatalf("second cancel must be a no-op: %+v", again)
	}
	rebooked := f.book(t, "10:00", "Blair")
	if rebooked.TimeSlotID != r.TimeSlotID {
		t.Fatalf("expected released slot to be bookable")
	}
	mustFail(t, f.svc.CancelReservation(ctx, "missing"), domain.IsNotFound)
}

func TestCancelReservationKeepsBlockedSlotUnavailable(t *testing.T) {
	f := newFixture(t)
	r := f.book(t, "10:00", "Alex")
	// Drift: a block recorded next to an active booking.
	if _, err := f.svc.Store().TimeSlots.Update(r.TimeSlotID, func(s *domain.TimeSlot) error {
		s.Blocked = true
		return nil
	}); err != nil {
		t.Fatalf("force block: %v", err)
	}
	mustOK(t, f.svc.CancelReservation(context.Background(), r.ID))
	slot := mustSlot(t, f.svc.Store(), r.TimeSlotID)
	if slot.Available {
		t.Fatalf("blocked slot must stay unavailable after release")
	}
	mustStatus(t, f.svc.Store(), slot.ID, domain.SlotStatusBlocked)
}

func TestUpdateReservationFreezesBookingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "10:00", "Alex")

	updated := mustOK(t, f.svc.UpdateReservation(ctx, r.ID, func(res *domain.Reservation) error {
		res.PlayerName = "Alex Morgan"
		res.Comments = "bring balls"
		res.PlayerCount = 2
		return nil
	}))
	if updated.PlayerName != "Alex Morgan" || updated.PlayerCount != 2 {
		t.Fatalf("update not applied: %+v", updated)
	}

	mustFail(t, f.svc.UpdateReservation(ctx, r.ID, func(res *domain.Reservation) error {
		res.TimeSlotID = f.slot("11:00")
		return nil
	}), domain.IsValidation)
	mustFail(t, f.svc.UpdateReservation(ctx, r.ID, func(res *domain.Reservation) error {
		res.Status = domain.ReservationStatusCancelled
		return nil
	}), domain.IsValidation)
	mustFail(t, f.svc.UpdateReservation(ctx, r.ID, func(res *domain.Reservation) error {
		res.PlayerEmail = "broken"
		return nil
	}), domain.IsValidation)

	got, err := f.svc.GetReservation(r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TimeSlotID != r.TimeSlotID || !got.Active() || got.PlayerEmail != r.PlayerEmail {
		t.Fatalf("rejected updates leaked into the store: %+v", got)
	}
}

func TestDeleteReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, "10:00", "Alex")
	mustOK(t, f.svc.DeleteReservation(ctx, r.ID))
	if _, err := f.svc.GetReservation(r.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected reservation gone, got %v", err)
	}
	mustStatus(t, f.svc.Store(), r.TimeSlotID, domain.SlotStatusAvailable)
	mustFail(t, f.svc.DeleteReservation(ctx, r.ID), domain.IsNotFound)

	cancelled := f.book(t, "11:00", "Blair")
	mustOK(t, f.svc.CancelReservation(ctx, cancelled.ID))
	mustOK(t, f.svc.DeleteReservation(ctx, cancelled.ID))
	mustStatus(t, f.svc.Store(), cancelled.TimeSlotID, domain.SlotStatusAvailable)
}

func TestListReservationsPages(t *testing.T) {
	f := newFixture(t)
	for _, start := range []string{"09:00", "10:00", "11:00", "12:00"} {
		f.book(t, start, "Player "+start)
	}
	page, err := f.svc.ListReservations(nil, repository.PageRequest{Page: 1, Limit: 3, SortBy: repository.ReservationFieldSlot, Order: repository.Desc})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || len(page.Items) != 3 || !page.HasNext || page.TotalPages != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].StartTime != "12:00" {
		t.Fatalf("expected descending slot order, first is %s", page.Items[0].StartTime)
	}
	filtered, err := f.svc.ListReservations(func(r domain.Reservation) bool { return r.StartTime < "11:00" }, repository.PageRequest{})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if filtered.Total != 2 {
		t.Fatalf("expected 2 morning reservations, got %d", filtered.Total)
	}
	if _, err := f.svc.ListReservations(nil, repository.PageRequest{Order: "sideways"}); err == nil {
		t.Fatalf("expected invalid order error")
	}
}
