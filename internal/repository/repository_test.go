package repository_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"courtcore/internal/cache"
	"courtcore/internal/repository"
	"courtcore/pkg/domain"
)

var fixedNow = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func clock() repository.Option {
	return repository.WithClock(func() time.Time { return fixedNow })
}

func slot(court, date, start, end string) domain.TimeSlot {
	return domain.TimeSlot{CourtID: court, Date: date, StartTime: start, EndTime: end, Available: true}
}

func reservation(slotID string) domain.Reservation {
	return domain.Reservation{
		TimeSlotID:  slotID,
		CourtID:     "1",
		Date:        "2025-09-01",
		StartTime:   "10:00",
		EndTime:     "11:00",
		Type:        domain.ReservationTypeCourt,
		Status:      domain.ReservationStatusActive,
		PlayerName:  "Ana",
		PlayerEmail: "ana@example.com",
		PlayerCount: 2,
	}
}

func TestCreateFindByIDRoundTrip(t *testing.T) {
	repo := repository.NewCourts(clock())
	input := domain.Court{Name: "Center", Location: "north", Indoor: true}

	created, err := repo.Create(input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || !created.CreatedAt.Equal(fixedNow) || !created.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected generated id and timestamps, got %+v", created.Base)
	}

	got, ok := repo.FindByID(created.ID)
	if !ok {
		t.Fatalf("expected court %s to be found", created.ID)
	}
	want := input
	want.Base = created.Base
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestCreateRejectsInvalidInputWithoutWriting(t *testing.T) {
	repo := repository.NewClinics()
	_, err := repo.Create(domain.Clinic{Name: "Drills", CoachID: "c1", CourtID: "1", Date: "2025-09-01", StartTime: "12:00", EndTime: "10:00", Capacity: 4, PriceCents: -1})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected end_time and price failures, got %v", verr.Messages())
	}
	if repo.Count() != 0 {
		t.Fatalf("failed create must not write")
	}
}

func TestSlotIDsAreDeterministic(t *testing.T) {
	repo := repository.NewTimeSlots()
	created, err := repo.Create(slot("1", "2025-09-01", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if created.ID != "1-2025-09-01-10" {
		t.Fatalf("unexpected slot id %q", created.ID)
	}
	_, err = repo.Create(slot("1", "2025-09-01", "10:00", "11:00"))
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for duplicate slot, got %v", err)
	}
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	repo := repository.NewCourts()
	_, err := repo.Update("missing", func(c *domain.Court) error { c.Name = "x"; return nil })
	if !domain.IsNotFound(err) || domain.IsValidation(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUpdateReindexesAndKeepsIdentity(t *testing.T) {
	calls := 0
	repo := repository.NewCourts(repository.WithClock(func() time.Time {
		calls++
		return fixedNow.Add(time.Duration(calls) * time.Minute)
	}))
	created, err := repo.Create(domain.Court{Name: "A", Location: "north"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := repo.Update(created.ID, func(c *domain.Court) error {
		c.Location = "south"
		c.ID = "hijack"
		c.CreatedAt = time.Time{}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("identity fields must not change: %+v", updated.Base)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected update timestamp to advance")
	}
	if got := repo.FindByLocation("north"); len(got) != 0 {
		t.Fatalf("stale index entry for old location: %+v", got)
	}
	if got := repo.FindByLocation("south"); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("expected reindexed court, got %+v", got)
	}
}

func TestUpdateRejectsInvalidMerge(t *testing.T) {
	repo := repository.NewTimeSlots()
	created, err := repo.Create(slot("1", "2025-09-01", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	_, err = repo.Update(created.ID, func(s *domain.TimeSlot) error {
		s.Blocked = true
		return nil
	})
	if !domain.IsValidation(err) {
		t.Fatalf("blocked and available together must be rejected, got %v", err)
	}
	stored, _ := repo.FindByID(created.ID)
	if stored.Blocked || !stored.Available {
		t.Fatalf("rejected update must not be applied: %+v", stored)
	}

	sentinel := errors.New("stop")
	if _, err := repo.Update(created.ID, func(*domain.TimeSlot) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected mutator error to propagate, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := repository.NewCourts()
	created, _ := repo.Create(domain.Court{Name: "A"})
	if !repo.Delete(created.ID) {
		t.Fatalf("first delete should remove the court")
	}
	if repo.Delete(created.ID) {
		t.Fatalf("second delete should report nothing removed")
	}
	if _, ok := repo.FindByID(created.ID); ok {
		t.Fatalf("deleted court must not be served from cache")
	}
	if got := repo.FindByField("id", created.ID); len(got) != 0 {
		t.Fatalf("deleted court must leave the index")
	}
}

func TestCacheNeverServesStaleData(t *testing.T) {
	for _, cfg := range []cache.Config{{}, {Size: -1}, {Size: 1}} {
		t.Run(fmt.Sprintf("size=%d", cfg.Size), func(t *testing.T) {
			repo := repository.NewCourts(repository.WithCache(cfg))
			a, _ := repo.Create(domain.Court{Name: "A"})
			b, _ := repo.Create(domain.Court{Name: "B"})
			if got, _ := repo.FindByID(a.ID); got.Name != "A" {
				t.Fatalf("unexpected court %+v", got)
			}
			if _, err := repo.Update(a.ID, func(c *domain.Court) error { c.Name = "A2"; return nil }); err != nil {
				t.Fatalf("update: %v", err)
			}
			if got, _ := repo.FindByID(a.ID); got.Name != "A2" {
				t.Fatalf("expected fresh read after update, got %+v", got)
			}
			if got, _ := repo.FindByID(b.ID); got.Name != "B" {
				t.Fatalf("unexpected court %+v", got)
			}
		})
	}
}

func TestReturnedRecordsDoNotAliasStorage(t *testing.T) {
	repo := repository.NewReservations()
	in := reservation("1-2025-09-01-10")
	in.Participants = []string{"Ana", "Bo"}
	created, err := repo.Create(in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	in.Participants[0] = "caller"
	created.Participants[1] = "mutated"

	got, _ := repo.FindByID(created.ID)
	if got.Participants[0] != "Ana" || got.Participants[1] != "Bo" {
		t.Fatalf("stored participants were aliased: %v", got.Participants)
	}
}

func TestFindWithPagination(t *testing.T) {
	repo := repository.NewTimeSlots()
	for day := 1; day <= 5; day++ {
		for hour := 10; hour < 15; hour++ {
			start := fmt.Sprintf("%02d:00", hour)
			end := fmt.Sprintf("%02d:00", hour+1)
			if _, err := repo.Create(slot("1", fmt.Sprintf("2025-09-%02d", day), start, end)); err != nil {
				t.Fatalf("create slot: %v", err)
			}
		}
	}

	page, err := repo.FindWithPagination(func(s domain.TimeSlot) bool { return s.StartTime < "14:00" }, repository.PageRequest{
		Page: 2, Limit: 6, SortBy: repository.SlotFieldDate, Order: repository.Desc,
	})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if page.Total != 20 || page.TotalPages != 4 || len(page.Items) != 6 {
		t.Fatalf("unexpected page metadata %+v", page)
	}
	if !page.HasNext || !page.HasPrev {
		t.Fatalf("middle page should have neighbours: %+v", page)
	}
	if first := page.Items[0]; first.Date != "2025-09-04" || first.StartTime != "11:00" {
		t.Fatalf("unexpected first item on page 2: %s %s", first.Date, first.StartTime)
	}

	last, _ := repo.FindWithPagination(nil, repository.PageRequest{Page: 9, Limit: 10})
	if len(last.Items) != 0 || last.HasNext || !last.HasPrev {
		t.Fatalf("page past the end should be empty: %+v", last)
	}

	if _, err := repo.FindWithPagination(nil, repository.PageRequest{SortBy: "color"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown sort field, got %v", err)
	}
}

func TestBulkOperationsReportWarnings(t *testing.T) {
	repo := repository.NewCourts()
	res := repo.CreateMany([]domain.Court{{Name: "A"}, {}, {Name: "C"}})
	if len(res.Items) != 2 || len(res.Warnings) != 1 || res.OK() {
		t.Fatalf("expected partial success, got %+v", res)
	}
	if w := res.Warnings[0]; w.Index != 1 || !domain.IsValidation(w.Err) {
		t.Fatalf("unexpected warning %+v", w)
	}

	upd := repo.UpdateMany([]repository.Patch[domain.Court]{
		{ID: res.Items[0].ID, Mutate: func(c *domain.Court) error { c.Indoor = true; return nil }},
		{ID: "missing", Mutate: func(*domain.Court) error { return nil }},
		{ID: res.Items[1].ID},
		{ID: res.Items[1].ID, Mutate: func(c *domain.Court) error { c.Name = "Renamed"; return nil }},
	})
	if len(upd.Items) != 2 || len(upd.Warnings) != 2 || !domain.IsNotFound(upd.Warnings[0].Err) {
		t.Fatalf("unexpected update result %+v", upd)
	}
	if w := upd.Warnings[1]; w.Index != 2 || !domain.IsValidation(w.Err) {
		t.Fatalf("patch without mutator must be skipped as invalid, got %+v", w)
	}

	del := repo.DeleteMany([]string{res.Items[0].ID, "missing", res.Items[1].ID})
	if len(del.Items) != 2 || len(del.Warnings) != 1 || del.Warnings[0].ID != "missing" {
		t.Fatalf("unexpected delete result %+v", del)
	}
	if msgs := del.Messages(); len(msgs) != 1 {
		t.Fatalf("expected one warning message, got %v", msgs)
	}
	if repo.Count() != 0 {
		t.Fatalf("expected empty repository, got %d", repo.Count())
	}
}

func TestLoadReplacesContentsAndIndex(t *testing.T) {
	repo := repository.NewTimeSlots()
	old, _ := repo.Create(slot("1", "2025-08-01", "10:00", "11:00"))
	_, _ = repo.FindByID(old.ID)

	loaded := slot("2", "2025-09-01", "10:00", "11:00")
	loaded.ID = "2-2025-09-01-10"
	loaded.CreatedAt = fixedNow
	repo.Load([]domain.TimeSlot{loaded})

	if _, ok := repo.FindByID(old.ID); ok {
		t.Fatalf("load must purge previous records and cache")
	}
	if got := repo.FindByCourt("2"); len(got) != 1 || got[0].ID != loaded.ID {
		t.Fatalf("expected rebuilt index, got %+v", got)
	}
	if snap := repo.Snapshot(); len(snap) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
