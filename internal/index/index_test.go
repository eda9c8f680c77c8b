package index_test

import (
	"fmt"
	"testing"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

const fieldDate index.Field = "date"

func slotIndex() *index.Index[domain.TimeSlot] {
	return index.New(func(s domain.TimeSlot) string { return s.ID }, index.Fields[domain.TimeSlot]{
		fieldDate: func(s domain.TimeSlot) string { return s.Date },
	})
}

func TestFindByDatePreservesInsertionOrder(t *testing.T) {
	idx := slotIndex()
	dates := []string{"2025-09-01", "2025-09-02", "2025-09-03"}
	var want []string
	for i := 0; i < 50; i++ {
		date := dates[i%3]
		s := domain.TimeSlot{Base: domain.Base{ID: fmt.Sprintf("s%02d", i)}, Date: date}
		idx.Add(s)
		if date == "2025-09-01" {
			want = append(want, s.ID)
		}
	}

	got := idx.Find(fieldDate, "2025-09-01")
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.ID != want[i] || s.Date != "2025-09-01" {
			t.Fatalf("position %d: got %s (%s), want %s", i, s.ID, s.Date, want[i])
		}
	}
	if keys := idx.Keys(fieldDate); len(keys) != 3 {
		t.Fatalf("expected 3 date keys, got %v", keys)
	}
}

func TestRemoveDropsEmptyBuckets(t *testing.T) {
	idx := slotIndex()
	a := domain.TimeSlot{Base: domain.Base{ID: "a"}, Date: "2025-09-01"}
	b := domain.TimeSlot{Base: domain.Base{ID: "b"}, Date: "2025-09-01"}
	idx.Add(a)
	idx.Add(b)

	before := idx.Find(fieldDate, "2025-09-01")
	idx.Remove(a)
	if got := idx.Find(fieldDate, "2025-09-01"); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected bucket after remove: %+v", got)
	}
	if len(before) != 2 {
		t.Fatalf("earlier results must not be mutated by removal")
	}
	idx.Remove(b)
	if keys := idx.Keys(fieldDate); len(keys) != 0 {
		t.Fatalf("empty bucket should be dropped, got keys %v", keys)
	}
	if got := idx.Find(index.FieldID, "b"); got != nil {
		t.Fatalf("expected id bucket removed, got %+v", got)
	}
	idx.Remove(b)
}

func TestFindUnknownFieldNeverFails(t *testing.T) {
	idx := slotIndex()
	if got := idx.Find("court", "1"); got != nil {
		t.Fatalf("unknown field should return empty result, got %+v", got)
	}
	if idx.Has("court") || !idx.Has(index.FieldID) || !idx.Has(fieldDate) {
		t.Fatalf("unexpected field registration")
	}
}

func TestRebuildReplacesContents(t *testing.T) {
	idx := slotIndex()
	idx.Add(domain.TimeSlot{Base: domain.Base{ID: "old"}, Date: "2025-01-01"})
	idx.Rebuild([]domain.TimeSlot{
		{Base: domain.Base{ID: "n1"}, Date: "2025-09-01"},
		{Base: domain.Base{ID: "n2"}, Date: "2025-09-01"},
	})
	if got := idx.Find(index.FieldID, "old"); got != nil {
		t.Fatalf("rebuild must drop previous entries")
	}
	if got := idx.Find(fieldDate, "2025-09-01"); len(got) != 2 || got[0].ID != "n1" {
		t.Fatalf("unexpected rebuilt bucket %+v", got)
	}
}
