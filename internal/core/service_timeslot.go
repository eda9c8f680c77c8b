package core

import (
	"context"
	"time"

	"courtcore/internal/events"
	"courtcore/pkg/domain"
)

var (
	opBlockSlot     = operation{"block_slot", domain.EntityTimeSlot, domain.ActionUpdate, events.SlotBlocked, true}
	opUnblockSlot   = operation{"unblock_slot", domain.EntityTimeSlot, domain.ActionUpdate, events.SlotUnblocked, true}
	opGenerateSlots = operation{"generate_slots", domain.EntityTimeSlot, domain.ActionCreate, events.SlotsGenerated, true}
	opPurgeSlots    = operation{"purge_slots", domain.EntityTimeSlot, domain.ActionDelete, events.SlotsPurged, true}
	opRemoveSlot    = operation{"remove_slot", domain.EntityTimeSlot, domain.ActionDelete, events.SlotsPurged, true}
)

// BlockSlot takes slotID out of service.
func (s *Service) BlockSlot(ctx context.Context, slotID, reason string) Outcome[domain.TimeSlot] {
	return run(ctx, s, opBlockSlot, func(context.Context) (domain.TimeSlot, string, error) {
		unlock := s.store.locks.Lock(slotID)
		defer unlock()
		slot, err := s.store.Block(slotID, reason)
		return slot, slotID, err
	})
}

// UnblockSlot returns slotID to service.
func (s *Service) UnblockSlot(ctx context.Context, slotID string) Outcome[domain.TimeSlot] {
	return run(ctx, s, opUnblockSlot, func(context.Context) (domain.TimeSlot, string, error) {
		unlock := s.store.locks.Lock(slotID)
		defer unlock()
		slot, err := s.store.Unblock(slotID)
		return slot, slotID, err
	})
}

// GenerateSlots creates the missing slots for days dates starting at from
// using the configured operating hours.
func (s *Service) GenerateSlots(ctx context.Context, from time.Time, days int) Outcome[GenerateResult] {
	return run(ctx, s, opGenerateSlots, func(context.Context) (GenerateResult, string, error) {
		if days < 1 {
			return GenerateResult{}, "", &domain.ValidationError{
				Entity: domain.EntityTimeSlot,
				Fields: []domain.FieldError{{Field: "days", Message: "must be at least 1"}},
			}
		}
		res, err := s.store.GenerateSlots(s.hours, from, days)
		if err == nil {
			s.logger.Info("slots generated", "from", from.Format(domain.DateLayout), "days", days, "created", len(res.Created), "existing", res.Existing)
		}
		return res, from.Format(domain.DateLayout), err
	})
}

// PurgeRange removes the free slots dated within [from, to].
func (s *Service) PurgeRange(ctx context.Context, from, to string) Outcome[PurgeResult] {
	return run(ctx, s, opPurgeSlots, func(context.Context) (PurgeResult, string, error) {
		verr := &domain.ValidationError{Entity: domain.EntityTimeSlot}
		fromDate, errFrom := domain.ParseDate(from)
		toDate, errTo := domain.ParseDate(to)
		if errFrom != nil {
			verr.Fields = append(verr.Fields, domain.FieldError{Field: "from", Message: "must be a YYYY-MM-DD date"})
		}
		if errTo != nil {
			verr.Fields = append(verr.Fields, domain.FieldError{Field: "to", Message: "must be a YYYY-MM-DD date"})
		}
		if errFrom == nil && errTo == nil && toDate.Before(fromDate) {
			verr.Fields = append(verr.Fields, domain.FieldError{Field: "to", Message: "must not be before from"})
		}
		if len(verr.Fields) > 0 {
			return PurgeResult{}, "", verr
		}
		res := s.store.PurgeSlots(from, to)
		if len(res.Kept) > 0 {
			s.logger.Info("occupied slots kept during purge", "kept", len(res.Kept))
		}
		return res, from + ".." + to, nil
	})
}

// RemoveSlot deletes a single free slot.
func (s *Service) RemoveSlot(ctx context.Context, slotID string) Outcome[string] {
	return run(ctx, s, opRemoveSlot, func(context.Context) (string, string, error) {
		return slotID, slotID, s.store.RemoveSlot(slotID)
	})
}

// AvailableSlots lists the bookable slots on date.
func (s *Service) AvailableSlots(date string) []domain.TimeSlot {
	return s.store.TimeSlots.FindAvailable(date)
}

// SlotsOn lists every slot of courtID on date.
func (s *Service) SlotsOn(courtID, date string) []domain.TimeSlot {
	return s.store.TimeSlots.FindByCourtAndDate(courtID, date)
}

// SlotStatus derives the status of slotID.
func (s *Service) SlotStatus(slotID string) (domain.SlotStatus, error) {
	return s.store.Status(slotID)
}
