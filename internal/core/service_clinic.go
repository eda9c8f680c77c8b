package core

import (
	"context"
	"fmt"
	"slices"

	"courtcore/internal/events"
	"courtcore/internal/repository"
	"courtcore/pkg/domain"
)

var (
	opCreateClinic = operation{"create_clinic", domain.EntityClinic, domain.ActionCreate, events.ClinicCreated, true}
	opUpdateClinic = operation{"update_clinic", domain.EntityClinic, domain.ActionUpdate, events.ClinicUpdated, true}
	opDeleteClinic = operation{"delete_clinic", domain.EntityClinic, domain.ActionDelete, events.ClinicDeleted, true}
)

// CreateClinic stores input and tags every hourly slot of its window as a
// clinic slot, creating missing slots. A clinic overlapping another clinic
// or a private session on the same court is rejected.
func (s *Service) CreateClinic(ctx context.Context, input domain.Clinic) Outcome[domain.Clinic] {
	return run(ctx, s, opCreateClinic, func(context.Context) (domain.Clinic, string, error) {
		if err := domain.ValidateClinic(input, domain.StageCreate); err != nil {
			return domain.Clinic{}, "", err
		}
		if err := s.checkClinicRefs(input); err != nil {
			return domain.Clinic{}, "", err
		}
		ids, err := windowSlotIDs(input.CourtID, input.Date, input.StartTime, input.EndTime)
		if err != nil {
			return domain.Clinic{}, "", err
		}
		unlock := s.store.locks.Lock(append(ids, coachKey(input.CoachID))...)
		defer unlock()

		if err := s.checkClinicWindow(input, ""); err != nil {
			return domain.Clinic{}, "", err
		}
		created, err := s.store.Clinics.Create(input)
		if err != nil {
			return domain.Clinic{}, "", err
		}
		if _, err := s.occupyClinic(created, nil); err != nil {
			s.store.Clinics.Delete(created.ID)
			return domain.Clinic{}, created.ID, err
		}
		return created, created.ID, nil
	})
}

func (s *Service) checkClinicRefs(c domain.Clinic) error {
	if err := requireExists(s.store.Coaches.Exists(c.CoachID), domain.EntityCoach, c.CoachID); err != nil {
		return err
	}
	return requireExists(s.store.Courts.Exists(c.CourtID), domain.EntityCourt, c.CourtID)
}

// checkClinicWindow rejects c when its window collides with another clinic
// or a private session on the court, or with the coach's other bookings.
func (s *Service) checkClinicWindow(c domain.Clinic, excludeID string) error {
	if s.store.Clinics.HasTimeConflict(c.CourtID, c.Date, c.StartTime, c.EndTime, excludeID) {
		return domain.NewConflict(domain.EntityClinic, excludeID, fmt.Sprintf("clinic overlaps an existing clinic on court %s", c.CourtID))
	}
	if s.store.PrivateSessions.HasTimeConflict(c.CourtID, c.Date, c.StartTime, c.EndTime, "") {
		return domain.NewConflict(domain.EntityClinic, excludeID, fmt.Sprintf("clinic overlaps a private session on court %s", c.CourtID))
	}
	if s.store.PrivateSessions.CoachBusy(c.CoachID, c.Date, c.StartTime, c.EndTime, "") {
		return domain.NewConflict(domain.EntityClinic, excludeID, "coach has a private session at that time")
	}
	for _, other := range s.store.Clinics.FindByCoach(c.CoachID) {
		if other.ID != excludeID && other.Date == c.Date && domain.Overlaps(c.StartTime, c.EndTime, other.StartTime, other.EndTime) {
			return domain.NewConflict(domain.EntityClinic, excludeID, fmt.Sprintf("coach is leading clinic %s at that time", other.ID))
		}
	}
	return nil
}

// occupyClinic tags the slots of c's window. Slots in keep were already
// tagged before the call and are left alone when undoing a failed pass.
func (s *Service) occupyClinic(c domain.Clinic, keep []string) ([]string, error) {
	ids, err := s.store.slotsFor(c.CourtID, c.Date, c.StartTime, c.EndTime)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		if _, err := s.store.AssignClinic(id, c.ID); err != nil {
			for _, done := range ids[:i] {
				if !slices.Contains(keep, done) {
					_, _ = s.store.ClearClinic(done, c.ID)
				}
			}
			return nil, err
		}
	}
	return ids, nil
}

// UpdateClinic applies mutator to clinic id. When the window moves, the new
// slots are tagged, joined players follow the clinic and the old slots are
// re-derived. Capacity cannot drop below the seats already taken.
func (s *Service) UpdateClinic(ctx context.Context, id string, mutator func(*domain.Clinic) error) Outcome[domain.Clinic] {
	return run(ctx, s, opUpdateClinic, func(context.Context) (domain.Clinic, string, error) {
		current, err := s.store.Clinics.Get(id)
		if err != nil {
			return domain.Clinic{}, id, err
		}
		candidate := current
		if err := mutator(&candidate); err != nil {
			return domain.Clinic{}, id, err
		}
		candidate.Base = current.Base
		if err := domain.ValidateClinic(candidate, domain.StageCreate); err != nil {
			return domain.Clinic{}, id, err
		}
		if err := s.checkClinicRefs(candidate); err != nil {
			return domain.Clinic{}, id, err
		}
		oldIDs, err := windowSlotIDs(current.CourtID, current.Date, current.StartTime, current.EndTime)
		if err != nil {
			return domain.Clinic{}, id, err
		}
		newIDs, err := windowSlotIDs(candidate.CourtID, candidate.Date, candidate.StartTime, candidate.EndTime)
		if err != nil {
			return domain.Clinic{}, id, err
		}
		keys := []string{clinicKey(id), coachKey(current.CoachID), coachKey(candidate.CoachID)}
		unlock := s.store.locks.Lock(append(append(keys, oldIDs...), newIDs...)...)
		defer unlock()

		latest, err := s.store.Clinics.Get(id)
		if err != nil {
			return domain.Clinic{}, id, err
		}
		if latest.Window() != current.Window() {
			return domain.Clinic{}, id, domain.NewConflict(domain.EntityClinic, id, "clinic changed while updating, retry")
		}
		moved := candidate.Window() != current.Window()
		if moved || candidate.CoachID != current.CoachID {
			if err := s.checkClinicWindow(candidate, id); err != nil {
				return domain.Clinic{}, id, err
			}
		}
		joined := s.store.Reservations.FindByClinic(id)
		if taken := repository.SeatsTaken(joined); candidate.Capacity < taken {
			return domain.Clinic{}, id, domain.NewConflict(domain.EntityClinic, id, fmt.Sprintf("capacity %d is below the %d players already joined", candidate.Capacity, taken))
		}

		updated, err := s.store.Clinics.Update(id, func(c *domain.Clinic) error {
			*c = candidate
			return nil
		})
		if err != nil {
			return domain.Clinic{}, id, err
		}
		if !moved {
			return updated, id, nil
		}
		slotIDs, err := s.occupyClinic(updated, oldIDs)
		if err != nil {
			_, _ = s.store.Clinics.Update(id, func(c *domain.Clinic) error {
				*c = current
				return nil
			})
			return domain.Clinic{}, id, err
		}
		if err := s.moveJoins(joined, slotIDs[0]); err != nil {
			return domain.Clinic{}, id, err
		}
		for _, old := range oldIDs {
			if slices.Contains(slotIDs, old) {
				continue
			}
			if _, err := s.store.ClearClinic(old, id); err != nil && !domain.IsNotFound(err) {
				return domain.Clinic{}, id, err
			}
		}
		return updated, id, nil
	})
}

// moveJoins points the joined reservations at slotID.
func (s *Service) moveJoins(joined []domain.Reservation, slotID string) error {
	slot, err := s.store.TimeSlots.Get(slotID)
	if err != nil {
		return err
	}
	for _, r := range joined {
		if _, err := s.store.Reservations.Update(r.ID, func(res *domain.Reservation) error {
			res.TimeSlotID = slot.ID
			res.CourtID = slot.CourtID
			res.Date = slot.Date
			res.StartTime = slot.StartTime
			res.EndTime = slot.EndTime
			return nil
		}); err != nil {
			return fmt.Errorf("move reservation %s: %w", r.ID, err)
		}
	}
	return nil
}

// DeleteClinic cancels the clinic's joined reservations, removes it and
// re-derives its slots.
func (s *Service) DeleteClinic(ctx context.Context, id string) Outcome[domain.Clinic] {
	return run(ctx, s, opDeleteClinic, func(context.Context) (domain.Clinic, string, error) {
		clinic, err := s.store.Clinics.Get(id)
		if err != nil {
			return domain.Clinic{}, id, err
		}
		ids, err := windowSlotIDs(clinic.CourtID, clinic.Date, clinic.StartTime, clinic.EndTime)
		if err != nil {
			return domain.Clinic{}, id, err
		}
		unlock := s.store.locks.Lock(append(ids, clinicKey(id))...)
		defer unlock()

		cancelled, err := s.cancelAll(s.store.Reservations.FindByClinic(id))
		if err != nil {
			return domain.Clinic{}, id, err
		}
		if !s.store.Clinics.Delete(id) {
			return domain.Clinic{}, id, domain.NewNotFound(domain.EntityClinic, id)
		}
		for _, slot := range s.store.TimeSlots.FindByClinic(id) {
			if _, err := s.store.ClearClinic(slot.ID, id); err != nil {
				return domain.Clinic{}, id, err
			}
		}
		if cancelled > 0 {
			s.logger.Info("clinic reservations cancelled", "clinic_id", id, "count", cancelled)
		}
		return clinic, id, nil
	})
}

// cancelAll marks rs cancelled without touching their slots; callers
// re-derive the slots afterwards.
func (s *Service) cancelAll(rs []domain.Reservation) (int, error) {
	n := 0
	for _, r := range rs {
		if !r.Active() {
			continue
		}
		if _, err := s.store.Reservations.Update(r.ID, func(res *domain.Reservation) error {
			res.Status = domain.ReservationStatusCancelled
			return nil
		}); err != nil {
			return n, fmt.Errorf("cancel reservation %s: %w", r.ID, err)
		}
		n++
	}
	return n, nil
}

// GetClinic returns clinic id.
func (s *Service) GetClinic(id string) (domain.Clinic, error) {
	return s.store.Clinics.Get(id)
}

// ClinicsOn lists the clinics scheduled on date.
func (s *Service) ClinicsOn(date string) []domain.Clinic {
	return s.store.Clinics.FindByDate(date)
}
