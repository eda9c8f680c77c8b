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
	opCreateReservation = operation{"create_reservation", domain.EntityReservation, domain.ActionCreate, events.ReservationCreated, true}
	opUpdateReservation = operation{"update_reservation", domain.EntityReservation, domain.ActionUpdate, events.ReservationUpdated, true}
	opCancelReservation = operation{"cancel_reservation", domain.EntityReservation, domain.ActionUpdate, events.ReservationCancelled, true}
	opDeleteReservation = operation{"delete_reservation", domain.EntityReservation, domain.ActionDelete, events.ReservationDeleted, true}
	opJoinClinic        = operation{"join_clinic", domain.EntityReservation, domain.ActionCreate, events.ReservationCreated, true}
	opJoinSocial        = operation{"join_social", domain.EntityReservation, domain.ActionCreate, events.ReservationCreated, true}
)

// CreateReservation books the slot referenced by input.TimeSlotID, or the
// slot at input's court, date and start time. Booking a clinic or open play
// slot joins that clinic or event and counts against its capacity.
func (s *Service) CreateReservation(ctx context.Context, input domain.Reservation) Outcome[domain.Reservation] {
	return run(ctx, s, opCreateReservation, func(context.Context) (domain.Reservation, string, error) {
		created, err := s.book(input)
		return created, created.ID, err
	})
}

// JoinClinic books input's players into clinicID.
func (s *Service) JoinClinic(ctx context.Context, clinicID string, input domain.Reservation) Outcome[domain.Reservation] {
	return run(ctx, s, opJoinClinic, func(context.Context) (domain.Reservation, string, error) {
		clinic, err := s.store.Clinics.Get(clinicID)
		if err != nil {
			return domain.Reservation{}, "", err
		}
		ids, err := windowSlotIDs(clinic.CourtID, clinic.Date, clinic.StartTime, clinic.EndTime)
		if err != nil {
			return domain.Reservation{}, "", err
		}
		input.TimeSlotID = ids[0]
		input.Type = domain.ReservationTypeClinic
		created, err := s.book(input)
		return created, created.ID, err
	})
}

// JoinSocial books input's players into the open play event socialID.
func (s *Service) JoinSocial(ctx context.Context, socialID string, input domain.Reservation) Outcome[domain.Reservation] {
	return run(ctx, s, opJoinSocial, func(context.Context) (domain.Reservation, string, error) {
		social, err := s.store.Socials.Get(socialID)
		if err != nil {
			return domain.Reservation{}, "", err
		}
		ids, err := windowSlotIDs(social.CourtIDs[0], social.Date, social.StartTime, social.EndTime)
		if err != nil {
			return domain.Reservation{}, "", err
		}
		input.TimeSlotID = ids[0]
		input.Type = domain.ReservationTypeSocial
		created, err := s.book(input)
		return created, created.ID, err
	})
}

// lockSlot acquires slotID together with the clinic or social key of the
// slot, so joins of one clinic serialize even when they target different
// hours. The slot is re-read under the lock; a tag change in between is
// reported as a conflict.
func (s *Service) lockSlot(slotID string) (domain.TimeSlot, func(), error) {
	peek, err := s.store.TimeSlots.Get(slotID)
	if err != nil {
		return domain.TimeSlot{}, nil, err
	}
	keys := []string{slotID}
	if peek.ClinicID != "" {
		keys = append(keys, clinicKey(peek.ClinicID))
	}
	if peek.SocialID != "" {
		keys = append(keys, socialKey(peek.SocialID))
	}
	unlock := s.store.locks.Lock(keys...)
	slot, err := s.store.TimeSlots.Get(slotID)
	if err != nil {
		unlock()
		return domain.TimeSlot{}, nil, err
	}
	if slot.ClinicID != peek.ClinicID || slot.SocialID != peek.SocialID {
		unlock()
		return domain.TimeSlot{}, nil, slotConflict(slotID, "slot changed while booking, retry")
	}
	return slot, unlock, nil
}

func (s *Service) book(input domain.Reservation) (domain.Reservation, error) {
	slotID := input.TimeSlotID
	if slotID == "" && input.CourtID != "" && input.Date != "" && input.StartTime != "" {
		slotID = domain.SlotID(input.CourtID, input.Date, input.StartTime)
	}
	if slotID == "" {
		return domain.Reservation{}, &domain.ValidationError{
			Entity: domain.EntityReservation,
			Fields: []domain.FieldError{{Field: "time_slot_id", Message: "is required"}},
		}
	}
	slot, unlock, err := s.lockSlot(slotID)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer unlock()

	r := domain.CloneReservation(input)
	r.TimeSlotID = slot.ID
	r.CourtID = slot.CourtID
	r.Date = slot.Date
	r.StartTime = slot.StartTime
	r.EndTime = slot.EndTime
	r.Status = domain.ReservationStatusActive
	if r.PlayerCount == 0 {
		r.PlayerCount = 1
	}
	switch slot.Type {
	case domain.SlotTypeClinic:
		if r.Type == domain.ReservationTypeSocial {
			return domain.Reservation{}, slotConflict(slot.ID, "slot belongs to a clinic")
		}
		r.Type = domain.ReservationTypeClinic
		r.ClinicID = slot.ClinicID
		r.SocialID = ""
	case domain.SlotTypeSocial:
		if r.Type == domain.ReservationTypeClinic {
			return domain.Reservation{}, slotConflict(slot.ID, "slot is held by an open play event")
		}
		social, err := s.store.Socials.Get(slot.SocialID)
		if err != nil {
			return domain.Reservation{}, err
		}
		r.Type = domain.ReservationTypeSocial
		r.SocialID = social.ID
		r.GroupID = social.GroupID
		r.ClinicID = ""
	default:
		if r.Type.Shared() {
			return domain.Reservation{}, slotConflict(slot.ID, fmt.Sprintf("slot is not part of a %s", r.Type))
		}
		r.Type = domain.ReservationTypeCourt
		r.ClinicID = ""
		r.SocialID = ""
	}
	if err := domain.ValidateReservation(r, domain.StageCreate); err != nil {
		return domain.Reservation{}, err
	}
	if err := CanReserve(slot); err != nil {
		return domain.Reservation{}, err
	}
	if err := s.checkCapacity(r, ""); err != nil {
		return domain.Reservation{}, err
	}

	created, err := s.store.Reservations.Create(r)
	if err != nil {
		return domain.Reservation{}, err
	}
	if _, err := s.store.Reserve(slot.ID); err != nil {
		s.store.Reservations.Delete(created.ID)
		return domain.Reservation{}, err
	}
	return created, nil
}

// checkCapacity rejects r when its clinic or open play event cannot seat
// r's players. excludeID skips the stored version of r on updates.
func (s *Service) checkCapacity(r domain.Reservation, excludeID string) error {
	var (
		entity   domain.EntityType
		id       string
		capacity int
		joined   []domain.Reservation
	)
	switch r.Type {
	case domain.ReservationTypeClinic:
		clinic, err := s.store.Clinics.Get(r.ClinicID)
		if err != nil {
			return err
		}
		entity, id, capacity = domain.EntityClinic, clinic.ID, clinic.Capacity
		joined = s.store.Reservations.FindByClinic(clinic.ID)
	case domain.ReservationTypeSocial:
		social, err := s.store.Socials.Get(r.SocialID)
		if err != nil {
			return err
		}
		entity, id, capacity = domain.EntitySocial, social.ID, social.Capacity
		joined = s.store.Reservations.FindBySocial(social.ID)
	default:
		return nil
	}
	joined = slices.DeleteFunc(joined, func(other domain.Reservation) bool { return other.ID == excludeID })
	taken := repository.SeatsTaken(joined)
	if taken+r.PlayerCount > capacity {
		return domain.NewConflict(entity, id, fmt.Sprintf("only %d of %d places left", max(capacity-taken, 0), capacity))
	}
	return nil
}

// lockReservation reads id and acquires the locks of its slot.
func (s *Service) lockReservation(id string) (domain.Reservation, func(), error) {
	peek, err := s.store.Reservations.Get(id)
	if err != nil {
		return domain.Reservation{}, nil, err
	}
	keys := []string{peek.TimeSlotID}
	if peek.ClinicID != "" {
		keys = append(keys, clinicKey(peek.ClinicID))
	}
	if peek.SocialID != "" {
		keys = append(keys, socialKey(peek.SocialID))
	}
	unlock := s.store.locks.Lock(keys...)
	current, err := s.store.Reservations.Get(id)
	if err != nil {
		unlock()
		return domain.Reservation{}, nil, err
	}
	return current, unlock, nil
}

// UpdateReservation applies mutator to the player details of reservation id.
// The slot, type, links and status are fixed once booked; use
// CancelReservation to release a booking.
func (s *Service) UpdateReservation(ctx context.Context, id string, mutator func(*domain.Reservation) error) Outcome[domain.Reservation] {
	return run(ctx, s, opUpdateReservation, func(context.Context) (domain.Reservation, string, error) {
		current, unlock, err := s.lockReservation(id)
		if err != nil {
			return domain.Reservation{}, id, err
		}
		defer unlock()

		candidate := domain.CloneReservation(current)
		if err := mutator(&candidate); err != nil {
			return domain.Reservation{}, id, err
		}
		if err := frozenReservationFields(current, candidate); err != nil {
			return domain.Reservation{}, id, err
		}
		if candidate.Active() && candidate.PlayerCount > current.PlayerCount {
			if err := s.checkCapacity(candidate, id); err != nil {
				return domain.Reservation{}, id, err
			}
		}
		updated, err := s.store.Reservations.Update(id, func(r *domain.Reservation) error {
			*r = candidate
			return nil
		})
		return updated, id, err
	})
}

func frozenReservationFields(before, after domain.Reservation) error {
	verr := &domain.ValidationError{Entity: domain.EntityReservation}
	check := func(field string, changed bool) {
		if changed {
			verr.Fields = append(verr.Fields, domain.FieldError{Field: field, Message: "cannot be changed"})
		}
	}
	check("time_slot_id", before.TimeSlotID != after.TimeSlotID)
	check("court_id", before.CourtID != after.CourtID)
	check("date", before.Date != after.Date)
	check("start_time", before.StartTime != after.StartTime || before.EndTime != after.EndTime)
	check("type", before.Type != after.Type)
	check("clinic_id", before.ClinicID != after.ClinicID)
	check("social_id", before.SocialID != after.SocialID)
	check("group_id", before.GroupID != after.GroupID)
	check("status", before.Status != after.Status)
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// CancelReservation marks reservation id cancelled and releases its slot.
// Cancelling twice is a no-op.
func (s *Service) CancelReservation(ctx context.Context, id string) Outcome[domain.Reservation] {
	return run(ctx, s, opCancelReservation, func(context.Context) (domain.Reservation, string, error) {
		current, unlock, err := s.lockReservation(id)
		if err != nil {
			return domain.Reservation{}, id, err
		}
		defer unlock()
		if !current.Active() {
			return current, id, nil
		}
		cancelled, err := s.cancelLocked(current)
		return cancelled, id, err
	})
}

// cancelLocked cancels r and releases its slot, restoring r when the
// release fails. The caller holds the slot lock.
func (s *Service) cancelLocked(r domain.Reservation) (domain.Reservation, error) {
	cancelled, err := s.store.Reservations.Update(r.ID, func(res *domain.Reservation) error {
		res.Status = domain.ReservationStatusCancelled
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	if _, err := s.store.Release(r.TimeSlotID); err != nil && !domain.IsNotFound(err) {
		_, _ = s.store.Reservations.Update(r.ID, func(res *domain.Reservation) error {
			res.Status = r.Status
			return nil
		})
		return domain.Reservation{}, err
	}
	return cancelled, nil
}

// DeleteReservation removes reservation id and re-derives its slot.
func (s *Service) DeleteReservation(ctx context.Context, id string) Outcome[domain.Reservation] {
	return run(ctx, s, opDeleteReservation, func(context.Context) (domain.Reservation, string, error) {
		current, unlock, err := s.lockReservation(id)
		if err != nil {
			return domain.Reservation{}, id, err
		}
		defer unlock()
		if !s.store.Reservations.Delete(id) {
			return domain.Reservation{}, id, domain.NewNotFound(domain.EntityReservation, id)
		}
		if !current.Active() {
			return current, id, nil
		}
		if _, err := s.store.Release(current.TimeSlotID); err != nil && !domain.IsNotFound(err) {
			if _, restoreErr := s.store.Reservations.Create(current); restoreErr != nil {
				s.logger.Error("restore reservation failed", "reservation_id", id, "error", restoreErr)
			}
			return domain.Reservation{}, id, err
		}
		return current, id, nil
	})
}

// GetReservation returns reservation id.
func (s *Service) GetReservation(id string) (domain.Reservation, error) {
	return s.store.Reservations.Get(id)
}

// ListReservations pages through the reservations matching pred.
func (s *Service) ListReservations(pred func(domain.Reservation) bool, req repository.PageRequest) (repository.Page[domain.Reservation], error) {
	return s.store.Reservations.FindWithPagination(pred, req)
}
