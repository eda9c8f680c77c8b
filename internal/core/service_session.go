package core

import (
	"context"
	"fmt"

	"courtcore/internal/events"
	"courtcore/pkg/domain"
)

var (
	opBookSession   = operation{"book_private_session", domain.EntityPrivateSession, domain.ActionCreate, events.SessionBooked, true}
	opCancelSession = operation{"cancel_private_session", domain.EntityPrivateSession, domain.ActionDelete, events.SessionCancelled, true}
)

// BookPrivateSession stores a one-on-one session and reserves its slots as
// plain court bookings grouped under the session id.
func (s *Service) BookPrivateSession(ctx context.Context, input domain.PrivateSession) Outcome[domain.PrivateSession] {
	return run(ctx, s, opBookSession, func(context.Context) (domain.PrivateSession, string, error) {
		if err := domain.ValidatePrivateSession(input, domain.StageCreate); err != nil {
			return domain.PrivateSession{}, "", err
		}
		coach, err := s.store.Coaches.Get(input.CoachID)
		if err != nil {
			return domain.PrivateSession{}, "", err
		}
		user, err := s.store.Users.Get(input.UserID)
		if err != nil {
			return domain.PrivateSession{}, "", err
		}
		if err := requireExists(s.store.Courts.Exists(input.CourtID), domain.EntityCourt, input.CourtID); err != nil {
			return domain.PrivateSession{}, "", err
		}
		ids, err := windowSlotIDs(input.CourtID, input.Date, input.StartTime, input.EndTime)
		if err != nil {
			return domain.PrivateSession{}, "", err
		}
		unlock := s.store.locks.Lock(append(ids, coachKey(input.CoachID))...)
		defer unlock()

		if err := s.checkSessionWindow(input); err != nil {
			return domain.PrivateSession{}, "", err
		}
		if _, err := s.store.slotsFor(input.CourtID, input.Date, input.StartTime, input.EndTime); err != nil {
			return domain.PrivateSession{}, "", err
		}
		for _, id := range ids {
			slot, err := s.store.TimeSlots.Get(id)
			if err != nil {
				return domain.PrivateSession{}, "", err
			}
			if slot.Type != domain.SlotTypeNone {
				return domain.PrivateSession{}, "", slotConflict(id, "slot is already reserved")
			}
			if err := CanReserve(slot); err != nil {
				return domain.PrivateSession{}, "", err
			}
		}

		created, err := s.store.PrivateSessions.Create(input)
		if err != nil {
			return domain.PrivateSession{}, "", err
		}
		var booked []domain.Reservation
		for _, id := range ids {
			r, err := s.reserveForSession(created, coach, user, id)
			if err != nil {
				s.releaseSession(booked)
				s.store.PrivateSessions.Delete(created.ID)
				return domain.PrivateSession{}, created.ID, err
			}
			booked = append(booked, r)
		}
		return created, created.ID, nil
	})
}

func (s *Service) checkSessionWindow(p domain.PrivateSession) error {
	switch {
	case s.store.Clinics.HasTimeConflict(p.CourtID, p.Date, p.StartTime, p.EndTime, ""):
		return domain.NewConflict(domain.EntityPrivateSession, "", fmt.Sprintf("session overlaps a clinic on court %s", p.CourtID))
	case s.store.PrivateSessions.HasTimeConflict(p.CourtID, p.Date, p.StartTime, p.EndTime, ""):
		return domain.NewConflict(domain.EntityPrivateSession, "", fmt.Sprintf("session overlaps another private session on court %s", p.CourtID))
	case s.store.PrivateSessions.CoachBusy(p.CoachID, p.Date, p.StartTime, p.EndTime, ""):
		return domain.NewConflict(domain.EntityPrivateSession, "", "coach already has a private session at that time")
	}
	for _, c := range s.store.Clinics.FindByCoach(p.CoachID) {
		if c.Date == p.Date && domain.Overlaps(p.StartTime, p.EndTime, c.StartTime, c.EndTime) {
			return domain.NewConflict(domain.EntityPrivateSession, "", fmt.Sprintf("coach is leading clinic %s at that time", c.ID))
		}
	}
	return nil
}

func (s *Service) reserveForSession(p domain.PrivateSession, coach domain.Coach, user domain.User, slotID string) (domain.Reservation, error) {
	slot, err := s.store.TimeSlots.Get(slotID)
	if err != nil {
		return domain.Reservation{}, err
	}
	r, err := s.store.Reservations.Create(domain.Reservation{
		TimeSlotID:  slot.ID,
		CourtID:     slot.CourtID,
		Date:        slot.Date,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Type:        domain.ReservationTypeCourt,
		Status:      domain.ReservationStatusActive,
		GroupID:     p.ID,
		PlayerName:  user.Name,
		PlayerEmail: user.Email,
		PlayerPhone: user.Phone,
		PlayerCount: 1,
		Comments:    "private session with " + coach.Name,
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	if _, err := s.store.Reserve(slot.ID); err != nil {
		s.store.Reservations.Delete(r.ID)
		return domain.Reservation{}, err
	}
	return r, nil
}

func (s *Service) releaseSession(rs []domain.Reservation) {
	for _, r := range rs {
		s.store.Reservations.Delete(r.ID)
		if _, err := s.store.Release(r.TimeSlotID); err != nil && !domain.IsNotFound(err) {
			s.logger.Error("release session slot failed", "slot_id", r.TimeSlotID, "error", err)
		}
	}
}

// CancelPrivateSession cancels the session's reservations, frees its slots
// and removes the session.
func (s *Service) CancelPrivateSession(ctx context.Context, id string) Outcome[domain.PrivateSession] {
	return run(ctx, s, opCancelSession, func(context.Context) (domain.PrivateSession, string, error) {
		session, err := s.store.PrivateSessions.Get(id)
		if err != nil {
			return domain.PrivateSession{}, id, err
		}
		ids, err := windowSlotIDs(session.CourtID, session.Date, session.StartTime, session.EndTime)
		if err != nil {
			return domain.PrivateSession{}, id, err
		}
		unlock := s.store.locks.Lock(ids...)
		defer unlock()

		for _, r := range s.store.Reservations.FindByGroup(id) {
			if !r.Active() {
				continue
			}
			if _, err := s.cancelLocked(r); err != nil {
				return domain.PrivateSession{}, id, err
			}
		}
		if !s.store.PrivateSessions.Delete(id) {
			return domain.PrivateSession{}, id, domain.NewNotFound(domain.EntityPrivateSession, id)
		}
		return session, id, nil
	})
}

// SessionsForCoach lists the private sessions of coachID.
func (s *Service) SessionsForCoach(coachID string) []domain.PrivateSession {
	return s.store.PrivateSessions.FindByCoach(coachID)
}
