package core

import (
	"context"

	"github.com/google/uuid"

	"courtcore/internal/events"
	"courtcore/pkg/domain"
)

var (
	opCreateSocial = operation{"create_social", domain.EntitySocial, domain.ActionCreate, events.SocialCreated, true}
	opCancelSocial = operation{"cancel_social", domain.EntitySocial, domain.ActionDelete, events.SocialCancelled, true}
)

// CreateSocial stores an open play event and holds its window on every
// listed court under one group id. Players join with JoinSocial.
func (s *Service) CreateSocial(ctx context.Context, input domain.Social) Outcome[domain.Social] {
	return run(ctx, s, opCreateSocial, func(context.Context) (domain.Social, string, error) {
		if err := domain.ValidateSocial(input, domain.StageCreate); err != nil {
			return domain.Social{}, "", err
		}
		for _, courtID := range input.CourtIDs {
			if err := requireExists(s.store.Courts.Exists(courtID), domain.EntityCourt, courtID); err != nil {
				return domain.Social{}, "", err
			}
		}
		if input.HostUserID != "" {
			if err := requireExists(s.store.Users.Exists(input.HostUserID), domain.EntityUser, input.HostUserID); err != nil {
				return domain.Social{}, "", err
			}
		}
		if input.GroupID == "" {
			input.GroupID = uuid.NewString()
		}
		var keys []string
		for _, courtID := range input.CourtIDs {
			ids, err := windowSlotIDs(courtID, input.Date, input.StartTime, input.EndTime)
			if err != nil {
				return domain.Social{}, "", err
			}
			keys = append(keys, ids...)
		}
		unlock := s.store.locks.Lock(keys...)
		defer unlock()

		created, err := s.store.Socials.Create(input)
		if err != nil {
			return domain.Social{}, "", err
		}
		if err := s.holdSocial(created); err != nil {
			s.store.Socials.Delete(created.ID)
			return domain.Social{}, created.ID, err
		}
		return created, created.ID, nil
	})
}

func (s *Service) holdSocial(social domain.Social) error {
	var held []string
	for _, courtID := range social.CourtIDs {
		ids, err := s.store.slotsFor(courtID, social.Date, social.StartTime, social.EndTime)
		if err == nil {
			for _, id := range ids {
				if _, err = s.store.AssignSocial(id, social.ID); err != nil {
					break
				}
				held = append(held, id)
			}
		}
		if err != nil {
			for _, id := range held {
				_, _ = s.store.ClearSocial(id, social.ID)
			}
			return err
		}
	}
	return nil
}

// CancelSocial cancels every joined reservation, removes the event and
// releases its slots.
func (s *Service) CancelSocial(ctx context.Context, id string) Outcome[domain.Social] {
	return run(ctx, s, opCancelSocial, func(context.Context) (domain.Social, string, error) {
		social, err := s.store.Socials.Get(id)
		if err != nil {
			return domain.Social{}, id, err
		}
		keys := []string{socialKey(id)}
		for _, slot := range s.store.TimeSlots.FindBySocial(id) {
			keys = append(keys, slot.ID)
		}
		unlock := s.store.locks.Lock(keys...)
		defer unlock()

		if _, err := s.cancelAll(s.store.Reservations.FindBySocial(id)); err != nil {
			return domain.Social{}, id, err
		}
		if !s.store.Socials.Delete(id) {
			return domain.Social{}, id, domain.NewNotFound(domain.EntitySocial, id)
		}
		for _, slot := range s.store.TimeSlots.FindBySocial(id) {
			if _, err := s.store.ClearSocial(slot.ID, id); err != nil {
				return domain.Social{}, id, err
			}
		}
		return social, id, nil
	})
}

// SocialByGroup resolves an open play event from its group id.
func (s *Service) SocialByGroup(groupID string) (domain.Social, error) {
	social, ok := s.store.Socials.FindByGroup(groupID)
	if !ok {
		return domain.Social{}, domain.NewNotFound(domain.EntitySocial, groupID)
	}
	return social, nil
}
