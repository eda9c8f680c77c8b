package core

import (
	"context"
	"fmt"

	"courtcore/pkg/domain"
)

var (
	opCreateCourt = operation{name: "create_court", entity: domain.EntityCourt, action: domain.ActionCreate, mutates: true}
	opUpdateCourt = operation{name: "update_court", entity: domain.EntityCourt, action: domain.ActionUpdate, mutates: true}
	opDeleteCourt = operation{name: "delete_court", entity: domain.EntityCourt, action: domain.ActionDelete, mutates: true}
	opCreateCoach = operation{name: "create_coach", entity: domain.EntityCoach, action: domain.ActionCreate, mutates: true}
	opUpdateCoach = operation{name: "update_coach", entity: domain.EntityCoach, action: domain.ActionUpdate, mutates: true}
	opDeleteCoach = operation{name: "delete_coach", entity: domain.EntityCoach, action: domain.ActionDelete, mutates: true}
	opCreateUser  = operation{name: "create_user", entity: domain.EntityUser, action: domain.ActionCreate, mutates: true}
	opUpdateUser  = operation{name: "update_user", entity: domain.EntityUser, action: domain.ActionUpdate, mutates: true}
	opDeleteUser  = operation{name: "delete_user", entity: domain.EntityUser, action: domain.ActionDelete, mutates: true}
)

// CreateCourt persists a new court. Slots are generated separately.
func (s *Service) CreateCourt(ctx context.Context, court domain.Court) Outcome[domain.Court] {
	return run(ctx, s, opCreateCourt, func(context.Context) (domain.Court, string, error) {
		created, err := s.store.Courts.Create(court)
		return created, created.ID, err
	})
}

// UpdateCourt mutates a court.
func (s *Service) UpdateCourt(ctx context.Context, id string, mutator func(*domain.Court) error) Outcome[domain.Court] {
	return run(ctx, s, opUpdateCourt, func(context.Context) (domain.Court, string, error) {
		updated, err := s.store.Courts.Update(id, mutator)
		return updated, id, err
	})
}

// DeleteCourt removes a court that no longer has slots, clinics or sessions.
func (s *Service) DeleteCourt(ctx context.Context, id string) Outcome[domain.Court] {
	return run(ctx, s, opDeleteCourt, func(context.Context) (domain.Court, string, error) {
		court, err := s.store.Courts.Get(id)
		if err != nil {
			return domain.Court{}, id, err
		}
		switch {
		case len(s.store.TimeSlots.FindByCourt(id)) > 0:
			return domain.Court{}, id, domain.NewConflict(domain.EntityCourt, id, "court still has time slots, purge them first")
		case len(s.store.Clinics.FindByCourt(id)) > 0:
			return domain.Court{}, id, domain.NewConflict(domain.EntityCourt, id, "court still has clinics")
		}
		s.store.Courts.Delete(id)
		return court, id, nil
	})
}

// CreateCoach persists a new coach. Email and phone must be unused.
func (s *Service) CreateCoach(ctx context.Context, coach domain.Coach) Outcome[domain.Coach] {
	return run(ctx, s, opCreateCoach, func(context.Context) (domain.Coach, string, error) {
		created, err := s.store.Coaches.Create(coach)
		return created, created.ID, err
	})
}

// UpdateCoach mutates a coach.
func (s *Service) UpdateCoach(ctx context.Context, id string, mutator func(*domain.Coach) error) Outcome[domain.Coach] {
	return run(ctx, s, opUpdateCoach, func(context.Context) (domain.Coach, string, error) {
		updated, err := s.store.Coaches.Update(id, mutator)
		return updated, id, err
	})
}

// DeleteCoach removes a coach without scheduled clinics or sessions.
func (s *Service) DeleteCoach(ctx context.Context, id string) Outcome[domain.Coach] {
	return run(ctx, s, opDeleteCoach, func(context.Context) (domain.Coach, string, error) {
		coach, err := s.store.Coaches.Get(id)
		if err != nil {
			return domain.Coach{}, id, err
		}
		if n := len(s.store.Clinics.FindByCoach(id)); n > 0 {
			return domain.Coach{}, id, domain.NewConflict(domain.EntityCoach, id, fmt.Sprintf("coach leads %d clinic(s)", n))
		}
		if n := len(s.store.PrivateSessions.FindByCoach(id)); n > 0 {
			return domain.Coach{}, id, domain.NewConflict(domain.EntityCoach, id, fmt.Sprintf("coach has %d private session(s)", n))
		}
		s.store.Coaches.Delete(id)
		return coach, id, nil
	})
}

// CreateUser persists a new member. The role defaults to member.
func (s *Service) CreateUser(ctx context.Context, user domain.User) Outcome[domain.User] {
	return run(ctx, s, opCreateUser, func(context.Context) (domain.User, string, error) {
		if user.Role == "" {
			user.Role = domain.RoleMember
		}
		created, err := s.store.Users.Create(user)
		return created, created.ID, err
	})
}

// UpdateUser mutates a member.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*domain.User) error) Outcome[domain.User] {
	return run(ctx, s, opUpdateUser, func(context.Context) (domain.User, string, error) {
		updated, err := s.store.Users.Update(id, mutator)
		return updated, id, err
	})
}

// DeleteUser removes a member without private sessions.
func (s *Service) DeleteUser(ctx context.Context, id string) Outcome[domain.User] {
	return run(ctx, s, opDeleteUser, func(context.Context) (domain.User, string, error) {
		user, err := s.store.Users.Get(id)
		if err != nil {
			return domain.User{}, id, err
		}
		if n := len(s.store.PrivateSessions.FindByUser(id)); n > 0 {
			return domain.User{}, id, domain.NewConflict(domain.EntityUser, id, fmt.Sprintf("user has %d private session(s)", n))
		}
		s.store.Users.Delete(id)
		return user, id, nil
	})
}

// CoachByEmail looks a coach up by email, case-insensitively.
func (s *Service) CoachByEmail(email string) (domain.Coach, bool) {
	return s.store.Coaches.FindByEmail(email)
}

// UserByEmail looks a member up by email, case-insensitively.
func (s *Service) UserByEmail(email string) (domain.User, bool) {
	return s.store.Users.FindByEmail(email)
}
