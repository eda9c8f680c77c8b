package core

import (
	"context"
	"fmt"
	"sync"

	"courtcore/internal/repository"
	"courtcore/pkg/domain"
)

// Store owns every repository of the booking domain, the per-slot lock table
// and the optional durable snapshot backend. It implements domain.RuleView.
type Store struct {
	Courts          *repository.Courts
	TimeSlots       *repository.TimeSlots
	Reservations    *repository.Reservations
	Clinics         *repository.Clinics
	Coaches         *repository.Coaches
	Users           *repository.Users
	Socials         *repository.Socials
	PrivateSessions *repository.PrivateSessions

	locks     *KeyLock
	backend   domain.SnapshotBackend
	persistMu sync.Mutex
}

var _ domain.RuleView = (*Store)(nil)

// NewStore constructs empty repositories. backend may be nil for a purely
// in-memory store.
func NewStore(backend domain.SnapshotBackend, opts ...repository.Option) *Store {
	return &Store{
		Courts:          repository.NewCourts(opts...),
		TimeSlots:       repository.NewTimeSlots(opts...),
		Reservations:    repository.NewReservations(opts...),
		Clinics:         repository.NewClinics(opts...),
		Coaches:         repository.NewCoaches(opts...),
		Users:           repository.NewUsers(opts...),
		Socials:         repository.NewSocials(opts...),
		PrivateSessions: repository.NewPrivateSessions(opts...),
		locks:           NewKeyLock(),
		backend:         backend,
	}
}

// Locks exposes the per-slot lock table.
func (s *Store) Locks() *KeyLock {
	return s.locks
}

// ListTimeSlots implements domain.RuleView.
func (s *Store) ListTimeSlots() []domain.TimeSlot { return s.TimeSlots.FindAll() }

// ListReservations implements domain.RuleView.
func (s *Store) ListReservations() []domain.Reservation { return s.Reservations.FindAll() }

// ListClinics implements domain.RuleView.
func (s *Store) ListClinics() []domain.Clinic { return s.Clinics.FindAll() }

// ListSocials implements domain.RuleView.
func (s *Store) ListSocials() []domain.Social { return s.Socials.FindAll() }

// FindTimeSlot implements domain.RuleView.
func (s *Store) FindTimeSlot(id string) (domain.TimeSlot, bool) { return s.TimeSlots.FindByID(id) }

// FindClinic implements domain.RuleView.
func (s *Store) FindClinic(id string) (domain.Clinic, bool) { return s.Clinics.FindByID(id) }

// FindSocial implements domain.RuleView.
func (s *Store) FindSocial(id string) (domain.Social, bool) { return s.Socials.FindByID(id) }

// Export copies every collection in insertion order.
func (s *Store) Export() domain.Snapshot {
	return domain.Snapshot{
		Courts:          s.Courts.Snapshot(),
		TimeSlots:       s.TimeSlots.Snapshot(),
		Reservations:    s.Reservations.Snapshot(),
		Clinics:         s.Clinics.Snapshot(),
		Coaches:         s.Coaches.Snapshot(),
		Users:           s.Users.Snapshot(),
		Socials:         s.Socials.Snapshot(),
		PrivateSessions: s.PrivateSessions.Snapshot(),
	}
}

// Import replaces every collection with snap without re-validating it. Run
// EnsureDataConsistency afterwards to repair drift carried in by the data.
func (s *Store) Import(snap domain.Snapshot) {
	s.Courts.Load(snap.Courts)
	s.TimeSlots.Load(snap.TimeSlots)
	s.Reservations.Load(snap.Reservations)
	s.Clinics.Load(snap.Clinics)
	s.Coaches.Load(snap.Coaches)
	s.Users.Load(snap.Users)
	s.Socials.Load(snap.Socials)
	s.PrivateSessions.Load(snap.PrivateSessions)
}

// Restore loads the backend snapshot into the store. It is a no-op without a backend.
func (s *Store) Restore(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.Import(snap)
	return nil
}

// Persist writes the current state to the backend. Concurrent calls are
// serialized so the last completed save reflects the latest state.
func (s *Store) Persist(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.backend.Save(ctx, s.Export()); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// activeOn returns the active reservations holding slotID.
func (s *Store) activeOn(slotID string) []domain.Reservation {
	return s.Reservations.FindActiveBySlot(slotID)
}

// observe gathers the inputs of DeriveStatus for slot.
func (s *Store) observe(slot domain.TimeSlot) SlotObservation {
	obs := SlotObservation{ActiveReservations: len(s.activeOn(slot.ID))}
	if slot.ClinicID != "" {
		obs.ClinicResolves = s.Clinics.Exists(slot.ClinicID)
	}
	if slot.SocialID != "" {
		obs.SocialResolves = s.Socials.Exists(slot.SocialID)
	}
	return obs
}
