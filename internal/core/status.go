package core

import (
	"fmt"

	"courtcore/pkg/domain"
)

// SlotObservation holds the facts a slot's status is derived from.
type SlotObservation struct {
	ClinicResolves     bool
	SocialResolves     bool
	ActiveReservations int
}

// SlotFlags are the stored fields the engine keeps in line with the derived status.
type SlotFlags struct {
	Available bool            `json:"available"`
	Type      domain.SlotType `json:"type,omitempty"`
	ClinicID  string          `json:"clinic_id,omitempty"`
	SocialID  string          `json:"social_id,omitempty"`
}

// FlagsOf reads the stored flags of slot.
func FlagsOf(slot domain.TimeSlot) SlotFlags {
	return SlotFlags{Available: slot.Available, Type: slot.Type, ClinicID: slot.ClinicID, SocialID: slot.SocialID}
}

func (f SlotFlags) apply(slot *domain.TimeSlot) {
	slot.Available = f.Available
	slot.Type = f.Type
	slot.ClinicID = f.ClinicID
	slot.SocialID = f.SocialID
}

// DeriveStatus computes the canonical status of slot. When drift leaves
// several conditions present the precedence is blocked, clinic, reserved
// (open play or booking), available.
func DeriveStatus(slot domain.TimeSlot, obs SlotObservation) domain.SlotStatus {
	switch {
	case slot.Blocked:
		return domain.SlotStatusBlocked
	case slot.Type == domain.SlotTypeClinic && obs.ClinicResolves:
		return domain.SlotStatusClinic
	case slot.Type == domain.SlotTypeSocial && obs.SocialResolves:
		return domain.SlotStatusReserved
	case obs.ActiveReservations > 0:
		return domain.SlotStatusReserved
	default:
		return domain.SlotStatusAvailable
	}
}

// ExpectedFlags returns the flags slot should carry given obs. Tags pointing
// at missing clinics or socials are dropped, and a blocked slot is never
// available.
func ExpectedFlags(slot domain.TimeSlot, obs SlotObservation) SlotFlags {
	unblocked := slot
	unblocked.Blocked = false
	var f SlotFlags
	switch DeriveStatus(unblocked, obs) {
	case domain.SlotStatusClinic:
		f = SlotFlags{Available: true, Type: domain.SlotTypeClinic, ClinicID: slot.ClinicID}
	case domain.SlotStatusReserved:
		if slot.Type == domain.SlotTypeSocial && obs.SocialResolves {
			f = SlotFlags{Type: domain.SlotTypeSocial, SocialID: slot.SocialID}
		} else {
			f = SlotFlags{Type: domain.SlotTypeReservation}
		}
	default:
		f = SlotFlags{Available: true}
	}
	if slot.Blocked {
		f.Available = false
	}
	return f
}

// Status derives the current status of slotID.
func (s *Store) Status(slotID string) (domain.SlotStatus, error) {
	slot, err := s.TimeSlots.Get(slotID)
	if err != nil {
		return "", err
	}
	return DeriveStatus(slot, s.observe(slot)), nil
}

// The transitions below are guarded repository updates. Guards read the
// reservation, clinic and social repositories from inside the slot update so
// the check and the write happen in one critical section of the slot
// collection. Nothing else acquires locks in that order in reverse.

func slotConflict(slotID, reason string) error {
	return domain.NewConflict(domain.EntityTimeSlot, slotID, reason)
}

// Block takes slotID out of service. It is refused while the slot holds a
// reservation, a clinic or an open play event.
func (s *Store) Block(slotID, reason string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		switch slot.Type {
		case domain.SlotTypeClinic:
			return slotConflict(slotID, "cannot block a clinic slot")
		case domain.SlotTypeSocial:
			return slotConflict(slotID, "cannot block a slot held by an open play event")
		}
		if len(s.activeOn(slotID)) > 0 {
			return slotConflict(slotID, "cannot block a slot with an existing reservation")
		}
		slot.Blocked = true
		slot.Available = false
		slot.BlockReason = reason
		return nil
	})
}

// Unblock returns slotID to service and re-derives its availability.
func (s *Store) Unblock(slotID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		slot.Blocked = false
		slot.BlockReason = ""
		ExpectedFlags(*slot, s.observe(*slot)).apply(slot)
		return nil
	})
}

// CanReserve checks the Reserve guard without writing.
func CanReserve(slot domain.TimeSlot) error {
	if slot.Blocked {
		return slotConflict(slot.ID, "slot is blocked")
	}
	switch slot.Type {
	case domain.SlotTypeClinic, domain.SlotTypeSocial:
		return nil
	}
	if !slot.Available {
		return slotConflict(slot.ID, "slot is already reserved")
	}
	return nil
}

// Reserve marks slotID as taken by a plain booking. Clinic and open play
// slots accept several bookings and keep their flags; their capacity is
// checked by the services.
func (s *Store) Reserve(slotID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		if err := CanReserve(*slot); err != nil {
			return err
		}
		switch slot.Type {
		case domain.SlotTypeClinic, domain.SlotTypeSocial:
			return nil
		}
		slot.Available = false
		slot.Type = domain.SlotTypeReservation
		return nil
	})
}

// Release re-opens slotID after a reservation was cancelled or deleted. A
// blocked slot stays unavailable and remaining active bookings keep it taken.
func (s *Store) Release(slotID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		remaining := len(s.activeOn(slotID))
		if slot.Type == domain.SlotTypeReservation && remaining == 0 {
			slot.Type = domain.SlotTypeNone
		}
		switch {
		case slot.Blocked:
			slot.Available = false
		case slot.Type == domain.SlotTypeSocial:
			slot.Available = false
		case slot.Type == domain.SlotTypeClinic:
			slot.Available = true
		default:
			slot.Available = remaining == 0
		}
		return nil
	})
}

// AssignClinic tags slotID as part of clinicID. Clinic slots stay available
// so players can join.
func (s *Store) AssignClinic(slotID, clinicID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		if slot.Blocked {
			return slotConflict(slotID, "cannot create clinic on a blocked time slot")
		}
		switch {
		case slot.Type == domain.SlotTypeClinic && slot.ClinicID != clinicID:
			return slotConflict(slotID, fmt.Sprintf("court hour %s already belongs to clinic %s", slot.StartTime, slot.ClinicID))
		case slot.Type == domain.SlotTypeSocial:
			return slotConflict(slotID, "cannot create clinic on a time slot held by an open play event")
		}
		for _, r := range s.activeOn(slotID) {
			if r.ClinicID != clinicID {
				return slotConflict(slotID, "cannot create clinic on a time slot with existing reservation")
			}
		}
		slot.Type = domain.SlotTypeClinic
		slot.ClinicID = clinicID
		slot.SocialID = ""
		slot.Available = true
		return nil
	})
}

// ClearClinic removes the clinicID tag from slotID and re-derives its flags.
// Slots tagged with another clinic are left alone.
func (s *Store) ClearClinic(slotID, clinicID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		if slot.Type != domain.SlotTypeClinic || slot.ClinicID != clinicID {
			return nil
		}
		slot.Type = domain.SlotTypeNone
		slot.ClinicID = ""
		ExpectedFlags(*slot, s.observe(*slot)).apply(slot)
		return nil
	})
}

// AssignSocial holds slotID for the open play event socialID.
func (s *Store) AssignSocial(slotID, socialID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		if slot.Blocked {
			return slotConflict(slotID, "slot is blocked")
		}
		switch {
		case slot.Type == domain.SlotTypeClinic:
			return slotConflict(slotID, "slot belongs to a clinic")
		case slot.Type == domain.SlotTypeSocial && slot.SocialID != socialID:
			return slotConflict(slotID, "slot is held by another open play event")
		}
		for _, r := range s.activeOn(slotID) {
			if r.SocialID != socialID {
				return slotConflict(slotID, "slot is already reserved")
			}
		}
		slot.Type = domain.SlotTypeSocial
		slot.SocialID = socialID
		slot.ClinicID = ""
		slot.Available = false
		return nil
	})
}

// ClearSocial releases slotID from socialID and re-derives its flags.
func (s *Store) ClearSocial(slotID, socialID string) (domain.TimeSlot, error) {
	return s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		if slot.Type != domain.SlotTypeSocial || slot.SocialID != socialID {
			return nil
		}
		slot.Type = domain.SlotTypeNone
		slot.SocialID = ""
		ExpectedFlags(*slot, s.observe(*slot)).apply(slot)
		return nil
	})
}
