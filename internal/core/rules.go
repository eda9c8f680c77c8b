package core

import (
	"courtcore/pkg/domain"
)

// Integrity rule names.
const (
	RuleOrphanedReservation  = "orphaned_reservation"
	RuleSlotFlagMismatch     = "slot_flag_mismatch"
	RuleDuplicateReservation = "duplicate_reservation"
	RuleClinicSlotUnresolved = "clinic_slot_unresolved"
	RuleSocialSlotUnresolved = "social_slot_unresolved"
	RuleClinicCapacity       = "clinic_capacity"
	RuleSocialCapacity       = "social_capacity"
)

// NewIntegrityRulesEngine builds the engine used by ValidateDataIntegrity.
func NewIntegrityRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewOrphanedReservationRule())
	engine.Register(NewSlotFlagMismatchRule())
	engine.Register(NewDuplicateReservationRule())
	engine.Register(NewClinicSlotUnresolvedRule())
	engine.Register(NewSocialSlotUnresolvedRule())
	engine.Register(NewClinicCapacityRule())
	engine.Register(NewSocialCapacityRule())
	return engine
}

// activeBySlot groups the active reservations of view by slot id.
func activeBySlot(view domain.RuleView) map[string][]domain.Reservation {
	out := make(map[string][]domain.Reservation)
	for _, r := range view.ListReservations() {
		if r.Active() {
			out[r.TimeSlotID] = append(out[r.TimeSlotID], r)
		}
	}
	return out
}

func observeIn(view domain.RuleView, slot domain.TimeSlot, active map[string][]domain.Reservation) SlotObservation {
	obs := SlotObservation{ActiveReservations: len(active[slot.ID])}
	if slot.ClinicID != "" {
		_, obs.ClinicResolves = view.FindClinic(slot.ClinicID)
	}
	if slot.SocialID != "" {
		_, obs.SocialResolves = view.FindSocial(slot.SocialID)
	}
	return obs
}

func slotViolation(rule string, sev domain.Severity, slotID, msg string) domain.Violation {
	return domain.Violation{Rule: rule, Severity: sev, Message: msg, Entity: domain.EntityTimeSlot, EntityID: slotID}
}
