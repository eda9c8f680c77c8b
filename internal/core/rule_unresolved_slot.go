package core

import (
	"context"
	"fmt"

	"courtcore/pkg/domain"
)

// NewClinicSlotUnresolvedRule reports clinic slots whose clinic is missing.
func NewClinicSlotUnresolvedRule() domain.Rule {
	return unresolvedSlotRule{
		name:     RuleClinicSlotUnresolved,
		slotType: domain.SlotTypeClinic,
		owner:    func(s domain.TimeSlot) string { return s.ClinicID },
		resolves: func(v domain.RuleView, id string) bool { _, ok := v.FindClinic(id); return ok },
	}
}

// NewSocialSlotUnresolvedRule reports open play slots whose event is missing.
func NewSocialSlotUnresolvedRule() domain.Rule {
	return unresolvedSlotRule{
		name:     RuleSocialSlotUnresolved,
		slotType: domain.SlotTypeSocial,
		owner:    func(s domain.TimeSlot) string { return s.SocialID },
		resolves: func(v domain.RuleView, id string) bool { _, ok := v.FindSocial(id); return ok },
	}
}

type unresolvedSlotRule struct {
	name     string
	slotType domain.SlotType
	owner    func(domain.TimeSlot) string
	resolves func(domain.RuleView, string) bool
}

func (r unresolvedSlotRule) Name() string { return r.name }

func (r unresolvedSlotRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	for _, slot := range view.ListTimeSlots() {
		if slot.Type != r.slotType {
			continue
		}
		id := r.owner(slot)
		if id != "" && r.resolves(view, id) {
			continue
		}
		res.Violations = append(res.Violations, slotViolation(r.name, domain.SeverityBlock, slot.ID,
			fmt.Sprintf("time slot %s is tagged %s but %q does not resolve", slot.ID, r.slotType, id)))
	}
	return res, nil
}
