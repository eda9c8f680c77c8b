package core

import (
	"context"
	"fmt"

	"courtcore/pkg/domain"
)

// NewSlotFlagMismatchRule compares stored slot flags with the derived ones.
// A blocked slot marked available is an error, any other drift a warning.
func NewSlotFlagMismatchRule() domain.Rule {
	return slotFlagMismatchRule{}
}

type slotFlagMismatchRule struct{}

func (slotFlagMismatchRule) Name() string { return RuleSlotFlagMismatch }

func (slotFlagMismatchRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	active := activeBySlot(view)
	for _, slot := range view.ListTimeSlots() {
		if slot.Blocked && slot.Available {
			res.Violations = append(res.Violations, slotViolation(RuleSlotFlagMismatch, domain.SeverityBlock, slot.ID,
				fmt.Sprintf("time slot %s is blocked and available at the same time", slot.ID)))
			continue
		}
		if slot.Blocked && slot.Type == domain.SlotTypeClinic {
			res.Violations = append(res.Violations, slotViolation(RuleSlotFlagMismatch, domain.SeverityWarn, slot.ID,
				fmt.Sprintf("time slot %s is blocked but still tagged for clinic %s", slot.ID, slot.ClinicID)))
			continue
		}
		want := ExpectedFlags(slot, observeIn(view, slot, active))
		if got := FlagsOf(slot); got != want {
			res.Violations = append(res.Violations, slotViolation(RuleSlotFlagMismatch, domain.SeverityWarn, slot.ID,
				fmt.Sprintf("time slot %s has available=%t type=%q, expected available=%t type=%q",
					slot.ID, got.Available, got.Type, want.Available, want.Type)))
		}
	}
	return res, nil
}
