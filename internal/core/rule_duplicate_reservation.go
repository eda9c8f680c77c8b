package core

import (
	"context"
	"fmt"
	"sort"

	"courtcore/pkg/domain"
)

// NewDuplicateReservationRule reports plain slots held by more than one
// active court booking.
func NewDuplicateReservationRule() domain.Rule {
	return duplicateReservationRule{}
}

type duplicateReservationRule struct{}

func (duplicateReservationRule) Name() string { return RuleDuplicateReservation }

func (duplicateReservationRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	plain := make(map[string][]string)
	for _, r := range view.ListReservations() {
		if r.Active() && r.Type == domain.ReservationTypeCourt {
			plain[r.TimeSlotID] = append(plain[r.TimeSlotID], r.ID)
		}
	}
	slotIDs := make([]string, 0, len(plain))
	for id, ids := range plain {
		if len(ids) > 1 {
			slotIDs = append(slotIDs, id)
		}
	}
	sort.Strings(slotIDs)

	res := domain.Result{}
	for _, id := range slotIDs {
		if slot, ok := view.FindTimeSlot(id); ok && (slot.Type == domain.SlotTypeClinic || slot.Type == domain.SlotTypeSocial) {
			continue
		}
		res.Violations = append(res.Violations, slotViolation(RuleDuplicateReservation, domain.SeverityBlock, id,
			fmt.Sprintf("time slot %s is double-booked by reservations %v", id, plain[id])))
	}
	return res, nil
}
