package core

import (
	"context"
	"fmt"

	"courtcore/pkg/domain"
)

// NewOrphanedReservationRule reports reservations whose slot does not exist.
// Active orphans are errors; cancelled ones are warnings.
func NewOrphanedReservationRule() domain.Rule {
	return orphanedReservationRule{}
}

type orphanedReservationRule struct{}

func (orphanedReservationRule) Name() string { return RuleOrphanedReservation }

func (orphanedReservationRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	for _, r := range view.ListReservations() {
		if _, ok := view.FindTimeSlot(r.TimeSlotID); ok {
			continue
		}
		sev := domain.SeverityBlock
		if !r.Active() {
			sev = domain.SeverityWarn
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleOrphanedReservation,
			Severity: sev,
			Message:  fmt.Sprintf("reservation %s references missing time slot %s", r.ID, r.TimeSlotID),
			Entity:   domain.EntityReservation,
			EntityID: r.ID,
		})
	}
	return res, nil
}
