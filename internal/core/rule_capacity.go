package core

import (
	"context"
	"fmt"

	"courtcore/pkg/domain"
)

// NewClinicCapacityRule warns about clinics joined beyond their capacity.
func NewClinicCapacityRule() domain.Rule {
	return clinicCapacityRule{}
}

type clinicCapacityRule struct{}

func (clinicCapacityRule) Name() string { return RuleClinicCapacity }

func (clinicCapacityRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	seats := seatsBy(view, func(r domain.Reservation) string {
		if r.Type != domain.ReservationTypeClinic {
			return ""
		}
		return r.ClinicID
	})
	res := domain.Result{}
	for _, c := range view.ListClinics() {
		if taken := seats[c.ID]; taken > c.Capacity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleClinicCapacity,
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("clinic %s (%s) over capacity: %d/%d players", c.Name, c.ID, taken, c.Capacity),
				Entity:   domain.EntityClinic,
				EntityID: c.ID,
			})
		}
	}
	return res, nil
}

// NewSocialCapacityRule warns about open play events joined beyond capacity.
func NewSocialCapacityRule() domain.Rule {
	return socialCapacityRule{}
}

type socialCapacityRule struct{}

func (socialCapacityRule) Name() string { return RuleSocialCapacity }

func (socialCapacityRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	seats := seatsBy(view, func(r domain.Reservation) string {
		if r.Type != domain.ReservationTypeSocial {
			return ""
		}
		return r.SocialID
	})
	res := domain.Result{}
	for _, s := range view.ListSocials() {
		if taken := seats[s.ID]; taken > s.Capacity {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleSocialCapacity,
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("open play %s (%s) over capacity: %d/%d players", s.Name, s.ID, taken, s.Capacity),
				Entity:   domain.EntitySocial,
				EntityID: s.ID,
			})
		}
	}
	return res, nil
}

func seatsBy(view domain.RuleView, key func(domain.Reservation) string) map[string]int {
	out := make(map[string]int)
	for _, r := range view.ListReservations() {
		if !r.Active() {
			continue
		}
		if k := key(r); k != "" {
			out[k] += r.PlayerCount
		}
	}
	return out
}
