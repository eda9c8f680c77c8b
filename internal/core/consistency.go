package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtcore/pkg/domain"
)

// ConsistencyOptions tunes EnsureDataConsistency.
type ConsistencyOptions struct {
	// RepairOrphans cancels active reservations whose slot no longer exists.
	RepairOrphans bool
}

// SlotFix records one repaired slot.
type SlotFix struct {
	SlotID string    `json:"slot_id"`
	Before SlotFlags `json:"before"`
	After  SlotFlags `json:"after"`
}

// ConsistencyReport summarises a consistency pass.
type ConsistencyReport struct {
	Scanned          int       `json:"scanned"`
	Repaired         int       `json:"repaired"`
	Fixes            []SlotFix `json:"fixes,omitempty"`
	CancelledOrphans []string  `json:"cancelled_orphans,omitempty"`
	Failures         []string  `json:"failures,omitempty"`
}

// Changed reports whether the pass wrote anything.
func (r ConsistencyReport) Changed() bool {
	return r.Repaired > 0 || len(r.CancelledOrphans) > 0
}

// EnsureDataConsistency re-derives the flags of every slot from the current
// reservations, clinics and socials and rewrites the slots that drifted.
// Each slot is repaired under its own lock. A pass over consistent data
// writes nothing. The returned error joins individual repair failures; the
// report is complete either way.
func (s *Store) EnsureDataConsistency(_ context.Context, opts ConsistencyOptions) (ConsistencyReport, error) {
	var (
		report ConsistencyReport
		errs   []error
	)
	for _, slot := range s.TimeSlots.FindAll() {
		report.Scanned++
		fix, err := s.repairSlot(slot.ID)
		if err != nil {
			errs = append(errs, err)
			report.Failures = append(report.Failures, err.Error())
			continue
		}
		if fix != nil {
			report.Repaired++
			report.Fixes = append(report.Fixes, *fix)
		}
	}
	if opts.RepairOrphans {
		cancelled, err := s.cancelOrphans()
		report.CancelledOrphans = cancelled
		if err != nil {
			errs = append(errs, err)
			report.Failures = append(report.Failures, err.Error())
		}
	}
	return report, errors.Join(errs...)
}

func (s *Store) repairSlot(slotID string) (*SlotFix, error) {
	unlock := s.locks.Lock(slotID)
	defer unlock()

	current, ok := s.TimeSlots.FindByID(slotID)
	if !ok {
		return nil, nil
	}
	want := ExpectedFlags(current, s.observe(current))
	if FlagsOf(current) == want {
		return nil, nil
	}
	fix := &SlotFix{SlotID: slotID, Before: FlagsOf(current), After: want}
	if _, err := s.TimeSlots.Update(slotID, func(slot *domain.TimeSlot) error {
		want.apply(slot)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("repair slot %s: %w", slotID, err)
	}
	return fix, nil
}

func (s *Store) cancelOrphans() ([]string, error) {
	var (
		cancelled []string
		errs      []error
	)
	for _, r := range s.Reservations.FindMany(func(r domain.Reservation) bool { return r.Active() }) {
		if s.TimeSlots.Exists(r.TimeSlotID) {
			continue
		}
		if _, err := s.Reservations.Update(r.ID, func(res *domain.Reservation) error {
			res.Status = domain.ReservationStatusCancelled
			return nil
		}); err != nil {
			errs = append(errs, fmt.Errorf("cancel orphan %s: %w", r.ID, err))
			continue
		}
		cancelled = append(cancelled, r.ID)
	}
	return cancelled, errors.Join(errs...)
}

// IntegrityReport is the read-only audit of the booking data. Errors are
// blocking violations, Warnings are tolerated drift.
type IntegrityReport struct {
	CheckedAt time.Time          `json:"checked_at"`
	Rules     []string           `json:"rules"`
	Slots     int                `json:"slots"`
	Bookings  int                `json:"reservations"`
	Errors    []domain.Violation `json:"errors"`
	Warnings  []domain.Violation `json:"warnings"`
	Notes     []domain.Violation `json:"notes,omitempty"`
}

// Healthy reports whether the audit found no errors.
func (r IntegrityReport) Healthy() bool {
	return len(r.Errors) == 0
}

// ValidateDataIntegrity runs engine against the store and partitions the
// violations by severity. Data problems never surface as an error; a failing
// rule is reported as an error-level violation.
func (s *Store) ValidateDataIntegrity(ctx context.Context, engine *domain.RulesEngine, now time.Time) IntegrityReport {
	if engine == nil {
		engine = NewIntegrityRulesEngine()
	}
	report := IntegrityReport{
		CheckedAt: now,
		Rules:     engine.Rules(),
		Slots:     s.TimeSlots.Count(),
		Bookings:  s.Reservations.Count(),
		Errors:    []domain.Violation{},
		Warnings:  []domain.Violation{},
	}
	res, err := engine.Evaluate(ctx, s)
	if err != nil {
		report.Errors = append(report.Errors, domain.Violation{
			Rule:     "rules_engine",
			Severity: domain.SeverityBlock,
			Message:  err.Error(),
		})
		return report
	}
	report.Errors = append(report.Errors, res.BySeverity(domain.SeverityBlock)...)
	report.Warnings = append(report.Warnings, res.BySeverity(domain.SeverityWarn)...)
	report.Notes = res.BySeverity(domain.SeverityLog)
	return report
}
