package core

import (
	"errors"
	"fmt"
	"time"

	"courtcore/pkg/domain"
)

// GenerateResult lists the slots a generation run created.
type GenerateResult struct {
	Created  []string `json:"created"`
	Existing int      `json:"existing"`
}

// GenerateSlots creates the missing hourly slots of every court for days
// consecutive dates starting at from, following hours. Existing slots are
// left untouched so repeated runs only fill gaps.
func (s *Store) GenerateSlots(hours domain.OperatingHours, from time.Time, days int) (GenerateResult, error) {
	var (
		res  GenerateResult
		errs []error
	)
	courts := s.Courts.FindAll()
	for d := 0; d < days; d++ {
		date := from.AddDate(0, 0, d)
		for _, start := range hours.SlotStarts(date) {
			for _, court := range courts {
				created, err := s.ensureSlot(court.ID, date.Format(domain.DateLayout), start)
				switch {
				case err != nil:
					errs = append(errs, err)
				case created:
					res.Created = append(res.Created, domain.SlotID(court.ID, date.Format(domain.DateLayout), start))
				default:
					res.Existing++
				}
			}
		}
	}
	return res, errors.Join(errs...)
}

// ensureSlot creates the hourly slot of courtID starting at start on date
// unless it exists, reporting whether it was created.
func (s *Store) ensureSlot(courtID, date, start string) (bool, error) {
	if s.TimeSlots.Exists(domain.SlotID(courtID, date, start)) {
		return false, nil
	}
	begin, err := domain.ParseClock(start)
	if err != nil {
		return false, err
	}
	_, err = s.TimeSlots.Create(domain.TimeSlot{
		CourtID:   courtID,
		Date:      date,
		StartTime: start,
		EndTime:   domain.FormatClock(begin + 60),
		Available: true,
	})
	if domain.IsConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("generate slot %s %s %s: %w", courtID, date, start, err)
	}
	return true, nil
}

// slotsFor returns the ids of the hourly slots covering [start, end) on
// courtID and date, creating any that are missing.
func (s *Store) slotsFor(courtID, date, start, end string) ([]string, error) {
	window, err := domain.NewInterval(start, end)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, hour := range window.HourStarts() {
		if _, err := s.ensureSlot(courtID, date, hour); err != nil {
			return nil, err
		}
		ids = append(ids, domain.SlotID(courtID, date, hour))
	}
	return ids, nil
}

// PurgeResult lists the outcome of a date-range purge.
type PurgeResult struct {
	Removed []string `json:"removed"`
	Kept    []string `json:"kept,omitempty"`
}

// PurgeSlots deletes the slots dated within [from, to] that carry no active
// reservation, clinic or open play event. Occupied slots are kept and listed.
func (s *Store) PurgeSlots(from, to string) PurgeResult {
	var res PurgeResult
	for _, slot := range s.TimeSlots.FindByDateRange(from, to) {
		switch err := s.RemoveSlot(slot.ID); {
		case err == nil:
			res.Removed = append(res.Removed, slot.ID)
		case domain.IsConflict(err):
			res.Kept = append(res.Kept, slot.ID)
		}
	}
	return res
}

// RemoveSlot deletes slotID unless it is occupied.
func (s *Store) RemoveSlot(slotID string) error {
	unlock := s.locks.Lock(slotID)
	defer unlock()
	slot, err := s.TimeSlots.Get(slotID)
	if err != nil {
		return err
	}
	switch {
	case slot.Type == domain.SlotTypeClinic:
		return slotConflict(slotID, "cannot remove a clinic slot")
	case slot.Type == domain.SlotTypeSocial:
		return slotConflict(slotID, "cannot remove a slot held by an open play event")
	case len(s.activeOn(slotID)) > 0:
		return slotConflict(slotID, "cannot remove a slot with an existing reservation")
	}
	if !s.TimeSlots.Delete(slotID) {
		return domain.NewNotFound(domain.EntityTimeSlot, slotID)
	}
	return nil
}
