package repository

import (
	"strconv"
	"strings"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Indexed time slot fields.
const (
	SlotFieldCourt     index.Field = "court_id"
	SlotFieldDate      index.Field = "date"
	SlotFieldCourtDate index.Field = "court_date"
	SlotFieldClinic    index.Field = "clinic_id"
	SlotFieldSocial    index.Field = "social_id"
	SlotFieldType      index.Field = "type"
	SlotFieldAvailable index.Field = "available"
	SlotFieldBlocked   index.Field = "blocked"
	SlotFieldStart     index.Field = "start_time"
)

func courtDateKey(courtID, date string) string {
	return courtID + "|" + date
}

// TimeSlots stores bookable hourly slots keyed by court, date and hour.
type TimeSlots struct {
	*Repository[domain.TimeSlot, *domain.TimeSlot]
}

// NewTimeSlots constructs an empty slot repository.
func NewTimeSlots(opts ...Option) *TimeSlots {
	schema := Schema[domain.TimeSlot]{
		Entity:   domain.EntityTimeSlot,
		Validate: domain.ValidateTimeSlot,
		IDFunc: func(s domain.TimeSlot) string {
			if s.CourtID == "" || s.Date == "" || s.StartTime == "" {
				return ""
			}
			return domain.SlotID(s.CourtID, s.Date, s.StartTime)
		},
		Fields: index.Fields[domain.TimeSlot]{
			SlotFieldCourt:     func(s domain.TimeSlot) string { return s.CourtID },
			SlotFieldDate:      func(s domain.TimeSlot) string { return s.Date },
			SlotFieldCourtDate: func(s domain.TimeSlot) string { return courtDateKey(s.CourtID, s.Date) },
			SlotFieldClinic:    func(s domain.TimeSlot) string { return s.ClinicID },
			SlotFieldSocial:    func(s domain.TimeSlot) string { return s.SocialID },
			SlotFieldType:      func(s domain.TimeSlot) string { return string(s.Type) },
			SlotFieldAvailable: func(s domain.TimeSlot) string { return strconv.FormatBool(s.Available) },
			SlotFieldBlocked:   func(s domain.TimeSlot) string { return strconv.FormatBool(s.Blocked) },
			SlotFieldStart:     func(s domain.TimeSlot) string { return s.StartTime },
		},
		Compare: map[index.Field]func(a, b domain.TimeSlot) int{
			SlotFieldDate: compareSlots,
		},
	}
	return &TimeSlots{New[domain.TimeSlot, *domain.TimeSlot](schema, opts...)}
}

func compareSlots(a, b domain.TimeSlot) int {
	switch {
	case a.Date != b.Date:
		return strings.Compare(a.Date, b.Date)
	case a.StartTime != b.StartTime:
		return strings.Compare(a.StartTime, b.StartTime)
	default:
		return strings.Compare(a.CourtID, b.CourtID)
	}
}

// FindByDate returns the slots on date in insertion order.
func (r *TimeSlots) FindByDate(date string) []domain.TimeSlot {
	return r.FindByField(SlotFieldDate, date)
}

// FindByCourt returns every slot of courtID.
func (r *TimeSlots) FindByCourt(courtID string) []domain.TimeSlot {
	return r.FindByField(SlotFieldCourt, courtID)
}

// FindByCourtAndDate returns the slots of one court on one date.
func (r *TimeSlots) FindByCourtAndDate(courtID, date string) []domain.TimeSlot {
	return r.FindByField(SlotFieldCourtDate, courtDateKey(courtID, date))
}

// FindByDateRange returns the slots dated within [from, to], grouped by date ascending.
func (r *TimeSlots) FindByDateRange(from, to string) []domain.TimeSlot {
	return r.FindByFieldRange(SlotFieldDate, from, to)
}

// FindByClinic returns the slots tagged with clinicID.
func (r *TimeSlots) FindByClinic(clinicID string) []domain.TimeSlot {
	if clinicID == "" {
		return nil
	}
	return r.FindByField(SlotFieldClinic, clinicID)
}

// FindBySocial returns the slots held by socialID.
func (r *TimeSlots) FindBySocial(socialID string) []domain.TimeSlot {
	if socialID == "" {
		return nil
	}
	return r.FindByField(SlotFieldSocial, socialID)
}

// FindAvailable returns the open slots on date.
func (r *TimeSlots) FindAvailable(date string) []domain.TimeSlot {
	return r.FindByFieldWhere(SlotFieldDate, date, func(s domain.TimeSlot) bool {
		return s.Available && !s.Blocked
	})
}

// FindBlocked returns every blocked slot.
func (r *TimeSlots) FindBlocked() []domain.TimeSlot {
	return r.FindByField(SlotFieldBlocked, "true")
}

// FindAt returns the slot of courtID starting at start on date.
func (r *TimeSlots) FindAt(courtID, date, start string) (domain.TimeSlot, bool) {
	return r.FindByID(domain.SlotID(courtID, date, start))
}

// DeleteByDateRange removes the slots dated within [from, to] for which keep
// returns false, and reports the removed ids.
func (r *TimeSlots) DeleteByDateRange(from, to string, keep func(domain.TimeSlot) bool) []string {
	var removed []string
	for _, slot := range r.FindByDateRange(from, to) {
		if keep != nil && keep(slot) {
			continue
		}
		if r.Delete(slot.ID) {
			removed = append(removed, slot.ID)
		}
	}
	return removed
}
