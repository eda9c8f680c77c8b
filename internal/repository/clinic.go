package repository

import (
	"cmp"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Indexed clinic fields.
const (
	ClinicFieldCoach     index.Field = "coach_id"
	ClinicFieldCourt     index.Field = "court_id"
	ClinicFieldDate      index.Field = "date"
	ClinicFieldCourtDate index.Field = "court_date"
	ClinicFieldPrice     index.Field = "price_cents"
)

// Clinics stores coach-led group sessions.
type Clinics struct {
	*Repository[domain.Clinic, *domain.Clinic]
}

// NewClinics constructs an empty clinic repository.
func NewClinics(opts ...Option) *Clinics {
	schema := Schema[domain.Clinic]{
		Entity:   domain.EntityClinic,
		Validate: domain.ValidateClinic,
		Fields: index.Fields[domain.Clinic]{
			ClinicFieldCoach:     func(c domain.Clinic) string { return c.CoachID },
			ClinicFieldCourt:     func(c domain.Clinic) string { return c.CourtID },
			ClinicFieldDate:      func(c domain.Clinic) string { return c.Date },
			ClinicFieldCourtDate: func(c domain.Clinic) string { return courtDateKey(c.CourtID, c.Date) },
		},
		Compare: map[index.Field]func(a, b domain.Clinic) int{
			ClinicFieldPrice: func(a, b domain.Clinic) int { return cmp.Compare(a.PriceCents, b.PriceCents) },
		},
	}
	return &Clinics{New[domain.Clinic, *domain.Clinic](schema, opts...)}
}

// FindByCoach returns the clinics led by coachID.
func (r *Clinics) FindByCoach(coachID string) []domain.Clinic {
	return r.FindByField(ClinicFieldCoach, coachID)
}

// FindByCourt returns the clinics held on courtID.
func (r *Clinics) FindByCourt(courtID string) []domain.Clinic {
	return r.FindByField(ClinicFieldCourt, courtID)
}

// FindByDate returns the clinics on date.
func (r *Clinics) FindByDate(date string) []domain.Clinic {
	return r.FindByField(ClinicFieldDate, date)
}

// FindByDateRange returns the clinics dated within [from, to].
func (r *Clinics) FindByDateRange(from, to string) []domain.Clinic {
	return r.FindByFieldRange(ClinicFieldDate, from, to)
}

// FindByPriceRange returns the clinics priced within [min, max] cents.
func (r *Clinics) FindByPriceRange(minCents, maxCents int64) []domain.Clinic {
	return r.FindMany(func(c domain.Clinic) bool {
		return c.PriceCents >= minCents && c.PriceCents <= maxCents
	})
}

// HasTimeConflict reports whether a clinic other than excludeID overlaps
// [start, end) on courtID and date.
func (r *Clinics) HasTimeConflict(courtID, date, start, end, excludeID string) bool {
	existing := r.FindByField(ClinicFieldCourtDate, courtDateKey(courtID, date))
	windows := make([]domain.TimeWindow, 0, len(existing))
	for _, c := range existing {
		windows = append(windows, c.Window())
	}
	candidate := domain.TimeWindow{ID: excludeID, CourtID: courtID, Date: date, StartTime: start, EndTime: end}
	return domain.HasTimeConflict(candidate, windows)
}
