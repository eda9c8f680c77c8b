package repository

import (
	"strings"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Indexed reservation fields.
const (
	ReservationFieldSlot   index.Field = "time_slot_id"
	ReservationFieldDate   index.Field = "date"
	ReservationFieldCourt  index.Field = "court_id"
	ReservationFieldEmail  index.Field = "player_email"
	ReservationFieldClinic index.Field = "clinic_id"
	ReservationFieldSocial index.Field = "social_id"
	ReservationFieldGroup  index.Field = "group_id"
	ReservationFieldStatus index.Field = "status"
)

// Reservations stores bookings against time slots.
type Reservations struct {
	*Repository[domain.Reservation, *domain.Reservation]
}

// NewReservations constructs an empty reservation repository.
func NewReservations(opts ...Option) *Reservations {
	schema := Schema[domain.Reservation]{
		Entity:   domain.EntityReservation,
		Validate: domain.ValidateReservation,
		Clone:    domain.CloneReservation,
		Fields: index.Fields[domain.Reservation]{
			ReservationFieldSlot:   func(r domain.Reservation) string { return r.TimeSlotID },
			ReservationFieldDate:   func(r domain.Reservation) string { return r.Date },
			ReservationFieldCourt:  func(r domain.Reservation) string { return r.CourtID },
			ReservationFieldEmail:  func(r domain.Reservation) string { return normalizeEmail(r.PlayerEmail) },
			ReservationFieldClinic: func(r domain.Reservation) string { return r.ClinicID },
			ReservationFieldSocial: func(r domain.Reservation) string { return r.SocialID },
			ReservationFieldGroup:  func(r domain.Reservation) string { return r.GroupID },
			ReservationFieldStatus: func(r domain.Reservation) string { return string(r.Status) },
		},
		Compare: map[index.Field]func(a, b domain.Reservation) int{
			ReservationFieldDate: func(a, b domain.Reservation) int {
				if a.Date != b.Date {
					return strings.Compare(a.Date, b.Date)
				}
				return strings.Compare(a.StartTime, b.StartTime)
			},
		},
	}
	return &Reservations{New[domain.Reservation, *domain.Reservation](schema, opts...)}
}

func active(r domain.Reservation) bool { return r.Active() }

// FindBySlot returns every reservation, cancelled or not, against slotID.
func (r *Reservations) FindBySlot(slotID string) []domain.Reservation {
	return r.FindByField(ReservationFieldSlot, slotID)
}

// FindActiveBySlot returns the reservations still holding slotID.
func (r *Reservations) FindActiveBySlot(slotID string) []domain.Reservation {
	return r.FindByFieldWhere(ReservationFieldSlot, slotID, active)
}

// FindByDate returns the reservations on date.
func (r *Reservations) FindByDate(date string) []domain.Reservation {
	return r.FindByField(ReservationFieldDate, date)
}

// FindByCourt returns the reservations on courtID.
func (r *Reservations) FindByCourt(courtID string) []domain.Reservation {
	return r.FindByField(ReservationFieldCourt, courtID)
}

// FindByEmail returns the reservations made by email, case-insensitively.
func (r *Reservations) FindByEmail(email string) []domain.Reservation {
	return r.FindByField(ReservationFieldEmail, normalizeEmail(email))
}

// FindByClinic returns the active clinic joins for clinicID.
func (r *Reservations) FindByClinic(clinicID string) []domain.Reservation {
	if clinicID == "" {
		return nil
	}
	return r.FindByFieldWhere(ReservationFieldClinic, clinicID, active)
}

// FindBySocial returns the active joins for socialID.
func (r *Reservations) FindBySocial(socialID string) []domain.Reservation {
	if socialID == "" {
		return nil
	}
	return r.FindByFieldWhere(ReservationFieldSocial, socialID, active)
}

// FindByGroup returns the reservations sharing groupID.
func (r *Reservations) FindByGroup(groupID string) []domain.Reservation {
	if groupID == "" {
		return nil
	}
	return r.FindByField(ReservationFieldGroup, groupID)
}

// FindByDateRange returns the reservations dated within [from, to].
func (r *Reservations) FindByDateRange(from, to string) []domain.Reservation {
	return r.FindByFieldRange(ReservationFieldDate, from, to)
}

// FindRecent returns up to n reservations, most recently created first.
func (r *Reservations) FindRecent(n int) []domain.Reservation {
	all := r.FindAll()
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]domain.Reservation, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out
}

// SeatsTaken sums the player counts of the active reservations in rs.
func SeatsTaken(rs []domain.Reservation) int {
	total := 0
	for _, r := range rs {
		if r.Active() {
			total += r.PlayerCount
		}
	}
	return total
}
