package repository

import (
	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Indexed private session fields.
const (
	SessionFieldCoach     index.Field = "coach_id"
	SessionFieldUser      index.Field = "user_id"
	SessionFieldCourtDate index.Field = "court_date"
	SessionFieldDate      index.Field = "date"
)

// PrivateSessions stores one-on-one coaching bookings.
type PrivateSessions struct {
	*Repository[domain.PrivateSession, *domain.PrivateSession]
}

// NewPrivateSessions constructs an empty private session repository.
func NewPrivateSessions(opts ...Option) *PrivateSessions {
	schema := Schema[domain.PrivateSession]{
		Entity:   domain.EntityPrivateSession,
		Validate: domain.ValidatePrivateSession,
		Fields: index.Fields[domain.PrivateSession]{
			SessionFieldCoach:     func(p domain.PrivateSession) string { return p.CoachID },
			SessionFieldUser:      func(p domain.PrivateSession) string { return p.UserID },
			SessionFieldCourtDate: func(p domain.PrivateSession) string { return courtDateKey(p.CourtID, p.Date) },
			SessionFieldDate:      func(p domain.PrivateSession) string { return p.Date },
		},
	}
	return &PrivateSessions{New[domain.PrivateSession, *domain.PrivateSession](schema, opts...)}
}

// FindByCoach returns the sessions taught by coachID.
func (r *PrivateSessions) FindByCoach(coachID string) []domain.PrivateSession {
	return r.FindByField(SessionFieldCoach, coachID)
}

// FindByUser returns the sessions booked by userID.
func (r *PrivateSessions) FindByUser(userID string) []domain.PrivateSession {
	return r.FindByField(SessionFieldUser, userID)
}

// HasTimeConflict reports whether a session other than excludeID overlaps
// [start, end) on courtID and date.
func (r *PrivateSessions) HasTimeConflict(courtID, date, start, end, excludeID string) bool {
	existing := r.FindByField(SessionFieldCourtDate, courtDateKey(courtID, date))
	return domain.HasTimeConflict(
		domain.TimeWindow{ID: excludeID, CourtID: courtID, Date: date, StartTime: start, EndTime: end},
		sessionWindows(existing),
	)
}

// CoachBusy reports whether coachID already teaches a session overlapping
// [start, end) on date, on any court.
func (r *PrivateSessions) CoachBusy(coachID, date, start, end, excludeID string) bool {
	for _, p := range r.FindByCoach(coachID) {
		if p.ID == excludeID || p.Date != date {
			continue
		}
		if domain.Overlaps(start, end, p.StartTime, p.EndTime) {
			return true
		}
	}
	return false
}

func sessionWindows(ps []domain.PrivateSession) []domain.TimeWindow {
	out := make([]domain.TimeWindow, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Window())
	}
	return out
}
