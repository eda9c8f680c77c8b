package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Stage selects which checkpoint a validation runs at.
type Stage int

const (
	// StageCreate validates caller input before identity fields are assigned.
	StageCreate Stage = iota
	// StageStored validates a complete record, including identity fields.
	StageStored
)

const maxPlayersPerReservation = 8

type checker struct {
	entity EntityType
	fields []FieldError
}

func newChecker(entity EntityType) *checker {
	return &checker{entity: entity}
}

func (c *checker) failf(field, format string, args ...any) {
	c.fields = append(c.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.failf(field, "is required")
	}
}

func (c *checker) base(b Base, stage Stage) {
	if stage != StageStored {
		return
	}
	if b.ID == "" {
		c.failf("id", "is required")
	}
	if b.CreatedAt.IsZero() {
		c.failf("created_at", "is required")
	}
}

func (c *checker) date(field, value string) {
	if _, err := ParseDate(value); err != nil {
		c.failf(field, "must be a YYYY-MM-DD date")
	}
}

func (c *checker) window(start, end string) {
	s, serr := ParseClock(start)
	if serr != nil {
		c.failf("start_time", "must be HH:MM")
	}
	e, eerr := ParseClock(end)
	if eerr != nil {
		c.failf("end_time", "must be HH:MM")
	}
	if serr == nil && eerr == nil && e <= s {
		c.failf("end_time", "must be after start_time")
	}
}

// hourly requires a slot to start on the hour and last exactly one hour, which
// keeps SlotID aligned with the window the slot covers.
func (c *checker) hourly(start, end string) {
	s, serr := ParseClock(start)
	e, eerr := ParseClock(end)
	if serr != nil || eerr != nil {
		return
	}
	if s%60 != 0 {
		c.failf("start_time", "must be on the hour")
	}
	if e-s != 60 {
		c.failf("end_time", "must be one hour after start_time")
	}
}

func (c *checker) email(field, value string, required bool) {
	if value == "" {
		if required {
			c.failf(field, "is required")
		}
		return
	}
	if _, err := mail.ParseAddress(value); err != nil || strings.ContainsAny(value, "<> ") {
		c.failf(field, "must be a valid email address")
	}
}

func (c *checker) phone(field, value string) {
	if value == "" {
		return
	}
	digits := 0
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			c.failf(field, "contains invalid character %q", r)
			return
		}
	}
	if digits < 7 || digits > 15 {
		c.failf(field, "must contain between 7 and 15 digits")
	}
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Entity: c.entity, Fields: c.fields}
}

// ValidateCourt checks court constraints.
func ValidateCourt(court Court, stage Stage) error {
	c := newChecker(EntityCourt)
	c.base(court.Base, stage)
	c.required("name", court.Name)
	return c.err()
}

// ValidateTimeSlot checks slot field constraints, including the flag pairings
// that must hold for every stored slot.
func ValidateTimeSlot(slot TimeSlot, stage Stage) error {
	c := newChecker(EntityTimeSlot)
	c.base(slot.Base, stage)
	c.required("court_id", slot.CourtID)
	c.date("date", slot.Date)
	c.window(slot.StartTime, slot.EndTime)
	c.hourly(slot.StartTime, slot.EndTime)
	if slot.Blocked && slot.Available {
		c.failf("available", "a blocked slot cannot be available")
	}
	switch slot.Type {
	case SlotTypeNone, SlotTypeReservation:
	case SlotTypeClinic:
		if slot.ClinicID == "" {
			c.failf("clinic_id", "is required for clinic slots")
		}
	case SlotTypeSocial:
		if slot.SocialID == "" {
			c.failf("social_id", "is required for social slots")
		}
	default:
		c.failf("type", "unknown slot type %q", slot.Type)
	}
	if slot.ClinicID != "" && slot.Type != SlotTypeClinic {
		c.failf("clinic_id", "may only be set on clinic slots")
	}
	if slot.SocialID != "" && slot.Type != SlotTypeSocial {
		c.failf("social_id", "may only be set on social slots")
	}
	return c.err()
}

// ValidateReservation checks reservation constraints.
func ValidateReservation(r Reservation, stage Stage) error {
	c := newChecker(EntityReservation)
	c.base(r.Base, stage)
	c.required("time_slot_id", r.TimeSlotID)
	c.required("court_id", r.CourtID)
	c.date("date", r.Date)
	c.window(r.StartTime, r.EndTime)
	c.required("player_name", r.PlayerName)
	c.email("player_email", r.PlayerEmail, true)
	c.phone("player_phone", r.PlayerPhone)
	if r.PlayerCount < 1 || r.PlayerCount > maxPlayersPerReservation {
		c.failf("player_count", "must be between 1 and %d", maxPlayersPerReservation)
	}
	if len(r.Participants) > r.PlayerCount {
		c.failf("participants", "cannot list more participants than player_count")
	}
	switch r.Type {
	case ReservationTypeCourt:
	case ReservationTypeClinic:
		c.required("clinic_id", r.ClinicID)
	case ReservationTypeSocial:
		c.required("social_id", r.SocialID)
	default:
		c.failf("type", "unknown reservation type %q", r.Type)
	}
	if stage == StageStored {
		switch r.Status {
		case ReservationStatusActive, ReservationStatusCancelled:
		default:
			c.failf("status", "unknown reservation status %q", r.Status)
		}
	}
	return c.err()
}

// ValidateClinic checks clinic constraints.
func ValidateClinic(cl Clinic, stage Stage) error {
	c := newChecker(EntityClinic)
	c.base(cl.Base, stage)
	c.required("name", cl.Name)
	c.required("coach_id", cl.CoachID)
	c.required("court_id", cl.CourtID)
	c.date("date", cl.Date)
	c.window(cl.StartTime, cl.EndTime)
	if cl.Capacity < 1 {
		c.failf("capacity", "must be at least 1")
	}
	if cl.PriceCents < 0 {
		c.failf("price_cents", "cannot be negative")
	}
	return c.err()
}

// ValidateCoach checks coach constraints. Uniqueness is enforced by the repository.
func ValidateCoach(co Coach, stage Stage) error {
	c := newChecker(EntityCoach)
	c.base(co.Base, stage)
	c.required("name", co.Name)
	c.email("email", co.Email, true)
	c.phone("phone", co.Phone)
	if co.HourlyRateCents < 0 {
		c.failf("hourly_rate_cents", "cannot be negative")
	}
	return c.err()
}

// ValidateUser checks member constraints. Uniqueness is enforced by the repository.
func ValidateUser(u User, stage Stage) error {
	c := newChecker(EntityUser)
	c.base(u.Base, stage)
	c.required("name", u.Name)
	c.email("email", u.Email, true)
	c.phone("phone", u.Phone)
	switch u.Role {
	case RoleMember, RoleAdmin:
	case "":
		if stage == StageStored {
			c.failf("role", "is required")
		}
	default:
		c.failf("role", "unknown role %q", u.Role)
	}
	return c.err()
}

// ValidateSocial checks open play constraints.
func ValidateSocial(s Social, stage Stage) error {
	c := newChecker(EntitySocial)
	c.base(s.Base, stage)
	c.required("name", s.Name)
	c.date("date", s.Date)
	c.window(s.StartTime, s.EndTime)
	if stage == StageStored {
		c.required("group_id", s.GroupID)
	}
	if len(s.CourtIDs) == 0 {
		c.failf("court_ids", "at least one court is required")
	}
	seen := make(map[string]struct{}, len(s.CourtIDs))
	for _, id := range s.CourtIDs {
		if _, dup := seen[id]; dup {
			c.failf("court_ids", "court %s listed twice", id)
		}
		seen[id] = struct{}{}
	}
	if s.Capacity < 1 {
		c.failf("capacity", "must be at least 1")
	}
	return c.err()
}

// ValidatePrivateSession checks private session constraints.
func ValidatePrivateSession(p PrivateSession, stage Stage) error {
	c := newChecker(EntityPrivateSession)
	c.base(p.Base, stage)
	c.required("coach_id", p.CoachID)
	c.required("user_id", p.UserID)
	c.required("court_id", p.CourtID)
	c.date("date", p.Date)
	c.window(p.StartTime, p.EndTime)
	if p.PriceCents < 0 {
		c.failf("price_cents", "cannot be negative")
	}
	return c.err()
}
