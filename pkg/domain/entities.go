// Package domain defines the core persistent entities, value types, typed
// errors and rule evaluation primitives used by courtcore.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Entity type identifiers used in audit entries and errors.
const (
	// EntityCourt identifies a court record.
	EntityCourt EntityType = "court"
	// EntityTimeSlot identifies a bookable hourly slot.
	EntityTimeSlot EntityType = "time_slot"
	// EntityReservation identifies a reservation against a slot.
	EntityReservation EntityType = "reservation"
	// EntityClinic identifies a coach-led group session.
	EntityClinic EntityType = "clinic"
	// EntityCoach identifies a coach record.
	EntityCoach EntityType = "coach"
	// EntityUser identifies a member record.
	EntityUser EntityType = "user"
	// EntitySocial identifies an open play event spanning several courts.
	EntitySocial EntityType = "social"
	// EntityPrivateSession identifies a one-on-one coaching session.
	EntityPrivateSession EntityType = "private_session"
)

// SlotType discriminates what occupies a time slot.
type SlotType string

// Slot occupancy discriminators. The zero value means the slot carries no booking.
const (
	SlotTypeNone        SlotType = ""
	SlotTypeReservation SlotType = "reservation"
	SlotTypeClinic      SlotType = "clinic"
	SlotTypeSocial      SlotType = "social"
)

// SlotStatus is the derived, mutually exclusive state of a slot.
type SlotStatus string

// Derived slot states ordered by precedence: blocked > clinic > reserved > available.
const (
	SlotStatusBlocked   SlotStatus = "blocked"
	SlotStatusClinic    SlotStatus = "clinic"
	SlotStatusReserved  SlotStatus = "reserved"
	SlotStatusAvailable SlotStatus = "available"
)

// ReservationType records what kind of booking a reservation represents.
type ReservationType string

// Reservation kinds. Court reservations are exclusive; clinic and social
// reservations share their slot with other participants.
const (
	ReservationTypeCourt  ReservationType = "court"
	ReservationTypeClinic ReservationType = "clinic"
	ReservationTypeSocial ReservationType = "social"
)

// Shared reports whether several reservations may reference the same slot.
func (t ReservationType) Shared() bool {
	return t == ReservationTypeClinic || t == ReservationTypeSocial
}

// ReservationStatus enumerates reservation lifecycle states.
type ReservationStatus string

// Reservation lifecycle states.
const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// UserRole enumerates member roles.
type UserRole string

// Supported user roles.
const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

// Entity is implemented by every stored record through its embedded Base.
type Entity interface {
	EntityID() string
	Meta() *Base
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the record identifier.
func (b Base) EntityID() string { return b.ID }

// Meta exposes the embedded Base for stamping by repositories.
func (b *Base) Meta() *Base { return b }

// Court is a physical playing surface.
type Court struct {
	Base
	Name     string `json:"name"`
	Location string `json:"location"`
	Indoor   bool   `json:"indoor"`
}

// TimeSlot is the smallest bookable unit: one court for one hour on one date.
type TimeSlot struct {
	Base
	CourtID     string   `json:"court_id"`
	Date        string   `json:"date"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Available   bool     `json:"available"`
	Blocked     bool     `json:"blocked"`
	BlockReason string   `json:"block_reason,omitempty"`
	Type        SlotType `json:"type,omitempty"`
	ClinicID    string   `json:"clinic_id,omitempty"`
	SocialID    string   `json:"social_id,omitempty"`
}

// SlotID derives the deterministic identifier of a plain hourly slot.
func SlotID(courtID, date, start string) string {
	hour := start
	if minutes, err := ParseClock(start); err == nil {
		hour = fmt.Sprintf("%02d", minutes/60)
	}
	return fmt.Sprintf("%s-%s-%s", courtID, date, hour)
}

// Reservation books a slot for one or more players.
type Reservation struct {
	Base
	TimeSlotID   string            `json:"time_slot_id"`
	CourtID      string            `json:"court_id"`
	Date         string            `json:"date"`
	StartTime    string            `json:"start_time"`
	EndTime      string            `json:"end_time"`
	Type         ReservationType   `json:"type"`
	Status       ReservationStatus `json:"status"`
	ClinicID     string            `json:"clinic_id,omitempty"`
	SocialID     string            `json:"social_id,omitempty"`
	GroupID      string            `json:"group_id,omitempty"`
	PlayerName   string            `json:"player_name"`
	PlayerEmail  string            `json:"player_email"`
	PlayerPhone  string            `json:"player_phone,omitempty"`
	PlayerCount  int               `json:"player_count"`
	Participants []string          `json:"participants,omitempty"`
	Comments     string            `json:"comments,omitempty"`
}

// Active reports whether the reservation still holds its slot.
func (r Reservation) Active() bool {
	return r.Status != ReservationStatusCancelled
}

// Clinic is a coach-led group session occupying one or more hourly slots.
type Clinic struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CoachID     string `json:"coach_id"`
	CourtID     string `json:"court_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Capacity    int    `json:"capacity"`
	PriceCents  int64  `json:"price_cents"`
}

// Coach leads clinics and private sessions.
type Coach struct {
	Base
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Specialties     []string `json:"specialties,omitempty"`
	HourlyRateCents int64    `json:"hourly_rate_cents"`
}

// User is a club member.
type User struct {
	Base
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Phone string   `json:"phone,omitempty"`
	Role  UserRole `json:"role"`
}

// Social is an open play event that holds the same hour on several courts
// under one group identifier and lets players join up to capacity.
type Social struct {
	Base
	Name       string   `json:"name"`
	HostUserID string   `json:"host_user_id,omitempty"`
	GroupID    string   `json:"group_id"`
	Date       string   `json:"date"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	CourtIDs   []string `json:"court_ids"`
	Capacity   int      `json:"capacity"`
}

// PrivateSession is a one-on-one coaching booking on a court.
type PrivateSession struct {
	Base
	CoachID    string `json:"coach_id"`
	UserID     string `json:"user_id"`
	CourtID    string `json:"court_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	PriceCents int64  `json:"price_cents"`
}

// Clone helpers copy slice fields so stored records never alias caller memory.

// CloneReservation deep-copies a reservation.
func CloneReservation(r Reservation) Reservation {
	cp := r
	cp.Participants = append([]string(nil), r.Participants...)
	return cp
}

// CloneCoach deep-copies a coach.
func CloneCoach(c Coach) Coach {
	cp := c
	cp.Specialties = append([]string(nil), c.Specialties...)
	return cp
}

// CloneSocial deep-copies a social.
func CloneSocial(s Social) Social {
	cp := s
	cp.CourtIDs = append([]string(nil), s.CourtIDs...)
	return cp
}
