package repository

import (
	"cmp"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// FieldRate orders coaches by hourly rate.
const FieldRate index.Field = "hourly_rate_cents"

// Coaches stores coach records. Email and phone are unique.
type Coaches struct {
	*Repository[domain.Coach, *domain.Coach]
}

// NewCoaches constructs an empty coach repository.
func NewCoaches(opts ...Option) *Coaches {
	contact := index.Fields[domain.Coach]{
		FieldEmail: func(c domain.Coach) string { return normalizeEmail(c.Email) },
		FieldPhone: func(c domain.Coach) string { return normalizePhone(c.Phone) },
	}
	schema := Schema[domain.Coach]{
		Entity:   domain.EntityCoach,
		Validate: domain.ValidateCoach,
		Clone:    domain.CloneCoach,
		Fields:   contact,
		Unique:   UniqueOn[domain.Coach, *domain.Coach](domain.EntityCoach, contact),
		Compare: map[index.Field]func(a, b domain.Coach) int{
			FieldRate: func(a, b domain.Coach) int { return cmp.Compare(a.HourlyRateCents, b.HourlyRateCents) },
		},
	}
	return &Coaches{New[domain.Coach, *domain.Coach](schema, opts...)}
}

// FindByEmail returns the coach registered with email.
func (r *Coaches) FindByEmail(email string) (domain.Coach, bool) {
	return first(r.FindByField(FieldEmail, normalizeEmail(email)))
}

// FindByPhone returns the coach registered with phone.
func (r *Coaches) FindByPhone(phone string) (domain.Coach, bool) {
	key := normalizePhone(phone)
	if key == "" {
		return domain.Coach{}, false
	}
	return first(r.FindByField(FieldPhone, key))
}

// FindBySpecialty returns the coaches listing specialty.
func (r *Coaches) FindBySpecialty(specialty string) []domain.Coach {
	return r.FindMany(func(c domain.Coach) bool {
		for _, s := range c.Specialties {
			if s == specialty {
				return true
			}
		}
		return false
	})
}
