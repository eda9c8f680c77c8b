package repository

import (
	"strings"
	"unicode"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Contact fields shared by coaches and users.
const (
	FieldEmail index.Field = "email"
	FieldPhone index.Field = "phone"
	FieldRole  index.Field = "role"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Users stores club members. Email and phone are unique.
type Users struct {
	*Repository[domain.User, *domain.User]
}

// NewUsers constructs an empty user repository.
func NewUsers(opts ...Option) *Users {
	contact := index.Fields[domain.User]{
		FieldEmail: func(u domain.User) string { return normalizeEmail(u.Email) },
		FieldPhone: func(u domain.User) string { return normalizePhone(u.Phone) },
	}
	fields := index.Fields[domain.User]{
		FieldRole: func(u domain.User) string { return string(u.Role) },
	}
	for f, fn := range contact {
		fields[f] = fn
	}
	schema := Schema[domain.User]{
		Entity:   domain.EntityUser,
		Validate: domain.ValidateUser,
		Fields:   fields,
		Unique:   UniqueOn[domain.User, *domain.User](domain.EntityUser, contact),
	}
	return &Users{New[domain.User, *domain.User](schema, opts...)}
}

// FindByEmail returns the user registered with email.
func (r *Users) FindByEmail(email string) (domain.User, bool) {
	return first(r.FindByField(FieldEmail, normalizeEmail(email)))
}

// FindByPhone returns the user registered with phone.
func (r *Users) FindByPhone(phone string) (domain.User, bool) {
	key := normalizePhone(phone)
	if key == "" {
		return domain.User{}, false
	}
	return first(r.FindByField(FieldPhone, key))
}

// FindByRole returns the users holding role.
func (r *Users) FindByRole(role domain.UserRole) []domain.User {
	return r.FindByField(FieldRole, string(role))
}

func first[T any](items []T) (T, bool) {
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}
