package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes a single failed field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// ValidationError reports schema or business-rule violations for an entity.
type ValidationError struct {
	Entity EntityType
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Messages returns one human-readable message per failed field.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.String())
	}
	return out
}

// NotFoundError is returned when a referenced id does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError is returned when a state transition is refused. Reason is
// always human readable so callers can explain the refusal.
type ConflictError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s %s conflict: %s", e.Entity, e.ID, e.Reason)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(entity EntityType, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewConflict builds a ConflictError.
func NewConflict(entity EntityType, id, reason string) error {
	return &ConflictError{Entity: entity, ID: id, Reason: reason}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// ErrorMessages flattens err into user-facing messages.
func ErrorMessages(err error) []string {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Messages()
	}
	return []string{err.Error()}
}
