package repository

import (
	"strconv"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Indexed court fields.
const (
	CourtFieldLocation index.Field = "location"
	CourtFieldIndoor   index.Field = "indoor"
	CourtFieldName     index.Field = "name"
)

// Courts stores playing surfaces.
type Courts struct {
	*Repository[domain.Court, *domain.Court]
}

// NewCourts constructs an empty court repository.
func NewCourts(opts ...Option) *Courts {
	schema := Schema[domain.Court]{
		Entity:   domain.EntityCourt,
		Validate: domain.ValidateCourt,
		Fields: index.Fields[domain.Court]{
			CourtFieldLocation: func(c domain.Court) string { return c.Location },
			CourtFieldIndoor:   func(c domain.Court) string { return strconv.FormatBool(c.Indoor) },
			CourtFieldName:     func(c domain.Court) string { return c.Name },
		},
	}
	return &Courts{New[domain.Court, *domain.Court](schema, opts...)}
}

// FindIndoor returns the indoor courts.
func (r *Courts) FindIndoor() []domain.Court {
	return r.FindByField(CourtFieldIndoor, "true")
}

// FindByLocation returns the courts at location.
func (r *Courts) FindByLocation(location string) []domain.Court {
	return r.FindByField(CourtFieldLocation, location)
}
