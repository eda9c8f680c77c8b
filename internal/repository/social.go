package repository

import (
	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// Indexed social fields.
const (
	SocialFieldDate  index.Field = "date"
	SocialFieldGroup index.Field = "group_id"
	SocialFieldHost  index.Field = "host_user_id"
)

// Socials stores open play events.
type Socials struct {
	*Repository[domain.Social, *domain.Social]
}

// NewSocials constructs an empty social repository.
func NewSocials(opts ...Option) *Socials {
	schema := Schema[domain.Social]{
		Entity:   domain.EntitySocial,
		Validate: domain.ValidateSocial,
		Clone:    domain.CloneSocial,
		Fields: index.Fields[domain.Social]{
			SocialFieldDate:  func(s domain.Social) string { return s.Date },
			SocialFieldGroup: func(s domain.Social) string { return s.GroupID },
			SocialFieldHost:  func(s domain.Social) string { return s.HostUserID },
		},
	}
	return &Socials{New[domain.Social, *domain.Social](schema, opts...)}
}

// FindByDate returns the socials on date.
func (r *Socials) FindByDate(date string) []domain.Social {
	return r.FindByField(SocialFieldDate, date)
}

// FindByGroup returns the social published under groupID.
func (r *Socials) FindByGroup(groupID string) (domain.Social, bool) {
	return first(r.FindByField(SocialFieldGroup, groupID))
}

// FindByHost returns the socials hosted by userID.
func (r *Socials) FindByHost(userID string) []domain.Social {
	return r.FindByField(SocialFieldHost, userID)
}
