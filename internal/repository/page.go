package repository

import (
	"fmt"
	"sort"
	"strings"

	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// SortOrder selects ascending or descending pagination order.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Pagination defaults.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest describes a page of results. A zero SortBy keeps insertion order.
type PageRequest struct {
	Page   int
	Limit  int
	SortBy index.Field
	Order  SortOrder
}

// Page is one slice of a filtered, sorted collection.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func (req PageRequest) normalize() PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.Limit < 1:
		req.Limit = DefaultPageLimit
	case req.Limit > MaxPageLimit:
		req.Limit = MaxPageLimit
	}
	if req.Order == "" {
		req.Order = Asc
	}
	return req
}

// FindWithPagination filters with pred, stable-sorts by req.SortBy and slices
// out the requested page. Sorting by a field the entity does not declare is a
// validation error.
func (r *Repository[T, P]) FindWithPagination(pred func(T) bool, req PageRequest) (Page[T], error) {
	req = req.normalize()
	if req.Order != Asc && req.Order != Desc {
		return Page[T]{}, r.pageError("order", fmt.Sprintf("unknown sort order %q", req.Order))
	}

	r.mu.RLock()
	items := r.filterLocked(pred)
	cmp, err := r.comparator(req.SortBy)
	r.mu.RUnlock()
	if err != nil {
		return Page[T]{}, err
	}

	if cmp != nil {
		sort.SliceStable(items, func(i, j int) bool {
			if req.Order == Desc {
				return cmp(items[j], items[i]) < 0
			}
			return cmp(items[i], items[j]) < 0
		})
	}

	total := len(items)
	page := Page[T]{
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: (total + req.Limit - 1) / req.Limit,
	}
	start := (req.Page - 1) * req.Limit
	if start < total {
		end := start + req.Limit
		if end > total {
			end = total
		}
		page.Items = r.cloneAll(items[start:end])
	} else {
		page.Items = []T{}
	}
	page.HasNext = req.Page < page.TotalPages
	page.HasPrev = req.Page > 1
	return page, nil
}

func (r *Repository[T, P]) comparator(field index.Field) (func(a, b T) int, error) {
	if field == "" {
		return nil, nil
	}
	if cmp, ok := r.schema.Compare[field]; ok {
		return cmp, nil
	}
	if !r.index.Has(field) {
		return nil, r.pageError("sort_by", fmt.Sprintf("cannot sort by %q", field))
	}
	return func(a, b T) int {
		ka, _ := r.index.Key(field, a)
		kb, _ := r.index.Key(field, b)
		return strings.Compare(ka, kb)
	}, nil
}

func (r *Repository[T, P]) pageError(field, msg string) error {
	return &domain.ValidationError{
		Entity: r.schema.Entity,
		Fields: []domain.FieldError{{Field: field, Message: msg}},
	}
}

func notFound(entity domain.EntityType, id string) error {
	return domain.NewNotFound(entity, id)
}
