// Package repository implements the generic indexed, cached entity collection
// and the domain repositories specialised from it.
package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"courtcore/internal/cache"
	"courtcore/internal/index"
	"courtcore/pkg/domain"
)

// EntityPtr constrains P to *T where *T exposes the embedded domain.Base.
type EntityPtr[T any] interface {
	*T
	domain.Entity
}

// Lookup resolves indexed field values during uniqueness checks.
type Lookup[T any] func(field index.Field, value string) []T

// Schema describes how one entity type is validated, identified and indexed.
type Schema[T any] struct {
	Entity domain.EntityType
	// Validate runs at StageCreate on caller input and at StageStored on the
	// complete record before every write.
	Validate func(T, domain.Stage) error
	// Fields declares the indexed attributes. FieldID is always indexed.
	Fields index.Fields[T]
	// IDFunc derives a deterministic id. When nil or empty, a caller supplied
	// id is kept, otherwise a UUID is generated.
	IDFunc func(T) string
	// Clone deep-copies records with reference fields. Nil means plain copy.
	Clone func(T) T
	// Unique enforces cross-record constraints inside the write critical section.
	Unique func(candidate T, lookup Lookup[T]) error
	// Compare supplies typed orderings for pagination; other indexed fields sort as strings.
	Compare map[index.Field]func(a, b T) int
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	cache cache.Config
	now   func() time.Time
}

// WithCache tunes the id cache. A negative size disables it.
func WithCache(cfg cache.Config) Option {
	return func(o *options) { o.cache = cfg }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Repository is the single source of truth for one entity collection. Every
// operation runs as one critical section covering the collection, its index
// and its cache.
type Repository[T any, P EntityPtr[T]] struct {
	mu     sync.RWMutex
	schema Schema[T]
	items  map[string]T
	order  []string
	index  *index.Index[T]
	cache  *cache.TTL[T]
	now    func() time.Time
}

// New constructs an empty repository for schema.
func New[T any, P EntityPtr[T]](schema Schema[T], opts ...Option) *Repository[T, P] {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	if schema.Validate == nil {
		schema.Validate = func(T, domain.Stage) error { return nil }
	}
	return &Repository[T, P]{
		schema: schema,
		items:  make(map[string]T),
		index:  index.New(idOf[T, P], schema.Fields),
		cache:  cache.New[T](o.cache),
		now:    o.now,
	}
}

func idOf[T any, P EntityPtr[T]](item T) string {
	return P(&item).EntityID()
}

func (r *Repository[T, P]) clone(item T) T {
	if r.schema.Clone == nil {
		return item
	}
	return r.schema.Clone(item)
}

func (r *Repository[T, P]) cloneAll(items []T) []T {
	if r.schema.Clone == nil {
		return items
	}
	for i := range items {
		items[i] = r.schema.Clone(items[i])
	}
	return items
}

// Entity returns the entity type served by the repository.
func (r *Repository[T, P]) Entity() domain.EntityType {
	return r.schema.Entity
}

// Create validates data, assigns identity and timestamps, validates the
// complete record and stores it. Nothing is written when any check fails.
func (r *Repository[T, P]) Create(data T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(data)
}

func (r *Repository[T, P]) createLocked(data T) (T, error) {
	var zero T
	if err := r.schema.Validate(data, domain.StageCreate); err != nil {
		return zero, err
	}
	item := r.clone(data)
	meta := P(&item).Meta()
	if r.schema.IDFunc != nil {
		if id := r.schema.IDFunc(item); id != "" {
			meta.ID = id
		}
	}
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if _, exists := r.items[meta.ID]; exists {
		return zero, domain.NewConflict(r.schema.Entity, meta.ID, "already exists")
	}
	now := r.now()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	if err := r.checkLocked(item); err != nil {
		return zero, err
	}

	r.items[meta.ID] = item
	r.order = append(r.order, meta.ID)
	r.index.Add(item)
	r.cache.Set(meta.ID, item)
	return r.clone(item), nil
}

func (r *Repository[T, P]) checkLocked(item T) error {
	if err := r.schema.Validate(item, domain.StageStored); err != nil {
		return err
	}
	if r.schema.Unique != nil {
		return r.schema.Unique(item, r.index.Find)
	}
	return nil
}

// Update applies mutator to a copy of the stored record, stamps the update
// time, re-validates the merged result and replaces it in the index and cache.
// Identity fields cannot be changed by mutator.
func (r *Repository[T, P]) Update(id string, mutator func(*T) error) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(id, mutator)
}

func (r *Repository[T, P]) updateLocked(id string, mutator func(*T) error) (T, error) {
	var zero T
	current, ok := r.items[id]
	if !ok {
		return zero, domain.NewNotFound(r.schema.Entity, id)
	}
	if mutator == nil {
		return zero, &domain.ValidationError{
			Entity: r.schema.Entity,
			Fields: []domain.FieldError{{Field: "mutator", Message: "is required"}},
		}
	}
	next := r.clone(current)
	if err := mutator(&next); err != nil {
		return zero, err
	}
	prev := P(&current).Meta()
	meta := P(&next).Meta()
	meta.ID = id
	meta.CreatedAt = prev.CreatedAt
	meta.UpdatedAt = r.now()
	if err := r.checkLocked(next); err != nil {
		return zero, err
	}

	r.index.Remove(current)
	r.index.Add(next)
	r.items[id] = next
	r.cache.Set(id, next)
	return r.clone(next), nil
}

// Delete removes id from the collection, index and cache. It reports whether
// anything was removed and is safe to repeat.
func (r *Repository[T, P]) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(id)
}

func (r *Repository[T, P]) deleteLocked(id string) bool {
	current, ok := r.items[id]
	if !ok {
		r.cache.Invalidate(id)
		return false
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.index.Remove(current)
	r.cache.Invalidate(id)
	return true
}

// FindByID returns the record with id, served from the cache when fresh.
func (r *Repository[T, P]) FindByID(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if item, ok := r.cache.Get(id); ok {
		return r.clone(item), true
	}
	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	r.cache.Set(id, item)
	return r.clone(item), true
}

// Get is FindByID returning a NotFoundError for missing ids.
func (r *Repository[T, P]) Get(id string) (T, error) {
	item, ok := r.FindByID(id)
	if !ok {
		return item, domain.NewNotFound(r.schema.Entity, id)
	}
	return item, nil
}

// Exists reports whether id is stored.
func (r *Repository[T, P]) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}

// Count returns the collection size.
func (r *Repository[T, P]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// FindAll returns every record in insertion order.
func (r *Repository[T, P]) FindAll() []T {
	return r.FindMany(nil)
}

// FindMany returns the records matching pred in insertion order. This is a
// linear scan over the current snapshot.
func (r *Repository[T, P]) FindMany(pred func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cloneAll(r.filterLocked(pred))
}

func (r *Repository[T, P]) filterLocked(pred func(T) bool) []T {
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		item := r.items[id]
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// FindOne returns the first record, in insertion order, matching pred.
func (r *Repository[T, P]) FindOne(pred func(T) bool) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if item := r.items[id]; pred(item) {
			return r.clone(item), true
		}
	}
	var zero T
	return zero, false
}

// FindByField returns the records whose indexed field equals value, in the
// order they entered the index.
func (r *Repository[T, P]) FindByField(field index.Field, value string) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cloneAll(r.index.Find(field, value))
}

// FindByFieldWhere narrows an indexed lookup with pred.
func (r *Repository[T, P]) FindByFieldWhere(field index.Field, value string, pred func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.index.Find(field, value)
	out := bucket[:0]
	for _, item := range bucket {
		if pred(item) {
			out = append(out, item)
		}
	}
	return r.cloneAll(out)
}

// FindByFieldRange returns the records whose indexed key for field lies within
// [from, to], ordered by key and then by insertion.
func (r *Repository[T, P]) FindByFieldRange(field index.Field, from, to string) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []T
	for _, key := range r.index.Keys(field) {
		if key < from || key > to {
			continue
		}
		out = append(out, r.index.Find(field, key)...)
	}
	return r.cloneAll(out)
}

// Snapshot returns an ordered copy of the collection for persistence.
func (r *Repository[T, P]) Snapshot() []T {
	return r.FindAll()
}

// Load replaces the collection with items, rebuilding the index and purging
// the cache. Records are trusted as previously persisted and are not
// re-validated; later duplicates of an id replace earlier ones.
func (r *Repository[T, P]) Load(items []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]T, len(items))
	r.order = r.order[:0]
	for _, item := range items {
		item = r.clone(item)
		id := idOf[T, P](item)
		if _, dup := r.items[id]; !dup {
			r.order = append(r.order, id)
		}
		r.items[id] = item
	}
	r.index.Rebuild(r.filterLocked(nil))
	r.cache.Purge()
}

// UniqueOn builds a Schema.Unique check rejecting records that share a
// non-empty key on any of fields with a different record.
func UniqueOn[T any, P EntityPtr[T]](entity domain.EntityType, fields index.Fields[T]) func(T, Lookup[T]) error {
	return func(candidate T, lookup Lookup[T]) error {
		id := idOf[T, P](candidate)
		var verr domain.ValidationError
		verr.Entity = entity
		for field, key := range fields {
			value := key(candidate)
			if value == "" {
				continue
			}
			for _, other := range lookup(field, value) {
				if idOf[T, P](other) != id {
					verr.Fields = append(verr.Fields, domain.FieldError{
						Field:   string(field),
						Message: fmt.Sprintf("%s is already in use", value),
					})
					break
				}
			}
		}
		if len(verr.Fields) > 0 {
			return &verr
		}
		return nil
	}
}
