// Package index maintains per-field lookup tables over a collection of
// entities so repositories can answer equality queries without scanning.
package index

import "sort"

// Field names an indexable attribute of an entity type. Each entity type
// declares its own fixed set of Field constants.
type Field string

// FieldID is indexed for every entity type.
const FieldID Field = "id"

// Fields maps every indexable Field of T to the accessor producing its key.
type Fields[T any] map[Field]func(T) string

// Index keeps, for every declared field, a bucket per key value holding the
// matching entities in insertion order. Index is not safe for concurrent use;
// the owning repository serializes access.
type Index[T any] struct {
	idOf    func(T) string
	fields  Fields[T]
	buckets map[Field]map[string][]T
}

// New builds an empty index over the given fields. idOf identifies entities
// for removal; it is also registered as FieldID when fields lacks it.
func New[T any](idOf func(T) string, fields Fields[T]) *Index[T] {
	all := make(Fields[T], len(fields)+1)
	for f, fn := range fields {
		all[f] = fn
	}
	if _, ok := all[FieldID]; !ok {
		all[FieldID] = idOf
	}
	idx := &Index[T]{idOf: idOf, fields: all}
	idx.reset()
	return idx
}

func (x *Index[T]) reset() {
	x.buckets = make(map[Field]map[string][]T, len(x.fields))
	for f := range x.fields {
		x.buckets[f] = make(map[string][]T)
	}
}

// Has reports whether field is indexed.
func (x *Index[T]) Has(field Field) bool {
	_, ok := x.fields[field]
	return ok
}

// Key returns the index key of item for field.
func (x *Index[T]) Key(field Field, item T) (string, bool) {
	fn, ok := x.fields[field]
	if !ok {
		return "", false
	}
	return fn(item), true
}

// Add stores item under its key in every field bucket.
func (x *Index[T]) Add(item T) {
	for f, fn := range x.fields {
		key := fn(item)
		x.buckets[f][key] = append(x.buckets[f][key], item)
	}
}

// Remove deletes item, matched by id, from every bucket. Empty buckets are dropped.
func (x *Index[T]) Remove(item T) {
	id := x.idOf(item)
	for f, fn := range x.fields {
		key := fn(item)
		bucket := x.buckets[f][key]
		for i, existing := range bucket {
			if x.idOf(existing) != id {
				continue
			}
			bucket = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
		if len(bucket) == 0 {
			delete(x.buckets[f], key)
			continue
		}
		x.buckets[f][key] = bucket
	}
}

// Find returns a copy of the bucket for value, in insertion order. Unknown
// fields and values yield an empty result.
func (x *Index[T]) Find(field Field, value string) []T {
	bucket := x.buckets[field][value]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]T, len(bucket))
	copy(out, bucket)
	return out
}

// Keys lists the distinct values currently indexed for field, sorted.
func (x *Index[T]) Keys(field Field) []string {
	out := make([]string, 0, len(x.buckets[field]))
	for k := range x.buckets[field] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Rebuild clears the index and repopulates it from items.
func (x *Index[T]) Rebuild(items []T) {
	x.reset()
	for _, item := range items {
		x.Add(item)
	}
}
