package repository

import "fmt"

// Warning records one element of a bulk call that failed.
type Warning struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Err   error  `json:"-"`
}

func (w Warning) String() string {
	if w.ID != "" {
		return fmt.Sprintf("item %d (%s): %v", w.Index, w.ID, w.Err)
	}
	return fmt.Sprintf("item %d: %v", w.Index, w.Err)
}

// BulkResult carries the items a bulk call applied and the failures it
// skipped. Partial success is normal.
type BulkResult[T any] struct {
	Items    []T
	Warnings []Warning
}

// OK reports whether every element was applied.
func (b BulkResult[T]) OK() bool {
	return len(b.Warnings) == 0
}

// Messages renders the warnings for callers that report plain strings.
func (b BulkResult[T]) Messages() []string {
	out := make([]string, 0, len(b.Warnings))
	for _, w := range b.Warnings {
		out = append(out, w.String())
	}
	return out
}

// Patch addresses one record of an UpdateMany call.
type Patch[T any] struct {
	ID     string
	Mutate func(*T) error
}

// CreateMany creates each element independently.
func (r *Repository[T, P]) CreateMany(items []T) BulkResult[T] {
	var res BulkResult[T]
	for i, item := range items {
		created, err := r.Create(item)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Index: i, ID: idOf[T, P](item), Err: err})
			continue
		}
		res.Items = append(res.Items, created)
	}
	return res
}

// UpdateMany applies each patch independently.
func (r *Repository[T, P]) UpdateMany(patches []Patch[T]) BulkResult[T] {
	var res BulkResult[T]
	for i, p := range patches {
		updated, err := r.Update(p.ID, p.Mutate)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Index: i, ID: p.ID, Err: err})
			continue
		}
		res.Items = append(res.Items, updated)
	}
	return res
}

// DeleteMany removes each id. Missing ids are reported as warnings; the
// returned items are the ids actually removed.
func (r *Repository[T, P]) DeleteMany(ids []string) BulkResult[string] {
	var res BulkResult[string]
	for i, id := range ids {
		if !r.Delete(id) {
			res.Warnings = append(res.Warnings, Warning{Index: i, ID: id, Err: notFound(r.schema.Entity, id)})
			continue
		}
		res.Items = append(res.Items, id)
	}
	return res
}
