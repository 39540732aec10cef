package usong

import "sync/atomic"

// ALCVec is an atomically-lazy-clone vector: cheap to Clone (a reference
// counted view of the same backing slice), upgraded to an owned copy only
// on the first mutation after a clone. Reference counts are atomic so a
// snapshot can be handed to a background goroutine (e.g. a scan worker)
// without synchronizing with the loop goroutine that may mutate its own
// copy concurrently.
type ALCVec[T any] struct {
	data  []T
	count *atomic.Int32 // shared among every clone of the same backing slice
}

// NewALCVec wraps data as a freshly-owned ALCVec (refcount 1).
func NewALCVec[T any](data []T) ALCVec[T] {
	c := &atomic.Int32{}
	c.Store(1)
	return ALCVec[T]{data: data, count: c}
}

// Len returns the number of elements.
func (v ALCVec[T]) Len() int { return len(v.data) }

// Get returns the element at i without bounds checking beyond what a
// slice index does; callers that need totality (never panic) must clamp
// or use a wrapping type (see Library.Song).
func (v ALCVec[T]) Get(i int) T { return v.data[i] }

// Slice returns the backing slice for read-only iteration. Callers must
// not mutate the returned slice; use Mut for that.
func (v ALCVec[T]) Slice() []T { return v.data }

// Clone returns a new reference-counted view of the same backing slice.
// No copy happens until one of the views calls Mut.
func (v ALCVec[T]) Clone() ALCVec[T] {
	v.count.Add(1)
	return ALCVec[T]{data: v.data, count: v.count}
}

// Mut returns a mutable slice view. If this ALCVec is the sole holder of
// the backing array (refcount == 1) it is returned directly; otherwise
// the backing array is copied first, this view's refcount is detached to
// a fresh counter of 1, and the copy is returned. The receiver must be
// addressable (call as (&v).Mut()) since it may rebind v.data/v.count.
func (v *ALCVec[T]) Mut() []T {
	if v.count.Load() == 1 {
		return v.data
	}
	// Shared: clone before mutating, then drop our share of the old
	// refcount.
	owned := make([]T, len(v.data))
	copy(owned, v.data)
	v.count.Add(-1)
	c := &atomic.Int32{}
	c.Store(1)
	v.data = owned
	v.count = c
	return v.data
}

// Extend appends items, reusing Mut's clone-on-write logic. An empty
// extend is a no-op that never triggers a clone.
func (v *ALCVec[T]) Extend(items ...T) {
	if len(items) == 0 {
		return
	}
	v.data = append(v.Mut(), items...)
}

// Splice replaces data[i:j] with items, matching Rust's Vec::splice used
// by the original playlist's Next/MixIn insertion. An empty splice over
// an empty range is a no-op.
func (v *ALCVec[T]) Splice(i, j int, items ...T) {
	if i == j && len(items) == 0 {
		return
	}
	m := v.Mut()
	tail := append([]T{}, m[j:]...)
	m = append(m[:i], items...)
	m = append(m, tail...)
	v.data = m
}

// Truncate drops every element from n onward.
func (v *ALCVec[T]) Truncate(n int) {
	if n >= len(v.data) {
		return
	}
	v.data = v.Mut()[:n]
}
