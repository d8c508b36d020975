// Package state provides a minimal observable state holder: a current value
// readable synchronously plus a change subscription, so store consumers can
// either poll the snapshot or react to every committed mutation.
package state

import (
	"sort"
	"sync"
)

// Value holds a single piece of state. Set commits the new value first and
// then notifies every subscriber synchronously, in subscription order, before
// returning. A subscriber therefore never observes a value the holder has not
// already committed, and a caller that mutates a store and then returns a
// result can rely on all subscribers having seen the same state.
type Value[T any] struct {
	mu   sync.RWMutex
	cur  T
	subs map[uint64]func(T)
	next uint64
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[uint64]func(T))}
}

// Get returns the current snapshot.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set commits val and notifies subscribers. Notification happens outside the
// lock, so a subscriber may call Get or even Set again without deadlocking.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.cur = val
	fns := v.snapshotSubsLocked()
	v.mu.Unlock()

	for _, fn := range fns {
		fn(val)
	}
}

// Update applies fn to the current value under the write lock and publishes
// the result. It returns the committed value.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	v.cur = fn(v.cur)
	val := v.cur
	fns := v.snapshotSubsLocked()
	v.mu.Unlock()

	for _, f := range fns {
		f(val)
	}
	return val
}

// Subscribe registers fn for every subsequent Set/Update. It does not replay
// the current value; call Get for that. The returned cancel func removes the
// subscription; fn is not invoked for mutations committed after cancel.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

func (v *Value[T]) snapshotSubsLocked() []func(T) {
	if len(v.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(v.subs))
	for id := range v.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, v.subs[id])
	}
	return fns
}
