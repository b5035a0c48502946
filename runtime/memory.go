// Package runtime implements the VM's execution substrate: the memory
// arena, stack, clock, and the action-queue-driven event loop described by
// Runtime.
package runtime

import (
	"sort"

	"github.com/wod-wiki/wodwiki/types"
)

// entry is one untyped slot in the arena. Memory owns the value; callers
// only ever hold a Ref.
type entry struct {
	memType    types.MemoryType
	ownerID    types.BlockKey
	visibility types.Visibility
	value      any
	generation int
	released   bool
}

// Ref is a typed handle into Memory's flat arena: {index, generation}. This
// resolves the Block<->Behavior<->MemoryRef ownership cycle the VM would
// otherwise need shared pointers for: Memory owns every value in flat
// storage, and a Ref only ever looks up into it. A Ref remains valid until
// Release is called on it; the generation field distinguishes a
// released-then-reused slot from the Ref that used to own it.
type Ref[T any] struct {
	index      int
	generation int
}

// Valid reports whether the ref was ever issued (it may still be stale).
func (r Ref[T]) Valid() bool { return r.index >= 0 }

// SearchCriteria filters Memory.Search. Nil fields are unconstrained.
type SearchCriteria struct {
	MemType    *types.MemoryType
	OwnerID    *types.BlockKey
	Visibility *types.Visibility
}

const maxNotifyDepth = 64

// Memory is the arena of typed entries owned by blocks, with
// subscribe/notify semantics and strict release-on-dispose discipline.
type Memory struct {
	entries     []entry
	globalSub   map[int]func(ownerID types.BlockKey, memType types.MemoryType)
	refSub      map[int]map[int]func()
	nextSubID   int
	notifyDepth int
}

// NewMemory returns an empty arena.
func NewMemory() *Memory {
	return &Memory{
		globalSub: make(map[int]func(types.BlockKey, types.MemoryType)),
		refSub:    make(map[int]map[int]func()),
	}
}

// Allocate reserves a new entry and returns a typed Ref to it. Strategies
// must call this before returning a Block from compile(); it must never be
// deferred to mount.
func Allocate[T any](m *Memory, memType types.MemoryType, ownerID types.BlockKey, initial T, visibility types.Visibility) Ref[T] {
	idx := len(m.entries)
	m.entries = append(m.entries, entry{
		memType: memType, ownerID: ownerID, visibility: visibility,
		value: initial, generation: 1,
	})
	return Ref[T]{index: idx, generation: 1}
}

// Get dereferences ref. ok is false for a stale ref (released, or index
// reused by a later allocation) or a type mismatch.
func Get[T any](m *Memory, ref Ref[T]) (T, bool) {
	var zero T
	if ref.index < 0 || ref.index >= len(m.entries) {
		return zero, false
	}
	e := &m.entries[ref.index]
	if e.released || e.generation != ref.generation {
		return zero, false
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a new value. Comparison is host-level identity: subscribers
// fire only when the new value differs from the stored one. Returns false
// (a no-op) for a stale ref.
func Set[T any](m *Memory, ref Ref[T], value T) bool {
	if ref.index < 0 || ref.index >= len(m.entries) {
		return false
	}
	e := &m.entries[ref.index]
	if e.released || e.generation != ref.generation {
		return false
	}
	if identical(e.value, value) {
		return false
	}
	e.value = value
	m.notify(ref.index, e.ownerID, e.memType)
	return true
}

// identical compares two values by ==, treating any dynamic type that
// cannot be compared (slices, maps, funcs) as always-changed rather than
// panicking.
func identical(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// Subscribe registers a callback fired synchronously, in registration
// order, on every Set that changes a value anywhere in the arena. Returns
// an unsubscribe func.
func (m *Memory) Subscribe(callback func(ownerID types.BlockKey, memType types.MemoryType)) func() {
	id := m.nextSubID
	m.nextSubID++
	m.globalSub[id] = callback
	return func() { delete(m.globalSub, id) }
}

// SubscribeRef registers a callback fired only when this specific ref's
// value changes. Returns an unsubscribe func.
func SubscribeRef[T any](m *Memory, ref Ref[T], callback func()) func() {
	if m.refSub[ref.index] == nil {
		m.refSub[ref.index] = make(map[int]func())
	}
	id := m.nextSubID
	m.nextSubID++
	m.refSub[ref.index][id] = callback
	return func() { delete(m.refSub[ref.index], id) }
}

// notify fires ref-scoped then global subscribers for index. Depth is
// bounded: a callback that itself calls Set triggers a nested notification,
// and recursion beyond maxNotifyDepth is dropped rather than overflowing
// the stack.
func (m *Memory) notify(index int, ownerID types.BlockKey, memType types.MemoryType) {
	if m.notifyDepth >= maxNotifyDepth {
		return
	}
	m.notifyDepth++
	defer func() { m.notifyDepth-- }()
	for _, cb := range m.refSub[index] {
		cb()
	}
	ids := make([]int, 0, len(m.globalSub))
	for id := range m.globalSub {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if cb, ok := m.globalSub[id]; ok {
			cb(ownerID, memType)
		}
	}
}

// Search returns the raw indices of every live entry matching criteria.
// Use RefAt to reconstruct a typed Ref from a returned index.
func (m *Memory) Search(criteria SearchCriteria) []int {
	var out []int
	for i := range m.entries {
		e := &m.entries[i]
		if e.released {
			continue
		}
		if criteria.MemType != nil && e.memType != *criteria.MemType {
			continue
		}
		if criteria.OwnerID != nil && e.ownerID != *criteria.OwnerID {
			continue
		}
		if criteria.Visibility != nil && e.visibility != *criteria.Visibility {
			continue
		}
		out = append(out, i)
	}
	return out
}

// RefAt reconstructs a typed Ref for a raw index returned by Search. T
// must match the entry's stored type or subsequent Get calls fail.
func RefAt[T any](m *Memory, index int) Ref[T] {
	if index < 0 || index >= len(m.entries) {
		return Ref[T]{index: -1}
	}
	return Ref[T]{index: index, generation: m.entries[index].generation}
}

// Release removes the entry at ref and drops its subscriptions.
func Release[T any](m *Memory, ref Ref[T]) {
	m.release(ref.index)
}

func (m *Memory) release(index int) {
	if index < 0 || index >= len(m.entries) {
		return
	}
	e := &m.entries[index]
	if e.released {
		return
	}
	e.released = true
	e.value = nil
	e.generation++
	delete(m.refSub, index)
}

// ReleaseOwnedBy releases every entry owned by ownerID. dispose(block)
// calls this to guarantee no memory ref or handler owned by a disposed
// block remains reachable.
func (m *Memory) ReleaseOwnedBy(ownerID types.BlockKey) {
	for i := range m.entries {
		if !m.entries[i].released && m.entries[i].ownerID == ownerID {
			m.release(i)
		}
	}
}
