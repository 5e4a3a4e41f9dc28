// Package eventq implements the slot-windowed event list shared between
// producer goroutines and the slot dispatch goroutine.
//
// Producers Push from any goroutine. The dispatch goroutine calls
// SlotIndication once per slot to pull everything pushed so far into its
// working set, then walks Events and consumes the entries it applies.
// Entries left unconsumed stay in the working set, ahead of newer ones, until
// a later pass consumes them.
package eventq

import "sync"

// Entry is a queued event plus its tombstone flag.
type Entry[E any] struct {
	Event    E
	consumed bool
}

// Consumed reports whether the entry was already applied or dropped.
func (e *Entry[E]) Consumed() bool { return e.consumed }

// Consume tombstones the entry and releases its payload.
func (e *Entry[E]) Consume() {
	var zero E
	e.Event = zero
	e.consumed = true
}

// List is a multi-producer, single-consumer event list.
//
// Push is safe for concurrent use. SlotIndication, Events and Backlog must
// only be called from the consumer goroutine.
type List[E any] struct {
	mu      sync.Mutex
	pending []Entry[E] // guarded by mu

	// consumer-owned buffers, rotated on every SlotIndication
	current []Entry[E]
	spare   []Entry[E]
	free    []Entry[E]
}

// New creates a List whose buffers start with room for capacity events.
func New[E any](capacity int) *List[E] {
	if capacity < 0 {
		capacity = 0
	}
	return &List[E]{
		pending: make([]Entry[E], 0, capacity),
		current: make([]Entry[E], 0, capacity),
		spare:   make([]Entry[E], 0, capacity),
		free:    make([]Entry[E], 0, capacity),
	}
}

// Push appends an event. It never waits on the consumer beyond the brief
// critical section protecting the pending buffer.
func (l *List[E]) Push(ev E) {
	l.mu.Lock()
	l.pending = append(l.pending, Entry[E]{Event: ev})
	l.mu.Unlock()
}

// SlotIndication opens a new window: unconsumed entries of the previous
// window are kept in order, followed by everything pushed since the last
// call. Consumed entries are discarded.
func (l *List[E]) SlotIndication() {
	l.mu.Lock()
	incoming := l.pending
	l.pending = l.free[:0]
	l.mu.Unlock()

	next := l.spare[:0]
	for i := range l.current {
		if !l.current[i].consumed {
			next = append(next, l.current[i])
		}
	}
	next = append(next, incoming...)

	// drop references held by the retired buffers
	clear(l.current)
	clear(incoming)

	l.spare = l.current[:0]
	l.free = incoming[:0]
	l.current = next
}

// Events returns the working set of the current window. Consumed entries are
// still present; callers skip them and call Consume on the ones they apply.
func (l *List[E]) Events() []Entry[E] {
	return l.current
}

// Backlog counts the unconsumed entries of the working set.
func (l *List[E]) Backlog() int {
	n := 0
	for i := range l.current {
		if !l.current[i].consumed {
			n++
		}
	}
	return n
}

// PendingLen returns the number of events pushed since the last
// SlotIndication.
func (l *List[E]) PendingLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
