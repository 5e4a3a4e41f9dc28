// Package timectrl drives the slot timeline that paces the scheduler.
package timectrl

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/signalsfoundry/ransched/model"
)

// Mode describes how the SlotController advances the slot timeline.
type Mode int

const (
	// RealTime emits one slot per slot duration of the injected clock.
	RealTime Mode = iota
	// Accelerated emits slots back to back without waiting.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// SlotDuration returns the slot length for a numerology: 1 ms at 15 kHz
// subcarrier spacing, halving per numerology step.
func SlotDuration(numerology uint8) time.Duration {
	return time.Millisecond >> numerology
}

// SlotController emits consecutive slots to registered listeners.
type SlotController struct {
	mu         sync.RWMutex
	clock      clock.Clock
	numerology uint8
	mode       Mode

	// next is the slot handed out on the following tick.
	next    model.Slot
	current model.Slot

	listeners []func(model.Slot)
}

// NewSlotController constructs a controller whose first emitted slot is
// start. A nil clock uses the wall clock.
func NewSlotController(clk clock.Clock, start model.Slot, mode Mode) *SlotController {
	if clk == nil {
		clk = clock.New()
	}
	return &SlotController{
		clock:      clk,
		numerology: start.Numerology(),
		mode:       mode,
		next:       start,
	}
}

// Now returns the last emitted slot. It is invalid before the first tick.
func (sc *SlotController) Now() model.Slot {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.current
}

// SlotDuration returns the length of one emitted slot.
func (sc *SlotController) SlotDuration() time.Duration { return SlotDuration(sc.numerology) }

// Mode returns the pacing mode.
func (sc *SlotController) Mode() Mode { return sc.mode }

// AddListener registers a callback invoked on every slot. Listeners run on
// the controller goroutine in registration order; register them before Start.
func (sc *SlotController) AddListener(fn func(model.Slot)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.listeners = append(sc.listeners, fn)
}

// Step emits exactly one slot synchronously and returns it.
func (sc *SlotController) Step() model.Slot {
	sc.mu.Lock()
	sl := sc.next
	sc.current = sl
	sc.next = sl.Add(1)
	listeners := sc.listeners
	sc.mu.Unlock()

	for _, fn := range listeners {
		fn(sl)
	}
	return sl
}

// Start runs the controller in a separate goroutine until nofSlots slots have
// been emitted or ctx is cancelled. A zero nofSlots runs until cancellation.
// The returned channel is closed when the controller stops.
func (sc *SlotController) Start(ctx context.Context, nofSlots uint64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if sc.mode == Accelerated {
			sc.runAccelerated(ctx, nofSlots)
			return
		}
		sc.runRealTime(ctx, nofSlots)
	}()
	return done
}

func (sc *SlotController) runAccelerated(ctx context.Context, nofSlots uint64) {
	for emitted := uint64(0); nofSlots == 0 || emitted < nofSlots; emitted++ {
		if ctx.Err() != nil {
			return
		}
		sc.Step()
	}
}

func (sc *SlotController) runRealTime(ctx context.Context, nofSlots uint64) {
	ticker := sc.clock.Ticker(sc.SlotDuration())
	defer ticker.Stop()

	for emitted := uint64(0); nofSlots == 0 || emitted < nofSlots; emitted++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.Step()
		}
	}
}
