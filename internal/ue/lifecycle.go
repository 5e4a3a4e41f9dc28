package ue

import (
	"sync/atomic"

	"github.com/signalsfoundry/ransched/model"
)

// LifecycleState is the producer-visible state of a UE index.
type LifecycleState uint32

const (
	Absent LifecycleState = iota
	PendingCreation
	Active
	PendingDeletion
)

func (s LifecycleState) String() string {
	switch s {
	case Absent:
		return "absent"
	case PendingCreation:
		return "pending-creation"
	case Active:
		return "active"
	case PendingDeletion:
		return "pending-deletion"
	default:
		return "unknown"
	}
}

type lifecycleSlot struct {
	state atomic.Uint32
	gen   atomic.Uint32
}

// LifecycleTable tracks, per UE index, where the UE is in its
// absent -> pending-creation -> active -> pending-deletion -> absent cycle,
// plus the generation of the latest creation request. It is safe for
// concurrent use by producers and the dispatch goroutine.
type LifecycleTable struct {
	slots [model.MaxUEs]lifecycleSlot
}

// NewLifecycleTable returns a table with every index absent.
func NewLifecycleTable() *LifecycleTable {
	return &LifecycleTable{}
}

// State returns the current state of idx.
func (t *LifecycleTable) State(idx model.UEIndex) LifecycleState {
	if !idx.Valid() {
		return Absent
	}
	return LifecycleState(t.slots[idx].state.Load())
}

// Generation returns the generation of the latest creation request for idx.
// Events captured with this value resolve to the UE that request creates.
func (t *LifecycleTable) Generation(idx model.UEIndex) uint32 {
	if !idx.Valid() {
		return 0
	}
	return t.slots[idx].gen.Load()
}

// BeginCreation moves an absent index to pending-creation and returns the new
// generation. It fails when the index is in use.
func (t *LifecycleTable) BeginCreation(idx model.UEIndex) (uint32, bool) {
	if !idx.Valid() {
		return 0, false
	}
	s := &t.slots[idx]
	if !s.state.CompareAndSwap(uint32(Absent), uint32(PendingCreation)) {
		return 0, false
	}
	return s.gen.Add(1), true
}

// Activate marks a created UE as active. A UE whose deletion was requested
// before creation completed stays pending-deletion.
func (t *LifecycleTable) Activate(idx model.UEIndex) {
	if !idx.Valid() {
		return
	}
	t.slots[idx].state.CompareAndSwap(uint32(PendingCreation), uint32(Active))
}

// BeginDeletion moves a pending-creation or active index to pending-deletion
// and returns its generation. It fails when the UE is absent or already being
// deleted.
func (t *LifecycleTable) BeginDeletion(idx model.UEIndex) (uint32, bool) {
	if !idx.Valid() {
		return 0, false
	}
	s := &t.slots[idx]
	for {
		cur := s.state.Load()
		if cur != uint32(PendingCreation) && cur != uint32(Active) {
			return 0, false
		}
		if s.state.CompareAndSwap(cur, uint32(PendingDeletion)) {
			return s.gen.Load(), true
		}
	}
}

// Release returns idx to absent once its UE left the repository.
func (t *LifecycleTable) Release(idx model.UEIndex) {
	if !idx.Valid() {
		return
	}
	t.slots[idx].state.Store(uint32(Absent))
}
