// Package kb is the catalogue of DU cells known to the scheduler. Cells are
// loaded once at startup and never change afterwards.
package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/ransched/model"
)

var (
	// ErrCellExists indicates a cell index is already in the catalogue.
	ErrCellExists = errors.New("cell already exists")
	// ErrCellNotFound indicates a cell index is not in the catalogue.
	ErrCellNotFound = errors.New("cell not found")
	// ErrCellInvalid indicates a cell configuration failed validation.
	ErrCellInvalid = errors.New("invalid cell")
)

// MaxNumerology is the largest NR subcarrier spacing index (240 kHz).
const MaxNumerology = 4

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventCellAdded EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type EventType
	Cell model.CellConfig
}

// KnowledgeBase is an in-memory, thread-safe store of cell configurations.
type KnowledgeBase struct {
	mu sync.RWMutex

	cells map[model.CellIndex]*model.CellConfig
	pcis  map[uint16]model.CellIndex

	subs []func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		cells: make(map[model.CellIndex]*model.CellConfig),
		pcis:  make(map[uint16]model.CellIndex),
	}
}

// ValidateCell checks a cell configuration in isolation.
func ValidateCell(c model.CellConfig) error {
	if !c.Index.Valid() {
		return fmt.Errorf("%w: cell_index=%d exceeds max %d cells", ErrCellInvalid, c.Index, model.MaxCells)
	}
	if c.Numerology > MaxNumerology {
		return fmt.Errorf("%w: cell_index=%d numerology=%d", ErrCellInvalid, c.Index, c.Numerology)
	}
	if c.PCI > 1007 {
		return fmt.Errorf("%w: cell_index=%d pci=%d", ErrCellInvalid, c.Index, c.PCI)
	}
	if c.NofDLHARQs < 0 || c.NofDLHARQs > model.MaxHARQs || c.NofULHARQs < 0 || c.NofULHARQs > model.MaxHARQs {
		return fmt.Errorf("%w: cell_index=%d HARQ count exceeds %d", ErrCellInvalid, c.Index, model.MaxHARQs)
	}
	if c.MaxDLRetx < 0 || c.MaxULRetx < 0 {
		return fmt.Errorf("%w: cell_index=%d negative max retransmissions", ErrCellInvalid, c.Index)
	}
	return nil
}

// AddCell validates and stores a cell, filling default HARQ dimensions, and
// notifies subscribers. Duplicate indexes and duplicate PCIs are rejected.
func (kb *KnowledgeBase) AddCell(c model.CellConfig) error {
	if err := ValidateCell(c); err != nil {
		return err
	}
	c = c.WithDefaults()

	kb.mu.Lock()
	if _, exists := kb.cells[c.Index]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: cell_index=%d", ErrCellExists, c.Index)
	}
	if other, exists := kb.pcis[c.PCI]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: pci=%d already used by cell_index=%d", ErrCellExists, c.PCI, other)
	}
	kb.cells[c.Index] = &c
	kb.pcis[c.PCI] = c.Index
	event := Event{Type: EventCellAdded, Cell: c}
	subs := append([]func(Event){}, kb.subs...)
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// GetCell returns a copy of the cell configuration.
func (kb *KnowledgeBase) GetCell(idx model.CellIndex) (model.CellConfig, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	c, ok := kb.cells[idx]
	if !ok {
		return model.CellConfig{}, fmt.Errorf("%w: cell_index=%d", ErrCellNotFound, idx)
	}
	return *c, nil
}

// ListCells returns copies of all cells ordered by index.
func (kb *KnowledgeBase) ListCells() []model.CellConfig {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.CellConfig, 0, len(kb.cells))
	for _, c := range kb.cells {
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Index < res[j].Index })
	return res
}

// Len returns the number of cells.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.cells)
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.subs = append(kb.subs, fn)
	idx := len(kb.subs) - 1

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if idx < 0 || idx >= len(kb.subs) {
			return
		}
		kb.subs = append(kb.subs[:idx], kb.subs[idx+1:]...)
		idx = -1
	}
}
