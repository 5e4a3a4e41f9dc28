package kb

import (
	"errors"
	"sync"
	"testing"

	"github.com/signalsfoundry/ransched/model"
)

func TestAddAndGetCell(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddCell(model.CellConfig{Index: 1, PCI: 500, Numerology: 1}); err != nil {
		t.Fatalf("AddCell error: %v", err)
	}
	got, err := store.GetCell(1)
	if err != nil {
		t.Fatalf("GetCell error: %v", err)
	}
	if got.PCI != 500 || got.NofDLHARQs != model.DefaultNofHARQs {
		t.Fatalf("GetCell returned %#v, want pci 500 with default HARQs", got)
	}
	if _, err := store.GetCell(2); !errors.Is(err, ErrCellNotFound) {
		t.Fatalf("GetCell(2) err = %v, want ErrCellNotFound", err)
	}
}

func TestAddCellDuplicate(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddCell(model.CellConfig{Index: 0, PCI: 1}); err != nil {
		t.Fatalf("first AddCell error: %v", err)
	}
	if err := store.AddCell(model.CellConfig{Index: 0, PCI: 2}); !errors.Is(err, ErrCellExists) {
		t.Fatalf("duplicate index err = %v, want ErrCellExists", err)
	}
	if err := store.AddCell(model.CellConfig{Index: 1, PCI: 1}); !errors.Is(err, ErrCellExists) {
		t.Fatalf("duplicate pci err = %v, want ErrCellExists", err)
	}
}

func TestAddCellValidation(t *testing.T) {
	store := NewKnowledgeBase()
	for _, c := range []model.CellConfig{
		{Index: model.MaxCells},
		{Index: 0, Numerology: 5},
		{Index: 0, PCI: 1008},
		{Index: 0, NofDLHARQs: 17},
	} {
		if err := store.AddCell(c); !errors.Is(err, ErrCellInvalid) {
			t.Fatalf("AddCell(%+v) err = %v, want ErrCellInvalid", c, err)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("invalid cells were stored")
	}
}

func TestListCellsOrdered(t *testing.T) {
	store := NewKnowledgeBase()
	for _, idx := range []model.CellIndex{3, 0, 2} {
		if err := store.AddCell(model.CellConfig{Index: idx, PCI: uint16(idx) + 10}); err != nil {
			t.Fatalf("AddCell(%d): %v", idx, err)
		}
	}
	cells := store.ListCells()
	if len(cells) != 3 || cells[0].Index != 0 || cells[1].Index != 2 || cells[2].Index != 3 {
		t.Fatalf("ListCells = %+v, want indexes 0,2,3", cells)
	}
}

func TestSubscribeReceivesCellAdded(t *testing.T) {
	store := NewKnowledgeBase()
	var got []model.CellIndex
	unsubscribe := store.Subscribe(func(ev Event) {
		if ev.Type == EventCellAdded {
			got = append(got, ev.Cell.Index)
		}
	})
	if err := store.AddCell(model.CellConfig{Index: 4, PCI: 4}); err != nil {
		t.Fatalf("AddCell: %v", err)
	}
	unsubscribe()
	if err := store.AddCell(model.CellConfig{Index: 5, PCI: 5}); err != nil {
		t.Fatalf("AddCell: %v", err)
	}
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("events = %v, want [4]", got)
	}
}

func TestConcurrentAddCell(t *testing.T) {
	store := NewKnowledgeBase()
	var wg sync.WaitGroup
	for i := range model.MaxCells {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.AddCell(model.CellConfig{Index: model.CellIndex(i), PCI: uint16(i)}); err != nil {
				t.Errorf("AddCell(%d): %v", i, err)
			}
		}()
	}
	wg.Wait()
	if store.Len() != model.MaxCells {
		t.Fatalf("Len = %d, want %d", store.Len(), model.MaxCells)
	}
}
