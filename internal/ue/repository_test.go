package ue

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/ransched/model"
)

func newTestUE(idx model.UEIndex, gen uint32, cells ...model.CellIndex) *UE {
	ucs := make([]*UECell, 0, len(cells))
	for _, c := range cells {
		ucs = append(ucs, NewUECell(idx, testCellConfig(c)))
	}
	return New(idx, model.RNTI(0x4601+uint16(idx)), gen, ucs, []model.LogicalChannelConfig{
		{LCID: model.LCIDSRB1, LCGID: 0},
		{LCID: 4, LCGID: 3},
	})
}

func TestRepositoryRejectsDuplicateIndex(t *testing.T) {
	r := NewRepository()
	if err := r.Insert(newTestUE(3, 1, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := r.Insert(newTestUE(3, 2, 0)); !errors.Is(err, ErrUEExists) {
		t.Fatalf("duplicate Insert err = %v, want ErrUEExists", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestRepositoryLookupChecksGeneration(t *testing.T) {
	r := NewRepository()
	if err := r.Insert(newTestUE(5, 1, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, ok := r.Lookup(5, 1); !ok {
		t.Fatalf("Lookup with current generation failed")
	}

	r.Remove(5)
	if err := r.Insert(newTestUE(5, 2, 0)); err != nil {
		t.Fatalf("re-Insert: %v", err)
	}
	if _, ok := r.Lookup(5, 1); ok {
		t.Fatalf("stale generation must resolve to not found")
	}
	if _, ok := r.Lookup(5, 2); !ok {
		t.Fatalf("Lookup with new generation failed")
	}
}

func TestRepositoryRangeIsOrdered(t *testing.T) {
	r := NewRepository()
	for _, idx := range []model.UEIndex{9, 2, 40} {
		if err := r.Insert(newTestUE(idx, 1, 0)); err != nil {
			t.Fatalf("Insert %d: %v", idx, err)
		}
	}
	var got []model.UEIndex
	r.Range(func(u *UE) bool {
		got = append(got, u.Index())
		return true
	})
	if len(got) != 3 || got[0] != 2 || got[1] != 9 || got[2] != 40 {
		t.Fatalf("Range order = %v, want [2 9 40]", got)
	}
	if r.Remove(9) == nil || r.Remove(9) != nil {
		t.Fatalf("Remove should return the UE once")
	}
}

func TestUEReconfigureKeepsExistingCellState(t *testing.T) {
	u := newTestUE(1, 1, 0)
	if err := u.PCell().HARQs().StartULTx(0, model.NewSlot(0, 0, 0), 10); err != nil {
		t.Fatalf("StartULTx: %v", err)
	}
	old := u.PCell()

	u.Reconfigure([]*UECell{NewUECell(1, testCellConfig(0)), NewUECell(1, testCellConfig(2))}, nil)

	if u.PCell() != old {
		t.Fatalf("PCell context must survive reconfiguration")
	}
	if u.FindCell(2) == nil {
		t.Fatalf("new SCell context missing")
	}
	if u.NofLCGs() != 4 {
		t.Fatalf("NofLCGs = %d, want 4", u.NofLCGs())
	}
}

func TestUEMACCEQueueDropsOldest(t *testing.T) {
	u := newTestUE(1, 1, 0)
	for i := range MaxPendingCEs {
		if !u.PushMACCE(model.LCID(i)) {
			t.Fatalf("push %d unexpectedly dropped", i)
		}
	}
	if u.PushMACCE(model.LCIDTACommand) {
		t.Fatalf("push into a full queue should report a drop")
	}
	first, ok := u.PopMACCE()
	if !ok || first != 1 {
		t.Fatalf("PopMACCE = %d, %v; want 1, true", first, ok)
	}
	if u.DroppedMACCEs() != 1 || u.NofPendingMACCEs() != MaxPendingCEs-1 {
		t.Fatalf("dropped=%d pending=%d", u.DroppedMACCEs(), u.NofPendingMACCEs())
	}
}
