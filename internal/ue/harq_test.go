package ue

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/ransched/model"
)

func testCellConfig(idx model.CellIndex) *model.CellConfig {
	cfg := model.CellConfig{Index: idx, NofDLHARQs: 4, NofULHARQs: 4, MaxDLRetx: 2, MaxULRetx: 2}
	return &cfg
}

func TestStartDLTxRejectsAckSlotConflict(t *testing.T) {
	e := NewHARQEntity(*testCellConfig(0))
	sl := model.NewSlot(0, 1, 0)

	if err := e.StartDLTx(0, sl, 4, 100); err != nil {
		t.Fatalf("StartDLTx h0: %v", err)
	}
	err := e.StartDLTx(1, sl.Add(1), 3, 200)
	if !errors.Is(err, ErrAckSlotConflict) {
		t.Fatalf("StartDLTx h1 err = %v, want ErrAckSlotConflict", err)
	}
	if e.DL(1).Active() {
		t.Fatalf("rejected process must stay inactive")
	}
}

func TestStartDLTxRejectsBusyProcess(t *testing.T) {
	e := NewHARQEntity(*testCellConfig(0))
	sl := model.NewSlot(0, 1, 0)
	if err := e.StartDLTx(2, sl, 4, 100); err != nil {
		t.Fatalf("StartDLTx: %v", err)
	}
	if err := e.StartDLTx(2, sl.Add(1), 4, 100); !errors.Is(err, ErrHARQBusy) {
		t.Fatalf("err = %v, want ErrHARQBusy", err)
	}
	if err := e.StartDLTx(9, sl, 4, 100); !errors.Is(err, ErrHARQNotFound) {
		t.Fatalf("err = %v, want ErrHARQNotFound", err)
	}
}

func TestDLAckReleasesAndNackRetransmits(t *testing.T) {
	e := NewHARQEntity(*testCellConfig(0))
	sl := model.NewSlot(0, 2, 0)

	if err := e.StartDLTx(0, sl, 4, 1500); err != nil {
		t.Fatalf("StartDLTx: %v", err)
	}
	h := e.DL(0)
	ndi := h.NDI()

	if tbs := h.AckInfo(false); tbs != 1500 {
		t.Fatalf("NACK tbs = %d, want 1500", tbs)
	}
	if !h.PendingRetx() {
		t.Fatalf("NACKed process should await retransmission")
	}

	if err := e.StartDLTx(0, sl.Add(8), 4, 9999); err != nil {
		t.Fatalf("retx StartDLTx: %v", err)
	}
	if h.TBS() != 1500 || h.NofRetx() != 1 || h.NDI() != ndi {
		t.Fatalf("retx kept tbs=%d retx=%d ndi=%v; want 1500, 1, %v", h.TBS(), h.NofRetx(), h.NDI(), ndi)
	}

	if tbs := h.AckInfo(true); tbs != 1500 {
		t.Fatalf("ACK tbs = %d, want 1500", tbs)
	}
	if h.Active() {
		t.Fatalf("ACKed process should be released")
	}
	if tbs := h.AckInfo(true); tbs != -1 {
		t.Fatalf("ACK on inactive process = %d, want -1", tbs)
	}
}

func TestDLNackBeyondMaxRetxDiscards(t *testing.T) {
	e := NewHARQEntity(*testCellConfig(0))
	sl := model.NewSlot(0, 0, 0)
	for retx := 0; retx <= 2; retx++ {
		if err := e.StartDLTx(0, sl.Add(retx*10), 4, 64); err != nil {
			t.Fatalf("tx %d: %v", retx, err)
		}
		e.DL(0).AckInfo(false)
	}
	if e.DL(0).Active() {
		t.Fatalf("process should be discarded after max retransmissions")
	}
}

func TestULCRCInfo(t *testing.T) {
	e := NewHARQEntity(*testCellConfig(0))
	sl := model.NewSlot(0, 0, 0)

	if tbs := e.UL(1).CRCInfo(true); tbs != -1 {
		t.Fatalf("CRC on inactive process = %d, want -1", tbs)
	}
	if err := e.StartULTx(1, sl, 320); err != nil {
		t.Fatalf("StartULTx: %v", err)
	}
	if tbs := e.UL(1).CRCInfo(false); tbs != 320 {
		t.Fatalf("CRC KO tbs = %d, want 320", tbs)
	}
	if !e.UL(1).PendingRetx() || e.UL(1).LastCRC() {
		t.Fatalf("failed CRC should leave the process pending retransmission")
	}
	if err := e.StartULTx(1, sl.Add(8), 0); err != nil {
		t.Fatalf("retx StartULTx: %v", err)
	}
	if tbs := e.UL(1).CRCInfo(true); tbs != 320 {
		t.Fatalf("CRC OK tbs = %d, want 320", tbs)
	}
	if e.UL(1).Active() {
		t.Fatalf("successful CRC should release the process")
	}
}

func TestHARQEntityHonoursCellDimensions(t *testing.T) {
	e := NewHARQEntity(model.CellConfig{NofDLHARQs: 6, NofULHARQs: 3})
	if e.NofDLHARQs() != 6 || e.NofULHARQs() != 3 {
		t.Fatalf("dims = %d/%d, want 6/3", e.NofDLHARQs(), e.NofULHARQs())
	}
	if e.DL(6) != nil || e.UL(3) != nil {
		t.Fatalf("out-of-range lookups must return nil")
	}

	def := NewHARQEntity(model.CellConfig{})
	if def.NofDLHARQs() != model.DefaultNofHARQs {
		t.Fatalf("default DL HARQs = %d, want %d", def.NofDLHARQs(), model.DefaultNofHARQs)
	}
}
