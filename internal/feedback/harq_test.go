package feedback

import (
	"testing"

	"github.com/signalsfoundry/ransched/internal/ue"
	"github.com/signalsfoundry/ransched/model"
)

func newCell(t *testing.T) *ue.UECell {
	t.Helper()
	cfg := model.CellConfig{Index: 1, NofDLHARQs: 4, NofULHARQs: 4, MaxDLRetx: 1, MaxULRetx: 1}
	return ue.NewUECell(3, &cfg)
}

func TestCorrelateHARQAckUpdatesOnlyMatchingProcess(t *testing.T) {
	c := newCell(t)
	base := model.NewSlot(0, 10, 0)
	// h0 acks at base+4, h1 at base+5
	if err := c.HARQs().StartDLTx(0, base, 4, 100); err != nil {
		t.Fatalf("StartDLTx h0: %v", err)
	}
	if err := c.HARQs().StartDLTx(1, base.Add(1), 4, 200); err != nil {
		t.Fatalf("StartDLTx h1: %v", err)
	}

	var outs []AckOutcome
	CorrelateHARQAck(c, base.Add(5), []bool{true}, func(o AckOutcome) { outs = append(outs, o) })

	if len(outs) != 1 || !outs[0].Found || outs[0].HARQID != 1 || outs[0].TBS != 200 {
		t.Fatalf("outcomes = %+v, want h1 acked with tbs 200", outs)
	}
	if c.HARQs().DL(1).Active() {
		t.Fatalf("h1 should be released by ACK")
	}
	if !c.HARQs().DL(0).WaitingAck() {
		t.Fatalf("h0 must be untouched")
	}
}

func TestCorrelateHARQAckReportsUnmatchedBits(t *testing.T) {
	c := newCell(t)
	base := model.NewSlot(0, 3, 2)
	if err := c.HARQs().StartDLTx(2, base, 4, 64); err != nil {
		t.Fatalf("StartDLTx: %v", err)
	}

	var outs []AckOutcome
	CorrelateHARQAck(c, base.Add(4), []bool{false, true}, func(o AckOutcome) { outs = append(outs, o) })

	if len(outs) != 2 {
		t.Fatalf("visited %d bits, want 2", len(outs))
	}
	if !outs[0].Found || outs[0].HARQID != 2 || outs[0].Ack {
		t.Fatalf("bit 0 = %+v, want NACK on h2", outs[0])
	}
	if outs[1].Found || outs[1].Bit != 1 {
		t.Fatalf("bit 1 = %+v, want not found", outs[1])
	}
	if !c.HARQs().DL(2).PendingRetx() {
		t.Fatalf("NACKed h2 should await retransmission")
	}
}

func TestCorrelateHARQAckWrongSlotFindsNothing(t *testing.T) {
	c := newCell(t)
	base := model.NewSlot(0, 0, 0)
	if err := c.HARQs().StartDLTx(0, base, 4, 64); err != nil {
		t.Fatalf("StartDLTx: %v", err)
	}
	found := false
	CorrelateHARQAck(c, base.Add(3), []bool{true}, func(o AckOutcome) { found = o.Found })
	if found || !c.HARQs().DL(0).WaitingAck() {
		t.Fatalf("ACK in the wrong slot must not touch h0")
	}
}

func TestApplyCRC(t *testing.T) {
	c := newCell(t)
	if _, ok := ApplyCRC(c, &model.CRCPDU{HARQID: 9, TBCRCSuccess: true}); ok {
		t.Fatalf("out-of-range HARQ id accepted")
	}
	if _, ok := ApplyCRC(c, &model.CRCPDU{HARQID: 0, TBCRCSuccess: true}); ok {
		t.Fatalf("CRC on idle process accepted")
	}
	if err := c.HARQs().StartULTx(0, model.NewSlot(0, 0, 0), 256); err != nil {
		t.Fatalf("StartULTx: %v", err)
	}
	tbs, ok := ApplyCRC(c, &model.CRCPDU{HARQID: 0, TBCRCSuccess: true})
	if !ok || tbs != 256 {
		t.Fatalf("ApplyCRC = %d, %v; want 256, true", tbs, ok)
	}
	if c.HARQs().UL(0).Active() {
		t.Fatalf("successful CRC should release the process")
	}
}

func TestApplyDLBufferStateFlagsSRB0(t *testing.T) {
	cfg := model.CellConfig{}
	u := ue.New(0, 0x4601, 1, []*ue.UECell{ue.NewUECell(0, &cfg)}, nil)
	if !ApplyDLBufferState(u, &model.DLBufferStateIndication{LCID: model.LCIDSRB0, BS: 80}) {
		t.Fatalf("SRB0 indication not flagged")
	}
	if ApplyDLBufferState(u, &model.DLBufferStateIndication{LCID: 4, BS: 1000}) {
		t.Fatalf("DRB indication flagged as SRB0")
	}
	if u.DLBufferBytes(model.LCIDSRB0) != 80 || u.DLBufferBytes(4) != 1000 {
		t.Fatalf("buffers = %d/%d, want 80/1000", u.DLBufferBytes(0), u.DLBufferBytes(4))
	}
	ApplySR(u)
	if !u.SRPending() {
		t.Fatalf("SR not recorded")
	}
}
