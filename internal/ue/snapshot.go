package ue

import "github.com/signalsfoundry/ransched/model"

// DLHARQSnapshot is a copy of a DL HARQ process state.
type DLHARQSnapshot struct {
	ID         model.HARQID
	Active     bool
	WaitingAck bool
	SlotTx     string
	SlotAck    string
	TBS        int
	NofRetx    int
}

// ULHARQSnapshot is a copy of a UL HARQ process state.
type ULHARQSnapshot struct {
	ID         model.HARQID
	Active     bool
	WaitingCRC bool
	SlotTx     string
	TBS        int
	NofRetx    int
	LastCRC    bool
}

// CellSnapshot is a copy of a UE-cell context.
type CellSnapshot struct {
	CellIndex model.CellIndex
	DL        []DLHARQSnapshot
	UL        []ULHARQSnapshot
}

// Snapshot is a deep copy of a UE's scheduler state, used for diagnostics
// and for comparing state before and after event processing.
type Snapshot struct {
	Index           model.UEIndex
	CRNTI           model.RNTI
	Generation      uint32
	PCell           model.CellIndex
	Cells           []CellSnapshot
	LogicalChannels []model.LogicalChannelConfig
	NofLCGs         int
	ULBuffer        [model.MaxLCGs]uint32
	DLBuffer        [model.MaxLCIDs]uint32
	SRPending       bool
	PendingMACCEs   []model.LCID
}

// Snapshot copies the UE state.
func (u *UE) Snapshot() Snapshot {
	s := Snapshot{
		Index:           u.index,
		CRNTI:           u.crnti,
		Generation:      u.generation,
		PCell:           u.PCellIndex(),
		LogicalChannels: append([]model.LogicalChannelConfig(nil), u.lcs...),
		NofLCGs:         u.nofLCGs,
		ULBuffer:        u.ulLCGBytes,
		DLBuffer:        u.dlLCBytes,
		SRPending:       u.srPending,
	}
	for i := 0; i < u.ceLen; i++ {
		s.PendingMACCEs = append(s.PendingMACCEs, u.ces[(u.ceHead+i)%MaxPendingCEs])
	}
	for _, c := range u.cells {
		cs := CellSnapshot{CellIndex: c.CellIndex()}
		for i := range c.harqs.dl {
			h := &c.harqs.dl[i]
			cs.DL = append(cs.DL, DLHARQSnapshot{
				ID:         h.id,
				Active:     h.active,
				WaitingAck: h.waitingAck,
				SlotTx:     h.SlotTx().String(),
				SlotAck:    h.slotAck.String(),
				TBS:        h.tbs,
				NofRetx:    h.nofRetx,
			})
		}
		for i := range c.harqs.ul {
			h := &c.harqs.ul[i]
			cs.UL = append(cs.UL, ULHARQSnapshot{
				ID:         h.id,
				Active:     h.active,
				WaitingCRC: h.waitingCRC,
				SlotTx:     h.SlotTx().String(),
				TBS:        h.tbs,
				NofRetx:    h.nofRetx,
				LastCRC:    h.lastCRC,
			})
		}
		s.Cells = append(s.Cells, cs)
	}
	return s
}

// Snapshot copies every UE in index order.
func (r *Repository) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, r.count)
	r.Range(func(u *UE) bool {
		out = append(out, u.Snapshot())
		return true
	})
	return out
}
