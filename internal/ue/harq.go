package ue

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/ransched/model"
)

var (
	// ErrAckSlotConflict indicates another live DL HARQ process of the same
	// UE-cell already expects its acknowledgment in the requested slot.
	ErrAckSlotConflict = errors.New("another DL HARQ process expects ACK in the same slot")
	// ErrHARQBusy indicates the process is still waiting for feedback.
	ErrHARQBusy = errors.New("HARQ process is waiting for feedback")
	// ErrHARQNotFound indicates a HARQ id outside the entity.
	ErrHARQNotFound = errors.New("HARQ process not found")
)

// DLHARQProcess tracks one downlink transport block awaiting acknowledgment.
type DLHARQProcess struct {
	id         model.HARQID
	active     bool
	waitingAck bool
	slotTx     model.Slot
	slotAck    model.Slot
	tbs        int
	ndi        bool
	nofRetx    int
	maxRetx    int
}

func (h *DLHARQProcess) ID() model.HARQID    { return h.id }
func (h *DLHARQProcess) Active() bool        { return h.active }
func (h *DLHARQProcess) WaitingAck() bool    { return h.waitingAck }
func (h *DLHARQProcess) SlotTx() model.Slot  { return h.slotTx }
func (h *DLHARQProcess) SlotAck() model.Slot { return h.slotAck }
func (h *DLHARQProcess) TBS() int            { return h.tbs }
func (h *DLHARQProcess) NDI() bool           { return h.ndi }
func (h *DLHARQProcess) NofRetx() int        { return h.nofRetx }

// PendingRetx reports whether the process was NACKed and awaits a
// retransmission.
func (h *DLHARQProcess) PendingRetx() bool { return h.active && !h.waitingAck }

// ExpectsAckAt reports whether the process is live and waiting for an
// acknowledgment received in slot sl.
func (h *DLHARQProcess) ExpectsAckAt(sl model.Slot) bool {
	return h.active && h.waitingAck && h.slotAck.Equal(sl)
}

// AckInfo applies one HARQ-ACK bit. It returns the TBS of the acknowledged
// transport block, or -1 when the process was not waiting for feedback.
// A NACK keeps the process for retransmission until maxRetx is reached, after
// which the transport block is discarded.
func (h *DLHARQProcess) AckInfo(ack bool) int {
	if !h.active || !h.waitingAck {
		return -1
	}
	tbs := h.tbs
	h.waitingAck = false
	if ack || h.nofRetx >= h.maxRetx {
		h.Reset()
	}
	return tbs
}

// Reset retires the process regardless of its state.
func (h *DLHARQProcess) Reset() {
	id, maxRetx, ndi := h.id, h.maxRetx, h.ndi
	*h = DLHARQProcess{id: id, maxRetx: maxRetx, ndi: ndi}
}

// ULHARQProcess tracks one uplink transport block awaiting its CRC.
type ULHARQProcess struct {
	id         model.HARQID
	active     bool
	waitingCRC bool
	slotTx     model.Slot
	tbs        int
	nofRetx    int
	maxRetx    int
	lastCRC    bool
}

func (h *ULHARQProcess) ID() model.HARQID   { return h.id }
func (h *ULHARQProcess) Active() bool       { return h.active }
func (h *ULHARQProcess) WaitingCRC() bool   { return h.waitingCRC }
func (h *ULHARQProcess) SlotTx() model.Slot { return h.slotTx }
func (h *ULHARQProcess) TBS() int           { return h.tbs }
func (h *ULHARQProcess) NofRetx() int       { return h.nofRetx }
func (h *ULHARQProcess) LastCRC() bool      { return h.lastCRC }

// PendingRetx reports whether the last CRC failed and a retransmission is due.
func (h *ULHARQProcess) PendingRetx() bool { return h.active && !h.waitingCRC }

// CRCInfo applies a CRC result and returns the TBS of the transport block, or
// -1 when the process was not expecting a CRC.
func (h *ULHARQProcess) CRCInfo(ok bool) int {
	if !h.active || !h.waitingCRC {
		return -1
	}
	tbs := h.tbs
	h.waitingCRC = false
	h.lastCRC = ok
	if ok || h.nofRetx >= h.maxRetx {
		h.active = false
	}
	return tbs
}

// Reset retires the process regardless of its state.
func (h *ULHARQProcess) Reset() {
	id, maxRetx := h.id, h.maxRetx
	*h = ULHARQProcess{id: id, maxRetx: maxRetx}
}

// HARQEntity holds the fixed-size DL and UL HARQ process arrays of a UE-cell.
type HARQEntity struct {
	dl []DLHARQProcess
	ul []ULHARQProcess
}

// NewHARQEntity sizes an entity from a cell configuration.
func NewHARQEntity(cfg model.CellConfig) *HARQEntity {
	cfg = cfg.WithDefaults()
	e := &HARQEntity{
		dl: make([]DLHARQProcess, min(cfg.NofDLHARQs, model.MaxHARQs)),
		ul: make([]ULHARQProcess, min(cfg.NofULHARQs, model.MaxHARQs)),
	}
	for i := range e.dl {
		e.dl[i] = DLHARQProcess{id: model.HARQID(i), maxRetx: cfg.MaxDLRetx}
	}
	for i := range e.ul {
		e.ul[i] = ULHARQProcess{id: model.HARQID(i), maxRetx: cfg.MaxULRetx}
	}
	return e
}

func (e *HARQEntity) NofDLHARQs() int { return len(e.dl) }
func (e *HARQEntity) NofULHARQs() int { return len(e.ul) }

// DL returns the DL process with the given id, or nil when out of range.
func (e *HARQEntity) DL(id model.HARQID) *DLHARQProcess {
	if int(id) >= len(e.dl) {
		return nil
	}
	return &e.dl[id]
}

// UL returns the UL process with the given id, or nil when out of range.
func (e *HARQEntity) UL(id model.HARQID) *ULHARQProcess {
	if int(id) >= len(e.ul) {
		return nil
	}
	return &e.ul[id]
}

// FindDLAwaitingAck returns the first DL process expecting its acknowledgment
// in slot sl, or nil.
func (e *HARQEntity) FindDLAwaitingAck(sl model.Slot) *DLHARQProcess {
	for i := range e.dl {
		if e.dl[i].ExpectsAckAt(sl) {
			return &e.dl[i]
		}
	}
	return nil
}

// FindEmptyDL returns an inactive DL process, or nil.
func (e *HARQEntity) FindEmptyDL() *DLHARQProcess {
	for i := range e.dl {
		if !e.dl[i].active {
			return &e.dl[i]
		}
	}
	return nil
}

// FindEmptyUL returns an inactive UL process, or nil.
func (e *HARQEntity) FindEmptyUL() *ULHARQProcess {
	for i := range e.ul {
		if !e.ul[i].active {
			return &e.ul[i]
		}
	}
	return nil
}

// StartDLTx records a (re)transmission on DL process id in slotTx with the
// acknowledgment expected k1 slots later. A process pending retransmission is
// retransmitted with its original TBS; an inactive one starts a new transport
// block with the given tbs and a toggled NDI.
//
// At most one live process may expect acknowledgment in a given slot; a
// conflicting start fails with ErrAckSlotConflict.
func (e *HARQEntity) StartDLTx(id model.HARQID, slotTx model.Slot, k1 int, tbs int) error {
	h := e.DL(id)
	if h == nil {
		return fmt.Errorf("%w: dl h_id=%d", ErrHARQNotFound, id)
	}
	if h.waitingAck {
		return fmt.Errorf("%w: dl h_id=%d", ErrHARQBusy, id)
	}
	slotAck := slotTx.Add(k1)
	if other := e.FindDLAwaitingAck(slotAck); other != nil {
		return fmt.Errorf("%w: slot=%s held by h_id=%d", ErrAckSlotConflict, slotAck, other.id)
	}
	if h.active {
		h.nofRetx++
	} else {
		h.active = true
		h.ndi = !h.ndi
		h.nofRetx = 0
		h.tbs = tbs
	}
	h.waitingAck = true
	h.slotTx = slotTx
	h.slotAck = slotAck
	return nil
}

// StartULTx records a (re)transmission grant on UL process id for slotTx.
func (e *HARQEntity) StartULTx(id model.HARQID, slotTx model.Slot, tbs int) error {
	h := e.UL(id)
	if h == nil {
		return fmt.Errorf("%w: ul h_id=%d", ErrHARQNotFound, id)
	}
	if h.waitingCRC {
		return fmt.Errorf("%w: ul h_id=%d", ErrHARQBusy, id)
	}
	if h.active {
		h.nofRetx++
	} else {
		h.active = true
		h.nofRetx = 0
		h.tbs = tbs
	}
	h.waitingCRC = true
	h.slotTx = slotTx
	return nil
}
