// Package ue holds the scheduler-side UE state: UE and UE-cell contexts, HARQ
// entities, the UE repository and the producer-side lifecycle table.
//
// Everything except LifecycleTable is owned by the slot dispatch goroutine
// and must not be touched by producers once published.
package ue

import (
	"github.com/signalsfoundry/ransched/model"
)

// MaxPendingCEs bounds the DL MAC CEs a UE can have queued.
const MaxPendingCEs = 8

// UECell is the context of a UE on one of its serving cells.
type UECell struct {
	ueIndex model.UEIndex
	cfg     *model.CellConfig
	harqs   *HARQEntity
}

// NewUECell creates a UE-cell context with a HARQ entity sized from cfg.
func NewUECell(ueIndex model.UEIndex, cfg *model.CellConfig) *UECell {
	return &UECell{
		ueIndex: ueIndex,
		cfg:     cfg,
		harqs:   NewHARQEntity(*cfg),
	}
}

func (c *UECell) UEIndex() model.UEIndex     { return c.ueIndex }
func (c *UECell) CellIndex() model.CellIndex { return c.cfg.Index }
func (c *UECell) Config() *model.CellConfig  { return c.cfg }
func (c *UECell) HARQs() *HARQEntity         { return c.harqs }

// UE is the scheduler view of one user equipment.
type UE struct {
	index      model.UEIndex
	crnti      model.RNTI
	generation uint32

	// cells[0] is the PCell
	cells   []*UECell
	lcs     []model.LogicalChannelConfig
	nofLCGs int

	ulLCGBytes [model.MaxLCGs]uint32
	dlLCBytes  [model.MaxLCIDs]uint32
	srPending  bool

	ces        [MaxPendingCEs]model.LCID
	ceHead     int
	ceLen      int
	droppedCEs uint64
}

// New builds a UE from already-constructed cell contexts. It is meant to run
// on the producer goroutine, before the UE is published to the repository.
func New(index model.UEIndex, crnti model.RNTI, generation uint32, cells []*UECell, lcs []model.LogicalChannelConfig) *UE {
	u := &UE{
		index:      index,
		crnti:      crnti,
		generation: generation,
		cells:      cells,
	}
	u.setLogicalChannels(lcs)
	return u
}

func (u *UE) Index() model.UEIndex  { return u.index }
func (u *UE) CRNTI() model.RNTI     { return u.crnti }
func (u *UE) Generation() uint32    { return u.generation }
func (u *UE) Cells() []*UECell      { return u.cells }
func (u *UE) NofLCGs() int          { return u.nofLCGs }
func (u *UE) SRPending() bool       { return u.srPending }
func (u *UE) DroppedMACCEs() uint64 { return u.droppedCEs }

// LogicalChannels returns the configured logical channels.
func (u *UE) LogicalChannels() []model.LogicalChannelConfig { return u.lcs }

// PCell returns the primary cell context.
func (u *UE) PCell() *UECell { return u.cells[0] }

// PCellIndex returns the index of the primary cell.
func (u *UE) PCellIndex() model.CellIndex { return u.cells[0].CellIndex() }

// FindCell returns the UE-cell context for cell, or nil when the UE is not
// configured on it.
func (u *UE) FindCell(cell model.CellIndex) *UECell {
	for _, c := range u.cells {
		if c.CellIndex() == cell {
			return c
		}
	}
	return nil
}

// ULBufferBytes returns the last reported UL buffer of an LCG.
func (u *UE) ULBufferBytes(lcg model.LCGID) uint32 {
	if int(lcg) >= model.MaxLCGs {
		return 0
	}
	return u.ulLCGBytes[lcg]
}

// SetULBufferBytes stores the reported UL buffer of an LCG.
func (u *UE) SetULBufferBytes(lcg model.LCGID, bytes uint32) {
	if int(lcg) >= model.MaxLCGs {
		return
	}
	u.ulLCGBytes[lcg] = bytes
}

// PendingULBytes sums the UL buffer over all LCGs.
func (u *UE) PendingULBytes() uint64 {
	var total uint64
	for _, b := range u.ulLCGBytes {
		total += uint64(b)
	}
	return total
}

// DLBufferBytes returns the pending DL bytes of a logical channel.
func (u *UE) DLBufferBytes(lcid model.LCID) uint32 {
	if int(lcid) >= model.MaxLCIDs {
		return 0
	}
	return u.dlLCBytes[lcid]
}

// SetDLBufferBytes stores the pending DL bytes of a logical channel.
func (u *UE) SetDLBufferBytes(lcid model.LCID, bytes uint32) {
	if int(lcid) >= model.MaxLCIDs {
		return
	}
	u.dlLCBytes[lcid] = bytes
}

// SetSRPending raises or clears the scheduling request flag.
func (u *UE) SetSRPending(v bool) { u.srPending = v }

// PushMACCE queues a DL MAC CE. When the queue is full the oldest CE is
// dropped and false is returned.
func (u *UE) PushMACCE(lcid model.LCID) bool {
	ok := true
	if u.ceLen == MaxPendingCEs {
		u.ceHead = (u.ceHead + 1) % MaxPendingCEs
		u.ceLen--
		u.droppedCEs++
		ok = false
	}
	u.ces[(u.ceHead+u.ceLen)%MaxPendingCEs] = lcid
	u.ceLen++
	return ok
}

// PopMACCE dequeues the oldest pending DL MAC CE.
func (u *UE) PopMACCE() (model.LCID, bool) {
	if u.ceLen == 0 {
		return 0, false
	}
	lcid := u.ces[u.ceHead]
	u.ceHead = (u.ceHead + 1) % MaxPendingCEs
	u.ceLen--
	return lcid, true
}

// NofPendingMACCEs returns the number of queued DL MAC CEs.
func (u *UE) NofPendingMACCEs() int { return u.ceLen }

// Reconfigure applies a new serving cell list and logical channel table. A nil
// argument leaves that part untouched.
//
// candidates holds one pre-built context per requested cell, PCell first.
// Contexts of cells the UE is already configured on are replaced in place by
// the existing ones so their HARQ state survives; the slice then becomes the
// UE's cell list.
func (u *UE) Reconfigure(candidates []*UECell, lcs []model.LogicalChannelConfig) {
	if candidates != nil {
		for i, c := range candidates {
			if existing := u.FindCell(c.CellIndex()); existing != nil {
				candidates[i] = existing
			}
		}
		u.cells = candidates
	}
	if lcs != nil {
		u.setLogicalChannels(lcs)
	}
}

func (u *UE) setLogicalChannels(lcs []model.LogicalChannelConfig) {
	u.lcs = lcs
	u.nofLCGs = 1
	for _, lc := range lcs {
		if n := int(lc.LCGID) + 1; n > u.nofLCGs && n <= model.MaxLCGs {
			u.nofLCGs = n
		}
	}
}
