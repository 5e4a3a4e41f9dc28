package sched

import (
	"fmt"

	"github.com/signalsfoundry/ransched/internal/feedback"
	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/internal/ue"
	"github.com/signalsfoundry/ransched/model"
)

// Run applies the events due for cell in slot sl: first the common events of
// UEs whose PCell is cell, including creations naming cell as PCell, then all the
// cell-specific feedback of cell. It must be called once per active cell per
// slot from the slot driver goroutine. Calling it for a cell that was never
// registered panics.
func (m *EventManager) Run(sl model.Slot, cell model.CellIndex) {
	if !m.CellExists(cell) {
		panic(fmt.Sprintf("sched: Run on invalid cell index %d", cell))
	}
	start := m.clock.Now()

	m.processCommon(sl, cell)
	m.processCellSpecific(cell)

	m.metrics.ObserveDispatch(cell, m.clock.Since(start))
	m.metrics.SetActiveUEs(m.ues.Len())
	m.metrics.SetCommonBacklog(m.common.Backlog())
}

func (m *EventManager) processCommon(sl model.Slot, cell model.CellIndex) {
	if !sl.Equal(m.lastSlot) {
		m.common.SlotIndication()
		m.lastSlot = sl
	}

	m.evlog.begin(m.runCtx)
	events := m.common.Events()
	for i := range events {
		e := &events[i]
		if e.Consumed() {
			continue
		}
		ev := &e.Event
		if ev.target.pending {
			// a creation runs on its PCell like every other UE-wide event
			if ev.newUE.PCellIndex() == cell {
				m.applyCommon(cell, ev, nil)
				e.Consume()
			}
			continue
		}
		u, ok := m.ues.Lookup(ev.target.ue, ev.gen)
		if !ok {
			if m.awaitingCreation(ev.target.ue, ev.gen) {
				continue
			}
			m.dropUnknownUE(cell, ev.kind, ev.target.ue)
			e.Consume()
			continue
		}
		if u.PCellIndex() == cell {
			m.applyCommon(cell, ev, u)
			e.Consume()
		}
	}
	m.evlog.flush(m.runCtx, cell, true)
}

func (m *EventManager) processCellSpecific(cell model.CellIndex) {
	q := m.cells[cell].events
	q.SlotIndication()

	m.evlog.begin(m.runCtx)
	events := q.Events()
	for i := range events {
		e := &events[i]
		if e.Consumed() {
			continue
		}
		ev := &e.Event
		u, ok := m.ues.Lookup(ev.ue, ev.gen)
		if !ok {
			m.dropUnknownUE(cell, ev.kind, ev.ue)
			e.Consume()
			continue
		}
		uc := u.FindCell(cell)
		if uc == nil {
			m.metrics.EventDropped(cell, ev.kind.String(), dropCellNotConfigured)
			m.warn.Warn(m.runCtx, "invalid_cc",
				fmt.Sprintf("SCHED: Event for ueId=%d ignored. Cause: Cell %d is not configured.", ev.ue, cell),
				logging.Int("ue_index", int(ev.ue)), logging.Int("cell_index", int(cell)))
			e.Consume()
			continue
		}
		m.applyCell(cell, ev, uc)
		e.Consume()
	}
	m.evlog.flush(m.runCtx, cell, false)
	m.metrics.SetCellBacklog(cell, q.PendingLen())
}

// awaitingCreation reports whether the UE generation gen was requested but its
// creation event has not been applied yet. Events for it stay queued.
func (m *EventManager) awaitingCreation(idx model.UEIndex, gen uint32) bool {
	if m.lifecycle.Generation(idx) != gen {
		return false
	}
	switch m.lifecycle.State(idx) {
	case ue.PendingCreation, ue.PendingDeletion:
		return !m.ues.Contains(idx)
	default:
		return false
	}
}

func (m *EventManager) dropUnknownUE(cell model.CellIndex, kind eventKind, idx model.UEIndex) {
	m.metrics.EventDropped(cell, kind.String(), dropUENotFound)
	m.warn.Warn(m.runCtx, "invalid_ue_index",
		fmt.Sprintf("SCHED: Event for ueId=%d ignored. Cause: UE with provided ueId does not exist", idx),
		logging.Int("ue_index", int(idx)), logging.String("event", kind.String()))
}

// applyCommon executes one common event. u is nil for a pending creation.
func (m *EventManager) applyCommon(cell model.CellIndex, ev *commonEvent, u *ue.UE) {
	ctx := m.runCtx
	switch ev.kind {
	case kindUECreate:
		u = ev.newUE
		idx := u.Index()
		if m.evlog.enabled {
			m.evlog.add("ue_add(ueId=%d)", idx)
		}
		m.log.Info(ctx, "Sched UE Configuration started.", logging.Int("ue_index", int(idx)))
		if err := m.ues.Insert(u); err != nil {
			m.metrics.EventDropped(cell, ev.kind.String(), dropUEExists)
			m.log.Error(ctx, "SCHED: UE creation discarded", logging.Int("ue_index", int(idx)), logging.Err(err))
			return
		}
		m.lifecycle.Activate(idx)
		m.log.Info(ctx, "Sched UE Configuration completed.", logging.Int("ue_index", int(idx)),
			logging.String("crnti", u.CRNTI().String()), logging.Int("pcell", int(u.PCellIndex())))
		m.notifier.OnUEConfigComplete(idx)

	case kindUEReconfig:
		idx := u.Index()
		if m.evlog.enabled {
			m.evlog.add("ue_cfg(ueId=%d)", idx)
		}
		m.log.Info(ctx, "Sched UE Reconfiguration started.", logging.Int("ue_index", int(idx)))
		u.Reconfigure(ev.reconf.cells, ev.reconf.lcs)
		m.log.Info(ctx, "Sched UE Reconfiguration completed.", logging.Int("ue_index", int(idx)))
		m.notifier.OnUEConfigComplete(idx)

	case kindUEDelete:
		idx := u.Index()
		if m.evlog.enabled {
			m.evlog.add("ue_rem(ueId=%d)", idx)
		}
		m.log.Info(ctx, "Sched UE Deletion started.", logging.Int("ue_index", int(idx)))
		m.ues.Remove(idx)
		m.lifecycle.Release(idx)
		m.log.Info(ctx, "Sched UE Deletion completed.", logging.Int("ue_index", int(idx)))
		m.notifier.OnUEDeleteResponse(idx)

	case kindULBSR:
		if m.evlog.enabled {
			m.evlog.add("ul_bsr(ueId=%d)", u.Index())
		}
		r := feedback.DecodeBSR(&ev.bsr, u.NofLCGs())
		feedback.ApplyBSR(u, &r)

	case kindSR:
		if m.evlog.enabled {
			m.evlog.add("sr_ind(ueId=%d)", u.Index())
		}
		feedback.ApplySR(u)

	case kindDLMACCE:
		if m.evlog.enabled {
			m.evlog.add("mac_ce(ueId=%d,ce=%d)", u.Index(), ev.ceLCID)
		}
		if !feedback.ApplyMACCE(u, ev.ceLCID) {
			m.warn.Warn(ctx, "mac_ce_overflow", "SCHED: DL MAC CE queue full, oldest CE dropped",
				logging.Int("ue_index", int(u.Index())))
		}

	case kindDLBufferState:
		if m.evlog.enabled {
			m.evlog.add("mac_bs(ueId=%d,lcid=%d,bs=%d)", u.Index(), ev.dlBS.LCID, ev.dlBS.BS)
		}
		if feedback.ApplyDLBufferState(u, &ev.dlBS) {
			m.cells[u.PCellIndex()].srb0.HandleDLBufferStateIndication(u.Index())
		}
	}
	m.metrics.EventProcessed(cell, ev.kind.String())
}

func (m *EventManager) applyCell(cell model.CellIndex, ev *cellEvent, uc *ue.UECell) {
	switch ev.kind {
	case kindCRC:
		if m.evlog.enabled {
			m.evlog.add("crc(ueId=%d,h_id=%d,value=%t)", ev.ue, ev.crc.HARQID, ev.crc.TBCRCSuccess)
		}
		if _, ok := feedback.ApplyCRC(uc, &ev.crc); !ok {
			m.warn.Warn(m.runCtx, "crc_inactive_harq",
				fmt.Sprintf("SCHED: CRC for h_id=%d that is inactive", ev.crc.HARQID),
				logging.Int("ue_index", int(ev.ue)), logging.Int("cell_index", int(cell)))
		}

	case kindUCIHARQ:
		if m.evlog.enabled {
			m.evlog.add("uci_harq(ueId=%d,%d harqs)", ev.ue, len(ev.harqBits))
		}
		m.ackUE, m.ackSlot = ev.ue, ev.slotRx
		feedback.CorrelateHARQAck(uc, ev.slotRx, ev.harqBits, m.ackVisit)
	}
	m.metrics.EventProcessed(cell, ev.kind.String())
}

func (m *EventManager) onHARQAck(o feedback.AckOutcome) {
	if !o.Found {
		m.warn.Warn(m.runCtx, "dl_harq_not_found",
			fmt.Sprintf("SCHED: DL HARQ for ueId=%d, uci slot=%s not found.", m.ackUE, m.ackSlot),
			logging.Int("ue_index", int(m.ackUE)))
		return
	}
	if o.Ack && o.TBS > 0 && m.log.Enabled(m.runCtx, logging.LevelDebug) {
		m.log.Debug(m.runCtx, fmt.Sprintf("SCHED: ueId=%d, dl_h_id=%d with TB size=%d bytes ACKed.", m.ackUE, o.HARQID, o.TBS))
	}
}

// Snapshot returns a deep copy of every UE. It must be called from the Run
// goroutine or while Run is not executing.
func (m *EventManager) Snapshot() []ue.Snapshot {
	return m.ues.Snapshot()
}

// NofUEs returns the number of UEs in the repository. Same restriction as
// Snapshot.
func (m *EventManager) NofUEs() int { return m.ues.Len() }
