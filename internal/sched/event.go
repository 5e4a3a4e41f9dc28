package sched

import (
	"github.com/signalsfoundry/ransched/internal/ue"
	"github.com/signalsfoundry/ransched/model"
)

type eventKind uint8

const (
	kindUECreate eventKind = iota
	kindUEReconfig
	kindUEDelete
	kindULBSR
	kindSR
	kindDLMACCE
	kindDLBufferState
	kindCRC
	kindUCIHARQ
)

func (k eventKind) String() string {
	switch k {
	case kindUECreate:
		return "ue_add"
	case kindUEReconfig:
		return "ue_cfg"
	case kindUEDelete:
		return "ue_rem"
	case kindULBSR:
		return "ul_bsr"
	case kindSR:
		return "sr_ind"
	case kindDLMACCE:
		return "mac_ce"
	case kindDLBufferState:
		return "mac_bs"
	case kindCRC:
		return "crc"
	case kindUCIHARQ:
		return "uci_harq"
	default:
		return "unknown"
	}
}

// target names the UE an event applies to. pending marks a UE that does not
// exist yet, i.e. the event that creates it.
type target struct {
	ue      model.UEIndex
	pending bool
}

func pendingTarget(idx model.UEIndex) target { return target{ue: idx, pending: true} }
func ueTarget(idx model.UEIndex) target      { return target{ue: idx} }

// reconfig is the pre-built payload of a reconfiguration.
type reconfig struct {
	cells []*ue.UECell
	lcs   []model.LogicalChannelConfig
}

// commonEvent is a UE-wide event, applied while dispatching the UE's PCell.
// Only the fields of its kind are set.
type commonEvent struct {
	target target
	gen    uint32
	kind   eventKind

	newUE  *ue.UE
	reconf *reconfig
	bsr    model.ULBSRIndication
	ceLCID model.LCID
	dlBS   model.DLBufferStateIndication
}

// cellEvent is feedback bound to one cell, applied while dispatching it.
type cellEvent struct {
	ue   model.UEIndex
	gen  uint32
	kind eventKind

	crc      model.CRCPDU
	slotRx   model.Slot
	harqBits []bool
}
