package feedback

import (
	"github.com/signalsfoundry/ransched/internal/ue"
	"github.com/signalsfoundry/ransched/model"
)

// ApplySR raises the scheduling request flag of the UE.
func ApplySR(u *ue.UE) { u.SetSRPending(true) }

// ApplyMACCE queues a DL MAC CE on the UE. It returns false when the queue
// was full and the oldest CE was dropped to make room.
func ApplyMACCE(u *ue.UE, lcid model.LCID) bool { return u.PushMACCE(lcid) }

// ApplyDLBufferState records the pending DL bytes of a logical channel. It
// reports whether the channel is SRB0, whose traffic is scheduled by the
// cell's SRB0 scheduler rather than the UE's own.
func ApplyDLBufferState(u *ue.UE, ind *model.DLBufferStateIndication) (srb0 bool) {
	u.SetDLBufferBytes(ind.LCID, ind.BS)
	return ind.LCID == model.LCIDSRB0
}
