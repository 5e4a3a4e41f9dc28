package feedback

import (
	"github.com/signalsfoundry/ransched/internal/ue"
	"github.com/signalsfoundry/ransched/model"
)

// ApplyCRC applies a CRC result to the UL HARQ process it names. It returns
// the TBS of the transport block, or ok=false when the id is out of range or
// the process was not waiting for a CRC.
func ApplyCRC(c *ue.UECell, pdu *model.CRCPDU) (tbs int, ok bool) {
	h := c.HARQs().UL(pdu.HARQID)
	if h == nil {
		return 0, false
	}
	tbs = h.CRCInfo(pdu.TBCRCSuccess)
	if tbs < 0 {
		return 0, false
	}
	return tbs, true
}

// AckOutcome is the result of correlating one HARQ-ACK bit.
type AckOutcome struct {
	// Bit is the position of the bit in the UCI.
	Bit    int
	Ack    bool
	Found  bool
	HARQID model.HARQID
	TBS    int
}

// CorrelateHARQAck applies each HARQ-ACK bit, in order, to the first DL HARQ
// process of c that expects its acknowledgment in rxSlot. visit is called
// once per bit, including bits that matched no process.
func CorrelateHARQAck(c *ue.UECell, rxSlot model.Slot, bits []bool, visit func(AckOutcome)) {
	harqs := c.HARQs()
	for i, ack := range bits {
		out := AckOutcome{Bit: i, Ack: ack}
		if h := harqs.FindDLAwaitingAck(rxSlot); h != nil {
			out.Found = true
			out.HARQID = h.ID()
			out.TBS = h.AckInfo(ack)
		}
		if visit != nil {
			visit(out)
		}
	}
}
