package model

// LogicalChannelConfig maps a logical channel onto its reporting group.
type LogicalChannelConfig struct {
	LCID  LCID  `json:"lcid"`
	LCGID LCGID `json:"lcg_id"`
}

// UECreationRequest asks the scheduler to add a UE. Cells[0] is the PCell.
type UECreationRequest struct {
	UEIndex         UEIndex                `json:"ue_index"`
	CRNTI           RNTI                   `json:"crnti"`
	Cells           []CellIndex            `json:"cells"`
	LogicalChannels []LogicalChannelConfig `json:"logical_channels"`
}

// UEReconfigurationRequest changes the configuration of an existing UE. A nil
// slice leaves the corresponding part of the configuration untouched.
type UEReconfigurationRequest struct {
	UEIndex         UEIndex                `json:"ue_index"`
	Cells           []CellIndex            `json:"cells,omitempty"`
	LogicalChannels []LogicalChannelConfig `json:"logical_channels,omitempty"`
}

// BSRFormat is the MAC CE format a buffer status report was received in.
type BSRFormat uint8

const (
	ShortBSR BSRFormat = iota
	ShortTruncBSR
	LongBSR
	LongTruncBSR
)

func (f BSRFormat) String() string {
	switch f {
	case ShortBSR:
		return "short"
	case ShortTruncBSR:
		return "short_trunc"
	case LongBSR:
		return "long"
	case LongTruncBSR:
		return "long_trunc"
	default:
		return "unknown"
	}
}

// IsShort reports whether the format carries a 5-bit buffer size field.
func (f BSRFormat) IsShort() bool { return f == ShortBSR || f == ShortTruncBSR }

// RawLCGReport is one (LCG, buffer size index) pair as carried in a BSR.
type RawLCGReport struct {
	LCGID           LCGID `json:"lcg_id"`
	BufferSizeIndex uint8 `json:"bs_index"`
}

// ULBSRIndication carries a received buffer status report.
type ULBSRIndication struct {
	CellIndex CellIndex      `json:"cell_index"`
	UEIndex   UEIndex        `json:"ue_index"`
	CRNTI     RNTI           `json:"crnti"`
	Format    BSRFormat      `json:"format"`
	Reports   []RawLCGReport `json:"reports"`
}

// CRCPDU is the decoding outcome of one uplink transport block.
type CRCPDU struct {
	UEIndex      UEIndex `json:"ue_index"`
	RNTI         RNTI    `json:"rnti"`
	HARQID       HARQID  `json:"harq_id"`
	TBCRCSuccess bool    `json:"tb_crc_success"`
}

// CRCIndication groups the CRC results of one cell and slot.
type CRCIndication struct {
	CellIndex CellIndex `json:"cell_index"`
	SlotRx    Slot      `json:"slot_rx"`
	CRCs      []CRCPDU  `json:"crcs"`
}

// UCIPDU is the uplink control information received from one UE.
type UCIPDU struct {
	UEIndex    UEIndex `json:"ue_index"`
	RNTI       RNTI    `json:"rnti"`
	HARQBits   []bool  `json:"harq_bits,omitempty"`
	SRDetected bool    `json:"sr_detected"`
}

// UCIIndication groups the UCI received in one cell and slot.
type UCIIndication struct {
	CellIndex CellIndex `json:"cell_index"`
	SlotRx    Slot      `json:"slot_rx"`
	UCIs      []UCIPDU  `json:"ucis"`
}

// DLMACCEIndication requests a downlink MAC CE to be scheduled for a UE.
type DLMACCEIndication struct {
	UEIndex UEIndex `json:"ue_index"`
	CELCID  LCID    `json:"ce_lcid"`
}

// DLBufferStateIndication reports pending downlink bytes of a logical channel.
type DLBufferStateIndication struct {
	UEIndex UEIndex `json:"ue_index"`
	LCID    LCID    `json:"lcid"`
	BS      uint32  `json:"bs"`
}
