package model

import "fmt"

// Fixed universes. Indexes outside these bounds are rejected at the edges.
const (
	// MaxUEs bounds the UE index universe of a DU.
	MaxUEs = 1024
	// MaxCells bounds the cell index universe of a DU.
	MaxCells = 16
	// MaxLCGs is the number of logical channel groups a UE may report on.
	MaxLCGs = 8
	// MaxLCIDs bounds the logical channel identity range (LCID 0..32).
	MaxLCIDs = 33
	// MaxHARQs is the largest HARQ entity a UE-cell may be configured with.
	MaxHARQs = 16
)

// UEIndex identifies a UE inside the DU, in [0, MaxUEs).
type UEIndex uint16

// Valid reports whether the index lies inside the UE universe.
func (i UEIndex) Valid() bool { return int(i) < MaxUEs }

// CellIndex identifies a cell inside the DU, in [0, MaxCells).
type CellIndex uint8

// Valid reports whether the index lies inside the cell universe.
func (c CellIndex) Valid() bool { return int(c) < MaxCells }

// RNTI is the radio network temporary identifier of a UE.
type RNTI uint16

func (r RNTI) String() string { return fmt.Sprintf("0x%04x", uint16(r)) }

// LCID is a logical channel identity.
type LCID uint8

// LCGID is a logical channel group identity.
type LCGID uint8

// HARQID is a HARQ process identity inside a UE-cell HARQ entity.
type HARQID uint8

// Well-known logical channels.
const (
	LCIDSRB0 LCID = 0
	LCIDSRB1 LCID = 1
	LCIDSRB2 LCID = 2
)

// Downlink MAC CE LCIDs handled by the scheduler.
const (
	LCIDConResID     LCID = 62
	LCIDTACommand    LCID = 61
	LCIDDRXCommand   LCID = 60
	LCIDSCellActDeac LCID = 58
)
