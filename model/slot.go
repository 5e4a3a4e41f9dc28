package model

import (
	"encoding/json"
	"fmt"
)

// NofSFNs is the number of system frames before the frame number wraps.
const NofSFNs = 1024

// Slot is a point on the radio slot timeline for a given numerology.
//
// The zero value is not a valid slot; use NewSlot. Count wraps after
// NofSFNs frames.
type Slot struct {
	numerology uint8
	count      uint32
	valid      bool
}

// NewSlot builds a slot from a numerology (0..4), a system frame number and a
// slot index inside that frame.
func NewSlot(numerology uint8, sfn uint32, slotIdx uint32) Slot {
	perFrame := SlotsPerFrame(numerology)
	return Slot{
		numerology: numerology,
		count:      (sfn%NofSFNs)*perFrame + slotIdx%perFrame,
		valid:      true,
	}
}

// SlotsPerFrame returns the number of slots in a 10 ms frame.
func SlotsPerFrame(numerology uint8) uint32 { return 10 << numerology }

// Valid reports whether the slot was constructed with NewSlot.
func (s Slot) Valid() bool { return s.valid }

// Numerology returns the subcarrier spacing configuration of the slot.
func (s Slot) Numerology() uint8 { return s.numerology }

// Count returns the absolute slot count inside the SFN period.
func (s Slot) Count() uint32 { return s.count }

// SFN returns the system frame number.
func (s Slot) SFN() uint32 { return s.count / SlotsPerFrame(s.numerology) }

// SlotIndex returns the slot index inside the frame.
func (s Slot) SlotIndex() uint32 { return s.count % SlotsPerFrame(s.numerology) }

// Add returns the slot n slots after s, wrapping at the SFN period.
func (s Slot) Add(n int) Slot {
	period := int64(NofSFNs) * int64(SlotsPerFrame(s.numerology))
	c := (int64(s.count) + int64(n)) % period
	if c < 0 {
		c += period
	}
	return Slot{numerology: s.numerology, count: uint32(c), valid: s.valid}
}

// Equal reports whether two slots denote the same point. Invalid slots are
// never equal to anything.
func (s Slot) Equal(o Slot) bool {
	return s.valid && o.valid && s.numerology == o.numerology && s.count == o.count
}

func (s Slot) String() string {
	if !s.valid {
		return "invalid"
	}
	return fmt.Sprintf("%d.%d", s.SFN(), s.SlotIndex())
}

type slotJSON struct {
	Numerology uint8  `json:"numerology"`
	SFN        uint32 `json:"sfn"`
	Slot       uint32 `json:"slot"`
}

// MarshalJSON encodes the slot as {numerology, sfn, slot}.
func (s Slot) MarshalJSON() ([]byte, error) {
	if !s.valid {
		return []byte("null"), nil
	}
	return json.Marshal(slotJSON{Numerology: s.numerology, SFN: s.SFN(), Slot: s.SlotIndex()})
}

// UnmarshalJSON decodes the {numerology, sfn, slot} form.
func (s *Slot) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = Slot{}
		return nil
	}
	var raw slotJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Numerology > 4 {
		return fmt.Errorf("numerology %d out of range", raw.Numerology)
	}
	if raw.Slot >= SlotsPerFrame(raw.Numerology) {
		return fmt.Errorf("slot index %d out of range for numerology %d", raw.Slot, raw.Numerology)
	}
	*s = NewSlot(raw.Numerology, raw.SFN, raw.Slot)
	return nil
}
