package model

import (
	"encoding/json"
	"testing"
)

func TestSlotAddWrapsAtSFNPeriod(t *testing.T) {
	s := NewSlot(1, NofSFNs-1, 19)
	next := s.Add(1)
	if next.SFN() != 0 || next.SlotIndex() != 0 {
		t.Fatalf("Add(1) = %s, want 0.0", next)
	}
	if back := next.Add(-1); !back.Equal(s) {
		t.Fatalf("Add(-1) = %s, want %s", back, s)
	}
}

func TestSlotEqualRequiresValidSlots(t *testing.T) {
	var zero Slot
	if zero.Equal(zero) {
		t.Fatalf("zero slots must never compare equal")
	}
	a := NewSlot(0, 5, 3)
	b := NewSlot(0, 5, 3)
	if !a.Equal(b) {
		t.Fatalf("expected %s == %s", a, b)
	}
	if a.Equal(NewSlot(1, 5, 3)) {
		t.Fatalf("slots with different numerology compared equal")
	}
}

func TestSlotJSONRoundTrip(t *testing.T) {
	s := NewSlot(2, 100, 37)
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Slot
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(s) {
		t.Fatalf("round trip = %s, want %s", got, s)
	}
}

func TestSlotJSONRejectsOutOfRangeIndex(t *testing.T) {
	var s Slot
	if err := json.Unmarshal([]byte(`{"numerology":0,"sfn":1,"slot":10}`), &s); err == nil {
		t.Fatalf("expected error for slot index 10 at numerology 0")
	}
}
