package domain

import (
	"testing"
	"time"
)

func TestParseSlot(t *testing.T) {
	cases := []struct {
		date, clock string
		want        Slot
		ok          bool
	}{
		{"2025-03-01", "10:00", Slot{"2025-03-01", "10:00"}, true},
		{" 2025-03-01 ", "10:00:00", Slot{"2025-03-01", "10:00"}, true},
		{"2025-02-30", "10:00", Slot{}, false},
		{"01/03/2025", "10:00", Slot{}, false},
		{"2025-03-01", "25:00", Slot{}, false},
		{"2025-03-01", "10:00:30", Slot{}, false},
		{"2025-03-01", "", Slot{}, false},
	}

	for _, tc := range cases {
		got, ok := ParseSlot(tc.date, tc.clock)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseSlot(%q, %q) = %+v, %v; want %+v, %v", tc.date, tc.clock, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSlotAt(t *testing.T) {
	at, err := Slot{Date: "2025-03-01", Time: "10:00"}.At(time.UTC)
	if err != nil {
		t.Fatalf("At() error = %v", err)
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("At() = %s, want %s", at, want)
	}
}

func TestAppendNoteNeverOverwrites(t *testing.T) {
	if got := AppendNote(nil, "  "); got != nil {
		t.Fatalf("blank addition on nil = %v", *got)
	}

	first := AppendNote(nil, "Buyer prefers mornings")
	if *first != "Buyer prefers mornings" {
		t.Fatalf("first = %q", *first)
	}

	merged := AppendNote(first, CancellationNote("customer found another flat"))
	want := "Buyer prefers mornings\nCancellation reason: customer found another flat"
	if *merged != want {
		t.Fatalf("merged = %q, want %q", *merged, want)
	}
	if *first != "Buyer prefers mornings" {
		t.Fatalf("original note mutated: %q", *first)
	}

	if CancellationNote("   ") != "" {
		t.Fatal("empty reason should produce no note")
	}
}
