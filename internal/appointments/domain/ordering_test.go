package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func ids(items []Appointment) []int64 {
	out := make([]int64, len(items))
	for i, a := range items {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortForAdmin(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Appointment{
		{ID: 1, Status: StatusCompleted, PriorityNumber: 1, CreatedAt: base},
		{ID: 2, Status: StatusScheduled, PriorityNumber: 1, CreatedAt: base},
		{ID: 3, Status: StatusPending, PriorityNumber: 2, CreatedAt: base},
		{ID: 4, Status: StatusPending, PriorityNumber: 1, CreatedAt: base},
		{ID: 5, Status: StatusAssigned, PriorityNumber: 3, CreatedAt: base},
		{ID: 6, Status: StatusPending, PriorityNumber: 1, CreatedAt: base.Add(time.Hour)},
		{ID: 7, Status: StatusCancelled, PriorityNumber: 1, CreatedAt: base},
	}

	SortForAdmin(items)

	want := []int64{6, 4, 3, 5, 2, 1, 7}
	if got := ids(items); !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSortForAgent(t *testing.T) {
	items := []Appointment{
		{ID: 1, Status: StatusCompleted, ScheduledDate: strPtr("2025-01-01"), PriorityNumber: 1},
		{ID: 2, Status: StatusScheduled, ScheduledDate: strPtr("2025-03-02"), PriorityNumber: 1},
		{ID: 3, Status: StatusScheduled, ScheduledDate: strPtr("2025-03-01"), PriorityNumber: 4},
		{ID: 4, Status: StatusAssigned, PriorityNumber: 2},
		{ID: 5, Status: StatusAssigned, PriorityNumber: 1},
	}

	SortForAgent(items)

	want := []int64{5, 4, 3, 2, 1}
	if got := ids(items); !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSortCalendar(t *testing.T) {
	items := []Appointment{
		{ID: 1, ScheduledDate: strPtr("2025-03-02"), ScheduledTime: strPtr("09:00")},
		{ID: 2, ScheduledDate: strPtr("2025-03-01"), ScheduledTime: strPtr("14:30")},
		{ID: 3, ScheduledDate: strPtr("2025-03-01"), ScheduledTime: strPtr("09:15")},
	}

	SortCalendar(items)

	want := []int64{3, 2, 1}
	if got := ids(items); !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestOnCalendar(t *testing.T) {
	if OnCalendar(Appointment{Status: StatusScheduled}) {
		t.Error("scheduled without date must not appear")
	}
	if !OnCalendar(Appointment{Status: StatusCompleted, ScheduledDate: strPtr("2025-03-01")}) {
		t.Error("completed with date must appear")
	}
	if OnCalendar(Appointment{Status: StatusCancelled, ScheduledDate: strPtr("2025-03-01")}) {
		t.Error("cancelled must not appear")
	}
}

func TestIsDenseSequence(t *testing.T) {
	cases := map[string]struct {
		in   []int
		want bool
	}{
		"empty":     {nil, true},
		"ordered":   {[]int{1, 2, 3}, true},
		"shuffled":  {[]int{3, 1, 2}, true},
		"gap":       {[]int{1, 3}, false},
		"duplicate": {[]int{1, 1}, false},
		"zero":      {[]int{0, 1}, false},
	}
	for name, tc := range cases {
		if got := IsDenseSequence(tc.in); got != tc.want {
			t.Errorf("%s: IsDenseSequence(%v) = %v, want %v", name, tc.in, got, tc.want)
		}
	}
}
