package domain

import "sort"

var adminStatusRank = map[Status]int{
	StatusPending:   0,
	StatusAssigned:  1,
	StatusScheduled: 2,
}

var agentStatusRank = map[Status]int{
	StatusAssigned:  0,
	StatusScheduled: 1,
}

func rank(table map[Status]int, s Status) int {
	if r, ok := table[s]; ok {
		return r
	}
	return len(table)
}

// SortForAdmin orders pending before assigned before scheduled before the
// rest, then by priority ascending, then newest first.
func SortForAdmin(items []Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := rank(adminStatusRank, a.Status), rank(adminStatusRank, b.Status); ra != rb {
			return ra < rb
		}
		if a.PriorityNumber != b.PriorityNumber {
			return a.PriorityNumber < b.PriorityNumber
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// SortForAgent orders assigned before scheduled before the rest, then by
// scheduled date ascending (unscheduled last), then priority ascending.
func SortForAgent(items []Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ra, rb := rank(agentStatusRank, a.Status), rank(agentStatusRank, b.Status); ra != rb {
			return ra < rb
		}
		if c := compareNullableDate(a.ScheduledDate, b.ScheduledDate); c != 0 {
			return c < 0
		}
		return a.PriorityNumber < b.PriorityNumber
	})
}

// SortCalendar orders by scheduled date then time ascending.
func SortCalendar(items []Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := compareNullableDate(a.ScheduledDate, b.ScheduledDate); c != 0 {
			return c < 0
		}
		return compareNullableDate(a.ScheduledTime, b.ScheduledTime) < 0
	})
}

// compareNullableDate compares zero-padded date or time strings; nil sorts last.
func compareNullableDate(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

// OnCalendar reports whether the appointment belongs on the shared calendar.
func OnCalendar(a Appointment) bool {
	return (a.Status == StatusScheduled || a.Status == StatusCompleted) && a.ScheduledDate != nil
}

// IsDenseSequence reports whether values are exactly 1..len(values) in any order.
func IsDenseSequence(values []int) bool {
	seen := make([]bool, len(values)+1)
	for _, v := range values {
		if v < 1 || v > len(values) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
