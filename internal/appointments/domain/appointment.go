package domain

import "time"

// Appointment is a customer's request to view a property, tracked through
// assignment, scheduling and completion.
type Appointment struct {
	ID              int64
	PropertyID      int64
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Intent          Intent
	Message         *string
	PriorityNumber  int
	AssignedAgentID *int64
	AssignedAt      *time.Time
	ScheduledDate   *string
	ScheduledTime   *string
	Status          Status
	Outcome         *Outcome
	AgentNotes      *string
	OutcomeNotes    *string
	AdminNotes      *string
	SpamScore       *float64
	RemoteAddr      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// IsAssignedTo reports whether agentID owns the appointment.
func (a *Appointment) IsAssignedTo(agentID int64) bool {
	return a.AssignedAgentID != nil && *a.AssignedAgentID == agentID
}

// Slot returns the scheduled slot, or false when none is set.
func (a *Appointment) Slot() (Slot, bool) {
	if a.ScheduledDate == nil || a.ScheduledTime == nil {
		return Slot{}, false
	}
	return Slot{Date: *a.ScheduledDate, Time: *a.ScheduledTime}, true
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a Appointment) Clone() Appointment {
	out := a
	out.Message = cloneString(a.Message)
	out.AssignedAgentID = cloneInt64(a.AssignedAgentID)
	out.AssignedAt = cloneTime(a.AssignedAt)
	out.ScheduledDate = cloneString(a.ScheduledDate)
	out.ScheduledTime = cloneString(a.ScheduledTime)
	if a.Outcome != nil {
		o := *a.Outcome
		out.Outcome = &o
	}
	out.AgentNotes = cloneString(a.AgentNotes)
	out.OutcomeNotes = cloneString(a.OutcomeNotes)
	out.AdminNotes = cloneString(a.AdminNotes)
	if a.SpamScore != nil {
		s := *a.SpamScore
		out.SpamScore = &s
	}
	out.RemoteAddr = cloneString(a.RemoteAddr)
	out.CompletedAt = cloneTime(a.CompletedAt)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// StatusCount is one row of the per-status statistics.
type StatusCount struct {
	Status Status
	Count  int
}

// OutcomeCount is one row of the per-outcome statistics of completed appointments.
type OutcomeCount struct {
	Outcome Outcome
	Count   int
}
