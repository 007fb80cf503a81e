// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"estate_portal_backend/platform/events"
	"estate_portal_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// InMemoryBus is the process-local bus shared by the api and scheduler binaries.
type InMemoryBus = events.InMemoryBus

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Event names. The Kafka relay uses them as the event_type header.
const (
	NameAppointmentCreated   = "appointment.created"
	NameAppointmentAssigned  = "appointment.assigned"
	NameAppointmentScheduled = "appointment.scheduled"
	NameAppointmentCompleted = "appointment.completed"
	NameAppointmentCancelled = "appointment.cancelled"
	NameReminderDue          = "appointment.reminder_due"
)

// AllAppointmentEvents lists every lifecycle event name published by the engine.
var AllAppointmentEvents = []string{
	NameAppointmentCreated,
	NameAppointmentAssigned,
	NameAppointmentScheduled,
	NameAppointmentCompleted,
	NameAppointmentCancelled,
	NameReminderDue,
}

// =============================================================================
// Appointment Domain Events
// =============================================================================

// AppointmentRef carries the identifying and contact fields shared by every
// appointment event.
type AppointmentRef struct {
	AppointmentID int64  `json:"appointmentId"`
	PropertyID    int64  `json:"propertyId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

// PartitionKey groups every event of one property onto the same stream partition.
func (r AppointmentRef) PartitionKey() int64 { return r.PropertyID }

// AppointmentCreated is published after a viewing request has been stored.
type AppointmentCreated struct {
	BaseEvent
	AppointmentRef
	PropertyTitle  string `json:"propertyTitle"`
	PriorityNumber int    `json:"priorityNumber"`
	Intent         string `json:"intent"`
}

func (e AppointmentCreated) EventName() string { return NameAppointmentCreated }

// AppointmentAssigned is published when an admin assigns an agent.
type AppointmentAssigned struct {
	BaseEvent
	AppointmentRef
	AgentID    int64  `json:"agentId"`
	AgentName  string `json:"agentName"`
	AgentEmail string `json:"agentEmail"`
}

func (e AppointmentAssigned) EventName() string { return NameAppointmentAssigned }

// AppointmentScheduled is published when the assigned agent fixes a slot.
type AppointmentScheduled struct {
	BaseEvent
	AppointmentRef
	AgentID       int64  `json:"agentId"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
}

func (e AppointmentScheduled) EventName() string { return NameAppointmentScheduled }

// AppointmentCompleted is published when the viewing outcome is recorded.
type AppointmentCompleted struct {
	BaseEvent
	AppointmentRef
	AgentID int64  `json:"agentId"`
	Outcome string `json:"outcome"`
}

func (e AppointmentCompleted) EventName() string { return NameAppointmentCompleted }

// AppointmentCancelled is published after cancellation and priority renumbering.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentRef
	AgentID        int64  `json:"agentId,omitempty"`
	PreviousStatus string `json:"previousStatus"`
	Reason         string `json:"reason,omitempty"`
	CancelledBy    int64  `json:"cancelledBy"`
}

func (e AppointmentCancelled) EventName() string { return NameAppointmentCancelled }

// ReminderDue is published by the reminder worker shortly before a viewing.
type ReminderDue struct {
	BaseEvent
	AppointmentRef
	AgentID       int64  `json:"agentId"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
}

func (e ReminderDue) EventName() string { return NameReminderDue }
