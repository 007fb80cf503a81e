package transport

import (
	"time"

	"estate_portal_backend/internal/appointments/domain"
)

// CreateAppointmentRequest is the public viewing-request form.
type CreateAppointmentRequest struct {
	CustomerName  string  `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail string  `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone string  `json:"customerPhone" validate:"required,min=5,max=40"`
	Intent        string  `json:"intent" validate:"required,oneof=buy rent invest inquire"`
	Message       *string `json:"message,omitempty" validate:"omitempty,max=2000"`
	CaptchaToken  string  `json:"captchaToken,omitempty" validate:"max=4096"`
}

// CreateAppointmentResponse confirms a stored viewing request.
type CreateAppointmentResponse struct {
	AppointmentID  int64  `json:"appointmentId"`
	PriorityNumber int    `json:"priorityNumber"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// AssignAgentRequest is the admin request to hand a pending appointment to an agent.
type AssignAgentRequest struct {
	AgentID    int64   `json:"agentId" validate:"required,gt=0"`
	AdminNotes *string `json:"adminNotes,omitempty" validate:"omitempty,max=2000"`
}

// ScheduleAppointmentRequest fixes the viewing slot.
type ScheduleAppointmentRequest struct {
	ScheduledDate string  `json:"scheduledDate" validate:"required,slotdate"`
	ScheduledTime string  `json:"scheduledTime" validate:"required,slottime"`
	AgentNotes    *string `json:"agentNotes,omitempty" validate:"omitempty,max=2000"`
}

// CompleteAppointmentRequest records the viewing outcome.
type CompleteAppointmentRequest struct {
	Outcome      string  `json:"outcome" validate:"required,oneof=interested offer_made not_interested no_show needs_followup"`
	OutcomeNotes *string `json:"outcomeNotes,omitempty" validate:"omitempty,max=2000"`
	AgentNotes   *string `json:"agentNotes,omitempty" validate:"omitempty,max=2000"`
}

// CancelAppointmentRequest cancels an appointment with an optional reason.
type CancelAppointmentRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

// ListAppointmentsRequest is the query string of the admin and agent listings.
type ListAppointmentsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending assigned scheduled completed cancelled"`
	Page     int    `form:"page" validate:"omitempty,min=1,max=1000000"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// CalendarRequest selects a date range, or a month of a year.
type CalendarRequest struct {
	From  string `form:"from" validate:"omitempty,slotdate"`
	To    string `form:"to" validate:"omitempty,slotdate"`
	Month int    `form:"month" validate:"omitempty,min=1,max=12"`
	Year  int    `form:"year" validate:"omitempty,min=2000,max=2100"`
}

// AppointmentResponse is the external representation of an appointment.
type AppointmentResponse struct {
	ID              int64      `json:"id"`
	PropertyID      int64      `json:"propertyId"`
	CustomerName    string     `json:"customerName"`
	CustomerEmail   string     `json:"customerEmail"`
	CustomerPhone   string     `json:"customerPhone"`
	Intent          string     `json:"intent"`
	Message         *string    `json:"message,omitempty"`
	PriorityNumber  int        `json:"priorityNumber"`
	AssignedAgentID *int64     `json:"assignedAgentId,omitempty"`
	AssignedAt      *time.Time `json:"assignedAt,omitempty"`
	ScheduledDate   *string    `json:"scheduledDate,omitempty"`
	ScheduledTime   *string    `json:"scheduledTime,omitempty"`
	Status          string     `json:"status"`
	Outcome         *string    `json:"outcome,omitempty"`
	AgentNotes      *string    `json:"agentNotes,omitempty"`
	OutcomeNotes    *string    `json:"outcomeNotes,omitempty"`
	AdminNotes      *string    `json:"adminNotes,omitempty"`
	SpamScore       *float64   `json:"spamScore,omitempty"`
	RemoteAddr      *string    `json:"remoteAddr,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// AppointmentListResponse is a page of an ordered listing.
type AppointmentListResponse struct {
	Items      []AppointmentResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

// CalendarResponse lists booked slots across all agents.
type CalendarResponse struct {
	From  string                `json:"from"`
	To    string                `json:"to"`
	Items []AppointmentResponse `json:"items"`
}

// StatsResponse holds per-status counts and per-outcome counts of completed appointments.
type StatsResponse struct {
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"byStatus"`
	ByOutcome map[string]int `json:"byOutcome"`
}

// FromDomain maps an appointment to its external representation.
func FromDomain(a domain.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:              a.ID,
		PropertyID:      a.PropertyID,
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		Intent:          string(a.Intent),
		Message:         a.Message,
		PriorityNumber:  a.PriorityNumber,
		AssignedAgentID: a.AssignedAgentID,
		AssignedAt:      a.AssignedAt,
		ScheduledDate:   a.ScheduledDate,
		ScheduledTime:   a.ScheduledTime,
		Status:          string(a.Status),
		AgentNotes:      a.AgentNotes,
		OutcomeNotes:    a.OutcomeNotes,
		AdminNotes:      a.AdminNotes,
		SpamScore:       a.SpamScore,
		RemoteAddr:      a.RemoteAddr,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		CompletedAt:     a.CompletedAt,
	}
	if a.Outcome != nil {
		o := string(*a.Outcome)
		resp.Outcome = &o
	}
	return resp
}

// ToDomain maps the external representation back to an appointment.
func (r AppointmentResponse) ToDomain() domain.Appointment {
	a := domain.Appointment{
		ID:              r.ID,
		PropertyID:      r.PropertyID,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		Intent:          domain.Intent(r.Intent),
		Message:         r.Message,
		PriorityNumber:  r.PriorityNumber,
		AssignedAgentID: r.AssignedAgentID,
		AssignedAt:      r.AssignedAt,
		ScheduledDate:   r.ScheduledDate,
		ScheduledTime:   r.ScheduledTime,
		Status:          domain.Status(r.Status),
		AgentNotes:      r.AgentNotes,
		OutcomeNotes:    r.OutcomeNotes,
		AdminNotes:      r.AdminNotes,
		SpamScore:       r.SpamScore,
		RemoteAddr:      r.RemoteAddr,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		CompletedAt:     r.CompletedAt,
	}
	if r.Outcome != nil {
		o := domain.Outcome(*r.Outcome)
		a.Outcome = &o
	}
	return a
}

// FromDomainList maps a slice of appointments.
func FromDomainList(items []domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, FromDomain(a))
	}
	return out
}
