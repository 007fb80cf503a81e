package service

import (
	"fmt"

	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/platform/apperr"
)

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	UserID int64
	Admin  bool
	Agent  bool
}

func (a Actor) label() string {
	switch {
	case a.Admin:
		return fmt.Sprintf("admin:%d", a.UserID)
	case a.Agent:
		return fmt.Sprintf("agent:%d", a.UserID)
	default:
		return fmt.Sprintf("user:%d", a.UserID)
	}
}

type operation string

const (
	opView     operation = "view"
	opListAll  operation = "list_all"
	opListMine operation = "list_mine"
	opCalendar operation = "calendar"
	opStats    operation = "stats"
	opAssign   operation = "assign"
	opSchedule operation = "schedule"
	opComplete operation = "complete"
	opCancel   operation = "cancel"
)

type capability int

const (
	adminOnly capability = iota
	staff
	adminOrOwner
)

var policy = map[operation]capability{
	opView:     adminOrOwner,
	opListAll:  adminOnly,
	opListMine: staff,
	opCalendar: staff,
	opStats:    adminOnly,
	opAssign:   adminOnly,
	opSchedule: adminOrOwner,
	opComplete: adminOrOwner,
	opCancel:   adminOrOwner,
}

// authorize is the single capability check run by every operation. appt is
// required for operations scoped to one appointment.
func authorize(op operation, actor Actor, appt *domain.Appointment) error {
	if actor.UserID <= 0 {
		return apperr.Unauthorized("authentication required")
	}
	switch policy[op] {
	case adminOnly:
		if actor.Admin {
			return nil
		}
		return apperr.Forbidden("only administrators can " + describe(op))
	case staff:
		if actor.Admin || actor.Agent {
			return nil
		}
		return apperr.Forbidden("only agents and administrators can " + describe(op))
	case adminOrOwner:
		if actor.Admin {
			return nil
		}
		if !actor.Agent {
			return apperr.Forbidden("only agents and administrators can " + describe(op))
		}
		if appt == nil || !appt.IsAssignedTo(actor.UserID) {
			return apperr.Forbidden("this appointment is not assigned to you").WithCode(CodeNotOwned)
		}
		return nil
	}
	return apperr.Forbidden("operation not permitted")
}

func describe(op operation) string {
	switch op {
	case opListAll:
		return "list all appointments"
	case opStats:
		return "view appointment statistics"
	case opAssign:
		return "assign agents"
	case opListMine, opCalendar:
		return "view the appointment calendar"
	default:
		return string(op) + " appointments"
	}
}
