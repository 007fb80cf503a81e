// Package domain holds the appointment lifecycle rules: the status state
// machine, slot parsing, note handling and the read-model orderings.
package domain

import (
	"fmt"

	"estate_portal_backend/platform/apperr"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusAssigned, StatusScheduled, StatusCompleted, StatusCancelled}

// Outcome is the agent-recorded result of a completed viewing.
type Outcome string

const (
	OutcomeInterested    Outcome = "interested"
	OutcomeOfferMade     Outcome = "offer_made"
	OutcomeNotInterested Outcome = "not_interested"
	OutcomeNoShow        Outcome = "no_show"
	OutcomeNeedsFollowup Outcome = "needs_followup"
)

// AllOutcomes lists every outcome value.
var AllOutcomes = []Outcome{OutcomeInterested, OutcomeOfferMade, OutcomeNotInterested, OutcomeNoShow, OutcomeNeedsFollowup}

// Intent is the customer's stated reason for the viewing.
type Intent string

const (
	IntentBuy     Intent = "buy"
	IntentRent    Intent = "rent"
	IntentInvest  Intent = "invest"
	IntentInquire Intent = "inquire"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// IsActive reports whether the appointment still counts toward priority
// ranking and slot occupancy.
func (s Status) IsActive() bool {
	return s.IsValid() && s != StatusCancelled
}

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	for _, known := range AllOutcomes {
		if o == known {
			return true
		}
	}
	return false
}

// IsValid reports whether i is a known intent.
func (i Intent) IsValid() bool {
	switch i {
	case IntentBuy, IntentRent, IntentInvest, IntentInquire:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransition error when from -> to is not allowed.
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if from == to {
		return apperr.InvalidTransition(fmt.Sprintf("appointment is already %s", from))
	}
	return apperr.InvalidTransition(fmt.Sprintf("cannot move appointment from %s to %s", from, to))
}
