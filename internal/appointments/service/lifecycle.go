package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/appointments/transport"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/internal/scheduler"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/httpkit"
	"estate_portal_backend/platform/phone"
	"estate_portal_backend/platform/sanitize"
)

// Create stores a public viewing request for propertyID and assigns it the
// next priority number of the property.
func (s *Service) Create(ctx context.Context, propertyID int64, req transport.CreateAppointmentRequest, remoteAddr string) (*transport.CreateAppointmentResponse, error) {
	appt, err := s.buildAppointment(propertyID, req, remoteAddr)
	if err != nil {
		return nil, err
	}

	property, err := s.properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, s.infraFailure(ctx, "get_property", err, "property_id", propertyID)
	}
	if property == nil {
		return nil, apperr.NotFound(msgPropertyNotFound).WithCode(CodePropertyNotFound)
	}
	if !s.isViewable(property.Status) {
		return nil, apperr.Conflict(msgPropertyUnavailable).WithCode(CodePropertyUnavailable)
	}

	if err := s.screenSubmission(ctx, appt, req.CaptchaToken, remoteAddr); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.LockProperty(ctx, propertyID); err != nil {
			return err
		}

		since := appt.CreatedAt.Add(-s.settings.DuplicateWindow)
		duplicate, err := tx.HasRecentRequest(ctx, propertyID, appt.CustomerEmail, since)
		if err != nil {
			return err
		}
		if duplicate {
			return apperr.Conflict(msgDuplicateRequest).WithCode(CodeDuplicateRequest)
		}

		next, err := tx.NextPriority(ctx, propertyID)
		if err != nil {
			return err
		}
		appt.PriorityNumber = next

		return tx.Insert(ctx, appt)
	})
	if err != nil {
		return nil, s.infraFailure(ctx, "create_appointment", err, "property_id", propertyID)
	}

	s.log.WithContext(ctx).Info("appointment created",
		"appointment_id", appt.ID, "property_id", propertyID, "priority_number", appt.PriorityNumber)

	s.publish(ctx, events.AppointmentCreated{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentRef: refOf(*appt),
		PropertyTitle:  property.Title,
		PriorityNumber: appt.PriorityNumber,
		Intent:         string(appt.Intent),
	})

	return &transport.CreateAppointmentResponse{
		AppointmentID:  appt.ID,
		PriorityNumber: appt.PriorityNumber,
		Status:         string(appt.Status),
		Message:        msgRequestReceived,
	}, nil
}

func (s *Service) buildAppointment(propertyID int64, req transport.CreateAppointmentRequest, remoteAddr string) (*domain.Appointment, error) {
	if propertyID <= 0 {
		return nil, apperr.Validation("invalid property id")
	}

	name := sanitize.Text(req.CustomerName)
	email := sanitize.Email(req.CustomerEmail)
	if name == "" || email == "" {
		return nil, apperr.Validation("name and email are required")
	}

	intent := domain.Intent(strings.ToLower(strings.TrimSpace(req.Intent)))
	if !intent.IsValid() {
		return nil, apperr.Validation("intent must be one of buy, rent, invest, inquire")
	}

	phoneNumber := phone.NormalizeE164(req.CustomerPhone)
	if phoneNumber == "" {
		phoneNumber = strings.TrimSpace(req.CustomerPhone)
	}

	var addr *string
	if trimmed := strings.TrimSpace(remoteAddr); trimmed != "" {
		addr = &trimmed
	}

	return &domain.Appointment{
		PropertyID:    propertyID,
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: phoneNumber,
		Intent:        intent,
		Message:       sanitize.OptionalText(req.Message),
		Status:        domain.StatusPending,
		RemoteAddr:    addr,
		CreatedAt:     s.clock(),
	}, nil
}

// screenSubmission applies anti-abuse scoring. A scorer outage does not block
// customers; the request is stored without a score.
func (s *Service) screenSubmission(ctx context.Context, appt *domain.Appointment, token, remoteAddr string) error {
	if !s.settings.ScoringEnabled || s.scorer == nil {
		return nil
	}

	score, err := s.scorer.Score(ctx, token, remoteAddr)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindForbidden {
			return apperr.Forbidden(msgSuspectedSpam).WithCode(CodeSuspectedSpam)
		}
		s.log.WithContext(ctx).Warn("abuse scoring unavailable, accepting request unscored", "error", err)
		return nil
	}

	appt.SpamScore = &score
	if score < s.settings.ScoreThreshold {
		s.log.WithContext(ctx).Warn("viewing request rejected as suspected spam",
			"property_id", appt.PropertyID, "score", score, "remote_addr", remoteAddr)
		return apperr.Forbidden(msgSuspectedSpam).WithCode(CodeSuspectedSpam)
	}
	return nil
}

// AssignAgent hands a pending appointment to an active agent.
func (s *Service) AssignAgent(ctx context.Context, actor Actor, id int64, req transport.AssignAgentRequest) (*transport.AppointmentResponse, error) {
	if err := authorize(opAssign, actor, nil); err != nil {
		return nil, err
	}

	agent, err := s.agents.GetAgent(ctx, req.AgentID)
	if err != nil {
		return nil, s.infraFailure(ctx, "get_agent", err, "agent_id", req.AgentID)
	}
	if agent == nil || agent.Role != httpkit.RoleAgent {
		return nil, apperr.NotFound("agent not found").WithCode(CodeAgentNotFound)
	}
	if !agent.Active {
		return nil, apperr.Validation("agent is not active").WithCode(CodeAgentInactive)
	}

	var updated domain.Appointment
	var from domain.Status
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		appt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = appt.Status
		if err := domain.CheckTransition(appt.Status, domain.StatusAssigned); err != nil {
			return err
		}

		now := s.clock()
		agentID := agent.ID
		appt.AssignedAgentID = &agentID
		if appt.AssignedAt == nil {
			appt.AssignedAt = &now
		}
		if req.AdminNotes != nil {
			appt.AdminNotes = domain.AppendNote(appt.AdminNotes, sanitize.Text(*req.AdminNotes))
		}
		appt.Status = domain.StatusAssigned
		appt.UpdatedAt = now

		if err := tx.Update(ctx, &appt); err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, s.infraFailure(ctx, "assign_agent", err, "appointment_id", id)
	}

	s.log.WithContext(ctx).Transition(id, string(from), string(updated.Status), actor.label())
	s.publish(ctx, events.AppointmentAssigned{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentRef: refOf(updated),
		AgentID:        agent.ID,
		AgentName:      agent.FullName,
		AgentEmail:     agent.Email,
	})

	resp := transport.FromDomain(updated)
	return &resp, nil
}

const slotLayout = "2006-01-02 15:04"

// slotInPast reports the service clock and zone the slot was judged against,
// so callers replaying fixed dates can see why it was refused.
func slotInPast(now time.Time, loc *time.Location) *apperr.Error {
	return apperr.Validation(fmt.Sprintf(
		"scheduledDate/scheduledTime must be later than the current time (%s, %s)",
		now.In(loc).Format(slotLayout), loc.String(),
	)).WithCode(CodeSlotInPast).WithDetails(map[string]string{
		"now":      now.In(loc).Format(slotLayout),
		"timezone": loc.String(),
	})
}

// Schedule fixes the viewing slot of an assigned appointment.
func (s *Service) Schedule(ctx context.Context, actor Actor, id int64, req transport.ScheduleAppointmentRequest) (*transport.AppointmentResponse, error) {
	slot, ok := domain.ParseSlot(req.ScheduledDate, req.ScheduledTime)
	if !ok {
		return nil, apperr.Validation("scheduledDate must be YYYY-MM-DD and scheduledTime HH:MM")
	}
	slotStart, err := slot.At(s.settings.Location)
	if err != nil {
		return nil, apperr.Validation("invalid slot")
	}
	if now := s.clock(); !slotStart.After(now) {
		return nil, slotInPast(now, s.settings.Location)
	}

	var updated domain.Appointment
	var from domain.Status
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		appt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(opSchedule, actor, &appt); err != nil {
			return err
		}
		from = appt.Status
		if err := domain.CheckTransition(appt.Status, domain.StatusScheduled); err != nil {
			return err
		}

		taken, err := tx.SlotTaken(ctx, appt.PropertyID, slot, appt.ID)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrSlotConflict()
		}

		appt.ScheduledDate = &slot.Date
		appt.ScheduledTime = &slot.Time
		if req.AgentNotes != nil {
			appt.AgentNotes = domain.AppendNote(appt.AgentNotes, sanitize.Text(*req.AgentNotes))
		}
		appt.Status = domain.StatusScheduled
		appt.UpdatedAt = s.clock()

		if err := tx.Update(ctx, &appt); err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, s.infraFailure(ctx, "schedule_appointment", err, "appointment_id", id)
	}

	s.log.WithContext(ctx).Transition(id, string(from), string(updated.Status), actor.label())
	s.scheduleReminder(ctx, updated, slot, slotStart)

	var agentID int64
	if updated.AssignedAgentID != nil {
		agentID = *updated.AssignedAgentID
	}
	s.publish(ctx, events.AppointmentScheduled{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentRef: refOf(updated),
		AgentID:        agentID,
		ScheduledDate:  slot.Date,
		ScheduledTime:  slot.Time,
	})

	resp := transport.FromDomain(updated)
	return &resp, nil
}

// scheduleReminder enqueues the viewing reminder. Failures are logged only;
// the appointment is already scheduled.
func (s *Service) scheduleReminder(ctx context.Context, appt domain.Appointment, slot domain.Slot, slotStart time.Time) {
	if s.reminders == nil || s.settings.ReminderLeadTime <= 0 {
		return
	}
	runAt := slotStart.Add(-s.settings.ReminderLeadTime)
	if now := s.clock(); runAt.Before(now) {
		runAt = now
	}
	payload := scheduler.ViewingReminderPayload{
		AppointmentID: appt.ID,
		PropertyID:    appt.PropertyID,
		ScheduledDate: slot.Date,
		ScheduledTime: slot.Time,
	}
	if err := s.reminders.ScheduleViewingReminder(ctx, payload, runAt); err != nil {
		s.log.WithContext(ctx).Warn("failed to schedule viewing reminder", "appointment_id", appt.ID, "error", err)
	}
}

// Complete records the outcome of a scheduled viewing.
func (s *Service) Complete(ctx context.Context, actor Actor, id int64, req transport.CompleteAppointmentRequest) (*transport.AppointmentResponse, error) {
	outcome := domain.Outcome(strings.TrimSpace(req.Outcome))
	if !outcome.IsValid() {
		return nil, apperr.Validation("outcome is required and must be a known value")
	}

	var updated domain.Appointment
	var from domain.Status
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		appt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(opComplete, actor, &appt); err != nil {
			return err
		}
		from = appt.Status
		if err := domain.CheckTransition(appt.Status, domain.StatusCompleted); err != nil {
			return err
		}

		now := s.clock()
		appt.Outcome = &outcome
		appt.OutcomeNotes = sanitize.OptionalText(req.OutcomeNotes)
		if req.AgentNotes != nil {
			appt.AgentNotes = domain.AppendNote(appt.AgentNotes, sanitize.Text(*req.AgentNotes))
		}
		appt.CompletedAt = &now
		appt.Status = domain.StatusCompleted
		appt.UpdatedAt = now

		if err := tx.Update(ctx, &appt); err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, s.infraFailure(ctx, "complete_appointment", err, "appointment_id", id)
	}

	s.log.WithContext(ctx).Transition(id, string(from), string(updated.Status), actor.label())

	var agentID int64
	if updated.AssignedAgentID != nil {
		agentID = *updated.AssignedAgentID
	}
	s.publish(ctx, events.AppointmentCompleted{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentRef: refOf(updated),
		AgentID:        agentID,
		Outcome:        string(outcome),
	})

	resp := transport.FromDomain(updated)
	return &resp, nil
}

// Cancel cancels a pending, assigned or scheduled appointment and closes the
// gap it leaves in the property's priority sequence in the same transaction.
func (s *Service) Cancel(ctx context.Context, actor Actor, id int64, req transport.CancelAppointmentRequest) (*transport.AppointmentResponse, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.infraFailure(ctx, "get_appointment", err, "appointment_id", id)
	}
	if err := authorize(opCancel, actor, &current); err != nil {
		return nil, err
	}

	reason := ""
	if req.Reason != nil {
		reason = sanitize.Text(*req.Reason)
	}

	var updated domain.Appointment
	var from domain.Status
	var moved int64
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.LockProperty(ctx, current.PropertyID); err != nil {
			return err
		}
		appt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(opCancel, actor, &appt); err != nil {
			return err
		}
		from = appt.Status
		if err := domain.CheckTransition(appt.Status, domain.StatusCancelled); err != nil {
			return err
		}

		appt.AgentNotes = domain.AppendNote(appt.AgentNotes, domain.CancellationNote(reason))
		appt.Status = domain.StatusCancelled
		appt.UpdatedAt = s.clock()
		if err := tx.Update(ctx, &appt); err != nil {
			return err
		}

		moved, err = tx.ClosePriorityGap(ctx, appt.PropertyID, appt.PriorityNumber)
		if err != nil {
			return err
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, s.infraFailure(ctx, "cancel_appointment", err, "appointment_id", id)
	}

	s.log.WithContext(ctx).Transition(id, string(from), string(updated.Status), actor.label())
	if moved > 0 {
		s.log.WithContext(ctx).Info("priorities renumbered",
			"property_id", updated.PropertyID, "from_priority", updated.PriorityNumber, "moved", moved)
	}

	var agentID int64
	if updated.AssignedAgentID != nil {
		agentID = *updated.AssignedAgentID
	}
	s.publish(ctx, events.AppointmentCancelled{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentRef: refOf(updated),
		AgentID:        agentID,
		PreviousStatus: string(from),
		Reason:         reason,
		CancelledBy:    actor.UserID,
	})

	resp := transport.FromDomain(updated)
	return &resp, nil
}

func refOf(appt domain.Appointment) events.AppointmentRef {
	return events.AppointmentRef{
		AppointmentID: appt.ID,
		PropertyID:    appt.PropertyID,
		CustomerName:  appt.CustomerName,
		CustomerEmail: appt.CustomerEmail,
	}
}
