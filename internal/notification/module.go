// Package notification provides event handlers for sending notifications
// in response to appointment lifecycle events.
// This module subscribes to events and inverts the dependency: the appointment
// engine does not need to know about email providers, templates or live feeds.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"estate_portal_backend/internal/email"
	"estate_portal_backend/internal/events"
	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/internal/notification/sse"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/httpkit"
	"estate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const propertyTitleTTL = 10 * time.Minute

// PropertyTitleReader resolves a property's display title.
type PropertyTitleReader interface {
	PropertyTitle(ctx context.Context, propertyID int64) (string, error)
}

type cachedTitle struct {
	title     string
	expiresAt time.Time
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender     email.Sender
	properties PropertyTitleReader
	cfg        config.NotificationConfig
	log        *logger.Logger
	sse        *sse.Service
	titleCache sync.Map // map[int64]cachedTitle
}

// New creates a new notification module.
func New(sender email.Sender, properties PropertyTitleReader, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender:     sender,
		properties: properties,
		cfg:        cfg,
		log:        log,
		sse:        sse.New(log),
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// SSE returns the live feed service.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the live appointment feed for staff.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/appointments/stream", m.sse.Handler(staffViewer))
}

func staffViewer(c *gin.Context) (sse.Viewer, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return sse.Viewer{}, false
	}
	admin := identity.HasRole(httpkit.RoleAdmin)
	if !admin && !identity.HasRole(httpkit.RoleAgent) {
		return sse.Viewer{}, false
	}
	return sse.Viewer{UserID: identity.UserID(), Admin: admin}, true
}

// RegisterHandlers subscribes to all appointment lifecycle events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	for _, name := range events.AllAppointmentEvents {
		bus.Subscribe(name, m)
	}
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AppointmentCreated:
		return m.handleAppointmentCreated(ctx, e)
	case events.AppointmentAssigned:
		return m.handleAppointmentAssigned(ctx, e)
	case events.AppointmentScheduled:
		return m.handleAppointmentScheduled(ctx, e)
	case events.AppointmentCompleted:
		return m.handleAppointmentCompleted(ctx, e)
	case events.AppointmentCancelled:
		return m.handleAppointmentCancelled(ctx, e)
	case events.ReminderDue:
		return m.handleReminderDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleAppointmentCreated(ctx context.Context, e events.AppointmentCreated) error {
	m.sse.PublishToStaff(0, sse.Event{
		Type:          sse.EventAppointmentCreated,
		AppointmentID: e.AppointmentID,
		PropertyID:    e.PropertyID,
		Message:       fmt.Sprintf("New viewing request #%d for %s", e.PriorityNumber, e.PropertyTitle),
	})

	if err := m.sender.SendRequestReceivedEmail(ctx, e.CustomerEmail, e.CustomerName, e.PropertyTitle, e.PriorityNumber); err != nil {
		return m.mailFailed(ctx, e, err)
	}
	return nil
}

func (m *Module) handleAppointmentAssigned(ctx context.Context, e events.AppointmentAssigned) error {
	title := m.propertyTitle(ctx, e.PropertyID)
	m.sse.PublishToStaff(e.AgentID, sse.Event{
		Type:          sse.EventAppointmentAssigned,
		AppointmentID: e.AppointmentID,
		PropertyID:    e.PropertyID,
		Message:       fmt.Sprintf("%s assigned to viewing of %s", e.AgentName, title),
		Data:          map[string]any{"agentId": e.AgentID},
	})

	if e.AgentEmail == "" {
		return nil
	}
	if err := m.sender.SendAgentAssignedEmail(ctx, e.AgentEmail, e.AgentName, e.CustomerName, title, m.appointmentURL(e.AppointmentID)); err != nil {
		return m.mailFailed(ctx, e, err)
	}
	return nil
}

func (m *Module) handleAppointmentScheduled(ctx context.Context, e events.AppointmentScheduled) error {
	title := m.propertyTitle(ctx, e.PropertyID)
	m.sse.PublishToStaff(e.AgentID, sse.Event{
		Type:          sse.EventAppointmentScheduled,
		AppointmentID: e.AppointmentID,
		PropertyID:    e.PropertyID,
		Data:          map[string]any{"scheduledDate": e.ScheduledDate, "scheduledTime": e.ScheduledTime},
	})

	if err := m.sender.SendViewingScheduledEmail(ctx, e.CustomerEmail, e.CustomerName, title, e.ScheduledDate, e.ScheduledTime); err != nil {
		return m.mailFailed(ctx, e, err)
	}
	return nil
}

func (m *Module) handleAppointmentCompleted(_ context.Context, e events.AppointmentCompleted) error {
	m.sse.PublishToStaff(e.AgentID, sse.Event{
		Type:          sse.EventAppointmentCompleted,
		AppointmentID: e.AppointmentID,
		PropertyID:    e.PropertyID,
		Data:          map[string]any{"outcome": e.Outcome},
	})
	return nil
}

func (m *Module) handleAppointmentCancelled(ctx context.Context, e events.AppointmentCancelled) error {
	title := m.propertyTitle(ctx, e.PropertyID)
	m.sse.PublishToStaff(e.AgentID, sse.Event{
		Type:          sse.EventAppointmentCancelled,
		AppointmentID: e.AppointmentID,
		PropertyID:    e.PropertyID,
		Data:          map[string]any{"previousStatus": e.PreviousStatus},
	})

	if err := m.sender.SendViewingCancelledEmail(ctx, e.CustomerEmail, e.CustomerName, title, e.Reason); err != nil {
		return m.mailFailed(ctx, e, err)
	}
	return nil
}

// handleReminderDue runs synchronously inside the reminder task; a send error
// makes the task retry.
func (m *Module) handleReminderDue(ctx context.Context, e events.ReminderDue) error {
	title := m.propertyTitle(ctx, e.PropertyID)
	if err := m.sender.SendViewingReminderEmail(ctx, e.CustomerEmail, e.CustomerName, title, e.ScheduledDate, e.ScheduledTime); err != nil {
		return m.mailFailed(ctx, e, err)
	}
	m.log.WithContext(ctx).Info("viewing reminder sent", "appointment_id", e.AppointmentID)
	return nil
}

func (m *Module) mailFailed(ctx context.Context, event events.Event, err error) error {
	m.log.WithContext(ctx).Error("failed to send notification email", "event", event.EventName(), "error", err)
	return fmt.Errorf("send %s email: %w", event.EventName(), err)
}

// propertyTitle returns a cached title, falling back to a generic label when
// the lookup fails.
func (m *Module) propertyTitle(ctx context.Context, propertyID int64) string {
	if cached, ok := m.titleCache.Load(propertyID); ok {
		entry := cached.(cachedTitle)
		if time.Now().Before(entry.expiresAt) {
			return entry.title
		}
	}

	fallback := fmt.Sprintf("property #%d", propertyID)
	if m.properties == nil {
		return fallback
	}
	title, err := m.properties.PropertyTitle(ctx, propertyID)
	if err != nil || strings.TrimSpace(title) == "" {
		if err != nil {
			m.log.WithContext(ctx).Warn("property title lookup failed", "property_id", propertyID, "error", err)
		}
		return fallback
	}
	m.titleCache.Store(propertyID, cachedTitle{title: title, expiresAt: time.Now().Add(propertyTitleTTL)})
	return title
}

func (m *Module) appointmentURL(appointmentID int64) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	return fmt.Sprintf("%s/appointments/%d", base, appointmentID)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
