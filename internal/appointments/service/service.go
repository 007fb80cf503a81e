package service

import (
	"context"
	"strings"
	"time"

	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/internal/scheduler"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/logger"
)

// Error codes surfaced with business errors.
const (
	CodeDuplicateRequest    = "duplicate_request"
	CodePropertyUnavailable = "property_unavailable"
	CodePropertyNotFound    = "property_not_found"
	CodeAgentNotFound       = "agent_not_found"
	CodeAgentInactive       = "agent_inactive"
	CodeNotOwned            = "not_owned"
	CodeSuspectedSpam       = "suspected_spam"
	CodeSlotInPast          = "slot_in_past"
)

// Customer-facing messages.
const (
	msgDuplicateRequest    = "You have already requested a viewing of this property. We will contact you shortly."
	msgPropertyNotFound    = "We could not find this property. Please check the link and try again."
	msgPropertyUnavailable = "This property is no longer open for viewings."
	msgSuspectedSpam       = "We could not verify your request. Please try again in a moment."
	msgRequestReceived     = "Thank you! Your viewing request has been received and we will contact you soon."
	msgUnavailable         = "The appointment service is temporarily unavailable. Please try again later."
)

// PropertyInfo is the subset of the property directory the engine reads.
type PropertyInfo struct {
	ID     int64
	Title  string
	Status string
}

// AgentInfo is the subset of the identity provider's user record the engine reads.
type AgentInfo struct {
	ID       int64
	FullName string
	Email    string
	Role     string
	Active   bool
}

// PropertyDirectory resolves properties. A nil result means the property does not exist.
type PropertyDirectory interface {
	GetProperty(ctx context.Context, propertyID int64) (*PropertyInfo, error)
}

// AgentDirectory resolves users who may be assigned. A nil result means the user does not exist.
type AgentDirectory interface {
	GetAgent(ctx context.Context, userID int64) (*AgentInfo, error)
}

// AbuseScorer rates a public submission; higher is more likely human.
type AbuseScorer interface {
	Score(ctx context.Context, token, remoteAddr string) (float64, error)
}

// Settings holds the deployment-tunable rules of the engine.
type Settings struct {
	DuplicateWindow     time.Duration
	ViewableStatuses    []string
	ScoringEnabled      bool
	ScoreThreshold      float64
	ReminderLeadTime    time.Duration
	Location            *time.Location
	DefaultPageSize     int
	MaxCalendarSpanDays int
}

// DefaultSettings returns the rules used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		DuplicateWindow:     24 * time.Hour,
		ViewableStatuses:    []string{"available"},
		ScoreThreshold:      0.3,
		ReminderLeadTime:    24 * time.Hour,
		Location:            time.UTC,
		DefaultPageSize:     20,
		MaxCalendarSpanDays: 366,
	}
}

// Deps are the collaborators of the service. Scorer and Reminders are optional.
type Deps struct {
	Store      repository.Store
	Properties PropertyDirectory
	Agents     AgentDirectory
	Scorer     AbuseScorer
	Reminders  scheduler.ReminderScheduler
	EventBus   events.Bus
	Log        *logger.Logger
}

// Service provides business logic for appointments
type Service struct {
	store      repository.Store
	properties PropertyDirectory
	agents     AgentDirectory
	scorer     AbuseScorer
	reminders  scheduler.ReminderScheduler
	eventBus   events.Bus
	log        *logger.Logger
	settings   Settings
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new appointments service
func New(deps Deps, settings Settings, opts ...Option) *Service {
	defaults := DefaultSettings()
	if settings.DuplicateWindow <= 0 {
		settings.DuplicateWindow = defaults.DuplicateWindow
	}
	if len(settings.ViewableStatuses) == 0 {
		settings.ViewableStatuses = defaults.ViewableStatuses
	}
	if settings.Location == nil {
		settings.Location = defaults.Location
	}
	if settings.DefaultPageSize <= 0 {
		settings.DefaultPageSize = defaults.DefaultPageSize
	}
	if settings.MaxCalendarSpanDays <= 0 {
		settings.MaxCalendarSpanDays = defaults.MaxCalendarSpanDays
	}
	log := deps.Log
	if log == nil {
		log = logger.New("production")
	}

	s := &Service{
		store:      deps.Store,
		properties: deps.Properties,
		agents:     deps.Agents,
		scorer:     deps.Scorer,
		reminders:  deps.Reminders,
		eventBus:   deps.EventBus,
		log:        log,
		settings:   settings,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// infraFailure passes typed business errors through and converts anything
// else into a logged Unavailable error.
func (s *Service) infraFailure(ctx context.Context, op string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	s.log.WithContext(ctx).DatabaseError(op, err, attrs...)
	return apperr.Unavailable(msgUnavailable, err).WithOp(op)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, event)
}

func (s *Service) isViewable(status string) bool {
	for _, allowed := range s.settings.ViewableStatuses {
		if strings.EqualFold(strings.TrimSpace(allowed), status) {
			return true
		}
	}
	return false
}
