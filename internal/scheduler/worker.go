package scheduler

import (
	"context"
	"fmt"

	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// AppointmentReader is the read side the worker needs to re-check a reminder.
type AppointmentReader interface {
	GetByID(ctx context.Context, id int64) (domain.Appointment, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   AppointmentReader
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, repo AppointmentReader, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repo,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskViewingReminder, w.handleViewingReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleViewingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseViewingReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.processViewingReminder(ctx, payload)
}

// processViewingReminder publishes ReminderDue only when the appointment is
// still scheduled for the slot the reminder was planned for.
func (w *Worker) processViewingReminder(ctx context.Context, payload ViewingReminderPayload) error {
	appt, err := w.repo.GetByID(ctx, payload.AppointmentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	if appt.Status != domain.StatusScheduled {
		return nil
	}
	slot, ok := appt.Slot()
	if !ok || slot.Date != payload.ScheduledDate || slot.Time != payload.ScheduledTime {
		w.log.Info("dropping stale viewing reminder", "appointment_id", appt.ID)
		return nil
	}

	if w.bus == nil {
		return nil
	}

	var agentID int64
	if appt.AssignedAgentID != nil {
		agentID = *appt.AssignedAgentID
	}

	return w.bus.PublishSync(ctx, events.ReminderDue{
		BaseEvent: events.NewBaseEvent(),
		AppointmentRef: events.AppointmentRef{
			AppointmentID: appt.ID,
			PropertyID:    appt.PropertyID,
			CustomerName:  appt.CustomerName,
			CustomerEmail: appt.CustomerEmail,
		},
		AgentID:       agentID,
		ScheduledDate: slot.Date,
		ScheduledTime: slot.Time,
	})
}

var (
	_ AppointmentReader = (*repository.Repository)(nil)
	_ AppointmentReader = (*repository.MemoryStore)(nil)
)
