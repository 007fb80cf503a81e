package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskViewingReminder = "appointments.viewing_reminder"

// ViewingReminderPayload identifies the appointment and the slot the reminder
// was planned for. A reminder whose slot no longer matches is dropped.
type ViewingReminderPayload struct {
	AppointmentID int64  `json:"appointmentId"`
	PropertyID    int64  `json:"propertyId"`
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
}

// TaskID is the deduplication key of the reminder in the queue.
func (p ViewingReminderPayload) TaskID() string {
	return fmt.Sprintf("viewing-reminder:%d:%s:%s", p.AppointmentID, p.ScheduledDate, p.ScheduledTime)
}

func NewViewingReminderTask(payload ViewingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskViewingReminder, data), nil
}

func ParseViewingReminderPayload(task *asynq.Task) (ViewingReminderPayload, error) {
	var payload ViewingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ViewingReminderPayload{}, err
	}
	return payload, nil
}
