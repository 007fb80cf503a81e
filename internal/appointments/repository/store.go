package repository

import (
	"context"
	"time"

	"estate_portal_backend/internal/appointments/domain"
)

// ListFilter narrows the admin and agent listings.
type ListFilter struct {
	Status  *domain.Status
	AgentID *int64
}

// CalendarRange is an inclusive date range in domain.DateLayout.
type CalendarRange struct {
	From string
	To   string
}

// Store is the persisted appointment collection.
// Reads outside WithTx see committed state only.
type Store interface {
	// WithTx runs fn in a single all-or-nothing unit. Any error rolls back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id int64) (domain.Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Appointment, error)
	Calendar(ctx context.Context, r CalendarRange) ([]domain.Appointment, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
	CountByOutcome(ctx context.Context) ([]domain.OutcomeCount, error)
}

// Tx is the transactional view used by mutating operations.
type Tx interface {
	// LockProperty serializes writers of one property's appointment set until
	// the transaction ends. Different properties never contend.
	LockProperty(ctx context.Context, propertyID int64) error
	// GetForUpdate reads an appointment and holds its row lock until the
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (domain.Appointment, error)
	// HasRecentRequest reports whether a non-cancelled appointment for the
	// property from email was created at or after since.
	HasRecentRequest(ctx context.Context, propertyID int64, email string, since time.Time) (bool, error)
	// NextPriority returns 1 + the highest priority among non-cancelled
	// appointments of the property.
	NextPriority(ctx context.Context, propertyID int64) (int, error)
	// SlotTaken reports whether another non-cancelled appointment of the
	// property holds slot.
	SlotTaken(ctx context.Context, propertyID int64, slot domain.Slot, excludeID int64) (bool, error)
	// Insert stores a new appointment and sets its ID.
	Insert(ctx context.Context, appt *domain.Appointment) error
	// Update writes the mutable lifecycle fields. A store-level slot
	// uniqueness violation is reported as a slot_conflict Conflict.
	Update(ctx context.Context, appt *domain.Appointment) error
	// ClosePriorityGap decrements every non-cancelled appointment of the
	// property ranked after priority and returns how many moved.
	ClosePriorityGap(ctx context.Context, propertyID int64, priority int) (int64, error)
}
