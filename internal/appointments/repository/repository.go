package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate_portal_backend/internal/appointments/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, property_id, customer_name, customer_email, customer_phone, intent, message,
		priority_number, assigned_agent_id, assigned_at,
		to_char(scheduled_date, 'YYYY-MM-DD'), to_char(scheduled_time, 'HH24:MI'),
		status, outcome, agent_notes, outcome_notes, admin_notes, spam_score, remote_addr,
		created_at, updated_at, completed_at`

const (
	queryGetByID = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	queryGetForUpdate = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

	queryLockTimeout = `SELECT set_config('lock_timeout', $1, true)`

	queryLockProperty = `SELECT pg_advisory_xact_lock(hashtextextended('property_appointments', $1::bigint))`

	queryRecentRequest = `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE property_id = $1 AND lower(customer_email) = lower($2)
			AND status <> 'cancelled' AND created_at >= $3)`

	queryNextPriority = `SELECT COALESCE(MAX(priority_number), 0) + 1 FROM appointments
		WHERE property_id = $1 AND status <> 'cancelled'`

	querySlotTaken = `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE property_id = $1 AND scheduled_date = $2::date AND scheduled_time = $3::time
			AND status <> 'cancelled' AND id <> $4)`

	queryInsert = `INSERT INTO appointments (
			property_id, customer_name, customer_email, customer_phone, intent, message,
			priority_number, status, spam_score, remote_addr, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id`

	queryUpdate = `UPDATE appointments SET
			assigned_agent_id = $2,
			assigned_at = $3,
			scheduled_date = $4::date,
			scheduled_time = $5::time,
			status = $6,
			outcome = $7,
			agent_notes = $8,
			outcome_notes = $9,
			admin_notes = $10,
			completed_at = $11,
			updated_at = $12
		WHERE id = $1`

	queryClosePriorityGap = `UPDATE appointments SET priority_number = priority_number - 1, updated_at = now()
		WHERE property_id = $1 AND status <> 'cancelled' AND priority_number > $2`

	queryCalendar = `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE status IN ('scheduled', 'completed') AND scheduled_date IS NOT NULL
			AND scheduled_date >= $1::date AND scheduled_date <= $2::date`

	queryCountByStatus = `SELECT status, COUNT(*) FROM appointments GROUP BY status`

	queryCountByOutcome = `SELECT outcome, COUNT(*) FROM appointments
		WHERE status = 'completed' AND outcome IS NOT NULL GROUP BY outcome`
)

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// New creates a new appointments repository. lockTimeout bounds how long a
// transaction waits for the per-property lock or a row lock.
func New(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// WithTx runs fn inside a database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, queryLockTimeout, fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("failed to commit transaction: %w", err), "commit")
	}
	return nil
}

// GetByID retrieves an appointment by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, queryGetByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Appointment{}, ErrNotFound()
		}
		return domain.Appointment{}, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// List returns appointments matching filter in storage order. Callers apply
// the view-specific ordering.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.Appointment, error) {
	baseQuery := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	addFilter(&baseQuery, &args, &argIndex, filter.Status != nil, " AND status = $%d", derefStatus(filter.Status))
	addFilter(&baseQuery, &args, &argIndex, filter.AgentID != nil, " AND assigned_agent_id = $%d", derefInt64(filter.AgentID))

	rows, err := r.pool.Query(ctx, baseQuery+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return collectAppointments(rows)
}

// Calendar returns scheduled and completed appointments within r.
func (r *Repository) Calendar(ctx context.Context, rng CalendarRange) ([]domain.Appointment, error) {
	rows, err := r.pool.Query(ctx, queryCalendar, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	return collectAppointments(rows)
}

// CountByStatus returns the number of appointments per status.
func (r *Repository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.pool.Query(ctx, queryCountByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusCount
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		out = append(out, domain.StatusCount{Status: domain.Status(status), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return out, nil
}

// CountByOutcome returns the number of completed appointments per outcome.
func (r *Repository) CountByOutcome(ctx context.Context) ([]domain.OutcomeCount, error) {
	rows, err := r.pool.Query(ctx, queryCountByOutcome)
	if err != nil {
		return nil, fmt.Errorf("failed to count by outcome: %w", err)
	}
	defer rows.Close()

	var out []domain.OutcomeCount
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		out = append(out, domain.OutcomeCount{Outcome: domain.Outcome(outcome), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcome counts: %w", err)
	}
	return out, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockProperty(ctx context.Context, propertyID int64) error {
	if _, err := t.tx.Exec(ctx, queryLockProperty, propertyID); err != nil {
		return translate(fmt.Errorf("failed to lock property %d: %w", propertyID, err), "lock_property")
	}
	return nil
}

func (t *pgTx) GetForUpdate(ctx context.Context, id int64) (domain.Appointment, error) {
	appt, err := scanAppointment(t.tx.QueryRow(ctx, queryGetForUpdate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Appointment{}, ErrNotFound()
		}
		return domain.Appointment{}, translate(fmt.Errorf("failed to lock appointment: %w", err), "get_for_update")
	}
	return appt, nil
}

func (t *pgTx) HasRecentRequest(ctx context.Context, propertyID int64, email string, since time.Time) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, queryRecentRequest, propertyID, email, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check recent requests: %w", err)
	}
	return exists, nil
}

func (t *pgTx) NextPriority(ctx context.Context, propertyID int64) (int, error) {
	var next int
	if err := t.tx.QueryRow(ctx, queryNextPriority, propertyID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next priority: %w", err)
	}
	return next, nil
}

func (t *pgTx) SlotTaken(ctx context.Context, propertyID int64, slot domain.Slot, excludeID int64) (bool, error) {
	var taken bool
	if err := t.tx.QueryRow(ctx, querySlotTaken, propertyID, slot.Date, slot.Time, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (t *pgTx) Insert(ctx context.Context, appt *domain.Appointment) error {
	err := t.tx.QueryRow(ctx, queryInsert,
		appt.PropertyID, appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone, string(appt.Intent), appt.Message,
		appt.PriorityNumber, string(appt.Status), appt.SpamScore, appt.RemoteAddr, appt.CreatedAt,
	).Scan(&appt.ID)
	if err != nil {
		return translate(fmt.Errorf("failed to create appointment: %w", err), "insert")
	}
	appt.UpdatedAt = appt.CreatedAt
	return nil
}

func (t *pgTx) Update(ctx context.Context, appt *domain.Appointment) error {
	var outcome *string
	if appt.Outcome != nil {
		o := string(*appt.Outcome)
		outcome = &o
	}
	tag, err := t.tx.Exec(ctx, queryUpdate,
		appt.ID, appt.AssignedAgentID, appt.AssignedAt, appt.ScheduledDate, appt.ScheduledTime,
		string(appt.Status), outcome, appt.AgentNotes, appt.OutcomeNotes, appt.AdminNotes,
		appt.CompletedAt, appt.UpdatedAt,
	)
	if err != nil {
		return translate(fmt.Errorf("failed to update appointment: %w", err), "update")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound()
	}
	return nil
}

func (t *pgTx) ClosePriorityGap(ctx context.Context, propertyID int64, priority int) (int64, error) {
	tag, err := t.tx.Exec(ctx, queryClosePriorityGap, propertyID, priority)
	if err != nil {
		return 0, translate(fmt.Errorf("failed to renumber priorities: %w", err), "close_priority_gap")
	}
	return tag.RowsAffected(), nil
}

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var (
		appt    domain.Appointment
		intent  string
		status  string
		outcome *string
	)
	err := row.Scan(
		&appt.ID, &appt.PropertyID, &appt.CustomerName, &appt.CustomerEmail, &appt.CustomerPhone, &intent, &appt.Message,
		&appt.PriorityNumber, &appt.AssignedAgentID, &appt.AssignedAt,
		&appt.ScheduledDate, &appt.ScheduledTime,
		&status, &outcome, &appt.AgentNotes, &appt.OutcomeNotes, &appt.AdminNotes, &appt.SpamScore, &appt.RemoteAddr,
		&appt.CreatedAt, &appt.UpdatedAt, &appt.CompletedAt,
	)
	if err != nil {
		return domain.Appointment{}, err
	}
	appt.Intent = domain.Intent(intent)
	appt.Status = domain.Status(status)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		appt.Outcome = &o
	}
	return appt, nil
}

func collectAppointments(rows pgx.Rows) ([]domain.Appointment, error) {
	defer rows.Close()

	items := make([]domain.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return items, nil
}

func addFilter(baseQuery *string, args *[]interface{}, argIndex *int, apply bool, clause string, value interface{}) {
	if !apply {
		return
	}
	*baseQuery += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}

func derefStatus(value *domain.Status) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(string(*value))
}

func derefInt64(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}

var (
	_ Store = (*Repository)(nil)
	_ Tx    = (*pgTx)(nil)
)
