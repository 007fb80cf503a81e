package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"estate_portal_backend/internal/appointments/domain"
)

// errLockTimeout mirrors PostgreSQL's lock_not_available for the in-memory store.
var errLockTimeout = errors.New("lock timeout")

type slotKey struct {
	propertyID int64
	slot       domain.Slot
}

// MemoryStore is an in-process Store with the same locking and uniqueness
// semantics as the PostgreSQL schema: a per-property lock, per-row locks and
// a unique index over active slots. It backs service tests and local runs
// without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]domain.Appointment
	slots  map[slotKey]int64
	nextID int64

	locksMu       sync.Mutex
	propertyLocks map[int64]chan struct{}
	rowLocks      map[int64]chan struct{}

	lockTimeout time.Duration
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &MemoryStore{
		rows:          make(map[int64]domain.Appointment),
		slots:         make(map[slotKey]int64),
		propertyLocks: make(map[int64]chan struct{}),
		rowLocks:      make(map[int64]chan struct{}),
		lockTimeout:   lockTimeout,
	}
}

// Seed stores appt as committed state, assigning an ID when zero.
func (m *MemoryStore) Seed(appt domain.Appointment) domain.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.ID == 0 {
		m.nextID++
		appt.ID = m.nextID
	} else if appt.ID > m.nextID {
		m.nextID = appt.ID
	}
	m.rows[appt.ID] = appt.Clone()
	if key, ok := activeSlotKey(appt); ok {
		m.slots[key] = appt.ID
	}
	return appt
}

// WithTx runs fn in an isolated unit whose writes become visible on success only.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memoryTx{
		store:  m,
		staged: make(map[int64]domain.Appointment),
		held:   make(map[chan struct{}]struct{}),
	}
	defer tx.releaseLocks()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// GetByID retrieves committed state for id.
func (m *MemoryStore) GetByID(_ context.Context, id int64) (domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	appt, ok := m.rows[id]
	if !ok {
		return domain.Appointment{}, ErrNotFound()
	}
	return appt.Clone(), nil
}

// List returns committed appointments matching filter ordered by id.
func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]domain.Appointment, error) {
	return m.collect(func(a domain.Appointment) bool {
		if filter.Status != nil && a.Status != *filter.Status {
			return false
		}
		if filter.AgentID != nil && !a.IsAssignedTo(*filter.AgentID) {
			return false
		}
		return true
	}), nil
}

// Calendar returns scheduled and completed appointments within rng.
func (m *MemoryStore) Calendar(_ context.Context, rng CalendarRange) ([]domain.Appointment, error) {
	return m.collect(func(a domain.Appointment) bool {
		if !domain.OnCalendar(a) {
			return false
		}
		return *a.ScheduledDate >= rng.From && *a.ScheduledDate <= rng.To
	}), nil
}

// CountByStatus returns counts for statuses present in the store.
func (m *MemoryStore) CountByStatus(_ context.Context) ([]domain.StatusCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.Status]int)
	for _, a := range m.rows {
		counts[a.Status]++
	}
	out := make([]domain.StatusCount, 0, len(counts))
	for _, s := range domain.AllStatuses {
		if n, ok := counts[s]; ok {
			out = append(out, domain.StatusCount{Status: s, Count: n})
		}
	}
	return out, nil
}

// CountByOutcome returns counts of completed appointments per outcome.
func (m *MemoryStore) CountByOutcome(_ context.Context) ([]domain.OutcomeCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.Outcome]int)
	for _, a := range m.rows {
		if a.Status == domain.StatusCompleted && a.Outcome != nil {
			counts[*a.Outcome]++
		}
	}
	out := make([]domain.OutcomeCount, 0, len(counts))
	for _, o := range domain.AllOutcomes {
		if n, ok := counts[o]; ok {
			out = append(out, domain.OutcomeCount{Outcome: o, Count: n})
		}
	}
	return out, nil
}

func (m *MemoryStore) collect(keep func(domain.Appointment) bool) []domain.Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Appointment, 0)
	for id := int64(1); id <= m.nextID; id++ {
		a, ok := m.rows[id]
		if ok && keep(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (m *MemoryStore) lockFor(table map[int64]chan struct{}, id int64) chan struct{} {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	ch, ok := table[id]
	if !ok {
		ch = make(chan struct{}, 1)
		table[id] = ch
	}
	return ch
}

func activeSlotKey(a domain.Appointment) (slotKey, bool) {
	if !a.Status.IsActive() {
		return slotKey{}, false
	}
	slot, ok := a.Slot()
	if !ok {
		return slotKey{}, false
	}
	return slotKey{propertyID: a.PropertyID, slot: slot}, true
}

type memoryTx struct {
	store    *MemoryStore
	staged   map[int64]domain.Appointment
	inserted []int64
	reserved []slotKey
	released []slotKey
	held     map[chan struct{}]struct{}
}

func (t *memoryTx) acquire(ctx context.Context, lock chan struct{}) error {
	if _, ok := t.held[lock]; ok {
		return nil
	}
	timer := time.NewTimer(t.store.lockTimeout)
	defer timer.Stop()
	select {
	case lock <- struct{}{}:
		t.held[lock] = struct{}{}
		return nil
	case <-timer.C:
		return ErrContention(errLockTimeout)
	case <-ctx.Done():
		return ErrContention(ctx.Err())
	}
}

func (t *memoryTx) releaseLocks() {
	for lock := range t.held {
		<-lock
	}
	t.held = nil
}

// view returns the transaction-local version of a row.
func (t *memoryTx) view(id int64) (domain.Appointment, bool) {
	if a, ok := t.staged[id]; ok {
		return a, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.rows[id]
	return a, ok
}

// propertyRows returns the transaction-local rows of a property.
func (t *memoryTx) propertyRows(propertyID int64) []domain.Appointment {
	t.store.mu.RLock()
	out := make([]domain.Appointment, 0)
	for id, a := range t.store.rows {
		if staged, ok := t.staged[id]; ok {
			a = staged
		}
		if a.PropertyID == propertyID {
			out = append(out, a)
		}
	}
	t.store.mu.RUnlock()
	for _, id := range t.inserted {
		if a := t.staged[id]; a.PropertyID == propertyID {
			out = append(out, a)
		}
	}
	return out
}

func (t *memoryTx) LockProperty(ctx context.Context, propertyID int64) error {
	return t.acquire(ctx, t.store.lockFor(t.store.propertyLocks, propertyID))
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (domain.Appointment, error) {
	if _, ok := t.view(id); !ok {
		return domain.Appointment{}, ErrNotFound()
	}
	if err := t.acquire(ctx, t.store.lockFor(t.store.rowLocks, id)); err != nil {
		return domain.Appointment{}, err
	}
	a, ok := t.view(id)
	if !ok {
		return domain.Appointment{}, ErrNotFound()
	}
	return a.Clone(), nil
}

func (t *memoryTx) HasRecentRequest(_ context.Context, propertyID int64, email string, since time.Time) (bool, error) {
	for _, a := range t.propertyRows(propertyID) {
		if a.Status.IsActive() && strings.EqualFold(a.CustomerEmail, email) && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) NextPriority(_ context.Context, propertyID int64) (int, error) {
	highest := 0
	for _, a := range t.propertyRows(propertyID) {
		if a.Status.IsActive() && a.PriorityNumber > highest {
			highest = a.PriorityNumber
		}
	}
	return highest + 1, nil
}

func (t *memoryTx) SlotTaken(_ context.Context, propertyID int64, slot domain.Slot, excludeID int64) (bool, error) {
	for _, a := range t.propertyRows(propertyID) {
		if a.ID == excludeID {
			continue
		}
		if key, ok := activeSlotKey(a); ok && key.slot == slot {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) Insert(_ context.Context, appt *domain.Appointment) error {
	if appt.PriorityNumber < 1 {
		return fmt.Errorf("failed to create appointment: priority must be positive, got %d", appt.PriorityNumber)
	}
	t.store.mu.Lock()
	t.store.nextID++
	appt.ID = t.store.nextID
	t.store.mu.Unlock()

	appt.UpdatedAt = appt.CreatedAt
	t.staged[appt.ID] = appt.Clone()
	t.inserted = append(t.inserted, appt.ID)
	return nil
}

func (t *memoryTx) Update(_ context.Context, appt *domain.Appointment) error {
	current, ok := t.view(appt.ID)
	if !ok {
		return ErrNotFound()
	}

	oldKey, hadSlot := activeSlotKey(current)
	newKey, hasSlot := activeSlotKey(*appt)

	if hasSlot && (!hadSlot || newKey != oldKey) {
		t.store.mu.Lock()
		if owner, taken := t.store.slots[newKey]; taken && owner != appt.ID {
			t.store.mu.Unlock()
			return ErrSlotConflict().WithOp("update")
		}
		t.store.slots[newKey] = appt.ID
		t.store.mu.Unlock()
		t.reserved = append(t.reserved, newKey)
	}
	if hadSlot && (!hasSlot || newKey != oldKey) {
		t.released = append(t.released, oldKey)
	}

	updated := appt.Clone()
	updated.PriorityNumber = current.PriorityNumber
	updated.CreatedAt = current.CreatedAt
	t.staged[appt.ID] = updated
	return nil
}

func (t *memoryTx) ClosePriorityGap(ctx context.Context, propertyID int64, priority int) (int64, error) {
	var moved int64
	for _, a := range t.propertyRows(propertyID) {
		if !a.Status.IsActive() || a.PriorityNumber <= priority {
			continue
		}
		if err := t.acquire(ctx, t.store.lockFor(t.store.rowLocks, a.ID)); err != nil {
			return 0, err
		}
		latest, _ := t.view(a.ID)
		latest.PriorityNumber--
		t.staged[a.ID] = latest
		moved++
	}
	return moved, nil
}

func (t *memoryTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, key := range t.released {
		if owner, ok := t.store.slots[key]; ok {
			if a, staged := t.staged[owner]; staged {
				if k, active := activeSlotKey(a); active && k == key {
					continue
				}
			}
			delete(t.store.slots, key)
		}
	}
	for id, a := range t.staged {
		t.store.rows[id] = a
	}
}

func (t *memoryTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, key := range t.reserved {
		if owner, ok := t.store.slots[key]; ok {
			if _, staged := t.staged[owner]; staged {
				delete(t.store.slots, key)
			}
		}
	}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memoryTx)(nil)
)
