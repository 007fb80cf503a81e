package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/appointments/transport"
	"estate_portal_backend/internal/events"
	"estate_portal_backend/internal/scheduler"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/logger"
)

type fakeProperties map[int64]*PropertyInfo

func (f fakeProperties) GetProperty(_ context.Context, id int64) (*PropertyInfo, error) {
	return f[id], nil
}

type fakeAgents map[int64]*AgentInfo

func (f fakeAgents) GetAgent(_ context.Context, id int64) (*AgentInfo, error) {
	return f[id], nil
}

type fakeScorer struct {
	score float64
	err   error
}

func (f fakeScorer) Score(context.Context, string, string) (float64, error) {
	return f.score, f.err
}

type recordedReminder struct {
	payload scheduler.ViewingReminderPayload
	runAt   time.Time
}

type fakeReminders struct {
	mu    sync.Mutex
	calls []recordedReminder
}

func (f *fakeReminders) ScheduleViewingReminder(_ context.Context, payload scheduler.ViewingReminderPayload, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedReminder{payload: payload, runAt: runAt})
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc       *Service
	store     *repository.MemoryStore
	bus       *recordingBus
	reminders *fakeReminders
	clock     *testClock
}

var (
	admin  = Actor{UserID: 1, Admin: true}
	agent5 = Actor{UserID: 5, Agent: true}
	agent6 = Actor{UserID: 6, Agent: true}
)

func newHarness(t *testing.T, mutate func(*Deps, *Settings)) *harness {
	t.Helper()
	h := &harness{
		store:     repository.NewMemoryStore(2 * time.Second),
		bus:       &recordingBus{},
		reminders: &fakeReminders{},
		clock:     &testClock{now: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)},
	}
	deps := Deps{
		Store: h.store,
		Properties: fakeProperties{
			7: {ID: 7, Title: "Canal house", Status: "available"},
			8: {ID: 8, Title: "Loft", Status: "available"},
			9: {ID: 9, Title: "Sold villa", Status: "sold"},
		},
		Agents: fakeAgents{
			5: {ID: 5, FullName: "Alex Agent", Email: "alex@estate.test", Role: "agent", Active: true},
			6: {ID: 6, FullName: "Sam Agent", Email: "sam@estate.test", Role: "agent", Active: true},
			7: {ID: 7, FullName: "Former Agent", Email: "old@estate.test", Role: "agent", Active: false},
			1: {ID: 1, FullName: "Admin", Email: "admin@estate.test", Role: "admin", Active: true},
		},
		Reminders: h.reminders,
		EventBus:  h.bus,
		Log:       logger.New("development"),
	}
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&deps, &settings)
	}
	h.svc = New(deps, settings, WithClock(h.clock.Now))
	return h
}

func request(name, email string) transport.CreateAppointmentRequest {
	return transport.CreateAppointmentRequest{
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: "(650) 253-0000",
		Intent:        "buy",
	}
}

func (h *harness) create(t *testing.T, propertyID int64, email string) *transport.CreateAppointmentResponse {
	t.Helper()
	resp, err := h.svc.Create(context.Background(), propertyID, request("Customer", email), "198.51.100.7")
	if err != nil {
		t.Fatalf("Create(%d, %s) error = %v", propertyID, email, err)
	}
	return resp
}

func (h *harness) assign(t *testing.T, id, agentID int64) {
	t.Helper()
	if _, err := h.svc.AssignAgent(context.Background(), admin, id, transport.AssignAgentRequest{AgentID: agentID}); err != nil {
		t.Fatalf("AssignAgent(%d, %d) error = %v", id, agentID, err)
	}
}

func (h *harness) activePriorities(t *testing.T, propertyID int64) []int {
	t.Helper()
	items, err := h.store.List(context.Background(), repository.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var out []int
	for _, a := range items {
		if a.PropertyID == propertyID && a.Status.IsActive() {
			out = append(out, a.PriorityNumber)
		}
	}
	return out
}

func expectCode(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v/%s error, got nil", kind, code)
	}
	if apperr.GetKind(err) != kind {
		t.Fatalf("kind = %v, want %v (err: %v)", apperr.GetKind(err), kind, err)
	}
	if code != "" && apperr.GetCode(err) != code {
		t.Fatalf("code = %q, want %q (err: %v)", apperr.GetCode(err), code, err)
	}
}

func TestViewingLifecycleEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.svc.Create(ctx, 7, request("Jane Doe", "jane@example.com"), "203.0.113.5")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.PriorityNumber != 1 || created.Status != "pending" {
		t.Fatalf("created = %+v", created)
	}

	assigned, err := h.svc.AssignAgent(ctx, admin, created.AppointmentID, transport.AssignAgentRequest{AgentID: 5})
	if err != nil {
		t.Fatalf("AssignAgent() error = %v", err)
	}
	if assigned.Status != "assigned" || assigned.AssignedAgentID == nil || *assigned.AssignedAgentID != 5 || assigned.AssignedAt == nil {
		t.Fatalf("assigned = %+v", assigned)
	}

	slot := transport.ScheduleAppointmentRequest{ScheduledDate: "2025-03-01", ScheduledTime: "10:00"}
	scheduled, err := h.svc.Schedule(ctx, agent5, created.AppointmentID, slot)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if scheduled.Status != "scheduled" || *scheduled.ScheduledDate != "2025-03-01" || *scheduled.ScheduledTime != "10:00" {
		t.Fatalf("scheduled = %+v", scheduled)
	}

	second := h.create(t, 7, "other@example.com")
	h.assign(t, second.AppointmentID, 5)
	_, err = h.svc.Schedule(ctx, agent5, second.AppointmentID, slot)
	expectCode(t, err, apperr.KindConflict, repository.CodeSlotConflict)

	completed, err := h.svc.Complete(ctx, agent5, created.AppointmentID, transport.CompleteAppointmentRequest{Outcome: "offer_made"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completed.Status != "completed" || completed.CompletedAt == nil || *completed.Outcome != "offer_made" {
		t.Fatalf("completed = %+v", completed)
	}
	if *completed.ScheduledDate != "2025-03-01" {
		t.Fatal("completion must retain the slot")
	}

	wantEvents := []string{
		events.NameAppointmentCreated,
		events.NameAppointmentAssigned,
		events.NameAppointmentScheduled,
		events.NameAppointmentCreated,
		events.NameAppointmentAssigned,
		events.NameAppointmentCompleted,
	}
	if got := h.bus.names(); fmt.Sprint(got) != fmt.Sprint(wantEvents) {
		t.Fatalf("events = %v, want %v", got, wantEvents)
	}

	if len(h.reminders.calls) != 1 {
		t.Fatalf("reminders = %d, want 1", len(h.reminders.calls))
	}
	wantRunAt := time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)
	if !h.reminders.calls[0].runAt.Equal(wantRunAt) {
		t.Fatalf("reminder runAt = %s, want %s", h.reminders.calls[0].runAt, wantRunAt)
	}
}

func TestConcurrentCreatesProduceDensePriorities(t *testing.T) {
	h := newHarness(t, nil)
	const n = 25

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Create(context.Background(), 7, request("Customer", fmt.Sprintf("c%d@example.com", i)), "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	priorities := h.activePriorities(t, 7)
	if len(priorities) != n || !domain.IsDenseSequence(priorities) {
		t.Fatalf("priorities = %v, want dense 1..%d", priorities, n)
	}
	if other := h.activePriorities(t, 8); len(other) != 0 {
		t.Fatalf("unexpected appointments on property 8: %v", other)
	}
}

func TestConcurrentSchedulingOfSameSlotHasOneWinner(t *testing.T) {
	h := newHarness(t, nil)
	first := h.create(t, 7, "a@example.com")
	second := h.create(t, 7, "b@example.com")
	h.assign(t, first.AppointmentID, 5)
	h.assign(t, second.AppointmentID, 6)

	slot := transport.ScheduleAppointmentRequest{ScheduledDate: "2025-03-01", ScheduledTime: "10:00"}
	start := make(chan struct{})
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, call := range []struct {
		actor Actor
		id    int64
	}{{agent5, first.AppointmentID}, {agent6, second.AppointmentID}} {
		wg.Add(1)
		go func(i int, actor Actor, id int64) {
			defer wg.Done()
			<-start
			_, results[i] = h.svc.Schedule(context.Background(), actor, id, slot)
		}(i, call.actor, call.id)
	}
	close(start)
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case apperr.HasCode(err, repository.CodeSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d", wins, conflicts)
	}

	// the same slot on a different property is free
	other := h.create(t, 8, "c@example.com")
	h.assign(t, other.AppointmentID, 5)
	if _, err := h.svc.Schedule(context.Background(), agent5, other.AppointmentID, slot); err != nil {
		t.Fatalf("other property: %v", err)
	}
}

func TestCancelRenumbersLaterPriorities(t *testing.T) {
	h := newHarness(t, nil)
	ids := make([]int64, 3)
	for i := range ids {
		ids[i] = h.create(t, 7, fmt.Sprintf("p%d@example.com", i)).AppointmentID
	}

	if _, err := h.svc.Cancel(context.Background(), admin, ids[1], transport.CancelAppointmentRequest{}); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	got := map[int64]int{}
	items, _ := h.store.List(context.Background(), repository.ListFilter{})
	for _, a := range items {
		got[a.ID] = a.PriorityNumber
	}
	if got[ids[0]] != 1 || got[ids[2]] != 2 {
		t.Fatalf("priorities = %v, want first=1 third=2", got)
	}

	next := h.create(t, 7, "late@example.com")
	if next.PriorityNumber != 3 {
		t.Fatalf("next priority = %d, want 3", next.PriorityNumber)
	}
}

func TestConcurrentCancellationsKeepSequenceDense(t *testing.T) {
	h := newHarness(t, nil)
	var ids []int64
	for i := 0; i < 12; i++ {
		ids = append(ids, h.create(t, 7, fmt.Sprintf("x%d@example.com", i)).AppointmentID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		if i%2 == 0 {
			continue
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := h.svc.Cancel(context.Background(), admin, id, transport.CancelAppointmentRequest{}); err != nil {
				t.Errorf("Cancel(%d) error = %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	priorities := h.activePriorities(t, 7)
	if len(priorities) != 6 || !domain.IsDenseSequence(priorities) {
		t.Fatalf("priorities = %v, want dense 1..6", priorities)
	}
}

func TestDuplicateRequestWindow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.create(t, 7, "jane@example.com")

	h.clock.Advance(24 * time.Hour)
	_, err := h.svc.Create(ctx, 7, request("Jane", "JANE@example.com"), "")
	expectCode(t, err, apperr.KindConflict, CodeDuplicateRequest)
	if e, _ := apperr.As(err); e.Message != msgDuplicateRequest {
		t.Fatalf("message = %q", e.Message)
	}

	if _, err := h.svc.Create(ctx, 8, request("Jane", "jane@example.com"), ""); err != nil {
		t.Fatalf("other property must be accepted: %v", err)
	}

	h.clock.Advance(time.Hour)
	if _, err := h.svc.Create(ctx, 7, request("Jane", "jane@example.com"), ""); err != nil {
		t.Fatalf("after 25 hours: %v", err)
	}
}

func TestCancelledRequestDoesNotBlockResubmission(t *testing.T) {
	h := newHarness(t, nil)
	first := h.create(t, 7, "jane@example.com")
	if _, err := h.svc.Cancel(context.Background(), admin, first.AppointmentID, transport.CancelAppointmentRequest{}); err != nil {
		t.Fatal(err)
	}
	again := h.create(t, 7, "jane@example.com")
	if again.PriorityNumber != 1 {
		t.Fatalf("priority = %d, want 1", again.PriorityNumber)
	}
}

func TestPreconditionFailures(t *testing.T) {
	ctx := context.Background()
	future := transport.ScheduleAppointmentRequest{ScheduledDate: "2025-03-01", ScheduledTime: "10:00"}

	cases := []struct {
		name string
		run  func(t *testing.T, h *harness, id int64) error
		kind apperr.Kind
		code string
	}{
		{"complete pending", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.Complete(ctx, admin, id, transport.CompleteAppointmentRequest{Outcome: "interested"})
			return err
		}, apperr.KindInvalidTransition, "invalid_transition"},
		{"schedule pending", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.Schedule(ctx, admin, id, future)
			return err
		}, apperr.KindInvalidTransition, "invalid_transition"},
		{"assign twice", func(t *testing.T, h *harness, id int64) error {
			h.assign(t, id, 5)
			_, err := h.svc.AssignAgent(ctx, admin, id, transport.AssignAgentRequest{AgentID: 6})
			return err
		}, apperr.KindInvalidTransition, "invalid_transition"},
		{"assign unknown agent", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.AssignAgent(ctx, admin, id, transport.AssignAgentRequest{AgentID: 404})
			return err
		}, apperr.KindNotFound, CodeAgentNotFound},
		{"assign admin as agent", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.AssignAgent(ctx, admin, id, transport.AssignAgentRequest{AgentID: 1})
			return err
		}, apperr.KindNotFound, CodeAgentNotFound},
		{"assign inactive agent", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.AssignAgent(ctx, admin, id, transport.AssignAgentRequest{AgentID: 7})
			return err
		}, apperr.KindValidation, CodeAgentInactive},
		{"assign by agent", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.AssignAgent(ctx, agent5, id, transport.AssignAgentRequest{AgentID: 5})
			return err
		}, apperr.KindForbidden, ""},
		{"assign missing appointment", func(t *testing.T, h *harness, _ int64) error {
			_, err := h.svc.AssignAgent(ctx, admin, 999, transport.AssignAgentRequest{AgentID: 5})
			return err
		}, apperr.KindNotFound, ""},
		{"schedule by other agent", func(t *testing.T, h *harness, id int64) error {
			h.assign(t, id, 5)
			_, err := h.svc.Schedule(ctx, agent6, id, future)
			return err
		}, apperr.KindForbidden, CodeNotOwned},
		{"schedule in the past", func(t *testing.T, h *harness, id int64) error {
			h.assign(t, id, 5)
			_, err := h.svc.Schedule(ctx, agent5, id, transport.ScheduleAppointmentRequest{ScheduledDate: "2025-01-31", ScheduledTime: "10:00"})
			return err
		}, apperr.KindValidation, CodeSlotInPast},
		{"complete by other agent", func(t *testing.T, h *harness, id int64) error {
			h.assign(t, id, 5)
			if _, err := h.svc.Schedule(ctx, agent5, id, future); err != nil {
				return err
			}
			_, err := h.svc.Complete(ctx, agent6, id, transport.CompleteAppointmentRequest{Outcome: "no_show"})
			return err
		}, apperr.KindForbidden, CodeNotOwned},
		{"complete without outcome", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.Complete(ctx, admin, id, transport.CompleteAppointmentRequest{})
			return err
		}, apperr.KindValidation, ""},
		{"cancel twice", func(t *testing.T, h *harness, id int64) error {
			if _, err := h.svc.Cancel(ctx, admin, id, transport.CancelAppointmentRequest{}); err != nil {
				return err
			}
			_, err := h.svc.Cancel(ctx, admin, id, transport.CancelAppointmentRequest{})
			return err
		}, apperr.KindInvalidTransition, "invalid_transition"},
		{"cancel completed", func(t *testing.T, h *harness, id int64) error {
			h.assign(t, id, 5)
			if _, err := h.svc.Schedule(ctx, agent5, id, future); err != nil {
				return err
			}
			if _, err := h.svc.Complete(ctx, agent5, id, transport.CompleteAppointmentRequest{Outcome: "interested"}); err != nil {
				return err
			}
			_, err := h.svc.Cancel(ctx, agent5, id, transport.CancelAppointmentRequest{})
			return err
		}, apperr.KindInvalidTransition, "invalid_transition"},
		{"cancel by unassigned agent", func(t *testing.T, h *harness, id int64) error {
			_, err := h.svc.Cancel(ctx, agent5, id, transport.CancelAppointmentRequest{})
			return err
		}, apperr.KindForbidden, CodeNotOwned},
		{"cancel missing appointment", func(t *testing.T, h *harness, _ int64) error {
			_, err := h.svc.Cancel(ctx, admin, 999, transport.CancelAppointmentRequest{})
			return err
		}, apperr.KindNotFound, ""},
		{"stats by agent", func(t *testing.T, h *harness, _ int64) error {
			_, err := h.svc.Stats(ctx, agent5)
			return err
		}, apperr.KindForbidden, ""},
		{"view by other agent", func(t *testing.T, h *harness, id int64) error {
			h.assign(t, id, 5)
			_, err := h.svc.Get(ctx, agent6, id)
			return err
		}, apperr.KindForbidden, CodeNotOwned},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			id := h.create(t, 7, "jane@example.com").AppointmentID
			expectCode(t, tc.run(t, h, id), tc.kind, tc.code)
		})
	}
}

func TestScheduleInThePastReportsServiceClock(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.create(t, 7, "jane@example.com").AppointmentID
	h.assign(t, id, 5)

	_, err := h.svc.Schedule(ctx, agent5, id, transport.ScheduleAppointmentRequest{ScheduledDate: "2025-02-01", ScheduledTime: "09:00"})
	expectCode(t, err, apperr.KindValidation, CodeSlotInPast)

	appErr, _ := apperr.As(err)
	if !strings.Contains(appErr.Message, "2025-02-01 09:00") || !strings.Contains(appErr.Message, "UTC") {
		t.Fatalf("message = %q", appErr.Message)
	}
	details, _ := appErr.Details.(map[string]string)
	if details["now"] != "2025-02-01 09:00" || details["timezone"] != "UTC" {
		t.Fatalf("details = %v", appErr.Details)
	}

	h.clock.Advance(-365 * 24 * time.Hour)
	if _, err := h.svc.Schedule(ctx, agent5, id, transport.ScheduleAppointmentRequest{ScheduledDate: "2025-01-31", ScheduledTime: "10:00"}); err != nil {
		t.Fatalf("schedule once the clock is earlier: %v", err)
	}
}

func TestCreatePreconditions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, 404, request("Jane", "jane@example.com"), "")
	expectCode(t, err, apperr.KindNotFound, CodePropertyNotFound)

	_, err = h.svc.Create(ctx, 9, request("Jane", "jane@example.com"), "")
	expectCode(t, err, apperr.KindConflict, CodePropertyUnavailable)

	bad := request("Jane", "jane@example.com")
	bad.Intent = "lease"
	_, err = h.svc.Create(ctx, 7, bad, "")
	expectCode(t, err, apperr.KindValidation, "")
}

func TestCreateNormalizesCustomerFields(t *testing.T) {
	h := newHarness(t, nil)
	msg := "<b>Hello</b> is there parking?"
	resp, err := h.svc.Create(context.Background(), 7, transport.CreateAppointmentRequest{
		CustomerName:  "  Jane <i>Doe</i> ",
		CustomerEmail: " Jane@Example.COM ",
		CustomerPhone: "(650) 253-0000",
		Intent:        "Invest",
		Message:       &msg,
	}, "203.0.113.5")
	if err != nil {
		t.Fatal(err)
	}

	appt, _ := h.store.GetByID(context.Background(), resp.AppointmentID)
	if appt.CustomerName != "Jane Doe" || appt.CustomerEmail != "jane@example.com" {
		t.Fatalf("name/email = %q/%q", appt.CustomerName, appt.CustomerEmail)
	}
	if appt.CustomerPhone != "+16502530000" {
		t.Fatalf("phone = %q", appt.CustomerPhone)
	}
	if appt.Intent != domain.IntentInvest || appt.Message == nil || *appt.Message != "Hello is there parking?" {
		t.Fatalf("intent/message = %q/%v", appt.Intent, appt.Message)
	}
	if appt.RemoteAddr == nil || *appt.RemoteAddr != "203.0.113.5" {
		t.Fatalf("remote addr = %v", appt.RemoteAddr)
	}
}

func TestSpamScoring(t *testing.T) {
	enable := func(scorer AbuseScorer) func(*Deps, *Settings) {
		return func(d *Deps, s *Settings) {
			d.Scorer = scorer
			s.ScoringEnabled = true
			s.ScoreThreshold = 0.3
		}
	}
	ctx := context.Background()

	h := newHarness(t, enable(fakeScorer{score: 0.1}))
	_, err := h.svc.Create(ctx, 7, request("Bot", "bot@example.com"), "192.0.2.1")
	expectCode(t, err, apperr.KindForbidden, CodeSuspectedSpam)

	h = newHarness(t, enable(fakeScorer{score: 0.9}))
	resp, err := h.svc.Create(ctx, 7, request("Jane", "jane@example.com"), "192.0.2.1")
	if err != nil {
		t.Fatal(err)
	}
	appt, _ := h.store.GetByID(ctx, resp.AppointmentID)
	if appt.SpamScore == nil || *appt.SpamScore != 0.9 {
		t.Fatalf("spam score = %v", appt.SpamScore)
	}

	h = newHarness(t, enable(fakeScorer{err: errors.New("verifier down")}))
	if _, err := h.svc.Create(ctx, 7, request("Jane", "jane@example.com"), ""); err != nil {
		t.Fatalf("scorer outage must not block customers: %v", err)
	}
}

func TestCancellationAppendsReason(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := h.create(t, 7, "jane@example.com").AppointmentID
	h.assign(t, id, 5)

	notes := "Prefers weekends"
	if _, err := h.svc.Schedule(ctx, agent5, id, transport.ScheduleAppointmentRequest{
		ScheduledDate: "2025-03-01", ScheduledTime: "10:00", AgentNotes: &notes,
	}); err != nil {
		t.Fatal(err)
	}

	reason := "Customer bought elsewhere"
	cancelled, err := h.svc.Cancel(ctx, agent5, id, transport.CancelAppointmentRequest{Reason: &reason})
	if err != nil {
		t.Fatal(err)
	}
	want := "Prefers weekends\nCancellation reason: Customer bought elsewhere"
	if cancelled.AgentNotes == nil || *cancelled.AgentNotes != want {
		t.Fatalf("agent notes = %v, want %q", cancelled.AgentNotes, want)
	}
	if cancelled.ScheduledDate == nil || *cancelled.ScheduledDate != "2025-03-01" {
		t.Fatal("cancellation must keep the historical slot")
	}

	// the freed slot can be booked again
	other := h.create(t, 7, "next@example.com").AppointmentID
	h.assign(t, other, 5)
	if _, err := h.svc.Schedule(ctx, agent5, other, transport.ScheduleAppointmentRequest{ScheduledDate: "2025-03-01", ScheduledTime: "10:00"}); err != nil {
		t.Fatalf("rebooking freed slot: %v", err)
	}
}

func TestListingsAndCalendar(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	a := h.create(t, 7, "a@example.com").AppointmentID
	b := h.create(t, 7, "b@example.com").AppointmentID
	c := h.create(t, 8, "c@example.com").AppointmentID
	d := h.create(t, 8, "d@example.com").AppointmentID

	h.assign(t, b, 5)
	h.assign(t, c, 5)
	h.assign(t, d, 6)
	if _, err := h.svc.Schedule(ctx, agent5, c, transport.ScheduleAppointmentRequest{ScheduledDate: "2025-03-02", ScheduledTime: "09:00"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Schedule(ctx, agent6, d, transport.ScheduleAppointmentRequest{ScheduledDate: "2025-03-01", ScheduledTime: "15:00"}); err != nil {
		t.Fatal(err)
	}

	all, err := h.svc.ListAll(ctx, admin, transport.ListAppointmentsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got := idsOf(all.Items); fmt.Sprint(got) != fmt.Sprint([]int64{a, b, c, d}) {
		t.Fatalf("admin order = %v", got)
	}

	page, err := h.svc.ListAll(ctx, admin, transport.ListAppointmentsRequest{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 4 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].ID != d {
		t.Fatalf("page 2 = %+v", page)
	}

	for _, p := range []int{3, math.MaxInt} {
		beyond, err := h.svc.ListAll(ctx, admin, transport.ListAppointmentsRequest{Page: p, PageSize: 3})
		if err != nil {
			t.Fatal(err)
		}
		if beyond.Total != 4 || len(beyond.Items) != 0 {
			t.Fatalf("page %d = %+v", p, beyond)
		}
	}

	mine, err := h.svc.ListMine(ctx, agent5, transport.ListAppointmentsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got := idsOf(mine.Items); fmt.Sprint(got) != fmt.Sprint([]int64{b, c}) {
		t.Fatalf("agent order = %v", got)
	}

	cal, err := h.svc.Calendar(ctx, agent5, transport.CalendarRequest{Month: 3, Year: 2025})
	if err != nil {
		t.Fatal(err)
	}
	if cal.From != "2025-03-01" || cal.To != "2025-03-31" {
		t.Fatalf("range = %s..%s", cal.From, cal.To)
	}
	if got := idsOf(cal.Items); fmt.Sprint(got) != fmt.Sprint([]int64{d, c}) {
		t.Fatalf("calendar order = %v", got)
	}

	narrow, err := h.svc.Calendar(ctx, agent6, transport.CalendarRequest{From: "2025-03-02", To: "2025-03-02"})
	if err != nil {
		t.Fatal(err)
	}
	if len(narrow.Items) != 1 || narrow.Items[0].ID != c {
		t.Fatalf("narrow calendar = %v", idsOf(narrow.Items))
	}

	_, err = h.svc.Calendar(ctx, agent5, transport.CalendarRequest{From: "2025-03-05", To: "2025-03-01"})
	expectCode(t, err, apperr.KindValidation, "")

	stats, err := h.svc.Stats(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 || stats.ByStatus["pending"] != 1 || stats.ByStatus["assigned"] != 1 || stats.ByStatus["scheduled"] != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if _, ok := stats.ByOutcome["offer_made"]; !ok {
		t.Fatal("outcomes must be zero-filled")
	}
}

func idsOf(items []transport.AppointmentResponse) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

type failingStore struct {
	repository.Store
}

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func (failingStore) GetByID(context.Context, int64) (domain.Appointment, error) {
	return domain.Appointment{}, errConnRefused
}

func (failingStore) WithTx(context.Context, func(repository.Tx) error) error {
	return errConnRefused
}

func TestStoreFailureSurfacesUnavailable(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *Settings) {
		d.Store = failingStore{}
	})
	ctx := context.Background()

	_, err := h.svc.Get(ctx, admin, 1)
	expectCode(t, err, apperr.KindUnavailable, "")
	if !errors.Is(err, errConnRefused) {
		t.Fatal("cause must stay wrapped")
	}

	_, err = h.svc.Create(ctx, 7, request("Jane", "jane@example.com"), "")
	expectCode(t, err, apperr.KindUnavailable, "")
}
