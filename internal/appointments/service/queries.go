package service

import (
	"context"
	"time"

	"estate_portal_backend/internal/appointments/domain"
	"estate_portal_backend/internal/appointments/repository"
	"estate_portal_backend/internal/appointments/transport"
	"estate_portal_backend/platform/apperr"

	"golang.org/x/sync/errgroup"
)

const maxPageSize = 100

// Get returns one appointment to an admin or its assigned agent.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*transport.AppointmentResponse, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.infraFailure(ctx, "get_appointment", err, "appointment_id", id)
	}
	if err := authorize(opView, actor, &appt); err != nil {
		return nil, err
	}
	resp := transport.FromDomain(appt)
	return &resp, nil
}

// ListAll returns every appointment in admin order: pending, assigned,
// scheduled, then the rest; by priority; newest first.
func (s *Service) ListAll(ctx context.Context, actor Actor, req transport.ListAppointmentsRequest) (*transport.AppointmentListResponse, error) {
	if err := authorize(opListAll, actor, nil); err != nil {
		return nil, err
	}
	filter, err := listFilter(req)
	if err != nil {
		return nil, err
	}

	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.infraFailure(ctx, "list_appointments", err)
	}
	domain.SortForAdmin(items)
	return s.paginate(items, req), nil
}

// ListMine returns the caller's assigned appointments in agent order:
// assigned, scheduled, then the rest; by scheduled date; by priority.
func (s *Service) ListMine(ctx context.Context, actor Actor, req transport.ListAppointmentsRequest) (*transport.AppointmentListResponse, error) {
	if err := authorize(opListMine, actor, nil); err != nil {
		return nil, err
	}
	filter, err := listFilter(req)
	if err != nil {
		return nil, err
	}
	agentID := actor.UserID
	filter.AgentID = &agentID

	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.infraFailure(ctx, "list_my_appointments", err, "agent_id", agentID)
	}
	domain.SortForAgent(items)
	return s.paginate(items, req), nil
}

// Calendar returns scheduled and completed viewings of all agents within a
// date range, a month of a year, or the current month.
func (s *Service) Calendar(ctx context.Context, actor Actor, req transport.CalendarRequest) (*transport.CalendarResponse, error) {
	if err := authorize(opCalendar, actor, nil); err != nil {
		return nil, err
	}
	rng, err := s.calendarRange(req)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Calendar(ctx, rng)
	if err != nil {
		return nil, s.infraFailure(ctx, "calendar", err, "from", rng.From, "to", rng.To)
	}
	domain.SortCalendar(items)

	return &transport.CalendarResponse{
		From:  rng.From,
		To:    rng.To,
		Items: transport.FromDomainList(items),
	}, nil
}

// Stats counts appointments per status and completed appointments per outcome.
func (s *Service) Stats(ctx context.Context, actor Actor) (*transport.StatsResponse, error) {
	if err := authorize(opStats, actor, nil); err != nil {
		return nil, err
	}

	var byStatus []domain.StatusCount
	var byOutcome []domain.OutcomeCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.store.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byOutcome, err = s.store.CountByOutcome(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.infraFailure(ctx, "appointment_stats", err)
	}

	resp := &transport.StatsResponse{
		ByStatus:  make(map[string]int, len(domain.AllStatuses)),
		ByOutcome: make(map[string]int, len(domain.AllOutcomes)),
	}
	for _, st := range domain.AllStatuses {
		resp.ByStatus[string(st)] = 0
	}
	for _, o := range domain.AllOutcomes {
		resp.ByOutcome[string(o)] = 0
	}
	for _, row := range byStatus {
		resp.ByStatus[string(row.Status)] = row.Count
		resp.Total += row.Count
	}
	for _, row := range byOutcome {
		resp.ByOutcome[string(row.Outcome)] = row.Count
	}
	return resp, nil
}

func listFilter(req transport.ListAppointmentsRequest) (repository.ListFilter, error) {
	var filter repository.ListFilter
	if req.Status != "" {
		status := domain.Status(req.Status)
		if !status.IsValid() {
			return filter, apperr.Validation("unknown status filter")
		}
		filter.Status = &status
	}
	return filter, nil
}

func (s *Service) paginate(items []domain.Appointment, req transport.ListAppointmentsRequest) *transport.AppointmentListResponse {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 {
		size = s.settings.DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total := len(items)
	start := total
	if page <= total/size+1 {
		start = (page - 1) * size
	}
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &transport.AppointmentListResponse{
		Items:      transport.FromDomainList(items[start:end]),
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}
}

func (s *Service) calendarRange(req transport.CalendarRequest) (repository.CalendarRange, error) {
	hasRange := req.From != "" || req.To != ""
	hasMonth := req.Month != 0 || req.Year != 0

	switch {
	case hasRange && hasMonth:
		return repository.CalendarRange{}, apperr.Validation("use either from/to or month/year, not both")
	case hasRange:
		from, okFrom := domain.ParseDate(req.From)
		to, okTo := domain.ParseDate(req.To)
		if !okFrom || !okTo {
			return repository.CalendarRange{}, apperr.Validation("from and to must both be YYYY-MM-DD dates")
		}
		if to < from {
			return repository.CalendarRange{}, apperr.Validation("to must not be before from")
		}
		start, _ := time.Parse(domain.DateLayout, from)
		end, _ := time.Parse(domain.DateLayout, to)
		if end.Sub(start) > time.Duration(s.settings.MaxCalendarSpanDays)*24*time.Hour {
			return repository.CalendarRange{}, apperr.Validation("date range is too long")
		}
		return repository.CalendarRange{From: from, To: to}, nil
	case hasMonth:
		if req.Month < 1 || req.Month > 12 || req.Year < 1 {
			return repository.CalendarRange{}, apperr.Validation("month and year must both be set")
		}
		return monthRange(req.Year, time.Month(req.Month)), nil
	default:
		now := s.clock().In(s.settings.Location)
		return monthRange(now.Year(), now.Month()), nil
	}
}

func monthRange(year int, month time.Month) repository.CalendarRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return repository.CalendarRange{
		From: first.Format(domain.DateLayout),
		To:   last.Format(domain.DateLayout),
	}
}
