// Package availability answers which start times a store can still offer
// for a service on a date.
package availability

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/internal/schedule"
	"github.com/jwalitptl/salon-api/pkg/metrics"
)

type Service struct {
	stores   repository.StoreRepository
	services repository.ServiceRepository
	bookings repository.BookingRepository
	resolver *schedule.Resolver
	loc      *time.Location
	now      func() time.Time
	metrics  *metrics.Metrics

	maxAdvanceDays int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithMaxAdvanceDays(days int) Option {
	return func(s *Service) { s.maxAdvanceDays = days }
}

func NewService(
	stores repository.StoreRepository,
	services repository.ServiceRepository,
	hours repository.HoursRepository,
	bookings repository.BookingRepository,
	loc *time.Location,
	opts ...Option,
) *Service {
	s := &Service{
		stores:   stores,
		services: services,
		bookings: bookings,
		resolver: schedule.NewResolver(hours),
		loc:      loc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAvailableSlots returns the free start times, in order. A closed day,
// a past date or a date beyond the booking horizon yields no slots.
func (s *Service) GetAvailableSlots(ctx context.Context, storeID, serviceID uuid.UUID, date model.Date) ([]model.Slot, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.AvailabilityLatency.Observe(time.Since(start).Seconds())
		}
	}()

	plan, err := s.plan(ctx, storeID, serviceID, date)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return []model.Slot{}, nil
	}

	free := schedule.FilterAvailable(plan.upcoming(), plan.existing, plan.minutes)
	slots := make([]model.Slot, 0, len(free))
	for _, c := range free {
		slots = append(slots, model.Slot{Date: date, StartTime: c, Available: true})
	}
	if s.metrics != nil {
		s.metrics.SlotsReturned.Observe(float64(len(slots)))
	}
	return slots, nil
}

// GetDaySchedule returns every candidate start for the day with its
// availability flag. Slots that have already started are marked unavailable.
func (s *Service) GetDaySchedule(ctx context.Context, storeID, serviceID uuid.UUID, date model.Date) ([]model.Slot, error) {
	plan, err := s.plan(ctx, storeID, serviceID, date)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return []model.Slot{}, nil
	}

	slots := schedule.Mark(date, schedule.Candidates(plan.window, plan.minutes), plan.existing, plan.minutes)
	if plan.cutoff != nil {
		for i := range slots {
			if slots[i].StartTime <= *plan.cutoff {
				slots[i].Available = false
			}
		}
	}
	return slots, nil
}

// dayPlan is everything needed to compute one day's slots.
type dayPlan struct {
	window   *model.OperatingWindow
	minutes  int
	existing []schedule.Interval
	// cutoff is the current time of day when the date is today; starts at or
	// before it are no longer bookable.
	cutoff *model.Clock
}

func (p *dayPlan) upcoming() iter.Seq[model.Clock] {
	all := schedule.Candidates(p.window, p.minutes)
	if p.cutoff == nil {
		return all
	}
	cutoff := *p.cutoff
	return func(yield func(model.Clock) bool) {
		for c := range all {
			if c > cutoff && !yield(c) {
				return
			}
		}
	}
}

// plan loads the inputs for date. A nil plan means there is nothing to offer.
func (s *Service) plan(ctx context.Context, storeID, serviceID uuid.UUID, date model.Date) (*dayPlan, error) {
	service, err := s.loadService(ctx, storeID, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	today := model.DateOf(now)
	if date.Before(today) {
		return nil, nil
	}
	if s.maxAdvanceDays > 0 && today.AddDays(s.maxAdvanceDays).Before(date) {
		return nil, nil
	}

	window, err := s.resolver.ResolveWindow(ctx, storeID, date)
	if errors.Is(err, schedule.ErrClosed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	existing, err := s.bookings.ListActiveForDay(ctx, storeID, date)
	if err != nil {
		return nil, err
	}

	plan := &dayPlan{
		window:   window,
		minutes:  service.DurationMinutes,
		existing: schedule.IntervalsOf(existing),
	}
	if date == today {
		cutoff := model.NewClock(now.Hour(), now.Minute())
		plan.cutoff = &cutoff
	}
	return plan, nil
}

func (s *Service) loadService(ctx context.Context, storeID, serviceID uuid.UUID) (*model.Service, error) {
	store, err := s.stores.Get(ctx, storeID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !store.Active) {
		return nil, fmt.Errorf("store: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	service, err := s.services.Get(ctx, serviceID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && service.StoreID != store.ID) {
		return nil, fmt.Errorf("service: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !service.Active {
		return nil, model.ErrServiceInactive
	}
	return service, nil
}
