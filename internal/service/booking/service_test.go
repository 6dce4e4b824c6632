package booking

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/schedule"
	"github.com/jwalitptl/salon-api/internal/testutil"
	"github.com/jwalitptl/salon-api/pkg/metrics"
)

var (
	// Sunday morning; bookings go on the following Monday.
	now      = time.Date(2030, time.March, 10, 8, 0, 0, 0, time.UTC)
	tomorrow = model.NewDate(2030, time.March, 11)
)

type env struct {
	f        *testutil.Fixture
	svc      *Service
	metrics  *metrics.Metrics
	store    *model.Store
	service  *model.Service
	customer *model.Account
	staff    *model.Account
}

func newEnv(t *testing.T) *env {
	t.Helper()

	f := testutil.NewFixture(t)
	store := f.Store(t, 24)
	f.OpenAllWeek(t, store.ID, "09:00", "18:00", 30)

	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	return &env{
		f:        f,
		svc:      NewService(f.Bookings, f.Stores, time.UTC, WithClock(func() time.Time { return now }), WithMetrics(m)),
		metrics:  m,
		store:    store,
		service:  f.Service(t, store.ID, 30, true),
		customer: f.Account(t, model.RoleCustomer),
		staff:    f.Staff(t, store.ID),
	}
}

func principal(a *model.Account) model.Principal {
	return model.Principal{AccountID: a.ID, Role: a.Role, Email: a.Email}
}

func at(s string) model.Clock {
	c, err := model.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (e *env) request(start string) CreateRequest {
	return CreateRequest{
		StoreID:   e.store.ID,
		ServiceID: e.service.ID,
		Date:      tomorrow,
		StartTime: at(start),
	}
}

func (e *env) book(t *testing.T, start string) *model.Booking {
	t.Helper()
	b, err := e.svc.CreateBooking(context.Background(), principal(e.customer), e.request(start))
	require.NoError(t, err)
	return b
}

func TestCreateBookingByCustomer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	b := e.book(t, "10:00")
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, model.BookingOriginApp, b.Origin)
	assert.Equal(t, e.customer.ID, b.CustomerID)
	assert.Equal(t, 30, b.DurationMinutes)

	stored, err := e.f.Bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, at("10:00"), stored.StartTime)
	assert.Equal(t, tomorrow, stored.Date)

	events, err := e.f.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventBookingCreated, events[0].EventType)
	assert.Equal(t, b.ID, events[0].AggregateID)

	var payload model.BookingEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, b.ID, payload.BookingID)
	assert.Equal(t, at("10:00"), payload.StartTime)

	assert.Equal(t, 1.0, promtest.ToFloat64(e.metrics.BookingOperations.WithLabelValues("create", metrics.OutcomeSuccess)))
}

func TestCreateBookingByStaff(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := e.request("11:00")
	_, err := e.svc.CreateBooking(ctx, principal(e.staff), req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	req.CustomerID = &e.customer.ID
	b, err := e.svc.CreateBooking(ctx, principal(e.staff), req)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.Equal(t, model.BookingOriginStaff, b.Origin)
	assert.Equal(t, e.customer.ID, b.CustomerID)

	// staff of another store
	outsider := e.f.Staff(t, e.f.Store(t, 0).ID)
	req.StartTime = at("12:00")
	_, err = e.svc.CreateBooking(ctx, principal(outsider), req)
	assert.ErrorIs(t, err, ErrForbidden)

	// customers cannot book for someone else
	other := e.f.Account(t, model.RoleCustomer)
	req.CustomerID = &other.ID
	_, err = e.svc.CreateBooking(ctx, principal(e.customer), req)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateBookingRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customer := principal(e.customer)

	inactive := e.f.Service(t, e.store.ID, 30, false)
	long := e.f.Service(t, e.store.ID, 120, true)
	foreign := e.f.Service(t, e.f.Store(t, 0).ID, 30, true)

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"inactive service", func(r *CreateRequest) { r.ServiceID = inactive.ID }, ErrServiceInactive},
		{"unknown service", func(r *CreateRequest) { r.ServiceID = uuid.New() }, ErrNotFound},
		{"service of another store", func(r *CreateRequest) { r.ServiceID = foreign.ID }, ErrNotFound},
		{"unknown store", func(r *CreateRequest) { r.StoreID = uuid.New() }, ErrNotFound},
		{"before opening", func(r *CreateRequest) { r.StartTime = at("08:30") }, ErrOutsideOperatingWindow},
		{"off the slot grid", func(r *CreateRequest) { r.StartTime = at("09:15") }, ErrOutsideOperatingWindow},
		{"runs past closing", func(r *CreateRequest) { r.ServiceID = long.ID; r.StartTime = at("17:00") }, ErrOutsideOperatingWindow},
		{"in the past", func(r *CreateRequest) { r.Date = model.NewDate(2030, time.March, 9) }, ErrInvalidInput},
		{"missing service", func(r *CreateRequest) { r.ServiceID = uuid.Nil }, ErrInvalidInput},
		{"unknown professional", func(r *CreateRequest) { id := uuid.New(); r.ProfessionalID = &id }, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := e.request("10:00")
			tt.mutate(&req)
			_, err := e.svc.CreateBooking(ctx, customer, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// the last hour of a 120 minute service still fits
	req := e.request("16:00")
	req.ServiceID = long.ID
	_, err := e.svc.CreateBooking(ctx, customer, req)
	assert.NoError(t, err)
}

func TestCreateBookingClosedDay(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.f.Hours.Delete(context.Background(), e.store.ID, tomorrow.Weekday()))

	_, err := e.svc.CreateBooking(context.Background(), principal(e.customer), e.request("10:00"))
	assert.ErrorIs(t, err, ErrOutsideOperatingWindow)
}

func TestCreateBookingOverlapUsesEachDuration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	long := e.f.Service(t, e.store.ID, 90, true)

	req := e.request("10:00")
	req.ServiceID = long.ID
	_, err := e.svc.CreateBooking(ctx, principal(e.customer), req)
	require.NoError(t, err)

	for _, start := range []string{"10:00", "10:30", "11:00"} {
		_, err := e.svc.CreateBooking(ctx, principal(e.customer), e.request(start))
		assert.ErrorIs(t, err, ErrSlotTaken, start)
	}
	// adjacent on both sides
	e.book(t, "09:30")
	e.book(t, "11:30")

	assert.Equal(t, 3.0, promtest.ToFloat64(e.metrics.SlotConflicts.WithLabelValues("create")))
}

func TestConcurrentCreateSameSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const attempts = 8
	customers := make([]*model.Account, attempts)
	for i := range customers {
		customers[i] = e.f.Account(t, model.RoleCustomer)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []*model.Booking
		errs    []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(p model.Principal) {
			defer wg.Done()
			<-start
			b, err := e.svc.CreateBooking(ctx, p, e.request("14:00"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			created = append(created, b)
		}(principal(customers[i]))
	}
	close(start)
	wg.Wait()

	require.Len(t, created, 1)
	require.Len(t, errs, attempts-1)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSlotTaken)
	}

	active, err := e.f.Bookings.ListActiveForDay(ctx, e.store.ID, tomorrow)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestActiveBookingsNeverOverlap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	services := []*model.Service{
		e.service,
		e.f.Service(t, e.store.ID, 45, true),
		e.f.Service(t, e.store.ID, 60, true),
		e.f.Service(t, e.store.ID, 90, true),
	}

	for i := 0; i < 60; i++ {
		req := e.request("09:00")
		req.ServiceID = services[rng.Intn(len(services))].ID
		req.StartTime = at("09:00").Add(30 * rng.Intn(18))
		_, err := e.svc.CreateBooking(ctx, principal(e.customer), req)
		if err != nil {
			require.True(t, isRejection(err), "unexpected error %v", err)
		}
	}

	active, err := e.f.Bookings.ListActiveForDay(ctx, e.store.ID, tomorrow)
	require.NoError(t, err)
	require.NotEmpty(t, active)
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			assert.False(t, schedule.Overlaps(a.StartTime, a.DurationMinutes, b.StartTime, b.DurationMinutes),
				"%s and %s overlap", a.StartTime, b.StartTime)
		}
	}
}

func TestCancelBookingPolicy(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	store := f.Store(t, 24)
	service := f.Service(t, store.ID, 30, true)
	customer := f.Account(t, model.RoleCustomer)

	seed := func() *model.Booking {
		return f.Booking(t, &model.Booking{
			StoreID: store.ID, CustomerID: customer.ID, ServiceID: service.ID,
			Date: model.NewDate(2024, time.December, 10), StartTime: at("10:00"), DurationMinutes: 30,
			Status: model.BookingStatusConfirmed,
		})
	}
	svcAt := func(t time.Time) *Service {
		return NewService(f.Bookings, f.Stores, time.UTC, WithClock(func() time.Time { return t }))
	}

	// 25 hours before the start
	b := seed()
	cancelled, err := svcAt(time.Date(2024, time.December, 9, 9, 0, 0, 0, time.UTC)).CancelBooking(ctx, b.ID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	// 22 hours before the start
	b = seed()
	_, err = svcAt(time.Date(2024, time.December, 9, 12, 0, 0, 0, time.UTC)).CancelBooking(ctx, b.ID, customer.ID)
	assert.ErrorIs(t, err, ErrTooLateToCancel)

	got, err := f.Bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, got.Status)
}

func TestCancelBookingRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, "10:00")

	_, err := e.svc.CancelBooking(ctx, uuid.New(), e.customer.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.CancelBooking(ctx, b.ID, e.f.Account(t, model.RoleCustomer).ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	// tomorrow 10:00 is 26h away, policy is 24h
	_, err = e.svc.CancelBooking(ctx, b.ID, e.customer.ID)
	require.NoError(t, err)
	_, err = e.svc.CancelBooking(ctx, b.ID, e.customer.ID)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	// the slot is free again
	e.book(t, "10:00")

	events, err := e.f.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	var types []string
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	assert.ElementsMatch(t, []string{model.EventBookingCreated, model.EventBookingCancelled, model.EventBookingCreated}, types)
}

func TestCancelByStaffBypassesPolicy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.f.Stores.UpdateCancellationPolicy(ctx, e.store.ID, 72))
	b := e.book(t, "10:00")

	_, err := e.svc.CancelBooking(ctx, b.ID, e.customer.ID)
	assert.ErrorIs(t, err, ErrTooLateToCancel)

	_, err = e.svc.CancelByStaff(ctx, principal(e.customer), b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := e.svc.CancelByStaff(ctx, principal(e.staff), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
}

func TestUpdateStatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	staff := principal(e.staff)
	b := e.book(t, "10:00")

	_, err := e.svc.UpdateStatus(ctx, staff, b.ID, model.BookingStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.UpdateStatus(ctx, principal(e.customer), b.ID, model.BookingStatusConfirmed)
	assert.ErrorIs(t, err, ErrForbidden)

	confirmed, err := e.svc.UpdateStatus(ctx, staff, b.ID, model.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

	_, err = e.svc.UpdateStatus(ctx, staff, b.ID, model.BookingStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := e.svc.UpdateStatus(ctx, staff, b.ID, model.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, completed.Status)

	for _, next := range []model.BookingStatus{model.BookingStatusCancelled, model.BookingStatusNoShow, model.BookingStatusConfirmed} {
		_, err = e.svc.UpdateStatus(ctx, staff, b.ID, next)
		assert.ErrorIs(t, err, ErrAlreadyTerminal, next)
	}

	_, err = e.svc.UpdateStatus(ctx, staff, b.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidInput)

	admin := principal(e.f.Account(t, model.RoleAdmin))
	other := e.book(t, "11:00")
	noShow, err := e.svc.UpdateStatus(ctx, admin, other.ID, model.BookingStatusConfirmed)
	require.NoError(t, err)
	noShow, err = e.svc.UpdateStatus(ctx, admin, noShow.ID, model.BookingStatusNoShow)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusNoShow, noShow.Status)
}

func TestRescheduleToTakenSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := e.request("10:00")
	req.CustomerID = &e.customer.ID
	_, err := e.svc.CreateBooking(ctx, principal(e.staff), req)
	require.NoError(t, err)
	mine := e.book(t, "11:00")

	_, err = e.svc.RescheduleBooking(ctx, principal(e.customer), mine.ID, tomorrow, at("10:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	got, err := e.f.Bookings.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, at("11:00"), got.StartTime)
	assert.Equal(t, tomorrow, got.Date)
}

func TestRescheduleInPlace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	long := e.f.Service(t, e.store.ID, 60, true)

	req := e.request("10:00")
	req.ServiceID = long.ID
	b, err := e.svc.CreateBooking(ctx, principal(e.customer), req)
	require.NoError(t, err)

	// overlaps its own old interval only
	moved, err := e.svc.RescheduleBooking(ctx, principal(e.customer), b.ID, tomorrow, at("10:30"))
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.Equal(t, model.BookingStatusPending, moved.Status)
	assert.Equal(t, at("10:30"), moved.StartTime)

	got, err := e.f.Bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, at("10:30"), got.StartTime)
	assert.WithinDuration(t, b.CreatedAt, got.CreatedAt, time.Second)

	// the old start is free, the new one is not
	e.book(t, "10:00")
	_, err = e.svc.CreateBooking(ctx, principal(e.customer), e.request("11:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// to another day, by staff
	nextWeek := tomorrow.AddDays(7)
	moved, err = e.svc.RescheduleBooking(ctx, principal(e.staff), b.ID, nextWeek, at("15:00"))
	require.NoError(t, err)
	assert.Equal(t, nextWeek, moved.Date)

	events, err := e.f.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	var previous []model.Clock
	for _, ev := range events {
		if ev.EventType != model.EventBookingRescheduled {
			continue
		}
		var payload model.BookingEvent
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		require.NotNil(t, payload.PreviousStart)
		previous = append(previous, *payload.PreviousStart)
	}
	assert.ElementsMatch(t, []model.Clock{at("10:00"), at("10:30")}, previous)
}

func TestRescheduleRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, "10:00")

	_, err := e.svc.RescheduleBooking(ctx, principal(e.customer), uuid.New(), tomorrow, at("11:00"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.RescheduleBooking(ctx, principal(e.f.Account(t, model.RoleCustomer)), b.ID, tomorrow, at("11:00"))
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = e.svc.RescheduleBooking(ctx, principal(e.customer), b.ID, tomorrow, at("18:00"))
	assert.ErrorIs(t, err, ErrOutsideOperatingWindow)

	_, err = e.svc.RescheduleBooking(ctx, principal(e.customer), b.ID, model.NewDate(2030, time.March, 1), at("10:00"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.svc.CancelByStaff(ctx, principal(e.staff), b.ID)
	require.NoError(t, err)
	_, err = e.svc.RescheduleBooking(ctx, principal(e.customer), b.ID, tomorrow, at("11:00"))
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestGetAndListVisibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, "10:00")

	got, err := e.svc.Get(ctx, principal(e.customer), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = e.svc.Get(ctx, principal(e.staff), b.ID)
	assert.NoError(t, err)

	_, err = e.svc.Get(ctx, principal(e.f.Account(t, model.RoleCustomer)), b.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	mine, err := e.svc.ListMine(ctx, principal(e.customer), "", model.Pagination{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	agenda, err := e.svc.ListAgenda(ctx, principal(e.staff), e.store.ID, tomorrow, model.BookingStatusPending, model.Pagination{})
	require.NoError(t, err)
	assert.Len(t, agenda, 1)

	_, err = e.svc.ListAgenda(ctx, principal(e.customer), e.store.ID, tomorrow, "", model.Pagination{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListAgendaPages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	staff := principal(e.staff)

	// More bookings than the default page size.
	starts := make([]model.Clock, 0, model.DefaultPageSize+5)
	for i := 0; i < model.DefaultPageSize+5; i++ {
		b := e.f.Booking(t, &model.Booking{
			StoreID:         e.store.ID,
			ServiceID:       e.service.ID,
			CustomerID:      e.customer.ID,
			Date:            tomorrow,
			StartTime:       model.NewClock(0, i*5),
			DurationMinutes: 5,
			Status:          model.BookingStatusConfirmed,
		})
		starts = append(starts, b.StartTime)
	}

	all, err := e.svc.ListAgenda(ctx, staff, e.store.ID, tomorrow, "", model.Pagination{})
	require.NoError(t, err)
	require.Len(t, all, len(starts))
	for i, b := range all {
		assert.Equal(t, starts[i], b.StartTime)
	}

	first, err := e.svc.ListAgenda(ctx, staff, e.store.ID, tomorrow, "", model.Pagination{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, first, 20)

	last, err := e.svc.ListAgenda(ctx, staff, e.store.ID, tomorrow, "", model.Pagination{Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.Len(t, last, len(starts)-40)
	assert.Equal(t, starts[40], last[0].StartTime)
}

func TestListClients(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := e.f.Account(t, model.RoleCustomer)

	e.book(t, "10:00")
	e.book(t, "11:00")
	_, err := e.svc.CreateBooking(ctx, principal(other), e.request("12:00"))
	require.NoError(t, err)

	// A booking at another store is not listed.
	elsewhere := e.f.Store(t, 24)
	e.f.Booking(t, &model.Booking{
		StoreID:         elsewhere.ID,
		ServiceID:       e.f.Service(t, elsewhere.ID, 30, true).ID,
		CustomerID:      other.ID,
		Date:            tomorrow.AddDays(1),
		StartTime:       at("09:00"),
		DurationMinutes: 30,
		Status:          model.BookingStatusConfirmed,
	})

	clients, err := e.svc.ListClients(ctx, principal(e.staff), e.store.ID, nil)
	require.NoError(t, err)
	require.Len(t, clients, 2)

	counts := map[uuid.UUID]int{}
	for _, c := range clients {
		counts[c.AccountID] = c.BookingCount
		assert.Equal(t, tomorrow, c.LastBookingDate)
	}
	assert.Equal(t, 2, counts[e.customer.ID])
	assert.Equal(t, 1, counts[other.ID])

	found, err := e.svc.ListClients(ctx, principal(e.staff), e.store.ID, &model.ClientFilters{Search: other.Email})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, other.ID, found[0].AccountID)

	_, err = e.svc.ListClients(ctx, principal(e.customer), e.store.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBookingKeepsDurationAfterServiceEdit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	b := e.book(t, "10:00")

	e.service.DurationMinutes = 90
	require.NoError(t, e.f.Services.Update(ctx, e.service))

	stored, err := e.f.Bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, stored.DurationMinutes)

	// the old booking still ends at 10:30
	after := e.book(t, "10:30")
	assert.Equal(t, 90, after.DurationMinutes)

	moved, err := e.svc.RescheduleBooking(ctx, principal(e.customer), b.ID, tomorrow, at("14:00"))
	require.NoError(t, err)
	assert.Equal(t, 30, moved.DurationMinutes)

	// a 90 minute snapshot would run to 15:30
	e.book(t, "14:30")
	_, err = e.svc.CreateBooking(ctx, principal(e.customer), e.request("13:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)
}
