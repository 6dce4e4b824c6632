// Package booking creates, cancels, reschedules and moves bookings through
// their status lifecycle while keeping at most one active booking per slot.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
	"github.com/jwalitptl/salon-api/internal/schedule"
	"github.com/jwalitptl/salon-api/pkg/logger"
	"github.com/jwalitptl/salon-api/pkg/metrics"
)

const maxNotesLength = 1000

type Service struct {
	bookings repository.BookingRepository
	stores   repository.StoreRepository
	loc      *time.Location
	now      func() time.Time
	metrics  *metrics.Metrics
	log      *logger.Logger

	maxAdvanceDays int
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMaxAdvanceDays limits how far ahead a booking may be placed. Zero
// disables the limit.
func WithMaxAdvanceDays(days int) Option {
	return func(s *Service) { s.maxAdvanceDays = days }
}

// NewService builds the booking manager. loc is the timezone store-local
// dates and times are interpreted in.
func NewService(bookings repository.BookingRepository, stores repository.StoreRepository, loc *time.Location, opts ...Option) *Service {
	s := &Service{
		bookings: bookings,
		stores:   stores,
		loc:      loc,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateRequest struct {
	StoreID        uuid.UUID
	ServiceID      uuid.UUID
	ProfessionalID *uuid.UUID
	// CustomerID names the customer when staff books on their behalf.
	CustomerID *uuid.UUID
	Date       model.Date
	StartTime  model.Clock
	Notes      *string
}

func (r CreateRequest) validate() error {
	if r.StoreID == uuid.Nil {
		return model.NewValidationError("store_id", "is required")
	}
	if r.ServiceID == uuid.Nil {
		return model.NewValidationError("service_id", "is required")
	}
	if r.Date.IsZero() {
		return model.NewValidationError("date", "is required")
	}
	if !r.StartTime.Valid() {
		return model.NewValidationError("start_time", "must be a time of day")
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLength {
		return model.NewValidationError("notes", fmt.Sprintf("must be at most %d characters", maxNotesLength))
	}
	return nil
}

// CreateBooking books a slot. Customers get a pending booking; staff of the
// store and admins get a confirmed one for the named customer. The window and
// conflict checks are repeated inside the write transaction.
func (s *Service) CreateBooking(ctx context.Context, p model.Principal, req CreateRequest) (b *model.Booking, err error) {
	defer func() { s.observe("create", err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.checkBookable(req.Date, req.StartTime); err != nil {
		return nil, err
	}

	b = &model.Booking{
		StoreID:        req.StoreID,
		ServiceID:      req.ServiceID,
		ProfessionalID: req.ProfessionalID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		Notes:          req.Notes,
	}

	err = s.bookings.WithDayLock(ctx, req.StoreID, req.Date, func(tx repository.BookingTx) error {
		store, err := tx.GetStore(ctx, req.StoreID)
		if err != nil {
			return notFound("store", err)
		}
		if !store.Active {
			return fmt.Errorf("store: %w", ErrNotFound)
		}

		if err := s.assignCustomer(ctx, tx, p, req, b); err != nil {
			return err
		}

		service, err := tx.GetService(ctx, req.ServiceID)
		if err != nil {
			return notFound("service", err)
		}
		if service.StoreID != store.ID {
			return fmt.Errorf("service: %w", ErrNotFound)
		}
		if !service.Active {
			return ErrServiceInactive
		}
		b.DurationMinutes = service.DurationMinutes

		if req.ProfessionalID != nil {
			pro, err := tx.GetProfessional(ctx, *req.ProfessionalID)
			if err != nil {
				return notFound("professional", err)
			}
			if pro.StoreID != store.ID || !pro.Active {
				return fmt.Errorf("professional: %w", ErrNotFound)
			}
		}

		if err := s.checkSlot(ctx, tx, b, nil); err != nil {
			return err
		}

		if err := tx.Insert(ctx, b); err != nil {
			return err
		}
		return s.emit(ctx, tx, model.EventBookingCreated, model.NewBookingEvent(b, p.AccountID, s.now()))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		"booking_id", b.ID, "store_id", b.StoreID, "date", b.Date.String(),
		"start_time", b.StartTime.String(), "status", b.Status)
	return b, nil
}

// assignCustomer fills in who the booking is for and how it enters the
// lifecycle, based on who is asking.
func (s *Service) assignCustomer(ctx context.Context, tx repository.BookingTx, p model.Principal, req CreateRequest, b *model.Booking) error {
	switch p.Role {
	case model.RoleCustomer:
		if req.CustomerID != nil && *req.CustomerID != p.AccountID {
			return fmt.Errorf("customers book for themselves: %w", ErrForbidden)
		}
		b.CustomerID = p.AccountID
		b.Status = model.BookingStatusPending
		b.Origin = model.BookingOriginApp
		return nil
	case model.RoleStaff, model.RoleAdmin:
		if err := authorizeStaff(ctx, tx.IsStaff, p, req.StoreID); err != nil {
			return err
		}
		if req.CustomerID == nil || *req.CustomerID == uuid.Nil {
			return model.NewValidationError("customer_id", "is required when staff books")
		}
		b.CustomerID = *req.CustomerID
		b.Status = model.BookingStatusConfirmed
		b.Origin = model.BookingOriginStaff
		return nil
	}
	return ErrForbidden
}

// checkBookable rejects starts that are not in the future or are further
// ahead than allowed.
func (s *Service) checkBookable(date model.Date, start model.Clock) error {
	now := s.now().In(s.loc)
	if !date.At(start, s.loc).After(now) {
		return model.NewValidationError("start_time", "must be in the future")
	}
	if s.maxAdvanceDays > 0 && model.DateOf(now).AddDays(s.maxAdvanceDays).Before(date) {
		return model.NewValidationError("date", fmt.Sprintf("must be within %d days", s.maxAdvanceDays))
	}
	return nil
}

// checkSlot verifies that b's date and start form a generated slot and that
// no other active booking overlaps it. exclude leaves b itself out of the
// conflict set when it is being moved.
func (s *Service) checkSlot(ctx context.Context, tx repository.BookingTx, b *model.Booking, exclude *uuid.UUID) error {
	window, err := schedule.ResolveWith(ctx, tx, b.StoreID, b.Date)
	if errors.Is(err, schedule.ErrClosed) {
		return fmt.Errorf("store closed on %s: %w", b.Date, ErrOutsideOperatingWindow)
	}
	if err != nil {
		return err
	}
	if !schedule.Fits(window, b.StartTime, b.DurationMinutes) {
		return fmt.Errorf("%s is not a slot on %s: %w", b.StartTime, b.Date, ErrOutsideOperatingWindow)
	}

	existing, err := tx.ListActiveForDay(ctx, b.StoreID, b.Date, exclude)
	if err != nil {
		return err
	}
	if schedule.Conflicts(b.StartTime, b.DurationMinutes, schedule.IntervalsOf(existing)) {
		return ErrSlotTaken
	}
	return nil
}

// CancelBooking cancels a booking on behalf of the customer who owns it,
// subject to the store's cancellation policy.
func (s *Service) CancelBooking(ctx context.Context, bookingID, actingCustomerID uuid.UUID) (b *model.Booking, err error) {
	defer func() { s.observe("cancel", err) }()

	err = s.bookings.WithTx(ctx, func(tx repository.BookingTx) error {
		cur, err := tx.GetForUpdate(ctx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		if cur.CustomerID != actingCustomerID {
			return ErrNotOwner
		}
		if cur.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		if err := s.checkPolicy(ctx, tx, cur); err != nil {
			return err
		}

		b, err = s.changeStatus(ctx, tx, cur, model.BookingStatusCancelled, actingCustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// checkPolicy enforces the store's minimum notice before b starts.
func (s *Service) checkPolicy(ctx context.Context, tx repository.BookingTx, b *model.Booking) error {
	store, err := tx.GetStore(ctx, b.StoreID)
	if err != nil {
		return notFound("store", err)
	}
	minNotice := time.Duration(store.CancellationPolicyHours) * time.Hour
	if b.StartsAt(s.loc).Sub(s.now()) < minNotice {
		return fmt.Errorf("store requires %dh notice: %w", store.CancellationPolicyHours, ErrTooLateToCancel)
	}
	return nil
}

// CancelByStaff cancels any non-terminal booking of the staff member's store
// without applying the cancellation policy.
func (s *Service) CancelByStaff(ctx context.Context, p model.Principal, bookingID uuid.UUID) (b *model.Booking, err error) {
	defer func() { s.observe("staff_cancel", err) }()

	err = s.bookings.WithTx(ctx, func(tx repository.BookingTx) error {
		cur, err := tx.GetForUpdate(ctx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		if err := authorizeStaff(ctx, tx.IsStaff, p, cur.StoreID); err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return ErrAlreadyTerminal
		}

		b, err = s.changeStatus(ctx, tx, cur, model.BookingStatusCancelled, p.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateStatus moves a booking along its lifecycle:
// pending -> confirmed | cancelled, confirmed -> completed | no_show | cancelled.
func (s *Service) UpdateStatus(ctx context.Context, p model.Principal, bookingID uuid.UUID, status model.BookingStatus) (b *model.Booking, err error) {
	defer func() { s.observe("update_status", err) }()

	if !status.Valid() {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	err = s.bookings.WithTx(ctx, func(tx repository.BookingTx) error {
		cur, err := tx.GetForUpdate(ctx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		if err := authorizeStaff(ctx, tx.IsStaff, p, cur.StoreID); err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		if !model.CanTransition(cur.Status, status) {
			return fmt.Errorf("%s -> %s: %w", cur.Status, status, ErrInvalidTransition)
		}

		b, err = s.changeStatus(ctx, tx, cur, status, p.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) changeStatus(ctx context.Context, tx repository.BookingTx, cur *model.Booking, status model.BookingStatus, actor uuid.UUID) (*model.Booking, error) {
	if err := tx.UpdateStatus(ctx, cur.ID, status); err != nil {
		return nil, err
	}
	previous := cur.Status
	cur.Status = status
	cur.UpdatedAt = s.now().UTC()

	eventType := model.EventBookingStatusChanged
	if status == model.BookingStatusCancelled {
		eventType = model.EventBookingCancelled
	}
	ev := model.NewBookingEvent(cur, actor, s.now())
	ev.PreviousStatus = previous
	if err := s.emit(ctx, tx, eventType, ev); err != nil {
		return nil, err
	}

	s.log.Info("booking status changed",
		"booking_id", cur.ID, "store_id", cur.StoreID, "from", previous, "to", status)
	return cur, nil
}

// RescheduleBooking moves a booking to another date and start time in place,
// keeping its id, status and creation time. Customers may only move their
// own bookings and only while the cancellation policy would let them cancel.
func (s *Service) RescheduleBooking(ctx context.Context, p model.Principal, bookingID uuid.UUID, newDate model.Date, newStart model.Clock) (b *model.Booking, err error) {
	defer func() { s.observe("reschedule", err) }()

	if !newStart.Valid() {
		return nil, model.NewValidationError("start_time", "must be a time of day")
	}

	// The store id is needed to take the day lock before the row is locked.
	pre, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, notFound("booking", err)
	}
	if p.Role == model.RoleCustomer && pre.CustomerID != p.AccountID {
		return nil, ErrNotOwner
	}
	if err := s.checkBookable(newDate, newStart); err != nil {
		return nil, err
	}

	err = s.bookings.WithDayLock(ctx, pre.StoreID, newDate, func(tx repository.BookingTx) error {
		cur, err := tx.GetForUpdate(ctx, bookingID)
		if err != nil {
			return notFound("booking", err)
		}
		switch p.Role {
		case model.RoleCustomer:
			if cur.CustomerID != p.AccountID {
				return ErrNotOwner
			}
		default:
			if err := authorizeStaff(ctx, tx.IsStaff, p, cur.StoreID); err != nil {
				return err
			}
		}
		if cur.Status.Terminal() {
			return ErrAlreadyTerminal
		}
		if p.Role == model.RoleCustomer {
			if err := s.checkPolicy(ctx, tx, cur); err != nil {
				return err
			}
		}
		if cur.Date == newDate && cur.StartTime == newStart {
			b = cur
			return nil
		}

		prevDate, prevStart := cur.Date, cur.StartTime
		moved := *cur
		moved.Date, moved.StartTime = newDate, newStart
		if err := s.checkSlot(ctx, tx, &moved, &moved.ID); err != nil {
			return err
		}
		if err := tx.UpdateSchedule(ctx, &moved); err != nil {
			return err
		}

		ev := model.NewBookingEvent(&moved, p.AccountID, s.now())
		ev.PreviousDate, ev.PreviousStart = &prevDate, &prevStart
		if err := s.emit(ctx, tx, model.EventBookingRescheduled, ev); err != nil {
			return err
		}
		b = &moved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking rescheduled",
		"booking_id", b.ID, "store_id", b.StoreID, "date", b.Date.String(), "start_time", b.StartTime.String())
	return b, nil
}

// Get returns a booking visible to p: its customer, staff of its store, or
// an admin.
func (s *Service) Get(ctx context.Context, p model.Principal, bookingID uuid.UUID) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, notFound("booking", err)
	}
	if p.Role == model.RoleCustomer {
		if b.CustomerID != p.AccountID {
			return nil, ErrNotOwner
		}
		return b, nil
	}
	if err := authorizeStaff(ctx, s.stores.IsStaff, p, b.StoreID); err != nil {
		return nil, err
	}
	return b, nil
}

// ListMine returns the caller's own bookings, optionally by status.
func (s *Service) ListMine(ctx context.Context, p model.Principal, status model.BookingStatus, page model.Pagination) ([]*model.Booking, error) {
	if status != "" && !status.Valid() {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.bookings.List(ctx, &model.BookingFilters{
		CustomerID: p.AccountID,
		Status:     status,
		Pagination: page,
	})
}

// ListAgenda returns one page of a store's bookings for a day, ordered by
// start time, for its staff. A zero limit asks for the largest page.
func (s *Service) ListAgenda(ctx context.Context, p model.Principal, storeID uuid.UUID, date model.Date, status model.BookingStatus, page model.Pagination) ([]*model.Booking, error) {
	if status != "" && !status.Valid() {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	if err := authorizeStaff(ctx, s.stores.IsStaff, p, storeID); err != nil {
		return nil, err
	}
	if page.Limit == 0 {
		page.Limit = model.MaxPageSize
	}
	return s.bookings.List(ctx, &model.BookingFilters{
		StoreID:    storeID,
		Date:       &date,
		Status:     status,
		Pagination: page,
	})
}

// ListClients returns the customers who have booked at a store, with their
// booking count and latest booking date, for its staff.
func (s *Service) ListClients(ctx context.Context, p model.Principal, storeID uuid.UUID, filters *model.ClientFilters) ([]*model.StoreClient, error) {
	if err := authorizeStaff(ctx, s.stores.IsStaff, p, storeID); err != nil {
		return nil, err
	}
	return s.bookings.ListClients(ctx, storeID, filters)
}

type staffChecker func(ctx context.Context, storeID, accountID uuid.UUID) (bool, error)

// authorizeStaff admits admins and staff members of storeID.
func authorizeStaff(ctx context.Context, isStaff staffChecker, p model.Principal, storeID uuid.UUID) error {
	switch p.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStaff:
		ok, err := isStaff(ctx, storeID, p.AccountID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrForbidden
}

func (s *Service) emit(ctx context.Context, tx repository.BookingTx, eventType string, ev model.BookingEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return tx.AddOutboxEvent(ctx, &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: ev.BookingID,
		Payload:     payload,
	})
}

func (s *Service) observe(operation string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case isRejection(err):
		outcome = metrics.OutcomeRejected
		s.log.Debug("booking operation rejected", "operation", operation, "reason", err.Error())
	default:
		outcome = metrics.OutcomeError
		s.log.Error(err, "booking operation failed", "operation", operation)
	}
	if s.metrics == nil {
		return
	}
	s.metrics.BookingOperations.WithLabelValues(operation, outcome).Inc()
	if errors.Is(err, ErrSlotTaken) {
		s.metrics.SlotConflicts.WithLabelValues(operation).Inc()
	}
}
