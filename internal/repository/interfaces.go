package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
)

// ErrNotFound is returned by Get-style lookups that match no row.
var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	StoreRepository interface {
		Create(ctx context.Context, store *model.Store) error
		Get(ctx context.Context, id uuid.UUID) (*model.Store, error)
		List(ctx context.Context, filters *model.StoreFilters) ([]*model.Store, error)
		Update(ctx context.Context, store *model.Store) error
		UpdateCancellationPolicy(ctx context.Context, id uuid.UUID, hours int) error
		IsStaff(ctx context.Context, storeID, accountID uuid.UUID) (bool, error)
		AddStaff(ctx context.Context, staff *model.StoreStaff) error
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		Update(ctx context.Context, service *model.Service) error
		ListByStore(ctx context.Context, storeID uuid.UUID, activeOnly bool) ([]*model.Service, error)
	}

	// HoursRepository stores one operating window per (store, weekday).
	HoursRepository interface {
		GetWindow(ctx context.Context, storeID uuid.UUID, weekday int) (*model.OperatingWindow, error)
		List(ctx context.Context, storeID uuid.UUID) ([]*model.OperatingWindow, error)
		Upsert(ctx context.Context, window *model.OperatingWindow) error
		Delete(ctx context.Context, storeID uuid.UUID, weekday int) error
	}

	ProfessionalRepository interface {
		Create(ctx context.Context, professional *model.Professional) error
		Get(ctx context.Context, id uuid.UUID) (*model.Professional, error)
		ListByStore(ctx context.Context, storeID uuid.UUID) ([]*model.Professional, error)
	}

	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		Update(ctx context.Context, account *model.Account) error
		List(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error)
	}

	BookingRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
		ListActiveForDay(ctx context.Context, storeID uuid.UUID, date model.Date) ([]*model.Booking, error)
		// ListClients aggregates the customers who booked at storeID.
		ListClients(ctx context.Context, storeID uuid.UUID, filters *model.ClientFilters) ([]*model.StoreClient, error)
		// WithDayLock runs fn in a transaction holding the (store, date) write lock.
		WithDayLock(ctx context.Context, storeID uuid.UUID, date model.Date, fn func(BookingTx) error) error
		WithTx(ctx context.Context, fn func(BookingTx) error) error
	}

	// BookingTx is the view of the store available inside a booking
	// transaction. Reads made here see the transaction's snapshot.
	BookingTx interface {
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		ListActiveForDay(ctx context.Context, storeID uuid.UUID, date model.Date, exclude *uuid.UUID) ([]*model.Booking, error)
		Insert(ctx context.Context, booking *model.Booking) error
		UpdateSchedule(ctx context.Context, booking *model.Booking) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
		AddOutboxEvent(ctx context.Context, event *model.OutboxEvent) error

		GetStore(ctx context.Context, id uuid.UUID) (*model.Store, error)
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		GetProfessional(ctx context.Context, id uuid.UUID) (*model.Professional, error)
		GetWindow(ctx context.Context, storeID uuid.UUID, weekday int) (*model.OperatingWindow, error)
		IsStaff(ctx context.Context, storeID, accountID uuid.UUID) (bool, error)
	}

	OutboxRepository interface {
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		ClaimPendingEvents(ctx context.Context, limit int, until time.Time) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
