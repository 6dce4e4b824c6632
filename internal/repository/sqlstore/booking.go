package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
)

const bookingColumns = `id, store_id, customer_id, service_id, professional_id, booking_date, start_time,
	duration_minutes, status, notes, origin, created_at, updated_at`

const activeStatuses = `('pending', 'confirmed')`

type bookingRepository struct {
	BaseRepository
}

func NewBookingRepository(base BaseRepository) repository.BookingRepository {
	return &bookingRepository{base}
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	query := r.db.Rebind(`SELECT ` + bookingColumns + ` FROM appointments WHERE id = ?`)
	if err := get(ctx, r.db, &b, query, id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filters == nil {
		filters = &model.BookingFilters{}
	}
	if filters.StoreID != uuid.Nil {
		conds = append(conds, "store_id = ?")
		args = append(args, filters.StoreID)
	}
	if filters.CustomerID != uuid.Nil {
		conds = append(conds, "customer_id = ?")
		args = append(args, filters.CustomerID)
	}
	if filters.Date != nil {
		conds = append(conds, "booking_date = ?")
		args = append(args, *filters.Date)
	}
	if filters.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filters.Status)
	}

	query := `SELECT ` + bookingColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	page := filters.Pagination.Normalize()
	query += ` ORDER BY booking_date ASC, start_time ASC LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	bookings := []*model.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListClients(ctx context.Context, storeID uuid.UUID, filters *model.ClientFilters) ([]*model.StoreClient, error) {
	if filters == nil {
		filters = &model.ClientFilters{}
	}
	query := `
		SELECT a.id AS account_id, a.name, a.email, a.phone,
			COUNT(b.id) AS booking_count, MAX(b.booking_date) AS last_booking_date
		FROM appointments b
		JOIN accounts a ON a.id = b.customer_id
		WHERE b.store_id = ?`
	args := []interface{}{storeID}
	if filters.Search != "" {
		query += ` AND (LOWER(a.name) LIKE LOWER(?) OR LOWER(a.email) LIKE LOWER(?) OR a.phone LIKE ?)`
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	page := filters.Pagination.Normalize()
	query += `
		GROUP BY a.id, a.name, a.email, a.phone
		ORDER BY a.name ASC, a.email ASC
		LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	clients := []*model.StoreClient{}
	if err := r.db.SelectContext(ctx, &clients, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list store clients: %w", err)
	}
	return clients, nil
}

func (r *bookingRepository) ListActiveForDay(ctx context.Context, storeID uuid.UUID, date model.Date) ([]*model.Booking, error) {
	return listActiveForDay(ctx, r.db, storeID, date, nil)
}

func listActiveForDay(ctx context.Context, q sqlx.ExtContext, storeID uuid.UUID, date model.Date, exclude *uuid.UUID) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM appointments
		WHERE store_id = ? AND booking_date = ? AND status IN ` + activeStatuses
	args := []interface{}{storeID, date}
	if exclude != nil {
		query += ` AND id <> ?`
		args = append(args, *exclude)
	}
	query += ` ORDER BY start_time ASC`

	bookings := []*model.Booking{}
	if err := sqlx.SelectContext(ctx, q, &bookings, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings for day: %w", err)
	}
	return bookings, nil
}

// WithDayLock serialises writers of one store's day. PostgreSQL takes a
// transaction-scoped advisory lock; SQLite already runs one transaction at a
// time on its single connection.
func (r *bookingRepository) WithDayLock(ctx context.Context, storeID uuid.UUID, date model.Date, fn func(repository.BookingTx) error) error {
	return r.BaseRepository.WithTx(ctx, func(tx *sqlx.Tx) error {
		if r.postgres() {
			key := storeID.String() + "|" + date.String()
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
				return fmt.Errorf("failed to acquire day lock: %w", err)
			}
		}
		return fn(&bookingTx{tx: tx, base: &r.BaseRepository})
	})
}

func (r *bookingRepository) WithTx(ctx context.Context, fn func(repository.BookingTx) error) error {
	return r.BaseRepository.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&bookingTx{tx: tx, base: &r.BaseRepository})
	})
}

type bookingTx struct {
	tx   *sqlx.Tx
	base *BaseRepository
}

func (t *bookingTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM appointments WHERE id = ?`
	if t.base.postgres() {
		query += ` FOR UPDATE`
	}
	var b model.Booking
	if err := get(ctx, t.tx, &b, t.tx.Rebind(query), id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *bookingTx) ListActiveForDay(ctx context.Context, storeID uuid.UUID, date model.Date, exclude *uuid.UUID) ([]*model.Booking, error) {
	return listActiveForDay(ctx, t.tx, storeID, date, exclude)
}

func (t *bookingTx) Insert(ctx context.Context, b *model.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	query := t.tx.Rebind(`INSERT INTO appointments (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := t.tx.ExecContext(ctx, query,
		b.ID, b.StoreID, b.CustomerID, b.ServiceID, b.ProfessionalID, b.Date, b.StartTime,
		b.DurationMinutes, b.Status, b.Notes, b.Origin, b.CreatedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (t *bookingTx) UpdateSchedule(ctx context.Context, b *model.Booking) error {
	b.UpdatedAt = time.Now().UTC()
	query := t.tx.Rebind(`UPDATE appointments SET booking_date = ?, start_time = ?, updated_at = ? WHERE id = ?`)
	res, err := t.tx.ExecContext(ctx, query, b.Date, b.StartTime, b.UpdatedAt, b.ID)
	if isUniqueViolation(err) {
		return model.ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("failed to reschedule booking: %w", err)
	}
	return expectOne(res)
}

func (t *bookingTx) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	query := t.tx.Rebind(`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`)
	res, err := t.tx.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return expectOne(res)
}

func (t *bookingTx) AddOutboxEvent(ctx context.Context, event *model.OutboxEvent) error {
	return insertOutboxEvent(ctx, t.tx, t.base, event)
}

func (t *bookingTx) GetStore(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	return getStore(ctx, t.tx, id)
}

func (t *bookingTx) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return getService(ctx, t.tx, id)
}

func (t *bookingTx) GetProfessional(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	return getProfessional(ctx, t.tx, id)
}

func (t *bookingTx) GetWindow(ctx context.Context, storeID uuid.UUID, weekday int) (*model.OperatingWindow, error) {
	return getWindow(ctx, t.tx, storeID, weekday)
}

func (t *bookingTx) IsStaff(ctx context.Context, storeID, accountID uuid.UUID) (bool, error) {
	return isStaff(ctx, t.tx, storeID, accountID)
}
