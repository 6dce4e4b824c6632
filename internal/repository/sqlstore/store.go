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

const storeColumns = `id, name, city, district, state, address, phone,
	cancellation_policy_hours, active, created_at, updated_at`

type storeRepository struct {
	BaseRepository
}

func NewStoreRepository(base BaseRepository) repository.StoreRepository {
	return &storeRepository{base}
}

func (r *storeRepository) Create(ctx context.Context, store *model.Store) error {
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}
	now := time.Now().UTC()
	store.CreatedAt, store.UpdatedAt = now, now

	query := r.db.Rebind(`
		INSERT INTO stores (` + storeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		store.ID, store.Name, store.City, store.District, store.State, store.Address, store.Phone,
		store.CancellationPolicyHours, store.Active, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

func (r *storeRepository) Get(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	return getStore(ctx, r.db, id)
}

func getStore(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*model.Store, error) {
	var store model.Store
	query := q.Rebind(`SELECT ` + storeColumns + ` FROM stores WHERE id = ?`)
	if err := get(ctx, q, &store, query, id); err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) List(ctx context.Context, filters *model.StoreFilters) ([]*model.Store, error) {
	var (
		conds = []string{"active = ?"}
		args  = []interface{}{true}
	)
	if filters == nil {
		filters = &model.StoreFilters{}
	}
	if filters.City != "" {
		conds = append(conds, "LOWER(city) = LOWER(?)")
		args = append(args, filters.City)
	}
	if filters.District != "" {
		conds = append(conds, "LOWER(district) = LOWER(?)")
		args = append(args, filters.District)
	}
	if filters.Search != "" {
		conds = append(conds, "(LOWER(name) LIKE LOWER(?) OR LOWER(address) LIKE LOWER(?))")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}

	page := filters.Pagination.Normalize()
	args = append(args, page.Limit, page.Offset)

	query := r.db.Rebind(`SELECT ` + storeColumns + ` FROM stores WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY name ASC LIMIT ? OFFSET ?`)

	stores := []*model.Store{}
	if err := r.db.SelectContext(ctx, &stores, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

func (r *storeRepository) Update(ctx context.Context, store *model.Store) error {
	store.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE stores
		SET name = ?, city = ?, district = ?, state = ?, address = ?, phone = ?, active = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		store.Name, store.City, store.District, store.State, store.Address, store.Phone,
		store.Active, store.UpdatedAt, store.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	return expectOne(res)
}

func (r *storeRepository) UpdateCancellationPolicy(ctx context.Context, id uuid.UUID, hours int) error {
	query := r.db.Rebind(`UPDATE stores SET cancellation_policy_hours = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, hours, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update cancellation policy: %w", err)
	}
	return expectOne(res)
}

func (r *storeRepository) IsStaff(ctx context.Context, storeID, accountID uuid.UUID) (bool, error) {
	return isStaff(ctx, r.db, storeID, accountID)
}

func isStaff(ctx context.Context, q sqlx.ExtContext, storeID, accountID uuid.UUID) (bool, error) {
	var n int
	query := q.Rebind(`SELECT COUNT(*) FROM store_staff WHERE store_id = ? AND account_id = ?`)
	if err := sqlx.GetContext(ctx, q, &n, query, storeID, accountID); err != nil {
		return false, fmt.Errorf("failed to check store membership: %w", err)
	}
	return n > 0, nil
}

func (r *storeRepository) AddStaff(ctx context.Context, staff *model.StoreStaff) error {
	if staff.Role == "" {
		staff.Role = model.StaffRoleEmployee
	}
	query := r.db.Rebind(`
		INSERT INTO store_staff (store_id, account_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (store_id, account_id) DO UPDATE SET role = excluded.role`)
	if _, err := r.db.ExecContext(ctx, query, staff.StoreID, staff.AccountID, staff.Role, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add store staff: %w", err)
	}
	return nil
}
