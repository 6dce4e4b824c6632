package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
)

const serviceColumns = `id, store_id, name, duration_minutes, price_cents, active, created_at, updated_at`

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	now := time.Now().UTC()
	service.CreatedAt, service.UpdatedAt = now, now

	query := r.db.Rebind(`INSERT INTO services (` + serviceColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		service.ID, service.StoreID, service.Name, service.DurationMinutes,
		service.PriceCents, service.Active, service.CreatedAt, service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *serviceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return getService(ctx, r.db, id)
}

func getService(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	query := q.Rebind(`SELECT ` + serviceColumns + ` FROM services WHERE id = ?`)
	if err := get(ctx, q, &service, query, id); err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) Update(ctx context.Context, service *model.Service) error {
	service.UpdatedAt = time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE services
		SET name = ?, duration_minutes = ?, price_cents = ?, active = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		service.Name, service.DurationMinutes, service.PriceCents, service.Active, service.UpdatedAt, service.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return expectOne(res)
}

func (r *serviceRepository) ListByStore(ctx context.Context, storeID uuid.UUID, activeOnly bool) ([]*model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE store_id = ?`
	args := []interface{}{storeID}
	if activeOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name ASC`

	services := []*model.Service{}
	if err := r.db.SelectContext(ctx, &services, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
