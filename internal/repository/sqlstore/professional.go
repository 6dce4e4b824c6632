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

const professionalColumns = `id, store_id, name, active, created_at, updated_at`

type professionalRepository struct {
	BaseRepository
}

func NewProfessionalRepository(base BaseRepository) repository.ProfessionalRepository {
	return &professionalRepository{base}
}

func (r *professionalRepository) Create(ctx context.Context, p *model.Professional) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := r.db.Rebind(`INSERT INTO professionals (` + professionalColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.StoreID, p.Name, p.Active, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create professional: %w", err)
	}
	return nil
}

func (r *professionalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Professional, error) {
	return getProfessional(ctx, r.db, id)
}

func getProfessional(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*model.Professional, error) {
	var p model.Professional
	query := q.Rebind(`SELECT ` + professionalColumns + ` FROM professionals WHERE id = ?`)
	if err := get(ctx, q, &p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *professionalRepository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]*model.Professional, error) {
	query := r.db.Rebind(`SELECT ` + professionalColumns + ` FROM professionals WHERE store_id = ? ORDER BY name ASC`)
	list := []*model.Professional{}
	if err := r.db.SelectContext(ctx, &list, query, storeID); err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	return list, nil
}
