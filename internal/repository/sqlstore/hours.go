package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
)

const hoursColumns = `store_id, weekday, opens_at, closes_at, granularity_minutes`

type hoursRepository struct {
	BaseRepository
}

func NewHoursRepository(base BaseRepository) repository.HoursRepository {
	return &hoursRepository{base}
}

func (r *hoursRepository) GetWindow(ctx context.Context, storeID uuid.UUID, weekday int) (*model.OperatingWindow, error) {
	return getWindow(ctx, r.db, storeID, weekday)
}

// getWindow returns nil, nil when the store is closed on weekday.
func getWindow(ctx context.Context, q sqlx.ExtContext, storeID uuid.UUID, weekday int) (*model.OperatingWindow, error) {
	var w model.OperatingWindow
	query := q.Rebind(`SELECT ` + hoursColumns + ` FROM store_hours WHERE store_id = ? AND weekday = ?`)
	err := get(ctx, q, &w, query, storeID, weekday)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operating window: %w", err)
	}
	return &w, nil
}

func (r *hoursRepository) List(ctx context.Context, storeID uuid.UUID) ([]*model.OperatingWindow, error) {
	query := r.db.Rebind(`SELECT ` + hoursColumns + ` FROM store_hours WHERE store_id = ? ORDER BY weekday ASC`)
	windows := []*model.OperatingWindow{}
	if err := r.db.SelectContext(ctx, &windows, query, storeID); err != nil {
		return nil, fmt.Errorf("failed to list operating hours: %w", err)
	}
	return windows, nil
}

func (r *hoursRepository) Upsert(ctx context.Context, w *model.OperatingWindow) error {
	query := r.db.Rebind(`
		INSERT INTO store_hours (` + hoursColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (store_id, weekday) DO UPDATE SET
			opens_at = excluded.opens_at,
			closes_at = excluded.closes_at,
			granularity_minutes = excluded.granularity_minutes`)
	_, err := r.db.ExecContext(ctx, query, w.StoreID, w.Weekday, w.OpensAt, w.ClosesAt, w.GranularityMinutes)
	if err != nil {
		return fmt.Errorf("failed to save operating window: %w", err)
	}
	return nil
}

func (r *hoursRepository) Delete(ctx context.Context, storeID uuid.UUID, weekday int) error {
	query := r.db.Rebind(`DELETE FROM store_hours WHERE store_id = ? AND weekday = ?`)
	res, err := r.db.ExecContext(ctx, query, storeID, weekday)
	if err != nil {
		return fmt.Errorf("failed to delete operating window: %w", err)
	}
	return expectOne(res)
}
