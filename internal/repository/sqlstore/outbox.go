package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/repository"
)

const outboxColumns = `id, event_type, aggregate_id, payload, status, error_message,
	retry_count, retry_at, created_at, processed_at`

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func insertOutboxEvent(ctx context.Context, q sqlx.ExtContext, base *BaseRepository, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now().UTC()

	query := q.Rebind(`
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`)
	_, err := q.ExecContext(ctx, query,
		event.ID, event.EventType, event.AggregateID, base.jsonValue(event.Payload), event.Status, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents returns pending events whose retry time has come, oldest first.
func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := r.db.Rebind(`
		SELECT ` + outboxColumns + `
		FROM outbox_events
		WHERE status = ? AND (retry_at IS NULL OR retry_at <= ?)
		ORDER BY created_at ASC
		LIMIT ?`)

	events := []*model.OutboxEvent{}
	err := r.db.SelectContext(ctx, &events, query, model.OutboxStatusPending, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

// ClaimPendingEvents leases up to limit due events to the caller by moving
// their retry time to until, so concurrent pollers in other processes skip
// them. An event whose claimant dies becomes due again once the lease ends.
// PostgreSQL skips rows another poller is claiming; SQLite runs one writer.
func (r *outboxRepository) ClaimPendingEvents(ctx context.Context, limit int, until time.Time) ([]*model.OutboxEvent, error) {
	lock := ""
	if r.postgres() {
		lock = " FOR UPDATE SKIP LOCKED"
	}
	query := r.db.Rebind(`
		UPDATE outbox_events SET retry_at = ?
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = ? AND (retry_at IS NULL OR retry_at <= ?)
			ORDER BY created_at ASC
			LIMIT ?` + lock + `
		)
		RETURNING ` + outboxColumns)

	events := []*model.OutboxEvent{}
	err := r.db.SelectContext(ctx, &events, query,
		until.UTC(), model.OutboxStatusPending, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`UPDATE outbox_events SET status = ?, processed_at = ?, error_message = NULL WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return expectOne(res)
}

// MarkFailed records a delivery failure. With a retryAt the event stays
// pending until then; without one it is parked as FAILED.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	status := model.OutboxStatusFailed
	if retryAt != nil {
		status = model.OutboxStatusPending
		utc := retryAt.UTC()
		retryAt = &utc
	}
	query := r.db.Rebind(`
		UPDATE outbox_events
		SET status = ?, error_message = ?, retry_at = ?, retry_count = retry_count + 1
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, status, errMsg, retryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return expectOne(res)
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM outbox_events WHERE status = ? AND processed_at < ?`)
	res, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	return res.RowsAffected()
}
