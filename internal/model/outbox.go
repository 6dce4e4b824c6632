package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingRescheduled   = "booking.rescheduled"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// BookingEvent is the payload of every booking.* outbox event.
type BookingEvent struct {
	BookingID      uuid.UUID     `json:"booking_id"`
	StoreID        uuid.UUID     `json:"store_id"`
	CustomerID     uuid.UUID     `json:"customer_id"`
	ServiceID      uuid.UUID     `json:"service_id"`
	Date           Date          `json:"date"`
	StartTime      Clock         `json:"start_time"`
	Status         BookingStatus `json:"status"`
	PreviousStatus BookingStatus `json:"previous_status,omitempty"`
	PreviousDate   *Date         `json:"previous_date,omitempty"`
	PreviousStart  *Clock        `json:"previous_start,omitempty"`
	ActorID        uuid.UUID     `json:"actor_id"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// NewBookingEvent snapshots b for the outbox.
func NewBookingEvent(b *Booking, actor uuid.UUID, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID,
		StoreID:    b.StoreID,
		CustomerID: b.CustomerID,
		ServiceID:  b.ServiceID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		Status:     b.Status,
		ActorID:    actor,
		OccurredAt: at,
	}
}
