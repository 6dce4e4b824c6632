package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted || s == BookingStatusNoShow
}

// Blocks reports whether a booking in status s occupies its slot.
func (s BookingStatus) Blocks() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusNoShow, BookingStatusCancelled},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type BookingOrigin string

const (
	BookingOriginApp   BookingOrigin = "app"
	BookingOriginStaff BookingOrigin = "staff"
)

type Booking struct {
	Base
	StoreID         uuid.UUID     `db:"store_id" json:"store_id"`
	CustomerID      uuid.UUID     `db:"customer_id" json:"customer_id"`
	ServiceID       uuid.UUID     `db:"service_id" json:"service_id"`
	ProfessionalID  *uuid.UUID    `db:"professional_id" json:"professional_id,omitempty"`
	Date            Date          `db:"booking_date" json:"date"`
	StartTime       Clock         `db:"start_time" json:"start_time"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Status          BookingStatus `db:"status" json:"status"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	Origin          BookingOrigin `db:"origin" json:"origin"`
}

// EndTime is the exclusive end of the booking's interval.
func (b *Booking) EndTime() Clock {
	return b.StartTime.Add(b.DurationMinutes)
}

// StartsAt returns the booking start as an instant in loc.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return b.Date.At(b.StartTime, loc)
}

type CreateBookingRequest struct {
	StoreID        uuid.UUID  `json:"store_id" binding:"required"`
	ServiceID      uuid.UUID  `json:"service_id" binding:"required"`
	ProfessionalID *uuid.UUID `json:"professional_id"`
	CustomerID     *uuid.UUID `json:"customer_id"`
	Date           string     `json:"date" binding:"required,isodate"`
	StartTime      string     `json:"start_time" binding:"required,hhmm"`
	Notes          *string    `json:"notes" binding:"omitempty,max=1000"`
}

type RescheduleBookingRequest struct {
	Date      string `json:"date" binding:"required,isodate"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required,oneof=pending confirmed cancelled completed no_show"`
}

type BookingFilters struct {
	StoreID    uuid.UUID
	CustomerID uuid.UUID
	Date       *Date
	Status     BookingStatus
	Pagination
}
