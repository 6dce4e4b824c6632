package model

import (
	"github.com/google/uuid"
)

type Store struct {
	Base
	Name                    string  `db:"name" json:"name"`
	City                    string  `db:"city" json:"city"`
	District                string  `db:"district" json:"district"`
	State                   string  `db:"state" json:"state"`
	Address                 string  `db:"address" json:"address"`
	Phone                   *string `db:"phone" json:"phone,omitempty"`
	CancellationPolicyHours int     `db:"cancellation_policy_hours" json:"cancellation_policy_hours"`
	Active                  bool    `db:"active" json:"active"`
}

// OperatingWindow is a store's opening interval for one weekday.
type OperatingWindow struct {
	StoreID            uuid.UUID `db:"store_id" json:"store_id"`
	Weekday            int       `db:"weekday" json:"weekday"`
	OpensAt            Clock     `db:"opens_at" json:"opens_at"`
	ClosesAt           Clock     `db:"closes_at" json:"closes_at"`
	GranularityMinutes int       `db:"granularity_minutes" json:"granularity_minutes"`
}

// Validate rejects malformed or empty windows.
func (w *OperatingWindow) Validate() error {
	if w.Weekday < 0 || w.Weekday > 6 {
		return NewValidationError("weekday", "must be between 0 and 6")
	}
	if !w.OpensAt.Valid() || !w.ClosesAt.Valid() {
		return NewValidationError("opens_at", "must be a time of day")
	}
	if w.OpensAt >= w.ClosesAt {
		return NewValidationError("closes_at", "must be after opens_at")
	}
	if w.GranularityMinutes <= 0 {
		return NewValidationError("granularity_minutes", "must be positive")
	}
	return nil
}

type Professional struct {
	Base
	StoreID uuid.UUID `db:"store_id" json:"store_id"`
	Name    string    `db:"name" json:"name"`
	Active  bool      `db:"active" json:"active"`
}

type StaffRole string

const (
	StaffRoleOwner    StaffRole = "owner"
	StaffRoleEmployee StaffRole = "employee"
)

type StoreStaff struct {
	StoreID   uuid.UUID `db:"store_id" json:"store_id"`
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Role      StaffRole `db:"role" json:"role"`
}

type StoreFilters struct {
	City     string
	District string
	Search   string
	Pagination
}

// StoreDetails is a store together with its bookable catalog.
type StoreDetails struct {
	*Store
	Services []*Service          `json:"services"`
	Hours    []*OperatingWindow `json:"hours"`
}

type CreateStoreRequest struct {
	Name                    string  `json:"name" binding:"required,max=200"`
	City                    string  `json:"city" binding:"required"`
	District                string  `json:"district"`
	State                   string  `json:"state" binding:"omitempty,len=2"`
	Address                 string  `json:"address"`
	Phone                   *string `json:"phone"`
	CancellationPolicyHours int     `json:"cancellation_policy_hours" binding:"min=0"`
}

// UpdateStoreRequest changes the fields that are set.
type UpdateStoreRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	City     *string `json:"city" binding:"omitempty,min=1"`
	District *string `json:"district"`
	State    *string `json:"state" binding:"omitempty,len=2"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
}

// StoreClient is a customer who has booked at a store.
type StoreClient struct {
	AccountID       uuid.UUID `db:"account_id" json:"account_id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	BookingCount    int       `db:"booking_count" json:"booking_count"`
	LastBookingDate Date      `db:"last_booking_date" json:"last_booking_date"`
}

type ClientFilters struct {
	Search string
	Pagination
}

type UpsertHoursRequest struct {
	OpensAt            string `json:"opens_at" binding:"required,hhmm"`
	ClosesAt           string `json:"closes_at" binding:"required,hhmm"`
	GranularityMinutes int    `json:"granularity_minutes" binding:"omitempty,min=1,max=720"`
}

type UpdateCancellationPolicyRequest struct {
	MinHoursBeforeStart *int `json:"min_hours_before_start" binding:"required,min=0"`
}

type CreateProfessionalRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

type AddStaffRequest struct {
	AccountID uuid.UUID `json:"account_id" binding:"required"`
	Role      StaffRole `json:"role" binding:"omitempty,oneof=owner employee"`
}
