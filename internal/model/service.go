package model

import (
	"github.com/google/uuid"
)

type Service struct {
	Base
	StoreID         uuid.UUID `db:"store_id" json:"store_id"`
	Name            string    `db:"name" json:"name"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	PriceCents      *int64    `db:"price_cents" json:"price_cents,omitempty"`
	Active          bool      `db:"active" json:"active"`
}

type CreateServiceRequest struct {
	Name            string `json:"name" binding:"required,max=200"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=1440"`
	PriceCents      *int64 `json:"price_cents" binding:"omitempty,min=0"`
}

type UpdateServiceRequest struct {
	Name            *string `json:"name" binding:"omitempty,max=200"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
	PriceCents      *int64  `json:"price_cents" binding:"omitempty,min=0"`
	Active          *bool   `json:"active"`
}
