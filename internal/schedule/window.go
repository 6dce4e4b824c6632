// Package schedule resolves operating windows and computes bookable slots.
package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/model"
)

// ErrClosed means the store has no operating window on the requested date.
var ErrClosed = errors.New("store closed on this date")

// HoursReader returns the window configured for a weekday, or (nil, nil)
// when there is none.
type HoursReader interface {
	GetWindow(ctx context.Context, storeID uuid.UUID, weekday int) (*model.OperatingWindow, error)
}

type Resolver struct {
	hours HoursReader
}

func NewResolver(hours HoursReader) *Resolver {
	return &Resolver{hours: hours}
}

// ResolveWindow returns the operating window for date, or ErrClosed.
func (r *Resolver) ResolveWindow(ctx context.Context, storeID uuid.UUID, date model.Date) (*model.OperatingWindow, error) {
	return ResolveWith(ctx, r.hours, storeID, date)
}

// ResolveWith resolves against an arbitrary reader, such as one bound to an
// open transaction.
func ResolveWith(ctx context.Context, hours HoursReader, storeID uuid.UUID, date model.Date) (*model.OperatingWindow, error) {
	w, err := hours.GetWindow(ctx, storeID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("failed to load operating hours: %w", err)
	}
	if w == nil {
		return nil, ErrClosed
	}
	return w, nil
}

// Fits reports whether a booking of durationMinutes starting at start is a
// slot the generator would produce for w.
func Fits(w *model.OperatingWindow, start model.Clock, durationMinutes int) bool {
	if w == nil || durationMinutes <= 0 || w.GranularityMinutes <= 0 {
		return false
	}
	if start < w.OpensAt || start.Add(durationMinutes) > w.ClosesAt {
		return false
	}
	return int(start-w.OpensAt)%w.GranularityMinutes == 0
}
