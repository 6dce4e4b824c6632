package schedule

import (
	"iter"

	"github.com/jwalitptl/salon-api/internal/model"
)

// Candidates yields every start time in w, stepping by the window's
// granularity, for which start+durationMinutes does not pass the close.
// Each call returns an independent sequence.
func Candidates(w *model.OperatingWindow, durationMinutes int) iter.Seq[model.Clock] {
	return func(yield func(model.Clock) bool) {
		if w == nil || durationMinutes <= 0 || w.GranularityMinutes <= 0 {
			return
		}
		for t := w.OpensAt; t.Add(durationMinutes) <= w.ClosesAt; t = t.Add(w.GranularityMinutes) {
			if !yield(t) {
				return
			}
		}
	}
}

// Interval is an occupied stretch of a day.
type Interval struct {
	Start   model.Clock
	Minutes int
	Status  model.BookingStatus
}

// Blocks reports whether the interval takes its slot out of availability.
func (i Interval) Blocks() bool {
	return i.Status.Blocks()
}

// IntervalOf converts a stored booking, using its own duration.
func IntervalOf(b *model.Booking) Interval {
	return Interval{Start: b.StartTime, Minutes: b.DurationMinutes, Status: b.Status}
}

// IntervalsOf converts bookings with IntervalOf.
func IntervalsOf(bookings []*model.Booking) []Interval {
	out := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, IntervalOf(b))
	}
	return out
}

// Overlaps reports whether [aStart, aStart+aMin) and [bStart, bStart+bMin)
// intersect. Touching endpoints do not overlap.
func Overlaps(aStart model.Clock, aMin int, bStart model.Clock, bMin int) bool {
	return aStart < bStart.Add(bMin) && bStart < aStart.Add(aMin)
}

// Conflicts reports whether a booking at start for durationMinutes overlaps
// any blocking interval.
func Conflicts(start model.Clock, durationMinutes int, existing []Interval) bool {
	for _, iv := range existing {
		if iv.Blocks() && Overlaps(start, durationMinutes, iv.Start, iv.Minutes) {
			return true
		}
	}
	return false
}

// FilterAvailable keeps the candidates, in order, that do not conflict with
// existing.
func FilterAvailable(candidates iter.Seq[model.Clock], existing []Interval, durationMinutes int) []model.Clock {
	available := make([]model.Clock, 0)
	for c := range candidates {
		if !Conflicts(c, durationMinutes, existing) {
			available = append(available, c)
		}
	}
	return available
}

// Mark returns every candidate with its availability flag set.
func Mark(date model.Date, candidates iter.Seq[model.Clock], existing []Interval, durationMinutes int) []model.Slot {
	slots := make([]model.Slot, 0)
	for c := range candidates {
		slots = append(slots, model.Slot{
			Date:      date,
			StartTime: c,
			Available: !Conflicts(c, durationMinutes, existing),
		})
	}
	return slots
}
