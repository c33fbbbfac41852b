package domain

import (
	"slices"
	"time"
)

// OccupyingStatuses are the statuses that hold a spot.
var OccupyingStatuses = []BookingStatus{StatusPending, StatusActive}

// Occupies reports whether b holds its spot for the query window [qs, qe) as seen at now.
// An active booking past its end time keeps the spot until it is closed, whatever the window.
func (b *Booking) Occupies(qs, qe, now time.Time) bool {
	if !slices.Contains(OccupyingStatuses, b.Status) {
		return false
	}
	if b.StartTime.Before(qe) && b.EndTime.After(qs) {
		return true
	}
	return b.IsOverstaying(now)
}

// IsOverstaying reports whether an active booking has run past its end time.
// At exactly EndTime the interval has just closed and nothing is owed yet.
func (b *Booking) IsOverstaying(now time.Time) bool {
	return b.Status == StatusActive && now.After(b.EndTime)
}

// SpotIsFree applies the occupancy rule to the candidate bookings of one spot.
func SpotIsFree(spot *Spot, bookings []*Booking, qs, qe, now time.Time) bool {
	if spot.IsBlocked {
		return false
	}
	for _, b := range bookings {
		if b.SpotID == spot.ID && b.Occupies(qs, qe, now) {
			return false
		}
	}
	return true
}

// FloorOccupancy is the availability picture of one floor for a window.
type FloorOccupancy struct {
	Floor    int
	Occupied []int64
	Blocked  []int64
}

// ComputeOccupancy derives which spots are taken. Blocked spots are reported separately.
func ComputeOccupancy(floor int, spots []*Spot, bookings []*Booking, qs, qe, now time.Time) FloorOccupancy {
	onFloor := make(map[int64]bool, len(spots))
	out := FloorOccupancy{Floor: floor, Occupied: []int64{}, Blocked: []int64{}}
	for _, s := range spots {
		onFloor[s.ID] = true
		if s.IsBlocked {
			out.Blocked = append(out.Blocked, s.ID)
		}
	}

	seen := make(map[int64]bool)
	for _, b := range bookings {
		if !onFloor[b.SpotID] || seen[b.SpotID] {
			continue
		}
		if b.Occupies(qs, qe, now) {
			seen[b.SpotID] = true
			out.Occupied = append(out.Occupied, b.SpotID)
		}
	}
	slices.Sort(out.Occupied)
	slices.Sort(out.Blocked)
	return out
}
