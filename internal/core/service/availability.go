package service

import (
	"context"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// AvailabilityService answers read-only occupancy queries. Booking creation re-checks
// inside its own transaction and does not rely on these answers.
type AvailabilityService struct {
	repo  ports.BookingRepository
	clock ports.Clock
}

func NewAvailabilityService(repo ports.BookingRepository, clock ports.Clock) *AvailabilityService {
	return &AvailabilityService{repo: repo, clock: clock}
}

// CheckAvailability reports which spots on floor are occupied or blocked for [start, end).
func (s *AvailabilityService) CheckAvailability(ctx context.Context, floor int, start, end time.Time) (*domain.FloorOccupancy, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	spots, err := s.repo.FindSpotsByFloor(ctx, floor)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	bookings, err := s.repo.FindFloorBookings(ctx, floor, start, end, now)
	if err != nil {
		return nil, err
	}

	occupancy := domain.ComputeOccupancy(floor, spots, bookings, start, end, now)
	return &occupancy, nil
}

// IsAvailable is the single-spot form of CheckAvailability.
func (s *AvailabilityService) IsAvailable(ctx context.Context, spotID int64, start, end time.Time) (bool, error) {
	if err := validateWindow(start, end); err != nil {
		return false, err
	}

	spot, err := s.repo.FindSpot(ctx, spotID)
	if err != nil {
		return false, err
	}
	now := s.clock.Now()
	bookings, err := s.repo.FindSpotBookings(ctx, spotID, start, end, now)
	if err != nil {
		return false, err
	}
	return domain.SpotIsFree(spot, bookings, start, end, now), nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() {
		return domain.NewMissingRequiredFieldError("start")
	}
	if end.IsZero() {
		return domain.NewMissingRequiredFieldError("end")
	}
	if !end.After(start) {
		return domain.NewInvalidIntervalError(start, end)
	}
	return nil
}
