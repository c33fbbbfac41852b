package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// BookingSweeper is the part of the booking service the sweep drives.
type BookingSweeper interface {
	ExpireStale(ctx context.Context, bookingID int64, cutoff time.Time) (bool, error)
	SendDueNotice(ctx context.Context, b *domain.Booking, reminderLead, overstayEvery time.Duration) (domain.NoticeKind, bool, error)
}

// PaymentPoller asks the gateway about a booking's latest payment attempt.
type PaymentPoller interface {
	PollPaymentStatus(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.ApplyResult, error)
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Expired   int
	Recovered int
	Notices   int
	Failures  int
	Skipped   bool
}

// Sweeper is the reconciliation scheduler: it expires unpaid bookings past the grace window
// and sends time-based notices for active ones. It never changes an active booking's status.
type Sweeper struct {
	repo     ports.BookingRepository
	bookings BookingSweeper
	payments PaymentPoller
	lease    ports.SweepLease
	clock    ports.Clock
	cfg      config.WorkerConfig
	logger   *slog.Logger

	running atomic.Bool
}

// NewSweeper wires a sweeper. lease may be nil for single-instance deployments.
func NewSweeper(
	repo ports.BookingRepository,
	bookings BookingSweeper,
	payments PaymentPoller,
	lease ports.SweepLease,
	clock ports.Clock,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		repo:     repo,
		bookings: bookings,
		payments: payments,
		lease:    lease,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("starting reconciliation sweeper",
		"interval", s.cfg.Interval,
		"batch_size", s.cfg.BatchSize,
		"pending_grace", s.cfg.PendingGrace,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping reconciliation sweeper")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep. A sweep that would overlap a running one, here or on
// another instance holding the lease, is skipped.
func (s *Sweeper) RunOnce(ctx context.Context) SweepStats {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous sweep still running, skipping tick")
		return SweepStats{Skipped: true}
	}
	defer s.running.Store(false)

	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, s.cfg.LeaseTTL)
		if err != nil {
			s.logger.Error("failed to acquire sweep lease, skipping tick", "error", err)
			return SweepStats{Skipped: true}
		}
		if !ok {
			return SweepStats{Skipped: true}
		}
		defer func() {
			if err := s.lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release sweep lease", "error", err)
			}
		}()
	}

	var stats SweepStats
	s.expireStalePending(ctx, &stats)
	s.sendDueNotices(ctx, &stats)

	if stats.Expired+stats.Recovered+stats.Notices+stats.Failures > 0 {
		s.logger.Info("sweep finished",
			"expired", stats.Expired,
			"recovered", stats.Recovered,
			"notices", stats.Notices,
			"failures", stats.Failures,
		)
	}
	return stats
}

func (s *Sweeper) expireStalePending(ctx context.Context, stats *SweepStats) {
	cutoff := s.clock.Now().Add(-s.cfg.PendingGrace)
	stale, err := s.repo.FindStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("failed to fetch stale pending bookings", "error", err)
		stats.Failures++
		return
	}

	for _, b := range stale {
		if ctx.Err() != nil {
			return
		}
		if s.recoverPayment(ctx, b) {
			stats.Recovered++
			continue
		}

		expired, err := s.bookings.ExpireStale(ctx, b.ID, cutoff)
		if err != nil {
			s.logger.Error("failed to expire booking", "booking_id", b.ID, "error", err)
			stats.Failures++
			continue
		}
		if expired {
			s.logger.Info("expired unpaid booking", "booking_id", b.ID, "spot_id", b.SpotID)
			stats.Expired++
		}
	}
}

// recoverPayment asks the gateway once before expiring a booking with an open attempt,
// so a payment whose callback was lost still confirms the booking.
func (s *Sweeper) recoverPayment(ctx context.Context, b *domain.Booking) bool {
	if b.LatestOrderID == nil || b.PaymentStatus != domain.PaymentPending || s.payments == nil {
		return false
	}

	res, err := s.payments.PollPaymentStatus(ctx, domain.SystemPrincipal, b.ID)
	if err != nil {
		s.logger.Warn("payment enquiry before expiry failed, expiring anyway",
			"booking_id", b.ID,
			"order_id", *b.LatestOrderID,
			"error", err,
		)
		return false
	}
	if res.Status == domain.StatusActive {
		s.logger.Info("recovered payment for stale booking", "booking_id", b.ID, "order_id", *b.LatestOrderID)
		return true
	}
	return false
}

func (s *Sweeper) sendDueNotices(ctx context.Context, stats *SweepStats) {
	active, err := s.repo.FindNoticeDue(ctx, s.clock.Now(), s.cfg.ReminderLead, s.cfg.OverstayEvery, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("failed to fetch bookings with notices due", "error", err)
		stats.Failures++
		return
	}

	for _, b := range active {
		if ctx.Err() != nil {
			return
		}
		kind, sent, err := s.bookings.SendDueNotice(ctx, b, s.cfg.ReminderLead, s.cfg.OverstayEvery)
		if err != nil {
			s.logger.Warn("failed to send notice, will retry next sweep", "booking_id", b.ID, "kind", kind, "error", err)
			stats.Failures++
			continue
		}
		if sent {
			stats.Notices++
		}
	}
}
