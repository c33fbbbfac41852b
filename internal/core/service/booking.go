package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/google/uuid"
)

// CreateBookingCommand is a reservation request from an authenticated user.
type CreateBookingCommand struct {
	SpotID       int64
	VehiclePlate string
	ContactEmail string
	ContactName  string
	StartTime    time.Time
	EndTime      time.Time
	PromoCode    string
}

// CreateResult carries the new booking and how it was priced.
type CreateResult struct {
	Booking *domain.Booking
	Spot    *domain.Spot
	Quote   domain.Quote
}

// ExitPreview is what closing a booking now would charge.
type ExitPreview struct {
	BookingID       int64
	HoursOver       int64
	ExcessFeeCents  int64
	FinalTotalCents int64
}

type BookingService struct {
	repo      ports.BookingRepository
	rules     *RulesResolver
	notices   dispatcher
	clock     ports.Clock
	logger    *slog.Logger
	startSkew time.Duration
}

func NewBookingService(
	repo ports.BookingRepository,
	rules *RulesResolver,
	notifier ports.Notifier,
	clock ports.Clock,
	logger *slog.Logger,
	startSkew time.Duration,
) *BookingService {
	return &BookingService{
		repo:      repo,
		rules:     rules,
		notices:   dispatcher{repo: repo, notifier: notifier, logger: logger},
		clock:     clock,
		logger:    logger,
		startSkew: startSkew,
	}
}

// Create reserves a spot. The spot row lock makes the overlap check and the insert one atomic step,
// and the promo usage increment rides in the same transaction.
func (s *BookingService) Create(ctx context.Context, principal domain.Principal, cmd CreateBookingCommand) (*CreateResult, error) {
	if err := s.validate(principal, cmd); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := domain.ValidateInterval(cmd.StartTime, cmd.EndTime, now, s.startSkew); err != nil {
		return nil, err
	}
	rules := s.rules.Resolve(ctx)

	var result CreateResult
	err := s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		spot, err := txRepo.FindSpotForUpdate(ctx, cmd.SpotID)
		if err != nil {
			return err
		}
		if spot.IsBlocked {
			return domain.NewSpotBlockedError(spot.Label)
		}

		existing, err := txRepo.FindSpotBookings(ctx, spot.ID, cmd.StartTime, cmd.EndTime, now)
		if err != nil {
			return err
		}
		if !domain.SpotIsFree(spot, existing, cmd.StartTime, cmd.EndTime, now) {
			return domain.NewSpotUnavailableError()
		}

		promo, err := s.lookupPromo(ctx, txRepo, cmd.PromoCode)
		if err != nil {
			return err
		}
		hours := cmd.EndTime.Sub(cmd.StartTime).Hours()
		quote := domain.PriceQuote(hours, spot.Type, rules, cmd.PromoCode, promo, now)
		if quote.PromoApplied {
			if err := txRepo.IncrementPromoUse(ctx, quote.PromoCode); err != nil {
				return err
			}
		}

		b := domain.NewBooking(principal.UserID, cmd.ContactEmail, cmd.ContactName, spot.ID, cmd.VehiclePlate,
			cmd.StartTime, cmd.EndTime, quote, now)
		if err := txRepo.CreateBooking(ctx, b); err != nil {
			return err
		}

		details := fmt.Sprintf("spot %s, %s to %s, total %s", spot.Label,
			b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339), domain.FormatAmount(b.FinalAmountCents))
		if quote.PromoApplied {
			details += fmt.Sprintf(", promo %s -%s", quote.PromoCode, domain.FormatAmount(quote.DiscountCents))
		}
		entry := domain.NewAuditEntry(b.ID, principal.Actor(), domain.ActionCreated, "", string(b.Status), details, now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}

		result = CreateResult{Booking: b, Spot: spot, Quote: quote}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Quote.PromoMessage != "" {
		s.logger.InfoContext(ctx, "promo code not applied",
			"booking_id", result.Booking.ID,
			"promo_code", result.Quote.PromoCode,
			"reason", result.Quote.PromoMessage,
		)
	}
	s.logger.InfoContext(ctx, "booking created",
		"booking_id", result.Booking.ID,
		"spot_id", result.Spot.ID,
		"amount", domain.FormatAmount(result.Booking.FinalAmountCents),
	)
	return &result, nil
}

// lookupPromo treats an unknown code as "no promo"; pricing records why it was ignored.
func (s *BookingService) lookupPromo(ctx context.Context, repo ports.BookingRepository, code string) (*domain.Promo, error) {
	code = domain.NormalizePromoCode(code)
	if code == "" {
		return nil, nil
	}
	promo, err := repo.FindPromoForUpdate(ctx, code)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePromoNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return promo, nil
}

// Cancel releases the spot and quotes the refund. Only money actually captured is refunded.
func (s *BookingService) Cancel(ctx context.Context, principal domain.Principal, bookingID int64, reason string) (*domain.Booking, error) {
	now := s.clock.Now()
	rules := s.rules.Resolve(ctx)

	var booking *domain.Booking
	err := s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		b, err := txRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := principal.CanAccess(b); err != nil {
			return err
		}

		refund := domain.CancellationRefund(b.FinalAmountCents, b.StartTime, now, rules)
		if b.PaymentStatus != domain.PaymentPaid {
			refund = domain.Refund{Reason: "no refund: no payment captured"}
		}

		oldStatus := b.Status
		if err := b.Cancel(refund, strings.TrimSpace(reason), now); err != nil {
			return err
		}
		if err := txRepo.UpdateBooking(ctx, b); err != nil {
			return err
		}

		details := fmt.Sprintf("refund %s (%s)", domain.FormatAmount(refund.AmountCents), refund.Reason)
		entry := domain.NewAuditEntry(b.ID, principal.Actor(), domain.ActionCancelled, string(oldStatus), string(b.Status), details, now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking cancelled",
		"booking_id", booking.ID,
		"refund", domain.FormatAmount(booking.RefundAmountCents),
		"refund_status", booking.RefundStatus,
	)
	s.notices.bestEffort(ctx, domain.NoticeCancelled, booking, now)
	return booking, nil
}

// Close completes an active booking, charging for every started hour past its end.
func (s *BookingService) Close(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.Booking, error) {
	if !principal.IsOperator() {
		return nil, domain.NewForbiddenError("closing a booking")
	}
	now := s.clock.Now()
	rules := s.rules.Resolve(ctx)

	var booking *domain.Booking
	err := s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		b, err := txRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		spot, err := txRepo.FindSpot(ctx, b.SpotID)
		if err != nil {
			return err
		}

		overstay := domain.OverstayFee(b.EndTime, now, spot.Type, rules)
		oldStatus := b.Status
		if err := b.Complete(overstay.FeeCents, now); err != nil {
			return err
		}
		if err := txRepo.UpdateBooking(ctx, b); err != nil {
			return err
		}

		details := fmt.Sprintf("overstay %dh, fee %s, total %s", overstay.HoursOver,
			domain.FormatAmount(overstay.FeeCents), domain.FormatAmount(b.FinalTotalCents()))
		entry := domain.NewAuditEntry(b.ID, principal.Actor(), domain.ActionCompleted, string(oldStatus), string(b.Status), details, now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking closed",
		"booking_id", booking.ID,
		"excess_fee", domain.FormatAmount(booking.ExcessFeeCents),
	)
	return booking, nil
}

// PreviewExit computes what Close would charge right now without changing anything.
func (s *BookingService) PreviewExit(ctx context.Context, principal domain.Principal, bookingID int64) (*ExitPreview, error) {
	if !principal.IsOperator() {
		return nil, domain.NewForbiddenError("previewing an exit")
	}
	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.StatusActive {
		return nil, domain.NewInvalidTransitionError(b.Status, domain.StatusCompleted)
	}
	spot, err := s.repo.FindSpot(ctx, b.SpotID)
	if err != nil {
		return nil, err
	}

	overstay := domain.OverstayFee(b.EndTime, s.clock.Now(), spot.Type, s.rules.Resolve(ctx))
	return &ExitPreview{
		BookingID:       b.ID,
		HoursOver:       overstay.HoursOver,
		ExcessFeeCents:  overstay.FeeCents,
		FinalTotalCents: b.FinalAmountCents + overstay.FeeCents,
	}, nil
}

// SettleRefund records that an operator paid out a pending refund.
func (s *BookingService) SettleRefund(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.Booking, error) {
	if !principal.IsOperator() {
		return nil, domain.NewForbiddenError("settling a refund")
	}
	now := s.clock.Now()

	var booking *domain.Booking
	err := s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		b, err := txRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := b.SettleRefund(now); err != nil {
			return err
		}
		if err := txRepo.UpdateBooking(ctx, b); err != nil {
			return err
		}
		details := fmt.Sprintf("refund %s settled", domain.FormatAmount(b.RefundAmountCents))
		entry := domain.NewAuditEntry(b.ID, principal.Actor(), domain.ActionRefundSettled, string(b.Status), string(b.Status), details, now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Get returns a booking visible to principal.
func (s *BookingService) Get(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.Booking, error) {
	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := principal.CanAccess(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByToken resolves a receipt link. Possession of the token is the authorization.
func (s *BookingService) GetByToken(ctx context.Context, token uuid.UUID) (*domain.Booking, *domain.Spot, error) {
	b, err := s.repo.FindByPublicToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	spot, err := s.repo.FindSpot(ctx, b.SpotID)
	if err != nil {
		return nil, nil, err
	}
	return b, spot, nil
}

func (s *BookingService) ListAudit(ctx context.Context, principal domain.Principal, bookingID int64) ([]*domain.AuditEntry, error) {
	if _, err := s.Get(ctx, principal, bookingID); err != nil {
		return nil, err
	}
	return s.repo.FindAudit(ctx, bookingID)
}

// ExpireStale expires a booking still pending since before cutoff. It reports false when
// the booking moved on (paid, cancelled) between the sweep's read and the row lock.
func (s *BookingService) ExpireStale(ctx context.Context, bookingID int64, cutoff time.Time) (bool, error) {
	now := s.clock.Now()

	var booking *domain.Booking
	err := s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		b, err := txRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != domain.StatusPending || !b.CreatedAt.Before(cutoff) {
			return nil
		}

		if err := b.Expire(now); err != nil {
			return err
		}
		if err := txRepo.UpdateBooking(ctx, b); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(b.ID, domain.ActorSystem, domain.ActionExpired,
			string(domain.StatusPending), string(b.Status), "payment not confirmed within grace window", now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil || booking == nil {
		return false, err
	}

	s.notices.bestEffort(ctx, domain.NoticeExpired, booking, now)
	return true, nil
}

// SendDueNotice emits the time-based notice b is due, if any. The last-sent marker is only
// stamped after delivery, so a failed send is retried on the next sweep.
func (s *BookingService) SendDueNotice(ctx context.Context, b *domain.Booking, reminderLead, overstayEvery time.Duration) (domain.NoticeKind, bool, error) {
	now := s.clock.Now()
	kind, due := domain.DueNotice(b, now, reminderLead, overstayEvery)
	if !due {
		return "", false, nil
	}

	if err := s.notices.send(ctx, kind, b, now); err != nil {
		return kind, false, fmt.Errorf("deliver %s notice: %w", kind, err)
	}
	if err := s.repo.MarkNoticeSent(ctx, b.ID, kind, now); err != nil {
		return kind, true, err
	}
	b.MarkNoticeSent(kind, now)
	return kind, true, nil
}

func (s *BookingService) validate(principal domain.Principal, cmd CreateBookingCommand) error {
	switch {
	case principal.UserID == "":
		return domain.NewMissingRequiredFieldError("user_id")
	case cmd.SpotID <= 0:
		return domain.NewMissingRequiredFieldError("spot_id")
	case strings.TrimSpace(cmd.VehiclePlate) == "":
		return domain.NewMissingRequiredFieldError("vehicle_plate")
	case strings.TrimSpace(cmd.ContactEmail) == "":
		return domain.NewMissingRequiredFieldError("contact_email")
	}
	return nil
}
