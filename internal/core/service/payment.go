package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

// GatewaySettings are the non-secret parameters of the hosted payment page.
type GatewaySettings struct {
	AppID       string
	Currency    string
	PaymentURL  string
	ReturnURL   string
	OrderPrefix string
}

type PaymentService struct {
	repo     ports.BookingRepository
	gateway  ports.GatewayPort
	signer   ports.Signer
	rules    *RulesResolver
	notices  dispatcher
	clock    ports.Clock
	logger   *slog.Logger
	settings GatewaySettings
}

func NewPaymentService(
	repo ports.BookingRepository,
	gateway ports.GatewayPort,
	signer ports.Signer,
	rules *RulesResolver,
	notifier ports.Notifier,
	clock ports.Clock,
	logger *slog.Logger,
	settings GatewaySettings,
) *PaymentService {
	return &PaymentService{
		repo:     repo,
		gateway:  gateway,
		signer:   signer,
		rules:    rules,
		notices:  dispatcher{repo: repo, notifier: notifier, logger: logger},
		clock:    clock,
		logger:   logger,
		settings: settings,
	}
}

// InitiatePayment opens a new payment attempt and returns the signed form the client posts
// to the gateway. No network call is made here.
func (s *PaymentService) InitiatePayment(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.PaymentForm, error) {
	now := s.clock.Now()

	var booking *domain.Booking
	var orderID string
	err := s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		b, err := txRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := principal.CanAccess(b); err != nil {
			return err
		}

		orderID = domain.NewOrderRef(s.settings.OrderPrefix, b.ID, now).String()
		oldPayment := b.PaymentStatus
		if err := b.StartPaymentAttempt(orderID, now); err != nil {
			return err
		}
		if err := txRepo.UpdateBooking(ctx, b); err != nil {
			return err
		}

		details := fmt.Sprintf("order %s, amount %s %s (payment %s -> %s)", orderID,
			domain.FormatAmount(b.FinalAmountCents), s.settings.Currency, oldPayment, b.PaymentStatus)
		entry := domain.NewAuditEntry(b.ID, principal.Actor(), domain.ActionPaymentInitiated, string(b.Status), string(b.Status), details, now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	amount := domain.FormatAmount(booking.FinalAmountCents)
	form := &domain.PaymentForm{
		Action:  s.settings.PaymentURL,
		OrderID: orderID,
		Fields: map[string]string{
			"appId":      s.settings.AppID,
			"currency":   s.settings.Currency,
			"amount":     amount,
			"orderId":    orderID,
			"checkSum":   s.signer.RequestChecksum(s.settings.Currency, amount, orderID),
			"buyerEmail": booking.ContactEmail,
			"accName":    booking.ContactName,
			"returnURL":  s.settings.ReturnURL,
			"ref1":       fmt.Sprintf("Booking #%d", booking.ID),
			"ref2":       booking.VehiclePlate,
		},
	}

	s.logger.InfoContext(ctx, "payment initiated",
		"booking_id", booking.ID,
		"order_id", orderID,
		"amount", amount,
	)
	return form, nil
}

// ApplyPaymentResult is the single entry point for gateway signals, whether they come from the
// webhook, the browser return or an enquiry. Unverified signals never touch state.
func (s *PaymentService) ApplyPaymentResult(ctx context.Context, result domain.PaymentResult) (*domain.ApplyResult, error) {
	if !s.signer.Verify(result) || result.AppID != s.settings.AppID {
		s.untrusted(ctx, "payment signal failed checksum verification", result)
		return nil, domain.NewChecksumMismatchError(result.OrderID)
	}

	ref, err := domain.ParseOrderRef(result.OrderID, s.settings.OrderPrefix)
	if err != nil {
		s.untrusted(ctx, "payment signal with malformed order id", result)
		return nil, domain.NewUnknownOrderError(result.OrderID, err)
	}

	outcome := domain.OutcomeFor(result.StatusCode)
	now := s.clock.Now()

	var rules domain.Rules
	if outcome == domain.OutcomeSuccess {
		rules = s.rules.Resolve(ctx)
	}

	var applied domain.ApplyResult
	var booking *domain.Booking
	err = s.repo.WithTx(ctx, func(txRepo ports.BookingRepository) error {
		b, err := txRepo.FindByIDForUpdate(ctx, ref.BookingID)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeBookingNotFound) {
				return domain.NewUnknownOrderError(result.OrderID, err)
			}
			return err
		}

		want := domain.FormatAmount(b.FinalAmountCents)
		if result.Amount != want || !strings.EqualFold(result.Currency, s.settings.Currency) {
			return domain.NewAmountMismatchError(result.OrderID, result.Currency+" "+result.Amount, s.settings.Currency+" "+want)
		}

		oldStatus, oldPayment := b.Status, b.PaymentStatus
		var changed bool
		var action string
		var refundNote string
		switch outcome {
		case domain.OutcomeSuccess:
			if b.IsTerminal() {
				refund := domain.LatePaymentRefund(b, rules)
				changed = b.RecordLatePayment(result.TransactionRef, refund, now)
				action = domain.ActionLatePayment
				refundNote = fmt.Sprintf(", refund %s (%s)", domain.FormatAmount(refund.AmountCents), refund.Reason)
			} else {
				changed, err = b.Confirm(result.TransactionRef, now)
				if err != nil {
					return err
				}
				action = domain.ActionPaymentConfirmed
			}
		case domain.OutcomeProcessing:
			changed = b.MarkPaymentProcessing(now)
			action = domain.ActionPaymentProcessing
		default:
			changed = b.MarkPaymentFailed(now)
			action = domain.ActionPaymentFailed
		}

		applied = domain.ApplyResult{
			BookingID:     b.ID,
			Outcome:       outcome,
			Status:        b.Status,
			PaymentStatus: b.PaymentStatus,
			Changed:       changed,
		}
		if !changed {
			return nil
		}

		if err := txRepo.UpdateBooking(ctx, b); err != nil {
			return err
		}
		details := fmt.Sprintf("order %s, code %s, ref %s (payment %s -> %s)%s",
			result.OrderID, result.StatusCode, result.TransactionRef, oldPayment, b.PaymentStatus, refundNote)
		entry := domain.NewAuditEntry(b.ID, domain.ActorSystem, action, string(oldStatus), string(b.Status), details, now)
		if err := txRepo.AppendAudit(ctx, entry); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		if domain.IsKind(err, domain.KindUntrustedSignal) {
			s.untrusted(ctx, err.Error(), result)
		}
		return nil, err
	}

	if booking != nil {
		s.afterApply(ctx, booking, outcome, result, now)
	}
	return &applied, nil
}

func (s *PaymentService) afterApply(ctx context.Context, b *domain.Booking, outcome domain.PaymentOutcome, result domain.PaymentResult, now time.Time) {
	switch {
	case outcome == domain.OutcomeSuccess && b.Status == domain.StatusActive:
		s.logger.InfoContext(ctx, "payment confirmed",
			"booking_id", b.ID,
			"order_id", result.OrderID,
			"transaction_ref", result.TransactionRef,
		)
		s.notices.bestEffort(ctx, domain.NoticePaymentConfirmed, b, now)
	case outcome == domain.OutcomeSuccess:
		s.logger.WarnContext(ctx, "payment captured for a closed booking, refund required",
			"booking_id", b.ID,
			"status", b.Status,
			"order_id", result.OrderID,
			"amount", result.Amount,
			"refund", domain.FormatAmount(b.RefundAmountCents),
			"refund_status", b.RefundStatus,
		)
	default:
		s.logger.InfoContext(ctx, "payment status updated",
			"booking_id", b.ID,
			"order_id", result.OrderID,
			"status_code", result.StatusCode,
			"payment_status", b.PaymentStatus,
		)
	}
}

// PollPaymentStatus asks the gateway about the booking's latest attempt and applies the answer.
// The gateway call is made outside any transaction.
func (s *PaymentService) PollPaymentStatus(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.ApplyResult, error) {
	b, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := principal.CanAccess(b); err != nil {
		return nil, err
	}
	if b.LatestOrderID == nil {
		return nil, domain.NewNoPaymentAttemptError(b.ID)
	}

	txRef := ""
	if b.TransactionRef != nil {
		txRef = *b.TransactionRef
	}
	result, err := s.gateway.Enquire(ctx, *b.LatestOrderID, txRef)
	if err != nil {
		s.logger.WarnContext(ctx, "payment enquiry failed",
			"booking_id", b.ID,
			"order_id", *b.LatestOrderID,
			"error", err,
		)
		return nil, domain.NewGatewayUnavailableError(err)
	}

	return s.ApplyPaymentResult(ctx, *result)
}

func (s *PaymentService) untrusted(ctx context.Context, msg string, r domain.PaymentResult) {
	s.logger.WarnContext(ctx, msg,
		"security_event", true,
		"order_id", r.OrderID,
		"app_id", r.AppID,
		"status_code", r.StatusCode,
		"amount", r.Amount,
	)
}
