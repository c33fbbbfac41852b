package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/adapters/gateway"
	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/DanielPopoola/parking-reservation/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sweepStart = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	driver     = domain.Principal{UserID: "user-1", Role: domain.RoleUser}
	gwCfg      = config.GatewayConfig{AppID: "RPA1000", RequestKey: "REQ", ResponseKey: "RESP", Currency: "MYR", OrderPrefix: "RP"}
	workerCfg  = config.WorkerConfig{
		Interval:      time.Minute,
		BatchSize:     50,
		PendingGrace:  15 * time.Minute,
		ReminderLead:  30 * time.Minute,
		OverstayEvery: 6 * time.Hour,
		LeaseTTL:      time.Minute,
	}
)

type harness struct {
	repo     *service.MockBookingRepository
	gateway  *service.MockGateway
	notifier *service.MockNotifier
	clock    *service.FixedClock
	bookings *service.BookingService
	payments *service.PaymentService
	sweeper  *Sweeper
}

func newHarness(t *testing.T, lease *service.MockSweepLease) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		repo:     service.NewMockBookingRepository(),
		gateway:  &service.MockGateway{},
		notifier: &service.MockNotifier{},
		clock:    service.NewFixedClock(sweepStart),
	}
	rules := service.NewRulesResolver(&service.MockSettingsStore{}, logger)
	h.bookings = service.NewBookingService(h.repo, rules, h.notifier, h.clock, logger, 5*time.Minute)
	h.payments = service.NewPaymentService(h.repo, h.gateway, gateway.NewSigner(gwCfg), rules, h.notifier, h.clock, logger,
		service.GatewaySettings{AppID: gwCfg.AppID, Currency: gwCfg.Currency, OrderPrefix: gwCfg.OrderPrefix})

	var sweepLease ports.SweepLease
	if lease != nil {
		sweepLease = lease
	}
	h.sweeper = NewSweeper(h.repo, h.bookings, h.payments, sweepLease, h.clock, workerCfg, logger)

	h.repo.AddSpot(&domain.Spot{ID: 1, Floor: 1, Label: "A1", Type: domain.SpotStandard})
	h.repo.AddSpot(&domain.Spot{ID: 2, Floor: 1, Label: "A2", Type: domain.SpotStandard})
	return h
}

func (h *harness) book(t *testing.T, spotID int64, start time.Time, hours int) *domain.Booking {
	t.Helper()
	res, err := h.bookings.Create(context.Background(), driver, service.CreateBookingCommand{
		SpotID:       spotID,
		VehiclePlate: "ABC123",
		ContactEmail: "driver@example.com",
		StartTime:    start,
		EndTime:      start.Add(time.Duration(hours) * time.Hour),
	})
	require.NoError(t, err)
	return res.Booking
}

func (h *harness) signedSuccess(orderID, amount string) domain.PaymentResult {
	r := domain.PaymentResult{
		AppID: gwCfg.AppID, Currency: gwCfg.Currency, Amount: amount,
		StatusCode: domain.GatewayCodeSuccess, OrderID: orderID, TransactionRef: "TXN-" + orderID,
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{r.AppID, r.Currency, r.Amount, r.StatusCode, r.OrderID, r.TransactionRef, gwCfg.ResponseKey}, "|")))
	r.Checksum = strings.ToUpper(hex.EncodeToString(sum[:]))
	return r
}

func TestSweeper_ExpiresStalePending(t *testing.T) {
	h := newHarness(t, nil)
	stale := h.book(t, 1, sweepStart.Add(2*time.Hour), 2)
	h.clock.Advance(10 * time.Minute)
	fresh := h.book(t, 2, sweepStart.Add(2*time.Hour), 2)
	h.clock.Advance(10 * time.Minute)

	stats := h.sweeper.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, domain.StatusExpired, h.repo.Booking(stale.ID).Status)
	assert.Equal(t, domain.StatusPending, h.repo.Booking(fresh.ID).Status, "still inside the grace window")
	assert.Equal(t, []domain.NoticeKind{domain.NoticeExpired}, h.notifier.Kinds())

	// The freed interval can be booked again.
	h.book(t, 1, sweepStart.Add(2*time.Hour), 2)
}

func TestSweeper_RecoversPaymentBeforeExpiring(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, 1, sweepStart.Add(2*time.Hour), 2)
	form, err := h.payments.InitiatePayment(context.Background(), driver, b.ID)
	require.NoError(t, err)
	h.clock.Advance(20 * time.Minute)

	h.gateway.EnquireFn = func(ctx context.Context, orderID, txRef string) (*domain.PaymentResult, error) {
		r := h.signedSuccess(orderID, form.Fields["amount"])
		return &r, nil
	}

	stats := h.sweeper.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Recovered)
	assert.Zero(t, stats.Expired)
	assert.Equal(t, domain.StatusActive, h.repo.Booking(b.ID).Status)
}

func TestSweeper_ExpiresWhenEnquiryFails(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, 1, sweepStart.Add(2*time.Hour), 2)
	_, err := h.payments.InitiatePayment(context.Background(), driver, b.ID)
	require.NoError(t, err)
	h.clock.Advance(20 * time.Minute)
	h.gateway.EnquireFn = func(ctx context.Context, orderID, txRef string) (*domain.PaymentResult, error) {
		return nil, errors.New("gateway timeout")
	}

	stats := h.sweeper.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, h.gateway.Calls())
	assert.Equal(t, domain.StatusExpired, h.repo.Booking(b.ID).Status)
}

func TestSweeper_UnpaidBookingSkipsEnquiry(t *testing.T) {
	h := newHarness(t, nil)
	h.book(t, 1, sweepStart.Add(2*time.Hour), 2)
	h.clock.Advance(20 * time.Minute)

	stats := h.sweeper.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Expired)
	assert.Zero(t, h.gateway.Calls())
}

func TestSweeper_NoticesAreSentOnce(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, 1, sweepStart.Add(time.Hour), 2)
	form, err := h.payments.InitiatePayment(context.Background(), driver, b.ID)
	require.NoError(t, err)
	_, err = h.payments.ApplyPaymentResult(context.Background(), h.signedSuccess(form.OrderID, form.Fields["amount"]))
	require.NoError(t, err)
	end := b.EndTime

	steps := []struct {
		at   time.Time
		want []domain.NoticeKind
	}{
		{end.Add(-20 * time.Minute), []domain.NoticeKind{domain.NoticeReminder}},
		{end.Add(-10 * time.Minute), nil},
		{end.Add(time.Minute), []domain.NoticeKind{domain.NoticeEndOfBooking}},
		{end.Add(2 * time.Hour), nil},
		{end.Add(6*time.Hour + time.Minute), []domain.NoticeKind{domain.NoticeOverstay}},
		{end.Add(7 * time.Hour), nil},
	}

	for _, step := range steps {
		before := len(h.notifier.Kinds())
		h.clock.Set(step.at)
		h.sweeper.RunOnce(context.Background())

		got := h.notifier.Kinds()[before:]
		if step.want == nil {
			assert.Empty(t, got, "at %s", step.at)
		} else {
			assert.Equal(t, step.want, got, "at %s", step.at)
		}
	}
	assert.Equal(t, domain.StatusActive, h.repo.Booking(b.ID).Status, "overstay never changes status")
}

func TestSweeper_OverstayersDoNotStarveReminders(t *testing.T) {
	h := newHarness(t, nil)
	cfg := workerCfg
	cfg.BatchSize = 2
	h.sweeper = NewSweeper(h.repo, h.bookings, h.payments, nil, h.clock, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	notified := sweepStart.Add(-time.Hour)
	for i := range 3 {
		spotID := int64(10 + i)
		h.repo.AddSpot(&domain.Spot{ID: spotID, Floor: 1, Label: domain.SpotLabel(2, i), Type: domain.SpotStandard})
		h.repo.Put(&domain.Booking{
			SpotID:             spotID,
			ContactEmail:       "late@example.com",
			Status:             domain.StatusActive,
			PaymentStatus:      domain.PaymentPaid,
			StartTime:          sweepStart.Add(-6 * time.Hour),
			EndTime:            sweepStart.Add(-time.Duration(4-i) * time.Hour),
			ExpiryNoticeSentAt: &notified,
		})
	}
	ending := h.repo.Put(&domain.Booking{
		SpotID:        1,
		ContactEmail:  "driver@example.com",
		Status:        domain.StatusActive,
		PaymentStatus: domain.PaymentPaid,
		StartTime:     sweepStart.Add(-time.Hour),
		EndTime:       sweepStart.Add(10 * time.Minute),
	})

	stats := h.sweeper.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Notices)
	sent := h.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NoticeReminder, sent[0].Kind)
	assert.Equal(t, ending.ID, sent[0].BookingID)
	assert.NotNil(t, h.repo.Booking(ending.ID).ReminderSentAt)
}

func TestSweeper_FailedNoticeIsRetried(t *testing.T) {
	h := newHarness(t, nil)
	b := h.book(t, 1, sweepStart.Add(time.Hour), 2)
	form, err := h.payments.InitiatePayment(context.Background(), driver, b.ID)
	require.NoError(t, err)
	_, err = h.payments.ApplyPaymentResult(context.Background(), h.signedSuccess(form.OrderID, form.Fields["amount"]))
	require.NoError(t, err)
	h.clock.Set(b.EndTime.Add(-15 * time.Minute))

	h.notifier.NotifyFn = func(ctx context.Context, n domain.Notification) error { return errors.New("smtp down") }
	stats := h.sweeper.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Failures)

	h.notifier.NotifyFn = nil
	stats = h.sweeper.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Notices)
	assert.Contains(t, h.notifier.Kinds(), domain.NoticeReminder)
}

func TestSweeper_LeaseHeldElsewhere(t *testing.T) {
	lease := &service.MockSweepLease{Held: true}
	h := newHarness(t, lease)
	h.book(t, 1, sweepStart.Add(2*time.Hour), 2)
	h.clock.Advance(time.Hour)

	stats := h.sweeper.RunOnce(context.Background())

	assert.True(t, stats.Skipped)
	assert.Equal(t, 1, h.repo.BookingCount())
	assert.Equal(t, domain.StatusPending, h.repo.Booking(1).Status)
}

func TestSweeper_LeaseErrorSkips(t *testing.T) {
	h := newHarness(t, &service.MockSweepLease{Err: errors.New("redis down")})

	assert.True(t, h.sweeper.RunOnce(context.Background()).Skipped)
}

func TestSweeper_LeaseAcquiredAndReleased(t *testing.T) {
	lease := &service.MockSweepLease{}
	h := newHarness(t, lease)

	stats := h.sweeper.RunOnce(context.Background())

	assert.False(t, stats.Skipped)
	acquired, released := lease.Counts()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestSweeper_RunsDoNotOverlap(t *testing.T) {
	h := newHarness(t, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.repo.FindStalePendingFn = func(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Booking, error) {
		close(entered)
		<-release
		return nil, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.sweeper.RunOnce(context.Background())
	}()
	<-entered

	assert.True(t, h.sweeper.RunOnce(context.Background()).Skipped)
	close(release)
	wg.Wait()
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.sweeper.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
