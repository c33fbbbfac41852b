package service

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/adapters/gateway"
	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
)

var (
	testNow    = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	userOne    = domain.Principal{UserID: "user-1", Role: domain.RoleUser}
	userTwo    = domain.Principal{UserID: "user-2", Role: domain.RoleUser}
	operator   = domain.Principal{UserID: "ops-1", Role: domain.RoleAdmin}
	gwConfig   = config.GatewayConfig{AppID: "RPA1000", RequestKey: "REQKEY", ResponseKey: "RESPKEY", Currency: "MYR", OrderPrefix: "RP"}
	gwSettings = GatewaySettings{
		AppID:       "RPA1000",
		Currency:    "MYR",
		PaymentURL:  "https://pay.example.com/payment",
		ReturnURL:   "https://api.example.com/payments/return",
		OrderPrefix: "RP",
	}
)

type fixture struct {
	repo      *MockBookingRepository
	notifier  *MockNotifier
	gateway   *MockGateway
	clock     *FixedClock
	settings  *MockSettingsStore
	bookings  *BookingService
	payments  *PaymentService
	available *AvailabilityService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewMockBookingRepository(),
		notifier: &MockNotifier{},
		gateway:  &MockGateway{},
		clock:    NewFixedClock(testNow),
		settings: &MockSettingsStore{Settings: map[string]string{}},
	}
	logger := discardLogger()
	rules := NewRulesResolver(f.settings, logger)
	f.bookings = NewBookingService(f.repo, rules, f.notifier, f.clock, logger, 5*time.Minute)
	f.payments = NewPaymentService(f.repo, f.gateway, gateway.NewSigner(gwConfig), rules, f.notifier, f.clock, logger, gwSettings)
	f.available = NewAvailabilityService(f.repo, f.clock)

	f.repo.AddSpot(&domain.Spot{ID: 1, Floor: 1, Row: 0, Col: 0, Label: "A1", Type: domain.SpotStandard})
	f.repo.AddSpot(&domain.Spot{ID: 2, Floor: 1, Row: 0, Col: 1, Label: "A2", Type: domain.SpotEV})
	f.repo.AddSpot(&domain.Spot{ID: 3, Floor: 1, Row: 0, Col: 2, Label: "A3", Type: domain.SpotStandard, IsBlocked: true})
	f.repo.AddSpot(&domain.Spot{ID: 4, Floor: 2, Row: 0, Col: 0, Label: "A1", Type: domain.SpotVIP})
	return f
}

func createCmd(spotID int64, start time.Time, hours int) CreateBookingCommand {
	return CreateBookingCommand{
		SpotID:       spotID,
		VehiclePlate: "wxy1234",
		ContactEmail: "user1@example.com",
		ContactName:  "User One",
		StartTime:    start,
		EndTime:      start.Add(time.Duration(hours) * time.Hour),
	}
}

// mustCreate books spotID for hours starting at start and returns the stored booking.
func (f *fixture) mustCreate(t *testing.T, spotID int64, start time.Time, hours int) *domain.Booking {
	t.Helper()
	res, err := f.bookings.Create(t.Context(), userOne, createCmd(spotID, start, hours))
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return res.Booking
}

// mustActivate runs a booking through a verified successful payment.
func (f *fixture) mustActivate(t *testing.T, b *domain.Booking) *domain.Booking {
	t.Helper()
	form, err := f.payments.InitiatePayment(t.Context(), userOne, b.ID)
	if err != nil {
		t.Fatalf("initiate payment: %v", err)
	}
	if _, err := f.payments.ApplyPaymentResult(t.Context(), signed(form.Fields["amount"], domain.GatewayCodeSuccess, form.OrderID, "TXN-"+form.OrderID)); err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	return f.repo.Booking(b.ID)
}

func signed(amount, status, orderID, txRef string) domain.PaymentResult {
	r := domain.PaymentResult{
		AppID:          gwConfig.AppID,
		Currency:       gwConfig.Currency,
		Amount:         amount,
		StatusCode:     status,
		OrderID:        orderID,
		TransactionRef: txRef,
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{r.AppID, r.Currency, r.Amount, r.StatusCode, r.OrderID, r.TransactionRef, gwConfig.ResponseKey}, "|")))
	r.Checksum = strings.ToUpper(hex.EncodeToString(sum[:]))
	return r
}
