package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/adapters/gateway"
	"github.com/DanielPopoola/parking-reservation/internal/adapters/receipt"
	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-0123456789"
	testFrontend = "https://app.example.com"
)

var (
	handlerNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	gwCfg      = config.GatewayConfig{AppID: "RPA1000", RequestKey: "REQ", ResponseKey: "RESP", Currency: "MYR", OrderPrefix: "RP"}
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

type testServer struct {
	repo    *service.MockBookingRepository
	gateway *service.MockGateway
	clock   *service.FixedClock
	auth    *Authenticator
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &testServer{
		repo:    service.NewMockBookingRepository(),
		gateway: &service.MockGateway{},
		clock:   service.NewFixedClock(handlerNow),
		auth:    NewAuthenticator(testSecret),
	}
	notifier := &service.MockNotifier{}
	rules := service.NewRulesResolver(&service.MockSettingsStore{}, logger)
	bookings := service.NewBookingService(s.repo, rules, notifier, s.clock, logger, 5*time.Minute)
	payments := service.NewPaymentService(s.repo, s.gateway, gateway.NewSigner(gwCfg), rules, notifier, s.clock, logger, service.GatewaySettings{
		AppID:       gwCfg.AppID,
		Currency:    gwCfg.Currency,
		PaymentURL:  "https://pay.example.com/payment",
		ReturnURL:   "https://api.example.com/payments/return",
		OrderPrefix: gwCfg.OrderPrefix,
	})
	availability := service.NewAvailabilityService(s.repo, s.clock)

	h := NewHandler(bookings, payments, availability, receipt.NewRenderer("https://app.example.com/r"), s.auth, testFrontend, logger)
	s.handler = h.Routes(5 * time.Second)

	s.repo.AddSpot(&domain.Spot{ID: 1, Floor: 1, Label: "A1", Type: domain.SpotStandard})
	s.repo.AddSpot(&domain.Spot{ID: 2, Floor: 1, Label: "A2", Type: domain.SpotEV, IsBlocked: true})
	return s
}

func (s *testServer) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tok, err := s.auth.IssueToken(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func bookingRequest(spotID int64, start time.Time, hours int) CreateBookingRequest {
	return CreateBookingRequest{
		SpotID:       spotID,
		VehiclePlate: "abc123",
		ContactEmail: "driver@example.com",
		ContactName:  "Driver",
		StartTime:    start,
		EndTime:      start.Add(time.Duration(hours) * time.Hour),
	}
}

func gatewayForm(amount, status, orderID, txRef string) url.Values {
	sum := sha256.Sum256([]byte(strings.Join([]string{gwCfg.AppID, gwCfg.Currency, amount, status, orderID, txRef, gwCfg.ResponseKey}, "|")))
	return url.Values{
		"rp_appId":          {gwCfg.AppID},
		"rp_currency":       {gwCfg.Currency},
		"rp_amount":         {amount},
		"rp_statusCode":     {status},
		"rp_orderId":        {orderID},
		"rp_transactionRef": {txRef},
		"rp_checkSum":       {strings.ToUpper(hex.EncodeToString(sum[:]))},
	}
}

func (s *testServer) createBooking(t *testing.T, token string) CreateBookingResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/bookings", token, bookingRequest(1, handlerNow.Add(2*time.Hour), 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreateBookingResponse
	decode(t, rec, &created)
	return created
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/bookings/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decode(t, rec, nil)
			assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
		})
	}

	t.Run("token signed with another secret", func(t *testing.T) {
		forged, err := NewAuthenticator("another-secret-9876543210").IssueToken("user-1", domain.RoleAdmin, time.Hour)
		require.NoError(t, err)

		rec := s.do(t, http.MethodGet, "/bookings/1", forged, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := s.auth.IssueToken("user-1", domain.RoleUser, -time.Minute)
		require.NoError(t, err)

		rec := s.do(t, http.MethodGet, "/bookings/1", expired, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthenticator_Parse(t *testing.T) {
	a := NewAuthenticator(testSecret)

	tok, err := a.IssueToken("ops-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)
	p, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: "ops-1", Role: domain.RoleAdmin}, p)

	tok, err = a.IssueToken("user-1", domain.Role("superuser"), time.Hour)
	require.NoError(t, err)
	p, err = a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, p.Role, "unknown roles are plain users")
}

func TestHandleCreateBooking(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)

	created := s.createBooking(t, user)

	assert.Equal(t, "pending", created.Booking.Status)
	assert.Equal(t, "ABC123", created.Booking.VehiclePlate)
	assert.Equal(t, "20.00", created.Booking.FinalAmount)
	assert.Equal(t, "A1", created.Spot)
	require.NotNil(t, created.Payment)
	assert.Equal(t, "https://pay.example.com/payment", created.Payment.Action)
	assert.Equal(t, "20.00", created.Payment.Fields["amount"])
	assert.Equal(t, created.Payment.OrderID, created.Payment.Fields["orderId"])
}

func TestHandleCreateBooking_Errors(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	s.createBooking(t, user)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"overlap", bookingRequest(1, handlerNow.Add(3*time.Hour), 1), http.StatusConflict, domain.ErrCodeSpotUnavailable},
		{"blocked spot", bookingRequest(2, handlerNow.Add(3*time.Hour), 1), http.StatusConflict, domain.ErrCodeSpotBlocked},
		{"unknown spot", bookingRequest(9, handlerNow.Add(3*time.Hour), 1), http.StatusNotFound, domain.ErrCodeSpotNotFound},
		{"inverted interval", bookingRequest(1, handlerNow.Add(8*time.Hour), -1), http.StatusBadRequest, domain.ErrCodeInvalidInterval},
		{"bad email", func() any { r := bookingRequest(1, handlerNow.Add(8*time.Hour), 1); r.ContactEmail = "nope"; return r }(), http.StatusBadRequest, codeInvalidRequest},
		{"not json", "{", http.StatusBadRequest, codeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/bookings", user, tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			env := decode(t, rec, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHandleGetBooking_Ownership(t *testing.T) {
	s := newTestServer(t)
	created := s.createBooking(t, s.token(t, "user-1", domain.RoleUser))
	path := "/bookings/" + itoa(created.Booking.ID)

	rec := s.do(t, http.MethodGet, path, s.token(t, "user-2", domain.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, path, s.token(t, "ops", domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/bookings/abc", s.token(t, "ops", domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/bookings/999", s.token(t, "ops", domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCancelBooking(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	created := s.createBooking(t, user)
	path := "/bookings/" + itoa(created.Booking.ID) + "/cancel"

	rec := s.do(t, http.MethodPost, path, user, CancelBookingRequest{Reason: "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b BookingResponse
	decode(t, rec, &b)
	assert.Equal(t, "cancelled", b.Status)
	assert.Equal(t, "0.00", b.RefundAmount, "nothing was paid")
	require.NotNil(t, b.RefundReason)
	assert.Equal(t, "no refund: no payment captured", *b.RefundReason)

	rec = s.do(t, http.MethodPost, path, user, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleCancelBooking_PaidRefund(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	rec := s.do(t, http.MethodPost, "/bookings", user, bookingRequest(1, handlerNow.Add(48*time.Hour), 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreateBookingResponse
	decode(t, rec, &created)
	s.postForm(t, "/payments/callback", gatewayForm("20.00", domain.GatewayCodeSuccess, created.Payment.OrderID, "TXN-1"))

	rec = s.do(t, http.MethodPost, "/bookings/"+itoa(created.Booking.ID)+"/cancel", user, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b BookingResponse
	decode(t, rec, &b)
	assert.Equal(t, "20.00", b.RefundAmount)
	assert.Equal(t, "pending", b.RefundStatus)
	require.NotNil(t, b.RefundReason)
	assert.Contains(t, *b.RefundReason, "full refund")
}

func TestHandleOperatorRoutes(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	ops := s.token(t, "ops-1", domain.RoleAdmin)
	created := s.createBooking(t, user)
	id := itoa(created.Booking.ID)

	rec := s.postForm(t, "/payments/callback", gatewayForm("20.00", domain.GatewayCodeSuccess, created.Payment.OrderID, "TXN-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	s.clock.Set(created.Booking.EndTime.Add(90 * time.Minute))

	rec = s.do(t, http.MethodGet, "/bookings/"+id+"/exit-preview", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/bookings/"+id+"/exit-preview", ops, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview ExitPreviewResponse
	decode(t, rec, &preview)
	assert.Equal(t, int64(2), preview.HoursOver)
	assert.Equal(t, "20.00", preview.ExcessFee)
	assert.Equal(t, "40.00", preview.FinalTotal)

	rec = s.do(t, http.MethodPost, "/bookings/"+id+"/close", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/bookings/"+id+"/close", ops, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var closed BookingResponse
	decode(t, rec, &closed)
	assert.Equal(t, "completed", closed.Status)
	assert.Equal(t, "40.00", closed.FinalTotal)

	rec = s.do(t, http.MethodPost, "/bookings/"+id+"/refund/settle", ops, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "no refund pending")

	rec = s.do(t, http.MethodGet, "/bookings/"+id+"/audit", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var audit []AuditEntryResponse
	decode(t, rec, &audit)
	require.Len(t, audit, 4)
	assert.Equal(t, domain.ActionCompleted, audit[3].Action)
	assert.Equal(t, "ops-1", audit[3].Actor)
}

func TestHandlePaymentCallback(t *testing.T) {
	s := newTestServer(t)
	created := s.createBooking(t, s.token(t, "user-1", domain.RoleUser))

	t.Run("tampered signal is acknowledged and ignored", func(t *testing.T) {
		form := gatewayForm("20.00", "RP91", created.Payment.OrderID, "TXN-1")
		form.Set("rp_statusCode", domain.GatewayCodeSuccess)

		rec := s.postForm(t, "/payments/callback", form)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
		assert.Equal(t, domain.StatusPending, s.repo.Booking(created.Booking.ID).Status)
	})

	t.Run("verified success activates the booking", func(t *testing.T) {
		rec := s.postForm(t, "/payments/callback", gatewayForm("20.00", domain.GatewayCodeSuccess, created.Payment.OrderID, "TXN-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
		assert.Equal(t, domain.StatusActive, s.repo.Booking(created.Booking.ID).Status)
	})
}

func TestHandlePaymentReturn(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		tamper   bool
		wantPage string
	}{
		{"success", domain.GatewayCodeSuccess, false, "success"},
		{"processing", domain.GatewayCodeProcessing, false, "pending"},
		{"declined", "RP91", false, "failed"},
		{"forged", domain.GatewayCodeSuccess, true, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			created := s.createBooking(t, s.token(t, "user-1", domain.RoleUser))
			form := gatewayForm("20.00", tt.status, created.Payment.OrderID, "TXN-1")
			if tt.tamper {
				form.Set("rp_amount", "0.01")
			}

			rec := s.postForm(t, "/payments/return", form)

			require.Equal(t, http.StatusSeeOther, rec.Code)
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "app.example.com", loc.Host)
			assert.Equal(t, "/payment-status", loc.Path)
			assert.Equal(t, tt.wantPage, loc.Query().Get("status"))
			assert.Equal(t, tt.status, loc.Query().Get("code"))
			assert.Equal(t, created.Payment.OrderID, loc.Query().Get("orderId"))
		})
	}
}

func TestHandleCheckStatus(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	created := s.createBooking(t, user)
	path := "/payments/" + itoa(created.Booking.ID) + "/check-status"

	s.gateway.EnquireFn = func(ctx context.Context, orderID, txRef string) (*domain.PaymentResult, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	rec := s.do(t, http.MethodPost, path, user, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, domain.ErrCodeGatewayUnavailable, decode(t, rec, nil).Error.Code)

	s.gateway.EnquireFn = func(ctx context.Context, orderID, txRef string) (*domain.PaymentResult, error) {
		form := gatewayForm("20.00", domain.GatewayCodeSuccess, orderID, "TXN-7")
		return &domain.PaymentResult{
			AppID: form.Get("rp_appId"), Currency: form.Get("rp_currency"), Amount: form.Get("rp_amount"),
			StatusCode: form.Get("rp_statusCode"), OrderID: orderID, TransactionRef: "TXN-7", Checksum: form.Get("rp_checkSum"),
		}, nil
	}
	rec = s.do(t, http.MethodPost, path, user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.ApplyResult
	decode(t, rec, &res)
	assert.Equal(t, domain.StatusActive, res.Status)
}

func TestHandleInitiatePayment_AlreadyPaid(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	created := s.createBooking(t, user)
	s.postForm(t, "/payments/callback", gatewayForm("20.00", domain.GatewayCodeSuccess, created.Payment.OrderID, "TXN-1"))

	rec := s.do(t, http.MethodPost, "/payments/"+itoa(created.Booking.ID)+"/initiate", user, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleAvailability(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	s.createBooking(t, user)

	q := url.Values{
		"floor": {"1"},
		"start": {handlerNow.Add(3 * time.Hour).Format(time.RFC3339)},
		"end":   {handlerNow.Add(5 * time.Hour).Format(time.RFC3339)},
	}
	rec := s.do(t, http.MethodGet, "/availability?"+q.Encode(), user, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got AvailabilityResponse
	decode(t, rec, &got)
	assert.Equal(t, []int64{1}, got.Occupied)
	assert.Equal(t, []int64{2}, got.Blocked)

	rec = s.do(t, http.MethodGet, "/availability?floor=1&start=yesterday&end=today", user, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceipts(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "user-1", domain.RoleUser)
	created := s.createBooking(t, user)

	rec := s.do(t, http.MethodGet, "/bookings/"+itoa(created.Booking.ID)+"/receipt.png", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(t, http.MethodGet, "/receipts/"+created.Booking.PublicToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var r ReceiptResponse
	decode(t, rec, &r)
	assert.Equal(t, created.Booking.ID, r.BookingID)
	assert.Equal(t, "A1", r.Spot)
	assert.Equal(t, "https://app.example.com/r/"+created.Booking.PublicToken, r.ReceiptURL)
	assert.NotContains(t, rec.Body.String(), "driver@example.com")

	rec = s.do(t, http.MethodGet, "/receipts/not-a-token", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec, nil).Error.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
