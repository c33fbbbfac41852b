package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/service"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

type BookingService interface {
	Create(ctx context.Context, principal domain.Principal, cmd service.CreateBookingCommand) (*service.CreateResult, error)
	Cancel(ctx context.Context, principal domain.Principal, bookingID int64, reason string) (*domain.Booking, error)
	Close(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.Booking, error)
	PreviewExit(ctx context.Context, principal domain.Principal, bookingID int64) (*service.ExitPreview, error)
	SettleRefund(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.Booking, error)
	Get(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.Booking, error)
	GetByToken(ctx context.Context, token uuid.UUID) (*domain.Booking, *domain.Spot, error)
	ListAudit(ctx context.Context, principal domain.Principal, bookingID int64) ([]*domain.AuditEntry, error)
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.PaymentForm, error)
	ApplyPaymentResult(ctx context.Context, result domain.PaymentResult) (*domain.ApplyResult, error)
	PollPaymentStatus(ctx context.Context, principal domain.Principal, bookingID int64) (*domain.ApplyResult, error)
}

type AvailabilityService interface {
	CheckAvailability(ctx context.Context, floor int, start, end time.Time) (*domain.FloorOccupancy, error)
}

type ReceiptRenderer interface {
	URL(token uuid.UUID) string
	PNG(token uuid.UUID) ([]byte, error)
}

// Handler serves the reservation API.
type Handler struct {
	bookings     BookingService
	payments     PaymentService
	availability AvailabilityService
	receipts     ReceiptRenderer
	auth         *Authenticator
	frontendURL  string
	logger       *slog.Logger
	validate     *validator.Validate
}

func NewHandler(
	bookings BookingService,
	payments PaymentService,
	availability AvailabilityService,
	receipts ReceiptRenderer,
	auth *Authenticator,
	frontendURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bookings:     bookings,
		payments:     payments,
		availability: availability,
		receipts:     receipts,
		auth:         auth,
		frontendURL:  frontendURL,
		logger:       logger,
		validate:     validator.New(),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	bearer := h.auth.Middleware

	mux.Handle("GET /availability", bearer(http.HandlerFunc(h.HandleAvailability)))

	mux.Handle("POST /bookings", bearer(http.HandlerFunc(h.HandleCreateBooking)))
	mux.Handle("GET /bookings/{id}", bearer(http.HandlerFunc(h.HandleGetBooking)))
	mux.Handle("GET /bookings/{id}/audit", bearer(http.HandlerFunc(h.HandleListAudit)))
	mux.Handle("POST /bookings/{id}/cancel", bearer(http.HandlerFunc(h.HandleCancelBooking)))
	mux.Handle("POST /bookings/{id}/close", bearer(http.HandlerFunc(h.HandleCloseBooking)))
	mux.Handle("GET /bookings/{id}/exit-preview", bearer(http.HandlerFunc(h.HandleExitPreview)))
	mux.Handle("POST /bookings/{id}/refund/settle", bearer(http.HandlerFunc(h.HandleSettleRefund)))
	mux.Handle("GET /bookings/{id}/receipt.png", bearer(http.HandlerFunc(h.HandleReceiptQR)))
	mux.HandleFunc("GET /receipts/{token}", h.HandlePublicReceipt)

	mux.Handle("POST /payments/{id}/initiate", bearer(http.HandlerFunc(h.HandleInitiatePayment)))
	mux.Handle("POST /payments/{id}/check-status", bearer(http.HandlerFunc(h.HandleCheckStatus)))
	mux.HandleFunc("POST /payments/callback", h.HandlePaymentCallback)
	mux.HandleFunc("POST /payments/return", h.HandlePaymentReturn)

	mux.HandleFunc("GET /healthz", h.HandleHealth)
}

// Routes returns the mux wrapped in the standard middleware chain.
func (h *Handler) Routes(timeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Chain(mux, Recovery(h.logger), Logging(h.logger), Timeout(timeout))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
