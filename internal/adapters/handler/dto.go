package handler

import (
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/service"
)

type BookingResponse struct {
	ID                 int64      `json:"id"`
	PublicToken        string     `json:"public_token"`
	UserID             string     `json:"user_id"`
	SpotID             int64      `json:"spot_id"`
	VehiclePlate       string     `json:"vehicle_plate"`
	ContactEmail       string     `json:"contact_email"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	PromoCode          *string    `json:"promo_code,omitempty"`
	BaseAmount         string     `json:"base_amount"`
	DiscountAmount     string     `json:"discount_amount"`
	FinalAmount        string     `json:"final_amount"`
	ExcessFee          string     `json:"excess_fee"`
	FinalTotal         string     `json:"final_total"`
	RefundStatus       string     `json:"refund_status"`
	RefundAmount       string     `json:"refund_amount"`
	RefundReason       *string    `json:"refund_reason,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	LatestOrderID      *string    `json:"latest_order_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		PublicToken:        b.PublicToken.String(),
		UserID:             b.UserID,
		SpotID:             b.SpotID,
		VehiclePlate:       b.VehiclePlate,
		ContactEmail:       b.ContactEmail,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		PromoCode:          b.PromoCode,
		BaseAmount:         domain.FormatAmount(b.BaseAmountCents),
		DiscountAmount:     domain.FormatAmount(b.DiscountAmountCents),
		FinalAmount:        domain.FormatAmount(b.FinalAmountCents),
		ExcessFee:          domain.FormatAmount(b.ExcessFeeCents),
		FinalTotal:         domain.FormatAmount(b.FinalTotalCents()),
		RefundStatus:       string(b.RefundStatus),
		RefundAmount:       domain.FormatAmount(b.RefundAmountCents),
		RefundReason:       b.RefundReason,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		ClosedAt:           b.ClosedAt,
		LatestOrderID:      b.LatestOrderID,
		CreatedAt:          b.CreatedAt,
	}
}

type QuoteResponse struct {
	BaseAmount     string `json:"base_amount"`
	DiscountAmount string `json:"discount_amount"`
	FinalAmount    string `json:"final_amount"`
	PromoCode      string `json:"promo_code,omitempty"`
	PromoApplied   bool   `json:"promo_applied"`
	PromoMessage   string `json:"promo_message,omitempty"`
}

// CreateBookingResponse bundles the new booking with the gateway form the client posts next.
type CreateBookingResponse struct {
	Booking BookingResponse     `json:"booking"`
	Spot    string              `json:"spot"`
	Quote   QuoteResponse       `json:"quote"`
	Payment *domain.PaymentForm `json:"payment,omitempty"`
}

func toCreateResponse(res *service.CreateResult, form *domain.PaymentForm) CreateBookingResponse {
	return CreateBookingResponse{
		Booking: toBookingResponse(res.Booking),
		Spot:    res.Spot.Label,
		Quote: QuoteResponse{
			BaseAmount:     domain.FormatAmount(res.Quote.BaseCents),
			DiscountAmount: domain.FormatAmount(res.Quote.DiscountCents),
			FinalAmount:    domain.FormatAmount(res.Quote.FinalCents),
			PromoCode:      res.Quote.PromoCode,
			PromoApplied:   res.Quote.PromoApplied,
			PromoMessage:   res.Quote.PromoMessage,
		},
		Payment: form,
	}
}

type ExitPreviewResponse struct {
	BookingID  int64  `json:"booking_id"`
	HoursOver  int64  `json:"hours_over"`
	ExcessFee  string `json:"excess_fee"`
	FinalTotal string `json:"final_total"`
}

type AuditEntryResponse struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AvailabilityResponse struct {
	Floor    int     `json:"floor"`
	Occupied []int64 `json:"occupied_spot_ids"`
	Blocked  []int64 `json:"blocked_spot_ids"`
}

// ReceiptResponse is the public view of a booking; it leaves out contact details.
type ReceiptResponse struct {
	BookingID     int64     `json:"booking_id"`
	Spot          string    `json:"spot"`
	Floor         int       `json:"floor"`
	VehiclePlate  string    `json:"vehicle_plate"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Total         string    `json:"total"`
	ReceiptURL    string    `json:"receipt_url"`
}
