package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/service"
)

type CreateBookingRequest struct {
	SpotID       int64     `json:"spot_id" validate:"required,gt=0"`
	VehiclePlate string    `json:"vehicle_plate" validate:"required,max=20"`
	ContactEmail string    `json:"contact_email" validate:"required,email"`
	ContactName  string    `json:"contact_name" validate:"max=120"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required"`
	PromoCode    string    `json:"promo_code" validate:"max=50"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// HandleCreateBooking reserves a spot and, when possible, opens the first payment attempt so the
// client can go straight to the gateway.
func (h *Handler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, invalidRequest("request body must be valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, invalidRequest(err.Error()))
		return
	}

	res, err := h.bookings.Create(r.Context(), principal, service.CreateBookingCommand{
		SpotID:       req.SpotID,
		VehiclePlate: req.VehiclePlate,
		ContactEmail: req.ContactEmail,
		ContactName:  req.ContactName,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		PromoCode:    req.PromoCode,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	form, err := h.payments.InitiatePayment(r.Context(), principal, res.Booking.ID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "booking created without payment form",
			"booking_id", res.Booking.ID,
			"error", err,
		)
	}

	respondWithJSON(w, http.StatusCreated, toCreateResponse(res, form))
}

func (h *Handler) HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	b, err := h.bookings.Get(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	entries, err := h.bookings.ListAudit(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			Action:    e.Action,
			Actor:     e.Actor,
			OldStatus: e.OldStatus,
			NewStatus: e.NewStatus,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	var req CancelBookingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, invalidRequest("request body must be valid JSON"))
			return
		}
		if err := h.validate.Struct(req); err != nil {
			respondWithError(w, invalidRequest(err.Error()))
			return
		}
	}

	b, err := h.bookings.Cancel(r.Context(), principal, id, req.Reason)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) HandleCloseBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	b, err := h.bookings.Close(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handler) HandleExitPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	p, err := h.bookings.PreviewExit(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ExitPreviewResponse{
		BookingID:  p.BookingID,
		HoursOver:  p.HoursOver,
		ExcessFee:  domain.FormatAmount(p.ExcessFeeCents),
		FinalTotal: domain.FormatAmount(p.FinalTotalCents),
	})
}

func (h *Handler) HandleSettleRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	b, err := h.bookings.SettleRefund(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toBookingResponse(b))
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, invalidRequest("booking id must be a positive integer"))
		return 0, false
	}
	return id, true
}
