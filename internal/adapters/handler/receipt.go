package handler

import (
	"net/http"
	"strconv"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/google/uuid"
)

// HandleReceiptQR renders the QR code for a booking the caller can see.
func (h *Handler) HandleReceiptQR(w http.ResponseWriter, r *http.Request) {
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
	png, err := h.receipts.PNG(b.PublicToken)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render receipt", "booking_id", b.ID, "error", err)
		respondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandlePublicReceipt resolves a scanned receipt. Holding the token is the only authorization.
func (h *Handler) HandlePublicReceipt(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(r.PathValue("token"))
	if err != nil {
		respondWithError(w, domain.NewBookingNotFoundError(r.PathValue("token")))
		return
	}

	b, spot, err := h.bookings.GetByToken(r.Context(), token)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ReceiptResponse{
		BookingID:     b.ID,
		Spot:          spot.Label,
		Floor:         spot.Floor,
		VehiclePlate:  b.VehiclePlate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Total:         domain.FormatAmount(b.FinalTotalCents()),
		ReceiptURL:    h.receipts.URL(b.PublicToken),
	})
}
