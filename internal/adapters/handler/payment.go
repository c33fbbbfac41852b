package handler

import (
	"net/http"
	"net/url"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
)

func (h *Handler) HandleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	form, err := h.payments.InitiatePayment(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, form)
}

// HandleCheckStatus polls the gateway for the booking's latest payment attempt.
func (h *Handler) HandleCheckStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	principal, _ := PrincipalFrom(r.Context())

	res, err := h.payments.PollPaymentStatus(r.Context(), principal, id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// HandlePaymentCallback is the gateway's server-to-server notification. It always answers
// "OK" so the gateway does not retry signals we have already judged.
func (h *Handler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	result, err := parsePaymentForm(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "unreadable payment callback", "error", err)
	} else if _, err := h.payments.ApplyPaymentResult(r.Context(), result); err != nil {
		h.logger.WarnContext(r.Context(), "payment callback rejected",
			"order_id", result.OrderID,
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandlePaymentReturn handles the shopper's browser coming back from the gateway and
// redirects to the frontend status page.
func (h *Handler) HandlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	result, err := parsePaymentForm(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "unreadable payment return", "error", err)
		h.redirectStatus(w, r, "failed", "", "")
		return
	}

	applied, err := h.payments.ApplyPaymentResult(r.Context(), result)
	if err != nil {
		h.logger.WarnContext(r.Context(), "payment return rejected",
			"order_id", result.OrderID,
			"error", err,
		)
		h.redirectStatus(w, r, "failed", result.StatusCode, result.OrderID)
		return
	}

	status := "failed"
	switch applied.Outcome {
	case domain.OutcomeSuccess:
		status = "success"
	case domain.OutcomeProcessing:
		status = "pending"
	}
	h.redirectStatus(w, r, status, result.StatusCode, result.OrderID)
}

func (h *Handler) redirectStatus(w http.ResponseWriter, r *http.Request, status, code, orderID string) {
	q := url.Values{}
	q.Set("status", status)
	if code != "" {
		q.Set("code", code)
	}
	if orderID != "" {
		q.Set("orderId", orderID)
	}
	http.Redirect(w, r, h.frontendURL+"/payment-status?"+q.Encode(), http.StatusSeeOther)
}

// parsePaymentForm reads the gateway's rp_* form fields.
func parsePaymentForm(r *http.Request) (domain.PaymentResult, error) {
	if err := r.ParseForm(); err != nil {
		return domain.PaymentResult{}, err
	}
	checksum := r.PostForm.Get("rp_checkSum")
	if checksum == "" {
		checksum = r.PostForm.Get("rp_checksum")
	}
	return domain.PaymentResult{
		AppID:          r.PostForm.Get("rp_appId"),
		Currency:       r.PostForm.Get("rp_currency"),
		Amount:         r.PostForm.Get("rp_amount"),
		StatusCode:     r.PostForm.Get("rp_statusCode"),
		OrderID:        r.PostForm.Get("rp_orderId"),
		TransactionRef: r.PostForm.Get("rp_transactionRef"),
		Checksum:       checksum,
	}, nil
}
