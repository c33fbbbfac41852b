package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
)

// Signer holds the gateway secrets. Outgoing requests are signed with the request key,
// incoming results are verified against the response key.
type Signer struct {
	appID       string
	requestKey  string
	responseKey string
}

func NewSigner(cfg config.GatewayConfig) *Signer {
	return &Signer{
		appID:       cfg.AppID,
		requestKey:  cfg.RequestKey,
		responseKey: cfg.ResponseKey,
	}
}

// RequestChecksum signs appId|currency|amount|orderId|requestKey.
func (s *Signer) RequestChecksum(currency, amount, orderID string) string {
	return checksum(s.appID, currency, amount, orderID, s.requestKey)
}

// EnquiryChecksum signs appId|orderId|transactionRef|requestKey. An unknown ref is left empty.
func (s *Signer) EnquiryChecksum(orderID, transactionRef string) string {
	return checksum(s.appID, orderID, transactionRef, s.requestKey)
}

// Verify recomputes appId|currency|amount|statusCode|orderId|transactionRef|responseKey
// over the fields exactly as received and compares in constant time.
func (s *Signer) Verify(r domain.PaymentResult) bool {
	if r.Checksum == "" {
		return false
	}
	want := checksum(r.AppID, r.Currency, r.Amount, r.StatusCode, r.OrderID, r.TransactionRef, s.responseKey)
	got := strings.ToUpper(strings.TrimSpace(r.Checksum))
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func checksum(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
