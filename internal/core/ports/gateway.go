package ports

import (
	"context"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
)

// GatewayPort is the polling side of the external payment gateway.
type GatewayPort interface {
	Enquire(ctx context.Context, orderID, transactionRef string) (*domain.PaymentResult, error)
}

// Signer computes and verifies gateway checksums.
type Signer interface {
	RequestChecksum(currency, amount, orderID string) string
	Verify(result domain.PaymentResult) bool
}
