package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
)

type RetryGatewayClient struct {
	inner      ports.GatewayPort
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner ports.GatewayPort, cfg config.RetryConfig) ports.GatewayPort {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
	}
}

// Enquire with retry logic. Enquiry is read-only on the gateway side, so repeating it is safe.
func (r *RetryGatewayClient) Enquire(ctx context.Context, orderID, transactionRef string) (*domain.PaymentResult, error) {
	return retry(r, ctx, func(ctx context.Context) (*domain.PaymentResult, error) {
		return r.inner.Enquire(ctx, orderID, transactionRef)
	})
}

// Generic retry helper
func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(r.baseDelay)))
	return base + jitter
}
