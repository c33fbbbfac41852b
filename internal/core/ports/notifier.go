package ports

import (
	"context"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
)

// Notifier delivers a message to a booking's contact. Failures are never fatal to the caller.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// SweepLease keeps reconciliation sweeps from overlapping across processes.
type SweepLease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Clock is the single source of "now".
type Clock interface {
	Now() time.Time
}
