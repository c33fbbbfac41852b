package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const sweepLeaseKey = "parking:sweep_lease"

// releaseScript deletes the lease only if this process still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLease is a SET NX lease that keeps sweepers on different instances from overlapping.
type SweepLease struct {
	client *redis.Client
	key    string
	owner  string
	logger *slog.Logger

	mu   sync.Mutex
	held bool
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewSweepLease(client *redis.Client, logger *slog.Logger) *SweepLease {
	return &SweepLease{
		client: client,
		key:    sweepLeaseKey,
		owner:  uuid.NewString(),
		logger: logger,
	}
}

// Acquire claims the lease for ttl. It reports false when another instance holds it.
func (l *SweepLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lease: %w", err)
	}
	l.mu.Lock()
	l.held = ok
	l.mu.Unlock()
	if !ok {
		l.logger.DebugContext(ctx, "sweep lease held elsewhere", "key", l.key)
	}
	return ok, nil
}

// Release gives the lease back early. A lease that already expired or moved to another owner is left alone.
func (l *SweepLease) Release(ctx context.Context) error {
	l.mu.Lock()
	held := l.held
	l.held = false
	l.mu.Unlock()
	if !held {
		return nil
	}

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Int()
	if err != nil {
		return fmt.Errorf("release sweep lease: %w", err)
	}
	if n == 0 {
		l.logger.WarnContext(ctx, "sweep lease expired before release", "key", l.key)
	}
	return nil
}

var _ ports.SweepLease = (*SweepLease)(nil)
