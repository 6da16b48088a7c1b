package crypto

import (
	"context"
	"errors"
	"time"

	"github.com/paysecure/auth-service/internal/pkg/metrics"
	"github.com/paysecure/auth-service/internal/core/ports"
)

var errJobAborted = errors.New("crypto: hash job aborted")

// Runner executes fn on a bounded worker pool.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// PooledHasher runs another hasher's work on a Runner so expensive hashing
// is capped at the pool's worker count.
type PooledHasher struct {
	inner  ports.PasswordHasher
	runner Runner
}

func NewPooledHasher(inner ports.PasswordHasher, runner Runner) *PooledHasher {
	return &PooledHasher{inner: inner, runner: runner}
}

func (h *PooledHasher) Hash(ctx context.Context, raw string) (string, error) {
	var (
		encoded string
		err     = errJobAborted
	)
	if runErr := h.runner.Do(ctx, func() {
		start := time.Now()
		encoded, err = h.inner.Hash(ctx, raw)
		metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}); runErr != nil {
		return "", runErr
	}
	return encoded, err
}

func (h *PooledHasher) Verify(ctx context.Context, raw, encoded string) bool {
	var ok bool
	if err := h.runner.Do(ctx, func() {
		start := time.Now()
		ok = h.inner.Verify(ctx, raw, encoded)
		metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}); err != nil {
		return false
	}
	return ok
}
