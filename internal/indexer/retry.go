package indexer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"jackpotIndexer/internal/metrics"
)

// retryPolicy builds an exponential backoff starting at baseDelay. A negative
// maxRetries retries until ctx is done.
func retryPolicy(ctx context.Context, maxRetries int, baseDelay time.Duration) backoff.BackOff {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(baseDelay),
		backoff.WithMaxInterval(30*time.Second),
		backoff.WithMaxElapsedTime(0),
	)

	var policy backoff.BackOff = exp
	if maxRetries >= 0 {
		policy = backoff.WithMaxRetries(exp, uint64(maxRetries))
	}
	return backoff.WithContext(policy, ctx)
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, op string, logger *zap.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return backoff.RetryNotify(
		func() error {
			return fn(ctx)
		},
		retryPolicy(ctx, maxRetries, baseDelay),
		func(err error, d time.Duration) {
			metrics.RPCRetries.WithLabelValues(op).Inc()
			logger.Warn("request failed, retrying", zap.String("op", op), zap.Error(err), zap.Duration("retry_in", d))
		},
	)
}
