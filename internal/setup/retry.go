package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/malbeclabs/resolver-setup/sdk/evm"
)

// readWithRetry retries a read-only call on transport errors. Reverts are returned immediately.
func readWithRetry[T any](ctx context.Context, log *slog.Logger, what string, maxTries uint, period time.Duration, read func(context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = period

	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		if attempt > 0 {
			log.Warn("Failed to read, retrying", "what", what, "attempt", attempt)
		}
		attempt++
		v, err := read(ctx)
		if err != nil && errors.Is(err, evm.ErrTransactionReverted) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(maxTries))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return v, nil
}
