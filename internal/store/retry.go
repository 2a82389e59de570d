package store

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	retryBaseDelay   = 100 * time.Millisecond
	retryMaxAttempts = 3
)

// withRetry runs op, re-running it with fibonacci backoff when the
// classifier marks the failure as transient. Non-retryable failures and
// domain sentinels pass through on the first attempt.
func withRetry(ctx context.Context, classifier ErrorClassificator, op func() error) error {
	backoff := retry.WithMaxRetries(retryMaxAttempts, retry.NewFibonacci(retryBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op()
		if err == nil {
			return nil
		}
		if classifier.Classify(err) == Retryable {
			return retry.RetryableError(err)
		}
		return err
	})
}
