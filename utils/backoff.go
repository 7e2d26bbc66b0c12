package utils

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// Backoff retries an operation with exponential delays: attempt n (0 based)
// waits BaseDelay * 2^n plus a random jitter in [0, MaxJitter). Sleep and
// Jitter are injectable so tests observe delays without waiting.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration

	Sleep  func(time.Duration)
	Jitter func(max time.Duration) time.Duration
}

func defaultJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// Delay returns the wait before retry number attempt+1.
func (b Backoff) Delay(attempt int) time.Duration {
	jitter := b.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}
	if attempt > 30 {
		attempt = 30
	}
	return b.BaseDelay*time.Duration(1<<uint(attempt)) + jitter(b.MaxJitter)
}

// Retry calls op until it succeeds, returns a non retryable error, the attempt
// ceiling is reached or ctx is done. It returns the number of calls made.
func (b Backoff) Retry(ctx context.Context, op func() error, retryable func(error) bool) (int, error) {
	sleep := b.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	maxAttempts := b.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = op(); err == nil {
			return attempt + 1, nil
		}
		if retryable == nil || !retryable(err) {
			return attempt + 1, err
		}
		if attempt == maxAttempts-1 {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt + 1, errors.Wrap(err, ctxErr.Error())
		}
		sleep(b.Delay(attempt))
	}
	return maxAttempts, errors.Wrapf(err, "giving up after %d attempts", maxAttempts)
}
