package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// withRetry runs fn up to attempts times, backing off exponentially, but
// only while failures stay transient. Permanent gateway rejections are
// returned immediately.
func withRetry(ctx context.Context, clock clockwork.Clock, attempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		var transient *TransientError
		if !errors.As(err, &transient) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(delay):
		}
		delay *= 2
	}
	return err
}
