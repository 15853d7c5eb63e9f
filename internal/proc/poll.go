package proc

import (
	"context"
	"fmt"
	"time"

	"github.com/shipway/shipway/internal/model"
)

// Poll calls fn every interval until it reports done, fails, the context is
// canceled or maxWait elapses. A maxWait of 0 means no limit. Exceeding
// maxWait returns model.ErrTimeout, a distinct failure mode from fn itself
// reporting a negative result.
func Poll(ctx context.Context, interval, maxWait time.Duration, fn func(ctx context.Context) (done bool, err error)) error {
	var deadline <-chan time.Time
	if maxWait > 0 {
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("polling: %w", model.ErrCanceled)
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("polling: %w", model.ErrCanceled)
		case <-deadline:
			return fmt.Errorf("polling exceeded %s: %w", maxWait, model.ErrTimeout)
		case <-ticker.C:
		}
	}
}
