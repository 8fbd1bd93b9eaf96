package translation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type sleepFunc func(ctx context.Context, d time.Duration)

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// withRetries calls a provider up to maxAttempts times, waiting
// baseDelay x attempt between attempts. Success ends the loop. A
// rate-limit outcome is returned immediately and must not be retried:
// the caller disables the provider for the remainder of the run.
func withRetries(
	ctx context.Context,
	logger zerolog.Logger,
	provider Provider,
	req Request,
	maxAttempts int,
	baseDelay time.Duration,
	sleep sleepFunc,
) Outcome {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if sleep == nil {
		sleep = sleepWithContext
	}

	var last Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = provider.Translate(ctx, req)
		switch last.Kind {
		case OutcomeSuccess, OutcomeRateLimited:
			return last
		}

		logger.Debug().
			Str("provider", provider.Name()).
			Int("attempt", attempt).
			Str("outcome", last.Kind.String()).
			Err(last.Err).
			Msg("provider attempt failed")

		if ctx.Err() != nil {
			return NetworkError(ctx.Err())
		}
		if attempt < maxAttempts {
			sleep(ctx, baseDelay*time.Duration(attempt))
		}
	}
	return last
}
