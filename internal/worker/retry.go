package worker

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/pkg/logger"
)

// RetryPolicy bounds how often a single message is attempted and how
// long to wait between attempts.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func NewRetryPolicy(cfg config.SendingConfig) *RetryPolicy {
	return &RetryPolicy{
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.RetryBase(),
		maxDelay:    cfg.RetryMaxDelay(),
	}
}

// SendWithRetry attempts msg up to maxAttempts times, waiting with
// exponential backoff between attempts and reviving the session before
// each re-attempt. Per-recipient outcomes come back as a SendResult;
// the error return is reserved for conditions that end the whole run,
// authentication and persistence failures or cancellation mid-cycle.
func (rp *RetryPolicy) SendWithRetry(ctx context.Context, sender Sender, r domain.Recipient, msg *domain.Message) (domain.SendResult, error) {
	result := domain.SendResult{Recipient: r}
	var lastErr error

	for attempt := 1; attempt <= rp.maxAttempts; attempt++ {
		result.Attempts = attempt

		if attempt > 1 {
			wait := rp.backoff(attempt - 1)
			logger.Info("retrying send",
				"recipient", r.Address,
				"attempt", attempt,
				"max_attempts", rp.maxAttempts,
				"wait", wait.String())
			if err := sleepCtx(ctx, wait); err != nil {
				return failureResult(result, lastErr), err
			}
			if err := sender.EnsureLive(ctx); err != nil {
				lastErr = err
				if domain.KindOf(err).Fatal() {
					return failureResult(result, err), err
				}
				logger.Warn("session revive failed",
					"recipient", r.Address, "attempt", attempt, "error", err)
				continue
			}
		}

		err := sender.Send(ctx, msg)
		if err == nil {
			result.Success = true
			result.SentAt = time.Now()
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return failureResult(result, err), ctxErr
		}
		lastErr = err

		kind := domain.KindOf(err)
		logger.Warn("send attempt failed",
			"recipient", r.Address,
			"attempt", attempt,
			"kind", string(kind),
			"error", err)
		if kind.Fatal() {
			return failureResult(result, err), err
		}
		if !kind.Retryable() {
			return failureResult(result, err), nil
		}
	}

	return failureResult(result, lastErr), nil
}

// backoff returns the wait before re-attempt i (1-based): the base
// delay doubling per step, capped at maxDelay, plus up to 30%
// proportional jitter. Jitter is additive so consecutive waits never
// shrink.
func (rp *RetryPolicy) backoff(i int) time.Duration {
	delay := float64(rp.baseDelay) * math.Pow(2, float64(i-1))
	if delay > float64(rp.maxDelay) {
		delay = float64(rp.maxDelay)
	}
	delay *= 1 + 0.3*rand.Float64()
	if delay > float64(rp.maxDelay) {
		delay = float64(rp.maxDelay)
	}
	return time.Duration(delay)
}

func failureResult(result domain.SendResult, err error) domain.SendResult {
	result.Success = false
	if err != nil {
		result.ErrorKind = domain.KindOf(err)
		result.Error = err.Error()
	}
	return result
}

// sleepCtx waits for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
