package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/message"
	"github.com/ignite/bulksend/internal/pkg/logger"
	"github.com/ignite/bulksend/internal/quota"
)

// Engine lifecycle phases, visible through the status API.
const (
	phaseIdle     = "idle"
	phaseSending  = "sending"
	phasePaused   = "paused"
	phaseFinished = "finished"
)

// Engine runs one campaign: it walks the roster in order, paces each
// send, rotates the connection between batches and stops hard when the
// daily quota is spent. A run is one logical thread of control; the
// mutex only lets the status server watch it.
type Engine struct {
	sender  Sender
	tracker *quota.Tracker
	builder *message.Builder
	retry   *RetryPolicy
	cfg     config.SendingConfig

	mu             sync.Mutex
	stats          domain.RunStatistics
	phase          string
	invalidSkipped int
}

func NewEngine(sender Sender, tracker *quota.Tracker, builder *message.Builder, cfg config.SendingConfig) *Engine {
	return &Engine{
		sender:  sender,
		tracker: tracker,
		builder: builder,
		retry:   NewRetryPolicy(cfg),
		cfg:     cfg,
		phase:   phaseIdle,
	}
}

// SetInvalidSkipped records how many roster rows were dropped during
// loading so the final report carries them.
func (e *Engine) SetInvalidSkipped(n int) {
	e.mu.Lock()
	e.stats.InvalidSkipped = n
	e.invalidSkipped = n
	e.mu.Unlock()
}

// Run executes the campaign against the roster and always returns
// finalized statistics, whatever ended the run. The error is non-nil
// only for run-aborting conditions; an operator interrupt or an
// exhausted quota is a normal ending.
func (e *Engine) Run(ctx context.Context, roster []domain.Recipient, mode domain.SendMode) (*domain.RunStatistics, error) {
	if mode == domain.ModeTest && len(roster) > e.cfg.TestModeCount {
		logger.Info("test mode, truncating roster",
			"limit", e.cfg.TestModeCount, "roster", len(roster))
		roster = roster[:e.cfg.TestModeCount]
	}

	e.mu.Lock()
	e.stats = domain.RunStatistics{
		RunID:          uuid.New().String(),
		Mode:           mode,
		InvalidSkipped: e.invalidSkipped,
		StartedAt:      time.Now(),
		Results:        make([]domain.SendResult, 0, len(roster)),
	}
	e.phase = phaseSending
	runID := e.stats.RunID
	e.mu.Unlock()

	logger.Info("run started",
		"run_id", runID,
		"mode", string(mode),
		"recipients", len(roster),
		"batch_size", e.cfg.BatchSize,
		"quota_remaining", e.tracker.Remaining())

	runErr := e.sendAll(ctx, roster)

	// Finalization happens on every exit path: completion, quota
	// exhaustion, cancellation and fatal abort alike.
	e.sender.Close()
	e.mu.Lock()
	e.stats.FinishedAt = time.Now()
	e.phase = phaseFinished
	snap := e.copyStatsLocked()
	e.mu.Unlock()
	e.logReport(&snap)
	return &snap, runErr
}

// sendAll is the scheduling loop. All early exits funnel back to Run's
// finalization.
func (e *Engine) sendAll(ctx context.Context, roster []domain.Recipient) error {
	if err := e.sender.EnsureLive(ctx); err != nil {
		logger.Error("could not open session, aborting run", "error", err)
		e.markRemaining(len(roster))
		return err
	}

	total := len(roster)
	for i, r := range roster {
		if err := ctx.Err(); err != nil {
			logger.Info("run interrupted", "completed", i, "total", total)
			e.markRemaining(total - i)
			return nil
		}

		// Hard quota stop: a recipient past the limit is never
		// attempted, only counted.
		if !e.tracker.CanSend() {
			logger.Warn("daily hard limit reached, stopping run",
				"limit", e.tracker.HardLimit(),
				"sent_today", e.tracker.State().CountSentToday,
				"remaining_recipients", total-i)
			e.markRemaining(total - i)
			return nil
		}

		msg := e.builder.Build(r)
		result, sendErr := e.retry.SendWithRetry(ctx, e.sender, r, &msg)
		e.record(result)

		if result.Success {
			if err := e.tracker.RecordSent(ctx); err != nil {
				logger.Error("quota state could not be persisted, aborting run", "error", err)
				e.markRemaining(total - i - 1)
				return err
			}
			if e.tracker.SoftExceeded() {
				logger.Warn("approaching daily limit",
					"sent_today", e.tracker.State().CountSentToday,
					"soft_limit", e.tracker.SoftLimit(),
					"remaining", e.tracker.Remaining())
			}
			logger.Info("sent",
				"recipient", r.Address,
				"attempts", result.Attempts,
				"progress", fmt.Sprintf("%d/%d", i+1, total))
		} else {
			logger.Warn("recipient failed",
				"recipient", r.Address,
				"kind", string(result.ErrorKind),
				"attempts", result.Attempts,
				"error", result.Error)
		}

		if sendErr != nil {
			e.markRemaining(total - i - 1)
			if errors.Is(sendErr, context.Canceled) || errors.Is(sendErr, context.DeadlineExceeded) {
				logger.Info("run interrupted mid-cycle", "completed", i+1, "total", total)
				return nil
			}
			logger.Error("aborting run", "kind", string(domain.KindOf(sendErr)), "error", sendErr)
			return sendErr
		}

		if i+1 == total {
			break
		}
		if err := e.pace(ctx); err != nil {
			e.markRemaining(total - i - 1)
			return nil
		}
		if (i+1)%e.cfg.BatchSize == 0 {
			if err := e.refreshSession(ctx, (i+1)/e.cfg.BatchSize); err != nil {
				e.markRemaining(total - i - 1)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

// refreshSession rotates the connection at a batch boundary: close,
// pause, reopen. A reopen that fails transiently is left to the next
// recipient's retry cycle.
func (e *Engine) refreshSession(ctx context.Context, batch int) error {
	e.sender.Close()
	e.setPhase(phasePaused)
	defer e.setPhase(phaseSending)

	logger.Info("batch complete, pausing",
		"batch", batch, "pause", e.cfg.BatchPause().String())
	if err := sleepCtx(ctx, e.cfg.BatchPause()); err != nil {
		return err
	}
	if err := e.sender.EnsureLive(ctx); err != nil {
		if domain.KindOf(err).Fatal() {
			return err
		}
		logger.Warn("reopen after pause failed, retry cycle will recover", "error", err)
	}
	return nil
}

// pace waits the randomized delay between two consecutive sends.
func (e *Engine) pace(ctx context.Context) error {
	min := e.cfg.PerEmailDelayMin()
	max := e.cfg.PerEmailDelayMax()
	delay := min
	if max > min {
		delay += time.Duration(rand.Int63n(int64(max - min)))
	}
	return sleepCtx(ctx, delay)
}

func (e *Engine) record(result domain.SendResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.TotalAttempted++
	if result.Success {
		e.stats.Succeeded++
	} else {
		e.stats.Failed++
	}
	if result.Attempts > 1 {
		e.stats.TotalRetryAttempts += result.Attempts - 1
	}
	e.stats.Results = append(e.stats.Results, result)
}

func (e *Engine) markRemaining(n int) {
	if n <= 0 {
		return
	}
	e.mu.Lock()
	e.stats.RemainingUnattempted = n
	e.mu.Unlock()
}

func (e *Engine) setPhase(p string) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// Phase reports where in its lifecycle the engine is: idle, sending,
// paused or finished.
func (e *Engine) Phase() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Snapshot returns a copy of the live run state for observers.
func (e *Engine) Snapshot() domain.RunStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyStatsLocked()
}

func (e *Engine) copyStatsLocked() domain.RunStatistics {
	snap := e.stats
	snap.Results = append([]domain.SendResult(nil), e.stats.Results...)
	return snap
}

func (e *Engine) logReport(stats *domain.RunStatistics) {
	logger.Info("run finished",
		"run_id", stats.RunID,
		"mode", string(stats.Mode),
		"attempted", stats.TotalAttempted,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"invalid_skipped", stats.InvalidSkipped,
		"retry_attempts", stats.TotalRetryAttempts,
		"remaining_unattempted", stats.RemainingUnattempted,
		"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		"duration", stats.Duration().String(),
		"quota_remaining", e.tracker.Remaining())
}
