package domain

import "time"

// SendMode selects how much of the roster a run consumes.
type SendMode string

const (
	// ModeProduction sends to the full roster.
	ModeProduction SendMode = "production"
	// ModeTest caps the run to a small fixed prefix of the roster,
	// used for dry runs before a full campaign.
	ModeTest SendMode = "test"
)

// SendResult records the outcome of one recipient's send, including
// every retry attempt. Exactly one of the two variants holds:
// Success carries the attempt count; Failure additionally carries the
// kind of the last classified error. Results are immutable and appear
// in RunStatistics in roster order.
type SendResult struct {
	Recipient Recipient `json:"recipient"`
	Success   bool      `json:"success"`
	Attempts  int       `json:"attempts"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at,omitzero"`
}

// RunStatistics aggregates a whole run. Created at run start, mutated
// incrementally by the scheduler, finalized and reported at run end
// regardless of how the run ended.
type RunStatistics struct {
	RunID                string       `json:"run_id"`
	Mode                 SendMode     `json:"mode"`
	TotalAttempted       int          `json:"total_attempted"`
	Succeeded            int          `json:"succeeded"`
	Failed               int          `json:"failed"`
	InvalidSkipped       int          `json:"invalid_skipped"`
	TotalRetryAttempts   int          `json:"total_retry_attempts"`
	RemainingUnattempted int          `json:"remaining_unattempted"`
	StartedAt            time.Time    `json:"started_at"`
	FinishedAt           time.Time    `json:"finished_at,omitzero"`
	Results              []SendResult `json:"results,omitempty"`
}

// SuccessRate returns the percentage of attempted sends that succeeded,
// or zero when nothing was attempted.
func (s *RunStatistics) SuccessRate() float64 {
	if s.TotalAttempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.TotalAttempted) * 100
}

// Duration returns the wall-clock span of the run. Zero until finalized.
func (s *RunStatistics) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
