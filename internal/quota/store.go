// Package quota tracks how many sends have counted against the
// provider's daily limit. The counter survives process restarts through
// a pluggable store; everything else about a run is disposable.
package quota

import (
	"context"
	"fmt"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
)

// Store persists the daily quota state between runs. Load returns a
// zero state (not an error) when nothing has been persisted yet;
// errors mean the state exists but could not be read.
type Store interface {
	Load(ctx context.Context) (domain.DailyQuotaState, error)
	Save(ctx context.Context, state domain.DailyQuotaState) error
	Close() error
}

// NewStore builds the configured quota-state store.
func NewStore(ctx context.Context, cfg config.QuotaConfig) (Store, error) {
	switch cfg.Store {
	case "file":
		return NewFileStore(cfg.FilePath), nil
	case "redis":
		return NewRedisStore(cfg.RedisURL)
	case "postgres":
		return OpenPostgresStore(cfg.PostgresDSN)
	case "s3":
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Key, cfg.AWSRegion, cfg.AWSProfile)
	default:
		return nil, fmt.Errorf("unknown quota store %q", cfg.Store)
	}
}
