// Package worker contains the send core: the delivery transports, the
// error classifier, the retry policy and the batch engine that walks a
// roster under the daily quota.
package worker

import (
	"context"

	"github.com/ignite/bulksend/internal/domain"
)

// Sender is a delivery transport for one campaign run. EnsureLive
// brings the underlying session up or verifies it, Send delivers one
// message, Close tears the session down. Close must be idempotent: the
// engine closes at every batch boundary and again during finalization.
type Sender interface {
	EnsureLive(ctx context.Context) error
	Send(ctx context.Context, msg *domain.Message) error
	Close() error
}
