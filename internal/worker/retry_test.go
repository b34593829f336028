package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulksend/internal/domain"
)

func instantRetryPolicy() *RetryPolicy {
	return &RetryPolicy{maxAttempts: 3, baseDelay: 0, maxDelay: time.Second}
}

func retryTarget() (domain.Recipient, *domain.Message) {
	r := domain.Recipient{Address: "jo@example.net", AuxiliaryData: "Jo"}
	return r, &domain.Message{
		Subject:          "Hi",
		TextBody:         "Hello",
		SenderAddress:    "ops@example.com",
		RecipientAddress: r.Address,
	}
}

func TestSendWithRetryFirstAttemptSucceeds(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.False(t, result.SentAt.IsZero())
	assert.Equal(t, 1, sender.sendCalls)
	assert.Equal(t, 0, sender.ensureCalls, "no revive before the first attempt")
}

func TestSendWithRetryRecoversAfterTransient(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address, transientErr("greylisted"), transientErr("greylisted"))

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, sender.sendCalls)
	assert.Equal(t, 2, sender.ensureCalls, "session revived before each re-attempt")
}

func TestSendWithRetryPermanentFailureStopsEarly(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address, permanentErr("no such user"))

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.NoError(t, err, "a permanent rejection is an outcome, not an abort")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, domain.ErrKindPermanentSend, result.ErrorKind)
	assert.Contains(t, result.Error, "no such user")
	assert.Equal(t, 1, sender.sendCalls)
}

func TestSendWithRetryExhaustsAttempts(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address,
		transientErr("busy"), transientErr("busy"), transientErr("busy"))

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, domain.ErrKindTransientSend, result.ErrorKind)
	assert.Equal(t, 3, sender.sendCalls)
}

func TestSendWithRetryAuthFailureAborts(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address, authErr("session lost authentication"))

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.Error(t, err)

	assert.Equal(t, domain.ErrKindAuthentication, domain.KindOf(err))
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestSendWithRetryReviveFailureConsumesAttempt(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address, transientErr("busy"))
	sender.ensureErrs = []error{
		domain.Classify(domain.ErrKindConnectivity, assert.AnError),
		domain.Classify(domain.ErrKindConnectivity, assert.AnError),
	}

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, domain.ErrKindConnectivity, result.ErrorKind)
	assert.Equal(t, 1, sender.sendCalls, "attempts two and three died during revive")
}

func TestSendWithRetryReviveAuthFailureAborts(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address, transientErr("busy"))
	sender.ensureErrs = []error{authErr("bad credentials")}

	result, err := instantRetryPolicy().SendWithRetry(context.Background(), sender, r, msg)
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindAuthentication, domain.KindOf(err))
	assert.Equal(t, 2, result.Attempts)
}

func TestSendWithRetryCancelledDuringWait(t *testing.T) {
	sender := newFakeSender()
	r, msg := retryTarget()
	sender.failWith(r.Address, transientErr("busy"))

	policy := &RetryPolicy{maxAttempts: 3, baseDelay: 200 * time.Millisecond, maxDelay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := policy.SendWithRetry(ctx, sender, r, msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, result.Success)
	assert.Equal(t, 1, sender.sendCalls, "no re-attempt after cancellation")
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	policy := &RetryPolicy{maxAttempts: 5, baseDelay: 5 * time.Second, maxDelay: 60 * time.Second}

	bounds := []struct {
		attempt  int
		min, max time.Duration
	}{
		{1, 5 * time.Second, 6500 * time.Millisecond},
		{2, 10 * time.Second, 13 * time.Second},
		{3, 20 * time.Second, 26 * time.Second},
		{4, 40 * time.Second, 52 * time.Second},
		{5, 60 * time.Second, 60 * time.Second},
	}
	for _, b := range bounds {
		for i := 0; i < 20; i++ {
			wait := policy.backoff(b.attempt)
			assert.GreaterOrEqual(t, wait, b.min, "attempt %d", b.attempt)
			assert.LessOrEqual(t, wait, b.max, "attempt %d", b.attempt)
		}
	}
}

func TestBackoffNeverShrinks(t *testing.T) {
	policy := &RetryPolicy{maxAttempts: 4, baseDelay: 5 * time.Second, maxDelay: 60 * time.Second}

	for i := 0; i < 50; i++ {
		first := policy.backoff(1)
		second := policy.backoff(2)
		third := policy.backoff(3)
		assert.GreaterOrEqual(t, second, first)
		assert.GreaterOrEqual(t, third, second)
	}
}
