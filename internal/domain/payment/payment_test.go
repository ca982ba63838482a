package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusRejected, StatusCancelled, StatusRefunded} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProcess.Terminal())
}

func TestPayment_RejectCountsRetries(t *testing.T) {
	now := time.Now().UTC()
	p := &Payment{Status: StatusPending}

	p.Reject("cc_rejected_insufficient_amount", now)
	p.Reject("cc_rejected_other_reason", now)

	assert.Equal(t, StatusRejected, p.Status)
	assert.Equal(t, 2, p.RetryCount)
	assert.Equal(t, "cc_rejected_other_reason", p.FailureReason)
	require.NotNil(t, p.LastRetryAt)
}

func TestPayment_Cancel(t *testing.T) {
	now := time.Now().UTC()
	p := &Payment{Status: StatusPending}
	require.NoError(t, p.Cancel(now))
	assert.Equal(t, StatusCancelled, p.Status)

	p.Approve("accredited", "visa", now)
	assert.ErrorIs(t, p.Cancel(now), ErrCannotCancel)
}

func TestPayment_CloneCopiesPointers(t *testing.T) {
	now := time.Now().UTC()
	p := &Payment{Metadata: []byte(`{"a":1}`)}
	p.Approve("accredited", "", now)

	c := p.Clone()
	*c.ApprovedAt = now.Add(time.Hour)
	c.Metadata[0] = '['
	assert.Equal(t, now, *p.ApprovedAt)
	assert.Equal(t, byte('{'), p.Metadata[0])
}
