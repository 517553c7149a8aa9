package worker

import (
	"math/rand"
	"time"

	"slotbook/internal/models"
)

const (
	auditRetryBaseDelay = 200 * time.Millisecond
	auditRetryMaxDelay  = 5 * time.Second
)

// retryPolicy controls how persistently a failed audit write is repeated
// before the entry is dropped. Waits double per attempt, never exceed
// maxDelay, and carry up to 25% jitter so retries of queued entries do not
// hit the store in lockstep.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts:  models.AuditRetryAttempts,
		baseDelay: auditRetryBaseDelay,
		maxDelay:  auditRetryMaxDelay,
	}
}

// delay returns the wait before retry number attempt (1-based).
func (p retryPolicy) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	base := p.baseDelay
	if base <= 0 {
		base = auditRetryBaseDelay
	}

	d := base << (attempt - 1)
	if p.maxDelay > 0 && d > p.maxDelay {
		d = p.maxDelay
	}
	return d + time.Duration(rand.Int63n(int64(d/4)+1))
}
