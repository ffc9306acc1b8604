package orchestrator

import (
	"math/rand"
	"time"

	"banana-slides/internal/ai"
	"banana-slides/pkg/models"
)

// RetryPolicy bounds how often and how fast failed tasks are retried.
type RetryPolicy struct {
	// BaseDelay is the backoff for the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// MaxOutline is the attempt ceiling for outline generation.
	MaxOutline int
	// MaxContent is the attempt ceiling for content tasks.
	MaxContent int
	// MaxImage is the attempt ceiling for image tasks.
	MaxImage int
	// MaxReview is the attempt ceiling for review calls.
	MaxReview int
}

// DefaultRetryPolicy returns sensible defaults for retry behavior.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		MaxOutline: 3,
		MaxContent: 3,
		MaxImage:   3,
		MaxReview:  3,
	}
}

// maxAttempts returns the attempt ceiling for a task kind.
func (p RetryPolicy) maxAttempts(kind models.TaskKind) int {
	switch kind {
	case models.TaskOutline:
		return p.MaxOutline
	case models.TaskContent:
		return p.MaxContent
	case models.TaskImage:
		return p.MaxImage
	case models.TaskReview:
		return p.MaxReview
	default:
		return 1
	}
}

// delay computes the backoff before retry attempt n (1-indexed first retry).
// Exponential doubling from BaseDelay, capped at MaxDelay, with up to 25%
// jitter so parallel retries don't land on the provider in lockstep.
func (p RetryPolicy) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// shouldRetry decides whether a failed task gets another attempt.
// Provider and malformed-output errors are retryable until the kind's
// ceiling; anything else fails the task immediately.
func (p RetryPolicy) shouldRetry(task *models.Task, err error) bool {
	if !ai.IsRetryable(err) {
		return false
	}
	return task.Attempt < p.maxAttempts(task.Kind)
}
