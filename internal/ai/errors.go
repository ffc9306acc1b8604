// Package ai provides the AI provider boundary for banana-slides.
// The orchestrator only ever sees success, a retryable ProviderError,
// or a bounded-retry GenerationError, never provider protocol details.
package ai

import (
	"errors"
	"fmt"
)

// ProviderError wraps a transport-level failure (timeout, rate limit,
// 5xx). Provider errors are always retryable with backoff.
type ProviderError struct {
	// Op describes the call that failed, e.g. "text.complete".
	Op string
	// Err is the underlying provider error.
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error in %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GenerationError indicates the model answered but the output was
// malformed or empty. Retryable a bounded number of times, then
// treated as permanent.
type GenerationError struct {
	// Op describes the call that produced the bad output.
	Op string
	// Reason explains what was wrong with the output.
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error in %s: %s", e.Op, e.Reason)
}

// IsRetryable reports whether the error may be retried at all.
// The per-kind attempt ceiling still applies on top of this.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return true
	}
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsProviderError reports whether the error is a transport failure.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
