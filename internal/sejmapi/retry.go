// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package sejmapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plenumlab/plenum/internal/logging"
	"github.com/plenumlab/plenum/internal/metrics"
)

// retryState is the explicit state of the retry machine. Transitions:
//
//	Idle -> Attempting
//	Attempting -> Succeeded           (attempt returned nil)
//	Attempting -> Waiting             (transient error, attempts left)
//	Attempting -> Exhausted           (permanent/not-found error, context
//	                                   cancellation, or attempts spent)
//	Waiting -> Attempting             (backoff elapsed)
//	Waiting -> Exhausted              (context canceled during backoff)
type retryState int

const (
	stateIdle retryState = iota
	stateAttempting
	stateWaiting
	stateSucceeded
	stateExhausted
)

// retrier re-runs transient failures with exponential backoff. The backoff
// delay starts at baseDelay, doubles per attempt and is capped at maxDelay;
// a server-provided Retry-After overrides the computed delay.
type retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// do runs fn through the retry state machine. Only transient errors are
// retried; permanent and not-found errors end the machine immediately. All
// waits are cancellable through ctx.
func (r *retrier) do(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	var lastErr error
	delay := r.baseDelay
	attempt := 0

	state := stateIdle
	for {
		switch state {
		case stateIdle:
			state = stateAttempting

		case stateAttempting:
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				state = stateExhausted
				continue
			}

			attempt++
			lastErr = fn(ctx)

			switch {
			case lastErr == nil:
				state = stateSucceeded
			case !IsTransient(lastErr):
				state = stateExhausted
			case attempt >= r.maxAttempts:
				lastErr = fmt.Errorf("exhausted %d attempts: %w", attempt, lastErr)
				state = stateExhausted
			default:
				state = stateWaiting
			}

		case stateWaiting:
			wait := delay
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}

			logging.Ctx(ctx).Warn().
				Err(lastErr).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Int("max_attempts", r.maxAttempts).
				Dur("backoff", wait).
				Msg("Transient API failure, backing off")
			metrics.APIRetriesTotal.WithLabelValues(endpoint).Inc()

			select {
			case <-time.After(wait):
				delay *= 2
				if delay > r.maxDelay {
					delay = r.maxDelay
				}
				state = stateAttempting
			case <-ctx.Done():
				lastErr = ctx.Err()
				state = stateExhausted
			}

		case stateSucceeded:
			return nil

		case stateExhausted:
			return lastErr
		}
	}
}
