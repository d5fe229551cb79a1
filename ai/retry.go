// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// MaxBackoffDelay caps the wait between two calls to a model service.
const MaxBackoffDelay = 30 * time.Second

// Backoff is the transport retry policy every provider applies to its
// service calls. The wait starts at the configured delay and doubles after
// each failed attempt, up to MaxBackoffDelay.
type Backoff struct {
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// NewBackoff returns a policy making at most attempts calls. Retries are
// logged to logger, or to slog.Default() when it is nil.
func NewBackoff(attempts int, delay time.Duration, logger *slog.Logger) Backoff {
	if logger == nil {
		logger = slog.Default()
	}
	return Backoff{attempts: attempts, delay: delay, logger: logger}
}

// Attempts returns the maximum number of calls Do makes.
func (b Backoff) Attempts() int {
	return b.attempts
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as a failure that another call cannot fix, such as a
// rejected API key or an unknown deployment.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether a failed service call is worth repeating.
// Cancellation, errors marked Permanent and answers that were received but
// unusable are not.
func Retryable(err error) bool {
	var p *permanentError
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &p):
		return false
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrEmbeddingCount):
		return false
	}
	return true
}

// Do calls fn until it succeeds, returns an error Retryable rejects, or the
// attempts run out. op names the call in log lines. The last error is
// returned; ctx cancellation during a wait returns ctx.Err().
func (b Backoff) Do(ctx context.Context, op string, fn func() error) error {
	if b.attempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	delay := b.delay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				b.logger.Info("model service call recovered", "op", op, "attempt", attempt)
			}
			return nil
		}
		if !Retryable(err) {
			b.logger.Debug("model service call not retried", "op", op, "attempt", attempt, "err", err)
			return err
		}
		if attempt == b.attempts {
			return err
		}

		b.logger.Warn("model service call failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", b.attempts,
			"retry_in", delay,
			"err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, MaxBackoffDelay)
	}
}
