// Package retry provides a caller-side retry wrapper with exponential
// backoff. The engine itself never retries a failed oracle call or parse
// failure; callers that want retries wrap the call with an Executor.
package retry

import (
	"context"
	"time"

	"github.com/tagus/contactgraph/pkg/logging"
)

// Policy describes the backoff schedule.
type Policy struct {
	InitialInterval    time.Duration
	BackoffCoefficient float64
	MaximumInterval    time.Duration
	MaximumAttempts    int32
}

// Option represents an option for configuring a Policy.
type Option func(*Policy)

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(interval time.Duration) Option {
	return func(p *Policy) {
		p.InitialInterval = interval
	}
}

// WithBackoffCoefficient sets the backoff multiplier between attempts.
func WithBackoffCoefficient(coefficient float64) Option {
	return func(p *Policy) {
		p.BackoffCoefficient = coefficient
	}
}

// WithMaximumInterval caps the delay between attempts.
func WithMaximumInterval(interval time.Duration) Option {
	return func(p *Policy) {
		p.MaximumInterval = interval
	}
}

// WithMaximumAttempts sets the total number of attempts.
func WithMaximumAttempts(attempts int32) Option {
	return func(p *Policy) {
		p.MaximumAttempts = attempts
	}
}

// NewPolicy creates a Policy with sensible defaults.
func NewPolicy(options ...Option) *Policy {
	policy := &Policy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    3,
	}

	for _, option := range options {
		option(policy)
	}

	return policy
}

// Executor runs operations under a retry policy.
type Executor struct {
	policy *Policy
	logger logging.Logger
}

// NewExecutor creates an Executor with the given policy.
func NewExecutor(policy *Policy) *Executor {
	return &Executor{
		policy: policy,
		logger: logging.New(),
	}
}

// Execute runs the operation, retrying per the policy until it succeeds, the
// attempts are exhausted, or the context is done.
func (e *Executor) Execute(ctx context.Context, operation func() error) error {
	var lastErr error
	interval := e.policy.InitialInterval

	for attempt := int32(1); attempt <= e.policy.MaximumAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := operation(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == e.policy.MaximumAttempts {
			break
		}

		e.logger.Debug(ctx, "Operation failed, scheduling retry", map[string]interface{}{
			"attempt":  attempt,
			"error":    lastErr.Error(),
			"interval": interval.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * e.policy.BackoffCoefficient)
		if interval > e.policy.MaximumInterval {
			interval = e.policy.MaximumInterval
		}
	}

	return lastErr
}
