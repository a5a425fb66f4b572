// Package retry implements RetryExecutor: bounded retry with a pluggable
// retryable-error classifier, as described in §4.5 of the engine spec.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johndauphine/archive-engine/internal/archiveerr"
)

// Policy controls one named retry wrap. Enabled=false bypasses retry
// entirely and runs the action exactly once.
type Policy struct {
	Enabled           bool
	MaxRetryCount     int // additional attempts beyond the first; 0..10
	RetryDelaySeconds int // 0..300
}

// DefaultPolicy matches §6's recognized-options defaults.
func DefaultPolicy() Policy {
	return Policy{Enabled: true, MaxRetryCount: 3, RetryDelaySeconds: 5}
}

// Classifier decides whether err is worth retrying. The default
// classification (see DefaultClassifier) never retries cancellation or
// configuration errors, retries transient database errors, and does not
// retry query timeouts because they indicate a structural problem.
type Classifier func(err error) bool

// DefaultClassifier implements §4.5's classification table.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, archiveerr.ErrCancellation) {
		return false
	}
	return archiveerr.Retryable(err)
}

// Executor runs an action up to 1+Policy.MaxRetryCount times under a
// named policy, sleeping RetryDelaySeconds between attempts (cancellable)
// and stopping immediately once the classifier says an error isn't worth
// retrying.
type Executor struct {
	classify Classifier
	sleep    func(ctx context.Context, d time.Duration) error
}

// New returns an Executor using classify, or DefaultClassifier when nil.
func New(classify Classifier) *Executor {
	if classify == nil {
		classify = DefaultClassifier
	}
	return &Executor{classify: classify, sleep: cancellableSleep}
}

// Action is the operation RetryExecutor wraps.
type Action func(ctx context.Context) error

// Execute runs action under name/policy. name (e.g. "{tableName}-Archive",
// "{tableName}-Csv" per §4.1) is used only to prefix the error returned
// once every attempt has failed.
func (e *Executor) Execute(ctx context.Context, name string, policy Policy, action Action) error {
	if !policy.Enabled {
		return action(ctx)
	}

	attempts := policy.MaxRetryCount + 1
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(policy.RetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := action(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !e.classify(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: failed after %d attempt(s): %w", name, attempts, lastErr)
}

func cancellableSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
