// Package retry runs fallible operations with a bounded number of attempts and a
// growing pause between them.
//
// The default policy makes 20 attempts. Before attempt i (counting from zero) it
// sleeps Backoff(i, Unit), which for the linear backoff is i*Unit, so the first
// attempt runs immediately. When every attempt fails a fallback is executed
// exactly once and Do reports an *ExhaustedError.
//
// Usage:
//
//	p := retry.DefaultPolicy()
//	err := p.Do(ctx, func(ctx context.Context) error {
//		return dial(ctx)
//	}, func(err error) {
//		Logger.Warningf("giving up: %v", err)
//	})
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultAttempts is the number of attempts of the default policy
	DefaultAttempts = 20
	// DefaultUnit is the backoff unit of the default policy
	DefaultUnit = 2 * time.Second
)

// ErrInvalidPolicy is returned by Do when the policy cannot make a single attempt
var ErrInvalidPolicy = errors.New("retry policy needs at least one attempt")

// BackoffFunc returns the pause before the given (zero based) attempt
type BackoffFunc func(attempt int, unit time.Duration) time.Duration

// Linear waits attempt*unit before each attempt
func Linear(attempt int, unit time.Duration) time.Duration {
	return time.Duration(attempt) * unit
}

// Constant waits unit before every attempt except the first
func Constant(attempt int, unit time.Duration) time.Duration {
	if attempt == 0 {
		return 0
	}
	return unit
}

// SleepFunc waits for d or until ctx is done, whichever comes first
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how often and how patiently an operation is retried
type Policy struct {
	Attempts int
	Unit     time.Duration
	Backoff  BackoffFunc
	Sleep    SleepFunc
}

// DefaultPolicy returns the policy used for peer synchronisation
func DefaultPolicy() Policy {
	return Policy{
		Attempts: DefaultAttempts,
		Unit:     DefaultUnit,
		Backoff:  Linear,
		Sleep:    sleepCtx,
	}
}

// ExhaustedError is returned when every attempt failed
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do runs op until it succeeds or the policy is exhausted.
// On exhaustion fallback (if not nil) is called once with the last error.
// If ctx is cancelled while waiting, Do returns ctx.Err() and the fallback is not called.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, fallback func(err error)) error {
	if p.Attempts < 1 {
		return ErrInvalidPolicy
	}

	backoff := p.Backoff
	if backoff == nil {
		backoff = Linear
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last error
	for i := 0; i < p.Attempts; i++ {
		if d := backoff(i, p.Unit); d > 0 {
			if err := sleep(ctx, d); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if last = op(ctx); last == nil {
			return nil
		}
	}

	if fallback != nil {
		fallback(last)
	}
	return &ExhaustedError{Attempts: p.Attempts, Last: last}
}

// TotalWait returns the accumulated pause of a fully exhausted policy
func (p Policy) TotalWait() time.Duration {
	backoff := p.Backoff
	if backoff == nil {
		backoff = Linear
	}
	var total time.Duration
	for i := 0; i < p.Attempts; i++ {
		total += backoff(i, p.Unit)
	}
	return total
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
