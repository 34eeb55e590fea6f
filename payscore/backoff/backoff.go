package backoff

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"
)

const maxShift = 62

// Policy bounds a retry loop.
type Policy struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

// DefaultPolicy retries three times starting at 200ms and never waits more than 5s.
func DefaultPolicy() Policy {
	return Policy{Base: 200 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 3}
}

// Delay returns the jittered wait before retry number attempt, capped at Max.
func (p Policy) Delay(attempt int) time.Duration {
	d := Exponential(p.Base, attempt)
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}

	return FullJitter(d)
}

// Exponential returns base * 2^attempt, saturating instead of overflowing.
// Negative attempts count as zero.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	attempt = min(max(attempt, 0), maxShift)

	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return base * time.Duration(multiplier)
}

// FullJitter returns a uniformly random duration in [0, delay).
// If the entropy source fails the midpoint is used.
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return delay / 2
	}

	return time.Duration(n.Int64())
}

// ExponentialWithJitter combines Exponential and FullJitter.
func ExponentialWithJitter(base time.Duration, attempt int) time.Duration {
	return FullJitter(Exponential(base, attempt))
}

// SleepWithContext waits for duration or until ctx is done.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
