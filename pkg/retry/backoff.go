package retry

import (
	"math"
	"math/rand"
	"time"

	"automation/pkg/config"
)

// BackoffStrategy computes the pause before a retry attempt
type BackoffStrategy interface {
	// NextDelay returns the delay before retry number attempt (1-based)
	NextDelay(attempt int) time.Duration
	// Reset returns the strategy to its initial state
	Reset()
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay caps the computed delay
	MaxDelay time.Duration
	// Multiplier is the factor applied per attempt
	Multiplier float64
	// JitterFactor spreads delays by up to ±JitterFactor (0.0 to 1.0)
	JitterFactor float64
}

// NextDelay calculates the next delay with exponential growth and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Reset is a no-op; the delay depends only on the attempt number
func (eb *ExponentialBackoff) Reset() {}

// ConstantBackoff waits the same delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Reset resets the backoff (no-op for constant backoff)
func (cb *ConstantBackoff) Reset() {}

// exponentialCapFactor bounds exponential delays at 32x the configured base
const exponentialCapFactor = 32

// BackoffFromConfig maps execution.retryDelayMillis and execution.retryBackoff
// to a strategy. A zero delay yields nil, meaning retries run back to back.
func BackoffFromConfig(exec *config.ExecutionConfig) BackoffStrategy {
	if exec == nil || exec.RetryDelayMillis <= 0 {
		return nil
	}

	base := time.Duration(exec.RetryDelayMillis) * time.Millisecond
	switch exec.RetryBackoff {
	case config.BackoffExponential:
		return &ExponentialBackoff{
			BaseDelay:    base,
			MaxDelay:     base * exponentialCapFactor,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}
	default:
		return &ConstantBackoff{Delay: base}
	}
}
