package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automation/pkg/config"
	"automation/pkg/logger"
)

// flaky fails the first n calls, each with a numbered error
func flaky(n int) (Operation, *int) {
	calls := 0
	return func() error {
		calls++
		if calls <= n {
			return fmt.Errorf("attempt %d failed", calls)
		}
		return nil
	}, &calls
}

func quietHooks(budget int, opts ...HookOption) *HookCoordinator {
	return NewHookCoordinator(FixedBudget(budget), append([]HookOption{WithHookLogger(logger.NewNopLogger())}, opts...)...)
}

func TestHookSucceedsAfterTwoFailures(t *testing.T) {
	op, calls := flaky(2)

	res := quietHooks(2).Run("beforeEach", op)

	assert.True(t, res.OK())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, "beforeEach", res.Name)
}

func TestHookSurfacesOnlyLastFailure(t *testing.T) {
	var failures []error
	calls := 0
	op := func() error {
		calls++
		err := fmt.Errorf("attempt %d failed", calls)
		failures = append(failures, err)
		return err
	}

	res := quietHooks(2).Run("afterAll", op)

	require.Error(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Same(t, failures[2], res.Err)
	assert.False(t, errors.Is(res.Err, failures[0]))
}

func TestHookStopsOnFirstSuccess(t *testing.T) {
	op, calls := flaky(0)

	res := quietHooks(5).Run("beforeAll", op)

	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, *calls)
}

func TestHookZeroBudget(t *testing.T) {
	for _, budget := range []int{0, -3} {
		t.Run(fmt.Sprint(budget), func(t *testing.T) {
			op, calls := flaky(1)

			res := quietHooks(budget).Run("hook", op)

			assert.False(t, res.OK())
			assert.Equal(t, 1, *calls)
		})
	}
}

func TestHookRetriesDisabled(t *testing.T) {
	op, calls := flaky(1)

	res := quietHooks(3, WithHookRetries(false)).Run("hook", op)

	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, *calls)
}

func TestHookBudgetIsFreshPerRun(t *testing.T) {
	hooks := quietHooks(1)

	for i := 0; i < 3; i++ {
		op, calls := flaky(1)
		res := hooks.Run("beforeEach", op)
		assert.True(t, res.OK())
		assert.Equal(t, 2, *calls)
	}
}

func TestHookBudgetReadPerRun(t *testing.T) {
	budget := 0
	hooks := NewHookCoordinator(func() int { return budget }, WithHookLogger(logger.NewNopLogger()))

	op, _ := flaky(1)
	assert.False(t, hooks.Run("hook", op).OK())

	budget = 1
	op, _ = flaky(1)
	assert.True(t, hooks.Run("hook", op).OK())
}

func TestHookRecoversPanic(t *testing.T) {
	calls := 0
	op := func() error {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		return nil
	}

	res := quietHooks(1).Run("beforeEach", op)

	assert.True(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
}

func TestHookPanicBecomesError(t *testing.T) {
	sentinel := errors.New("broken fixture")

	res := quietHooks(0).Run("hook", func() error { panic(sentinel) })

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, sentinel)
	assert.Contains(t, res.Err.Error(), "hook panicked")
}

func TestHookSleepsBetweenAttempts(t *testing.T) {
	var slept []time.Duration
	op, _ := flaky(2)

	res := quietHooks(3,
		WithBackoff(&ConstantBackoff{Delay: 50 * time.Millisecond}),
		WithSleep(func(d time.Duration) { slept = append(slept, d) }),
	).Run("hook", op)

	assert.True(t, res.OK())
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, slept)
}

func TestHookLogsFailedAttempts(t *testing.T) {
	tl := logger.NewTestLogger()
	op, _ := flaky(2)

	NewHookCoordinator(FixedBudget(2), WithHookLogger(tl)).Run("beforeAll", op)

	warns := tl.MessagesByLevel("WARN")
	require.Len(t, warns, 2)
	assert.Equal(t, 1, warns[0].Fields["attempt"])
	assert.Equal(t, 3, warns[0].Fields["max_attempts"])
	assert.EqualError(t, warns[1].Error, "attempt 2 failed")
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt))
		})
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Delay: time.Second}

	assert.Equal(t, time.Duration(0), b.NextDelay(0))
	assert.Equal(t, time.Second, b.NextDelay(1))
	assert.Equal(t, time.Second, b.NextDelay(9))
}

func TestBackoffFromConfig(t *testing.T) {
	assert.Nil(t, BackoffFromConfig(nil))
	assert.Nil(t, BackoffFromConfig(&config.ExecutionConfig{RetryDelayMillis: 0, RetryBackoff: config.BackoffExponential}))

	constant := BackoffFromConfig(&config.ExecutionConfig{RetryDelayMillis: 250, RetryBackoff: config.BackoffConstant})
	assert.Equal(t, &ConstantBackoff{Delay: 250 * time.Millisecond}, constant)

	unset := BackoffFromConfig(&config.ExecutionConfig{RetryDelayMillis: 10})
	assert.IsType(t, &ConstantBackoff{}, unset)

	exp, ok := BackoffFromConfig(&config.ExecutionConfig{RetryDelayMillis: 100, RetryBackoff: config.BackoffExponential}).(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 100*time.Millisecond, exp.BaseDelay)
	assert.Equal(t, 3200*time.Millisecond, exp.MaxDelay)
}
