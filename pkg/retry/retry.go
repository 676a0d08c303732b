package retry

import (
	"fmt"
	"time"

	"automation/pkg/logger"
)

// Operation is a setup or teardown hook that may fail
type Operation func() error

// HookResult reports the outcome of running a hook with retries
type HookResult struct {
	Name     string
	Attempts int
	// Err is the failure of the final attempt, nil on success
	Err error
}

// OK reports whether some attempt succeeded
func (r HookResult) OK() bool {
	return r.Err == nil
}

// HookCoordinator runs lifecycle hooks in a bounded retry loop. Each Run gets
// a fresh budget; nothing is shared with the Analyzer.
type HookCoordinator struct {
	budget  Budget
	enabled bool
	backoff BackoffStrategy
	sleep   func(time.Duration)
	logger  logger.Logger
}

// HookOption configures a HookCoordinator
type HookOption func(*HookCoordinator)

// WithBackoff pauses between attempts; nil disables pausing
func WithBackoff(b BackoffStrategy) HookOption {
	return func(h *HookCoordinator) { h.backoff = b }
}

// WithHookRetries enables or disables re-invocation of failed hooks
func WithHookRetries(enabled bool) HookOption {
	return func(h *HookCoordinator) { h.enabled = enabled }
}

// WithHookLogger sets the logger used for failed attempts
func WithHookLogger(l logger.Logger) HookOption {
	return func(h *HookCoordinator) { h.logger = l }
}

// WithSleep replaces time.Sleep, mainly for tests
func WithSleep(sleep func(time.Duration)) HookOption {
	return func(h *HookCoordinator) { h.sleep = sleep }
}

// NewHookCoordinator creates a coordinator that re-invokes failed hooks up to
// budget() more times
func NewHookCoordinator(budget Budget, opts ...HookOption) *HookCoordinator {
	h := &HookCoordinator{
		budget:  budget,
		enabled: true,
		sleep:   time.Sleep,
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run invokes op once and, while it keeps failing, up to the budget more
// times. Only the last failure is returned; earlier ones are logged.
func (h *HookCoordinator) Run(name string, op Operation) HookResult {
	retries := 0
	if h.enabled {
		retries = h.budget.limit()
	}
	maxAttempts := retries + 1

	if h.backoff != nil {
		h.backoff.Reset()
	}

	result := HookResult{Name: name}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && h.backoff != nil {
			if delay := h.backoff.NextDelay(attempt - 1); delay > 0 {
				h.sleep(delay)
			}
		}

		result.Attempts = attempt
		result.Err = invoke(op)
		if result.Err == nil {
			if attempt > 1 {
				h.logger.DebugWithFields("Hook succeeded after retry", map[string]interface{}{
					"hook":    name,
					"attempt": attempt,
				})
			}
			return result
		}

		logger.LogHookAttempt(h.logger, name, attempt, maxAttempts, result.Err)
	}

	return result
}

// invoke calls op, turning a panic into an error
func invoke(op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("hook panicked: %w", e)
				return
			}
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return op()
}
