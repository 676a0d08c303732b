package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogRetryDecision records the analyzer's verdict for a finished test
func LogRetryDecision(l Logger, test, worker, decision string, attempt, budget int) {
	fields := map[string]interface{}{
		"test":     test,
		"worker":   worker,
		"decision": decision,
		"attempt":  attempt,
		"budget":   budget,
	}

	switch decision {
	case "retry":
		l.WarnWithFields("Retrying failed test", fields)
	case "exhausted":
		l.ErrorWithFields("Retry budget exhausted", fields)
	default:
		l.DebugWithFields("Test outcome analyzed", fields)
	}
}

// LogHookAttempt records a failed attempt of a lifecycle hook
func LogHookAttempt(l Logger, hook string, attempt, maxAttempts int, err error) {
	l.WithError(err).WarnWithFields("Hook attempt failed", map[string]interface{}{
		"hook":         hook,
		"attempt":      attempt,
		"max_attempts": maxAttempts,
	})
}

// LogTestResult records the final status of a test case run by the pool
func LogTestResult(l Logger, test, status string, attempts int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"test":     test,
		"status":   status,
		"attempts": attempts,
		"duration": duration,
	}

	if err != nil {
		l.WithError(err).ErrorWithFields("Test finished", fields)
		return
	}
	l.InfoWithFields("Test finished", fields)
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return FromZerolog(zerolog.Nop())
}
