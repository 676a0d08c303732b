// Package logger provides the structured logging interface used across the
// automation framework.
//
// It wraps zerolog and is configured from the logging section of the
// resolved configuration:
//
//	cfg := config.MustGet()
//	if err := logger.Initialize(cfg.Logging); err != nil {
//	    return err
//	}
//
//	logger.GetLogger().WithField("worker", id).Info("Worker started")
//
// Format "auto" selects the colored console encoder when stdout is a
// terminal and JSON otherwise. When a file is configured it always receives
// JSON lines in addition to the console output.
//
// Initialize also replaces the zerolog global logger, which is what the
// config package logs through.
//
// TestLogger captures messages in memory for assertions in tests.
package logger
