package retry

import (
	"context"

	"automation/pkg/config"
	"automation/pkg/logger"
)

// Budget returns the maximum number of additional attempts. It is called on
// every decision so a budget backed by configuration is always current.
type Budget func() int

// FixedBudget returns a constant budget
func FixedBudget(n int) Budget {
	return func() int { return n }
}

// ConfiguredBudget reads execution.retry from the process-wide configuration.
// It panics if the configuration failed to load.
func ConfiguredBudget() Budget {
	return func() int { return config.MustGet().MaxRetry() }
}

func (b Budget) limit() int {
	if b == nil {
		return 0
	}
	if n := b(); n > 0 {
		return n
	}
	return 0
}

// Decision is the outcome of analyzing one finished test attempt
type Decision int

const (
	// Passed means the attempt succeeded
	Passed Decision = iota
	// Retry means the failed attempt is run again
	Retry
	// Excluded means the test carries an exclusion marker
	Excluded
	// Exhausted means the retry budget is used up
	Exhausted
)

func (d Decision) String() string {
	switch d {
	case Passed:
		return "passed"
	case Retry:
		return "retry"
	case Excluded:
		return "excluded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempt follows
func (d Decision) Terminal() bool {
	return d != Retry
}

// Analyzer decides whether a failed test attempt is retried
type Analyzer struct {
	budget     Budget
	exclusions ExclusionPolicy
	counters   *Counters
	logger     logger.Logger
}

// AnalyzerOption configures an Analyzer
type AnalyzerOption func(*Analyzer)

// WithCounters shares a counter store
func WithCounters(c *Counters) AnalyzerOption {
	return func(a *Analyzer) { a.counters = c }
}

// WithAnalyzerLogger sets the logger used for decisions
func WithAnalyzerLogger(l logger.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an Analyzer. A nil exclusions policy excludes nothing.
func NewAnalyzer(budget Budget, exclusions ExclusionPolicy, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		budget:     budget,
		exclusions: exclusions,
		counters:   NewCounters(),
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Decide records the outcome of one attempt of id on the worker bound to ctx.
// A nil outcome is a pass. Every terminal decision clears the counter.
func (a *Analyzer) Decide(ctx context.Context, id TestIdentity, outcome error) Decision {
	worker := WorkerFromContext(ctx)
	budget := a.budget.limit()

	decision, attempt := a.decide(worker, id, outcome, budget)
	logger.LogRetryDecision(a.logger, id.String(), string(worker), decision.String(), attempt, budget)
	return decision
}

func (a *Analyzer) decide(worker WorkerID, id TestIdentity, outcome error, budget int) (Decision, int) {
	n, _ := a.counters.Get(worker, id)

	if outcome == nil {
		a.counters.Clear(worker, id)
		return Passed, n
	}
	if a.exclusions != nil && a.exclusions.Excluded(id) {
		a.counters.Clear(worker, id)
		return Excluded, n
	}
	if n < budget {
		return Retry, a.counters.Increment(worker, id)
	}

	a.counters.Clear(worker, id)
	return Exhausted, n
}

// ShouldRetry reports whether the failed attempt should be run again
func (a *Analyzer) ShouldRetry(ctx context.Context, id TestIdentity, outcome error) bool {
	return a.Decide(ctx, id, outcome) == Retry
}

// Counters exposes the counter store
func (a *Analyzer) Counters() *Counters {
	return a.counters
}

// Release drops the counters held for worker
func (a *Analyzer) Release(worker WorkerID) {
	a.counters.Release(worker)
}
