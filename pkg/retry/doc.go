// Package retry decides when failed tests and lifecycle hooks are run again.
//
// Analyzer handles test attempts. Counters are kept per worker and test
// identity, the worker being taken from the context:
//
//	ctx = retry.WithWorker(ctx, retry.NewWorkerID())
//	analyzer := retry.NewAnalyzer(retry.ConfiguredBudget(), exclusions)
//	for {
//		err := runTest()
//		if !analyzer.ShouldRetry(ctx, id, err) {
//			break
//		}
//	}
//
// Exclusions are computed once from a Catalog of the declared test types. A
// marker on a method or on any ancestor type disables retries and cannot be
// re-enabled further down:
//
//	exclusions, err := retry.NewCatalog().
//		Type("PerformanceTest", "", &retry.Marker{Reason: "timings must be real"}).
//		Type("LatencyTest", "PerformanceTest", nil).
//		Method("LatencyTest", "listBooks", nil).
//		Build()
//
// HookCoordinator wraps setup and teardown hooks in a bounded loop with its
// own budget per call:
//
//	hooks := retry.NewHookCoordinator(retry.ConfiguredBudget(),
//		retry.WithBackoff(retry.BackoffFromConfig(cfg.Execution)))
//	res := hooks.Run("beforeAll", seedDatabase)
package retry
