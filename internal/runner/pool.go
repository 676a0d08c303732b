package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"automation/pkg/config"
	"automation/pkg/logger"
	"automation/pkg/retry"
)

// TestCase is one test submitted to the pool. Hooks are optional.
type TestCase struct {
	ID         retry.TestIdentity
	BeforeEach retry.Operation
	Body       func(ctx context.Context) error
	AfterEach  retry.Operation
}

// Status is the final state of a test case
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result represents the outcome of a test case after all its attempts
type Result struct {
	// Seq is the submission order of the case
	Seq      int
	ID       retry.TestIdentity
	Status   Status
	Decision retry.Decision
	Attempts int
	Worker   retry.WorkerID
	// Err is the failure of the last attempt, or the setup failure that
	// caused a skip
	Err      error
	Duration time.Duration
}

// Options configures a Pool
type Options struct {
	Context  context.Context
	Workers  int
	Analyzer *retry.Analyzer
	Hooks    *retry.HookCoordinator
	Logger   logger.Logger
}

// OptionsFromConfig builds pool options from a resolved configuration. The
// retry budget is read from cfg on every decision.
func OptionsFromConfig(cfg *config.AutomationConfig, exclusions retry.ExclusionPolicy, log logger.Logger) Options {
	return optionsFor(cfg.Execution, retry.Budget(cfg.MaxRetry), exclusions, log)
}

// DefaultOptions builds pool options from the process-wide configuration
func DefaultOptions(exclusions retry.ExclusionPolicy) Options {
	return optionsFor(config.MustGet().Execution, retry.ConfiguredBudget(), exclusions, logger.GetLogger())
}

func optionsFor(exec *config.ExecutionConfig, budget retry.Budget, exclusions retry.ExclusionPolicy, log logger.Logger) Options {
	if exec == nil {
		exec = &config.ExecutionConfig{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return Options{
		Workers:  exec.Threads,
		Analyzer: retry.NewAnalyzer(budget, exclusions, retry.WithAnalyzerLogger(log)),
		Hooks: retry.NewHookCoordinator(budget,
			retry.WithHookRetries(exec.RetryHooks),
			retry.WithBackoff(retry.BackoffFromConfig(exec)),
			retry.WithHookLogger(log),
		),
		Logger: log,
	}
}

type job struct {
	seq int
	tc  TestCase
}

// Pool runs test cases on a fixed set of workers. Each worker has its own
// retry identity, so retry counters never cross workers.
type Pool struct {
	numWorkers  int
	jobQueue    chan job
	resultQueue chan Result
	group       *errgroup.Group
	groupCtx    context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	analyzer    *retry.Analyzer
	hooks       *retry.HookCoordinator
	logger      logger.Logger
	seq         atomic.Int64
	stopOnce    sync.Once
	stopErr     error
}

// NewPool creates a pool; call Start before submitting
func NewPool(opts Options) *Pool {
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = retry.NewAnalyzer(retry.FixedBudget(0), nil, retry.WithAnalyzerLogger(log))
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = retry.NewHookCoordinator(retry.FixedBudget(0), retry.WithHookLogger(log))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	return &Pool{
		numWorkers:  workers,
		jobQueue:    make(chan job, workers*2),
		resultQueue: make(chan Result, workers),
		group:       group,
		groupCtx:    groupCtx,
		ctx:         ctx,
		cancel:      cancel,
		analyzer:    analyzer,
		hooks:       hooks,
		logger:      log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.group.Go(p.worker)
	}
}

// Stop waits for queued cases to finish and closes the result channel. It
// returns the context error if the run was cancelled.
func (p *Pool) Stop() error {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")

		close(p.jobQueue)
		p.stopErr = p.group.Wait()
		close(p.resultQueue)
		p.cancel()

		p.logger.Info("Worker pool stopped")
	})
	return p.stopErr
}

// errShuttingDown is returned by Submit once the pool stops accepting work
var errShuttingDown = errors.New("worker pool is shutting down")

// Submit queues a test case
func (p *Pool) Submit(tc TestCase) error {
	if tc.Body == nil {
		return fmt.Errorf("test case %s has no body", tc.ID)
	}
	return p.enqueue(int(p.seq.Add(1)-1), tc)
}

func (p *Pool) enqueue(seq int, tc TestCase) error {
	if tc.Body == nil {
		return fmt.Errorf("test case %s has no body", tc.ID)
	}

	select {
	case <-p.groupCtx.Done():
		return errShuttingDown
	default:
	}

	j := job{seq: seq, tc: tc}
	select {
	case p.jobQueue <- j:
		p.logger.DebugWithFields("Test submitted to queue", map[string]interface{}{
			"test": tc.ID.String(),
		})
		return nil
	case <-p.groupCtx.Done():
		return errShuttingDown
	}
}

// Results returns the channel of finished test cases
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker() error {
	id := retry.NewWorkerID()
	ctx := retry.WithWorker(p.groupCtx, id)
	defer p.analyzer.Release(id)

	p.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker": string(id),
	})

	for j := range p.jobQueue {
		if err := ctx.Err(); err != nil {
			return err
		}

		result := p.run(ctx, j)

		select {
		case p.resultQueue <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker": string(id),
	})
	return nil
}

// run executes every attempt of one test case on the calling worker
func (p *Pool) run(ctx context.Context, j job) Result {
	start := time.Now()
	worker := retry.WorkerFromContext(ctx)
	tc := j.tc
	result := Result{Seq: j.seq, ID: tc.ID, Worker: worker}

	for {
		result.Attempts++

		if tc.BeforeEach != nil {
			if setup := p.hooks.Run(tc.ID.String()+" beforeEach", tc.BeforeEach); !setup.OK() {
				// The test never ran, so no retry state may survive
				p.analyzer.Counters().Clear(worker, tc.ID)
				result.Status = StatusSkipped
				result.Err = setup.Err
				break
			}
		}

		err := runBody(ctx, tc.Body)

		if tc.AfterEach != nil {
			if teardown := p.hooks.Run(tc.ID.String()+" afterEach", tc.AfterEach); !teardown.OK() {
				p.logger.WithError(teardown.Err).WarnWithFields("Teardown failed", map[string]interface{}{
					"test":     tc.ID.String(),
					"attempts": teardown.Attempts,
				})
			}
		}

		result.Decision = p.analyzer.Decide(ctx, tc.ID, err)
		if !result.Decision.Terminal() {
			continue
		}

		result.Err = err
		if result.Decision == retry.Passed {
			result.Status = StatusPassed
		} else {
			result.Status = StatusFailed
		}
		break
	}

	result.Duration = time.Since(start)
	logger.LogTestResult(p.logger, tc.ID.String(), string(result.Status), result.Attempts, result.Duration, result.Err)
	return result
}

func runBody(ctx context.Context, body func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("test panicked: %v", r)
		}
	}()
	return body(ctx)
}

// RunAll runs cases to completion and returns their results in submission
// order. A rejected case is reported as skipped with the rejection and the
// rest still run. Cases left unrun by a cancelled context are skipped too.
func RunAll(ctx context.Context, opts Options, cases []TestCase) []Result {
	opts.Context = ctx
	pool := NewPool(opts)
	pool.Start()

	results := make([]Result, len(cases))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			results[r.Seq] = r
		}
	}()

	rejected := make(map[int]error)
	for i, tc := range cases {
		err := pool.enqueue(i, tc)
		if err == nil {
			continue
		}
		rejected[i] = err
		if errors.Is(err, errShuttingDown) {
			break
		}
		pool.logger.WithError(err).WarnWithFields("Test case rejected", map[string]interface{}{
			"test": tc.ID.String(),
		})
	}

	stopErr := pool.Stop()
	<-done

	for i := range results {
		if results[i].Status != "" {
			continue
		}
		results[i] = Result{Seq: i, ID: cases[i].ID, Status: StatusSkipped}
		switch err, ok := rejected[i]; {
		case ok && !errors.Is(err, errShuttingDown):
			results[i].Err = err
		case stopErr != nil:
			results[i].Err = stopErr
		case ok:
			results[i].Err = err
		default:
			results[i].Err = errors.New("not run")
		}
	}
	return results
}
