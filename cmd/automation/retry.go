package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"automation/internal/runner"
	"automation/pkg/logger"
	"automation/pkg/retry"
	"automation/pkg/ui"
)

func newRetryCmd(a *app) *cobra.Command {
	retryCmd := &cobra.Command{
		Use:   "retry",
		Short: "Exercise the retry policy",
	}

	var (
		test         string
		failures     int
		hookFailures int
		copies       int
		excluded     string
	)
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated flaky test through the retry policy",
		Long: `Run a simulated test that fails a fixed number of times through the worker
pool, using the resolved retry budget, hook settings and backoff.

Example:
  automation retry simulate --test BooksTest.getBook --failures 2 -D execution.retry=3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseIdentity(test)
			if err != nil {
				return err
			}

			catalog := retry.NewCatalog().Type(id.Type, "", nil).Method(id.Type, id.Method, nil)
			if excluded != "" {
				catalog = retry.NewCatalog().
					Type(id.Type, "", &retry.Marker{Reason: excluded}).
					Method(id.Type, id.Method, nil)
			}
			exclusions, err := catalog.Build()
			if err != nil {
				return err
			}

			cases := make([]runner.TestCase, copies)
			for i := range cases {
				cases[i] = simulatedCase(id, failures, hookFailures)
			}

			opts := runner.OptionsFromConfig(a.cfg, exclusions, logger.GetLogger())
			results := runner.RunAll(cmd.Context(), opts, cases)

			return printResults(ui.NewPrinter(cmd.OutOrStdout()), results)
		},
	}
	simulateCmd.Flags().StringVar(&test, "test", "SimulatedTest.flaky", "test identity as Type.method")
	simulateCmd.Flags().IntVar(&failures, "failures", 1, "number of failing attempts before the test passes")
	simulateCmd.Flags().IntVar(&hookFailures, "hook-failures", 0, "number of failing beforeEach calls per attempt")
	simulateCmd.Flags().IntVar(&copies, "copies", 1, "number of concurrent copies of the test")
	simulateCmd.Flags().StringVar(&excluded, "excluded", "", "mark the test type as excluded from retries with this reason")

	retryCmd.AddCommand(simulateCmd)
	return retryCmd
}

func parseIdentity(s string) (retry.TestIdentity, error) {
	typ, method, ok := strings.Cut(s, ".")
	if !ok || typ == "" || method == "" {
		return retry.TestIdentity{}, fmt.Errorf("invalid test identity %q, expected Type.method", s)
	}
	return retry.TestIdentity{Type: typ, Method: method}, nil
}

// simulatedCase fails its body `failures` times overall and its setup
// `hookFailures` times in a row before each attempt
func simulatedCase(id retry.TestIdentity, failures, hookFailures int) runner.TestCase {
	var bodyCalls, setupStreak atomic.Int32
	return runner.TestCase{
		ID: id,
		BeforeEach: func() error {
			if int(setupStreak.Add(1)) <= hookFailures {
				return fmt.Errorf("simulated setup failure %d", setupStreak.Load())
			}
			setupStreak.Store(0)
			return nil
		},
		Body: func(context.Context) error {
			if n := int(bodyCalls.Add(1)); n <= failures {
				return fmt.Errorf("simulated failure %d", n)
			}
			return nil
		},
	}
}

func printResults(p *ui.Printer, results []runner.Result) error {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		decision := r.Decision.String()
		if r.Status == runner.StatusSkipped {
			decision = "-"
		}
		if r.Status != runner.StatusPassed {
			failed++
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Seq),
			r.ID.String(),
			string(r.Status),
			decision,
			strconv.Itoa(r.Attempts),
			errText,
		})
	}

	if err := p.Table([]string{"#", "TEST", "STATUS", "DECISION", "ATTEMPTS", "ERROR"}, rows); err != nil {
		return err
	}
	if failed > 0 {
		p.Warning(fmt.Sprintf("%d of %d simulated tests did not pass", failed, len(results)))
		return nil
	}
	p.Success(fmt.Sprintf("All %d simulated tests passed", len(results)))
	return nil
}
