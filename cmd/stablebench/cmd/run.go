// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// baseline loads the results to compare with. A missing or unreadable file yields an empty baseline.
func baseline(pth, counter string) bench.Results {
	base, err := bench.LoadResults(pth)
	switch {
	case err == nil:
		return base
	case errors.Is(err, bench.ErrNoResults):
		logger.Info("no results to compare with", zap.String("file", pth))
	default:
		logger.Warn("ignoring results file", zap.String("file", pth), zap.Error(err))
	}
	return bench.NewResults(counter)
}

var runCmd = &cobra.Command{
	Use:   "run [patterns...]",
	Short: "Run benchmarks",
	Long: `Run benchmarks, each in a fresh memory, and compare their instruction counts with the results file.

Patterns are globs matched against the full benchmark ID or its name alone. No pattern runs all benchmarks.
With --persist, results are saved to the results file, replacing the entries of the benchmarks run.`,
	Example: `% stablebench run --scale 100 'kvsql/*'
% stablebench run --persist`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		benches, err := registry().Select(args...)
		if err != nil {
			wrapFatalln("select benchmarks", err)
			return
		}
		if len(benches) == 0 {
			wrapFatalln("no benchmark matches the patterns", nil)
			return
		}

		counter, err := meter.New(cfg.Counter)
		if err != nil {
			wrapFatalln("instruction counter", err)
			return
		}
		logger.Info("running benchmarks", zap.Int("count", len(benches)), zap.String("counter", counter.Name()))

		if params.run.metrics {
			metrics.Init(metrics.WithLogger(logger))
			defer metrics.Flush()
		}

		runner := bench.NewRunner(cfg, counter,
			bench.WithRunnerLogger(logger),
			bench.WithKeepData(params.run.keepData),
			bench.WithRunnerMetrics(params.run.metrics),
		)
		results, failures, runErr := runner.Run(ctx, benches)

		base := baseline(cfg.ResultsFile, counter.Name())
		out := cmd.OutOrStdout()
		if err := bench.Report(out, bench.Compare(results, base, cfg.NoiseThreshold)); err != nil {
			wrapFatalln("report", err)
			return
		}

		if params.run.persist && len(results.Benches) > 0 {
			persisted := results
			if base.Counter == results.Counter {
				persisted = base
				persisted.Merge(results)
			}
			if err := persisted.Save(cfg.ResultsFile); err != nil {
				wrapFatalln("save results", err)
				return
			}
			logger.Info("results saved", zap.String("file", cfg.ResultsFile))
		}

		for _, f := range failures {
			_, _ = fmt.Fprintf(out, "FAILED %s: %v\n", f.ID, f.Err)
		}
		if runErr != nil {
			wrapFatalWithCodef(1, "%v", runErr)
		}
	},
}

func init() {
	addPersist(runCmd)
	addResultsFile(runCmd)
	addNoise(runCmd)
	addKeepData(runCmd)
	addRunMetrics(runCmd)
	rootCmd.AddCommand(runCmd)
}
