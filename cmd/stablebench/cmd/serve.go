// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oneconcern/stablebench/internal"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/metrics"
	"github.com/oneconcern/stablebench/pkg/rpc"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve [suites...]",
	Short: "Serve suites over HTTP",
	Long: `Serve the methods of suites over HTTP. No suite serves them all.

Every suite keeps its memory in its own directory under the data directory, across restarts.

	GET  /                    lists services
	GET  /{service}           lists the methods of a service
	POST /{service}/{method}  calls a method, with a JSON array of arguments as body`,
	Example: `% stablebench serve --addr :8080 orders
% curl -X POST localhost:8080/orders/add_users -d '[0, 100]'
{"Ok":"add_users OK"}`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		counter, err := meter.New(cfg.Counter)
		if err != nil {
			wrapFatalln("instruction counter", err)
			return
		}
		if params.serve.metrics {
			metrics.Init(metrics.WithLogger(logger))
			defer metrics.Flush()
		}
		if params.serve.memPoll > 0 {
			internal.MemPoll(ctx, internal.MemPollParams{Poll: params.serve.memPoll, Logger: logger})
		}

		defs := findSuites(args...)
		if len(defs) == 0 {
			wrapFatalln("no such suite", nil)
			return
		}
		router, closeAll, err := services(ctx, cfg, logger, defs,
			rpc.WithLogger(logger),
			rpc.WithCounter(counter),
			rpc.WithMetrics(params.serve.metrics),
		)
		if err != nil {
			wrapFatalln("open suites", err)
			return
		}
		defer func() {
			if err := closeAll(); err != nil {
				logger.Warn("closing suites", zap.Error(err))
			}
		}()

		logger.Info("services ready", zap.Strings("services", router.Services()))
		if err := rpc.Serve(ctx, params.serve.addr, router); err != nil {
			wrapFatalln("serve", err)
			return
		}
	},
}

func init() {
	addServeAddr(serveCmd)
	addServeMetrics(serveCmd)
	addMemPoll(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
