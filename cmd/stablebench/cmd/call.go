// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"

	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/rpc"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var callCmd = &cobra.Command{
	Use:   "call <service> <method> [json-args]",
	Short: "Call a method of a suite",
	Long: `Call a method of a suite in-process, and print the JSON result.

Arguments are a JSON array. The memory of the suite is kept under the data directory, so
that successive calls see the changes of previous ones with --memory disk.`,
	Example: `% stablebench call folders greet '["Alice"]'
{"Ok":"Hello from WASI: Alice"}
% stablebench call orders query '["SELECT count(*) FROM orders"]'`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		service, method, raw := args[0], args[1], "[]"
		if len(args) > 2 {
			raw = args[2]
		}

		counter, err := meter.New(cfg.Counter)
		if err != nil {
			wrapFatalln("instruction counter", err)
			return
		}
		router, closeAll, err := services(ctx, cfg, logger, findSuites(service),
			rpc.WithLogger(logger),
			rpc.WithCounter(counter),
		)
		if err != nil {
			wrapFatalln("open suite", err)
			return
		}
		// unknown services are reported as an error result by the router
		result := router.Call(ctx, service, method, []byte(raw))
		if err := closeAll(); err != nil {
			logger.Warn("closing suite", zap.Error(err))
		}
		logger.Info("call done",
			zap.String("service", service),
			zap.String("method", method),
			zap.Uint64("instructions", result.Instructions),
			zap.String("counter", counter.Name()),
		)

		buf, err := json.Marshal(result)
		if err != nil {
			wrapFatalln("encode result", err)
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(buf))
		if result.Err != nil {
			osExit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}
