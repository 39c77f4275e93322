// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/oneconcern/stablebench/internal"
	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     config.Config
	logger  = zap.NewNop()
	stopCPU func() error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stablebench",
	Short: "Stablebench measures storage workloads over persistent memory",
	Long: `Stablebench runs benchmarks of storage workloads (an embedded SQL engine, an ordered map,
a file system) over a persistent memory, and counts the instructions they execute.

Results are compared with a results file, so that regressions show up on every run.
Every workload is also exposed as a service, callable in-process or over HTTP.
`,
	TraverseChildren: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = newConfig(params.root.config, cmd.Flags())
		if err != nil {
			wrapFatalln("load configuration", err)
			return
		}
		logger, err = dlogger.GetLogger(cfg.LogLevel)
		if err != nil {
			wrapFatalln("failed to set log level", err)
			return
		}
		if params.root.cpuProfPath != "" {
			stopCPU, err = internal.StartCPUProf(params.root.cpuProfPath)
			if err != nil {
				wrapFatalln("start cpu profile", err)
				return
			}
		}
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopCPU != nil {
			if err := stopCPU(); err != nil {
				logger.Warn("cpu profile", zap.Error(err))
			}
			stopCPU = nil
		}
		if params.root.memProfPath != "" {
			if err := internal.WriteProf(params.root.memProfPath, "heap"); err != nil {
				logger.Warn("heap profile", zap.Error(err))
			}
		}
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)

	addConfigFile(rootCmd)
	addLogLevel(rootCmd)
	addCPUProfPath(rootCmd)
	addMemProfPath(rootCmd)
	addDataDir(rootCmd)
	addMemory(rootCmd)
	addCounter(rootCmd)
	addScale(rootCmd)
}
