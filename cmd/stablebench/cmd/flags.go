// Copyright © 2018 One Concern

package cmd

import (
	"time"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"

	"github.com/spf13/cobra"
)

type paramsT struct {
	root struct {
		config      string
		logLevel    string
		cpuProfPath string
		memProfPath string
		dataDir     string
		memory      string
		counter     string
		scale       int
	}
	run struct {
		persist     bool
		resultsFile string
		noise       float64
		keepData    bool
		metrics     bool
	}
	serve struct {
		addr    string
		metrics bool
		memPoll time.Duration
	}
}

var params = paramsT{}

// flags bound to configuration keys: flags override the configuration file and environment
var configFlags = map[string]string{
	"loglevel": "logLevel",
	"data-dir": "dataDir",
	"memory":   "memory",
	"counter":  "counter",
	"scale":    "scale",
	"results":  "resultsFile",
	"noise":    "noiseThreshold",
}

func addConfigFile(cmd *cobra.Command) string {
	const flagName = "config"
	cmd.PersistentFlags().StringVar(&params.root.config, flagName, "",
		"Configuration file. Defaults to stablebench.yaml in ., $HOME/.stablebench or /etc/stablebench, or $STABLEBENCH_CONFIG")
	return flagName
}

func addLogLevel(cmd *cobra.Command) string {
	const flagName = "loglevel"
	cmd.PersistentFlags().StringVar(&params.root.logLevel, flagName, dlogger.LogLevelInfo,
		"The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	return flagName
}

func addCPUProfPath(cmd *cobra.Command) string {
	const flagName = "cpuprof"
	cmd.PersistentFlags().StringVar(&params.root.cpuProfPath, flagName, "",
		"The path to output the pprof cpu information.")
	return flagName
}

func addMemProfPath(cmd *cobra.Command) string {
	const flagName = "memprof"
	cmd.PersistentFlags().StringVar(&params.root.memProfPath, flagName, "",
		"The path to output the pprof heap information.")
	return flagName
}

func addDataDir(cmd *cobra.Command) string {
	const flagName = "data-dir"
	cmd.PersistentFlags().StringVar(&params.root.dataDir, flagName, config.Default().DataDir,
		"The directory holding the persistent memory of benchmarks and services")
	return flagName
}

func addMemory(cmd *cobra.Command) string {
	const flagName = "memory"
	cmd.PersistentFlags().StringVar(&params.root.memory, flagName, config.MemoryDisk,
		"The memory backing the virtual file system: mem or disk")
	return flagName
}

func addCounter(cmd *cobra.Command) string {
	const flagName = "counter"
	cmd.PersistentFlags().StringVar(&params.root.counter, flagName, config.CounterAuto,
		"The instruction counter: perf, clock, or auto to fall back on a clock when perf events are not available")
	return flagName
}

func addScale(cmd *cobra.Command) string {
	const flagName = "scale"
	cmd.PersistentFlags().IntVar(&params.root.scale, flagName, 1,
		"Divide the record counts and buffer sizes of every benchmark")
	return flagName
}

func addPersist(cmd *cobra.Command) string {
	const flagName = "persist"
	cmd.Flags().BoolVar(&params.run.persist, flagName, false,
		"Save results to the results file")
	return flagName
}

func addResultsFile(cmd *cobra.Command) string {
	const flagName = "results"
	cmd.Flags().StringVar(&params.run.resultsFile, flagName, config.Default().ResultsFile,
		"The results file results are compared with, and saved to with --persist")
	return flagName
}

func addNoise(cmd *cobra.Command) string {
	const flagName = "noise"
	cmd.Flags().Float64Var(&params.run.noise, flagName, config.Default().NoiseThreshold,
		"Changes of instructions under this percentage are reported as unchanged")
	return flagName
}

func addKeepData(cmd *cobra.Command) string {
	const flagName = "keep-data"
	cmd.Flags().BoolVar(&params.run.keepData, flagName, false,
		"Keep the memory of benchmarks once done")
	return flagName
}

func addRunMetrics(cmd *cobra.Command) string {
	const flagName = "metrics"
	cmd.Flags().BoolVar(&params.run.metrics, flagName, false,
		"Log metrics about benchmarks")
	return flagName
}

func addServeAddr(cmd *cobra.Command) string {
	const flagName = "addr"
	cmd.Flags().StringVar(&params.serve.addr, flagName, ":8080",
		"The address to listen on")
	return flagName
}

func addServeMetrics(cmd *cobra.Command) string {
	const flagName = "metrics"
	cmd.Flags().BoolVar(&params.serve.metrics, flagName, false,
		"Log metrics about calls")
	return flagName
}

func addMemPoll(cmd *cobra.Command) string {
	const flagName = "mem-poll"
	cmd.Flags().DurationVar(&params.serve.memPoll, flagName, 0,
		"Log heap growth at this interval. 0 disables polling")
	return flagName
}
