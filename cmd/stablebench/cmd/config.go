// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/oneconcern/stablebench/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "stablebench"

func setDefaults(v *viper.Viper, c config.Config) {
	v.SetDefault("dataDir", c.DataDir)
	v.SetDefault("memory", c.Memory)
	v.SetDefault("logLevel", c.LogLevel)
	v.SetDefault("counter", c.Counter)
	v.SetDefault("resultsFile", c.ResultsFile)
	v.SetDefault("noiseThreshold", c.NoiseThreshold)
	v.SetDefault("scale", c.Scale)
	v.SetDefault("instructionBudget", c.InstructionBudget)
	v.SetDefault("sqlite.file", c.SQLite.File)
	v.SetDefault("sqlite.journalMode", c.SQLite.JournalMode)
	v.SetDefault("sqlite.synchronous", c.SQLite.Synchronous)
	v.SetDefault("sqlite.pageSize", c.SQLite.PageSize)
	v.SetDefault("sqlite.lockingMode", c.SQLite.LockingMode)
	v.SetDefault("sqlite.tempStore", c.SQLite.TempStore)
	v.SetDefault("sqlite.cacheSize", c.SQLite.CacheSize)
	v.SetDefault("kv.backend", c.KV.Backend)
	v.SetDefault("fs.segmentSize", c.FS.SegmentSize)
	v.SetDefault("fs.filesCount", c.FS.FilesCount)
}

// newConfig resolves the configuration, by increasing order of precedence:
// defaults, configuration file, STABLEBENCH_* environment variables, then flags
// set on the command line.
func newConfig(file string, flags *pflag.FlagSet) (config.Config, error) {
	v := viper.New()
	setDefaults(v, config.Default())

	switch {
	case file != "":
		v.SetConfigFile(file)
	case os.Getenv("STABLEBENCH_CONFIG") != "":
		v.SetConfigFile(os.Getenv("STABLEBENCH_CONFIG"))
	default:
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.stablebench")
		v.AddConfigPath("/etc/stablebench")
		v.SetConfigName("stablebench")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return config.Config{}, config.ErrInvalidConfig.Wrap(err)
		}
	}

	if flags != nil {
		for flagName, key := range configFlags {
			f := flags.Lookup(flagName)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}

	c := config.Default()
	if err := v.Unmarshal(&c); err != nil {
		return config.Config{}, config.ErrInvalidConfig.Wrap(err)
	}
	return c, c.Validate()
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the configuration",
	Long: `Prints the configuration resolved from defaults, the configuration file,
STABLEBENCH_* environment variables and flags.`,
	Example: `% STABLEBENCH_SCALE=100 stablebench config --memory mem`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), cfg.String())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
