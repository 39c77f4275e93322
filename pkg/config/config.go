// Copyright © 2018 One Concern

// Package config describes the settings of a benchmark harness run.
//
// Settings are usually decoded from a YAML file or through viper, then
// completed with defaults and validated.
package config

import (
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/oneconcern/stablebench/pkg/errors"

	"gopkg.in/yaml.v2"
)

// Memory kinds backing the persistent memory of an environment
const (
	MemoryMem  = "mem"
	MemoryDisk = "disk"
)

// Counter kinds
const (
	CounterAuto  = "auto"
	CounterPerf  = "perf"
	CounterClock = "clock"
)

// Ordered map backends
const (
	BackendBolt   = "bolt"
	BackendBTree  = "btree"
	BackendBadger = "badger"
	BackendPebble = "pebble"
)

// ErrInvalidConfig is returned when some settings are inconsistent
var ErrInvalidConfig = errors.New("invalid configuration")

// Config for the harness
type Config struct {
	DataDir        string  `json:"dataDir" yaml:"dataDir" mapstructure:"dataDir"`
	Memory         string  `json:"memory" yaml:"memory" mapstructure:"memory"`
	LogLevel       string  `json:"logLevel" yaml:"logLevel" mapstructure:"logLevel"`
	Counter        string  `json:"counter" yaml:"counter" mapstructure:"counter"`
	ResultsFile    string  `json:"resultsFile" yaml:"resultsFile" mapstructure:"resultsFile"`
	NoiseThreshold float64 `json:"noiseThreshold" yaml:"noiseThreshold" mapstructure:"noiseThreshold"`

	// Scale divides record counts and buffer sizes of every benchmark
	Scale int `json:"scale" yaml:"scale" mapstructure:"scale"`

	// InstructionBudget caps batch inserts that stop when running out of instructions
	InstructionBudget uint64 `json:"instructionBudget" yaml:"instructionBudget" mapstructure:"instructionBudget"`

	SQLite SQLite `json:"sqlite" yaml:"sqlite" mapstructure:"sqlite"`
	KV     KV     `json:"kv" yaml:"kv" mapstructure:"kv"`
	FS     FS     `json:"fs" yaml:"fs" mapstructure:"fs"`
}

// SQLite settings, applied as pragmas on every new connection
type SQLite struct {
	File        string `json:"file" yaml:"file" mapstructure:"file"`
	JournalMode string `json:"journalMode" yaml:"journalMode" mapstructure:"journalMode"`
	Synchronous int    `json:"synchronous" yaml:"synchronous" mapstructure:"synchronous"`
	PageSize    int    `json:"pageSize" yaml:"pageSize" mapstructure:"pageSize"`
	LockingMode string `json:"lockingMode" yaml:"lockingMode" mapstructure:"lockingMode"`
	TempStore   int    `json:"tempStore" yaml:"tempStore" mapstructure:"tempStore"`
	CacheSize   int    `json:"cacheSize,omitempty" yaml:"cacheSize,omitempty" mapstructure:"cacheSize"`
}

// KV settings for the ordered map
type KV struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
}

// FS settings for segmented file benchmarks
type FS struct {
	SegmentSize int `json:"segmentSize" yaml:"segmentSize" mapstructure:"segmentSize"`
	FilesCount  int `json:"filesCount" yaml:"filesCount" mapstructure:"filesCount"`
}

// Default settings
func Default() Config {
	return Config{
		DataDir:           ".stablebench",
		Memory:            MemoryDisk,
		LogLevel:          "info",
		Counter:           CounterAuto,
		ResultsFile:       "stablebench_results.yml",
		NoiseThreshold:    2,
		Scale:             1,
		InstructionBudget: 20_000_000_000,
		SQLite: SQLite{
			File:        "db.db3",
			JournalMode: "MEMORY",
			Synchronous: 0,
			PageSize:    4096,
			LockingMode: "EXCLUSIVE",
			TempStore:   2,
		},
		KV: KV{
			Backend: BackendBolt,
		},
		FS: FS{
			SegmentSize: 1000,
			FilesCount:  10,
		},
	}
}

// Load a YAML configuration file, on top of defaults
func Load(pth string) (Config, error) {
	c := Default()
	buf, err := ioutil.ReadFile(pth)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return c, ErrInvalidConfig.Wrap(err)
	}
	return c, c.Validate()
}

// Validate the configuration
func (c Config) Validate() error {
	if !oneOf(c.Memory, MemoryMem, MemoryDisk) {
		return ErrInvalidConfig.Wrapf("unknown memory kind %q", c.Memory)
	}
	if !oneOf(c.Counter, CounterAuto, CounterPerf, CounterClock) {
		return ErrInvalidConfig.Wrapf("unknown counter %q", c.Counter)
	}
	if !oneOf(c.KV.Backend, BackendBolt, BackendBTree, BackendBadger, BackendPebble) {
		return ErrInvalidConfig.Wrapf("unknown kv backend %q", c.KV.Backend)
	}
	if c.Scale < 1 {
		return ErrInvalidConfig.Wrapf("scale must be at least 1, got %d", c.Scale)
	}
	if c.FS.SegmentSize <= 0 || c.FS.FilesCount <= 0 {
		return ErrInvalidConfig.Wrapf("segment size and files count must be positive")
	}
	if c.SQLite.File == "" {
		return ErrInvalidConfig.Wrapf("sqlite file is required")
	}
	if c.NoiseThreshold < 0 {
		return ErrInvalidConfig.Wrapf("negative noise threshold")
	}
	return nil
}

// Scaled divides n by the configured scale, never returning less than 1
func (c Config) Scaled(n int) int {
	if c.Scale <= 1 {
		return n
	}
	if s := n / c.Scale; s > 0 {
		return s
	}
	return 1
}

// String renders the configuration as YAML
func (c Config) String() string {
	buf, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%#v", c)
	}
	return string(buf)
}

func oneOf(v string, values ...string) bool {
	for _, candidate := range values {
		if strings.EqualFold(v, candidate) {
			return true
		}
	}
	return false
}
