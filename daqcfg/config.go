// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daqcfg parses the run's static configuration file: which boards
// to drive, how long to run, where to write data, how each board's
// channels, thresholds and sync lines are set, and the zero-suppression
// parameters. It is a generalization, to an arbitrary board count N, of
// original_source/src/config.rs's Conf/RunSettings/BoardSettings/
// SyncSettings — which hardcoded "primary"/"secondary" for exactly two
// boards.
package daqcfg // import "github.com/go-lpc/wavedaq/daqcfg"

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document, one YAML file per run.
type Config struct {
	Run   RunConfig   `yaml:"run"`
	Board BoardConfig `yaml:"board"`
	Sync  SyncConfig  `yaml:"sync"`
}

// RunConfig is the `run` section: run-wide and writer-wide settings.
type RunConfig struct {
	Boards           []string      `yaml:"boards"`
	RunDuration      time.Duration `yaml:"run_duration"`
	OutputDir        string        `yaml:"output_dir"`
	CampaignNum      int           `yaml:"campaign_num"`
	BloscThreads     int           `yaml:"blosc_threads"`
	CompressionLevel int           `yaml:"compression_level"`
	ZSLevel          float64       `yaml:"zs_level"`
	ZSThreshold      float64       `yaml:"zs_threshold"`
	ZSEdge           Edge          `yaml:"zs_edge"`
	ZSSamples        int           `yaml:"zs_samples"`
}

// UnmarshalYAML applies defaults (blosc_threads=5, compression_level=2)
// before decoding over them, the way a confique-style config loader would.
// run_duration is decoded as a duration string (e.g. "30s") rather than a
// bare integer, since time.Duration has no YAML scalar representation of
// its own.
func (r *RunConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain struct {
		Boards           []string `yaml:"boards"`
		RunDuration      string   `yaml:"run_duration"`
		OutputDir        string   `yaml:"output_dir"`
		CampaignNum      int      `yaml:"campaign_num"`
		BloscThreads     int      `yaml:"blosc_threads"`
		CompressionLevel int      `yaml:"compression_level"`
		ZSLevel          float64  `yaml:"zs_level"`
		ZSThreshold      float64  `yaml:"zs_threshold"`
		ZSEdge           Edge     `yaml:"zs_edge"`
		ZSSamples        int      `yaml:"zs_samples"`
	}
	aux := plain{BloscThreads: 5, CompressionLevel: 2}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	var dur time.Duration
	if aux.RunDuration != "" {
		d, err := time.ParseDuration(aux.RunDuration)
		if err != nil {
			return fmt.Errorf("run_duration: %w", err)
		}
		dur = d
	}
	*r = RunConfig{
		Boards:           aux.Boards,
		RunDuration:      dur,
		OutputDir:        aux.OutputDir,
		CampaignNum:      aux.CampaignNum,
		BloscThreads:     aux.BloscThreads,
		CompressionLevel: aux.CompressionLevel,
		ZSLevel:          aux.ZSLevel,
		ZSThreshold:      aux.ZSThreshold,
		ZSEdge:           aux.ZSEdge,
		ZSSamples:        aux.ZSSamples,
	}
	return nil
}

// Edge is the zero-suppression polarity: a sample is suppressed when it
// falls below (Rise) or above (Fall) threshold relative to baseline.
type Edge string

const (
	EdgeRise Edge = "Rise"
	EdgeFall Edge = "Fall"
)

// BoardConfig is the `board` section: settings common to every board, plus
// a per-board list.
type BoardConfig struct {
	Common CommonConfig   `yaml:"common"`
	Boards []PerBoardConfig `yaml:"boards"`
}

// CommonConfig holds the settings spec.md calls "common" across boards.
type CommonConfig struct {
	RecordLen  int `yaml:"record_len"`
	PreTrigLen int `yaml:"pre_trig_len"`
}

// ThresholdConfig is one channel's trigger threshold.
type ThresholdConfig struct {
	Value               float64 `yaml:"value"`
	Mode                string  `yaml:"mode"`
	Edge                Edge    `yaml:"edge"`
	SamplesOverThreshold int    `yaml:"samples_over_threshold"`
}

// ITLConfig is a board's internal-trigger-logic parameters.
type ITLConfig struct {
	MajorityLevel int    `yaml:"majority_level"`
	PairLogic     string `yaml:"pair_logic"`
	Polarity      string `yaml:"polarity"`
	GateWidth     int    `yaml:"gate_width"`
	Retrigger     bool   `yaml:"retrigger"`
}

// PerBoardConfig is one board's entry under `board.boards`.
type PerBoardConfig struct {
	Channels       ChannelConfig   `yaml:"channels"`
	TrigSource     string          `yaml:"trig_source"`
	DCOffset       DCOffsetConfig  `yaml:"dc_offset"`
	IOLevel        string          `yaml:"io_level"`
	TestPulsePeriod int            `yaml:"test_pulse_period"`
	TestPulseWidth  int            `yaml:"test_pulse_width"`
	TestPulseLow    int            `yaml:"test_pulse_low"`
	TestPulseHigh   int            `yaml:"test_pulse_high"`
	Threshold      ThresholdConfig `yaml:"threshold"`
	ITL            ITLConfig       `yaml:"itl"`
	ITLConnect     ConnectConfig   `yaml:"itl_connect"`
}

// SyncConfig is the `sync` section: per-board inter-board sync timing.
type SyncConfig struct {
	Boards []PerBoardSyncConfig `yaml:"boards"`
}

// PerBoardSyncConfig is one board's entry under `sync.boards`.
type PerBoardSyncConfig struct {
	ClockSource     string `yaml:"clock_source"`
	SyncOut         string `yaml:"sync_out"`
	StartSource     string `yaml:"start_source"`
	ClockOutFP      string `yaml:"clock_out_fp"`
	TrigOut         string `yaml:"trig_out"`
	AutoDisarm      string `yaml:"auto_disarm"`
}

// Load reads and validates the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("daqcfg: could not read %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("daqcfg: could not parse %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("daqcfg: invalid configuration %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the cross-field invariants a YAML schema alone cannot
// express: board-count agreement across the three sections, and sane
// zero-suppression parameters.
func (c *Config) Validate() error {
	n := len(c.Run.Boards)
	if n == 0 {
		return fmt.Errorf("no boards configured")
	}
	if len(c.Board.Boards) != n {
		return fmt.Errorf("board.boards has %d entries, want %d (run.boards)", len(c.Board.Boards), n)
	}
	if len(c.Sync.Boards) != n {
		return fmt.Errorf("sync.boards has %d entries, want %d (run.boards)", len(c.Sync.Boards), n)
	}
	if c.Run.ZSLevel < 0 || c.Run.ZSLevel > 1 {
		return fmt.Errorf("run.zs_level = %v, want in [0,1]", c.Run.ZSLevel)
	}
	if c.Run.ZSEdge != "" && c.Run.ZSEdge != EdgeRise && c.Run.ZSEdge != EdgeFall {
		return fmt.Errorf("run.zs_edge = %q, want Rise or Fall", c.Run.ZSEdge)
	}
	if c.Board.Common.RecordLen <= 0 {
		return fmt.Errorf("board.common.record_len must be positive")
	}
	return nil
}

// NumBoards returns the configured board count N.
func (c *Config) NumBoards() int { return len(c.Run.Boards) }
