// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package board applies a validated daqcfg.Config to one digitizer board
// through its felib.Device: channel enables, DC offsets, thresholds,
// trigger sources, test-pulse parameters, internal-trigger-logic, and
// inter-board sync timings. It generalizes original_source/src/utils.rs's
// configure_board/configure_sync (which hardcoded a 2-board
// primary/secondary split) to an arbitrary board count N.
package board // import "github.com/go-lpc/wavedaq/board"

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-lpc/wavedaq/daqcfg"
	"github.com/go-lpc/wavedaq/felib"
)

// setter is the subset of *felib.Device this package needs, so tests can
// configure against felib.NewFakeDevice without a real board.
type setter interface {
	SetValue(path, value string) error
	SendCommand(path string) error
}

var _ setter = (*felib.Device)(nil)

// Configure applies cfg's board and sync settings to dev, which is board
// id (0-based) of n total boards. It is idempotent: a reset command
// precedes every reconfiguration, matching spec.md §4.2.
func Configure(dev setter, cfg *daqcfg.Config, id, n int) error {
	msg := log.New(os.Stdout, fmt.Sprintf("board[%d]: ", id), 0)

	if err := dev.SendCommand("/cmd/reset"); err != nil {
		return fmt.Errorf("board: reset board %d: %w", id, err)
	}
	msg.Printf("reset")
	if err := configureChannels(dev, cfg, id); err != nil {
		return err
	}
	if err := configureSync(dev, cfg, id, n); err != nil {
		return err
	}
	msg.Printf("configuration [done]")
	return nil
}

func configureChannels(dev setter, cfg *daqcfg.Config, id int) error {
	common := cfg.Board.Common
	b := cfg.Board.Boards[id]

	if err := applyChannelConfig(dev, b.Channels); err != nil {
		return err
	}
	if err := applyDCOffset(dev, b.DCOffset); err != nil {
		return err
	}
	if err := applyITLConnect(dev, b.ITLConnect); err != nil {
		return err
	}

	sets := []struct {
		path  string
		value string
	}{
		{"/par/RecordLengthS", strconv.Itoa(common.RecordLen)},
		{"/par/PreTriggerS", strconv.Itoa(common.PreTrigLen)},
		{"/par/AcqTriggerSource", b.TrigSource},
		{"/par/IOlevel", b.IOLevel},
		{"/par/TestPulsePeriod", strconv.Itoa(b.TestPulsePeriod)},
		{"/par/TestPulseWidth", strconv.Itoa(b.TestPulseWidth)},
		{"/par/TestPulseLowLevel", strconv.Itoa(b.TestPulseLow)},
		{"/par/TestPulseHighLevel", strconv.Itoa(b.TestPulseHigh)},
		{"/par/TriggerThr", strconv.FormatFloat(b.Threshold.Value, 'f', -1, 64)},
		{"/par/TriggerThrMode", b.Threshold.Mode},
		{"/par/TriggerThrEdge", string(b.Threshold.Edge)},
		{"/par/SamplesOverThreshold", strconv.Itoa(b.Threshold.SamplesOverThreshold)},
		{"/par/ITLAMajorityLev", strconv.Itoa(b.ITL.MajorityLevel)},
		{"/par/ITLAPairLogic", b.ITL.PairLogic},
		{"/par/ITLAPolarity", b.ITL.Polarity},
		{"/par/ITLAGateWidth", strconv.Itoa(b.ITL.GateWidth)},
		{"/par/ITLARetrigger", strconv.FormatBool(b.ITL.Retrigger)},
	}
	for _, s := range sets {
		if err := dev.SetValue(s.path, s.value); err != nil {
			return fmt.Errorf("board: configure board %d: %w", id, err)
		}
	}
	return nil
}

// applyChannelConfig takes the single-path fast path
// original_source/src/utils.rs takes for ChannelConfig::All, and falls
// back to one SetValue per channel for an explicit list.
func applyChannelConfig(dev setter, ch daqcfg.ChannelConfig) error {
	if len(ch.List) == 0 {
		value := "false"
		if ch.All {
			value = "true"
		}
		return dev.SetValue("/ch/0..63/par/ChEnable", value)
	}
	for c := 0; c < 64; c++ {
		value := "false"
		if ch.Enabled(c, 64) {
			value = "true"
		}
		path := fmt.Sprintf("/ch/%d/par/ChEnable", c)
		if err := dev.SetValue(path, value); err != nil {
			return err
		}
	}
	return nil
}

func applyDCOffset(dev setter, dc daqcfg.DCOffsetConfig) error {
	if dc.PerChannel == nil {
		v := strconv.FormatFloat(dc.Global, 'f', -1, 64)
		return dev.SetValue("/ch/0..63/par/DCOffset", v)
	}
	for ch, offset := range dc.PerChannel {
		path := fmt.Sprintf("/ch/%s/par/DCOffset", ch)
		v := strconv.FormatFloat(offset, 'f', -1, 64)
		if err := dev.SetValue(path, v); err != nil {
			return err
		}
	}
	return nil
}

func applyITLConnect(dev setter, c daqcfg.ConnectConfig) error {
	if c.PerChannel == nil {
		v := strconv.FormatBool(c.Global)
		return dev.SetValue("/ch/0..63/par/ITLConnect", v)
	}
	for ch, connect := range c.PerChannel {
		path := fmt.Sprintf("/ch/%s/par/ITLConnect", ch)
		v := strconv.FormatBool(connect)
		if err := dev.SetValue(path, v); err != nil {
			return err
		}
	}
	return nil
}

func configureSync(dev setter, cfg *daqcfg.Config, id, n int) error {
	s := cfg.Sync.Boards[id]

	sets := []struct {
		path  string
		value string
	}{
		{"/par/ClockSource", s.ClockSource},
		{"/par/SyncOutMode", s.SyncOut},
		{"/par/StartSource", s.StartSource},
		{"/par/EnClockOutFP", s.ClockOutFP},
		{"/par/EnAutoDisarmAcq", s.AutoDisarm},
		{"/par/TrgOutMode", s.TrigOut},
		{"/par/RunDelay", strconv.Itoa(RunDelay(id, n))},
		{"/par/VolatileClockOutDelay", strconv.Itoa(ClockOutDelay(id, n))},
	}
	for _, set := range sets {
		if err := dev.SetValue(set.path, set.value); err != nil {
			return fmt.Errorf("board: configure sync %d: %w", id, err)
		}
	}
	return nil
}

// ClockOutDelay returns the volatile clock-out delay for board id (0-based)
// of n total boards: the last board gets 0, the first board gets −2148,
// every other board gets −3111. This matches spec.md §4.2 P8; the
// prototype this was distilled from (original_source/src/utils.rs)
// used −2188 for the first board, which spec.md supersedes.
func ClockOutDelay(id, n int) int {
	switch {
	case id == n-1:
		return 0
	case id == 0:
		return -2148
	default:
		return -3111
	}
}

// RunDelay returns the run-start delay, in clock ticks, for board id of n
// total boards: 8·(2·(n−1−id) + (id==0 ? 4 : 0)).
func RunDelay(id, n int) int {
	fromLast := n - id - 1
	delay := 2 * fromLast
	if id == 0 {
		delay += 4
	}
	return delay * 8
}
