// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"strconv"
	"testing"

	"github.com/go-lpc/wavedaq/daqcfg"
	"github.com/go-lpc/wavedaq/felib"
)

func testConfig(nBoards int) *daqcfg.Config {
	cfg := &daqcfg.Config{
		Board: daqcfg.BoardConfig{
			Common: daqcfg.CommonConfig{RecordLen: 1024, PreTrigLen: 100},
		},
	}
	for i := 0; i < nBoards; i++ {
		cfg.Board.Boards = append(cfg.Board.Boards, daqcfg.PerBoardConfig{
			Channels:   daqcfg.ChannelConfig{All: true},
			TrigSource: "SwTrg",
			DCOffset:   daqcfg.DCOffsetConfig{Global: 0.2},
			IOLevel:    "NIM",
		})
		cfg.Sync.Boards = append(cfg.Sync.Boards, daqcfg.PerBoardSyncConfig{
			ClockSource: "Internal",
			SyncOut:     "FPClkOut",
			StartSource: "SwCmd",
		})
	}
	return cfg
}

func TestConfigureResetsFirst(t *testing.T) {
	dev, fake := felib.NewFakeDevice()
	defer dev.Close()

	cfg := testConfig(1)
	if err := Configure(dev, cfg, 0, 1); err != nil {
		t.Fatalf("Configure: %+v", err)
	}

	cmds := fake.Commands()
	if len(cmds) == 0 || cmds[0] != "/cmd/reset" {
		t.Fatalf("Configure should send /cmd/reset first, got %v", cmds)
	}
}

func TestConfigureAllChannelsFastPath(t *testing.T) {
	dev, _ := felib.NewFakeDevice()
	defer dev.Close()

	cfg := testConfig(1)
	if err := Configure(dev, cfg, 0, 1); err != nil {
		t.Fatalf("Configure: %+v", err)
	}

	got, err := dev.GetValue("/ch/0..63/par/ChEnable")
	if err != nil {
		t.Fatalf("GetValue: %+v", err)
	}
	if got != "true" {
		t.Fatalf("/ch/0..63/par/ChEnable = %q, want %q", got, "true")
	}
}

func TestConfigurePerChannelList(t *testing.T) {
	dev, _ := felib.NewFakeDevice()
	defer dev.Close()

	cfg := testConfig(1)
	cfg.Board.Boards[0].Channels = daqcfg.ChannelConfig{List: []int{0, 3}}
	if err := Configure(dev, cfg, 0, 1); err != nil {
		t.Fatalf("Configure: %+v", err)
	}

	for ch, want := range map[int]string{0: "true", 1: "false", 3: "true"} {
		path := formatChEnablePath(ch)
		got, err := dev.GetValue(path)
		if err != nil {
			t.Fatalf("GetValue(%q): %+v", path, err)
		}
		if got != want {
			t.Fatalf("GetValue(%q) = %q, want %q", path, got, want)
		}
	}
}

func formatChEnablePath(ch int) string {
	return "/ch/" + strconv.Itoa(ch) + "/par/ChEnable"
}

func TestConfigureITLConnectGlobalFastPath(t *testing.T) {
	dev, _ := felib.NewFakeDevice()
	defer dev.Close()

	cfg := testConfig(1)
	cfg.Board.Boards[0].ITLConnect = daqcfg.ConnectConfig{Global: true}
	if err := Configure(dev, cfg, 0, 1); err != nil {
		t.Fatalf("Configure: %+v", err)
	}

	got, err := dev.GetValue("/ch/0..63/par/ITLConnect")
	if err != nil {
		t.Fatalf("GetValue: %+v", err)
	}
	if got != "true" {
		t.Fatalf("/ch/0..63/par/ITLConnect = %q, want %q", got, "true")
	}
}

func TestConfigureITLConnectPerChannel(t *testing.T) {
	dev, _ := felib.NewFakeDevice()
	defer dev.Close()

	cfg := testConfig(1)
	cfg.Board.Boards[0].ITLConnect = daqcfg.ConnectConfig{
		PerChannel: map[string]bool{"0": true, "1": false},
	}
	if err := Configure(dev, cfg, 0, 1); err != nil {
		t.Fatalf("Configure: %+v", err)
	}

	for ch, want := range map[string]string{"0": "true", "1": "false"} {
		path := "/ch/" + ch + "/par/ITLConnect"
		got, err := dev.GetValue(path)
		if err != nil {
			t.Fatalf("GetValue(%q): %+v", path, err)
		}
		if got != want {
			t.Fatalf("GetValue(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestClockOutDelay(t *testing.T) {
	for _, tc := range []struct {
		id, n int
		want  int
	}{
		{0, 3, -2148},
		{1, 3, -3111},
		{2, 3, 0},
		{0, 1, 0}, // single board: both first and last -> last wins
	} {
		if got := ClockOutDelay(tc.id, tc.n); got != tc.want {
			t.Errorf("ClockOutDelay(%d,%d) = %d, want %d", tc.id, tc.n, got, tc.want)
		}
	}
}

func TestRunDelay(t *testing.T) {
	for _, tc := range []struct {
		id, n int
		want  int
	}{
		{0, 3, 64}, // 8*(2*2+4)
		{1, 3, 16}, // 8*(2*1)
		{2, 3, 0},
	} {
		if got := RunDelay(tc.id, tc.n); got != tc.want {
			t.Errorf("RunDelay(%d,%d) = %d, want %d", tc.id, tc.n, got, tc.want)
		}
	}
}
