// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/go-lpc/wavedaq/felib"
)

// Dashboard is a raw-mode, ANSI-redrawn terminal UI: a top half of run
// stats and a bottom half of one panel per board (spec.md §6 "Terminal
// UI"). It is the idiomatic-Go substitute for the distilled spec's
// crossterm/ratatui dependency: no TUI framework exists anywhere in the
// retrieved corpus, and the teacher's own UI surfaces (cmd/eda-ctl,
// rpi/server.go) are plain fmt/log, so raw-mode-plus-ANSI is the
// corpus-consistent choice.
type Dashboard struct {
	fd       int
	oldState *term.State
	keys     chan byte
}

// NewDashboard puts stdin into raw mode and starts a background keypress
// reader.
func NewDashboard() (*Dashboard, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("runctl: could not enter raw mode: %w", err)
	}
	d := &Dashboard{fd: fd, oldState: state, keys: make(chan byte, 16)}
	go d.readKeys()
	return d, nil
}

func (d *Dashboard) readKeys() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		d.keys <- buf[0]
	}
}

// Close restores the terminal's original mode.
func (d *Dashboard) Close() error {
	return term.Restore(d.fd, d.oldState)
}

// QuitRequested does a non-blocking poll for a 'q' keypress, the
// supervisor's per-tick equivalent of original_source/src/tui.rs's
// event::poll(Duration::ZERO).
func (d *Dashboard) QuitRequested() bool {
	select {
	case k := <-d.keys:
		return k == 'q'
	default:
		return false
	}
}

// WaitAnyKey blocks until a key is read, used to dismiss an error modal.
func (d *Dashboard) WaitAnyKey() {
	<-d.keys
}

// BoardStatus is one board panel's displayed values, read once per tick
// via felib.Device.GetValue.
type BoardStatus struct {
	ID             int
	Realtime       string
	Deadtime       string
	TriggerCnt     string
	LostTriggerCnt string
	AcqStatus      string // decimal string, as returned by the facade
}

// ReadBoardStatus polls the status paths original_source/src/tui.rs's
// board_status_paragraph reads, tolerating individual read failures.
func ReadBoardStatus(dev *felib.Device, id int) BoardStatus {
	get := func(path string) string {
		v, err := dev.GetValue(path)
		if err != nil {
			return "err"
		}
		return v
	}
	return BoardStatus{
		ID:             id,
		Realtime:       get("/par/RealtimeMonitor"),
		Deadtime:       get("/par/DeadtimeMonitor"),
		TriggerCnt:     get("/par/TriggerCnt"),
		LostTriggerCnt: get("/par/LostTriggerCnt"),
		AcqStatus:      get("/par/AcquisitionStatus"),
	}
}

// acqStatusBinary renders AcqStatus as a binary string for the
// acquisition-status visualization; non-numeric values render as "?".
func (s BoardStatus) acqStatusBinary() string {
	n, err := strconv.ParseUint(s.AcqStatus, 10, 32)
	if err != nil {
		return "?"
	}
	return strconv.FormatUint(n, 2)
}

// Render redraws the full dashboard: clear screen, home cursor, run
// stats, then one line per board.
func (d *Dashboard) Render(campaignNum, runNum int, counter *Counter, queueDepth int, misaligned, dropped uint64, boards []BoardStatus) {
	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")
	fmt.Fprintf(&b, "Campaign %d Run %d Status\r\n", campaignNum, runNum)
	fmt.Fprintf(&b, "Elapsed: %ds  Events: %d  Rate: %.2f MB/s  Queue: %d  Misaligned: %d  Dropped: %d\r\n",
		int(counter.Elapsed().Seconds()), counter.Events(), counter.RateMBs(), queueDepth, misaligned, dropped)
	b.WriteString("\r\n")
	for _, s := range boards {
		fmt.Fprintf(&b, "Board %d: realtime=%s deadtime=%s triggers=%s lost=%s status=%s\r\n",
			s.ID, s.Realtime, s.Deadtime, s.TriggerCnt, s.LostTriggerCnt, s.acqStatusBinary())
	}
	b.WriteString("\r\n[q] quit\r\n")
	fmt.Fprint(os.Stdout, b.String())
}

// ShowError renders a blocking error modal; the caller is expected to
// call WaitAnyKey next, matching spec.md §6's "errors open a modal...
// dismissed by quitting."
func (d *Dashboard) ShowError(msg string) {
	fmt.Fprintf(os.Stdout, "\r\n\x1b[7m DAQ Error \x1b[0m %s\r\nPress any key to continue...\r\n", msg)
}
