// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import (
	"fmt"
	"os"
	"time"

	"github.com/sbinet/pmon"
)

// selfMonitor wraps a pmon.Monitor pointed at the current process,
// writing a periodic CPU/RSS log beside the run file. Grounded on
// cmd/daq-boot/main.go's pmon usage, retargeted from monitoring a spawned
// child process to monitoring the orchestrator's own pid, since there is
// no child process here.
type selfMonitor struct {
	p *pmon.Monitor
	f *os.File
}

// startSelfMonitor begins monitoring the current process, logging to
// logPath at the given frequency. A nil *selfMonitor with a non-nil error
// means monitoring could not start; callers treat that as best-effort and
// continue the run without it.
func startSelfMonitor(logPath string, freq time.Duration) (*selfMonitor, error) {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("runctl: could not start self-monitoring: %w", err)
	}
	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("runctl: could not create pmon log %q: %w", logPath, err)
	}
	p.W = f
	p.Freq = freq

	m := &selfMonitor{p: p, f: f}
	go func() {
		if err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "runctl: self-monitoring stopped: %+v\n", err)
		}
	}()
	return m, nil
}

func (m *selfMonitor) Stop() {
	if m == nil {
		return
	}
	if err := m.p.Kill(); err != nil {
		fmt.Fprintf(os.Stderr, "runctl: could not stop self-monitoring: %+v\n", err)
	}
	m.f.Close()
}
