// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acq implements the per-board acquisition worker: it configures
// its board's data endpoint, announces readiness, waits on a start
// barrier, then loops reading events and handing them off to the
// processing stage. It generalizes original_source/src/tui.rs's
// data_taking_thread (which ran one such loop per hardcoded board) into a
// reusable Worker, in the spirit of the per-RFM goroutine fan-out
// eda/device.go:846 drives with an errgroup.
package acq // import "github.com/go-lpc/wavedaq/acq"

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-lpc/wavedaq/felib"
)

// State is one step of a Worker's lifecycle: Init -> EndpointReady ->
// Armed -> Running -> Draining -> Exited.
type State int

const (
	StateInit State = iota
	StateEndpointReady
	StateArmed
	StateRunning
	StateDraining
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateEndpointReady:
		return "EndpointReady"
	case StateArmed:
		return "Armed"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateExited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// ErrDataTakingTransit is returned when a worker could not hand a filled
// event buffer to the processing stage (spec.md §7).
var ErrDataTakingTransit = errors.New("acq: could not send event downstream")

// TaggedEvent is an event buffer tagged with its originating board index.
type TaggedEvent struct {
	Board int
	Buf   *felib.EventBuffer
}

// Barrier is the two-signal start protocol a Worker rendezvouses on: it
// announces readiness once (Arrived), then blocks until the supervisor
// releases every worker at once (WaitStart). runctl.StartBarrier is the
// concrete implementation; this interface keeps acq free of a dependency
// on the supervisor package.
type Barrier interface {
	Arrived()
	WaitStart(ctx context.Context) error
}

// Worker drives the acquisition loop for one board.
type Worker struct {
	board     int
	dev       *felib.Device
	nChannels int
	recordLen int
	msg       *log.Logger

	mu    sync.Mutex
	state State
}

// NewWorker returns a Worker for board (0-based index), reading nChannels
// channels of recordLen samples each through dev.
func NewWorker(board int, dev *felib.Device, nChannels, recordLen int) *Worker {
	return &Worker{
		board:     board,
		dev:       dev,
		nChannels: nChannels,
		recordLen: recordLen,
		msg:       log.New(os.Stdout, fmt.Sprintf("acq[%d]: ", board), 0),
	}
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run executes the full worker lifecycle: resolve and activate the scope
// endpoint, arm acquisition, announce readiness, wait for the start
// signal, then loop reading events into out until ctx is cancelled or
// shutdown is set. Run returns nil on a clean Stop or cooperative
// shutdown, and a non-nil error for anything spec.md classifies as
// surfaced-to-the-UI or worse.
func (w *Worker) Run(ctx context.Context, barrier Barrier, out chan<- TaggedEvent, shutdown *atomic.Bool) error {
	w.setState(StateInit)

	ep, err := w.dev.OpenEndpoint("/endpoint/scope", "scope", felib.Schema(w.nChannels))
	if err != nil {
		w.setState(StateExited)
		return fmt.Errorf("acq: board %d: %w", w.board, err)
	}
	if err := w.dev.SendCommand("/cmd/armacquisition"); err != nil {
		w.setState(StateExited)
		return fmt.Errorf("acq: board %d: arm: %w", w.board, err)
	}
	w.msg.Printf("endpoint ready, armed")

	w.setState(StateEndpointReady)
	barrier.Arrived()
	if err := barrier.WaitStart(ctx); err != nil {
		w.msg.Printf("wait-start aborted: %+v", err)
		w.setState(StateExited)
		return nil
	}

	w.setState(StateArmed)
	w.setState(StateRunning)
	w.msg.Printf("running")

	buf := felib.NewEventBuffer(w.nChannels)
	for {
		if shutdown.Load() {
			break
		}

		st := ep.ReadData(buf)
		switch st {
		case felib.Success:
			select {
			case out <- TaggedEvent{Board: w.board, Buf: buf}:
				buf = felib.NewEventBuffer(w.nChannels)
			case <-ctx.Done():
				shutdown.Store(true)
				w.setState(StateExited)
				return ErrDataTakingTransit
			}
		case felib.Timeout:
			continue
		case felib.Stop:
			w.msg.Printf("stop received, draining")
			w.setState(StateDraining)
			w.setState(StateExited)
			return nil
		default:
			w.msg.Printf("read error: %v", st)
			shutdown.Store(true)
			w.setState(StateDraining)
			w.setState(StateExited)
			return fmt.Errorf("acq: board %d: %w", w.board, st)
		}
	}

	w.msg.Printf("shutdown, draining")
	w.setState(StateDraining)
	w.setState(StateExited)
	return nil
}
