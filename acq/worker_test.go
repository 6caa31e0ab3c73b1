// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-lpc/wavedaq/felib"
)

type fakeBarrier struct {
	arrived int32
	err     error
}

func (b *fakeBarrier) Arrived() { atomic.AddInt32(&b.arrived, 1) }
func (b *fakeBarrier) WaitStart(ctx context.Context) error { return b.err }

func TestWorkerRunEmitsEvents(t *testing.T) {
	dev, fake := felib.NewFakeDevice()
	defer dev.Close()

	fake.QueueEvents(
		felib.FakeEvent{TriggerID: 0, Waveform: [][]uint16{{1, 2}}},
		felib.FakeEvent{TriggerID: 1, Waveform: [][]uint16{{3, 4}}},
	)

	w := NewWorker(0, dev, 1, 2)
	out := make(chan TaggedEvent, 2)
	var shutdown atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	barrier := &fakeBarrier{}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, barrier, out, &shutdown) }()

	ev0 := <-out
	ev1 := <-out
	if ev0.Buf.TriggerID() != 0 {
		t.Fatalf("first event trigger id = %d, want 0", ev0.Buf.TriggerID())
	}
	if ev1.Buf.TriggerID() != 1 {
		t.Fatalf("second event trigger id = %d, want 1", ev1.Buf.TriggerID())
	}
	if got := w.State(); got != StateRunning {
		t.Fatalf("State() = %v, want %v", got, StateRunning)
	}

	shutdown.Store(true)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %+v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after shutdown was set")
	}
	if w.State() != StateExited {
		t.Fatalf("State() = %v, want %v", w.State(), StateExited)
	}
	if atomic.LoadInt32(&barrier.arrived) != 1 {
		t.Fatalf("barrier.Arrived() should have been called exactly once")
	}
}

func TestWorkerRunBarrierCancelled(t *testing.T) {
	dev, _ := felib.NewFakeDevice()
	defer dev.Close()

	w := NewWorker(0, dev, 1, 2)
	out := make(chan TaggedEvent)
	var shutdown atomic.Bool

	barrier := &fakeBarrier{err: context.Canceled}
	err := w.Run(context.Background(), barrier, out, &shutdown)
	if err != nil {
		t.Fatalf("Run with a cancelled barrier should return nil, got %+v", err)
	}
	if w.State() != StateExited {
		t.Fatalf("State() = %v, want %v", w.State(), StateExited)
	}
}

func TestWorkerRunDataTakingTransit(t *testing.T) {
	dev, fake := felib.NewFakeDevice()
	defer dev.Close()
	fake.QueueEvents(felib.FakeEvent{TriggerID: 0, Waveform: [][]uint16{{1}}})

	w := NewWorker(0, dev, 1, 1)
	out := make(chan TaggedEvent) // unbuffered, nobody reads
	var shutdown atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled: the send in Run must hit ctx.Done()

	err := w.Run(ctx, &fakeBarrier{}, out, &shutdown)
	if !errors.Is(err, ErrDataTakingTransit) {
		t.Fatalf("Run = %+v, want ErrDataTakingTransit", err)
	}
	if !shutdown.Load() {
		t.Fatalf("Run should have set shutdown")
	}
}
