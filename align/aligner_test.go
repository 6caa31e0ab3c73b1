// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"testing"

	"github.com/go-lpc/wavedaq/acq"
	"github.com/go-lpc/wavedaq/felib"
)

// ev builds a tagged event with the given trigger id, driven through a
// felib.Fake (EventBuffer's fields are only settable from within felib).
func ev(board int, tid uint32) acq.TaggedEvent {
	dev, fake := felib.NewFakeDevice()
	fake.QueueEvents(felib.FakeEvent{TriggerID: tid, Waveform: [][]uint16{{0}}})
	ep, err := dev.OpenEndpoint("/endpoint/scope", "scope", felib.Schema(1))
	if err != nil {
		panic(err)
	}
	buf := felib.NewEventBuffer(1)
	ep.ReadData(buf)
	return acq.TaggedEvent{Board: board, Buf: buf}
}

func TestAlignerCleanInterleaving(t *testing.T) {
	a := NewAligner(2)
	seq := []acq.TaggedEvent{ev(0, 0), ev(1, 0), ev(0, 1), ev(1, 1)}

	var groups [][]*felib.EventBuffer
	for _, e := range seq {
		if g, ok := a.Push(e); ok {
			groups = append(groups, g)
		}
	}
	if len(groups) != 2 {
		t.Fatalf("got %d aligned groups, want 2", len(groups))
	}
	if groups[0][0].TriggerID() != 0 || groups[1][0].TriggerID() != 1 {
		t.Fatalf("unexpected group trigger ids")
	}
	if a.MisalignedCount() != 0 {
		t.Fatalf("MisalignedCount() = %d, want 0", a.MisalignedCount())
	}
	if a.DroppedCount() != 0 {
		t.Fatalf("DroppedCount() = %d, want 0", a.DroppedCount())
	}
}

func TestAlignerDropsStaleFront(t *testing.T) {
	a := NewAligner(2)
	// Board 0 emits tid 0 before board 1 has anything; by the time board 1
	// catches up at tid 1, board 0's tid-0 front is stale and must be
	// dropped before the fronts can agree.
	seq := []acq.TaggedEvent{ev(0, 0), ev(1, 1), ev(0, 1)}

	var groups [][]*felib.EventBuffer
	for _, e := range seq {
		if g, ok := a.Push(e); ok {
			groups = append(groups, g)
		}
	}
	if len(groups) != 1 {
		t.Fatalf("got %d aligned groups, want 1", len(groups))
	}
	if got := groups[0][0].TriggerID(); got != 1 {
		t.Fatalf("aligned group trigger id = %d, want 1", got)
	}
	if got := a.MisalignedCount(); got != 1 {
		t.Fatalf("MisalignedCount() = %d, want 1", got)
	}
	if got := a.DroppedCount(); got != 0 {
		t.Fatalf("DroppedCount() = %d, want 0", got)
	}
}

func TestAlignerCountsDroppedIdentifiers(t *testing.T) {
	a := NewAligner(2)
	// First aligned group at tid 0 seeds the expected-next counter; the
	// second aligned group jumps to tid 3 on both boards at once (e.g. a
	// hardware trigger-counter reset), so the gap of 2 missing ids (1, 2)
	// is attributed to dropped_count.
	seq := []acq.TaggedEvent{ev(0, 0), ev(1, 0), ev(0, 3), ev(1, 3)}
	for _, e := range seq {
		a.Push(e)
	}
	if got, want := a.DroppedCount(), uint64(2); got != want {
		t.Fatalf("DroppedCount() = %d, want %d", got, want)
	}
}

func TestAlignerWaitsForAllQueues(t *testing.T) {
	a := NewAligner(2)
	if _, ok := a.Push(ev(0, 0)); ok {
		t.Fatalf("Push should not align with only one board's queue populated")
	}
}

func TestAlignerQueueDepth(t *testing.T) {
	a := NewAligner(2)
	a.Push(ev(1, 5))
	if got, want := a.QueueDepth(1), 1; got != want {
		t.Fatalf("QueueDepth(1) = %d, want %d", got, want)
	}
	if got, want := a.QueueDepth(0), 0; got != want {
		t.Fatalf("QueueDepth(0) = %d, want %d", got, want)
	}
}
