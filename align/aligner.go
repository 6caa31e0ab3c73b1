// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align merges per-board event streams into synchronized
// multi-board groups, keyed by trigger identifier, and (optionally)
// zero-suppresses sample arrays relative to a baseline. It generalizes
// original_source/src/tui.rs's event_processing function — which
// hardcoded the merge rule for exactly two boards via a pair of
// VecDeques — to an arbitrary board count N.
package align // import "github.com/go-lpc/wavedaq/align"

import (
	"errors"
	"sync"

	"github.com/go-lpc/wavedaq/acq"
	"github.com/go-lpc/wavedaq/felib"
)

// ErrProcessingTransit is returned when the processing worker could not
// forward a stats snapshot downstream (spec.md §7).
var ErrProcessingTransit = errors.New("align: could not send stats downstream")

// Aligner merges N per-board queues by trigger identifier.
//
// Alignment rule: once every queue has a front element, let M be the
// maximum front trigger id across boards; pop and count as misaligned
// every front strictly less than M. If every queue still has a front and
// all fronts now agree, an aligned group is emitted; otherwise Push
// returns without a group and alignment is tried again on the next Push.
type Aligner struct {
	mu         sync.Mutex
	queues     [][]*felib.EventBuffer
	misaligned uint64
	dropped    uint64
	expected   uint32
	haveExpect bool
}

// NewAligner returns an Aligner for n boards.
func NewAligner(n int) *Aligner {
	return &Aligner{queues: make([][]*felib.EventBuffer, n)}
}

// Push appends ev to its board's queue and attempts alignment. If an
// aligned group is ready, group holds exactly one buffer per board, in
// board-index order, and ok is true.
func (a *Aligner) Push(ev acq.TaggedEvent) (group []*felib.EventBuffer, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.queues[ev.Board] = append(a.queues[ev.Board], ev.Buf)
	return a.tryAlign()
}

func (a *Aligner) tryAlign() ([]*felib.EventBuffer, bool) {
	for _, q := range a.queues {
		if len(q) == 0 {
			return nil, false
		}
	}

	var m uint32
	for _, q := range a.queues {
		if tid := q[0].TriggerID(); tid > m {
			m = tid
		}
	}
	for i, q := range a.queues {
		for len(q) > 0 && q[0].TriggerID() < m {
			q = q[1:]
			a.misaligned++
		}
		a.queues[i] = q
	}
	for _, q := range a.queues {
		if len(q) == 0 {
			return nil, false
		}
	}

	t := a.queues[0][0].TriggerID()
	for _, q := range a.queues {
		if q[0].TriggerID() != t {
			// A queue jumped past M without ever presenting it (its
			// board skipped that identifier entirely); wait for more
			// input before trying again.
			return nil, false
		}
	}

	group := make([]*felib.EventBuffer, len(a.queues))
	for i, q := range a.queues {
		group[i] = q[0]
		a.queues[i] = q[1:]
	}

	if !a.haveExpect {
		a.expected = t
		a.haveExpect = true
	}
	if t != a.expected {
		diff := int64(t) - int64(a.expected)
		if diff < 0 {
			diff = -diff
		}
		a.dropped += uint64(diff)
	}
	a.expected = t + 1

	return group, true
}

// MisalignedCount returns the cumulative number of stale events dropped
// while resolving misaligned fronts.
func (a *Aligner) MisalignedCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.misaligned
}

// DroppedCount returns the cumulative count of skipped trigger identifiers
// inferred from gaps between consecutive aligned groups.
func (a *Aligner) DroppedCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// QueueDepth returns the current backlog length of board id's queue, for
// the dashboard.
func (a *Aligner) QueueDepth(board int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queues[board])
}
