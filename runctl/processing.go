// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-lpc/wavedaq/acq"
	"github.com/go-lpc/wavedaq/align"
	"github.com/go-lpc/wavedaq/store"
)

// RunProcessing drains events, zero-suppresses and aligns them, appends
// aligned groups to writer, and reports one RunInfo per aligned group on
// stats. It returns when events is closed (the supervisor has dropped the
// send side, per spec.md §4.6 shutdown), after a final writer.FlushAll.
//
// Grounded on original_source/src/tui.rs's event_processing: recv loop,
// zero-suppress-then-enqueue, pop-when-both-fronts-ready, flush_all on
// channel disconnect. Generalized from the prototype's two hardcoded
// queues to align.Aligner's N-board merge.
func RunProcessing(ctx context.Context, events <-chan acq.TaggedEvent, stats chan<- RunInfo, aligner *align.Aligner, suppressor *align.Suppressor, writer *store.Writer, shutdown *atomic.Bool) error {
	for ev := range events {
		if suppressor != nil {
			if err := suppressor.Suppress(ctx, ev.Buf); err != nil {
				if shutdown.Load() {
					continue
				}
				return fmt.Errorf("runctl: zero-suppression: %w", err)
			}
		}

		group, ok := aligner.Push(ev)
		if !ok {
			continue
		}

		var eventSize int
		for board, buf := range group {
			wf := make([][]uint16, buf.NumChannels())
			for ch := range wf {
				wf[ch] = buf.Waveform(ch)
			}
			err := writer.Append(board, buf.Timestamp(), wf, buf.TriggerID(), buf.Flags(), buf.BoardFail())
			if err != nil {
				return fmt.Errorf("runctl: writer append board %d: %w", board, err)
			}
			eventSize += int(buf.EventSize())
		}

		info := RunInfo{EventSize: eventSize, QueueDepth: len(events)}
		select {
		case stats <- info:
		default:
			if !shutdown.Load() {
				return align.ErrProcessingTransit
			}
		}
	}

	if err := writer.FlushAll(); err != nil {
		return fmt.Errorf("runctl: final flush: %w", err)
	}
	return nil
}
